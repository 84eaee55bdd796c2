// internal/jupiter/errors.go
package jupiter

import "errors"

var (
	// ErrQuoteUnavailable means the aggregator found no route for the pair
	// and amount. Retrying with identical parameters is pointless.
	ErrQuoteUnavailable = errors.New("aggregator returned no route")

	// ErrQuoteRejected means the aggregator explicitly refused the request,
	// for example an amount below its minimum.
	ErrQuoteRejected = errors.New("aggregator rejected quote request")

	// ErrNetwork marks transient transport failures.
	ErrNetwork = errors.New("aggregator network error")
)
