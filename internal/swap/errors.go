// internal/swap/errors.go
package swap

import "errors"

// Domain error set shared by the plan, encoder and execution layers. The
// execution monitor maps on-chain failures onto these values so every caller
// sees one vocabulary.
var (
	// ErrInvalidAmount rejects zero-amount requests before any network call.
	ErrInvalidAmount = errors.New("swap amount must be positive")

	// ErrPlanTooLarge means the composed account list exceeds the active
	// version's practical ceiling. Fatal for the requested version; callers
	// should disable reflection or switch to the index-referenced version.
	ErrPlanTooLarge = errors.New("swap plan exceeds account limit for this architecture version")

	// ErrQuoteExpired means the plan outlived its aggregator quote. The whole
	// plan must be rebuilt; resubmission is never valid.
	ErrQuoteExpired = errors.New("swap plan quote expired")

	// ErrSlippageExceeded means the realized price moved past a leg's
	// minimum-output bound. A fresh quote is required, not a resubmission.
	ErrSlippageExceeded = errors.New("realized output below minimum-out bound")

	// ErrInsufficientBalance means the caller holds less than the requested
	// input amount. User-correctable.
	ErrInsufficientBalance = errors.New("insufficient balance for requested amount")

	// ErrLeftoverBalanceMismatch flags a residual dust balance that wallet
	// simulations reject; recoverable by rounding the request up to the full
	// held balance.
	ErrLeftoverBalanceMismatch = errors.New("requested amount leaves suspicious leftover balance")

	// ErrSignerConflict is raised when the same account appears in two legs
	// with contradictory signer requirements. Forcing a signer union would
	// escalate privileges, so this is treated as a hard error.
	ErrSignerConflict = errors.New("conflicting signer flags for deduplicated account")

	// ErrAuthorityNotPassed is the dominant V1 failure class: the derived
	// swap authority is expected by the aggregator instruction but missing
	// from the passed-through account list.
	ErrAuthorityNotPassed = errors.New("derived swap authority missing from leg accounts")
)
