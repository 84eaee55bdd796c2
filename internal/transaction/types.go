// internal/transaction/types.go
package transaction

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/raceswap-labs/raceswap-engine/internal/raceswap"
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
)

type Config struct {
	MaxRetries       int
	RetryDelay       time.Duration
	ConfirmationTime time.Duration
	PollInterval     time.Duration
	SkipPreflight    bool
	SimulateFirst    bool
	Commitment       rpc.CommitmentType
	MinConfirmations uint8
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:       3,
		RetryDelay:       500 * time.Millisecond,
		ConfirmationTime: 45 * time.Second,
		PollInterval:     500 * time.Millisecond,
		SimulateFirst:    true,
		Commitment:       rpc.CommitmentConfirmed,
		MinConfirmations: 1,
	}
}

type Status struct {
	Signature     string
	Status        string
	Confirmations uint64
	Slot          uint64
	Error         string
	Logs          []string
	Timestamp     time.Time

	// Event is the program's post-swap accounting record, recovered from
	// the confirmed transaction's logs. Nil for failed transactions.
	Event *raceswap.SwapExecutedEvent
}
