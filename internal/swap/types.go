// internal/swap/types.go
package swap

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ArchitectureVersion selects the account-authorization scheme used by the
// composing on-chain program. It is fixed by deployment configuration, never
// negotiated at runtime.
type ArchitectureVersion uint8

const (
	// V1 embeds each leg as an opaque sub-instruction and signs via a
	// program-derived authority.
	V1 ArchitectureVersion = iota + 1
	// V2 passes every aggregator account through with the user as the only
	// top-level signer.
	V2
	// V3 uses the V2 authorization model but references accounts by index
	// into the transaction's shared remaining-accounts list.
	V3
)

func (v ArchitectureVersion) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// ParseArchitectureVersion maps a config string to a version.
func ParseArchitectureVersion(s string) (ArchitectureVersion, error) {
	switch s {
	case "v1":
		return V1, nil
	case "v2":
		return V2, nil
	case "v3", "":
		return V3, nil
	}
	return 0, fmt.Errorf("unknown architecture version %q", s)
}

// SwapRequest is the caller-supplied description of one swap attempt.
// Amounts are in the smallest unit of the input mint.
type SwapRequest struct {
	InputMint         solana.PublicKey
	OutputMint        solana.PublicKey
	Amount            uint64
	SlippageBps       uint16
	ReflectionMint    solana.PublicKey
	DisableReflection bool
}

// Validate checks the request before any network work is done.
func (r *SwapRequest) Validate() error {
	if r.InputMint.IsZero() {
		return fmt.Errorf("input mint is required")
	}
	if r.OutputMint.IsZero() {
		return fmt.Errorf("output mint is required")
	}
	if r.Amount == 0 {
		return ErrInvalidAmount
	}
	if r.InputMint.Equals(r.OutputMint) {
		return fmt.Errorf("input and output mint are identical")
	}
	if !r.DisableReflection && r.ReflectionMint.IsZero() {
		return fmt.Errorf("reflection mint is required unless reflection is disabled")
	}
	return nil
}

// Leg is one aggregator-routed conversion inside a composed transaction.
// A leg is produced once per plan and dies with that plan's quote expiry.
type Leg struct {
	SourceMint      solana.PublicKey
	DestinationMint solana.PublicKey
	AmountIn        uint64
	QuotedOut       uint64
	MinOut          uint64
	ProgramID       solana.PublicKey
	Accounts        []*solana.AccountMeta
	Data            []byte
	PriceImpact     decimal.Decimal
	ExpireAt        time.Time
}

// FeeSplit is the exact three-way partition of the user's total input.
// Invariant: Fee + Main + Reflection == the total that produced it.
type FeeSplit struct {
	Fee        uint64
	Main       uint64
	Reflection uint64
}

// Total reassembles the input amount the split was computed from.
func (s FeeSplit) Total() uint64 {
	return s.Fee + s.Main + s.Reflection
}
