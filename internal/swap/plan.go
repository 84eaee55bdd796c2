// internal/swap/plan.go
package swap

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// PlanState is the plan's lifecycle state derived from its quote expiry.
type PlanState uint8

const (
	PlanFresh PlanState = iota
	PlanExpired
)

func (s PlanState) String() string {
	if s == PlanFresh {
		return "fresh"
	}
	return "expired"
}

// SwapPlan is the complete, self-describing output of the assembler: fee
// split, one or two legs, the merged account list, and the wall-clock expiry
// of the underlying quotes. A plan lives only in memory between assembly and
// transaction derivation; once expired it can only be discarded and rebuilt.
type SwapPlan struct {
	Version       ArchitectureVersion
	User          solana.PublicKey
	Split         FeeSplit
	MainLeg       *Leg
	ReflectionLeg *Leg

	// Accounts is the deduplicated union of all leg accounts with merged
	// privilege flags, in first-seen order.
	Accounts []*solana.AccountMeta

	// DeclaredAccounts is the account count the active version must carry
	// (per-leg totals for the sequential V1 layout, the deduplicated count
	// otherwise); the assembler enforces the ceiling against this number.
	DeclaredAccounts int

	ExpiresAt time.Time

	AssembledAt time.Time

	// now is swapped in tests to control the expiry clock.
	now func() time.Time
}

// State reports whether the plan's quotes are still consumable.
func (p *SwapPlan) State() PlanState {
	if !p.clock()().Before(p.ExpiresAt) {
		return PlanExpired
	}
	return PlanFresh
}

// EnsureFresh is the checked accessor every consumption path must go
// through; it fails fast with ErrQuoteExpired instead of letting the network
// reject a stale transaction.
func (p *SwapPlan) EnsureFresh() error {
	if p.State() == PlanExpired {
		return fmt.Errorf("%w (assembled %s, expired %s)",
			ErrQuoteExpired, p.AssembledAt.Format(time.RFC3339), p.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// Legs returns the legs in their fixed execution order: main first, then
// reflection. The transaction builder must never reorder them.
func (p *SwapPlan) Legs() []*Leg {
	legs := make([]*Leg, 0, 2)
	if p.MainLeg != nil {
		legs = append(legs, p.MainLeg)
	}
	if p.ReflectionLeg != nil {
		legs = append(legs, p.ReflectionLeg)
	}
	return legs
}

// TotalAmount is the user's full input amount the plan was split from.
func (p *SwapPlan) TotalAmount() uint64 {
	return p.Split.Total()
}

func (p *SwapPlan) clock() func() time.Time {
	if p.now != nil {
		return p.now
	}
	return time.Now
}
