// internal/settlement/settlement.go
package settlement

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Wager is one participant's stake on an outcome.
type Wager struct {
	Participant solana.PublicKey
	Outcome     string
	Amount      uint64
}

// Calculator is the parimutuel settlement collaborator. The swap engine
// consumes its payout mapping verbatim; it never inspects or adjusts the
// amounts.
type Calculator interface {
	CalculateSettlement(wagers []Wager, resolvedOutcome string) (map[solana.PublicKey]uint64, error)
}

// PayoutTransfers turns a settlement mapping into system transfer
// instructions from the pool authority, one per participant with a nonzero
// payout. Ordering is unspecified by the calculator, so callers must not
// depend on it.
func PayoutTransfers(calc Calculator, authority solana.PublicKey, wagers []Wager, resolvedOutcome string) ([]solana.Instruction, error) {
	payouts, err := calc.CalculateSettlement(wagers, resolvedOutcome)
	if err != nil {
		return nil, fmt.Errorf("settlement calculation failed: %w", err)
	}

	instructions := make([]solana.Instruction, 0, len(payouts))
	for participant, amount := range payouts {
		if amount == 0 {
			continue
		}
		instructions = append(instructions, transferInstruction(authority, participant, amount))
	}
	return instructions, nil
}

// TotalPool sums wager amounts with decimal precision for reporting.
func TotalPool(wagers []Wager) decimal.Decimal {
	total := decimal.Zero
	for _, w := range wagers {
		total = total.Add(decimal.NewFromUint64(w.Amount))
	}
	return total
}

func transferInstruction(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	data := make([]byte, 12)
	data[0] = 2 // SystemProgram::Transfer
	for i := 0; i < 8; i++ {
		data[4+i] = byte(lamports >> (8 * i))
	}
	return solana.NewInstruction(
		solana.SystemProgramID,
		[]*solana.AccountMeta{
			{PublicKey: from, IsWritable: true, IsSigner: true},
			{PublicKey: to, IsWritable: true, IsSigner: false},
		},
		data,
	)
}
