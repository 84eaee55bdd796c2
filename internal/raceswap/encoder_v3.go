// internal/raceswap/encoder_v3.go
package raceswap

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/raceswap-labs/raceswap-engine/internal/swap"
)

// v3Encoder keeps the passthrough authorization model and the one
// execute_swap instruction per leg, but carries only a (position-index,
// writable) pair per leg account; the identifiers live once in the plan's
// shared remaining-accounts list. Two bytes per account instead of
// thirty-four, which is what keeps two-leg transactions under the size
// ceiling.
type v3Encoder struct{}

func (e *v3Encoder) Encode(plan *swap.SwapPlan) ([]solana.Instruction, error) {
	if len(plan.Accounts) > 256 {
		return nil, fmt.Errorf("%w: %d accounts cannot be index-referenced", swap.ErrPlanTooLarge, len(plan.Accounts))
	}
	index := make(map[solana.PublicKey]uint8, len(plan.Accounts))
	for i, acc := range plan.Accounts {
		index[acc.PublicKey] = uint8(i)
	}

	legs := plan.Legs()
	instructions := make([]solana.Instruction, 0, len(legs))
	for _, leg := range legs {
		buf, enc := newInstructionBuffer(IxExecuteSwap)
		if err := writeUint64(enc, leg.AmountIn); err != nil {
			return nil, err
		}
		if err := writeUint64(enc, leg.MinOut); err != nil {
			return nil, err
		}
		if err := writeIndexedAccounts(enc, leg, index); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(leg.Data, true); err != nil {
			return nil, err
		}
		instructions = append(instructions, solana.NewInstruction(ProgramID, passthroughAccountList(plan), buf.Bytes()))
	}
	return instructions, nil
}

// writeIndexedAccounts emits the leg's account references: a u32 count, then
// per account its position in the shared list and the writable byte.
func writeIndexedAccounts(enc *bin.Encoder, leg *swap.Leg, index map[solana.PublicKey]uint8) error {
	if err := enc.WriteUint32(uint32(len(leg.Accounts)), binary.LittleEndian); err != nil {
		return err
	}
	for _, acc := range leg.Accounts {
		pos, ok := index[acc.PublicKey]
		if !ok {
			return fmt.Errorf("leg account %s missing from shared account list", acc.PublicKey)
		}
		if err := enc.WriteByte(pos); err != nil {
			return err
		}
		if err := enc.WriteBool(acc.IsWritable); err != nil {
			return err
		}
	}
	return nil
}
