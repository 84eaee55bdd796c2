// internal/raceswap/encoder_v2.go
package raceswap

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/raceswap-labs/raceswap-engine/internal/swap"
)

// v2Encoder implements the direct-passthrough architecture: the user's own
// signature authorizes each leg, so no opaque payload and no derived
// authority exist. Each leg becomes its own execute_swap instruction whose
// arguments are ExecuteSwapParams: amount, min_out, the leg's full account
// metadata, then the opaque aggregator bytes. Every aggregator account keeps
// its writable flag; the signer flag is forced false for everything but the
// user, who appears once as the top-level transaction signer.
type v2Encoder struct{}

func (e *v2Encoder) Encode(plan *swap.SwapPlan) ([]solana.Instruction, error) {
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
		if err := writePassthroughAccounts(enc, leg, plan.User); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(leg.Data, true); err != nil {
			return nil, err
		}
		instructions = append(instructions, solana.NewInstruction(ProgramID, passthroughAccountList(plan), buf.Bytes()))
	}
	return instructions, nil
}

// writePassthroughAccounts emits the leg's account metadata vector: a u32
// count, then per account the 32-byte key and signer/writable bytes.
func writePassthroughAccounts(enc *bin.Encoder, leg *swap.Leg, user solana.PublicKey) error {
	if err := enc.WriteUint32(uint32(len(leg.Accounts)), binary.LittleEndian); err != nil {
		return err
	}
	for _, acc := range leg.Accounts {
		if err := enc.WriteBytes(acc.PublicKey.Bytes(), false); err != nil {
			return err
		}
		if err := enc.WriteBool(acc.PublicKey.Equals(user)); err != nil {
			return err
		}
		if err := enc.WriteBool(acc.IsWritable); err != nil {
			return err
		}
	}
	return nil
}

// passthroughAccountList is the outer account list shared by V2 and V3: the
// fixed prefix, then the plan's deduplicated accounts with merged writable
// flags and signer privileges stripped from everything but the user. Both
// leg instructions carry the same list; message compilation collapses the
// duplicates.
func passthroughAccountList(plan *swap.SwapPlan) []*solana.AccountMeta {
	metas := passthroughMetas(plan.User)
	for _, acc := range plan.Accounts {
		metas = append(metas, &solana.AccountMeta{
			PublicKey:  acc.PublicKey,
			IsSigner:   acc.PublicKey.Equals(plan.User),
			IsWritable: acc.IsWritable,
		})
	}
	return metas
}
