// internal/raceswap/encoder_v1.go
package raceswap

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/raceswap-labs/raceswap-engine/internal/swap"
)

// v1Encoder implements the embedded-payload architecture: each leg rides as
// an opaque sub-instruction inside the composed instruction's arguments, and
// every leg account is re-flagged non-signer because a program-derived
// authority signs in place of the user on-chain.
type v1Encoder struct {
	accounts *V1Accounts
}

func (e *v1Encoder) Encode(plan *swap.SwapPlan) ([]solana.Instruction, error) {
	authority, _, err := DeriveSwapAuthority(e.accounts.Config)
	if err != nil {
		return nil, fmt.Errorf("derive swap authority: %w", err)
	}
	// The aggregator instruction names the transfer authority it expects; if
	// the derived authority never made it into the passed-through accounts
	// the CPI fails on-chain with no useful diagnostics. This was the
	// dominant failure class of the embedded layout, so it is checked here.
	for _, leg := range plan.Legs() {
		if !containsAccount(leg.Accounts, authority) {
			return nil, fmt.Errorf("%w: authority %s", swap.ErrAuthorityNotPassed, authority)
		}
	}

	buf, enc := newInstructionBuffer(IxExecuteRaceswap)

	var reflectionMint solana.PublicKey
	if plan.ReflectionLeg != nil {
		reflectionMint = plan.ReflectionLeg.DestinationMint
	}
	for _, key := range []solana.PublicKey{e.accounts.InputMint, plan.MainLeg.DestinationMint, reflectionMint} {
		if err := enc.WriteBytes(key.Bytes(), false); err != nil {
			return nil, err
		}
	}
	if err := writeV1Header(enc, plan); err != nil {
		return nil, err
	}
	if err := writeEmbeddedLeg(enc, plan.MainLeg); err != nil {
		return nil, err
	}
	if plan.ReflectionLeg != nil {
		if err := enc.WriteOption(true); err != nil {
			return nil, err
		}
		if err := writeEmbeddedPayload(enc, plan.ReflectionLeg); err != nil {
			return nil, err
		}
	} else if err := enc.WriteOption(false); err != nil {
		return nil, err
	}

	metas := e.accounts.Metas()
	for _, leg := range plan.Legs() {
		for _, acc := range leg.Accounts {
			metas = append(metas, &solana.AccountMeta{
				PublicKey:  acc.PublicKey,
				IsSigner:   false,
				IsWritable: acc.IsWritable,
			})
		}
	}

	return []solana.Instruction{solana.NewInstruction(ProgramID, metas, buf.Bytes())}, nil
}

// writeV1Header emits the shared amount/bound fields of ExecuteRaceswapParams.
func writeV1Header(enc *bin.Encoder, plan *swap.SwapPlan) error {
	if err := writeUint64(enc, plan.TotalAmount()); err != nil {
		return err
	}
	if err := writeUint64(enc, plan.MainLeg.MinOut); err != nil {
		return err
	}
	var minReflection uint64
	if plan.ReflectionLeg != nil {
		minReflection = plan.ReflectionLeg.MinOut
	}
	if err := writeUint64(enc, minReflection); err != nil {
		return err
	}
	return enc.WriteBool(plan.ReflectionLeg == nil)
}

func writeEmbeddedLeg(enc *bin.Encoder, leg *swap.Leg) error {
	if err := enc.WriteOption(true); err != nil {
		return err
	}
	return writeEmbeddedPayload(enc, leg)
}

// writeEmbeddedPayload serializes one leg as the program's opaque
// sub-instruction: a 2-byte account count, the raw aggregator bytes with a
// 4-byte length, then per-account writable and signer flag vectors.
func writeEmbeddedPayload(enc *bin.Encoder, leg *swap.Leg) error {
	if err := enc.WriteUint16(uint16(len(leg.Accounts)), binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteBytes(leg.Data, true); err != nil {
		return err
	}
	for _, pick := range []func(*solana.AccountMeta) bool{
		func(a *solana.AccountMeta) bool { return a.IsWritable },
		func(a *solana.AccountMeta) bool { return a.IsSigner },
	} {
		if err := enc.WriteUint32(uint32(len(leg.Accounts)), binary.LittleEndian); err != nil {
			return err
		}
		for _, acc := range leg.Accounts {
			if err := enc.WriteBool(pick(acc)); err != nil {
				return err
			}
		}
	}
	return nil
}

func containsAccount(accounts []*solana.AccountMeta, key solana.PublicKey) bool {
	for _, acc := range accounts {
		if acc.PublicKey.Equals(key) {
			return true
		}
	}
	return false
}
