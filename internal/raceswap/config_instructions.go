// internal/raceswap/config_instructions.go
package raceswap

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/raceswap-labs/raceswap-engine/internal/swap"
)

// ConfigParams mirrors the program's fee configuration account.
type ConfigParams struct {
	Authority      solana.PublicKey
	TreasuryWallet solana.PublicKey
	ReflectionBps  uint16
	TreasuryBps    uint16
}

// BuildInitializeConfigInstruction creates the one-time config account with
// the fee rates the splitter will mirror off-chain. Rates are validated with
// the same bounds the program enforces, so a bad deployment fails here
// instead of at execution.
func BuildInitializeConfigInstruction(params ConfigParams, payer solana.PublicKey) (solana.Instruction, error) {
	if err := swap.ValidateFeeRates(params.TreasuryBps, params.ReflectionBps); err != nil {
		return nil, err
	}
	config, _, err := DeriveConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}

	buf, enc := newInstructionBuffer(IxInitializeConfig)
	for _, key := range []solana.PublicKey{params.Authority, params.TreasuryWallet} {
		if err := enc.WriteBytes(key.Bytes(), false); err != nil {
			return nil, err
		}
	}
	if err := writeUint16Pair(enc, params.ReflectionBps, params.TreasuryBps); err != nil {
		return nil, err
	}

	metas := []*solana.AccountMeta{
		{PublicKey: config, IsSigner: false, IsWritable: true},
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, metas, buf.Bytes()), nil
}

// UpdateConfigParams carries optional field updates; nil means unchanged.
type UpdateConfigParams struct {
	NewAuthority   *solana.PublicKey
	TreasuryWallet *solana.PublicKey
	ReflectionBps  *uint16
	TreasuryBps    *uint16
}

// BuildUpdateConfigInstruction amends the config account. Only the current
// authority may sign it.
func BuildUpdateConfigInstruction(params UpdateConfigParams, authority solana.PublicKey) (solana.Instruction, error) {
	if params.ReflectionBps != nil && *params.ReflectionBps > swap.MaxFeeBps {
		return nil, fmt.Errorf("reflection share %d bps exceeds maximum %d", *params.ReflectionBps, swap.MaxFeeBps)
	}
	if params.TreasuryBps != nil && *params.TreasuryBps > swap.MaxFeeBps {
		return nil, fmt.Errorf("treasury fee %d bps exceeds maximum %d", *params.TreasuryBps, swap.MaxFeeBps)
	}
	config, _, err := DeriveConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}

	buf, enc := newInstructionBuffer(IxUpdateConfig)
	for _, key := range []*solana.PublicKey{params.NewAuthority, params.TreasuryWallet} {
		if err := enc.WriteOption(key != nil); err != nil {
			return nil, err
		}
		if key != nil {
			if err := enc.WriteBytes(key.Bytes(), false); err != nil {
				return nil, err
			}
		}
	}
	for _, v := range []*uint16{params.ReflectionBps, params.TreasuryBps} {
		if err := enc.WriteOption(v != nil); err != nil {
			return nil, err
		}
		if v != nil {
			if err := writeUint16Pair(enc, *v); err != nil {
				return nil, err
			}
		}
	}

	metas := []*solana.AccountMeta{
		{PublicKey: config, IsSigner: false, IsWritable: true},
		{PublicKey: authority, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, metas, buf.Bytes()), nil
}

func writeUint16Pair(enc *bin.Encoder, values ...uint16) error {
	for _, v := range values {
		if err := enc.WriteUint16(v, binary.LittleEndian); err != nil {
			return err
		}
	}
	return nil
}
