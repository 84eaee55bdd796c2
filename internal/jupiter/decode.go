// internal/jupiter/decode.go
package jupiter

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ExtractedInstruction is one instruction recovered from a serialized
// aggregator transaction with fully resolved account metas.
type ExtractedInstruction struct {
	ProgramID solana.PublicKey
	Accounts  []*solana.AccountMeta
	Data      []byte
}

// ParseServerTransaction decodes a base64 serialized transaction as returned
// by the aggregator's swap endpoint.
func ParseServerTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize transaction: %w", err)
	}
	return tx, nil
}

// LookupTableKeys lists the address tables a compiled message loads from, in
// message order.
func LookupTableKeys(msg *solana.Message) []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(msg.AddressTableLookups))
	for _, lookup := range msg.AddressTableLookups {
		keys = append(keys, lookup.AccountKey)
	}
	return keys
}

// ExtractInstructions resolves every compiled instruction of a (possibly
// versioned) transaction back into program, account metas, and data.
//
// Compiled transactions do not carry per-account flags forward. Each
// compiled index is resolved against the partition the message header
// implies: static keys split into signer/non-signer and writable/readonly
// ranges, then lookup-table loads with writable entries before readonly
// ones. Position in the combined list is the only source of truth for the
// flags.
func ExtractInstructions(tx *solana.Transaction, tables map[solana.PublicKey]solana.PublicKeySlice) ([]ExtractedInstruction, error) {
	accounts, err := resolveCompiledAccounts(&tx.Message, tables)
	if err != nil {
		return nil, err
	}

	out := make([]ExtractedInstruction, 0, len(tx.Message.Instructions))
	for _, compiled := range tx.Message.Instructions {
		if int(compiled.ProgramIDIndex) >= len(accounts) {
			return nil, fmt.Errorf("program index %d out of range", compiled.ProgramIDIndex)
		}
		metas := make([]*solana.AccountMeta, 0, len(compiled.Accounts))
		for _, idx := range compiled.Accounts {
			if int(idx) >= len(accounts) {
				return nil, fmt.Errorf("account index %d out of range", idx)
			}
			meta := *accounts[idx]
			metas = append(metas, &meta)
		}
		out = append(out, ExtractedInstruction{
			ProgramID: accounts[compiled.ProgramIDIndex].PublicKey,
			Accounts:  metas,
			Data:      compiled.Data,
		})
	}
	return out, nil
}

// DecodeServerTransaction decodes a base64 serialized transaction and
// recovers the instruction targeting program.
func DecodeServerTransaction(encoded string, program solana.PublicKey, tables map[solana.PublicKey]solana.PublicKeySlice) (*ExtractedInstruction, error) {
	tx, err := ParseServerTransaction(encoded)
	if err != nil {
		return nil, err
	}
	instructions, err := ExtractInstructions(tx, tables)
	if err != nil {
		return nil, err
	}
	for i := range instructions {
		if instructions[i].ProgramID.Equals(program) {
			return &instructions[i], nil
		}
	}
	return nil, fmt.Errorf("no instruction for program %s in serialized transaction", program)
}

// resolveCompiledAccounts rebuilds the full ordered account list of a
// (possibly versioned) message together with each account's privilege
// flags.
func resolveCompiledAccounts(msg *solana.Message, tables map[solana.PublicKey]solana.PublicKeySlice) ([]*solana.AccountMeta, error) {
	signers := int(msg.Header.NumRequiredSignatures)
	readonlySigned := int(msg.Header.NumReadonlySignedAccounts)
	readonlyUnsigned := int(msg.Header.NumReadonlyUnsignedAccounts)
	staticCount := len(msg.AccountKeys)

	accounts := make([]*solana.AccountMeta, 0, staticCount)
	for i, key := range msg.AccountKeys {
		isSigner := i < signers
		var isWritable bool
		if isSigner {
			isWritable = i < signers-readonlySigned
		} else {
			isWritable = i < staticCount-readonlyUnsigned
		}
		accounts = append(accounts, &solana.AccountMeta{
			PublicKey:  key,
			IsSigner:   isSigner,
			IsWritable: isWritable,
		})
	}

	// Writable loads from every table come first, then all readonly loads,
	// matching the on-wire combined-key order.
	for _, lookup := range msg.AddressTableLookups {
		table, ok := tables[lookup.AccountKey]
		if !ok {
			return nil, fmt.Errorf("missing lookup table %s", lookup.AccountKey)
		}
		for _, idx := range lookup.WritableIndexes {
			if int(idx) >= len(table) {
				return nil, fmt.Errorf("lookup index %d out of range for table %s", idx, lookup.AccountKey)
			}
			accounts = append(accounts, &solana.AccountMeta{
				PublicKey:  table[idx],
				IsWritable: true,
			})
		}
	}
	for _, lookup := range msg.AddressTableLookups {
		table, ok := tables[lookup.AccountKey]
		if !ok {
			return nil, fmt.Errorf("missing lookup table %s", lookup.AccountKey)
		}
		for _, idx := range lookup.ReadonlyIndexes {
			if int(idx) >= len(table) {
				return nil, fmt.Errorf("lookup index %d out of range for table %s", idx, lookup.AccountKey)
			}
			accounts = append(accounts, &solana.AccountMeta{
				PublicKey: table[idx],
			})
		}
	}

	return accounts, nil
}
