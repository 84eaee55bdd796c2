package jupiter

import (
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeServerTransaction(t *testing.T) {
	payer := solana.NewWallet()
	aggregator := solana.NewWallet().PublicKey()
	writableAccount := solana.NewWallet().PublicKey()
	readonlyAccount := solana.NewWallet().PublicKey()

	ix := solana.NewInstruction(aggregator, []*solana.AccountMeta{
		{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true},
		{PublicKey: writableAccount, IsWritable: true},
		{PublicKey: readonlyAccount},
	}, []byte{0x0b, 0x0c})

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		solana.Hash{},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)

	extracted, err := DecodeServerTransaction(encoded, aggregator, nil)
	require.NoError(t, err)

	assert.True(t, extracted.ProgramID.Equals(aggregator))
	assert.Equal(t, []byte{0x0b, 0x0c}, extracted.Data)
	require.Len(t, extracted.Accounts, 3)

	byKey := map[solana.PublicKey]*solana.AccountMeta{}
	for _, meta := range extracted.Accounts {
		byKey[meta.PublicKey] = meta
	}
	assert.True(t, byKey[payer.PublicKey()].IsSigner)
	assert.True(t, byKey[payer.PublicKey()].IsWritable)
	assert.True(t, byKey[writableAccount].IsWritable)
	assert.False(t, byKey[writableAccount].IsSigner, "flags come from the header partition, not the original metas")
	assert.False(t, byKey[readonlyAccount].IsWritable)
}

func TestDecodeServerTransactionMissingProgram(t *testing.T) {
	payer := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			solana.NewInstruction(solana.SystemProgramID, []*solana.AccountMeta{
				{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true},
			}, []byte{0}),
		},
		solana.Hash{},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	_, err = DecodeServerTransaction(base64.StdEncoding.EncodeToString(raw), solana.NewWallet().PublicKey(), nil)
	assert.Error(t, err)
}

func TestResolveCompiledAccountsWithLookups(t *testing.T) {
	signer := solana.NewWallet().PublicKey()
	staticWritable := solana.NewWallet().PublicKey()
	staticReadonly := solana.NewWallet().PublicKey()
	table := solana.NewWallet().PublicKey()
	tableEntries := solana.PublicKeySlice{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	}

	msg := &solana.Message{
		Header: solana.MessageHeader{
			NumRequiredSignatures:       1,
			NumReadonlySignedAccounts:   0,
			NumReadonlyUnsignedAccounts: 1,
		},
		AccountKeys: []solana.PublicKey{signer, staticWritable, staticReadonly},
		AddressTableLookups: []solana.MessageAddressTableLookup{
			{
				AccountKey:      table,
				WritableIndexes: solana.Uint8SliceAsNum{2},
				ReadonlyIndexes: solana.Uint8SliceAsNum{0, 1},
			},
		},
	}

	accounts, err := resolveCompiledAccounts(msg, map[solana.PublicKey]solana.PublicKeySlice{table: tableEntries})
	require.NoError(t, err)
	require.Len(t, accounts, 6)

	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.True(t, accounts[1].IsWritable)
	assert.False(t, accounts[2].IsWritable, "trailing static account is readonly per header")

	// Writable loads precede readonly loads in the combined list.
	assert.True(t, accounts[3].PublicKey.Equals(tableEntries[2]))
	assert.True(t, accounts[3].IsWritable)
	assert.True(t, accounts[4].PublicKey.Equals(tableEntries[0]))
	assert.False(t, accounts[4].IsWritable)
	assert.True(t, accounts[5].PublicKey.Equals(tableEntries[1]))
}

func TestResolveCompiledAccountsMissingTable(t *testing.T) {
	msg := &solana.Message{
		AddressTableLookups: []solana.MessageAddressTableLookup{
			{AccountKey: solana.NewWallet().PublicKey(), WritableIndexes: solana.Uint8SliceAsNum{0}},
		},
	}
	_, err := resolveCompiledAccounts(msg, nil)
	assert.Error(t, err)
}
