package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromBase58(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := New(key.String())
	require.NoError(t, err)
	assert.True(t, w.PublicKey().Equals(key.PublicKey()))
	assert.Equal(t, key.PublicKey().String(), w.String())
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("not-base58!!")
	assert.Error(t, err)

	// Valid base58 but the wrong length.
	_, err = New("3mJr7AoUXx2Wqd")
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wallet.key")
	require.NoError(t, os.WriteFile(path, []byte("  "+key.String()+"\n"), 0600))

	w, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, w.PublicKey().Equals(key.PublicKey()))

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.key"))
	assert.Error(t, err)
}

func TestATACaching(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := New(key.String())
	require.NoError(t, err)

	mint := solana.NewWallet().PublicKey()
	first, err := w.ATA(mint)
	require.NoError(t, err)

	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey(), mint)
	require.NoError(t, err)
	assert.True(t, first.Equals(expected))

	second, err := w.ATA(mint)
	require.NoError(t, err)
	assert.True(t, second.Equals(first))

	require.NoError(t, w.PrecomputeATAs([]solana.PublicKey{mint, solana.NewWallet().PublicKey()}))
}

func TestSignTransaction(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := New(key.String())
	require.NoError(t, err)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			solana.NewInstruction(solana.SystemProgramID, []*solana.AccountMeta{
				{PublicKey: w.PublicKey(), IsSigner: true, IsWritable: true},
			}, []byte{2, 0, 0, 0}),
		},
		solana.Hash{},
		solana.TransactionPayer(w.PublicKey()),
	)
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}

func TestCreateATAIdempotentInstruction(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := New(key.String())
	require.NoError(t, err)

	mint := solana.NewWallet().PublicKey()
	ix, err := w.CreateATAIdempotentInstruction(mint)
	require.NoError(t, err)

	assert.True(t, ix.ProgramID().Equals(solana.SPLAssociatedTokenAccountProgramID))
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	metas := ix.Accounts()
	require.Len(t, metas, 6)
	assert.True(t, metas[0].PublicKey.Equals(w.PublicKey()))
	assert.True(t, metas[0].IsSigner)

	ata, err := w.ATA(mint)
	require.NoError(t, err)
	assert.True(t, metas[1].PublicKey.Equals(ata))
}
