package swap

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testKeys(n int) []solana.PublicKey {
	keys := make([]solana.PublicKey, n)
	for i := range keys {
		keys[i] = solana.NewWallet().PublicKey()
	}
	return keys
}

func testLeg(amountIn uint64, accounts []*solana.AccountMeta) *Leg {
	return &Leg{
		SourceMint:      solana.NewWallet().PublicKey(),
		DestinationMint: solana.NewWallet().PublicKey(),
		AmountIn:        amountIn,
		QuotedOut:       amountIn * 2,
		MinOut:          amountIn,
		ProgramID:       solana.NewWallet().PublicKey(),
		Accounts:        accounts,
		Data:            []byte{1, 2, 3},
		ExpireAt:        time.Now().Add(30 * time.Second),
	}
}

func metasFor(keys []solana.PublicKey, writable bool) []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, len(keys))
	for i, k := range keys {
		metas[i] = &solana.AccountMeta{PublicKey: k, IsWritable: writable}
	}
	return metas
}

func newTestAssembler(version ArchitectureVersion, maxAccounts int) *Assembler {
	return NewAssembler(AssemblerConfig{
		Version:           version,
		MaxAccounts:       maxAccounts,
		User:              solana.NewWallet().PublicKey(),
		Treasury:          solana.NewWallet().PublicKey(),
		AggregatorProgram: solana.NewWallet().PublicKey(),
	}, zap.NewNop())
}

func TestAssembleSingleLeg(t *testing.T) {
	a := newTestAssembler(V3, 0)
	split, err := SplitAmount(1_000_000, 20, 0, true)
	require.NoError(t, err)

	plan, err := a.Assemble(split, testLeg(split.Main, metasFor(testKeys(5), true)), nil)
	require.NoError(t, err)

	assert.Equal(t, PlanFresh, plan.State())
	assert.Len(t, plan.Accounts, 5)
	assert.Len(t, plan.Legs(), 1)
	assert.Nil(t, plan.ReflectionLeg)
	assert.Equal(t, uint64(1_000_000), plan.TotalAmount())
}

func TestAssembleDisabledReflectionHasNoReflectionAccounts(t *testing.T) {
	a := newTestAssembler(V3, 0)
	split, err := SplitAmount(1_000_000, 20, 100, true)
	require.NoError(t, err)
	require.Zero(t, split.Reflection)

	plan, err := a.Assemble(split, testLeg(split.Main, metasFor(testKeys(4), true)), nil)
	require.NoError(t, err)
	assert.Nil(t, plan.ReflectionLeg)
	assert.Zero(t, plan.Split.Reflection)
}

func TestAssembleDeduplicatesSharedAccounts(t *testing.T) {
	a := newTestAssembler(V3, 0)
	split, err := SplitAmount(1_000_000, 20, 100, false)
	require.NoError(t, err)

	shared := testKeys(3)
	mainOnly := testKeys(2)
	reflOnly := testKeys(2)

	mainLeg := testLeg(split.Main, metasFor(append(append([]solana.PublicKey{}, shared...), mainOnly...), false))
	reflLeg := testLeg(split.Reflection, metasFor(append(append([]solana.PublicKey{}, shared...), reflOnly...), true))

	plan, err := a.Assemble(split, mainLeg, reflLeg)
	require.NoError(t, err)

	assert.Len(t, plan.Accounts, 7, "3 shared + 2 + 2 after dedup")
	assert.Equal(t, 7, plan.DeclaredAccounts)

	// Writable in either leg means writable in the merged list.
	for _, key := range shared {
		for _, meta := range plan.Accounts {
			if meta.PublicKey.Equals(key) {
				assert.True(t, meta.IsWritable, "shared account must take the writable union")
			}
		}
	}
}

func TestAssembleV1CountsPerLegAccounts(t *testing.T) {
	a := newTestAssembler(V1, 0)
	split, err := SplitAmount(1_000_000, 20, 100, false)
	require.NoError(t, err)

	shared := testKeys(4)
	mainLeg := testLeg(split.Main, metasFor(shared, true))
	reflLeg := testLeg(split.Reflection, metasFor(shared, true))

	plan, err := a.Assemble(split, mainLeg, reflLeg)
	require.NoError(t, err)

	// The embedded layout replays accounts sequentially per leg, so the
	// declared count ignores deduplication.
	assert.Equal(t, 8, plan.DeclaredAccounts)
	assert.Len(t, plan.Accounts, 4)
}

func TestAssembleSignerConflictRejected(t *testing.T) {
	a := newTestAssembler(V3, 0)
	split, err := SplitAmount(1_000_000, 20, 100, false)
	require.NoError(t, err)

	contested := solana.NewWallet().PublicKey()
	mainLeg := testLeg(split.Main, []*solana.AccountMeta{
		{PublicKey: contested, IsSigner: true},
		{PublicKey: solana.NewWallet().PublicKey()},
	})
	reflLeg := testLeg(split.Reflection, []*solana.AccountMeta{
		{PublicKey: contested, IsSigner: false},
		{PublicKey: solana.NewWallet().PublicKey()},
	})

	_, err = a.Assemble(split, mainLeg, reflLeg)
	assert.ErrorIs(t, err, ErrSignerConflict)
}

func TestAssembleSignerConflictOnUserIsUnioned(t *testing.T) {
	a := newTestAssembler(V3, 0)
	split, err := SplitAmount(1_000_000, 20, 100, false)
	require.NoError(t, err)

	mainLeg := testLeg(split.Main, []*solana.AccountMeta{
		{PublicKey: a.cfg.User, IsSigner: true, IsWritable: true},
		{PublicKey: solana.NewWallet().PublicKey()},
	})
	reflLeg := testLeg(split.Reflection, []*solana.AccountMeta{
		{PublicKey: a.cfg.User, IsSigner: false, IsWritable: true},
		{PublicKey: solana.NewWallet().PublicKey()},
	})

	plan, err := a.Assemble(split, mainLeg, reflLeg)
	require.NoError(t, err)
	for _, meta := range plan.Accounts {
		if meta.PublicKey.Equals(a.cfg.User) {
			assert.True(t, meta.IsSigner, "the user's signer flag takes the union")
		}
	}
}

func TestAssemblePlanTooLarge(t *testing.T) {
	a := newTestAssembler(V2, 6)
	split, err := SplitAmount(1_000_000, 20, 0, true)
	require.NoError(t, err)

	_, err = a.Assemble(split, testLeg(split.Main, metasFor(testKeys(7), true)), nil)
	assert.ErrorIs(t, err, ErrPlanTooLarge)
}

func TestAssembleMismatchedLegAmount(t *testing.T) {
	a := newTestAssembler(V3, 0)
	split, err := SplitAmount(1_000_000, 20, 0, true)
	require.NoError(t, err)

	leg := testLeg(split.Main+1, metasFor(testKeys(3), true))
	_, err = a.Assemble(split, leg, nil)
	assert.Error(t, err)
}

func TestAssembleExpiryIsEarliestLeg(t *testing.T) {
	a := newTestAssembler(V3, 0)
	split, err := SplitAmount(1_000_000, 20, 100, false)
	require.NoError(t, err)

	sooner := time.Now().Add(5 * time.Second)
	later := time.Now().Add(60 * time.Second)

	mainLeg := testLeg(split.Main, metasFor(testKeys(3), true))
	mainLeg.ExpireAt = later
	reflLeg := testLeg(split.Reflection, metasFor(testKeys(3), true))
	reflLeg.ExpireAt = sooner

	plan, err := a.Assemble(split, mainLeg, reflLeg)
	require.NoError(t, err)
	assert.Equal(t, sooner, plan.ExpiresAt, "the plan is only as fresh as its stalest quote")
}
