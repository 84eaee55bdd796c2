package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raceswap-labs/raceswap-engine/internal/jupiter"
	"github.com/raceswap-labs/raceswap-engine/internal/swap"
	"github.com/raceswap-labs/raceswap-engine/internal/wallet"
)

func TestResolveDustSubstitutesFullBalance(t *testing.T) {
	held := uint64(100_000_000)

	// 96% of the balance crosses the 95% threshold: spend everything.
	amount, err := resolveDust(96_000_000, held, 95)
	require.NoError(t, err)
	assert.Equal(t, held, amount)

	// Exactly at the threshold also rounds up.
	amount, err = resolveDust(95_000_000, held, 95)
	require.NoError(t, err)
	assert.Equal(t, held, amount)

	// Below the threshold the requested amount stands.
	amount, err = resolveDust(94_999_999, held, 95)
	require.NoError(t, err)
	assert.Equal(t, uint64(94_999_999), amount)
}

func TestResolveDustInsufficientBalance(t *testing.T) {
	_, err := resolveDust(101, 100, 95)
	assert.ErrorIs(t, err, swap.ErrInsufficientBalance)
}

func TestResolveDustDisabledThreshold(t *testing.T) {
	amount, err := resolveDust(99, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), amount, "a zero threshold disables substitution")
}

func TestNeedsFreshPlan(t *testing.T) {
	assert.True(t, needsFreshPlan(swap.ErrSlippageExceeded))
	assert.True(t, needsFreshPlan(swap.ErrQuoteExpired))
	assert.False(t, needsFreshPlan(swap.ErrInsufficientBalance))
	assert.False(t, needsFreshPlan(errors.New("network down")))
}

func TestFetchLegsFailedLegDoesNotCancelSibling(t *testing.T) {
	var reflectionCanceled, reflectionCompleted atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("amount") == "980000" { // main leg fails hard, immediately
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":     "Could not find any route",
				"errorCode": "COULD_NOT_FIND_ANY_ROUTE",
			})
			return
		}
		// Give the main-leg failure a head start before answering.
		time.Sleep(100 * time.Millisecond)
		if r.Context().Err() != nil {
			reflectionCanceled.Store(true)
			return
		}
		_ = json.NewEncoder(w).Encode(jupiter.QuoteResponse{
			OutAmount:      "40000",
			PriceImpactPct: "0",
			ExpireAt:       time.Now().Add(time.Minute).Unix(),
		})
	})
	mux.HandleFunc("/swap-instructions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jupiter.SwapInstructionsResponse{
			SwapInstruction: jupiter.InstructionPayload{
				ProgramID: solana.NewWallet().PublicKey().String(),
				Data:      base64.StdEncoding.EncodeToString([]byte{0x01}),
			},
		})
		reflectionCompleted.Store(true)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	w, err := wallet.New(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	e := &Engine{
		version: swap.V3,
		wallet:  w,
		quotes:  jupiter.NewClient(server.URL, 15*time.Second, nil, zap.NewNop()),
		logger:  zap.NewNop(),
	}

	req := swap.SwapRequest{
		InputMint:      solana.WrappedSol,
		OutputMint:     solana.NewWallet().PublicKey(),
		ReflectionMint: solana.NewWallet().PublicKey(),
		Amount:         1_000_000,
		SlippageBps:    50,
	}
	split := swap.FeeSplit{Fee: 2_000, Main: 980_000, Reflection: 18_000}

	_, _, err = e.fetchLegs(context.Background(), req, split)
	require.Error(t, err)
	assert.ErrorIs(t, err, jupiter.ErrQuoteUnavailable, "the main-leg failure wins the join")

	assert.False(t, reflectionCanceled.Load(), "the surviving leg must not see a canceled request")
	assert.True(t, reflectionCompleted.Load(), "the surviving leg runs to completion")
}

func TestPerLegAccountBudget(t *testing.T) {
	two := swap.FeeSplit{Main: 10, Reflection: 5}
	one := swap.FeeSplit{Main: 15}

	e := &Engine{version: swap.V3}
	assert.Equal(t, swap.DefaultMaxAccountsV3, e.perLegAccountBudget(one))
	assert.Equal(t, swap.DefaultMaxAccountsV3/2, e.perLegAccountBudget(two))

	e = &Engine{version: swap.V1}
	assert.Equal(t, swap.DefaultMaxAccountsV1/2, e.perLegAccountBudget(two))
}

func TestDedupeTables(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	c := solana.NewWallet().PublicKey()

	added := dedupeTables([]solana.PublicKey{a, b}, []solana.PublicKey{b, c})
	require.Len(t, added, 1)
	assert.True(t, added[0].Equals(c))
}
