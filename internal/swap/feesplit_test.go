package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAmountConservation(t *testing.T) {
	cases := []struct {
		name          string
		total         uint64
		treasuryBps   uint16
		reflectionBps uint16
		disable       bool
	}{
		{"typical", 100_000_000, 20, 100, false},
		{"zero fees", 100_000_000, 0, 0, false},
		{"max fees", 100_000_000, 1000, 1000, false},
		{"tiny amount", 3, 20, 100, false},
		{"one unit", 1, 1000, 1000, false},
		{"reflection disabled", 100_000_000, 20, 100, true},
		{"odd remainder", 99_999_999, 33, 77, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split, err := SplitAmount(tc.total, tc.treasuryBps, tc.reflectionBps, tc.disable)
			require.NoError(t, err)
			assert.Equal(t, tc.total, split.Total(), "fee + main + reflection must equal total exactly")
			if tc.disable {
				assert.Zero(t, split.Reflection, "disabled reflection must carry a zero sub-amount")
			}
		})
	}
}

func TestSplitAmountScenario(t *testing.T) {
	// 100,000,000 at 20 bps treasury and 100 bps reflection.
	split, err := SplitAmount(100_000_000, 20, 100, false)
	require.NoError(t, err)

	assert.Equal(t, uint64(200_000), split.Fee)
	assert.Equal(t, uint64(1_000_000), split.Reflection)
	assert.Equal(t, uint64(98_800_000), split.Main, "remainder folds into main")
}

func TestSplitAmountRejectsZeroTotal(t *testing.T) {
	_, err := SplitAmount(0, 20, 100, false)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestValidateFeeRates(t *testing.T) {
	assert.NoError(t, ValidateFeeRates(0, 0))
	assert.NoError(t, ValidateFeeRates(MaxFeeBps, MaxFeeBps))
	assert.Error(t, ValidateFeeRates(MaxFeeBps+1, 0))
	assert.Error(t, ValidateFeeRates(0, MaxFeeBps+1))
}

func TestMinAmountOut(t *testing.T) {
	quoted := uint64(1_000_000)

	assert.Equal(t, quoted, MinAmountOut(quoted, 0), "zero slippage keeps the full quote")

	for _, bps := range []uint16{1, 10, 50, 100, 1000, 9999, 10000} {
		min := MinAmountOut(quoted, bps)
		assert.Less(t, min, quoted, "any nonzero tolerance must lower the bound (bps=%d)", bps)
	}

	// The haircut rounds up, so even a 1-unit quote at 1 bps drops.
	assert.Equal(t, uint64(0), MinAmountOut(1, 1))
	assert.Equal(t, uint64(0), MinAmountOut(quoted, 10000))
}

func TestMinAmountOutExactHaircut(t *testing.T) {
	// 50 bps of 1,000,000 is exactly 5,000.
	assert.Equal(t, uint64(995_000), MinAmountOut(1_000_000, 50))
	// 33 bps of 999,999 is 3,299.9967, rounded up to 3,300.
	assert.Equal(t, uint64(996_699), MinAmountOut(999_999, 33))
}
