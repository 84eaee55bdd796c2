// internal/swap/feesplit.go
package swap

import (
	"fmt"
	"math/bits"
)

const (
	// FeeDenominator is the basis-point denominator used by the on-chain
	// config (10_000 bps == 100%).
	FeeDenominator = 10_000

	// MaxFeeBps caps each individual rate, mirroring the program's
	// InvalidFeeConfig guard.
	MaxFeeBps = 1_000
)

// SplitAmount partitions total into treasury-fee, main-leg and reflection-leg
// amounts. Fee and reflection use floor division; the remainder goes to the
// main amount, so rounding always favors the leg the user directly cares
// about. When reflection is disabled its rate is zeroed before splitting, so
// downstream code never sees a nonzero reflection amount for a disabled leg.
func SplitAmount(total uint64, treasuryBps, reflectionBps uint16, disableReflection bool) (FeeSplit, error) {
	if total == 0 {
		return FeeSplit{}, ErrInvalidAmount
	}
	if err := ValidateFeeRates(treasuryBps, reflectionBps); err != nil {
		return FeeSplit{}, err
	}
	if disableReflection {
		reflectionBps = 0
	}

	fee := mulBps(total, treasuryBps)
	reflection := mulBps(total, reflectionBps)
	main := total - fee - reflection

	return FeeSplit{Fee: fee, Main: main, Reflection: reflection}, nil
}

// ValidateFeeRates applies the same bounds the on-chain config enforces:
// each rate at most 10%, combined strictly below 100%.
func ValidateFeeRates(treasuryBps, reflectionBps uint16) error {
	if treasuryBps > MaxFeeBps {
		return fmt.Errorf("treasury fee %d bps exceeds maximum %d", treasuryBps, MaxFeeBps)
	}
	if reflectionBps > MaxFeeBps {
		return fmt.Errorf("reflection share %d bps exceeds maximum %d", reflectionBps, MaxFeeBps)
	}
	if uint32(treasuryBps)+uint32(reflectionBps) >= FeeDenominator {
		return fmt.Errorf("combined fee rates %d bps must stay below %d", uint32(treasuryBps)+uint32(reflectionBps), FeeDenominator)
	}
	return nil
}

// MinAmountOut derives the minimum acceptable output for a quoted amount at
// the given slippage tolerance. The haircut is rounded up, so the bound is
// strictly below the quote whenever tolerance is nonzero.
func MinAmountOut(quotedOut uint64, slippageBps uint16) uint64 {
	if slippageBps == 0 || quotedOut == 0 {
		return quotedOut
	}
	haircut := ceilMulBps(quotedOut, slippageBps)
	if haircut >= quotedOut {
		return 0
	}
	return quotedOut - haircut
}

// mulBps computes floor(amount * bps / 10_000) without intermediate
// overflow. The quotient always fits: bps < 2^14 keeps it below amount.
func mulBps(amount uint64, bps uint16) uint64 {
	hi, lo := bits.Mul64(amount, uint64(bps))
	q, _ := bits.Div64(hi, lo, FeeDenominator)
	return q
}

func ceilMulBps(amount uint64, bps uint16) uint64 {
	hi, lo := bits.Mul64(amount, uint64(bps))
	q, rem := bits.Div64(hi, lo, FeeDenominator)
	if rem > 0 {
		q++
	}
	return q
}
