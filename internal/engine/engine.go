// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raceswap-labs/raceswap-engine/internal/blockchain"
	"github.com/raceswap-labs/raceswap-engine/internal/config"
	"github.com/raceswap-labs/raceswap-engine/internal/jupiter"
	"github.com/raceswap-labs/raceswap-engine/internal/raceswap"
	"github.com/raceswap-labs/raceswap-engine/internal/swap"
	"github.com/raceswap-labs/raceswap-engine/internal/transaction"
	"github.com/raceswap-labs/raceswap-engine/internal/wallet"
)

// Engine drives one swap attempt end to end: validate, split, quote both
// legs, assemble, encode, build, submit, classify. One logical flow per
// attempt; the only internal concurrency is the two-leg quote fan-out.
type Engine struct {
	cfg     *config.Config
	version swap.ArchitectureVersion
	wallet  *wallet.Wallet
	chain   *blockchain.Client
	quotes  *jupiter.Client
	builder *transaction.Builder
	manager *transaction.Manager
	logger  *zap.Logger

	treasuryBps   uint16
	reflectionBps uint16
	dustPct       uint64
	quoteTimeout  time.Duration
}

func New(cfg *config.Config, w *wallet.Wallet, chain *blockchain.Client, quotes *jupiter.Client, logger *zap.Logger) (*Engine, error) {
	// The discriminator table is re-derived rather than shared with the
	// on-chain program; refuse to start if it drifted.
	if err := raceswap.VerifyDiscriminators(); err != nil {
		return nil, err
	}

	version, err := swap.ParseArchitectureVersion(cfg.Architecture)
	if err != nil {
		return nil, err
	}
	if err := swap.ValidateFeeRates(cfg.TreasuryFeeBps, cfg.ReflectionFeeBps); err != nil {
		return nil, err
	}

	txConfig := transaction.DefaultConfig()
	txConfig.MaxRetries = cfg.SendRetries
	txConfig.ConfirmationTime = time.Duration(cfg.ConfirmationTime) * time.Millisecond
	txConfig.PollInterval = time.Duration(cfg.PollInterval) * time.Millisecond
	txConfig.SimulateFirst = cfg.SimulateFirst
	txConfig.SkipPreflight = cfg.SkipPreflight

	return &Engine{
		cfg:           cfg,
		version:       version,
		wallet:        w,
		chain:         chain,
		quotes:        quotes,
		builder:       transaction.NewBuilder(chain, w, logger),
		manager:       transaction.NewManager(chain, logger, txConfig),
		logger:        logger.Named("engine"),
		treasuryBps:   cfg.TreasuryFeeBps,
		reflectionBps: cfg.ReflectionFeeBps,
		dustPct:       uint64(cfg.DustThresholdPct),
		quoteTimeout:  time.Duration(cfg.QuoteTimeout) * time.Millisecond,
	}, nil
}

// Execute runs a swap to confirmation. Deterministic plan failures
// (slippage, expiry) get exactly one rebuild with fresh quotes before
// surfacing; a rejected leftover balance gets one rebuild at the full
// held amount.
func (e *Engine) Execute(ctx context.Context, req swap.SwapRequest) (*transaction.Status, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount, err := e.effectiveAmount(ctx, req)
	if err != nil {
		return nil, err
	}

	status, err := e.attempt(ctx, req, amount)
	switch {
	case err == nil:
		return status, nil
	case errors.Is(err, swap.ErrLeftoverBalanceMismatch):
		held, balanceErr := e.heldBalance(ctx, req.InputMint)
		if balanceErr != nil {
			return nil, balanceErr
		}
		e.logger.Warn("residual balance rejected, rebuilding at full held amount",
			zap.Uint64("amount", amount),
			zap.Uint64("held", held),
			zap.Error(err))
		return e.attempt(ctx, req, held)
	case needsFreshPlan(err):
		e.logger.Warn("plan failed, rebuilding with fresh quotes", zap.Error(err))
		return e.attempt(ctx, req, amount)
	}
	return status, err
}

// effectiveAmount checks the held balance before any network submission and
// substitutes the full balance when the request would leave dust.
func (e *Engine) effectiveAmount(ctx context.Context, req swap.SwapRequest) (uint64, error) {
	held, err := e.heldBalance(ctx, req.InputMint)
	if err != nil {
		return 0, err
	}
	amount, err := resolveDust(req.Amount, held, e.dustPct)
	if err != nil {
		return 0, err
	}
	if amount != req.Amount {
		e.logger.Info("rounding amount up to full held balance",
			zap.Uint64("requested", req.Amount),
			zap.Uint64("held", held))
	}
	return amount, nil
}

// resolveDust rounds a near-total spend up to the full held balance. A
// partial conversion that leaves a small residual trips signing-wallet
// simulations, so anything at or above thresholdPct of the balance spends
// all of it.
func resolveDust(requested, held, thresholdPct uint64) (uint64, error) {
	if held < requested {
		return 0, fmt.Errorf("%w: held %d, requested %d", swap.ErrInsufficientBalance, held, requested)
	}
	if thresholdPct > 0 && requested >= mulPct(held, thresholdPct) {
		return held, nil
	}
	return requested, nil
}

func mulPct(amount, pct uint64) uint64 {
	hi, lo := bits.Mul64(amount, pct)
	quotient, _ := bits.Div64(hi, lo, 100)
	return quotient
}

func (e *Engine) heldBalance(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	if mint.Equals(solana.WrappedSol) {
		return e.chain.GetLamportBalance(ctx, e.wallet.PublicKey())
	}
	ata, err := e.wallet.ATA(mint)
	if err != nil {
		return 0, err
	}
	return e.chain.GetTokenBalance(ctx, ata)
}

func (e *Engine) attempt(ctx context.Context, req swap.SwapRequest, amount uint64) (*transaction.Status, error) {
	split, err := swap.SplitAmount(amount, e.treasuryBps, e.reflectionBps, req.DisableReflection)
	if err != nil {
		return nil, err
	}

	mainLeg, reflectionLeg, err := e.fetchLegs(ctx, req, split)
	if err != nil {
		return nil, err
	}

	assembler := swap.NewAssembler(swap.AssemblerConfig{
		Version:           e.version,
		User:              e.wallet.PublicKey(),
		Treasury:          raceswap.TreasuryWallet,
		AggregatorProgram: raceswap.JupiterProgramID,
	}, e.logger)

	var reflectionSwapLeg *swap.Leg
	if reflectionLeg != nil {
		reflectionSwapLeg = reflectionLeg.Leg
	}
	plan, err := assembler.Assemble(split, mainLeg.Leg, reflectionSwapLeg)
	if err != nil {
		return nil, err
	}

	composed, err := e.encode(plan, req)
	if err != nil {
		return nil, err
	}

	input := transaction.BuildInput{
		Plan:      plan,
		Composed:  composed,
		UnitPrice: e.cfg.ComputeUnitPrice,
	}
	input.Setup = append(input.Setup, mainLeg.SetupInstructions...)
	input.Cleanup = append(input.Cleanup, mainLeg.CleanupInstructions...)
	input.LookupTables = append(input.LookupTables, mainLeg.LookupTables...)
	if reflectionLeg != nil {
		input.Setup = append(input.Setup, reflectionLeg.SetupInstructions...)
		input.Cleanup = append(input.Cleanup, reflectionLeg.CleanupInstructions...)
		input.LookupTables = append(input.LookupTables, dedupeTables(input.LookupTables, reflectionLeg.LookupTables)...)
	}

	tx, err := e.builder.Build(ctx, input)
	if err != nil {
		return nil, err
	}
	return e.manager.SendAndConfirm(ctx, tx)
}

// fetchLegs quotes the main leg and, unless disabled, the reflection leg
// concurrently. The first hard failure wins while the other call is allowed
// to finish.
func (e *Engine) fetchLegs(ctx context.Context, req swap.SwapRequest, split swap.FeeSplit) (*jupiter.SwapLeg, *jupiter.SwapLeg, error) {
	perLegAccounts := e.perLegAccountBudget(split)

	if e.quoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.quoteTimeout)
		defer cancel()
	}

	// A plain group, not WithContext: a failed leg must not cancel its
	// sibling mid-flight. The first error still wins at the join.
	var mainLeg, reflectionLeg *jupiter.SwapLeg
	var g errgroup.Group

	g.Go(func() error {
		leg, err := e.quotes.FetchLeg(ctx, jupiter.LegParams{
			InputMint:     req.InputMint,
			OutputMint:    req.OutputMint,
			Amount:        split.Main,
			SlippageBps:   req.SlippageBps,
			User:          e.wallet.PublicKey(),
			MaxAccounts:   perLegAccounts,
			WrapUnwrapSol: true,
		})
		if err != nil {
			return fmt.Errorf("main leg: %w", err)
		}
		mainLeg = leg
		return nil
	})

	if split.Reflection > 0 {
		g.Go(func() error {
			leg, err := e.quotes.FetchLeg(ctx, jupiter.LegParams{
				InputMint:     req.InputMint,
				OutputMint:    req.ReflectionMint,
				Amount:        split.Reflection,
				SlippageBps:   req.SlippageBps,
				User:          e.wallet.PublicKey(),
				MaxAccounts:   perLegAccounts,
				WrapUnwrapSol: true,
			})
			if err != nil {
				return fmt.Errorf("reflection leg: %w", err)
			}
			reflectionLeg = leg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return mainLeg, reflectionLeg, nil
}

func (e *Engine) perLegAccountBudget(split swap.FeeSplit) int {
	legs := 1
	if split.Reflection > 0 {
		legs = 2
	}
	var ceiling int
	switch e.version {
	case swap.V1:
		ceiling = swap.DefaultMaxAccountsV1
	case swap.V2:
		ceiling = swap.DefaultMaxAccountsV2
	default:
		ceiling = swap.DefaultMaxAccountsV3
	}
	return ceiling / legs
}

func (e *Engine) encode(plan *swap.SwapPlan, req swap.SwapRequest) ([]solana.Instruction, error) {
	var v1Accounts *raceswap.V1Accounts
	if e.version == swap.V1 {
		accounts, err := e.buildV1Accounts(req)
		if err != nil {
			return nil, err
		}
		v1Accounts = accounts
	}
	encoder, err := raceswap.EncoderFor(e.version, v1Accounts)
	if err != nil {
		return nil, err
	}
	return encoder.Encode(plan)
}

// buildV1Accounts fills the embedded architecture's fixed account set. The
// program-owned vault and the treasury fee destination are ATAs of the swap
// authority and treasury wallet for the input mint.
func (e *Engine) buildV1Accounts(req swap.SwapRequest) (*raceswap.V1Accounts, error) {
	configAddr, _, err := raceswap.DeriveConfigAddress()
	if err != nil {
		return nil, err
	}
	authority, _, err := raceswap.DeriveSwapAuthority(configAddr)
	if err != nil {
		return nil, err
	}

	userInput, err := e.wallet.ATA(req.InputMint)
	if err != nil {
		return nil, err
	}
	mainDestination, err := e.wallet.ATA(req.OutputMint)
	if err != nil {
		return nil, err
	}
	reflectionDestination := mainDestination
	if !req.DisableReflection {
		reflectionDestination, err = e.wallet.ATA(req.ReflectionMint)
		if err != nil {
			return nil, err
		}
	}

	treasuryFee, _, err := solana.FindAssociatedTokenAddress(raceswap.TreasuryWallet, req.InputMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive treasury fee ATA: %w", err)
	}
	vault, _, err := solana.FindAssociatedTokenAddress(authority, req.InputMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive input vault ATA: %w", err)
	}

	return &raceswap.V1Accounts{
		Config:                    configAddr,
		User:                      e.wallet.PublicKey(),
		InputMint:                 req.InputMint,
		UserInput:                 userInput,
		UserMainDestination:       mainDestination,
		UserReflectionDestination: reflectionDestination,
		TreasuryWallet:            raceswap.TreasuryWallet,
		TreasuryFeeDestination:    treasuryFee,
		InputVault:                vault,
		InputTokenProgram:         solana.TokenProgramID,
	}, nil
}

// needsFreshPlan reports whether the failure invalidates the quotes rather
// than the request. These classes must never be resubmitted with the same
// minimum-output bounds.
func needsFreshPlan(err error) bool {
	return errors.Is(err, swap.ErrSlippageExceeded) || errors.Is(err, swap.ErrQuoteExpired)
}

func dedupeTables(existing, candidates []solana.PublicKey) []solana.PublicKey {
	var added []solana.PublicKey
	for _, candidate := range candidates {
		seen := false
		for _, table := range existing {
			if table.Equals(candidate) {
				seen = true
				break
			}
		}
		if !seen {
			added = append(added, candidate)
		}
	}
	return added
}
