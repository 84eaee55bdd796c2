// internal/swap/assembler.go
package swap

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Default account ceilings observed operationally: the embedded and
// passthrough layouts fail past the low thirties, the index-referenced layout
// shifts the limit to transaction size instead.
const (
	DefaultMaxAccountsV1 = 32
	DefaultMaxAccountsV2 = 40
	DefaultMaxAccountsV3 = 64
)

// AssemblerConfig fixes the deployment-level inputs of plan assembly.
type AssemblerConfig struct {
	Version ArchitectureVersion

	// MaxAccounts overrides the version's default ceiling when positive.
	MaxAccounts int

	User              solana.PublicKey
	Treasury          solana.PublicKey
	AggregatorProgram solana.PublicKey
}

// Assembler merges the fee split, the fetched legs and the composing
// program's fixed accounts into a SwapPlan.
type Assembler struct {
	cfg    AssemblerConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewAssembler(cfg AssemblerConfig, logger *zap.Logger) *Assembler {
	return &Assembler{
		cfg:    cfg,
		logger: logger.Named("assembler"),
		now:    time.Now,
	}
}

// Assemble validates the split/leg invariants, deduplicates accounts across
// legs and produces a fresh plan stamped with the earliest quote expiry.
func (a *Assembler) Assemble(split FeeSplit, mainLeg, reflectionLeg *Leg) (*SwapPlan, error) {
	if mainLeg == nil {
		return nil, fmt.Errorf("main leg is required")
	}
	if err := checkLeg("main", mainLeg, split.Main); err != nil {
		return nil, err
	}
	if reflectionLeg != nil {
		if split.Reflection == 0 {
			return nil, fmt.Errorf("reflection leg present but reflection amount is zero")
		}
		if err := checkLeg("reflection", reflectionLeg, split.Reflection); err != nil {
			return nil, err
		}
	} else if split.Reflection != 0 {
		return nil, fmt.Errorf("reflection amount %d has no leg to spend it", split.Reflection)
	}

	merged, err := a.mergeAccounts(mainLeg, reflectionLeg)
	if err != nil {
		return nil, err
	}

	declared := len(merged)
	if a.cfg.Version == V1 {
		// The embedded layout consumes leg accounts sequentially on-chain, so
		// duplicates across legs cannot be collapsed.
		declared = len(mainLeg.Accounts)
		if reflectionLeg != nil {
			declared += len(reflectionLeg.Accounts)
		}
	}
	if ceiling := a.maxAccounts(); declared > ceiling {
		return nil, fmt.Errorf("%w: %d accounts declared, ceiling %d for %s",
			ErrPlanTooLarge, declared, ceiling, a.cfg.Version)
	}

	expiry := mainLeg.ExpireAt
	if reflectionLeg != nil && reflectionLeg.ExpireAt.Before(expiry) {
		expiry = reflectionLeg.ExpireAt
	}

	plan := &SwapPlan{
		Version:          a.cfg.Version,
		User:             a.cfg.User,
		Split:            split,
		MainLeg:          mainLeg,
		ReflectionLeg:    reflectionLeg,
		Accounts:         merged,
		DeclaredAccounts: declared,
		ExpiresAt:        expiry,
		AssembledAt:      a.now(),
		now:              a.now,
	}

	a.logger.Debug("plan assembled",
		zap.String("version", a.cfg.Version.String()),
		zap.Uint64("total", split.Total()),
		zap.Uint64("fee", split.Fee),
		zap.Uint64("main", split.Main),
		zap.Uint64("reflection", split.Reflection),
		zap.Int("declared_accounts", declared),
		zap.Time("expires_at", expiry))

	return plan, nil
}

func (a *Assembler) maxAccounts() int {
	if a.cfg.MaxAccounts > 0 {
		return a.cfg.MaxAccounts
	}
	switch a.cfg.Version {
	case V1:
		return DefaultMaxAccountsV1
	case V2:
		return DefaultMaxAccountsV2
	default:
		return DefaultMaxAccountsV3
	}
}

// mergeAccounts deduplicates repeated accounts across legs. Writable flags
// take the union: downgrading a needed writable flag surfaces only as an
// on-chain authorization failure, never as a client error. Conflicting signer
// requirements on anything but the user are rejected outright.
func (a *Assembler) mergeAccounts(legs ...*Leg) ([]*solana.AccountMeta, error) {
	merged := make([]*solana.AccountMeta, 0, 24)
	index := make(map[solana.PublicKey]int, 24)

	for _, leg := range legs {
		if leg == nil {
			continue
		}
		for _, acc := range leg.Accounts {
			i, seen := index[acc.PublicKey]
			if !seen {
				index[acc.PublicKey] = len(merged)
				merged = append(merged, &solana.AccountMeta{
					PublicKey:  acc.PublicKey,
					IsSigner:   acc.IsSigner,
					IsWritable: acc.IsWritable,
				})
				continue
			}
			prev := merged[i]
			if prev.IsSigner != acc.IsSigner && !acc.PublicKey.Equals(a.cfg.User) {
				return nil, fmt.Errorf("%w: %s", ErrSignerConflict, acc.PublicKey)
			}
			prev.IsWritable = prev.IsWritable || acc.IsWritable
			prev.IsSigner = prev.IsSigner || acc.IsSigner
		}
	}
	return merged, nil
}

func checkLeg(name string, leg *Leg, amount uint64) error {
	if leg.AmountIn != amount {
		return fmt.Errorf("%s leg input %d does not match split amount %d", name, leg.AmountIn, amount)
	}
	if leg.MinOut > leg.QuotedOut {
		return fmt.Errorf("%s leg min-out %d exceeds quoted out %d", name, leg.MinOut, leg.QuotedOut)
	}
	if len(leg.Accounts) == 0 {
		return fmt.Errorf("%s leg carries no accounts", name)
	}
	if leg.ExpireAt.IsZero() {
		return fmt.Errorf("%s leg carries no quote expiry", name)
	}
	return nil
}
