// internal/transaction/builder.go
package transaction

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/raceswap-labs/raceswap-engine/internal/blockchain"
	"github.com/raceswap-labs/raceswap-engine/internal/computebudget"
	"github.com/raceswap-labs/raceswap-engine/internal/swap"
)

// Signer produces signatures for every required signer of a transaction.
type Signer interface {
	SignTransaction(tx *solana.Transaction) error
	PublicKey() solana.PublicKey
}

// BuildInput carries everything needed to compile one atomic swap
// transaction: the plan (for freshness and sizing), the composed program
// instructions in leg order, and the aggregator's surrounding instructions.
type BuildInput struct {
	Plan         *swap.SwapPlan
	Composed     []solana.Instruction
	Setup        []solana.Instruction
	Cleanup      []solana.Instruction
	LookupTables []solana.PublicKey
	UnitPrice    uint64
}

// Builder compiles a plan into a single signed transaction. Instruction
// order is fixed: compute budget, setup, the composed swap instructions
// (main leg before reflection), cleanup. The treasury transfer happens
// inside the composed instructions, so there is no separate fee instruction
// to order around.
type Builder struct {
	client   *blockchain.Client
	resolver *LookupResolver
	signer   Signer
	logger   *zap.Logger
}

func NewBuilder(client *blockchain.Client, signer Signer, logger *zap.Logger) *Builder {
	return &Builder{
		client:   client,
		resolver: NewLookupResolver(client, logger),
		signer:   signer,
		logger:   logger.Named("tx-builder"),
	}
}

// Build validates freshness, assembles the instruction list, fetches a
// blockhash, compiles against any lookup tables, and signs. A stale plan
// fails here before any network round trip.
func (b *Builder) Build(ctx context.Context, input BuildInput) (*solana.Transaction, error) {
	if input.Plan == nil {
		return nil, fmt.Errorf("%w: missing plan", ErrInvalidInstruction)
	}
	if len(input.Composed) == 0 {
		return nil, fmt.Errorf("%w: missing composed swap instructions", ErrInvalidInstruction)
	}
	if err := input.Plan.EnsureFresh(); err != nil {
		return nil, err
	}

	budget, err := computebudget.BuildInstructions(
		computebudget.NewSwapConfig(len(input.Plan.Legs()), input.UnitPrice))
	if err != nil {
		return nil, fmt.Errorf("failed to build compute budget instructions: %w", err)
	}

	instructions := make([]solana.Instruction, 0,
		len(budget)+len(input.Setup)+len(input.Composed)+len(input.Cleanup))
	instructions = append(instructions, budget...)
	instructions = append(instructions, input.Setup...)
	instructions = append(instructions, input.Composed...)
	instructions = append(instructions, input.Cleanup...)

	blockhash, err := b.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlockhash, err)
	}

	opts := []solana.TransactionOption{
		solana.TransactionPayer(b.signer.PublicKey()),
	}
	if len(input.LookupTables) > 0 {
		tables, err := b.resolver.Resolve(ctx, input.LookupTables)
		if err != nil {
			return nil, err
		}
		opts = append(opts, solana.TransactionAddressTables(tables))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile transaction: %w", err)
	}

	if err := b.signer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	b.logger.Debug("transaction built",
		zap.Int("instructions", len(instructions)),
		zap.Int("lookup_tables", len(input.LookupTables)),
		zap.Stringer("version", input.Plan.Version))
	return tx, nil
}
