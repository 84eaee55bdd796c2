// internal/transaction/lookup.go
package transaction

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/raceswap-labs/raceswap-engine/internal/blockchain"
)

// LookupResolver fetches address lookup tables and caches them for the
// lifetime of the process. Table contents are append-only on-chain, so a
// cached copy can only be missing trailing addresses, never wrong ones.
type LookupResolver struct {
	client *blockchain.Client
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[solana.PublicKey]solana.PublicKeySlice
}

func NewLookupResolver(client *blockchain.Client, logger *zap.Logger) *LookupResolver {
	return &LookupResolver{
		client: client,
		logger: logger.Named("lookup-resolver"),
		cache:  make(map[solana.PublicKey]solana.PublicKeySlice),
	}
}

// Resolve returns the address table map required to compile a versioned
// transaction referencing the given tables.
func (r *LookupResolver) Resolve(ctx context.Context, tables []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	resolved := make(map[solana.PublicKey]solana.PublicKeySlice, len(tables))
	for _, table := range tables {
		addresses, err := r.lookup(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve lookup table %s: %w", table, err)
		}
		resolved[table] = addresses
	}
	return resolved, nil
}

func (r *LookupResolver) lookup(ctx context.Context, table solana.PublicKey) (solana.PublicKeySlice, error) {
	r.mu.RLock()
	cached, ok := r.cache[table]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	addresses, err := r.client.GetAddressLookupTable(ctx, table)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[table] = addresses
	r.mu.Unlock()

	r.logger.Debug("lookup table cached",
		zap.String("table", table.String()),
		zap.Int("addresses", len(addresses)))
	return addresses, nil
}
