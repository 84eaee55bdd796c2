// internal/blockchain/client.go
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Client is a thin adapter over the solana-go RPC client, scoped to the
// calls the swap engine needs.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

var ErrAccountNotFound = errors.New("account not found")

// IsAccountNotFoundError reports whether an RPC error means the account
// simply does not exist yet.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("rpc-client"),
	}
}

// RPC exposes the underlying client for components that poll it directly.
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

// GetRecentBlockhash returns the latest finalized blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// AccountExists checks whether an account is funded and initialized; used to
// decide if destination holding accounts need setup instructions.
func (c *Client) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	info, err := c.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("check account existence: %w", err)
	}
	return info != nil && info.Value != nil, nil
}

// GetLamportBalance returns the native balance of an account.
func (c *Client) GetLamportBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, address, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return result.Value, nil
}

// GetTokenBalance returns the raw token amount held by a token account.
// A missing account reads as zero, not as an error.
func (c *Client) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetTokenAccountBalance(ctx, tokenAccount, rpc.CommitmentConfirmed)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get token balance: %w", err)
	}
	if result == nil || result.Value == nil {
		return 0, nil
	}
	var amount uint64
	if _, err := fmt.Sscanf(result.Value.Amount, "%d", &amount); err != nil {
		return 0, fmt.Errorf("parse token amount %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       skipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// SimulateTransaction runs the transaction against current state and returns
// the simulation logs and error, if any.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error) {
	result, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		Commitment:             rpc.CommitmentConfirmed,
		ReplaceRecentBlockhash: true,
	})
	if err != nil {
		return nil, fmt.Errorf("simulate transaction: %w", err)
	}
	return result, nil
}

// GetSignatureStatuses returns confirmation state for a signature.
func (c *Client) GetSignatureStatuses(ctx context.Context, sig solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return c.rpc.GetSignatureStatuses(ctx, false, sig)
}

// GetTransactionLogs fetches the program logs of a landed transaction.
// Signature statuses carry no logs, so terminal-failure classification and
// event extraction both need this second fetch.
func (c *Client) GetTransactionLogs(ctx context.Context, sig solana.Signature) ([]string, error) {
	version := rpc.MaxSupportedTransactionVersion1
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch transaction %s: %w", sig, err)
	}
	if out == nil || out.Meta == nil {
		return nil, nil
	}
	return out.Meta.LogMessages, nil
}

// ResolveTables fetches several lookup tables in one pass, keyed by address.
func (c *Client) ResolveTables(ctx context.Context, keys []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	tables := make(map[solana.PublicKey]solana.PublicKeySlice, len(keys))
	for _, key := range keys {
		addresses, err := c.GetAddressLookupTable(ctx, key)
		if err != nil {
			return nil, err
		}
		tables[key] = addresses
	}
	return tables, nil
}

// GetAddressLookupTable fetches and validates one address-compression table.
func (c *Client) GetAddressLookupTable(ctx context.Context, address solana.PublicKey) (solana.PublicKeySlice, error) {
	state, err := addresslookuptable.GetAddressLookupTable(ctx, c.rpc, address)
	if err != nil {
		return nil, fmt.Errorf("fetch lookup table %s: %w", address, err)
	}
	if !state.IsActive() {
		return nil, fmt.Errorf("lookup table %s is deactivated", address)
	}
	return state.Addresses, nil
}
