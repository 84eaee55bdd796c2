// internal/transaction/monitor.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/raceswap-labs/raceswap-engine/internal/blockchain"
)

// Monitor polls for confirmation with a bounded retry budget; it never polls
// past the configured confirmation window.
type Monitor struct {
	client *blockchain.Client
	logger *zap.Logger
	config Config
}

func NewMonitor(client *blockchain.Client, logger *zap.Logger, config Config) *Monitor {
	if config.MinConfirmations == 0 {
		config.MinConfirmations = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	return &Monitor{
		client: client,
		logger: logger.Named("tx-monitor"),
		config: config,
	}
}

func (m *Monitor) checkConfirmation(ctx context.Context, signature solana.Signature) (bool, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return false, fmt.Errorf("failed to get signature status: %w", err)
	}
	if len(response.Value) == 0 || response.Value[0] == nil {
		return false, nil
	}
	status := response.Value[0]
	if status.Confirmations != nil && *status.Confirmations >= uint64(m.config.MinConfirmations) {
		return true, nil
	}
	return status.ConfirmationStatus == rpc.ConfirmationStatusFinalized, nil
}

// GetTransactionStatus snapshots the current confirmation state.
func (m *Monitor) GetTransactionStatus(ctx context.Context, signature solana.Signature) (*Status, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return &Status{
			Signature: signature.String(),
			Status:    "pending",
			Timestamp: time.Now(),
		}, nil
	}

	status := response.Value[0]
	txStatus := &Status{
		Signature: signature.String(),
		Timestamp: time.Now(),
		Slot:      status.Slot,
	}
	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		txStatus.Status = "finalized"
	case rpc.ConfirmationStatusConfirmed:
		txStatus.Status = "confirmed"
	default:
		txStatus.Status = "pending"
	}

	if status.Err != nil {
		txStatus.Error = fmt.Sprintf("%v", status.Err)
		txStatus.Status = "failed"
	}

	return txStatus, nil
}

// AwaitConfirmation polls until the signature confirms, the window elapses,
// or the context is cancelled.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature) (*Status, error) {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	deadline := time.After(m.config.ConfirmationTime)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, ErrConfirmationTimeout
		case <-ticker.C:
			confirmed, err := m.checkConfirmation(ctx, signature)
			if err != nil {
				m.logger.Warn("confirmation check failed", zap.Error(err))
				continue
			}
			if confirmed {
				return m.GetTransactionStatus(ctx, signature)
			}
		}
	}
}
