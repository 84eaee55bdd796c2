// internal/transaction/manager.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/raceswap-labs/raceswap-engine/internal/blockchain"
	"github.com/raceswap-labs/raceswap-engine/internal/raceswap"
)

// Manager submits signed transactions and drives them to confirmation.
// Failures are run through the error analyzer so callers see domain
// errors instead of raw RPC payloads.
type Manager struct {
	client   *blockchain.Client
	monitor  *Monitor
	analyzer *blockchain.ErrorAnalyzer
	logger   *zap.Logger
	config   Config
	metrics  *Metrics
}

func NewManager(client *blockchain.Client, logger *zap.Logger, config Config) *Manager {
	return &Manager{
		client:   client,
		monitor:  NewMonitor(client, logger, config),
		analyzer: blockchain.NewErrorAnalyzer(logger),
		logger:   logger.Named("tx-manager"),
		config:   config,
		metrics:  NewMetrics(nil),
	}
}

// SendAndConfirm simulates (when configured), submits with bounded retries,
// then waits for the confirmation window.
func (m *Manager) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (*Status, error) {
	start := time.Now()
	defer m.metrics.TrackTransaction(start)

	if m.config.SimulateFirst {
		if err := m.simulate(ctx, tx); err != nil {
			m.metrics.failureCounter.Inc()
			return nil, err
		}
	}

	signature, err := m.sendWithRetry(ctx, tx)
	if err != nil {
		m.metrics.failureCounter.Inc()
		return nil, err
	}

	m.logger.Info("transaction submitted",
		zap.String("signature", signature.String()))

	status, err := m.monitor.AwaitConfirmation(ctx, signature)
	if err != nil {
		m.metrics.failureCounter.Inc()
		return nil, fmt.Errorf("transaction %s not confirmed: %w", signature, err)
	}

	// Signature statuses carry no program logs; a second fetch recovers
	// them for failure classification and event extraction.
	if logs, logErr := m.client.GetTransactionLogs(ctx, signature); logErr == nil {
		status.Logs = logs
	} else {
		m.logger.Warn("could not fetch transaction logs",
			zap.String("signature", signature.String()),
			zap.Error(logErr))
	}

	if status.Error != "" {
		m.metrics.failureCounter.Inc()
		return status, m.analyzer.Classify(fmt.Errorf("transaction failed on-chain: %s", status.Error), status.Logs)
	}

	if event, evErr := raceswap.ParseSwapExecuted(status.Logs); evErr != nil {
		m.logger.Warn("malformed swap event in logs", zap.Error(evErr))
	} else if event != nil {
		status.Event = event
		m.logger.Info("swap executed",
			zap.Stringer("user", event.User),
			zap.Uint64("total_in", event.TotalIn),
			zap.Uint64("main_amount", event.MainAmount),
			zap.Uint64("reflection_amount", event.ReflectionAmount),
			zap.Uint64("treasury_amount", event.TreasuryAmount))
	}

	m.metrics.successCounter.Inc()
	m.logger.Info("transaction confirmed",
		zap.String("signature", status.Signature),
		zap.String("status", status.Status),
		zap.Uint64("slot", status.Slot),
		zap.Duration("elapsed", time.Since(start)))
	return status, nil
}

func (m *Manager) simulate(ctx context.Context, tx *solana.Transaction) error {
	result, err := m.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("simulation request failed: %w", err)
	}
	if result.Value != nil && result.Value.Err != nil {
		simErr := fmt.Errorf("simulation failed: %v", result.Value.Err)
		return m.analyzer.Classify(simErr, result.Value.Logs)
	}
	return nil
}

func (m *Manager) sendWithRetry(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	operation := func() (solana.Signature, error) {
		sig, err := m.client.SendTransaction(ctx, tx, m.config.SkipPreflight)
		if err != nil {
			classified := m.analyzer.Classify(err, nil)
			if !blockchain.IsRetryable(classified) {
				return solana.Signature{}, backoff.Permanent(classified)
			}
			m.logger.Warn("send failed, will retry", zap.Error(err))
			return solana.Signature{}, classified
		}
		return sig, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = m.config.RetryDelay

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(m.config.MaxRetries)))
}
