// internal/blockchain/error_analyzer.go
package blockchain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"

	"github.com/raceswap-labs/raceswap-engine/internal/swap"
)

// AnchorError is a structured error recovered from program logs.
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// ErrorAnalyzer classifies on-chain failures into the engine's error set.
// On-chain outcomes are only knowable from returned error codes and log
// text; nothing here is assumed.
type ErrorAnalyzer struct {
	logger *zap.Logger
}

func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// Error-text markers per failure class. The aggregator reports slippage as
// its own error code (6001 / 0x1771); the composing program reports the
// per-leg bound violations by name.
var (
	slippageMarkers = []string{
		"SlippageToleranceExceeded",
		"ExceededSlippage",
		"0x1771",
		"MainBelowMinOut",
		"ReflectionBelowMinOut",
	}
	insufficientMarkers = []string{
		"insufficient lamports",
		"insufficient funds",
		"InsufficientFunds",
	}
	// Spending nearly the whole balance leaves a residual below the
	// rent-exempt minimum; wallet simulations and the runtime both reject
	// the transaction with rent wording. Recoverable by rounding the
	// request up to the full held balance.
	leftoverMarkers = []string{
		"insufficient funds for rent",
		"below rent-exempt minimum",
		"InsufficientFundsForRent",
	}
)

// Classify maps a submission or simulation failure onto the engine taxonomy,
// preserving the underlying error. Unrecognized failures come back unmapped.
func (ea *ErrorAnalyzer) Classify(err error, logs []string) error {
	if err == nil {
		return nil
	}

	text := err.Error()
	if rpcErr, ok := err.(*jsonrpc.RPCError); ok {
		logs = append(logs, extractLogs(rpcErr)...)
		text = rpcErr.Message
	}
	joined := text + "\n" + strings.Join(logs, "\n")

	if anchorErr := ea.findAnchorError(logs); anchorErr != nil {
		ea.logger.Warn("anchor error detected",
			zap.Int("code", anchorErr.Code),
			zap.String("name", anchorErr.Name),
			zap.String("message", anchorErr.Msg))
	}

	// Leftover markers subsume the generic insufficient-funds wording, so
	// they are checked first.
	switch {
	case containsAny(joined, slippageMarkers):
		return fmt.Errorf("%w: %v", swap.ErrSlippageExceeded, err)
	case containsAny(joined, leftoverMarkers):
		return fmt.Errorf("%w: %v", swap.ErrLeftoverBalanceMismatch, err)
	case containsAny(joined, insufficientMarkers):
		return fmt.Errorf("%w: %v", swap.ErrInsufficientBalance, err)
	default:
		return err
	}
}

// IsRetryable reports whether resubmitting the same transaction can
// succeed. Deterministic failures (bound violations, missing balance) will
// fail identically on every attempt and need a fresh plan instead.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, swap.ErrSlippageExceeded),
		errors.Is(err, swap.ErrInsufficientBalance),
		errors.Is(err, swap.ErrLeftoverBalanceMismatch):
		return false
	default:
		return true
	}
}

func (ea *ErrorAnalyzer) findAnchorError(logs []string) *AnchorError {
	for _, line := range logs {
		if strings.Contains(line, "AnchorError occurred") {
			parsed := parseAnchorErrorLog(line)
			return &parsed
		}
	}
	return nil
}

// parseAnchorErrorLog extracts the pieces of a log line shaped like:
// "Program log: AnchorError occurred. Error Code: MainBelowMinOut.
// Error Number: 6012. Error Message: Main amount below min."
func parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.Split(logStr, "Error Number:"); len(parts) > 1 {
		numParts := strings.Split(parts[1], ".")
		if len(numParts) > 0 {
			_, _ = fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
		}
	}
	if parts := strings.Split(logStr, "Error Code:"); len(parts) > 1 {
		nameParts := strings.Split(parts[1], ".")
		if len(nameParts) > 0 {
			result.Name = strings.TrimSpace(nameParts[0])
		}
	}
	if parts := strings.Split(logStr, "Error Message:"); len(parts) > 1 {
		result.Msg = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}
	return result
}

func extractLogs(rpcErr *jsonrpc.RPCError) []string {
	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return nil
	}
	rawLogs, ok := dataMap["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(rawLogs))
	for _, entry := range rawLogs {
		if s, ok := entry.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
