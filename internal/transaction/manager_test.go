package transaction

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raceswap-labs/raceswap-engine/internal/blockchain"
	"github.com/raceswap-labs/raceswap-engine/internal/raceswap"
	"github.com/raceswap-labs/raceswap-engine/internal/swap"
)

// newRPCStub serves canned JSON-RPC results keyed by method name.
func newRPCStub(t *testing.T, results map[string]string) *blockchain.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     interface{} `json:"id"`
			Method string      `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, ok := results[req.Method]
		require.True(t, ok, "unexpected RPC method %s", req.Method)

		id, err := json.Marshal(req.ID)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(id) + `,"result":` + result + `}`))
	}))
	t.Cleanup(server.Close)
	return blockchain.NewClient(server.URL, zap.NewNop())
}

func fastConfig() Config {
	return Config{
		MaxRetries:       1,
		RetryDelay:       time.Millisecond,
		ConfirmationTime: 2 * time.Second,
		PollInterval:     5 * time.Millisecond,
		MinConfirmations: 1,
	}
}

func testSignature() solana.Signature {
	var raw [64]byte
	raw[0] = 7
	return solana.SignatureFromBytes(raw[:])
}

func signedNoopTransaction(t *testing.T) *solana.Transaction {
	t.Helper()
	payer := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{solana.NewInstruction(
			solana.MemoProgramID,
			[]*solana.AccountMeta{{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true}},
			[]byte("ok"),
		)},
		solana.Hash{1},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

// swapExecutedLogLine renders the program's accounting event the way the
// runtime logs it.
func swapExecutedLogLine(user solana.PublicKey) string {
	disc := raceswap.EventDiscriminator("SwapExecuted")
	payload := append([]byte{}, disc[:]...)
	payload = append(payload, user.Bytes()...)
	for i := 0; i < 3; i++ { // input, main output, reflection output mints
		payload = append(payload, make([]byte, 32)...)
	}
	for _, amount := range []uint64{1_000_000, 988_000, 10_000, 2_000} {
		payload = binary.LittleEndian.AppendUint64(payload, amount)
	}
	return "Program data: " + base64.StdEncoding.EncodeToString(payload)
}

func transactionResult(logs []string, txErr string) string {
	meta := map[string]interface{}{
		"err":         nil,
		"fee":         5000,
		"logMessages": logs,
	}
	if txErr != "" {
		meta["err"] = json.RawMessage(txErr)
	}
	out, _ := json.Marshal(map[string]interface{}{
		"slot":        120,
		"transaction": []interface{}{"AA==", "base64"},
		"meta":        meta,
	})
	return string(out)
}

func TestSendAndConfirmRecoversLogsAndEvent(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	logs := []string{
		"Program RcSwPv2simpLeV2pRogRamiD11111111111111111 invoke [1]",
		swapExecutedLogLine(user),
		"Program RcSwPv2simpLeV2pRogRamiD11111111111111111 success",
	}
	client := newRPCStub(t, map[string]string{
		"sendTransaction":      `"` + testSignature().String() + `"`,
		"getSignatureStatuses": `{"context":{"slot":120},"value":[{"slot":120,"confirmations":3,"err":null,"confirmationStatus":"confirmed"}]}`,
		"getTransaction":       transactionResult(logs, ""),
	})

	manager := NewManager(client, zap.NewNop(), fastConfig())
	status, err := manager.SendAndConfirm(context.Background(), signedNoopTransaction(t))
	require.NoError(t, err)
	require.NotNil(t, status)

	assert.Equal(t, "confirmed", status.Status)
	assert.Equal(t, logs, status.Logs, "confirmation carries the full program logs")
	require.NotNil(t, status.Event, "the accounting event is decoded from the logs")
	assert.True(t, status.Event.User.Equals(user))
	assert.Equal(t, uint64(1_000_000), status.Event.TotalIn)
	assert.Equal(t, uint64(988_000), status.Event.MainAmount)
	assert.Equal(t, uint64(10_000), status.Event.ReflectionAmount)
	assert.Equal(t, uint64(2_000), status.Event.TreasuryAmount)
}

func TestSendAndConfirmClassifiesOnChainFailureFromLogs(t *testing.T) {
	logs := []string{
		"Program JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4 invoke [2]",
		"Program log: AnchorError occurred. Error Code: SlippageToleranceExceeded. Error Number: 6001. Error Message: Slippage tolerance exceeded.",
		"Program JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4 failed: custom program error: 0x1771",
	}
	client := newRPCStub(t, map[string]string{
		"sendTransaction":      `"` + testSignature().String() + `"`,
		"getSignatureStatuses": `{"context":{"slot":120},"value":[{"slot":120,"confirmations":null,"err":{"InstructionError":[0,{"Custom":6001}]},"confirmationStatus":"finalized"}]}`,
		"getTransaction":       transactionResult(logs, `{"InstructionError":[0,{"Custom":6001}]}`),
	})

	manager := NewManager(client, zap.NewNop(), fastConfig())
	status, err := manager.SendAndConfirm(context.Background(), signedNoopTransaction(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, swap.ErrSlippageExceeded, "landed-but-failed outcomes classify from fetched logs")
	require.NotNil(t, status)
	assert.Equal(t, "failed", status.Status)
	assert.Equal(t, logs, status.Logs)
	assert.Nil(t, status.Event)
}
