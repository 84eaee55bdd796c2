// internal/jupiter/client.go
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/raceswap-labs/raceswap-engine/internal/computebudget"
	"github.com/raceswap-labs/raceswap-engine/internal/swap"
)

const (
	defaultBaseURL = "https://quote-api.jup.ag/v6"
	rateLimit      = 600 // requests per minute

	// routeNotFoundCode is the aggregator's explicit no-route error code.
	routeNotFoundCode = "COULD_NOT_FIND_ANY_ROUTE"
)

// aggregatorProgramID identifies the swap instruction inside a serialized
// transaction returned by the swap endpoint.
var aggregatorProgramID = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")

// TableResolver fetches the contents of address lookup tables; the fallback
// decode path needs them to recover account flags from a compiled
// transaction.
type TableResolver interface {
	ResolveTables(ctx context.Context, keys []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error)
}

// Client talks to the aggregator's quote and swap-instructions endpoints.
// Two clients fetching the main and reflection legs of one plan may run
// concurrently; the client holds no per-request mutable state.
type Client struct {
	baseURL     string
	client      *http.Client
	logger      *zap.Logger
	rateLimiter *time.Ticker

	// tables resolves address lookup tables for the serialized-transaction
	// fallback; nil disables the fallback for versioned transactions.
	tables TableResolver

	// defaultExpiry is applied only when the server omits its own expiry.
	defaultExpiry time.Duration
}

func NewClient(baseURL string, defaultExpiry time.Duration, tables TableResolver, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if defaultExpiry <= 0 {
		defaultExpiry = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:        logger.Named("jupiter"),
		rateLimiter:   time.NewTicker(time.Minute / rateLimit),
		tables:        tables,
		defaultExpiry: defaultExpiry,
	}
}

// LegParams describes one conversion to price and route.
type LegParams struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64
	SlippageBps uint16
	User        solana.PublicKey

	// MaxAccounts asks the aggregator to keep the route under an account
	// budget; zero leaves it unconstrained.
	MaxAccounts int

	// WrapUnwrapSol controls automatic wrapped-SOL handling in setup and
	// cleanup instructions.
	WrapUnwrapSol bool
}

// SwapLeg is a fully routed leg plus the side instructions the aggregator
// wants around it.
type SwapLeg struct {
	Leg                 *swap.Leg
	SetupInstructions   []solana.Instruction
	CleanupInstructions []solana.Instruction
	LookupTables        []solana.PublicKey
}

// FetchLeg quotes the pair and fetches the routed swap instruction in two
// calls, returning a Leg bound to the server's quote expiry. Deployments
// that serve only the serialized swap endpoint are handled by decoding the
// returned transaction instead.
func (c *Client) FetchLeg(ctx context.Context, params LegParams) (*SwapLeg, error) {
	quote, err := c.Quote(ctx, params)
	if err != nil {
		return nil, err
	}
	instructions, err := c.swapInstructions(ctx, quote, params)
	if err != nil {
		leg, fallbackErr := c.legFromServerTransaction(ctx, quote, params)
		if fallbackErr != nil {
			c.logger.Debug("serialized-transaction fallback failed", zap.Error(fallbackErr))
			return nil, err
		}
		return leg, nil
	}
	return c.buildLeg(params, quote, instructions)
}

// Quote asks for the best route given amount and slippage in basis points.
func (c *Client) Quote(ctx context.Context, params LegParams) (*QuoteResponse, error) {
	values := url.Values{}
	values.Set("inputMint", params.InputMint.String())
	values.Set("outputMint", params.OutputMint.String())
	values.Set("amount", strconv.FormatUint(params.Amount, 10))
	values.Set("slippageBps", strconv.FormatUint(uint64(params.SlippageBps), 10))
	values.Set("swapMode", "ExactIn")
	if params.MaxAccounts > 0 {
		values.Set("maxAccounts", strconv.Itoa(params.MaxAccounts))
	}

	var quote QuoteResponse
	if err := c.doGet(ctx, c.baseURL+"/quote?"+values.Encode(), &quote); err != nil {
		return nil, err
	}

	c.logger.Debug("quote received",
		zap.String("input_mint", quote.InputMint),
		zap.String("output_mint", quote.OutputMint),
		zap.String("out_amount", quote.OutAmount),
		zap.String("price_impact_pct", quote.PriceImpactPct),
		zap.Int64("expire_at", quote.ExpireAt))

	return &quote, nil
}

func (c *Client) swapInstructions(ctx context.Context, quote *QuoteResponse, params LegParams) (*SwapInstructionsResponse, error) {
	payload := swapInstructionsRequest{
		UserPublicKey:            params.User.String(),
		WrapAndUnwrapSol:         params.WrapUnwrapSol,
		UseSharedAccounts:        true,
		AsLegacyTransaction:      false,
		SkipUserAccountsRpcCalls: true,
		QuoteResponse:            *quote,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal swap-instructions request: %w", err)
	}

	var response SwapInstructionsResponse
	if err := c.doPost(ctx, c.baseURL+"/swap-instructions", body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// legFromServerTransaction fetches the serialized transaction from the swap
// endpoint and recovers the leg by decoding it: the aggregator instruction
// becomes the leg, the instructions around it become setup and cleanup.
// Compute-budget directives are dropped since the builder sizes its own.
func (c *Client) legFromServerTransaction(ctx context.Context, quote *QuoteResponse, params LegParams) (*SwapLeg, error) {
	payload := swapInstructionsRequest{
		UserPublicKey:            params.User.String(),
		WrapAndUnwrapSol:         params.WrapUnwrapSol,
		UseSharedAccounts:        true,
		AsLegacyTransaction:      false,
		SkipUserAccountsRpcCalls: true,
		QuoteResponse:            *quote,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal swap request: %w", err)
	}
	var response swapResponse
	if err := c.doPost(ctx, c.baseURL+"/swap", body, &response); err != nil {
		return nil, err
	}

	tx, err := ParseServerTransaction(response.SwapTransaction)
	if err != nil {
		return nil, err
	}

	tables := map[solana.PublicKey]solana.PublicKeySlice{}
	if tableKeys := LookupTableKeys(&tx.Message); len(tableKeys) > 0 {
		if c.tables == nil {
			return nil, fmt.Errorf("serialized transaction loads %d lookup tables but no table resolver is configured", len(tableKeys))
		}
		tables, err = c.tables.ResolveTables(ctx, tableKeys)
		if err != nil {
			return nil, err
		}
	}

	extracted, err := ExtractInstructions(tx, tables)
	if err != nil {
		return nil, err
	}

	var setup, cleanup []solana.Instruction
	var swapIx *ExtractedInstruction
	for i := range extracted {
		ix := &extracted[i]
		switch {
		case ix.ProgramID.Equals(aggregatorProgramID):
			swapIx = ix
		case ix.ProgramID.Equals(computebudget.ProgramID):
		case swapIx == nil:
			setup = append(setup, solana.NewInstruction(ix.ProgramID, ix.Accounts, ix.Data))
		default:
			cleanup = append(cleanup, solana.NewInstruction(ix.ProgramID, ix.Accounts, ix.Data))
		}
	}
	if swapIx == nil {
		return nil, fmt.Errorf("no aggregator instruction in serialized transaction")
	}

	leg, err := c.newLeg(params, quote, swapIx.ProgramID, swapIx.Accounts, swapIx.Data)
	if err != nil {
		return nil, err
	}
	return &SwapLeg{
		Leg:                 leg,
		SetupInstructions:   setup,
		CleanupInstructions: cleanup,
		LookupTables:        LookupTableKeys(&tx.Message),
	}, nil
}

// newLeg binds a routed instruction to its quote: amounts, minimum-out bound
// with the slippage haircut applied, and the expiry the plan inherits.
func (c *Client) newLeg(params LegParams, quote *QuoteResponse, programID solana.PublicKey, accounts []*solana.AccountMeta, data []byte) (*swap.Leg, error) {
	quotedOut, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quoted out amount %q: %w", quote.OutAmount, err)
	}
	priceImpact, err := decimal.NewFromString(quote.PriceImpactPct)
	if err != nil {
		priceImpact = decimal.Zero
	}

	expiry := time.Now().Add(c.defaultExpiry)
	if quote.ExpireAt > 0 {
		expiry = time.Unix(quote.ExpireAt, 0)
	}

	return &swap.Leg{
		SourceMint:      params.InputMint,
		DestinationMint: params.OutputMint,
		AmountIn:        params.Amount,
		QuotedOut:       quotedOut,
		MinOut:          swap.MinAmountOut(quotedOut, params.SlippageBps),
		ProgramID:       programID,
		Accounts:        accounts,
		Data:            data,
		PriceImpact:     priceImpact,
		ExpireAt:        expiry,
	}, nil
}

func (c *Client) buildLeg(params LegParams, quote *QuoteResponse, resp *SwapInstructionsResponse) (*SwapLeg, error) {
	programID, accounts, data, err := decodePayload(resp.SwapInstruction)
	if err != nil {
		return nil, fmt.Errorf("decode swap instruction: %w", err)
	}
	leg, err := c.newLeg(params, quote, programID, accounts, data)
	if err != nil {
		return nil, err
	}

	setup, err := convertInstructions(resp.SetupInstructions)
	if err != nil {
		return nil, fmt.Errorf("convert setup instructions: %w", err)
	}
	var cleanup []solana.Instruction
	if resp.CleanupInstruction != nil {
		ix, err := convertInstruction(*resp.CleanupInstruction)
		if err != nil {
			return nil, fmt.Errorf("convert cleanup instruction: %w", err)
		}
		cleanup = append(cleanup, ix)
	}
	tables := make([]solana.PublicKey, 0, len(resp.AddressLookupTableAddresses))
	for _, addr := range resp.AddressLookupTableAddresses {
		key, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, fmt.Errorf("parse lookup table address %q: %w", addr, err)
		}
		tables = append(tables, key)
	}

	return &SwapLeg{
		Leg:                 leg,
		SetupInstructions:   setup,
		CleanupInstructions: cleanup,
		LookupTables:        tables,
	}, nil
}

func (c *Client) doGet(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, url string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-c.rateLimiter.C:
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.classifyHTTPError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classifyHTTPError maps aggregator failures onto the package's taxonomy:
// explicit no-route responses, explicit rejections, transient server errors.
func (c *Client) classifyHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case apiErr.ErrorCode == routeNotFoundCode:
		return fmt.Errorf("%w: %s", ErrQuoteUnavailable, apiErr.Error)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	case apiErr.Error != "":
		return fmt.Errorf("%w: %s", ErrQuoteRejected, apiErr.Error)
	default:
		return fmt.Errorf("%w: status %d, body %s", ErrQuoteRejected, resp.StatusCode, string(body))
	}
}

func convertInstructions(payloads []InstructionPayload) ([]solana.Instruction, error) {
	out := make([]solana.Instruction, 0, len(payloads))
	for _, p := range payloads {
		ix, err := convertInstruction(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}

func convertInstruction(p InstructionPayload) (solana.Instruction, error) {
	programID, accounts, data, err := decodePayload(p)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// decodePayload parses the aggregator's JSON instruction rendering into its
// native parts. Flags are carried through verbatim; re-flagging is the
// encoder's business, not the client's.
func decodePayload(p InstructionPayload) (solana.PublicKey, []*solana.AccountMeta, []byte, error) {
	programID, err := solana.PublicKeyFromBase58(p.ProgramID)
	if err != nil {
		return solana.PublicKey{}, nil, nil, fmt.Errorf("parse program id %q: %w", p.ProgramID, err)
	}
	accounts := make([]*solana.AccountMeta, 0, len(p.Accounts))
	for _, acc := range p.Accounts {
		key, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return solana.PublicKey{}, nil, nil, fmt.Errorf("parse account %q: %w", acc.Pubkey, err)
		}
		accounts = append(accounts, &solana.AccountMeta{
			PublicKey:  key,
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		})
	}
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return solana.PublicKey{}, nil, nil, fmt.Errorf("decode instruction data: %w", err)
	}
	return programID, accounts, data, nil
}
