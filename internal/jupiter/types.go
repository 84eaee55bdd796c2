// internal/jupiter/types.go
package jupiter

// Wire types for the aggregator's v6 quote and swap-instructions endpoints.
// Amount fields arrive as decimal strings and stay strings here; parsing
// happens once, at leg construction.

type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int32           `json:"slippageBps"`
	PlatformFee          *PlatformFee    `json:"platformFee"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot"`
	// ExpireAt is the server-declared quote expiry (unix seconds). It is
	// propagated untouched; the engine never recomputes it because the
	// aggregator's pricing-refresh cadence is unknown.
	ExpireAt int64 `json:"expireAt,omitempty"`
}

type PlatformFee struct {
	Amount string `json:"amount"`
	FeeBps int32  `json:"feeBps"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int32    `json:"percent"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

type swapInstructionsRequest struct {
	UserPublicKey             string        `json:"userPublicKey"`
	WrapAndUnwrapSol          bool          `json:"wrapAndUnwrapSol"`
	UseSharedAccounts         bool          `json:"useSharedAccounts"`
	PrioritizationFeeLamports int           `json:"prioritizationFeeLamports"`
	AsLegacyTransaction       bool          `json:"asLegacyTransaction"`
	UseTokenLedger            bool          `json:"useTokenLedger"`
	SkipUserAccountsRpcCalls  bool          `json:"skipUserAccountsRpcCalls"`
	QuoteResponse             QuoteResponse `json:"quoteResponse"`
}

type SwapInstructionsResponse struct {
	TokenLedgerInstruction      *InstructionPayload  `json:"tokenLedgerInstruction"`
	ComputeBudgetInstructions   []InstructionPayload `json:"computeBudgetInstructions"`
	SetupInstructions           []InstructionPayload `json:"setupInstructions"`
	SwapInstruction             InstructionPayload   `json:"swapInstruction"`
	CleanupInstruction          *InstructionPayload  `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string             `json:"addressLookupTableAddresses"`
}

// InstructionPayload is the aggregator's JSON rendering of one instruction:
// program identifier, ordered accounts with flags, base64 opaque data.
type InstructionPayload struct {
	ProgramID string        `json:"programId"`
	Accounts  []AccountInfo `json:"accounts"`
	Data      string        `json:"data"`
}

type AccountInfo struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// swapResponse is the serialized-transaction rendering returned by the swap
// endpoint, used when swap-instructions is unavailable.
type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}
