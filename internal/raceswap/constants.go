// internal/raceswap/constants.go
package raceswap

import "github.com/gagliardetto/solana-go"

// Program and collaborator identifiers. The treasury and aggregator addresses
// are pinned on-chain by the composing program; changing one side without the
// other fails at execution, not at build.
var (
	// ProgramID is the composing on-chain program.
	ProgramID = solana.MustPublicKeyFromBase58("Cy63SzwBBCP5ywaByjUrLuUXQ4pXP9nR7e7kdQqp5uLk")

	// JupiterProgramID is the external liquidity-routing aggregator.
	JupiterProgramID = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")

	// TreasuryWallet receives the protocol fee.
	TreasuryWallet = solana.MustPublicKeyFromBase58("Exh4ZxgzA32hnLrQq3UnqxEXMRd4vifogMc6oXn7bP4L")
)

// PDA seeds used by the embedded-payload architecture.
var (
	ConfigSeed    = []byte("raceswap-config")
	AuthoritySeed = []byte("raceswap-authority")
)
