// internal/raceswap/accounts.go
package raceswap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DeriveConfigAddress returns the program's config PDA.
func DeriveConfigAddress() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{ConfigSeed}, ProgramID)
}

// DeriveSwapAuthority returns the PDA that signs aggregator legs in the
// embedded-payload architecture.
func DeriveSwapAuthority(config solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{AuthoritySeed, config.Bytes()}, ProgramID)
}

// V1Accounts lists the embedded-payload instruction's named accounts in the
// exact order the program declares them.
type V1Accounts struct {
	Config                    solana.PublicKey
	User                      solana.PublicKey
	InputMint                 solana.PublicKey
	UserInput                 solana.PublicKey
	UserMainDestination       solana.PublicKey
	UserReflectionDestination solana.PublicKey
	TreasuryWallet            solana.PublicKey
	TreasuryFeeDestination    solana.PublicKey
	InputVault                solana.PublicKey
	InputTokenProgram         solana.PublicKey
}

// Validate rejects a partially filled account set before encoding.
func (a *V1Accounts) Validate() error {
	named := map[string]solana.PublicKey{
		"config":                      a.Config,
		"user":                        a.User,
		"input mint":                  a.InputMint,
		"user input":                  a.UserInput,
		"user main destination":       a.UserMainDestination,
		"user reflection destination": a.UserReflectionDestination,
		"treasury wallet":             a.TreasuryWallet,
		"treasury fee destination":    a.TreasuryFeeDestination,
		"input vault":                 a.InputVault,
		"input token program":         a.InputTokenProgram,
	}
	for name, key := range named {
		if key.IsZero() {
			return fmt.Errorf("v1 account %s is not set", name)
		}
	}
	return nil
}

// Metas returns the named accounts with the privilege flags the program
// expects, followed by the aggregator and system programs.
func (a *V1Accounts) Metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: a.Config, IsSigner: false, IsWritable: true},
		{PublicKey: a.User, IsSigner: true, IsWritable: true},
		{PublicKey: a.InputMint, IsSigner: false, IsWritable: false},
		{PublicKey: a.UserInput, IsSigner: false, IsWritable: true},
		{PublicKey: a.UserMainDestination, IsSigner: false, IsWritable: true},
		{PublicKey: a.UserReflectionDestination, IsSigner: false, IsWritable: true},
		{PublicKey: a.TreasuryWallet, IsSigner: false, IsWritable: true},
		{PublicKey: a.TreasuryFeeDestination, IsSigner: false, IsWritable: true},
		{PublicKey: a.InputVault, IsSigner: false, IsWritable: true},
		{PublicKey: a.InputTokenProgram, IsSigner: false, IsWritable: false},
		{PublicKey: JupiterProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}
}

// passthroughMetas returns the fixed account prefix shared by the
// passthrough and index-referenced instructions: authorizing signer, fee
// destination, aggregator program, system program.
func passthroughMetas(user solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: user, IsSigner: true, IsWritable: true},
		{PublicKey: TreasuryWallet, IsSigner: false, IsWritable: true},
		{PublicKey: JupiterProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}
}
