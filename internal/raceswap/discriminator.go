// internal/raceswap/discriminator.go
package raceswap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Instruction names exposed by the composing program.
const (
	IxExecuteRaceswap  = "execute_raceswap" // embedded-payload architecture
	IxExecuteSwap      = "execute_swap"     // passthrough and index-referenced
	IxInitializeConfig = "initialize_config"
	IxUpdateConfig     = "update_config"
)

const discriminatorNamespace = "global"

// Discriminator derives the 8-byte instruction identifier: a SHA-256 digest
// over "global:<name>", truncated. The on-chain program derives the same
// value from its own source, so the two sides share no schema; a rename on
// either side is silent corruption. knownDiscriminators pins the expected
// values and VerifyDiscriminators recomputes them at startup.
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(discriminatorNamespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// knownDiscriminators is the single source of truth shared by the encoders
// and verification tooling.
var knownDiscriminators = map[string]string{
	IxExecuteRaceswap:  "c163774098fe76bc",
	IxExecuteSwap:      "38b67cd79b8c9d66",
	IxInitializeConfig: "d07f1501c2bec446",
	IxUpdateConfig:     "1d9efcbf0a53db63",
}

// VerifyDiscriminators recomputes every pinned discriminator and fails on the
// first mismatch. Call once at startup before any instruction is encoded.
func VerifyDiscriminators() error {
	for name, want := range knownDiscriminators {
		got := hex.EncodeToString(digestOf(name))
		if got != want {
			return fmt.Errorf("discriminator mismatch for %q: computed %s, pinned %s", name, got, want)
		}
	}
	return nil
}

func digestOf(name string) []byte {
	d := Discriminator(name)
	return d[:]
}
