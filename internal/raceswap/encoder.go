// internal/raceswap/encoder.go
package raceswap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/raceswap-labs/raceswap-engine/internal/swap"
)

// Encoder turns a SwapPlan into the composed program invocations. V1 packs
// both legs into one execute_raceswap instruction; V2 and V3 emit one
// execute_swap instruction per leg, main first, inside the same atomic
// transaction. The three architectures share nothing beyond the leading
// discriminator and the final byte-concatenation contract, so each is its
// own strategy.
type Encoder interface {
	// Encode produces the composed instructions in execution order:
	// discriminator, version-specific argument bytes, and the full outer
	// account list per instruction.
	Encode(plan *swap.SwapPlan) ([]solana.Instruction, error)
}

// EncoderFor selects the strategy for the configured architecture version.
// V1 additionally needs the named PDA/token accounts the embedded layout
// declares.
func EncoderFor(version swap.ArchitectureVersion, v1Accounts *V1Accounts) (Encoder, error) {
	switch version {
	case swap.V1:
		if v1Accounts == nil {
			return nil, fmt.Errorf("v1 encoder requires the named account set")
		}
		if err := v1Accounts.Validate(); err != nil {
			return nil, err
		}
		return &v1Encoder{accounts: v1Accounts}, nil
	case swap.V2:
		return &v2Encoder{}, nil
	case swap.V3:
		return &v3Encoder{}, nil
	}
	return nil, fmt.Errorf("no encoder for architecture version %s", version)
}

// newInstructionBuffer starts an argument buffer with the instruction's
// discriminator already written.
func newInstructionBuffer(name string) (*bytes.Buffer, *bin.Encoder) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	disc := Discriminator(name)
	_ = enc.WriteBytes(disc[:], false)
	return buf, enc
}

func writeUint64(enc *bin.Encoder, v uint64) error {
	return enc.WriteUint64(v, binary.LittleEndian)
}
