// internal/computebudget/computebudget.go
package computebudget

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var ProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

const (
	RequestUnitsDeprecated uint8 = 0
	RequestHeapFrame       uint8 = 1
	SetComputeUnitLimit    uint8 = 2
	SetComputeUnitPrice    uint8 = 3
)

// Composed two-leg swaps burn far more compute than a single conversion.
const (
	DefaultUnits     uint32 = 400_000
	TwoLegSwapUnits  uint32 = 800_000
	SingleLegUnits   uint32 = 400_000
	DefaultUnitPrice uint64 = 1_000 // micro-lamports per unit
)

type SetComputeUnitLimitInstruction struct {
	Units uint32
}

type SetComputeUnitPriceInstruction struct {
	MicroLamports uint64
}

// Config selects the compute budget attached in front of the composed swap.
type Config struct {
	Units     uint32
	UnitPrice uint64
}

func NewDefaultConfig() Config {
	return Config{
		Units:     DefaultUnits,
		UnitPrice: DefaultUnitPrice,
	}
}

// NewSwapConfig picks a unit budget sized to the number of legs.
func NewSwapConfig(legs int, unitPrice uint64) Config {
	units := SingleLegUnits
	if legs > 1 {
		units = TwoLegSwapUnits
	}
	if unitPrice == 0 {
		unitPrice = DefaultUnitPrice
	}
	return Config{Units: units, UnitPrice: unitPrice}
}

// BuildInstructions produces the unit-limit and unit-price instructions that
// lead every composed transaction.
func BuildInstructions(config Config) ([]solana.Instruction, error) {
	if config.Units == 0 {
		config = NewDefaultConfig()
	}

	var instructions []solana.Instruction

	limitInstruction, err := (&SetComputeUnitLimitInstruction{Units: config.Units}).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build compute unit limit instruction: %w", err)
	}
	instructions = append(instructions, limitInstruction)

	if config.UnitPrice > 0 {
		priceInstruction, err := (&SetComputeUnitPriceInstruction{MicroLamports: config.UnitPrice}).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build compute unit price instruction: %w", err)
		}
		instructions = append(instructions, priceInstruction)
	}

	return instructions, nil
}

func (instr *SetComputeUnitLimitInstruction) Build() (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, SetComputeUnitLimit); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, instr.Units); err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{}, buf.Bytes()), nil
}

func (instr *SetComputeUnitPriceInstruction) Build() (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, SetComputeUnitPrice); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, instr.MicroLamports); err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{}, buf.Bytes()), nil
}
