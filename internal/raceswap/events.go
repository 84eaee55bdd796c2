// internal/raceswap/events.go
package raceswap

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// SwapExecutedEvent is the program's post-swap accounting record, emitted as
// a base64 "Program data:" log line.
type SwapExecutedEvent struct {
	User                 solana.PublicKey
	InputMint            solana.PublicKey
	MainOutputMint       solana.PublicKey
	ReflectionOutputMint solana.PublicKey
	TotalIn              uint64
	MainAmount           uint64
	ReflectionAmount     uint64
	TreasuryAmount       uint64
}

const programDataPrefix = "Program data: "

// swapExecutedDiscriminator is sha256("event:SwapExecuted")[:8].
var swapExecutedDiscriminator = []byte{0x96, 0xa6, 0x1a, 0xe1, 0x1c, 0x59, 0x26, 0x4f}

// ParseSwapExecuted scans transaction logs for the program's SwapExecuted
// event and decodes it. Returns nil when no event is present (for example a
// simulated or failed transaction).
func ParseSwapExecuted(logs []string) (*SwapExecutedEvent, error) {
	for _, line := range logs {
		idx := strings.Index(line, programDataPrefix)
		if idx < 0 {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(line[idx+len(programDataPrefix):]))
		if err != nil || len(raw) < 8 {
			continue
		}
		if !bytes.Equal(raw[:8], swapExecutedDiscriminator) {
			continue
		}
		return decodeSwapExecuted(raw[8:])
	}
	return nil, nil
}

func decodeSwapExecuted(data []byte) (*SwapExecutedEvent, error) {
	dec := bin.NewBorshDecoder(data)
	ev := &SwapExecutedEvent{}
	for _, dst := range []*solana.PublicKey{&ev.User, &ev.InputMint, &ev.MainOutputMint, &ev.ReflectionOutputMint} {
		raw, err := dec.ReadNBytes(32)
		if err != nil {
			return nil, fmt.Errorf("decode swap event key: %w", err)
		}
		*dst = solana.PublicKeyFromBytes(raw)
	}
	for _, dst := range []*uint64{&ev.TotalIn, &ev.MainAmount, &ev.ReflectionAmount, &ev.TreasuryAmount} {
		v, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("decode swap event amount: %w", err)
		}
		*dst = v
	}
	return ev, nil
}

// EventDiscriminator derives an Anchor event identifier; exposed so
// verification tooling can cross-check the pinned value.
func EventDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}
