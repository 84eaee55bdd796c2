package raceswap

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscriminatorPinnedValues(t *testing.T) {
	cases := map[string]string{
		IxExecuteRaceswap:  "c163774098fe76bc",
		IxExecuteSwap:      "38b67cd79b8c9d66",
		IxInitializeConfig: "d07f1501c2bec446",
		IxUpdateConfig:     "1d9efcbf0a53db63",
	}
	for name, want := range cases {
		d := Discriminator(name)
		assert.Equal(t, want, hex.EncodeToString(d[:]), "discriminator for %q", name)
	}
}

func TestDiscriminatorDeterministic(t *testing.T) {
	first := Discriminator(IxExecuteSwap)
	second := Discriminator(IxExecuteSwap)
	assert.Equal(t, first, second)

	// A different name must never collide on the truncated digest.
	assert.NotEqual(t, Discriminator(IxExecuteRaceswap), Discriminator(IxExecuteSwap))
}

func TestVerifyDiscriminators(t *testing.T) {
	require.NoError(t, VerifyDiscriminators())
}
