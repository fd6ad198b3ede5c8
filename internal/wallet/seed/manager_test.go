package seed_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"
	"github/chapool/go-txpipeline/internal/wallet/seed"
)

//nolint:dupword // standard BIP39 test mnemonic
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestManagerLifecycle(t *testing.T) {
	m := seed.NewManager()
	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.GetSeed())

	require.NoError(t, m.Initialize("  "+testMnemonic+"\n", "TREZOR"))
	assert.True(t, m.IsInitialized())
	assert.Equal(t, bip39.NewSeed(testMnemonic, "TREZOR"), m.GetSeed())

	// callers get copies
	s := m.GetSeed()
	s[0] ^= 0xff
	assert.NotEqual(t, s, m.GetSeed())

	m.Clear()
	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.GetSeed())
}

func TestManagerRejectsInvalidMnemonic(t *testing.T) {
	m := seed.NewManager()

	err := m.Initialize("abandon abandon abandon", "")
	require.ErrorIs(t, err, seed.ErrInvalidMnemonic)
	assert.False(t, m.IsInitialized())
}

func TestNewMnemonic(t *testing.T) {
	mnemonic, err := seed.NewMnemonic()
	require.NoError(t, err)

	assert.Len(t, strings.Fields(mnemonic), 24)
	assert.True(t, bip39.IsMnemonicValid(mnemonic))
}
