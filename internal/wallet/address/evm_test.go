package address_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"
	"github/chapool/go-txpipeline/internal/wallet/address"
)

//nolint:dupword // standard BIP39 test mnemonic
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestDeriveAddressKnownVector(t *testing.T) {
	svc := address.NewService("m/44'/60'/0'/0/%d")
	seed := bip39.NewSeed(testMnemonic, "")

	addr, err := svc.DeriveAddress(t.Context(), seed, svc.GetBIP44Path(0), address.ChainTypeEVM)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addr)
}

func TestDerivePrivateKeyRejectsOtherChains(t *testing.T) {
	svc := address.NewService("")
	seed := bip39.NewSeed(testMnemonic, "")

	_, err := svc.DerivePrivateKey(t.Context(), seed, svc.GetBIP44Path(0), "utxo")
	require.Error(t, err)
}

func TestDefaultPathTemplate(t *testing.T) {
	svc := address.NewService("")
	assert.Equal(t, "m/44'/52752'/0'/0/3", svc.GetBIP44Path(3))
}

func TestParsePath(t *testing.T) {
	indices, err := address.ParsePath("m/44'/60'/0'/0/0")
	require.NoError(t, err)
	assert.Equal(t, []uint32{2147483692, 2147483708, 2147483648, 0, 0}, indices)

	for _, bad := range []string{"", "44'/60'", "m//0", "m/x", "m/4294967296"} {
		_, err := address.ParsePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3}
	address.Zero(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
}
