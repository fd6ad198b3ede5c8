package keystore

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/test"
	"github/chapool/go-txpipeline/internal/wallet/keystore"
)

func TestCreateImportsMnemonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	svc := keystore.NewService(keystore.LightCost)
	cfg := config.Signer{PathTemplate: "m/44'/60'/0'/0/%d"}

	var out bytes.Buffer
	require.NoError(t, create(t.Context(), &out, svc, cfg, path, "  "+test.Mnemonic+"\n", "correct horse battery"))

	assert.Contains(t, out.String(), "Address:  "+test.Address)
	assert.NotContains(t, out.String(), "Mnemonic:")

	mnemonic, err := svc.Unlock(t.Context(), path, "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, test.Mnemonic, mnemonic)

	// never overwrite an existing keystore
	require.Error(t, create(t.Context(), &out, svc, cfg, path, test.Mnemonic, "correct horse battery"))
}

func TestCreateGeneratesMnemonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	svc := keystore.NewService(keystore.LightCost)

	var out bytes.Buffer
	require.NoError(t, create(t.Context(), &out, svc, config.Signer{}, path, "", "correct horse battery"))

	line := strings.SplitN(out.String(), "\n", 2)[0]
	require.True(t, strings.HasPrefix(line, "Mnemonic: "))
	assert.Len(t, strings.Fields(strings.TrimPrefix(line, "Mnemonic: ")), 24)
}

func TestCreateRejectsInvalidMnemonic(t *testing.T) {
	svc := keystore.NewService(keystore.LightCost)

	var out bytes.Buffer
	require.Error(t, create(t.Context(), &out, svc, config.Signer{}, filepath.Join(t.TempDir(), "w.json"), "not a mnemonic", "correct horse battery"))
}
