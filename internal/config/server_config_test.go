package config_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/config"
)

func TestPrintServiceEnv(t *testing.T) {
	config := config.DefaultServiceConfigFromEnv()
	_, err := json.MarshalIndent(config, "", "  ")

	if err != nil {
		t.Fatal(err)
	}
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()

	assert.Equal(t, 30*time.Second, cfg.Pipeline.SignerTimeout)
	assert.Equal(t, 3, cfg.Pipeline.MaxFeeCandidates)
	assert.NotEmpty(t, cfg.Chain.RPCURLs)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("PIPELINE_SIGNER_TIMEOUT", "5s")
	t.Setenv("CHAIN_RPC_URLS", "http://a:8545, http://b:8545")

	cfg := config.DefaultServiceConfigFromEnv()

	assert.Equal(t, 5*time.Second, cfg.Pipeline.SignerTimeout)
	assert.Equal(t, []string{"http://a:8545", "http://b:8545"}, cfg.Chain.RPCURLs)
}

func TestSecretsAreNotPrinted(t *testing.T) {
	t.Setenv("SIGNER_KEYSTORE_PASSWORD", "hunter2hunter2")

	cfg := config.DefaultServiceConfigFromEnv()
	require.Equal(t, "hunter2hunter2", cfg.Signer.KeystorePassword)

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2hunter2")
}

func TestConnectionString(t *testing.T) {
	db := config.Database{
		Host:             "localhost",
		Port:             5432,
		Username:         "dbuser",
		Password:         "secret",
		Database:         "journal",
		AdditionalParams: map[string]string{"sslmode": "require", "application_name": "txpipeline"},
	}

	assert.Equal(t,
		"host=localhost port=5432 user=dbuser password=secret dbname=journal application_name=txpipeline sslmode=require",
		db.ConnectionString(),
	)

	db.AdditionalParams = nil
	assert.Equal(t, "host=localhost port=5432 user=dbuser password=secret dbname=journal sslmode=disable", db.ConnectionString())
}
