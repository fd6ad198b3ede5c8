package command_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/test"
	"github/chapool/go-txpipeline/internal/util/command"
)

func TestWithServerBackend(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()
	sgn := test.NewSoftwareSigner(t, cfg.Chain)

	var testError = errors.New("test error")

	resultErr := command.WithServerBackend(t.Context(), cfg, sgn, test.NewFakeNode(), func(_ context.Context, s *api.Server) error {
		assert.True(t, s.Ready())
		assert.Equal(t, test.Address, s.Orchestrator.Signer().Address.Hex())

		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		assert.Equal(t, http.StatusOK, res.Result().StatusCode)

		return testError
	})

	assert.Equal(t, testError, resultErr)
}

func TestNewSubcommandGroup(t *testing.T) {
	var ran bool
	child := &cobra.Command{
		Use: "child",
		Run: func(_ *cobra.Command, _ []string) { ran = true },
	}

	group := command.NewSubcommandGroup("group", child)
	assert.Equal(t, "group", group.Use)

	group.SetArgs([]string{"child"})
	require.NoError(t, group.Execute())
	assert.True(t, ran)
}
