package common_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/test"
)

func TestGetReadyReadiness(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		require.Equal(t, "Ready.", res.Body.String())
	})
}

func TestGetReadyReadinessBroken(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		// forcefully remove an initialized component to check if ready state works
		s.I18n = nil

		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		require.Equal(t, 521, res.Result().StatusCode)
		require.Equal(t, "Not ready.", res.Body.String())
	})
}

func TestGetReadyChainUnreachable(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		node, ok := s.Chain.(*test.FakeNode)
		require.True(t, ok)
		node.PingErr = errors.New("connection refused")

		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		require.Equal(t, 521, res.Result().StatusCode)
		require.Equal(t, "Not ready.", res.Body.String())
	})
}

func TestGetHealthyTouchesWriteablePaths(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Management.ProbeWriteablePathsAbs = []string{dir}
	cfg.Management.ProbeWriteableTouchfile = ".healthy"

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		assert.Equal(t, "Healthy.", res.Body.String())

		_, err := os.Stat(filepath.Join(dir, ".healthy"))
		require.NoError(t, err)
	})
}

func TestGetHealthyMissingPath(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Management.ProbeWriteablePathsAbs = []string{filepath.Join(t.TempDir(), "missing")}
	cfg.Management.ProbeWriteableTouchfile = ".healthy"

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, 521, res.Result().StatusCode)
		assert.Contains(t, res.Body.String(), "missing")
	})
}
