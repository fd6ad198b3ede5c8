package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/router"
	"github/chapool/go-txpipeline/internal/wallet/address"
	"github/chapool/go-txpipeline/internal/wallet/seed"
	"github/chapool/go-txpipeline/internal/wallet/signer"
)

// Mnemonic is the standard BIP39 test mnemonic
//
//nolint:dupword
const Mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// Address is the account Mnemonic derives at m/44'/60'/0'/0/0
const Address = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

// FakeNode is a ChainBackend serving fee quotes and broadcasts from memory
type FakeNode struct {
	*FakeNetwork
	*FakeChain

	// PingErr is returned by Ping, set it before the first request
	PingErr error
}

func NewFakeNode() *FakeNode {
	return &FakeNode{
		FakeNetwork: NewFakeNetwork(),
		FakeChain:   NewFakeChain(),
	}
}

func (n *FakeNode) Ping(_ context.Context) error {
	return n.PingErr
}

// NewSoftwareSigner returns a software signer for Address using the contracts of cfg
func NewSoftwareSigner(t *testing.T, cfg config.Chain) *signer.Software {
	t.Helper()

	contracts, err := signer.ContractsFromConfig(cfg)
	require.NoError(t, err)

	seedManager := seed.NewManager()
	require.NoError(t, seedManager.Initialize(Mnemonic, ""))
	t.Cleanup(seedManager.Clear)

	addresses := address.NewService("m/44'/60'/0'/0/%d")
	software, err := signer.NewSoftware(t.Context(), seedManager, addresses, addresses.GetBIP44Path(0), contracts)
	require.NoError(t, err)

	return software
}

// WithTestServer executes closure with a fully wired server backed by a
// FakeNode and a software signer. Use s.Chain.(*test.FakeNode) to drive the node.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	WithTestServerConfigurable(t, config.DefaultServiceConfigFromEnv(), closure)
}

// WithTestServerConfigurable is WithTestServer with a custom config
func WithTestServerConfigurable(t *testing.T, cfg config.Server, closure func(s *api.Server)) {
	t.Helper()

	WithTestServerSigner(t, cfg, NewSoftwareSigner(t, cfg.Chain), closure)
}

// WithTestServerSigner is WithTestServerConfigurable with a custom signer
func WithTestServerSigner(t *testing.T, cfg config.Server, sgn signer.Signer, closure func(s *api.Server)) {
	t.Helper()

	s, err := api.InitNewServerWithT(cfg, sgn, NewFakeNode(), t)
	require.NoError(t, err, "failed to initialize server")
	require.NoError(t, router.Init(s), "failed to initialize router")

	closure(s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.Empty(t, s.Shutdown(ctx), "failed to shutdown server")
}

// PerformRequest serves a request against s.Echo, body is encoded as JSON unless nil
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body any, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err, "failed to encode request body")
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	for k, v := range headers {
		req.Header[k] = v
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}

// ParseResponse decodes the JSON body of res into v
func ParseResponse(t *testing.T, res *httptest.ResponseRecorder, v any) {
	t.Helper()

	require.NoError(t, json.NewDecoder(res.Body).Decode(v), "failed to decode response: %s", res.Body.String())
}
