package send

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/test"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

func TestFlagsDraft(t *testing.T) {
	draft, err := Flags{
		Kind:      "token_transfer",
		Recipient: "0x1111111111111111111111111111111111111111",
		Amount:    "2.25",
		Currency:  "cUSD",
		Comment:   "dinner",
	}.draft()
	require.NoError(t, err)

	assert.Equal(t, transaction.KindTokenTransfer, draft.Kind)
	assert.Equal(t, "2250000000000000000", draft.Amount.String())
	assert.Equal(t, "dinner", draft.Comment)
	assert.Nil(t, draft.Exchange)
	assert.Nil(t, draft.Escrow)

	_, err = Flags{Kind: "token_transfer", Amount: "1", Currency: "EUR"}.draft()
	require.Error(t, err)
}

func TestRunPrintsResult(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		draft, err := Flags{
			Kind:      "native_transfer",
			Recipient: "0x1111111111111111111111111111111111111111",
			Amount:    "0.5",
			Currency:  "CELO",
		}.draft()
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, run(t.Context(), s, &out, saga.PipelineSendToken, draft))

		assert.Contains(t, out.String(), "Sent 0.5 CELO")
		assert.Contains(t, out.String(), test.Address)
	})
}

func TestRunReportsFailure(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		node, ok := s.Chain.(*test.FakeNode)
		require.True(t, ok)
		node.SetSendErr(assert.AnError)

		draft, err := Flags{
			Kind:      "native_transfer",
			Recipient: "0x1111111111111111111111111111111111111111",
			Amount:    "1",
			Currency:  "CELO",
		}.draft()
		require.NoError(t, err)

		var out bytes.Buffer
		err = run(t.Context(), s, &out, saga.PipelineSendToken, draft)
		require.ErrorIs(t, err, ErrAttemptFailed)
		assert.Contains(t, out.String(), string(txfail.ReasonBroadcastFailed))
	})
}
