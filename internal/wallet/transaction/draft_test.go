package transaction_test

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

const recipient = "0x1111111111111111111111111111111111111111"

func TestDraftValidate(t *testing.T) {
	sig := make([]byte, 65)

	tests := []struct {
		name    string
		draft   transaction.Draft
		wantErr bool
	}{
		{"native transfer", transaction.Draft{Kind: transaction.KindNativeTransfer, Recipient: recipient, Amount: big.NewInt(1), Currency: transaction.CurrencyCELO}, false},
		{"native transfer in cUSD", transaction.Draft{Kind: transaction.KindNativeTransfer, Recipient: recipient, Amount: big.NewInt(1), Currency: transaction.CurrencyCUSD}, true},
		{"token transfer", transaction.Draft{Kind: transaction.KindTokenTransfer, Recipient: recipient, Amount: big.NewInt(1), Currency: transaction.CurrencyCUSD}, false},
		{"bad recipient", transaction.Draft{Kind: transaction.KindTokenTransfer, Recipient: "0xabc", Amount: big.NewInt(1), Currency: transaction.CurrencyCUSD}, true},
		{"zero transfer", transaction.Draft{Kind: transaction.KindTokenTransfer, Recipient: recipient, Amount: big.NewInt(0), Currency: transaction.CurrencyCUSD}, true},
		{"comment on plain transfer", transaction.Draft{Kind: transaction.KindTokenTransfer, Recipient: recipient, Amount: big.NewInt(1), Currency: transaction.CurrencyCUSD, Comment: "hi"}, true},
		{"comment transfer", transaction.Draft{Kind: transaction.KindTokenTransferWithComment, Recipient: recipient, Amount: big.NewInt(1), Currency: transaction.CurrencyCUSD, Comment: "lunch"}, false},
		{"comment too long", transaction.Draft{Kind: transaction.KindTokenTransferWithComment, Recipient: recipient, Amount: big.NewInt(1), Currency: transaction.CurrencyCUSD, Comment: strings.Repeat("x", transaction.MaxCommentLength+1)}, true},
		{"approve revoke", transaction.Draft{Kind: transaction.KindTokenApprove, Recipient: recipient, Amount: big.NewInt(0), Currency: transaction.CurrencyCUSD}, false},
		{"exchange", transaction.Draft{Kind: transaction.KindTokenExchange, Amount: big.NewInt(5), Currency: transaction.CurrencyCELO, Exchange: &transaction.ExchangeTerms{MinBuyAmount: big.NewInt(4)}}, false},
		{"exchange without terms", transaction.Draft{Kind: transaction.KindTokenExchange, Amount: big.NewInt(5), Currency: transaction.CurrencyCELO}, true},
		{"escrow transfer", transaction.Draft{Kind: transaction.KindEscrowTransfer, Amount: big.NewInt(5), Currency: transaction.CurrencyCUSD, Escrow: &transaction.EscrowTerms{PaymentID: recipient, ExpirySeconds: 3600}}, false},
		{"escrow withdraw", transaction.Draft{Kind: transaction.KindEscrowWithdraw, Amount: big.NewInt(0), Currency: transaction.CurrencyCUSD, Escrow: &transaction.EscrowTerms{PaymentID: recipient, Signature: sig}}, false},
		{"escrow withdraw short signature", transaction.Draft{Kind: transaction.KindEscrowWithdraw, Amount: big.NewInt(0), Currency: transaction.CurrencyCUSD, Escrow: &transaction.EscrowTerms{PaymentID: recipient, Signature: sig[:10]}}, true},
		{"unknown kind", transaction.Draft{Amount: big.NewInt(1), Currency: transaction.CurrencyCUSD}, true},
		{"nil amount", transaction.Draft{Kind: transaction.KindTokenTransfer, Recipient: recipient, Currency: transaction.CurrencyCUSD}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, txfail.ReasonInvalidDraft, txfail.ReasonOf(err))
		})
	}
}

func TestDraftNormalizeSelectsCommentKind(t *testing.T) {
	draft := transaction.Draft{Kind: transaction.KindTokenTransfer, Recipient: recipient, Amount: big.NewInt(1), Currency: transaction.CurrencyCUSD, Comment: "rent"}

	normalized := draft.Normalize()

	assert.Equal(t, transaction.KindTokenTransferWithComment, normalized.Kind)
	assert.Equal(t, transaction.KindTokenTransfer, draft.Kind)
	require.NoError(t, normalized.Validate())
}

func TestKindsAreExhaustive(t *testing.T) {
	for _, kind := range transaction.Kinds() {
		assert.True(t, kind.Valid())
		assert.NotZero(t, kind.GasLimit(), kind.String())
		assert.NotPanics(t, func() { kind.UsesToken() })

		text, err := kind.MarshalText()
		require.NoError(t, err)

		var parsed transaction.Kind
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, kind, parsed)
	}

	assert.Panics(t, func() { transaction.Kind(0).GasLimit() })
}

func TestParseCurrency(t *testing.T) {
	c, err := transaction.ParseCurrency("cUSD")
	require.NoError(t, err)
	assert.Equal(t, transaction.CurrencyCUSD, c)

	_, err = transaction.ParseCurrency("CUSD")
	require.Error(t, err)
}
