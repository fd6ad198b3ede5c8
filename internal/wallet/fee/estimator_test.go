package fee_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/test"
	"github/chapool/go-txpipeline/internal/wallet/fee"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var tokenTransfer = transaction.Descriptor{
	Kind:        transaction.KindTokenTransfer,
	Currency:    transaction.CurrencyCUSD,
	FeeCurrency: transaction.CurrencyCELO,
}

func newEstimator(network fee.Network) fee.Estimator {
	return fee.NewEstimator(network, time2.NewMockClock(now), nil, fee.Config{TTL: time.Minute})
}

func TestEstimateFeeTiers(t *testing.T) {
	candidates, err := newEstimator(test.NewFakeNetwork()).EstimateFee(t.Context(), tokenTransfer, 3)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	expected := []struct {
		tip, maxFee, amount string
	}{
		{"2", "22", "2200000"},
		{"3", "23", "2300000"},
		{"4", "24", "2400000"},
	}

	for i, c := range candidates {
		assert.Equal(t, i, c.Tier)
		assert.Equal(t, transaction.CurrencyCELO, c.Currency)
		assert.Equal(t, uint64(100000), c.Gas)
		assert.Equal(t, expected[i].tip, c.MaxPriorityFeePerGas.String())
		assert.Equal(t, expected[i].maxFee, c.MaxFeePerGas.String())
		assert.Equal(t, expected[i].amount, c.Amount.String())
		assert.Equal(t, now.Add(time.Minute), c.ValidUntil)
		assert.Positive(t, c.Amount.Sign())
	}
}

func TestEstimateFeeCandidateCount(t *testing.T) {
	estimator := newEstimator(test.NewFakeNetwork())

	for _, tt := range []struct{ requested, expected int }{{0, 1}, {-4, 1}, {1, 1}, {2, 2}, {10, fee.MaxCandidates}} {
		candidates, err := estimator.EstimateFee(t.Context(), tokenTransfer, tt.requested)
		require.NoError(t, err)
		assert.Len(t, candidates, tt.expected, "requested %d", tt.requested)
	}
}

func TestEstimateFeeLegacyChain(t *testing.T) {
	network := test.NewFakeNetwork()
	network.Base = nil

	candidates, err := newEstimator(network).EstimateFee(t.Context(), transaction.Descriptor{
		Kind:        transaction.KindNativeTransfer,
		Currency:    transaction.CurrencyCELO,
		FeeCurrency: transaction.CurrencyCELO,
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, "12", candidates[0].MaxFeePerGas.String())
	assert.Equal(t, "18", candidates[1].MaxFeePerGas.String())
	assert.Equal(t, "252000", candidates[0].Amount.String())
}

func TestEstimateFeeErrors(t *testing.T) {
	t.Run("network down", func(t *testing.T) {
		network := test.NewFakeNetwork()
		network.SetErr(test.ErrFakeNetwork)

		_, err := newEstimator(network).EstimateFee(t.Context(), tokenTransfer, 1)
		require.ErrorIs(t, err, test.ErrFakeNetwork)
		assert.Equal(t, txfail.ReasonNetworkUnavailable, txfail.ReasonOf(err))
	})

	t.Run("missing tip", func(t *testing.T) {
		network := test.NewFakeNetwork()
		network.Tip = nil

		_, err := newEstimator(network).EstimateFee(t.Context(), tokenTransfer, 1)
		assert.Equal(t, txfail.ReasonEstimationRejected, txfail.ReasonOf(err))
	})

	for name, desc := range map[string]transaction.Descriptor{
		"unknown kind":         {Currency: transaction.CurrencyCUSD, FeeCurrency: transaction.CurrencyCELO},
		"unknown currency":     {Kind: transaction.KindTokenTransfer, Currency: "XYZ", FeeCurrency: transaction.CurrencyCELO},
		"unquotable fee token": {Kind: transaction.KindTokenTransfer, Currency: transaction.CurrencyCUSD, FeeCurrency: transaction.CurrencyCUSD},
	} {
		t.Run(name, func(t *testing.T) {
			network := test.NewFakeNetwork()

			_, err := newEstimator(network).EstimateFee(t.Context(), desc, 1)
			assert.Equal(t, txfail.ReasonEstimationRejected, txfail.ReasonOf(err))
			assert.Zero(t, network.Calls())
		})
	}
}

func TestEstimateFeeConfiguredFeeCurrency(t *testing.T) {
	estimator := fee.NewEstimator(test.NewFakeNetwork(), time2.NewMockClock(now), nil, fee.Config{
		FeeCurrencies: []transaction.Currency{transaction.CurrencyCELO, transaction.CurrencyCUSD},
	})

	desc := tokenTransfer
	desc.FeeCurrency = transaction.CurrencyCUSD

	candidates, err := estimator.EstimateFee(t.Context(), desc, 1)
	require.NoError(t, err)
	assert.Equal(t, transaction.CurrencyCUSD, candidates[0].Currency)
}

func TestEstimateFeeCoalescesConcurrentCalls(t *testing.T) {
	network := test.NewFakeNetwork()
	network.Gate = make(chan struct{})
	estimator := newEstimator(network)

	const callers = 5
	results := make([][]transaction.FeeCandidate, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			candidates, err := estimator.EstimateFee(t.Context(), tokenTransfer, 2)
			assert.NoError(t, err)
			results[i] = candidates
		}()
	}

	require.Eventually(t, func() bool { return network.Calls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(network.Gate)
	wg.Wait()

	assert.Equal(t, int64(1), network.Calls())

	// results are independent copies
	results[0][0].Amount.SetInt64(1)
	for i := 1; i < callers; i++ {
		require.Len(t, results[i], 2)
		assert.Equal(t, "2200000", results[i][0].Amount.String())
	}
}

func TestEstimateFeeIsIdempotent(t *testing.T) {
	estimator := newEstimator(test.NewFakeNetwork())

	first, err := estimator.EstimateFee(t.Context(), tokenTransfer, 3)
	require.NoError(t, err)
	second, err := estimator.EstimateFee(t.Context(), tokenTransfer, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEstimateFeeCallerCancellation(t *testing.T) {
	network := test.NewFakeNetwork()
	network.Gate = make(chan struct{})
	defer close(network.Gate)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() {
		_, err := newEstimator(network).EstimateFee(ctx, tokenTransfer, 1)
		done <- err
	}()

	require.Eventually(t, func() bool { return network.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, txfail.ReasonNetworkUnavailable, txfail.ReasonOf(err))
	case <-time.After(time.Second):
		t.Fatal("estimation did not return after cancellation")
	}
}

func TestFeeCandidateExpiry(t *testing.T) {
	clock := time2.NewMockClock(now)
	estimator := fee.NewEstimator(test.NewFakeNetwork(), clock, nil, fee.Config{TTL: time.Minute})

	candidates, err := estimator.EstimateFee(t.Context(), tokenTransfer, 1)
	require.NoError(t, err)

	assert.False(t, candidates[0].Expired(clock.Now()))
	clock.Advance(2 * time.Minute)
	assert.True(t, candidates[0].Expired(clock.Now()))
}

func TestVerifyQuotedCandidate(t *testing.T) {
	estimator := newEstimator(test.NewFakeNetwork())

	candidates, err := estimator.EstimateFee(t.Context(), tokenTransfer, fee.MaxCandidates)
	require.NoError(t, err)

	for _, c := range candidates {
		require.NoError(t, estimator.Verify(tokenTransfer, c))
	}

	tests := []struct {
		name string
		edit func(c *transaction.FeeCandidate)
	}{
		{"foreign fee currency", func(c *transaction.FeeCandidate) { c.Currency = transaction.CurrencyCUSD }},
		{"missing amount", func(c *transaction.FeeCandidate) { c.Amount = nil }},
		{"understated amount", func(c *transaction.FeeCandidate) { c.Amount.SetInt64(0) }},
		{"overstated amount", func(c *transaction.FeeCandidate) { c.Amount.Add(c.Amount, c.Amount) }},
		{"gas below limit", func(c *transaction.FeeCandidate) { c.Gas = 21000 }},
		{"missing cap", func(c *transaction.FeeCandidate) { c.MaxFeePerGas = nil }},
		{"tip above cap", func(c *transaction.FeeCandidate) { c.MaxPriorityFeePerGas.SetInt64(1000) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidates[0].Clone()
			tt.edit(c)

			err := estimator.Verify(tokenTransfer, *c)
			require.Error(t, err)
			assert.Equal(t, txfail.ReasonEstimationRejected, txfail.ReasonOf(err))
		})
	}
}
