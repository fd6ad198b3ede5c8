package fee

import (
	"context"
	"math/big"
	"slices"
	"strconv"

	"github.com/dropbox/godropbox/time2"
	"github/chapool/go-txpipeline/internal/metrics"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
	"golang.org/x/sync/singleflight"
)

// eip1559FeeMultiplier leaves room for the base fee to double before the quote goes stale
const eip1559FeeMultiplier = 2

type estimator struct {
	network Network
	clock   time2.Clock
	metrics *metrics.Service
	config  Config
	group   singleflight.Group
}

// NewEstimator creates a fee Estimator over network
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewEstimator(network Network, clock time2.Clock, metricsService *metrics.Service, cfg Config) Estimator {
	return &estimator{
		network: network,
		clock:   clock,
		metrics: metricsService,
		config:  cfg.withDefaults(),
	}
}

// EstimateFee quotes tiered fees. Concurrent calls for the same descriptor share
// one network round trip; every caller gets its own copy of the result.
func (e *estimator) EstimateFee(ctx context.Context, desc transaction.Descriptor, candidateCount int) ([]transaction.FeeCandidate, error) {
	if err := e.validate(desc); err != nil {
		e.metrics.ObserveFeeEstimation("rejected")
		return nil, err
	}

	if candidateCount <= 0 {
		candidateCount = 1
	}
	candidateCount = min(candidateCount, e.config.MaxCandidates)

	key := desc.Key() + "/" + strconv.Itoa(candidateCount)
	ch := e.group.DoChan(key, func() (any, error) {
		// outlives any single caller; each caller stops waiting on its own ctx below
		quoteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.RequestTimeout)
		defer cancel()

		return e.quote(quoteCtx, desc, candidateCount)
	})

	select {
	case <-ctx.Done():
		e.metrics.ObserveFeeEstimation("cancelled")
		return nil, txfail.Wrap(ctx.Err(), txfail.ReasonNetworkUnavailable, "fee estimation cancelled")
	case res := <-ch:
		if res.Err != nil {
			e.metrics.ObserveFeeEstimation(string(txfail.ReasonOf(res.Err)))
			return nil, res.Err
		}

		shared, ok := res.Val.([]transaction.FeeCandidate)
		if !ok {
			return nil, txfail.New(txfail.ReasonEstimationRejected, "unexpected estimation result")
		}

		e.metrics.ObserveFeeEstimation("ok")

		out := make([]transaction.FeeCandidate, len(shared))
		for i := range shared {
			out[i] = *shared[i].Clone()
		}

		return out, nil
	}
}

func (e *estimator) Verify(desc transaction.Descriptor, candidate transaction.FeeCandidate) error {
	desc.FeeCurrency = candidate.Currency
	if err := e.validate(desc); err != nil {
		return err
	}

	if candidate.Gas < desc.Kind.GasLimit() {
		return txfail.Newf(txfail.ReasonEstimationRejected, "gas limit %d below the %d a %s needs", candidate.Gas, desc.Kind.GasLimit(), desc.Kind)
	}

	maxFee, tip := candidate.MaxFeePerGas, candidate.MaxPriorityFeePerGas
	if maxFee == nil || tip == nil || tip.Sign() < 0 || tip.Cmp(maxFee) > 0 {
		return txfail.New(txfail.ReasonEstimationRejected, "fee caps are missing or inconsistent")
	}

	// the transaction pays at most gas*maxFeePerGas in the native currency
	cost := new(big.Int).Mul(new(big.Int).SetUint64(candidate.Gas), maxFee)
	if candidate.Amount == nil || candidate.Amount.Cmp(cost) != 0 {
		return txfail.Newf(txfail.ReasonEstimationRejected, "fee amount %s does not match gas*maxFeePerGas %s", bigString(candidate.Amount), cost)
	}

	return nil
}

func (e *estimator) validate(desc transaction.Descriptor) error {
	if !desc.Kind.Valid() {
		return txfail.Newf(txfail.ReasonEstimationRejected, "unknown transaction kind %q", desc.Kind)
	}

	if !desc.Currency.Valid() {
		return txfail.Newf(txfail.ReasonEstimationRejected, "unsupported currency %q", desc.Currency)
	}

	if !slices.Contains(e.config.FeeCurrencies, desc.FeeCurrency) {
		return txfail.Newf(txfail.ReasonEstimationRejected, "network cannot quote fees in %q", desc.FeeCurrency)
	}

	return nil
}

func (e *estimator) quote(ctx context.Context, desc transaction.Descriptor, count int) ([]transaction.FeeCandidate, error) {
	log := util.LogFromContext(ctx)

	baseFee, err := e.network.BaseFee(ctx)
	if err != nil {
		return nil, txfail.Wrap(err, txfail.ReasonNetworkUnavailable, "failed to get base fee")
	}

	var tip *big.Int
	if baseFee == nil {
		// pre-London: the legacy gas price is both cap and tip
		tip, err = e.network.SuggestGasPrice(ctx)
		if err != nil {
			return nil, txfail.Wrap(err, txfail.ReasonNetworkUnavailable, "failed to suggest gas price")
		}
	} else {
		tip, err = e.network.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, txfail.Wrap(err, txfail.ReasonNetworkUnavailable, "failed to suggest gas tip cap")
		}
	}

	if tip == nil || tip.Sign() < 0 || (baseFee != nil && baseFee.Sign() < 0) {
		return nil, txfail.New(txfail.ReasonEstimationRejected, "network returned an invalid fee quote")
	}

	gas := desc.Kind.GasLimit()
	gasInt := new(big.Int).SetUint64(gas)
	validUntil := e.clock.Now().Add(e.config.TTL)

	candidates := make([]transaction.FeeCandidate, 0, count)
	for i := range count {
		// tier i pays (2+i)/2 of the suggested tip: 1x, 1.5x, 2x
		tierTip := new(big.Int).Mul(tip, big.NewInt(int64(2+i)))
		tierTip.Quo(tierTip, big.NewInt(2)) //nolint:mnd // halves

		maxFee := new(big.Int).Set(tierTip)
		if baseFee != nil {
			maxFee.Add(maxFee, new(big.Int).Mul(baseFee, big.NewInt(eip1559FeeMultiplier)))
		}

		candidates = append(candidates, transaction.FeeCandidate{
			Tier:                 i,
			Currency:             desc.FeeCurrency,
			Amount:               new(big.Int).Mul(gasInt, maxFee),
			Gas:                  gas,
			MaxFeePerGas:         maxFee,
			MaxPriorityFeePerGas: tierTip,
			ValidUntil:           validUntil,
		})
	}

	log.Debug().
		Str("descriptor", desc.Key()).
		Str("base_fee", bigString(baseFee)).
		Str("tip", tip.String()).
		Int("candidates", len(candidates)).
		Msg("Fee quoted")

	return candidates, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}

	return v.String()
}
