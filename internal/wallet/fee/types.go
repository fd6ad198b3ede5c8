package fee

import (
	"context"
	"math/big"
	"time"

	"github/chapool/go-txpipeline/internal/wallet/transaction"
)

// MaxCandidates caps how many tiers a single estimation returns
const MaxCandidates = 3

// Network is the subset of chain.Client fee estimation relies on
type Network interface {
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	// BaseFee returns nil on chains without EIP-1559
	BaseFee(ctx context.Context) (*big.Int, error)
}

// Estimator quotes fees for a transaction type
type Estimator interface {
	// EstimateFee returns between 1 and MaxCandidates candidates, cheapest first.
	// A candidateCount <= 0 yields one candidate.
	EstimateFee(ctx context.Context, desc transaction.Descriptor, candidateCount int) ([]transaction.FeeCandidate, error)
	// Verify checks that a candidate quoted elsewhere describes a fee the signed
	// transaction will actually pay. The fee currency is taken from candidate.
	// Failures carry ReasonEstimationRejected.
	Verify(desc transaction.Descriptor, candidate transaction.FeeCandidate) error
}

// Config configures an Estimator
type Config struct {
	// TTL is how long a quote stays valid
	TTL time.Duration
	// RequestTimeout bounds the network round trips of one estimation
	RequestTimeout time.Duration
	// MaxCandidates lowers the MaxCandidates cap when set
	MaxCandidates int
	// FeeCurrencies lists the currencies the network can quote fees in
	FeeCurrencies []transaction.Currency
}

//nolint:mnd // defaults
func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 60 * time.Second
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}

	if c.MaxCandidates <= 0 || c.MaxCandidates > MaxCandidates {
		c.MaxCandidates = MaxCandidates
	}

	if len(c.FeeCurrencies) == 0 {
		c.FeeCurrencies = []transaction.Currency{transaction.CurrencyCELO}
	}

	return c
}
