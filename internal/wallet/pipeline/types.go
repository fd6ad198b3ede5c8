package pipeline

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

const (
	DefaultSignerTimeout     = 30 * time.Second
	DefaultSignatureCacheTTL = 10 * time.Minute

	journalTimeout = 5 * time.Second
)

// Chain is the subset of chain.Client needed to send a transaction
type Chain interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Summarizer turns a failure reason into user-facing text
type Summarizer interface {
	Summarize(reason txfail.Reason) string
}

// EventFunc receives the events of one attempt in commit order
type EventFunc func(ev saga.Event)

// Config configures an Orchestrator
type Config struct {
	// SignerTimeout bounds how long a signer may take, including waiting for a human
	SignerTimeout time.Duration
	// SignatureCacheTTL is how long a signed but unsent transaction can be reused
	SignatureCacheTTL time.Duration
	// FeeCurrency is used when SubmitDraft estimates the fee itself
	FeeCurrency transaction.Currency
	// FeeTier picks the estimated candidate, 0 is the cheapest
	FeeTier int
}

func (c Config) withDefaults() Config {
	if c.SignerTimeout <= 0 {
		c.SignerTimeout = DefaultSignerTimeout
	}

	if c.SignatureCacheTTL <= 0 {
		c.SignatureCacheTTL = DefaultSignatureCacheTTL
	}

	if !c.FeeCurrency.Valid() {
		c.FeeCurrency = transaction.CurrencyCELO
	}

	c.FeeTier = max(c.FeeTier, 0)

	return c
}
