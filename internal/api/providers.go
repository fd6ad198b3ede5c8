package api

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dlmiddlecote/sqlstats"
	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/events"
	"github/chapool/go-txpipeline/internal/i18n"
	"github/chapool/go-txpipeline/internal/metrics"
	"github/chapool/go-txpipeline/internal/wallet/fee"
	"github/chapool/go-txpipeline/internal/wallet/journal"
	"github/chapool/go-txpipeline/internal/wallet/pipeline"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/signer"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
)

// PROVIDERS - define here only providers that for various reasons (e.g. cyclic dependency) can't live in their corresponding packages
// or for wrapping providers that only accept sub-configs to prevent the requirement for defining providers for sub-configs.
// https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

const connectTimeout = 10 * time.Second

// NoTest is used to pass a nil *testing.T to the providers when not running in a test
func NoTest() []*testing.T {
	return nil
}

// NewClock returns a mock clock frozen at a fixed date in tests and the wall clock otherwise
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewClock(t ...*testing.T) time2.Clock {
	if len(t) > 0 && t[0] != nil {
		return time2.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	}

	return time2.DefaultClock
}

func NewI18N(cfg config.Server) (*i18n.Service, error) {
	return i18n.New(cfg)
}

// NewDB opens the journal database when the journal is enabled and returns nil otherwise
func NewDB(cfg config.Server, metricsService *metrics.Service) (*sql.DB, error) {
	if !cfg.Journal.Enabled {
		return nil, nil //nolint:nilnil // the journal falls back to memory
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := journal.Open(ctx, cfg.Journal.Database)
	if err != nil {
		return nil, err
	}

	if err := metricsService.Registry.Register(sqlstats.NewStatsCollector(cfg.Journal.Database.Database, db)); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to register database stats collector")
		}
	}

	return db, nil
}

// NewJournal stores attempts in Postgres when db is set and in memory otherwise
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewJournal(db *sql.DB) journal.Journal {
	if db == nil {
		log.Debug().Msg("Journal database disabled, keeping attempts in memory")
		return journal.NewMemory(journal.DefaultListLimit)
	}

	return journal.NewPostgres(db)
}

// NewEstimator quotes fees through chain in the configured native fee currency
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewEstimator(cfg config.Server, chain ChainBackend, clock time2.Clock, metricsService *metrics.Service) (fee.Estimator, error) {
	native, err := transaction.ParseCurrency(cfg.Chain.NativeFeeCurrency)
	if err != nil {
		return nil, errors.Wrap(err, "invalid native fee currency")
	}

	return fee.NewEstimator(chain, clock, metricsService, fee.Config{
		TTL:            cfg.Pipeline.FeeTTL,
		RequestTimeout: cfg.Chain.RequestTimeout,
		MaxCandidates:  cfg.Pipeline.MaxFeeCandidates,
		FeeCurrencies:  []transaction.Currency{native},
	}), nil
}

func NewOrchestrator(
	cfg config.Server,
	store *saga.Store,
	estimator fee.Estimator,
	sgn signer.Signer,
	chain ChainBackend,
	j journal.Journal,
	i18nService *i18n.Service,
	metricsService *metrics.Service,
	clock time2.Clock,
) (*pipeline.Orchestrator, error) {
	feeCurrency, err := transaction.ParseCurrency(cfg.Pipeline.FeeCurrency)
	if err != nil {
		return nil, errors.Wrap(err, "invalid pipeline fee currency")
	}

	return pipeline.NewOrchestrator(store, estimator, sgn, chain, j, i18nService, metricsService, clock, pipeline.Config{
		SignerTimeout:     cfg.Pipeline.SignerTimeout,
		SignatureCacheTTL: cfg.Pipeline.SignatureCacheTTL,
		FeeCurrency:       feeCurrency,
	}), nil
}

// NewEventPublisher connects to Redis when event mirroring is enabled and returns nil otherwise
func NewEventPublisher(cfg config.Server) (*events.Publisher, error) {
	if !cfg.Events.Enabled {
		return nil, nil //nolint:nilnil // mirroring is optional
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := events.Connect(ctx, cfg.Events)
	if err != nil {
		return nil, err
	}

	return events.NewPublisher(client, cfg.Events), nil
}
