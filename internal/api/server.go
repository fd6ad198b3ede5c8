package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/events"
	"github/chapool/go-txpipeline/internal/i18n"
	"github/chapool/go-txpipeline/internal/metrics"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/wallet/fee"
	"github/chapool/go-txpipeline/internal/wallet/journal"
	"github/chapool/go-txpipeline/internal/wallet/pipeline"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/signer"
)

// ChainBackend is everything the server needs from a node; *chain.Client implements it
type ChainBackend interface {
	fee.Network
	pipeline.Chain
}

type Router struct {
	Routes         []*echo.Route
	Root           *echo.Group
	Management     *echo.Group
	APIV1Pipelines *echo.Group
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// Components labeled as `ready:"optional"` may stay nil without making the server unready.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	// skip wire:
	// -> initialized with router.Init(s) function
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	Config       config.Server
	Clock        time2.Clock
	Metrics      *metrics.Service
	I18n         *i18n.Service
	Chain        ChainBackend
	Signer       signer.Signer
	Store        *saga.Store
	Estimator    fee.Estimator
	Journal      journal.Journal
	Orchestrator *pipeline.Orchestrator

	// only set when the Postgres journal is enabled
	DB *sql.DB `ready:"optional"`
	// only set when event mirroring to Redis is enabled
	Events *events.Publisher `ready:"optional"`
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	clock time2.Clock,
	metricsService *metrics.Service,
	i18nService *i18n.Service,
	chain ChainBackend,
	sgn signer.Signer,
	store *saga.Store,
	estimator fee.Estimator,
	j journal.Journal,
	orchestrator *pipeline.Orchestrator,
	db *sql.DB,
	publisher *events.Publisher,
) *Server {
	return &Server{
		Config:       cfg,
		Clock:        clock,
		Metrics:      metricsService,
		I18n:         i18nService,
		Chain:        chain,
		Signer:       sgn,
		Store:        store,
		Estimator:    estimator,
		Journal:      j,
		Orchestrator: orchestrator,
		DB:           db,
		Events:       publisher,
	}
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

// StartEvents mirrors every committed event to Redis until ctx is done. It is a no-op without Events.
func (s *Server) StartEvents(ctx context.Context) {
	if s.Events == nil {
		return
	}

	go s.Events.Run(ctx, s.Store.Watch())
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if s.Events != nil {
		log.Debug().Msg("Closing redis connection")

		if err := s.Events.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis connection")
			errs = append(errs, err)
		}
	}

	if s.DB != nil {
		log.Debug().Msg("Closing database connection")

		if err := s.DB.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			log.Error().Err(err).Msg("Failed to close database connection")
			errs = append(errs, err)
		}
	}

	if closer, ok := s.Chain.(interface{ Close() }); ok {
		log.Debug().Msg("Closing RPC connections")
		closer.Close()
	}

	return errs
}
