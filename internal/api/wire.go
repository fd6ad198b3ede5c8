//go:build wireinject

package api

import (
	"testing"

	"github.com/google/wire"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/metrics"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/signer"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewI18N,
	NewDB,
	NewJournal,
	NewEstimator,
	NewOrchestrator,
	NewEventPublisher,
	saga.NewStore,
	metrics.New,
	NewClock,
)

// InitNewServer returns a new Server instance signing with sgn and talking to chain.
func InitNewServer(
	_ config.Server,
	_ signer.Signer,
	_ ChainBackend,
) (*Server, error) {
	wire.Build(serviceSet, NoTest)
	return new(Server), nil
}

// InitNewServerWithT returns a new Server instance for tests, using a mock clock.
// All the other components are initialized via go wire according to the configuration.
func InitNewServerWithT(
	_ config.Server,
	_ signer.Signer,
	_ ChainBackend,
	t ...*testing.T,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
