//go:build wireinject
// +build wireinject

package di

import (
	"RiskGate/pkg/config"
	"RiskGate/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideFastState,
		ProvideEventSink,

		// Stores and providers
		ProvideStores,
		ProvideSentimentSet,
		ProvideBroker,

		// Guards
		ProvideThrottle,
		ProvideBreaker,
		ProvideClassifier,

		// Use cases
		ProvideRegimeRefresher,
		ProvideAggregator,
		ProvideDecisionEngine,
		ProvideAdmissionGate,
		ProvideStatusService,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
