package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	domrepo "RiskGate/internal/domain/repository"
	"RiskGate/internal/services/sentiment"
	"RiskGate/internal/usecase"
	"RiskGate/pkg/cache"
	pkgch "RiskGate/pkg/clickhouse"
	"RiskGate/pkg/config"
	applogger "RiskGate/pkg/logger"
	"RiskGate/pkg/sched"
)

// App encapsulates the application lifecycle: it starts the streaming
// sentiment providers, the refresh scheduler and the metrics listener,
// then blocks until interrupted and drains everything in reverse order.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	scheduler   *sched.Scheduler
	regime      *usecase.RegimeRefresher
	aggregator  *usecase.SentimentAggregator
	engine      *usecase.DecisionEngine
	gate        *usecase.OrderAdmissionGate
	status      *usecase.RiskStatusService
	wsProviders []*sentiment.WSProvider

	events   domrepo.EventSink
	fast     cache.Service
	chClient *pkgch.Client

	snapshots domrepo.SnapshotStore

	metricsSrv *http.Server
}

// New creates an App. Optional collaborators (chClient, wsProviders) may be
// nil/empty depending on configuration.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	scheduler *sched.Scheduler,
	regime *usecase.RegimeRefresher,
	aggregator *usecase.SentimentAggregator,
	engine *usecase.DecisionEngine,
	gate *usecase.OrderAdmissionGate,
	status *usecase.RiskStatusService,
	snapshots domrepo.SnapshotStore,
	wsProviders []*sentiment.WSProvider,
	events domrepo.EventSink,
	fast cache.Service,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		scheduler:   scheduler,
		regime:      regime,
		aggregator:  aggregator,
		engine:      engine,
		gate:        gate,
		status:      status,
		snapshots:   snapshots,
		wsProviders: wsProviders,
		events:      events,
		fast:        fast,
		chClient:    chClient,
	}
}

// Gate exposes the admission gate for embedding callers (ops tooling,
// future control surfaces).
func (a *App) Gate() *usecase.OrderAdmissionGate { return a.gate }

// Engine exposes the decision engine.
func (a *App) Engine() *usecase.DecisionEngine { return a.engine }

// Status exposes the risk summary service.
func (a *App) Status() *usecase.RiskStatusService { return a.status }

// Run starts everything and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, p := range a.wsProviders {
		go p.Start(ctx)
		a.l.Info("sentiment stream started", applogger.String("provider", p.Name()))
	}

	if err := a.registerTasks(); err != nil {
		return err
	}
	a.scheduler.Start(ctx)
	a.l.Info("scheduler started", applogger.Strings("symbols", a.cfg.Symbols))

	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, promhttp.Handler())
		a.metricsSrv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.l.Error("metrics listener error", applogger.Error(err))
			}
		}()
		a.l.Info("metrics listening", applogger.String("addr", a.cfg.Metrics.Addr))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// registerTasks wires the three refresh loops onto the scheduler.
func (a *App) registerTasks() error {
	regimeTask := sched.Task{
		Name:     "regime_refresh",
		Interval: a.cfg.Scheduler.RegimeRefresh.Interval,
		Timeout:  a.cfg.Scheduler.RegimeRefresh.Timeout,
		Enabled:  a.cfg.Scheduler.RegimeRefresh.Enabled,
		Run: func(ctx context.Context) error {
			return a.regime.RefreshAll(ctx, a.cfg.Symbols)
		},
	}
	sentimentTask := sched.Task{
		Name:     "sentiment_refresh",
		Interval: a.cfg.Scheduler.SentimentRefresh.Interval,
		Timeout:  a.cfg.Scheduler.SentimentRefresh.Timeout,
		Enabled:  a.cfg.Scheduler.SentimentRefresh.Enabled,
		Run: func(ctx context.Context) error {
			var firstErr error
			for _, sym := range a.cfg.Symbols {
				// the latest regime's momentum z feeds the price component;
				// no snapshot yet means neutral momentum
				z := 0.0
				if snap, err := a.snapshots.LatestRegime(ctx, sym); err == nil {
					z = snap.MomentumZ
				}
				if _, err := a.aggregator.Refresh(ctx, sym, z); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}
	decisionTask := sched.Task{
		Name:     "decision_evaluate",
		Interval: a.cfg.Scheduler.DecisionEvaluate.Interval,
		Timeout:  a.cfg.Scheduler.DecisionEvaluate.Timeout,
		Enabled:  a.cfg.Scheduler.DecisionEvaluate.Enabled,
		Run: func(ctx context.Context) error {
			var firstErr error
			for _, sym := range a.cfg.Symbols {
				if _, err := a.engine.Evaluate(ctx, sym); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}
	budgetTask := sched.Task{
		Name:     "budget_poll",
		Interval: a.cfg.Scheduler.BudgetPoll.Interval,
		Timeout:  a.cfg.Scheduler.BudgetPoll.Timeout,
		Enabled:  a.cfg.Scheduler.BudgetPoll.Enabled,
		Run:      a.status.PollBudget,
	}

	for _, t := range []sched.Task{regimeTask, sentimentTask, decisionTask, budgetTask} {
		if err := a.scheduler.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// shutdown drains in reverse start order.
func (a *App) shutdown() error {
	a.scheduler.Stop()

	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.l.Warn("metrics shutdown error", applogger.Error(err))
		}
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.l.Warn("event sink close error", applogger.Error(err))
		}
	}
	if a.fast != nil {
		if err := a.fast.Close(); err != nil {
			a.l.Warn("fast state close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
