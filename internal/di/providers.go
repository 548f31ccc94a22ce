package di

import (
	"context"
	"fmt"
	"time"

	"RiskGate/internal/domain/models"
	domrepo "RiskGate/internal/domain/repository"
	domsvc "RiskGate/internal/domain/service"
	internalrepo "RiskGate/internal/repository"
	"RiskGate/internal/risk"
	"RiskGate/internal/services/analytics"
	"RiskGate/internal/services/broker"
	"RiskGate/internal/services/sentiment"
	"RiskGate/internal/usecase"
	"RiskGate/pkg/cache"
	pkgch "RiskGate/pkg/clickhouse"
	"RiskGate/pkg/config"
	pkgkafka "RiskGate/pkg/kafka"
	applogger "RiskGate/pkg/logger"
	"RiskGate/pkg/metrics"
	"RiskGate/pkg/sched"
	"RiskGate/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// schema. Returns nil when the memory store is configured.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Store.Type != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// Stores bundles the durable-store interfaces so memory and ClickHouse
// backends can be swapped as one unit.
type Stores struct {
	Bars      domrepo.BarSource
	Advices   domrepo.AdviceStore
	Risk      domrepo.RiskStore
	Snapshots domrepo.SnapshotStore
	Positions domrepo.PositionSource
}

// ProvideStores selects the configured backend and seeds the risk limits
// row from config so guards can hot-read them from the store.
func ProvideStores(cfg *config.Config, chClient *pkgch.Client, l *applogger.Logger) (Stores, error) {
	var s Stores
	if cfg.Store.Type == "clickhouse" {
		ch := internalrepo.NewCHStore(chClient)
		ch.SetLogger(l)
		s = Stores{Bars: ch, Advices: ch, Risk: ch, Snapshots: ch, Positions: internalrepo.NewMemoryStore()}
	} else {
		mem := internalrepo.NewMemoryStore()
		s = Stores{Bars: mem, Advices: mem, Risk: mem, Snapshots: mem, Positions: mem}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	limits := models.RiskLimitsConfig{
		DailyLossCapAmount: cfg.Risk.DailyLossCapAmount,
		LotsCap:            cfg.Risk.LotsCap,
		OrdersPerMinuteCap: cfg.Risk.OrdersPerMinuteCap,
	}
	if err := s.Risk.SaveLimits(ctx, limits); err != nil {
		return Stores{}, fmt.Errorf("seed risk limits: %w", err)
	}
	return s, nil
}

// ProvideFastState selects redis or in-process fast transient state.
func ProvideFastState(cfg *config.Config) (cache.Service, error) {
	if cfg.FastState.Type == "redis" {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Redis.Host),
			cache.WithRedisPort(cfg.Redis.Port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvideEventSink creates the Kafka-backed sink, or a log sink when Kafka
// is disabled.
func ProvideEventSink(cfg *config.Config, l *applogger.Logger) (domrepo.EventSink, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NewLogEventSink(l), nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaEventSink(producer, l), nil
}

// SentimentSet bundles the configured providers with the subset that needs
// a background stream started.
type SentimentSet struct {
	Providers []domsvc.SentimentProvider
	Streams   []*sentiment.WSProvider
}

// ProvideSentimentSet builds the provider list from config. HTTP providers
// are wrapped with the per-provider breaker and poll limiter.
func ProvideSentimentSet(cfg *config.Config, l *applogger.Logger) SentimentSet {
	var set SentimentSet
	for _, pc := range cfg.Sentiment.Providers {
		switch pc.Type {
		case "static":
			set.Providers = append(set.Providers, sentiment.NewStaticProvider(pc.Name, pc.Weight, pc.Score))
		case "http":
			inner := sentiment.NewHTTPProvider(pc.Name, pc.Weight, pc.URL, pc.Timeout)
			set.Providers = append(set.Providers, sentiment.NewGuardedProvider(inner, cfg.Sentiment.PollRPS, cfg.Sentiment.PollBurst))
		case "websocket":
			staleAfter := time.Duration(cfg.Sentiment.WindowMinutes) * time.Minute
			ws := sentiment.NewWSProvider(pc.Name, pc.Weight, pc.URL, staleAfter, l)
			set.Providers = append(set.Providers, ws)
			set.Streams = append(set.Streams, ws)
		}
	}
	return set
}

// ProvideThrottle creates the sliding-window order throttle.
func ProvideThrottle() *risk.ThrottleGuard {
	return risk.NewThrottleGuard()
}

// ProvideBreaker creates the trading circuit breaker.
func ProvideBreaker(stores Stores, events domrepo.EventSink, mx domrepo.Metrics, l *applogger.Logger) *risk.CircuitBreaker {
	return risk.NewCircuitBreaker(stores.Risk, events, mx, l)
}

// ProvideClassifier creates the regime classifier from config thresholds.
func ProvideClassifier(cfg *config.Config) domsvc.RegimeClassifier {
	return analytics.NewClassifier(analytics.Config{
		LookbackCandles: cfg.Regime.LookbackCandles,
		ZScoreWindow:    cfg.Regime.ZScoreWindow,
		ZUp:             cfg.Regime.ZUp,
		ZDown:           cfg.Regime.ZDown,
		RVLow:           cfg.Regime.RVLow,
		RVHigh:          cfg.Regime.RVHigh,
		ATRPctRange:     cfg.Regime.ATRPctRange,
	})
}

// ProvideRegimeRefresher creates the regime refresh use case.
func ProvideRegimeRefresher(cfg *config.Config, stores Stores, classifier domsvc.RegimeClassifier, l *applogger.Logger) *usecase.RegimeRefresher {
	return usecase.NewRegimeRefresher(stores.Bars, classifier, stores.Snapshots, cfg.Regime.LookbackCandles, l)
}

// ProvideAggregator creates the sentiment aggregator.
func ProvideAggregator(cfg *config.Config, set SentimentSet, stores Stores, mx domrepo.Metrics, l *applogger.Logger) *usecase.SentimentAggregator {
	return usecase.NewSentimentAggregator(usecase.SentimentConfig{
		WindowMinutes:   cfg.Sentiment.WindowMinutes,
		HalfLifeMinutes: cfg.Sentiment.HalfLifeMinutes,
		MaxSamples:      cfg.Sentiment.MaxSamples,
	}, set.Providers, stores.Snapshots, mx, l)
}

// ProvideDecisionEngine creates the decision engine.
func ProvideDecisionEngine(cfg *config.Config, stores Stores, breaker *risk.CircuitBreaker, fast cache.Service, events domrepo.EventSink, mx domrepo.Metrics, l *applogger.Logger) *usecase.DecisionEngine {
	return usecase.NewDecisionEngine(usecase.DecisionConfig{
		Strategy:        cfg.Decision.Strategy,
		MinConfidence:   cfg.Decision.MinConfidence,
		EntryLongScore:  cfg.Decision.EntryLongScore,
		EntryShortScore: cfg.Decision.EntryShortScore,
		WeightRegime:    cfg.Decision.WeightRegime,
		WeightMomentum:  cfg.Decision.WeightMomentum,
		WeightSentiment: cfg.Decision.WeightSentiment,
		EmitThreshold:   cfg.Decision.EmitThreshold,
		Quantity:        cfg.Decision.Quantity,
		LotSize:         cfg.Decision.LotSize,
		DedupeWindow:    cfg.Decision.DedupeWindow,
	}, stores.Snapshots, stores.Advices, breaker, fast, events, mx, l)
}

// ProvideBroker creates the broker gateway. The paper broker stands in
// until a live gateway is wired.
func ProvideBroker(l *applogger.Logger) domsvc.BrokerGateway {
	return broker.NewPaperBroker(l)
}

// ProvideAdmissionGate creates the order admission gate.
func ProvideAdmissionGate(
	cfg *config.Config,
	stores Stores,
	throttle *risk.ThrottleGuard,
	breaker *risk.CircuitBreaker,
	fast cache.Service,
	gw domsvc.BrokerGateway,
	events domrepo.EventSink,
	mx domrepo.Metrics,
	l *applogger.Logger,
) *usecase.OrderAdmissionGate {
	return usecase.NewOrderAdmissionGate(
		stores.Advices, stores.Risk, stores.Positions,
		throttle, breaker, fast, gw, events, mx, l,
		cfg.Decision.DedupeWindow,
	)
}

// ProvideStatusService creates the risk summary / budget poll use case.
func ProvideStatusService(stores Stores, throttle *risk.ThrottleGuard, breaker *risk.CircuitBreaker, events domrepo.EventSink, mx domrepo.Metrics, l *applogger.Logger) *usecase.RiskStatusService {
	return usecase.NewRiskStatusService(stores.Risk, stores.Positions, throttle, breaker, events, mx, l)
}

// ProvideScheduler creates the refresh scheduler with latency metrics.
func ProvideScheduler(mx domrepo.Metrics, l *applogger.Logger) *sched.Scheduler {
	return sched.New(l, sched.WithLatencyObserver(mx.RecordRefreshLatency))
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	scheduler *sched.Scheduler,
	regime *usecase.RegimeRefresher,
	aggregator *usecase.SentimentAggregator,
	engine *usecase.DecisionEngine,
	gate *usecase.OrderAdmissionGate,
	status *usecase.RiskStatusService,
	stores Stores,
	set SentimentSet,
	events domrepo.EventSink,
	fast cache.Service,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, scheduler, regime, aggregator, engine, gate, status, stores.Snapshots, set.Streams, events, fast, chClient)
}
