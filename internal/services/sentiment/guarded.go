package sentiment

import (
	"context"
	"time"

	domsvc "RiskGate/internal/domain/service"

	cb "github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardedProvider wraps a provider with a per-provider breaker and a poll
// rate limit. A provider whose breaker is open, or whose poll budget is
// spent, reports no opinion instead of being consulted. This keeps a
// flapping upstream from slowing every sentiment refresh; it is unrelated
// to the trading circuit breaker, which never auto-resets.
type GuardedProvider struct {
	inner   domsvc.SentimentProvider
	breaker *cb.CircuitBreaker
	limiter *rate.Limiter
}

func NewGuardedProvider(inner domsvc.SentimentProvider, rps float64, burst int) *GuardedProvider {
	st := cb.Settings{Name: inner.Name()}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &GuardedProvider{
		inner:   inner,
		breaker: cb.NewCircuitBreaker(st),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (g *GuardedProvider) Name() string    { return g.inner.Name() }
func (g *GuardedProvider) Weight() float64 { return g.inner.Weight() }

type fetchResult struct {
	score float64
	ok    bool
}

func (g *GuardedProvider) FetchScore(ctx context.Context) (float64, bool, error) {
	if !g.limiter.Allow() {
		return 0, false, nil
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		score, ok, err := g.inner.FetchScore(ctx)
		if err != nil {
			return nil, err
		}
		return fetchResult{score: score, ok: ok}, nil
	})
	if err != nil {
		// breaker open or upstream failure: no opinion
		return 0, false, err
	}
	res := out.(fetchResult)
	return res.score, res.ok, nil
}

var _ domsvc.SentimentProvider = (*GuardedProvider)(nil)
