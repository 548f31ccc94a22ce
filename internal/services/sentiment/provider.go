package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domsvc "RiskGate/internal/domain/service"
)

// StaticProvider always reports a fixed score. Used for wiring tests and as
// a floor opinion in demo environments.
type StaticProvider struct {
	name   string
	weight float64
	score  float64
}

func NewStaticProvider(name string, weight, score float64) *StaticProvider {
	return &StaticProvider{name: name, weight: weight, score: score}
}

func (p *StaticProvider) Name() string    { return p.name }
func (p *StaticProvider) Weight() float64 { return p.weight }

func (p *StaticProvider) FetchScore(_ context.Context) (float64, bool, error) {
	return p.score, true, nil
}

// HTTPProvider polls a JSON endpoint for a sentiment reading. A non-200
// response or an out-of-range score is "no opinion".
type HTTPProvider struct {
	name   string
	weight float64
	url    string
	client *http.Client
}

func NewHTTPProvider(name string, weight float64, url string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		name:   name,
		weight: weight,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() string    { return p.name }
func (p *HTTPProvider) Weight() float64 { return p.weight }

type scoreResponse struct {
	Score *float64 `json:"score"`
}

func (p *HTTPProvider) FetchScore(ctx context.Context) (float64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return 0, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("fetch %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("fetch %s: status %d", p.name, resp.StatusCode)
	}

	var sr scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return 0, false, fmt.Errorf("decode %s: %w", p.name, err)
	}
	if sr.Score == nil || *sr.Score < 0 || *sr.Score > 100 {
		// an absent or bogus reading is no opinion, not a zero score
		return 0, false, nil
	}
	return *sr.Score, true, nil
}

var (
	_ domsvc.SentimentProvider = (*StaticProvider)(nil)
	_ domsvc.SentimentProvider = (*HTTPProvider)(nil)
)
