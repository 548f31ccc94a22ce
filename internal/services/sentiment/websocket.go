package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	domsvc "RiskGate/internal/domain/service"
	"RiskGate/pkg/logger"

	"github.com/gorilla/websocket"
)

const wsPingInterval = 30 * time.Second

// WSProvider is a streaming sentiment source. A background loop keeps a
// websocket open and records the most recent pushed score; FetchScore
// returns that reading as long as it is younger than staleAfter.
type WSProvider struct {
	name       string
	weight     float64
	url        string
	staleAfter time.Duration
	l          *logger.Logger

	mu      sync.RWMutex
	score   float64
	updated time.Time
}

func NewWSProvider(name string, weight float64, url string, staleAfter time.Duration, l *logger.Logger) *WSProvider {
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &WSProvider{name: name, weight: weight, url: url, staleAfter: staleAfter, l: l}
}

func (p *WSProvider) Name() string    { return p.name }
func (p *WSProvider) Weight() float64 { return p.weight }

// FetchScore returns the latest streamed reading, or no opinion when the
// stream has gone quiet.
func (p *WSProvider) FetchScore(_ context.Context) (float64, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.updated.IsZero() || time.Since(p.updated) > p.staleAfter {
		return 0, false, nil
	}
	return p.score, true, nil
}

// Start runs the connect/read loop until ctx is cancelled, reconnecting
// with backoff after failures.
func (p *WSProvider) Start(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := p.readLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		if p.l != nil {
			p.l.Warn("sentiment stream disconnected",
				logger.String("provider", p.name),
				logger.Error(err),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = time.Duration(math.Min(float64(backoff*2), float64(30*time.Second)))
	}
}

type wsFrame struct {
	Score *float64 `json:"score"`
}

func (p *WSProvider) readLoop(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.name, err)
	}
	defer conn.Close()

	// ping loop
	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read %s: %w", p.name, err)
		}
		var f wsFrame
		if err := json.Unmarshal(b, &f); err != nil {
			// ignore non-score frames
			continue
		}
		if f.Score == nil || *f.Score < 0 || *f.Score > 100 {
			continue
		}
		p.mu.Lock()
		p.score = *f.Score
		p.updated = time.Now()
		p.mu.Unlock()
	}
}

var _ domsvc.SentimentProvider = (*WSProvider)(nil)
