package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RiskGate/pkg/logger"
)

// TaskFunc is one refresh cycle. It must respect ctx; a returned error is
// logged and the previous result stays authoritative.
type TaskFunc func(ctx context.Context) error

// Task is a named periodic job. Disabled tasks are registered but never
// started, so operators can switch refresh loops off per environment.
type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // per-run time box; 0 means no deadline
	Enabled  bool
	Run      TaskFunc
}

// Option configures Scheduler.
type Option func(*Scheduler)

// WithLatencyObserver wires a per-run latency callback (task name, seconds).
func WithLatencyObserver(fn func(task string, seconds float64)) Option {
	return func(s *Scheduler) {
		s.observe = fn
	}
}

// Scheduler drives independent periodic refresh loops on one shared stop
// signal. Each task runs in its own goroutine; a slow or failing task never
// delays the others.
type Scheduler struct {
	l       *logger.Logger
	observe func(task string, seconds float64)

	mu        sync.Mutex
	tasks     []Task
	stopCh    chan struct{}
	wg        sync.WaitGroup
	isRunning bool
}

// New creates a scheduler.
func New(l *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{l: l, stopCh: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a task. Must be called before Start.
func (s *Scheduler) Register(t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("scheduler already running")
	}
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("task name and func are required")
	}
	if t.Enabled && t.Interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", t.Name)
	}
	s.tasks = append(s.tasks, t)
	return nil
}

// Start launches one goroutine per enabled task. It does not block.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true

	for _, t := range s.tasks {
		if !t.Enabled {
			if s.l != nil {
				s.l.Info("task disabled", logger.String("task", t.Name))
			}
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
}

// Stop signals all task loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runOnce(ctx, t)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t Task) {
	runCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.safeRun(runCtx, t)
	if s.observe != nil {
		s.observe(t.Name, time.Since(start).Seconds())
	}
	if err != nil && s.l != nil {
		s.l.Warn("task run failed",
			logger.String("task", t.Name),
			logger.Error(err),
		)
	}
}

// safeRun contains a panicking task so one bad cycle cannot take the
// process down.
func (s *Scheduler) safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return t.Run(ctx)
}
