package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/tabi/internal/config"
	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/metrics"

	"github.com/robfig/cron/v3"
)

// Store is the part of the conversation store the pruner needs.
type Store interface {
	Prune(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Pruner deletes conversations idle for longer than MaxAge, on a cron
// schedule.
type Pruner struct {
	store    Store
	schedule cron.Schedule
	expr     string
	maxAge   time.Duration

	mu      sync.RWMutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	lastRun time.Time
	lastErr error

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func NewPruner(store Store, cfg config.RetentionConfig) (*Pruner, error) {
	expr := cfg.Schedule
	if expr == "" {
		expr = config.DefaultRetentionSchedule
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid retention.schedule %q: %w", expr, err)
	}

	maxAge, err := config.DurationOrDefault(cfg.MaxAge, config.DefaultRetentionMaxAge)
	if err != nil {
		return nil, fmt.Errorf("parse retention max age: %w", err)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention.max_age must be positive, got %s", maxAge)
	}

	return &Pruner{store: store, schedule: schedule, expr: expr, maxAge: maxAge, Now: time.Now}, nil
}

// RunOnce prunes every conversation last updated before now - MaxAge.
func (p *Pruner) RunOnce(ctx context.Context) ([]string, error) {
	now := p.Now()
	removed, err := p.store.Prune(ctx, now.Add(-p.maxAge))

	p.mu.Lock()
	p.lastRun = now
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		slog.Error("Conversation pruning failed", "error", err)
		return nil, err
	}
	metrics.ConversationsPruned.Add(float64(len(removed)))
	if len(removed) > 0 {
		slog.Info("Pruned idle conversations", "count", len(removed), "max_age", p.maxAge)
	} else {
		slog.Debug("No idle conversations to prune", "max_age", p.maxAge)
	}
	return removed, nil
}

// Next returns the first scheduled run after t.
func (p *Pruner) Next(t time.Time) time.Time {
	return p.schedule.Next(t)
}

func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	go p.run(runCtx)
	slog.Info("Retention pruner started", "schedule", p.expr, "max_age", p.maxAge, "next_run", p.Next(p.Now()))
	return nil
}

func (p *Pruner) run(ctx context.Context) {
	defer close(p.done)
	for {
		wait := p.Next(p.Now()).Sub(p.Now())
		timer := time.NewTimer(max(wait, 0))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			_, _ = p.RunOnce(ctx)
		}
	}
}

func (p *Pruner) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
		slog.Info("Retention pruner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pruner) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Health fails when the pruner is stopped or its last run failed.
func (p *Pruner) Health(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return tabiErrors.Internal("retention pruner not running")
	}
	if p.lastErr != nil {
		return tabiErrors.Wrap(p.lastErr, "last retention run failed")
	}
	return nil
}
