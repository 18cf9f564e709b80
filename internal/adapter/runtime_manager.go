package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/harunnryd/tabi/internal/concurrency"
	"github.com/harunnryd/tabi/internal/config"

	"github.com/samber/lo"
)

type RuntimeAdapterOptions struct {
	RequireSlackSecrets bool
	// SlackDedup drops redelivered Slack events.
	SlackDedup Deduper
}

// RuntimeManager owns the chat platform adapters enabled in config.
type RuntimeManager struct {
	mu        sync.RWMutex
	platforms []Platform
	runErrs   map[string]error
	running   sync.WaitGroup
	started   bool
}

func NewRuntimeManager(cfg config.AdaptersConfig, eventHandler EventHandler, opts RuntimeAdapterOptions) (*RuntimeManager, error) {
	m := &RuntimeManager{runErrs: make(map[string]error)}

	if cfg.Slack.Enabled {
		if opts.RequireSlackSecrets && strings.TrimSpace(cfg.Slack.SigningSecret) == "" {
			return nil, fmt.Errorf("adapters.slack.signing_secret is required when slack adapter is enabled")
		}
		if strings.TrimSpace(cfg.Slack.BotToken) == "" {
			return nil, fmt.Errorf("adapters.slack.bot_token is required when slack adapter is enabled")
		}

		m.platforms = append(m.platforms, NewSlackAdapter(SlackOptions{
			Port:          cfg.Slack.Port,
			SigningSecret: cfg.Slack.SigningSecret,
			BotToken:      cfg.Slack.BotToken,
			Dedup:         opts.SlackDedup,
			DedupTTL:      config.MustDuration(cfg.Slack.DedupTTL, config.DefaultSlackDedupTTL),
		}, eventHandler))
	}

	if cfg.Telegram.Enabled {
		token := strings.TrimSpace(cfg.Telegram.BotToken)
		if token == "" {
			return nil, fmt.Errorf("adapters.telegram.bot_token is required when telegram adapter is enabled")
		}
		m.platforms = append(m.platforms, NewTelegramAdapter(token, eventHandler, cfg.Telegram.UpdateTimeout))
	}

	return m, nil
}

func (m *RuntimeManager) Platforms() []Platform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.platforms)
}

func (m *RuntimeManager) Names() []string {
	return lo.Map(m.Platforms(), func(p Platform, _ int) string { return p.Name() })
}

// Start runs every adapter in its own goroutine. An adapter that exits
// with an error while ctx is live is reported by Health.
func (m *RuntimeManager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	clear(m.runErrs)
	platforms := slices.Clone(m.platforms)
	m.mu.Unlock()

	for _, p := range platforms {
		concurrency.Go(&m.running, "adapter-"+p.Name(), func() {
			slog.Info("Starting adapter", "adapter", p.Name())
			if err := p.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Adapter stopped with error", "adapter", p.Name(), "error", err)
				m.mu.Lock()
				m.runErrs[p.Name()] = err
				m.mu.Unlock()
			}
		})
	}
}

func (m *RuntimeManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	platforms := slices.Clone(m.platforms)
	m.mu.Unlock()

	var errs []error
	for _, p := range platforms {
		if err := p.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.running.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for adapters: %w", ctx.Err()))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to stop adapters: %w", err)
	}
	return nil
}

func (m *RuntimeManager) Health(ctx context.Context) error {
	m.mu.RLock()
	platforms := slices.Clone(m.platforms)
	runErrs := make(map[string]error, len(m.runErrs))
	for name, err := range m.runErrs {
		runErrs[name] = err
	}
	m.mu.RUnlock()

	for _, p := range platforms {
		if err := runErrs[p.Name()]; err != nil {
			return fmt.Errorf("adapter %s exited: %w", p.Name(), err)
		}
		if err := p.Health(ctx); err != nil {
			return fmt.Errorf("adapter %s unhealthy: %w", p.Name(), err)
		}
	}
	return nil
}
