package components

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/harunnryd/tabi/internal/adapter"
	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/daemon"
	"github.com/harunnryd/tabi/internal/idempotency"
)

const slackEventsFile = "slack_events.json"

// AdaptersComponent runs the Slack and Telegram adapters enabled in config.
// With none enabled it stays idle and healthy.
type AdaptersComponent struct {
	cfg      *config.Config
	chatComp *ChatComponent

	mu          sync.RWMutex
	manager     *adapter.RuntimeManager
	dedup       *idempotency.Store
	initialized bool
	started     bool
}

func NewAdaptersComponent(cfg *config.Config, chatComp *ChatComponent) *AdaptersComponent {
	return &AdaptersComponent{cfg: cfg, chatComp: chatComp}
}

func (a *AdaptersComponent) Name() string {
	return "Adapters"
}

func (a *AdaptersComponent) Dependencies() []string {
	return []string{"Chat"}
}

func (a *AdaptersComponent) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chatComp == nil || a.chatComp.GetOrchestrator() == nil {
		return fmt.Errorf("chat component not initialized")
	}

	opts := adapter.RuntimeAdapterOptions{RequireSlackSecrets: true}
	if a.cfg.Adapters.Slack.Enabled {
		dedup, err := idempotency.NewStore(filepath.Join(a.cfg.Store.Path, slackEventsFile))
		if err != nil {
			return fmt.Errorf("open slack event dedup store: %w", err)
		}
		a.dedup = dedup
		opts.SlackDedup = dedup
	}

	manager, err := adapter.NewRuntimeManager(a.cfg.Adapters, adapter.NewChatBridge(a.chatComp.GetOrchestrator()), opts)
	if err != nil {
		return fmt.Errorf("failed to configure adapters: %w", err)
	}
	a.manager = manager
	a.initialized = true

	slog.Info("Adapters initialized", "component", a.Name(), "adapters", manager.Names())
	return nil
}

func (a *AdaptersComponent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return fmt.Errorf("adapters component not initialized")
	}
	a.manager.Start(ctx)
	a.started = true
	slog.Info("Adapters started", "component", a.Name())
	return nil
}

func (a *AdaptersComponent) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}
	err := a.manager.Stop(ctx)
	a.started = false
	if a.dedup != nil {
		a.dedup.Prune()
		if saveErr := a.dedup.Save(); saveErr != nil {
			slog.Warn("Failed to save slack event dedup store", "error", saveErr)
		}
	}
	if err != nil {
		return err
	}
	slog.Info("Adapters stopped", "component", a.Name())
	return nil
}

func (a *AdaptersComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.initialized {
		return daemon.Unhealthy(a.Name(), fmt.Errorf("not initialized")), nil
	}
	if !a.started {
		return daemon.Unhealthy(a.Name(), fmt.Errorf("not started")), nil
	}
	if err := a.manager.Health(ctx); err != nil {
		return daemon.Unhealthy(a.Name(), err), nil
	}
	return daemon.Healthy(a.Name()), nil
}
