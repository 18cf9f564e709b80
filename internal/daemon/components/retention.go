package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/daemon"
	"github.com/harunnryd/tabi/internal/retention"
)

type RetentionComponent struct {
	cfg       *config.RetentionConfig
	storeComp *ConversationStoreComponent

	mu     sync.RWMutex
	pruner *retention.Pruner
}

func NewRetentionComponent(cfg *config.RetentionConfig, storeComp *ConversationStoreComponent) *RetentionComponent {
	return &RetentionComponent{cfg: cfg, storeComp: storeComp}
}

func (r *RetentionComponent) Name() string {
	return "Retention"
}

func (r *RetentionComponent) Dependencies() []string {
	return []string{"ConversationStore"}
}

func (r *RetentionComponent) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cfg.Enabled {
		slog.Info("Retention disabled", "component", r.Name())
		return nil
	}
	if r.storeComp == nil || r.storeComp.GetStore() == nil {
		return fmt.Errorf("conversation store not initialized")
	}

	pruner, err := retention.NewPruner(r.storeComp.GetStore(), *r.cfg)
	if err != nil {
		return err
	}
	r.pruner = pruner
	return nil
}

func (r *RetentionComponent) Start(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pruner == nil {
		return nil
	}
	return r.pruner.Start(ctx)
}

func (r *RetentionComponent) Stop(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pruner == nil {
		return nil
	}
	return r.pruner.Stop(ctx)
}

func (r *RetentionComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pruner == nil {
		return daemon.Healthy(r.Name()), nil
	}
	if err := r.pruner.Health(ctx); err != nil {
		return daemon.Unhealthy(r.Name(), err), nil
	}
	return daemon.Healthy(r.Name()), nil
}
