package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/conversation"
	"github.com/harunnryd/tabi/internal/daemon"
)

type ConversationStoreComponent struct {
	storeCfg    *config.StoreConfig
	store       *conversation.Store
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewConversationStoreComponent(storeCfg *config.StoreConfig) *ConversationStoreComponent {
	return &ConversationStoreComponent{storeCfg: storeCfg}
}

func (s *ConversationStoreComponent) Name() string {
	return "ConversationStore"
}

func (s *ConversationStoreComponent) Dependencies() []string {
	return []string{}
}

func (s *ConversationStoreComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("ConversationStore init cancelled: %w", ctx.Err())
	default:
	}

	if s.storeCfg == nil || strings.TrimSpace(s.storeCfg.Path) == "" {
		return fmt.Errorf("store.path is not configured")
	}

	lockTimeout, err := config.DurationOrDefault(s.storeCfg.LockTimeout, config.DefaultStoreLockTimeout)
	if err != nil {
		return fmt.Errorf("parse store lock timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(s.storeCfg.LockRetry, config.DefaultStoreLockRetry)
	if err != nil {
		return fmt.Errorf("parse store lock retry: %w", err)
	}

	store, err := conversation.Open(s.storeCfg.Path, conversation.RuntimeConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: s.storeCfg.LockMaxRetry,
		InboxSize:    s.storeCfg.InboxSize,
	})
	if err != nil {
		if strings.Contains(err.Error(), "is locked by another instance") {
			return fmt.Errorf("conversation store %s is in use by another tabi process: %w", s.storeCfg.Path, err)
		}
		return fmt.Errorf("failed to open conversation store: %w", err)
	}

	s.store = store
	s.initialized = true
	slog.Info("ConversationStore initialized", "component", s.Name(), "path", store.Path())
	return nil
}

func (s *ConversationStoreComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("ConversationStore not initialized")
	}

	s.store.Start()
	s.started = true
	slog.Info("ConversationStore started", "component", s.Name())
	return nil
}

// Stop also releases the store lock when the component was initialized
// but never started, which is the rollback path.
func (s *ConversationStoreComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil
	}

	slog.Info("Stopping ConversationStore...", "component", s.Name())
	s.store.Stop()
	s.started = false
	slog.Info("ConversationStore stopped", "component", s.Name())
	return nil
}

func (s *ConversationStoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case !s.initialized:
		return daemon.Unhealthy(s.Name(), fmt.Errorf("not initialized")), nil
	case !s.started:
		return daemon.Unhealthy(s.Name(), fmt.Errorf("not started")), nil
	case !s.store.IsRunning():
		return daemon.Unhealthy(s.Name(), fmt.Errorf("loop not running")), nil
	}
	return daemon.Healthy(s.Name()), nil
}

func (s *ConversationStoreComponent) GetStore() *conversation.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}
