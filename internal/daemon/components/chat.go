package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/tabi/internal/chat"
	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/daemon"
	"github.com/harunnryd/tabi/internal/model"
	"github.com/harunnryd/tabi/internal/tool"
	"github.com/harunnryd/tabi/internal/tooling"
)

// ChatComponent wires the model router, the search-backed tool dispatcher
// and the conversation store into a chat.Orchestrator.
type ChatComponent struct {
	cfg       *config.Config
	storeComp *ConversationStoreComponent

	mu           sync.RWMutex
	router       model.ModelRouter
	tools        *tooling.Components
	orchestrator *chat.Orchestrator
	initialized  bool
}

func NewChatComponent(cfg *config.Config, storeComp *ConversationStoreComponent) *ChatComponent {
	return &ChatComponent{cfg: cfg, storeComp: storeComp}
}

// WithRouter replaces the config-built model router.
func (c *ChatComponent) WithRouter(router model.ModelRouter) *ChatComponent {
	c.router = router
	return c
}

func (c *ChatComponent) Name() string {
	return "Chat"
}

func (c *ChatComponent) Dependencies() []string {
	return []string{"ConversationStore"}
}

func (c *ChatComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storeComp == nil {
		return fmt.Errorf("conversation store component not provided")
	}
	store := c.storeComp.GetStore()
	if store == nil {
		return fmt.Errorf("conversation store not initialized")
	}

	if c.router == nil {
		router, err := model.NewModelRouter(c.cfg.Models)
		if err != nil {
			return fmt.Errorf("failed to initialize model router: %w", err)
		}
		c.router = router
	}

	tools, err := tooling.Build(c.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize tooling: %w", err)
	}
	c.tools = tools

	modelTimeout, err := config.DurationOrDefault(c.cfg.Chat.ModelTimeout, config.DefaultChatModelTimeout)
	if err != nil {
		return fmt.Errorf("parse chat.model_timeout: %w", err)
	}

	c.orchestrator = chat.New(c.router, tools.Dispatcher, store, chat.Options{
		Model:           c.cfg.Models.Default,
		SystemPrompt:    c.cfg.Chat.SystemPrompt,
		ModelTimeout:    modelTimeout,
		HistoryLimit:    c.cfg.Chat.HistoryLimit,
		MaxMessageChars: c.cfg.Chat.MaxMessageChars,
	})
	c.initialized = true

	slog.Info("Chat initialized", "component", c.Name(), "model", c.cfg.Models.Default, "tools", len(tools.Registry.GetDescriptors()))
	return nil
}

func (c *ChatComponent) Start(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return fmt.Errorf("Chat not initialized")
	}
	return nil
}

func (c *ChatComponent) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tools == nil {
		return nil
	}
	err := c.tools.Close()
	c.tools = nil
	return err
}

// Health reports the model router; search backends never fail a turn so
// they are not part of it.
func (c *ChatComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return daemon.Unhealthy(c.Name(), fmt.Errorf("not initialized")), nil
	}
	if err := c.router.Health(ctx); err != nil {
		return daemon.Unhealthy(c.Name(), err), nil
	}
	return daemon.Healthy(c.Name()), nil
}

func (c *ChatComponent) GetOrchestrator() *chat.Orchestrator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orchestrator
}

func (c *ChatComponent) GetToolRegistry() *tool.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tools == nil {
		return nil
	}
	return c.tools.Registry
}
