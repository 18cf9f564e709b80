package tooling

import (
	"fmt"
	"log/slog"

	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/search"
	"github.com/harunnryd/tabi/internal/tool"
	_ "github.com/harunnryd/tabi/internal/tool/builtin"
	"github.com/harunnryd/tabi/internal/widget"
)

type Components struct {
	Search     search.Provider
	Registry   *tool.Registry
	Dispatcher *tool.Dispatcher

	closers []func() error
}

// Close releases connections opened by Build (the redis cache client).
func (c *Components) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func Build(cfg *config.Config) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	provider, closers, err := buildSearch(cfg)
	if err != nil {
		return nil, err
	}

	toolTimeout, err := config.DurationOrDefault(cfg.Chat.ToolTimeout, config.DefaultChatToolTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse chat.tool_timeout: %w", err)
	}

	toolRegistry := tool.NewRegistry()
	builtins, err := tool.InstantiateBuiltins(tool.BuiltinOptions{
		Search:        provider,
		Formatter:     widget.NewFormatter(),
		HotelCurrency: cfg.Providers.SerpAPI.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("instantiate built-in tools: %w", err)
	}
	for _, builtin := range builtins {
		toolRegistry.Register(builtin)
	}
	slog.Info("Built-in tools registered", "count", len(builtins))

	return &Components{
		Search:     provider,
		Registry:   toolRegistry,
		Dispatcher: tool.NewDispatcher(toolRegistry, toolTimeout),
		closers:    closers,
	}, nil
}
