package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/harunnryd/tabi/internal/config"
	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/logger"
	"github.com/harunnryd/tabi/internal/model/contract"
	anthropicProvider "github.com/harunnryd/tabi/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/tabi/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/tabi/internal/model/providers/openai"
)

// clientFactory builds the vendor client for one registry entry.
type clientFactory func(entry config.ModelRegistry) (generator, error)

var clientFactories = map[string]clientFactory{
	"openai": func(e config.ModelRegistry) (generator, error) {
		if err := requireKey(e); err != nil {
			return nil, err
		}
		return openaiProvider.New(e.APIKey, orDefault(e.BaseURL, config.DefaultOpenAIBaseURL)), nil
	},
	// ollama speaks the OpenAI wire format and needs no real key.
	"ollama": func(e config.ModelRegistry) (generator, error) {
		return openaiProvider.New(orDefault(e.APIKey, config.DefaultOllamaAPIKey), orDefault(e.BaseURL, config.DefaultOllamaBaseURL)), nil
	},
	"anthropic": func(e config.ModelRegistry) (generator, error) {
		if err := requireKey(e); err != nil {
			return nil, err
		}
		return anthropicProvider.New(e.APIKey, e.BaseURL, config.DefaultAnthropicMaxTokens), nil
	},
	"gemini": func(e config.ModelRegistry) (generator, error) {
		if err := requireKey(e); err != nil {
			return nil, err
		}
		client, err := geminiProvider.New(e.APIKey)
		if err != nil {
			return nil, tabiErrors.WrapWithCategory(err, "failed to create Gemini provider", tabiErrors.ErrInternal)
		}
		return client, nil
	},
}

func requireKey(e config.ModelRegistry) error {
	if strings.TrimSpace(e.APIKey) == "" {
		return tabiErrors.InvalidInput(fmt.Sprintf("API key required for %s provider", e.Provider))
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// DefaultModelRouter sends a turn to the requested model and, when that
// model is missing or fails, to the configured fallback. Every failure it
// returns is categorized ErrModelCommunication unless the caller's context
// ended first.
type DefaultModelRouter struct {
	cfg       config.ModelsConfig
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewModelRouter registers every model in cfg.Registry that can be built.
// Entries without credentials are skipped with a warning so the daemon still
// starts; turns then fail until a key is configured.
func NewModelRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	providers := make(map[string]Provider, len(cfg.Registry))
	for _, entry := range cfg.Registry {
		factory, ok := clientFactories[entry.Provider]
		if !ok {
			slog.Warn("Unknown model provider", "provider", entry.Provider, "model", entry.Name)
			continue
		}
		client, err := factory(entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}
		providers[entry.Name] = &ProviderAdapter{provider: client, name: entry.Name, providerType: entry.Provider}
		slog.Info("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}
	if len(providers) == 0 && len(cfg.Registry) > 0 {
		slog.Warn("No model providers initialized; chat requests will fail until an API key is configured")
	}
	return NewModelRouterWithProviders(cfg, providers), nil
}

// NewModelRouterWithProviders builds a router over already constructed
// providers keyed by model name.
func NewModelRouterWithProviders(cfg config.ModelsConfig, providers map[string]Provider) *DefaultModelRouter {
	r := &DefaultModelRouter{cfg: cfg, providers: make(map[string]Provider, len(providers))}
	maps.Copy(r.providers, providers)
	return r
}

func (r *DefaultModelRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	traceID := logger.GetTraceID(ctx)
	if err := ctx.Err(); err != nil {
		return nil, tabiErrors.Wrap(err, "provider resolution cancelled")
	}

	candidates, err := r.candidates(model)
	if err != nil {
		slog.Warn("No model available", "model", model, "error", err, "trace_id", traceID)
		return nil, err
	}

	var lastErr error
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, tabiErrors.Wrap(err, "request execution cancelled")
		}
		if i > 0 {
			slog.Info("Attempting fallback", "from", candidates[i-1].name, "to", c.name, "trace_id", traceID)
		}

		req.Model = c.name
		resp, err := c.provider.Generate(ctx, req)
		if err == nil {
			slog.Info("Request completed", "model", c.name, "attempt", i+1, "trace_id", traceID)
			return resp, nil
		}
		slog.Error("Provider request failed", "model", c.name, "attempt", i+1, "error", err, "trace_id", traceID)
		if ctx.Err() != nil {
			return nil, tabiErrors.Wrap(ctx.Err(), "provider request cancelled")
		}
		lastErr = err
	}

	if tabiErrors.IsCategory(lastErr, tabiErrors.ErrModelCommunication) {
		return nil, lastErr
	}
	return nil, tabiErrors.WrapWithCategory(lastErr, "provider request failed", tabiErrors.ErrModelCommunication)
}

type candidate struct {
	name     string
	provider Provider
}

// candidates lists the models a turn may try, in order: the requested (or
// default) model, then the fallback. At most MaxFallbackAttempts entries.
func (r *DefaultModelRouter) candidates(model string) ([]candidate, error) {
	if model == "" {
		model = r.cfg.Default
	}
	limit := r.cfg.MaxFallbackAttempts
	if limit <= 0 {
		limit = config.DefaultModelMaxFallbackAttempts
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []candidate
	for _, name := range []string{model, r.cfg.Fallback} {
		if name == "" || slices.ContainsFunc(out, func(c candidate) bool { return c.name == name }) {
			continue
		}
		p, ok := r.providers[name]
		if !ok {
			if name == model {
				slog.Warn("Model not found", "model", model)
			}
			continue
		}
		out = append(out, candidate{name: name, provider: p})
	}
	if len(out) == 0 {
		return nil, tabiErrors.ModelCommunication(fmt.Sprintf("model %s not found", model))
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.providers))
}

// Health is ok while the default route can serve a turn: the default model
// or its fallback is healthy. Other unhealthy models are only logged.
func (r *DefaultModelRouter) Health(ctx context.Context) error {
	r.mu.RLock()
	registered := len(r.providers)
	r.mu.RUnlock()
	if registered == 0 {
		return tabiErrors.ModelCommunication("no model providers configured")
	}

	candidates, err := r.candidates("")
	if err != nil {
		return err
	}

	var failures []error
	for _, c := range candidates {
		err := c.provider.Health(ctx)
		if err == nil {
			return nil
		}
		slog.Warn("Provider unhealthy", "provider", c.name, "error", err)
		failures = append(failures, fmt.Errorf("%s: %w", c.name, err))
	}
	return tabiErrors.WrapWithCategory(errors.Join(failures...), "no healthy model provider", tabiErrors.ErrModelCommunication)
}
