package model

import (
	"context"

	"github.com/harunnryd/tabi/internal/model/contract"
)

// ModelRouter sends a completion to the named model, falling back to the
// configured fallback model when the first choice fails. An empty model
// name selects the default.
type ModelRouter interface {
	Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	ListModels() []string
	Health(ctx context.Context) error
}

// Provider is one registered model.
type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
	Type() string
	Health(ctx context.Context) error
}
