package model

import (
	"context"
	"fmt"

	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/model/contract"
)

// generator is implemented by every vendor client under providers/.
type generator interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// ProviderAdapter gives a vendor client the registry name and type the
// router addresses it by.
type ProviderAdapter struct {
	provider     generator
	name         string
	providerType string
}

func (a *ProviderAdapter) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if a.provider == nil {
		return nil, tabiErrors.ModelCommunication(fmt.Sprintf("model %s has no client", a.name))
	}
	resp, err := a.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, tabiErrors.ModelCommunication(fmt.Sprintf("model %s returned no response", a.name))
	}
	return resp, nil
}

func (a *ProviderAdapter) Name() string {
	return a.name
}

func (a *ProviderAdapter) Type() string {
	return a.providerType
}

// Health only checks that a client is configured; vendor APIs are not
// called.
func (a *ProviderAdapter) Health(ctx context.Context) error {
	if a.provider == nil {
		return fmt.Errorf("model %s has no client", a.name)
	}
	return nil
}
