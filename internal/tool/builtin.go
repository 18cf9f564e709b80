package tool

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/harunnryd/tabi/internal/search"
	"github.com/harunnryd/tabi/internal/widget"
)

// BuiltinOptions carries what the travel tool factories need at construction.
type BuiltinOptions struct {
	Search    search.Provider
	Formatter *widget.Formatter
	// HotelCurrency is the ISO code hotel prices come back in.
	HotelCurrency string
}

type BuiltinFactory func(options BuiltinOptions) (Tool, error)

var (
	builtinMu        sync.RWMutex
	builtinFactories = map[string]BuiltinFactory{}
)

// RegisterBuiltin adds a travel tool factory. Tool files call it from init;
// an empty name, a nil factory or a duplicate is a programming error.
func RegisterBuiltin(name string, factory BuiltinFactory) {
	normalized := NormalizeToolName(name)
	switch {
	case normalized == "":
		panic("tool: built-in name cannot be empty")
	case factory == nil:
		panic(fmt.Sprintf("tool: nil factory for built-in %s", normalized))
	}

	builtinMu.Lock()
	defer builtinMu.Unlock()
	if _, dup := builtinFactories[normalized]; dup {
		panic(fmt.Sprintf("tool: built-in %s registered twice", normalized))
	}
	builtinFactories[normalized] = factory
}

// BuiltinNames lists registered built-ins in sorted order.
func BuiltinNames() []string {
	builtinMu.RLock()
	defer builtinMu.RUnlock()
	return slices.Sorted(maps.Keys(builtinFactories))
}

// InstantiateBuiltins builds every registered tool, sorted by name. All tools
// share one search provider and formatter.
func InstantiateBuiltins(options BuiltinOptions) ([]Tool, error) {
	if options.Search == nil {
		return nil, fmt.Errorf("built-in tools need a search provider")
	}
	if options.Formatter == nil {
		options.Formatter = widget.NewFormatter()
	}

	builtinMu.RLock()
	factories := maps.Clone(builtinFactories)
	builtinMu.RUnlock()

	tools := make([]Tool, 0, len(factories))
	for _, name := range slices.Sorted(maps.Keys(factories)) {
		t, err := factories[name](options)
		if err != nil {
			return nil, fmt.Errorf("instantiate built-in %q: %w", name, err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}
