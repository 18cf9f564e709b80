package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/harunnryd/tabi/internal/logger"
	"github.com/harunnryd/tabi/internal/metrics"
	"github.com/harunnryd/tabi/internal/model/contract"
)

// UnknownToolText is returned for tools that do not exist, arguments that
// fail validation, and tools that error out.
const UnknownToolText = "I'm sorry, I could not process that request."

const DefaultTimeout = 20 * time.Second

// Invocation is one model-requested tool call.
type Invocation struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// Dispatcher routes invocations to registered tools. Dispatch never fails:
// every outcome is text for the user.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
}

func NewDispatcher(registry *Registry, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{registry: registry, timeout: timeout}
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) Definitions() []contract.ToolDef {
	if d == nil || d.registry == nil {
		return nil
	}
	return d.registry.Definitions()
}

func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) string {
	name := NormalizeToolName(inv.Name)
	traceID := logger.GetTraceID(ctx)
	slog.Info("Dispatching tool", "tool", name, "args", inv.Args, "trace_id", traceID)

	t, ok := d.registry.Get(name)
	if !ok {
		slog.Warn("Unknown tool requested", "tool", name, "trace_id", traceID)
		metrics.ToolDispatches.WithLabelValues("unknown", "unknown_tool").Inc()
		return UnknownToolText
	}

	schema := t.Parameters()
	args := CoerceArgs(schema, NormalizeArgs(schema, inv.Args))
	if ig, ok := t.(ArgumentIgnorer); ok {
		for _, key := range ig.IgnoredArgs() {
			delete(args, key)
		}
	}
	input, err := json.Marshal(args)
	if err != nil {
		slog.Warn("Tool arguments not encodable", "tool", name, "error", err, "trace_id", traceID)
		metrics.ToolDispatches.WithLabelValues(name, "invalid_args").Inc()
		return UnknownToolText
	}

	if err := ValidateInput(schema, input); err != nil {
		slog.Warn("Tool input validation failed", "tool", name, "error", err, "trace_id", traceID)
		metrics.ToolDispatches.WithLabelValues(name, "invalid_args").Inc()
		return UnknownToolText
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result, err := t.Execute(ctx, input)
	duration := time.Since(start)
	metrics.ToolDispatchDuration.WithLabelValues(name).Observe(duration.Seconds())

	if err != nil {
		slog.Error("Tool execution failed", "tool", name, "error", err, "duration", duration, "trace_id", traceID)
		metrics.ToolDispatches.WithLabelValues(name, "error").Inc()
		return UnknownToolText
	}

	slog.Info("Tool execution success", "tool", name, "duration", duration, "trace_id", traceID)
	metrics.ToolDispatches.WithLabelValues(name, "ok").Inc()
	return result
}
