package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/conversation"
)

// Daemon owns the lifecycle of the registered components: it initializes and
// starts them in dependency order and stops them in reverse.
type Daemon struct {
	cfg *config.Config

	mu           sync.RWMutex
	components   []Component
	initialized  []Component
	started      []Component
	health       HealthStatus
	forceCleanup bool

	monitorDone chan struct{}
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Daemon{
		cfg:         cfg,
		health:      StatusStarting,
		monitorDone: make(chan struct{}),
	}, nil
}

func (d *Daemon) AddComponent(comp Component) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.components = append(d.components, comp)
	slog.Info("Component registered", "component", comp.Name(), "total_components", len(d.components))
}

// Start runs the daemon until ctx is cancelled or the process receives
// SIGINT/SIGTERM, then shuts the components down in reverse order.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("Tabi daemon starting...", "store", d.cfg.Store.Path, "port", d.cfg.Server.Port)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.validateConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := d.preInitChecks(ctx, d.forceCleanupEnabled()); err != nil {
		return fmt.Errorf("pre-init checks failed: %w", err)
	}

	if err := d.initializeComponents(ctx); err != nil {
		d.rollback(context.Background())
		return fmt.Errorf("component initialization failed: %w", err)
	}

	if err := d.startComponents(ctx); err != nil {
		timeout := config.MustDuration(d.cfg.Daemon.StartupShutdownTimeout, config.DefaultDaemonStartupShutdownTimeout)
		d.gracefulShutdown(context.Background(), timeout)
		return fmt.Errorf("component startup failed: %w", err)
	}

	d.setHealth(StatusRunning)
	slog.Info("Tabi daemon is running", "components", len(d.components))
	go d.monitorHealth(ctx)

	<-ctx.Done()

	slog.Info("Context cancelled, initiating graceful shutdown", "reason", ctx.Err())
	d.setHealth(StatusStopping)
	close(d.monitorDone)

	timeout := config.MustDuration(d.cfg.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout)
	if err := d.gracefulShutdown(context.Background(), timeout); err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	return nil
}

func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.health
}

// SetForceCleanup makes the pre-init check remove the store lock file even
// when it is recent.
func (d *Daemon) SetForceCleanup(force bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forceCleanup = force
}

func (d *Daemon) forceCleanupEnabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.forceCleanup
}

func (d *Daemon) ComponentHealth() map[string]*ComponentHealth {
	d.mu.RLock()
	components := slices.Clone(d.components)
	d.mu.RUnlock()

	result := make(map[string]*ComponentHealth, len(components))
	for _, comp := range components {
		health, err := comp.Health(context.Background())
		if health == nil {
			health = &ComponentHealth{Name: comp.Name(), Healthy: err == nil}
		}
		if err != nil {
			health.Healthy = false
			health.Error = err
		}
		result[comp.Name()] = health
	}
	return result
}

// HealthErrors flattens ComponentHealth into name -> error, nil meaning
// healthy. It matches server.HealthFunc.
func (d *Daemon) HealthErrors(ctx context.Context) map[string]error {
	out := make(map[string]error)
	for name, h := range d.ComponentHealth() {
		switch {
		case h.Healthy:
			out[name] = nil
		case h.Error != nil:
			out[name] = h.Error
		default:
			out[name] = fmt.Errorf("unhealthy")
		}
	}
	return out
}

func (d *Daemon) Component(name string) Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.componentByName(name)
}

func (d *Daemon) componentByName(name string) Component {
	for _, comp := range d.components {
		if comp.Name() == name {
			return comp
		}
	}
	return nil
}

func (d *Daemon) setHealth(status HealthStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health = status
}

func (d *Daemon) validateConfig() error {
	if err := d.cfg.Validate(); err != nil {
		return err
	}

	storePath := strings.TrimSpace(d.cfg.Store.Path)
	if storePath == "" {
		return fmt.Errorf("store.path cannot be empty")
	}
	if err := os.MkdirAll(storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	slog.Info("Configuration validated", "store", storePath, "port", d.cfg.Server.Port)
	return nil
}

func (d *Daemon) preInitChecks(ctx context.Context, forceCleanup bool) error {
	timeout := config.MustDuration(d.cfg.Daemon.PreflightTimeout, config.DefaultDaemonPreflightTimeout)
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	staleLockTTL := config.MustDuration(d.cfg.Daemon.StaleLockTTL, config.DefaultDaemonStaleLockTTL)
	if err := conversation.CleanupStaleLocks(d.cfg.Store.Path, staleLockTTL, forceCleanup); err != nil {
		slog.Warn("Failed to cleanup stale locks", "store", d.cfg.Store.Path, "error", err)
	}

	if err := checkCtx.Err(); err != nil {
		return fmt.Errorf("pre-init checks cancelled: %w", err)
	}
	return nil
}

// initializeComponents runs Init in dependency order and records each
// component it reached, including the one that failed, for rollback.
func (d *Daemon) initializeComponents(ctx context.Context) error {
	d.mu.RLock()
	registered := slices.Clone(d.components)
	d.mu.RUnlock()

	order, err := dependencyOrder(registered)
	if err != nil {
		return fmt.Errorf("dependency validation failed: %w", err)
	}
	slog.Info("Initialization order resolved", "order", componentNames(order))

	for _, comp := range order {
		d.mu.Lock()
		d.initialized = append(d.initialized, comp)
		d.mu.Unlock()

		if err := comp.Init(ctx); err != nil {
			slog.Error("Component initialization failed", "component", comp.Name(), "error", err)
			return fmt.Errorf("component %s init failed: %w", comp.Name(), err)
		}
		slog.Info("Component initialized", "component", comp.Name())
	}
	return nil
}

// startComponents starts what initializeComponents prepared, or every
// registered component in registration order when Init was skipped.
func (d *Daemon) startComponents(ctx context.Context) error {
	d.mu.RLock()
	order := slices.Clone(d.initialized)
	if len(order) == 0 {
		order = slices.Clone(d.components)
	}
	d.mu.RUnlock()

	for _, comp := range order {
		if err := comp.Start(ctx); err != nil {
			slog.Error("Component startup failed", "component", comp.Name(), "error", err)
			return fmt.Errorf("component %s startup failed: %w", comp.Name(), err)
		}
		d.mu.Lock()
		d.started = append(d.started, comp)
		d.mu.Unlock()
		slog.Info("Component started", "component", comp.Name())
	}

	slog.Info("All components started", "count", len(order))
	return nil
}

func (d *Daemon) gracefulShutdown(ctx context.Context, timeout time.Duration) error {
	slog.Info("Graceful shutdown initiated", "timeout", timeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.shutdownComponents(shutdownCtx)
	}()

	select {
	case <-done:
		slog.Info("Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("shutdown cancelled: %w", ctx.Err())
		}
		slog.Error("Shutdown timeout exceeded", "timeout", timeout)
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// shutdownComponents stops components in reverse start order. Components
// that were registered but never started are stopped last, so a partial
// startup still releases every resource. A failing Stop is logged and the
// rest still run.
func (d *Daemon) shutdownComponents(ctx context.Context) {
	d.mu.RLock()
	order := slices.Clone(d.started)
	for _, comp := range slices.Backward(d.components) {
		if !slices.Contains(order, comp) {
			order = append([]Component{comp}, order...)
		}
	}
	d.mu.RUnlock()

	stopAll(ctx, order, "Component stop failed")
	d.setHealth(StatusStopped)
}

// rollback undoes a failed initialization: every component whose Init ran
// is stopped, newest first.
func (d *Daemon) rollback(ctx context.Context) {
	d.mu.RLock()
	reached := slices.Clone(d.initialized)
	d.mu.RUnlock()

	slog.Warn("Rolling back initialized components...", "count", len(reached))
	stopAll(ctx, reached, "Rollback failed")
	d.setHealth(StatusStopped)
}

// stopAll stops the components from the last to the first.
func stopAll(ctx context.Context, components []Component, failure string) {
	for _, comp := range slices.Backward(components) {
		if err := comp.Stop(ctx); err != nil {
			slog.Error(failure, "component", comp.Name(), "error", err)
			continue
		}
		slog.Info("Component stopped", "component", comp.Name())
	}
}

func (d *Daemon) monitorHealth(ctx context.Context) {
	interval := config.MustDuration(d.cfg.Daemon.HealthCheckInterval, config.DefaultDaemonHealthCheckInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.monitorDone:
			return
		case <-ticker.C:
			d.logUnhealthy()
		}
	}
}

func (d *Daemon) logUnhealthy() {
	healths := d.ComponentHealth()
	unhealthy := 0
	for name, health := range healths {
		if !health.Healthy {
			unhealthy++
			slog.Warn("Component unhealthy", "component", name, "error", health.Error)
		}
	}
	if unhealthy > 0 {
		slog.Warn("Daemon has unhealthy components", "count", unhealthy, "total", len(healths))
		return
	}
	slog.Debug("All components healthy", "count", len(healths))
}

func componentNames(components []Component) []string {
	names := make([]string, len(components))
	for i, comp := range components {
		names[i] = comp.Name()
	}
	return names
}
