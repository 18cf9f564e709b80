package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/tabi/internal/config"
)

type mockComponent struct {
	name         string
	dependencies []string
	initCalled   bool
	startCalled  bool
	stopCalled   bool
	healthCalled bool
	initError    error
	startError   error
	stopError    error
	healthError  error
	healthResult *ComponentHealth
}

func newMockComponent(name string, dependencies []string) *mockComponent {
	return &mockComponent{
		name:         name,
		dependencies: dependencies,
		healthResult: &ComponentHealth{
			Name:    name,
			Healthy: true,
		},
	}
}

func (m *mockComponent) Name() string {
	return m.name
}

func (m *mockComponent) Dependencies() []string {
	return m.dependencies
}

func (m *mockComponent) Init(ctx context.Context) error {
	m.initCalled = true
	return m.initError
}

func (m *mockComponent) Start(ctx context.Context) error {
	m.startCalled = true
	return m.startError
}

func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopCalled = true
	return m.stopError
}

func (m *mockComponent) Health(ctx context.Context) (*ComponentHealth, error) {
	m.healthCalled = true
	return m.healthResult, m.healthError
}

func TestNewDaemon(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{
			name:    "valid daemon",
			cfg:     &config.Config{},
			wantErr: false,
		},
		{
			name:    "nil config",
			cfg:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDaemon(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDaemon() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if len(d.components) != 0 {
					t.Errorf("components = %v, want 0", len(d.components))
				}
				if d.Health() != StatusStarting {
					t.Errorf("Health = %v, want StatusStarting", d.Health())
				}
			}
		})
	}
}

func TestValidateConfig_CreatesStoreDir(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "nested", "conversations")
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Store:  config.StoreConfig{Path: storePath},
	}

	d, err := NewDaemon(cfg)
	if err != nil {
		t.Fatalf("NewDaemon() failed: %v", err)
	}

	if err := d.validateConfig(); err != nil {
		t.Fatalf("validateConfig() failed: %v", err)
	}

	if _, err := os.Stat(storePath); err != nil {
		t.Fatalf("expected store path to exist at %s: %v", storePath, err)
	}
}

func TestValidateConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{name: "bad port", cfg: &config.Config{Server: config.ServerConfig{Port: 70000}, Store: config.StoreConfig{Path: t.TempDir()}}},
		{name: "empty store path", cfg: &config.Config{Server: config.ServerConfig{Port: 8080}}},
		{name: "bad duration", cfg: &config.Config{Server: config.ServerConfig{Port: 8080, ReadTimeout: "fast"}, Store: config.StoreConfig{Path: t.TempDir()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := NewDaemon(tt.cfg)
			if err := d.validateConfig(); err == nil {
				t.Error("validateConfig() error = nil, want error")
			}
		})
	}
}

func TestPreInitChecks_RemovesStaleLock(t *testing.T) {
	storePath := t.TempDir()
	lockPath := filepath.Join(storePath, "store.lock")
	if err := os.WriteFile(lockPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatal(err)
	}

	d, _ := NewDaemon(&config.Config{
		Store:  config.StoreConfig{Path: storePath},
		Daemon: config.DaemonConfig{StaleLockTTL: "1m"},
	})
	if err := d.preInitChecks(context.Background(), false); err != nil {
		t.Fatalf("preInitChecks() error = %v", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("lock removed without force: %v", err)
	}

	if err := d.preInitChecks(context.Background(), true); err != nil {
		t.Fatalf("preInitChecks() error = %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Errorf("stale lock still present: %v", err)
	}
}

func TestAddComponent(t *testing.T) {
	d, _ := NewDaemon(&config.Config{})

	d.AddComponent(newMockComponent("Comp1", []string{}))
	d.AddComponent(newMockComponent("Comp2", []string{"Comp1"}))

	if len(d.components) != 2 {
		t.Errorf("components = %v, want 2", len(d.components))
	}
	if got := d.Component("Comp2"); got == nil || got.Name() != "Comp2" {
		t.Errorf("Component(Comp2) = %v", got)
	}
}

func TestInitializeComponents(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{"Comp1"})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	ctx := context.Background()
	err := d.initializeComponents(ctx)

	if err != nil {
		t.Errorf("initializeComponents() error = %v", err)
	}

	if !comp1.initCalled {
		t.Error("Comp1.Init() was not called")
	}

	if !comp2.initCalled {
		t.Error("Comp2.Init() was not called")
	}
}

func TestInitializeComponentsCircularDependency(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{"Comp2"})
	comp2 := newMockComponent("Comp2", []string{"Comp1"})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	ctx := context.Background()
	err := d.initializeComponents(ctx)

	if err == nil {
		t.Error("Expected error for circular dependency, got nil")
	}
}

func TestInitializeComponentsMissingDependency(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp := newMockComponent("Comp", []string{"NonExistent"})

	d.AddComponent(comp)

	ctx := context.Background()
	err := d.initializeComponents(ctx)

	if err == nil {
		t.Error("Expected error for missing dependency, got nil")
	}
}

func TestStartComponents(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	ctx := context.Background()
	err := d.startComponents(ctx)

	if err != nil {
		t.Errorf("startComponents() error = %v", err)
	}

	if !comp1.startCalled {
		t.Error("Comp1.Start() was not called")
	}

	if !comp2.startCalled {
		t.Error("Comp2.Start() was not called")
	}
}

func TestShutdownComponents(t *testing.T) {
	d, _ := NewDaemon(&config.Config{Server: config.ServerConfig{Port: 8080}})

	var stopped []string
	store := &orderedComponent{mockComponent: newMockComponent("Store", nil), stops: &stopped}
	api := &orderedComponent{mockComponent: newMockComponent("API", []string{"Store"}), stops: &stopped}
	idle := &orderedComponent{mockComponent: newMockComponent("Idle", nil), stops: &stopped}
	d.AddComponent(api)
	d.AddComponent(store)
	d.AddComponent(idle)

	d.started = []Component{store, api}
	d.shutdownComponents(context.Background())

	want := []string{"API", "Store", "Idle"}
	if fmt.Sprint(stopped) != fmt.Sprint(want) {
		t.Errorf("stop order = %v, want %v", stopped, want)
	}
	if d.Health() != StatusStopped {
		t.Errorf("Health = %v, want StatusStopped", d.Health())
	}
}

func TestComponentHealth(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp1.healthResult.Healthy = true

	comp2 := newMockComponent("Comp2", []string{})
	comp2.healthResult.Healthy = false
	comp2.healthResult.Error = fmt.Errorf("mock error")

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	healths := d.ComponentHealth()

	if len(healths) != 2 {
		t.Errorf("ComponentHealth() returned %v healths, want 2", len(healths))
	}

	if healths["Comp1"].Healthy != true {
		t.Error("Comp1 should be healthy")
	}

	if healths["Comp2"].Healthy != false {
		t.Error("Comp2 should be unhealthy")
	}

	if healths["Comp2"].Error == nil {
		t.Error("Comp2.Error should not be nil")
	}
}

func TestRollback(t *testing.T) {
	d, _ := NewDaemon(&config.Config{Server: config.ServerConfig{Port: 8080}})

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{"Comp1"})
	comp2.initError = fmt.Errorf("bad schedule")
	comp3 := newMockComponent("Comp3", []string{"Comp2"})

	d.AddComponent(comp3)
	d.AddComponent(comp2)
	d.AddComponent(comp1)

	if err := d.initializeComponents(context.Background()); err == nil {
		t.Fatal("initializeComponents() error = nil, want init failure")
	}
	d.rollback(context.Background())

	if !comp1.stopCalled || !comp2.stopCalled {
		t.Error("components whose Init ran were not stopped during rollback")
	}
	if comp3.initCalled || comp3.stopCalled {
		t.Error("Comp3 was touched although its dependency failed")
	}
	if d.Health() != StatusStopped {
		t.Errorf("Health = %v, want StatusStopped", d.Health())
	}
}

func TestComponentByName(t *testing.T) {
	cfg := &config.Config{}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	tests := []struct {
		name       string
		searchName string
		wantNil    bool
	}{
		{
			name:       "existing component",
			searchName: "Comp1",
			wantNil:    false,
		},
		{
			name:       "non-existing component",
			searchName: "NonExistent",
			wantNil:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := d.Component(tt.searchName)
			if (comp == nil) != tt.wantNil {
				t.Errorf("Component() = %v, wantNil %v", comp, tt.wantNil)
			}
		})
	}
}

func TestHealthErrors(t *testing.T) {
	d, _ := NewDaemon(&config.Config{})

	healthy := newMockComponent("Healthy", nil)
	broken := newMockComponent("Broken", nil)
	broken.healthResult = nil
	broken.healthError = fmt.Errorf("boom")

	d.AddComponent(healthy)
	d.AddComponent(broken)

	errs := d.HealthErrors(context.Background())
	if len(errs) != 2 {
		t.Fatalf("HealthErrors() returned %d entries, want 2", len(errs))
	}
	if errs["Healthy"] != nil {
		t.Errorf("Healthy error = %v, want nil", errs["Healthy"])
	}
	if errs["Broken"] == nil || errs["Broken"].Error() != "boom" {
		t.Errorf("Broken error = %v, want boom", errs["Broken"])
	}
}

func TestStartComponentsFollowsDependencyOrder(t *testing.T) {
	d, _ := NewDaemon(&config.Config{})

	var started []string
	api := &orderedComponent{mockComponent: newMockComponent("API", []string{"Store"}), log: &started}
	store := &orderedComponent{mockComponent: newMockComponent("Store", nil), log: &started}
	d.AddComponent(api)
	d.AddComponent(store)

	if err := d.initializeComponents(context.Background()); err != nil {
		t.Fatalf("initializeComponents() error = %v", err)
	}
	if err := d.startComponents(context.Background()); err != nil {
		t.Fatalf("startComponents() error = %v", err)
	}

	if len(started) != 2 || started[0] != "Store" || started[1] != "API" {
		t.Errorf("start order = %v, want [Store API]", started)
	}
}

type orderedComponent struct {
	*mockComponent
	log   *[]string
	stops *[]string
}

func (o *orderedComponent) Start(ctx context.Context) error {
	if o.log != nil {
		*o.log = append(*o.log, o.name)
	}
	return o.mockComponent.Start(ctx)
}

func (o *orderedComponent) Stop(ctx context.Context) error {
	if o.stops != nil {
		*o.stops = append(*o.stops, o.name)
	}
	return o.mockComponent.Stop(ctx)
}

func TestDependencyOrder(t *testing.T) {
	tests := []struct {
		name    string
		comps   []Component
		want    []string
		wantErr string
	}{
		{
			name: "registration order kept without constraints",
			comps: []Component{
				newMockComponent("A", nil),
				newMockComponent("B", nil),
			},
			want: []string{"A", "B"},
		},
		{
			name: "dependencies first",
			comps: []Component{
				newMockComponent("HTTP", []string{"Chat", "Store"}),
				newMockComponent("Chat", []string{"Store"}),
				newMockComponent("Store", nil),
			},
			want: []string{"Store", "Chat", "HTTP"},
		},
		{
			name: "duplicate name",
			comps: []Component{
				newMockComponent("A", nil),
				newMockComponent("A", nil),
			},
			wantErr: "registered twice",
		},
		{
			name: "cycle",
			comps: []Component{
				newMockComponent("A", []string{"B"}),
				newMockComponent("B", []string{"A"}),
				newMockComponent("C", nil),
			},
			wantErr: "circular dependency detected involving A, B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := dependencyOrder(tt.comps)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("dependencyOrder() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("dependencyOrder() error = %v", err)
			}
			if got := componentNames(order); fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}
