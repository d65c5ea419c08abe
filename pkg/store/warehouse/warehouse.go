package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/de-tools/revenue-atlas/pkg/services/config"
	sqlstore "github.com/de-tools/revenue-atlas/pkg/store/sql"
)

// Connection is an open warehouse handle and the placeholder style it expects.
type Connection struct {
	DB      *sql.DB
	Dialect sqlstore.Dialect
}

// Factory opens a connection for one driver from the loaded settings.
type Factory func(ctx context.Context, settings *config.Settings) (*Connection, error)

// Registry manages warehouse driver factories
type Registry interface {
	Register(driver string, factory Factory) error
	// Open creates a connection with the factory named by settings.Warehouse.Driver
	Open(ctx context.Context, settings *config.Settings) (*Connection, error)
	Drivers() []string
}

type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() Registry {
	return &registry{
		factories: make(map[string]Factory),
	}
}

// NewDefaultRegistry knows every supported warehouse.
func NewDefaultRegistry() Registry {
	r := NewRegistry()
	for driver, factory := range map[string]Factory{
		"snowflake":  SnowflakeFactory,
		"databricks": DatabricksFactory,
		"postgres":   PostgresFactory,
		"duckdb":     DuckDBFactory,
	} {
		_ = r.Register(driver, factory)
	}
	return r
}

func (r *registry) Register(driver string, factory Factory) error {
	if driver == "" {
		return fmt.Errorf("driver name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[driver]; exists {
		return fmt.Errorf("driver %q is already registered", driver)
	}

	r.factories[driver] = factory
	return nil
}

func (r *registry) Open(ctx context.Context, settings *config.Settings) (*Connection, error) {
	driver := settings.Warehouse.Driver

	r.mu.RLock()
	factory, exists := r.factories[driver]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("driver %q is not registered", driver)
	}

	conn, err := factory(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s warehouse: %w", driver, err)
	}
	return conn, nil
}

func (r *registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	drivers := make([]string, 0, len(r.factories))
	for driver := range r.factories {
		drivers = append(drivers, driver)
	}
	sort.Strings(drivers)
	return drivers
}
