package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
	"github.com/de-tools/revenue-atlas/pkg/services/analysis"
	"github.com/de-tools/revenue-atlas/pkg/services/collector"
	"github.com/de-tools/revenue-atlas/pkg/services/config"
	"github.com/de-tools/revenue-atlas/pkg/services/fiscal"
	"github.com/de-tools/revenue-atlas/pkg/services/registry"
	"github.com/de-tools/revenue-atlas/pkg/services/report"
	"github.com/de-tools/revenue-atlas/pkg/store/publish"
	"github.com/de-tools/revenue-atlas/pkg/store/revenue"
	"github.com/de-tools/revenue-atlas/pkg/store/snapshot"
	sqlstore "github.com/de-tools/revenue-atlas/pkg/store/sql"
	"github.com/de-tools/revenue-atlas/pkg/store/warehouse"
	"github.com/rs/zerolog"
)

// App is the wired report service over one warehouse connection.
type App struct {
	Settings *config.Settings
	Reports  report.Service
	db       *sql.DB
}

type Options struct {
	Warehouses warehouse.Registry
	// CacheReports keeps recently loaded snapshots in memory.
	CacheReports bool
}

func New(ctx context.Context, settings *config.Settings, opts Options) (*App, error) {
	logger := zerolog.Ctx(ctx)
	if opts.Warehouses == nil {
		opts.Warehouses = warehouse.NewDefaultRegistry()
	}

	// Identifiers are checked before a driver can run DDL with them.
	filters, err := sqlstore.NewFilterBuilder(map[store.Source]sqlstore.ColumnMapping{
		store.SourceActuals: columnMapping(settings.Sources.Actuals.Columns),
		store.SourcePlan:    columnMapping(settings.Sources.Plan.Columns),
	})
	if err != nil {
		return nil, fmt.Errorf("invalid column mapping: %w", err)
	}
	src := settings.Sources
	for _, table := range []string{src.Actuals.Table, src.Plan.Table, src.Calendar.Table} {
		if !sqlstore.ValidIdentifier(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}

	conn, err := opts.Warehouses.Open(ctx, settings)
	if err != nil {
		return nil, err
	}
	exec := sqlstore.NewExecutor(conn.DB, conn.Dialect)

	reports, err := newReportService(ctx, settings, exec, filters, opts)
	if err != nil {
		_ = conn.DB.Close()
		return nil, err
	}

	logger.Info().
		Str("warehouse", settings.Warehouse.Driver).
		Str("cache_dir", settings.Cache.Dir).
		Msg("revenue atlas initialised")

	return &App{Settings: settings, Reports: reports, db: conn.DB}, nil
}

// DB is the warehouse handle, exposed for seeding local warehouses.
func (a *App) DB() *sql.DB {
	return a.db
}

func (a *App) Close() error {
	return a.db.Close()
}

func newReportService(
	ctx context.Context,
	settings *config.Settings,
	exec sqlstore.Executor,
	filters *sqlstore.FilterBuilder,
	opts Options,
) (report.Service, error) {
	src := settings.Sources
	revenueStore, err := revenue.NewStore(exec, revenue.Settings{
		Tables: revenue.Tables{
			Actuals:  src.Actuals.Table,
			Plan:     src.Plan.Table,
			Calendar: src.Calendar.Table,
		},
		Filters:           filters,
		CapacityAgreement: src.CapacityAgreement,
	})
	if err != nil {
		return nil, err
	}
	calendar, err := revenue.NewCalendar(exec, revenue.CalendarSettings{
		Table:         src.Calendar.Table,
		DateColumn:    src.Calendar.DateColumn,
		QuarterColumn: src.Calendar.QuarterColumn,
	})
	if err != nil {
		return nil, err
	}

	c := collector.New(
		fiscal.NewResolver(calendar),
		revenueStore,
		analysis.NewLibrary(revenueStore, analysisSettings(settings.Analysis)),
		registry.NewDefault(),
		collector.Options{
			Parallelism:            settings.Collector.Parallelism,
			MaxCustomersPerFeature: settings.Collector.MaxCustomersPerFeature,
		},
	)

	snapshots, err := snapshot.NewStore(settings.Cache.Dir)
	if err != nil {
		return nil, err
	}
	if opts.CacheReports && settings.Cache.Size > 0 {
		snapshots, err = snapshot.NewCachedStore(snapshots, settings.Cache.Size)
		if err != nil {
			return nil, err
		}
	}

	var serviceOpts []report.Option
	if settings.Publish.Bucket != "" {
		publisher, err := publish.NewS3PublisherFromSettings(ctx, publish.Settings{
			Bucket:  settings.Publish.Bucket,
			Prefix:  settings.Publish.Prefix,
			Profile: settings.Publish.AWSProfile,
			Region:  settings.Publish.Region,
		})
		if err != nil {
			return nil, err
		}
		serviceOpts = append(serviceOpts, report.WithPublisher(publisher))
	}

	return report.NewService(c, snapshots, revenueStore, settings.Cache.LockPath, serviceOpts...), nil
}

func columnMapping(columns map[string]string) sqlstore.ColumnMapping {
	m := make(sqlstore.ColumnMapping, len(columns))
	for field, column := range columns {
		m[domain.Field(field)] = column
	}
	return m
}

func analysisSettings(s config.AnalysisSettings) analysis.Settings {
	return analysis.Settings{
		GrowthThreshold:   s.GrowthThreshold,
		ShrinkThreshold:   s.ShrinkThreshold,
		MaxCustomerMovers: s.MaxCustomerMovers,
		MaxIndustries:     s.MaxIndustries,
		MaxTopCustomers:   s.MaxTopCustomers,
		TopSegmentSize:    s.TopSegmentSize,
		TrendGranularity:  analysis.Granularity(s.TrendGranularity),
	}
}
