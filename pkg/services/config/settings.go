package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "REVENUE_ATLAS"

type Settings struct {
	Warehouse WarehouseSettings `mapstructure:"warehouse"`
	Sources   SourceSettings    `mapstructure:"sources"`
	Analysis  AnalysisSettings  `mapstructure:"analysis"`
	Collector CollectorSettings `mapstructure:"collector"`
	Cache     CacheSettings     `mapstructure:"cache"`
	Publish   PublishSettings   `mapstructure:"publish"`
}

// WarehouseSettings selects the SQL driver and how to reach it. Profile is a path to
// a snowflake YAML profile or a .databrickscfg file, depending on the driver.
type WarehouseSettings struct {
	Driver      string `mapstructure:"driver"`
	Profile     string `mapstructure:"profile"`
	ProfileName string `mapstructure:"profile_name"`
	DSN         string `mapstructure:"dsn"`
	Path        string `mapstructure:"path"`
}

type SourceSettings struct {
	Actuals  TableSettings    `mapstructure:"actuals"`
	Plan     TableSettings    `mapstructure:"plan"`
	Calendar CalendarSettings `mapstructure:"calendar"`
	// CapacityAgreement is the agreement type value that marks capacity revenue.
	CapacityAgreement string `mapstructure:"capacity_agreement"`
}

type TableSettings struct {
	Table   string            `mapstructure:"table"`
	Columns map[string]string `mapstructure:"columns"`
}

type CalendarSettings struct {
	Table         string `mapstructure:"table"`
	DateColumn    string `mapstructure:"date_column"`
	QuarterColumn string `mapstructure:"quarter_column"`
}

type AnalysisSettings struct {
	GrowthThreshold   float64 `mapstructure:"growth_threshold"`
	ShrinkThreshold   float64 `mapstructure:"shrink_threshold"`
	MaxCustomerMovers int     `mapstructure:"max_customer_movers"`
	MaxIndustries     int     `mapstructure:"max_industries"`
	MaxTopCustomers   int     `mapstructure:"max_top_customers"`
	TopSegmentSize    int     `mapstructure:"top_segment_size"`
	TrendGranularity  string  `mapstructure:"trend_granularity"`
}

type CollectorSettings struct {
	Parallelism            int `mapstructure:"parallelism"`
	MaxCustomersPerFeature int `mapstructure:"max_customers_per_feature"`
}

type CacheSettings struct {
	Dir      string `mapstructure:"dir"`
	LockPath string `mapstructure:"lock_path"`
	Size     int    `mapstructure:"size"`
}

// PublishSettings enables copying each stored snapshot to S3 when Bucket is set.
type PublishSettings struct {
	Bucket     string `mapstructure:"bucket"`
	Prefix     string `mapstructure:"prefix"`
	AWSProfile string `mapstructure:"aws_profile"`
	Region     string `mapstructure:"region"`
}

var defaults = map[string]any{
	"warehouse.driver": "duckdb",
	"warehouse.path":   "revenue-atlas.db",

	"sources.actuals.table":                       "revenue_actuals",
	"sources.actuals.columns.date":                "ds",
	"sources.actuals.columns.run_date":            "run_date",
	"sources.actuals.columns.revenue":             "revenue",
	"sources.actuals.columns.product_led_revenue": "product_led_revenue",
	"sources.actuals.columns.agreement_type":      "agreement_type",
	"sources.actuals.columns.category":            "product_category",
	"sources.actuals.columns.use_case":            "use_case",
	"sources.actuals.columns.feature":             "feature",
	"sources.actuals.columns.customer":            "customer_name",
	"sources.actuals.columns.industry":            "industry",
	"sources.plan.table":                          "revenue_plan",
	"sources.plan.columns.date":                   "ds",
	"sources.plan.columns.revenue":                "plan_revenue",
	"sources.plan.columns.category":               "product_category",
	"sources.plan.columns.use_case":               "use_case",
	"sources.plan.columns.feature":                "feature",
	"sources.plan.columns.customer":               "customer_name",
	"sources.plan.columns.industry":               "industry",
	"sources.calendar.table":                      "fiscal_calendar",
	"sources.calendar.date_column":                "ds",
	"sources.calendar.quarter_column":             "fiscal_quarter",
	"sources.capacity_agreement":                  "Capacity",

	"analysis.growth_threshold":    0.05,
	"analysis.shrink_threshold":    -0.05,
	"analysis.max_customer_movers": 5,
	"analysis.max_industries":      10,
	"analysis.max_top_customers":   10,
	"analysis.top_segment_size":    20,
	"analysis.trend_granularity":   "day",

	"collector.parallelism":               4,
	"collector.max_customers_per_feature": 0,

	"cache.dir":       "cache",
	"cache.lock_path": "cache/.collect.lock",
	"cache.size":      32,

	"publish.region": "us-east-1",
}

// Load reads settings from path, or defaults and environment only when path is empty.
// Environment variables override file values, e.g. REVENUE_ATLAS_CACHE_DIR.
func Load(path string) (*Settings, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) Validate() error {
	var errs []error
	switch s.Warehouse.Driver {
	case "snowflake", "databricks":
		if s.Warehouse.Profile == "" {
			errs = append(errs, fmt.Errorf("warehouse.profile is required for %s", s.Warehouse.Driver))
		}
	case "postgres":
		if s.Warehouse.DSN == "" {
			errs = append(errs, errors.New("warehouse.dsn is required for postgres"))
		}
	case "duckdb":
	default:
		errs = append(errs, fmt.Errorf("unsupported warehouse driver %q", s.Warehouse.Driver))
	}
	if s.Analysis.ShrinkThreshold > s.Analysis.GrowthThreshold {
		errs = append(errs, errors.New("analysis.shrink_threshold must not exceed growth_threshold"))
	}
	switch s.Analysis.TrendGranularity {
	case "day", "month":
	default:
		errs = append(errs, fmt.Errorf("unsupported trend granularity %q", s.Analysis.TrendGranularity))
	}
	if s.Cache.Dir == "" || s.Cache.LockPath == "" {
		errs = append(errs, errors.New("cache.dir and cache.lock_path are required"))
	}
	return errors.Join(errs...)
}
