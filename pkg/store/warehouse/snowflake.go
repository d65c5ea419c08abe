package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/revenue-atlas/pkg/services/config"
	sqlstore "github.com/de-tools/revenue-atlas/pkg/store/sql"
	sf "github.com/snowflakedb/gosnowflake"
	"github.com/spf13/viper"
)

// LoadSnowflakeConfig reads a snowflake connection profile (account, user, password,
// database, warehouse, role).
func LoadSnowflakeConfig(profilePath string) (*sf.Config, error) {
	v := viper.New()
	v.SetConfigFile(profilePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg sf.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse snowflake config: %w", err)
	}
	return &cfg, nil
}

func SnowflakeFactory(_ context.Context, settings *config.Settings) (*Connection, error) {
	cfg, err := LoadSnowflakeConfig(settings.Warehouse.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dsn, err := sf.DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Connection{DB: db, Dialect: sqlstore.DialectQuestion}, nil
}
