package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/de-tools/revenue-atlas/pkg/services/config"
	sqlstore "github.com/de-tools/revenue-atlas/pkg/store/sql"
)

func PostgresFactory(_ context.Context, settings *config.Settings) (*Connection, error) {
	db, err := sql.Open("pgx", settings.Warehouse.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Connection{DB: db, Dialect: sqlstore.DialectDollar}, nil
}
