package warehouse

import (
	"context"
	"sort"

	"github.com/de-tools/revenue-atlas/pkg/services/config"
	"github.com/de-tools/revenue-atlas/pkg/store/duckdb"
	sqlstore "github.com/de-tools/revenue-atlas/pkg/store/sql"
)

// DuckDBFactory opens a local file warehouse whose source tables are created from
// the configured column mappings.
func DuckDBFactory(_ context.Context, settings *config.Settings) (*Connection, error) {
	db, err := duckdb.NewDB(duckdb.Settings{
		DbPath: settings.Warehouse.Path,
		Tables: sourceTables(settings.Sources),
	})
	if err != nil {
		return nil, err
	}
	return &Connection{DB: db, Dialect: sqlstore.DialectQuestion}, nil
}

var columnTypes = map[string]string{
	string(sqlstore.FieldDate):              "DATE",
	string(sqlstore.FieldRunDate):           "DATE",
	string(sqlstore.FieldRevenue):           "DOUBLE",
	string(sqlstore.FieldProductLedRevenue): "DOUBLE",
}

func sourceTables(src config.SourceSettings) []duckdb.Table {
	return []duckdb.Table{
		sourceTable(src.Actuals),
		sourceTable(src.Plan),
		{
			Name: src.Calendar.Table,
			Columns: []duckdb.Column{
				{Name: src.Calendar.DateColumn, Type: "DATE"},
				{Name: src.Calendar.QuarterColumn, Type: "VARCHAR"},
			},
		},
	}
}

func sourceTable(t config.TableSettings) duckdb.Table {
	fields := make([]string, 0, len(t.Columns))
	for field := range t.Columns {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	table := duckdb.Table{Name: t.Table}
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		column := t.Columns[field]
		if column == "" || seen[column] {
			continue
		}
		seen[column] = true
		typ, ok := columnTypes[field]
		if !ok {
			typ = "VARCHAR"
		}
		table.Columns = append(table.Columns, duckdb.Column{Name: column, Type: typ})
	}
	return table
}
