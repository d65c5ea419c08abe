package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/marcboeker/go-duckdb/v2"
)

type Column struct {
	Name string
	Type string
}

type Table struct {
	Name    string
	Columns []Column
}

// DDL renders an idempotent CREATE TABLE statement.
func (t Table) DDL() string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, fmt.Sprintf("\t\t%s %s", c.Name, c.Type))
	}
	return fmt.Sprintf("\n\tCREATE TABLE IF NOT EXISTS %s (\n%s\n\t);\n", t.Name, strings.Join(cols, ",\n"))
}

type Settings struct {
	DbPath string
	// Tables are created on every new connection when missing.
	Tables []Table
}

func NewDB(settings Settings) (*sql.DB, error) {
	bootQueries := make([]string, 0, len(settings.Tables))
	for _, t := range settings.Tables {
		bootQueries = append(bootQueries, t.DDL())
	}

	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return fmt.Errorf("failed to run boot query: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
