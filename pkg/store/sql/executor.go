package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Dialect selects the placeholder syntax of the target warehouse.
type Dialect int

const (
	// DialectQuestion uses ? placeholders (Snowflake, Databricks, DuckDB).
	DialectQuestion Dialect = iota
	// DialectDollar uses $1, $2 ... placeholders (Postgres).
	DialectDollar
)

// Query is a named, parameterized statement. SQL always uses ? placeholders.
type Query struct {
	Name string
	SQL  string
	Args []any
}

// Row is one result row keyed by lowercase column name.
type Row map[string]any

type Executor interface {
	Execute(ctx context.Context, q Query) ([]Row, error)
}

type executor struct {
	db      *sql.DB
	dialect Dialect
}

func NewExecutor(db *sql.DB, dialect Dialect) Executor {
	return &executor{db: db, dialect: dialect}
}

func (e *executor) Execute(ctx context.Context, q Query) ([]Row, error) {
	logger := zerolog.Ctx(ctx)
	started := time.Now()

	rows, err := e.db.QueryContext(ctx, Rebind(e.dialect, q.SQL), q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", q.Name, err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logger.Warn().Err(err).Str("query", q.Name).Msg("failed to close query rows")
		}
	}(rows)

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s query columns: %w", q.Name, err)
	}
	for i, c := range columns {
		columns[i] = strings.ToLower(c)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("%s query scan failed: %w", q.Name, err)
		}
		row := make(Row, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s query iteration failed: %w", q.Name, err)
	}

	logger.Debug().
		Str("query", q.Name).
		Int("rows", len(result)).
		Dur("elapsed", time.Since(started)).
		Msg("query executed")
	return result, nil
}

// Rebind rewrites ? placeholders for the dialect. Quoted literals are left alone.
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectDollar {
		return query
	}
	var (
		b       strings.Builder
		n       int
		inQuote bool
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
