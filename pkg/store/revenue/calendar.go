package revenue

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	sqlstore "github.com/de-tools/revenue-atlas/pkg/store/sql"
)

// Calendar answers fiscal calendar lookups: one row per day labelled with its quarter.
type Calendar interface {
	// QuarterBounds returns the first and last day of a quarter, false when the label is unknown.
	QuarterBounds(ctx context.Context, quarter string) (domain.DateRange, bool, error)
	// QuarterOf returns the label of the quarter containing day, false when the day is not covered.
	QuarterOf(ctx context.Context, day time.Time) (string, bool, error)
}

type CalendarSettings struct {
	Table         string
	DateColumn    string
	QuarterColumn string
}

type calendar struct {
	exec     sqlstore.Executor
	settings CalendarSettings
}

func NewCalendar(exec sqlstore.Executor, settings CalendarSettings) (Calendar, error) {
	for _, id := range []string{settings.Table, settings.DateColumn, settings.QuarterColumn} {
		if !sqlstore.ValidIdentifier(id) {
			return nil, fmt.Errorf("invalid calendar identifier %q", id)
		}
	}
	return &calendar{exec: exec, settings: settings}, nil
}

func (c *calendar) QuarterBounds(ctx context.Context, quarter string) (domain.DateRange, bool, error) {
	rows, err := c.exec.Execute(ctx, sqlstore.Query{
		Name: "quarter bounds",
		SQL: fmt.Sprintf("SELECT MIN(%[1]s) AS q_start, MAX(%[1]s) AS q_end FROM %[2]s WHERE %[3]s = ?",
			c.settings.DateColumn, c.settings.Table, c.settings.QuarterColumn),
		Args: []any{quarter},
	})
	if err != nil {
		return domain.DateRange{}, false, err
	}
	if len(rows) == 0 {
		return domain.DateRange{}, false, nil
	}

	start, okStart, err := rows[0].Date("q_start")
	if err != nil {
		return domain.DateRange{}, false, err
	}
	end, okEnd, err := rows[0].Date("q_end")
	if err != nil {
		return domain.DateRange{}, false, err
	}
	if !okStart || !okEnd {
		return domain.DateRange{}, false, nil
	}
	return domain.DateRange{Start: start, End: end}, true, nil
}

func (c *calendar) QuarterOf(ctx context.Context, day time.Time) (string, bool, error) {
	rows, err := c.exec.Execute(ctx, sqlstore.Query{
		Name: "quarter of day",
		SQL: fmt.Sprintf("SELECT %s AS quarter FROM %s WHERE %s = ? LIMIT 1",
			c.settings.QuarterColumn, c.settings.Table, c.settings.DateColumn),
		Args: []any{domain.Day(day)},
	})
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	label, ok := rows[0].String("quarter")
	return label, ok, nil
}
