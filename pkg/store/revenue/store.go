package revenue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
	sqlstore "github.com/de-tools/revenue-atlas/pkg/store/sql"
)

// Store reads aggregated revenue from the actuals and plan sources.
type Store interface {
	// Sum totals the amount of a query; an empty window sums to zero without querying.
	Sum(ctx context.Context, q store.AmountQuery) (float64, error)
	// SumBy totals the amount per combination of groups.
	SumBy(ctx context.Context, q store.AmountQuery, groups ...store.Grouping) ([]store.GroupedAmount, error)
	// Distinct lists the non-null values of a field in the actuals source.
	Distinct(ctx context.Context, field domain.Field, q store.AmountQuery) ([]string, error)
	// RunDates lists the actuals snapshot dates, latest first.
	RunDates(ctx context.Context) ([]time.Time, error)
}

type Tables struct {
	Actuals  string
	Plan     string
	Calendar string
}

type Settings struct {
	Tables  Tables
	Filters *sqlstore.FilterBuilder
	// CapacityAgreement is the agreement type kept by capacity-only queries.
	CapacityAgreement string
}

type revenueStore struct {
	exec     sqlstore.Executor
	settings Settings
}

func NewStore(exec sqlstore.Executor, settings Settings) (Store, error) {
	if settings.Filters == nil {
		return nil, fmt.Errorf("revenue store requires a filter builder")
	}
	for _, table := range []string{settings.Tables.Actuals, settings.Tables.Plan} {
		if !sqlstore.ValidIdentifier(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &revenueStore{exec: exec, settings: settings}, nil
}

func (s *revenueStore) Sum(ctx context.Context, q store.AmountQuery) (float64, error) {
	rows, err := s.SumBy(ctx, q)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, r := range rows {
		total += r.Amount
	}
	return total, nil
}

func (s *revenueStore) SumBy(
	ctx context.Context,
	q store.AmountQuery,
	groups ...store.Grouping,
) ([]store.GroupedAmount, error) {
	if q.Window.IsZero() {
		return nil, nil
	}
	mapping, err := s.settings.Filters.Mapping(q.Source)
	if err != nil {
		return nil, err
	}

	selects := make([]string, 0, len(groups)+1)
	positions := make([]string, 0, len(groups))
	for i, g := range groups {
		expr, err := groupExpression(mapping, g)
		if err != nil {
			return nil, err
		}
		selects = append(selects, fmt.Sprintf("%s AS g%d", expr, i))
		positions = append(positions, fmt.Sprint(i+1))
	}
	amount, err := amountExpression(mapping, q.Source)
	if err != nil {
		return nil, err
	}
	selects = append(selects, fmt.Sprintf("COALESCE(SUM(%s), 0) AS amount", amount))

	where, err := s.where(mapping, q)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s", strings.Join(selects, ", "), s.table(q.Source), where.Clause)
	if len(positions) > 0 {
		fmt.Fprintf(&b, " GROUP BY %s", strings.Join(positions, ", "))
	}

	rows, err := s.exec.Execute(ctx, sqlstore.Query{
		Name: queryName(q, groups),
		SQL:  b.String(),
		Args: where.Args,
	})
	if err != nil {
		return nil, err
	}

	result := make([]store.GroupedAmount, 0, len(rows))
	for _, row := range rows {
		value, err := row.Float("amount")
		if err != nil {
			return nil, err
		}
		ga := store.GroupedAmount{Amount: value, Keys: make([]*string, len(groups))}
		for i := range groups {
			if key, ok := row.String(fmt.Sprintf("g%d", i)); ok {
				ga.Keys[i] = &key
			}
		}
		result = append(result, ga)
	}
	return result, nil
}

func (s *revenueStore) Distinct(
	ctx context.Context,
	field domain.Field,
	q store.AmountQuery,
) ([]string, error) {
	q.Source = store.SourceActuals
	mapping, err := s.settings.Filters.Mapping(q.Source)
	if err != nil {
		return nil, err
	}
	column, err := mapping.Column(field)
	if err != nil {
		return nil, err
	}
	where, err := s.where(mapping, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.exec.Execute(ctx, sqlstore.Query{
		Name: "distinct " + string(field),
		SQL: fmt.Sprintf("SELECT DISTINCT %[1]s AS value FROM %[2]s WHERE %[3]s AND %[1]s IS NOT NULL ORDER BY 1",
			column, s.settings.Tables.Actuals, where.Clause),
		Args: where.Args,
	})
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if v, ok := row.String("value"); ok {
			values = append(values, v)
		}
	}
	return values, nil
}

func (s *revenueStore) RunDates(ctx context.Context) ([]time.Time, error) {
	mapping, err := s.settings.Filters.Mapping(store.SourceActuals)
	if err != nil {
		return nil, err
	}
	column, err := mapping.Column(sqlstore.FieldRunDate)
	if err != nil {
		return nil, err
	}

	rows, err := s.exec.Execute(ctx, sqlstore.Query{
		Name: "run dates",
		SQL: fmt.Sprintf("SELECT DISTINCT %[1]s AS run_date FROM %[2]s WHERE %[1]s IS NOT NULL ORDER BY 1 DESC",
			column, s.settings.Tables.Actuals),
	})
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		d, ok, err := row.Date("run_date")
		if err != nil {
			return nil, err
		}
		if ok {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

func (s *revenueStore) table(source store.Source) string {
	if source == store.SourcePlan {
		return s.settings.Tables.Plan
	}
	return s.settings.Tables.Actuals
}

// where builds the window, snapshot, scope and agreement constraints of a query.
func (s *revenueStore) where(mapping sqlstore.ColumnMapping, q store.AmountQuery) (sqlstore.Predicate, error) {
	date, err := mapping.Column(sqlstore.FieldDate)
	if err != nil {
		return sqlstore.Predicate{}, err
	}
	p := sqlstore.Predicate{
		Clause: date + " BETWEEN ? AND ?",
		Args:   []any{domain.Day(q.Window.Start), domain.Day(q.Window.End)},
	}

	if q.Source == store.SourceActuals {
		if !q.RunDate.IsZero() {
			runDate, err := mapping.Column(sqlstore.FieldRunDate)
			if err != nil {
				return sqlstore.Predicate{}, err
			}
			p = p.And(sqlstore.Predicate{Clause: runDate + " = ?", Args: []any{domain.Day(q.RunDate)}})
		}
		if q.CapacityOnly {
			agreement, err := mapping.Column(sqlstore.FieldAgreementType)
			if err != nil {
				return sqlstore.Predicate{}, err
			}
			p = p.And(sqlstore.Predicate{Clause: agreement + " = ?", Args: []any{s.settings.CapacityAgreement}})
		}
	}

	scope, err := s.settings.Filters.Build(q.Source, q.Scope)
	if err != nil {
		return sqlstore.Predicate{}, err
	}
	return p.And(scope), nil
}

func groupExpression(mapping sqlstore.ColumnMapping, g store.Grouping) (string, error) {
	switch g {
	case store.GroupDay:
		return mapping.Column(sqlstore.FieldDate)
	case store.GroupMonth:
		date, err := mapping.Column(sqlstore.FieldDate)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("DATE_TRUNC('month', %s)", date), nil
	default:
		return mapping.Column(domain.Field(g))
	}
}

// amountExpression is revenue plus product-led revenue for actuals, revenue alone for plan.
func amountExpression(mapping sqlstore.ColumnMapping, source store.Source) (string, error) {
	revenue, err := mapping.Column(sqlstore.FieldRevenue)
	if err != nil {
		return "", err
	}
	if source != store.SourceActuals {
		return revenue, nil
	}
	productLed, err := mapping.Column(sqlstore.FieldProductLedRevenue)
	if err != nil {
		return revenue, nil
	}
	return fmt.Sprintf("COALESCE(%s, 0) + COALESCE(%s, 0)", revenue, productLed), nil
}

func queryName(q store.AmountQuery, groups []store.Grouping) string {
	name := "sum " + string(q.Source)
	if len(groups) > 0 {
		parts := make([]string, len(groups))
		for i, g := range groups {
			parts[i] = string(g)
		}
		name += " by " + strings.Join(parts, ", ")
	}
	if q.CapacityOnly {
		name += " (capacity)"
	}
	return name
}
