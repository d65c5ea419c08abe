package analysis

import (
	"context"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
	"github.com/stretchr/testify/mock"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Sum(ctx context.Context, q store.AmountQuery) (float64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockSource) SumBy(
	ctx context.Context,
	q store.AmountQuery,
	groups ...store.Grouping,
) ([]store.GroupedAmount, error) {
	args := m.Called(ctx, q, groups)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.GroupedAmount), args.Error(1)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testInput(scope domain.Coordinate) Input {
	return Input{
		Dates: domain.FiscalDates{
			Quarter:           "FY26-Q4",
			QuarterStart:      day(2025, 11, 1),
			QuarterEnd:        day(2026, 1, 31),
			EffectiveEnd:      day(2025, 12, 8),
			PriorQuarterStart: day(2025, 8, 1),
			PriorQuarterEnd:   day(2025, 10, 31),
			PriorYearStart:    day(2024, 11, 1),
			PriorYearEnd:      day(2025, 1, 31),
		},
		RunDate: day(2025, 12, 10),
		Scope:   scope,
	}
}

func currentQuery(in Input, capacity bool) store.AmountQuery {
	return store.AmountQuery{
		Source:       store.SourceActuals,
		Window:       in.Dates.ToDate(),
		RunDate:      in.RunDate,
		Scope:        in.Scope,
		CapacityOnly: capacity,
	}
}

func priorQuery(in Input, capacity bool) store.AmountQuery {
	q := currentQuery(in, capacity)
	q.Window = in.Dates.PriorQuarter()
	return q
}

func priorYearQuery(in Input, capacity bool) store.AmountQuery {
	q := currentQuery(in, capacity)
	q.Window = in.Dates.PriorYear()
	return q
}

func planQuery(in Input) store.AmountQuery {
	return store.AmountQuery{
		Source: store.SourcePlan,
		Window: in.Dates.ToDate(),
		Scope:  in.Scope,
	}
}

// ga builds a grouped amount; a nil key stands for NULL.
func ga(amount float64, keys ...any) store.GroupedAmount {
	g := store.GroupedAmount{Amount: amount}
	for _, k := range keys {
		switch v := k.(type) {
		case nil:
			g.Keys = append(g.Keys, nil)
		case string:
			s := v
			g.Keys = append(g.Keys, &s)
		}
	}
	return g
}

func rows(r ...store.GroupedAmount) []store.GroupedAmount {
	if r == nil {
		return []store.GroupedAmount{}
	}
	return r
}

type fourPeriods struct {
	current, prior, priorYear, plan []store.GroupedAmount
}

func (m *mockSource) expectPeriods(in Input, capacity bool, group store.Grouping, p fourPeriods) {
	groups := []store.Grouping{group}
	m.On("SumBy", mock.Anything, currentQuery(in, capacity), groups).Return(rows(p.current...), nil).Once()
	m.On("SumBy", mock.Anything, priorQuery(in, capacity), groups).Return(rows(p.prior...), nil).Once()
	m.On("SumBy", mock.Anything, priorYearQuery(in, capacity), groups).Return(rows(p.priorYear...), nil).Once()
	m.On("SumBy", mock.Anything, planQuery(in), groups).Return(rows(p.plan...), nil).Once()
}

func f(v float64) *float64 {
	return &v
}

func run(t interface {
	Helper()
	Fatalf(string, ...any)
}, lib *Library, kind domain.Kind, in Input) domain.Result {
	t.Helper()
	a, ok := lib.Get(kind)
	if !ok {
		t.Fatalf("analysis %s not registered", kind)
	}
	res, err := a.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("analysis %s failed: %v", kind, err)
	}
	return res
}
