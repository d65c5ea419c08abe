package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
	"github.com/de-tools/revenue-atlas/pkg/services/analysis"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, quarter string) (domain.FiscalDates, error) {
	args := m.Called(ctx, quarter)
	return args.Get(0).(domain.FiscalDates), args.Error(1)
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Distinct(ctx context.Context, field domain.Field, q store.AmountQuery) ([]string, error) {
	args := m.Called(ctx, field, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
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

type stubAnalysis struct {
	kind domain.Kind
	run  func(in analysis.Input) (domain.Result, error)
}

func (s stubAnalysis) Kind() domain.Kind { return s.kind }

func (s stubAnalysis) Run(_ context.Context, in analysis.Input) (domain.Result, error) {
	return s.run(in)
}

// ctxAnalysis sees the collection context, unlike stubAnalysis.
type ctxAnalysis struct {
	kind domain.Kind
	run  func(ctx context.Context, in analysis.Input) (domain.Result, error)
}

func (s ctxAnalysis) Kind() domain.Kind { return s.kind }

func (s ctxAnalysis) Run(ctx context.Context, in analysis.Input) (domain.Result, error) {
	return s.run(ctx, in)
}

type stubLibrary map[domain.Kind]analysis.Analysis

func (l stubLibrary) Get(kind domain.Kind) (analysis.Analysis, bool) {
	a, ok := l[kind]
	return a, ok
}

type stubRegistry map[domain.Level][]domain.Kind

func (r stubRegistry) ForLevel(level domain.Level) []domain.Kind {
	return r[level]
}

var testDates = domain.FiscalDates{
	Quarter:      "FY26-Q4",
	QuarterStart: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
	QuarterEnd:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	EffectiveEnd: time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC),
}

var testRunDate = time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)

// echo reports the scope it ran for as a single comparison row.
func echo(in analysis.Input) (domain.Result, error) {
	name := in.Scope.Customer
	for _, v := range []string{in.Scope.Feature, in.Scope.UseCase, in.Scope.Category} {
		if name == "" {
			name = v
		}
	}
	return domain.Comparison{{Entity: name}}, nil
}

func defaultLibrary() stubLibrary {
	return stubLibrary{
		domain.KindSummaryKPIs: stubAnalysis{kind: domain.KindSummaryKPIs, run: func(analysis.Input) (domain.Result, error) {
			return domain.SummaryKPIs{QTDRevenue: 1}, nil
		}},
		domain.KindTopCustomers: stubAnalysis{kind: domain.KindTopCustomers, run: echo},
	}
}

func defaultRegistry() stubRegistry {
	both := []domain.Kind{domain.KindSummaryKPIs, domain.KindTopCustomers}
	return stubRegistry{
		domain.LevelTotal:    both,
		domain.LevelCategory: both,
		domain.LevelUseCase:  both,
		domain.LevelFeature:  both,
		domain.LevelCustomer: {domain.KindSummaryKPIs},
	}
}

func scoped(scope domain.Coordinate) interface{} {
	return mock.MatchedBy(func(q store.AmountQuery) bool {
		return q.Scope == scope && q.RunDate.Equal(testRunDate) && q.Window == testDates.FullQuarter()
	})
}

func expectHierarchy(src *mockSource) {
	src.On("Distinct", mock.Anything, domain.FieldCategory, scoped(domain.Coordinate{})).
		Return([]string{"Apps", "Data"}, nil)
	src.On("Distinct", mock.Anything, domain.FieldUseCase, scoped(domain.Coordinate{Category: "Data"})).
		Return([]string{"Storage"}, nil)
	src.On("Distinct", mock.Anything, domain.FieldUseCase, scoped(domain.Coordinate{Category: "Apps"})).
		Return([]string{}, nil)
	src.On("Distinct", mock.Anything, domain.FieldFeature,
		scoped(domain.Coordinate{Category: "Data", UseCase: "Storage"})).
		Return([]string{"Sync", "Backup"}, nil)
}

func newCollector(res *mockResolver, src *mockSource, lib stubLibrary, opts Options) *Collector {
	opts.Now = func() time.Time { return time.Date(2025, 12, 10, 7, 0, 0, 0, time.UTC) }
	return New(res, src, lib, defaultRegistry(), opts)
}

func TestCollector_Collect_BuildsTree(t *testing.T) {
	// Given a hierarchy of two categories, one use case and two features
	res := new(mockResolver)
	res.On("Resolve", mock.Anything, "FY26-Q4").Return(testDates, nil)
	src := new(mockSource)
	expectHierarchy(src)

	// When collecting with parallel category branches
	report, err := newCollector(res, src, defaultLibrary(), Options{Parallelism: 4}).
		Collect(context.Background(), Request{Quarter: "FY26-Q4", RunDate: testRunDate})

	// Then every node carries its analyses and the tree mirrors the hierarchy
	require.NoError(t, err)
	root := report.Root
	assert.Equal(t, domain.TotalName, root.Name)
	assert.Equal(t, domain.LevelTotal, root.Level)
	assert.Equal(t, domain.SummaryKPIs{QTDRevenue: 1}, root.Analysis[domain.KindSummaryKPIs])
	assert.Equal(t, []string{"Apps", "Data"}, root.ChildNames())

	data := root.Children["Data"]
	assert.Equal(t, domain.LevelCategory, data.Level)
	assert.Equal(t, domain.Comparison{{Entity: "Data"}}, data.Analysis[domain.KindTopCustomers])
	assert.Empty(t, root.Children["Apps"].Children)

	storage := data.Children["Storage"]
	assert.Equal(t, []string{"Backup", "Sync"}, storage.ChildNames())
	sync := storage.Children["Sync"]
	assert.Equal(t, domain.LevelFeature, sync.Level)
	assert.Equal(t, domain.Comparison{{Entity: "Sync"}}, sync.Analysis[domain.KindTopCustomers])
	assert.Empty(t, sync.Children, "customers are not materialized by default")

	assert.Equal(t, "FY26-Q4", report.Metadata.Quarter)
	assert.Equal(t, testRunDate, report.Metadata.RunDate)
	assert.Equal(t, testDates, report.Metadata.Dates)
	assert.Equal(t, domain.SchemaVersion, report.Metadata.SchemaVersion)
	assert.NotEmpty(t, report.Metadata.RunID)
	src.AssertExpectations(t)
}

func TestCollector_Collect_CategoryFilter(t *testing.T) {
	t.Run("matching filter keeps one category", func(t *testing.T) {
		res := new(mockResolver)
		res.On("Resolve", mock.Anything, "FY26-Q4").Return(testDates, nil)
		src := new(mockSource)
		expectHierarchy(src)

		report, err := newCollector(res, src, defaultLibrary(), Options{}).
			Collect(context.Background(), Request{Quarter: "FY26-Q4", RunDate: testRunDate, Category: "Data"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Data"}, report.Root.ChildNames())
		assert.Equal(t, "Data", report.Metadata.CategoryFilter)
	})

	t.Run("unknown filter falls back to all categories", func(t *testing.T) {
		res := new(mockResolver)
		res.On("Resolve", mock.Anything, "FY26-Q4").Return(testDates, nil)
		src := new(mockSource)
		expectHierarchy(src)

		report, err := newCollector(res, src, defaultLibrary(), Options{}).
			Collect(context.Background(), Request{Quarter: "FY26-Q4", RunDate: testRunDate, Category: "Nope"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Apps", "Data"}, report.Root.ChildNames())
	})
}

func TestCollector_Collect_IsolatesAnalysisFailures(t *testing.T) {
	res := new(mockResolver)
	res.On("Resolve", mock.Anything, "FY26-Q4").Return(testDates, nil)
	src := new(mockSource)
	src.On("Distinct", mock.Anything, domain.FieldCategory, mock.Anything).Return([]string{}, nil)

	lib := stubLibrary{
		domain.KindSummaryKPIs: stubAnalysis{kind: domain.KindSummaryKPIs, run: func(analysis.Input) (domain.Result, error) {
			return nil, errors.New("division by warehouse")
		}},
		domain.KindTopCustomers: stubAnalysis{kind: domain.KindTopCustomers, run: func(analysis.Input) (domain.Result, error) {
			panic("unexpected column")
		}},
	}
	failedBefore := testutil.ToFloat64(analysesTotal.WithLabelValues(string(domain.KindSummaryKPIs), "failed"))

	report, err := newCollector(res, src, lib, Options{}).
		Collect(context.Background(), Request{Quarter: "FY26-Q4", RunDate: testRunDate})

	require.NoError(t, err)
	assert.Equal(t, domain.SummaryKPIs{Empty: true}, report.Root.Analysis[domain.KindSummaryKPIs])
	assert.Equal(t, domain.Comparison{}, report.Root.Analysis[domain.KindTopCustomers])
	assert.Equal(t, failedBefore+1,
		testutil.ToFloat64(analysesTotal.WithLabelValues(string(domain.KindSummaryKPIs), "failed")))
}

func TestCollector_Collect_NoCategoriesIsRootOnly(t *testing.T) {
	res := new(mockResolver)
	res.On("Resolve", mock.Anything, "FY26-Q4").Return(testDates, nil)
	src := new(mockSource)
	src.On("Distinct", mock.Anything, domain.FieldCategory, mock.Anything).Return([]string{}, nil)

	report, err := newCollector(res, src, defaultLibrary(), Options{}).
		Collect(context.Background(), Request{Quarter: "FY26-Q4", RunDate: testRunDate})
	require.NoError(t, err)
	assert.Empty(t, report.Root.Children)
	assert.Len(t, report.Root.Analysis, 2)
}

func TestCollector_Collect_FatalErrors(t *testing.T) {
	t.Run("unresolvable quarter issues no enumeration", func(t *testing.T) {
		res := new(mockResolver)
		res.On("Resolve", mock.Anything, "FY99-Q1").Return(domain.FiscalDates{}, errors.New("quarter not found"))
		src := new(mockSource)

		_, err := newCollector(res, src, defaultLibrary(), Options{}).
			Collect(context.Background(), Request{Quarter: "FY99-Q1", RunDate: testRunDate})
		require.Error(t, err)
		src.AssertNumberOfCalls(t, "Distinct", 0)
	})

	t.Run("enumeration failure aborts", func(t *testing.T) {
		res := new(mockResolver)
		res.On("Resolve", mock.Anything, "FY26-Q4").Return(testDates, nil)
		src := new(mockSource)
		src.On("Distinct", mock.Anything, domain.FieldCategory, mock.Anything).Return([]string{"Data"}, nil)
		src.On("Distinct", mock.Anything, domain.FieldUseCase, mock.Anything).Return(nil, errors.New("timeout"))

		report, err := newCollector(res, src, defaultLibrary(), Options{Parallelism: 2}).
			Collect(context.Background(), Request{Quarter: "FY26-Q4", RunDate: testRunDate})
		require.Error(t, err)
		assert.Nil(t, report)
		assert.Contains(t, err.Error(), "failed to enumerate use_case")
	})
}

func TestCollector_Collect_MaterializesLargestCustomers(t *testing.T) {
	res := new(mockResolver)
	res.On("Resolve", mock.Anything, "FY26-Q4").Return(testDates, nil)
	src := new(mockSource)
	src.On("Distinct", mock.Anything, domain.FieldCategory, mock.Anything).Return([]string{"Data"}, nil)
	src.On("Distinct", mock.Anything, domain.FieldUseCase, mock.Anything).Return([]string{"Storage"}, nil)
	src.On("Distinct", mock.Anything, domain.FieldFeature, mock.Anything).Return([]string{"Sync"}, nil)
	name := func(s string) *string { return &s }
	src.On("SumBy", mock.Anything, mock.MatchedBy(func(q store.AmountQuery) bool {
		return q.Scope == domain.Coordinate{Category: "Data", UseCase: "Storage", Feature: "Sync"} &&
			q.Window == testDates.ToDate()
	}), []store.Grouping{store.GroupCustomer}).Return([]store.GroupedAmount{
		{Keys: []*string{name("small")}, Amount: 10},
		{Keys: []*string{name("big")}, Amount: 900},
		{Keys: []*string{nil}, Amount: 5000},
		{Keys: []*string{name("medium")}, Amount: 300},
	}, nil)

	report, err := newCollector(res, src, defaultLibrary(), Options{MaxCustomersPerFeature: 2}).
		Collect(context.Background(), Request{Quarter: "FY26-Q4", RunDate: testRunDate})
	require.NoError(t, err)

	sync := report.Root.Children["Data"].Children["Storage"].Children["Sync"]
	assert.Equal(t, []string{"big", "medium"}, sync.ChildNames())
	customer := sync.Children["big"]
	assert.Equal(t, domain.LevelCustomer, customer.Level)
	assert.Len(t, customer.Analysis, 1)
	assert.Empty(t, customer.Children)
}

func TestCollector_Collect_CancellationAborts(t *testing.T) {
	tests := []struct {
		name string
		// run cancels the collection while the last feature is being analysed.
		run func(ctx context.Context, cancel context.CancelFunc) (domain.Result, error)
	}{
		{
			name: "analysis returns the context error",
			run: func(ctx context.Context, cancel context.CancelFunc) (domain.Result, error) {
				cancel()
				return nil, ctx.Err()
			},
		},
		{
			name: "analysis finishes after cancellation",
			run: func(_ context.Context, cancel context.CancelFunc) (domain.Result, error) {
				cancel()
				return domain.SummaryKPIs{QTDRevenue: 1}, nil
			},
		},
	}

	for _, tc := range tests {
		t.Run("error - "+tc.name, func(t *testing.T) {
			res := new(mockResolver)
			res.On("Resolve", mock.Anything, "FY26-Q4").Return(testDates, nil)
			src := new(mockSource)
			expectHierarchy(src)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			lib := defaultLibrary()
			lib[domain.KindSummaryKPIs] = ctxAnalysis{
				kind: domain.KindSummaryKPIs,
				run: func(ctx context.Context, in analysis.Input) (domain.Result, error) {
					if in.Scope.Feature == "Backup" {
						return tc.run(ctx, cancel)
					}
					return domain.SummaryKPIs{QTDRevenue: 1}, nil
				},
			}

			report, err := newCollector(res, src, lib, Options{Parallelism: 1}).
				Collect(ctx, Request{Quarter: "FY26-Q4", RunDate: testRunDate})

			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Nil(t, report)
		})
	}
}
