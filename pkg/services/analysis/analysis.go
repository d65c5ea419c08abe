package analysis

import (
	"context"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
)

// Input is everything an analysis needs to know about the node it runs for.
type Input struct {
	Dates   domain.FiscalDates
	RunDate time.Time
	Scope   domain.Coordinate
}

// Analysis computes one kind of result for a node.
type Analysis interface {
	Kind() domain.Kind
	Run(ctx context.Context, in Input) (domain.Result, error)
}

// Source provides aggregated amounts from the actuals and plan sources.
type Source interface {
	Sum(ctx context.Context, q store.AmountQuery) (float64, error)
	SumBy(ctx context.Context, q store.AmountQuery, groups ...store.Grouping) ([]store.GroupedAmount, error)
}

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

type Settings struct {
	// GrowthThreshold and ShrinkThreshold split existing customers by relative QoQ change.
	GrowthThreshold float64
	ShrinkThreshold float64

	MaxCustomerMovers int
	MaxIndustries     int
	MaxTopCustomers   int
	TopSegmentSize    int

	TrendGranularity Granularity
}

func DefaultSettings() Settings {
	return Settings{
		GrowthThreshold:   0.05,
		ShrinkThreshold:   -0.05,
		MaxCustomerMovers: 5,
		MaxIndustries:     10,
		MaxTopCustomers:   10,
		TopSegmentSize:    20,
		TrendGranularity:  GranularityDay,
	}
}

const childMoverLimit = 5

// Library holds one instance of every analysis kind.
type Library struct {
	analyses map[domain.Kind]Analysis
}

func NewLibrary(src Source, settings Settings) *Library {
	e := &env{src: src, settings: settings}
	all := []Analysis{
		summaryKPIs{e},
		trend{e},
		childrenBreakdown{e},
		planVarianceBySegment{e},
		topSegment{e},
		newVsExisting{e},
		topCustomers{e},
		childMovers{env: e, kind: domain.KindTopGainers, sign: gaining},
		childMovers{env: e, kind: domain.KindTopContractors, sign: declining},
		customerMovers{env: e, kind: domain.KindTopCustomerGainers, sign: gaining},
		customerMovers{env: e, kind: domain.KindTopCustomerContractors, sign: declining},
		industryPerformance{e},
		concentrationTrend{e},
	}

	l := &Library{analyses: make(map[domain.Kind]Analysis, len(all))}
	for _, a := range all {
		l.analyses[a.Kind()] = a
	}
	return l
}

// Get returns the analysis for a kind.
func (l *Library) Get(kind domain.Kind) (Analysis, bool) {
	a, ok := l.analyses[kind]
	return a, ok
}

type env struct {
	src      Source
	settings Settings
}

func (e *env) actuals(in Input, window domain.DateRange, scope domain.Coordinate, capacity bool) store.AmountQuery {
	return store.AmountQuery{
		Source:       store.SourceActuals,
		Window:       window,
		RunDate:      in.RunDate,
		Scope:        scope,
		CapacityOnly: capacity,
	}
}

// comparesPlan reports whether plan figures exist at the depth of scope.
func (e *env) comparesPlan(scope domain.Coordinate) bool {
	h, err := domain.Describe(scope.Level())
	return err == nil && h.HasPlanComparison
}

func (e *env) plan(in Input, scope domain.Coordinate) store.AmountQuery {
	return store.AmountQuery{
		Source: store.SourcePlan,
		Window: in.Dates.ToDate(),
		Scope:  scope,
	}
}

// periods holds the grouped amounts of the four comparison periods.
type periods struct {
	current   []store.GroupedAmount
	prior     []store.GroupedAmount
	priorYear []store.GroupedAmount
	plan      []store.GroupedAmount
}

func (e *env) fetchPeriods(
	ctx context.Context,
	in Input,
	scope domain.Coordinate,
	capacity bool,
	group store.Grouping,
) (periods, error) {
	var (
		p   periods
		err error
	)
	if p.current, err = e.src.SumBy(ctx, e.actuals(in, in.Dates.ToDate(), scope, capacity), group); err != nil {
		return p, err
	}
	if p.prior, err = e.src.SumBy(ctx, e.actuals(in, in.Dates.PriorQuarter(), scope, capacity), group); err != nil {
		return p, err
	}
	if p.priorYear, err = e.src.SumBy(ctx, e.actuals(in, in.Dates.PriorYear(), scope, capacity), group); err != nil {
		return p, err
	}
	if !e.comparesPlan(scope) {
		return p, nil
	}
	if p.plan, err = e.src.SumBy(ctx, e.plan(in, scope), group); err != nil {
		return p, err
	}
	return p, nil
}

func (e *env) fetchQuarterOverQuarter(
	ctx context.Context,
	in Input,
	scope domain.Coordinate,
	group store.Grouping,
) (periods, error) {
	var (
		p   periods
		err error
	)
	if p.current, err = e.src.SumBy(ctx, e.actuals(in, in.Dates.ToDate(), scope, false), group); err != nil {
		return p, err
	}
	if p.prior, err = e.src.SumBy(ctx, e.actuals(in, in.Dates.PriorQuarter(), scope, false), group); err != nil {
		return p, err
	}
	return p, nil
}
