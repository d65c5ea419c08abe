package analysis

import (
	"context"
	"sort"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
)

// trend is the in-quarter actual and plan series with running totals.
type trend struct {
	*env
}

func (trend) Kind() domain.Kind { return domain.KindMonthlyTrends }

func (a trend) Run(ctx context.Context, in Input) (domain.Result, error) {
	group := store.GroupDay
	if a.settings.TrendGranularity == GranularityMonth {
		group = store.GroupMonth
	}

	actuals, err := a.src.SumBy(ctx, a.actuals(in, in.Dates.ToDate(), in.Scope, false), group)
	if err != nil {
		return nil, err
	}
	var plan []store.GroupedAmount
	if a.comparesPlan(in.Scope) {
		if plan, err = a.src.SumBy(ctx, a.plan(in, in.Scope), group); err != nil {
			return nil, err
		}
	}

	l := merge(periods{current: actuals, plan: plan}, "")
	last := domain.FormatDate(in.Dates.EffectiveEnd)
	keys := make([]string, 0, len(l))
	for k := range l {
		// ISO dates order lexically.
		if k <= last {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var cumRevenue, cumPlan float64
	points := make(domain.Trend, 0, len(keys))
	for _, k := range keys {
		f := l[k]
		cumRevenue += f.Current
		cumPlan += f.Plan
		p := domain.TrendPoint{
			Period:            k,
			Revenue:           currency(f.Current),
			PlanRevenue:       currency(f.Plan),
			CumulativeRevenue: currency(cumRevenue),
			CumulativePlan:    currency(cumPlan),
		}
		if cumPlan != 0 {
			vs := currency(cumRevenue - cumPlan)
			p.VsPlan = &vs
			p.VsPlanPct = pct(cumRevenue-cumPlan, cumPlan)
		}
		points = append(points, p)
	}
	return points, nil
}
