package analysis

import (
	"context"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
)

type summaryKPIs struct {
	*env
}

func (summaryKPIs) Kind() domain.Kind { return domain.KindSummaryKPIs }

func (a summaryKPIs) Run(ctx context.Context, in Input) (domain.Result, error) {
	current, err := a.src.Sum(ctx, a.actuals(in, in.Dates.ToDate(), in.Scope, false))
	if err != nil {
		return nil, err
	}
	prior, err := a.src.Sum(ctx, a.actuals(in, in.Dates.PriorQuarter(), in.Scope, false))
	if err != nil {
		return nil, err
	}
	priorYear, err := a.src.Sum(ctx, a.actuals(in, in.Dates.PriorYear(), in.Scope, false))
	if err != nil {
		return nil, err
	}
	var plan float64
	if a.comparesPlan(in.Scope) {
		if plan, err = a.src.Sum(ctx, a.plan(in, in.Scope)); err != nil {
			return nil, err
		}
	}

	return domain.SummaryKPIs{
		QTDRevenue:       currency(current),
		QTDPlan:          currency(plan),
		DeltaToPlan:      currency(current - plan),
		PctVsPlan:        pct(current-plan, plan),
		PriorQRevenue:    currency(prior),
		QoQGrowthPct:     pct(current-prior, prior),
		PriorYearRevenue: currency(priorYear),
		YoYGrowthPct:     pct(current-priorYear, priorYear),
	}, nil
}
