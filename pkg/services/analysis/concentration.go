package analysis

import (
	"context"
	"sort"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
)

const (
	concentrationNarrow = 10
	concentrationWide   = 20
)

// concentrationTrend tracks how much of each month's revenue its largest customers hold.
type concentrationTrend struct {
	*env
}

func (concentrationTrend) Kind() domain.Kind { return domain.KindConcentrationTrend }

func (a concentrationTrend) Run(ctx context.Context, in Input) (domain.Result, error) {
	if in.Scope.Customer != "" {
		return domain.Concentration{}, nil
	}
	rows, err := a.src.SumBy(ctx, a.actuals(in, in.Dates.ToDate(), in.Scope, false), store.GroupMonth, store.GroupCustomer)
	if err != nil {
		return nil, err
	}

	type month struct {
		total     float64
		customers map[string]float64
	}
	months := map[string]*month{}
	for _, r := range rows {
		key, ok := r.Key(0)
		if !ok {
			continue
		}
		m, exists := months[key]
		if !exists {
			m = &month{customers: map[string]float64{}}
			months[key] = m
		}
		m.total += r.Amount
		if name, ok := r.Key(1); ok {
			m.customers[name] += r.Amount
		}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make(domain.Concentration, 0, len(keys))
	for _, k := range keys {
		m := months[k]
		l := ledger{}
		for name, amount := range m.customers {
			l[name] = &figures{Current: amount}
		}
		var narrow, wide float64
		for i, name := range l.rankByCurrent() {
			if i >= concentrationWide {
				break
			}
			if i < concentrationNarrow {
				narrow += l[name].Current
			}
			wide += l[name].Current
		}
		points = append(points, domain.ConcentrationPoint{
			Month:        k,
			Top10Revenue: currency(narrow),
			Top20Revenue: currency(wide),
			TotalRevenue: currency(m.total),
			Top10Pct:     pct(narrow, m.total),
			Top20Pct:     pct(wide, m.total),
		})
	}
	return points, nil
}
