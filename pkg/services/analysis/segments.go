package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
)

const (
	CustomerNew      = "NEW"
	CustomerExisting = "EXISTING"
	CustomerChurned  = "CHURNED"

	SegmentGrowing   = "GROWING"
	SegmentStagnant  = "STAGNANT"
	SegmentShrinking = "SHRINKING"

	LongTail = "Long Tail"
)

func topSegmentLabel(size int) string {
	return fmt.Sprintf("Top %d Customers", size)
}

func topSegmentShortLabel(size int) string {
	return fmt.Sprintf("Top %d", size)
}

// topSegment compares the largest capacity customers against the rest of the ranked ones.
// Customers without positive current revenue are in neither bucket.
type topSegment struct {
	*env
}

func (topSegment) Kind() domain.Kind { return domain.KindTop20VsLongTail }

func (a topSegment) Run(ctx context.Context, in Input) (domain.Result, error) {
	if in.Scope.Customer != "" {
		return domain.Comparison{}, nil
	}
	p, err := a.fetchPeriods(ctx, in, in.Scope, true, store.GroupCustomer)
	if err != nil {
		return nil, err
	}
	l := merge(p, "")
	ranked := l.rankByCurrent()

	size := a.settings.TopSegmentSize
	top := cohort{name: topSegmentLabel(size)}
	tail := cohort{name: LongTail}
	for i, name := range ranked {
		if i < size {
			top.add(l[name])
		} else {
			tail.add(l[name])
		}
	}

	var cs []cohort
	for _, c := range []cohort{top, tail} {
		if c.count > 0 {
			cs = append(cs, c)
		}
	}
	sortByCurrent(cs)
	return comparison(cs, totalsOf(l, ranked...), true, 0), nil
}

// ClassifyCustomer assigns the new/existing/churned type and, for existing customers,
// the growth segment by relative QoQ change.
func ClassifyCustomer(current, prior, growth, shrink float64) (customerType, segment string) {
	switch {
	case prior == 0:
		return CustomerNew, ""
	case current == 0:
		return CustomerChurned, ""
	}
	change := (current - prior) / prior
	switch {
	case change > growth:
		return CustomerExisting, SegmentGrowing
	case change < shrink:
		return CustomerExisting, SegmentShrinking
	default:
		return CustomerExisting, SegmentStagnant
	}
}

var classOrder = []struct{ customerType, segment string }{
	{CustomerNew, ""},
	{CustomerExisting, SegmentGrowing},
	{CustomerExisting, SegmentStagnant},
	{CustomerExisting, SegmentShrinking},
	{CustomerChurned, ""},
}

// newVsExisting partitions the capacity customers seen this or last quarter.
type newVsExisting struct {
	*env
}

func (newVsExisting) Kind() domain.Kind { return domain.KindNewVsExisting }

func (a newVsExisting) Run(ctx context.Context, in Input) (domain.Result, error) {
	if in.Scope.Customer != "" {
		return domain.Comparison{}, nil
	}
	p, err := a.fetchPeriods(ctx, in, in.Scope, true, store.GroupCustomer)
	if err != nil {
		return nil, err
	}
	l := merge(p, "")

	population := make([]string, 0, len(l))
	groups := map[string]*cohort{}
	for name, f := range l {
		if !f.observedIn(periodCurrent | periodPrior) {
			continue
		}
		population = append(population, name)

		customerType, segment := ClassifyCustomer(f.Current, f.Prior, a.settings.GrowthThreshold, a.settings.ShrinkThreshold)
		key := customerType + "/" + segment
		c, ok := groups[key]
		if !ok {
			c = &cohort{name: customerType, customerType: customerType, existingSegment: segment}
			if segment != "" {
				c.name = customerType + " - " + segment
			}
			groups[key] = c
		}
		c.add(f)
	}

	t := totalsOf(l, population...)
	rows := make(domain.Comparison, 0, len(groups))
	for _, class := range classOrder {
		if c, ok := groups[class.customerType+"/"+class.segment]; ok {
			rows = append(rows, c.row(t, true))
		}
	}
	return rows, nil
}

// planVarianceBySegment splits each child's actual and plan by the node-level customer ranking.
type planVarianceBySegment struct {
	*env
}

func (planVarianceBySegment) Kind() domain.Kind { return domain.KindPlanVarianceBySegment }

func (a planVarianceBySegment) Run(ctx context.Context, in Input) (domain.Result, error) {
	if in.Scope.Customer != "" {
		return domain.PlanVariance{}, nil
	}
	child, ok := domain.ChildOf(in.Scope.Level())
	if !ok {
		return domain.PlanVariance{}, nil
	}
	childGroup := store.GroupOf(child.Field)

	ranking, err := a.src.SumBy(ctx, a.actuals(in, in.Dates.ToDate(), in.Scope, false), store.GroupCustomer)
	if err != nil {
		return nil, err
	}
	size := a.settings.TopSegmentSize
	top := map[string]struct{}{}
	for i, name := range merge(periods{current: ranking}, "").rankByCurrent() {
		if i >= size {
			break
		}
		top[name] = struct{}{}
	}
	segmentOf := func(r store.GroupedAmount) string {
		if name, ok := r.Key(1); ok {
			if _, isTop := top[name]; isTop {
				return topSegmentShortLabel(size)
			}
		}
		return LongTail
	}

	actuals, err := a.src.SumBy(ctx, a.actuals(in, in.Dates.ToDate(), in.Scope, false), childGroup, store.GroupCustomer)
	if err != nil {
		return nil, err
	}
	plan, err := a.src.SumBy(ctx, a.plan(in, in.Scope), childGroup, store.GroupCustomer)
	if err != nil {
		return nil, err
	}

	type cell struct{ entity, segment string }
	cells := map[cell]*domain.PlanVarianceRow{}
	accumulate := func(rows []store.GroupedAmount, isPlan bool) {
		for _, r := range rows {
			entity, ok := r.Key(0)
			if !ok {
				continue
			}
			k := cell{entity: entity, segment: segmentOf(r)}
			row, exists := cells[k]
			if !exists {
				row = &domain.PlanVarianceRow{Entity: k.entity, Segment: k.segment}
				cells[k] = row
			}
			if isPlan {
				row.PlanRevenue += r.Amount
			} else {
				row.ActualRevenue += r.Amount
			}
		}
	}
	accumulate(actuals, false)
	accumulate(plan, true)

	rows := make(domain.PlanVariance, 0, len(cells))
	for _, row := range cells {
		rows = append(rows, domain.PlanVarianceRow{
			Entity:        row.Entity,
			Segment:       row.Segment,
			ActualRevenue: currency(row.ActualRevenue),
			PlanRevenue:   currency(row.PlanRevenue),
			Variance:      currency(row.ActualRevenue - row.PlanRevenue),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Entity != rows[j].Entity {
			return rows[i].Entity < rows[j].Entity
		}
		return rows[i].Segment < rows[j].Segment
	})
	return rows, nil
}
