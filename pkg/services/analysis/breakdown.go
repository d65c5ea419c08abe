package analysis

import (
	"context"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
)

// childrenBreakdown compares every child of the node. Children without a name are excluded
// before totals so mix shares sum to 100.
type childrenBreakdown struct {
	*env
}

func (childrenBreakdown) Kind() domain.Kind { return domain.KindChildrenBreakdown }

func (a childrenBreakdown) Run(ctx context.Context, in Input) (domain.Result, error) {
	child, ok := domain.ChildOf(in.Scope.Level())
	if !ok {
		return domain.Comparison{}, nil
	}
	p, err := a.fetchPeriods(ctx, in, in.Scope, false, store.GroupOf(child.Field))
	if err != nil {
		return nil, err
	}
	l := merge(p, "")
	return comparison(singletons(l), totalsOf(l), false, 0), nil
}

// industryPerformance compares industries; customers without one fall into "Unknown".
type industryPerformance struct {
	*env
}

const unknownIndustry = "Unknown"

func (industryPerformance) Kind() domain.Kind { return domain.KindIndustryPerformance }

func (a industryPerformance) Run(ctx context.Context, in Input) (domain.Result, error) {
	p, err := a.fetchPeriods(ctx, in, in.Scope, false, store.GroupIndustry)
	if err != nil {
		return nil, err
	}
	l := merge(p, unknownIndustry)
	return comparison(singletons(l), totalsOf(l), false, a.settings.MaxIndustries), nil
}

// topCustomers lists the largest customers of the node by current amount.
type topCustomers struct {
	*env
}

func (topCustomers) Kind() domain.Kind { return domain.KindTopCustomers }

func (a topCustomers) Run(ctx context.Context, in Input) (domain.Result, error) {
	if in.Scope.Customer != "" {
		return domain.Comparison{}, nil
	}
	p, err := a.fetchPeriods(ctx, in, in.Scope, false, store.GroupCustomer)
	if err != nil {
		return nil, err
	}
	l := merge(p, "")
	return comparison(singletons(l), totalsOf(l), false, a.settings.MaxTopCustomers), nil
}
