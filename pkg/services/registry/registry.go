package registry

import "github.com/de-tools/revenue-atlas/pkg/models/domain"

// Registry maps a hierarchy level to the ordered analyses its nodes carry.
type Registry interface {
	ForLevel(level domain.Level) []domain.Kind
}

type levelRegistry struct {
	levels map[domain.Level][]domain.Kind
}

var allKinds = domain.Kinds()

var featureKinds = []domain.Kind{
	domain.KindSummaryKPIs,
	domain.KindMonthlyTrends,
	domain.KindChildrenBreakdown,
	domain.KindTop20VsLongTail,
	domain.KindNewVsExisting,
	domain.KindTopCustomers,
	domain.KindTopCustomerGainers,
	domain.KindTopCustomerContractors,
	domain.KindIndustryPerformance,
	domain.KindConcentrationTrend,
}

var customerKinds = []domain.Kind{
	domain.KindSummaryKPIs,
	domain.KindMonthlyTrends,
	domain.KindIndustryPerformance,
}

var defaultLevels = map[domain.Level][]domain.Kind{
	domain.LevelTotal:    allKinds,
	domain.LevelCategory: allKinds,
	domain.LevelUseCase:  allKinds,
	domain.LevelFeature:  featureKinds,
	domain.LevelCustomer: customerKinds,
}

// NewDefault returns the standard level layout. Features have customers as children, so
// child movers and the per-child segment split would repeat the customer analyses there.
func NewDefault() Registry {
	return build(defaultLevels, domain.Describe)
}

// build drops plan-only analyses from levels that have no plan figures.
func build(
	levels map[domain.Level][]domain.Kind,
	describe func(domain.Level) (domain.HierarchyLevel, error),
) *levelRegistry {
	out := make(map[domain.Level][]domain.Kind, len(levels))
	for level, kinds := range levels {
		h, err := describe(level)
		if err != nil {
			continue
		}
		selected := make([]domain.Kind, 0, len(kinds))
		for _, k := range kinds {
			if k.NeedsPlan() && !h.HasPlanComparison {
				continue
			}
			selected = append(selected, k)
		}
		out[level] = selected
	}
	return &levelRegistry{levels: out}
}

func (r *levelRegistry) ForLevel(level domain.Level) []domain.Kind {
	kinds := r.levels[level]
	out := make([]domain.Kind, len(kinds))
	copy(out, kinds)
	return out
}
