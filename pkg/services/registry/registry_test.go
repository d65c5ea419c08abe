package registry

import (
	"errors"
	"testing"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_ForLevel(t *testing.T) {
	r := NewDefault()

	t.Run("upper levels carry every analysis", func(t *testing.T) {
		for _, level := range []domain.Level{domain.LevelTotal, domain.LevelCategory, domain.LevelUseCase} {
			assert.Equal(t, domain.Kinds(), r.ForLevel(level), level)
		}
	})

	t.Run("customer leaf omits breakdown and segmentation", func(t *testing.T) {
		kinds := r.ForLevel(domain.LevelCustomer)
		for _, excluded := range []domain.Kind{
			domain.KindChildrenBreakdown,
			domain.KindConcentrationTrend,
			domain.KindTop20VsLongTail,
			domain.KindNewVsExisting,
		} {
			assert.NotContains(t, kinds, excluded)
		}
		assert.Equal(t, domain.KindSummaryKPIs, kinds[0])
	})

	t.Run("feature omits child movers", func(t *testing.T) {
		kinds := r.ForLevel(domain.LevelFeature)
		assert.NotContains(t, kinds, domain.KindTopGainers)
		assert.NotContains(t, kinds, domain.KindTopContractors)
		assert.NotContains(t, kinds, domain.KindPlanVarianceBySegment)
		assert.Contains(t, kinds, domain.KindTopCustomerGainers)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		kinds := r.ForLevel(domain.LevelTotal)
		kinds[0] = "mutated"
		assert.Equal(t, domain.KindSummaryKPIs, r.ForLevel(domain.LevelTotal)[0])
	})

	t.Run("unknown level has nothing", func(t *testing.T) {
		assert.Empty(t, r.ForLevel("planet"))
	})
}

func TestRegistry_PlanComparison(t *testing.T) {
	describe := func(level domain.Level) (domain.HierarchyLevel, error) {
		if level == "planet" {
			return domain.HierarchyLevel{}, errors.New("unknown")
		}
		return domain.HierarchyLevel{Name: level, HasPlanComparison: level != domain.LevelFeature}, nil
	}
	kinds := []domain.Kind{domain.KindSummaryKPIs, domain.KindPlanVarianceBySegment}

	r := build(map[domain.Level][]domain.Kind{
		domain.LevelCategory: kinds,
		domain.LevelFeature:  kinds,
		"planet":             kinds,
	}, describe)

	assert.Equal(t, kinds, r.ForLevel(domain.LevelCategory))
	assert.Equal(t, []domain.Kind{domain.KindSummaryKPIs}, r.ForLevel(domain.LevelFeature))
	assert.Empty(t, r.ForLevel("planet"), "levels outside the hierarchy are dropped")
}
