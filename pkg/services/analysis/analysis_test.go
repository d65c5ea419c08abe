package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLibrary_CoversEveryKind(t *testing.T) {
	lib := NewLibrary(new(mockSource), DefaultSettings())
	for _, kind := range domain.Kinds() {
		a, ok := lib.Get(kind)
		require.True(t, ok, "missing %s", kind)
		assert.Equal(t, kind, a.Kind())
	}
}

func TestSummaryKPIs(t *testing.T) {
	in := testInput(domain.Coordinate{Category: "Data"})
	src := new(mockSource)
	src.On("Sum", mock.Anything, currentQuery(in, false)).Return(1200.4, nil)
	src.On("Sum", mock.Anything, priorQuery(in, false)).Return(1000.0, nil)
	src.On("Sum", mock.Anything, priorYearQuery(in, false)).Return(800.0, nil)
	src.On("Sum", mock.Anything, planQuery(in)).Return(0.0, nil)

	res := run(t, NewLibrary(src, DefaultSettings()), domain.KindSummaryKPIs, in)

	assert.Equal(t, domain.SummaryKPIs{
		QTDRevenue:       1200,
		QTDPlan:          0,
		DeltaToPlan:      1200,
		PctVsPlan:        nil,
		PriorQRevenue:    1000,
		QoQGrowthPct:     f(20.04),
		PriorYearRevenue: 800,
		YoYGrowthPct:     f(50.05),
	}, res)
}

func TestSummaryKPIs_PropagatesQueryErrors(t *testing.T) {
	in := testInput(domain.Coordinate{})
	src := new(mockSource)
	src.On("Sum", mock.Anything, currentQuery(in, false)).Return(0.0, errors.New("warehouse down"))

	a, _ := NewLibrary(src, DefaultSettings()).Get(domain.KindSummaryKPIs)
	_, err := a.Run(context.Background(), in)
	assert.Error(t, err)
}

func TestChildrenBreakdown_GrowthAndContribution(t *testing.T) {
	// Given a parent whose children moved by +20 and -30
	in := testInput(domain.Coordinate{})
	src := new(mockSource)
	src.expectPeriods(in, false, store.GroupCategory, fourPeriods{
		current: rows(ga(120, "A"), ga(70, "B"), ga(0, "C"), ga(10, nil)),
		prior:   rows(ga(100, "A"), ga(100, "B")),
	})

	// When breaking the parent down by category
	res := run(t, NewLibrary(src, DefaultSettings()), domain.KindChildrenBreakdown, in)

	// Then growth and contribution shares follow the absolute deltas
	got := res.(domain.Comparison)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].Entity, got[1].Entity, got[2].Entity})

	a := got[0]
	assert.Equal(t, 120.0, a.QTDRevenue)
	assert.Equal(t, 100.0, a.PriorQRevenue)
	assert.Equal(t, 20.0, a.QoQDelta)
	assert.Equal(t, f(20.0), a.QoQGrowthPct)
	assert.Equal(t, f(40.0), a.ContributionToGrowthPct)
	assert.Equal(t, f(60.0), got[1].ContributionToGrowthPct)
	assert.Nil(t, got[2].QoQGrowthPct)
	assert.Nil(t, a.PctVsPlan)
	assert.Nil(t, a.YoYGrowthPct)

	// And mix shares over the named children sum to 100
	var mix float64
	for _, r := range got {
		require.NotNil(t, r.MixPct)
		mix += *r.MixPct
	}
	assert.InDelta(t, 100, mix, 0.5)
	src.AssertExpectations(t)
}

func TestChildrenBreakdown_LeafHasNoChildren(t *testing.T) {
	src := new(mockSource)
	res := run(t, NewLibrary(src, DefaultSettings()), domain.KindChildrenBreakdown,
		testInput(domain.Coordinate{Category: "Data", UseCase: "U", Feature: "F", Customer: "Acme"}))

	assert.Equal(t, domain.Comparison{}, res)
	src.AssertNumberOfCalls(t, "SumBy", 0)
}

func customerPeriods() fourPeriods {
	return fourPeriods{
		current:   rows(ga(500, "A"), ga(300, "B"), ga(100, "D"), ga(40, "F")),
		prior:     rows(ga(200, "A"), ga(250, "B"), ga(500, "C"), ga(150, "D"), ga(10, "E")),
		priorYear: rows(ga(90, "G")),
		plan:      rows(ga(450, "A")),
	}
}

func TestCustomerMovers_Gainers(t *testing.T) {
	in := testInput(domain.Coordinate{Category: "Data"})
	src := new(mockSource)
	src.expectPeriods(in, false, store.GroupCustomer, customerPeriods())

	got := run(t, NewLibrary(src, DefaultSettings()), domain.KindTopCustomerGainers, in).(domain.Comparison)

	require.Len(t, got, 3)
	for i, r := range got {
		assert.Greater(t, r.QoQDelta, 0.0)
		if i > 0 {
			assert.Less(t, r.QoQDelta, got[i-1].QoQDelta)
		}
	}
	assert.Equal(t, "A", got[0].Entity)
	assert.Equal(t, f(76.92), got[0].ContributionToGrowthPct)
	assert.Nil(t, got[0].ContributionToDeclinePct)
	assert.Equal(t, f(11.11), got[0].PctVsPlan)
}

func TestCustomerMovers_ContractorsIncludeChurned(t *testing.T) {
	in := testInput(domain.Coordinate{Category: "Data"})
	src := new(mockSource)
	src.expectPeriods(in, false, store.GroupCustomer, customerPeriods())

	got := run(t, NewLibrary(src, DefaultSettings()), domain.KindTopCustomerContractors, in).(domain.Comparison)

	require.Len(t, got, 3)
	assert.Equal(t, "C", got[0].Entity)
	assert.Equal(t, -500.0, got[0].QoQDelta)
	assert.Equal(t, 0.0, got[0].QTDRevenue)
	assert.Equal(t, f(89.29), got[0].ContributionToDeclinePct)
	assert.Nil(t, got[0].ContributionToGrowthPct)
	assert.Equal(t, []string{"D", "E"}, []string{got[1].Entity, got[2].Entity})
}

func TestChildMovers(t *testing.T) {
	in := testInput(domain.Coordinate{Category: "Data"})
	src := new(mockSource)
	groups := []store.Grouping{store.GroupUseCase}
	src.On("SumBy", mock.Anything, currentQuery(in, false), groups).
		Return(rows(ga(50, "x"), ga(50, "y"), ga(10, "z"), ga(5, nil)), nil)
	src.On("SumBy", mock.Anything, priorQuery(in, false), groups).
		Return(rows(ga(20, "x"), ga(20, "y"), ga(40, "z")), nil)

	lib := NewLibrary(src, DefaultSettings())

	gainers := run(t, lib, domain.KindTopGainers, in).(domain.Movers)
	require.Len(t, gainers, 2)
	assert.Equal(t, "x", gainers[0].Entity, "ties break by name")
	assert.Equal(t, f(50.0), gainers[0].ContributionPct)
	assert.Equal(t, f(150.0), gainers[0].QoQGrowthPct)

	contractors := run(t, lib, domain.KindTopContractors, in).(domain.Movers)
	require.Len(t, contractors, 1)
	assert.Equal(t, domain.MoverRow{
		Entity:                "z",
		CurrentQuarterRevenue: 10,
		PriorQuarterRevenue:   40,
		Delta:                 -30,
		QoQGrowthPct:          f(-75),
		ContributionPct:       f(100),
	}, contractors[0])
}

func TestNewVsExisting_PartitionsObservedCustomers(t *testing.T) {
	in := testInput(domain.Coordinate{Category: "Data"})
	src := new(mockSource)
	src.expectPeriods(in, true, store.GroupCustomer, customerPeriods())

	got := run(t, NewLibrary(src, DefaultSettings()), domain.KindNewVsExisting, in).(domain.Comparison)

	type class struct {
		entity, customerType, segment string
		count                         int
	}
	var classes []class
	total := 0
	for _, r := range got {
		classes = append(classes, class{r.Entity, r.CustomerType, r.ExistingSegment, r.CustomerCount})
		total += r.CustomerCount
	}
	assert.Equal(t, []class{
		{"NEW", CustomerNew, "", 1},
		{"EXISTING - GROWING", CustomerExisting, SegmentGrowing, 2},
		{"EXISTING - SHRINKING", CustomerExisting, SegmentShrinking, 1},
		{"CHURNED", CustomerChurned, "", 2},
	}, classes)
	// A, B, C, D, E, F; G only has prior-year revenue
	assert.Equal(t, 6, total)

	churned := got[3]
	assert.Equal(t, 0.0, churned.QTDRevenue)
	assert.Equal(t, 510.0, churned.PriorQRevenue)
	assert.Equal(t, 0.0, churned.PriorYearRevenue)
}

func TestClassifyCustomer(t *testing.T) {
	tests := []struct {
		name           string
		current, prior float64
		wantType       string
		wantSegment    string
	}{
		{"no prior revenue", 100, 0, CustomerNew, ""},
		{"no revenue at all", 0, 0, CustomerNew, ""},
		{"churned", 0, 500, CustomerChurned, ""},
		{"growing", 106, 100, CustomerExisting, SegmentGrowing},
		{"exactly at growth threshold", 105, 100, CustomerExisting, SegmentStagnant},
		{"stagnant", 98, 100, CustomerExisting, SegmentStagnant},
		{"shrinking", 90, 100, CustomerExisting, SegmentShrinking},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ct, seg := ClassifyCustomer(tc.current, tc.prior, 0.05, -0.05)
			assert.Equal(t, tc.wantType, ct)
			assert.Equal(t, tc.wantSegment, seg)
		})
	}
}

func TestTopSegment_ExcludesCustomersWithoutCurrentRevenue(t *testing.T) {
	// Given 25 ranked capacity customers and one that churned from 500 to 0
	in := testInput(domain.Coordinate{Category: "Data"})
	var current, prior []store.GroupedAmount
	for i := 1; i <= 25; i++ {
		current = append(current, ga(float64(1000-10*i), fmt.Sprintf("c%02d", i)))
	}
	prior = append(prior, ga(500, "churned"))
	src := new(mockSource)
	src.expectPeriods(in, true, store.GroupCustomer, fourPeriods{current: current, prior: prior})

	// When splitting into top 20 and long tail
	got := run(t, NewLibrary(src, DefaultSettings()), domain.KindTop20VsLongTail, in).(domain.Comparison)

	// Then the churned customer is in neither bucket
	require.Len(t, got, 2)
	assert.Equal(t, "Top 20 Customers", got[0].Entity)
	assert.Equal(t, 20, got[0].CustomerCount)
	assert.Equal(t, LongTail, got[1].Entity)
	assert.Equal(t, 5, got[1].CustomerCount)
	assert.Zero(t, got[0].PriorQRevenue+got[1].PriorQRevenue)
	require.NotNil(t, got[0].ContributionToGrowthPct)
	require.NotNil(t, got[1].ContributionToGrowthPct)
	assert.InDelta(t, 100, *got[0].ContributionToGrowthPct+*got[1].ContributionToGrowthPct, 0.02)
}

func TestTopSegment_SkippedForCustomerScope(t *testing.T) {
	src := new(mockSource)
	lib := NewLibrary(src, DefaultSettings())
	in := testInput(domain.Coordinate{Category: "Data", UseCase: "U", Feature: "F", Customer: "Acme"})

	for _, kind := range []domain.Kind{
		domain.KindTop20VsLongTail,
		domain.KindNewVsExisting,
		domain.KindTopCustomers,
		domain.KindTopCustomerGainers,
		domain.KindConcentrationTrend,
		domain.KindPlanVarianceBySegment,
	} {
		res := run(t, lib, kind, in)
		assert.Zero(t, res.Len(), kind)
	}
	src.AssertNumberOfCalls(t, "SumBy", 0)
}

func TestTrend_Daily(t *testing.T) {
	in := testInput(domain.Coordinate{})
	src := new(mockSource)
	groups := []store.Grouping{store.GroupDay}
	src.On("SumBy", mock.Anything, currentQuery(in, false), groups).
		Return(rows(ga(20, "2025-11-02"), ga(10, "2025-11-01")), nil)
	src.On("SumBy", mock.Anything, planQuery(in), groups).
		Return(rows(ga(15, "2025-11-02"), ga(99, "2025-12-20")), nil)

	got := run(t, NewLibrary(src, DefaultSettings()), domain.KindMonthlyTrends, in).(domain.Trend)

	assert.Equal(t, domain.Trend{
		{Period: "2025-11-01", Revenue: 10, PlanRevenue: 0, CumulativeRevenue: 10, CumulativePlan: 0},
		{Period: "2025-11-02", Revenue: 20, PlanRevenue: 15, CumulativeRevenue: 30, CumulativePlan: 15,
			VsPlan: f(15), VsPlanPct: f(100)},
	}, got)
}

func TestTrend_Monthly(t *testing.T) {
	in := testInput(domain.Coordinate{})
	settings := DefaultSettings()
	settings.TrendGranularity = GranularityMonth
	src := new(mockSource)
	groups := []store.Grouping{store.GroupMonth}
	src.On("SumBy", mock.Anything, currentQuery(in, false), groups).
		Return(rows(ga(300, "2025-11-01"), ga(50, "2025-12-01")), nil)
	src.On("SumBy", mock.Anything, planQuery(in), groups).
		Return(rows(ga(200, "2025-11-01"), ga(100, "2025-12-01")), nil)

	got := run(t, NewLibrary(src, settings), domain.KindMonthlyTrends, in).(domain.Trend)

	require.Len(t, got, 2)
	assert.Equal(t, 350.0, got[1].CumulativeRevenue)
	assert.Equal(t, f(50), got[1].VsPlan)
	assert.Equal(t, f(16.67), got[1].VsPlanPct)
}

func TestConcentrationTrend(t *testing.T) {
	in := testInput(domain.Coordinate{Category: "Data"})
	var month []store.GroupedAmount
	for i := 1; i <= 12; i++ {
		month = append(month, ga(100, "2025-11-01", fmt.Sprintf("c%02d", i)))
	}
	month = append(month,
		ga(200, "2025-11-01", nil),
		ga(-50, "2025-11-01", "refund"),
		ga(70, "2025-12-01", "c01"),
	)
	src := new(mockSource)
	src.On("SumBy", mock.Anything, currentQuery(in, false), []store.Grouping{store.GroupMonth, store.GroupCustomer}).
		Return(month, nil)

	got := run(t, NewLibrary(src, DefaultSettings()), domain.KindConcentrationTrend, in).(domain.Concentration)

	assert.Equal(t, domain.Concentration{
		{Month: "2025-11-01", Top10Revenue: 1000, Top20Revenue: 1200, TotalRevenue: 1350,
			Top10Pct: f(74.07), Top20Pct: f(88.89)},
		{Month: "2025-12-01", Top10Revenue: 70, Top20Revenue: 70, TotalRevenue: 70,
			Top10Pct: f(100), Top20Pct: f(100)},
	}, got)
}

func TestPlanVarianceBySegment(t *testing.T) {
	in := testInput(domain.Coordinate{})
	settings := DefaultSettings()
	settings.TopSegmentSize = 1
	src := new(mockSource)
	src.On("SumBy", mock.Anything, currentQuery(in, false), []store.Grouping{store.GroupCustomer}).
		Return(rows(ga(1000, "big"), ga(10, "small"), ga(0, "gone")), nil)
	pair := []store.Grouping{store.GroupCategory, store.GroupCustomer}
	src.On("SumBy", mock.Anything, currentQuery(in, false), pair).
		Return(rows(ga(600, "Data", "big"), ga(10, "Data", "small"), ga(400, "Apps", "big"), ga(3, nil, "big")), nil)
	src.On("SumBy", mock.Anything, planQuery(in), pair).
		Return(rows(ga(500, "Data", "big"), ga(50, "Data", nil), ga(30, "Apps", "other")), nil)

	got := run(t, NewLibrary(src, settings), domain.KindPlanVarianceBySegment, in).(domain.PlanVariance)

	assert.Equal(t, domain.PlanVariance{
		{Entity: "Apps", Segment: LongTail, ActualRevenue: 0, PlanRevenue: 30, Variance: -30},
		{Entity: "Apps", Segment: "Top 1", ActualRevenue: 400, PlanRevenue: 0, Variance: 400},
		{Entity: "Data", Segment: LongTail, ActualRevenue: 10, PlanRevenue: 50, Variance: -40},
		{Entity: "Data", Segment: "Top 1", ActualRevenue: 600, PlanRevenue: 500, Variance: 100},
	}, got)
}

func TestIndustryPerformance_UnknownBucketAndLimit(t *testing.T) {
	in := testInput(domain.Coordinate{Category: "Data"})
	settings := DefaultSettings()
	settings.MaxIndustries = 2
	src := new(mockSource)
	src.expectPeriods(in, false, store.GroupIndustry, fourPeriods{
		current: rows(ga(300, "Retail"), ga(200, nil), ga(100, "Energy")),
		prior:   rows(ga(50, nil)),
	})

	got := run(t, NewLibrary(src, settings), domain.KindIndustryPerformance, in).(domain.Comparison)

	require.Len(t, got, 2)
	assert.Equal(t, "Retail", got[0].Entity)
	assert.Equal(t, "Unknown", got[1].Entity)
	assert.Equal(t, 50.0, got[1].PriorQRevenue)
	assert.Equal(t, f(50), got[0].MixPct, "mix is over every industry")
}

func TestTopCustomers_Limit(t *testing.T) {
	in := testInput(domain.Coordinate{Category: "Data"})
	settings := DefaultSettings()
	settings.MaxTopCustomers = 2
	src := new(mockSource)
	src.expectPeriods(in, false, store.GroupCustomer, customerPeriods())

	got := run(t, NewLibrary(src, settings), domain.KindTopCustomers, in).(domain.Comparison)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"A", "B"}, []string{got[0].Entity, got[1].Entity})
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 3.0, currency(2.5))
	assert.Equal(t, -3.0, currency(-2.5))
	assert.Equal(t, f(33.33), pct(1, 3))
	assert.Equal(t, f(-66.67), pct(-2, 3))
	assert.Nil(t, pct(1, 0))
	assert.Nil(t, pct(0, 0))
}
