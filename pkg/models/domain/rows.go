package domain

import (
	"bytes"
	"encoding/json"
)

// SummaryKPIs is the headline record of a node. Ratios are nil when their base is zero.
type SummaryKPIs struct {
	QTDRevenue       float64  `json:"qtd_revenue"`
	QTDPlan          float64  `json:"qtd_plan"`
	DeltaToPlan      float64  `json:"delta_to_plan"`
	PctVsPlan        *float64 `json:"pct_vs_plan"`
	PriorQRevenue    float64  `json:"prior_q_revenue"`
	QoQGrowthPct     *float64 `json:"qoq_growth_pct"`
	PriorYearRevenue float64  `json:"prior_year_revenue"`
	YoYGrowthPct     *float64 `json:"yoy_growth_pct"`

	// Empty marks the placeholder written when the analysis failed; it encodes as {}.
	Empty bool `json:"-"`
}

type summaryKPIsJSON SummaryKPIs

func (s SummaryKPIs) MarshalJSON() ([]byte, error) {
	if s.Empty {
		return []byte("{}"), nil
	}
	return json.Marshal(summaryKPIsJSON(s))
}

func (s *SummaryKPIs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.Join(bytes.Fields(data), nil), []byte("{}")) {
		*s = SummaryKPIs{Empty: true}
		return nil
	}
	var v summaryKPIsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = SummaryKPIs(v)
	return nil
}

// TrendPoint is one period of the in-quarter trend. Cumulative fields run from the quarter start.
type TrendPoint struct {
	Period            string   `json:"period"`
	Revenue           float64  `json:"revenue"`
	PlanRevenue       float64  `json:"plan_revenue"`
	CumulativeRevenue float64  `json:"cumulative_revenue"`
	CumulativePlan    float64  `json:"cumulative_plan"`
	VsPlan            *float64 `json:"vs_plan"`
	VsPlanPct         *float64 `json:"vs_plan_pct"`
}

// ComparisonRow compares one entity, or one cohort of customers, across the four periods.
type ComparisonRow struct {
	Entity          string `json:"entity"`
	CustomerType    string `json:"customer_type,omitempty"`
	ExistingSegment string `json:"existing_segment,omitempty"`
	CustomerCount   int    `json:"customer_count,omitempty"`

	QTDRevenue               float64  `json:"qtd_revenue"`
	PriorQRevenue            float64  `json:"prior_q_revenue"`
	QoQDelta                 float64  `json:"qoq_delta"`
	QoQGrowthPct             *float64 `json:"qoq_growth_pct"`
	ContributionToGrowthPct  *float64 `json:"contribution_to_growth_pct"`
	ContributionToDeclinePct *float64 `json:"contribution_to_decline_pct,omitempty"`

	QTDPlan              float64  `json:"qtd_plan"`
	DeltaToPlan          float64  `json:"delta_to_plan"`
	PctVsPlan            *float64 `json:"pct_vs_plan"`
	VarianceMagnitudePct *float64 `json:"variance_magnitude_pct"`

	PriorYearRevenue           float64  `json:"prior_year_revenue"`
	YoYDelta                   float64  `json:"yoy_delta"`
	YoYGrowthPct               *float64 `json:"yoy_growth_pct"`
	YoYContributionToGrowthPct *float64 `json:"yoy_contribution_to_growth_pct"`

	MixPct *float64 `json:"mix_pct"`
}

// MoverRow is a child entity whose quarter-over-quarter delta has a given sign.
type MoverRow struct {
	Entity                string   `json:"entity"`
	CurrentQuarterRevenue float64  `json:"current_quarter_revenue"`
	PriorQuarterRevenue   float64  `json:"prior_quarter_revenue"`
	Delta                 float64  `json:"delta"`
	QoQGrowthPct          *float64 `json:"qoq_growth_pct"`
	ContributionPct       *float64 `json:"contribution_pct"`
}

// ConcentrationPoint is the share of a month's revenue held by its largest customers.
type ConcentrationPoint struct {
	Month        string   `json:"month"`
	Top10Revenue float64  `json:"top10_revenue"`
	Top20Revenue float64  `json:"top20_revenue"`
	TotalRevenue float64  `json:"total_revenue"`
	Top10Pct     *float64 `json:"top10_pct"`
	Top20Pct     *float64 `json:"top20_pct"`
}

// PlanVarianceRow is actual against plan for one child entity and customer segment.
type PlanVarianceRow struct {
	Entity        string  `json:"entity"`
	Segment       string  `json:"segment"`
	ActualRevenue float64 `json:"actual_revenue"`
	PlanRevenue   float64 `json:"plan_revenue"`
	Variance      float64 `json:"variance"`
}
