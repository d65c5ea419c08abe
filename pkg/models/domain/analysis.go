package domain

import (
	"encoding/json"
	"fmt"
)

// Kind identifies one analysis. The set is closed.
type Kind string

const (
	KindSummaryKPIs            Kind = "summary_kpis"
	KindMonthlyTrends          Kind = "monthly_trends"
	KindChildrenBreakdown      Kind = "children_breakdown"
	KindPlanVarianceBySegment  Kind = "plan_variance_by_segment"
	KindTop20VsLongTail        Kind = "top20_vs_longtail"
	KindNewVsExisting          Kind = "new_vs_existing"
	KindTopCustomers           Kind = "top_customers"
	KindTopGainers             Kind = "top_gainers"
	KindTopContractors         Kind = "top_contractors"
	KindTopCustomerGainers     Kind = "top_customer_gainers"
	KindTopCustomerContractors Kind = "top_customer_contractors"
	KindIndustryPerformance    Kind = "industry_performance"
	KindConcentrationTrend     Kind = "concentration_trend"
)

// Kinds lists every analysis in canonical order.
func Kinds() []Kind {
	return []Kind{
		KindSummaryKPIs,
		KindMonthlyTrends,
		KindChildrenBreakdown,
		KindPlanVarianceBySegment,
		KindTop20VsLongTail,
		KindNewVsExisting,
		KindTopCustomers,
		KindTopGainers,
		KindTopContractors,
		KindTopCustomerGainers,
		KindTopCustomerContractors,
		KindIndustryPerformance,
		KindConcentrationTrend,
	}
}

// NeedsPlan reports whether the analysis is meaningless without plan figures.
func (k Kind) NeedsPlan() bool {
	return k == KindPlanVarianceBySegment
}

// Result is the output of one analysis: a record or a ranked list.
type Result interface {
	// Len is the number of rows; a record counts as one unless empty.
	Len() int
}

type (
	Trend         []TrendPoint
	Comparison    []ComparisonRow
	Movers        []MoverRow
	Concentration []ConcentrationPoint
	PlanVariance  []PlanVarianceRow
)

func (s SummaryKPIs) Len() int {
	if s.Empty {
		return 0
	}
	return 1
}

func (t Trend) Len() int         { return len(t) }
func (c Comparison) Len() int    { return len(c) }
func (m Movers) Len() int        { return len(m) }
func (c Concentration) Len() int { return len(c) }
func (p PlanVariance) Len() int  { return len(p) }

// Empty is the placeholder stored when the analysis produced nothing or failed.
// Lists are non-nil so they encode as [].
func (k Kind) Empty() Result {
	switch k {
	case KindSummaryKPIs:
		return SummaryKPIs{Empty: true}
	case KindMonthlyTrends:
		return Trend{}
	case KindTopGainers, KindTopContractors:
		return Movers{}
	case KindConcentrationTrend:
		return Concentration{}
	case KindPlanVarianceBySegment:
		return PlanVariance{}
	default:
		return Comparison{}
	}
}

func (k Kind) decode(raw json.RawMessage) (Result, error) {
	var (
		res Result
		err error
	)
	switch k.Empty().(type) {
	case SummaryKPIs:
		var v SummaryKPIs
		err = json.Unmarshal(raw, &v)
		res = v
	case Trend:
		v := Trend{}
		err = json.Unmarshal(raw, &v)
		res = v
	case Movers:
		v := Movers{}
		err = json.Unmarshal(raw, &v)
		res = v
	case Concentration:
		v := Concentration{}
		err = json.Unmarshal(raw, &v)
		res = v
	case PlanVariance:
		v := PlanVariance{}
		err = json.Unmarshal(raw, &v)
		res = v
	default:
		v := Comparison{}
		err = json.Unmarshal(raw, &v)
		res = v
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", k, err)
	}
	return res, nil
}

// Analyses maps analysis kind to its result for one node.
type Analyses map[Kind]Result

func (a *Analyses) UnmarshalJSON(data []byte) error {
	var raw map[Kind]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Analyses, len(raw))
	known := make(map[Kind]struct{}, len(raw))
	for _, k := range Kinds() {
		known[k] = struct{}{}
	}
	for k, msg := range raw {
		// Readers treat unknown analyses as absent.
		if _, ok := known[k]; !ok {
			continue
		}
		res, err := k.decode(msg)
		if err != nil {
			return err
		}
		out[k] = res
	}
	*a = out
	return nil
}
