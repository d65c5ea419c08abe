package analysis

import (
	"math"
	"sort"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
)

type period uint8

const (
	periodCurrent period = 1 << iota
	periodPrior
	periodPriorYear
	periodPlan
)

// figures are the unrounded amounts of one entity in each period. Missing periods stay zero.
type figures struct {
	Current   float64
	Prior     float64
	PriorYear float64
	Plan      float64

	seen period
}

func (f *figures) observedIn(p period) bool {
	return f.seen&p != 0
}

// ledger is the full outer join of the periods keyed by entity name.
type ledger map[string]*figures

// merge joins the periods over the union of their keys. Rows with a NULL key are
// dropped unless nullLabel names a bucket for them.
func merge(p periods, nullLabel string) ledger {
	l := ledger{}
	add := func(rows []store.GroupedAmount, which period) {
		for _, r := range rows {
			name, ok := r.Key(0)
			if !ok {
				if nullLabel == "" {
					continue
				}
				name = nullLabel
			}
			f, exists := l[name]
			if !exists {
				f = &figures{}
				l[name] = f
			}
			f.seen |= which
			switch which {
			case periodCurrent:
				f.Current += r.Amount
			case periodPrior:
				f.Prior += r.Amount
			case periodPriorYear:
				f.PriorYear += r.Amount
			case periodPlan:
				f.Plan += r.Amount
			}
		}
	}
	add(p.current, periodCurrent)
	add(p.prior, periodPrior)
	add(p.priorYear, periodPriorYear)
	add(p.plan, periodPlan)
	return l
}

// rankByCurrent returns the names with positive current amount, largest first.
func (l ledger) rankByCurrent() []string {
	names := make([]string, 0, len(l))
	for name, f := range l {
		if f.Current > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := l[names[i]].Current, l[names[j]].Current
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})
	return names
}

// cohort aggregates one or more entities into a comparison row.
type cohort struct {
	name            string
	customerType    string
	existingSegment string
	count           int
	figures

	qoqMagnitude  float64
	planMagnitude float64
	yoyMagnitude  float64
}

func (c *cohort) add(f *figures) {
	c.count++
	c.Current += f.Current
	c.Prior += f.Prior
	c.PriorYear += f.PriorYear
	c.Plan += f.Plan
	c.qoqMagnitude += math.Abs(f.Current - f.Prior)
	c.planMagnitude += math.Abs(f.Current - f.Plan)
	c.yoyMagnitude += math.Abs(f.Current - f.PriorYear)
}

func singleton(name string, f *figures) cohort {
	c := cohort{name: name}
	c.add(f)
	return c
}

// totals are the peer-group denominators of mix and contribution shares.
type totals struct {
	current       float64
	qoqMagnitude  float64
	planMagnitude float64
	yoyMagnitude  float64
}

func totalsOf(l ledger, names ...string) totals {
	var t totals
	visit := func(f *figures) {
		t.current += f.Current
		t.qoqMagnitude += math.Abs(f.Current - f.Prior)
		t.planMagnitude += math.Abs(f.Current - f.Plan)
		t.yoyMagnitude += math.Abs(f.Current - f.PriorYear)
	}
	if len(names) == 0 {
		for _, f := range l {
			visit(f)
		}
		return t
	}
	for _, name := range names {
		if f, ok := l[name]; ok {
			visit(f)
		}
	}
	return t
}

func (c cohort) row(t totals, withCount bool) domain.ComparisonRow {
	r := domain.ComparisonRow{
		Entity:          c.name,
		CustomerType:    c.customerType,
		ExistingSegment: c.existingSegment,

		QTDRevenue:              currency(c.Current),
		PriorQRevenue:           currency(c.Prior),
		QoQDelta:                currency(c.Current - c.Prior),
		QoQGrowthPct:            pct(c.Current-c.Prior, c.Prior),
		ContributionToGrowthPct: pct(c.qoqMagnitude, t.qoqMagnitude),

		QTDPlan:              currency(c.Plan),
		DeltaToPlan:          currency(c.Current - c.Plan),
		PctVsPlan:            pct(c.Current-c.Plan, c.Plan),
		VarianceMagnitudePct: pct(c.planMagnitude, t.planMagnitude),

		PriorYearRevenue:           currency(c.PriorYear),
		YoYDelta:                   currency(c.Current - c.PriorYear),
		YoYGrowthPct:               pct(c.Current-c.PriorYear, c.PriorYear),
		YoYContributionToGrowthPct: pct(c.yoyMagnitude, t.yoyMagnitude),

		MixPct: pct(c.Current, t.current),
	}
	if withCount {
		r.CustomerCount = c.count
	}
	return r
}

// sortByCurrent orders cohorts by current amount descending, ties by name.
func sortByCurrent(cs []cohort) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Current != cs[j].Current {
			return cs[i].Current > cs[j].Current
		}
		return cs[i].name < cs[j].name
	})
}

func singletons(l ledger) []cohort {
	cs := make([]cohort, 0, len(l))
	for name, f := range l {
		cs = append(cs, singleton(name, f))
	}
	sortByCurrent(cs)
	return cs
}

func comparison(cs []cohort, t totals, withCount bool, limit int) domain.Comparison {
	if limit > 0 && len(cs) > limit {
		cs = cs[:limit]
	}
	rows := make(domain.Comparison, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, c.row(t, withCount))
	}
	return rows
}
