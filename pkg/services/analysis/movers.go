package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
)

type direction int

const (
	gaining direction = iota
	declining
)

func (d direction) matches(delta float64) bool {
	if d == gaining {
		return delta > 0
	}
	return delta < 0
}

type mover struct {
	name  string
	delta float64
	*figures
}

// movers picks entities whose QoQ delta has the wanted sign, largest magnitude first.
// The second result is the magnitude sum over all of them.
func movers(l ledger, d direction) ([]mover, float64) {
	var (
		out []mover
		sum float64
	)
	for name, f := range l {
		delta := f.Current - f.Prior
		if !d.matches(delta) {
			continue
		}
		out = append(out, mover{name: name, delta: delta, figures: f})
		sum += math.Abs(delta)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := math.Abs(out[i].delta), math.Abs(out[j].delta)
		if a != b {
			return a > b
		}
		return out[i].name < out[j].name
	})
	return out, sum
}

// childMovers ranks the node's children by quarter-over-quarter change.
type childMovers struct {
	*env
	kind domain.Kind
	sign direction
}

func (a childMovers) Kind() domain.Kind { return a.kind }

func (a childMovers) Run(ctx context.Context, in Input) (domain.Result, error) {
	child, ok := domain.ChildOf(in.Scope.Level())
	if !ok {
		return domain.Movers{}, nil
	}
	p, err := a.fetchQuarterOverQuarter(ctx, in, in.Scope, store.GroupOf(child.Field))
	if err != nil {
		return nil, err
	}

	ranked, sum := movers(merge(p, ""), a.sign)
	if len(ranked) > childMoverLimit {
		ranked = ranked[:childMoverLimit]
	}
	rows := make(domain.Movers, 0, len(ranked))
	for _, m := range ranked {
		rows = append(rows, domain.MoverRow{
			Entity:                m.name,
			CurrentQuarterRevenue: currency(m.Current),
			PriorQuarterRevenue:   currency(m.Prior),
			Delta:                 currency(m.delta),
			QoQGrowthPct:          pct(m.delta, m.Prior),
			ContributionPct:       pct(math.Abs(m.delta), sum),
		})
	}
	return rows, nil
}

// customerMovers ranks the node's customers by quarter-over-quarter change with the
// full comparison columns. Mix and plan shares are over all customers of the node.
type customerMovers struct {
	*env
	kind domain.Kind
	sign direction
}

func (a customerMovers) Kind() domain.Kind { return a.kind }

func (a customerMovers) Run(ctx context.Context, in Input) (domain.Result, error) {
	if in.Scope.Customer != "" {
		return domain.Comparison{}, nil
	}
	p, err := a.fetchPeriods(ctx, in, in.Scope, false, store.GroupCustomer)
	if err != nil {
		return nil, err
	}
	l := merge(p, "")
	t := totalsOf(l)

	ranked, sum := movers(l, a.sign)
	if limit := a.settings.MaxCustomerMovers; limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	rows := make(domain.Comparison, 0, len(ranked))
	for _, m := range ranked {
		r := singleton(m.name, m.figures).row(t, false)
		if a.sign == gaining {
			r.ContributionToGrowthPct = pct(m.delta, sum)
		} else {
			r.ContributionToGrowthPct = nil
			r.ContributionToDeclinePct = pct(math.Abs(m.delta), sum)
		}
		rows = append(rows, r)
	}
	return rows, nil
}
