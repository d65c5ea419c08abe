package store

import (
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
)

// Source selects which revenue table a query reads.
type Source string

const (
	SourceActuals Source = "actuals"
	SourcePlan    Source = "plan"
)

// Grouping is a GROUP BY key: a semantic field or a time bucket.
type Grouping string

const (
	GroupCategory Grouping = Grouping(domain.FieldCategory)
	GroupUseCase  Grouping = Grouping(domain.FieldUseCase)
	GroupFeature  Grouping = Grouping(domain.FieldFeature)
	GroupCustomer Grouping = Grouping(domain.FieldCustomer)
	GroupIndustry Grouping = Grouping(domain.FieldIndustry)
	GroupDay      Grouping = "day"
	GroupMonth    Grouping = "month"
)

// GroupOf maps a semantic field to its grouping.
func GroupOf(f domain.Field) Grouping {
	return Grouping(f)
}

// AmountQuery sums the amount of one source over a window.
type AmountQuery struct {
	Source Source
	Window domain.DateRange
	// RunDate pins the actuals snapshot; ignored for plan.
	RunDate time.Time
	Scope   domain.Coordinate
	// CapacityOnly keeps rows whose agreement type is the capacity value. Actuals only.
	CapacityOnly bool
}

// GroupedAmount is one result row of a grouped sum. A nil key is a NULL group value.
type GroupedAmount struct {
	Keys   []*string
	Amount float64
}

// Key returns the i-th group value and whether it was non-null.
func (g GroupedAmount) Key(i int) (string, bool) {
	if i >= len(g.Keys) || g.Keys[i] == nil {
		return "", false
	}
	return *g.Keys[i], true
}
