package domain

import "fmt"

// Level names one tier of the product hierarchy.
type Level string

const (
	LevelTotal    Level = "total"
	LevelCategory Level = "category"
	LevelUseCase  Level = "use_case"
	LevelFeature  Level = "feature"
	LevelCustomer Level = "customer"
)

// Field is a semantic column shared by the actuals and plan sources.
// Stores translate it into a physical column name.
type Field string

const (
	FieldCategory Field = "category"
	FieldUseCase  Field = "use_case"
	FieldFeature  Field = "feature"
	FieldCustomer Field = "customer"
	FieldIndustry Field = "industry"
)

// HierarchyLevel describes how a level maps onto the sources and what sits below it.
type HierarchyLevel struct {
	Name              Level
	Field             Field // empty for total
	Child             Level // empty for the leaf
	HasPlanComparison bool
}

var hierarchy = map[Level]HierarchyLevel{
	LevelTotal:    {Name: LevelTotal, Child: LevelCategory, HasPlanComparison: true},
	LevelCategory: {Name: LevelCategory, Field: FieldCategory, Child: LevelUseCase, HasPlanComparison: true},
	LevelUseCase:  {Name: LevelUseCase, Field: FieldUseCase, Child: LevelFeature, HasPlanComparison: true},
	LevelFeature:  {Name: LevelFeature, Field: FieldFeature, Child: LevelCustomer, HasPlanComparison: true},
	LevelCustomer: {Name: LevelCustomer, Field: FieldCustomer, HasPlanComparison: true},
}

// Describe returns the hierarchy definition for a level.
func Describe(level Level) (HierarchyLevel, error) {
	h, ok := hierarchy[level]
	if !ok {
		return HierarchyLevel{}, fmt.Errorf("unknown hierarchy level %q", level)
	}
	return h, nil
}

// ChildOf returns the next level down and whether one exists.
func ChildOf(level Level) (HierarchyLevel, bool) {
	h, ok := hierarchy[level]
	if !ok || h.Child == "" {
		return HierarchyLevel{}, false
	}
	return hierarchy[h.Child], true
}

// Coordinate is a partial path into the hierarchy. Empty members are unconstrained.
type Coordinate struct {
	Category string
	UseCase  string
	Feature  string
	Customer string
}

// Level reports the deepest level the coordinate pins down.
func (c Coordinate) Level() Level {
	switch {
	case c.Customer != "":
		return LevelCustomer
	case c.Feature != "":
		return LevelFeature
	case c.UseCase != "":
		return LevelUseCase
	case c.Category != "":
		return LevelCategory
	default:
		return LevelTotal
	}
}

// Value returns the coordinate member for a semantic field.
func (c Coordinate) Value(f Field) string {
	switch f {
	case FieldCategory:
		return c.Category
	case FieldUseCase:
		return c.UseCase
	case FieldFeature:
		return c.Feature
	case FieldCustomer:
		return c.Customer
	}
	return ""
}

// With returns a copy of c narrowed to name at the given level.
func (c Coordinate) With(level Level, name string) Coordinate {
	switch level {
	case LevelCategory:
		c.Category = name
	case LevelUseCase:
		c.UseCase = name
	case LevelFeature:
		c.Feature = name
	case LevelCustomer:
		c.Customer = name
	}
	return c
}

// Fields lists the constrained members in hierarchy order.
func (c Coordinate) Fields() []Field {
	var out []Field
	for _, f := range []Field{FieldCategory, FieldUseCase, FieldFeature, FieldCustomer} {
		if c.Value(f) != "" {
			out = append(out, f)
		}
	}
	return out
}
