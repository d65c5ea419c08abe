package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
)

// Physical-only columns used by the revenue queries next to the semantic fields.
const (
	FieldDate              domain.Field = "date"
	FieldRunDate           domain.Field = "run_date"
	FieldRevenue           domain.Field = "revenue"
	FieldProductLedRevenue domain.Field = "product_led_revenue"
	FieldAgreementType     domain.Field = "agreement_type"
	FieldQuarter           domain.Field = "quarter"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)*$`)

// ValidIdentifier reports whether s is safe to splice into SQL as a table or column name.
func ValidIdentifier(s string) bool {
	return identifier.MatchString(s)
}

// ColumnMapping maps semantic fields to the physical columns of one source.
type ColumnMapping map[domain.Field]string

// Column returns the physical column for f.
func (m ColumnMapping) Column(f domain.Field) (string, error) {
	c, ok := m[f]
	if !ok || c == "" {
		return "", fmt.Errorf("no column mapped for field %q", f)
	}
	return c, nil
}

// Predicate is a SQL boolean expression with ? placeholders and its arguments.
type Predicate struct {
	Clause string
	Args   []any
}

// True is the predicate that matches every row.
func True() Predicate {
	return Predicate{Clause: "1=1"}
}

// And conjoins two predicates, dropping trivially true operands.
func (p Predicate) And(other Predicate) Predicate {
	switch {
	case p.Clause == "" || p.Clause == "1=1":
		return other
	case other.Clause == "" || other.Clause == "1=1":
		return p
	}
	args := append(append([]any{}, p.Args...), other.Args...)
	return Predicate{Clause: p.Clause + " AND " + other.Clause, Args: args}
}

// FilterBuilder turns a coordinate into a predicate for either source.
type FilterBuilder struct {
	mappings map[store.Source]ColumnMapping
}

// NewFilterBuilder validates every mapped column before any query is built.
func NewFilterBuilder(mappings map[store.Source]ColumnMapping) (*FilterBuilder, error) {
	for source, mapping := range mappings {
		for field, column := range mapping {
			if column == "" {
				continue
			}
			if !ValidIdentifier(column) {
				return nil, fmt.Errorf("%s source: invalid column %q for field %s", source, column, field)
			}
		}
	}
	return &FilterBuilder{mappings: mappings}, nil
}

// Mapping returns the column mapping of a source.
func (b *FilterBuilder) Mapping(source store.Source) (ColumnMapping, error) {
	m, ok := b.mappings[source]
	if !ok {
		return nil, fmt.Errorf("no column mapping for source %q", source)
	}
	return m, nil
}

// Build returns the conjunction of equality constraints over the set coordinate members.
func (b *FilterBuilder) Build(source store.Source, c domain.Coordinate) (Predicate, error) {
	mapping, err := b.Mapping(source)
	if err != nil {
		return Predicate{}, err
	}
	fields := c.Fields()
	if len(fields) == 0 {
		return True(), nil
	}

	clauses := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		column, err := mapping.Column(f)
		if err != nil {
			return Predicate{}, fmt.Errorf("%s filter: %w", source, err)
		}
		clauses = append(clauses, column+" = ?")
		args = append(args, c.Value(f))
	}
	return Predicate{Clause: strings.Join(clauses, " AND "), Args: args}, nil
}
