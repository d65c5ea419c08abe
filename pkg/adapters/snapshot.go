package adapters

import (
	"fmt"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
)

func MapReportToSnapshot(r *domain.Report) *store.Snapshot {
	if r == nil {
		return nil
	}
	m := r.Metadata
	snapshot := &store.Snapshot{
		Metadata: store.SnapshotMetadata{
			FiscalQuarter:     m.Quarter,
			RunDate:           domain.FormatDate(m.RunDate),
			CategoryFilter:    m.CategoryFilter,
			QuarterStart:      domain.FormatDate(m.Dates.QuarterStart),
			QuarterEnd:        domain.FormatDate(m.Dates.QuarterEnd),
			EffectiveEnd:      domain.FormatDate(m.Dates.EffectiveEnd),
			PriorQuarterStart: domain.FormatDate(m.Dates.PriorQuarterStart),
			PriorQuarterEnd:   domain.FormatDate(m.Dates.PriorQuarterEnd),
			PriorYearStart:    domain.FormatDate(m.Dates.PriorYearStart),
			PriorYearEnd:      domain.FormatDate(m.Dates.PriorYearEnd),
			GeneratedAt:       m.GeneratedAt,
			RunID:             m.RunID,
			SchemaVersion:     m.SchemaVersion,
		},
		Hierarchy: map[string]*domain.EntityNode{},
	}
	if r.Root != nil {
		snapshot.Total = &domain.EntityNode{
			Name:     r.Root.Name,
			Level:    r.Root.Level,
			Analysis: r.Root.Analysis,
			Children: map[string]*domain.EntityNode{},
		}
		for name, child := range r.Root.Children {
			snapshot.Hierarchy[name] = child
		}
	}
	return snapshot
}

func MapSnapshotToReport(s *store.Snapshot) (*domain.Report, error) {
	if s == nil {
		return nil, fmt.Errorf("empty snapshot")
	}
	if s.Total == nil {
		return nil, fmt.Errorf("snapshot has no total node")
	}
	m := s.Metadata

	var (
		runDate time.Time
		fd      = domain.FiscalDates{Quarter: m.FiscalQuarter}
	)
	parse := []struct {
		name  string
		value string
		dst   *time.Time
	}{
		{"run_date", m.RunDate, &runDate},
		{"q_start", m.QuarterStart, &fd.QuarterStart},
		{"q_end", m.QuarterEnd, &fd.QuarterEnd},
		{"effective_end", m.EffectiveEnd, &fd.EffectiveEnd},
		{"pq_start", m.PriorQuarterStart, &fd.PriorQuarterStart},
		{"pq_end", m.PriorQuarterEnd, &fd.PriorQuarterEnd},
		{"py_start", m.PriorYearStart, &fd.PriorYearStart},
		{"py_end", m.PriorYearEnd, &fd.PriorYearEnd},
	}
	for _, p := range parse {
		t, err := domain.ParseDate(p.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s in snapshot metadata: %w", p.name, err)
		}
		*p.dst = t
	}

	root := &domain.EntityNode{
		Name:     s.Total.Name,
		Level:    s.Total.Level,
		Analysis: s.Total.Analysis,
		Children: map[string]*domain.EntityNode{},
	}
	if root.Analysis == nil {
		root.Analysis = domain.Analyses{}
	}
	for name, child := range s.Hierarchy {
		root.Children[name] = child
	}

	return &domain.Report{
		Metadata: domain.Metadata{
			Quarter:        m.FiscalQuarter,
			RunDate:        runDate,
			CategoryFilter: m.CategoryFilter,
			Dates:          fd,
			GeneratedAt:    m.GeneratedAt,
			RunID:          m.RunID,
			SchemaVersion:  m.SchemaVersion,
		},
		Root: root,
	}, nil
}
