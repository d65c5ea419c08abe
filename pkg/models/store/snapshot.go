package store

import (
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
)

// Snapshot is the on-disk layout of a cached report.
type Snapshot struct {
	Metadata  SnapshotMetadata              `json:"metadata"`
	Total     *domain.EntityNode            `json:"total"`
	Hierarchy map[string]*domain.EntityNode `json:"hierarchy"`
}

type SnapshotMetadata struct {
	FiscalQuarter     string    `json:"fiscal_quarter"`
	RunDate           string    `json:"run_date"`
	CategoryFilter    string    `json:"category_filter,omitempty"`
	QuarterStart      string    `json:"q_start"`
	QuarterEnd        string    `json:"q_end"`
	EffectiveEnd      string    `json:"effective_end"`
	PriorQuarterStart string    `json:"pq_start,omitempty"`
	PriorQuarterEnd   string    `json:"pq_end,omitempty"`
	PriorYearStart    string    `json:"py_start"`
	PriorYearEnd      string    `json:"py_end"`
	GeneratedAt       time.Time `json:"generated_at"`
	RunID             string    `json:"run_id"`
	SchemaVersion     string    `json:"schema_version"`
}
