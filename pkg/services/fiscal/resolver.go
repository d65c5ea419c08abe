package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

// ErrQuarterNotFound means the calendar has no days labelled with the requested quarter.
var ErrQuarterNotFound = errors.New("fiscal quarter not found")

// SettlementLag is how far behind today the last settled day of data sits.
const SettlementLag = 2 * 24 * time.Hour

type Calendar interface {
	QuarterBounds(ctx context.Context, quarter string) (domain.DateRange, bool, error)
	QuarterOf(ctx context.Context, day time.Time) (string, bool, error)
}

type Resolver struct {
	calendar Calendar
	now      func() time.Time
}

type Option func(*Resolver)

// WithClock replaces the wall clock used to decide whether a quarter is in progress.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

func NewResolver(calendar Calendar, opts ...Option) *Resolver {
	r := &Resolver{calendar: calendar, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes every comparison window for a quarter label.
func (r *Resolver) Resolve(ctx context.Context, quarter string) (domain.FiscalDates, error) {
	logger := zerolog.Ctx(ctx)

	current, ok, err := r.calendar.QuarterBounds(ctx, quarter)
	if err != nil {
		return domain.FiscalDates{}, fmt.Errorf("failed to look up quarter %s: %w", quarter, err)
	}
	if !ok {
		return domain.FiscalDates{}, fmt.Errorf("%w: %s", ErrQuarterNotFound, quarter)
	}

	dates := domain.FiscalDates{
		Quarter:        quarter,
		QuarterStart:   current.Start,
		QuarterEnd:     current.End,
		EffectiveEnd:   EffectiveEnd(current.End, r.now()),
		PriorYearStart: AddMonths(current.Start, -12),
		PriorYearEnd:   AddMonths(current.End, -12),
	}

	prior, ok, err := r.priorQuarter(ctx, current.Start)
	if err != nil {
		return domain.FiscalDates{}, err
	}
	if ok {
		dates.PriorQuarterStart = prior.Start
		dates.PriorQuarterEnd = prior.End
	} else {
		logger.Warn().Str("quarter", quarter).Msg("no prior quarter in calendar, prior-quarter amounts will be zero")
	}

	logger.Debug().
		Str("quarter", quarter).
		Time("q_start", dates.QuarterStart).
		Time("effective_end", dates.EffectiveEnd).
		Msg("fiscal dates resolved")
	return dates, nil
}

func (r *Resolver) priorQuarter(ctx context.Context, start time.Time) (domain.DateRange, bool, error) {
	label, ok, err := r.calendar.QuarterOf(ctx, AddMonths(start, -3))
	if err != nil {
		return domain.DateRange{}, false, fmt.Errorf("failed to look up prior quarter: %w", err)
	}
	if !ok {
		return domain.DateRange{}, false, nil
	}
	bounds, ok, err := r.calendar.QuarterBounds(ctx, label)
	if err != nil {
		return domain.DateRange{}, false, fmt.Errorf("failed to look up prior quarter %s: %w", label, err)
	}
	return bounds, ok, nil
}

// EffectiveEnd is today minus the settlement lag while the quarter is in progress, else its last day.
func EffectiveEnd(quarterEnd, now time.Time) time.Time {
	today := domain.Day(now)
	if !quarterEnd.Before(today) {
		return today.Add(-SettlementLag)
	}
	return quarterEnd
}

// AddMonths shifts a day by whole months, clamping to the last day of the target month.
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
