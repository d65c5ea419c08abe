package domain

import "time"

// DateLayout is the ISO-8601 calendar date layout used on the wire and in SQL arguments.
const DateLayout = "2006-01-02"

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r DateRange) Contains(day time.Time) bool {
	return !day.Before(r.Start) && !day.After(r.End)
}

// FiscalDates holds every window an analysis may query. Immutable once resolved.
type FiscalDates struct {
	Quarter           string
	QuarterStart      time.Time
	QuarterEnd        time.Time
	EffectiveEnd      time.Time
	PriorQuarterStart time.Time
	PriorQuarterEnd   time.Time
	PriorYearStart    time.Time
	PriorYearEnd      time.Time
}

// ToDate is the current quarter up to the last day with settled data.
func (f FiscalDates) ToDate() DateRange {
	return DateRange{Start: f.QuarterStart, End: f.EffectiveEnd}
}

// FullQuarter spans the whole current quarter.
func (f FiscalDates) FullQuarter() DateRange {
	return DateRange{Start: f.QuarterStart, End: f.QuarterEnd}
}

// PriorQuarter is zero when the calendar has no quarter before the current one.
func (f FiscalDates) PriorQuarter() DateRange {
	return DateRange{Start: f.PriorQuarterStart, End: f.PriorQuarterEnd}
}

func (f FiscalDates) PriorYear() DateRange {
	return DateRange{Start: f.PriorYearStart, End: f.PriorYearEnd}
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a day as ISO-8601, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate parses an ISO-8601 day; the empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}
