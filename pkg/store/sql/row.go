package sql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
)

// String returns a column as text. The second result is false for NULL or a missing column.
func (r Row) String(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case time.Time:
		return domain.FormatDate(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Float returns a numeric column; NULL reads as zero.
func (r Row) Float(col string) (float64, error) {
	v, ok := r[col]
	if !ok || v == nil {
		return 0, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case string:
		return parseNumber(col, t)
	case []byte:
		return parseNumber(col, string(t))
	case fmt.Stringer:
		return parseNumber(col, t.String())
	default:
		return 0, fmt.Errorf("column %s: unsupported numeric type %T", col, v)
	}
}

func parseNumber(col, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return f, nil
}

// Date returns a date or timestamp column truncated to the day.
func (r Row) Date(col string) (time.Time, bool, error) {
	v, ok := r[col]
	if !ok || v == nil {
		return time.Time{}, false, nil
	}
	switch t := v.(type) {
	case time.Time:
		return domain.Day(t), true, nil
	case string:
		return parseDay(col, t)
	case []byte:
		return parseDay(col, string(t))
	default:
		return time.Time{}, false, fmt.Errorf("column %s: unsupported date type %T", col, v)
	}
}

func parseDay(col, s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if len(s) >= len(domain.DateLayout) {
		if t, err := time.Parse(domain.DateLayout, s[:len(domain.DateLayout)]); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("column %s: invalid date %q", col, s)
}
