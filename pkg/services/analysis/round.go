package analysis

import (
	"math"

	"github.com/shopspring/decimal"
)

// currency rounds to whole units, half away from zero.
func currency(v float64) float64 {
	return roundTo(v, 0)
}

func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// pct is 100*num/den rounded to two decimals, or nil when den is zero.
func pct(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	v = roundTo(v, 2)
	return &v
}
