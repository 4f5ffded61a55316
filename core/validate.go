/*
validate.go - Timestamp, limit, and currency helpers

PURPOSE:
  The small normalization toolkit every operation leans on: ISO-8601
  timestamp parsing, result-limit clamping, and 2-decimal currency
  rounding at the point of computation.

TIMESTAMPS:
  Callers send ISO-8601 with or without seconds and with or without a
  zone designator; a trailing "Z" is interchangeable with "+00:00".
  Times without a zone are taken as UTC. Everything is normalized to
  UTC before storage so window comparisons are stable.

SEE ALSO:
  - types.go: Enum normalization lives there
*/
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// timestampLayouts are tried in order. RFC3339 first (what storage
// round-trips), then the zone-less forms agents tend to send.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an ISO-8601 timestamp and normalizes it to UTC.
// Parse failure is a validation violation, not a fault.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, Violationf(KindValidation,
		"Invalid datetime format. Use ISO format, e.g., 2025-11-03T12:00.")
}

// ParseDateOnly validates a YYYY-MM-DD date string.
func ParseDateOnly(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, Violationf(KindValidation, "child_birthdate must use YYYY-MM-DD format.")
	}
	return t, nil
}

// defaultLimit applies when a caller leaves the result limit unset.
const defaultLimit = 5

// LimitOrDefault treats a non-positive limit as unset, substitutes the
// default, then clamps to [1, 20]. List operations take limits through
// here so a zero-value filter still returns a useful page.
func LimitOrDefault(limit int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	return ClampLimit(limit)
}

// ClampLimit bounds page/result limits to [1, 20] rather than rejecting.
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 20 {
		return 20
	}
	return limit
}

// Round2 rounds a money value to 2 decimal places. All computed money
// passes through here at the point of computation; inputs are not
// pre-rounded.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal computes quantity x unit price, rounded to 2 decimals.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return Round2(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// OrderTotal recomputes the running-totals invariant:
// total = subtotal - discount + tax.
func OrderTotal(subtotal, discount, tax decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Sub(discount).Add(tax))
}

// Overlaps is the half-open interval test: [s1,e1) and [s2,e2) intersect
// iff s1 < e2 && s2 < e1. Touching endpoints do not count.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
