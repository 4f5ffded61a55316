/*
record.go - Record decoding helpers

PURPOSE:
  Generic-query results come back as loosely typed records; these
  helpers coerce fields onto the catalog's entity types. SQLite's type
  affinity means a NUMERIC column can surface as int64, float64, or
  text depending on the stored value, so every decoder accepts all the
  shapes the driver produces.
*/
package catalog

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/funzone/venue-engine/core"
)

func recString(rec core.Record, field string) string {
	if s, ok := rec[field].(string); ok {
		return s
	}
	return ""
}

func recInt(rec core.Record, field string) int {
	return int(recInt64(rec, field))
}

func recInt64(rec core.Record, field string) int64 {
	switch v := rec[field].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

func recInt64Ptr(rec core.Record, field string) *int64 {
	if rec[field] == nil {
		return nil
	}
	v := recInt64(rec, field)
	return &v
}

func recFloat(rec core.Record, field string) float64 {
	switch v := rec[field].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func recFloatPtr(rec core.Record, field string) *float64 {
	if rec[field] == nil {
		return nil
	}
	v := recFloat(rec, field)
	return &v
}

func recBool(rec core.Record, field string) bool {
	switch v := rec[field].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	}
	return false
}

func recMoney(rec core.Record, field string) decimal.Decimal {
	switch v := rec[field].(type) {
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	}
	return decimal.Zero
}
