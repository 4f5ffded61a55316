package core_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funzone/venue-engine/core"
)

// =============================================================================
// NORMALIZATION
// =============================================================================

func TestNormalizeOrderStatus_CanonicalCasing(t *testing.T) {
	// GIVEN: Caller input in arbitrary casing
	// WHEN: Normalizing against the order vocabulary
	// THEN: The canonical casing comes back

	for _, input := range []string{"paid", "PAID", "Paid", "  paid  "} {
		status, err := core.NormalizeOrderStatus(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, core.OrderPaid, status)
	}
}

func TestNormalizeOrderStatus_UnknownListsVocabulary(t *testing.T) {
	_, err := core.NormalizeOrderStatus("shipped")

	require.Error(t, err)
	v, ok := core.AsViolation(err)
	require.True(t, ok, "should be a violation, not a fault")
	assert.Equal(t, core.KindValidation, v.Kind)
	assert.Equal(t,
		"Status must be one of: Pending, Paid, Cancelled, Refunded, PartiallyRefunded, Fulfilled",
		v.Message)
}

func TestNormalizePaymentStatus_UnknownListsVocabulary(t *testing.T) {
	_, err := core.NormalizePaymentStatus("settled")

	v, ok := core.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t,
		"Payment status must be one of: Pending, Authorized, Captured, Failed, Cancelled",
		v.Message)
}

func TestNormalizeItemType_UnknownListsVocabulary(t *testing.T) {
	_, err := core.NormalizeItemType("toy")

	v, ok := core.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "Item type must be one of: Product, Ticket, Party", v.Message)
}

func TestOrderTypeFor(t *testing.T) {
	assert.Equal(t, core.OrderRetail, core.OrderTypeFor(core.ItemProduct))
	assert.Equal(t, core.OrderAdmission, core.OrderTypeFor(core.ItemTicket))
	assert.Equal(t, core.OrderParty, core.OrderTypeFor(core.ItemParty))
}

// =============================================================================
// STRICT PARSING
// =============================================================================

func TestParseStoredOrderStatus_ExactMatchOnly(t *testing.T) {
	// Stored values were normalized on the way in; casing drift means
	// corrupt data, not caller error.
	status, err := core.ParseStoredOrderStatus("Paid")
	require.NoError(t, err)
	assert.Equal(t, core.OrderPaid, status)

	_, err = core.ParseStoredOrderStatus("paid")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDataIntegrity)
	assert.False(t, core.IsViolation(err))
}

func TestPartyStatus_IsActive(t *testing.T) {
	assert.True(t, core.PartyPending.IsActive())
	assert.True(t, core.PartyConfirmed.IsActive())
	assert.False(t, core.PartyCancelled.IsActive())
	assert.False(t, core.PartyCompleted.IsActive())
	assert.False(t, core.PartyRefunded.IsActive())
	assert.False(t, core.PartyRescheduled.IsActive())
}

// =============================================================================
// TIMESTAMPS
// =============================================================================

func TestParseTimestamp_AcceptedForms(t *testing.T) {
	want := time.Date(2025, time.November, 3, 12, 0, 0, 0, time.UTC)

	for _, input := range []string{
		"2025-11-03T12:00",
		"2025-11-03T12:00:00",
		"2025-11-03T12:00:00Z",
		"2025-11-03T12:00:00+00:00",
		"2025-11-03 12:00",
	} {
		got, err := core.ParseTimestamp(input)
		require.NoError(t, err, "input %q", input)
		assert.True(t, got.Equal(want), "input %q parsed to %v", input, got)
	}
}

func TestParseTimestamp_InvalidIsViolation(t *testing.T) {
	_, err := core.ParseTimestamp("next tuesday")

	v, ok := core.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, core.KindValidation, v.Kind)
	assert.Equal(t, "Invalid datetime format. Use ISO format, e.g., 2025-11-03T12:00.", v.Message)
}

// =============================================================================
// INTERVAL OVERLAP
// =============================================================================

func TestOverlaps_HalfOpen(t *testing.T) {
	base := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	cases := []struct {
		name           string
		s1, e1, s2, e2 int
		want           bool
	}{
		{"identical", 0, 2, 0, 2, true},
		{"contained", 0, 4, 1, 2, true},
		{"partial overlap", 0, 2, 1, 3, true},
		{"touching end-to-start", 0, 2, 2, 4, false},
		{"touching start-to-end", 2, 4, 0, 2, false},
		{"disjoint", 0, 1, 2, 3, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := core.Overlaps(at(tc.s1), at(tc.e1), at(tc.s2), at(tc.e2))
			assert.Equal(t, tc.want, got)
			// Overlap is symmetric
			assert.Equal(t, tc.want, core.Overlaps(at(tc.s2), at(tc.e2), at(tc.s1), at(tc.e1)))
		})
	}
}

func TestOverlaps_MatchesMinuteSweep(t *testing.T) {
	// GIVEN: Random minute-aligned windows inside one day
	// THEN: The closed-form predicate agrees with a brute-force sweep
	//       that checks every minute for joint membership

	rng := rand.New(rand.NewSource(42))
	base := time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC)

	sweep := func(s1, e1, s2, e2 time.Time) bool {
		for m := 0; m < 24*60; m++ {
			at := base.Add(time.Duration(m) * time.Minute)
			in1 := !at.Before(s1) && at.Before(e1)
			in2 := !at.Before(s2) && at.Before(e2)
			if in1 && in2 {
				return true
			}
		}
		return false
	}
	window := func() (time.Time, time.Time) {
		start := base.Add(time.Duration(rng.Intn(20*60)) * time.Minute)
		end := start.Add(time.Duration(1+rng.Intn(4*60-1)) * time.Minute)
		return start, end
	}

	for i := 0; i < 500; i++ {
		s1, e1 := window()
		s2, e2 := window()
		want := sweep(s1, e1, s2, e2)
		require.Equal(t, want, core.Overlaps(s1, e1, s2, e2),
			"[%v, %v) vs [%v, %v)", s1, e1, s2, e2)
	}
}

// =============================================================================
// MONEY
// =============================================================================

func TestLineTotal_NoFloatDrift(t *testing.T) {
	// 3 x 9.99 must be exactly 29.97, not 29.970000000000002
	total := core.LineTotal(3, decimal.RequireFromString("9.99"))
	assert.True(t, total.Equal(decimal.RequireFromString("29.97")), "got %s", total)
}

func TestOrderTotal_Invariant(t *testing.T) {
	subtotal := decimal.RequireFromString("44.97")
	discount := decimal.RequireFromString("5.00")
	tax := decimal.RequireFromString("3.60")

	total := core.OrderTotal(subtotal, discount, tax)
	assert.True(t, total.Equal(decimal.RequireFromString("43.57")), "got %s", total)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 1, core.ClampLimit(0))
	assert.Equal(t, 1, core.ClampLimit(-3))
	assert.Equal(t, 5, core.ClampLimit(5))
	assert.Equal(t, 20, core.ClampLimit(20))
	assert.Equal(t, 20, core.ClampLimit(500))
}

func TestLimitOrDefault(t *testing.T) {
	// Unset limits get the default page size, not the clamp floor
	assert.Equal(t, 5, core.LimitOrDefault(0))
	assert.Equal(t, 5, core.LimitOrDefault(-1))
	assert.Equal(t, 1, core.LimitOrDefault(1))
	assert.Equal(t, 12, core.LimitOrDefault(12))
	assert.Equal(t, 20, core.LimitOrDefault(500))
}
