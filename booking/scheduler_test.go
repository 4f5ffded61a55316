package booking_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funzone/venue-engine/booking"
	"github.com/funzone/venue-engine/core"
	"github.com/funzone/venue-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	customerID int64
	packageID  int64
	resourceID int64
}

func newTestScheduler(t *testing.T) (*booking.Scheduler, *sqlite.Store, fixture) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()

	customerID, err := store.InsertCustomer(ctx, core.Customer{FullName: "Dana Park"})
	require.NoError(t, err)

	pkg, err := store.Insert(ctx, "party_packages", core.Record{
		"name": "Mega Bash", "price_usd": "299.00",
		"base_children": 10, "base_room_hours": 2.0,
	})
	require.NoError(t, err)

	room, err := store.Insert(ctx, "resources", core.Record{"name": "Rainbow Room"})
	require.NoError(t, err)

	return booking.NewScheduler(store), store, fixture{
		customerID: customerID,
		packageID:  recID(t, pkg, "package_id"),
		resourceID: recID(t, room, "resource_id"),
	}
}

func recID(t *testing.T, rec core.Record, field string) int64 {
	t.Helper()
	id, ok := rec[field].(int64)
	require.True(t, ok, "record %v has no int64 %s", rec, field)
	return id
}

func createReq(f fixture, start, end string) booking.CreateRequest {
	return booking.CreateRequest{
		CustomerID:     f.customerID,
		PackageID:      f.packageID,
		ResourceID:     f.resourceID,
		ScheduledStart: start,
		ScheduledEnd:   end,
	}
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreateBooking_Succeeds(t *testing.T) {
	sched, _, f := newTestScheduler(t)

	b, err := sched.CreateBooking(context.Background(),
		createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))

	require.NoError(t, err)
	assert.Equal(t, core.PartyPending, b.Status, "status defaults to Pending")
	assert.Equal(t, f.customerID, b.CustomerID)
	assert.True(t, b.ScheduledStart.Equal(time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)))
	assert.True(t, b.ScheduledEnd.Equal(time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC)))
}

func TestCreateBooking_OverlapRejected(t *testing.T) {
	// GIVEN: A confirmed 12:00-14:00 booking for the room
	// WHEN: Requesting 13:00-15:00 on the same room
	// THEN: The second request fails with a conflict

	sched, _, f := newTestScheduler(t)
	ctx := context.Background()

	first := createReq(f, "2025-11-03T12:00", "2025-11-03T14:00")
	first.Status = "Confirmed"
	_, err := sched.CreateBooking(ctx, first)
	require.NoError(t, err)

	_, err = sched.CreateBooking(ctx, createReq(f, "2025-11-03T13:00", "2025-11-03T15:00"))

	v, ok := core.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, core.KindConflict, v.Kind)
	assert.Equal(t, "That room is already booked during the requested time.", v.Message)
}

func TestCreateBooking_TouchingWindowsBothSucceed(t *testing.T) {
	// The window is half-open: a 14:00-16:00 party may follow a
	// 12:00-14:00 party in the same room.

	sched, _, f := newTestScheduler(t)
	ctx := context.Background()

	_, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	_, err = sched.CreateBooking(ctx, createReq(f, "2025-11-03T14:00", "2025-11-03T16:00"))
	assert.NoError(t, err, "touching windows must not conflict")
}

func TestCreateBooking_CancelledBookingReleasesRoom(t *testing.T) {
	sched, _, f := newTestScheduler(t)
	ctx := context.Background()

	first, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	_, err = sched.UpdateBooking(ctx, first.ID, booking.UpdateRequest{Status: "cancelled"})
	require.NoError(t, err)

	_, err = sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	assert.NoError(t, err, "cancelled booking no longer holds the room")
}

func TestCreateBooking_Validation(t *testing.T) {
	sched, _, f := newTestScheduler(t)
	ctx := context.Background()

	t.Run("end before start", func(t *testing.T) {
		_, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T14:00", "2025-11-03T12:00"))
		v, ok := core.AsViolation(err)
		require.True(t, ok)
		assert.Equal(t, "scheduled_end must be after scheduled_start.", v.Message)
	})

	t.Run("zero-length window", func(t *testing.T) {
		_, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T12:00"))
		require.True(t, core.IsViolation(err))
	})

	t.Run("negative headcount", func(t *testing.T) {
		req := createReq(f, "2025-11-03T12:00", "2025-11-03T14:00")
		req.AdditionalKids = -1
		_, err := sched.CreateBooking(ctx, req)
		v, ok := core.AsViolation(err)
		require.True(t, ok)
		assert.Equal(t, "additional_kids and additional_guests must be zero or greater.", v.Message)
	})

	t.Run("unknown customer", func(t *testing.T) {
		req := createReq(f, "2025-11-03T12:00", "2025-11-03T14:00")
		req.CustomerID = 9999
		_, err := sched.CreateBooking(ctx, req)
		v, ok := core.AsViolation(err)
		require.True(t, ok)
		assert.Equal(t, core.KindNotFound, v.Kind)
		assert.Equal(t, "Customer not found. Please create a customer profile first.", v.Message)
	})
}

// =============================================================================
// UPDATE AND RESCHEDULE AUDIT
// =============================================================================

func rescheduleRows(t *testing.T, store *sqlite.Store, bookingID int64) []core.Record {
	t.Helper()
	rows, err := store.Fetch(context.Background(), core.Query{
		Collection: "party_reschedules",
		Where: core.Where{
			All: []core.Filter{{Field: "booking_id", Op: core.OpEq, Value: bookingID}},
		},
	})
	require.NoError(t, err)
	return rows
}

func TestUpdateBooking_WindowMoveWritesOneAuditRow(t *testing.T) {
	sched, store, f := newTestScheduler(t)
	ctx := context.Background()

	b, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	updated, err := sched.UpdateBooking(ctx, b.ID, booking.UpdateRequest{
		ScheduledStart:   "2025-11-04T12:00",
		ScheduledEnd:     "2025-11-04T14:00",
		RescheduleReason: "family request",
	})
	require.NoError(t, err)
	assert.True(t, updated.ScheduledStart.Equal(time.Date(2025, 11, 4, 12, 0, 0, 0, time.UTC)))

	rows := rescheduleRows(t, store, b.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "family request", rows[0]["reason"])
}

func TestUpdateBooking_StatusOnlyWritesNoAuditRow(t *testing.T) {
	sched, store, f := newTestScheduler(t)
	ctx := context.Background()

	b, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	updated, err := sched.UpdateBooking(ctx, b.ID, booking.UpdateRequest{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, core.PartyConfirmed, updated.Status)

	assert.Empty(t, rescheduleRows(t, store, b.ID))
}

func TestUpdateBooking_SameWindowWritesNoAuditRow(t *testing.T) {
	// Re-sending the current window counts as a schedule change request
	// but moves nothing, so no audit row is appended.

	sched, store, f := newTestScheduler(t)
	ctx := context.Background()

	b, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	_, err = sched.UpdateBooking(ctx, b.ID, booking.UpdateRequest{
		ScheduledStart: "2025-11-03T12:00",
		ScheduledEnd:   "2025-11-03T14:00",
	})
	require.NoError(t, err)

	assert.Empty(t, rescheduleRows(t, store, b.ID))
}

func TestUpdateBooking_RescheduleIntoOccupiedSlotRejected(t *testing.T) {
	sched, store, f := newTestScheduler(t)
	ctx := context.Background()

	_, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	second, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T16:00", "2025-11-03T18:00"))
	require.NoError(t, err)

	_, err = sched.UpdateBooking(ctx, second.ID, booking.UpdateRequest{
		ScheduledStart: "2025-11-03T13:00",
		ScheduledEnd:   "2025-11-03T15:00",
	})

	v, ok := core.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, core.KindConflict, v.Kind)

	// The failed attempt must leave no audit row behind
	assert.Empty(t, rescheduleRows(t, store, second.ID))
}

func TestUpdateBooking_RescheduleExcludesItself(t *testing.T) {
	// Shifting a booking within its own current window must not
	// conflict with itself.

	sched, _, f := newTestScheduler(t)
	ctx := context.Background()

	b, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	_, err = sched.UpdateBooking(ctx, b.ID, booking.UpdateRequest{
		ScheduledStart: "2025-11-03T13:00",
		ScheduledEnd:   "2025-11-03T15:00",
	})
	assert.NoError(t, err)
}

func TestUpdateBooking_NoFieldsRejected(t *testing.T) {
	sched, _, f := newTestScheduler(t)
	ctx := context.Background()

	b, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	_, err = sched.UpdateBooking(ctx, b.ID, booking.UpdateRequest{})

	v, ok := core.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "No updates were provided.", v.Message)
}

func TestUpdateBooking_NotFound(t *testing.T) {
	sched, _, _ := newTestScheduler(t)

	_, err := sched.UpdateBooking(context.Background(), 4242, booking.UpdateRequest{Status: "Confirmed"})

	v, ok := core.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, core.KindNotFound, v.Kind)
	assert.Equal(t, "Booking not found.", v.Message)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestCreateBooking_ConcurrentRequestsExactlyOneWins(t *testing.T) {
	// Two simultaneous requests for the same room and window: the
	// conflict check and the insert run under one transaction, so
	// exactly one caller wins and the other sees the conflict.

	sched, _, f := newTestScheduler(t)
	ctx := context.Background()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = sched.CreateBooking(ctx,
				createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		v, ok := core.AsViolation(err)
		require.True(t, ok, "loser must see a conflict violation, got %v", err)
		assert.Equal(t, core.KindConflict, v.Kind)
	}
	assert.Equal(t, 1, wins, "exactly one concurrent request may win")
}

// =============================================================================
// AVAILABILITY
// =============================================================================

func TestAvailability_ListsIntersectingActiveSlots(t *testing.T) {
	sched, _, f := newTestScheduler(t)
	ctx := context.Background()

	_, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	cancelled, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T16:00", "2025-11-03T18:00"))
	require.NoError(t, err)
	_, err = sched.UpdateBooking(ctx, cancelled.ID, booking.UpdateRequest{Status: "Cancelled"})
	require.NoError(t, err)

	slots, err := sched.Availability(ctx, "2025-11-03T00:00", "2025-11-04T00:00", "")
	require.NoError(t, err)

	require.Len(t, slots, 1, "cancelled slot is invisible")
	assert.Equal(t, "Rainbow Room", slots[0].ResourceName)
	assert.Equal(t, "All Locations", slots[0].LocationName, "room without location")
}

func TestAvailability_WindowValidation(t *testing.T) {
	sched, _, _ := newTestScheduler(t)

	_, err := sched.Availability(context.Background(),
		"2025-11-04T00:00", "2025-11-03T00:00", "")

	v, ok := core.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "end_datetime must be after start_datetime.", v.Message)
}

func TestAvailability_LocationFilter(t *testing.T) {
	sched, store, f := newTestScheduler(t)
	ctx := context.Background()

	loc, err := store.Insert(ctx, "locations", core.Record{"name": "Funzone Downtown"})
	require.NoError(t, err)
	room, err := store.Insert(ctx, "resources", core.Record{
		"name": "Star Room", "location_id": recID(t, loc, "location_id"),
	})
	require.NoError(t, err)

	downtown := createReq(f, "2025-11-03T12:00", "2025-11-03T14:00")
	downtown.ResourceID = recID(t, room, "resource_id")
	_, err = sched.CreateBooking(ctx, downtown)
	require.NoError(t, err)

	_, err = sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	slots, err := sched.Availability(ctx, "2025-11-03T00:00", "2025-11-04T00:00", "downtown")
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.Equal(t, "Star Room", slots[0].ResourceName)
}

func TestCreateBooking_DifferentRoomsNoConflict(t *testing.T) {
	sched, store, f := newTestScheduler(t)
	ctx := context.Background()

	_, err := sched.CreateBooking(ctx, createReq(f, "2025-11-03T12:00", "2025-11-03T14:00"))
	require.NoError(t, err)

	other, err := store.Insert(ctx, "resources", core.Record{"name": "Moon Room"})
	require.NoError(t, err)

	req := createReq(f, "2025-11-03T12:00", "2025-11-03T14:00")
	req.ResourceID = recID(t, other, "resource_id")
	_, err = sched.CreateBooking(ctx, req)
	assert.NoError(t, err, "same window on a different room is fine")
}

func TestCreateBooking_ManySequentialSlots(t *testing.T) {
	// Back-to-back slots across a full day all fit on one room.
	sched, _, f := newTestScheduler(t)
	ctx := context.Background()

	for h := 8; h < 20; h += 2 {
		_, err := sched.CreateBooking(ctx, createReq(f,
			fmt.Sprintf("2025-11-03T%02d:00", h),
			fmt.Sprintf("2025-11-03T%02d:00", h+2)))
		require.NoError(t, err, "slot starting at %d:00", h)
	}
}
