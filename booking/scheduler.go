/*
Package booking schedules party rooms over half-open time windows.

PURPOSE:
  The scheduler owns the booking lifecycle: creation with a conflict
  check, partial updates with window revalidation, the append-only
  reschedule audit trail, and the availability read model.

CONFLICT RULE:
  A room is held by any booking with an active status (Pending or
  Confirmed) whose window intersects the requested one under the
  half-open rule: [s1,e1) and [s2,e2) intersect iff s1 < e2 && s2 < e1.
  Touching windows (one ends exactly when the other starts) never
  conflict. Cancelled, Completed, Refunded, and Rescheduled bookings
  release the room.

ATOMICITY:
  Every check-then-write sequence runs under store.WithTx, so two
  concurrent requests for the same room serialize: exactly one wins,
  the other sees the winner's row and gets the conflict violation.

SEE ALSO:
  - core/store.go: The BookingStore contract and WithTx semantics
  - store/sqlite/bookings.go: The conflict query
*/
package booking

import (
	"context"
	"strings"
	"time"

	"github.com/funzone/venue-engine/core"
)

// Scheduler coordinates party bookings against the record store.
type Scheduler struct {
	store core.TxStore
}

func NewScheduler(store core.TxStore) *Scheduler {
	return &Scheduler{store: store}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateRequest carries caller input for a new booking. Timestamps are
// ISO-8601 strings; Status defaults to Pending when empty.
type CreateRequest struct {
	CustomerID       int64
	PackageID        int64
	ResourceID       int64
	ScheduledStart   string
	ScheduledEnd     string
	Status           string
	AdditionalKids   int
	AdditionalGuests int
	SpecialRequests  string
}

// CreateBooking validates the request, then checks the room and inserts
// the booking as one atomic unit.
func (s *Scheduler) CreateBooking(ctx context.Context, req CreateRequest) (*core.PartyBooking, error) {
	if req.AdditionalKids < 0 || req.AdditionalGuests < 0 {
		return nil, core.Violationf(core.KindValidation,
			"additional_kids and additional_guests must be zero or greater.")
	}

	statusInput := req.Status
	if statusInput == "" {
		statusInput = string(core.PartyPending)
	}
	status, err := core.NormalizePartyStatus(statusInput)
	if err != nil {
		return nil, err
	}

	start, err := core.ParseTimestamp(req.ScheduledStart)
	if err != nil {
		return nil, err
	}
	end, err := core.ParseTimestamp(req.ScheduledEnd)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, core.Violationf(core.KindValidation,
			"scheduled_end must be after scheduled_start.")
	}

	var booking *core.PartyBooking
	err = s.store.WithTx(ctx, func(tx core.Store) error {
		customer, err := tx.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return core.Violationf(core.KindNotFound,
				"Customer not found. Please create a customer profile first.")
		}

		conflict, err := tx.HasConflict(ctx, req.ResourceID, start, end, 0)
		if err != nil {
			return err
		}
		if conflict {
			return core.Violationf(core.KindConflict,
				"That room is already booked during the requested time.")
		}

		id, err := tx.InsertBooking(ctx, core.PartyBooking{
			PackageID:        req.PackageID,
			ResourceID:       req.ResourceID,
			CustomerID:       req.CustomerID,
			ScheduledStart:   start,
			ScheduledEnd:     end,
			Status:           status,
			AdditionalKids:   req.AdditionalKids,
			AdditionalGuests: req.AdditionalGuests,
			SpecialRequests:  req.SpecialRequests,
		})
		if err != nil {
			return err
		}

		booking, err = tx.GetBooking(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// =============================================================================
// UPDATE AND RESCHEDULE
// =============================================================================

// UpdateRequest carries a partial booking update. Zero-value string
// fields mean "leave unchanged"; nil pointers likewise.
type UpdateRequest struct {
	Status           string
	ScheduledStart   string
	ScheduledEnd     string
	AdditionalKids   *int
	AdditionalGuests *int
	SpecialRequests  *string
	RescheduleReason string
}

// UpdateBooking applies the requested changes. When the window moves,
// the conflict check reruns (excluding this booking) and one reschedule
// audit row is appended - but only if the final window actually differs
// from the stored one.
func (s *Scheduler) UpdateBooking(ctx context.Context, bookingID int64, req UpdateRequest) (*core.PartyBooking, error) {
	var changes core.BookingChanges

	if req.Status != "" {
		status, err := core.NormalizePartyStatus(req.Status)
		if err != nil {
			return nil, err
		}
		changes.Status = &status
	}

	var newStart, newEnd *time.Time
	if req.ScheduledStart != "" {
		t, err := core.ParseTimestamp(req.ScheduledStart)
		if err != nil {
			return nil, core.Violationf(core.KindValidation,
				"Invalid scheduled_start datetime format.")
		}
		newStart = &t
	}
	if req.ScheduledEnd != "" {
		t, err := core.ParseTimestamp(req.ScheduledEnd)
		if err != nil {
			return nil, core.Violationf(core.KindValidation,
				"Invalid scheduled_end datetime format.")
		}
		newEnd = &t
	}

	if req.AdditionalKids != nil {
		if *req.AdditionalKids < 0 {
			return nil, core.Violationf(core.KindValidation,
				"additional_kids must be zero or greater.")
		}
		changes.AdditionalKids = req.AdditionalKids
	}
	if req.AdditionalGuests != nil {
		if *req.AdditionalGuests < 0 {
			return nil, core.Violationf(core.KindValidation,
				"additional_guests must be zero or greater.")
		}
		changes.AdditionalGuests = req.AdditionalGuests
	}
	changes.SpecialRequests = req.SpecialRequests

	var updated *core.PartyBooking
	err := s.store.WithTx(ctx, func(tx core.Store) error {
		booking, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return core.Violationf(core.KindNotFound, "Booking not found.")
		}

		finalStart := booking.ScheduledStart
		finalEnd := booking.ScheduledEnd
		if newStart != nil {
			finalStart = *newStart
		}
		if newEnd != nil {
			finalEnd = *newEnd
		}
		if !finalEnd.After(finalStart) {
			return core.Violationf(core.KindValidation,
				"scheduled_end must be after scheduled_start.")
		}

		scheduleChanged := newStart != nil || newEnd != nil
		if scheduleChanged {
			changes.Start = &finalStart
			changes.End = &finalEnd

			conflict, err := tx.HasConflict(ctx, booking.ResourceID, finalStart, finalEnd, bookingID)
			if err != nil {
				return err
			}
			if conflict {
				return core.Violationf(core.KindConflict,
					"That room is already booked during the requested time.")
			}
		}

		if changes.Empty() {
			return core.Violationf(core.KindValidation, "No updates were provided.")
		}

		if err := tx.UpdateBooking(ctx, bookingID, changes); err != nil {
			return err
		}

		windowMoved := !finalStart.Equal(booking.ScheduledStart) || !finalEnd.Equal(booking.ScheduledEnd)
		if scheduleChanged && windowMoved {
			err := tx.InsertReschedule(ctx, core.PartyReschedule{
				BookingID: bookingID,
				OldStart:  booking.ScheduledStart,
				OldEnd:    booking.ScheduledEnd,
				NewStart:  finalStart,
				NewEnd:    finalEnd,
				Reason:    req.RescheduleReason,
			})
			if err != nil {
				return err
			}
		}

		updated, err = tx.GetBooking(ctx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// Availability lists active booked slots intersecting [start, end),
// optionally narrowed to locations whose name contains locationName.
func (s *Scheduler) Availability(ctx context.Context, startValue, endValue, locationName string) ([]core.BookedSlot, error) {
	start, err := core.ParseTimestamp(startValue)
	if err != nil {
		return nil, err
	}
	end, err := core.ParseTimestamp(endValue)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, core.Violationf(core.KindValidation,
			"end_datetime must be after start_datetime.")
	}

	slots, err := s.store.BookedSlots(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if locationName == "" {
		return slots, nil
	}

	filtered := slots[:0]
	for _, slot := range slots {
		if containsFold(slot.LocationName, locationName) {
			filtered = append(filtered, slot)
		}
	}
	return filtered, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
