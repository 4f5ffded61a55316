/*
bookings.go - Party booking and reschedule persistence

PURPOSE:
  Record methods for party_bookings and party_reschedules, including
  the half-open-interval conflict query the scheduler runs before any
  insert or window change.

CONFLICT QUERY:
  Two windows [s1,e1) and [s2,e2) intersect iff s1 < e2 AND s2 < e1.
  Stored RFC3339 UTC text compares lexicographically in time order, so
  the test runs directly in SQL against idx_bookings_resource_window.
  Only active statuses (Pending, Confirmed) hold a room.

SEE ALSO:
  - booking/scheduler.go: Runs the check and the write under WithTx
*/
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/funzone/venue-engine/core"
)

// =============================================================================
// BOOKINGS
// =============================================================================

func (s *Store) InsertBooking(ctx context.Context, b core.PartyBooking) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertBooking(ctx, s.db, b)
}

func (t *txStore) InsertBooking(ctx context.Context, b core.PartyBooking) (int64, error) {
	return insertBooking(ctx, t.h, b)
}

func insertBooking(ctx context.Context, h dbtx, b core.PartyBooking) (int64, error) {
	res, err := h.ExecContext(ctx, `
		INSERT INTO party_bookings
		(package_id, resource_id, customer_id, scheduled_start, scheduled_end,
		 status, additional_kids, additional_guests, special_requests, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.PackageID,
		b.ResourceID,
		b.CustomerID,
		fmtTime(b.ScheduledStart),
		fmtTime(b.ScheduledEnd),
		string(b.Status),
		b.AdditionalKids,
		b.AdditionalGuests,
		nullString(b.SpecialRequests),
		fmtTime(time.Now()),
	)
	if err != nil {
		return 0, core.TransportErrorf("insert party_bookings", err)
	}
	return lastID(res, "insert party_bookings")
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*core.PartyBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBooking(ctx, s.db, id)
}

func (t *txStore) GetBooking(ctx context.Context, id int64) (*core.PartyBooking, error) {
	return getBooking(ctx, t.h, id)
}

func getBooking(ctx context.Context, h dbtx, id int64) (*core.PartyBooking, error) {
	var (
		b                     core.PartyBooking
		start, end, createdAt string
		status                string
		requests              sql.NullString
	)
	err := h.QueryRowContext(ctx, `
		SELECT booking_id, package_id, resource_id, customer_id,
		       scheduled_start, scheduled_end, status,
		       additional_kids, additional_guests, special_requests, created_at
		FROM party_bookings WHERE booking_id = ?`, id,
	).Scan(&b.ID, &b.PackageID, &b.ResourceID, &b.CustomerID,
		&start, &end, &status,
		&b.AdditionalKids, &b.AdditionalGuests, &requests, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, core.TransportErrorf("select party_bookings", err)
	}

	b.Status, err = core.ParseStoredPartyStatus(status)
	if err != nil {
		return nil, err
	}
	b.ScheduledStart = parseTime(start)
	b.ScheduledEnd = parseTime(end)
	b.SpecialRequests = requests.String
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

// HasConflict runs the half-open overlap test against active bookings on
// the resource. Run under WithTx when guarding a write.
func (s *Store) HasConflict(ctx context.Context, resourceID int64, start, end time.Time, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasConflict(ctx, s.db, resourceID, start, end, excludeID)
}

func (t *txStore) HasConflict(ctx context.Context, resourceID int64, start, end time.Time, excludeID int64) (bool, error) {
	return hasConflict(ctx, t.h, resourceID, start, end, excludeID)
}

func hasConflict(ctx context.Context, h dbtx, resourceID int64, start, end time.Time, excludeID int64) (bool, error) {
	var id int64
	err := h.QueryRowContext(ctx, `
		SELECT booking_id FROM party_bookings
		WHERE resource_id = ?
		  AND booking_id != ?
		  AND status IN ('Pending', 'Confirmed')
		  AND scheduled_start < ? AND scheduled_end > ?
		LIMIT 1`,
		resourceID, excludeID, fmtTime(end), fmtTime(start),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, core.TransportErrorf("select party_bookings conflicts", err)
	}
	return true, nil
}

func (s *Store) UpdateBooking(ctx context.Context, id int64, changes core.BookingChanges) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBooking(ctx, s.db, id, changes)
}

func (t *txStore) UpdateBooking(ctx context.Context, id int64, changes core.BookingChanges) error {
	return updateBooking(ctx, t.h, id, changes)
}

// updateBooking writes only the supplied fields.
func updateBooking(ctx context.Context, h dbtx, id int64, changes core.BookingChanges) error {
	var (
		sets []string
		args []any
	)
	if changes.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*changes.Status))
	}
	if changes.Start != nil {
		sets = append(sets, "scheduled_start = ?")
		args = append(args, fmtTime(*changes.Start))
	}
	if changes.End != nil {
		sets = append(sets, "scheduled_end = ?")
		args = append(args, fmtTime(*changes.End))
	}
	if changes.AdditionalKids != nil {
		sets = append(sets, "additional_kids = ?")
		args = append(args, *changes.AdditionalKids)
	}
	if changes.AdditionalGuests != nil {
		sets = append(sets, "additional_guests = ?")
		args = append(args, *changes.AdditionalGuests)
	}
	if changes.SpecialRequests != nil {
		sets = append(sets, "special_requests = ?")
		args = append(args, nullString(*changes.SpecialRequests))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE party_bookings SET " + strings.Join(sets, ", ") + " WHERE booking_id = ?"
	if _, err := h.ExecContext(ctx, query, args...); err != nil {
		return core.TransportErrorf("update party_bookings", err)
	}
	return nil
}

// =============================================================================
// RESCHEDULE AUDIT TRAIL
// =============================================================================

func (s *Store) InsertReschedule(ctx context.Context, r core.PartyReschedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertReschedule(ctx, s.db, r)
}

func (t *txStore) InsertReschedule(ctx context.Context, r core.PartyReschedule) error {
	return insertReschedule(ctx, t.h, r)
}

func insertReschedule(ctx context.Context, h dbtx, r core.PartyReschedule) error {
	_, err := h.ExecContext(ctx, `
		INSERT INTO party_reschedules
		(booking_id, old_start, old_end, new_start, new_end, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.BookingID,
		fmtTime(r.OldStart),
		fmtTime(r.OldEnd),
		fmtTime(r.NewStart),
		fmtTime(r.NewEnd),
		nullString(r.Reason),
		fmtTime(time.Now()),
	)
	if err != nil {
		return core.TransportErrorf("insert party_reschedules", err)
	}
	return nil
}

// =============================================================================
// AVAILABILITY READ MODEL
// =============================================================================

func (s *Store) BookedSlots(ctx context.Context, start, end time.Time) ([]core.BookedSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bookedSlots(ctx, s.db, start, end)
}

func (t *txStore) BookedSlots(ctx context.Context, start, end time.Time) ([]core.BookedSlot, error) {
	return bookedSlots(ctx, t.h, start, end)
}

func bookedSlots(ctx context.Context, h dbtx, start, end time.Time) ([]core.BookedSlot, error) {
	rows, err := h.QueryContext(ctx, `
		SELECT b.scheduled_start, b.scheduled_end, b.status,
		       r.name, COALESCE(l.name, 'All Locations')
		FROM party_bookings b
		JOIN resources r ON r.resource_id = b.resource_id
		LEFT JOIN locations l ON l.location_id = r.location_id
		WHERE b.status IN ('Pending', 'Confirmed')
		  AND b.scheduled_start < ? AND b.scheduled_end > ?
		ORDER BY b.scheduled_start ASC`,
		fmtTime(end), fmtTime(start),
	)
	if err != nil {
		return nil, core.TransportErrorf("select booked slots", err)
	}
	defer rows.Close()

	var slots []core.BookedSlot
	for rows.Next() {
		var (
			slot         core.BookedSlot
			sStart, sEnd string
			status       string
		)
		if err := rows.Scan(&sStart, &sEnd, &status, &slot.ResourceName, &slot.LocationName); err != nil {
			return nil, core.TransportErrorf("scan booked slots", err)
		}
		slot.Status, err = core.ParseStoredPartyStatus(status)
		if err != nil {
			return nil, err
		}
		slot.Start = parseTime(sStart)
		slot.End = parseTime(sEnd)
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}
