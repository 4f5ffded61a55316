/*
store.go - Persistence contracts for the record store

PURPOSE:
  Defines the interface between domain logic and the record store.
  Two surfaces coexist:

  1. Typed domain stores (CustomerStore, BookingStore, OrderStore) -
     every value crossing this boundary is parsed into its closed
     vocabulary; unrecognized stored values surface as data faults.
  2. Querier - the generic filtered-query contract (equality,
     case-insensitive substring, range, set-membership, OR-composition,
     ordering, limit) used by the read-only catalog lookups.

CONCURRENCY CONTRACT:
  TxStore.WithTx runs fn inside one database transaction. The booking
  conflict check and the order-totals refresh are read-then-write
  sequences; running them under WithTx closes the race window where two
  concurrent calls both pass their check before either writes.

INJECTION:
  The store client is constructed by the process entry point and passed
  to each component. Nothing in this module holds a global client, and
  no state is cached across calls - every operation re-reads what it
  needs.

IMPLEMENTATIONS:
  - store/sqlite: production implementation

SEE ALSO:
  - entities.go: Record types crossing these interfaces
  - errors.go: Fault modes the implementations surface
*/
package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TYPED DOMAIN STORES
// =============================================================================

type CustomerStore interface {
	InsertCustomer(ctx context.Context, c Customer) (int64, error)

	// GetCustomer returns nil when the customer does not exist.
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
}

// BookingChanges is a partial update; nil fields are left untouched.
type BookingChanges struct {
	Status           *PartyStatus
	Start            *time.Time
	End              *time.Time
	AdditionalKids   *int
	AdditionalGuests *int
	SpecialRequests  *string
}

// Empty reports whether no field is being changed.
func (c BookingChanges) Empty() bool {
	return c.Status == nil && c.Start == nil && c.End == nil &&
		c.AdditionalKids == nil && c.AdditionalGuests == nil && c.SpecialRequests == nil
}

type BookingStore interface {
	InsertBooking(ctx context.Context, b PartyBooking) (int64, error)

	// GetBooking returns nil when the booking does not exist.
	GetBooking(ctx context.Context, id int64) (*PartyBooking, error)

	// HasConflict reports whether any booking with an active status on the
	// resource intersects [start, end) under the half-open rule.
	// excludeID > 0 leaves that booking out of the check (reschedules).
	HasConflict(ctx context.Context, resourceID int64, start, end time.Time, excludeID int64) (bool, error)

	UpdateBooking(ctx context.Context, id int64, changes BookingChanges) error

	// InsertReschedule appends one audit row; rows are never updated.
	InsertReschedule(ctx context.Context, r PartyReschedule) error

	// BookedSlots lists active bookings intersecting [start, end),
	// with resource and location names resolved, ordered by start.
	BookedSlots(ctx context.Context, start, end time.Time) ([]BookedSlot, error)
}

// OrderSearch filters the order listing.
type OrderSearch struct {
	Status       string // case-insensitive exact match when set
	CustomerName string // case-insensitive substring when set
	Limit        int
}

// OrderSummary is the order listing read model.
type OrderSummary struct {
	Order
	CustomerName string
}

// OrderItemDetail resolves the display name of a line item from its
// referenced product/ticket, honoring any name override.
type OrderItemDetail struct {
	OrderItem
	DisplayName string
}

type OrderStore interface {
	InsertOrder(ctx context.Context, o Order) (int64, error)

	// GetOrder returns nil when the order does not exist.
	GetOrder(ctx context.Context, id int64) (*Order, error)

	InsertOrderItem(ctx context.Context, item OrderItem) (int64, error)

	// UpdateOrderTotals writes a recomputed subtotal/total pair.
	// Call only under WithTx together with the read that produced them.
	UpdateOrderTotals(ctx context.Context, id int64, subtotal, total decimal.Decimal, updatedAt time.Time) error

	// UpdateOrderStatus writes status, the full notes text, and updated_at.
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus, notes string, updatedAt time.Time) error

	OrderItemDetails(ctx context.Context, orderID int64) ([]OrderItemDetail, error)
	SearchOrders(ctx context.Context, q OrderSearch) ([]OrderSummary, error)
	OrdersByCustomer(ctx context.Context, customerID int64, limit int) ([]Order, error)

	InsertPayment(ctx context.Context, p Payment) (int64, error)

	// PaymentForOrder returns nil unless paymentID exists AND belongs to
	// orderID. The refund linkage invariant rides on this.
	PaymentForOrder(ctx context.Context, paymentID, orderID int64) (*Payment, error)

	InsertRefund(ctx context.Context, r Refund) (int64, error)

	PaymentsByOrder(ctx context.Context, orderID int64) ([]Payment, error)
	RefundsByOrder(ctx context.Context, orderID int64) ([]Refund, error)
}

// =============================================================================
// GENERIC FILTERED QUERIES - the record-store contract
// =============================================================================

type FilterOp string

const (
	OpEq       FilterOp = "eq"       // equality
	OpContains FilterOp = "contains" // case-insensitive substring
	OpLt       FilterOp = "lt"       // less-than
	OpGt       FilterOp = "gt"       // greater-than
	OpIn       FilterOp = "in"       // set membership
)

type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Where is AND over All, with Any as one OR-composed group
// (e.g., keyword matching name OR brand OR sku).
type Where struct {
	All []Filter
	Any []Filter
}

type OrderBy struct {
	Field string
	Desc  bool
}

type Query struct {
	Collection string
	Where      Where
	Order      []OrderBy
	Limit      int
}

// Record is a decoded row from a named collection.
type Record map[string]any

type Querier interface {
	Fetch(ctx context.Context, q Query) ([]Record, error)

	// FetchByID returns nil when no record matches.
	FetchByID(ctx context.Context, collection, keyField string, id any) (Record, error)

	Insert(ctx context.Context, collection string, rec Record) (Record, error)
	Update(ctx context.Context, collection, keyField string, id any, changes Record) error
	Delete(ctx context.Context, collection, keyField string, id any) error
}

// =============================================================================
// AGGREGATE STORE
// =============================================================================

// Store is the full persistence surface consumed by the domain packages.
type Store interface {
	CustomerStore
	BookingStore
	OrderStore
	Querier
}

// TxStore adds transactional execution. If fn returns an error the
// transaction is rolled back; otherwise it is committed.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
