/*
entities.go - Entity records persisted in the record store

PURPOSE:
  Typed records for every collection the back office touches. Money is
  decimal.Decimal throughout (never float64), timestamps are time.Time
  in UTC, and optional foreign keys are pointers.

LIFECYCLES:
  - Customer and catalog entities (Product, TicketType, PartyPackage,
    Location, Resource) are created/read here but owned externally.
  - PartyBooking is created once and mutated via status/schedule
    updates; never deleted.
  - Order is created with its first item and mutated by item additions
    and status updates; never deleted.
  - PartyReschedule, Payment, and Refund are append-only.

SEE ALSO:
  - types.go: The status vocabularies referenced here
  - store/sqlite: The persisted layout
*/
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CUSTOMERS
// =============================================================================

// Customer is a household record, created once during checkout.
type Customer struct {
	ID             int64
	FullName       string
	Email          string
	Phone          string
	GuardianName   string
	ChildName      string
	ChildBirthdate string // YYYY-MM-DD, empty when not collected
	Notes          string
	CreatedAt      time.Time
}

// =============================================================================
// CATALOG (read-only from the core's perspective)
// =============================================================================

type Product struct {
	ID          int64
	Name        string
	Brand       string
	SKU         string
	Category    string
	AgeGroup    string
	Material    string
	Color       string
	Country     string
	Description string
	Features    string
	Price       decimal.Decimal
	Stock       int
	Rating      *float64
	Active      bool
}

type TicketType struct {
	ID                int64
	Name              string
	BasePrice         decimal.Decimal
	LocationID        *int64
	RequiresWaiver    bool
	RequiresGripSocks bool
	Active            bool
}

type PartyPackage struct {
	ID             int64
	Name           string
	Price          decimal.Decimal
	BaseChildren   int
	BaseRoomHours  float64
	IncludesFood   bool
	IncludesDrinks bool
	IncludesDecor  bool
	LocationID     *int64
	Active         bool
	Inclusions     []PackageInclusion
}

type PackageInclusion struct {
	ItemName string
	Quantity int
}

type Location struct {
	ID          int64
	Name        string
	AddressLine string
	City        string
	State       string
	PostalCode  string
	Country     string
	Phone       string
	Email       string
	Active      bool
}

// Resource is the bookable party room.
type Resource struct {
	ID         int64
	Name       string
	LocationID *int64
}

// Policy is a store policy note, keyed free-form.
type Policy struct {
	Key    string
	Value  string
	Active bool
}

// =============================================================================
// BOOKINGS
// =============================================================================

// PartyBooking is the central scheduling entity. Its window is half-open:
// [ScheduledStart, ScheduledEnd) - touching windows do not conflict.
type PartyBooking struct {
	ID               int64
	PackageID        int64
	ResourceID       int64
	CustomerID       int64
	ScheduledStart   time.Time
	ScheduledEnd     time.Time
	Status           PartyStatus
	AdditionalKids   int
	AdditionalGuests int
	SpecialRequests  string
	CreatedAt        time.Time
}

// PartyReschedule is one append-only audit row per accepted schedule change.
type PartyReschedule struct {
	ID        int64
	BookingID int64
	OldStart  time.Time
	OldEnd    time.Time
	NewStart  time.Time
	NewEnd    time.Time
	Reason    string
	CreatedAt time.Time
}

// BookedSlot is a read-model row for availability listings.
type BookedSlot struct {
	ResourceName string
	LocationName string
	Start        time.Time
	End          time.Time
	Status       PartyStatus
}

// =============================================================================
// ORDERS
// =============================================================================

// Order carries running totals. Invariant after every mutation:
// Total = Subtotal - Discount + Tax.
type Order struct {
	ID         int64
	CustomerID int64
	LocationID *int64
	OrderType  OrderType
	Status     OrderStatus
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem is immutable once created. Exactly one of ProductID,
// TicketTypeID, BookingID is set, matching ItemType.
type OrderItem struct {
	ID           int64
	OrderID      int64
	ItemType     ItemType
	ProductID    *int64
	TicketTypeID *int64
	BookingID    *int64
	NameOverride string
	Quantity     int
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
}

// =============================================================================
// PAYMENTS AND REFUNDS (append-only)
// =============================================================================

type Payment struct {
	ID                int64
	OrderID           int64
	Provider          string
	ProviderPaymentID string
	Status            PaymentStatus
	Amount            decimal.Decimal
	CreatedAt         time.Time
}

type Refund struct {
	ID        int64
	OrderID   int64
	PaymentID *int64 // when set, must reference a payment on the same order
	Status    string
	Reason    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}
