/*
Package core provides the shared domain model for the venue back office.

PURPOSE:
  This package contains the closed status vocabularies, entity records,
  validation helpers, and store contracts used by every subsystem:
  the booking scheduler, the order ledger, the payment/refund ledger,
  and the read-only catalog lookups.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status vocabularies: OrderStatus, PaymentStatus, PartyStatus, ItemType
  - Normalization: case-insensitive matching to canonical casing
  - Strict parsing: rejecting unrecognized stored values as data faults

DESIGN PRINCIPLES:
  1. Closed sets: a status is always one of its enumerated values
  2. Normalize at the edge: caller input is matched case-insensitively,
     canonical casing is what gets stored
  3. Parse at the boundary: values read back from storage must match
     exactly; anything else is a data-integrity fault, not caller error

USAGE:
  status, err := core.NormalizePartyStatus("confirmed")
  // status == core.PartyConfirmed ("Confirmed"), err == nil

SEE ALSO:
  - entities.go: Entity records using these vocabularies
  - validate.go: Timestamp, limit, and currency helpers
  - errors.go: The two-tier error model
*/
package core

import "strings"

// =============================================================================
// ORDER STATUS
// =============================================================================

type OrderStatus string

const (
	OrderPending           OrderStatus = "Pending"
	OrderPaid              OrderStatus = "Paid"
	OrderCancelled         OrderStatus = "Cancelled"
	OrderRefunded          OrderStatus = "Refunded"
	OrderPartiallyRefunded OrderStatus = "PartiallyRefunded"
	OrderFulfilled         OrderStatus = "Fulfilled"
)

// OrderStatuses is the closed, ordered vocabulary for Order.Status.
var OrderStatuses = []OrderStatus{
	OrderPending, OrderPaid, OrderCancelled,
	OrderRefunded, OrderPartiallyRefunded, OrderFulfilled,
}

// =============================================================================
// PAYMENT STATUS
// =============================================================================

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "Pending"
	PaymentAuthorized PaymentStatus = "Authorized"
	PaymentCaptured   PaymentStatus = "Captured"
	PaymentFailed     PaymentStatus = "Failed"
	PaymentCancelled  PaymentStatus = "Cancelled"
)

var PaymentStatuses = []PaymentStatus{
	PaymentPending, PaymentAuthorized, PaymentCaptured,
	PaymentFailed, PaymentCancelled,
}

// =============================================================================
// PARTY BOOKING STATUS
// =============================================================================

type PartyStatus string

const (
	PartyPending     PartyStatus = "Pending"
	PartyConfirmed   PartyStatus = "Confirmed"
	PartyCancelled   PartyStatus = "Cancelled"
	PartyCompleted   PartyStatus = "Completed"
	PartyRefunded    PartyStatus = "Refunded"
	PartyRescheduled PartyStatus = "Rescheduled"
)

var PartyStatuses = []PartyStatus{
	PartyPending, PartyConfirmed, PartyCancelled,
	PartyCompleted, PartyRefunded, PartyRescheduled,
}

// ActivePartyStatuses are the only statuses considered when checking for
// scheduling conflicts. Cancelled/Completed/Refunded bookings release the room.
var ActivePartyStatuses = []PartyStatus{PartyPending, PartyConfirmed}

// IsActive reports whether a booking in this status holds its room.
func (s PartyStatus) IsActive() bool {
	return s == PartyPending || s == PartyConfirmed
}

// =============================================================================
// ITEM TYPE AND ORDER TYPE
// =============================================================================

type ItemType string

const (
	ItemProduct ItemType = "Product"
	ItemTicket  ItemType = "Ticket"
	ItemParty   ItemType = "Party"
)

var ItemTypes = []ItemType{ItemProduct, ItemTicket, ItemParty}

type OrderType string

const (
	OrderRetail    OrderType = "Retail"
	OrderAdmission OrderType = "Admission"
	OrderParty     OrderType = "Party"
)

// OrderTypeFor maps a line-item type to the order type it opens.
func OrderTypeFor(item ItemType) OrderType {
	switch item {
	case ItemTicket:
		return OrderAdmission
	case ItemParty:
		return OrderParty
	default:
		return OrderRetail
	}
}

// RefundPending is the only refund status this core writes; refunds are
// created Pending and settled by an external process.
const RefundPending = "Pending"

// =============================================================================
// NORMALIZATION - caller input to canonical casing
// =============================================================================

// normalizeChoice matches value case-insensitively against the ordered list
// and returns the canonical casing. Reports false when nothing matches.
func normalizeChoice[T ~string](value string, choices []T) (T, bool) {
	lowered := strings.ToLower(strings.TrimSpace(value))
	for _, option := range choices {
		if lowered == strings.ToLower(string(option)) {
			return option, true
		}
	}
	var zero T
	return zero, false
}

func choiceList[T ~string](choices []T) string {
	parts := make([]string, len(choices))
	for i, c := range choices {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

// NormalizeOrderStatus matches caller input against the order vocabulary.
// The violation message lists every accepted value so the caller can retry.
func NormalizeOrderStatus(value string) (OrderStatus, error) {
	if s, ok := normalizeChoice(value, OrderStatuses); ok {
		return s, nil
	}
	return "", Violationf(KindValidation, "Status must be one of: %s", choiceList(OrderStatuses))
}

// NormalizePaymentStatus matches caller input against the payment vocabulary.
func NormalizePaymentStatus(value string) (PaymentStatus, error) {
	if s, ok := normalizeChoice(value, PaymentStatuses); ok {
		return s, nil
	}
	return "", Violationf(KindValidation, "Payment status must be one of: %s", choiceList(PaymentStatuses))
}

// NormalizePartyStatus matches caller input against the booking vocabulary.
func NormalizePartyStatus(value string) (PartyStatus, error) {
	if s, ok := normalizeChoice(value, PartyStatuses); ok {
		return s, nil
	}
	return "", Violationf(KindValidation, "Status must be one of: %s", choiceList(PartyStatuses))
}

// NormalizeItemType matches caller input against the item-type vocabulary.
func NormalizeItemType(value string) (ItemType, error) {
	if t, ok := normalizeChoice(value, ItemTypes); ok {
		return t, nil
	}
	return "", Violationf(KindValidation, "Item type must be one of: %s", choiceList(ItemTypes))
}

// =============================================================================
// STRICT PARSING - values read back from storage
// =============================================================================
// Stored statuses were normalized on the way in, so anything that does not
// match exactly is corrupt data, not caller error.

// ParseStoredOrderStatus rejects unrecognized stored values as data faults.
func ParseStoredOrderStatus(value string) (OrderStatus, error) {
	for _, s := range OrderStatuses {
		if value == string(s) {
			return s, nil
		}
	}
	return "", IntegrityErrorf("order status %q is not in the vocabulary", value)
}

// ParseStoredPaymentStatus rejects unrecognized stored values as data faults.
func ParseStoredPaymentStatus(value string) (PaymentStatus, error) {
	for _, s := range PaymentStatuses {
		if value == string(s) {
			return s, nil
		}
	}
	return "", IntegrityErrorf("payment status %q is not in the vocabulary", value)
}

// ParseStoredPartyStatus rejects unrecognized stored values as data faults.
func ParseStoredPartyStatus(value string) (PartyStatus, error) {
	for _, s := range PartyStatuses {
		if value == string(s) {
			return s, nil
		}
	}
	return "", IntegrityErrorf("party status %q is not in the vocabulary", value)
}

// ParseStoredItemType rejects unrecognized stored values as data faults.
func ParseStoredItemType(value string) (ItemType, error) {
	for _, t := range ItemTypes {
		if value == string(t) {
			return t, nil
		}
	}
	return "", IntegrityErrorf("item type %q is not in the vocabulary", value)
}
