/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Request bodies carry money as JSON numbers (converted to decimal at
  the handler boundary); responses carry money as decimal strings so
  clients never see float artifacts.

VALIDATION:
  Validation is done in domain logic, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CUSTOMERS
// =============================================================================

// CreateCustomerRequest is the request to create a customer profile.
type CreateCustomerRequest struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	GuardianName   string `json:"guardian_name"`
	ChildName      string `json:"child_name"`
	ChildBirthdate string `json:"child_birthdate"`
	Notes          string `json:"notes"`
}

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID             int64  `json:"customer_id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	GuardianName   string `json:"guardian_name,omitempty"`
	ChildName      string `json:"child_name,omitempty"`
	ChildBirthdate string `json:"child_birthdate,omitempty"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// =============================================================================
// BOOKINGS
// =============================================================================

// CreateBookingRequest is the request to book a party room.
type CreateBookingRequest struct {
	CustomerID       int64  `json:"customer_id"`
	PackageID        int64  `json:"package_id"`
	ResourceID       int64  `json:"resource_id"`
	ScheduledStart   string `json:"scheduled_start"`
	ScheduledEnd     string `json:"scheduled_end"`
	Status           string `json:"status,omitempty"`
	AdditionalKids   int    `json:"additional_kids"`
	AdditionalGuests int    `json:"additional_guests"`
	SpecialRequests  string `json:"special_requests,omitempty"`
}

// UpdateBookingRequest is a partial booking update. Omitted fields are
// left unchanged.
type UpdateBookingRequest struct {
	Status           string  `json:"status,omitempty"`
	ScheduledStart   string  `json:"scheduled_start,omitempty"`
	ScheduledEnd     string  `json:"scheduled_end,omitempty"`
	AdditionalKids   *int    `json:"additional_kids,omitempty"`
	AdditionalGuests *int    `json:"additional_guests,omitempty"`
	SpecialRequests  *string `json:"special_requests,omitempty"`
	RescheduleReason string  `json:"reschedule_reason,omitempty"`
}

// BookingDTO represents a party booking in API responses.
type BookingDTO struct {
	ID               int64  `json:"booking_id"`
	PackageID        int64  `json:"package_id"`
	ResourceID       int64  `json:"resource_id"`
	CustomerID       int64  `json:"customer_id"`
	ScheduledStart   string `json:"scheduled_start"`
	ScheduledEnd     string `json:"scheduled_end"`
	Status           string `json:"status"`
	AdditionalKids   int    `json:"additional_kids"`
	AdditionalGuests int    `json:"additional_guests"`
	SpecialRequests  string `json:"special_requests,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// BookedSlotDTO is one row of the availability view.
type BookedSlotDTO struct {
	Resource string `json:"resource"`
	Location string `json:"location"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Status   string `json:"status"`
}

// =============================================================================
// ORDERS
// =============================================================================

// OrderItemInput is one line item in a create/add request.
type OrderItemInput struct {
	ItemType     string  `json:"item_type"`
	ReferenceID  int64   `json:"reference_id"`
	Quantity     int     `json:"quantity"`
	UnitPriceUSD float64 `json:"unit_price_usd"`
	NameOverride string  `json:"name_override,omitempty"`
}

// CreateOrderRequest opens an order around its first line item.
type CreateOrderRequest struct {
	CustomerID int64  `json:"customer_id"`
	LocationID *int64 `json:"location_id,omitempty"`
	Note       string `json:"note,omitempty"`
	OrderItemInput
}

// UpdateOrderStatusRequest moves an order to a new status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// OrderDTO represents an order in API responses.
type OrderDTO struct {
	ID         int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	LocationID *int64          `json:"location_id,omitempty"`
	OrderType  string          `json:"order_type"`
	Status     string          `json:"status"`
	Subtotal   decimal.Decimal `json:"subtotal_usd"`
	Discount   decimal.Decimal `json:"discount_usd"`
	Tax        decimal.Decimal `json:"tax_usd"`
	Total      decimal.Decimal `json:"total_usd"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

// OrderSummaryDTO is one row of the order search listing.
type OrderSummaryDTO struct {
	OrderDTO
	CustomerName string `json:"customer_name"`
}

// OrderItemDTO is one resolved line item in the order detail view.
type OrderItemDTO struct {
	ID          int64           `json:"order_item_id"`
	ItemType    string          `json:"item_type"`
	DisplayName string          `json:"display_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price_usd"`
	LineTotal   decimal.Decimal `json:"line_total_usd"`
}

// OrderDetailsDTO is the full order rollup.
type OrderDetailsDTO struct {
	OrderDTO
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	LocationName  string         `json:"location_name"`
	Items         []OrderItemDTO `json:"items"`
	Payments      []PaymentDTO   `json:"payments"`
	Refunds       []RefundDTO    `json:"refunds"`
}

// =============================================================================
// PAYMENTS AND REFUNDS
// =============================================================================

// RecordPaymentRequest records a payment attempt against an order.
type RecordPaymentRequest struct {
	Provider          string  `json:"provider"`
	ProviderPaymentID string  `json:"provider_payment_id,omitempty"`
	Status            string  `json:"status,omitempty"`
	AmountUSD         float64 `json:"amount_usd"`
}

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID                int64           `json:"payment_id"`
	OrderID           int64           `json:"order_id"`
	Provider          string          `json:"provider"`
	ProviderPaymentID string          `json:"provider_payment_id,omitempty"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount_usd"`
	CreatedAt         string          `json:"created_at"`
}

// CreateRefundRequest records a refund against an order.
type CreateRefundRequest struct {
	PaymentID *int64  `json:"payment_id,omitempty"`
	AmountUSD float64 `json:"amount_usd"`
	Reason    string  `json:"reason,omitempty"`
}

// RefundDTO represents a refund in API responses.
type RefundDTO struct {
	ID        int64           `json:"refund_id"`
	OrderID   int64           `json:"order_id"`
	PaymentID *int64          `json:"payment_id,omitempty"`
	Status    string          `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	Amount    decimal.Decimal `json:"amount_usd"`
	CreatedAt string          `json:"created_at"`
}

// =============================================================================
// CATALOG
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID          int64           `json:"product_id"`
	Name        string          `json:"product_name"`
	Brand       string          `json:"brand,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	Category    string          `json:"category,omitempty"`
	AgeGroup    string          `json:"age_group,omitempty"`
	Material    string          `json:"material,omitempty"`
	Color       string          `json:"color,omitempty"`
	Country     string          `json:"country,omitempty"`
	Description string          `json:"description,omitempty"`
	Features    string          `json:"features,omitempty"`
	Price       decimal.Decimal `json:"price_usd"`
	Stock       int             `json:"stock_qty"`
	Rating      *float64        `json:"rating,omitempty"`
}

// TicketPriceDTO is one row of the admission pricing view.
type TicketPriceDTO struct {
	ID                int64           `json:"ticket_type_id"`
	Name              string          `json:"name"`
	BasePrice         decimal.Decimal `json:"base_price_usd"`
	Location          string          `json:"location"`
	RequiresWaiver    bool            `json:"requires_waiver"`
	RequiresGripSocks bool            `json:"requires_grip_socks"`
}

// PackageInclusionDTO is one item bundled with a party package.
type PackageInclusionDTO struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// PartyPackageDTO represents a party package in API responses.
type PartyPackageDTO struct {
	ID             int64                 `json:"package_id"`
	Name           string                `json:"name"`
	Price          decimal.Decimal       `json:"price_usd"`
	BaseChildren   int                   `json:"base_children"`
	BaseRoomHours  float64               `json:"base_room_hours"`
	IncludesFood   bool                  `json:"includes_food"`
	IncludesDrinks bool                  `json:"includes_drinks"`
	IncludesDecor  bool                  `json:"includes_decor"`
	Location       string                `json:"location"`
	Inclusions     []PackageInclusionDTO `json:"inclusions"`
}

// PolicyDTO is one active store policy note.
type PolicyDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LocationDTO represents a store location in API responses.
type LocationDTO struct {
	ID          int64  `json:"location_id"`
	Name        string `json:"name"`
	AddressLine string `json:"address_line,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	Country     string `json:"country,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"is_active"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
