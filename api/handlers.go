/*
handlers.go - HTTP API handlers for the venue back office

PURPOSE:
  Exposes the booking scheduler, order ledger, catalog, and customer
  profiles via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Customers:
    POST   /api/customers               Create customer profile
    GET    /api/customers/{id}          Get customer profile
    GET    /api/customers/{id}/orders   Recent orders for a customer

  Bookings:
    POST   /api/bookings                Book a party room
    PATCH  /api/bookings/{id}           Update/reschedule a booking
    GET    /api/availability            Booked slots in a window

  Orders:
    GET    /api/orders                  Search orders
    POST   /api/orders                  Create order with first item
    GET    /api/orders/{id}             Full order detail
    POST   /api/orders/{id}/items       Add a line item
    POST   /api/orders/{id}/status      Update status (with note)
    POST   /api/orders/{id}/payments    Record a payment
    POST   /api/orders/{id}/refunds     Create a refund

  Catalog:
    GET    /api/products                Search products
    GET    /api/products/{id}           Product details
    GET    /api/tickets                 Admission pricing
    GET    /api/packages                Party packages
    GET    /api/policies                Store policy notes
    GET    /api/locations               Store locations

ERROR HANDLING:
  Business-rule violations map onto HTTP status by kind:
  - validation -> 400
  - not_found  -> 404
  - conflict   -> 409
  Store authorization faults -> 502; everything else -> 500.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/funzone/venue-engine/booking"
	"github.com/funzone/venue-engine/catalog"
	"github.com/funzone/venue-engine/core"
	"github.com/funzone/venue-engine/crm"
	"github.com/funzone/venue-engine/ledger"
	"github.com/funzone/venue-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Scheduler *booking.Scheduler
	Ledger    *ledger.Ledger
	Catalog   *catalog.Catalog
	CRM       *crm.CRM
}

// NewHandler wires every subsystem around the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:     store,
		Scheduler: booking.NewScheduler(store),
		Ledger:    ledger.NewLedger(store),
		Catalog:   catalog.NewCatalog(store),
		CRM:       crm.NewCRM(store),
	}
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// CreateCustomer creates a customer profile.
// POST /api/customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	customer, err := h.CRM.CreateProfile(r.Context(), crm.ProfileRequest{
		FullName:       req.FullName,
		Email:          req.Email,
		Phone:          req.Phone,
		GuardianName:   req.GuardianName,
		ChildName:      req.ChildName,
		ChildBirthdate: req.ChildBirthdate,
		Notes:          req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(customer))
}

// GetCustomer returns a single customer profile.
// GET /api/customers/{id}
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	customer, err := h.CRM.Profile(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

// ListCustomerOrders lists a customer's most recent orders.
// GET /api/customers/{id}/orders?limit=5
func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	limit := intQuery(r, "limit", 5)

	orders, err := h.Ledger.CustomerOrders(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking books a party room.
// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	b, err := h.Scheduler.CreateBooking(r.Context(), booking.CreateRequest{
		CustomerID:       req.CustomerID,
		PackageID:        req.PackageID,
		ResourceID:       req.ResourceID,
		ScheduledStart:   req.ScheduledStart,
		ScheduledEnd:     req.ScheduledEnd,
		Status:           req.Status,
		AdditionalKids:   req.AdditionalKids,
		AdditionalGuests: req.AdditionalGuests,
		SpecialRequests:  req.SpecialRequests,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(b))
}

// UpdateBooking applies a partial update, rescheduling when the window
// moves.
// PATCH /api/bookings/{id}
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req UpdateBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	b, err := h.Scheduler.UpdateBooking(r.Context(), id, booking.UpdateRequest{
		Status:           req.Status,
		ScheduledStart:   req.ScheduledStart,
		ScheduledEnd:     req.ScheduledEnd,
		AdditionalKids:   req.AdditionalKids,
		AdditionalGuests: req.AdditionalGuests,
		SpecialRequests:  req.SpecialRequests,
		RescheduleReason: req.RescheduleReason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// GetAvailability lists booked slots intersecting a window.
// GET /api/availability?start=...&end=...&location=...
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	slots, err := h.Scheduler.Availability(r.Context(),
		r.URL.Query().Get("start"),
		r.URL.Query().Get("end"),
		r.URL.Query().Get("location"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]BookedSlotDTO, len(slots))
	for i, s := range slots {
		dtos[i] = BookedSlotDTO{
			Resource: s.ResourceName,
			Location: s.LocationName,
			Start:    s.Start.Format(time.RFC3339),
			End:      s.End.Format(time.RFC3339),
			Status:   string(s.Status),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// SearchOrders lists recent orders filtered by status and customer name.
// GET /api/orders?status=...&customer_name=...&limit=5
func (h *Handler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Ledger.SearchOrders(r.Context(),
		r.URL.Query().Get("status"),
		r.URL.Query().Get("customer_name"),
		intQuery(r, "limit", 5))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]OrderSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = OrderSummaryDTO{OrderDTO: toOrderDTO(s.Order), CustomerName: s.CustomerName}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOrder opens an order around its first line item.
// POST /api/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.Ledger.CreateOrder(r.Context(), ledger.CreateOrderRequest{
		CustomerID: req.CustomerID,
		LocationID: req.LocationID,
		Note:       req.Note,
		Item:       toItemInput(req.OrderItemInput),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(*order))
}

// GetOrderDetails returns the full order rollup.
// GET /api/orders/{id}
func (h *Handler) GetOrderDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	details, err := h.Ledger.OrderDetails(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := OrderDetailsDTO{
		OrderDTO:      toOrderDTO(details.Order),
		CustomerName:  details.CustomerName,
		CustomerEmail: details.CustomerEmail,
		LocationName:  details.LocationName,
		Items:         make([]OrderItemDTO, len(details.Items)),
		Payments:      make([]PaymentDTO, len(details.Payments)),
		Refunds:       make([]RefundDTO, len(details.Refunds)),
	}
	for i, item := range details.Items {
		dto.Items[i] = OrderItemDTO{
			ID:          item.ID,
			ItemType:    string(item.ItemType),
			DisplayName: item.DisplayName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}
	for i, p := range details.Payments {
		dto.Payments[i] = toPaymentDTO(p)
	}
	for i, rf := range details.Refunds {
		dto.Refunds[i] = toRefundDTO(rf)
	}
	writeJSON(w, http.StatusOK, dto)
}

// AddOrderItem appends a line item and refreshes totals.
// POST /api/orders/{id}/items
func (h *Handler) AddOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req OrderItemInput
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.Ledger.AddItem(r.Context(), id, toItemInput(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// UpdateOrderStatus moves an order to a new status.
// POST /api/orders/{id}/status
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.Ledger.UpdateStatus(r.Context(), id, req.Status, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// RecordPayment appends a payment row for an order.
// POST /api/orders/{id}/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	payment, err := h.Ledger.RecordPayment(r.Context(), ledger.PaymentRequest{
		OrderID:           id,
		Provider:          req.Provider,
		ProviderPaymentID: req.ProviderPaymentID,
		Status:            req.Status,
		Amount:            decimal.NewFromFloat(req.AmountUSD),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(*payment))
}

// CreateRefund appends a refund row for an order.
// POST /api/orders/{id}/refunds
func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req CreateRefundRequest
	if !decodeBody(w, r, &req) {
		return
	}

	refund, err := h.Ledger.CreateRefund(r.Context(), ledger.RefundRequest{
		OrderID:   id,
		PaymentID: req.PaymentID,
		Amount:    decimal.NewFromFloat(req.AmountUSD),
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRefundDTO(*refund))
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// SearchProducts lists active products matching optional filters.
// GET /api/products?keyword=...&category=...&age_group=...&limit=5
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.SearchProducts(r.Context(), catalog.ProductFilter{
		Keyword:    r.URL.Query().Get("keyword"),
		Category:   r.URL.Query().Get("category"),
		AgeGroup:   r.URL.Query().Get("age_group"),
		MaxResults: intQuery(r, "limit", 5),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns enriched detail for one product.
// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	product, err := h.Catalog.ProductDetails(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// GetTicketPricing summarizes admission pricing.
// GET /api/tickets?location=...
func (h *Handler) GetTicketPricing(w http.ResponseWriter, r *http.Request) {
	prices, err := h.Catalog.TicketPricing(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]TicketPriceDTO, len(prices))
	for i, t := range prices {
		dtos[i] = TicketPriceDTO{
			ID:                t.ID,
			Name:              t.Name,
			BasePrice:         t.BasePrice,
			Location:          t.LocationName,
			RequiresWaiver:    t.RequiresWaiver,
			RequiresGripSocks: t.RequiresGripSocks,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPartyPackages lists party packages with inclusions.
// GET /api/packages?location=...
func (h *Handler) ListPartyPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.Catalog.PartyPackages(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PartyPackageDTO, len(packages))
	for i, p := range packages {
		dto := PartyPackageDTO{
			ID:             p.ID,
			Name:           p.Name,
			Price:          p.Price,
			BaseChildren:   p.BaseChildren,
			BaseRoomHours:  p.BaseRoomHours,
			IncludesFood:   p.IncludesFood,
			IncludesDrinks: p.IncludesDrinks,
			IncludesDecor:  p.IncludesDecor,
			Location:       p.LocationName,
			Inclusions:     make([]PackageInclusionDTO, len(p.Inclusions)),
		}
		for j, inc := range p.Inclusions {
			dto.Inclusions[j] = PackageInclusionDTO{ItemName: inc.ItemName, Quantity: inc.Quantity}
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPolicies lists active store policy notes.
// GET /api/policies?topic=...
func (h *Handler) GetPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Catalog.Policies(r.Context(), r.URL.Query().Get("topic"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = PolicyDTO{Key: p.Key, Value: p.Value}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListLocations lists store locations.
// GET /api/locations?all=true
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("all") != "true"
	locations, err := h.Catalog.Locations(r.Context(), onlyActive)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]LocationDTO, len(locations))
	for i, l := range locations {
		dtos[i] = LocationDTO{
			ID:          l.ID,
			Name:        l.Name,
			AddressLine: l.AddressLine,
			City:        l.City,
			State:       l.State,
			PostalCode:  l.PostalCode,
			Country:     l.Country,
			Phone:       l.Phone,
			Email:       l.Email,
			Active:      l.Active,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetDatabase clears all data (dev only).
// POST /api/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func toCustomerDTO(c *core.Customer) CustomerDTO {
	return CustomerDTO{
		ID:             c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		Phone:          c.Phone,
		GuardianName:   c.GuardianName,
		ChildName:      c.ChildName,
		ChildBirthdate: c.ChildBirthdate,
		Notes:          c.Notes,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
}

func toBookingDTO(b *core.PartyBooking) BookingDTO {
	return BookingDTO{
		ID:               b.ID,
		PackageID:        b.PackageID,
		ResourceID:       b.ResourceID,
		CustomerID:       b.CustomerID,
		ScheduledStart:   b.ScheduledStart.Format(time.RFC3339),
		ScheduledEnd:     b.ScheduledEnd.Format(time.RFC3339),
		Status:           string(b.Status),
		AdditionalKids:   b.AdditionalKids,
		AdditionalGuests: b.AdditionalGuests,
		SpecialRequests:  b.SpecialRequests,
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
}

func toOrderDTO(o core.Order) OrderDTO {
	return OrderDTO{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		LocationID: o.LocationID,
		OrderType:  string(o.OrderType),
		Status:     string(o.Status),
		Subtotal:   o.Subtotal,
		Discount:   o.Discount,
		Tax:        o.Tax,
		Total:      o.Total,
		Notes:      o.Notes,
		CreatedAt:  o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  o.UpdatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTO(p core.Payment) PaymentDTO {
	return PaymentDTO{
		ID:                p.ID,
		OrderID:           p.OrderID,
		Provider:          p.Provider,
		ProviderPaymentID: p.ProviderPaymentID,
		Status:            string(p.Status),
		Amount:            p.Amount,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
	}
}

func toRefundDTO(r core.Refund) RefundDTO {
	return RefundDTO{
		ID:        r.ID,
		OrderID:   r.OrderID,
		PaymentID: r.PaymentID,
		Status:    r.Status,
		Reason:    r.Reason,
		Amount:    r.Amount,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

func toProductDTO(p core.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		SKU:         p.SKU,
		Category:    p.Category,
		AgeGroup:    p.AgeGroup,
		Material:    p.Material,
		Color:       p.Color,
		Country:     p.Country,
		Description: p.Description,
		Features:    p.Features,
		Price:       p.Price,
		Stock:       p.Stock,
		Rating:      p.Rating,
	}
}

func toItemInput(in OrderItemInput) ledger.ItemInput {
	return ledger.ItemInput{
		ItemType:     in.ItemType,
		ReferenceID:  in.ReferenceID,
		Quantity:     in.Quantity,
		UnitPrice:    decimal.NewFromFloat(in.UnitPriceUSD),
		NameOverride: in.NameOverride,
	}
}

// =============================================================================
// REQUEST/RESPONSE PLUMBING
// =============================================================================

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id.", err)
		return 0, false
	}
	return id, true
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// writeDomainError maps the two error tiers onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	if v, ok := core.AsViolation(err); ok {
		status := http.StatusBadRequest
		switch v.Kind {
		case core.KindNotFound:
			status = http.StatusNotFound
		case core.KindConflict:
			status = http.StatusConflict
		}
		writeError(w, status, v.Message, nil)
		return
	}
	if errors.Is(err, core.ErrUnauthorized) {
		writeError(w, http.StatusBadGateway, "Record store authorization failed", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal error", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
