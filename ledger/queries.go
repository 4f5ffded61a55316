/*
queries.go - Order ledger read models

PURPOSE:
  Search, per-customer listing, and the full order detail rollup
  (order + customer + location + items + payments + refunds).
  All reads go straight to the store; nothing is cached.
*/
package ledger

import (
	"context"

	"github.com/funzone/venue-engine/core"
)

// OrderDetails is the full rollup for one order.
type OrderDetails struct {
	Order         core.Order
	CustomerName  string
	CustomerEmail string
	LocationName  string
	Items         []core.OrderItemDetail
	Payments      []core.Payment
	Refunds       []core.Refund
}

// OrderDetails assembles the detail view. Missing customer or location
// records degrade to placeholder names rather than failing the read.
func (l *Ledger) OrderDetails(ctx context.Context, orderID int64) (*OrderDetails, error) {
	order, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, core.Violationf(core.KindNotFound, "Order not found.")
	}

	details := &OrderDetails{
		Order:        *order,
		CustomerName: "Guest",
		LocationName: "All Locations",
	}

	customer, err := l.store.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		details.CustomerName = customer.FullName
		details.CustomerEmail = customer.Email
	}

	if order.LocationID != nil {
		rec, err := l.store.FetchByID(ctx, "locations", "location_id", *order.LocationID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			if name, ok := rec["name"].(string); ok {
				details.LocationName = name
			}
		}
	}

	if details.Items, err = l.store.OrderItemDetails(ctx, orderID); err != nil {
		return nil, err
	}
	if details.Payments, err = l.store.PaymentsByOrder(ctx, orderID); err != nil {
		return nil, err
	}
	if details.Refunds, err = l.store.RefundsByOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return details, nil
}

// SearchOrders lists recent orders filtered by status (case-insensitive
// exact match) and/or customer name (case-insensitive substring).
func (l *Ledger) SearchOrders(ctx context.Context, status, customerName string, limit int) ([]core.OrderSummary, error) {
	return l.store.SearchOrders(ctx, core.OrderSearch{
		Status:       status,
		CustomerName: customerName,
		Limit:        core.LimitOrDefault(limit),
	})
}

// CustomerOrders lists a customer's most recent orders.
func (l *Ledger) CustomerOrders(ctx context.Context, customerID int64, limit int) ([]core.Order, error) {
	return l.store.OrdersByCustomer(ctx, customerID, core.LimitOrDefault(limit))
}
