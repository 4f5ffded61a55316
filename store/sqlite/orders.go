/*
orders.go - Order ledger, payment, and refund persistence

PURPOSE:
  Record methods for orders, order_items, payments, and refunds.
  Totals writes (UpdateOrderTotals) are meant to run under WithTx
  together with the read that produced them, so two concurrent item
  additions cannot lose an update.

MONEY:
  All money columns round-trip through decimal strings; nothing here
  recomputes totals - that arithmetic belongs to the ledger package.

SEE ALSO:
  - ledger/orders.go: Totals arithmetic and status transitions
  - ledger/payments.go: Payment/refund linkage rules
*/
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/funzone/venue-engine/core"
)

// =============================================================================
// ORDERS
// =============================================================================

func (s *Store) InsertOrder(ctx context.Context, o core.Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertOrder(ctx, s.db, o)
}

func (t *txStore) InsertOrder(ctx context.Context, o core.Order) (int64, error) {
	return insertOrder(ctx, t.h, o)
}

func insertOrder(ctx context.Context, h dbtx, o core.Order) (int64, error) {
	now := fmtTime(time.Now())
	res, err := h.ExecContext(ctx, `
		INSERT INTO orders
		(customer_id, location_id, order_type, status,
		 subtotal_usd, discount_usd, tax_usd, total_usd, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.CustomerID,
		nullInt64(o.LocationID),
		string(o.OrderType),
		string(o.Status),
		o.Subtotal.String(),
		o.Discount.String(),
		o.Tax.String(),
		o.Total.String(),
		nullString(o.Notes),
		now,
		now,
	)
	if err != nil {
		return 0, core.TransportErrorf("insert orders", err)
	}
	return lastID(res, "insert orders")
}

const orderColumns = `order_id, customer_id, location_id, order_type, status,
       subtotal_usd, discount_usd, tax_usd, total_usd, notes, created_at, updated_at`

func (s *Store) GetOrder(ctx context.Context, id int64) (*core.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getOrder(ctx, s.db, id)
}

func (t *txStore) GetOrder(ctx context.Context, id int64) (*core.Order, error) {
	return getOrder(ctx, t.h, id)
}

func getOrder(ctx context.Context, h dbtx, id int64) (*core.Order, error) {
	rows, err := h.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE order_id = ?", id)
	if err != nil {
		return nil, core.TransportErrorf("select orders", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	o, err := scanOrder(rows)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrder(rows *sql.Rows) (core.Order, error) {
	var (
		o                              core.Order
		locationID                     sql.NullInt64
		orderType, status              string
		subtotal, discount, tax, total string
		notes                          sql.NullString
		createdAt, updatedAt           string
	)
	err := rows.Scan(&o.ID, &o.CustomerID, &locationID, &orderType, &status,
		&subtotal, &discount, &tax, &total, &notes, &createdAt, &updatedAt)
	if err != nil {
		return o, core.TransportErrorf("scan orders", err)
	}

	o.Status, err = core.ParseStoredOrderStatus(status)
	if err != nil {
		return o, err
	}
	o.OrderType = core.OrderType(orderType)
	o.LocationID = int64Ptr(locationID)
	o.Notes = notes.String
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)

	for _, pair := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{subtotal, &o.Subtotal},
		{discount, &o.Discount},
		{tax, &o.Tax},
		{total, &o.Total},
	} {
		d, err := parseMoney(pair.src)
		if err != nil {
			return o, err
		}
		*pair.dst = d
	}
	return o, nil
}

// UpdateOrderTotals writes a recomputed subtotal/total pair. The caller
// is expected to hold the totals invariant: total = subtotal - discount + tax.
func (s *Store) UpdateOrderTotals(ctx context.Context, id int64, subtotal, total decimal.Decimal, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateOrderTotals(ctx, s.db, id, subtotal, total, updatedAt)
}

func (t *txStore) UpdateOrderTotals(ctx context.Context, id int64, subtotal, total decimal.Decimal, updatedAt time.Time) error {
	return updateOrderTotals(ctx, t.h, id, subtotal, total, updatedAt)
}

func updateOrderTotals(ctx context.Context, h dbtx, id int64, subtotal, total decimal.Decimal, updatedAt time.Time) error {
	_, err := h.ExecContext(ctx, `
		UPDATE orders SET subtotal_usd = ?, total_usd = ?, updated_at = ?
		WHERE order_id = ?`,
		subtotal.String(), total.String(), fmtTime(updatedAt), id,
	)
	if err != nil {
		return core.TransportErrorf("update orders totals", err)
	}
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status core.OrderStatus, notes string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateOrderStatus(ctx, s.db, id, status, notes, updatedAt)
}

func (t *txStore) UpdateOrderStatus(ctx context.Context, id int64, status core.OrderStatus, notes string, updatedAt time.Time) error {
	return updateOrderStatus(ctx, t.h, id, status, notes, updatedAt)
}

func updateOrderStatus(ctx context.Context, h dbtx, id int64, status core.OrderStatus, notes string, updatedAt time.Time) error {
	_, err := h.ExecContext(ctx, `
		UPDATE orders SET status = ?, notes = ?, updated_at = ?
		WHERE order_id = ?`,
		string(status), nullString(notes), fmtTime(updatedAt), id,
	)
	if err != nil {
		return core.TransportErrorf("update orders status", err)
	}
	return nil
}

// =============================================================================
// ORDER ITEMS
// =============================================================================

func (s *Store) InsertOrderItem(ctx context.Context, item core.OrderItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertOrderItem(ctx, s.db, item)
}

func (t *txStore) InsertOrderItem(ctx context.Context, item core.OrderItem) (int64, error) {
	return insertOrderItem(ctx, t.h, item)
}

func insertOrderItem(ctx context.Context, h dbtx, item core.OrderItem) (int64, error) {
	res, err := h.ExecContext(ctx, `
		INSERT INTO order_items
		(order_id, item_type, product_id, ticket_type_id, booking_id,
		 name_override, quantity, unit_price_usd, line_total_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.OrderID,
		string(item.ItemType),
		nullInt64(item.ProductID),
		nullInt64(item.TicketTypeID),
		nullInt64(item.BookingID),
		nullString(item.NameOverride),
		item.Quantity,
		item.UnitPrice.String(),
		item.LineTotal.String(),
	)
	if err != nil {
		switch {
		case isCheckConstraintError(err):
			return 0, core.IntegrityErrorf("order item reference slots violate the one-slot rule: %v", err)
		case isForeignKeyError(err):
			return 0, core.IntegrityErrorf("order item references a missing product, ticket type, or booking: %v", err)
		}
		return 0, core.TransportErrorf("insert order_items", err)
	}
	return lastID(res, "insert order_items")
}

func (s *Store) OrderItemDetails(ctx context.Context, orderID int64) ([]core.OrderItemDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return orderItemDetails(ctx, s.db, orderID)
}

func (t *txStore) OrderItemDetails(ctx context.Context, orderID int64) ([]core.OrderItemDetail, error) {
	return orderItemDetails(ctx, t.h, orderID)
}

func orderItemDetails(ctx context.Context, h dbtx, orderID int64) ([]core.OrderItemDetail, error) {
	rows, err := h.QueryContext(ctx, `
		SELECT i.order_item_id, i.order_id, i.item_type,
		       i.product_id, i.ticket_type_id, i.booking_id,
		       i.name_override, i.quantity, i.unit_price_usd, i.line_total_usd,
		       COALESCE(i.name_override, p.product_name, tt.name, 'Line item')
		FROM order_items i
		LEFT JOIN products p ON p.product_id = i.product_id
		LEFT JOIN ticket_types tt ON tt.ticket_type_id = i.ticket_type_id
		WHERE i.order_id = ?
		ORDER BY i.order_item_id ASC`, orderID)
	if err != nil {
		return nil, core.TransportErrorf("select order_items", err)
	}
	defer rows.Close()

	var items []core.OrderItemDetail
	for rows.Next() {
		var (
			d                    core.OrderItemDetail
			itemType             string
			prodID, tktID, bkgID sql.NullInt64
			override             sql.NullString
			unitPrice, lineTotal string
		)
		if err := rows.Scan(&d.ID, &d.OrderID, &itemType,
			&prodID, &tktID, &bkgID,
			&override, &d.Quantity, &unitPrice, &lineTotal, &d.DisplayName); err != nil {
			return nil, core.TransportErrorf("scan order_items", err)
		}

		d.ItemType, err = core.ParseStoredItemType(itemType)
		if err != nil {
			return nil, err
		}
		d.ProductID = int64Ptr(prodID)
		d.TicketTypeID = int64Ptr(tktID)
		d.BookingID = int64Ptr(bkgID)
		d.NameOverride = override.String
		if d.UnitPrice, err = parseMoney(unitPrice); err != nil {
			return nil, err
		}
		if d.LineTotal, err = parseMoney(lineTotal); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// =============================================================================
// ORDER LISTINGS
// =============================================================================

func (s *Store) SearchOrders(ctx context.Context, q core.OrderSearch) ([]core.OrderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchOrders(ctx, s.db, q)
}

func (t *txStore) SearchOrders(ctx context.Context, q core.OrderSearch) ([]core.OrderSummary, error) {
	return searchOrders(ctx, t.h, q)
}

func searchOrders(ctx context.Context, h dbtx, q core.OrderSearch) ([]core.OrderSummary, error) {
	var (
		where []string
		args  []any
	)
	if q.Status != "" {
		where = append(where, "o.status = ? COLLATE NOCASE")
		args = append(args, q.Status)
	}
	if q.CustomerName != "" {
		where = append(where, "c.full_name LIKE '%' || ? || '%'")
		args = append(args, q.CustomerName)
	}

	query := `
		SELECT ` + prefixedOrderColumns + `, c.full_name
		FROM orders o
		JOIN customers c ON c.customer_id = o.customer_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := h.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.TransportErrorf("select orders", err)
	}
	defer rows.Close()

	var summaries []core.OrderSummary
	for rows.Next() {
		var (
			o                              core.Order
			locationID                     sql.NullInt64
			orderType, status              string
			subtotal, discount, tax, total string
			notes                          sql.NullString
			createdAt, updatedAt           string
			customerName                   string
		)
		if err := rows.Scan(&o.ID, &o.CustomerID, &locationID, &orderType, &status,
			&subtotal, &discount, &tax, &total, &notes, &createdAt, &updatedAt,
			&customerName); err != nil {
			return nil, core.TransportErrorf("scan orders", err)
		}

		if o.Status, err = core.ParseStoredOrderStatus(status); err != nil {
			return nil, err
		}
		o.OrderType = core.OrderType(orderType)
		o.LocationID = int64Ptr(locationID)
		o.Notes = notes.String
		o.CreatedAt = parseTime(createdAt)
		o.UpdatedAt = parseTime(updatedAt)
		if o.Subtotal, err = parseMoney(subtotal); err != nil {
			return nil, err
		}
		if o.Discount, err = parseMoney(discount); err != nil {
			return nil, err
		}
		if o.Tax, err = parseMoney(tax); err != nil {
			return nil, err
		}
		if o.Total, err = parseMoney(total); err != nil {
			return nil, err
		}

		summaries = append(summaries, core.OrderSummary{Order: o, CustomerName: customerName})
	}
	return summaries, rows.Err()
}

const prefixedOrderColumns = `o.order_id, o.customer_id, o.location_id, o.order_type, o.status,
       o.subtotal_usd, o.discount_usd, o.tax_usd, o.total_usd, o.notes, o.created_at, o.updated_at`

func (s *Store) OrdersByCustomer(ctx context.Context, customerID int64, limit int) ([]core.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordersByCustomer(ctx, s.db, customerID, limit)
}

func (t *txStore) OrdersByCustomer(ctx context.Context, customerID int64, limit int) ([]core.Order, error) {
	return ordersByCustomer(ctx, t.h, customerID, limit)
}

func ordersByCustomer(ctx context.Context, h dbtx, customerID int64, limit int) ([]core.Order, error) {
	rows, err := h.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE customer_id = ? ORDER BY created_at DESC LIMIT ?",
		customerID, limit)
	if err != nil {
		return nil, core.TransportErrorf("select orders", err)
	}
	defer rows.Close()

	var orders []core.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) InsertPayment(ctx context.Context, p core.Payment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPayment(ctx, s.db, p)
}

func (t *txStore) InsertPayment(ctx context.Context, p core.Payment) (int64, error) {
	return insertPayment(ctx, t.h, p)
}

func insertPayment(ctx context.Context, h dbtx, p core.Payment) (int64, error) {
	res, err := h.ExecContext(ctx, `
		INSERT INTO payments
		(order_id, provider, provider_payment_id, status, amount_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.OrderID,
		p.Provider,
		nullString(p.ProviderPaymentID),
		string(p.Status),
		p.Amount.String(),
		fmtTime(time.Now()),
	)
	if err != nil {
		return 0, core.TransportErrorf("insert payments", err)
	}
	return lastID(res, "insert payments")
}

// PaymentForOrder returns nil unless the payment exists AND belongs to
// the order. The refund linkage invariant rides on this.
func (s *Store) PaymentForOrder(ctx context.Context, paymentID, orderID int64) (*core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentForOrder(ctx, s.db, paymentID, orderID)
}

func (t *txStore) PaymentForOrder(ctx context.Context, paymentID, orderID int64) (*core.Payment, error) {
	return paymentForOrder(ctx, t.h, paymentID, orderID)
}

func paymentForOrder(ctx context.Context, h dbtx, paymentID, orderID int64) (*core.Payment, error) {
	rows, err := h.QueryContext(ctx, `
		SELECT payment_id, order_id, provider, provider_payment_id, status, amount_usd, created_at
		FROM payments WHERE payment_id = ? AND order_id = ?`, paymentID, orderID)
	if err != nil {
		return nil, core.TransportErrorf("select payments", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanPayment(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) PaymentsByOrder(ctx context.Context, orderID int64) ([]core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentsByOrder(ctx, s.db, orderID)
}

func (t *txStore) PaymentsByOrder(ctx context.Context, orderID int64) ([]core.Payment, error) {
	return paymentsByOrder(ctx, t.h, orderID)
}

func paymentsByOrder(ctx context.Context, h dbtx, orderID int64) ([]core.Payment, error) {
	rows, err := h.QueryContext(ctx, `
		SELECT payment_id, order_id, provider, provider_payment_id, status, amount_usd, created_at
		FROM payments WHERE order_id = ? ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, core.TransportErrorf("select payments", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(rows *sql.Rows) (core.Payment, error) {
	var (
		p                 core.Payment
		providerPaymentID sql.NullString
		status            string
		amount, createdAt string
	)
	err := rows.Scan(&p.ID, &p.OrderID, &p.Provider, &providerPaymentID,
		&status, &amount, &createdAt)
	if err != nil {
		return p, core.TransportErrorf("scan payments", err)
	}

	if p.Status, err = core.ParseStoredPaymentStatus(status); err != nil {
		return p, err
	}
	if p.Amount, err = parseMoney(amount); err != nil {
		return p, err
	}
	p.ProviderPaymentID = providerPaymentID.String
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// =============================================================================
// REFUNDS
// =============================================================================

func (s *Store) InsertRefund(ctx context.Context, r core.Refund) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRefund(ctx, s.db, r)
}

func (t *txStore) InsertRefund(ctx context.Context, r core.Refund) (int64, error) {
	return insertRefund(ctx, t.h, r)
}

func insertRefund(ctx context.Context, h dbtx, r core.Refund) (int64, error) {
	res, err := h.ExecContext(ctx, `
		INSERT INTO refunds
		(payment_id, order_id, status, reason, amount_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullInt64(r.PaymentID),
		r.OrderID,
		r.Status,
		nullString(r.Reason),
		r.Amount.String(),
		fmtTime(time.Now()),
	)
	if err != nil {
		return 0, core.TransportErrorf("insert refunds", err)
	}
	return lastID(res, "insert refunds")
}

func (s *Store) RefundsByOrder(ctx context.Context, orderID int64) ([]core.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return refundsByOrder(ctx, s.db, orderID)
}

func (t *txStore) RefundsByOrder(ctx context.Context, orderID int64) ([]core.Refund, error) {
	return refundsByOrder(ctx, t.h, orderID)
}

func refundsByOrder(ctx context.Context, h dbtx, orderID int64) ([]core.Refund, error) {
	rows, err := h.QueryContext(ctx, `
		SELECT refund_id, payment_id, order_id, status, reason, amount_usd, created_at
		FROM refunds WHERE order_id = ? ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, core.TransportErrorf("select refunds", err)
	}
	defer rows.Close()

	var refunds []core.Refund
	for rows.Next() {
		var (
			r                 core.Refund
			paymentID         sql.NullInt64
			reason            sql.NullString
			amount, createdAt string
		)
		if err := rows.Scan(&r.ID, &paymentID, &r.OrderID, &r.Status,
			&reason, &amount, &createdAt); err != nil {
			return nil, core.TransportErrorf("scan refunds", err)
		}
		r.PaymentID = int64Ptr(paymentID)
		r.Reason = reason.String
		if r.Amount, err = parseMoney(amount); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		refunds = append(refunds, r)
	}
	return refunds, rows.Err()
}

func isCheckConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
