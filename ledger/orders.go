/*
Package ledger maintains the order ledger and its money trail.

PURPOSE:
  Orders carry running totals that must satisfy, after every mutation:

      total = subtotal - discount + tax

  Line items are immutable once written; the order's subtotal and total
  are refreshed in the same transaction that adds the item, so two
  concurrent additions cannot each read the same starting subtotal and
  lose one line's contribution.

ORDER ITEMS:
  Every line references exactly one of a product, a ticket type, or a
  party booking, selected by its item type. The reference id lands in
  the matching slot; the other two stay null.

SEE ALSO:
  - payments.go: The append-only payment and refund trail
  - queries.go: Search and detail read models
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/funzone/venue-engine/core"
)

// Ledger coordinates order mutations against the record store.
type Ledger struct {
	store core.TxStore
}

func NewLedger(store core.TxStore) *Ledger {
	return &Ledger{store: store}
}

// =============================================================================
// LINE-ITEM INPUT
// =============================================================================

// ItemInput is the caller's description of one order line. ReferenceID
// points at a product, ticket type, or party booking depending on ItemType.
type ItemInput struct {
	ItemType     string
	ReferenceID  int64
	Quantity     int
	UnitPrice    decimal.Decimal
	NameOverride string
}

// validate normalizes the item type and checks quantity and price.
func (in ItemInput) validate() (core.ItemType, error) {
	itemType, err := core.NormalizeItemType(in.ItemType)
	if err != nil {
		return "", err
	}
	if in.Quantity <= 0 {
		return "", core.Violationf(core.KindValidation, "Quantity must be greater than zero.")
	}
	if in.UnitPrice.IsNegative() {
		return "", core.Violationf(core.KindValidation, "Unit price must be zero or greater.")
	}
	return itemType, nil
}

// item builds the order line with its reference id in the slot matching
// the item type.
func (in ItemInput) item(orderID int64, itemType core.ItemType, lineTotal decimal.Decimal) core.OrderItem {
	item := core.OrderItem{
		OrderID:      orderID,
		ItemType:     itemType,
		NameOverride: strings.TrimSpace(in.NameOverride),
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		LineTotal:    lineTotal,
	}
	ref := in.ReferenceID
	switch itemType {
	case core.ItemProduct:
		item.ProductID = &ref
	case core.ItemTicket:
		item.TicketTypeID = &ref
	case core.ItemParty:
		item.BookingID = &ref
	}
	return item
}

// =============================================================================
// CREATE
// =============================================================================

// CreateOrderRequest opens an order around its first line item.
type CreateOrderRequest struct {
	CustomerID int64
	LocationID *int64
	Note       string
	Item       ItemInput
}

// CreateOrder creates a Pending order seeded with one line item. The
// order type follows the item type (Product opens Retail, Ticket opens
// Admission, Party opens Party).
func (l *Ledger) CreateOrder(ctx context.Context, req CreateOrderRequest) (*core.Order, error) {
	itemType, err := req.Item.validate()
	if err != nil {
		return nil, err
	}
	lineTotal := core.LineTotal(req.Item.Quantity, req.Item.UnitPrice)

	var order *core.Order
	err = l.store.WithTx(ctx, func(tx core.Store) error {
		customer, err := tx.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return core.Violationf(core.KindNotFound,
				"Customer not found. Please create a customer profile before creating an order.")
		}

		orderID, err := tx.InsertOrder(ctx, core.Order{
			CustomerID: req.CustomerID,
			LocationID: req.LocationID,
			OrderType:  core.OrderTypeFor(itemType),
			Status:     core.OrderPending,
			Subtotal:   lineTotal,
			Discount:   decimal.Zero,
			Tax:        decimal.Zero,
			Total:      lineTotal,
			Notes:      strings.TrimSpace(req.Note),
		})
		if err != nil {
			return err
		}

		if _, err := tx.InsertOrderItem(ctx, req.Item.item(orderID, itemType, lineTotal)); err != nil {
			return err
		}

		order, err = tx.GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// =============================================================================
// ADD ITEM
// =============================================================================

// AddItem appends a line to an existing order and refreshes the running
// totals in the same transaction.
func (l *Ledger) AddItem(ctx context.Context, orderID int64, in ItemInput) (*core.Order, error) {
	itemType, err := in.validate()
	if err != nil {
		return nil, err
	}
	lineTotal := core.LineTotal(in.Quantity, in.UnitPrice)

	var order *core.Order
	err = l.store.WithTx(ctx, func(tx core.Store) error {
		existing, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if existing == nil {
			return core.Violationf(core.KindNotFound, "Order not found.")
		}

		if _, err := tx.InsertOrderItem(ctx, in.item(orderID, itemType, lineTotal)); err != nil {
			return err
		}

		subtotal := core.Round2(existing.Subtotal.Add(lineTotal))
		total := core.OrderTotal(subtotal, existing.Discount, existing.Tax)
		if err := tx.UpdateOrderTotals(ctx, orderID, subtotal, total, time.Now()); err != nil {
			return err
		}

		order, err = tx.GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// =============================================================================
// STATUS
// =============================================================================

// UpdateStatus moves the order to a new status, optionally appending a
// timestamped note to the order's notes trail. Notes are never replaced.
func (l *Ledger) UpdateStatus(ctx context.Context, orderID int64, newStatus, note string) (*core.Order, error) {
	status, err := core.NormalizeOrderStatus(newStatus)
	if err != nil {
		return nil, err
	}

	var order *core.Order
	err = l.store.WithTx(ctx, func(tx core.Store) error {
		existing, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if existing == nil {
			return core.Violationf(core.KindNotFound, "Order not found.")
		}

		now := time.Now()
		notes := existing.Notes
		if trimmed := strings.TrimSpace(note); trimmed != "" {
			notes += fmt.Sprintf("\n[%s] %s", now.UTC().Format("2006-01-02 15:04"), trimmed)
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, status, notes, now); err != nil {
			return err
		}

		order, err = tx.GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
