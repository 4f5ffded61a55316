/*
payments.go - Append-only payment and refund trail

PURPOSE:
  Payments and refunds are recorded, never updated or deleted. A refund
  may link to a payment, and when it does the payment must belong to the
  same order - the linkage check and the insert run in one transaction.

DEFAULTS:
  Payment provider defaults to "Manual", payment status to Captured.
  Refunds are always created Pending; settlement happens externally.
*/
package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/funzone/venue-engine/core"
)

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentRequest records one payment attempt against an order.
type PaymentRequest struct {
	OrderID           int64
	Provider          string
	ProviderPaymentID string
	Status            string
	Amount            decimal.Decimal
}

// RecordPayment validates and appends a payment row. The amount is not
// checked against the order total; over- and under-payments are legal.
func (l *Ledger) RecordPayment(ctx context.Context, req PaymentRequest) (*core.Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, core.Violationf(core.KindValidation, "Amount must be greater than zero.")
	}

	statusInput := req.Status
	if statusInput == "" {
		statusInput = string(core.PaymentCaptured)
	}
	status, err := core.NormalizePaymentStatus(statusInput)
	if err != nil {
		return nil, err
	}

	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = "Manual"
	}

	payment := core.Payment{
		OrderID:           req.OrderID,
		Provider:          provider,
		ProviderPaymentID: strings.TrimSpace(req.ProviderPaymentID),
		Status:            status,
		Amount:            req.Amount,
	}

	err = l.store.WithTx(ctx, func(tx core.Store) error {
		order, err := tx.GetOrder(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return core.Violationf(core.KindNotFound, "Order not found.")
		}

		payment.ID, err = tx.InsertPayment(ctx, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// =============================================================================
// REFUNDS
// =============================================================================

// RefundRequest records one refund against an order. PaymentID is
// optional; when set the payment must belong to the same order.
type RefundRequest struct {
	OrderID   int64
	PaymentID *int64
	Amount    decimal.Decimal
	Reason    string
}

// CreateRefund validates the linkage and appends a Pending refund row.
// The order itself is not mutated; status changes are a separate call.
func (l *Ledger) CreateRefund(ctx context.Context, req RefundRequest) (*core.Refund, error) {
	if !req.Amount.IsPositive() {
		return nil, core.Violationf(core.KindValidation, "Refund amount must be greater than zero.")
	}

	refund := core.Refund{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Status:    core.RefundPending,
		Reason:    strings.TrimSpace(req.Reason),
		Amount:    req.Amount,
	}

	err := l.store.WithTx(ctx, func(tx core.Store) error {
		order, err := tx.GetOrder(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return core.Violationf(core.KindNotFound, "Order not found.")
		}

		if req.PaymentID != nil {
			payment, err := tx.PaymentForOrder(ctx, *req.PaymentID, req.OrderID)
			if err != nil {
				return err
			}
			if payment == nil {
				return core.Violationf(core.KindNotFound, "Payment not found for this order.")
			}
		}

		refund.ID, err = tx.InsertRefund(ctx, refund)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &refund, nil
}
