// Package procurement implements the purchase order lifecycle: suppliers,
// LPO creation and approval, goods receipts and partial-fulfilment
// reconciliation, and the per-year sequence counters behind document numbers.
package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sacsol/sacsol-api/internal/shared"
)

// Purchase order lifecycle statuses.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusSubmitted         Status = "submitted"
	StatusApproved          Status = "approved"
	StatusPartiallyReceived Status = "partially_received"
	StatusFulfilled         Status = "fulfilled"
	StatusCancelled         Status = "cancelled"
)

// Sequence counter types. Order numbers and supplier codes increment
// independently per calendar year.
const (
	CounterLPO      = "lpo"
	CounterSupplier = "supplier"
)

var (
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = fmt.Errorf("procurement: %w", shared.ErrInvalidState)
	// ErrNotFound indicates a record is missing.
	ErrNotFound = fmt.Errorf("procurement: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("procurement: %w", shared.ErrValidation)
	// ErrDuplicate indicates a duplicate supplier.
	ErrDuplicate = fmt.Errorf("procurement: %w", shared.ErrDuplicate)
	// ErrForbidden indicates the caller may not perform the action.
	ErrForbidden = fmt.Errorf("procurement: %w", shared.ErrForbidden)
)

// Supplier is a vendor identity record. The code is immutable once assigned.
type Supplier struct {
	ID            int64
	Code          string
	Name          string
	Email         string
	Phone         string
	Address       string
	RCNumber      string
	TaxID         string
	ContactPerson string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LPO is the purchase order aggregate.
type LPO struct {
	ID                   int64
	Number               string
	SupplierID           int64
	Status               Status
	Currency             string
	DeliveryAddress      string
	ExpectedDeliveryDate time.Time
	PaymentTerms         string
	Subtotal             decimal.Decimal
	TaxAmount            decimal.Decimal
	DiscountAmount       decimal.Decimal
	GrandTotal           decimal.Decimal
	CreatedBy            int64
	SubmittedBy          int64
	ApprovedBy           int64
	Deleted              bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
	SubmittedAt          time.Time
	ApprovedAt           time.Time
}

// LPOItem is a single order line.
type LPOItem struct {
	ID              int64
	LPOID           int64
	InventoryItemID uuid.UUID
	Description     string
	Qty             decimal.Decimal
	QtyReceived     decimal.Decimal
	UnitPrice       decimal.Decimal
	LineTotal       decimal.Decimal
}

// Remaining returns the quantity still outstanding on the line.
func (i LPOItem) Remaining() decimal.Decimal {
	return i.Qty.Sub(i.QtyReceived)
}

// GoodsReceipt records one delivery against an order.
type GoodsReceipt struct {
	ID         int64
	LPOID      int64
	ReceivedBy int64
	ReceivedAt time.Time
	Reference  string
	Note       string
}

// GoodsReceiptItem records the quantity received per order line.
type GoodsReceiptItem struct {
	ID          int64
	GRNID       int64
	LPOItemID   int64
	QtyReceived decimal.Decimal
}

// IsEditable reports whether line items may still be replaced.
func (o *LPO) IsEditable() bool {
	return o.Status == StatusDraft || o.Status == StatusSubmitted
}

// CanSubmit checks the submit transition guard.
func (o *LPO) CanSubmit() error {
	if o.Status != StatusDraft {
		return fmt.Errorf("%w: Only draft LPO can be submitted.", ErrInvalidState)
	}
	return nil
}

// CanApprove checks the approve transition guard.
func (o *LPO) CanApprove() error {
	if o.Status != StatusSubmitted {
		return fmt.Errorf("%w: Only submitted LPO can be approved.", ErrInvalidState)
	}
	return nil
}

// CanCancel checks the cancel transition guard. Cancellation is reachable
// from any non-terminal state.
func (o *LPO) CanCancel() error {
	if o.Status == StatusFulfilled || o.Status == StatusCancelled {
		return fmt.Errorf("%w: Cannot cancel a fulfilled or already cancelled LPO.", ErrInvalidState)
	}
	return nil
}

// CanReceive checks the goods receipt guard.
func (o *LPO) CanReceive() error {
	if o.Status != StatusApproved && o.Status != StatusPartiallyReceived {
		return fmt.Errorf("%w: Only approved or partially received LPO can receive goods.", ErrInvalidState)
	}
	return nil
}

// RecomputeTotals recalculates the subtotal and grand total from the given
// line items. Tax and discount amounts are taken as already set on the order.
func (o *LPO) RecomputeTotals(items []LPOItem) {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	o.Subtotal = subtotal
	o.GrandTotal = subtotal.Add(o.TaxAmount).Sub(o.DiscountAmount)
}

// RefreshReceiveStatus updates the status based on received quantities
// across all line items. An order with nothing received keeps its status.
func (o *LPO) RefreshReceiveStatus(items []LPOItem) {
	ordered := decimal.Zero
	received := decimal.Zero
	for _, item := range items {
		ordered = ordered.Add(item.Qty)
		received = received.Add(item.QtyReceived)
	}
	if received.IsZero() {
		return
	}
	if received.GreaterThanOrEqual(ordered) {
		o.Status = StatusFulfilled
		return
	}
	o.Status = StatusPartiallyReceived
}

// FormatReference renders a document number as {PREFIX}-{YEAR}-{counter:06d}.
func FormatReference(prefix string, year int, counter int64) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, counter)
}
