package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sacsol/sacsol-api/internal/observability"
	"github.com/sacsol/sacsol-api/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetLPO(ctx context.Context, id int64) (LPO, []LPOItem, error)
	ListLPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]LPO, int, error)
	GetGRN(ctx context.Context, id int64) (GoodsReceipt, []GoodsReceiptItem, error)
	ListGRNs(ctx context.Context, lpoID int64) ([]GoodsReceipt, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	ListSuppliers(ctx context.Context, limit, offset int, search string) ([]Supplier, int, error)
	HasSupplierConflict(ctx context.Context, s Supplier) (bool, error)
}

// ApprovalHook runs after an order is approved and committed. Hook failures
// never roll back the approval.
type ApprovalHook interface {
	AfterApprove(ctx context.Context, order LPO, items []LPOItem)
}

// Service orchestrates the purchase order lifecycle.
type Service struct {
	repo           RepositoryPort
	policy         Policy
	metrics        *observability.Metrics
	logger         *slog.Logger
	hooks          []ApprovalHook
	lpoPrefix      string
	supplierPrefix string
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, policy Policy, metrics *observability.Metrics, logger *slog.Logger, lpoPrefix, supplierPrefix string) *Service {
	if policy == nil {
		policy = NewRolePolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:           repo,
		policy:         policy,
		metrics:        metrics,
		logger:         logger,
		lpoPrefix:      lpoPrefix,
		supplierPrefix: supplierPrefix,
	}
}

// RegisterApprovalHook appends a post-approval side effect.
func (s *Service) RegisterApprovalHook(hook ApprovalHook) {
	if hook != nil {
		s.hooks = append(s.hooks, hook)
	}
}

// LPOItemInput describes one order line in a create or update payload.
type LPOItemInput struct {
	InventoryItemID uuid.UUID
	Description     string
	Qty             decimal.Decimal
	UnitPrice       decimal.Decimal
}

// CreateLPOInput describes order creation.
type CreateLPOInput struct {
	SupplierID           int64
	Currency             string
	DeliveryAddress      string
	ExpectedDeliveryDate time.Time
	PaymentTerms         string
	TaxAmount            *decimal.Decimal
	TaxRate              *decimal.Decimal
	DiscountAmount       decimal.Decimal
	Items                []LPOItemInput
}

// UpdateLPOInput mirrors CreateLPOInput for full replacement updates.
type UpdateLPOInput = CreateLPOInput

// ReceiveLineInput is one received line in a goods receipt.
type ReceiveLineInput struct {
	LPOItemID int64
	Qty       decimal.Decimal
}

// ReceiveInput describes a goods receipt posting.
type ReceiveInput struct {
	Reference string
	Note      string
	Lines     []ReceiveLineInput
}

func buildItems(lpoID int64, inputs []LPOItemInput) ([]LPOItem, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", ErrValidation)
	}
	items := make([]LPOItem, 0, len(inputs))
	for _, in := range inputs {
		if in.Qty.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
		}
		if in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
		}
		if in.InventoryItemID == uuid.Nil && strings.TrimSpace(in.Description) == "" {
			return nil, fmt.Errorf("%w: description is required without an inventory reference", ErrValidation)
		}
		items = append(items, LPOItem{
			LPOID:           lpoID,
			InventoryItemID: in.InventoryItemID,
			Description:     strings.TrimSpace(in.Description),
			Qty:             in.Qty,
			QtyReceived:     decimal.Zero,
			UnitPrice:       in.UnitPrice,
			LineTotal:       in.Qty.Mul(in.UnitPrice).Round(2),
		})
	}
	return items, nil
}

// resolveTax returns the tax amount either taken directly or derived from a
// percentage rate applied to the subtotal.
func resolveTax(subtotal decimal.Decimal, amount, rate *decimal.Decimal) (decimal.Decimal, error) {
	if rate != nil {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return decimal.Zero, fmt.Errorf("%w: tax rate must be between 0 and 100", ErrValidation)
		}
		return subtotal.Mul(*rate).Div(decimal.NewFromInt(100)).Round(2), nil
	}
	if amount != nil {
		if amount.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: tax amount cannot be negative", ErrValidation)
		}
		return amount.Round(2), nil
	}
	return decimal.Zero, nil
}

func applyTotals(o *LPO, items []LPOItem, input CreateLPOInput) error {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	tax, err := resolveTax(subtotal, input.TaxAmount, input.TaxRate)
	if err != nil {
		return err
	}
	if input.DiscountAmount.IsNegative() {
		return fmt.Errorf("%w: discount cannot be negative", ErrValidation)
	}
	o.TaxAmount = tax
	o.DiscountAmount = input.DiscountAmount.Round(2)
	o.RecomputeTotals(items)
	return nil
}

// CreateLPO creates a draft order, allocating its number atomically with the
// insert so a failed creation never burns a visible gap.
func (s *Service) CreateLPO(ctx context.Context, identity *shared.Identity, input CreateLPOInput) (LPO, []LPOItem, error) {
	if identity == nil {
		return LPO{}, nil, ErrForbidden
	}
	if _, err := s.repo.GetSupplier(ctx, input.SupplierID); err != nil {
		return LPO{}, nil, fmt.Errorf("%w: supplier not found", ErrValidation)
	}
	items, err := buildItems(0, input.Items)
	if err != nil {
		return LPO{}, nil, err
	}

	order := LPO{
		SupplierID:           input.SupplierID,
		Status:               StatusDraft,
		Currency:             defaultString(input.Currency, "NGN"),
		DeliveryAddress:      input.DeliveryAddress,
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
		PaymentTerms:         input.PaymentTerms,
		CreatedBy:            identity.UserID,
	}
	if err := applyTotals(&order, items, input); err != nil {
		return LPO{}, nil, err
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		counter, err := tx.AllocateSequence(ctx, CounterLPO, now.Year())
		if err != nil {
			return err
		}
		order.Number = FormatReference(s.lpoPrefix, now.Year(), counter)
		id, err := tx.CreateLPO(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		for i := range items {
			items[i].LPOID = id
			itemID, err := tx.InsertLPOItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return tx.InsertAudit(ctx, shared.AuditEntry{
			ActorID: identity.UserID,
			Verb:    shared.AuditVerbCreated,
			LPOID:   id,
			Payload: map[string]any{"number": order.Number, "grand_total": order.GrandTotal.String()},
		})
	})
	if err != nil {
		return LPO{}, nil, err
	}
	s.logger.Info("lpo created", slog.String("number", order.Number), slog.Int64("id", order.ID))
	return order, items, nil
}

// UpdateLPO replaces the order header fields and all line items. Allowed
// only while the order is editable.
func (s *Service) UpdateLPO(ctx context.Context, identity *shared.Identity, id int64, input UpdateLPOInput) (LPO, []LPOItem, error) {
	items, err := buildItems(id, input.Items)
	if err != nil {
		return LPO{}, nil, err
	}
	var order LPO
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err = tx.GetLPOForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanEdit(identity, &order) {
			return ErrForbidden
		}
		if !order.IsEditable() {
			return fmt.Errorf("%w: LPO is not editable.", ErrInvalidState)
		}
		if input.SupplierID != 0 {
			order.SupplierID = input.SupplierID
		}
		order.Currency = defaultString(input.Currency, order.Currency)
		order.DeliveryAddress = input.DeliveryAddress
		order.ExpectedDeliveryDate = input.ExpectedDeliveryDate
		order.PaymentTerms = input.PaymentTerms
		if err := applyTotals(&order, items, input); err != nil {
			return err
		}
		if err := tx.DeleteLPOItems(ctx, id); err != nil {
			return err
		}
		for i := range items {
			itemID, err := tx.InsertLPOItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		if err := tx.UpdateLPOHeader(ctx, order); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, shared.AuditEntry{
			ActorID: identity.UserID,
			Verb:    shared.AuditVerbUpdated,
			LPOID:   id,
			Payload: map[string]any{"grand_total": order.GrandTotal.String()},
		})
	})
	if err != nil {
		return LPO{}, nil, err
	}
	return order, items, nil
}

// SubmitLPO moves a draft order to submitted.
func (s *Service) SubmitLPO(ctx context.Context, identity *shared.Identity, id int64) (LPO, error) {
	var order LPO
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetLPOForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanSubmit(identity, &order) {
			return ErrForbidden
		}
		if err := order.CanSubmit(); err != nil {
			return err
		}
		items, err := tx.LockLPOItems(ctx, id)
		if err != nil {
			return err
		}
		if len(items) == 0 || order.GrandTotal.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: Cannot submit without items and totals.", ErrInvalidState)
		}
		order.Status = StatusSubmitted
		order.SubmittedBy = identity.UserID
		order.SubmittedAt = time.Now().UTC()
		if err := tx.UpdateLPOStatus(ctx, order); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, shared.AuditEntry{
			ActorID: identity.UserID,
			Verb:    shared.AuditVerbSubmitted,
			LPOID:   id,
		})
	})
	if err != nil {
		return LPO{}, err
	}
	s.metrics.ObserveTransition(string(StatusSubmitted))
	return order, nil
}

// ApproveLPO moves a submitted order to approved and fires post-approval
// hooks after the transaction commits.
func (s *Service) ApproveLPO(ctx context.Context, identity *shared.Identity, id int64) (LPO, error) {
	var order LPO
	var items []LPOItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetLPOForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanApprove(identity, &order) {
			return ErrForbidden
		}
		if err := order.CanApprove(); err != nil {
			return err
		}
		items, err = tx.LockLPOItems(ctx, id)
		if err != nil {
			return err
		}
		// The order stays editable while submitted, so the totals must be
		// re-checked here, not just at submit time.
		if len(items) == 0 || order.GrandTotal.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: Cannot approve an empty LPO.", ErrInvalidState)
		}
		order.Status = StatusApproved
		order.ApprovedBy = identity.UserID
		order.ApprovedAt = time.Now().UTC()
		if err := tx.UpdateLPOStatus(ctx, order); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, shared.AuditEntry{
			ActorID: identity.UserID,
			Verb:    shared.AuditVerbApproved,
			LPOID:   id,
		})
	})
	if err != nil {
		return LPO{}, err
	}
	s.metrics.ObserveTransition(string(StatusApproved))
	for _, hook := range s.hooks {
		hook.AfterApprove(ctx, order, items)
	}
	return order, nil
}

// CancelLPO cancels any non-terminal order.
func (s *Service) CancelLPO(ctx context.Context, identity *shared.Identity, id int64) (LPO, error) {
	var order LPO
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetLPOForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanCancel(identity, &order) {
			return ErrForbidden
		}
		if err := order.CanCancel(); err != nil {
			return err
		}
		order.Status = StatusCancelled
		if err := tx.UpdateLPOStatus(ctx, order); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, shared.AuditEntry{
			ActorID: identity.UserID,
			Verb:    shared.AuditVerbCancelled,
			LPOID:   id,
		})
	})
	if err != nil {
		return LPO{}, err
	}
	s.metrics.ObserveTransition(string(StatusCancelled))
	return order, nil
}

// DeleteLPO soft-deletes an editable order. Approved and later orders are
// immutable history and can only be cancelled.
func (s *Service) DeleteLPO(ctx context.Context, identity *shared.Identity, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetLPOForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanEdit(identity, &order) {
			return ErrForbidden
		}
		if !order.IsEditable() {
			return fmt.Errorf("%w: LPO is not editable.", ErrInvalidState)
		}
		if err := tx.SetLPODeleted(ctx, id); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, shared.AuditEntry{
			ActorID: identity.UserID,
			Verb:    shared.AuditVerbDeleted,
			LPOID:   id,
		})
	})
}

// Receive applies a goods receipt against an approved or partially received
// order. The whole receipt is all-or-nothing: any line exceeding its
// remaining quantity aborts everything.
func (s *Service) Receive(ctx context.Context, identity *shared.Identity, lpoID int64, input ReceiveInput) (GoodsReceipt, error) {
	if len(input.Lines) == 0 {
		return GoodsReceipt{}, fmt.Errorf("%w: at least one receipt line is required", ErrValidation)
	}
	var grn GoodsReceipt
	var finalStatus Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetLPOForUpdate(ctx, lpoID)
		if err != nil {
			return err
		}
		if !s.policy.CanReceive(identity, &order) {
			return ErrForbidden
		}
		if err := order.CanReceive(); err != nil {
			return err
		}

		items, err := tx.LockLPOItems(ctx, lpoID)
		if err != nil {
			return err
		}
		byID := make(map[int64]*LPOItem, len(items))
		for i := range items {
			byID[items[i].ID] = &items[i]
		}

		// Validate every line against the locked rows before writing
		// anything. Lines may repeat an item, so the remaining check runs
		// against the quantity already claimed by earlier lines.
		claimed := make(map[int64]decimal.Decimal, len(input.Lines))
		for _, line := range input.Lines {
			item, ok := byID[line.LPOItemID]
			if !ok {
				return fmt.Errorf("%w: line item does not belong to this LPO", ErrValidation)
			}
			if line.Qty.LessThanOrEqual(decimal.Zero) {
				return fmt.Errorf("%w: received quantity must be greater than zero", ErrValidation)
			}
			remaining := item.Remaining().Sub(claimed[item.ID])
			if line.Qty.GreaterThan(remaining) {
				return fmt.Errorf("%w: Qty exceeds remaining (%s).", ErrValidation, remaining.String())
			}
			claimed[item.ID] = claimed[item.ID].Add(line.Qty)
		}

		grn = GoodsReceipt{
			LPOID:      lpoID,
			ReceivedBy: identity.UserID,
			ReceivedAt: time.Now().UTC(),
			Reference:  input.Reference,
			Note:       input.Note,
		}
		grnID, err := tx.CreateGRN(ctx, grn)
		if err != nil {
			return err
		}
		grn.ID = grnID

		for _, line := range input.Lines {
			item := byID[line.LPOItemID]
			if err := tx.AddItemReceived(ctx, item.ID, line.Qty); err != nil {
				return err
			}
			item.QtyReceived = item.QtyReceived.Add(line.Qty)
			if err := tx.InsertGRNItem(ctx, GoodsReceiptItem{GRNID: grnID, LPOItemID: item.ID, QtyReceived: line.Qty}); err != nil {
				return err
			}
			if item.InventoryItemID != uuid.Nil {
				if err := tx.IncreaseStock(ctx, item.InventoryItemID, line.Qty); err != nil {
					return err
				}
			}
		}

		order.RefreshReceiveStatus(items)
		finalStatus = order.Status
		if err := tx.UpdateLPOStatus(ctx, order); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, shared.AuditEntry{
			ActorID: identity.UserID,
			Verb:    shared.AuditVerbReceived,
			LPOID:   lpoID,
			GRNID:   grnID,
			Payload: map[string]any{"reference": input.Reference, "status": string(order.Status)},
		})
	})
	if err != nil {
		return GoodsReceipt{}, err
	}
	s.metrics.ObserveTransition(string(finalStatus))
	s.logger.Info("goods receipt posted", slog.Int64("lpo_id", lpoID), slog.Int64("grn_id", grn.ID), slog.String("status", string(finalStatus)))
	return grn, nil
}

// GetLPO returns the order with its items.
func (s *Service) GetLPO(ctx context.Context, id int64) (LPO, []LPOItem, error) {
	return s.repo.GetLPO(ctx, id)
}

// ListLPOs lists orders.
func (s *Service) ListLPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]LPO, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListLPOs(ctx, limit, offset, filters)
}

// GetGRN returns one goods receipt.
func (s *Service) GetGRN(ctx context.Context, id int64) (GoodsReceipt, []GoodsReceiptItem, error) {
	return s.repo.GetGRN(ctx, id)
}

// ListGRNs lists receipts for an order.
func (s *Service) ListGRNs(ctx context.Context, lpoID int64) ([]GoodsReceipt, error) {
	return s.repo.ListGRNs(ctx, lpoID)
}

// SupplierInput describes supplier create/update payloads.
type SupplierInput struct {
	Name          string
	Email         string
	Phone         string
	Address       string
	RCNumber      string
	TaxID         string
	ContactPerson string
}

// CreateSupplier validates duplicate rules, allocates the supplier code and
// stores the record.
func (s *Service) CreateSupplier(ctx context.Context, input SupplierInput) (Supplier, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Supplier{}, fmt.Errorf("%w: supplier name is required", ErrValidation)
	}
	supplier := Supplier{
		Name:          strings.TrimSpace(input.Name),
		Email:         strings.TrimSpace(input.Email),
		Phone:         strings.TrimSpace(input.Phone),
		Address:       input.Address,
		RCNumber:      strings.TrimSpace(input.RCNumber),
		TaxID:         strings.TrimSpace(input.TaxID),
		ContactPerson: input.ContactPerson,
		IsActive:      true,
	}
	conflict, err := s.repo.HasSupplierConflict(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	if conflict {
		return Supplier{}, fmt.Errorf("%w: a matching supplier already exists", ErrDuplicate)
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		counter, err := tx.AllocateSequence(ctx, CounterSupplier, now.Year())
		if err != nil {
			return err
		}
		supplier.Code = FormatReference(s.supplierPrefix, now.Year(), counter)
		id, err := tx.CreateSupplier(ctx, supplier)
		if err != nil {
			return err
		}
		supplier.ID = id
		return nil
	})
	if err != nil {
		return Supplier{}, err
	}
	return supplier, nil
}

// UpdateSupplier updates supplier fields. The code never changes.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (Supplier, error) {
	supplier, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	if strings.TrimSpace(input.Name) != "" {
		supplier.Name = strings.TrimSpace(input.Name)
	}
	supplier.Email = strings.TrimSpace(input.Email)
	supplier.Phone = strings.TrimSpace(input.Phone)
	supplier.Address = input.Address
	supplier.RCNumber = strings.TrimSpace(input.RCNumber)
	supplier.TaxID = strings.TrimSpace(input.TaxID)
	supplier.ContactPerson = input.ContactPerson

	conflict, err := s.repo.HasSupplierConflict(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	if conflict {
		return Supplier{}, fmt.Errorf("%w: a matching supplier already exists", ErrDuplicate)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateSupplier(ctx, supplier)
	})
	if err != nil {
		return Supplier{}, err
	}
	return supplier, nil
}

// DeactivateSupplier flags a supplier inactive.
func (s *Service) DeactivateSupplier(ctx context.Context, id int64) error {
	supplier, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return err
	}
	supplier.IsActive = false
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateSupplier(ctx, supplier)
	})
}

// GetSupplier fetches one supplier.
func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

// ListSuppliers lists suppliers.
func (s *Service) ListSuppliers(ctx context.Context, limit, offset int, search string) ([]Supplier, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListSuppliers(ctx, limit, offset, search)
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
