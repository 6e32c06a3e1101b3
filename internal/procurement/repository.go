package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sacsol/sacsol-api/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListFilters narrows order and receipt listings.
type ListFilters struct {
	Status     string
	SupplierID int64
	Search     string
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	AllocateSequence(ctx context.Context, counterType string, year int) (int64, error)
	GetLPOForUpdate(ctx context.Context, id int64) (LPO, error)
	CreateLPO(ctx context.Context, o LPO) (int64, error)
	UpdateLPOHeader(ctx context.Context, o LPO) error
	UpdateLPOStatus(ctx context.Context, o LPO) error
	SetLPODeleted(ctx context.Context, id int64) error
	InsertLPOItem(ctx context.Context, item LPOItem) (int64, error)
	DeleteLPOItems(ctx context.Context, lpoID int64) error
	LockLPOItems(ctx context.Context, lpoID int64) ([]LPOItem, error)
	AddItemReceived(ctx context.Context, itemID int64, qty decimal.Decimal) error
	IncreaseStock(ctx context.Context, entryID uuid.UUID, qty decimal.Decimal) error
	CreateGRN(ctx context.Context, grn GoodsReceipt) (int64, error)
	InsertGRNItem(ctx context.Context, item GoodsReceiptItem) error
	CreateSupplier(ctx context.Context, s Supplier) (int64, error)
	UpdateSupplier(ctx context.Context, s Supplier) error
	InsertAudit(ctx context.Context, entry shared.AuditEntry) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const lpoColumns = `id, lpo_number, supplier_id, status, currency, delivery_address,
	COALESCE(expected_delivery_date, '0001-01-01'::date), payment_terms,
	subtotal, tax_amount, discount_amount, grand_total,
	created_by, COALESCE(submitted_by, 0), COALESCE(approved_by, 0), deleted,
	created_at, updated_at,
	COALESCE(submitted_at, '0001-01-01'::timestamptz), COALESCE(approved_at, '0001-01-01'::timestamptz)`

func scanLPO(row pgx.Row) (LPO, error) {
	var o LPO
	err := row.Scan(&o.ID, &o.Number, &o.SupplierID, &o.Status, &o.Currency, &o.DeliveryAddress,
		&o.ExpectedDeliveryDate, &o.PaymentTerms,
		&o.Subtotal, &o.TaxAmount, &o.DiscountAmount, &o.GrandTotal,
		&o.CreatedBy, &o.SubmittedBy, &o.ApprovedBy, &o.Deleted,
		&o.CreatedAt, &o.UpdatedAt, &o.SubmittedAt, &o.ApprovedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LPO{}, ErrNotFound
		}
		return LPO{}, err
	}
	return o, nil
}

const itemColumns = `id, lpo_id,
	COALESCE(inventory_item_id, '00000000-0000-0000-0000-000000000000'::uuid),
	description, qty, qty_received, unit_price, line_total`

func scanItems(rows pgx.Rows) ([]LPOItem, error) {
	defer rows.Close()
	var items []LPOItem
	for rows.Next() {
		var item LPOItem
		if err := rows.Scan(&item.ID, &item.LPOID, &item.InventoryItemID,
			&item.Description, &item.Qty, &item.QtyReceived, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetLPO returns the order and its line items.
func (r *Repository) GetLPO(ctx context.Context, id int64) (LPO, []LPOItem, error) {
	o, err := scanLPO(r.pool.QueryRow(ctx,
		`SELECT `+lpoColumns+` FROM lpos WHERE id = $1 AND NOT deleted`, id))
	if err != nil {
		return LPO{}, nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM lpo_items WHERE lpo_id = $1 ORDER BY id`, id)
	if err != nil {
		return LPO{}, nil, err
	}
	items, err := scanItems(rows)
	if err != nil {
		return LPO{}, nil, err
	}
	return o, items, nil
}

// ListLPOs returns a page of orders matching the filters.
func (r *Repository) ListLPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]LPO, int, error) {
	where := []string{"NOT deleted"}
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.SupplierID != 0 {
		args = append(args, filters.SupplierID)
		where = append(where, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where = append(where, fmt.Sprintf("lpo_number ILIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lpos WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+lpoColumns+` FROM lpos WHERE `+cond+
			fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []LPO
	for rows.Next() {
		o, err := scanLPO(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// GetGRN returns a goods receipt and its items.
func (r *Repository) GetGRN(ctx context.Context, id int64) (GoodsReceipt, []GoodsReceiptItem, error) {
	var grn GoodsReceipt
	err := r.pool.QueryRow(ctx,
		`SELECT id, lpo_id, received_by, received_at, reference, note FROM goods_receipts WHERE id = $1`, id).
		Scan(&grn.ID, &grn.LPOID, &grn.ReceivedBy, &grn.ReceivedAt, &grn.Reference, &grn.Note)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GoodsReceipt{}, nil, ErrNotFound
		}
		return GoodsReceipt{}, nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, grn_id, lpo_item_id, qty_received FROM goods_receipt_items WHERE grn_id = $1 ORDER BY id`, id)
	if err != nil {
		return GoodsReceipt{}, nil, err
	}
	defer rows.Close()
	var items []GoodsReceiptItem
	for rows.Next() {
		var item GoodsReceiptItem
		if err := rows.Scan(&item.ID, &item.GRNID, &item.LPOItemID, &item.QtyReceived); err != nil {
			return GoodsReceipt{}, nil, err
		}
		items = append(items, item)
	}
	return grn, items, rows.Err()
}

// ListGRNs returns all receipts against an order, newest first.
func (r *Repository) ListGRNs(ctx context.Context, lpoID int64) ([]GoodsReceipt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lpo_id, received_by, received_at, reference, note
		 FROM goods_receipts WHERE lpo_id = $1 ORDER BY id DESC`, lpoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GoodsReceipt
	for rows.Next() {
		var grn GoodsReceipt
		if err := rows.Scan(&grn.ID, &grn.LPOID, &grn.ReceivedBy, &grn.ReceivedAt, &grn.Reference, &grn.Note); err != nil {
			return nil, err
		}
		out = append(out, grn)
	}
	return out, rows.Err()
}

const supplierColumns = `id, supplier_code, name, email, phone, address, rc_number, tax_id, contact_person, is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Email, &s.Phone, &s.Address,
		&s.RCNumber, &s.TaxID, &s.ContactPerson, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

// GetSupplier fetches a supplier by id.
func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
}

// ListSuppliers returns a page of suppliers.
func (r *Repository) ListSuppliers(ctx context.Context, limit, offset int, search string) ([]Supplier, int, error) {
	cond := "TRUE"
	args := []any{}
	if search != "" {
		args = append(args, "%"+search+"%")
		cond = "(name ILIKE $1 OR supplier_code ILIKE $1)"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE `+cond+
			fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// HasSupplierConflict reports whether another active supplier matches the
// duplicate rules: same (name, phone), same (name, email), or an identical
// registration or tax number, all case-insensitive.
func (r *Repository) HasSupplierConflict(ctx context.Context, s Supplier) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM suppliers
		   WHERE id <> $1 AND is_active
		     AND (
		       (LOWER(name) = LOWER($2) AND phone <> '' AND phone = $3)
		       OR (LOWER(name) = LOWER($2) AND email <> '' AND LOWER(email) = LOWER($4))
		       OR (rc_number <> '' AND LOWER(rc_number) = LOWER($5))
		       OR (tax_id <> '' AND LOWER(tax_id) = LOWER($6))
		     )
		 )`,
		s.ID, s.Name, s.Phone, s.Email, s.RCNumber, s.TaxID).Scan(&exists)
	return exists, err
}

// Transactional operations.

// AllocateSequence atomically increments and returns the counter for the
// given type and year. The upsert locks the counter row until commit, so
// concurrent callers serialise and never see the same value.
func (t *txRepo) AllocateSequence(ctx context.Context, counterType string, year int) (int64, error) {
	var counter int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO sequence_counters (counter_type, year, counter)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (counter_type, year)
		 DO UPDATE SET counter = sequence_counters.counter + 1
		 RETURNING counter`,
		counterType, year).Scan(&counter)
	return counter, err
}

// GetLPOForUpdate locks the order row for the rest of the transaction.
func (t *txRepo) GetLPOForUpdate(ctx context.Context, id int64) (LPO, error) {
	return scanLPO(t.tx.QueryRow(ctx,
		`SELECT `+lpoColumns+` FROM lpos WHERE id = $1 AND NOT deleted FOR UPDATE`, id))
}

func (t *txRepo) CreateLPO(ctx context.Context, o LPO) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO lpos (lpo_number, supplier_id, status, currency, delivery_address,
		   expected_delivery_date, payment_terms, subtotal, tax_amount, discount_amount, grand_total, created_by)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, '0001-01-01'::date), $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		o.Number, o.SupplierID, o.Status, o.Currency, o.DeliveryAddress,
		o.ExpectedDeliveryDate, o.PaymentTerms, o.Subtotal, o.TaxAmount, o.DiscountAmount, o.GrandTotal, o.CreatedBy).
		Scan(&id)
	if err != nil && isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	return id, err
}

func (t *txRepo) UpdateLPOHeader(ctx context.Context, o LPO) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE lpos SET supplier_id = $2, currency = $3, delivery_address = $4,
		   expected_delivery_date = NULLIF($5, '0001-01-01'::date), payment_terms = $6,
		   subtotal = $7, tax_amount = $8, discount_amount = $9, grand_total = $10, updated_at = NOW()
		 WHERE id = $1 AND NOT deleted`,
		o.ID, o.SupplierID, o.Currency, o.DeliveryAddress,
		o.ExpectedDeliveryDate, o.PaymentTerms,
		o.Subtotal, o.TaxAmount, o.DiscountAmount, o.GrandTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLPOStatus writes the status and the actor/time stamps for the
// transition that was applied on the aggregate.
func (t *txRepo) UpdateLPOStatus(ctx context.Context, o LPO) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE lpos SET status = $2,
		   submitted_by = NULLIF($3, 0), submitted_at = NULLIF($4, '0001-01-01'::timestamptz),
		   approved_by = NULLIF($5, 0), approved_at = NULLIF($6, '0001-01-01'::timestamptz),
		   updated_at = NOW()
		 WHERE id = $1 AND NOT deleted`,
		o.ID, o.Status, o.SubmittedBy, o.SubmittedAt, o.ApprovedBy, o.ApprovedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetLPODeleted(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE lpos SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) InsertLPOItem(ctx context.Context, item LPOItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO lpo_items (lpo_id, inventory_item_id, description, qty, qty_received, unit_price, line_total)
		 VALUES ($1, NULLIF($2, '00000000-0000-0000-0000-000000000000'::uuid), $3, $4, $5, $6, $7)
		 RETURNING id`,
		item.LPOID, item.InventoryItemID, item.Description, item.Qty, item.QtyReceived, item.UnitPrice, item.LineTotal).
		Scan(&id)
	return id, err
}

func (t *txRepo) DeleteLPOItems(ctx context.Context, lpoID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM lpo_items WHERE lpo_id = $1`, lpoID)
	return err
}

// LockLPOItems reads the order's line items under FOR UPDATE so concurrent
// receipts serialise on the same rows.
func (t *txRepo) LockLPOItems(ctx context.Context, lpoID int64) ([]LPOItem, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+itemColumns+` FROM lpo_items WHERE lpo_id = $1 ORDER BY id FOR UPDATE`, lpoID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (t *txRepo) AddItemReceived(ctx context.Context, itemID int64, qty decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE lpo_items SET qty_received = qty_received + $2 WHERE id = $1 AND qty_received + $2 <= qty`,
		itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: received quantity exceeds ordered quantity", ErrValidation)
	}
	return nil
}

// IncreaseStock adds received quantity to the linked inventory entry inside
// the receipt transaction, so an aborted receipt never moves stock.
func (t *txRepo) IncreaseStock(ctx context.Context, entryID uuid.UUID, qty decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE inventory_entries SET quantity = quantity + $2, updated_at = NOW() WHERE id = $1 AND NOT deleted`,
		entryID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: linked inventory entry not found", ErrValidation)
	}
	return nil
}

func (t *txRepo) CreateGRN(ctx context.Context, grn GoodsReceipt) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO goods_receipts (lpo_id, received_by, received_at, reference, note)
		 VALUES ($1, $2, COALESCE(NULLIF($3, '0001-01-01'::timestamptz), NOW()), $4, $5)
		 RETURNING id`,
		grn.LPOID, grn.ReceivedBy, grn.ReceivedAt, grn.Reference, grn.Note).Scan(&id)
	return id, err
}

func (t *txRepo) InsertGRNItem(ctx context.Context, item GoodsReceiptItem) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO goods_receipt_items (grn_id, lpo_item_id, qty_received) VALUES ($1, $2, $3)`,
		item.GRNID, item.LPOItemID, item.QtyReceived)
	return err
}

func (t *txRepo) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO suppliers (supplier_code, name, email, phone, address, rc_number, tax_id, contact_person, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		s.Code, s.Name, s.Email, s.Phone, s.Address, s.RCNumber, s.TaxID, s.ContactPerson, s.IsActive).
		Scan(&id)
	if err != nil && isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	return id, err
}

func (t *txRepo) UpdateSupplier(ctx context.Context, s Supplier) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE suppliers SET name = $2, email = $3, phone = $4, address = $5,
		   rc_number = $6, tax_id = $7, contact_person = $8, is_active = $9, updated_at = NOW()
		 WHERE id = $1`,
		s.ID, s.Name, s.Email, s.Phone, s.Address, s.RCNumber, s.TaxID, s.ContactPerson, s.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertAudit writes the audit entry inside the caller's transaction so it
// commits or rolls back with the mutation it records.
func (t *txRepo) InsertAudit(ctx context.Context, entry shared.AuditEntry) error {
	payload := entry.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO audit_entries (actor_id, verb, lpo_id, grn_id, payload)
		 VALUES (NULLIF($1, 0), $2, NULLIF($3, 0), NULLIF($4, 0), $5)`,
		entry.ActorID, entry.Verb, entry.LPOID, entry.GRNID, payload)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ TxRepository = (*txRepo)(nil)
