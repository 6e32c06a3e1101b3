package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListFilters narrows entry listings.
type ListFilters struct {
	Status Status
	Truck  string
	Search string
}

const entryColumns = `id, entry_date, customer_name, mineral_or_equipment, description,
	supplier_agent, truck_registration, status, driver_name, driver_phone,
	quantity, unit, origin, destination,
	COALESCE(gross_weight, 0), COALESCE(tare_weight, 0), COALESCE(net_weight, 0),
	COALESCE(created_by, 0), deleted, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.EntryDate, &e.CustomerName, &e.MineralOrEquipment, &e.Description,
		&e.SupplierAgent, &e.TruckRegistration, &e.Status, &e.DriverName, &e.DriverPhone,
		&e.Quantity, &e.Unit, &e.Origin, &e.Destination,
		&e.GrossWeight, &e.TareWeight, &e.NetWeight,
		&e.CreatedBy, &e.Deleted, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

// Get fetches one entry.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM inventory_entries WHERE id = $1 AND NOT deleted`, id))
}

// List returns a page of entries matching the filters.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Entry, int, error) {
	where := []string{"NOT deleted"}
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.Truck != "" {
		args = append(args, filters.Truck)
		where = append(where, fmt.Sprintf("truck_registration = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where = append(where, fmt.Sprintf("(customer_name ILIKE $%d OR mineral_or_equipment ILIKE $%d)", len(args), len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_entries WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM inventory_entries WHERE `+cond+
			fmt.Sprintf(` ORDER BY entry_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// Create inserts an entry.
func (r *Repository) Create(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO inventory_entries (id, entry_date, customer_name, mineral_or_equipment, description,
		   supplier_agent, truck_registration, status, driver_name, driver_phone,
		   quantity, unit, origin, destination, gross_weight, tare_weight, net_weight, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		   NULLIF($15, 0::numeric), NULLIF($16, 0::numeric), NULLIF($17, 0::numeric), NULLIF($18, 0))`,
		e.ID, e.EntryDate, e.CustomerName, e.MineralOrEquipment, e.Description,
		e.SupplierAgent, e.TruckRegistration, e.Status, e.DriverName, e.DriverPhone,
		e.Quantity, e.Unit, e.Origin, e.Destination, e.GrossWeight, e.TareWeight, e.NetWeight, e.CreatedBy)
	return err
}

// Update rewrites mutable entry fields.
func (r *Repository) Update(ctx context.Context, e Entry) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE inventory_entries SET entry_date = $2, customer_name = $3, mineral_or_equipment = $4,
		   description = $5, supplier_agent = $6, truck_registration = $7, status = $8,
		   driver_name = $9, driver_phone = $10, quantity = $11, unit = $12,
		   origin = $13, destination = $14,
		   gross_weight = NULLIF($15, 0::numeric), tare_weight = NULLIF($16, 0::numeric), net_weight = NULLIF($17, 0::numeric),
		   updated_at = NOW()
		 WHERE id = $1 AND NOT deleted`,
		e.ID, e.EntryDate, e.CustomerName, e.MineralOrEquipment,
		e.Description, e.SupplierAgent, e.TruckRegistration, e.Status,
		e.DriverName, e.DriverPhone, e.Quantity, e.Unit,
		e.Origin, e.Destination, e.GrossWeight, e.TareWeight, e.NetWeight)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete flags an entry deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE inventory_entries SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
