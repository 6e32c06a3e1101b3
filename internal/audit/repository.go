package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads the audit trail from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository over the shared pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineSelect = `SELECT a.created_at, COALESCE(u.email, ''), a.verb,
	COALESCE(l.lpo_number, ''), COALESCE(a.grn_id, 0), a.payload
	FROM audit_entries a
	LEFT JOIN users u ON u.id = a.actor_id
	LEFT JOIN lpos l ON l.id = a.lpo_id`

func timelineWhere(filters TimelineFilters) (string, []any) {
	where := []string{"TRUE"}
	args := []any{}
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		where = append(where, fmt.Sprintf("a.created_at >= $%d", len(args)))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		where = append(where, fmt.Sprintf("a.created_at <= $%d", len(args)))
	}
	if actor := strings.TrimSpace(filters.Actor); actor != "" {
		args = append(args, actor)
		where = append(where, fmt.Sprintf("LOWER(u.email) = LOWER($%d)", len(args)))
	}
	if verb := strings.TrimSpace(filters.Verb); verb != "" {
		args = append(args, verb)
		where = append(where, fmt.Sprintf("a.verb = $%d", len(args)))
	}
	if filters.LPOID > 0 {
		args = append(args, filters.LPOID)
		where = append(where, fmt.Sprintf("a.lpo_id = $%d", len(args)))
	}
	return strings.Join(where, " AND "), args
}

func collectRows(rows pgx.Rows) ([]TimelineRow, error) {
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var (
			row   TimelineRow
			at    time.Time
			grnID int64
		)
		if err := rows.Scan(&at, &row.Actor, &row.Verb, &row.LPONumber, &grnID, &row.PayloadRaw); err != nil {
			return nil, err
		}
		row.At = at
		if grnID > 0 {
			row.GRNNumber = strconv.FormatInt(grnID, 10)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TimelineWindow returns one page of rows, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	cond, args := timelineWhere(filters)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		timelineSelect+` WHERE `+cond+
			fmt.Sprintf(` ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

// TimelineAll returns every matching row, newest first.
func (r *PGRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	cond, args := timelineWhere(filters)
	rows, err := r.pool.Query(ctx,
		timelineSelect+` WHERE `+cond+` ORDER BY a.created_at DESC, a.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}
