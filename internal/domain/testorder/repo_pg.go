package testorder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcs/dcs/internal/platform/db"
	"github.com/dcs/dcs/pkg/apperror"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const orderColumns = `id, federation_id, club_id, athlete_id, match_id, reason, priority, status, created_by_user_id, created_at`

func scanOrder(row pgx.Row) (*TestOrder, error) {
	var o TestOrder
	err := row.Scan(&o.ID, &o.FederationID, &o.ClubID, &o.AthleteID, &o.MatchID,
		&o.Reason, &o.Priority, &o.Status, &o.CreatedByUserID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) Create(ctx context.Context, o *TestOrder) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO test_order (id, federation_id, club_id, athlete_id, match_id, reason, priority, status, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		o.ID, o.FederationID, o.ClubID, o.AthleteID, o.MatchID,
		o.Reason, o.Priority, o.Status, o.CreatedByUserID,
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert test order: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id string) (*TestOrder, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM test_order WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("test order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select test order: %w", err)
	}
	return o, nil
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]*TestOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM test_order
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR federation_id = $2)
		  AND ($3 = '' OR club_id = $3)
		  AND ($4 = '' OR athlete_id = $4)
		  AND ($5 = '' OR match_id = $5)
		  AND ($6 = '' OR (created_at, id) < (SELECT created_at, id FROM test_order WHERE id = $6))
		ORDER BY created_at DESC, id DESC
		LIMIT $7`,
		f.Status, f.FederationID, f.ClubID, f.AthleteID, f.MatchID, f.Cursor, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("list test orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*TestOrder, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *PgRepository) Lookup(ctx context.Context, q string, limit int) ([]*TestOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM test_order
		WHERE $1 = ''
		   OR id ILIKE $1 || '%'
		   OR athlete_id ILIKE $1 || '%'
		   OR club_id ILIKE $1 || '%'
		   OR federation_id ILIKE $1 || '%'
		   OR match_id ILIKE $1 || '%'
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, q, limit)
	if err != nil {
		return nil, fmt.Errorf("lookup test orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*TestOrder, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *PgRepository) Update(ctx context.Context, o *TestOrder) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_order SET status = $2, priority = $3 WHERE id = $1`,
		o.ID, o.Status, o.Priority)
	if err != nil {
		return fmt.Errorf("update test order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("test order %s not found", o.ID)
	}
	return nil
}

func (r *PgRepository) SamplesForOrder(ctx context.Context, orderID string) ([]*SampleSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, type, status, collected_at
		FROM sample
		WHERE test_order_id = $1
		ORDER BY id DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("samples for order: %w", err)
	}
	defer rows.Close()

	samples := make([]*SampleSummary, 0)
	for rows.Next() {
		var s SampleSummary
		if err := rows.Scan(&s.ID, &s.Code, &s.Type, &s.Status, &s.CollectedAt); err != nil {
			return nil, fmt.Errorf("scan sample summary: %w", err)
		}
		samples = append(samples, &s)
	}
	return samples, rows.Err()
}

func (r *PgRepository) AssignmentsForOrder(ctx context.Context, orderID string) ([]*AssignmentSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.lab_id, l.name, l.code, a.status, a.assigned_at
		FROM lab_assignment a
		JOIN lab l ON l.id = a.lab_id
		WHERE a.test_order_id = $1
		ORDER BY a.assigned_at DESC, a.id DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("assignments for order: %w", err)
	}
	defer rows.Close()

	assignments := make([]*AssignmentSummary, 0)
	for rows.Next() {
		var a AssignmentSummary
		if err := rows.Scan(&a.ID, &a.LabID, &a.LabName, &a.LabCode, &a.Status, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment summary: %w", err)
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}
