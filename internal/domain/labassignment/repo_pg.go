package labassignment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
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

func (r *PgRepository) Create(ctx context.Context, a *LabAssignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lab_assignment (id, test_order_id, lab_id, status, assigned_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.TestOrderID, a.LabID, a.Status, a.AssignedAt)
	if err != nil {
		return fmt.Errorf("insert lab assignment: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id string) (*LabAssignment, error) {
	var a LabAssignment
	err := r.pool.QueryRow(ctx, `
		SELECT id, test_order_id, lab_id, status, assigned_at
		FROM lab_assignment WHERE id = $1`, id,
	).Scan(&a.ID, &a.TestOrderID, &a.LabID, &a.Status, &a.AssignedAt)
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("lab assignment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select lab assignment: %w", err)
	}
	return &a, nil
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]*Enriched, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.test_order_id, a.lab_id, a.status, a.assigned_at, l.name, l.code
		FROM lab_assignment a
		JOIN lab l ON l.id = a.lab_id
		WHERE ($1 = '' OR a.id ILIKE $1 || '%' OR a.test_order_id ILIKE $1 || '%'
		       OR a.lab_id ILIKE $1 || '%' OR l.name ILIKE '%' || $1 || '%' OR l.code ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR a.lab_id = $2)
		  AND ($3 = '' OR a.status = $3)
		  AND ($4 = '' OR (a.assigned_at, a.id) < (SELECT assigned_at, id FROM lab_assignment WHERE id = $4))
		ORDER BY a.assigned_at DESC, a.id DESC
		LIMIT $5`,
		f.Q, f.LabID, f.Status, f.Cursor, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("list lab assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]*Enriched, 0)
	for rows.Next() {
		var e Enriched
		err := rows.Scan(&e.ID, &e.TestOrderID, &e.LabID, &e.Status, &e.AssignedAt, &e.LabName, &e.LabCode)
		if err != nil {
			return nil, fmt.Errorf("scan lab assignment: %w", err)
		}
		assignments = append(assignments, &e)
	}
	return assignments, rows.Err()
}

func (r *PgRepository) Update(ctx context.Context, a *LabAssignment) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE lab_assignment SET status = $2 WHERE id = $1`, a.ID, a.Status)
	if err != nil {
		return fmt.Errorf("update lab assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("lab assignment %s not found", a.ID)
	}
	return nil
}
