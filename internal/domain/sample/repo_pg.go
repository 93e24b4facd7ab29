package sample

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

const sampleColumns = `id, test_order_id, code, type, status, collected_at, collected_by_user_id, chain_of_custody, created_at`

func scanSample(row pgx.Row) (*Sample, error) {
	var s Sample
	err := row.Scan(&s.ID, &s.TestOrderID, &s.Code, &s.Type, &s.Status,
		&s.CollectedAt, &s.CollectedByUserID, &s.ChainOfCustody, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) Create(ctx context.Context, s *Sample) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sample (id, test_order_id, code, type, status, collected_at, collected_by_user_id, chain_of_custody)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		s.ID, s.TestOrderID, s.Code, s.Type, s.Status,
		s.CollectedAt, s.CollectedByUserID, s.ChainOfCustody,
	).Scan(&s.CreatedAt)
	if db.IsUniqueViolation(err, "") {
		return apperror.Conflict("sample with code %s already exists", s.Code)
	}
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id string) (*Sample, error) {
	s, err := scanSample(r.pool.QueryRow(ctx,
		`SELECT `+sampleColumns+` FROM sample WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("sample %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select sample: %w", err)
	}
	return s, nil
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]*Enriched, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.test_order_id, s.code, s.type, s.status, s.collected_at,
		       s.collected_by_user_id, s.chain_of_custody, s.created_at,
		       o.priority, o.reason
		FROM sample s
		JOIN test_order o ON o.id = s.test_order_id
		WHERE ($1 = '' OR s.id ILIKE $1 || '%' OR s.code ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR s.type = $2)
		  AND ($3 = '' OR s.status = $3)
		  AND ($4 = '' OR s.test_order_id = $4)
		  AND ($5 = '' OR s.code = $5)
		  AND ($6 = '' OR s.id < $6)
		ORDER BY s.id DESC
		LIMIT $7`,
		f.Q, f.Type, f.Status, f.TestOrderID, f.Code, f.Cursor, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	samples := make([]*Enriched, 0)
	for rows.Next() {
		var e Enriched
		err := rows.Scan(&e.ID, &e.TestOrderID, &e.Code, &e.Type, &e.Status,
			&e.CollectedAt, &e.CollectedByUserID, &e.ChainOfCustody, &e.CreatedAt,
			&e.OrderPriority, &e.OrderReason)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, &e)
	}
	return samples, rows.Err()
}

func (r *PgRepository) Lookup(ctx context.Context, q, testOrderID string, limit int) ([]*Sample, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sampleColumns+`
		FROM sample
		WHERE ($1 = '' OR id ILIKE $1 || '%' OR code ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR test_order_id = $2)
		ORDER BY id DESC
		LIMIT $3`, q, testOrderID, limit)
	if err != nil {
		return nil, fmt.Errorf("lookup samples: %w", err)
	}
	defer rows.Close()

	samples := make([]*Sample, 0)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (r *PgRepository) Update(ctx context.Context, s *Sample) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sample
		SET status = $2, collected_at = $3, collected_by_user_id = $4, chain_of_custody = $5
		WHERE id = $1`,
		s.ID, s.Status, s.CollectedAt, s.CollectedByUserID, s.ChainOfCustody)
	if err != nil {
		return fmt.Errorf("update sample: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("sample %s not found", s.ID)
	}
	return nil
}
