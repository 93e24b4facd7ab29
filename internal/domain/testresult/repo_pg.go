package testresult

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

const resultColumns = `id, sample_id, lab_id, outcome, final_status, reported_at, pdf_report_url, details_json, created_at`

func scanResult(row pgx.Row) (*TestResult, error) {
	var r TestResult
	err := row.Scan(&r.ID, &r.SampleID, &r.LabID, &r.Outcome, &r.FinalStatus,
		&r.ReportedAt, &r.PDFReportURL, &r.DetailsJSON, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts the result. The sample_id unique constraint backstops the
// service-level duplicate pre-check, so a concurrent create for the same
// sample surfaces as the same conflict instead of a raw SQL error.
func (r *PgRepository) Create(ctx context.Context, res *TestResult) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO test_result (id, sample_id, lab_id, outcome, final_status, reported_at, pdf_report_url, details_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		res.ID, res.SampleID, res.LabID, res.Outcome, res.FinalStatus,
		res.ReportedAt, res.PDFReportURL, res.DetailsJSON,
	).Scan(&res.CreatedAt)
	if db.IsUniqueViolation(err, "") {
		return apperror.Conflict("sample %s already has a result", res.SampleID)
	}
	if err != nil {
		return fmt.Errorf("insert test result: %w", err)
	}
	return nil
}

func (r *PgRepository) ExistsForSample(ctx context.Context, sampleID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM test_result WHERE sample_id = $1)`, sampleID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check result for sample: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id string) (*TestResult, error) {
	res, err := scanResult(r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM test_result WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("test result %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select test result: %w", err)
	}
	return res, nil
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]*Enriched, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.sample_id, t.lab_id, t.outcome, t.final_status, t.reported_at,
		       t.pdf_report_url, t.details_json, t.created_at,
		       s.code, l.name, l.code
		FROM test_result t
		JOIN sample s ON s.id = t.sample_id
		JOIN lab l ON l.id = t.lab_id
		WHERE ($1 = '' OR t.id ILIKE $1 || '%' OR t.sample_id ILIKE $1 || '%' OR t.lab_id ILIKE $1 || '%'
		       OR s.code ILIKE '%' || $1 || '%' OR l.name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR t.outcome = $2)
		  AND ($3 = '' OR t.final_status = $3)
		  AND ($4 = '' OR t.lab_id = $4)
		  AND ($5 = '' OR t.sample_id = $5)
		  AND ($6::timestamptz IS NULL OR t.reported_at >= $6)
		  AND ($7::timestamptz IS NULL OR t.reported_at <= $7)
		  AND ($8 = '' OR (t.reported_at, t.id) < (SELECT reported_at, id FROM test_result WHERE id = $8))
		ORDER BY t.reported_at DESC, t.id DESC
		LIMIT $9`,
		f.Q, f.Outcome, f.FinalStatus, f.LabID, f.SampleID, f.From, f.To, f.Cursor, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	defer rows.Close()

	results := make([]*Enriched, 0)
	for rows.Next() {
		var e Enriched
		err := rows.Scan(&e.ID, &e.SampleID, &e.LabID, &e.Outcome, &e.FinalStatus,
			&e.ReportedAt, &e.PDFReportURL, &e.DetailsJSON, &e.CreatedAt,
			&e.SampleCode, &e.LabName, &e.LabCode)
		if err != nil {
			return nil, fmt.Errorf("scan test result: %w", err)
		}
		results = append(results, &e)
	}
	return results, rows.Err()
}

func (r *PgRepository) Update(ctx context.Context, res *TestResult) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE test_result
		SET outcome = $2, final_status = $3, reported_at = $4, pdf_report_url = $5, details_json = $6
		WHERE id = $1`,
		res.ID, res.Outcome, res.FinalStatus, res.ReportedAt, res.PDFReportURL, res.DetailsJSON)
	if err != nil {
		return fmt.Errorf("update test result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("test result %s not found", res.ID)
	}
	return nil
}
