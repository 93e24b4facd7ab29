package identity

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

const userColumns = `id, email, full_name, role, password_hash, federation_id, club_id, lab_id, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash,
		&u.FederationID, &u.ClubID, &u.LabID, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PgRepository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO app_user (id, email, full_name, role, password_hash, federation_id, club_id, lab_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		u.ID, u.Email, u.FullName, u.Role, u.PasswordHash,
		u.FederationID, u.ClubID, u.LabID, u.IsActive,
	).Scan(&u.CreatedAt)
	if db.IsUniqueViolation(err, "") {
		return apperror.Conflict("user with email %s already exists", u.Email)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE lower(email) = lower($1)`, email))
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("user %s not found", email)
	}
	if err != nil {
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return u, nil
}

func (r *PgRepository) List(ctx context.Context, q, role string, limit int) ([]*User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM app_user
		WHERE ($1 = '' OR email ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR role = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, q, role, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PgRepository) Update(ctx context.Context, u *User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE app_user
		SET full_name = $2, role = $3, password_hash = $4, is_active = $5
		WHERE id = $1`,
		u.ID, u.FullName, u.Role, u.PasswordHash, u.IsActive)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user %s not found", u.ID)
	}
	return nil
}
