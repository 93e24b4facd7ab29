package registry

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcs/dcs/internal/platform/db"
	"github.com/dcs/dcs/pkg/apperror"
)

// -- Federation repository --

type federationRepoPG struct {
	pool *pgxpool.Pool
}

func NewFederationRepo(pool *pgxpool.Pool) FederationRepository {
	return &federationRepoPG{pool: pool}
}

func (r *federationRepoPG) Create(ctx context.Context, f *Federation) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO federation (id, name, uf)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		f.ID, f.Name, f.UF,
	).Scan(&f.CreatedAt)
	if db.IsUniqueViolation(err, "") {
		return apperror.Conflict("federation with UF %q already exists", f.UF)
	}
	return err
}

func (r *federationRepoPG) GetByID(ctx context.Context, id string) (*Federation, error) {
	f := &Federation{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, uf, created_at FROM federation WHERE id = $1`, id,
	).Scan(&f.ID, &f.Name, &f.UF, &f.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("federation not found")
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *federationRepoPG) Search(ctx context.Context, q string, limit int) ([]*Federation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, uf, created_at FROM federation
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR uf ILIKE '%' || $1 || '%')
		ORDER BY uf ASC
		LIMIT $2`,
		q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feds []*Federation
	for rows.Next() {
		f := &Federation{}
		if err := rows.Scan(&f.ID, &f.Name, &f.UF, &f.CreatedAt); err != nil {
			return nil, err
		}
		feds = append(feds, f)
	}
	return feds, rows.Err()
}

// -- Club repository --

type clubRepoPG struct {
	pool *pgxpool.Pool
}

func NewClubRepo(pool *pgxpool.Pool) ClubRepository {
	return &clubRepoPG{pool: pool}
}

func (r *clubRepoPG) Create(ctx context.Context, c *Club) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO club (id, name, federation_id)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		c.ID, c.Name, c.FederationID,
	).Scan(&c.CreatedAt)
}

func (r *clubRepoPG) GetByID(ctx context.Context, id string) (*Club, error) {
	c := &Club{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, federation_id, created_at FROM club WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.FederationID, &c.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("club not found")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *clubRepoPG) Search(ctx context.Context, q, federationID string, limit int) ([]*Club, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, federation_id, created_at FROM club
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR federation_id = $2)
		ORDER BY name ASC
		LIMIT $3`,
		q, federationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clubs []*Club
	for rows.Next() {
		c := &Club{}
		if err := rows.Scan(&c.ID, &c.Name, &c.FederationID, &c.CreatedAt); err != nil {
			return nil, err
		}
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

// -- Athlete repository --

type athleteRepoPG struct {
	pool *pgxpool.Pool
}

func NewAthleteRepo(pool *pgxpool.Pool) AthleteRepository {
	return &athleteRepoPG{pool: pool}
}

func (r *athleteRepoPG) Create(ctx context.Context, a *Athlete) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO athlete (id, cbf_code, full_name, birth_date, nationality, cpf_hash, sex, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		a.ID, a.CBFCode, a.FullName, a.BirthDate, a.Nationality, a.CPFHash, a.Sex, a.Status,
	).Scan(&a.CreatedAt)
	if db.IsUniqueViolation(err, "") {
		return apperror.Conflict("athlete with CBF code %q already exists", a.CBFCode)
	}
	return err
}

func (r *athleteRepoPG) GetByID(ctx context.Context, id string) (*Athlete, error) {
	a := &Athlete{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, cbf_code, full_name, birth_date, nationality, cpf_hash, sex, status, created_at
		FROM athlete WHERE id = $1`, id,
	).Scan(&a.ID, &a.CBFCode, &a.FullName, &a.BirthDate, &a.Nationality, &a.CPFHash, &a.Sex, &a.Status, &a.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("athlete not found")
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *athleteRepoPG) List(ctx context.Context, q, status, cursor string, limit int) ([]*Athlete, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, cbf_code, full_name, birth_date, nationality, cpf_hash, sex, status, created_at
		FROM athlete
		WHERE ($1 = '' OR cbf_code ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR (created_at, id) < (SELECT created_at, id FROM athlete WHERE id = $3))
		ORDER BY created_at DESC, id DESC
		LIMIT $4`,
		q, status, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var athletes []*Athlete
	for rows.Next() {
		a := &Athlete{}
		if err := rows.Scan(&a.ID, &a.CBFCode, &a.FullName, &a.BirthDate, &a.Nationality,
			&a.CPFHash, &a.Sex, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		athletes = append(athletes, a)
	}
	return athletes, rows.Err()
}

// -- Lab repository --

type labRepoPG struct {
	pool *pgxpool.Pool
}

func NewLabRepo(pool *pgxpool.Pool) LabRepository {
	return &labRepoPG{pool: pool}
}

func (r *labRepoPG) Create(ctx context.Context, l *Lab) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lab (id, code, name, country, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		l.ID, l.Code, l.Name, l.Country, l.IsActive,
	).Scan(&l.CreatedAt)
	if db.IsUniqueViolation(err, "") {
		return apperror.Conflict("lab with code %q already exists", l.Code)
	}
	return err
}

func (r *labRepoPG) GetByID(ctx context.Context, id string) (*Lab, error) {
	l := &Lab{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, name, country, is_active, created_at FROM lab WHERE id = $1`, id,
	).Scan(&l.ID, &l.Code, &l.Name, &l.Country, &l.IsActive, &l.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperror.NotFound("lab not found")
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *labRepoPG) ListActive(ctx context.Context) ([]*Lab, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, country, is_active, created_at FROM lab WHERE is_active ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labs []*Lab
	for rows.Next() {
		l := &Lab{}
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.Country, &l.IsActive, &l.CreatedAt); err != nil {
			return nil, err
		}
		labs = append(labs, l)
	}
	return labs, rows.Err()
}

func (r *labRepoPG) Update(ctx context.Context, l *Lab) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lab SET name = $2, country = $3, is_active = $4 WHERE id = $1`,
		l.ID, l.Name, l.Country, l.IsActive)
	return err
}
