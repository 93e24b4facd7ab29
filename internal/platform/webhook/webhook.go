// Package webhook delivers domain events to registered external endpoints:
// federation systems subscribe to result events and receive HMAC-SHA256
// signed POSTs with bounded retries.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcs/dcs/pkg/apperror"
)

// Endpoint is a registered webhook destination.
type Endpoint struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"secret,omitempty"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists webhook endpoints.
type Store interface {
	CreateEndpoint(ctx context.Context, ep *Endpoint) error
	ListEndpoints(ctx context.Context) ([]*Endpoint, error)
	DeleteEndpoint(ctx context.Context, id string) error
}

// SignPayload computes the hex HMAC-SHA256 of the payload under the secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validateURL(raw string) error {
	if raw == "" {
		return apperror.Validation("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return apperror.Validation("invalid url %q", raw)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return apperror.Validation("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// eventMatches supports exact subscriptions ("test_result.created") and
// wildcards on either side of the dot ("test_result.*", "*.created").
func eventMatches(pattern, event string) bool {
	if pattern == event || pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(event, pattern[1:])
	}
	if strings.HasSuffix(pattern, ".*") {
		return strings.HasPrefix(event, pattern[:len(pattern)-1])
	}
	return false
}

func endpointMatches(ep *Endpoint, event string) bool {
	for _, pat := range ep.Events {
		if eventMatches(pat, event) {
			return true
		}
	}
	return false
}

// PgStore keeps endpoints in Postgres.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) CreateEndpoint(ctx context.Context, ep *Endpoint) error {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO webhook_endpoint (id, url, secret, events, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		ep.ID, ep.URL, ep.Secret, ep.Events, ep.IsActive,
	).Scan(&ep.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert webhook endpoint: %w", err)
	}
	return nil
}

func (s *PgStore) ListEndpoints(ctx context.Context) ([]*Endpoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, url, secret, events, is_active, created_at
		FROM webhook_endpoint
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list webhook endpoints: %w", err)
	}
	defer rows.Close()

	endpoints := make([]*Endpoint, 0)
	for rows.Next() {
		var ep Endpoint
		if err := rows.Scan(&ep.ID, &ep.URL, &ep.Secret, &ep.Events, &ep.IsActive, &ep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook endpoint: %w", err)
		}
		endpoints = append(endpoints, &ep)
	}
	return endpoints, rows.Err()
}

func (s *PgStore) DeleteEndpoint(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM webhook_endpoint WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete webhook endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("webhook endpoint %s not found", id)
	}
	return nil
}
