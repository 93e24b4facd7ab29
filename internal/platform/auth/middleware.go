// Package auth carries the caller identity through the request: JWT
// verification, token issuance for the login flow, and role guards.
// Authorization policy itself lives on the routes, not in the services.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "user_role"
	claimsKey contextKey = "user_claims"
)

// Claims is the token payload issued at login. FederationID/ClubID/LabID
// scope the caller to their organization when the role is not ADMIN_CBF.
type Claims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	FederationID string `json:"federationId,omitempty"`
	ClubID       string `json:"clubId,omitempty"`
	LabID        string `json:"labId,omitempty"`
}

// Identity is the resolved caller placed on the request context.
type Identity struct {
	UserID       string
	Role         string
	FederationID string
	ClubID       string
	LabID        string
}

// TokenIssuer signs HS256 access tokens for authenticated users.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given identity.
func (t *TokenIssuer) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Role:         id.Role,
		FederationID: id.FederationID,
		ClubID:       id.ClubID,
		LabID:        id.LabID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Middleware verifies the Bearer token and stores the caller identity on the
// request context. Paths listed in skip are served without a token.
func Middleware(secret string, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	key := []byte(secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipped[c.Path()] {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			setIdentity(c, Identity{
				UserID:       claims.Subject,
				Role:         claims.Role,
				FederationID: claims.FederationID,
				ClubID:       claims.ClubID,
				LabID:        claims.LabID,
			})
			return next(c)
		}
	}
}

// DevMiddleware grants every request an ADMIN_CBF identity. Development only.
func DevMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			setIdentity(c, Identity{UserID: "dev-admin", Role: "ADMIN_CBF"})
			return next(c)
		}
	}
}

func setIdentity(c echo.Context, id Identity) {
	ctx := c.Request().Context()
	ctx = context.WithValue(ctx, userIDKey, id.UserID)
	ctx = context.WithValue(ctx, roleKey, id.Role)
	ctx = context.WithValue(ctx, claimsKey, id)
	c.SetRequest(c.Request().WithContext(ctx))
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RoleFromContext returns the authenticated role, or "".
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// IdentityFromContext returns the full caller identity, or the zero value.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(claimsKey).(Identity)
	return id
}
