package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Application roles. ADMIN_CBF passes every role check.
const (
	RoleAdmin     = "ADMIN_CBF"
	RoleFedUser   = "FED_USER"
	RoleClubUser  = "CLUB_USER"
	RoleLabUser   = "LAB_USER"
	RoleRegulator = "REGULATOR"
	RoleAuditor   = "AUDITOR"
)

// Roles lists every valid application role.
func Roles() []string {
	return []string{RoleAdmin, RoleFedUser, RoleClubUser, RoleLabUser, RoleRegulator, RoleAuditor}
}

// RequireRole returns middleware that allows the request only when the caller
// holds one of the given roles. ADMIN_CBF always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			if role == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
