package identity

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/pkg/apperror"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the user admin surface. The login route is public and
// registered separately so the auth middleware can skip it.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/users", h.createUser, auth.RequireRole(auth.RoleAdmin))
	g.GET("/users", h.listUsers, auth.RequireRole(auth.RoleAdmin))
	g.GET("/users/:id", h.getUser, auth.RequireRole(auth.RoleAdmin))
	g.PATCH("/users/:id", h.updateUser, auth.RequireRole(auth.RoleAdmin))
	g.GET("/me", h.me)
}

func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/login", h.login)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	token, user, err := h.svc.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"accessToken": token,
		"user":        user,
	})
}

func (h *Handler) me(c echo.Context) error {
	id := auth.UserIDFromContext(c.Request().Context())
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) createUser(c echo.Context) error {
	var in CreateUserInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	u, err := h.svc.CreateUser(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) listUsers(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	users, err := h.svc.ListUsers(c.Request().Context(), c.QueryParam("q"), c.QueryParam("role"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": users})
}

func (h *Handler) getUser(c echo.Context) error {
	u, err := h.svc.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) updateUser(c echo.Context) error {
	var in UpdateUserInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	u, err := h.svc.UpdateUser(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
