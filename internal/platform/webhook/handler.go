package webhook

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/pkg/apperror"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/webhooks", h.register, auth.RequireRole(auth.RoleAdmin))
	g.GET("/webhooks", h.list, auth.RequireRole(auth.RoleAdmin))
	g.DELETE("/webhooks/:id", h.remove, auth.RequireRole(auth.RoleAdmin))
}

type registerRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

func (h *Handler) register(c echo.Context) error {
	var in registerRequest
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	// The secret is echoed back exactly once, at registration.
	ep, err := h.mgr.Register(c.Request().Context(), in.URL, in.Secret, in.Events)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ep)
}

func (h *Handler) list(c echo.Context) error {
	endpoints, err := h.mgr.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": endpoints})
}

func (h *Handler) remove(c echo.Context) error {
	if err := h.mgr.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
