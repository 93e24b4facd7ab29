package labassignment

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/pkg/apperror"
	"github.com/dcs/dcs/pkg/cursor"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/lab-assignments", h.create, auth.RequireRole(auth.RoleAdmin, auth.RoleFedUser))
	g.GET("/lab-assignments", h.list)
	g.GET("/lab-assignments/:id", h.get)
	g.PATCH("/lab-assignments/:id", h.update, auth.RequireRole(auth.RoleAdmin, auth.RoleFedUser, auth.RoleLabUser))
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": a.ID})
}

func (h *Handler) list(c echo.Context) error {
	p := cursor.FromContext(c, cursor.DefaultLimit)
	f := ListFilter{
		Q:      c.QueryParam("q"),
		LabID:  c.QueryParam("labId"),
		Status: c.QueryParam("status"),
		Cursor: p.Cursor,
		Limit:  p.Limit,
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	page := cursor.NewPage(items, p.Limit, func(e *Enriched) string { return e.ID })
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) get(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) update(c echo.Context) error {
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	a, err := h.svc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}
