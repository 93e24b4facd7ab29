package sample

import (
	"net/http"
	"strconv"

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
	g.POST("/samples", h.create, auth.RequireRole(auth.RoleAdmin, auth.RoleFedUser))
	g.GET("/samples", h.list)
	g.GET("/samples/lookup", h.lookup)
	g.GET("/samples/:id", h.get)
	g.PATCH("/samples/:id", h.update, auth.RequireRole(auth.RoleAdmin, auth.RoleFedUser, auth.RoleLabUser))
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	sm, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sm)
}

func (h *Handler) list(c echo.Context) error {
	p := cursor.FromContext(c, cursor.DefaultLimit)
	f := ListFilter{
		Q:           c.QueryParam("q"),
		Type:        c.QueryParam("type"),
		Status:      c.QueryParam("status"),
		TestOrderID: c.QueryParam("testOrderId"),
		Code:        c.QueryParam("code"),
		Cursor:      p.Cursor,
		Limit:       p.Limit,
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	page := cursor.NewPage(items, p.Limit, func(e *Enriched) string { return e.ID })
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) lookup(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.Lookup(c.Request().Context(), c.QueryParam("q"), c.QueryParam("testOrderId"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(c echo.Context) error {
	d, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) update(c echo.Context) error {
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	sm, err := h.svc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sm)
}
