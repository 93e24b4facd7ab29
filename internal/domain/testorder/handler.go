package testorder

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
	g.POST("/test-orders", h.create, auth.RequireRole(auth.RoleAdmin, auth.RoleFedUser))
	g.GET("/test-orders", h.list)
	g.GET("/test-orders/lookup", h.lookup)
	g.GET("/test-orders/:id", h.get)
	g.PATCH("/test-orders/:id", h.update, auth.RequireRole(auth.RoleAdmin, auth.RoleFedUser))
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	callerID := auth.UserIDFromContext(c.Request().Context())
	o, err := h.svc.Create(c.Request().Context(), in, callerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) list(c echo.Context) error {
	p := cursor.FromContext(c, cursor.DefaultLimit)
	f := ListFilter{
		Status:       c.QueryParam("status"),
		FederationID: c.QueryParam("federationId"),
		ClubID:       c.QueryParam("clubId"),
		AthleteID:    c.QueryParam("athleteId"),
		MatchID:      c.QueryParam("matchId"),
		Cursor:       p.Cursor,
		Limit:        p.Limit,
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	page := cursor.NewPage(items, p.Limit, func(o *TestOrder) string { return o.ID })
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) lookup(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.Lookup(c.Request().Context(), c.QueryParam("q"), limit)
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
	o, err := h.svc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}
