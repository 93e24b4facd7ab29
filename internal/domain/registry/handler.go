package registry

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
	g.GET("/federations", h.searchFederations)
	g.GET("/clubs", h.searchClubs)

	g.POST("/athletes", h.createAthlete, auth.RequireRole(auth.RoleAdmin, auth.RoleFedUser))
	g.GET("/athletes", h.listAthletes)
	g.GET("/athletes/:id", h.getAthlete)

	g.POST("/labs", h.createLab, auth.RequireRole(auth.RoleAdmin))
	g.GET("/labs", h.listLabs)
	g.GET("/labs/:id", h.getLab)
	g.PATCH("/labs/:id", h.updateLab, auth.RequireRole(auth.RoleAdmin))
}

func queryLimit(c echo.Context) int {
	n, _ := strconv.Atoi(c.QueryParam("limit"))
	return n
}

func (h *Handler) searchFederations(c echo.Context) error {
	items, err := h.svc.SearchFederations(c.Request().Context(), c.QueryParam("q"), queryLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) searchClubs(c echo.Context) error {
	items, err := h.svc.SearchClubs(c.Request().Context(), c.QueryParam("q"), c.QueryParam("federationId"), queryLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) createAthlete(c echo.Context) error {
	var in CreateAthleteInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	a, err := h.svc.CreateAthlete(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) listAthletes(c echo.Context) error {
	p := cursor.FromContext(c, cursor.DefaultLimit)
	items, err := h.svc.ListAthletes(c.Request().Context(), c.QueryParam("q"), c.QueryParam("status"), p.Cursor, p.Limit)
	if err != nil {
		return err
	}
	page := cursor.NewPage(items, p.Limit, func(a *Athlete) string { return a.ID })
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) getAthlete(c echo.Context) error {
	a, err := h.svc.GetAthlete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) createLab(c echo.Context) error {
	var in CreateLabInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	l, err := h.svc.CreateLab(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) listLabs(c echo.Context) error {
	items, err := h.svc.ListLabs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) getLab(c echo.Context) error {
	l, err := h.svc.GetLab(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) updateLab(c echo.Context) error {
	var in UpdateLabInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	l, err := h.svc.UpdateLab(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}
