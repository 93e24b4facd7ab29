package testresult

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/pkg/apperror"
	"github.com/dcs/dcs/pkg/cursor"
)

// ReportRenderer turns a resolved result into the certificate document.
type ReportRenderer interface {
	Render(data *ReportData) ([]byte, error)
}

type Handler struct {
	svc      *Service
	renderer ReportRenderer
}

func NewHandler(svc *Service, renderer ReportRenderer) *Handler {
	return &Handler{svc: svc, renderer: renderer}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/test-results", h.create, auth.RequireRole(auth.RoleAdmin, auth.RoleFedUser, auth.RoleLabUser))
	g.GET("/test-results", h.list)
	g.GET("/test-results/:id", h.get)
	g.GET("/test-results/:id/pdf", h.pdf)
	g.PATCH("/test-results/:id", h.update, auth.RequireRole(auth.RoleAdmin, auth.RoleFedUser, auth.RoleLabUser))

	// External lab systems push results here; the lab id comes from the path
	// and the payload goes through the exact same validation as the
	// interactive route.
	g.POST("/integrations/labs/:labId/results", h.ingest, auth.RequireRole(auth.RoleAdmin, auth.RoleLabUser))
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	r, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) ingest(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	in.LabID = c.Param("labId")
	r, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) list(c echo.Context) error {
	p := cursor.FromContext(c, cursor.DefaultLimit)
	q := ListQuery{
		Q:           c.QueryParam("q"),
		Outcome:     c.QueryParam("outcome"),
		FinalStatus: c.QueryParam("finalStatus"),
		LabID:       c.QueryParam("labId"),
		SampleID:    c.QueryParam("sampleId"),
		From:        c.QueryParam("from"),
		To:          c.QueryParam("to"),
		Cursor:      p.Cursor,
		Limit:       p.Limit,
	}
	items, err := h.svc.List(c.Request().Context(), q)
	if err != nil {
		return err
	}
	page := cursor.NewPage(items, p.Limit, func(e *Enriched) string { return e.ID })
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) get(c echo.Context) error {
	d, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) pdf(c echo.Context) error {
	data, err := h.svc.GetEnriched(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	doc, err := h.renderer.Render(data)
	if err != nil {
		return fmt.Errorf("render result %s: %w", data.ID, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`inline; filename="laudo-%s.pdf"`, data.ID))
	return c.Blob(http.StatusOK, "application/pdf", doc)
}

func (h *Handler) update(c echo.Context) error {
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("invalid request body")
	}
	r, err := h.svc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}
