package reporting

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/pkg/apperror"
)

// MeasureDefinition defines an operational report with its SQL query.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"sql"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string           `json:"measureId"`
	MeasureName string           `json:"measureName"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Results     []map[string]any `json:"results"`
}

// PredefinedMeasures is the list of available operational reports.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "orders-by-status",
		Name:        "Test Orders by Status",
		Description: "Number of test orders in each lifecycle stage",
		SQL:         `SELECT status, COUNT(*) AS total FROM test_order GROUP BY status ORDER BY total DESC`,
	},
	{
		ID:          "samples-by-type",
		Name:        "Samples by Type",
		Description: "Collected sample volume split by matrix",
		SQL:         `SELECT type, COUNT(*) AS total FROM sample GROUP BY type ORDER BY total DESC`,
	},
	{
		ID:          "results-by-outcome",
		Name:        "Results by Outcome",
		Description: "Reported results grouped by analytical outcome",
		SQL:         `SELECT outcome, COUNT(*) AS total FROM test_result GROUP BY outcome ORDER BY total DESC`,
	},
	{
		ID:          "lab-workload",
		Name:        "Lab Workload",
		Description: "Open assignments per laboratory",
		SQL: `SELECT l.code, l.name, COUNT(*) AS open_assignments
		      FROM lab_assignment a JOIN lab l ON l.id = a.lab_id
		      WHERE a.status <> 'DONE'
		      GROUP BY l.code, l.name ORDER BY open_assignments DESC`,
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Handler serves the operational reports API.
type Handler struct {
	pool *pgxpool.Pool
}

func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports", auth.RequireRole(auth.RoleAdmin, auth.RoleRegulator, auth.RoleAuditor))
	g.GET("/measures", h.listMeasures)
	g.GET("/measures/:id/evaluate", h.evaluateMeasure)
}

func (h *Handler) listMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

func (h *Handler) evaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return apperror.NotFound("measure %s not found", c.Param("id"))
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
	})
}

func (h *Handler) executeSQL(ctx context.Context, sql string) ([]map[string]any, error) {
	rows, err := h.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
