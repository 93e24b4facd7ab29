package testorder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/pkg/apperror"
)

func newTestRouter(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	svc, _ := newTestService(false)
	e := echo.New()
	e.HTTPErrorHandler = apperror.ErrorHandler
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1", auth.DevMiddleware()))
	return e, svc
}

func TestCreateOrderEndpoint(t *testing.T) {
	e, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/test-orders",
		strings.NewReader(`{"federationId":"fed-sp","reason":"RANDOM","priority":"HIGH"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var o TestOrder
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if o.Status != "REQUESTED" || o.Priority != "HIGH" {
		t.Errorf("unexpected order: %+v", o)
	}
	if o.CreatedByUserID != "dev-admin" {
		t.Errorf("caller identity not captured: %s", o.CreatedByUserID)
	}
}

func TestListOrdersEndpointCursorWalk(t *testing.T) {
	e, svc := newTestRouter(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, CreateInput{FederationID: "fed-sp", Reason: "RANDOM"}, "u"); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	type pageBody struct {
		Items    []TestOrder `json:"items"`
		PageInfo struct {
			HasNextPage bool    `json:"hasNextPage"`
			NextCursor  *string `json:"nextCursor"`
		} `json:"pageInfo"`
	}
	fetch := func(url string) pageBody {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: %d: %s", url, rec.Code, rec.Body.String())
		}
		var p pageBody
		if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return p
	}

	first := fetch("/api/v1/test-orders?limit=2")
	if len(first.Items) != 2 || !first.PageInfo.HasNextPage {
		t.Fatalf("first page: %+v", first.PageInfo)
	}
	second := fetch(fmt.Sprintf("/api/v1/test-orders?limit=2&cursor=%s", *first.PageInfo.NextCursor))
	if len(second.Items) != 2 {
		t.Fatalf("second page: got %d items", len(second.Items))
	}
	for _, prev := range first.Items {
		for _, cur := range second.Items {
			if prev.ID == cur.ID {
				t.Errorf("item %s repeated across pages", cur.ID)
			}
		}
	}

	third := fetch(fmt.Sprintf("/api/v1/test-orders?limit=2&cursor=%s", *second.PageInfo.NextCursor))
	if len(third.Items) != 1 || third.PageInfo.HasNextPage {
		t.Errorf("last page must be short with no next: %d items, %+v", len(third.Items), third.PageInfo)
	}
}

func TestOrderLookupEndpoint(t *testing.T) {
	e, svc := newTestRouter(t)
	match := "match-77"
	if _, err := svc.Create(context.Background(), CreateInput{
		FederationID: "fed-sp", Reason: "IN_COMPETITION", MatchID: &match,
	}, "u"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/test-orders/lookup?q=match-7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "match-77") {
		t.Errorf("lookup missed prefix match: %s", rec.Body.String())
	}
}

func TestUpdateOrderEndpointBadStatus(t *testing.T) {
	e, svc := newTestRouter(t)
	o, err := svc.Create(context.Background(), CreateInput{FederationID: "fed-sp", Reason: "RANDOM"}, "u")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/test-orders/"+o.ID,
		strings.NewReader(`{"status":"TELEPORTED"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "REQUESTED") {
		t.Errorf("error should list valid statuses: %s", rec.Body.String())
	}
}
