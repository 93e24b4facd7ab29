package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dcs/dcs/internal/platform/auth"
	"github.com/dcs/dcs/pkg/apperror"
)

func newTestHandler(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	svc, _, _, _, _ := newTestService()
	e := echo.New()
	e.HTTPErrorHandler = apperror.ErrorHandler
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1", auth.DevMiddleware()))
	return e, svc
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateAthleteEndpoint(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/athletes",
		`{"cbfCode":"2025-000001","fullName":"Ana Souza","birthDate":"2001-03-15","cpf":"12345678901","sex":"F"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got Athlete
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == "" || got.Status != "ELIGIBLE" {
		t.Errorf("unexpected body: %+v", got)
	}
	if strings.Contains(rec.Body.String(), "cpf") {
		t.Error("cpf hash must not be serialized")
	}
}

func TestCreateAthleteEndpointValidation(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/athletes", `{"fullName":"No Code"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] == nil {
		t.Errorf("expected error envelope, got %v", body)
	}
}

func TestListAthletesEndpointPaging(t *testing.T) {
	e, svc := newTestHandler(t)
	ctx := context.Background()
	for _, code := range []string{"2025-000001", "2025-000002", "2025-000003"} {
		in := validAthleteInput()
		in.CBFCode = code
		if _, err := svc.CreateAthlete(ctx, in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/athletes?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page struct {
		Items    []Athlete `json:"items"`
		PageInfo struct {
			HasNextPage bool    `json:"hasNextPage"`
			NextCursor  *string `json:"nextCursor"`
		} `json:"pageInfo"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if !page.PageInfo.HasNextPage || page.PageInfo.NextCursor == nil {
		t.Errorf("expected a next page: %+v", page.PageInfo)
	}
	if *page.PageInfo.NextCursor != page.Items[1].ID {
		t.Errorf("cursor must point at the last item, got %s", *page.PageInfo.NextCursor)
	}
}

func TestGetAthleteEndpointNotFound(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodGet, "/api/v1/athletes/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLabEndpoints(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/labs", `{"code":"WADA-DF-007","name":"LBCD","country":"BR"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lab: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var lab Lab
	if err := json.Unmarshal(rec.Body.Bytes(), &lab); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/labs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list labs: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "WADA-DF-007") {
		t.Errorf("created lab missing from list: %s", rec.Body.String())
	}

	rec = doJSON(e, http.MethodPatch, "/api/v1/labs/"+lab.ID, `{"isActive":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch lab: expected 200, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/labs", "")
	if strings.Contains(rec.Body.String(), lab.ID) {
		t.Errorf("deactivated lab should not be listed: %s", rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/labs", `{"code":"WADA-DF-007","name":"dup"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate code: expected 409, got %d", rec.Code)
	}
}

func TestFederationSearchEndpoint(t *testing.T) {
	e, svc := newTestHandler(t)
	ctx := context.Background()
	for _, name := range []string{"Federação Paulista", "Federação Carioca"} {
		uf := "SP"
		if strings.Contains(name, "Carioca") {
			uf = "RJ"
		}
		if err := svc.federations.Create(ctx, &Federation{Name: name, UF: uf}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/federations?q=paulista", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Items []Federation `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].UF != "SP" {
		t.Errorf("unexpected search result: %+v", body.Items)
	}
}
