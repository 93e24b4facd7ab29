package sample

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dcs/dcs/internal/domain/testorder"
	"github.com/dcs/dcs/pkg/apperror"
	"github.com/dcs/dcs/pkg/patch"
)

type mockSampleRepo struct {
	byID    map[string]*Sample
	byCode  map[string]string
	orders  map[string]*testorder.TestOrder
	created int
}

func newMockSampleRepo(orders map[string]*testorder.TestOrder) *mockSampleRepo {
	return &mockSampleRepo{byID: map[string]*Sample{}, byCode: map[string]string{}, orders: orders}
}

func (m *mockSampleRepo) Create(_ context.Context, s *Sample) error {
	if _, dup := m.byCode[s.Code]; dup {
		return apperror.Conflict("sample with code %s already exists", s.Code)
	}
	m.created++
	if s.ID == "" {
		s.ID = fmt.Sprintf("sample-%03d", m.created)
	}
	s.CreatedAt = time.Now()
	m.byID[s.ID] = s
	m.byCode[s.Code] = s.ID
	return nil
}

func (m *mockSampleRepo) GetByID(_ context.Context, id string) (*Sample, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("sample %s not found", id)
	}
	return s, nil
}

func (m *mockSampleRepo) sorted() []*Sample {
	out := make([]*Sample, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *mockSampleRepo) List(_ context.Context, f ListFilter) ([]*Enriched, error) {
	var out []*Enriched
	past := f.Cursor == ""
	for _, s := range m.sorted() {
		if !past {
			if s.ID == f.Cursor {
				past = true
			}
			continue
		}
		if f.Q != "" && !strings.HasPrefix(s.ID, f.Q) && !strings.Contains(strings.ToLower(s.Code), strings.ToLower(f.Q)) {
			continue
		}
		if f.Type != "" && s.Type != f.Type {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.TestOrderID != "" && s.TestOrderID != f.TestOrderID {
			continue
		}
		e := &Enriched{Sample: *s}
		if o := m.orders[s.TestOrderID]; o != nil {
			e.OrderPriority = o.Priority
			e.OrderReason = o.Reason
		}
		out = append(out, e)
		if len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockSampleRepo) Lookup(_ context.Context, q, testOrderID string, limit int) ([]*Sample, error) {
	var out []*Sample
	for _, s := range m.sorted() {
		if testOrderID != "" && s.TestOrderID != testOrderID {
			continue
		}
		if q != "" && !strings.HasPrefix(s.ID, q) && !strings.Contains(strings.ToLower(s.Code), strings.ToLower(q)) {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockSampleRepo) Update(_ context.Context, s *Sample) error {
	if _, ok := m.byID[s.ID]; !ok {
		return apperror.NotFound("sample %s not found", s.ID)
	}
	m.byID[s.ID] = s
	return nil
}

type mockOrders struct {
	byID map[string]*testorder.TestOrder
}

func (m *mockOrders) GetByID(_ context.Context, id string) (*testorder.TestOrder, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("test order %s not found", id)
	}
	return o, nil
}

func newTestService(strict bool) (*Service, *mockSampleRepo) {
	orders := map[string]*testorder.TestOrder{
		"order-1": {ID: "order-1", FederationID: "fed-sp", Reason: "RANDOM", Priority: "HIGH", Status: "COLLECTING"},
	}
	repo := newMockSampleRepo(orders)
	return NewService(repo, &mockOrders{byID: orders}, strict), repo
}

func TestCreateSample(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	sm, err := svc.Create(ctx, CreateInput{
		TestOrderID: "order-1",
		Code:        "CBF-UR-0001",
		Type:        "urine",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sm.Status != "SEALED" {
		t.Errorf("status defaults to SEALED, got %s", sm.Status)
	}
	if sm.Type != "URINE" {
		t.Errorf("type not normalized: %s", sm.Type)
	}
	if sm.CollectedAt != nil || sm.ChainOfCustody != nil {
		t.Errorf("omitted optionals must stay absent: %+v", sm)
	}
}

func TestCreateSampleValidation(t *testing.T) {
	svc, repo := newTestService(false)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{TestOrderID: "order-1", Code: " ", Type: "URINE"}); !apperror.IsValidation(err) {
		t.Errorf("blank code: expected validation, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{TestOrderID: "order-1", Code: "C1", Type: "SALIVA"}); !apperror.IsValidation(err) {
		t.Errorf("bad type: expected validation, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{TestOrderID: "order-9", Code: "C1", Type: "URINE"}); !apperror.IsNotFound(err) {
		t.Errorf("unknown order: expected not found, got %v", err)
	}
	if repo.created != 0 {
		t.Errorf("failed creates must not persist, got %d rows", repo.created)
	}
}

func TestCreateSampleDuplicateCode(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	in := CreateInput{TestOrderID: "order-1", Code: "CBF-UR-0001", Type: "URINE"}
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, in); !apperror.IsConflict(err) {
		t.Errorf("duplicate code: expected conflict, got %v", err)
	}
}

func TestCreateSampleCollectedAtParsing(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	sm, err := svc.Create(ctx, CreateInput{
		TestOrderID: "order-1", Code: "C-TS", Type: "BLOOD",
		CollectedAt: patch.Value("2025-06-10T14:30:00Z"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sm.CollectedAt == nil || sm.CollectedAt.Hour() != 14 {
		t.Errorf("collectedAt not parsed: %v", sm.CollectedAt)
	}

	if _, err := svc.Create(ctx, CreateInput{
		TestOrderID: "order-1", Code: "C-BAD", Type: "BLOOD",
		CollectedAt: patch.Value("next tuesday"),
	}); !apperror.IsValidation(err) {
		t.Errorf("unparseable collectedAt: expected validation, got %v", err)
	}
}

func TestUpdateSampleTriState(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	custody := json.RawMessage(`{"sealId":"S-1","transfers":[]}`)
	sm, err := svc.Create(ctx, CreateInput{
		TestOrderID: "order-1", Code: "C-TRI", Type: "URINE",
		CollectedAt:    patch.Value("2025-06-10"),
		ChainOfCustody: patch.Value(custody),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Omitted fields stay untouched.
	got, err := svc.Update(ctx, sm.ID, UpdateInput{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.CollectedAt == nil || got.ChainOfCustody == nil {
		t.Errorf("empty patch cleared fields: %+v", got)
	}

	// Explicit null clears.
	got, err = svc.Update(ctx, sm.ID, UpdateInput{
		CollectedAt:    patch.Null[string](),
		ChainOfCustody: patch.Null[json.RawMessage](),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.CollectedAt != nil {
		t.Errorf("explicit null must clear collectedAt: %v", got.CollectedAt)
	}
	if got.ChainOfCustody != nil {
		t.Errorf("explicit null must clear chainOfCustody: %s", got.ChainOfCustody)
	}

	// A value replaces the whole document.
	next := json.RawMessage(`{"sealId":"S-2"}`)
	got, err = svc.Update(ctx, sm.ID, UpdateInput{ChainOfCustody: patch.Value(next)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if string(got.ChainOfCustody) != `{"sealId":"S-2"}` {
		t.Errorf("custody document not replaced: %s", got.ChainOfCustody)
	}
}

func TestUpdateSampleUnmarshalTriState(t *testing.T) {
	// The JSON wire distinction drives the patch semantics end to end.
	var in UpdateInput
	if err := json.Unmarshal([]byte(`{"collectedAt":null,"status":"SHIPPED"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.CollectedAt.Set() || !in.CollectedAt.IsNull() {
		t.Error("collectedAt: explicit null not detected")
	}
	if in.ChainOfCustody.Set() {
		t.Error("chainOfCustody: absent field reported as set")
	}
	if in.Status == nil || *in.Status != "SHIPPED" {
		t.Errorf("status not bound: %v", in.Status)
	}
}

func TestUpdateSampleStrictTransitions(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()
	sm, err := svc.Create(ctx, CreateInput{TestOrderID: "order-1", Code: "C-FSM", Type: "URINE"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	archived := "ARCHIVED"
	if _, err := svc.Update(ctx, sm.ID, UpdateInput{Status: &archived}); !apperror.IsValidation(err) {
		t.Errorf("SEALED -> ARCHIVED must be rejected in strict mode, got %v", err)
	}
	shipped := "SHIPPED"
	if _, err := svc.Update(ctx, sm.ID, UpdateInput{Status: &shipped}); err != nil {
		t.Errorf("SEALED -> SHIPPED must pass: %v", err)
	}
}

func TestListSamplesEnriched(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateInput{TestOrderID: "order-1", Code: "CBF-UR-0001", Type: "URINE"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := svc.List(ctx, ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].OrderPriority != "HIGH" || got[0].OrderReason != "RANDOM" {
		t.Errorf("row not enriched with order fields: %+v", got[0])
	}
}

func TestGetSampleWithOrder(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	sm, err := svc.Create(ctx, CreateInput{TestOrderID: "order-1", Code: "C-GET", Type: "BLOOD"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	d, err := svc.Get(ctx, sm.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Order == nil || d.Order.ID != "order-1" {
		t.Errorf("parent order not resolved: %+v", d.Order)
	}
}
