package testorder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dcs/dcs/internal/domain/registry"
	"github.com/dcs/dcs/pkg/apperror"
)

type mockOrderRepo struct {
	byID        map[string]*TestOrder
	samples     map[string][]*SampleSummary
	assignments map[string][]*AssignmentSummary
	created     int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		byID:        map[string]*TestOrder{},
		samples:     map[string][]*SampleSummary{},
		assignments: map[string][]*AssignmentSummary{},
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *TestOrder) error {
	m.created++
	if o.ID == "" {
		o.ID = fmt.Sprintf("order-%03d", m.created)
	}
	o.CreatedAt = time.Now().Add(time.Duration(m.created) * time.Second)
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*TestOrder, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("test order %s not found", id)
	}
	return o, nil
}

func (m *mockOrderRepo) sorted() []*TestOrder {
	out := make([]*TestOrder, 0, len(m.byID))
	for _, o := range m.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockOrderRepo) List(_ context.Context, f ListFilter) ([]*TestOrder, error) {
	var out []*TestOrder
	past := f.Cursor == ""
	for _, o := range m.sorted() {
		if !past {
			if o.ID == f.Cursor {
				past = true
			}
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.FederationID != "" && o.FederationID != f.FederationID {
			continue
		}
		out = append(out, o)
		if len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockOrderRepo) Lookup(_ context.Context, q string, limit int) ([]*TestOrder, error) {
	var out []*TestOrder
	for _, o := range m.sorted() {
		if q == "" || strings.HasPrefix(o.ID, q) ||
			(o.MatchID != nil && strings.HasPrefix(*o.MatchID, q)) ||
			(o.AthleteID != nil && strings.HasPrefix(*o.AthleteID, q)) {
			out = append(out, o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *TestOrder) error {
	if _, ok := m.byID[o.ID]; !ok {
		return apperror.NotFound("test order %s not found", o.ID)
	}
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) SamplesForOrder(_ context.Context, orderID string) ([]*SampleSummary, error) {
	return append([]*SampleSummary{}, m.samples[orderID]...), nil
}

func (m *mockOrderRepo) AssignmentsForOrder(_ context.Context, orderID string) ([]*AssignmentSummary, error) {
	return append([]*AssignmentSummary{}, m.assignments[orderID]...), nil
}

type mockFederations struct {
	known map[string]bool
}

func (m *mockFederations) GetByID(_ context.Context, id string) (*registry.Federation, error) {
	if !m.known[id] {
		return nil, apperror.NotFound("federation %s not found", id)
	}
	return &registry.Federation{ID: id, Name: "Federação", UF: "SP"}, nil
}

func newTestService(strict bool) (*Service, *mockOrderRepo) {
	repo := newMockOrderRepo()
	feds := &mockFederations{known: map[string]bool{"fed-sp": true}}
	return NewService(repo, feds, strict), repo
}

func TestCreateOrder(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	match := "  match-42  "
	o, err := svc.Create(ctx, CreateInput{
		FederationID: "fed-sp",
		MatchID:      &match,
		Reason:       "random",
	}, "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Status != "REQUESTED" {
		t.Errorf("new orders start REQUESTED, got %s", o.Status)
	}
	if o.Priority != "NORMAL" {
		t.Errorf("priority defaults to NORMAL, got %s", o.Priority)
	}
	if o.Reason != "RANDOM" {
		t.Errorf("reason not normalized: %s", o.Reason)
	}
	if o.MatchID == nil || *o.MatchID != "match-42" {
		t.Errorf("matchId not trimmed: %v", o.MatchID)
	}
	if o.CreatedByUserID != "user-1" {
		t.Errorf("caller not recorded: %s", o.CreatedByUserID)
	}
}

func TestCreateOrderBlankMatchIDStoredAsAbsent(t *testing.T) {
	svc, _ := newTestService(false)
	blank := "   "
	o, err := svc.Create(context.Background(), CreateInput{
		FederationID: "fed-sp", Reason: "TARGETED", MatchID: &blank,
	}, "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.MatchID != nil {
		t.Errorf("blank matchId must be stored as absent, got %q", *o.MatchID)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc, repo := newTestService(false)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Reason: "RANDOM"}, "u"); !apperror.IsValidation(err) {
		t.Errorf("missing federationId: expected validation, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{FederationID: "fed-sp", Reason: "BECAUSE"}, "u"); !apperror.IsValidation(err) {
		t.Errorf("bad reason: expected validation, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{FederationID: "fed-xx", Reason: "RANDOM"}, "u"); !apperror.IsNotFound(err) {
		t.Errorf("unknown federation: expected not found, got %v", err)
	}
	if repo.created != 0 {
		t.Errorf("failed creates must not persist, got %d rows", repo.created)
	}
}

func TestUpdateOrderPartial(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	o, err := svc.Create(ctx, CreateInput{FederationID: "fed-sp", Reason: "RANDOM"}, "u")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Empty patch is a no-op.
	got, err := svc.Update(ctx, o.ID, UpdateInput{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != "REQUESTED" || got.Priority != "NORMAL" {
		t.Errorf("empty patch changed fields: %+v", got)
	}

	status := "void"
	got, err = svc.Update(ctx, o.ID, UpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != "VOID" {
		t.Errorf("status not applied: %s", got.Status)
	}
	if got.Priority != "NORMAL" {
		t.Errorf("unspecified priority changed: %s", got.Priority)
	}

	if _, err := svc.Update(ctx, "missing", UpdateInput{Status: &status}); !apperror.IsNotFound(err) {
		t.Errorf("unknown order: expected not found, got %v", err)
	}
}

func TestUpdateOrderStrictTransitions(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()
	o, err := svc.Create(ctx, CreateInput{FederationID: "fed-sp", Reason: "RANDOM"}, "u")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	completed := "COMPLETED"
	if _, err := svc.Update(ctx, o.ID, UpdateInput{Status: &completed}); !apperror.IsValidation(err) {
		t.Errorf("REQUESTED -> COMPLETED must be rejected in strict mode, got %v", err)
	}

	assigned := "ASSIGNED"
	if _, err := svc.Update(ctx, o.ID, UpdateInput{Status: &assigned}); err != nil {
		t.Errorf("REQUESTED -> ASSIGNED must pass: %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{"REQUESTED", "ASSIGNED", true},
		{"REQUESTED", "REQUESTED", true},
		{"REQUESTED", "VOID", true},
		{"ANALYZING", "COMPLETED", true},
		{"COMPLETED", "VOID", false},
		{"SHIPPED", "REQUESTED", false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestGetOrderDetail(t *testing.T) {
	svc, repo := newTestService(false)
	ctx := context.Background()
	o, err := svc.Create(ctx, CreateInput{FederationID: "fed-sp", Reason: "IN_COMPETITION"}, "u")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo.samples[o.ID] = []*SampleSummary{{ID: "s1", Code: "CBF-UR-0001", Type: "URINE", Status: "SEALED"}}
	repo.assignments[o.ID] = []*AssignmentSummary{{ID: "a1", LabID: "lab-1", LabName: "LBCD", LabCode: "WADA-DF-007", Status: "AWAITING_PICKUP"}}

	d, err := svc.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(d.Samples) != 1 || d.Samples[0].Code != "CBF-UR-0001" {
		t.Errorf("samples not attached: %+v", d.Samples)
	}
	if len(d.Assignments) != 1 || d.Assignments[0].LabCode != "WADA-DF-007" {
		t.Errorf("assignments not attached: %+v", d.Assignments)
	}

	if _, err := svc.Get(ctx, "missing"); !apperror.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListOrdersDropsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateInput{FederationID: "fed-sp", Reason: "RANDOM"}, "u"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := svc.List(ctx, ListFilter{Status: "NOT_A_STATUS", Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("unknown status filter should be ignored, got %d", len(got))
	}
}
