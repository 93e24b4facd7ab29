package labassignment

import (
	"context"
	"strings"
	"time"

	"github.com/dcs/dcs/internal/domain/registry"
	"github.com/dcs/dcs/internal/domain/testorder"
	"github.com/dcs/dcs/pkg/apperror"
)

type OrderGetter interface {
	GetByID(ctx context.Context, id string) (*testorder.TestOrder, error)
}

type LabGetter interface {
	GetByID(ctx context.Context, id string) (*registry.Lab, error)
}

type Service struct {
	repo   Repository
	orders OrderGetter
	labs   LabGetter
	strict bool
}

func NewService(repo Repository, orders OrderGetter, labs LabGetter, strict bool) *Service {
	return &Service{repo: repo, orders: orders, labs: labs, strict: strict}
}

type CreateInput struct {
	TestOrderID string `json:"testOrderId"`
	LabID       string `json:"labId"`
	Status      string `json:"status"`
	AssignedAt  string `json:"assignedAt"`
}

// Create validates the order and lab before recording the handoff. Nothing
// prevents a second assignment for the same order: re-routing to another lab
// is a normal operation.
func (s *Service) Create(ctx context.Context, in CreateInput) (*LabAssignment, error) {
	if strings.TrimSpace(in.TestOrderID) == "" {
		return nil, apperror.Validation("testOrderId is required")
	}
	if strings.TrimSpace(in.LabID) == "" {
		return nil, apperror.Validation("labId is required")
	}
	status, err := Statuses.NormalizeOptional(in.Status, "AWAITING_PICKUP")
	if err != nil {
		return nil, err
	}

	assignedAt := time.Now()
	if strings.TrimSpace(in.AssignedAt) != "" {
		parsed, err := parseTimestamp(in.AssignedAt)
		if err != nil {
			return nil, apperror.Validation("invalid assignedAt %q", in.AssignedAt)
		}
		assignedAt = parsed
	}

	if _, err := s.orders.GetByID(ctx, in.TestOrderID); err != nil {
		return nil, err
	}
	lab, err := s.labs.GetByID(ctx, in.LabID)
	if err != nil {
		return nil, err
	}
	if !lab.IsActive {
		return nil, apperror.Validation("lab %s is not active", lab.Code)
	}

	a := &LabAssignment{
		TestOrderID: in.TestOrderID,
		LabID:       in.LabID,
		Status:      status,
		AssignedAt:  assignedAt,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func parseTimestamp(v string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Enriched, error) {
	if !Statuses.Contains(f.Status) {
		f.Status = ""
	} else {
		f.Status, _ = Statuses.Normalize(f.Status)
	}
	f.Q = strings.TrimSpace(f.Q)
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*LabAssignment, error) {
	return s.repo.GetByID(ctx, id)
}

type UpdateInput struct {
	Status *string `json:"status"`
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*LabAssignment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status != nil {
		status, err := Statuses.Normalize(*in.Status)
		if err != nil {
			return nil, err
		}
		if s.strict && !CanTransition(a.Status, status) {
			return nil, apperror.Validation("cannot move lab assignment from %s to %s", a.Status, status)
		}
		a.Status = status
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
