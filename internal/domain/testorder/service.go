package testorder

import (
	"context"
	"strings"

	"github.com/dcs/dcs/internal/domain/registry"
	"github.com/dcs/dcs/pkg/apperror"
)

// FederationGetter is the slice of the reference-data store the order
// lifecycle needs: existence of the owning federation.
type FederationGetter interface {
	GetByID(ctx context.Context, id string) (*registry.Federation, error)
}

type Service struct {
	repo        Repository
	federations FederationGetter
	strict      bool
}

// NewService builds the order lifecycle. When strict is true, status updates
// must follow the forward transition graph.
func NewService(repo Repository, federations FederationGetter, strict bool) *Service {
	return &Service{repo: repo, federations: federations, strict: strict}
}

type CreateInput struct {
	FederationID string  `json:"federationId"`
	ClubID       *string `json:"clubId"`
	AthleteID    *string `json:"athleteId"`
	MatchID      *string `json:"matchId"`
	Reason       string  `json:"reason"`
	Priority     string  `json:"priority"`
}

// trimToNil normalizes optional free-text references: blank becomes absent,
// never an empty string.
func trimToNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func (s *Service) Create(ctx context.Context, in CreateInput, callerID string) (*TestOrder, error) {
	if strings.TrimSpace(in.FederationID) == "" {
		return nil, apperror.Validation("federationId is required")
	}
	reason, err := Reasons.Normalize(in.Reason)
	if err != nil {
		return nil, err
	}
	priority, err := Priorities.NormalizeOptional(in.Priority, "NORMAL")
	if err != nil {
		return nil, err
	}
	if _, err := s.federations.GetByID(ctx, strings.TrimSpace(in.FederationID)); err != nil {
		return nil, err
	}

	o := &TestOrder{
		FederationID:    strings.TrimSpace(in.FederationID),
		ClubID:          trimToNil(in.ClubID),
		AthleteID:       trimToNil(in.AthleteID),
		MatchID:         trimToNil(in.MatchID),
		Reason:          reason,
		Priority:        priority,
		Status:          "REQUESTED",
		CreatedByUserID: callerID,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*TestOrder, error) {
	if !Statuses.Contains(f.Status) {
		f.Status = ""
	} else {
		f.Status, _ = Statuses.Normalize(f.Status)
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Lookup(ctx context.Context, q string, limit int) ([]*TestOrder, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.repo.Lookup(ctx, strings.TrimSpace(q), limit)
}

func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	samples, err := s.repo.SamplesForOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	assignments, err := s.repo.AssignmentsForOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{TestOrder: *o, Samples: samples, Assignments: assignments}, nil
}

type UpdateInput struct {
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*TestOrder, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status != nil {
		status, err := Statuses.Normalize(*in.Status)
		if err != nil {
			return nil, err
		}
		if s.strict && !CanTransition(o.Status, status) {
			return nil, apperror.Validation("cannot move test order from %s to %s", o.Status, status)
		}
		o.Status = status
	}
	if in.Priority != nil {
		priority, err := Priorities.Normalize(*in.Priority)
		if err != nil {
			return nil, err
		}
		o.Priority = priority
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
