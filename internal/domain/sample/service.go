package sample

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dcs/dcs/internal/domain/testorder"
	"github.com/dcs/dcs/pkg/apperror"
	"github.com/dcs/dcs/pkg/patch"
)

// OrderGetter resolves the parent test order; creation re-verifies existence
// at call time.
type OrderGetter interface {
	GetByID(ctx context.Context, id string) (*testorder.TestOrder, error)
}

type Service struct {
	repo   Repository
	orders OrderGetter
	strict bool
}

func NewService(repo Repository, orders OrderGetter, strict bool) *Service {
	return &Service{repo: repo, orders: orders, strict: strict}
}

// Detail is the single-sample view including the parent order.
type Detail struct {
	Sample
	Order *testorder.TestOrder `json:"testOrder"`
}

func parseTimestamp(field, v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperror.Validation("invalid %s %q", field, v)
}

type CreateInput struct {
	TestOrderID       string                        `json:"testOrderId"`
	Code              string                        `json:"code"`
	Type              string                        `json:"type"`
	Status            string                        `json:"status"`
	CollectedAt       patch.Field[string]           `json:"collectedAt"`
	CollectedByUserID patch.Field[string]           `json:"collectedByUserId"`
	ChainOfCustody    patch.Field[json.RawMessage]  `json:"chainOfCustody"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Sample, error) {
	if strings.TrimSpace(in.Code) == "" {
		return nil, apperror.Validation("code is required")
	}
	typ, err := Types.Normalize(in.Type)
	if err != nil {
		return nil, err
	}
	status, err := Statuses.NormalizeOptional(in.Status, "SEALED")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.TestOrderID) == "" {
		return nil, apperror.Validation("testOrderId is required")
	}
	if _, err := s.orders.GetByID(ctx, in.TestOrderID); err != nil {
		return nil, err
	}

	sm := &Sample{
		TestOrderID: in.TestOrderID,
		Code:        strings.TrimSpace(in.Code),
		Type:        typ,
		Status:      status,
	}
	if v, ok := in.CollectedAt.Get(); ok && strings.TrimSpace(v) != "" {
		t, err := parseTimestamp("collectedAt", v)
		if err != nil {
			return nil, err
		}
		sm.CollectedAt = &t
	}
	if v, ok := in.CollectedByUserID.Get(); ok && strings.TrimSpace(v) != "" {
		trimmed := strings.TrimSpace(v)
		sm.CollectedByUserID = &trimmed
	}
	if v, ok := in.ChainOfCustody.Get(); ok {
		sm.ChainOfCustody = v
	}

	if err := s.repo.Create(ctx, sm); err != nil {
		return nil, err
	}
	return sm, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Enriched, error) {
	if !Types.Contains(f.Type) {
		f.Type = ""
	} else {
		f.Type, _ = Types.Normalize(f.Type)
	}
	if !Statuses.Contains(f.Status) {
		f.Status = ""
	} else {
		f.Status, _ = Statuses.Normalize(f.Status)
	}
	f.Q = strings.TrimSpace(f.Q)
	return s.repo.List(ctx, f)
}

func (s *Service) Lookup(ctx context.Context, q, testOrderID string, limit int) ([]*Sample, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.repo.Lookup(ctx, strings.TrimSpace(q), testOrderID, limit)
}

func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	sm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, sm.TestOrderID)
	if err != nil {
		return nil, err
	}
	return &Detail{Sample: *sm, Order: order}, nil
}

type UpdateInput struct {
	Status            *string                       `json:"status"`
	CollectedAt       patch.Field[string]           `json:"collectedAt"`
	CollectedByUserID patch.Field[string]           `json:"collectedByUserId"`
	ChainOfCustody    patch.Field[json.RawMessage]  `json:"chainOfCustody"`
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Sample, error) {
	sm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status != nil {
		status, err := Statuses.Normalize(*in.Status)
		if err != nil {
			return nil, err
		}
		if s.strict && !CanTransition(sm.Status, status) {
			return nil, apperror.Validation("cannot move sample from %s to %s", sm.Status, status)
		}
		sm.Status = status
	}
	if in.CollectedAt.Set() {
		if v, ok := in.CollectedAt.Get(); ok && strings.TrimSpace(v) != "" {
			t, err := parseTimestamp("collectedAt", v)
			if err != nil {
				return nil, err
			}
			sm.CollectedAt = &t
		} else {
			sm.CollectedAt = nil
		}
	}
	if in.CollectedByUserID.Set() {
		if v, ok := in.CollectedByUserID.Get(); ok && strings.TrimSpace(v) != "" {
			trimmed := strings.TrimSpace(v)
			sm.CollectedByUserID = &trimmed
		} else {
			sm.CollectedByUserID = nil
		}
	}
	if in.ChainOfCustody.Set() {
		if v, ok := in.ChainOfCustody.Get(); ok {
			sm.ChainOfCustody = v
		} else {
			sm.ChainOfCustody = nil
		}
	}
	if err := s.repo.Update(ctx, sm); err != nil {
		return nil, err
	}
	return sm, nil
}
