package testresult

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dcs/dcs/internal/domain/registry"
	"github.com/dcs/dcs/internal/domain/sample"
	"github.com/dcs/dcs/internal/domain/testorder"
	"github.com/dcs/dcs/pkg/apperror"
	"github.com/dcs/dcs/pkg/patch"
)

const (
	EventResultCreated = "test_result.created"
	EventResultUpdated = "test_result.updated"
)

type SampleGetter interface {
	GetByID(ctx context.Context, id string) (*sample.Sample, error)
}

type LabGetter interface {
	GetByID(ctx context.Context, id string) (*registry.Lab, error)
}

type OrderGetter interface {
	GetByID(ctx context.Context, id string) (*testorder.TestOrder, error)
}

type ReferenceResolver interface {
	GetAthlete(ctx context.Context, id string) (*registry.Athlete, error)
	GetClub(ctx context.Context, id string) (*registry.Club, error)
	GetFederation(ctx context.Context, id string) (*registry.Federation, error)
}

// EventSink receives domain events after a successful write. May be nil.
type EventSink interface {
	Publish(ctx context.Context, event string, payload any)
}

type Service struct {
	repo    Repository
	samples SampleGetter
	labs    LabGetter
	orders  OrderGetter
	refs    ReferenceResolver
	events  EventSink
}

func NewService(repo Repository, samples SampleGetter, labs LabGetter, orders OrderGetter, refs ReferenceResolver, events EventSink) *Service {
	return &Service{repo: repo, samples: samples, labs: labs, orders: orders, refs: refs, events: events}
}

func (s *Service) publish(ctx context.Context, event string, payload any) {
	if s.events != nil {
		s.events.Publish(ctx, event, payload)
	}
}

type CreateInput struct {
	SampleID     string                       `json:"sampleId"`
	LabID        string                       `json:"labId"`
	Outcome      string                       `json:"outcome"`
	FinalStatus  patch.Field[string]          `json:"finalStatus"`
	ReportedAt   string                       `json:"reportedAt"`
	PDFReportURL patch.Field[string]          `json:"pdfReportUrl"`
	DetailsJSON  patch.Field[json.RawMessage] `json:"detailsJson"`
}

// Create runs its checks in a fixed order so the caller always gets the most
// specific failure: presence, enum shape, sample existence, duplicate result,
// lab existence. The final insert is still guarded by the unique constraint,
// which closes the race between the pre-check and the write.
func (s *Service) Create(ctx context.Context, in CreateInput) (*TestResult, error) {
	if strings.TrimSpace(in.SampleID) == "" {
		return nil, apperror.Validation("sampleId is required")
	}
	if strings.TrimSpace(in.LabID) == "" {
		return nil, apperror.Validation("labId is required")
	}
	if strings.TrimSpace(in.Outcome) == "" {
		return nil, apperror.Validation("outcome is required")
	}

	outcome, err := Outcomes.Normalize(in.Outcome)
	if err != nil {
		return nil, err
	}
	var finalStatus *string
	if v, ok := in.FinalStatus.Get(); ok && strings.TrimSpace(v) != "" {
		normalized, err := FinalStatuses.Normalize(v)
		if err != nil {
			return nil, err
		}
		finalStatus = &normalized
	}

	if _, err := s.samples.GetByID(ctx, in.SampleID); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsForSample(ctx, in.SampleID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.Conflict("sample %s already has a result", in.SampleID)
	}
	if _, err := s.labs.GetByID(ctx, in.LabID); err != nil {
		return nil, err
	}

	reportedAt := time.Now()
	if strings.TrimSpace(in.ReportedAt) != "" {
		parsed, err := parseTimestamp(in.ReportedAt)
		if err != nil {
			return nil, apperror.Validation("invalid reportedAt %q", in.ReportedAt)
		}
		reportedAt = parsed
	}

	r := &TestResult{
		SampleID:    in.SampleID,
		LabID:       in.LabID,
		Outcome:     outcome,
		FinalStatus: finalStatus,
		ReportedAt:  reportedAt,
	}
	if v, ok := in.PDFReportURL.Get(); ok && strings.TrimSpace(v) != "" {
		trimmed := strings.TrimSpace(v)
		r.PDFReportURL = &trimmed
	}
	if v, ok := in.DetailsJSON.Get(); ok {
		r.DetailsJSON = v
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	s.publish(ctx, EventResultCreated, r)
	return r, nil
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

// ListQuery is the raw filter set from the HTTP layer; from/to are dates.
type ListQuery struct {
	Q           string
	Outcome     string
	FinalStatus string
	LabID       string
	SampleID    string
	From        string
	To          string
	Cursor      string
	Limit       int
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]*Enriched, error) {
	f := ListFilter{
		Q:        strings.TrimSpace(q.Q),
		LabID:    q.LabID,
		SampleID: q.SampleID,
		Cursor:   q.Cursor,
		Limit:    q.Limit,
	}
	if Outcomes.Contains(q.Outcome) {
		f.Outcome, _ = Outcomes.Normalize(q.Outcome)
	}
	if FinalStatuses.Contains(q.FinalStatus) {
		f.FinalStatus, _ = FinalStatuses.Normalize(q.FinalStatus)
	}
	if strings.TrimSpace(q.From) != "" {
		day, err := time.Parse("2006-01-02", q.From)
		if err != nil {
			return nil, apperror.Validation("invalid from date %q, use YYYY-MM-DD", q.From)
		}
		f.From = &day
	}
	if strings.TrimSpace(q.To) != "" {
		day, err := time.Parse("2006-01-02", q.To)
		if err != nil {
			return nil, apperror.Validation("invalid to date %q, use YYYY-MM-DD", q.To)
		}
		end := day.Add(24*time.Hour - time.Millisecond)
		f.To = &end
	}
	return s.repo.List(ctx, f)
}

// Detail is the single-result view with its sample and lab sub-records.
type Detail struct {
	TestResult
	Sample *sample.Sample `json:"sample"`
	Lab    *registry.Lab  `json:"lab"`
}

func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sm, err := s.samples.GetByID(ctx, r.SampleID)
	if err != nil {
		return nil, err
	}
	lab, err := s.labs.GetByID(ctx, r.LabID)
	if err != nil {
		return nil, err
	}
	return &Detail{TestResult: *r, Sample: sm, Lab: lab}, nil
}

// ReportData is the fully resolved result used for certificate rendering.
// Athlete, club and federation depend on what the parent order references.
type ReportData struct {
	TestResult
	Sample     *sample.Sample       `json:"sample"`
	Lab        *registry.Lab        `json:"lab"`
	Order      *testorder.TestOrder `json:"testOrder"`
	Athlete    *registry.Athlete    `json:"athlete"`
	Club       *registry.Club       `json:"club"`
	Federation *registry.Federation `json:"federation"`
}

func (s *Service) GetEnriched(ctx context.Context, id string) (*ReportData, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data := &ReportData{TestResult: d.TestResult, Sample: d.Sample, Lab: d.Lab}

	order, err := s.orders.GetByID(ctx, d.Sample.TestOrderID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return data, nil
		}
		return nil, err
	}
	data.Order = order

	if order.AthleteID != nil {
		if a, err := s.refs.GetAthlete(ctx, *order.AthleteID); err == nil {
			data.Athlete = a
		} else if !apperror.IsNotFound(err) {
			return nil, err
		}
	}
	if order.ClubID != nil {
		if cl, err := s.refs.GetClub(ctx, *order.ClubID); err == nil {
			data.Club = cl
		} else if !apperror.IsNotFound(err) {
			return nil, err
		}
	}
	if f, err := s.refs.GetFederation(ctx, order.FederationID); err == nil {
		data.Federation = f
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}
	return data, nil
}

type UpdateInput struct {
	Outcome      *string                      `json:"outcome"`
	FinalStatus  patch.Field[string]          `json:"finalStatus"`
	ReportedAt   *string                      `json:"reportedAt"`
	PDFReportURL patch.Field[string]          `json:"pdfReportUrl"`
	DetailsJSON  patch.Field[json.RawMessage] `json:"detailsJson"`
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*TestResult, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Outcome != nil {
		outcome, err := Outcomes.Normalize(*in.Outcome)
		if err != nil {
			return nil, err
		}
		r.Outcome = outcome
	}
	if in.FinalStatus.Set() {
		if v, ok := in.FinalStatus.Get(); ok && strings.TrimSpace(v) != "" {
			normalized, err := FinalStatuses.Normalize(v)
			if err != nil {
				return nil, err
			}
			r.FinalStatus = &normalized
		} else {
			r.FinalStatus = nil
		}
	}
	if in.ReportedAt != nil {
		parsed, err := parseTimestamp(*in.ReportedAt)
		if err != nil {
			return nil, apperror.Validation("invalid reportedAt %q", *in.ReportedAt)
		}
		r.ReportedAt = parsed
	}
	if in.PDFReportURL.Set() {
		if v, ok := in.PDFReportURL.Get(); ok && strings.TrimSpace(v) != "" {
			trimmed := strings.TrimSpace(v)
			r.PDFReportURL = &trimmed
		} else {
			r.PDFReportURL = nil
		}
	}
	if in.DetailsJSON.Set() {
		if v, ok := in.DetailsJSON.Get(); ok {
			r.DetailsJSON = v
		} else {
			r.DetailsJSON = nil
		}
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publish(ctx, EventResultUpdated, r)
	return r, nil
}
