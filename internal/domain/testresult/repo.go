package testresult

import (
	"context"
	"time"
)

type ListFilter struct {
	Q           string
	Outcome     string
	FinalStatus string
	LabID       string
	SampleID    string
	From        *time.Time
	To          *time.Time
	Cursor      string
	Limit       int
}

type Repository interface {
	Create(ctx context.Context, r *TestResult) error
	ExistsForSample(ctx context.Context, sampleID string) (bool, error)
	GetByID(ctx context.Context, id string) (*TestResult, error)
	List(ctx context.Context, f ListFilter) ([]*Enriched, error)
	Update(ctx context.Context, r *TestResult) error
}
