package sample

import "context"

type ListFilter struct {
	Q           string
	Type        string
	Status      string
	TestOrderID string
	Code        string
	Cursor      string
	Limit       int
}

type Repository interface {
	Create(ctx context.Context, s *Sample) error
	GetByID(ctx context.Context, id string) (*Sample, error)
	List(ctx context.Context, f ListFilter) ([]*Enriched, error)
	Lookup(ctx context.Context, q, testOrderID string, limit int) ([]*Sample, error)
	Update(ctx context.Context, s *Sample) error
}
