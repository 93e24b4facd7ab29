package labassignment

import "context"

type ListFilter struct {
	Q      string
	LabID  string
	Status string
	Cursor string
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, a *LabAssignment) error
	GetByID(ctx context.Context, id string) (*LabAssignment, error)
	List(ctx context.Context, f ListFilter) ([]*Enriched, error)
	Update(ctx context.Context, a *LabAssignment) error
}
