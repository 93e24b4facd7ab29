package testorder

import "context"

// ListFilter narrows the order list. Zero values mean "no filter".
type ListFilter struct {
	Status       string
	FederationID string
	ClubID       string
	AthleteID    string
	MatchID      string
	Cursor       string
	Limit        int
}

type Repository interface {
	Create(ctx context.Context, o *TestOrder) error
	GetByID(ctx context.Context, id string) (*TestOrder, error)
	List(ctx context.Context, f ListFilter) ([]*TestOrder, error)
	Lookup(ctx context.Context, q string, limit int) ([]*TestOrder, error)
	Update(ctx context.Context, o *TestOrder) error
	SamplesForOrder(ctx context.Context, orderID string) ([]*SampleSummary, error)
	AssignmentsForOrder(ctx context.Context, orderID string) ([]*AssignmentSummary, error)
}
