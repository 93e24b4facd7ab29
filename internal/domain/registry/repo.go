package registry

import "context"

type FederationRepository interface {
	Search(ctx context.Context, q string, limit int) ([]*Federation, error)
	GetByID(ctx context.Context, id string) (*Federation, error)
	Create(ctx context.Context, f *Federation) error
}

type ClubRepository interface {
	Search(ctx context.Context, q, federationID string, limit int) ([]*Club, error)
	GetByID(ctx context.Context, id string) (*Club, error)
	Create(ctx context.Context, c *Club) error
}

type AthleteRepository interface {
	Create(ctx context.Context, a *Athlete) error
	GetByID(ctx context.Context, id string) (*Athlete, error)
	List(ctx context.Context, q, status, cursor string, limit int) ([]*Athlete, error)
}

type LabRepository interface {
	Create(ctx context.Context, l *Lab) error
	GetByID(ctx context.Context, id string) (*Lab, error)
	ListActive(ctx context.Context) ([]*Lab, error)
	Update(ctx context.Context, l *Lab) error
}
