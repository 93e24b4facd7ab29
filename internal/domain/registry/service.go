package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/dcs/dcs/pkg/apperror"
)

type Service struct {
	federations FederationRepository
	clubs       ClubRepository
	athletes    AthleteRepository
	labs        LabRepository
}

func NewService(federations FederationRepository, clubs ClubRepository, athletes AthleteRepository, labs LabRepository) *Service {
	return &Service{federations: federations, clubs: clubs, athletes: athletes, labs: labs}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// -- Federations / Clubs (lookup only) --

func (s *Service) SearchFederations(ctx context.Context, q string, limit int) ([]*Federation, error) {
	return s.federations.Search(ctx, strings.TrimSpace(q), clampLimit(limit, 10, 50))
}

func (s *Service) SearchClubs(ctx context.Context, q, federationID string, limit int) ([]*Club, error) {
	return s.clubs.Search(ctx, strings.TrimSpace(q), federationID, clampLimit(limit, 10, 50))
}

func (s *Service) GetFederation(ctx context.Context, id string) (*Federation, error) {
	return s.federations.GetByID(ctx, id)
}

func (s *Service) GetClub(ctx context.Context, id string) (*Club, error) {
	return s.clubs.GetByID(ctx, id)
}

// -- Athletes --

// CreateAthleteInput carries the raw create payload. The CPF arrives in
// clear and is hashed before it ever reaches a repository.
type CreateAthleteInput struct {
	CBFCode     string `json:"cbfCode"`
	FullName    string `json:"fullName"`
	BirthDate   string `json:"birthDate"`
	Nationality string `json:"nationality"`
	CPF         string `json:"cpf"`
	Sex         string `json:"sex"`
	Status      string `json:"status"`
}

func hashCPF(cpf string) string {
	sum := sha256.Sum256([]byte(cpf))
	return hex.EncodeToString(sum[:])
}

func (s *Service) CreateAthlete(ctx context.Context, in CreateAthleteInput) (*Athlete, error) {
	if strings.TrimSpace(in.CBFCode) == "" {
		return nil, apperror.Validation("cbfCode is required")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, apperror.Validation("fullName is required")
	}
	if strings.TrimSpace(in.CPF) == "" {
		return nil, apperror.Validation("cpf is required")
	}
	birthDate, err := time.Parse("2006-01-02", in.BirthDate)
	if err != nil {
		if birthDate, err = time.Parse(time.RFC3339, in.BirthDate); err != nil {
			return nil, apperror.Validation("invalid birthDate %q, use YYYY-MM-DD", in.BirthDate)
		}
	}
	sex, err := AthleteSexes.Normalize(in.Sex)
	if err != nil {
		return nil, err
	}
	status, err := AthleteStatuses.NormalizeOptional(in.Status, "ELIGIBLE")
	if err != nil {
		return nil, err
	}

	a := &Athlete{
		CBFCode:     strings.TrimSpace(in.CBFCode),
		FullName:    strings.TrimSpace(in.FullName),
		BirthDate:   birthDate,
		Nationality: strings.TrimSpace(in.Nationality),
		CPFHash:     hashCPF(in.CPF),
		Sex:         sex,
		Status:      status,
	}
	if err := s.athletes.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAthletes filters by free text and status. An unrecognized status
// filter matches nothing special: it is silently dropped, mirroring the
// permissive list endpoints elsewhere.
func (s *Service) ListAthletes(ctx context.Context, q, status, cursor string, limit int) ([]*Athlete, error) {
	if !AthleteStatuses.Contains(status) {
		status = ""
	} else {
		status, _ = AthleteStatuses.Normalize(status)
	}
	return s.athletes.List(ctx, strings.TrimSpace(q), status, cursor, clampLimit(limit, 50, 100))
}

func (s *Service) GetAthlete(ctx context.Context, id string) (*Athlete, error) {
	return s.athletes.GetByID(ctx, id)
}

// -- Labs --

type CreateLabInput struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

func (s *Service) CreateLab(ctx context.Context, in CreateLabInput) (*Lab, error) {
	if strings.TrimSpace(in.Code) == "" {
		return nil, apperror.Validation("code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperror.Validation("name is required")
	}
	l := &Lab{
		Code:     strings.TrimSpace(in.Code),
		Name:     strings.TrimSpace(in.Name),
		Country:  strings.TrimSpace(in.Country),
		IsActive: true,
	}
	if err := s.labs.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) ListLabs(ctx context.Context) ([]*Lab, error) {
	return s.labs.ListActive(ctx)
}

func (s *Service) GetLab(ctx context.Context, id string) (*Lab, error) {
	return s.labs.GetByID(ctx, id)
}

// UpdateLabInput is a sparse patch; nil fields are untouched.
type UpdateLabInput struct {
	Name     *string `json:"name"`
	Country  *string `json:"country"`
	IsActive *bool   `json:"isActive"`
}

func (s *Service) UpdateLab(ctx context.Context, id string, in UpdateLabInput) (*Lab, error) {
	l, err := s.labs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperror.Validation("name must not be blank")
		}
		l.Name = strings.TrimSpace(*in.Name)
	}
	if in.Country != nil {
		l.Country = strings.TrimSpace(*in.Country)
	}
	if in.IsActive != nil {
		l.IsActive = *in.IsActive
	}
	if err := s.labs.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}
