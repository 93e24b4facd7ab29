// Package sandbox seeds a deterministic demo dataset: two federations with
// clubs and athletes, two WADA labs, one user per role, and a fully worked
// order → sample → assignment → result chain. Safe to run repeatedly.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dcs/dcs/internal/domain/identity"
	"github.com/dcs/dcs/internal/domain/labassignment"
	"github.com/dcs/dcs/internal/domain/registry"
	"github.com/dcs/dcs/internal/domain/sample"
	"github.com/dcs/dcs/internal/domain/testorder"
	"github.com/dcs/dcs/internal/domain/testresult"
	"github.com/dcs/dcs/pkg/apperror"
)

// DemoPassword is the password assigned to every seeded account.
const DemoPassword = "cbf-demo-2025"

type Seeder struct {
	federations registry.FederationRepository
	clubs       registry.ClubRepository
	athletes    registry.AthleteRepository
	labs        registry.LabRepository
	users       *identity.Service
	orders      testorder.Repository
	samples     sample.Repository
	assignments labassignment.Repository
	results     testresult.Repository
	log         zerolog.Logger
}

func NewSeeder(
	federations registry.FederationRepository,
	clubs registry.ClubRepository,
	athletes registry.AthleteRepository,
	labs registry.LabRepository,
	users *identity.Service,
	orders testorder.Repository,
	samples sample.Repository,
	assignments labassignment.Repository,
	results testresult.Repository,
	log zerolog.Logger,
) *Seeder {
	return &Seeder{
		federations: federations,
		clubs:       clubs,
		athletes:    athletes,
		labs:        labs,
		users:       users,
		orders:      orders,
		samples:     samples,
		assignments: assignments,
		results:     results,
		log:         log,
	}
}

// Run loads the demo dataset. Every record carries a fixed id, so a second
// run finds the rows already in place and moves on.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.seedFederations(ctx); err != nil {
		return err
	}
	if err := s.seedClubs(ctx); err != nil {
		return err
	}
	if err := s.seedLabs(ctx); err != nil {
		return err
	}
	if err := s.seedAthletes(ctx); err != nil {
		return err
	}
	if err := s.seedUsers(ctx); err != nil {
		return err
	}
	if err := s.seedWorkedChain(ctx); err != nil {
		return err
	}
	s.log.Info().Msg("sandbox dataset seeded")
	return nil
}

func (s *Seeder) seedFederations(ctx context.Context) error {
	for _, f := range []*registry.Federation{
		{ID: "seed-fed-sp", Name: "Federação Paulista de Futebol", UF: "SP"},
		{ID: "seed-fed-rj", Name: "Federação de Futebol do Rio de Janeiro", UF: "RJ"},
	} {
		if _, err := s.federations.GetByID(ctx, f.ID); err == nil {
			continue
		} else if !apperror.IsNotFound(err) {
			return err
		}
		if err := s.federations.Create(ctx, f); err != nil {
			return fmt.Errorf("seed federation %s: %w", f.UF, err)
		}
	}
	return nil
}

func (s *Seeder) seedClubs(ctx context.Context) error {
	for _, c := range []*registry.Club{
		{ID: "seed-club-1", Name: "Sport Club Paulistano", FederationID: "seed-fed-sp"},
		{ID: "seed-club-2", Name: "Clube Regatas Guanabara", FederationID: "seed-fed-rj"},
	} {
		if _, err := s.clubs.GetByID(ctx, c.ID); err == nil {
			continue
		} else if !apperror.IsNotFound(err) {
			return err
		}
		if err := s.clubs.Create(ctx, c); err != nil {
			return fmt.Errorf("seed club %s: %w", c.Name, err)
		}
	}
	return nil
}

func (s *Seeder) seedLabs(ctx context.Context) error {
	for _, l := range []*registry.Lab{
		{ID: "seed-lab-df", Code: "WADA-DF-007", Name: "Laboratório Brasileiro de Controle de Dopagem", Country: "BR", IsActive: true},
		{ID: "seed-lab-rj", Code: "WADA-RJ-001", Name: "Ladetec UFRJ", Country: "BR", IsActive: true},
	} {
		if _, err := s.labs.GetByID(ctx, l.ID); err == nil {
			continue
		} else if !apperror.IsNotFound(err) {
			return err
		}
		if err := s.labs.Create(ctx, l); err != nil {
			return fmt.Errorf("seed lab %s: %w", l.Code, err)
		}
	}
	return nil
}

func (s *Seeder) seedAthletes(ctx context.Context) error {
	names := []string{"Ana Souza", "Bruno Lima", "Carla Mendes"}
	for i, name := range names {
		a := &registry.Athlete{
			ID:          fmt.Sprintf("seed-athlete-%d", i+1),
			CBFCode:     fmt.Sprintf("2025-%06d", i+1),
			FullName:    name,
			BirthDate:   time.Date(1998+i, time.March, 15, 0, 0, 0, 0, time.UTC),
			Nationality: "BR",
			CPFHash:     fmt.Sprintf("seed-cpf-hash-%d", i+1),
			Sex:         []string{"F", "M", "F"}[i],
			Status:      "ELIGIBLE",
		}
		if _, err := s.athletes.GetByID(ctx, a.ID); err == nil {
			continue
		} else if !apperror.IsNotFound(err) {
			return err
		}
		if err := s.athletes.Create(ctx, a); err != nil {
			return fmt.Errorf("seed athlete %s: %w", a.CBFCode, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context) error {
	fedID := "seed-fed-sp"
	clubID := "seed-club-1"
	labID := "seed-lab-df"
	accounts := []identity.CreateUserInput{
		{Email: "admin@cbf.local", FullName: "Administrador CBF", Role: "ADMIN_CBF", Password: DemoPassword},
		{Email: "fed-sp@cbf.local", FullName: "Operador FPF", Role: "FED_USER", Password: DemoPassword, FederationID: &fedID},
		{Email: "club@cbf.local", FullName: "Médico do Clube", Role: "CLUB_USER", Password: DemoPassword, ClubID: &clubID},
		{Email: "lab@cbf.local", FullName: "Analista LBCD", Role: "LAB_USER", Password: DemoPassword, LabID: &labID},
		{Email: "regulator@cbf.local", FullName: "Regulador ABCD", Role: "REGULATOR", Password: DemoPassword},
		{Email: "auditor@cbf.local", FullName: "Auditor Externo", Role: "AUDITOR", Password: DemoPassword},
	}
	for _, in := range accounts {
		if _, err := s.users.CreateUser(ctx, in); err != nil {
			if apperror.IsConflict(err) {
				continue
			}
			return fmt.Errorf("seed user %s: %w", in.Email, err)
		}
	}
	return nil
}

// seedWorkedChain demonstrates the full lifecycle: a completed order whose
// sample went through the lab and came back negative.
func (s *Seeder) seedWorkedChain(ctx context.Context) error {
	athleteID := "seed-athlete-1"
	clubID := "seed-club-1"
	collected := time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)

	order := &testorder.TestOrder{
		ID:              "seed-order-1",
		FederationID:    "seed-fed-sp",
		ClubID:          &clubID,
		AthleteID:       &athleteID,
		Reason:          "IN_COMPETITION",
		Priority:        "HIGH",
		Status:          "COMPLETED",
		CreatedByUserID: "seed",
	}
	if _, err := s.orders.GetByID(ctx, order.ID); apperror.IsNotFound(err) {
		if err := s.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("seed order: %w", err)
		}
	} else if err != nil {
		return err
	}

	collector := "seed"
	sm := &sample.Sample{
		ID:                "seed-sample-1",
		TestOrderID:       order.ID,
		Code:              "CBF-UR-0001",
		Type:              "URINE",
		Status:            "ARCHIVED",
		CollectedAt:       &collected,
		CollectedByUserID: &collector,
		ChainOfCustody: json.RawMessage(`{"sealId":"SEAL-0001","transfers":[` +
			`{"timestamp":"2025-06-10T10:00:00Z","from":"DCO","to":"courier","notes":"sealed on site"},` +
			`{"timestamp":"2025-06-11T08:00:00Z","from":"courier","to":"WADA-DF-007","notes":"received intact"}]}`),
	}
	if _, err := s.samples.GetByID(ctx, sm.ID); apperror.IsNotFound(err) {
		if err := s.samples.Create(ctx, sm); err != nil {
			return fmt.Errorf("seed sample: %w", err)
		}
	} else if err != nil {
		return err
	}

	assignment := &labassignment.LabAssignment{
		ID:          "seed-assignment-1",
		TestOrderID: order.ID,
		LabID:       "seed-lab-df",
		Status:      "DONE",
		AssignedAt:  collected.Add(2 * time.Hour),
	}
	if _, err := s.assignments.GetByID(ctx, assignment.ID); apperror.IsNotFound(err) {
		if err := s.assignments.Create(ctx, assignment); err != nil {
			return fmt.Errorf("seed assignment: %w", err)
		}
	} else if err != nil {
		return err
	}

	result := &testresult.TestResult{
		ID:          "seed-result-1",
		SampleID:    sm.ID,
		LabID:       "seed-lab-df",
		Outcome:     "NEGATIVE",
		ReportedAt:  collected.AddDate(0, 0, 5),
		DetailsJSON: json.RawMessage(`{"method":"GC-MS","matrix":"urine","panel":"WADA 2025"}`),
	}
	if _, err := s.results.GetByID(ctx, result.ID); apperror.IsNotFound(err) {
		if err := s.results.Create(ctx, result); err != nil {
			return fmt.Errorf("seed result: %w", err)
		}
	} else if err != nil {
		return err
	}
	return nil
}
