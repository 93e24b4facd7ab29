// Package registry holds the reference data every lifecycle entity points
// at: federations, clubs, athletes and analysis laboratories. These records
// are simple keyed rows; the interesting invariants are the uniqueness
// constraints (federation UF, athlete CBF code, lab code).
package registry

import (
	"time"

	"github.com/dcs/dcs/pkg/enums"
)

// Federation is a state football federation, uniquely keyed by its UF.
type Federation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UF        string    `json:"uf"`
	CreatedAt time.Time `json:"createdAt"`
}

// Club belongs to one federation. Club ids may be seeded non-uuid values.
type Club struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	FederationID string    `json:"federationId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Athlete is a registered player. The CPF is never stored in clear, only its
// SHA-256 hash for duplicate detection.
type Athlete struct {
	ID          string    `json:"id"`
	CBFCode     string    `json:"cbfCode"`
	FullName    string    `json:"fullName"`
	BirthDate   time.Time `json:"birthDate"`
	Nationality string    `json:"nationality"`
	CPFHash     string    `json:"-"`
	Sex         string    `json:"sex"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Lab is an accredited analysis laboratory. Inactive labs cannot receive new
// assignments or results.
type Lab struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	AthleteStatuses = enums.NewSet("status", "ELIGIBLE", "SUSPENDED", "INACTIVE")
	AthleteSexes    = enums.NewSet("sex", "M", "F", "O")
)
