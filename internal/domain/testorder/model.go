// Package testorder implements the aggregation root of the doping-control
// workflow: the administrative decision to test an athlete. Samples and lab
// assignments reference an order; nothing in the chain exists without one.
package testorder

import (
	"time"

	"github.com/dcs/dcs/pkg/enums"
)

type TestOrder struct {
	ID              string    `json:"id"`
	FederationID    string    `json:"federationId"`
	ClubID          *string   `json:"clubId"`
	AthleteID       *string   `json:"athleteId"`
	MatchID         *string   `json:"matchId"`
	Reason          string    `json:"reason"`
	Priority        string    `json:"priority"`
	Status          string    `json:"status"`
	CreatedByUserID string    `json:"createdByUserId"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Detail is the single-order view: the order plus its samples and lab
// assignments in summary form.
type Detail struct {
	TestOrder
	Samples     []*SampleSummary     `json:"samples"`
	Assignments []*AssignmentSummary `json:"labAssignments"`
}

type SampleSummary struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	CollectedAt *time.Time `json:"collectedAt"`
}

type AssignmentSummary struct {
	ID         string    `json:"id"`
	LabID      string    `json:"labId"`
	LabName    string    `json:"labName"`
	LabCode    string    `json:"labCode"`
	Status     string    `json:"status"`
	AssignedAt time.Time `json:"assignedAt"`
}

var (
	Reasons    = enums.NewSet("reason", "IN_COMPETITION", "OUT_OF_COMPETITION", "TARGETED", "RANDOM")
	Priorities = enums.NewSet("priority", "LOW", "NORMAL", "HIGH", "URGENT")
	Statuses   = enums.NewSet("status", "REQUESTED", "ASSIGNED", "COLLECTING", "SHIPPED", "RECEIVED", "ANALYZING", "COMPLETED", "VOID")
)

// transitions is the forward order lifecycle. VOID is reachable from every
// state except COMPLETED. Only consulted when strict transitions are enabled.
var transitions = map[string][]string{
	"REQUESTED":  {"ASSIGNED", "VOID"},
	"ASSIGNED":   {"COLLECTING", "VOID"},
	"COLLECTING": {"SHIPPED", "VOID"},
	"SHIPPED":    {"RECEIVED", "VOID"},
	"RECEIVED":   {"ANALYZING", "VOID"},
	"ANALYZING":  {"COMPLETED", "VOID"},
	"COMPLETED":  {},
	"VOID":       {},
}

// CanTransition reports whether moving from one status to another follows the
// forward lifecycle. A no-op transition is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
