// Package labassignment records custody handoffs: which laboratory a test
// order's samples were handed to, and how far along the pickup is.
package labassignment

import (
	"time"

	"github.com/dcs/dcs/pkg/enums"
)

type LabAssignment struct {
	ID          string    `json:"id"`
	TestOrderID string    `json:"testOrderId"`
	LabID       string    `json:"labId"`
	Status      string    `json:"status"`
	AssignedAt  time.Time `json:"assignedAt"`
}

// Enriched is the list row shape: the assignment plus the lab's name and code.
type Enriched struct {
	LabAssignment
	LabName string `json:"labName"`
	LabCode string `json:"labCode"`
}

var Statuses = enums.NewSet("status", "AWAITING_PICKUP", "IN_TRANSIT", "RECEIVED", "PROCESSING", "DONE")

var transitions = map[string][]string{
	"AWAITING_PICKUP": {"IN_TRANSIT"},
	"IN_TRANSIT":      {"RECEIVED"},
	"RECEIVED":        {"PROCESSING"},
	"PROCESSING":      {"DONE"},
	"DONE":            {},
}

// CanTransition reports whether a handoff status change follows the forward
// chain. Only consulted when strict transitions are enabled.
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
