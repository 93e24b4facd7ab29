// Package sample tracks physical specimens: one row per sealed urine or
// blood sample, tied to exactly one test order, carrying the chain-of-custody
// ledger as an opaque document.
package sample

import (
	"encoding/json"
	"time"

	"github.com/dcs/dcs/pkg/enums"
)

type Sample struct {
	ID                string          `json:"id"`
	TestOrderID       string          `json:"testOrderId"`
	Code              string          `json:"code"`
	Type              string          `json:"type"`
	Status            string          `json:"status"`
	CollectedAt       *time.Time      `json:"collectedAt"`
	CollectedByUserID *string         `json:"collectedByUserId"`
	ChainOfCustody    json.RawMessage `json:"chainOfCustody"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Enriched is the list row shape: the sample plus the parent order's
// priority and reason.
type Enriched struct {
	Sample
	OrderPriority string `json:"orderPriority"`
	OrderReason   string `json:"orderReason"`
}

var (
	Types    = enums.NewSet("type", "URINE", "BLOOD")
	Statuses = enums.NewSet("status", "SEALED", "SHIPPED", "RECEIVED", "ANALYZING", "ARCHIVED")
)

var transitions = map[string][]string{
	"SEALED":    {"SHIPPED"},
	"SHIPPED":   {"RECEIVED"},
	"RECEIVED":  {"ANALYZING"},
	"ANALYZING": {"ARCHIVED"},
	"ARCHIVED":  {},
}

// CanTransition reports whether a custody status change follows the forward
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
