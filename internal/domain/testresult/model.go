// Package testresult records the laboratory's final ruling for a sample.
// Exactly one result may exist per sample; the database unique constraint is
// the source of truth and concurrent creates lose with a conflict.
package testresult

import (
	"encoding/json"
	"time"

	"github.com/dcs/dcs/pkg/enums"
)

type TestResult struct {
	ID           string          `json:"id"`
	SampleID     string          `json:"sampleId"`
	LabID        string          `json:"labId"`
	Outcome      string          `json:"outcome"`
	FinalStatus  *string         `json:"finalStatus"`
	ReportedAt   time.Time       `json:"reportedAt"`
	PDFReportURL *string         `json:"pdfReportUrl"`
	DetailsJSON  json.RawMessage `json:"detailsJson"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Enriched is the list row shape: the result plus the sample code and lab
// identity the list screen filters on.
type Enriched struct {
	TestResult
	SampleCode string `json:"sampleCode"`
	LabName    string `json:"labName"`
	LabCode    string `json:"labCode"`
}

var (
	Outcomes      = enums.NewSet("outcome", "NEGATIVE", "AAF", "INCONCLUSIVE")
	FinalStatuses = enums.NewSet("finalStatus", "CONFIRMED", "UNDER_APPEAL", "RETRACTED")
)
