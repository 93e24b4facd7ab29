// Package reporting renders the doping-control certificate (laudo) for a
// finalized test result and serves operational measure reports.
package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/dcs/dcs/internal/domain/testresult"
)

// Renderer produces the certificate PDF from a fully resolved result.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(data *testresult.ReportData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Laudo %s", data.ID), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Laudo de Controle de Dopagem", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Resultado %s", data.ID), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, title, "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.Ln(1)
	}
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, value, "", "L", false)
	}

	section("Resultado")
	row("Outcome", data.Outcome)
	if data.FinalStatus != nil {
		row("Final status", *data.FinalStatus)
	} else {
		row("Final status", "")
	}
	row("Reported at", data.ReportedAt.Format(time.RFC3339))
	if data.PDFReportURL != nil {
		row("External report", *data.PDFReportURL)
	}
	pdf.Ln(3)

	if data.Lab != nil {
		section("Laboratório")
		row("Code", data.Lab.Code)
		row("Name", data.Lab.Name)
		row("Country", data.Lab.Country)
		pdf.Ln(3)
	}

	if data.Sample != nil {
		section("Amostra")
		row("Code", data.Sample.Code)
		row("Type", data.Sample.Type)
		row("Status", data.Sample.Status)
		if data.Sample.CollectedAt != nil {
			row("Collected at", data.Sample.CollectedAt.Format(time.RFC3339))
		}
		pdf.Ln(3)
	}

	if data.Order != nil {
		section("Ordem de Teste")
		row("Order", data.Order.ID)
		row("Reason", data.Order.Reason)
		row("Priority", data.Order.Priority)
		row("Status", data.Order.Status)
		pdf.Ln(3)
	}

	if data.Athlete != nil || data.Club != nil || data.Federation != nil {
		section("Identificação")
		if data.Athlete != nil {
			row("Athlete", fmt.Sprintf("%s (%s)", data.Athlete.FullName, data.Athlete.CBFCode))
		}
		if data.Club != nil {
			row("Club", data.Club.Name)
		}
		if data.Federation != nil {
			row("Federation", fmt.Sprintf("%s (%s)", data.Federation.Name, data.Federation.UF))
		}
		pdf.Ln(3)
	}

	if len(data.DetailsJSON) > 0 {
		section("Detalhes da Análise")
		pdf.SetFont("Courier", "", 8)
		pdf.MultiCell(0, 4, prettyJSON(data.DetailsJSON), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}

func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
