package reports

import (
	"bytes"
	"fmt"

	"eventtts/models"

	"github.com/phpdave11/gofpdf"
)

// RenderPDF lays the stored report out as an A4 document.
func RenderPDF(r *models.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, tr(r.Title), "", "C", false)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Prepared by %s on %s",
		r.Input.PreparedBy, r.CreatedAt.Format("02 Jan 2006"))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "At a glance", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{"Tickets sold", fmt.Sprint(r.Stats.TicketsSold)},
		{"Orders", fmt.Sprint(r.Stats.TotalOrders)},
		{"Ticket revenue", fmt.Sprintf("%.2f", r.Stats.TotalRevenue)},
		{"Budget", fmt.Sprintf("%.2f", r.Input.Budget)},
		{"Actual expenditure", fmt.Sprintf("%.2f", r.Input.ActualExpenditure)},
	}
	for _, row := range rows {
		pdf.CellFormat(60, 7, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, sec := range r.Sections {
		pdf.SetFont("Arial", "B", 13)
		pdf.MultiCell(0, 8, tr(sec.Heading), "B", "L", false)
		pdf.Ln(1)
		pdf.SetFont("Arial", "", 11)
		for _, para := range sec.Content {
			pdf.MultiCell(0, 6, tr("- "+para), "", "L", false)
			pdf.Ln(1)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}
