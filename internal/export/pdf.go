// Package export renders cut plans for printing and for the terminal.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/eugenenazirov/kerf-planner/internal/cutplan"
)

// ErrEmptyPlan is returned when a plan has no segments to render.
var ErrEmptyPlan = errors.New("plan has no segments to export")

type rgb struct {
	R, G, B int
}

var pieceColors = []rgb{
	{R: 76, G: 175, B: 80},
	{R: 33, G: 150, B: 243},
	{R: 255, G: 152, B: 0},
	{R: 156, G: 39, B: 176},
	{R: 0, G: 188, B: 212},
	{R: 255, G: 235, B: 59},
	{R: 121, G: 85, B: 72},
}

// Page layout, A4 landscape in mm.
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	margin       = 12.0
	headerHeight = 18.0
	labelWidth   = 38.0
	rowHeight    = 9.0
	rowGap       = 5.0
	summaryLine  = 5.0
)

// WritePDF renders plan as a printable cut sheet: one bar per stock segment
// drawn to scale with kerf and offcut, followed by a summary.
func WritePDF(w io.Writer, plan cutplan.Plan) error {
	if len(plan.Segments) == 0 {
		return ErrEmptyPlan
	}

	pdf := buildPDF(plan)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func buildPDF(plan cutplan.Plan) *fpdf.Fpdf {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle(planTitle(plan), true)

	barWidth := pageWidth - 2*margin - labelWidth
	scale := barWidth / math.Max(plan.Params.Limit, longestSegment(plan))

	y := 0.0
	for i, seg := range plan.Segments {
		if i == 0 || y+rowHeight+rowGap > pageHeight-margin {
			pdf.AddPage()
			renderHeader(pdf, plan)
			y = margin + headerHeight
		}
		renderSegment(pdf, plan, i, seg, y, scale)
		y += rowHeight + rowGap
	}

	if y+40 > pageHeight-margin {
		pdf.AddPage()
		renderHeader(pdf, plan)
		y = margin + headerHeight
	}
	renderSummary(pdf, plan, y+4)
	return pdf
}

func planTitle(plan cutplan.Plan) string {
	if plan.Name != "" {
		return "Cut plan: " + plan.Name
	}
	return "Cut plan " + plan.ID
}

func longestSegment(plan cutplan.Plan) float64 {
	longest := 0.0
	for _, seg := range plan.Segments {
		longest = math.Max(longest, seg.Stats.Payload+seg.Stats.KerfLoss)
	}
	return longest
}

func renderHeader(pdf *fpdf.Fpdf, plan cutplan.Plan) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(pageWidth-2*margin, 7, planTitle(plan), "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(margin, margin+8)
	params := fmt.Sprintf("Stock length: %g mm | Kerf: %g mm | Precision: %d | Created: %s",
		plan.Params.Limit, plan.Params.Kerf, plan.Params.Precision, plan.CreatedAt.Format("2006-01-02 15:04"))
	pdf.CellFormat(pageWidth-2*margin, 5, params, "", 0, "L", false, 0, "")
}

func renderSegment(pdf *fpdf.Fpdf, plan cutplan.Plan, index int, seg cutplan.Segment, y, scale float64) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(margin, y)
	pdf.CellFormat(labelWidth, rowHeight/2, fmt.Sprintf("Segment %d", index+1), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(margin, y+rowHeight/2)
	stats := fmt.Sprintf("%.0f%% used, offcut %g", seg.Stats.Utilization*100, round(seg.Stats.Offcut))
	if seg.Stats.Oversized {
		pdf.SetTextColor(200, 0, 0)
		stats = "OVER STOCK LENGTH"
	}
	pdf.CellFormat(labelWidth, rowHeight/2, stats, "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	x0 := margin + labelWidth

	// Stock background.
	pdf.SetFillColor(210, 180, 140)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.3)
	pdf.Rect(x0, y, plan.Params.Limit*scale, rowHeight, "FD")

	x := x0
	for _, cut := range seg.Cuts {
		width := cut.Length * scale
		col := pieceColors[cut.SourceIndex%len(pieceColors)]
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.Rect(x, y, width, rowHeight, "FD")

		label := fmt.Sprintf("%g", cut.Length)
		if cut.Mark != "" {
			label = cut.Mark + " " + label
		}
		pdf.SetFont("Helvetica", "", 6)
		if pdf.GetStringWidth(label)+1 < width {
			pdf.SetXY(x, y)
			pdf.CellFormat(width, rowHeight, label, "", 0, "C", false, 0, "")
		}
		x += width

		// Every seated piece is charged one cut.
		if kerf := plan.Params.Kerf * scale; kerf > 0 {
			pdf.SetFillColor(40, 40, 40)
			pdf.Rect(x, y, kerf, rowHeight, "F")
			x += kerf
		}
	}
}

func renderSummary(pdf *fpdf.Fpdf, plan cutplan.Plan, y float64) {
	s := plan.Summary
	lines := []string{
		fmt.Sprintf("Stock segments: %d", s.StockUsed),
		fmt.Sprintf("Pieces delivered: %g mm", round(s.TotalPayload)),
		fmt.Sprintf("Kerf loss: %g mm", round(s.TotalKerf)),
		fmt.Sprintf("Offcuts: %g mm", round(s.TotalOffcut)),
		fmt.Sprintf("Total waste: %g mm", round(s.TotalWaste)),
	}
	if n := len(s.OversizedSegments); n > 0 {
		lines = append(lines, fmt.Sprintf("Warning: %d segment(s) exceed the stock length", n))
	}
	lines = append(lines, plan.Warnings...)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(margin, y)
	pdf.CellFormat(pageWidth-2*margin, 6, "Summary", "", 0, "L", false, 0, "")
	y += 6

	for _, line := range lines {
		if y+summaryLine > pageHeight-margin {
			pdf.AddPage()
			renderHeader(pdf, plan)
			y = margin + headerHeight
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetXY(margin, y)
		pdf.CellFormat(pageWidth-2*margin, summaryLine, line, "", 0, "L", false, 0, "")
		y += summaryLine
	}
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
