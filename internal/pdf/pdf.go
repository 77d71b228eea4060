// Package pdf renders a completed need analysis into a fixed single page
// A4 document.
package pdf

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"needanalysis/pkg/types"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin  = 15.0
	contentW    = 180.0
	lineH       = 6.0
	labelW      = 55.0
	checkboxW   = 4.0
	panelGap    = 6.0
	signatureH  = 22.0
	fontFamily  = "Helvetica"
	titleSize   = 16
	sectionSize = 12
	bodySize    = 10
)

type Options struct {
	Title       string
	AdvisorName string
	GeneratedAt time.Time
}

type renderer struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

// Render writes the document for record to w.
func Render(w io.Writer, record types.FormRecord, opts Options) error {
	if opts.Title == "" {
		opts.Title = "Need Analysis"
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.SetTitle(opts.Title, true)
	doc.SetCreator("needanalysis", true)
	doc.SetCreationDate(opts.GeneratedAt)
	doc.AddPage()

	r := &renderer{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}

	r.header(opts)
	r.personal(record.Step1)
	r.needs(record.Step2)
	r.calculation(record.Step3)
	r.signatures(record.CustomerName(), opts.AdvisorName)

	if err := doc.Error(); err != nil {
		return fmt.Errorf("failed to lay out pdf: %w", err)
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}

	return nil
}

func (r *renderer) header(opts Options) {
	r.doc.SetFont(fontFamily, "B", titleSize)
	r.doc.CellFormat(contentW, 10, r.tr(opts.Title), "", 1, "C", false, 0, "")

	r.doc.SetFont(fontFamily, "", bodySize)
	r.doc.CellFormat(contentW, lineH, r.tr("Prepared "+DisplayDate(opts.GeneratedAt)), "", 1, "C", false, 0, "")
	r.doc.Ln(4)
}

func (r *renderer) section(title string) {
	r.doc.SetFont(fontFamily, "B", sectionSize)
	r.doc.SetFillColor(230, 236, 245)
	r.doc.CellFormat(contentW, 8, r.tr(title), "", 1, "L", true, 0, "")
	r.doc.Ln(1)
	r.doc.SetFont(fontFamily, "", bodySize)
}

func (r *renderer) row(label, value string) {
	r.doc.SetFont(fontFamily, "B", bodySize)
	r.doc.CellFormat(labelW, lineH, r.tr(label), "", 0, "L", false, 0, "")
	r.doc.SetFont(fontFamily, "", bodySize)
	r.doc.MultiCell(contentW-labelW, lineH, r.tr(value), "", "L", false)
}

func (r *renderer) personal(p types.PersonalDetails) {
	r.section("Personal Details")

	dob := "-"
	if p.DateOfBirth != nil {
		dob = DisplayDate(p.DateOfBirth.Time)
	}

	r.row("Full name", text(p.FullName))
	r.row("Date of birth", dob)
	r.row("Age", whole(p.Age))
	r.row("Spouse name", text(p.SpouseName))
	r.row("Address", text(p.Address))
	r.row("Phone number", text(p.PhoneNumber))
	r.row("Number of children", whole(p.NumberOfChildren))
	r.row("Children ages", text(p.ChildrenAges))
	r.row("Occupation", text(p.Occupation))
	r.row("Monthly income", Currency(p.MonthlyIncome))
	r.doc.Ln(3)
}

func (r *renderer) needs(n types.Needs) {
	r.section("Insurance Needs")
	for _, f := range n.Insurance().Flags() {
		r.checkbox(f)
	}
	r.doc.Ln(2)

	r.section("Health Covers")
	for _, f := range n.Health().Flags() {
		r.checkbox(f)
	}
	r.doc.Ln(3)
}

func (r *renderer) checkbox(f types.Flag) {
	x, y := r.doc.GetX(), r.doc.GetY()
	boxY := y + (lineH-checkboxW)/2

	r.doc.Rect(x, boxY, checkboxW, checkboxW, "D")
	if f.Checked {
		r.doc.Line(x+0.8, boxY+2.2, x+1.7, boxY+3.2)
		r.doc.Line(x+1.7, boxY+3.2, x+3.3, boxY+0.8)
	}

	r.doc.SetX(x + checkboxW + 2)
	r.doc.CellFormat(contentW-checkboxW-2, lineH, r.tr(f.Label), "", 1, "L", false, 0, "")
}

func (r *renderer) calculation(c types.Calculation) {
	r.section("Human Life Value")

	panelW := (contentW - panelGap) / 2
	top := r.doc.GetY()

	r.panel(pageMargin, top, panelW, "Human Life Value", []panelLine{
		{"Fixed monthly expenses", Currency(c.FixedMonthlyExpenses)},
		{"Bank interest rate", Percent(c.BankInterestRate)},
	}, Amount(int64Value(c.HLValue)))

	r.panel(pageMargin+panelW+panelGap, top, panelW, "Actual Human Life Value", []panelLine{
		{"Human life value", Amount(int64Value(c.HLValue))},
		{"Unsecured bank loan", Currency(c.UnsecuredBankLoan)},
		{"Cash in hand / insurance", Currency(c.CashInHandInsurance)},
	}, Amount(int64Value(c.ActualHLValue)))

	r.doc.SetXY(pageMargin, top+panelHeight(3)+4)
}

type panelLine struct {
	label string
	value string
}

func panelHeight(lines int) float64 {
	return float64(lines+2)*lineH + 4
}

func (r *renderer) panel(x, y, w float64, title string, lines []panelLine, total string) {
	r.doc.Rect(x, y, w, panelHeight(3), "D")

	r.doc.SetXY(x+2, y+2)
	r.doc.SetFont(fontFamily, "B", bodySize)
	r.doc.CellFormat(w-4, lineH, r.tr(title), "", 2, "L", false, 0, "")

	r.doc.SetFont(fontFamily, "", bodySize)
	for _, l := range lines {
		r.doc.SetX(x + 2)
		r.doc.CellFormat((w-4)*0.6, lineH, r.tr(l.label), "", 0, "L", false, 0, "")
		r.doc.CellFormat((w-4)*0.4, lineH, r.tr(l.value), "", 1, "R", false, 0, "")
	}

	r.doc.SetX(x + 2)
	r.doc.SetFont(fontFamily, "B", sectionSize)
	r.doc.CellFormat(w-4, lineH, r.tr(total), "T", 1, "R", false, 0, "")
}

func (r *renderer) signatures(customer, advisor string) {
	half := (contentW - panelGap) / 2
	top := r.doc.GetY() + signatureH

	r.signature(pageMargin, top, half, "Customer signature", customer)
	r.signature(pageMargin+half+panelGap, top, half, "Advisor signature", advisor)
}

func (r *renderer) signature(x, y, w float64, caption, name string) {
	r.doc.Line(x, y, x+w, y)

	r.doc.SetXY(x, y+1)
	r.doc.SetFont(fontFamily, "", bodySize)
	r.doc.CellFormat(w, lineH, r.tr(caption), "", 2, "C", false, 0, "")

	if name != "" {
		r.doc.SetX(x)
		r.doc.CellFormat(w, lineH, r.tr("("+name+")"), "", 2, "C", false, 0, "")
	}
}

func text(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func whole(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func int64Value(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
