package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/pqc_analyzer_go/internal/quantity"
	"github.com/user/pqc_analyzer_go/internal/resultset"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)

	quantitiesPerTable = 8
)

// Figure is a rendered plot placed in the PDF report.
type Figure struct {
	Name    string // unique image name
	Caption string
	PNG     []byte
	Aspect  float64 // height / width
}

// pdfStyler holds reusable styling and state for PDF generation
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	styles      map[string]func()
	lineHeight  float64
	currentY    float64 // manually tracked Y position for flowing content
	pageHeight  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		styles:      make(map[string]func()),
		lineHeight:  6,
		pageHeight:  pdfPageHeightLandscape - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 13)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 7)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 7)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableSummary"] = func() {
		s.pdf.SetFont("Arial", "I", 7)
		s.pdf.SetTextColor(50, 50, 50)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageHeight {
		s.newPage()
	}
}

func (s *pdfStyler) writeParagraph(text string, styleName string, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitText(text, pdfContentWidth)
	s.checkAddPage(float64(len(lines)) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

func (s *pdfStyler) addImage(fig Figure, width float64) {
	s.pdf.RegisterImageOptionsReader(fig.Name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(fig.PNG))
	if width > pdfContentWidth {
		width = pdfContentWidth
	}
	aspect := fig.Aspect
	if aspect <= 0 {
		aspect = 0.625
	}
	height := width * aspect

	captionHeight := 0.0
	if fig.Caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	x := pdfMargin + (pdfContentWidth-width)/2
	s.pdf.ImageOptions(fig.Name, x, s.currentY, width, height, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	s.currentY += height

	if fig.Caption != "" {
		s.addSpacer(1)
		s.writeParagraph(fig.Caption, "normal", "C")
	}
	s.addSpacer(2)
}

// cell writes one table cell at x on the current row, filled with fill
// unless it is nil.
func (s *pdfStyler) cell(x, width float64, text string, fill color.Color) {
	s.pdf.SetXY(x, s.currentY)
	if fill != nil {
		r, g, b, _ := fill.RGBA()
		s.pdf.SetFillColor(int(r>>8), int(g>>8), int(b>>8))
	}
	s.pdf.CellFormat(width, s.lineHeight, text, "1", 0, "C", fill != nil, 0, "")
}

func (s *pdfStyler) tableHeader(headers []string, widths []float64) {
	s.applyStyle("tableHeader")
	x := pdfMargin
	for i, h := range headers {
		s.pdf.SetXY(x, s.currentY)
		s.pdf.CellFormat(widths[i], s.lineHeight, h, "1", 0, "C", true, 0, "")
		x += widths[i]
	}
	s.currentY += s.lineHeight
}

// BuildPDFReport writes the batch report: a summary of every quantity and
// pooled total, per-sample value tables coloured by status, then figures.
func BuildPDFReport(w io.Writer, rs *resultset.ResultSet, figures []Figure) error {
	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle(fmt.Sprintf("PQC batch %s", rs.Batch), true)
	pdf.AddPage()

	styler := newPDFStyler(pdf)
	styler.writeParagraph(fmt.Sprintf("PQC Batch Report: %s", rs.Batch), "h1", "C")
	styler.writeParagraph(fmt.Sprintf("%d samples, generated %s", rs.Len(), time.Now().Format("2006-01-02 15:04")), "normal", "C")
	styler.addSpacer(4)

	if rs.Len() == 0 {
		styler.writeParagraph("No samples to display.", "normal", "L")
		return output(pdf, w)
	}

	quantities := make([]*quantity.Quantity, 0, len(rs.Keys()))
	for _, key := range rs.Keys() {
		q, err := rs.Quantity(key)
		if err != nil {
			return err
		}
		quantities = append(quantities, q)
	}
	totals, err := rs.Totals()
	if err != nil {
		return err
	}

	styler.writeParagraph("Summary", "h2", "L")
	summaryTable(styler, append(append([]*quantity.Quantity(nil), quantities...), totals...))

	labels := rs.Labels()
	for lo := 0; lo < len(quantities); lo += quantitiesPerTable {
		hi := min(lo+quantitiesPerTable, len(quantities))
		styler.newPage()
		styler.writeParagraph(fmt.Sprintf("Sample values (%d-%d of %d)", lo+1, hi, len(quantities)), "h2", "L")
		if err := sampleTable(styler, labels, quantities[lo:hi]); err != nil {
			return err
		}
	}

	if len(figures) > 0 {
		styler.newPage()
		styler.writeParagraph("Graphical Analysis", "h1", "C")
		styler.addSpacer(3)
		for _, fig := range figures {
			styler.addImage(fig, pdfContentWidth*0.6)
		}
	}
	return output(pdf, w)
}

func output(pdf *gofpdf.Fpdf, w io.Writer) error {
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func summaryTable(s *pdfStyler, quantities []*quantity.Quantity) {
	headers := []string{"Quantity", "Unit", "Expected", "Min", "Max", "Total", "Failed", "Too high", "Too low", "Median", "Average", "Std dev.", "Yield"}
	widths := make([]float64, len(headers))
	widths[0] = 0.2 * pdfContentWidth
	for i := 1; i < len(widths); i++ {
		widths[i] = 0.8 * pdfContentWidth / float64(len(widths)-1)
	}

	s.checkAddPage(2 * s.lineHeight)
	s.tableHeader(headers, widths)
	for _, q := range quantities {
		if s.currentY+s.lineHeight > s.pageHeight {
			s.newPage()
			s.tableHeader(headers, widths)
		}
		st := q.GetStats()
		if degenerate(st) {
			st = quantity.Stats{NTot: st.NTot, NNan: st.NNan, TotMed: math.NaN(), TotAvg: math.NaN(), TotStd: math.NaN()}
		}
		row := []string{
			q.Label,
			q.Unit,
			quantity.FormatNumber(q.Expected, q.Expected),
			quantity.FormatNumber(q.MinAllowed(), q.Expected),
			quantity.FormatNumber(q.MaxAllowed(), q.Expected),
			fmt.Sprintf("%d", st.NTot),
			fmt.Sprintf("%d", st.NNan),
			fmt.Sprintf("%d", st.NTooHigh),
			fmt.Sprintf("%d", st.NTooLow),
			quantity.FormatNumber(st.TotMed, q.Expected),
			quantity.FormatNumber(st.TotAvg, q.Expected),
			quantity.FormatNumber(st.TotStd, q.Expected),
			fmt.Sprintf("%3.2f", st.Yield()),
		}
		fills := make([]color.Color, len(row))
		if st.NNan > 0 {
			fills[6] = colorFailed
		}
		if st.NTooHigh > 0 {
			fills[7] = colorTooHigh
		}
		if st.NTooLow > 0 {
			fills[8] = colorTooLow
		}

		s.applyStyle("tableCell")
		x := pdfMargin
		for i, text := range row {
			s.cell(x, widths[i], text, fills[i])
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}
}

// sampleTable lists one row per sample followed by the summary rows of
// quantity.StatsLabels. Sample cells outside the acceptance interval are
// filled with their status colour.
func sampleTable(s *pdfStyler, labels []string, quantities []*quantity.Quantity) error {
	headers := []string{"Sample"}
	for _, q := range quantities {
		headers = append(headers, fmt.Sprintf("%s [%s]", q.Label, q.Unit))
	}
	widths := make([]float64, len(headers))
	widths[0] = 0.16 * pdfContentWidth
	for i := 1; i < len(widths); i++ {
		widths[i] = 0.84 * pdfContentWidth / float64(quantitiesPerTable)
	}

	rows := append(append([]string(nil), labels...), quantity.StatsLabels()...)
	s.tableHeader(headers, widths)
	for k, rowLabel := range rows {
		if s.currentY+s.lineHeight > s.pageHeight {
			s.newPage()
			s.tableHeader(headers, widths)
		}
		summary := k >= len(labels)
		if summary {
			s.applyStyle("tableSummary")
		} else {
			s.applyStyle("tableCell")
		}

		x := pdfMargin
		s.cell(x, widths[0], rowLabel, nil)
		x += widths[0]
		for i, q := range quantities {
			text, err := q.GetValueString(k)
			if err != nil {
				return fmt.Errorf("%s row %d: %w", q.Name, k, err)
			}
			var fill color.Color
			if st := q.GetStatus(k); !summary && st != quantity.StatusOK {
				fill = StatusColor(st)
			}
			s.cell(x, widths[i+1], text, fill)
			x += widths[i+1]
		}
		s.currentY += s.lineHeight
	}
	return nil
}
