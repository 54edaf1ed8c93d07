// Package export renders the itinerary document: a paginated PDF with a
// route header, one field/value block per waypoint and an optional trailing
// page of map and elevation captures.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"backend-trailplan/internal/itinerary"
	"backend-trailplan/internal/waypoint"

	"github.com/go-pdf/fpdf"
)

// ItineraryDoc is everything the PDF needs, already computed.
type ItineraryDoc struct {
	RouteName string
	Summary   itinerary.Summary
	Rows      []itinerary.Row
}

const (
	marginX       = 15.0
	blocksPerPage = 3
	headerRowH    = 6.0
	fieldRowH     = 6.5
	fieldColW     = 48.0
)

// BuildPDF lays the document out: title and summary, then at most three
// waypoint blocks per page with an early break when a block would overflow,
// then the image page when captures are available.
func BuildPDF(doc ItineraryDoc, images *Images) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.RouteName, true)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	usableW := pageW - 2*marginX

	// Title, wrapped over as many centered lines as it needs.
	pdf.SetFont("Helvetica", "B", 21)
	y := 18.0
	for _, line := range pdf.SplitText(doc.RouteName, usableW) {
		pdf.Text(pageW/2-pdf.GetStringWidth(line)/2, y, line)
		y += 8
	}
	y += 2

	pdf.SetFont("Helvetica", "", 12)
	for _, kv := range [][2]string{
		{"Distance:", fmt.Sprintf("%.2f km", doc.Summary.DistanceKm)},
		{"Total ascent:", fmt.Sprintf("%.0f m", doc.Summary.AscentM)},
		{"Total descent:", fmt.Sprintf("%.0f m", doc.Summary.DescentM)},
		{"Estimated duration:", doc.Summary.Duration},
	} {
		pdf.Text(marginX, y, kv[0])
		pdf.Text(marginX+42, y, kv[1])
		y += 6
	}
	y += 10

	blocksOnPage := 0
	for i, row := range doc.Rows {
		fields := blockFields(row)

		pdf.SetFont("Helvetica", "B", 13)
		titleLines := pdf.SplitText(blockTitle(row), usableW)

		estimate := float64(len(titleLines))*5.5 + 2 +
			headerRowH + float64(len(fields))*fieldRowH + 10
		if y+estimate > pageH-25 {
			pdf.AddPage()
			y = 16
			blocksOnPage = 0
		}

		for _, line := range titleLines {
			pdf.Text(marginX, y, line)
			y += 5.5
		}
		y += 1

		r, g, b := headerColor(i, len(doc.Rows))
		pdf.SetFillColor(r, g, b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetXY(marginX, y)
		pdf.CellFormat(fieldColW, headerRowH, "Field", "1", 0, "C", true, 0, "")
		pdf.CellFormat(usableW-fieldColW, headerRowH, "Value", "1", 1, "C", true, 0, "")
		y += headerRowH

		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 9)
		for _, kv := range fields {
			pdf.SetXY(marginX, y)
			pdf.CellFormat(fieldColW, fieldRowH, kv[0], "1", 0, "L", false, 0, "")
			pdf.CellFormat(usableW-fieldColW, fieldRowH, kv[1], "1", 1, "L", false, 0, "")
			y += fieldRowH
		}
		y += 7

		blocksOnPage++
		if blocksOnPage >= blocksPerPage && i < len(doc.Rows)-1 {
			pdf.AddPage()
			y = 16
			blocksOnPage = 0
		}
	}

	if images != nil {
		addImagePage(pdf, images, pageW, usableW)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addImagePage(pdf *fpdf.Fpdf, images *Images, pageW, usableW float64) {
	pdf.AddPage()
	y := 16.0

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Text(pageW/2-pdf.GetStringWidth("Map view")/2, y, "Map view")
	y += 3

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("mapview", opts, bytes.NewReader(images.MapView))
	mapH := usableW * 0.7 * 0.6
	pdf.ImageOptions("mapview", marginX, y+4, usableW, mapH, false, opts, 0, "")
	y += mapH + 14

	pdf.Text(pageW/2-pdf.GetStringWidth("Elevation profile")/2, y, "Elevation profile")
	y += 3
	pdf.RegisterImageOptionsReader("profile", opts, bytes.NewReader(images.Profile))
	pdf.ImageOptions("profile", marginX, y+4, usableW, usableW*0.35*0.8, false, opts, 0, "")
}

func blockTitle(row itinerary.Row) string {
	switch row.Role {
	case waypoint.RoleStart:
		return "Start: " + row.Name
	case waypoint.RoleEnd:
		return "End: " + row.Name
	default:
		return row.Name
	}
}

func headerColor(i, n int) (int, int, int) {
	switch {
	case i == 0:
		return 56, 204, 108
	case i == n-1:
		return 230, 61, 61
	default:
		return 109, 143, 163
	}
}

func blockFields(row itinerary.Row) [][2]string {
	first := row.Role == waypoint.RoleStart
	dash := func(s string) string {
		if first {
			return "-"
		}
		return s
	}
	notes := row.Note
	if strings.TrimSpace(notes) == "" {
		notes = "No notes"
	}
	if row.DecisionFlag {
		notes += " (decision point)"
	}
	return [][2]string{
		{"Position", fmt.Sprintf("%s  %.0f m", row.GridRef, row.ElevationM)},
		{"Segment", dash(fmt.Sprintf("+%.0f m  -%.0f m  %.2f km", row.Leg.AscentM, row.Leg.DescentM, row.Leg.DistanceKm))},
		{"Cumulative", fmt.Sprintf("+%.0f m  -%.0f m  %.2f km", row.CumAscentM, row.CumDescentM, row.CumDistKm)},
		{"Segment time", dash(itinerary.FormatMinutes(row.Leg.TimeMinutes))},
		{"Penalty", dash(fmt.Sprintf("%d%%", row.Penalty))},
		{"Rest", dash(fmt.Sprintf("%d min", row.RestMinutes))},
		{"Total time", itinerary.FormatMinutes(row.CumMinutes)},
		{"Progress", fmt.Sprintf("%.0f%%", row.ProgressPct)},
		{"Time", row.TimeOfDay},
		{"Notes", notes},
	}
}

// Filename slugs the route name for the PDF download.
func Filename(routeName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(routeName) {
		if unicode.IsLetter(r) && r < 128 || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String() + "_plan.pdf"
}
