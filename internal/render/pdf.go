package render

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 210.0
	pageHeight = 297.0
	pageMargin = 10.0
	// pxToMM is the scale used when a drawing already fits the page.
	pxToMM = 0.2646
)

// ExportPDF draws segments on a single A4 page, scaled down to fit the
// printable area when needed.
func ExportPDF(w io.Writer, segments []Segment) error {
	p := gofpdf.New("P", "mm", "A4", "")
	p.AddPage()
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	bounds, ok := BoundsOf(segments)
	if ok {
		scale := fitScale(bounds)
		for _, s := range segments {
			pen := Palette[s.Style]
			p.SetDrawColor(pen.Color.R, pen.Color.G, pen.Color.B)
			p.SetLineWidth(pen.Width * scale)

			pts := s.Points
			if len(pts) == 1 {
				x, y := place(*pts[0].X, *pts[0].Y, bounds, scale)
				p.Line(x, y, x, y)
				continue
			}
			for i := 1; i < len(pts); i++ {
				x1, y1 := place(*pts[i-1].X, *pts[i-1].Y, bounds, scale)
				x2, y2 := place(*pts[i].X, *pts[i].Y, bounds, scale)
				p.Line(x1, y1, x2, y2)
			}
		}
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func fitScale(b Bounds) float64 {
	scale := pxToMM
	availW, availH := pageWidth-2*pageMargin, pageHeight-2*pageMargin
	if b.Width()*scale > availW {
		scale = availW / b.Width()
	}
	if b.Height()*scale > availH {
		scale = availH / b.Height()
	}
	return scale
}

func place(x, y float64, b Bounds, scale float64) (float64, float64) {
	return pageMargin + (x-b.MinX)*scale, pageMargin + (y-b.MinY)*scale
}
