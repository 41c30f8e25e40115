// Package render turns point sequences into drawable polylines and writes
// them out as SVG or PDF.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"sketchsync/internal/domain"
)

// Style tags which view a segment came from.
type Style string

const (
	StyleSent      Style = "sent"
	StyleConfirmed Style = "confirmed"
)

type Color struct {
	R, G, B int
}

func (c Color) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Palette maps a style to its stroke color and width.
var Palette = map[Style]struct {
	Color Color
	Width float64
}{
	StyleSent:      {Color: Color{R: 190, G: 190, B: 190}, Width: 6},
	StyleConfirmed: {Color: Color{R: 20, G: 20, B: 20}, Width: 2},
}

// Segment is one polyline: the points of a single stroke.
type Segment struct {
	Style  Style
	Points domain.PointSequence
}

// RenderPath splits points into one Segment per run of drawable points.
// Separators never appear in a segment and empty runs produce nothing.
func RenderPath(points domain.PointSequence, style Style) []Segment {
	strokes := points.Strokes()
	segments := make([]Segment, 0, len(strokes))
	for _, st := range strokes {
		segments = append(segments, Segment{Style: style, Points: st})
	}
	return segments
}

// SVGPath returns the segment as SVG path data, e.g. "M1 2 L3 4".
func (s Segment) SVGPath() string {
	var b strings.Builder
	for i, p := range s.Points {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString(" L")
		}
		b.WriteString(num(*p.X))
		b.WriteString(" ")
		b.WriteString(num(*p.Y))
	}
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Bounds is the bounding box of a set of segments.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// BoundsOf returns the box around every point in segments and false when
// there are none.
func BoundsOf(segments []Segment) (Bounds, bool) {
	var b Bounds
	found := false
	for _, s := range segments {
		for _, p := range s.Points {
			x, y := *p.X, *p.Y
			if !found {
				b = Bounds{MinX: x, MinY: y, MaxX: x, MaxY: y}
				found = true
				continue
			}
			b.MinX = min(b.MinX, x)
			b.MinY = min(b.MinY, y)
			b.MaxX = max(b.MaxX, x)
			b.MaxY = max(b.MaxY, y)
		}
	}
	return b, found
}

// WriteSVG writes a standalone SVG document with one path per segment,
// in the order given.
func WriteSVG(w io.Writer, width, height int, segments []Segment) error {
	if _, err := fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+"\n", width, height); err != nil {
		return fmt.Errorf("failed to write svg: %w", err)
	}
	for _, s := range segments {
		pen := Palette[s.Style]
		_, err := fmt.Fprintf(w, `  <path class="%s" d="%s" fill="none" stroke="%s" stroke-width="%s" stroke-linecap="round" stroke-linejoin="round"/>`+"\n",
			s.Style, s.SVGPath(), pen.Color.hex(), num(pen.Width))
		if err != nil {
			return fmt.Errorf("failed to write svg: %w", err)
		}
	}
	if _, err := io.WriteString(w, "</svg>\n"); err != nil {
		return fmt.Errorf("failed to write svg: %w", err)
	}
	return nil
}
