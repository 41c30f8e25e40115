package render

import (
	"bytes"
	"strings"
	"testing"

	"sketchsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(s domain.PointSequence) []int64 {
	out := make([]int64, 0, len(s))
	for _, p := range s {
		out = append(out, p.ID)
	}
	return out
}

func TestRenderPath_TwoStrokes(t *testing.T) {
	points := domain.PointSequence{
		domain.NewPoint(0, 1, 1),
		domain.NewPoint(1, 2, 2),
		domain.NewSeparator(2),
		domain.NewPoint(3, 3, 3),
		domain.NewPoint(4, 4, 4),
	}

	segments := RenderPath(points, StyleSent)

	require.Len(t, segments, 2)
	assert.Equal(t, []int64{0, 1}, ids(segments[0].Points))
	assert.Equal(t, []int64{3, 4}, ids(segments[1].Points))
	assert.Equal(t, StyleSent, segments[0].Style)
}

func TestRenderPath_HandBuiltScenario(t *testing.T) {
	// a separator that does not take an id of its own still splits strokes
	points := domain.PointSequence{
		domain.NewPoint(0, 1, 1),
		domain.NewPoint(1, 2, 2),
		{ID: 1, IsEndOfSegment: true},
		domain.NewPoint(2, 3, 3),
		domain.NewPoint(3, 4, 4),
	}

	segments := RenderPath(points, StyleConfirmed)

	require.Len(t, segments, 2)
	assert.Equal(t, []int64{0, 1}, ids(segments[0].Points))
	assert.Equal(t, []int64{2, 3}, ids(segments[1].Points))
}

func TestRenderPath_EdgeCases(t *testing.T) {
	assert.Empty(t, RenderPath(nil, StyleSent))
	assert.Empty(t, RenderPath(domain.PointSequence{domain.NewSeparator(0), domain.NewSeparator(1)}, StyleSent))

	segments := RenderPath(domain.PointSequence{
		domain.NewSeparator(0),
		domain.NewPoint(1, 0, 0),
		domain.NewSeparator(2),
	}, StyleSent)
	require.Len(t, segments, 1)
	assert.Len(t, segments[0].Points, 1)
}

func TestSegment_SVGPath(t *testing.T) {
	s := Segment{Points: domain.PointSequence{
		domain.NewPoint(0, 1, 2),
		domain.NewPoint(1, 3.5, 4),
	}}

	assert.Equal(t, "M1 2 L3.5 4", s.SVGPath())
}

func TestBoundsOf(t *testing.T) {
	_, ok := BoundsOf(nil)
	assert.False(t, ok)

	b, ok := BoundsOf(RenderPath(domain.PointSequence{
		domain.NewPoint(0, 10, 5),
		domain.NewPoint(1, -2, 40),
	}, StyleSent))
	require.True(t, ok)
	assert.Equal(t, Bounds{MinX: -2, MinY: 5, MaxX: 10, MaxY: 40}, b)
	assert.Equal(t, 12.0, b.Width())
}

func TestWriteSVG(t *testing.T) {
	points := domain.PointSequence{domain.NewPoint(0, 1, 1), domain.NewPoint(1, 2, 2)}
	segments := append(RenderPath(points, StyleSent), RenderPath(points, StyleConfirmed)...)

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, 800, 600, segments))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Equal(t, 2, strings.Count(out, "<path"))
	assert.Contains(t, out, `class="sent"`)
	assert.Contains(t, out, `class="confirmed"`)
	assert.Contains(t, out, `d="M1 1 L2 2"`)
}

func TestExportPDF(t *testing.T) {
	points := domain.PointSequence{
		domain.NewPoint(0, 0, 0),
		domain.NewPoint(1, 5000, 5000),
		domain.NewSeparator(2),
		domain.NewPoint(3, 10, 10),
	}

	var buf bytes.Buffer
	require.NoError(t, ExportPDF(&buf, RenderPath(points, StyleConfirmed)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, ExportPDF(&buf, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestFitScale(t *testing.T) {
	assert.Equal(t, pxToMM, fitScale(Bounds{MaxX: 100, MaxY: 100}))
	assert.InDelta(t, 190.0/2000, fitScale(Bounds{MaxX: 2000, MaxY: 10}), 1e-9)
}
