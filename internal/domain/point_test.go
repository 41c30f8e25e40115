package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(s PointSequence) []int64 {
	out := make([]int64, 0, len(s))
	for _, p := range s {
		out = append(out, p.ID)
	}
	return out
}

func TestPointSequence_Sorted(t *testing.T) {
	s := PointSequence{NewPoint(3, 1, 1), NewPoint(1, 2, 2), NewPoint(2, 3, 3)}

	sorted := s.Sorted()

	assert.Equal(t, []int64{1, 2, 3}, ids(sorted))
	assert.Equal(t, []int64{3, 1, 2}, ids(s), "Sorted must not reorder the receiver")
}

func TestPointSequence_Dedupe(t *testing.T) {
	s := PointSequence{NewPoint(2, 1, 1), NewPoint(1, 0, 0), NewPoint(2, 1, 1), NewSeparator(3), NewSeparator(3)}

	assert.Equal(t, []int64{1, 2, 3}, ids(s.Dedupe()))
}

func TestPointSequence_Equal(t *testing.T) {
	a := PointSequence{NewPoint(0, 1, 2), NewSeparator(1), NewPoint(2, 3, 4)}
	b := PointSequence{NewPoint(2, 3, 4), NewPoint(0, 1, 2), NewSeparator(1)}
	c := PointSequence{NewPoint(2, 3, 5), NewPoint(0, 1, 2), NewSeparator(1)}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(a[:2]))
}

func TestPointSequence_Strokes(t *testing.T) {
	s := PointSequence{
		NewPoint(0, 1, 1),
		NewPoint(1, 2, 2),
		NewSeparator(2),
		NewPoint(3, 3, 3),
		NewPoint(4, 4, 4),
	}

	strokes := s.Strokes()

	require.Len(t, strokes, 2)
	assert.Equal(t, []int64{0, 1}, ids(strokes[0]))
	assert.Equal(t, []int64{3, 4}, ids(strokes[1]))
}

func TestPointSequence_StrokesSkipsEmptyRuns(t *testing.T) {
	s := PointSequence{NewSeparator(0), NewSeparator(1), NewPoint(2, 0, 0), NewSeparator(3)}

	strokes := s.Strokes()

	require.Len(t, strokes, 1)
	assert.Equal(t, []int64{2}, ids(strokes[0]))
}

func TestPointSequence_MaxID(t *testing.T) {
	assert.Equal(t, int64(-1), PointSequence{}.MaxID())
	assert.Equal(t, int64(7), PointSequence{NewPoint(7, 0, 0), NewPoint(3, 0, 0)}.MaxID())
}

func TestPoint_JSONSeparatorHasNullCoordinates(t *testing.T) {
	b, err := json.Marshal(NewSeparator(4))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"x":null,"y":null,"isEndOfSegment":true}`, string(b))

	var p Point
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"x":10.5,"y":3,"isEndOfSegment":false}`), &p))
	assert.True(t, p.Drawable())
	assert.True(t, p.SameAs(NewPoint(5, 10.5, 3)))
}
