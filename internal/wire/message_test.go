package wire

import (
	"encoding/json"
	"testing"

	"sketchsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, msgType MessageType, payload interface{}) []byte {
	t.Helper()
	msg, err := NewMessage(msgType, payload)
	require.NoError(t, err)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return raw
}

func TestFrame_BatchRoundTrip(t *testing.T) {
	added := encode(t, TypePointsAdded, &PointsAddedPayload{
		ViewerID: "a",
		Points:   domain.PointSequence{domain.NewPoint(0, 1, 2), domain.NewSeparator(1)},
	})
	reset := encode(t, TypeReset, &ResetPayload{ViewerID: "b", Cleared: 2})

	frame, err := EncodeFrame(added, reset)
	require.NoError(t, err)
	assert.Equal(t, byte('['), frame[0])

	msgs, err := DecodeFrame(frame)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, TypePointsAdded, msgs[0].Type)
	assert.Equal(t, TypeReset, msgs[1].Type)

	var payload PointsAddedPayload
	require.NoError(t, msgs[0].UnmarshalPayload(&payload))
	assert.Equal(t, "a", payload.ViewerID)
	require.Len(t, payload.Points, 2)
	assert.True(t, payload.Points[1].IsEndOfSegment)
	assert.Nil(t, payload.Points[1].X)
}

func TestFrame_SingleObject(t *testing.T) {
	msgs, err := DecodeFrame([]byte(` {"type":"ping"} `))

	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, TypePing, msgs[0].Type)
}

func TestFrame_Errors(t *testing.T) {
	msgs, err := DecodeFrame([]byte("  "))
	assert.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = DecodeFrame([]byte(`[{"type":`))
	assert.Error(t, err)

	_, err = DecodeFrame([]byte(`{nope}`))
	assert.Error(t, err)

	_, err = EncodeFrame([]byte(`{nope}`))
	assert.Error(t, err)
}

func TestMessage_UnmarshalEmptyPayload(t *testing.T) {
	msg, err := NewMessage(TypePong, nil)
	require.NoError(t, err)

	var payload ResetPayload
	assert.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Equal(t, ResetPayload{}, payload)
}
