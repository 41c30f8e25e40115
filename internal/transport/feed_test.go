package transport

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"sketchsync/internal/domain"
	"sketchsync/internal/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FeedURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "http://localhost:1337", want: "ws://localhost:1337/ws"},
		{base: "https://store.example/api/", want: "wss://store.example/api/ws"},
	}

	for _, tt := range tests {
		c := NewClient(tt.base, WithViewerID("v1"))

		got, err := c.feedURL()
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, "v1", u.Query().Get("viewer_id"))
		u.RawQuery = ""
		assert.Equal(t, tt.want, u.String())
	}
}

func TestClient_ToEventIgnoresUnknown(t *testing.T) {
	c := NewClient("http://localhost")

	_, ok := c.toEvent(wire.Message{Type: wire.TypePong})
	assert.False(t, ok)

	_, ok = c.toEvent(wire.Message{Type: wire.TypePointsAdded, Payload: json.RawMessage(`"nope"`)})
	assert.False(t, ok)

	ev, ok := c.toEvent(wire.Message{Type: wire.TypeReset, Payload: json.RawMessage(`{"viewer_id":"x","cleared":3}`)})
	require.True(t, ok)
	assert.Equal(t, EventReset, ev.Type)
	assert.Equal(t, "x", ev.ViewerID)
}

func TestClient_SubscribeReceivesOtherViewersPoints(t *testing.T) {
	store := newStoreServer(t)
	watcher := NewClient(store.srv.URL, WithViewerID("watcher"))
	drawer := NewClient(store.srv.URL, WithViewerID("drawer"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 8)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Subscribe(ctx, func(ev Event) { events <- ev })
	}()

	require.Eventually(t, func() bool {
		return store.manager.GetViewerConnections("watcher") == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := drawer.Append(ctx, domain.PointSequence{domain.NewPoint(0, 5, 5)})
	require.NoError(t, err)
	_, err = drawer.Clear(ctx)
	require.NoError(t, err)

	var got []Event
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("expected 2 events, got %d", len(got))
		}
	}

	assert.Equal(t, EventPointsAdded, got[0].Type)
	assert.Equal(t, "drawer", got[0].ViewerID)
	require.Len(t, got[0].Points, 1)
	assert.Equal(t, int64(0), got[0].Points[0].ID)
	assert.Equal(t, EventReset, got[1].Type)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestClient_SubscribeDoesNotEchoOwnPoints(t *testing.T) {
	store := newStoreServer(t)
	c := NewClient(store.srv.URL, WithViewerID("solo"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 8)
	go c.Subscribe(ctx, func(ev Event) { events <- ev })

	require.Eventually(t, func() bool {
		return store.manager.GetViewerConnections("solo") == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := c.Append(ctx, domain.PointSequence{domain.NewPoint(0, 5, 5)})
	require.NoError(t, err)

	select {
	case ev := <-events:
		t.Fatalf("unexpected echo of own append: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
