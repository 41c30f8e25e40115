package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sketchsync/internal/domain"
	"sketchsync/internal/wire"

	"github.com/gorilla/websocket"
)

type EventType string

const (
	// EventPointsAdded carries points another viewer got accepted.
	EventPointsAdded EventType = "points_added"
	// EventReset means another viewer cleared the store.
	EventReset EventType = "reset"
	// EventResync is emitted after a reconnect; events may have been missed.
	EventResync EventType = "resync"
)

type Event struct {
	Type     EventType
	ViewerID string
	Points   domain.PointSequence
}

const minReconnectDelay = time.Second

// Subscribe streams store events written by other viewers into handle until
// ctx is cancelled. Dropped connections are redialled and followed by an
// EventResync. handle runs on the subscriber goroutine.
func (c *Client) Subscribe(ctx context.Context, handle func(Event)) error {
	feedURL, err := c.feedURL()
	if err != nil {
		return err
	}

	delay := c.retry.InitialBackoff
	if delay < minReconnectDelay {
		delay = minReconnectDelay
	}

	connected := false
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, feedURL, c.feedHeader())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("feed dial failed, retrying", "url", feedURL, "err", err)
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
			continue
		}

		if connected {
			handle(Event{Type: EventResync})
		}
		connected = true
		c.logger.Info("feed connected", "url", feedURL)

		err = c.readFeed(ctx, conn, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("feed disconnected", "err", err)
		if !sleepCtx(ctx, delay) {
			return ctx.Err()
		}
	}
}

func (c *Client) readFeed(ctx context.Context, conn *websocket.Conn, handle func(Event)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msgs, err := wire.DecodeFrame(frame)
		if err != nil {
			c.logger.Warn("ignoring undecodable feed frame", "err", err)
			continue
		}
		for _, msg := range msgs {
			if ev, ok := c.toEvent(msg); ok {
				handle(ev)
			}
		}
	}
}

func (c *Client) toEvent(msg wire.Message) (Event, bool) {
	switch msg.Type {
	case wire.TypePointsAdded:
		var payload wire.PointsAddedPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			c.logger.Warn("ignoring malformed points_added", "err", err)
			return Event{}, false
		}
		return Event{Type: EventPointsAdded, ViewerID: payload.ViewerID, Points: payload.Points}, true

	case wire.TypeReset:
		var payload wire.ResetPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			c.logger.Warn("ignoring malformed reset", "err", err)
			return Event{}, false
		}
		return Event{Type: EventReset, ViewerID: payload.ViewerID}, true

	default:
		return Event{}, false
	}
}

func (c *Client) feedURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	q := u.Query()
	q.Set("viewer_id", c.viewerID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *Client) feedHeader() http.Header {
	h := http.Header{}
	h.Set(domain.ViewerIDHeader, c.viewerID)
	return h
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
