package websocket

import (
	"log/slog"
	"time"

	"sketchsync/internal/wire"

	"github.com/gorilla/websocket"
)

const (
	// maxFrameMessages caps how many queued messages go out in one frame.
	maxFrameMessages = 64
	// viewers only ever send pings
	maxViewerFrame = 4096
)

// Client is one viewer connection. Send queues encoded wire messages; the
// write pump packs whatever is queued into a single array frame.
type Client struct {
	ID       string
	ViewerID string
	Conn     *websocket.Conn
	Manager  *Manager
	Send     chan []byte
	logger   *slog.Logger
}

func NewClient(id, viewerID string, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:       id,
		ViewerID: viewerID,
		Conn:     conn,
		Manager:  manager,
		Send:     make(chan []byte, 256),
		logger:   slog.With("component", "websocket", "client", id, "viewer", viewerID),
	}
}

// ReadPump decodes viewer frames and hands each message to the manager.
// Undecodable frames are logged and skipped; the connection stays open.
func (c *Client) ReadPump() {
	defer func() {
		c.Manager.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxViewerFrame)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.pongWait))
		return nil
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", "err", err)
			}
			return
		}

		msgs, err := wire.DecodeFrame(frame)
		if err != nil {
			c.logger.Warn("dropping undecodable frame", "err", err)
			continue
		}
		for _, msg := range msgs {
			c.Manager.HandleMessage <- &ClientMessage{Client: c, Message: msg}
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Manager.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			batch, closed := c.drain(message)
			if err := c.writeBatch(batch); err != nil {
				c.logger.Warn("websocket write failed", "err", err)
				return
			}
			if closed {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drain collects first plus whatever else is already queued. closed reports
// that Send was closed while draining.
func (c *Client) drain(first []byte) (batch [][]byte, closed bool) {
	batch = append(batch, first)
	for len(batch) < maxFrameMessages {
		select {
		case next, ok := <-c.Send:
			if !ok {
				return batch, true
			}
			batch = append(batch, next)
		default:
			return batch, false
		}
	}
	return batch, false
}

func (c *Client) writeBatch(batch [][]byte) error {
	frame, err := wire.EncodeFrame(batch...)
	if err != nil {
		return err
	}
	return c.Conn.WriteMessage(websocket.TextMessage, frame)
}
