package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"sketchsync/internal/wire"
)

// ClientMessage is a decoded message a viewer sent on its connection.
type ClientMessage struct {
	Client  *Client
	Message wire.Message
}

// Manager fans store events out to connected viewers. A viewer may hold
// several connections (tabs); events are never echoed to the viewer that
// caused them.
type Manager struct {
	clients          map[string]*Client
	viewerIndex      map[string]map[string]bool
	clientsMutex     sync.RWMutex
	Register         chan *Client
	Unregister       chan *Client
	HandleMessage    chan *ClientMessage
	maxConnPerViewer int
	writeWait        time.Duration
	pongWait         time.Duration
	pingPeriod       time.Duration
	logger           *slog.Logger
}

func NewManager(maxConnPerViewer int, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:          make(map[string]*Client),
		viewerIndex:      make(map[string]map[string]bool),
		Register:         make(chan *Client),
		Unregister:       make(chan *Client),
		HandleMessage:    make(chan *ClientMessage),
		maxConnPerViewer: maxConnPerViewer,
		writeWait:        writeWait,
		pongWait:         pongWait,
		pingPeriod:       pingPeriod,
		logger:           slog.With("component", "websocket"),
	}
}

func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)

		case <-ctx.Done():
			m.closeAll()
			return
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.viewerIndex[client.ViewerID] == nil {
		m.viewerIndex[client.ViewerID] = make(map[string]bool)
	}

	if len(m.viewerIndex[client.ViewerID]) >= m.maxConnPerViewer {
		m.logger.Warn("max connections reached", "viewer", client.ViewerID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.viewerIndex[client.ViewerID][client.ID] = true

	m.logger.Info("client registered", "client", client.ID, "viewer", client.ViewerID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.viewerIndex[client.ViewerID], client.ID)

		if len(m.viewerIndex[client.ViewerID]) == 0 {
			delete(m.viewerIndex, client.ViewerID)
		}

		close(client.Send)
		m.logger.Info("client unregistered", "client", client.ID)
	}
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for id, client := range m.clients {
		close(client.Send)
		delete(m.clients, id)
	}
	m.viewerIndex = make(map[string]map[string]bool)
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	msg := clientMsg.Message

	switch msg.Type {
	case wire.TypePing:
		pong, err := wire.NewMessage(wire.TypePong, nil)
		if err != nil {
			return
		}
		m.SendToClient(clientMsg.Client.ID, pong)
	default:
		m.logger.Debug("ignoring message", "type", msg.Type, "client", clientMsg.Client.ID)
	}
}

// Broadcast sends message to every connection not owned by excludeViewerID.
// Connections whose buffer is full are dropped.
func (m *Manager) Broadcast(message *wire.Message, excludeViewerID string) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var slow []*Client

	m.clientsMutex.RLock()
	for clientID, client := range m.clients {
		if excludeViewerID != "" && client.ViewerID == excludeViewerID {
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			m.logger.Warn("send buffer full, closing connection", "client", clientID)
			slow = append(slow, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range slow {
		go func(c *Client) { m.Unregister <- c }(client)
	}

	return nil
}

func (m *Manager) SendToClient(clientID string, message *wire.Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.logger.Warn("send buffer full", "client", clientID)
	}

	return nil
}

func (m *Manager) GetViewerConnections(viewerID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if clients, exists := m.viewerIndex[viewerID]; exists {
		return len(clients)
	}
	return 0
}
