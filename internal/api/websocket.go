package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"inputrelay/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Status is read-only and served on the local network
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSManager handles WebSocket connections and broadcasting
type WSManager struct {
	server     *Server
	clients    map[*WebSocketClient]bool
	clientsMu  sync.Mutex
	broadcast  chan protocol.Message
	unregister chan *WebSocketClient
	shutdown   chan struct{}
	stopOnce   sync.Once
}

// WebSocketClient represents a connected status viewer
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan []byte
	ip      string
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:     s,
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan protocol.Message, 16),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.unregister:
			m.clientsMu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
				log.Printf("WS: Client unregistered from %s. Total clients: %d", client.ip, len(m.clients))
			}
			m.clientsMu.Unlock()

		case message := <-m.broadcast:
			m.broadcastMessage(message)

		case <-m.shutdown:
			m.clientsMu.Lock()
			for client := range m.clients {
				close(client.send)
				delete(m.clients, client)
			}
			m.clientsMu.Unlock()
			return
		}
	}
}

// add registers a client unless the hub has shut down.
func (m *WSManager) add(client *WebSocketClient) bool {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	select {
	case <-m.shutdown:
		return false
	default:
	}
	m.clients[client] = true
	log.Printf("WS: New client registered from %s. Total clients: %d", client.ip, len(m.clients))
	return true
}

func (m *WSManager) stop() {
	m.stopOnce.Do(func() { close(m.shutdown) })
}

func (m *WSManager) broadcastMessage(message protocol.Message) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("WS: Failed to marshal broadcast message: %v", err)
		return
	}

	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()

	for client := range m.clients {
		select {
		case client.send <- jsonMsg:
		default:
			close(client.send)
			delete(m.clients, client)
		}
	}
}

// sendTo queues a message for one client if it is still registered.
func (m *WSManager) sendTo(client *WebSocketClient, message protocol.Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("WS: Failed to marshal message: %v", err)
		return
	}

	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	if !m.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		log.Printf("WS: Send buffer full for %s, dropping %s message", client.ip, message.Type)
	}
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: Failed to upgrade connection: %v", err)
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan []byte, 256),
		ip:      r.RemoteAddr,
	}

	if !m.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	// New viewers get the current state right away
	m.sendTo(client, m.statusMessage())
}

func (m *WSManager) statusMessage() protocol.Message {
	return protocol.Message{Type: protocol.TypeStatus, Payload: m.server.currentStatus()}
}

// BroadcastStatus queues a status update for all clients. The update is
// dropped when the hub is backed up.
func (m *WSManager) BroadcastStatus(status protocol.StatusPayload) {
	msg := protocol.Message{Type: protocol.TypeStatus, Payload: status}
	select {
	case m.broadcast <- msg:
	default:
		log.Printf("WS: Broadcast queue full, dropping status update")
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS: Read error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("WS: Invalid message format: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeStatusRequest:
		c.manager.sendTo(c, c.manager.statusMessage())
	case protocol.TypePing:
		c.manager.sendTo(c, protocol.Message{Type: protocol.TypePing})
	default:
		log.Printf("WS: Ignoring %q message from %s", msg.Type, c.ip)
	}
}
