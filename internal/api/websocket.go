package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/slimemax/keyboardsim/internal/protocol"
	"github.com/slimemax/keyboardsim/internal/runner"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The listener defaults to loopback; tokens guard anything wider
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

// WebSocketClient represents a connected viewer
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
		broadcast:  make(chan protocol.Message, 256),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.unregister:
			m.clientsMu.Lock()
			_, ok := m.clients[client]
			if ok {
				delete(m.clients, client)
				close(client.send)
			}
			total := len(m.clients)
			m.clientsMu.Unlock()
			if ok {
				log.Printf("WS: Client unregistered from %s. Total clients: %d", client.ip, total)
			}

		case message := <-m.broadcast:
			m.broadcastMessage(message)

		case <-m.shutdown:
			m.clientsMu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
			}
			m.clientsMu.Unlock()
			return
		}
	}
}

func (m *WSManager) stop() {
	m.stopOnce.Do(func() { close(m.shutdown) })
}

func (m *WSManager) broadcastMessage(message protocol.Message) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		// Not logged: a log line here would be broadcast again.
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

// enqueue never blocks: log lines are produced on the hub goroutine too
func (m *WSManager) enqueue(msg protocol.Message) {
	select {
	case m.broadcast <- msg:
	default:
	}
}

// BroadcastLog pushes one journal line to every client
func (m *WSManager) BroadcastLog(line string) {
	m.enqueue(protocol.Message{Type: protocol.TypeLog, Payload: protocol.LogPayload{Line: line}})
}

// BroadcastStatus pushes a controller snapshot to every client
func (m *WSManager) BroadcastStatus(st runner.Status) {
	m.enqueue(protocol.Message{Type: protocol.TypeStatus, Payload: st})
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

	// The current status goes out first, before any broadcast.
	if data, err := json.Marshal(protocol.Message{Type: protocol.TypeStatus, Payload: m.server.ctrl.Status()}); err == nil {
		client.send <- data
	}

	// Registered before the pumps start so a client's first request is
	// always answered.
	m.clientsMu.Lock()
	select {
	case <-m.shutdown:
		m.clientsMu.Unlock()
		conn.Close()
		return
	default:
	}
	m.clients[client] = true
	total := len(m.clients)
	m.clientsMu.Unlock()
	log.Printf("WS: New client registered from %s. Total clients: %d", client.ip, total)

	go client.writePump()
	go client.readPump()
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

	c.conn.SetReadLimit(64 * 1024)
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

// sendMessage queues a reply for this client only
func (c *WebSocketClient) sendMessage(msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WS: Failed to marshal reply: %v", err)
		return
	}

	c.manager.clientsMu.Lock()
	defer c.manager.clientsMu.Unlock()
	if !c.manager.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	if !gjson.ValidBytes(data) {
		log.Printf("WS: Invalid message format from %s", c.ip)
		return
	}

	msgType := protocol.MessageType(gjson.GetBytes(data, "type").String())
	switch msgType {
	case protocol.TypeRun:
		log.Printf("WS: Received run request from %s", c.ip)
		if _, err := c.manager.server.startRun(gjson.GetBytes(data, "payload")); err != nil {
			c.sendMessage(protocol.Message{Type: protocol.TypeError, Payload: protocol.ErrorPayload{Error: err.Error()}})
			if !errors.Is(err, runner.ErrBusy) {
				log.Printf("WS: Run rejected: %v", err)
			}
		}

	case protocol.TypeStop:
		log.Printf("WS: Received stop request from %s", c.ip)
		c.manager.server.ctrl.Stop()

	case protocol.TypeStatus:
		c.sendMessage(protocol.Message{Type: protocol.TypeStatus, Payload: c.manager.server.ctrl.Status()})

	default:
		log.Printf("WS: Ignoring message type %q from %s", msgType, c.ip)
	}
}
