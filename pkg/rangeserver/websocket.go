package rangeserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"rarstream/pkg/rlog"
)

// WSMessage is the envelope every event this server pushes over the
// WebSocket.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one connected WebSocket consumer.
type Client struct {
	conn *websocket.Conn
	send chan WSMessage
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rlog.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{conn: conn, send: make(chan WSMessage, 64)}
	s.addClient(client)
	defer s.removeClient(client)

	for _, line := range rlog.GetHistory() {
		payload, _ := json.Marshal(line)
		trySend(client, WSMessage{Type: "log", Payload: payload})
	}

	go func() {
		// Drain and discard inbound frames; this feed is
		// server-to-client only. A failed read means the client
		// disconnected, so close the socket to unblock the write loop.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				s.removeClient(client)
				return
			}
		}
	}()

	for msg := range client.send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (s *Server) addClient(c *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[c] = true
}

func (s *Server) removeClient(c *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// broadcast fans msg out to every connected client without blocking on
// a slow one.
func (s *Server) broadcast(msg WSMessage) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func trySend(c *Client, msg WSMessage) {
	select {
	case c.send <- msg:
	default:
	}
}
