package events

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phuslu/log"
)

const writeTimeout = 2 * time.Second

const (
	transportTCP = "tcp"
	transportWS  = "websocket"
)

// subscriber is one connected feed client. Keyed in the hub by its
// underlying connection so either transport can be removed by handle.
type subscriber struct {
	transport string
	send      func([]byte) error
	close     func() error
}

// Hub fans catalog events out to every connected TCP and WebSocket client
// as newline-terminated JSON. Clients that fail a write are dropped.
type Hub struct {
	mu        sync.Mutex
	subs      map[any]subscriber
	delivered uint64
	evicted   uint64
}

type Stats struct {
	TCPClients int    `json:"tcpClients"`
	WSClients  int    `json:"wsClients"`
	Delivered  uint64 `json:"delivered"`
	Evicted    uint64 `json:"evicted"`
}

func NewHub() *Hub {
	return &Hub{subs: make(map[any]subscriber)}
}

func (h *Hub) Add(conn net.Conn) {
	h.add(conn, subscriber{
		transport: transportTCP,
		send: func(b []byte) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_, err := conn.Write(b)
			return err
		},
		close: conn.Close,
	})
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.add(ws, subscriber{
		transport: transportWS,
		send: func(b []byte) error {
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			return ws.WriteMessage(websocket.TextMessage, b)
		},
		close: ws.Close,
	})
}

func (h *Hub) add(key any, s subscriber) {
	h.mu.Lock()
	h.subs[key] = s
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) { h.remove(conn) }

func (h *Hub) RemoveWS(ws *websocket.Conn) { h.remove(ws) }

func (h *Hub) remove(key any) {
	h.mu.Lock()
	s, ok := h.subs[key]
	delete(h.subs, key)
	h.mu.Unlock()
	if ok {
		_ = s.close()
	}
}

// BroadcastJSON encodes v once and writes it to every subscriber.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode event")
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for key, s := range h.subs {
		if err := s.send(b); err != nil {
			log.Debug().Err(err).Str("transport", s.transport).Msg("dropping event subscriber")
			_ = s.close()
			delete(h.subs, key)
			h.evicted++
			continue
		}
		h.delivered++
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := Stats{Delivered: h.delivered, Evicted: h.evicted}
	for _, s := range h.subs {
		switch s.transport {
		case transportTCP:
			st.TCPClients++
		case transportWS:
			st.WSClients++
		}
	}
	return st
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, s := range h.subs {
		_ = s.close()
		delete(h.subs, key)
	}
}

func welcome(transport string, clients int) []byte {
	b, _ := json.Marshal(map[string]any{
		"type":      "welcome",
		"transport": transport,
		"clients":   clients,
	})
	return append(b, '\n')
}
