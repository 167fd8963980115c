package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/coach"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10

	outboxSize = 32
)

// Message is the envelope for everything pushed over /ws
type Message struct {
	Type     string             `json:"type"`
	Snapshot *features.Snapshot `json:"snapshot,omitempty"`
	Advice   *coach.Advice      `json:"advice,omitempty"`
}

// Hub fans snapshots and advice out to WebSocket clients. It is both a
// snapshot consumer and an advice sink.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]*sync.Mutex
	latest   func() (features.Snapshot, bool)

	outbox    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

// NewHub creates a hub and starts its broadcaster. latest, when set,
// answers "snapshot_request" messages and greets new clients.
func NewHub(latest func() (features.Snapshot, bool)) *Hub {
	h := newHub(latest, outboxSize)
	go h.run()
	return h
}

func newHub(latest func() (features.Snapshot, bool), queue int) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
		latest:  latest,
		outbox:  make(chan []byte, queue),
		done:    make(chan struct{}),
	}
}

// Consume implements coach.Consumer
func (h *Hub) Consume(_ context.Context, snap features.Snapshot) error {
	h.Broadcast(Message{Type: "snapshot", Snapshot: &snap})
	return nil
}

// PublishAdvice implements coach.AdviceSink
func (h *Hub) PublishAdvice(a coach.Advice) {
	h.Broadcast(Message{Type: "advice", Advice: &a})
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("Hub", "Upgrade failed: %v", err)
		return
	}
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	writeMu := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = writeMu
	count := len(h.clients)
	h.mu.Unlock()
	logger.Debug("Hub", "Client connected (total clients: %d)", count)

	h.sendLatest(conn, writeMu)

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer h.removeClient(conn)

		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var request struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(payload, &request); err != nil {
				continue
			}
			if request.Type == "snapshot_request" {
				h.sendLatest(conn, writeMu)
			}
		}
	}()
}

func (h *Hub) sendLatest(conn *websocket.Conn, writeMu *sync.Mutex) {
	if h.latest == nil {
		return
	}
	snap, ok := h.latest()
	if !ok {
		return
	}
	payload, err := json.Marshal(Message{Type: "snapshot", Snapshot: &snap})
	if err != nil {
		return
	}
	_ = writeMessage(conn, writeMu, websocket.TextMessage, payload)
}

// Broadcast queues msg for every connected client. It never blocks; when
// the queue is full or the hub is closed the message is dropped and counted.
func (h *Hub) Broadcast(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Warn("Hub", "Failed to encode broadcast: %v", err)
		return
	}

	select {
	case <-h.done:
		h.dropped.Add(1)
		return
	default:
	}
	select {
	case h.outbox <- payload:
	default:
		if n := h.dropped.Add(1); n%100 == 1 {
			logger.Warn("Hub", "Broadcast queue full, dropped %d messages", n)
		}
	}
}

// Dropped returns the number of broadcasts that were discarded
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// run drains the outbox until the hub is closed
func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case payload := <-h.outbox:
			h.deliver(payload)
		}
	}
}

// deliver writes payload to every client outside the hub lock, dropping
// clients that fail to accept it
func (h *Hub) deliver(payload []byte) {
	type target struct {
		conn    *websocket.Conn
		writeMu *sync.Mutex
	}
	h.mu.Lock()
	targets := make([]target, 0, len(h.clients))
	for conn, writeMu := range h.clients {
		targets = append(targets, target{conn, writeMu})
	}
	h.mu.Unlock()

	for _, t := range targets {
		if err := writeMessage(t.conn, t.writeMu, websocket.TextMessage, payload); err != nil {
			h.removeClient(t.conn)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close stops the broadcaster and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		h.removeClient(conn)
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	remaining := len(h.clients)
	h.mu.Unlock()
	if ok {
		logger.Debug("Hub", "Client disconnected (remaining clients: %d)", remaining)
	}
	_ = conn.Close()
}

func writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
