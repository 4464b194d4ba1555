// Package ws streams newly classified events to dashboard clients over
// WebSocket.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/argus-triage/argus-go/internal/event"
	"github.com/argus-triage/argus-go/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const hydrateLimit = 20

// Manager tracks active WebSocket connections and broadcasts classified
// events to them.
type Manager struct {
	mu          sync.RWMutex
	connections []*websocket.Conn
	queue       chan *event.Event
	store       store.Store
	logger      *slog.Logger
}

// NewManager creates a WebSocket manager backed by the given store.
func NewManager(st store.Store, logger *slog.Logger) *Manager {
	return &Manager{
		queue:  make(chan *event.Event, 256),
		store:  st,
		logger: logger,
	}
}

// HandleWS upgrades an HTTP connection to WebSocket and registers it.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	m.mu.Lock()
	m.connections = append(m.connections, conn)
	m.mu.Unlock()

	m.hydrate(r.Context(), conn)

	// Keep the connection alive, reading and discarding client messages.
	defer func() {
		m.remove(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// hydrate sends the current event count and the most recent events so a new
// client starts with a populated view.
func (m *Manager) hydrate(ctx context.Context, conn *websocket.Conn) {
	if total, err := m.store.Count(ctx); err == nil {
		m.sendJSON(conn, map[string]any{
			"type":         "stats",
			"total_events": total,
		})
	}

	recent, err := m.store.List(ctx, store.Filter{Limit: hydrateLimit})
	if err != nil {
		return
	}
	// List is newest first; replay oldest first.
	for i := len(recent) - 1; i >= 0; i-- {
		m.sendJSON(conn, eventMessage(recent[i]))
	}
}

// Publish queues classified events for broadcast. It never blocks; when the
// queue is full the event is dropped, clients will catch up via the API.
func (m *Manager) Publish(events []*event.Event) {
	for _, ev := range events {
		select {
		case m.queue <- ev:
		default:
			m.logger.Warn("stream queue full, dropping event", "event_id", ev.EventID)
		}
	}
}

// Run drains the publish queue and fans events out to connected clients.
// It returns when ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.queue:
			m.broadcast(eventMessage(ev))
		}
	}
}

func (m *Manager) broadcast(data map[string]any) {
	m.mu.RLock()
	conns := make([]*websocket.Conn, len(m.connections))
	copy(conns, m.connections)
	m.mu.RUnlock()

	var dead []*websocket.Conn
	for _, conn := range conns {
		if err := m.sendJSON(conn, data); err != nil {
			dead = append(dead, conn)
		}
	}

	for _, d := range dead {
		m.remove(d)
		d.Close()
	}
}

func (m *Manager) remove(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.connections {
		if c == conn {
			m.connections = append(m.connections[:i], m.connections[i+1:]...)
			return
		}
	}
}

func (m *Manager) sendJSON(conn *websocket.Conn, data map[string]any) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

func eventMessage(ev *event.Event) map[string]any {
	return map[string]any{
		"type":          "event",
		"event_id":      ev.EventID,
		"timestamp":     ev.Timestamp.Format(time.RFC3339),
		"source_ip":     ev.SourceIP,
		"method":        ev.Method,
		"url":           truncate(ev.URL, 120),
		"attack_type":   ev.AttackType,
		"is_successful": ev.IsSuccessful,
		"confidence":    ev.Confidence,
		"rule_hits":     ev.RuleHits,
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
