// Package realtime pushes new grumbles to connected browsers over WebSocket.
package realtime

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// GlobalStream is the one group every stream connection joins.
const GlobalStream = "global_stream"

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send queue full")
)

// Conn is a single listener. Send must not block.
type Conn interface {
	ID() string
	Send(payload []byte) error
	Close()
}

// Broadcaster is what write handlers depend on.
type Broadcaster interface {
	Broadcast(stream string, payload []byte) int
}

// Hub tracks which connections belong to which named group and fans payloads out to them.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[string]Conn
	closed bool

	// 串行化广播，保证所有连接看到相同的顺序
	sendMu sync.Mutex

	log zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[string]Conn),
		log:    log.With().Str("component", "hub").Logger(),
	}
}

// Join adds conn to stream. Joining twice is the same as joining once.
// It reports false once the hub is closed.
func (h *Hub) Join(stream string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	group, ok := h.groups[stream]
	if !ok {
		group = make(map[string]Conn)
		h.groups[stream] = group
	}
	group[conn.ID()] = conn
	return true
}

// Leave removes conn from stream; unknown connections are ignored.
func (h *Hub) Leave(stream string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[stream]
	if !ok {
		return
	}
	delete(group, conn.ID())
	if len(group) == 0 {
		delete(h.groups, stream)
	}
}

// Members returns the number of connections in stream
func (h *Hub) Members(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[stream])
}

// Broadcast sends payload to every current member of stream and returns how many accepted it.
// Per-connection failures are logged and otherwise ignored.
func (h *Hub) Broadcast(stream string, payload []byte) int {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.mu.RLock()
	members := make([]Conn, 0, len(h.groups[stream]))
	for _, conn := range h.groups[stream] {
		members = append(members, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range members {
		if err := conn.Send(payload); err != nil {
			h.log.Debug().Err(err).Str("conn", conn.ID()).Str("stream", stream).Msg("Broadcast skipped connection")
			continue
		}
		delivered++
	}
	return delivered
}

// Close disconnects every member and rejects further joins.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var conns []Conn
	for _, group := range h.groups {
		for _, conn := range group {
			conns = append(conns, conn)
		}
	}
	h.groups = make(map[string]map[string]Conn)
	h.mu.Unlock()

	// Close 可能回调 Leave，必须在锁外执行
	for _, conn := range conns {
		conn.Close()
	}
	h.log.Info().Int("connections", len(conns)).Msg("Hub closed")
}
