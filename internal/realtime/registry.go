// Package realtime keeps track of live sockets per user and delivers
// server pushes to them.
package realtime

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/oggyb/destined/internal/metrics"
)

var ErrRegistryClosed = errors.New("realtime: registry closed")

// Registry maps a user id to its live connections (the user's room).
//
// Delivery is at-most-once: Emit never blocks, and a frame that does not
// fit into a connection's send buffer is dropped for that connection.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[uint64]map[*Conn]struct{}
	closed bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewRegistry(logger *slog.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		rooms:   make(map[uint64]map[*Conn]struct{}),
		logger:  logger,
		metrics: m,
	}
}

// Join adds c to the room of c.UserID.
func (r *Registry) Join(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	room, ok := r.rooms[c.UserID]
	if !ok {
		room = make(map[*Conn]struct{})
		r.rooms[c.UserID] = room
	}
	room[c] = struct{}{}
	return nil
}

// Leave removes c from its room. Unknown connections are ignored.
func (r *Registry) Leave(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.rooms[c.UserID]
	delete(room, c)
	if len(room) == 0 {
		delete(r.rooms, c.UserID)
	}
}

// Emit sends event to every connection of userID. A user with no live
// connection simply misses the push.
func (r *Registry) Emit(userID uint64, event string, payload any) {
	msg, err := encode(event, payload)
	if err != nil {
		r.logger.Error("failed to encode push", "event", event, "user", userID, "err", err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.rooms[userID] {
		if !c.offer(msg) {
			r.metrics.FrameDropped()
			r.logger.Warn("push dropped", "event", event, "user", userID)
		}
	}
}

// Connections returns how many live connections userID has.
func (r *Registry) Connections(userID uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[userID])
}

// Close shuts every connection down. Later joins fail with ErrRegistryClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, room := range r.rooms {
		for c := range room {
			c.Close()
		}
	}
	r.rooms = make(map[uint64]map[*Conn]struct{})
	r.logger.Info("realtime registry closed")
}
