package chat

import (
	"sync"

	"clinic_chat_server/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

// Hub maps each room to its live sessions on this instance.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Session]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*Session]struct{})}
}

// Register subscribes s to its room.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[s.roomID]
	if !ok {
		set = make(map[*Session]struct{})
		h.rooms[s.roomID] = set
	}
	set[s] = struct{}{}
}

// Unregister removes s and closes its queue. Safe to call twice.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[s.roomID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.rooms, s.roomID)
	}
	close(s.send)
}

// Deliver queues ev on every session of its room. A full queue drops the
// event for that session only; typists do not receive their own typing.
func (h *Hub) Deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[ev.RoomID] {
		if ev.Type == EventTyping && s.userID == ev.UserID {
			continue
		}
		select {
		case s.send <- ev:
		default:
			metrics.RecordEventDropped()
			zap.L().Warn("session queue full, event dropped",
				zap.Uint("room_id", ev.RoomID), zap.Uint("user_id", s.userID), zap.String("type", ev.Type))
		}
	}
}

// Count returns the number of sessions subscribed to roomID.
func (h *Hub) Count(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
