// Package broadcast fans room events out to participant connections.
package broadcast

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"snakeball-backend/protocol"
)

var ErrSlowConsumer = errors.New("send buffer full")

// Sink is one outbound transport of a participant. Send must not block.
type Sink interface {
	Codec() protocol.Codec
	Send(frame []byte) error
}

type member struct {
	primary Sink
	lossy   Sink
	rooms   map[string]struct{}
}

// Hub tracks participant sinks and room subscriptions. Every message is
// encoded once per codec and the same frame is handed to every sink.
type Hub struct {
	mu      sync.RWMutex
	members map[string]*member
	rooms   map[string]map[string]struct{}
	lossy   map[string]bool
	log     zerolog.Logger
}

// NewHub returns a hub that routes the given message types over a
// participant's lossy sink when one is attached.
func NewHub(lossyTypes ...string) *Hub {
	h := &Hub{
		members: make(map[string]*member),
		rooms:   make(map[string]map[string]struct{}),
		lossy:   make(map[string]bool, len(lossyTypes)),
		log:     log.With().Str("component", "broadcast").Logger(),
	}
	for _, t := range lossyTypes {
		h.lossy[t] = true
	}
	return h
}

func (h *Hub) Register(id string, s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.members[id]; ok {
		m.primary = s
		return
	}
	h.members[id] = &member{primary: s, rooms: make(map[string]struct{})}
}

// Unregister drops id and every subscription it holds.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.members[id]
	if !ok {
		return
	}
	for roomID := range m.rooms {
		h.unsubscribe(roomID, id)
	}
	delete(h.members, id)
}

func (h *Hub) AttachLossy(id string, s Sink) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.members[id]
	if !ok {
		return false
	}
	m.lossy = s
	return true
}

func (h *Hub) DetachLossy(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.members[id]; ok {
		m.lossy = nil
	}
}

func (h *Hub) Subscribe(roomID, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.members[id]
	if !ok {
		return
	}
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[string]struct{})
		h.rooms[roomID] = subs
	}
	subs[id] = struct{}{}
	m.rooms[roomID] = struct{}{}
}

func (h *Hub) Unsubscribe(roomID, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribe(roomID, id)
}

func (h *Hub) unsubscribe(roomID, id string) {
	if subs, ok := h.rooms[roomID]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if m, ok := h.members[id]; ok {
		delete(m.rooms, roomID)
	}
}

// Subscribers returns the ids subscribed to roomID.
func (h *Hub) Subscribers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[roomID]))
	for id := range h.rooms[roomID] {
		ids = append(ids, id)
	}
	return ids
}

// Publish delivers a message to every subscriber of roomID.
func (h *Hub) Publish(roomID, msgType string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	frames := make(frameCache)
	for id := range h.rooms[roomID] {
		h.deliver(id, h.members[id], msgType, data, frames)
	}
}

// Send delivers a message to one participant.
func (h *Hub) Send(id, msgType string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if m, ok := h.members[id]; ok {
		h.deliver(id, m, msgType, data, make(frameCache))
	}
}

// Broadcast delivers a message to every registered participant.
func (h *Hub) Broadcast(msgType string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	frames := make(frameCache)
	for id, m := range h.members {
		h.deliver(id, m, msgType, data, frames)
	}
}

func (h *Hub) deliver(id string, m *member, msgType string, data any, frames frameCache) {
	if m == nil {
		return
	}

	if m.lossy != nil && h.lossy[msgType] {
		frame, err := frames.get(m.lossy.Codec(), msgType, data)
		if err == nil && m.lossy.Send(frame) == nil {
			return
		}
	}
	if m.primary == nil {
		return
	}

	frame, err := frames.get(m.primary.Codec(), msgType, data)
	if err != nil {
		h.log.Error().Err(err).Str("type", msgType).Msg("encode failed")
		return
	}
	if err := m.primary.Send(frame); err != nil {
		h.log.Warn().Err(err).Str("participant", id).Str("type", msgType).Msg("dropped message")
	}
}

type frameCache map[string]cachedFrame

type cachedFrame struct {
	frame []byte
	err   error
}

func (c frameCache) get(codec protocol.Codec, msgType string, data any) ([]byte, error) {
	if f, ok := c[codec.Name()]; ok {
		return f.frame, f.err
	}
	frame, err := codec.Encode(msgType, data)
	c[codec.Name()] = cachedFrame{frame: frame, err: err}
	return frame, err
}
