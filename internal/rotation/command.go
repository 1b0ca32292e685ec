package rotation

import (
	"sync"
	"time"
)

// Command is one instruction streamed to the browser shell, which owns the
// actual video elements and executes transport and opacity changes there.
type Command struct {
	Op      string  `json:"op"`
	Surface Role    `json:"surface,omitempty"`
	Address string  `json:"address,omitempty"`
	Value   float64 `json:"value,omitempty"`
	RampMs  int64   `json:"ramp_ms,omitempty"`
}

// Hub fans commands out to SSE subscribers. Publishing never blocks; a
// subscriber that cannot keep up loses commands rather than stalling the
// engine.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Command]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Command]struct{})}
}

// Subscribe registers a new consumer. The returned cancel func must be
// called when the consumer goes away.
func (h *Hub) Subscribe() (<-chan Command, func()) {
	ch := make(chan Command, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers cmd to every subscriber, dropping on full buffers.
func (h *Hub) Publish(cmd Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- cmd:
		default:
		}
	}
}

// RemoteSurface implements Surface by publishing commands to a Hub. The
// shell applies each command to the video element tagged with the role and
// reports progress back through the surface events endpoint.
type RemoteSurface struct {
	role Role
	hub  *Hub
}

// NewRemoteSurface binds a role tag to a hub.
func NewRemoteSurface(role Role, hub *Hub) *RemoteSurface {
	return &RemoteSurface{role: role, hub: hub}
}

func (s *RemoteSurface) Load(address string) {
	s.hub.Publish(Command{Op: "load", Surface: s.role, Address: address})
}

func (s *RemoteSurface) Play() {
	s.hub.Publish(Command{Op: "play", Surface: s.role})
}

func (s *RemoteSurface) Pause() {
	s.hub.Publish(Command{Op: "pause", Surface: s.role})
}

func (s *RemoteSurface) SetRate(rate float64) {
	s.hub.Publish(Command{Op: "rate", Surface: s.role, Value: rate})
}

func (s *RemoteSurface) SetOpacity(target float64, ramp time.Duration) {
	s.hub.Publish(Command{Op: "opacity", Surface: s.role, Value: target, RampMs: ramp.Milliseconds()})
}

func (s *RemoteSurface) Seek(position float64) {
	s.hub.Publish(Command{Op: "seek", Surface: s.role, Value: position})
}
