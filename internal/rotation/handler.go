package rotation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the engine's control and event endpoints using go-chi.
type Handler struct {
	engine *Engine
	hub    *Hub
	log    *slog.Logger
}

// NewHandler returns a Handler over the given engine and command hub.
func NewHandler(engine *Engine, hub *Hub, log *slog.Logger) *Handler {
	return &Handler{engine: engine, hub: hub, log: log}
}

// Routes mounts all handler endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/next", h.Next)
	r.Get("/status", h.Status)
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Post("/screen", h.Screen)
	r.Post("/overlay", h.ToggleOverlay)
	r.Post("/fullscreen", h.ToggleFullscreen)
	r.Post("/surfaces/{role}/events", h.SurfaceEvent)
	r.Get("/events", h.Events)
}

// Next handles POST /next: the manual next-clip intent. The rotation runs in
// the background; a transition can take several seconds of fade time.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	go h.engine.Rotate(h.engine.ctx)
	w.WriteHeader(http.StatusAccepted)
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// settingsPayload is the wire form of the tunables, durations in
// milliseconds. Pointer fields so updates can be partial.
type settingsPayload struct {
	HoldEnabled      *bool   `json:"hold_enabled,omitempty"`
	HoldMs           *int64  `json:"hold_ms,omitempty"`
	FadeMs           *int64  `json:"fade_ms,omitempty"`
	Transition       *string `json:"transition,omitempty"`
	InterClipDelayMs *int64  `json:"inter_clip_delay_ms,omitempty"`
}

func payloadFrom(s Settings) settingsPayload {
	hold := s.Hold.Milliseconds()
	fade := s.Fade.Milliseconds()
	delay := s.InterClipDelay.Milliseconds()
	style := string(s.Style)
	return settingsPayload{
		HoldEnabled:      &s.HoldEnabled,
		HoldMs:           &hold,
		FadeMs:           &fade,
		Transition:       &style,
		InterClipDelayMs: &delay,
	}
}

func (p settingsPayload) apply(s Settings) (Settings, error) {
	if p.HoldEnabled != nil {
		s.HoldEnabled = *p.HoldEnabled
	}
	if p.HoldMs != nil {
		if *p.HoldMs < 0 {
			return s, fmt.Errorf("hold_ms must be >= 0")
		}
		s.Hold = time.Duration(*p.HoldMs) * time.Millisecond
	}
	if p.FadeMs != nil {
		if *p.FadeMs < 0 {
			return s, fmt.Errorf("fade_ms must be >= 0")
		}
		s.Fade = time.Duration(*p.FadeMs) * time.Millisecond
	}
	if p.Transition != nil {
		style := TransitionStyle(*p.Transition)
		if !ValidStyle(style) {
			return s, fmt.Errorf("unknown transition %q", *p.Transition)
		}
		s.Style = style
	}
	if p.InterClipDelayMs != nil {
		if *p.InterClipDelayMs < 0 {
			return s, fmt.Errorf("inter_clip_delay_ms must be >= 0")
		}
		s.InterClipDelay = time.Duration(*p.InterClipDelayMs) * time.Millisecond
	}
	return s, nil
}

// GetSettings handles GET /settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, payloadFrom(h.engine.Settings()))
}

// UpdateSettings handles PUT /settings. Partial updates merge over the
// current values; the result is persisted.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var p settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.log.Debug("invalid settings body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	next, err := p.apply(h.engine.Settings())
	if err != nil {
		h.log.Debug("settings rejected", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.engine.UpdateSettings(next)
	h.log.Info("settings updated",
		slog.Bool("hold_enabled", next.HoldEnabled),
		slog.Int64("hold_ms", next.Hold.Milliseconds()),
		slog.Int64("fade_ms", next.Fade.Milliseconds()),
		slog.String("transition", string(next.Style)))
	writeJSON(w, http.StatusOK, payloadFrom(next))
}

// Screen handles POST /screen: the viewport dimensions signal.
func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body.Width <= 0 || body.Height <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.engine.SetScreenSize(body.Width, body.Height)
	w.WriteHeader(http.StatusNoContent)
}

// SurfaceEvent handles POST /surfaces/{role}/events: progress, ended, and
// error reports from the shell's video elements.
func (h *Handler) SurfaceEvent(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	if role != RoleA && role != RoleB {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var body struct {
		Type     string  `json:"type"`
		Position float64 `json:"position"`
		Duration float64 `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch body.Type {
	case "progress", "ended", "error":
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.engine.HandleSurfaceEvent(role, body.Type, body.Position, body.Duration)
	w.WriteHeader(http.StatusAccepted)
}

// ToggleOverlay handles POST /overlay: relayed to the shell as a command.
func (h *Handler) ToggleOverlay(w http.ResponseWriter, r *http.Request) {
	h.hub.Publish(Command{Op: "overlay"})
	w.WriteHeader(http.StatusAccepted)
}

// ToggleFullscreen handles POST /fullscreen.
func (h *Handler) ToggleFullscreen(w http.ResponseWriter, r *http.Request) {
	h.hub.Publish(Command{Op: "fullscreen"})
	w.WriteHeader(http.StatusAccepted)
}

// Events handles GET /events: the SSE command stream consumed by the shell.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	cmds, cancel := h.hub.Subscribe()
	defer cancel()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			fl.Flush()
		case cmd := <-cmds:
			b, err := json.Marshal(cmd)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			fl.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
