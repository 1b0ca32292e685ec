package rotation

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeSurface is a scripted Surface. With auto set, it reports a first
// progress event as soon as playback starts, using the scripted duration for
// the loaded address.
type fakeSurface struct {
	role      Role
	player    *Player
	durations map[string]float64
	auto      bool

	mu       sync.Mutex
	address  string
	playing  bool
	rate     float64
	rates    []float64
	opacity  float64
	lastRamp time.Duration
	seeks    []float64
	loads    []string
}

func newFakeSurface(role Role) *fakeSurface {
	return &fakeSurface{
		role:      role,
		durations: make(map[string]float64),
		auto:      true,
		rate:      1,
	}
}

func (s *fakeSurface) Load(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = address
	s.loads = append(s.loads, address)
}

func (s *fakeSurface) Play() {
	s.mu.Lock()
	s.playing = true
	addr := s.address
	auto := s.auto
	p := s.player
	s.mu.Unlock()

	if auto && p != nil {
		dur := s.durations[addr]
		go p.HandleProgress(s.role, 0, dur)
	}
}

func (s *fakeSurface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *fakeSurface) SetRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	s.rates = append(s.rates, rate)
}

func (s *fakeSurface) SetOpacity(target float64, ramp time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opacity = target
	s.lastRamp = ramp
}

func (s *fakeSurface) Seek(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, position)
}

func (s *fakeSurface) Opacity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opacity
}

func (s *fakeSurface) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *fakeSurface) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *fakeSurface) Rates() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.rates))
	copy(out, s.rates)
	return out
}

func (s *fakeSurface) Seeks() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.seeks))
	copy(out, s.seeks)
	return out
}

func (s *fakeSurface) LastRamp() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRamp
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPlayer(t *testing.T) (*Player, *fakeSurface, *fakeSurface) {
	t.Helper()
	a := newFakeSurface(RoleA)
	b := newFakeSurface(RoleB)
	p := NewPlayer(a, b, discardLogger(), 100*time.Millisecond)
	a.player = p
	b.player = p
	return p, a, b
}

// fastWatcherConfig keeps the default media-time thresholds but ticks the
// ramp quickly so tests run in milliseconds.
func fastWatcherConfig() WatcherConfig {
	cfg := DefaultWatcherConfig()
	cfg.Tick = 5 * time.Millisecond
	return cfg
}

func newTestEngine(t *testing.T, clips []*Clip) (*Engine, *fakeSurface, *fakeSurface) {
	t.Helper()
	return newTestEngineWith(t, clips, newFakeSurface(RoleA), newFakeSurface(RoleB))
}

func newTestEngineWith(t *testing.T, clips []*Clip, a, b *fakeSurface) (*Engine, *fakeSurface, *fakeSurface) {
	t.Helper()
	idx := BuildIndex(clips, testRand())
	e := NewEngine(idx, a, b, nil, discardLogger(), nil, EngineConfig{
		Watcher:         fastWatcherConfig(),
		ProgressTimeout: 100 * time.Millisecond,
		ResizeSettle:    10 * time.Millisecond,
		ScreenW:         1920,
		ScreenH:         1080,
	})
	a.player = e.Player()
	b.player = e.Player()
	t.Cleanup(e.Close)
	return e, a, b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
