package rotation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ambientloop/internal/platform/metrics"
)

// DefaultResizeSettle is how long the screen dimensions must be stable after
// an orientation change before a rotation is triggered.
const DefaultResizeSettle = 400 * time.Millisecond

// SettingsStore persists the user tunables across sessions. Implementations
// return defaults for anything missing or invalid.
type SettingsStore interface {
	Load() (Settings, error)
	Save(Settings) error
}

// EngineConfig carries construction-time knobs; zero values select defaults.
type EngineConfig struct {
	Watcher         WatcherConfig
	ProgressTimeout time.Duration
	ResizeSettle    time.Duration
	ScreenW         int
	ScreenH         int
}

// Engine is the rotation controller: the single entry point that picks the
// next clip for the current screen orientation and hands it to the player.
// Rotate is invoked by the manual next intent, by the debounced screen
// orientation change, and by the watcher after a clip is held. Rotations
// are serialized; two transitions can never race onto the same idle surface.
type Engine struct {
	log     *slog.Logger
	met     *metrics.Metrics
	index   *BucketIndex
	player  *Player
	watcher *Watcher
	store   SettingsStore

	ctx    context.Context
	cancel context.CancelFunc

	rotateMu sync.Mutex

	mu          sync.Mutex
	settings    Settings
	screenW     int
	screenH     int
	settle      *time.Timer
	settleAfter time.Duration
}

// NewEngine wires the player, watcher, and bucket index into a controller.
// store and met may be nil (settings then live in memory only; no metrics).
func NewEngine(index *BucketIndex, a, b Surface, store SettingsStore, log *slog.Logger, met *metrics.Metrics, cfg EngineConfig) *Engine {
	if cfg.Watcher == (WatcherConfig{}) {
		cfg.Watcher = DefaultWatcherConfig()
	}
	if cfg.ResizeSettle <= 0 {
		cfg.ResizeSettle = DefaultResizeSettle
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		log:         log,
		met:         met,
		index:       index,
		store:       store,
		ctx:         ctx,
		cancel:      cancel,
		settings:    DefaultSettings(),
		screenW:     cfg.ScreenW,
		screenH:     cfg.ScreenH,
		settleAfter: cfg.ResizeSettle,
	}

	if store != nil {
		s, err := store.Load()
		if err != nil {
			log.Warn("settings load failed, using defaults", slog.String("error", err.Error()))
		}
		e.settings = s
	}

	e.player = NewPlayer(a, b, log, cfg.ProgressTimeout)
	var failureHook func()
	if met != nil {
		failureHook = met.IncPlaybackErrors
	}
	e.watcher = NewWatcher(cfg.Watcher, e.player, func() { e.Rotate(e.ctx) }, e.holdSettings, log, ctx.Done())
	e.watcher.onPlaybackFailure = failureHook

	return e
}

// Start kicks off the first rotation in the background.
func (e *Engine) Start() {
	go e.Rotate(e.ctx)
}

// Close cancels all background activity: pending holds, deceleration ramps,
// and the resize settle timer.
func (e *Engine) Close() {
	e.cancel()
	e.watcher.cancelRamp()
	e.mu.Lock()
	if e.settle != nil {
		e.settle.Stop()
	}
	e.mu.Unlock()
}

// Player exposes the dual-surface player for event intake.
func (e *Engine) Player() *Player {
	return e.player
}

// Settings returns a copy of the current tunables.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *Engine) holdSettings() (bool, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.HoldEnabled, e.settings.Hold
}

// UpdateSettings applies and persists new tunables. Persistence failure is
// logged, not fatal; the in-memory values still take effect.
func (e *Engine) UpdateSettings(s Settings) {
	e.mu.Lock()
	e.settings = s
	store := e.store
	e.mu.Unlock()

	if store != nil {
		if err := store.Save(s); err != nil {
			e.log.Error("settings save failed", slog.String("error", err.Error()))
		}
	}
}

// ScreenOrientation classifies the current viewport dimensions.
func (e *Engine) ScreenOrientation() Orientation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Classify(e.screenW, e.screenH)
}

// SetScreenSize records the viewport dimensions. When the classification
// changes, a rotation is scheduled after a settle delay; repeated resize
// events within the delay reset it.
func (e *Engine) SetScreenSize(w, h int) {
	e.mu.Lock()
	prev := Classify(e.screenW, e.screenH)
	e.screenW = w
	e.screenH = h
	next := Classify(w, h)
	changed := prev != next
	if changed {
		if e.settle != nil {
			e.settle.Stop()
		}
		e.settle = time.AfterFunc(e.settleAfter, func() {
			select {
			case <-e.ctx.Done():
				return
			default:
			}
			e.Rotate(e.ctx)
		})
	}
	e.mu.Unlock()

	if changed {
		e.log.Info("screen orientation changed",
			slog.Int("width", w),
			slog.Int("height", h),
			slog.String("orientation", string(next)))
	}
}

// Rotate picks the next clip for the current screen orientation via the
// bucket fallback chain and transitions to it. An empty library is a no-op,
// never an error. Concurrent calls serialize; a caller blocks until any
// in-flight transition completes.
func (e *Engine) Rotate(ctx context.Context) {
	e.rotateMu.Lock()
	defer e.rotateMu.Unlock()

	select {
	case <-ctx.Done():
		return
	default:
	}

	o := e.ScreenOrientation()
	clip := e.index.PickForScreen(o)
	if clip == nil {
		e.log.Debug("rotation skipped, library empty")
		return
	}

	st := e.Settings()
	if err := e.player.Transition(ctx, clip, st); err != nil {
		e.log.Error("transition failed",
			slog.String("address", clip.Address),
			slog.String("error", err.Error()))
		return
	}

	e.log.Info("rotated",
		slog.String("address", clip.Address),
		slog.String("title", clip.Title),
		slog.String("orientation", string(clip.Orientation)),
		slog.String("screen", string(o)))
	if e.met != nil {
		e.met.IncRotations()
	}
}

// Snapshot returns a read-only view of the session for the status endpoint.
func (e *Engine) Snapshot() SessionSnapshot {
	e.mu.Lock()
	w, h := e.screenW, e.screenH
	e.mu.Unlock()
	return SessionSnapshot{
		Active:      e.player.ActiveRole(),
		Current:     e.player.Current(),
		Rate:        e.player.Rate(),
		Exiting:     e.player.Exiting(),
		ScreenW:     w,
		ScreenH:     h,
		ScreenShape: Classify(w, h),
	}
}

// HandleSurfaceEvent routes a playback event from the shell to the player.
// Unknown kinds are ignored by the caller's validation.
func (e *Engine) HandleSurfaceEvent(role Role, kind string, pos, dur float64) {
	switch kind {
	case "progress":
		e.player.HandleProgress(role, pos, dur)
	case "ended":
		e.player.HandleEnded(role)
	case "error":
		e.player.HandleError(role)
	}
}
