package rotation

import (
	"log/slog"
	"sync"
	"time"
)

// WatcherConfig holds the timing constants of the end-of-clip state machine.
type WatcherConfig struct {
	// Lead is the remaining playback time that triggers the deceleration ramp.
	Lead time.Duration
	// Tick is the deceleration ramp interval.
	Tick time.Duration
	// RateStep is subtracted from the playback rate on every ramp tick.
	RateStep float64
	// SlowCeiling caps the rate the moment the ramp starts.
	SlowCeiling float64
	// RateFloor is the lowest rate the ramp may reach.
	RateFloor float64
	// EndEpsilon is the remaining time treated as end-of-clip.
	EndEpsilon time.Duration
	// ClampEpsilon is how far before the end the held position is clamped,
	// keeping looping media from snapping back to zero.
	ClampEpsilon time.Duration
}

// DefaultWatcherConfig returns the stock timings.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Lead:         1500 * time.Millisecond,
		Tick:         120 * time.Millisecond,
		RateStep:     0.05,
		SlowCeiling:  0.7,
		RateFloor:    0.5,
		EndEpsilon:   50 * time.Millisecond,
		ClampEpsilon: 100 * time.Millisecond,
	}
}

// Watcher observes playback progress on the active surface and drives the
// session through Playing, Approaching-End, and Held. Near the end of a clip
// it slows playback with a linear ramp, pauses on the final frame, optionally
// holds it, and then requests rotation. It never reassigns surface roles
// itself; the Player filters out events from the idle surface before they
// reach the watcher.
type Watcher struct {
	cfg    WatcherConfig
	player *Player
	log    *slog.Logger

	// rotate requests the next clip; hold returns the current hold settings.
	rotate func()
	hold   func() (enabled bool, d time.Duration)
	// onPlaybackFailure is an optional hook for error accounting.
	onPlaybackFailure func()

	done <-chan struct{}

	mu       sync.Mutex
	rampStop chan struct{}
}

// NewWatcher wires a watcher to the player. The watcher registers itself as
// the player's observer for both surfaces; the role flip after each
// transition means either surface can become the one it acts on.
func NewWatcher(cfg WatcherConfig, player *Player, rotate func(), hold func() (bool, time.Duration), log *slog.Logger, done <-chan struct{}) *Watcher {
	w := &Watcher{
		cfg:    cfg,
		player: player,
		log:    log,
		rotate: rotate,
		hold:   hold,
		done:   done,
	}
	player.setWatcher(w)
	return w
}

// onProgress is the Playing → Approaching-End transition. Level-sensitive:
// the condition holds on every progress report near the end, so beginExitFor
// gates the side effects to fire exactly once per clip.
func (w *Watcher) onProgress(role Role, pos, dur float64) {
	if dur <= 0 {
		return
	}
	if dur-pos > w.cfg.Lead.Seconds() {
		return
	}
	if !w.player.beginExitFor(role) {
		return
	}
	w.player.clampRate(w.cfg.SlowCeiling, w.cfg.RateFloor)
	w.startRamp()
}

// onEnded handles an end-of-media signal on the active surface. It is both
// the safety net for clips whose approach was never detected and the forced
// exit for a ramp whose last known position sits above the end epsilon; in
// either case the media is over and Held must be entered now, or the ramp
// would re-read the stale position forever. The held latch drops the signal
// once the clip is already held, so an ended during the hold itself cannot
// rotate twice.
func (w *Watcher) onEnded(role Role) {
	w.player.beginExitFor(role)
	if !w.player.latchHeldFor(role) {
		return
	}
	w.cancelRamp()
	w.player.holdAtEnd(w.cfg.ClampEpsilon)
	go w.afterHeld()
}

// onError treats a playback failure on the active surface as an immediate
// end-of-clip-equivalent event, whether or not the exit sequence already
// started. The failed clip stays in its bucket and is simply eligible again
// on a future pick.
func (w *Watcher) onError(role Role) {
	if w.onPlaybackFailure != nil {
		w.onPlaybackFailure()
	}
	w.player.beginExitFor(role)
	if !w.player.latchHeldFor(role) {
		return
	}
	w.cancelRamp()
	w.player.pauseActive()
	w.log.Warn("active surface playback error, rotating")
	go w.afterHeld()
}

func (w *Watcher) startRamp() {
	w.mu.Lock()
	if w.rampStop != nil {
		w.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	w.rampStop = stop
	w.mu.Unlock()
	go w.runRamp(stop)
}

// runRamp is the Approaching-End tick loop: every tick either the clip is
// close enough to its end to enter Held, or the rate steps down toward the
// floor. The loop exits on cancellation, or on its own once the session
// stops exiting, so a stale ramp can never drive the rate of a clip it no
// longer belongs to.
func (w *Watcher) runRamp(stop chan struct{}) {
	tick := time.NewTicker(w.cfg.Tick)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-w.done:
			return
		case <-tick.C:
			pos, dur := w.player.activeProgress()
			if dur > 0 && dur-pos <= w.cfg.EndEpsilon.Seconds() {
				w.clearRamp(stop)
				if w.player.latchHeld() {
					w.player.holdAtEnd(w.cfg.ClampEpsilon)
					w.afterHeld()
				}
				return
			}
			if !w.player.stepRateDown(w.cfg.RateStep, w.cfg.RateFloor) {
				w.clearRamp(stop)
				return
			}
		}
	}
}

// afterHeld is the Held → next Playing handoff: wait out the hold if enabled,
// then request rotation. The exiting flag stays set until the next load
// begins, so a late progress report on the outgoing surface cannot re-enter
// Approaching-End.
func (w *Watcher) afterHeld() {
	if enabled, d := w.hold(); enabled && d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-w.done:
			return
		}
	}
	select {
	case <-w.done:
		return
	default:
	}
	w.rotate()
}

// cancelRamp stops a running deceleration ramp, if any. Called on every path
// out of Approaching-End, including a new clip load.
func (w *Watcher) cancelRamp() {
	w.mu.Lock()
	if w.rampStop != nil {
		close(w.rampStop)
		w.rampStop = nil
	}
	w.mu.Unlock()
}

func (w *Watcher) clearRamp(stop chan struct{}) {
	w.mu.Lock()
	if w.rampStop == stop {
		w.rampStop = nil
	}
	w.mu.Unlock()
}

// Ramping reports whether the deceleration ramp is currently running.
func (w *Watcher) Ramping() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rampStop != nil
}
