package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultProgressTimeout bounds how long loadInto waits for the first
// progress report after starting playback, so corrupt media cannot suspend
// a transition indefinitely.
const DefaultProgressTimeout = 5 * time.Second

// ErrNoProgress is returned by loadInto when a surface never reports
// decodable progress within the timeout. Transitions proceed anyway; a
// broken clip is then recovered by the watcher's safety net.
var ErrNoProgress = errors.New("no playback progress")

// Player owns the two playback surfaces and the session state shared with
// the end-of-clip watcher: which role is active, the current playback rate,
// and the exiting flag. The role flip at the end of a transition is the
// single source of truth for "which surface is active".
type Player struct {
	log             *slog.Logger
	progressTimeout time.Duration

	mu            sync.Mutex
	surfaces      map[Role]Surface
	active        Role
	current       *Clip
	rate          float64
	exiting       bool
	held          bool
	pos           map[Role]float64
	dur           map[Role]float64
	firstProgress map[Role]chan struct{}

	watcher *Watcher
}

// NewPlayer returns a Player over the two surfaces. RoleA starts active.
// progressTimeout <= 0 selects DefaultProgressTimeout.
func NewPlayer(a, b Surface, log *slog.Logger, progressTimeout time.Duration) *Player {
	if progressTimeout <= 0 {
		progressTimeout = DefaultProgressTimeout
	}
	return &Player{
		log:             log,
		progressTimeout: progressTimeout,
		surfaces:        map[Role]Surface{RoleA: a, RoleB: b},
		active:          RoleA,
		rate:            1.0,
		pos:             make(map[Role]float64),
		dur:             make(map[Role]float64),
		firstProgress:   make(map[Role]chan struct{}),
	}
}

func (p *Player) setWatcher(w *Watcher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watcher = w
}

// ActiveRole returns the role of the currently visible surface.
func (p *Player) ActiveRole() Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Current returns the clip playing on the active surface, or nil before the
// first transition completes.
func (p *Player) Current() *Clip {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Rate returns the session playback rate.
func (p *Player) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// Exiting reports whether the session is in the approach-to-end interval.
func (p *Player) Exiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exiting
}

// Held reports whether the active surface is paused on its final frame.
func (p *Player) Held() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held
}

// beginExitFor flips the exiting flag on, provided role is still the active
// surface. Returns false otherwise, which makes the watcher's level-sensitive
// trigger fire once per clip and keeps an event that crossed a role flip from
// arming an exit for the clip that replaced it.
func (p *Player) beginExitFor(role Role) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if role != p.active || p.exiting {
		return false
	}
	p.exiting = true
	return true
}

// latchHeld marks the session as held while it is still exiting. Returns
// false when something else already held it or a transition cleared the exit,
// so concurrent end-of-clip paths resolve to exactly one rotation.
func (p *Player) latchHeld() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exiting || p.held {
		return false
	}
	p.held = true
	return true
}

// latchHeldFor is latchHeld keyed to a surface: it refuses once the role is
// no longer active, dropping end-of-media signals that arrive after the flip.
func (p *Player) latchHeldFor(role Role) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if role != p.active || p.held {
		return false
	}
	p.exiting = true
	p.held = true
	return true
}

// clampRate caps the session rate into [floor, ceiling] and applies it to
// the active surface. A no-op once the session stopped exiting.
func (p *Player) clampRate(ceiling, floor float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exiting {
		return
	}
	rate := p.rate
	if rate > ceiling {
		rate = ceiling
	}
	if rate < floor {
		rate = floor
	}
	p.rate = rate
	p.surfaces[p.active].SetRate(rate)
}

// stepRateDown lowers the session rate by step toward floor and applies it
// to the active surface. Returns false without touching the rate once the
// session stopped exiting, so a ramp tick racing a transition's role flip
// cannot slow the incoming clip.
func (p *Player) stepRateDown(step, floor float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exiting || p.held {
		return false
	}
	rate := p.rate - step
	if rate < floor {
		rate = floor
	}
	p.rate = rate
	p.surfaces[p.active].SetRate(rate)
	return true
}

// activeProgress returns the last reported position and duration of the
// active surface, in seconds.
func (p *Player) activeProgress() (pos, dur float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos[p.active], p.dur[p.active]
}

// holdAtEnd pauses the active surface and clamps its position just short of
// the end, so looping media cannot snap back to position zero while held.
func (p *Player) holdAtEnd(clamp time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.surfaces[p.active]
	s.Pause()
	if dur := p.dur[p.active]; dur > 0 {
		target := dur - clamp.Seconds()
		if target < 0 {
			target = 0
		}
		s.Seek(target)
	}
}

// pauseActive pauses the active surface without touching its position.
func (p *Player) pauseActive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surfaces[p.active].Pause()
}

// HandleProgress ingests a playback progress report for one surface. The
// first report after a load releases the loadInto wait; reports from the
// active surface additionally drive the end-of-clip watcher. Reports from
// the idle surface never reach the watcher.
func (p *Player) HandleProgress(role Role, pos, dur float64) {
	p.mu.Lock()
	p.pos[role] = pos
	p.dur[role] = dur
	if ch := p.firstProgress[role]; ch != nil {
		close(ch)
		p.firstProgress[role] = nil
	}
	isActive := role == p.active
	w := p.watcher
	p.mu.Unlock()

	if isActive && w != nil {
		w.onProgress(role, pos, dur)
	}
}

// HandleEnded ingests an end-of-media signal. Stale events from the idle
// surface are ignored.
func (p *Player) HandleEnded(role Role) {
	p.mu.Lock()
	isActive := role == p.active
	w := p.watcher
	p.mu.Unlock()

	if isActive && w != nil {
		w.onEnded(role)
	}
}

// HandleError ingests a playback error signal from one surface.
func (p *Player) HandleError(role Role) {
	p.mu.Lock()
	isActive := role == p.active
	w := p.watcher
	p.mu.Unlock()

	if isActive && w != nil {
		w.onError(role)
	}
}

// loadInto assigns the clip to the given surface, restores normal rate,
// starts playback, and waits for the surface's first progress report or the
// bounded timeout, whichever comes first. The exiting flag is cleared and
// any running deceleration ramp cancelled the instant the load begins.
func (p *Player) loadInto(ctx context.Context, role Role, clip *Clip) error {
	p.mu.Lock()
	w := p.watcher
	p.mu.Unlock()
	if w != nil {
		w.cancelRamp()
	}

	p.mu.Lock()
	p.exiting = false
	p.held = false
	p.rate = 1.0
	p.pos[role] = 0
	p.dur[role] = 0
	ch := make(chan struct{})
	p.firstProgress[role] = ch
	s := p.surfaces[role]
	p.mu.Unlock()

	s.Load(clip.Address)
	s.SetRate(1.0)
	s.Play()

	t := time.NewTimer(p.progressTimeout)
	defer t.Stop()
	select {
	case <-ch:
		return nil
	case <-t.C:
		return fmt.Errorf("surface %s: %s: %w", role, clip.Address, ErrNoProgress)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transition loads clip into the idle surface, performs the configured
// visual swap, pauses the outgoing surface, and flips the role tags. The
// flip is atomic with respect to the watcher's active-surface checks.
func (p *Player) Transition(ctx context.Context, clip *Clip, st Settings) error {
	p.mu.Lock()
	fromRole := p.active
	toRole := p.active.Other()
	from := p.surfaces[fromRole]
	to := p.surfaces[toRole]
	p.mu.Unlock()

	if err := p.loadInto(ctx, toRole, clip); err != nil {
		if !errors.Is(err, ErrNoProgress) {
			return err
		}
		// Proceed with the swap; a dead surface is recovered by the
		// watcher's safety net once its error event arrives.
		p.log.Warn("transition proceeding without progress",
			slog.String("surface", string(toRole)),
			slog.String("address", clip.Address))
	}

	if st.InterClipDelay > 0 {
		if err := sleepCtx(ctx, st.InterClipDelay); err != nil {
			return err
		}
	}

	switch st.Style {
	case StyleCut:
		to.SetOpacity(1, 0)
		from.SetOpacity(0, 0)
	case StyleFade:
		// Fade-through: active out over half the duration, then the idle
		// surface snaps to visible. Asymmetric on purpose.
		from.SetOpacity(0, st.Fade/2)
		if err := sleepCtx(ctx, st.Fade/2); err != nil {
			return err
		}
		to.SetOpacity(1, 0)
	default:
		to.SetOpacity(1, st.Fade)
		from.SetOpacity(0, st.Fade)
		if err := sleepCtx(ctx, st.Fade); err != nil {
			return err
		}
	}

	// The outgoing surface stays active until here, so a near-end progress
	// event during the fade can re-arm exiting and a ramp. Both die with the
	// flip; otherwise they would leak onto the incoming clip.
	p.mu.Lock()
	from.Pause()
	p.active = toRole
	p.current = clip
	p.exiting = false
	p.held = false
	p.rate = 1.0
	w := p.watcher
	p.mu.Unlock()
	if w != nil {
		w.cancelRamp()
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
