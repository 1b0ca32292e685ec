package rotation

import "time"

// Orientation classifies a width/height pair.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
	Square    Orientation = "square"
)

// Role identifies one of the two playback surfaces. Which role is visible
// flips after every transition; RoleA starts active.
type Role string

const (
	RoleA Role = "a"
	RoleB Role = "b"
)

// Other returns the opposite role.
func (r Role) Other() Role {
	if r == RoleA {
		return RoleB
	}
	return RoleA
}

// TransitionStyle selects how the idle surface replaces the active one.
type TransitionStyle string

const (
	// StyleCrossfade ramps both opacities simultaneously over the fade duration.
	StyleCrossfade TransitionStyle = "crossfade"
	// StyleFade fades the active surface out over half the duration, then the
	// idle surface jumps to full opacity. The asymmetric timing is intentional
	// (true fade-through), not a crossfade variant.
	StyleFade TransitionStyle = "fade"
	// StyleCut swaps opacities instantly.
	StyleCut TransitionStyle = "cut"
)

// ValidStyle reports whether s is one of the known transition styles.
func ValidStyle(s TransitionStyle) bool {
	switch s {
	case StyleCrossfade, StyleFade, StyleCut:
		return true
	}
	return false
}

// Clip is one playable video entry. Immutable once probed.
type Clip struct {
	Address     string      `json:"address"`
	Title       string      `json:"title,omitempty"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Orientation Orientation `json:"orientation"`
}

// Settings holds the user-tunable playback parameters. Read from the
// settings store at startup, mutated by the settings handler. Never
// marshaled directly; the handler and the store each have a millisecond
// wire form.
type Settings struct {
	HoldEnabled    bool
	Hold           time.Duration
	Fade           time.Duration
	Style          TransitionStyle
	InterClipDelay time.Duration
}

// DefaultSettings are used when the store has no (or invalid) values.
func DefaultSettings() Settings {
	return Settings{
		HoldEnabled:    true,
		Hold:           2 * time.Second,
		Fade:           time.Second,
		Style:          StyleCrossfade,
		InterClipDelay: 0,
	}
}

// SessionSnapshot is a read-only view of the playback session, exposed by
// the status endpoint and used in tests.
type SessionSnapshot struct {
	Active      Role        `json:"active"`
	Current     *Clip       `json:"current,omitempty"`
	Rate        float64     `json:"rate"`
	Exiting     bool        `json:"exiting"`
	ScreenW     int         `json:"screen_width"`
	ScreenH     int         `json:"screen_height"`
	ScreenShape Orientation `json:"screen_orientation"`
}
