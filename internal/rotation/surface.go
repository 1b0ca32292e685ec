package rotation

import "time"

// Surface is an opaque playback resource. The engine only issues transport
// and compositing commands; playback state flows back in as events through
// the Player's Handle methods. The production implementation relays commands
// to the browser shell (see RemoteSurface); tests script a fake.
type Surface interface {
	// Load assigns a media address to the surface.
	Load(address string)
	Play()
	Pause()
	// SetRate sets the playback rate (1.0 is normal speed).
	SetRate(rate float64)
	// SetOpacity ramps the surface opacity to target over ramp.
	// A zero ramp applies instantly.
	SetOpacity(target float64, ramp time.Duration)
	// Seek moves the playback position, in seconds.
	Seek(position float64)
}
