package desktop

import "fmt"

// Recorder pulls successive frames from a bound Capturable. Implementations
// are not required to be safe for concurrent use; a Session owns exactly
// one Recorder at a time and calls Capture from a single capture
// goroutine, matching the "thread-per-session" concurrency model.
type Recorder interface {
	// Capture returns the next frame. The returned PixelFrame borrows its
	// Pix slice from internal Recorder state and is only valid until the
	// next Capture call.
	Capture() (PixelFrame, error)

	// Close releases any native resources (shared memory segments,
	// PipeWire streams, DXGI staging textures).
	Close() error
}

// Capturable names one capture target: a window, a monitor, a portal
// source, or a synthetic test source. It is the descriptor a client
// chooses by name; the Session asks it for a Recorder and, separately, an
// InputInjector binds to it via SetCapturable to translate pointer
// coordinates.
type Capturable interface {
	// Name is a human-readable label shown to the client (window title,
	// monitor name, "Test Source 1920x1080").
	Name() string

	// Geometry reports the capturable's current position and size. It
	// may be called repeatedly and must reflect live window movement or
	// monitor reconfiguration.
	Geometry() (Geometry, error)

	// BeforeInput is called immediately before each injected pointer
	// event; window-backed capturables use it to raise/focus themselves
	// so injected input lands on the right surface.
	BeforeInput() error

	// Recorder opens a new Recorder bound to this capturable.
	// captureCursor requests the hardware cursor be composited into
	// captured frames where the backend supports it.
	Recorder(captureCursor bool) (Recorder, error)

	// Clone returns an independent handle to the same capturable,
	// suitable for a second concurrent Session. Backends that hold a
	// shared native handle (an X11 Display, a portal session) must
	// refcount it so the handle outlives every clone.
	Clone() Capturable
}

// CaptureConfig parametrizes capturable discovery and is threaded through
// from cmd/penrelayd's flags to whichever platform backend is compiled in.
type CaptureConfig struct {
	// PreferPortal selects the PipeWire/XDG-portal backend over raw X11
	// when both are available (Wayland compositors only expose the
	// portal path).
	PreferPortal bool

	// Display is the X11 $DISPLAY override, empty meaning "use the
	// environment".
	Display string
}

// ListCapturables enumerates every capturable the current platform backend
// can provide, plus the universally available test pattern source. Callers
// needing a specific named capturable should look it up by Name() in this
// list (FindCapturable does this) rather than constructing one directly.
func ListCapturables(cfg CaptureConfig) ([]Capturable, error) {
	var out []Capturable
	native, err := platformCapturables(cfg)
	if err != nil && err != ErrNotSupported {
		return nil, fmt.Errorf("list platform capturables: %w", err)
	}
	out = append(out, native...)
	out = append(out, NewTestCapturable(1920, 1080))
	return out, nil
}

// FindCapturable returns the first capturable in cfg's platform list (plus
// the test source) whose Name matches exactly.
func FindCapturable(cfg CaptureConfig, name string) (Capturable, error) {
	caps, err := ListCapturables(cfg)
	if err != nil {
		return nil, err
	}
	for _, c := range caps {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("capturable %q: %w", name, ErrDisplayNotFound)
}
