package desktop

import "errors"

// Sentinel errors propagated up through Capturable/Recorder
// implementations; callers wrap them with fmt.Errorf("...: %w") and test
// for them with errors.Is or direct comparison.
var (
	// ErrNotSupported is returned when the current platform, build or
	// session cannot provide a capability at all (e.g. no active display
	// for the screenshot backend, or a recorder whose native capture path
	// is unavailable).
	ErrNotSupported = errors.New("desktop: not supported on this platform")

	// ErrPermissionDenied is returned when the OS refused the capture or
	// injection permission (e.g. screen recording permission on macOS,
	// portal access denied by the user).
	ErrPermissionDenied = errors.New("desktop: permission denied")

	// ErrDisplayNotFound is returned when a named capturable (window,
	// monitor, portal source) no longer exists, typically because the
	// window was closed or the monitor unplugged between Geometry() and
	// Capture().
	ErrDisplayNotFound = errors.New("desktop: display or window not found")

	// ErrSessionClosed names a session that has already been stopped. No
	// Session method in this package returns it.
	ErrSessionClosed = errors.New("desktop: session closed")

	// ErrAccessDenied names an access-code rejection. SessionManager does
	// not return it: it closes a rejected socket without an error value.
	ErrAccessDenied = errors.New("desktop: access code rejected")
)
