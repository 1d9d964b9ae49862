//go:build linux && cgo

package desktop

import "os"

func platformCapturables(cfg CaptureConfig) ([]Capturable, error) {
	if cfg.PreferPortal || os.Getenv("XDG_SESSION_TYPE") == "wayland" {
		if caps, err := newPortalCapturables(cfg); err == nil {
			return caps, nil
		}
	}
	if caps, err := newX11Capturables(cfg); err == nil {
		return caps, nil
	}
	// Neither the portal nor a direct X11 connection is available (e.g.
	// running inside a container with no compositor reachable at all);
	// fall back to a generic screenshot so the session can still come up
	// against the synthetic test pattern path.
	return newScreenshotCapturables()
}
