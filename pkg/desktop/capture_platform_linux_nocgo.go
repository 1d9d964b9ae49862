//go:build linux && !cgo

package desktop

// Without cgo neither the X11/XShm nor the PipeWire GStreamer backend can
// be built (go-gst links against libgstreamer via cgo too); callers fall
// back to the generic kbinani/screenshot path, which is pure Go.
func platformCapturables(cfg CaptureConfig) ([]Capturable, error) {
	return newScreenshotCapturables()
}
