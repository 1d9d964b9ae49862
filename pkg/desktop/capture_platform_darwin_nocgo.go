//go:build darwin && !cgo

package desktop

// Quartz capture needs cgo; without it we fall back to the portable
// kbinani/screenshot path (which itself uses cgo-free CoreGraphics calls
// through golang.org/x/sys's NewLazyDLL-equivalent syscall bridging on
// macOS, unlike Linux/Windows where no such cgo-free path exists).
func platformCapturables(cfg CaptureConfig) ([]Capturable, error) {
	return newScreenshotCapturables()
}
