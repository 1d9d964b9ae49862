package desktop

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// screenshotCapturable is the last-resort capture backend: a full-monitor
// screenshot taken through kbinani/screenshot, which wraps the same native
// APIs (XShm, GDI BitBlt, CoreGraphics) as the dedicated backends but
// through a single portable call, at the cost of polling instead of
// push/damage-based delivery. It is only registered by platformCapturables
// when no dedicated backend is available for the running platform/build.
type screenshotCapturable struct {
	displayIndex int
	bounds       image.Rectangle
}

// newScreenshotCapturables enumerates every active monitor via
// kbinani/screenshot.
func newScreenshotCapturables() ([]Capturable, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, ErrNotSupported
	}
	out := make([]Capturable, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshotCapturable{displayIndex: i, bounds: screenshot.GetDisplayBounds(i)})
	}
	return out, nil
}

func (s screenshotCapturable) Name() string {
	return fmt.Sprintf("Display %d (%dx%d)", s.displayIndex, s.bounds.Dx(), s.bounds.Dy())
}

func (s screenshotCapturable) Geometry() (Geometry, error) {
	return Geometry{
		Kind: GeometryVirtualScreen,
		AbsX: 0, AbsY: 0,
		AbsW: s.bounds.Dx(), AbsH: s.bounds.Dy(),
		VirtualLeft: s.bounds.Min.X, VirtualTop: s.bounds.Min.Y,
	}, nil
}

func (s screenshotCapturable) BeforeInput() error { return nil }

func (s screenshotCapturable) Recorder(_ bool) (Recorder, error) {
	return &screenshotRecorder{capturable: s}, nil
}

func (s screenshotCapturable) Clone() Capturable { return s }

type screenshotRecorder struct {
	capturable screenshotCapturable
	buf        []byte
}

func (r *screenshotRecorder) Capture() (PixelFrame, error) {
	img, err := screenshot.CaptureRect(r.capturable.bounds)
	if err != nil {
		return PixelFrame{}, fmt.Errorf("capture display %d: %w", r.capturable.displayIndex, err)
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	need := w * h * 4
	if cap(r.buf) < need {
		r.buf = make([]byte, need)
	}
	r.buf = r.buf[:need]
	// image.RGBA is already tightly packed RGBA; reinterpret as RGB0.
	copy(r.buf, img.Pix)
	return PixelFrame{Format: FormatRGB0, Width: w, Height: h, Pix: r.buf}, nil
}

func (r *screenshotRecorder) Close() error { return nil }
