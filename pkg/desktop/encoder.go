package desktop

import (
	"fmt"
	"sync"
	"time"
)

// AccelPath names one GStreamer element used for a hardware or software
// H.264 encode path. Every path is run through the same GstPipeline
// wrapper (see encoder_gst.go); the only difference between backends is
// which encoder element the pipeline string names.
type AccelPath string

const (
	PathVAAPI            AccelPath = "vaapih264enc"
	PathNVENC            AccelPath = "nvh264enc"
	PathVideoToolbox     AccelPath = "vtenc_h264"
	PathMediaFoundation  AccelPath = "mfh264enc"
	PathSoftware         AccelPath = "x264enc"
)

// DefaultAccelPreference is tried in order; the first path whose element
// factory is actually present on the running system wins (see
// NewVideoEncoder's first-success-wins loop).
func DefaultAccelPreference() []AccelPath {
	return []AccelPath{PathVAAPI, PathNVENC, PathVideoToolbox, PathMediaFoundation, PathSoftware}
}

// PixelProviderKind discriminates the three ways a frame can be handed to
// the encoder: no new pixels (ProviderNone, re-encode the last frame), a
// single BGRA buffer the backend converts itself, or a caller-supplied
// fill callback for YUV420P planes. gstEncoderBackend accepts ProviderNone
// and ProviderBGRA only; it returns an error for ProviderFillYUV420P.
type PixelProviderKind int

const (
	ProviderNone PixelProviderKind = iota
	ProviderBGRA
	ProviderFillYUV420P
)

// PixelProvider is the encoder-facing view of one frame, mirroring the
// original's PixelProvider enum (None/BGRA/FillYUV420P).
type PixelProvider struct {
	Kind PixelProviderKind

	// BGRA is valid when Kind == ProviderBGRA: tightly packed BGRA8888,
	// any width/height.
	BGRA          []byte
	Width, Height int

	// Fill is valid when Kind == ProviderFillYUV420P: a callback taking
	// y/u/v plane buffers and their strides, for sizes whose width and
	// height are even as 4:2:0 chroma subsampling requires. No backend in
	// this package calls it; gstEncoderBackend rejects this kind.
	Fill func(y, u, v []byte, yStride, uStride, vStride int) error
}

// encoderBackend is the pluggable unit DefaultAccelPreference iterates
// over; encoder_gst.go's gstEncoderBackend is the only real
// implementation, parameterized by AccelPath.
type encoderBackend interface {
	Encode(p PixelProvider, ptsMillis int64) ([]byte, error)
	Close() error
	Name() string
	IsHardware() bool
}

type backendFactory func(path AccelPath, width, height int, sink func([]byte)) (encoderBackend, error)

var (
	factoryMu sync.Mutex
	factory   backendFactory = newGstEncoderBackend
)

// VideoEncoder owns exactly one encoderBackend and stamps every encoded
// frame with a millisecond timestamp relative to its own start time, the
// same monotonic-clock convention the reference VideoEncoder uses
// (Instant::now() - start_time).
type VideoEncoder struct {
	mu         sync.Mutex
	width      int
	height     int
	backend    encoderBackend
	startTime  time.Time
	lastPTSMs  int64
	sink       func(data []byte, ptsMillis int64)
}

// EncoderConfig parametrizes VideoEncoder construction.
type EncoderConfig struct {
	Width, Height int
	Prefer        []AccelPath
	// Sink receives each encoded access unit along with its monotonic
	// presentation timestamp in milliseconds.
	Sink func(data []byte, ptsMillis int64)
}

// NewVideoEncoder tries each accel path in cfg.Prefer (or
// DefaultAccelPreference if unset) and keeps the first one that
// initializes successfully.
func NewVideoEncoder(cfg EncoderConfig) (*VideoEncoder, error) {
	prefer := cfg.Prefer
	if len(prefer) == 0 {
		prefer = DefaultAccelPreference()
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("encoder: sink is required")
	}

	factoryMu.Lock()
	f := factory
	factoryMu.Unlock()

	var lastErr error
	for _, path := range prefer {
		backend, err := f(path, cfg.Width, cfg.Height, nil)
		if err != nil {
			lastErr = err
			continue
		}
		return &VideoEncoder{
			width: cfg.Width, height: cfg.Height,
			backend:   backend,
			startTime: time.Now(),
			sink:      cfg.Sink,
		}, nil
	}
	return nil, fmt.Errorf("no encoder backend available, last error: %w", lastErr)
}

// CheckSize reports whether width/height match the dimensions this
// encoder was constructed for; callers must tear down and rebuild the
// encoder on mismatch rather than feeding it mismatched frames.
func (v *VideoEncoder) CheckSize(width, height int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width == width && v.height == height
}

// Encode hands one frame to the backend and forwards the resulting access
// unit, if any, to the configured sink with a PTS computed from this
// encoder's own start time. PTS values are non-decreasing by construction
// since time.Since never goes backwards.
func (v *VideoEncoder) Encode(p PixelProvider) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return fmt.Errorf("encoder: closed")
	}
	ptsMs := time.Since(v.startTime).Milliseconds()
	if ptsMs < v.lastPTSMs {
		ptsMs = v.lastPTSMs
	}
	v.lastPTSMs = ptsMs

	data, err := v.backend.Encode(p, ptsMs)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if len(data) > 0 {
		v.sink(data, ptsMs)
	}
	return nil
}

func (v *VideoEncoder) Name() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return ""
	}
	return v.backend.Name()
}

func (v *VideoEncoder) IsHardware() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.backend != nil && v.backend.IsHardware()
}

func (v *VideoEncoder) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return nil
	}
	err := v.backend.Close()
	v.backend = nil
	return err
}
