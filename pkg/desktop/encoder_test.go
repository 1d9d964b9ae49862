package desktop

import (
	"errors"
	"testing"
)

// stubEncoderBackend is a deterministic in-memory encoderBackend used to
// test VideoEncoder's PTS stamping and sink wiring without a real
// GStreamer pipeline.
type stubEncoderBackend struct {
	path       AccelPath
	fail       bool
	closed     bool
	encodeCall int
}

func (s *stubEncoderBackend) Encode(p PixelProvider, ptsMillis int64) ([]byte, error) {
	s.encodeCall++
	return []byte{byte(s.encodeCall)}, nil
}
func (s *stubEncoderBackend) Close() error       { s.closed = true; return nil }
func (s *stubEncoderBackend) Name() string       { return string(s.path) }
func (s *stubEncoderBackend) IsHardware() bool   { return s.path != PathSoftware }

func withStubFactory(t *testing.T, fail map[AccelPath]bool) {
	t.Helper()
	orig := factory
	factory = func(path AccelPath, width, height int, sink func([]byte)) (encoderBackend, error) {
		if fail[path] {
			return nil, errTestBackendUnavailable
		}
		return &stubEncoderBackend{path: path}, nil
	}
	t.Cleanup(func() { factory = orig })
}

var errTestBackendUnavailable = errors.New("backend unavailable")

func TestDefaultAccelPreference_Order(t *testing.T) {
	order := DefaultAccelPreference()
	want := []AccelPath{PathVAAPI, PathNVENC, PathVideoToolbox, PathMediaFoundation, PathSoftware}
	if len(order) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, order[i], want[i])
		}
	}
}

func TestNewVideoEncoder_FirstSuccessWins(t *testing.T) {
	withStubFactory(t, map[AccelPath]bool{PathVAAPI: true, PathNVENC: true})

	var gotPTS []int64
	enc, err := NewVideoEncoder(EncoderConfig{
		Width: 64, Height: 64,
		Sink: func(data []byte, ptsMillis int64) { gotPTS = append(gotPTS, ptsMillis) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer enc.Close()

	if enc.Name() != string(PathVideoToolbox) {
		t.Fatalf("expected the third preference entry to win, got %q", enc.Name())
	}
}

func TestNewVideoEncoder_AllBackendsUnavailable(t *testing.T) {
	withStubFactory(t, map[AccelPath]bool{
		PathVAAPI: true, PathNVENC: true, PathVideoToolbox: true, PathMediaFoundation: true, PathSoftware: true,
	})

	_, err := NewVideoEncoder(EncoderConfig{Width: 64, Height: 64, Sink: func([]byte, int64) {}})
	if err == nil {
		t.Fatal("expected an error when every backend fails to initialize")
	}
}

func TestVideoEncoder_PTSNonDecreasing(t *testing.T) {
	withStubFactory(t, nil)

	var ptsSeq []int64
	enc, err := NewVideoEncoder(EncoderConfig{
		Width: 32, Height: 32,
		Sink: func(data []byte, ptsMillis int64) { ptsSeq = append(ptsSeq, ptsMillis) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer enc.Close()

	for i := 0; i < 5; i++ {
		if err := enc.Encode(PixelProvider{Kind: ProviderBGRA, BGRA: make([]byte, 32*32*4), Width: 32, Height: 32}); err != nil {
			t.Fatalf("unexpected encode error: %v", err)
		}
	}

	for i := 1; i < len(ptsSeq); i++ {
		if ptsSeq[i] < ptsSeq[i-1] {
			t.Fatalf("pts went backwards at index %d: %v", i, ptsSeq)
		}
	}
}

func TestVideoEncoder_CheckSize(t *testing.T) {
	withStubFactory(t, nil)

	enc, err := NewVideoEncoder(EncoderConfig{Width: 100, Height: 200, Sink: func([]byte, int64) {}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer enc.Close()

	if !enc.CheckSize(100, 200) {
		t.Fatal("expected CheckSize to match the constructed dimensions")
	}
	if enc.CheckSize(101, 200) {
		t.Fatal("expected CheckSize to reject a mismatched width")
	}
}

func TestVideoEncoder_CloseIsIdempotent(t *testing.T) {
	withStubFactory(t, nil)

	enc, err := NewVideoEncoder(EncoderConfig{Width: 32, Height: 32, Sink: func([]byte, int64) {}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("unexpected error on first close: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
}

func TestNewVideoEncoder_RequiresSink(t *testing.T) {
	_, err := NewVideoEncoder(EncoderConfig{Width: 32, Height: 32})
	if err == nil {
		t.Fatal("expected an error when Sink is nil")
	}
}
