package desktop

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// requestFrameMessage is the text frame the browser sends to pull the next
// video frame under client-driven pacing; any other text payload is parsed
// as a ClientMessage instead.
const requestFrameMessage = "requestFrame"

// idleFrameInterval paces the outbound pipeline when the client never asks
// for a frame, so a forgotten requestFrame handshake still produces a
// picture rather than stalling forever.
const idleFrameInterval = 200 * time.Millisecond

// Session owns one authenticated browser connection: a full-duplex
// WebSocket transport, one capture/encode pipeline, and one input pipeline,
// each running on its own goroutine per the thread-per-session model.
type Session struct {
	id   string
	conn *websocket.Conn
	log  *slog.Logger

	captureCfg   CaptureConfig
	preferAccel  []AccelPath

	// mu guards the capturable/recorder/encoder/injector/captureCursor
	// tuple, which ClientConfig messages can rebuild mid-session.
	mu            sync.Mutex
	capturable    Capturable
	recorder      Recorder
	encoder       *VideoEncoder
	injector      InputInjector
	captureCursor bool

	writeMu sync.Mutex

	requestFrame chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
	errOnce      sync.Once
	stopErr      error
	wg           sync.WaitGroup
}

// NewSession constructs a Session bound to an already-upgraded WebSocket
// connection and an initial capturable. The caller is expected to call Run
// and then Stop (or let Run's own error/close detection call it).
func NewSession(id string, conn *websocket.Conn, capturable Capturable, injector InputInjector, captureCfg CaptureConfig, preferAccel []AccelPath, log *slog.Logger) *Session {
	return &Session{
		id:           id,
		conn:         conn,
		log:          log,
		captureCfg:   captureCfg,
		preferAccel:  preferAccel,
		capturable:   capturable,
		injector:     injector,
		requestFrame: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Run starts both pipelines and blocks until the session terminates,
// returning the reason: peer close, a fatal init error, or Stop() having
// been called by the Session Manager.
func (s *Session) Run() error {
	s.wg.Add(2)
	go s.outboundLoop()
	go s.inboundLoop()
	s.wg.Wait()
	return s.stopErr
}

// Stop terminates both pipelines and releases the Recorder, Encoder, and
// Injector. Safe to call multiple times and from any goroutine; only the
// first call does anything, matching the session-scoped sync.Once pattern
// LanternOps-breeze's Session.Stop uses.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.conn.Close()
		s.wg.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.recorder != nil {
			s.recorder.Close()
			s.recorder = nil
		}
		if s.encoder != nil {
			s.encoder.Close()
			s.encoder = nil
		}
		if s.injector != nil {
			s.injector.Close()
		}
	})
}

func (s *Session) fail(err error) {
	s.errOnce.Do(func() {
		s.stopErr = err
	})
	go s.Stop()
}

// outboundLoop is the producer of video: it waits for either a pull
// trigger or the idle ticker, captures one frame, rebuilds the encoder on
// a dimension change, and ships the encoded bytes as a binary frame.
func (s *Session) outboundLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(idleFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.requestFrame:
		case <-ticker.C:
		}

		if err := s.captureAndEncodeOnce(); err != nil {
			s.log.Warn("fatal recorder/encoder init error, closing session", "session", s.id, "error", err)
			s.fail(err)
			return
		}
	}
}

func (s *Session) captureAndEncodeOnce() error {
	s.mu.Lock()
	recorder := s.recorder
	capturable := s.capturable
	captureCursor := s.captureCursor
	s.mu.Unlock()

	if recorder == nil {
		var err error
		recorder, err = capturable.Recorder(captureCursor)
		if err != nil {
			return fmt.Errorf("open recorder: %w", err)
		}
		s.mu.Lock()
		s.recorder = recorder
		s.mu.Unlock()
	}

	frame, err := recorder.Capture()
	if err != nil {
		// Transient/recoverable capture error: log and skip this tick,
		// the session continues per the error taxonomy's categories 1/2.
		s.log.Debug("capture error, skipping frame", "session", s.id, "error", err)
		return nil
	}
	if !frame.Valid() {
		s.log.Debug("invalid frame, skipping", "session", s.id)
		return nil
	}

	width, height := evenDown(frame.Width), evenDown(frame.Height)
	if width < 2 {
		width = 2
	}
	if height < 2 {
		height = 2
	}

	s.mu.Lock()
	encoder := s.encoder
	s.mu.Unlock()

	if encoder == nil || !encoder.CheckSize(width, height) {
		if encoder != nil {
			encoder.Close()
		}
		var err error
		encoder, err = NewVideoEncoder(EncoderConfig{
			Width: width, Height: height,
			Prefer: s.preferAccel,
			Sink:   s.sendVideoFrame,
		})
		if err != nil {
			return fmt.Errorf("build encoder: %w", err)
		}
		s.mu.Lock()
		s.encoder = encoder
		s.mu.Unlock()
		s.log.Info("encoder (re)built", "session", s.id, "backend", encoder.Name(), "hardware", encoder.IsHardware(), "width", width, "height", height)
	}

	bgra := frame.ToBGRA()
	if width != frame.Width || height != frame.Height {
		// Clip odd edge rows/columns (or zero-pad a 1-pixel edge up to 2)
		// so the buffer matches the encoder's even dimensions.
		fitted := make([]byte, width*height*4)
		rowLen := min(width, frame.Width) * 4
		for y := 0; y < height && y < frame.Height; y++ {
			copy(fitted[y*width*4:y*width*4+rowLen], bgra[y*frame.Width*4:])
		}
		bgra = fitted
	}
	provider := PixelProvider{Kind: ProviderBGRA, BGRA: bgra, Width: width, Height: height}
	if err := encoder.Encode(provider); err != nil {
		s.log.Warn("encode error, skipping frame", "session", s.id, "error", err)
		return nil
	}
	return nil
}

func evenDown(v int) int {
	return v &^ 1
}

func (s *Session) sendVideoFrame(data []byte, _ int64) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// inboundLoop is the consumer of input: it parses each text frame as a
// tagged JSON message (or the bare requestFrame pull trigger) and
// dispatches it, in arrival order, to the injector and capture source.
func (s *Session) inboundLoop() {
	defer s.wg.Done()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			// Transport error (EOF, broken pipe, or our own Stop()-driven
			// close): tear the session down cleanly.
			s.fail(nil)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if string(data) == requestFrameMessage {
			select {
			case s.requestFrame <- struct{}{}:
			default:
			}
			continue
		}

		decoded, err := DecodeClientMessage(data)
		if err != nil {
			s.log.Warn("malformed client message, dropping", "session", s.id, "error", err)
			continue
		}

		switch decoded.Kind {
		case MessagePointer:
			s.handlePointerEvent(decoded.Pointer)
		case MessageKeyboard:
			s.injector.SendKeyboardEvent(decoded.Keyboard)
		case MessageWheel:
			s.injector.SendWheelEvent(decoded.Wheel)
		case MessageConfig:
			s.applyClientConfig(decoded.Config)
		}
	}
}

func (s *Session) handlePointerEvent(ev PointerEvent) {
	s.mu.Lock()
	capturable := s.capturable
	s.mu.Unlock()
	if capturable == nil {
		return
	}
	capturable.BeforeInput()
	s.injector.SendPointerEvent(ev)
}

// applyClientConfig switches the selected capturable and/or toggles cursor
// capture, rebuilding the Recorder when either changes since both require
// a fresh native capture handle.
func (s *Session) applyClientConfig(cfg *ClientConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rebuild := false

	if cfg.Capturable != "" {
		next, err := FindCapturable(s.captureCfg, cfg.Capturable)
		if err != nil {
			s.log.Warn("unknown capturable requested, ignoring", "session", s.id, "capturable", cfg.Capturable, "error", err)
		} else {
			s.capturable = next
			s.injector.SetCapturable(next)
			rebuild = true
		}
	}

	if cfg.CaptureCursor != nil && *cfg.CaptureCursor != s.captureCursor {
		s.captureCursor = *cfg.CaptureCursor
		rebuild = true
	}

	if rebuild && s.recorder != nil {
		s.recorder.Close()
		s.recorder = nil
	}
}
