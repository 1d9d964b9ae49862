package desktop

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/penrelay/penrelay/pkg/logging"
)

// acceptPollInterval is a 10ms interval constant. Nothing in this package
// reads it: SessionManager runs no polling accept loop of its own, since
// net/http's server accepts connections and calls ServeHTTP.
const acceptPollInterval = 10 * time.Millisecond

// Config parametrizes a SessionManager, threaded through from
// cmd/penrelayd's CLI flags.
type Config struct {
	AccessCode string
	Capture    CaptureConfig
	Prefer     []AccelPath
}

// SessionManager accepts inbound WebSocket connections on a single HTTP
// listener, gates them behind an optional access code, and owns the
// registry of active Sessions.
type SessionManager struct {
	cfg Config
	log *slog.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
	shutdown bool

	nextID int64
}

// NewSessionManager constructs a SessionManager. The returned manager's
// ServeHTTP method should be mounted at the desired WebSocket path.
func NewSessionManager(cfg Config) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		log:      logging.L("session-manager"),
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and runs one
// Session on it for the lifetime of the connection. It implements
// http.Handler so it can be mounted directly on an *http.ServeMux by the
// CLI entrypoint.
func (m *SessionManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	m.mu.Unlock()

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	if m.cfg.AccessCode != "" {
		if !m.checkAccessCode(conn) {
			conn.Close()
			return
		}
	}

	if err := m.acceptSession(conn, r.RemoteAddr); err != nil {
		m.log.Warn("session setup failed", "remote", r.RemoteAddr, "error", err)
		conn.Close()
	}
}

// checkAccessCode enforces that the first inbound text frame equals the
// configured access code; any mismatch (wrong text, wrong frame type, or a
// read error) closes the socket without further work and without a
// diagnostic to the peer, per the auth-failure error category.
func (m *SessionManager) checkAccessCode(conn *websocket.Conn) bool {
	msgType, data, err := conn.ReadMessage()
	if err != nil || msgType != websocket.TextMessage {
		return false
	}
	return string(data) == m.cfg.AccessCode
}

func (m *SessionManager) acceptSession(conn *websocket.Conn, peerAddr string) error {
	caps, err := ListCapturables(m.cfg.Capture)
	if err != nil || len(caps) == 0 {
		return fmt.Errorf("no capturable available: %w", err)
	}
	capturable := caps[0]

	injector, err := NewInputInjector()
	if err != nil {
		return fmt.Errorf("create input injector: %w", err)
	}
	injector.SetCapturable(capturable)

	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("%s-%d", peerAddr, m.nextID)
	m.mu.Unlock()

	session := NewSession(id, conn, capturable, injector, m.cfg.Capture, m.cfg.Prefer, m.log.With("session", id))

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		injector.Close()
		return fmt.Errorf("server shutting down")
	}
	m.sessions[id] = session
	m.mu.Unlock()

	go func() {
		session.Run()
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	}()

	return nil
}

// Shutdown marks the manager as stopping, force-closes every registered
// session's socket to unblock their reads, and waits for every session's
// pipelines to finish. ServeHTTP checks the shutdown flag on each new
// request and refuses it with 503 once it is set.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	m.shutdown = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}

// ActiveCount reports the number of currently registered sessions.
func (m *SessionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
