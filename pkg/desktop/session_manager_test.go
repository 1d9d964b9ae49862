package desktop

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, accessCode string) (*httptest.Server, *SessionManager) {
	t.Helper()
	m := NewSessionManager(Config{
		AccessCode: accessCode,
		Capture:    CaptureConfig{},
	})
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)
	return srv, m
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestAccessGate_WrongCodeCloses implements end-to-end scenario 4: a peer
// sending the wrong access code gets its socket closed, with no session
// ever registered for it.
func TestAccessGate_WrongCodeCloses(t *testing.T) {
	srv, m := newTestServer(t, "hunter2")
	conn := dialWS(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("wrong")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("expected the connection to be closed after a wrong access code")
	}

	time.Sleep(20 * time.Millisecond)
	if m.ActiveCount() != 0 {
		t.Fatalf("expected no registered sessions, got %d", m.ActiveCount())
	}
}

// TestAccessGate_CorrectCodeStartsSession implements the success half of
// scenario 4: the right code lets the session proceed and register.
func TestAccessGate_CorrectCodeStartsSession(t *testing.T) {
	srv, m := newTestServer(t, "hunter2")
	conn := dialWS(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hunter2")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.ActiveCount() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected exactly one active session, got %d", m.ActiveCount())
}

// TestSessionManager_NoAccessCodeSkipsGate confirms an unset AccessCode
// lets any first frame through without a gate check.
func TestSessionManager_NoAccessCodeSkipsGate(t *testing.T) {
	srv, m := newTestServer(t, "")
	_ = dialWS(t, srv)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.ActiveCount() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected exactly one active session, got %d", m.ActiveCount())
}

// TestSessionManager_Shutdown implements end-to-end scenario 6: Shutdown
// closes every registered session and drops them from the registry.
func TestSessionManager_Shutdown(t *testing.T) {
	srv, m := newTestServer(t, "")
	conn := dialWS(t, srv)
	_ = conn

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && m.ActiveCount() != 1 {
		time.Sleep(5 * time.Millisecond)
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("expected one active session before shutdown, got %d", m.ActiveCount())
	}

	m.Shutdown()

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && m.ActiveCount() != 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("expected zero active sessions after shutdown, got %d", m.ActiveCount())
	}
}
