//go:build linux && cgo

package desktop

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"
	"github.com/godbus/dbus/v5"
)

// XDG Desktop Portal D-Bus constants for the ScreenCast interface. The
// negotiation sequence below (CreateSession -> SelectSources -> Start ->
// OpenPipeWireRemote) is the same handshake Wayland compositors require
// any screen-sharing client to perform; GNOME/Mutter and wlroots both
// implement it.
const (
	portalBus       = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	portalSCIface   = "org.freedesktop.portal.ScreenCast"
	portalReqIface  = "org.freedesktop.portal.Request"
	portalSrcMon    = uint32(1)
	portalCurHidden = uint32(1)
)

type portalSession struct {
	conn    *dbus.Conn
	handle  string
	nodeID  uint32
	pipeFd  int
	mu      sync.Mutex
	pipe    *gst.Pipeline
	appsink *app.Sink
}

// connectPortal dials the session bus and confirms the portal service is
// present, retrying briefly since the portal daemon can start slightly
// after the compositor on some distributions.
func connectPortal(ctx context.Context) (*dbus.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < 60; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			lastErr = err
			time.Sleep(time.Second)
			continue
		}
		obj := conn.Object(portalBus, portalPath)
		if err := obj.Call("org.freedesktop.DBus.Introspectable.Introspect", 0).Err; err != nil {
			lastErr = err
			conn.Close()
			time.Sleep(time.Second)
			continue
		}
		return conn, nil
	}
	return nil, fmt.Errorf("connect to xdg desktop portal: %w", lastErr)
}

func requestPath(conn *dbus.Conn, token string) dbus.ObjectPath {
	sender := conn.Names()[0]
	path := ""
	for _, c := range sender[1:] {
		if c == '.' {
			path += "_"
		} else {
			path += string(c)
		}
	}
	return dbus.ObjectPath(fmt.Sprintf("/org/freedesktop/portal/desktop/request/%s/%s", path, token))
}

// awaitResponse waits for the portal's Response signal on reqPath and
// returns its results dict. A non-zero response code (the portal's own
// failure/cancel status, not a Go error) is surfaced as a fatal error
// rather than silently unwrapped: treating a failed step here as success
// is what produces session state that looks alive but captures nothing.
func awaitResponse(ctx context.Context, conn *dbus.Conn, reqPath dbus.ObjectPath) (map[string]dbus.Variant, error) {
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(reqPath),
		dbus.WithMatchInterface(portalReqIface),
		dbus.WithMatchMember("Response"),
	); err != nil {
		return nil, fmt.Errorf("add signal match: %w", err)
	}
	ch := make(chan *dbus.Signal, 4)
	conn.Signal(ch)
	defer conn.RemoveSignal(ch)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case sig := <-ch:
		if len(sig.Body) < 2 {
			return nil, fmt.Errorf("malformed portal response")
		}
		code, _ := sig.Body[0].(uint32)
		if code != 0 {
			return nil, fmt.Errorf("portal request failed with code %d: %w", code, ErrPermissionDenied)
		}
		results, _ := sig.Body[1].(map[string]dbus.Variant)
		return results, nil
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("timed out waiting for portal response")
	}
}

func newPortalSession(ctx context.Context) (*portalSession, error) {
	conn, err := connectPortal(ctx)
	if err != nil {
		return nil, err
	}
	obj := conn.Object(portalBus, portalPath)

	createToken := fmt.Sprintf("penrelay_%d", time.Now().UnixNano())
	reqToken := fmt.Sprintf("req_%d", time.Now().UnixNano())
	reqPath := requestPath(conn, reqToken)
	var returned dbus.ObjectPath
	opts := map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant(reqToken),
		"session_handle_token": dbus.MakeVariant(createToken),
	}
	if err := obj.Call(portalSCIface+".CreateSession", 0, opts).Store(&returned); err != nil {
		return nil, fmt.Errorf("portal CreateSession: %w", err)
	}
	results, err := awaitResponse(ctx, conn, reqPath)
	if err != nil {
		return nil, fmt.Errorf("portal CreateSession response: %w", err)
	}
	sessionHandle, _ := results["session_handle"].Value().(string)
	if sessionHandle == "" {
		return nil, fmt.Errorf("portal CreateSession: no session_handle in response")
	}

	ps := &portalSession{conn: conn, handle: sessionHandle}

	reqToken = fmt.Sprintf("req_%d", time.Now().UnixNano())
	reqPath = requestPath(conn, reqToken)
	selOpts := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(reqToken),
		"types":        dbus.MakeVariant(portalSrcMon),
		"cursor_mode":  dbus.MakeVariant(portalCurHidden),
		"persist_mode": dbus.MakeVariant(uint32(0)),
	}
	if err := obj.Call(portalSCIface+".SelectSources", 0, dbus.ObjectPath(sessionHandle), selOpts).Store(&returned); err != nil {
		return nil, fmt.Errorf("portal SelectSources: %w", err)
	}
	if _, err := awaitResponse(ctx, conn, reqPath); err != nil {
		return nil, fmt.Errorf("portal SelectSources response: %w", err)
	}

	reqToken = fmt.Sprintf("req_%d", time.Now().UnixNano())
	reqPath = requestPath(conn, reqToken)
	startOpts := map[string]dbus.Variant{"handle_token": dbus.MakeVariant(reqToken)}
	if err := obj.Call(portalSCIface+".Start", 0, dbus.ObjectPath(sessionHandle), "", startOpts).Store(&returned); err != nil {
		return nil, fmt.Errorf("portal Start: %w", err)
	}
	startResults, err := awaitResponse(ctx, conn, reqPath)
	if err != nil {
		return nil, fmt.Errorf("portal Start response: %w", err)
	}
	streams, _ := startResults["streams"].Value().([][]interface{})
	if len(streams) == 0 || len(streams[0]) == 0 {
		return nil, fmt.Errorf("portal Start: no streams in response")
	}
	nodeID, ok := streams[0][0].(uint32)
	if !ok {
		return nil, fmt.Errorf("portal Start: malformed node id")
	}
	ps.nodeID = nodeID

	var fd dbus.UnixFD
	emptyOpts := map[string]dbus.Variant{}
	if err := obj.Call(portalSCIface+".OpenPipeWireRemote", 0, dbus.ObjectPath(sessionHandle), emptyOpts).Store(&fd); err != nil {
		return nil, fmt.Errorf("portal OpenPipeWireRemote: %w", err)
	}
	ps.pipeFd = int(fd)

	return ps, nil
}

func (ps *portalSession) close() {
	if ps.pipe != nil {
		ps.pipe.SetState(gst.StateNull)
	}
	if ps.pipeFd > 0 {
		os.NewFile(uintptr(ps.pipeFd), "pipewire-remote").Close()
	}
	if ps.conn != nil {
		ps.conn.Close()
	}
}

type portalCapturable struct {
	cfg CaptureConfig
}

func newPortalCapturables(cfg CaptureConfig) ([]Capturable, error) {
	return []Capturable{portalCapturable{cfg: cfg}}, nil
}

func (p portalCapturable) Name() string { return "PipeWire Portal (Wayland)" }

func (p portalCapturable) Geometry() (Geometry, error) {
	return Geometry{Kind: GeometryRelative, RelX: 0, RelY: 0, RelW: 1, RelH: 1, ScreenW: 1920, ScreenH: 1080}, nil
}

func (p portalCapturable) BeforeInput() error { return nil }

func (p portalCapturable) Recorder(captureCursor bool) (Recorder, error) {
	InitGStreamer()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ps, err := newPortalSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open portal session: %w", err)
	}

	pipelineStr := fmt.Sprintf(
		"pipewiresrc path=%d fd=%d ! videoconvert ! video/x-raw,format=BGRx ! appsink name=videosink",
		ps.nodeID, ps.pipeFd,
	)
	pipeline, err := gst.NewPipelineFromString(pipelineStr)
	if err != nil {
		ps.close()
		return nil, fmt.Errorf("build pipewiresrc pipeline: %w", err)
	}
	elem, err := pipeline.GetElementByName("videosink")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		ps.close()
		return nil, fmt.Errorf("get videosink: %w", err)
	}
	sink := app.SinkFromElement(elem)
	sink.SetProperty("emit-signals", false)
	sink.SetProperty("max-buffers", uint(2))
	sink.SetProperty("drop", true)
	sink.SetProperty("sync", false)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		ps.close()
		return nil, fmt.Errorf("start pipewiresrc pipeline: %w", err)
	}
	ps.pipe = pipeline
	ps.appsink = sink
	return &portalRecorder{session: ps}, nil
}

func (p portalCapturable) Clone() Capturable { return p }

type portalRecorder struct {
	session *portalSession
	width   int
	height  int
}

func (r *portalRecorder) Capture() (PixelFrame, error) {
	sample := r.session.appsink.PullSample()
	if sample == nil {
		return PixelFrame{}, fmt.Errorf("pipewiresrc: pipeline stopped: %w", ErrNotSupported)
	}
	buf := sample.GetBuffer()
	if buf == nil {
		return PixelFrame{}, fmt.Errorf("pipewiresrc: empty buffer")
	}
	caps := sample.GetCaps()
	w, h := r.width, r.height
	if caps != nil && caps.GetSize() > 0 {
		s := caps.GetStructureAt(0)
		if wv, err := s.GetValue("width"); err == nil {
			if wi, ok := wv.(int); ok {
				w = wi
			}
		}
		if hv, err := s.GetValue("height"); err == nil {
			if hi, ok := hv.(int); ok {
				h = hi
			}
		}
	}
	mapInfo := buf.Map(gst.MapRead)
	if mapInfo == nil {
		return PixelFrame{}, fmt.Errorf("pipewiresrc: buffer map failed")
	}
	defer buf.Unmap()
	data := make([]byte, len(mapInfo.Bytes()))
	copy(data, mapInfo.Bytes())
	r.width, r.height = w, h
	return PixelFrame{Format: FormatBGR0, Width: w, Height: h, Pix: data}, nil
}

func (r *portalRecorder) Close() error {
	r.session.close()
	return nil
}
