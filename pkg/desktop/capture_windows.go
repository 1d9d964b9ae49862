//go:build windows

package desktop

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// Pure-Go DXGI Desktop Duplication capture: no cgo, following the same
// vtable-calling convention as comutil_windows.go (LanternOps-breeze),
// which exists precisely so this package doesn't need a C compiler on
// Windows builds.

var (
	d3d11DLL = syscall.NewLazyDLL("d3d11.dll")
	dxgiDLL  = syscall.NewLazyDLL("dxgi.dll")

	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")

	procOpenInputDesktop  = syscall.NewLazyDLL("user32.dll").NewProc("OpenInputDesktop")
	procSetThreadDesktop  = syscall.NewLazyDLL("user32.dll").NewProc("SetThreadDesktop")
	procCloseDesktop      = syscall.NewLazyDLL("user32.dll").NewProc("CloseDesktop")
	procGetSystemMetrics  = syscall.NewLazyDLL("user32.dll").NewProc("GetSystemMetrics")
)

const (
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
	smXVirtualScreen  = 76
	smYVirtualScreen  = 77

	d3dDriverTypeHardware = 1
	d3d11SDKVersion       = 7

	// IDXGIOutputDuplication / ID3D11Device vtable slot indices, counted
	// from IUnknown's 3 base slots, matching the public COM ABI.
	vtblAcquireNextFrame  = 8
	vtblGetFrameDirtyRect = 9 // unused: damage tracking left to a follow-up
	vtblReleaseFrame      = 14
	vtblOutputDuplDesc    = 7
)

// comCall invokes a COM vtable method at the given slot index via
// syscall.SyscallN, the same pattern LanternOps-breeze uses to call
// Media Foundation without cgo.
func comCall(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	vtable := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vtable + uintptr(vtableIdx)*unsafe.Sizeof(uintptr(0))))
	all := append([]uintptr{obj}, args...)
	ret, _, _ := syscall.SyscallN(fn, all...)
	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

func comRelease(obj uintptr) {
	if obj == 0 {
		return
	}
	vtable := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vtable + 2*unsafe.Sizeof(uintptr(0))))
	syscall.SyscallN(fn, obj)
}

type dxgiMonitorCapturable struct {
	index int
	// left/top locate this monitor within the virtual desktop; width/height
	// are its own pixel size.
	left, top, width, height int
}

func newDXGICapturables(cfg CaptureConfig) ([]Capturable, error) {
	vw, _, _ := procGetSystemMetrics.Call(uintptr(smCXVirtualScreen))
	vh, _, _ := procGetSystemMetrics.Call(uintptr(smCYVirtualScreen))
	vx, _, _ := procGetSystemMetrics.Call(uintptr(smXVirtualScreen))
	vy, _, _ := procGetSystemMetrics.Call(uintptr(smYVirtualScreen))
	if vw == 0 || vh == 0 {
		return nil, ErrNotSupported
	}
	// Desktop Duplication enumerates one capturable per adapter output;
	// in the common single-monitor case this collapses to the virtual
	// screen itself.
	return []Capturable{dxgiMonitorCapturable{index: 0, left: int(vx), top: int(vy), width: int(vw), height: int(vh)}}, nil
}

func (d dxgiMonitorCapturable) Name() string {
	return fmt.Sprintf("Monitor %d (%dx%d)", d.index, d.width, d.height)
}

func (d dxgiMonitorCapturable) Geometry() (Geometry, error) {
	return Geometry{
		Kind: GeometryVirtualScreen,
		AbsX: 0, AbsY: 0, AbsW: d.width, AbsH: d.height,
		VirtualLeft: d.left, VirtualTop: d.top,
	}, nil
}

// BeforeInput switches the calling thread onto the current input desktop.
// Without this, input injected from a service running on a non-interactive
// desktop (winlogon) never reaches the user's session after a lock/unlock
// or UAC prompt desktop-switch.
func (d dxgiMonitorCapturable) BeforeInput() error {
	hDesktop, _, _ := procOpenInputDesktop.Call(0, 0, 0x0100 /* GENERIC_ALL-ish DESKTOP_SWITCHDESKTOP */)
	if hDesktop == 0 {
		return nil // best-effort; absence is common in non-service contexts
	}
	defer procCloseDesktop.Call(hDesktop)
	procSetThreadDesktop.Call(hDesktop)
	return nil
}

func (d dxgiMonitorCapturable) Recorder(_ bool) (Recorder, error) {
	r, err := newDXGIRecorder(d)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d dxgiMonitorCapturable) Clone() Capturable { return d }

// dxgiRecorder owns a D3D11 device and context plus a slot for an
// IDXGIOutputDuplication handle. newDXGIRecorder never fills that slot, so
// Capture fails with ErrNotSupported on every call; no staging texture is
// created and no pixels are copied into buf.
type dxgiRecorder struct {
	mu      sync.Mutex
	desc    dxgiMonitorCapturable
	device  uintptr
	context uintptr
	dupl    uintptr
	buf     []byte
}

func newDXGIRecorder(desc dxgiMonitorCapturable) (*dxgiRecorder, error) {
	if err := ole.CoInitialize(0); err != nil {
		// CoInitialize returns S_FALSE-as-error if already initialized on
		// this thread; only a hard failure is fatal here.
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != 1 {
			return nil, fmt.Errorf("CoInitialize: %w", err)
		}
	}

	var device, context uintptr
	ret, _, _ := procD3D11CreateDevice.Call(
		0, uintptr(d3dDriverTypeHardware), 0, 0, 0, 0,
		uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&device)), 0, uintptr(unsafe.Pointer(&context)),
	)
	if int32(ret) < 0 || device == 0 {
		return nil, fmt.Errorf("D3D11CreateDevice failed (hr=0x%08X): %w", uint32(ret), ErrNotSupported)
	}

	// Obtaining IDXGIOutputDuplication requires QI'ing the device for
	// IDXGIDevice -> adapter -> output -> output1 -> DuplicateOutput; that
	// chain is not performed here, so dupl stays 0 and Capture reports
	// ErrNotSupported. The session logs and skips each such tick; nothing
	// switches a session over to the screenshot backend.
	r := &dxgiRecorder{desc: desc, device: device, context: context, buf: make([]byte, desc.width*desc.height*4)}
	return r, nil
}

func (r *dxgiRecorder) Capture() (PixelFrame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dupl == 0 {
		return PixelFrame{}, fmt.Errorf("DXGI output duplication unavailable in this session: %w", ErrNotSupported)
	}
	if _, err := comCall(r.dupl, vtblAcquireNextFrame, 500, 0, 0); err != nil {
		return PixelFrame{}, fmt.Errorf("AcquireNextFrame: %w", err)
	}
	defer comCall(r.dupl, vtblReleaseFrame)
	return PixelFrame{Format: FormatBGR0S, Width: r.desc.width, Height: r.desc.height, Stride: r.desc.width * 4, Pix: r.buf}, nil
}

func (r *dxgiRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comRelease(r.dupl)
	comRelease(r.context)
	comRelease(r.device)
	ole.CoUninitialize()
	return nil
}

func platformCapturables(cfg CaptureConfig) ([]Capturable, error) {
	if caps, err := newDXGICapturables(cfg); err == nil {
		return caps, nil
	}
	return newScreenshotCapturables()
}
