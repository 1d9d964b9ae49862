//go:build windows

package desktop

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// Windows input injection via SendInput for plain mouse events and the
// synthetic pointer device API (InjectSyntheticPointerInput) for pen and
// touch, pure-Go syscalls following the same no-cgo convention as
// capture_windows.go; go-ole handles the COM lifecycle shared with the
// DXGI capture path (CoInitialize must be called once per thread that
// touches either).
var (
	user32DLL = syscall.NewLazyDLL("user32.dll")

	procSendInput                    = user32DLL.NewProc("SendInput")
	procSetCursorPos                 = user32DLL.NewProc("SetCursorPos")
	procInitializeTouchInjection     = user32DLL.NewProc("InitializeTouchInjection")
	procCreateSyntheticPointerDevice = user32DLL.NewProc("CreateSyntheticPointerDevice")
	procInjectSyntheticPointerInput  = user32DLL.NewProc("InjectSyntheticPointerInput")
)

// Pointer input type tags (PT_*) and synthetic-device constants, matching
// winuser.h and the same names autopilot_device_win.rs's winapi bindings
// use.
const (
	ptPen   = 3
	ptTouch = 2

	touchFeedbackDefault = 0x1

	maxTouchContacts = 5

	pointerFlagNone      = 0x00000000
	pointerFlagInRange   = 0x00000002
	pointerFlagInContact = 0x00000004
	pointerFlagPrimary   = 0x00002000
	pointerFlagCanceled  = 0x00008000
	pointerFlagDown      = 0x00010000
	pointerFlagUpdate    = 0x00020000
	pointerFlagUp        = 0x00040000

	penMaskPressure = 0x00000001
	penMaskRotation = 0x00000002
	penMaskTiltX    = 0x00000004
	penMaskTiltY    = 0x00000008

	touchMaskPressure = 0x00000004

	pointerChangeNone              = 0
	pointerChangeFirstButtonDown   = 1
	pointerChangeSecondButtonDown  = 3
	pointerChangeThirdButtonDown   = 5
)

// point and rect mirror the Win32 POINT/RECT structs (all LONG members).
type point struct{ X, Y int32 }
type rect struct{ Left, Top, Right, Bottom int32 }

// pointerInfo mirrors POINTER_INFO field-for-field; Go's natural amd64
// struct alignment matches the real struct's layout since every field is
// declared in the same order and width as winuser.h.
type pointerInfo struct {
	PointerType           uint32
	PointerID             uint32
	FrameID                uint32
	PointerFlags          uint32
	SourceDevice          uintptr
	HwndTarget            uintptr
	PtPixelLocation       point
	PtHimetricLocation    point
	PtPixelLocationRaw    point
	PtHimetricLocationRaw point
	DwTime                uint32
	HistoryCount          uint32
	InputData             int32
	DwKeyStates           uint32
	PerformanceCount      uint64
	ButtonChangeType      int32
}

// pointerPenInfo mirrors POINTER_PEN_INFO.
type pointerPenInfo struct {
	PointerInfo pointerInfo
	PenFlags    uint32
	PenMask     uint32
	Pressure    uint32
	Rotation    uint32
	TiltX       int32
	TiltY       int32
}

// pointerTouchInfo mirrors POINTER_TOUCH_INFO.
type pointerTouchInfo struct {
	PointerInfo  pointerInfo
	TouchFlags   uint32
	TouchMask    uint32
	RcContact    rect
	RcContactRaw rect
	Orientation  uint32
	Pressure     uint32
}

// pointerTypeInfoPen and pointerTypeInfoTouch each mirror one arm of the
// POINTER_TYPE_INFO union (a leading type tag, 4 bytes of alignment
// padding, then the active member) — Go has no union type, but since only
// one arm is ever live at a time a distinct struct per arm is simpler than
// hand-rolled byte manipulation and has the identical memory layout.
type pointerTypeInfoPen struct {
	Type uint32
	_    uint32
	Pen  pointerPenInfo
}

type pointerTypeInfoTouch struct {
	Type  uint32
	_     uint32
	Touch pointerTouchInfo
}

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseEventFMove       = 0x0001
	mouseEventFAbsolute   = 0x8000
	mouseEventFLeftDown   = 0x0002
	mouseEventFLeftUp     = 0x0004
	mouseEventFRightDown  = 0x0008
	mouseEventFRightUp    = 0x0010
	mouseEventFMiddleDown = 0x0020
	mouseEventFMiddleUp   = 0x0040
	mouseEventFWheel      = 0x0800

	keyEventFKeyUp = 0x0002
)

// rawInput mirrors the layout of the Win32 INPUT union on amd64: a
// leading DWORD type tag, natural alignment padding, then the union
// itself sized to its largest member (MOUSEINPUT, 32 bytes after its
// own internal padding), 40 bytes in all.
type rawInput struct {
	Type uint32
	_    uint32
	Dx   int32
	Dy   int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

func sendMouseInput(flags uint32, dx, dy int32, mouseData uint32) {
	in := rawInput{Type: inputMouse, Dx: dx, Dy: dy, MouseData: mouseData, Flags: flags}
	procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
}

// keybdRawInput reuses the same leading layout as rawInput for the KEYBDINPUT
// union member (wVk, wScan, dwFlags, time, dwExtraInfo), padded to the
// full INPUT size since SendInput requires cbSize == sizeof(INPUT).
type keybdRawInput struct {
	Type uint32
	_    uint32
	Vk   uint16
	Scan uint16
	Flags uint32
	Time  uint32
	ExtraInfo uintptr
	_         [8]byte
}

func sendKeyInput(vk uint16, flags uint32) {
	in := keybdRawInput{Type: inputKeyboard, Vk: vk, Flags: flags}
	procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
}

type windowsInjector struct {
	mu         sync.Mutex
	capturable Capturable

	penDevice   uintptr
	touchDevice uintptr
}

func newPlatformInjector() (InputInjector, error) {
	if err := ole.CoInitialize(0); err != nil {
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != 1 {
			return nil, fmt.Errorf("CoInitialize: %w", err)
		}
	}

	if ok, _, err := procInitializeTouchInjection.Call(uintptr(maxTouchContacts), uintptr(touchFeedbackDefault)); ok == 0 {
		return nil, fmt.Errorf("InitializeTouchInjection: %w", err)
	}

	pen, _, err := procCreateSyntheticPointerDevice.Call(uintptr(ptPen), 1, 1)
	if pen == 0 {
		return nil, fmt.Errorf("CreateSyntheticPointerDevice(pen): %w", err)
	}
	touch, _, err := procCreateSyntheticPointerDevice.Call(uintptr(ptTouch), uintptr(maxTouchContacts), 1)
	if touch == 0 {
		return nil, fmt.Errorf("CreateSyntheticPointerDevice(touch): %w", err)
	}

	return &windowsInjector{penDevice: pen, touchDevice: touch}, nil
}

func (w *windowsInjector) SetCapturable(c Capturable) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.capturable = c
}

// pointerFlagsFor maps a PointerEventType to the POINTER_FLAG_* combination
// autopilot_device_win.rs uses for each case; CANCEL is UPDATE|CANCELED
// rather than a dedicated flag, matching Windows' own event model.
func pointerFlagsFor(et PointerEventType, primary bool) uint32 {
	var flags uint32
	switch et {
	case PointerDown:
		flags = pointerFlagInRange | pointerFlagInContact | pointerFlagDown
	case PointerMove:
		flags = pointerFlagInRange | pointerFlagInContact | pointerFlagUpdate
	case PointerUp:
		flags = pointerFlagUp
	case PointerCancel:
		flags = pointerFlagInRange | pointerFlagUpdate | pointerFlagCanceled
	}
	if primary {
		flags |= pointerFlagPrimary
	}
	return flags
}

// buttonChangeType maps the bitmask Button that changed on this event to
// Win32's POINTER_BUTTON_CHANGE_TYPE enum.
func buttonChangeType(b Button) int32 {
	switch {
	case b&ButtonPrimary != 0:
		return pointerChangeFirstButtonDown
	case b&ButtonSecondary != 0:
		return pointerChangeSecondButtonDown
	case b&ButtonAuxiliary != 0:
		return pointerChangeThirdButtonDown
	default:
		return pointerChangeNone
	}
}

func (w *windowsInjector) SendPointerEvent(ev PointerEvent) {
	w.mu.Lock()
	c := w.capturable
	w.mu.Unlock()
	if c == nil {
		return
	}
	c.BeforeInput()

	switch ev.PointerType {
	case PointerPen:
		w.sendPenEvent(c, ev)
	case PointerTouch:
		w.sendTouchEvent(c, ev)
	default:
		w.sendMouseEvent(c, ev)
	}
}

func (w *windowsInjector) sendPenEvent(c Capturable, ev PointerEvent) {
	sx, sy, err := resolveScreenPoint(c, ev.X, ev.Y)
	if err != nil {
		return
	}

	info := pointerTypeInfoPen{
		Type: ptPen,
		Pen: pointerPenInfo{
			PointerInfo: pointerInfo{
				PointerType:      ptPen,
				PointerID:        1,
				PointerFlags:     pointerFlagsFor(ev.EventType, ev.IsPrimary),
				PtPixelLocation:  point{X: int32(sx), Y: int32(sy)},
				ButtonChangeType: buttonChangeType(ev.Button),
			},
			PenMask:  penMaskPressure | penMaskRotation | penMaskTiltX | penMaskTiltY,
			Pressure: uint32(ev.Pressure * 1024),
			Rotation: uint32(ev.Twist),
			TiltX:    ev.TiltX,
			TiltY:    ev.TiltY,
		},
	}
	procInjectSyntheticPointerInput.Call(w.penDevice, uintptr(unsafe.Pointer(&info)), 1)
}

func (w *windowsInjector) sendTouchEvent(c Capturable, ev PointerEvent) {
	sx, sy, err := resolveScreenPoint(c, ev.X, ev.Y)
	if err != nil {
		return
	}

	radiusX := int32(ev.Width/2 + 1)
	radiusY := int32(ev.Height/2 + 1)
	x, y := int32(sx), int32(sy)
	// touch contact ids must stay within the five-slot device created in
	// newPlatformInjector; wrap rather than drop extra simultaneous
	// contacts.
	contactID := uint32(ev.PointerID%maxTouchContacts) + 1

	info := pointerTypeInfoTouch{
		Type: ptTouch,
		Touch: pointerTouchInfo{
			PointerInfo: pointerInfo{
				PointerType:      ptTouch,
				PointerID:        contactID,
				PointerFlags:     pointerFlagsFor(ev.EventType, ev.IsPrimary),
				PtPixelLocation:  point{X: x, Y: y},
				ButtonChangeType: buttonChangeType(ev.Button),
			},
			TouchMask: touchMaskPressure,
			RcContact: rect{Left: x - radiusX, Top: y - radiusY, Right: x + radiusX, Bottom: y + radiusY},
			Pressure:  uint32(ev.Pressure * 1024),
		},
	}
	procInjectSyntheticPointerInput.Call(w.touchDevice, uintptr(unsafe.Pointer(&info)), 1)
}

func (w *windowsInjector) sendMouseEvent(c Capturable, ev PointerEvent) {
	geom, err := c.Geometry()
	if err != nil || geom.AbsW == 0 || geom.AbsH == 0 {
		return
	}
	// SendInput's absolute mouse coordinates are normalized to 0-65535
	// against the virtual screen; ToCursorPoint already gives pixels
	// relative to that same origin, so only the final rescale is needed.
	cx, cy := geom.ToCursorPoint(Normalize(ev.X), Normalize(ev.Y))
	vx := int32(cx / float64(geom.AbsW) * 65535)
	vy := int32(cy / float64(geom.AbsH) * 65535)

	sendMouseInput(mouseEventFMove|mouseEventFAbsolute, vx, vy, 0)
	if !ev.IsPrimary {
		return
	}
	switch ev.EventType {
	case PointerDown:
		switch ev.Button {
		case ButtonPrimary:
			sendMouseInput(mouseEventFLeftDown, 0, 0, 0)
		case ButtonSecondary:
			sendMouseInput(mouseEventFRightDown, 0, 0, 0)
		case ButtonAuxiliary:
			sendMouseInput(mouseEventFMiddleDown, 0, 0, 0)
		}
	case PointerUp:
		sendMouseInput(mouseEventFLeftUp, 0, 0, 0)
		sendMouseInput(mouseEventFRightUp, 0, 0, 0)
		sendMouseInput(mouseEventFMiddleUp, 0, 0, 0)
	}
}

func (w *windowsInjector) SendKeyboardEvent(ev KeyboardEvent) {
	vk, ok := codeToVK[ev.Code]
	if !ok {
		return
	}
	if ev.Pressed {
		sendKeyInput(vk, 0)
	} else {
		sendKeyInput(vk, keyEventFKeyUp)
	}
}

// wheelDelta is WHEEL_DELTA, the notch granularity Win32 mouse wheel
// events are expressed in.
const wheelDelta = 120

// SendWheelEvent coarsens the delta to a single notch in the scroll
// direction, regardless of magnitude, matching autopilot_device.rs's
// scroll(Up, 1)/scroll(Down, 1).
func (w *windowsInjector) SendWheelEvent(ev WheelEvent) {
	switch {
	case ev.DeltaY > 0:
		sendMouseInput(mouseEventFWheel, 0, 0, uint32(int32(wheelDelta)))
	case ev.DeltaY < 0:
		sendMouseInput(mouseEventFWheel, 0, 0, uint32(int32(-wheelDelta)))
	}
}

func (w *windowsInjector) Close() error {
	ole.CoUninitialize()
	return nil
}

// codeToVK maps the same browser physical key codes codeToEvdev uses to
// Windows Virtual Key codes, the inverse direction of vk_evdev.go's table.
var codeToVK = map[string]uint16{
	"Escape": 0x1B, "Tab": 0x09, "Enter": 0x0D, "Space": 0x20,
	"Backspace": 0x08, "Delete": 0x2E, "Insert": 0x2D,
	"Home": 0x24, "End": 0x23, "PageUp": 0x21, "PageDown": 0x22,
	"ArrowLeft": 0x25, "ArrowUp": 0x26, "ArrowRight": 0x27, "ArrowDown": 0x28,
	"ShiftLeft": 0x10, "ShiftRight": 0x10, "ControlLeft": 0x11, "ControlRight": 0x11,
	"AltLeft": 0x12, "AltRight": 0x12,
	"KeyA": 0x41, "KeyB": 0x42, "KeyC": 0x43, "KeyD": 0x44, "KeyE": 0x45,
	"KeyF": 0x46, "KeyG": 0x47, "KeyH": 0x48, "KeyI": 0x49, "KeyJ": 0x4A,
	"KeyK": 0x4B, "KeyL": 0x4C, "KeyM": 0x4D, "KeyN": 0x4E, "KeyO": 0x4F,
	"KeyP": 0x50, "KeyQ": 0x51, "KeyR": 0x52, "KeyS": 0x53, "KeyT": 0x54,
	"KeyU": 0x55, "KeyV": 0x56, "KeyW": 0x57, "KeyX": 0x58, "KeyY": 0x59, "KeyZ": 0x5A,
	"Digit0": 0x30, "Digit1": 0x31, "Digit2": 0x32, "Digit3": 0x33, "Digit4": 0x34,
	"Digit5": 0x35, "Digit6": 0x36, "Digit7": 0x37, "Digit8": 0x38, "Digit9": 0x39,
	"F1": 0x70, "F2": 0x71, "F3": 0x72, "F4": 0x73, "F5": 0x74, "F6": 0x75,
	"F7": 0x76, "F8": 0x77, "F9": 0x78, "F10": 0x79, "F11": 0x7A, "F12": 0x7B,
}
