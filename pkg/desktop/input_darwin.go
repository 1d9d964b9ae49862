//go:build darwin

package desktop

/*
#cgo LDFLAGS: -framework CoreGraphics -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>

static void emit_mouse_move(double x, double y) {
	CGEventRef ev = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, CGPointMake(x, y), kCGMouseButtonLeft);
	CGEventPost(kCGHIDEventTap, ev);
	CFRelease(ev);
}

static void emit_mouse_button(double x, double y, int down, int button) {
	CGEventType etype;
	CGMouseButton btn;
	switch (button) {
		case 1: etype = down ? kCGEventRightMouseDown : kCGEventRightMouseUp; btn = kCGMouseButtonRight; break;
		case 2: etype = down ? kCGEventOtherMouseDown : kCGEventOtherMouseUp; btn = kCGMouseButtonCenter; break;
		default: etype = down ? kCGEventLeftMouseDown : kCGEventLeftMouseUp; btn = kCGMouseButtonLeft; break;
	}
	CGEventRef ev = CGEventCreateMouseEvent(NULL, etype, CGPointMake(x, y), btn);
	CGEventPost(kCGHIDEventTap, ev);
	CFRelease(ev);
}

static void emit_scroll(double dy, double dx) {
	CGEventRef ev = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitPixel, 2, (int32_t)dy, (int32_t)dx);
	CGEventPost(kCGHIDEventTap, ev);
	CFRelease(ev);
}

static void emit_key(int keycode, int down) {
	CGEventRef ev = CGEventCreateKeyboardEvent(NULL, (CGKeyCode)keycode, down != 0);
	CGEventPost(kCGHIDEventTap, ev);
	CFRelease(ev);
}

// emit_tablet_point posts a pen event with the tablet-point subtype
// carrying pressure and tilt, following the same CGEventCreateMouseEvent +
// CGEventSetIntegerValueField(kCGMouseEventSubtype, kCGEventMouseSubtypeTabletPoint)
// pattern macOS tablet drivers use.
static void emit_tablet_point(double x, double y, double pressure, int down) {
	CGEventType etype = down ? kCGEventLeftMouseDown : kCGEventLeftMouseDragged;
	CGEventRef ev = CGEventCreateMouseEvent(NULL, etype, CGPointMake(x, y), kCGMouseButtonLeft);
	CGEventSetIntegerValueField(ev, kCGMouseEventSubtype, 1); // kCGEventMouseSubtypeTabletPoint
	CGEventSetDoubleValueField(ev, kCGMouseEventPressure, pressure);
	CGEventPost(kCGHIDEventTap, ev);
	CFRelease(ev);
}
*/
import "C"

import (
	"sync"
)

type darwinInjector struct {
	mu         sync.Mutex
	capturable Capturable
}

func newPlatformInjector() (InputInjector, error) {
	return &darwinInjector{}, nil
}

func (d *darwinInjector) SetCapturable(c Capturable) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.capturable = c
}

func (d *darwinInjector) SendPointerEvent(ev PointerEvent) {
	d.mu.Lock()
	c := d.capturable
	d.mu.Unlock()
	if c == nil {
		return
	}
	c.BeforeInput()
	sx, sy, err := resolveScreenPoint(c, ev.X, ev.Y)
	if err != nil {
		return
	}

	switch ev.PointerType {
	case PointerPen:
		down := ev.EventType == PointerDown || (ev.EventType == PointerMove && ev.Buttons != ButtonNone)
		C.emit_tablet_point(C.double(sx), C.double(sy), C.double(ev.Pressure), boolToCInt(down))
	default:
		if !ev.IsPrimary {
			return
		}
		C.emit_mouse_move(C.double(sx), C.double(sy))
		switch ev.EventType {
		case PointerDown:
			C.emit_mouse_button(C.double(sx), C.double(sy), 1, buttonIndex(ev.Button))
		case PointerUp:
			C.emit_mouse_button(C.double(sx), C.double(sy), 0, buttonIndex(ev.Button))
		}
	}
}

func buttonIndex(b Button) C.int {
	switch {
	case b&ButtonSecondary != 0:
		return 1
	case b&ButtonAuxiliary != 0:
		return 2
	default:
		return 0
	}
}

func boolToCInt(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func (d *darwinInjector) SendKeyboardEvent(ev KeyboardEvent) {
	code, ok := codeToMacKeycode[ev.Code]
	if !ok {
		return
	}
	C.emit_key(C.int(code), boolToCInt(ev.Pressed))
}

// SendWheelEvent coarsens the delta to a single notch in the scroll
// direction, regardless of magnitude, matching autopilot_device.rs's
// scroll(Up, 1)/scroll(Down, 1).
func (d *darwinInjector) SendWheelEvent(ev WheelEvent) {
	var notch float64
	switch {
	case ev.DeltaY > 0:
		notch = 1
	case ev.DeltaY < 0:
		notch = -1
	}
	C.emit_scroll(C.double(notch), C.double(0))
}

func (d *darwinInjector) Close() error { return nil }

// codeToMacKeycode maps browser physical key codes to macOS virtual
// keycodes (kVK_* constants from Carbon's Events.h), the third rendering
// of the same fixed table alongside codeToEvdev and codeToVK.
var codeToMacKeycode = map[string]int{
	"KeyA": 0, "KeyS": 1, "KeyD": 2, "KeyF": 3, "KeyH": 4, "KeyG": 5,
	"KeyZ": 6, "KeyX": 7, "KeyC": 8, "KeyV": 9, "KeyB": 11,
	"KeyQ": 12, "KeyW": 13, "KeyE": 14, "KeyR": 15, "KeyY": 16, "KeyT": 17,
	"Digit1": 18, "Digit2": 19, "Digit3": 20, "Digit4": 21, "Digit6": 22,
	"Digit5": 23, "Equal": 24, "Digit9": 25, "Digit7": 26, "Minus": 27,
	"Digit8": 28, "Digit0": 29, "BracketRight": 30, "KeyO": 31, "KeyU": 32,
	"BracketLeft": 33, "KeyI": 34, "KeyP": 35, "Enter": 36, "KeyL": 37,
	"KeyJ": 38, "Quote": 39, "KeyK": 40, "Semicolon": 41, "Backslash": 42,
	"Comma": 43, "Slash": 44, "KeyN": 45, "KeyM": 46, "Period": 47, "Tab": 48,
	"Space": 49, "Backquote": 50, "Backspace": 51, "Escape": 53,
	"ShiftLeft": 56, "CapsLock": 57, "AltLeft": 58, "ControlLeft": 59,
	"ShiftRight": 60, "AltRight": 61, "ArrowLeft": 123, "ArrowRight": 124,
	"ArrowDown": 125, "ArrowUp": 126,
}
