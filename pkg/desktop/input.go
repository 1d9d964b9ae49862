package desktop

// PointerType identifies the device class that generated a PointerEvent,
// mirroring the W3C Pointer Events spec's pointerType field.
type PointerType int

const (
	PointerUnknown PointerType = iota
	PointerMouse
	PointerPen
	PointerTouch
)

// PointerEventType mirrors the browser pointer event names that trigger
// each message.
type PointerEventType int

const (
	PointerDown PointerEventType = iota
	PointerUp
	PointerCancel
	PointerMove
)

// Button is a bitmask of pointer buttons, matching the browser
// MouseEvent.buttons encoding (bit 0 = primary/left, bit 1 =
// secondary/right, bit 2 = auxiliary/middle, bits 3-4 = fourth/fifth).
type Button uint8

const (
	ButtonNone      Button = 0
	ButtonPrimary   Button = 1 << 0
	ButtonSecondary Button = 1 << 1
	ButtonAuxiliary Button = 1 << 2
	ButtonFourth    Button = 1 << 3
	ButtonFifth     Button = 1 << 4
)

// PointerEvent is the wire and in-process representation of one pointer
// sample: a pen stroke point, a mouse move, or a touch contact update.
// Coordinates x, y are normalized to [0, 1] against the capturable's own
// rect, per the spec's client/server contract — the server, not the
// browser, owns the pixel mapping via Geometry.
type PointerEvent struct {
	EventType   PointerEventType
	PointerID   int64
	IsPrimary   bool
	PointerType PointerType
	Button      Button
	Buttons     Button
	X, Y        float64
	MovementX   int64
	MovementY   int64
	Pressure    float64
	TiltX       int32
	TiltY       int32
	Twist       int32
	Width       float64
	Height      float64
}

// KeyboardEvent carries a browser KeyboardEvent.code string (a physical
// key identifier independent of layout, e.g. "KeyA", "ShiftLeft") plus
// whether this is a press or release. Ctrl/Alt/Meta/Shift mirror the
// browser's own modifier snapshot and are carried through for ClientConfig
// and logging use; the injectors use Code and Pressed (modifier keys arrive
// as their own KeyboardEvent with their own Code), and the Linux injector
// also types Key rune by rune when Code has no table entry.
type KeyboardEvent struct {
	Code    string
	Key     string
	Pressed bool
	Ctrl    bool
	Alt     bool
	Meta    bool
	Shift   bool
}

// WheelEvent carries the wire message's dy scroll delta in DeltaY:
// positive scrolls up (wheel rotated away from the user), negative
// scrolls down.
type WheelEvent struct {
	DeltaX float64
	DeltaY float64
}

// NewInputInjector constructs the platform-appropriate InputInjector for
// the binary's build target, resolved at compile time by the build-tagged
// newPlatformInjector in exactly one of input_uinput_linux.go,
// input_windows.go, input_darwin.go, or input_generic.go.
func NewInputInjector() (InputInjector, error) {
	return newPlatformInjector()
}

// InputInjector turns browser input events into native OS input, bound to
// exactly one Capturable at a time via SetCapturable. Implementations must
// never panic or block indefinitely on a malformed event; per the error
// taxonomy, injection failures are logged and dropped rather than
// propagated, since a single bad event must not stall the session's input
// goroutine.
type InputInjector interface {
	SendPointerEvent(ev PointerEvent)
	SendKeyboardEvent(ev KeyboardEvent)
	SendWheelEvent(ev WheelEvent)

	// SetCapturable rebinds the injector to a new capturable, e.g. when
	// the client switches which window/monitor it is viewing.
	SetCapturable(c Capturable)

	Close() error
}

// resolveScreenPoint asks the currently bound capturable for its Geometry
// and maps a client-normalized point into screen pixels, clamping both
// axes first since pointer coordinates at element edges can read slightly
// outside [0, 1].
func resolveScreenPoint(c Capturable, x, y float64) (float64, float64, error) {
	geom, err := c.Geometry()
	if err != nil {
		return 0, 0, err
	}
	sx, sy := geom.ToScreenPoint(Normalize(x), Normalize(y))
	return sx, sy, nil
}
