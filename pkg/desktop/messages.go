package desktop

import (
	"encoding/json"
	"fmt"
)

// ClientMessage is the tagged envelope every inbound text frame decodes
// into: exactly one of the four fields is non-nil, mirroring the
// PointerEvent | KeyboardEvent | WheelEvent | ClientConfig wire union.
type ClientMessage struct {
	PointerEvent  *wirePointerEvent  `json:"PointerEvent,omitempty"`
	KeyboardEvent *wireKeyboardEvent `json:"KeyboardEvent,omitempty"`
	WheelEvent    *wireWheelEvent    `json:"WheelEvent,omitempty"`
	ClientConfig  *ClientConfig      `json:"ClientConfig,omitempty"`
}

// wirePointerEvent mirrors the browser's own field names (snake_case,
// event_type as a string) rather than PointerEvent's Go-idiomatic enum
// fields; DecodeClientMessage converts between the two.
type wirePointerEvent struct {
	EventType   string  `json:"event_type"`
	PointerID   int64   `json:"pointer_id"`
	IsPrimary   bool    `json:"is_primary"`
	PointerType string  `json:"pointer_type"`
	Button      int     `json:"button"`
	Buttons     int     `json:"buttons"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	MovementX   int64   `json:"movement_x"`
	MovementY   int64   `json:"movement_y"`
	Pressure    float64 `json:"pressure"`
	TiltX       int32   `json:"tilt_x"`
	TiltY       int32   `json:"tilt_y"`
	Twist       int32   `json:"twist"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

type wireKeyboardEvent struct {
	EventType string `json:"event_type"`
	Code      string `json:"code"`
	Key       string `json:"key"`
	Ctrl      bool   `json:"ctrl"`
	Alt       bool   `json:"alt"`
	Meta      bool   `json:"meta"`
	Shift     bool   `json:"shift"`
}

type wireWheelEvent struct {
	DY float64 `json:"dy"`
}

// ClientConfig carries session-scoped settings the client can change
// mid-stream: which capturable to stream and whether the hardware cursor
// should be composited into captured frames.
type ClientConfig struct {
	Capturable    string `json:"capturable,omitempty"`
	CaptureCursor *bool  `json:"capture_cursor,omitempty"`
}

// decodePointerEventType maps the browser's verbatim event_type strings;
// an unrecognized value is a protocol error per the error taxonomy's
// category 4 and is rejected rather than silently defaulted.
func decodePointerEventType(s string) (PointerEventType, error) {
	switch s {
	case "pointerdown":
		return PointerDown, nil
	case "pointerup":
		return PointerUp, nil
	case "pointermove":
		return PointerMove, nil
	case "pointercancel":
		return PointerCancel, nil
	default:
		return 0, fmt.Errorf("unknown pointer event_type %q", s)
	}
}

func decodePointerType(s string) PointerType {
	switch s {
	case "mouse":
		return PointerMouse
	case "pen":
		return PointerPen
	case "touch":
		return PointerTouch
	default:
		return PointerUnknown
	}
}

// buttonsFromBits truncates to the five bits the protocol defines
// (primary/secondary/auxiliary/fourth/fifth), ignoring any higher bits a
// browser might set, matching Button::from_bits_truncate's never-fail
// contract. Used for both the single-button `button` field and the
// bitmask `buttons` field, same as the original decodes both with
// from_bits_truncate.
func buttonsFromBits(v int) Button {
	return Button(v) & (ButtonPrimary | ButtonSecondary | ButtonAuxiliary | ButtonFourth | ButtonFifth)
}

// MessageKind discriminates the decoded payload a ClientMessage carried,
// letting callers switch on an explicit tag instead of guessing from which
// zero-valued struct came back.
type MessageKind int

const (
	MessagePointer MessageKind = iota
	MessageKeyboard
	MessageWheel
	MessageConfig
)

// DecodedMessage is the normalized result of one inbound text frame: Kind
// says which of Pointer/Keyboard/Wheel/Config is populated.
type DecodedMessage struct {
	Kind     MessageKind
	Pointer  PointerEvent
	Keyboard KeyboardEvent
	Wheel    WheelEvent
	Config   *ClientConfig
}

// DecodeClientMessage parses one inbound text frame into the normalized
// in-process event types. Malformed JSON or an unrecognized event_type
// returns an error; callers must log and drop per the protocol-error
// policy rather than closing the connection.
func DecodeClientMessage(data []byte) (DecodedMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return DecodedMessage{}, fmt.Errorf("decode message: %w", err)
	}

	switch {
	case msg.PointerEvent != nil:
		w := msg.PointerEvent
		et, err := decodePointerEventType(w.EventType)
		if err != nil {
			return DecodedMessage{}, err
		}
		ev := PointerEvent{
			EventType:   et,
			PointerID:   w.PointerID,
			IsPrimary:   w.IsPrimary,
			PointerType: decodePointerType(w.PointerType),
			Button:      buttonsFromBits(w.Button),
			Buttons:     buttonsFromBits(w.Buttons),
			X:           w.X,
			Y:           w.Y,
			MovementX:   w.MovementX,
			MovementY:   w.MovementY,
			Pressure:    w.Pressure,
			TiltX:       w.TiltX,
			TiltY:       w.TiltY,
			Twist:       w.Twist,
			Width:       w.Width,
			Height:      w.Height,
		}
		return DecodedMessage{Kind: MessagePointer, Pointer: ev}, nil

	case msg.KeyboardEvent != nil:
		w := msg.KeyboardEvent
		var pressed bool
		switch w.EventType {
		case "keydown":
			pressed = true
		case "keyup":
			pressed = false
		default:
			return DecodedMessage{}, fmt.Errorf("unknown keyboard event_type %q", w.EventType)
		}
		ev := KeyboardEvent{
			Code: w.Code, Key: w.Key, Pressed: pressed,
			Ctrl: w.Ctrl, Alt: w.Alt, Meta: w.Meta, Shift: w.Shift,
		}
		return DecodedMessage{Kind: MessageKeyboard, Keyboard: ev}, nil

	case msg.WheelEvent != nil:
		return DecodedMessage{Kind: MessageWheel, Wheel: WheelEvent{DeltaY: msg.WheelEvent.DY}}, nil

	case msg.ClientConfig != nil:
		return DecodedMessage{Kind: MessageConfig, Config: msg.ClientConfig}, nil

	default:
		return DecodedMessage{}, fmt.Errorf("message has no recognized tag")
	}
}
