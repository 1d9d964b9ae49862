package desktop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeClientMessage_PointerEvent(t *testing.T) {
	data := []byte(`{"PointerEvent":{"event_type":"pointerdown","pointer_id":1,"is_primary":true,"pointer_type":"pen","button":0,"buttons":1,"x":0.5,"y":0.5,"pressure":0.3}}`)
	msg, err := DecodeClientMessage(data)
	require.NoError(t, err)
	require.Equal(t, MessagePointer, msg.Kind)
	require.Equal(t, PointerDown, msg.Pointer.EventType)
	require.Equal(t, PointerPen, msg.Pointer.PointerType)
	require.Equal(t, 0.5, msg.Pointer.X)
	require.Equal(t, 0.3, msg.Pointer.Pressure)
}

func TestDecodeClientMessage_KeyboardEvent(t *testing.T) {
	data := []byte(`{"KeyboardEvent":{"event_type":"keydown","code":"Escape","key":"Escape","ctrl":false,"alt":false,"meta":false,"shift":false}}`)
	msg, err := DecodeClientMessage(data)
	require.NoError(t, err)
	require.Equal(t, MessageKeyboard, msg.Kind)
	require.Equal(t, "Escape", msg.Keyboard.Code)
	require.True(t, msg.Keyboard.Pressed)
}

func TestDecodeClientMessage_WheelEvent(t *testing.T) {
	data := []byte(`{"WheelEvent":{"dy":3}}`)
	msg, err := DecodeClientMessage(data)
	require.NoError(t, err)
	require.Equal(t, MessageWheel, msg.Kind)
	require.Equal(t, 3.0, msg.Wheel.DeltaY)
}

func TestDecodeClientMessage_ClientConfig(t *testing.T) {
	data := []byte(`{"ClientConfig":{"capturable":"Monitor 1"}}`)
	msg, err := DecodeClientMessage(data)
	require.NoError(t, err)
	require.Equal(t, MessageConfig, msg.Kind)
	require.NotNil(t, msg.Config)
	require.Equal(t, "Monitor 1", msg.Config.Capturable)
}

func TestDecodeClientMessage_MalformedJSON(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{not json`))
	require.Error(t, err)
}

func TestDecodeClientMessage_UnknownTag(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{}`))
	require.Error(t, err)
}

func TestDecodeClientMessage_UnknownPointerEventType(t *testing.T) {
	data := []byte(`{"PointerEvent":{"event_type":"pointerwiggle"}}`)
	_, err := DecodeClientMessage(data)
	require.Error(t, err)
}

func TestButtonsFromBits_TruncatesUndefinedBits(t *testing.T) {
	// bit 7 (0x80) is undefined; it must be dropped, not cause a failure.
	got := buttonsFromBits(0xFF)
	want := ButtonPrimary | ButtonSecondary | ButtonAuxiliary | ButtonFourth | ButtonFifth
	require.Equal(t, want, got)
}

func TestButtonsFromBits_SingleButtonField(t *testing.T) {
	// the wire protocol's single-button `button` field is decoded with the
	// same from_bits_truncate as the `buttons` bitmask field.
	cases := map[int]Button{1: ButtonPrimary, 2: ButtonSecondary, 4: ButtonAuxiliary}
	for bits, want := range cases {
		require.Equal(t, want, buttonsFromBits(bits), "buttonsFromBits(%d)", bits)
	}
}
