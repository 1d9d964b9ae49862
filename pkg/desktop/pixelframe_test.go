package desktop

import "testing"

func TestPixelFrame_Valid(t *testing.T) {
	f := PixelFrame{Format: FormatBGR0, Width: 4, Height: 2, Pix: make([]byte, 4*4*2)}
	if !f.Valid() {
		t.Fatal("expected a fully-sized frame to be valid")
	}
}

func TestPixelFrame_Invalid_TooShort(t *testing.T) {
	f := PixelFrame{Format: FormatBGR0, Width: 4, Height: 2, Pix: make([]byte, 4)}
	if f.Valid() {
		t.Fatal("expected a truncated frame to be invalid")
	}
}

func TestPixelFrame_Invalid_ZeroDimensions(t *testing.T) {
	f := PixelFrame{Format: FormatRGB, Width: 0, Height: 0}
	if f.Valid() {
		t.Fatal("expected zero-sized frame to be invalid")
	}
}

func TestPixelFrame_RowStride_DefaultsToTightPacking(t *testing.T) {
	f := PixelFrame{Format: FormatBGR0, Width: 10}
	if got := f.RowStride(); got != 40 {
		t.Fatalf("expected tight stride 40, got %d", got)
	}
}

func TestPixelFrame_RowStride_ExplicitOverridesTight(t *testing.T) {
	f := PixelFrame{Format: FormatBGR0S, Width: 10, Stride: 48}
	if got := f.RowStride(); got != 48 {
		t.Fatalf("expected explicit stride 48, got %d", got)
	}
}

func TestPixelFrame_ToBGRA_RGBSynthesizesOpaqueAlpha(t *testing.T) {
	// One pixel (R=0xAA, G=0xBB, B=0xCC) in tightly-packed RGB.
	f := PixelFrame{Format: FormatRGB, Width: 1, Height: 1, Pix: []byte{0xAA, 0xBB, 0xCC}}
	out := f.ToBGRA()
	if len(out) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(out))
	}
	want := []byte{0xCC, 0xBB, 0xAA, 0xFF}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d: got %#x want %#x", i, out[i], want[i])
		}
	}
}

func TestPixelFrame_ToBGRA_BGR0PreservesChannelOrder(t *testing.T) {
	f := PixelFrame{Format: FormatBGR0, Width: 1, Height: 1, Pix: []byte{0x10, 0x20, 0x30, 0x00}}
	out := f.ToBGRA()
	want := []byte{0x10, 0x20, 0x30, 0xFF}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d: got %#x want %#x", i, out[i], want[i])
		}
	}
}

func TestPixelFrame_ToBGRA_RespectsPaddedStride(t *testing.T) {
	// 2x1 frame with a stride twice the tight value; ToBGRA must use
	// RowStride, not Width*bpp, when walking rows.
	stride := 16
	pix := make([]byte, stride)
	pix[4], pix[5], pix[6], pix[7] = 0x01, 0x02, 0x03, 0x00 // second pixel, BGR0
	f := PixelFrame{Format: FormatBGR0S, Width: 2, Height: 1, Stride: stride, Pix: pix}
	out := f.ToBGRA()
	if len(out) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(out))
	}
	want := []byte{0x01, 0x02, 0x03, 0xFF}
	for i := range want {
		if out[4+i] != want[i] {
			t.Fatalf("second pixel byte %d: got %#x want %#x", i, out[4+i], want[i])
		}
	}
}
