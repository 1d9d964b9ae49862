package desktop

import "testing"

func TestTestCapturable_Geometry(t *testing.T) {
	c := NewTestCapturable(1920, 1080)
	g, err := c.Geometry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.ScreenW != 1920 || g.ScreenH != 1080 {
		t.Fatalf("unexpected geometry: %+v", g)
	}
}

func TestTestRecorder_Capture_PixelOffsetIsRowMajor(t *testing.T) {
	c := NewTestCapturable(4, 4)
	rec, err := c.Recorder(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Close()

	frame, err := rec.Capture()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !frame.Valid() {
		t.Fatal("expected a valid frame")
	}

	// With the buggy pos = x*y*4 formula every pixel on row 0 or column 0
	// aliases to byte offset 0. The fixed row-major formula gives each
	// pixel of a 4x4 frame a distinct, in-bounds offset, and on the first
	// frame (gradient step 1) the first byte written there is x+y.
	seen := make(map[int]bool)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			pos := (y*4 + x) * 4
			if pos+3 >= len(frame.Pix) {
				t.Fatalf("offset %d out of bounds for pixel (%d,%d)", pos, x, y)
			}
			if got, want := frame.Pix[pos], byte(x+y); got != want {
				t.Fatalf("pixel (%d,%d) at offset %d: got %d, want %d", x, y, pos, got, want)
			}
			seen[pos] = true
		}
	}
	if len(seen) != 16 {
		t.Fatalf("expected 16 distinct pixel offsets, got %d", len(seen))
	}
}

func TestTestRecorder_Capture_ProducesDistinctSuccessiveFrames(t *testing.T) {
	c := NewTestCapturable(16, 16)
	rec, err := c.Recorder(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Close()

	f1, _ := rec.Capture()
	buf1 := append([]byte(nil), f1.Pix...)
	f2, _ := rec.Capture()

	if string(buf1) == string(f2.Pix) {
		t.Fatal("expected the animated test pattern to change between frames")
	}
}

func TestTestCapturable_CloneReportsSameName(t *testing.T) {
	c := NewTestCapturable(8, 8)
	clone := c.Clone()
	if clone.Name() != c.Name() {
		t.Fatalf("expected clone to report the same name, got %q vs %q", clone.Name(), c.Name())
	}
}
