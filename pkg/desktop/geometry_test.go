package desktop

import "testing"

func TestNormalize_ClampsToUnitRange(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-0.5, 0}, {0, 0}, {0.5, 0.5}, {1, 1}, {1.5, 1},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestToScreenPoint_Relative(t *testing.T) {
	g := Geometry{Kind: GeometryRelative, RelX: 0, RelY: 0, RelW: 1, RelH: 1, ScreenW: 1920, ScreenH: 1080}
	x, y := g.ToScreenPoint(0.5, 0.5)
	if x != 960 || y != 540 {
		t.Fatalf("expected (960,540), got (%v,%v)", x, y)
	}
}

func TestToScreenPoint_Relative_EdgeLandsOnLastPixel(t *testing.T) {
	g := Geometry{Kind: GeometryRelative, RelW: 1, RelH: 1, ScreenW: 1920, ScreenH: 1080}
	x, _ := g.ToScreenPoint(1.0, 0)
	if x != 1920 {
		t.Fatalf("x=1.0 should map to the screen width exactly, got %v", x)
	}
}

func TestToScreenPoint_VirtualScreen(t *testing.T) {
	g := Geometry{Kind: GeometryVirtualScreen, AbsX: 100, AbsY: 50, AbsW: 800, AbsH: 600}
	x, y := g.ToScreenPoint(0.5, 0.5)
	if x != 500 || y != 350 {
		t.Fatalf("expected (500,350), got (%v,%v)", x, y)
	}
}

func TestToCursorPoint_VirtualScreenUsesVirtualOrigin(t *testing.T) {
	g := Geometry{Kind: GeometryVirtualScreen, AbsX: 100, AbsY: 50, AbsW: 800, AbsH: 600, VirtualLeft: -1920, VirtualTop: 0}
	x, y := g.ToCursorPoint(0, 0)
	if x != -1920 || y != 0 {
		t.Fatalf("expected (-1920,0), got (%v,%v)", x, y)
	}
}

func TestToCursorPoint_RelativeMatchesToScreenPoint(t *testing.T) {
	g := Geometry{Kind: GeometryRelative, RelW: 1, RelH: 1, ScreenW: 1920, ScreenH: 1080}
	sx, sy := g.ToScreenPoint(0.25, 0.75)
	cx, cy := g.ToCursorPoint(0.25, 0.75)
	if sx != cx || sy != cy {
		t.Fatalf("relative geometry should agree: screen=(%v,%v) cursor=(%v,%v)", sx, sy, cx, cy)
	}
}

// TestRoundTrip_IdentityGeometry mirrors the spec's invariant
// that an identity Geometry::Relative(0,0,1,1) round-trips a normalized
// pointer coordinate unchanged.
func TestRoundTrip_IdentityGeometry(t *testing.T) {
	g := Geometry{Kind: GeometryRelative, RelX: 0, RelY: 0, RelW: 1, RelH: 1, ScreenW: 1, ScreenH: 1}
	x, y := g.ToScreenPoint(0.37, 0.81)
	if x != 0.37 || y != 0.81 {
		t.Fatalf("identity geometry should not alter coordinates, got (%v,%v)", x, y)
	}
}
