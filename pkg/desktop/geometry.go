package desktop

// GeometryKind discriminates the two coordinate representations a
// Capturable can report. Source repos of this kind (Weylus) express this
// as a Rust sum type; it is rendered here as a tagged struct.
type GeometryKind int

const (
	// GeometryRelative expresses the capturable's rect as fractions of
	// the whole virtual screen, all in [0, 1]. Used by the X11 and
	// PipeWire capture sources, where the native APIs already report
	// window/output bounds relative to the full desktop.
	GeometryRelative GeometryKind = iota

	// GeometryVirtualScreen expresses the capturable's rect in absolute
	// pixels, plus the origin of the overall virtual desktop (which can
	// be negative in multi-monitor layouts). Used by the DXGI capture
	// source, whose injection APIs need absolute pixel targets rather
	// than normalized fractions.
	GeometryVirtualScreen
)

// Geometry is the coordinate-space contract between a Capturable and the
// InputInjector bound to it: it is what lets a browser pointer event in
// [0,1] client space be turned into a native pixel coordinate.
type Geometry struct {
	Kind GeometryKind

	// Populated when Kind == GeometryRelative. X, Y, W, H are fractions
	// of ScreenW/ScreenH in [0, 1].
	RelX, RelY, RelW, RelH float64

	// Populated when Kind == GeometryVirtualScreen. AbsX, AbsY are the
	// capturable's pixel offset within the capture coordinate space;
	// AbsW, AbsH its pixel size.
	AbsX, AbsY, AbsW, AbsH int

	// VirtualLeft, VirtualTop are the origin of the entire virtual
	// desktop, used only by ToCursorPoint. Only meaningful when
	// Kind == GeometryVirtualScreen.
	VirtualLeft, VirtualTop int

	// ScreenW, ScreenH are the pixel dimensions of the whole virtual
	// screen. Required to resolve GeometryRelative points to pixels.
	ScreenW, ScreenH int
}

// ToScreenPoint maps a client-space point x, y (each in [0, 1], relative to
// the capturable's own rect) to an absolute pixel coordinate suitable for
// direct pointer injection (e.g. uinput absolute axes, user32's
// InjectSyntheticPointerInput).
func (g Geometry) ToScreenPoint(x, y float64) (float64, float64) {
	switch g.Kind {
	case GeometryRelative:
		return (x*g.RelW + g.RelX) * float64(g.ScreenW), (y*g.RelH + g.RelY) * float64(g.ScreenH)
	case GeometryVirtualScreen:
		return x*float64(g.AbsW) + float64(g.AbsX), y*float64(g.AbsH) + float64(g.AbsY)
	default:
		return x, y
	}
}

// ToCursorPoint maps a client-space point to the coordinate space expected
// by cursor-positioning APIs (e.g. Windows SetCursorPos), which are
// relative to the virtual desktop's own origin rather than the
// capturable's absolute pixel offset. On GeometryRelative sources the two
// are equivalent since the relative rect is already expressed against the
// whole virtual screen.
func (g Geometry) ToCursorPoint(x, y float64) (float64, float64) {
	if g.Kind == GeometryVirtualScreen {
		return x*float64(g.AbsW) + float64(g.VirtualLeft), y*float64(g.AbsH) + float64(g.VirtualTop)
	}
	return g.ToScreenPoint(x, y)
}

// Normalize clamps x and y into [0, 1]. Browser pointer events can report
// coordinates slightly outside the element bounds (fast drags, edge
// rounding); callers should normalize before transforming.
func Normalize(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
