//go:build (!linux && !windows && !darwin) || (darwin && !cgo)

package desktop

import "sync"

// genericInjector is the fallback used when no platform-specific backend
// is available (an unsupported OS, or a darwin build without cgo). It
// silently drops every event rather than pretending to inject; unlike the
// platform backends there is no portable automation library pulled in
// here, matching the "no robotgo-style dep" decision.
type genericInjector struct {
	mu         sync.Mutex
	capturable Capturable
}

func newPlatformInjector() (InputInjector, error) {
	return &genericInjector{}, nil
}

func (g *genericInjector) SetCapturable(c Capturable) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.capturable = c
}

func (g *genericInjector) SendPointerEvent(ev PointerEvent) {}
func (g *genericInjector) SendKeyboardEvent(ev KeyboardEvent) {}
func (g *genericInjector) SendWheelEvent(ev WheelEvent)       {}

func (g *genericInjector) Close() error { return nil }
