package desktop

// codeToEvdev maps a browser KeyboardEvent.code string to a Linux evdev
// key code, following the same fixed-table approach as vk_evdev.go's
// vkToEvdev map, just keyed by the code string instead of a Windows VK
// code — browser "code" values are already platform-independent physical
// key identifiers, so no VK intermediary is needed on the wire.
var codeToEvdev = map[string]int{
	"Escape":       1,
	"Digit1":       2,
	"Digit2":       3,
	"Digit3":       4,
	"Digit4":       5,
	"Digit5":       6,
	"Digit6":       7,
	"Digit7":       8,
	"Digit8":       9,
	"Digit9":       10,
	"Digit0":       11,
	"Minus":        12,
	"Equal":        13,
	"Backspace":    14,
	"Tab":          15,
	"KeyQ":         16,
	"KeyW":         17,
	"KeyE":         18,
	"KeyR":         19,
	"KeyT":         20,
	"KeyY":         21,
	"KeyU":         22,
	"KeyI":         23,
	"KeyO":         24,
	"KeyP":         25,
	"BracketLeft":  26,
	"BracketRight": 27,
	"Enter":        28,
	"ControlLeft":  29,
	"KeyA":         30,
	"KeyS":         31,
	"KeyD":         32,
	"KeyF":         33,
	"KeyG":         34,
	"KeyH":         35,
	"KeyJ":         36,
	"KeyK":         37,
	"KeyL":         38,
	"Semicolon":    39,
	"Quote":        40,
	"Backquote":    41,
	"ShiftLeft":    42,
	"Backslash":    43,
	"KeyZ":         44,
	"KeyX":         45,
	"KeyC":         46,
	"KeyV":         47,
	"KeyB":         48,
	"KeyN":         49,
	"KeyM":         50,
	"Comma":        51,
	"Period":       52,
	"Slash":        53,
	"ShiftRight":   54,
	"NumpadMultiply": 55,
	"AltLeft":      56,
	"Space":        57,
	"CapsLock":     58,
	"F1":           59,
	"F2":           60,
	"F3":           61,
	"F4":           62,
	"F5":           63,
	"F6":           64,
	"F7":           65,
	"F8":           66,
	"F9":           67,
	"F10":          68,
	"NumLock":      69,
	"ScrollLock":   70,
	"Numpad7":      71,
	"Numpad8":      72,
	"Numpad9":      73,
	"NumpadSubtract": 74,
	"Numpad4":      75,
	"Numpad5":      76,
	"Numpad6":      77,
	"NumpadAdd":    78,
	"Numpad1":      79,
	"Numpad2":      80,
	"Numpad3":      81,
	"Numpad0":      82,
	"NumpadDecimal": 83,
	"F11":          87,
	"F12":          88,
	"NumpadEnter":  96,
	"ControlRight": 97,
	"NumpadDivide": 98,
	"PrintScreen":  99,
	"AltRight":     100,
	"Home":         102,
	"ArrowUp":      103,
	"PageUp":       104,
	"ArrowLeft":    105,
	"ArrowRight":   106,
	"End":          107,
	"ArrowDown":    108,
	"PageDown":     109,
	"Insert":       110,
	"Delete":       111,
	"MetaLeft":     125,
	"MetaRight":    126,
	"ContextMenu":  127,
}

// CodeToEvdev looks up a browser physical key code in the fixed table.
// Unknown codes return 0 (no mapping); callers treat that as "drop the
// event" rather than an error, since an unmapped key should never abort
// an otherwise-healthy input stream.
func CodeToEvdev(code string) int {
	return codeToEvdev[code]
}

// MapKey looks up a physical key code and reports whether it was found,
// the Some/None split the fixed-table lookup is specified against:
// present codes return their evdev keycode and true, absent codes return
// (0, false) rather than a sentinel zero value alone.
func MapKey(code string) (int, bool) {
	v, ok := codeToEvdev[code]
	return v, ok
}

// runeToEvdev maps the runes a KeyboardEvent.key value can carry for a
// code the fixed table doesn't recognize: lowercase letters, digits, space
// and unshifted US-layout punctuation. Uppercase letters, shifted symbols
// and non-ASCII runes have no entry.
var runeToEvdev = map[rune]int{
	'a': 30, 'b': 48, 'c': 46, 'd': 32, 'e': 18, 'f': 33, 'g': 34, 'h': 35,
	'i': 23, 'j': 36, 'k': 37, 'l': 38, 'm': 50, 'n': 49, 'o': 24, 'p': 25,
	'q': 16, 'r': 19, 's': 31, 't': 20, 'u': 22, 'v': 47, 'w': 17, 'x': 45,
	'y': 21, 'z': 44,
	'0': 11, '1': 2, '2': 3, '3': 4, '4': 5, '5': 6, '6': 7, '7': 8, '8': 9, '9': 10,
	' ': 57, '-': 12, '=': 13, '[': 26, ']': 27, ';': 39, '\'': 40, '`': 41,
	'\\': 43, ',': 51, '.': 52, '/': 53,
}

// MapKeyFallback implements the same two-step lookup the original keyboard
// backend used: try the fixed code table first, and only when that misses
// fall back to typing the event's key string one rune at a time. Each rune
// is looked up exactly once, in order, and runes with no mapping are
// skipped rather than aborting the whole fallback.
func MapKeyFallback(code, key string) (evdevCode int, ok bool, fallback []int) {
	if v, found := MapKey(code); found {
		return v, true, nil
	}
	for _, r := range key {
		if v, found := runeToEvdev[r]; found {
			fallback = append(fallback, v)
		}
	}
	return 0, false, fallback
}
