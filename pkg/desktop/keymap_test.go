package desktop

import "testing"

func TestMapKey_KnownCodeReturnsSome(t *testing.T) {
	v, ok := MapKey("KeyA")
	if !ok {
		t.Fatal("expected KeyA to be present in the fixed table")
	}
	if v != 30 {
		t.Fatalf("expected evdev code 30 for KeyA, got %d", v)
	}
}

func TestMapKey_UnknownCodeReturnsNone(t *testing.T) {
	_, ok := MapKey("NotARealCode")
	if ok {
		t.Fatal("expected an arbitrary unmapped code to return ok=false")
	}
}

func TestMapKeyFallback_KnownCodeSkipsFallback(t *testing.T) {
	code, ok, fallback := MapKeyFallback("KeyA", "a")
	if !ok || code != 30 {
		t.Fatalf("expected (30, true), got (%d, %v)", code, ok)
	}
	if fallback != nil {
		t.Fatalf("expected no fallback runes when the code itself matched, got %v", fallback)
	}
}

func TestMapKeyFallback_UnknownCodeIteratesKeyOnce(t *testing.T) {
	_, ok, fallback := MapKeyFallback("SomeUnknownCode", "abc")
	if ok {
		t.Fatal("expected ok=false for an unmapped code")
	}
	want := []int{30, 48, 46} // a, b, c
	if len(fallback) != len(want) {
		t.Fatalf("expected %d fallback entries, got %d (%v)", len(want), len(fallback), fallback)
	}
	for i := range want {
		if fallback[i] != want[i] {
			t.Fatalf("fallback[%d] = %d, want %d", i, fallback[i], want[i])
		}
	}
}

func TestMapKeyFallback_UnmappableRunesAreSkippedNotErrored(t *testing.T) {
	_, ok, fallback := MapKeyFallback("SomeUnknownCode", "aéb")
	if ok {
		t.Fatal("expected ok=false")
	}
	want := []int{30, 48} // é has no mapping and is skipped
	if len(fallback) != len(want) {
		t.Fatalf("expected %d fallback entries, got %d (%v)", len(want), len(fallback), fallback)
	}
}

func TestCodeToEvdev_UnknownReturnsZero(t *testing.T) {
	if got := CodeToEvdev("NotARealCode"); got != 0 {
		t.Fatalf("expected 0 for unmapped code, got %d", got)
	}
}
