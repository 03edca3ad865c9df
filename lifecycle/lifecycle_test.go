package lifecycle

import "testing"

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	fg, bg := 0, 0
	h.OnForeground(func() { fg++ })
	h.OnBackground(func() { bg++ })

	h.Foreground()
	h.Foreground()
	h.Background()

	if fg != 2 {
		t.Errorf("foreground calls = %d, want 2", fg)
	}
	if bg != 1 {
		t.Errorf("background calls = %d, want 1", bg)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub()
	calls := 0
	unsubscribe := h.OnForeground(func() { calls++ })

	h.Foreground()
	unsubscribe()
	h.Foreground()

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestHubMultipleSubscribers(t *testing.T) {
	h := NewHub()
	a, b := 0, 0
	h.OnForeground(func() { a++ })
	h.OnForeground(func() { b++ })

	h.Foreground()

	if a != 1 || b != 1 {
		t.Errorf("calls = %d/%d, want 1/1", a, b)
	}
}
