package ime

import "testing"

func TestExpandModifiers(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0x0, 0x0},
		{0x0101, 0x01000001},
		{0xFFFF, 0xFF0000FF},
		{int(ShiftMask | ControlMask), int(ShiftMask | ControlMask)},
		{int(ReleaseMask), EngineReleaseMask},
	}

	for _, test := range tests {
		result := ExpandModifiers(test.input)
		if result != test.expected {
			t.Errorf("ExpandModifiers(%#x) = %#x, expected %#x", test.input, result, test.expected)
		}
	}
}

func TestKeyEventPack(t *testing.T) {
	ev := KeyEvent{KeyCode: KeyReturn, Mask: ShiftMask | ReleaseMask}
	packed := ev.Pack()
	if packed != 0x4001ff0d {
		t.Errorf("Pack() = %#x", packed)
	}
	if got := UnpackKeyEvent(packed); got != ev {
		t.Errorf("UnpackKeyEvent = %+v, expected %+v", got, ev)
	}
	if !ev.Released() {
		t.Error("expected release event")
	}
}

func TestUTF16Offset(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		offset   int
		expected int
	}{
		{"ascii", "abc", 2, 2},
		{"bmp", "a€b", 4, 2},
		{"bmp end", "a€b", 5, 3},
		{"surrogate pair", "😀a", 4, 2},
		{"after pair", "😀a", 5, 3},
		{"cjk", "你好", 3, 1},
		{"zero", "你好", 0, 0},
		{"clamped", "ab", 10, 2},
		{"negative", "ab", -1, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := UTF16Offset(test.s, test.offset); got != test.expected {
				t.Errorf("UTF16Offset(%q, %d) = %d, expected %d", test.s, test.offset, got, test.expected)
			}
		})
	}
}
