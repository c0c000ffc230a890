package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"weasel/internal/ime"
)

var keyNames = map[string]uint16{
	"space":     ime.KeySpace,
	"BackSpace": ime.KeyBackSpace,
	"Tab":       ime.KeyTab,
	"Return":    ime.KeyReturn,
	"Escape":    ime.KeyEscape,
	"Left":      ime.KeyLeft,
	"Up":        ime.KeyUp,
	"Right":     ime.KeyRight,
	"Down":      ime.KeyDown,
	"Page_Up":   ime.KeyPageUp,
	"Page_Down": ime.KeyPageDown,
	"Shift_L":   ime.KeyShiftL,
	"Shift_R":   ime.KeyShiftR,
	"Control_L": ime.KeyControlL,
	"Control_R": ime.KeyControlR,
	"Delete":    ime.KeyDelete,
}

var modifierNames = map[string]uint16{
	"Shift":   ime.ShiftMask,
	"Control": ime.ControlMask,
	"Alt":     ime.Mod1Mask,
	"Super":   ime.SuperMask,
	"Release": ime.ReleaseMask,
}

// parseKey parses a key in the form [Modifier+]...name, where name is a
// single character or a keysym name such as Return or Page_Up.
func parseKey(s string) (ime.KeyEvent, error) {
	parts := strings.Split(s, "+")
	name := parts[len(parts)-1]
	if name == "" && len(parts) > 1 {
		// "Control++" names the plus key.
		name = "+"
		parts = parts[:len(parts)-1]
	}

	var ev ime.KeyEvent
	for _, m := range parts[:len(parts)-1] {
		bit, ok := modifierNames[m]
		if !ok {
			return ime.KeyEvent{}, fmt.Errorf("unknown modifier %q in %q", m, s)
		}
		ev.Mask |= bit
	}

	if code, ok := keyNames[name]; ok {
		ev.KeyCode = code
		return ev, nil
	}
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || size != len(name) || r < 0x20 || r > 0x7e {
		return ime.KeyEvent{}, fmt.Errorf("unknown key %q", s)
	}
	ev.KeyCode = uint16(r)
	return ev, nil
}

// expandKey returns the events sent for a key argument. A bare modifier key
// is tapped: pressed, then released.
func expandKey(s string) ([]ime.KeyEvent, error) {
	ev, err := parseKey(s)
	if err != nil {
		return nil, err
	}
	switch ev.KeyCode {
	case ime.KeyShiftL, ime.KeyShiftR, ime.KeyControlL, ime.KeyControlR:
		if !ev.Released() {
			release := ev
			release.Mask |= ime.ReleaseMask
			return []ime.KeyEvent{ev, release}, nil
		}
	}
	return []ime.KeyEvent{ev}, nil
}
