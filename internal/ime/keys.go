package ime

// Modifier bits of the 16-bit mask carried by client key events. The upper
// byte holds flags that the engine expects in the high word of its mask.
const (
	ShiftMask   uint16 = 1 << 0
	LockMask    uint16 = 1 << 1
	ControlMask uint16 = 1 << 2
	Mod1Mask    uint16 = 1 << 3 // Alt
	Mod2Mask    uint16 = 1 << 4
	Mod3Mask    uint16 = 1 << 5
	Mod4Mask    uint16 = 1 << 6
	Mod5Mask    uint16 = 1 << 7
	HandledMask uint16 = 1 << 8
	ForwardMask uint16 = 1 << 9
	SuperMask   uint16 = 1 << 10
	HyperMask   uint16 = 1 << 11
	MetaMask    uint16 = 1 << 12
	ReleaseMask uint16 = 1 << 14
)

// EngineReleaseMask is ReleaseMask after ExpandModifiers.
const EngineReleaseMask = 1 << 30

// Common keysyms.
const (
	KeySpace     = 0x0020
	KeyBackSpace = 0xff08
	KeyTab       = 0xff09
	KeyReturn    = 0xff0d
	KeyEscape    = 0xff1b
	KeyLeft      = 0xff51
	KeyUp        = 0xff52
	KeyRight     = 0xff53
	KeyDown      = 0xff54
	KeyPageUp    = 0xff55
	KeyPageDown  = 0xff56
	KeyShiftL    = 0xffe1
	KeyShiftR    = 0xffe2
	KeyControlL  = 0xffe3
	KeyControlR  = 0xffe4
	KeyDelete    = 0xffff
)

// KeyEvent is a key as sent by clients: a keysym and a 16-bit modifier mask.
type KeyEvent struct {
	KeyCode uint16
	Mask    uint16
}

// Pack encodes e into the 32-bit word used on the wire, keycode in the low
// half.
func (e KeyEvent) Pack() uint32 {
	return uint32(e.KeyCode) | uint32(e.Mask)<<16
}

// UnpackKeyEvent decodes a word produced by Pack.
func UnpackKeyEvent(v uint32) KeyEvent {
	return KeyEvent{KeyCode: uint16(v), Mask: uint16(v >> 16)}
}

// Released reports whether e is a key release.
func (e KeyEvent) Released() bool {
	return e.Mask&ReleaseMask != 0
}

// ExpandModifiers moves bits 8-15 of a client mask into bits 24-31, keeping
// the low byte in place.
func ExpandModifiers(m int) int {
	return (m & 0xff) | ((m & 0xff00) << 16)
}
