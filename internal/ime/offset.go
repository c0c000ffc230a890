package ime

import (
	"unicode/utf16"
	"unicode/utf8"
)

// UTF16Offset returns the number of UTF-16 code units that the first
// byteOffset bytes of s encode to. byteOffset is clamped to s; it is expected
// to fall on a code point boundary.
func UTF16Offset(s string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(s) {
		byteOffset = len(s)
	}
	n := 0
	for i := 0; i < byteOffset; {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}
