package wire

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// Buffer capacity shared by clients and the server.
const (
	// BufferSize is the capacity of an IPC buffer in bytes.
	BufferSize = 4 * 1024

	// BufferLength is the capacity of an IPC buffer in UTF-16 code units.
	BufferLength = BufferSize / 2
)

var (
	// ErrBufferOverflow is returned when encoded content exceeds the
	// destination buffer.
	ErrBufferOverflow = errors.New("wire: content exceeds buffer capacity")

	// ErrOddBuffer is returned for buffers that cannot hold whole code units.
	ErrOddBuffer = errors.New("wire: buffer size must be a multiple of two")
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// NewBuffer allocates a zeroed buffer of the given size in bytes.
// A non-positive size selects BufferSize.
func NewBuffer(size int) []byte {
	if size <= 0 {
		size = BufferSize
	}
	return make([]byte, size)
}

// EncodeWide converts UTF-8 text to UTF-16LE bytes.
func EncodeWide(s string) ([]byte, error) {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode utf-16: %w", err)
	}
	return b, nil
}

// DecodeWide converts a UTF-16LE buffer to UTF-8 text. Decoding stops at
// the first NUL code unit, which marks the unused tail of a buffer.
func DecodeWide(buf []byte) (string, error) {
	n := len(buf) &^ 1
	for i := 0; i < n; i += 2 {
		if buf[i] == 0 && buf[i+1] == 0 {
			n = i
			break
		}
	}
	b, err := utf16le.NewDecoder().Bytes(buf[:n])
	if err != nil {
		return "", fmt.Errorf("decode utf-16: %w", err)
	}
	return string(b), nil
}

// WriteWide encodes s into dst. The buffer is cleared first; when the encoded
// text does not fit, dst is left cleared and ErrBufferOverflow is returned.
func WriteWide(dst []byte, s string) error {
	if len(dst)%2 != 0 {
		return ErrOddBuffer
	}
	enc, err := EncodeWide(s)
	if err != nil {
		return err
	}
	clear(dst)
	if len(enc) > len(dst) {
		return fmt.Errorf("%w: %d bytes into %d", ErrBufferOverflow, len(enc), len(dst))
	}
	copy(dst, enc)
	return nil
}
