package wire

import (
	"errors"
	"testing"
)

func TestEncodeDecodeWide(t *testing.T) {
	for _, s := range []string{"", "abc", "中文", "😀x"} {
		enc, err := EncodeWide(s)
		if err != nil {
			t.Fatalf("EncodeWide(%q): %v", s, err)
		}
		got, err := DecodeWide(enc)
		if err != nil {
			t.Fatalf("DecodeWide: %v", err)
		}
		if got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}

func TestEncodeWideSurrogates(t *testing.T) {
	enc, err := EncodeWide("😀")
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != 4 {
		t.Errorf("expected surrogate pair (4 bytes), got %d", len(enc))
	}
}

func TestDecodeWideStopsAtNul(t *testing.T) {
	buf := []byte{'a', 0, 0, 0, 'b', 0}
	got, err := DecodeWide(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != "a" {
		t.Errorf("got %q", got)
	}
}

func TestWriteWideOddBuffer(t *testing.T) {
	if err := WriteWide(make([]byte, 3), "a"); !errors.Is(err, ErrOddBuffer) {
		t.Errorf("expected ErrOddBuffer, got %v", err)
	}
}

func TestNewBuffer(t *testing.T) {
	if n := len(NewBuffer(0)); n != BufferSize {
		t.Errorf("default size %d", n)
	}
	if n := len(NewBuffer(16)); n != 16 {
		t.Errorf("explicit size %d", n)
	}
}
