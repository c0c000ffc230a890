// Package ipc carries the session bridge's operations between input method
// clients and the server.
//
// Every message is a 24-byte big-endian header followed by a payload. A
// request's command selects the bridge operation; the reply echoes the
// request id and carries the result in Param and the wide response buffer in
// the payload. All bridge calls run on one dispatcher goroutine in arrival
// order, whichever connection or front-end they come from.
package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"weasel/internal/ime"
)

// Protocol constants.
const (
	ProtocolVersion = 1
	ProtocolMagic   = 0x57454950 // "WEIP"

	// HeaderSize is the size of the header in bytes.
	HeaderSize = 24

	// MaxPayload bounds the payload of a single message.
	MaxPayload = 64 * 1024

	// RectSize is the payload size of an UpdateInputPos request.
	RectSize = 16
)

// Command identifies a request or reply.
type Command uint16

const (
	CmdEcho Command = iota + 1
	CmdStartSession
	CmdEndSession
	CmdProcessKeyEvent
	CmdShutdownServer
	CmdFocusIn
	CmdFocusOut
	CmdUpdateInputPos
	CmdStartMaintenance
	CmdEndMaintenance

	// CmdReply answers a request.
	CmdReply Command = 0x8000
	// CmdError answers a request that failed; the payload is the message.
	CmdError Command = 0x8001
)

var commandNames = map[Command]string{
	CmdEcho:             "echo",
	CmdStartSession:     "start_session",
	CmdEndSession:       "end_session",
	CmdProcessKeyEvent:  "process_key_event",
	CmdShutdownServer:   "shutdown_server",
	CmdFocusIn:          "focus_in",
	CmdFocusOut:         "focus_out",
	CmdUpdateInputPos:   "update_input_pos",
	CmdStartMaintenance: "start_maintenance",
	CmdEndMaintenance:   "end_maintenance",
	CmdReply:            "reply",
	CmdError:            "error",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%#04x)", uint16(c))
}

// Protocol errors.
var (
	ErrInvalidMagic       = errors.New("ipc: invalid magic number")
	ErrUnsupportedVersion = errors.New("ipc: unsupported protocol version")
	ErrPayloadTooLarge    = errors.New("ipc: payload too large")
	ErrBadRect            = errors.New("ipc: input position payload must be 16 bytes")
)

// Header is the fixed-size message header.
type Header struct {
	Magic     uint32
	Version   uint8
	Flags     uint8
	Command   Command
	RequestID uint32
	Param     uint32
	SessionID uint32
	Length    uint32
}

// Message is a header and its payload.
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage builds a message for the current protocol version.
func NewMessage(cmd Command, requestID, sessionID, param uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Command:   cmd,
			RequestID: requestID,
			Param:     param,
			SessionID: sessionID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// NewErrorMessage builds an error reply for a request.
func NewErrorMessage(requestID uint32, err error) *Message {
	return NewMessage(CmdError, requestID, 0, 0, []byte(err.Error()))
}

// Write writes the header to w.
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Command))
	binary.BigEndian.PutUint32(buf[8:12], h.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], h.Param)
	binary.BigEndian.PutUint32(buf[16:20], h.SessionID)
	binary.BigEndian.PutUint32(buf[20:24], h.Length)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and checks a header.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Flags:     buf[5],
		Command:   Command(binary.BigEndian.Uint16(buf[6:8])),
		RequestID: binary.BigEndian.Uint32(buf[8:12]),
		Param:     binary.BigEndian.Uint32(buf[12:16]),
		SessionID: binary.BigEndian.Uint32(buf[16:20]),
		Length:    binary.BigEndian.Uint32(buf[20:24]),
	}
	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidMagic, h.Magic)
	}
	if h.Version > ProtocolVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// Write writes the message to w in one call.
func (m *Message) Write(w io.Writer) error {
	m.Header.Length = uint32(len(m.Payload))
	var buf bytes.Buffer
	if err := m.Header.Write(&buf); err != nil {
		return err
	}
	buf.Write(m.Payload)
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadMessage reads a complete message from r.
func ReadMessage(r io.Reader) (*Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	m := &Message{Header: *h}
	if h.Length > 0 {
		if h.Length > MaxPayload {
			return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, h.Length)
		}
		m.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// EncodeRect encodes an input position as four big-endian int32s.
func EncodeRect(rc ime.Rect) []byte {
	buf := make([]byte, RectSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(rc.Left))
	binary.BigEndian.PutUint32(buf[4:8], uint32(rc.Top))
	binary.BigEndian.PutUint32(buf[8:12], uint32(rc.Right))
	binary.BigEndian.PutUint32(buf[12:16], uint32(rc.Bottom))
	return buf
}

// DecodeRect decodes a payload produced by EncodeRect.
func DecodeRect(buf []byte) (ime.Rect, error) {
	if len(buf) != RectSize {
		return ime.Rect{}, ErrBadRect
	}
	return ime.Rect{
		Left:   int32(binary.BigEndian.Uint32(buf[0:4])),
		Top:    int32(binary.BigEndian.Uint32(buf[4:8])),
		Right:  int32(binary.BigEndian.Uint32(buf[8:12])),
		Bottom: int32(binary.BigEndian.Uint32(buf[12:16])),
	}, nil
}
