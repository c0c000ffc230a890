package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedResponse is returned by ParseResponse for text that does not
// follow the response format.
var ErrMalformedResponse = errors.New("wire: malformed response")

// Reply is the client-side view of a Response.
type Reply struct {
	Actions []string

	Commit    string
	Committed bool

	Status    Status
	HasStatus bool

	Preedit    string
	Cursor     *Range
	Composing  bool
	HasConfig  bool
	Config     Config
	Terminated bool
}

// Has reports whether the reply announced the given action tag.
func (r *Reply) Has(action string) bool {
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// ParseResponse decodes a response buffer. Unknown keys are ignored so that
// newer servers stay readable; parsing stops at the "." line.
func ParseResponse(buf []byte) (*Reply, error) {
	text, err := DecodeWide(buf)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty buffer", ErrMalformedResponse)
	}

	reply := &Reply{}
	first := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "." {
			reply.Terminated = true
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if first {
			if key != "action" {
				return nil, fmt.Errorf("%w: first line %q", ErrMalformedResponse, line)
			}
			first = false
			if value != ActionNoop {
				reply.Actions = strings.Split(value, ",")
			}
			continue
		}
		if err := reply.set(key, value); err != nil {
			return nil, err
		}
	}
	if first {
		return nil, fmt.Errorf("%w: missing action line", ErrMalformedResponse)
	}
	return reply, nil
}

func (r *Reply) set(key, value string) error {
	switch key {
	case "commit":
		r.Commit = value
		r.Committed = true
	case "status.ascii_mode":
		r.HasStatus = true
		r.Status.ASCIIMode = value == "1"
	case "status.composing":
		r.HasStatus = true
		r.Status.Composing = value == "1"
	case "status.disabled":
		r.HasStatus = true
		r.Status.Disabled = value == "1"
	case "ctx.preedit":
		r.Composing = true
		r.Preedit = value
	case "ctx.preedit.cursor":
		start, end, ok := strings.Cut(value, ",")
		if !ok {
			return fmt.Errorf("%w: cursor %q", ErrMalformedResponse, value)
		}
		s, err := strconv.Atoi(start)
		if err != nil {
			return fmt.Errorf("%w: cursor start: %v", ErrMalformedResponse, err)
		}
		e, err := strconv.Atoi(end)
		if err != nil {
			return fmt.Errorf("%w: cursor end: %v", ErrMalformedResponse, err)
		}
		r.Cursor = &Range{Start: s, End: e}
	case "config.inline_preedit":
		r.HasConfig = true
		r.Config.InlinePreedit = value == "1"
	}
	return nil
}
