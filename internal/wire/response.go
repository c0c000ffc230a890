package wire

import (
	"fmt"
	"strings"
)

// Action tags announced on the leading "action=" line.
const (
	ActionCommit  = "commit"
	ActionStatus  = "status"
	ActionContext = "ctx"
	ActionConfig  = "config"
	ActionNoop    = "noop"
)

// Status mirrors the engine status flags sent to clients.
type Status struct {
	ASCIIMode bool
	Composing bool
	Disabled  bool
}

// Range is a half-open span of UTF-16 code units.
type Range struct {
	Start int
	End   int
}

// Composition carries the preedit of a composing session. Cursor is nil
// when the engine reported no valid selection.
type Composition struct {
	Preedit string
	Cursor  *Range
}

// Config carries the presentation settings a client must honor.
type Config struct {
	InlinePreedit bool
}

// Response is the server's reply to one turn of a session. Nil blocks are
// omitted from the wire.
type Response struct {
	Commit      *string
	Status      *Status
	Composition *Composition
	Config      *Config
}

// Actions returns the action tags of r in wire order.
func (r *Response) Actions() []string {
	var actions []string
	if r.Commit != nil {
		actions = append(actions, ActionCommit)
	}
	if r.Status != nil {
		actions = append(actions, ActionStatus)
	}
	if r.Composition != nil {
		actions = append(actions, ActionContext)
	}
	if r.Config != nil {
		actions = append(actions, ActionConfig)
	}
	return actions
}

// String renders the complete message, summary line and terminator included.
func (r *Response) String() string {
	var sb strings.Builder

	actions := r.Actions()
	if len(actions) == 0 {
		sb.WriteString("action=" + ActionNoop + "\n")
	} else {
		sb.WriteString("action=" + strings.Join(actions, ",") + "\n")
	}

	if r.Commit != nil {
		fmt.Fprintf(&sb, "commit=%s\n", *r.Commit)
	}
	if s := r.Status; s != nil {
		fmt.Fprintf(&sb, "status.ascii_mode=%d\n", btoi(s.ASCIIMode))
		fmt.Fprintf(&sb, "status.composing=%d\n", btoi(s.Composing))
		fmt.Fprintf(&sb, "status.disabled=%d\n", btoi(s.Disabled))
	}
	if c := r.Composition; c != nil {
		fmt.Fprintf(&sb, "ctx.preedit=%s\n", c.Preedit)
		if c.Cursor != nil {
			fmt.Fprintf(&sb, "ctx.preedit.cursor=%d,%d\n", c.Cursor.Start, c.Cursor.End)
		}
	}
	if r.Config != nil {
		fmt.Fprintf(&sb, "config.inline_preedit=%d\n", btoi(r.Config.InlinePreedit))
	}

	sb.WriteString(".\n")
	return sb.String()
}

// WriteTo serializes r into dst as UTF-16LE. On ErrBufferOverflow dst is
// left zero-filled.
func (r *Response) WriteTo(dst []byte) error {
	return WriteWide(dst, r.String())
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
