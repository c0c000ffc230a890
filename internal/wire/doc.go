// Package wire implements the line-oriented text protocol spoken between
// client processes and the session bridge.
//
// Every message travels inside a fixed-capacity buffer of UTF-16LE code
// units. A request or response is a sequence of LF-terminated "key=value"
// lines closed by a line holding a single ".":
//
//	action=commit,status,config
//	commit=你好
//	status.ascii_mode=1
//	status.composing=0
//	status.disabled=0
//	config.inline_preedit=1
//	.
//
// The format is fixed by existing clients and must not change. Content that
// does not fit the buffer is an error; no partial message is ever left
// behind in a destination buffer.
package wire
