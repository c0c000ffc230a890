package wire

import "strings"

// ClientKey prefixes the handshake line naming the client application.
const ClientKey = "session.client="

// ClientInfo is what a session handshake tells the server about its client.
type ClientInfo struct {
	// App is the application identifier with ASCII letters lower-cased,
	// e.g. "notepad.exe".
	App string
}

// ReadClientInfo scans a handshake buffer for the client application line.
//
// Lines are LF or CRLF terminated. Scanning stops at a "." line or when the
// buffer runs out; an unterminated trailing fragment is ignored. When the
// client key appears more than once the last occurrence wins. The boolean
// result is false when no non-empty identifier was found.
func ReadClientInfo(buf []byte) (ClientInfo, bool) {
	text, err := DecodeWide(buf)
	if err != nil {
		return ClientInfo{}, false
	}

	var app string
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(text[:i], "\r")
		text = text[i+1:]
		if line == "." {
			break
		}
		if strings.HasPrefix(line, ClientKey) {
			app = lowerASCII(line[len(ClientKey):])
		}
	}
	if app == "" {
		return ClientInfo{}, false
	}
	return ClientInfo{App: app}, true
}

// lowerASCII lower-cases A-Z only. app_options keys are matched against
// the result, so non-ASCII letters are kept as the client sent them.
func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, s)
}

// WriteClientInfo fills dst with a handshake naming app.
func WriteClientInfo(dst []byte, app string) error {
	var sb strings.Builder
	if app != "" {
		sb.WriteString(ClientKey)
		sb.WriteString(app)
		sb.WriteByte('\n')
	}
	sb.WriteString(".\n")
	return WriteWide(dst, sb.String())
}
