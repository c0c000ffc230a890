package ipc

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"weasel/internal/ime"
	"weasel/internal/wire"
)

// D-Bus names of the server object.
const (
	DBusName      = "org.weasel.Server"
	DBusPath      = dbus.ObjectPath("/org/weasel/Server")
	DBusInterface = "org.weasel.Server"
)

const dbusIntrospection = `
<node>
	<interface name="` + DBusInterface + `">
		<method name="AddSession">
			<arg direction="in" type="s" name="app"/>
			<arg direction="out" type="u" name="session_id"/>
			<arg direction="out" type="s" name="response"/>
		</method>
		<method name="RemoveSession">
			<arg direction="in" type="u" name="session_id"/>
		</method>
		<method name="ProcessKeyEvent">
			<arg direction="in" type="u" name="session_id"/>
			<arg direction="in" type="q" name="keycode"/>
			<arg direction="in" type="q" name="mask"/>
			<arg direction="out" type="b" name="handled"/>
			<arg direction="out" type="s" name="response"/>
		</method>
		<method name="FocusIn">
			<arg direction="in" type="u" name="session_id"/>
			<arg direction="in" type="u" name="caps"/>
		</method>
		<method name="FocusOut">
			<arg direction="in" type="u" name="session_id"/>
		</method>
		<method name="UpdateInputPosition">
			<arg direction="in" type="u" name="session_id"/>
			<arg direction="in" type="i" name="left"/>
			<arg direction="in" type="i" name="top"/>
			<arg direction="in" type="i" name="right"/>
			<arg direction="in" type="i" name="bottom"/>
		</method>
		<method name="StartMaintenance"/>
		<method name="EndMaintenance"/>
	</interface>` + introspect.IntrospectDataString + `</node>`

// DBusFront exports the bridge operations on the session bus. Calls are
// routed through the server's dispatcher, so they interleave with socket
// clients in arrival order. Responses are returned as text.
type DBusFront struct {
	srv  *Server
	conn *dbus.Conn
}

// NewDBusFront creates a front-end for srv.
func NewDBusFront(srv *Server) *DBusFront {
	return &DBusFront{srv: srv}
}

// Export claims DBusName on conn and exports the object.
func (f *DBusFront) Export(conn *dbus.Conn) error {
	if err := conn.Export(f, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("export %s: %w", DBusPath, err)
	}
	if err := conn.Export(introspect.Introspectable(dbusIntrospection), DBusPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(DBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusName)
	}
	f.conn = conn
	return nil
}

// Close releases the bus name.
func (f *DBusFront) Close() error {
	if f.conn == nil {
		return nil
	}
	f.conn.Export(nil, DBusPath, DBusInterface)
	_, err := f.conn.ReleaseName(DBusName)
	f.conn = nil
	return err
}

func (f *DBusFront) run(fn func(*ime.Bridge)) *dbus.Error {
	if err := f.srv.Do(fn); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// responseText decodes a response buffer; overflowed responses are empty.
func responseText(buf []byte) string {
	s, err := wire.DecodeWide(buf)
	if err != nil {
		return ""
	}
	return s
}

func (f *DBusFront) AddSession(app string) (uint32, string, *dbus.Error) {
	var handshake []byte
	if app != "" {
		handshake = wire.NewBuffer(f.srv.cfg.BufferSize)
		if err := wire.WriteClientInfo(handshake, app); err != nil {
			return 0, "", dbus.MakeFailedError(err)
		}
	}
	resp := wire.NewBuffer(f.srv.cfg.BufferSize)
	var id ime.SessionID
	if err := f.run(func(b *ime.Bridge) { id = b.AddSession(handshake, resp) }); err != nil {
		return 0, "", err
	}
	if id == 0 {
		return 0, "", nil
	}
	return uint32(id), responseText(resp), nil
}

func (f *DBusFront) RemoveSession(id uint32) *dbus.Error {
	return f.run(func(b *ime.Bridge) { b.RemoveSession(ime.SessionID(id)) })
}

func (f *DBusFront) ProcessKeyEvent(id uint32, keycode, mask uint16) (bool, string, *dbus.Error) {
	resp := wire.NewBuffer(f.srv.cfg.BufferSize)
	ev := ime.KeyEvent{KeyCode: keycode, Mask: mask}
	var handled bool
	if err := f.run(func(b *ime.Bridge) { handled = b.ProcessKeyEvent(ev, ime.SessionID(id), resp) }); err != nil {
		return false, "", err
	}
	return handled, responseText(resp), nil
}

func (f *DBusFront) FocusIn(id, caps uint32) *dbus.Error {
	return f.run(func(b *ime.Bridge) { b.FocusIn(caps, ime.SessionID(id)) })
}

func (f *DBusFront) FocusOut(id uint32) *dbus.Error {
	return f.run(func(b *ime.Bridge) { b.FocusOut(ime.SessionID(id)) })
}

func (f *DBusFront) UpdateInputPosition(id uint32, left, top, right, bottom int32) *dbus.Error {
	rc := ime.Rect{Left: left, Top: top, Right: right, Bottom: bottom}
	return f.run(func(b *ime.Bridge) { b.UpdateInputPosition(rc, ime.SessionID(id)) })
}

func (f *DBusFront) StartMaintenance() *dbus.Error {
	return f.run(func(b *ime.Bridge) { b.StartMaintenance() })
}

func (f *DBusFront) EndMaintenance() *dbus.Error {
	return f.run(func(b *ime.Bridge) { b.EndMaintenance() })
}
