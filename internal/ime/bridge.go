package ime

import (
	"log/slog"

	"weasel/internal/wire"
)

// Options configures a Bridge.
type Options struct {
	Engine Engine

	// UI may be nil, in which case surface calls are skipped.
	UI UI

	// Probe detects a running deployer. Nil means no deployer is ever seen.
	Probe PresenceProbe

	Traits   Traits
	Logger   *slog.Logger
	Observer Observer
}

// Bridge connects the engine to the UI and to IPC clients. It is not safe
// for concurrent use; see the package documentation.
type Bridge struct {
	engine   Engine
	ui       UI
	probe    PresenceProbe
	traits   Traits
	log      *slog.Logger
	observer Observer

	// style is the bridge's own copy; resolved copies are published to
	// the UI.
	style      UIStyle
	appOptions AppOptionsByApp

	activeSession SessionID
	clientCaps    uint32
	disabled      bool
	connected     bool
}

// New creates a disabled Bridge. Call Initialize to connect the engine.
func New(opts Options) *Bridge {
	b := &Bridge{
		engine:     opts.Engine,
		ui:         opts.UI,
		probe:      opts.Probe,
		traits:     opts.Traits,
		log:        opts.Logger,
		observer:   opts.Observer,
		appOptions: make(AppOptionsByApp),
		disabled:   true,
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	if b.observer == nil {
		b.observer = nopObserver{}
	}
	if b.ui != nil {
		b.style = b.ui.Style()
	} else {
		b.style = DefaultStyle()
	}
	return b
}

// Disabled reports whether the bridge is in maintenance.
func (b *Bridge) Disabled() bool { return b.disabled }

// ActiveSession returns the most recently used session, or 0.
func (b *Bridge) ActiveSession() SessionID { return b.activeSession }

// ClientCaps returns the capability bits of the active client.
func (b *Bridge) ClientCaps() uint32 { return b.clientCaps }

// Style returns the resolved style record.
func (b *Bridge) Style() UIStyle { return b.style }

// AppOptions returns the loaded per-application options.
func (b *Bridge) AppOptions() AppOptionsByApp { return b.appOptions }

// Initialize connects the engine unless a deployer holds its lock, then
// loads style and app options from the "weasel" config.
func (b *Bridge) Initialize() {
	b.disabled = b.deployerRunning()
	if b.disabled {
		b.log.Info("deployer running, staying in maintenance")
		b.observer.MaintenanceChanged(true)
		return
	}
	if b.connected {
		b.engine.Finalize()
	}

	b.log.Info("initializing engine",
		"shared_data_dir", b.traits.SharedDataDir,
		"user_data_dir", b.traits.UserDataDir,
		"distribution", b.traits.DistributionName,
		"version", b.traits.DistributionVersion)
	b.engine.Initialize(b.traits)
	b.connected = true
	if b.engine.StartMaintenanceOnWorkspaceChange() {
		b.log.Info("workspace changed, engine entering maintenance")
		b.disabled = true
	}

	if cfg, ok := b.engine.OpenConfig("weasel"); ok {
		style := b.style
		ResolveStyle(cfg, &style, b.log)
		b.style = style
		if b.ui != nil {
			b.ui.SetStyle(style)
		}
		b.appOptions = LoadAppOptions(cfg)
		if err := cfg.Close(); err != nil {
			b.log.Debug("close config", "error", err)
		}
	}
	b.observer.MaintenanceChanged(b.disabled)
}

// Finalize disconnects the engine and enters maintenance. Calling it again is
// harmless.
func (b *Bridge) Finalize() {
	b.activeSession = 0
	b.clientCaps = 0
	b.disabled = true
	if b.connected {
		b.log.Info("finalizing engine")
		b.engine.Finalize()
		b.connected = false
	}
	b.observer.MaintenanceChanged(true)
}

// FindSession returns id when the engine still knows it, else 0.
func (b *Bridge) FindSession(id SessionID) SessionID {
	if b.disabled {
		return 0
	}
	found := b.engine.FindSession(id)
	b.log.Debug("find session", "session_id", id, "found", found)
	if !found {
		return 0
	}
	return id
}

// AddSession creates a session for the client described by handshake and
// returns its id, or 0 while in maintenance. When resp is non-nil the
// session's initial response is written into it.
func (b *Bridge) AddSession(handshake, resp []byte) SessionID {
	if b.disabled {
		b.log.Debug("trying to resume service")
		b.EndMaintenance()
		if b.disabled {
			return 0
		}
	}
	id := b.engine.CreateSession()
	b.log.Debug("add session", "session_id", id)
	if id == 0 {
		return 0
	}
	b.engine.SetOption(id, "soft_cursor", !b.style.InlinePreedit)
	b.clientCaps = 0
	app := b.readClientInfo(id, handshake)
	if resp != nil {
		b.respond(id, resp)
	}
	b.updateUI(id)
	b.activeSession = id
	b.observer.SessionAdded(id, app)
	return id
}

// RemoveSession destroys a session. It always returns 0.
func (b *Bridge) RemoveSession(id SessionID) SessionID {
	if b.ui != nil {
		b.ui.Hide()
	}
	if !b.disabled {
		b.log.Debug("remove session", "session_id", id)
		b.engine.DestroySession(id)
		b.observer.SessionRemoved(id)
	}
	b.activeSession = 0
	b.clientCaps = 0
	return 0
}

// ProcessKeyEvent feeds a key to the engine and writes the response into
// resp. It reports whether the engine consumed the key.
func (b *Bridge) ProcessKeyEvent(ev KeyEvent, id SessionID, resp []byte) bool {
	b.log.Debug("process key event",
		"keycode", ev.KeyCode, "mask", ev.Mask, "session_id", id)
	if b.disabled {
		return false
	}
	handled := b.engine.ProcessKey(id, int(ev.KeyCode), ExpandModifiers(int(ev.Mask)))
	r := b.respond(id, resp)
	b.updateUI(id)
	b.activeSession = id
	b.observer.KeyProcessed(id, handled, r.Commit != nil)
	return handled
}

// FocusIn records the client's capabilities and refreshes the surface.
func (b *Bridge) FocusIn(caps uint32, id SessionID) {
	b.log.Debug("focus in", "session_id", id, "client_caps", caps)
	if b.disabled {
		return
	}
	b.clientCaps = caps
	b.updateUI(id)
	b.activeSession = id
}

// FocusOut hides the surface and forgets the active session.
func (b *Bridge) FocusOut(id SessionID) {
	b.log.Debug("focus out", "session_id", id)
	if b.ui != nil {
		b.ui.Hide()
	}
	b.activeSession = 0
	b.clientCaps = 0
}

// UpdateInputPosition moves the surface to the caret. A different session
// owning the caret becomes the active one.
func (b *Bridge) UpdateInputPosition(rc Rect, id SessionID) {
	b.log.Debug("update input position",
		"left", rc.Left, "top", rc.Top,
		"session_id", id, "active_session", b.activeSession)
	if b.ui != nil {
		b.ui.UpdateInputPosition(rc)
	}
	if b.disabled {
		return
	}
	if b.activeSession != id {
		b.clientCaps = 0
		b.updateUI(id)
		b.activeSession = id
	}
}

// StartMaintenance disconnects the engine and shows the disabled state.
func (b *Bridge) StartMaintenance() {
	b.Finalize()
	b.updateUI(0)
}

// EndMaintenance reconnects the engine if the bridge is disabled.
func (b *Bridge) EndMaintenance() {
	if !b.disabled {
		return
	}
	b.Initialize()
	b.updateUI(0)
}

func (b *Bridge) deployerRunning() bool {
	if b.probe == nil {
		return false
	}
	acquired, err := b.probe.TryAcquire()
	if err != nil {
		b.log.Warn("deployer probe failed", "error", err)
		return false
	}
	if !acquired {
		return true
	}
	if err := b.probe.Release(); err != nil {
		b.log.Warn("release deployer probe", "error", err)
	}
	return false
}

// readClientInfo applies the handshake's application identity to id and
// returns the identifier, or "" when none was sent.
func (b *Bridge) readClientInfo(id SessionID, handshake []byte) string {
	info, ok := wire.ReadClientInfo(handshake)
	if !ok {
		return ""
	}
	b.engine.SetProperty(id, "app", info.App)
	options, ok := b.appOptions[info.App]
	if !ok {
		return info.App
	}
	for _, name := range options.Names() {
		b.log.Debug("set app option", "app", info.App, "option", name, "value", options[name])
		b.engine.SetOption(id, name, options[name])
	}
	return info.App
}

// respond builds the wire response for id and writes it into buf. The
// response is returned even when it did not fit.
func (b *Bridge) respond(id SessionID, buf []byte) *wire.Response {
	r := &wire.Response{}

	if commit, ok := b.engine.Commit(id); ok {
		text := commit.Text
		r.Commit = &text
		commit.Release()
	}

	composing := false
	if status, ok := b.engine.Status(id); ok {
		composing = status.Composing
		r.Status = &wire.Status{
			ASCIIMode: status.ASCIIMode,
			Composing: status.Composing,
			Disabled:  status.Disabled,
		}
		status.Release()
	}

	if ctx, ok := b.engine.Context(id); ok {
		if composing {
			c := ctx.Composition
			r.Composition = &wire.Composition{Preedit: c.Preedit}
			if c.SelStart <= c.SelEnd {
				r.Composition.Cursor = &wire.Range{
					Start: UTF16Offset(c.Preedit, c.SelStart),
					End:   UTF16Offset(c.Preedit, c.SelEnd),
				}
			}
		}
		ctx.Release()
	}

	r.Config = &wire.Config{InlinePreedit: b.style.InlinePreedit}

	if buf != nil {
		if err := r.WriteTo(buf); err != nil {
			b.log.Warn("response dropped", "session_id", id, "error", err)
			b.observer.ResponseDropped(id)
		}
	}
	return r
}

// updateUI rebuilds the surface model for id and pushes it. Session 0
// reports only the maintenance state.
func (b *Bridge) updateUI(id SessionID) {
	var status Status
	var ctx Context
	if id == 0 {
		status.Disabled = b.disabled
	}

	if id != 0 && !b.disabled {
		if s, ok := b.engine.Status(id); ok {
			status = Status{
				ASCIIMode: s.ASCIIMode,
				Composing: s.Composing,
				Disabled:  s.Disabled,
			}
			s.Release()
		}
		if snap, ok := b.engine.Context(id); ok {
			ctx = contextFromSnapshot(snap)
			snap.Release()
		}
	}

	if b.ui == nil {
		return
	}
	if status.Composing {
		b.ui.Update(ctx, status)
		b.ui.Show()
	} else {
		b.ui.Hide()
		b.ui.Update(ctx, status)
	}
}

func contextFromSnapshot(snap *ContextSnapshot) Context {
	var ctx Context
	c := snap.Composition
	if c.Length > 0 {
		ctx.Preedit.Str = c.Preedit
		if c.SelStart < c.SelEnd {
			attr := TextAttribute{Type: AttrHighlighted}
			attr.Range.Start = UTF16Offset(c.Preedit, c.SelStart)
			attr.Range.End = UTF16Offset(c.Preedit, c.SelEnd)
			ctx.Preedit.Attributes = append(ctx.Preedit.Attributes, attr)
		}
	}
	m := snap.Menu
	if n := len(m.Candidates); n > 0 {
		info := &ctx.Candidates
		info.Candidates = make([]Text, n)
		info.Comments = make([]Text, n)
		for i, cand := range m.Candidates {
			info.Candidates[i].Str = cand.Text
			info.Comments[i].Str = cand.Comment
		}
		info.Highlighted = m.HighlightedCandidateIndex
		info.CurrentPage = m.PageNo
		info.Labels = m.SelectKeys
	}
	return ctx
}
