package ime

import (
	"strings"
)

// mapConfig is a ConfigReader over a flat path map.
type mapConfig struct {
	values map[string]any
	keys   map[string][]string
	closed bool
}

func newMapConfig() *mapConfig {
	return &mapConfig{values: map[string]any{}, keys: map[string][]string{}}
}

func (c *mapConfig) set(path string, v any) *mapConfig {
	c.values[path] = v
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		parent := strings.Join(parts[:i], "/")
		key := parts[i]
		found := false
		for _, k := range c.keys[parent] {
			if k == key {
				found = true
				break
			}
		}
		if !found {
			c.keys[parent] = append(c.keys[parent], key)
		}
	}
	if len(parts) > 0 {
		root := parts[0]
		found := false
		for _, k := range c.keys[""] {
			if k == root {
				found = true
			}
		}
		if !found {
			c.keys[""] = append(c.keys[""], root)
		}
	}
	return c
}

func (c *mapConfig) GetString(path string) (string, bool) {
	v, ok := c.values[path].(string)
	return v, ok
}

func (c *mapConfig) GetInt(path string) (int, bool) {
	v, ok := c.values[path].(int)
	return v, ok
}

func (c *mapConfig) GetBool(path string) (bool, bool) {
	v, ok := c.values[path].(bool)
	return v, ok
}

func (c *mapConfig) MapKeys(path string) []string {
	return c.keys[path]
}

func (c *mapConfig) Close() error {
	c.closed = true
	return nil
}

type fakeSession struct {
	props   map[string]string
	options map[string]bool

	ascii      bool
	composing  bool
	disabled   bool
	preedit    string
	selStart   int
	selEnd     int
	commit     *string
	candidates []Candidate
	selectKeys string
}

type keyCall struct {
	id      SessionID
	keycode int
	mask    int
}

type fakeEngine struct {
	initialized     int
	finalized       int
	workspaceChange bool
	traits          Traits
	config          *mapConfig

	nextID   SessionID
	sessions map[SessionID]*fakeSession
	keys     []keyCall
	handle   bool

	acquired int
	released int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{sessions: map[SessionID]*fakeSession{}, handle: true}
}

func (e *fakeEngine) Initialize(t Traits) {
	e.initialized++
	e.traits = t
}

func (e *fakeEngine) Finalize() {
	e.finalized++
	e.sessions = map[SessionID]*fakeSession{}
}

func (e *fakeEngine) StartMaintenanceOnWorkspaceChange() bool { return e.workspaceChange }

func (e *fakeEngine) CreateSession() SessionID {
	e.nextID++
	e.sessions[e.nextID] = &fakeSession{props: map[string]string{}, options: map[string]bool{}}
	return e.nextID
}

func (e *fakeEngine) DestroySession(id SessionID) bool {
	_, ok := e.sessions[id]
	delete(e.sessions, id)
	return ok
}

func (e *fakeEngine) FindSession(id SessionID) bool {
	_, ok := e.sessions[id]
	return ok
}

func (e *fakeEngine) ProcessKey(id SessionID, keycode, mask int) bool {
	e.keys = append(e.keys, keyCall{id, keycode, mask})
	return e.handle
}

func (e *fakeEngine) SetOption(id SessionID, name string, value bool) {
	if s, ok := e.sessions[id]; ok {
		s.options[name] = value
	}
}

func (e *fakeEngine) GetOption(id SessionID, name string) bool {
	if s, ok := e.sessions[id]; ok {
		return s.options[name]
	}
	return false
}

func (e *fakeEngine) SetProperty(id SessionID, name, value string) {
	if s, ok := e.sessions[id]; ok {
		s.props[name] = value
	}
}

func (e *fakeEngine) track(s interface{ OnRelease(func()) }) {
	e.acquired++
	s.OnRelease(func() { e.released++ })
}

func (e *fakeEngine) Status(id SessionID) (*StatusSnapshot, bool) {
	s, ok := e.sessions[id]
	if !ok {
		return nil, false
	}
	snap := &StatusSnapshot{ASCIIMode: s.ascii, Composing: s.composing, Disabled: s.disabled}
	e.track(snap)
	return snap, true
}

func (e *fakeEngine) Context(id SessionID) (*ContextSnapshot, bool) {
	s, ok := e.sessions[id]
	if !ok {
		return nil, false
	}
	snap := &ContextSnapshot{}
	if s.composing {
		snap.Composition = Composition{
			Length:   len(s.preedit),
			SelStart: s.selStart,
			SelEnd:   s.selEnd,
			Preedit:  s.preedit,
		}
		snap.Menu = Menu{PageSize: 5, Candidates: s.candidates, SelectKeys: s.selectKeys}
	}
	e.track(snap)
	return snap, true
}

func (e *fakeEngine) Commit(id SessionID) (*CommitSnapshot, bool) {
	s, ok := e.sessions[id]
	if !ok || s.commit == nil {
		return nil, false
	}
	snap := &CommitSnapshot{Text: *s.commit}
	s.commit = nil
	e.track(snap)
	return snap, true
}

func (e *fakeEngine) OpenConfig(name string) (ConfigReader, bool) {
	if name != "weasel" || e.config == nil {
		return nil, false
	}
	return e.config, true
}

type fakeProbe struct {
	held     bool
	err      error
	acquired int
	released int
}

func (p *fakeProbe) TryAcquire() (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	if p.held {
		return false, nil
	}
	p.acquired++
	return true, nil
}

func (p *fakeProbe) Release() error {
	p.released++
	return nil
}

// recordingUI records surface calls in order.
type recordingUI struct {
	style   UIStyle
	calls   []string
	ctx     Context
	status  Status
	rect    Rect
	updates int
	styles  int
}

func newRecordingUI() *recordingUI {
	return &recordingUI{style: DefaultStyle()}
}

func (u *recordingUI) Show() { u.calls = append(u.calls, "show") }
func (u *recordingUI) Hide() { u.calls = append(u.calls, "hide") }

func (u *recordingUI) Update(ctx Context, status Status) {
	u.calls = append(u.calls, "update")
	u.ctx = ctx
	u.status = status
	u.updates++
}

func (u *recordingUI) UpdateInputPosition(rc Rect) {
	u.calls = append(u.calls, "position")
	u.rect = rc
}

func (u *recordingUI) Style() UIStyle { return u.style }

func (u *recordingUI) SetStyle(style UIStyle) {
	u.styles++
	u.style = style
}

func (u *recordingUI) reset() { u.calls = nil }
