// Package echo is a small in-process engine for running the server without
// a linguistic backend. Lowercase letters compose, candidates come from the
// "echo/candidates" map of the weasel config, and the raw input is always
// offered last.
package echo

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/width"

	"weasel/internal/config"
	"weasel/internal/ime"
)

const (
	// PageSize is the number of candidates per menu page.
	PageSize = 5

	// SelectKeys label the candidates of a page.
	SelectKeys = "12345"

	// StampFileName records the last deployment in the user data directory.
	StampFileName = "echo.deployed"

	schemaID   = "echo"
	schemaName = "Echo"
)

// Option names understood by the engine.
const (
	OptionASCIIMode  = "ascii_mode"
	OptionFullShape  = "full_shape"
	OptionSimplified = "simplification"
)

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger

	// OnDeployed is called from a separate goroutine once a deployment
	// started by StartMaintenanceOnWorkspaceChange has finished.
	OnDeployed func()
}

// Engine implements ime.Engine.
type Engine struct {
	mu         sync.Mutex
	log        *slog.Logger
	onDeployed func()

	traits      ime.Traits
	initialized bool
	cfg         *config.Store

	nextID   ime.SessionID
	sessions map[ime.SessionID]*session

	outstanding atomic.Int64
}

type session struct {
	input       string
	highlighted int
	commit      *string
	shiftDown   bool
	options     map[string]bool
	properties  map[string]string
}

// New creates an engine. It must be initialized before use.
func New(opts Options) *Engine {
	e := &Engine{
		log:        opts.Logger,
		onDeployed: opts.OnDeployed,
		sessions:   make(map[ime.SessionID]*session),
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Initialize loads the weasel config from the user and shared data
// directories. A missing config is not an error.
func (e *Engine) Initialize(traits ime.Traits) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.traits = traits
	e.initialized = true
	e.cfg = nil

	store, err := config.OpenStore("weasel", traits.UserDataDir, traits.SharedDataDir)
	switch {
	case errors.Is(err, config.ErrNotFound):
		e.log.Debug("no weasel config, running without candidates")
	case err != nil:
		e.log.Warn("load weasel config", "error", err)
	default:
		e.cfg = store
	}
	e.log.Info("echo engine initialized",
		"distribution", traits.DistributionName,
		"version", traits.DistributionVersion)
}

// Finalize drops all sessions.
func (e *Engine) Finalize() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.initialized = false
	e.cfg = nil
	clear(e.sessions)
	e.log.Info("echo engine finalized")
}

// StartMaintenanceOnWorkspaceChange deploys when a YAML file in the user
// data directory is newer than the last deployment stamp.
func (e *Engine) StartMaintenanceOnWorkspaceChange() bool {
	e.mu.Lock()
	dir := e.traits.UserDataDir
	e.mu.Unlock()
	if dir == "" {
		return false
	}

	changed, err := workspaceChanged(dir)
	if err != nil {
		e.log.Warn("check workspace", "dir", dir, "error", err)
		return false
	}
	if !changed {
		return false
	}
	if err := writeStamp(dir); err != nil {
		e.log.Warn("record deployment", "dir", dir, "error", err)
		return false
	}

	e.log.Info("workspace changed, deploying", "dir", dir)
	if e.onDeployed != nil {
		go e.onDeployed()
	}
	return true
}

func workspaceChanged(dir string) (bool, error) {
	var stamp time.Time
	if info, err := os.Stat(filepath.Join(dir, StampFileName)); err == nil {
		stamp = info.ModTime()
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(stamp) {
			return true, nil
		}
	}
	return false, nil
}

func writeStamp(dir string) error {
	path := filepath.Join(dir, StampFileName)
	now := time.Now()
	if err := os.WriteFile(path, []byte(now.UTC().Format(time.RFC3339Nano)+"\n"), 0o644); err != nil {
		return err
	}
	return os.Chtimes(path, now, now)
}

// CreateSession starts a new session. It returns 0 before Initialize.
func (e *Engine) CreateSession() ime.SessionID {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return 0
	}
	e.nextID++
	if e.nextID == 0 {
		e.nextID++
	}
	e.sessions[e.nextID] = &session{
		options:    make(map[string]bool),
		properties: make(map[string]string),
	}
	return e.nextID
}

func (e *Engine) DestroySession(id ime.SessionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[id]; !ok {
		return false
	}
	delete(e.sessions, id)
	return true
}

func (e *Engine) FindSession(id ime.SessionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.sessions[id]
	return ok
}

func (e *Engine) SetOption(id ime.SessionID, name string, value bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[id]; ok {
		s.options[name] = value
	}
}

func (e *Engine) GetOption(id ime.SessionID, name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[id]; ok {
		return s.options[name]
	}
	return false
}

func (e *Engine) SetProperty(id ime.SessionID, name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[id]; ok {
		s.properties[name] = value
	}
}

// Property returns a session property set by SetProperty.
func (e *Engine) Property(id ime.SessionID, name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[id]; ok {
		return s.properties[name]
	}
	return ""
}

// ProcessKey handles a key for the session. Keys with Control or Alt held
// and every key in ASCII mode pass through.
func (e *Engine) ProcessKey(id ime.SessionID, keycode, mask int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	if !ok {
		return false
	}

	shift := keycode == ime.KeyShiftL || keycode == ime.KeyShiftR
	if mask&ime.EngineReleaseMask != 0 {
		if shift && s.shiftDown {
			s.options[OptionASCIIMode] = !s.options[OptionASCIIMode]
		}
		s.shiftDown = false
		return false
	}
	s.shiftDown = shift
	if shift {
		return false
	}

	if mask&int(ime.ControlMask|ime.Mod1Mask) != 0 || s.options[OptionASCIIMode] {
		return false
	}

	if keycode >= 'a' && keycode <= 'z' {
		s.input += string(rune(keycode))
		s.highlighted = 0
		return true
	}
	if s.input == "" {
		return e.punct(s, keycode)
	}

	cands := e.candidates(s.input)
	switch {
	case keycode == ime.KeySpace:
		s.commitText(cands[s.highlighted].Text)
	case keycode >= '1' && keycode < '1'+PageSize:
		i := s.highlighted/PageSize*PageSize + keycode - '1'
		if i < len(cands) {
			s.commitText(cands[i].Text)
		}
	case keycode == ime.KeyReturn:
		s.commitText(s.input)
	case keycode == ime.KeyEscape:
		s.reset()
	case keycode == ime.KeyBackSpace:
		s.input = s.input[:len(s.input)-1]
		s.highlighted = 0
	case keycode == ime.KeyUp:
		if s.highlighted > 0 {
			s.highlighted--
		}
	case keycode == ime.KeyDown:
		if s.highlighted < len(cands)-1 {
			s.highlighted++
		}
	case keycode == ime.KeyPageUp:
		s.highlighted = max(0, (s.highlighted/PageSize-1)*PageSize)
	case keycode == ime.KeyPageDown:
		if next := (s.highlighted/PageSize + 1) * PageSize; next < len(cands) {
			s.highlighted = next
		}
	default:
		return false
	}
	return true
}

// punct commits printable ASCII outside a composition when full_shape is
// on, widened to its full-width form.
func (e *Engine) punct(s *session, keycode int) bool {
	if keycode <= 0x20 || keycode >= 0x7f || !s.options[OptionFullShape] {
		return false
	}
	s.commitText(width.Widen.String(string(rune(keycode))))
	return true
}

func (s *session) commitText(text string) {
	s.commit = &text
	s.reset()
}

func (s *session) reset() {
	s.input = ""
	s.highlighted = 0
}

// candidates returns the configured candidates for input followed by the
// input itself. The result is never empty for non-empty input.
func (e *Engine) candidates(input string) []ime.Candidate {
	var cands []ime.Candidate
	seen := make(map[string]bool)
	if e.cfg != nil {
		base := "echo/candidates/" + input
		for i := 0; ; i++ {
			item := fmt.Sprintf("%s/@%d", base, i)
			var c ime.Candidate
			if text, ok := e.cfg.GetString(item); ok {
				c.Text = text
			} else if text, ok := e.cfg.GetString(item + "/text"); ok {
				c.Text = text
				c.Comment, _ = e.cfg.GetString(item + "/comment")
			} else {
				break
			}
			if c.Text == "" || seen[c.Text] {
				continue
			}
			seen[c.Text] = true
			cands = append(cands, c)
		}
	}
	if !seen[input] {
		cands = append(cands, ime.Candidate{Text: input})
	}
	return cands
}

// tracked counts a new snapshot and returns its release hook.
func (e *Engine) tracked() func() {
	e.outstanding.Add(1)
	return func() { e.outstanding.Add(-1) }
}

// Outstanding reports how many snapshots have not been released.
func (e *Engine) Outstanding() int {
	return int(e.outstanding.Load())
}

func (e *Engine) Status(id ime.SessionID) (*ime.StatusSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	if !ok {
		return nil, false
	}
	snap := &ime.StatusSnapshot{
		SchemaID:   schemaID,
		SchemaName: schemaName,
		Composing:  s.input != "",
		ASCIIMode:  s.options[OptionASCIIMode],
		FullShape:  s.options[OptionFullShape],
		Simplified: s.options[OptionSimplified],
	}
	snap.OnRelease(e.tracked())
	return snap, true
}

func (e *Engine) Context(id ime.SessionID) (*ime.ContextSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	if !ok {
		return nil, false
	}
	snap := &ime.ContextSnapshot{}
	if s.input != "" {
		n := len(s.input)
		snap.Composition = ime.Composition{
			Length:    n,
			CursorPos: n,
			SelStart:  0,
			SelEnd:    n,
			Preedit:   s.input,
		}

		cands := e.candidates(s.input)
		page := s.highlighted / PageSize
		start := page * PageSize
		end := min(start+PageSize, len(cands))
		snap.Menu = ime.Menu{
			PageSize:                  PageSize,
			PageNo:                    page,
			IsLastPage:                end == len(cands),
			HighlightedCandidateIndex: s.highlighted - start,
			Candidates:                cands[start:end],
			SelectKeys:                SelectKeys,
		}
	}
	snap.OnRelease(e.tracked())
	return snap, true
}

// Commit returns and clears the pending commit text.
func (e *Engine) Commit(id ime.SessionID) (*ime.CommitSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	if !ok || s.commit == nil {
		return nil, false
	}
	snap := &ime.CommitSnapshot{Text: *s.commit}
	s.commit = nil
	snap.OnRelease(e.tracked())
	return snap, true
}

// OpenConfig opens a config namespace from the data directories.
func (e *Engine) OpenConfig(name string) (ime.ConfigReader, bool) {
	e.mu.Lock()
	traits := e.traits
	e.mu.Unlock()

	store, err := config.OpenStore(name, traits.UserDataDir, traits.SharedDataDir)
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			e.log.Warn("open config", "name", name, "error", err)
		}
		return nil, false
	}
	return store, true
}
