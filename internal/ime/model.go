package ime

// Status is the engine state shown on the surface.
type Status struct {
	ASCIIMode bool `json:"ascii_mode"`
	Composing bool `json:"composing"`
	Disabled  bool `json:"disabled"`
}

// TextAttributeType classifies a span of text.
type TextAttributeType int

const (
	AttrNone TextAttributeType = iota
	AttrHighlighted
	AttrLastType
)

// TextRange is a half-open span of UTF-16 code units.
type TextRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type TextAttribute struct {
	Range TextRange         `json:"range"`
	Type  TextAttributeType `json:"type"`
}

// Text is a string with attributed spans.
type Text struct {
	Str        string          `json:"str"`
	Attributes []TextAttribute `json:"attributes,omitempty"`
}

// Highlight returns the first highlighted span of t.
func (t Text) Highlight() (TextRange, bool) {
	for _, attr := range t.Attributes {
		if attr.Type == AttrHighlighted {
			return attr.Range, true
		}
	}
	return TextRange{}, false
}

// CandidateInfo is one page of the candidate menu.
type CandidateInfo struct {
	CurrentPage int    `json:"current_page"`
	Highlighted int    `json:"highlighted"`
	Candidates  []Text `json:"candidates,omitempty"`
	Comments    []Text `json:"comments,omitempty"`
	Labels      string `json:"labels,omitempty"`
}

// Empty reports whether the page holds no candidates.
func (c CandidateInfo) Empty() bool {
	return len(c.Candidates) == 0
}

// Label returns the selection label of the i-th candidate. Without
// configured select keys candidates are numbered from 1.
func (c CandidateInfo) Label(i int) string {
	runes := []rune(c.Labels)
	if i < len(runes) {
		return string(runes[i])
	}
	return string(rune('1' + i%10))
}

// Context is the UI update model for one request.
type Context struct {
	Preedit    Text          `json:"preedit"`
	Aux        Text          `json:"aux"`
	Candidates CandidateInfo `json:"candidates"`
}

// Empty reports whether there is nothing to draw.
func (c Context) Empty() bool {
	return c.Preedit.Str == "" && c.Aux.Str == "" && c.Candidates.Empty()
}

// Rect is the caret rectangle in screen coordinates.
type Rect struct {
	Left   int32 `json:"left"`
	Top    int32 `json:"top"`
	Right  int32 `json:"right"`
	Bottom int32 `json:"bottom"`
}

// snapshot carries the release hook shared by engine snapshots.
type snapshot struct {
	release func()
}

// Release frees the engine-side resources behind the snapshot. It is safe to
// call more than once.
func (s *snapshot) Release() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

// OnRelease installs the hook run by Release.
func (s *snapshot) OnRelease(fn func()) {
	s.release = fn
}

// StatusSnapshot is the engine status of a session.
type StatusSnapshot struct {
	snapshot
	SchemaID   string
	SchemaName string
	Disabled   bool
	Composing  bool
	ASCIIMode  bool
	FullShape  bool
	Simplified bool
}

// Composition is the engine's preedit. Selection bounds are byte offsets
// into Preedit.
type Composition struct {
	Length    int
	CursorPos int
	SelStart  int
	SelEnd    int
	Preedit   string
}

// Candidate is one menu entry.
type Candidate struct {
	Text    string
	Comment string
}

// Menu is the current page of candidates.
type Menu struct {
	PageSize                  int
	PageNo                    int
	IsLastPage                bool
	HighlightedCandidateIndex int
	Candidates                []Candidate
	SelectKeys                string
}

// ContextSnapshot is the engine context of a session.
type ContextSnapshot struct {
	snapshot
	Composition Composition
	Menu        Menu
}

// CommitSnapshot holds text committed since the last poll.
type CommitSnapshot struct {
	snapshot
	Text string
}
