package panel

import (
	"context"
	"unicode/utf16"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/width"

	"weasel/internal/ime"
)

// Terminal draws the candidate window into a tcell screen.
type Terminal struct {
	model
	screen tcell.Screen
}

var _ ime.UI = (*Terminal)(nil)

// NewTerminal wraps an initialized screen. A nil style uses the defaults.
func NewTerminal(screen tcell.Screen, style *ime.UIStyle) *Terminal {
	t := &Terminal{screen: screen}
	t.init(style)
	return t
}

func (t *Terminal) Show() {
	t.draw(t.apply(func(s *State) { s.Visible = true }))
}

func (t *Terminal) Hide() {
	t.draw(t.apply(func(s *State) { s.Visible = false }))
}

func (t *Terminal) Update(ctx ime.Context, status ime.Status) {
	t.draw(t.apply(func(s *State) {
		s.Context = ctx
		s.Status = status
	}))
}

// SetStyle replaces the style and redraws.
func (t *Terminal) SetStyle(style ime.UIStyle) {
	t.model.SetStyle(style)
	t.draw(t.State())
}

func (t *Terminal) UpdateInputPosition(rc ime.Rect) {
	t.apply(func(s *State) { s.Position = rc })
}

// Run handles screen events until ctx is done or the screen is finalized.
// Ctrl-C calls quit.
func (t *Terminal) Run(ctx context.Context, quit func()) {
	go func() {
		<-ctx.Done()
		t.screen.Fini()
	}()
	for {
		switch ev := t.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			t.screen.Sync()
			t.draw(t.State())
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC && quit != nil {
				quit()
			}
		}
	}
}

func (t *Terminal) draw(st State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	style := t.style
	t.screen.Clear()
	if st.Visible {
		render(t.screen, st, &style)
	}
	t.screen.Show()
}

func render(screen tcell.Screen, st State, style *ime.UIStyle) {
	text := tcell.StyleDefault.Foreground(rgb(style.TextColor)).Background(rgb(style.BackColor))
	hilited := tcell.StyleDefault.Foreground(rgb(style.HilitedTextColor)).Background(rgb(style.HilitedBackColor))

	y := 0
	ctx := st.Context
	if !style.InlinePreedit && ctx.Preedit.Str != "" {
		drawPreedit(screen, y, ctx.Preedit, text, hilited)
		y++
	}
	if ctx.Aux.Str != "" {
		drawText(screen, 0, y, ctx.Aux.Str, text)
		y++
	}

	cands := ctx.Candidates
	x := 0
	for i, cand := range cands.Candidates {
		label := tcell.StyleDefault.Foreground(rgb(style.LabelTextColor)).Background(rgb(style.BackColor))
		body := tcell.StyleDefault.Foreground(rgb(style.CandidateTextColor)).Background(rgb(style.BackColor))
		comment := tcell.StyleDefault.Foreground(rgb(style.CommentTextColor)).Background(rgb(style.BackColor))
		if i == cands.Highlighted {
			back := rgb(style.HilitedCandidateBackColor)
			label = tcell.StyleDefault.Foreground(rgb(style.HilitedLabelTextColor)).Background(back)
			body = tcell.StyleDefault.Foreground(rgb(style.HilitedCandidateTextColor)).Background(back)
			comment = tcell.StyleDefault.Foreground(rgb(style.HilitedCommentTextColor)).Background(back)
		}

		x = drawText(screen, x, y, cands.Label(i)+".", label)
		x = drawText(screen, x, y, cand.Str, body)
		if i < len(cands.Comments) && cands.Comments[i].Str != "" {
			x = drawText(screen, x, y, " "+cands.Comments[i].Str, comment)
		}

		if style.LayoutType == ime.LayoutHorizontal {
			x = drawText(screen, x, y, "  ", text)
		} else {
			x = 0
			y++
		}
	}
}

// drawPreedit draws s with its highlighted range, given in UTF-16 units,
// in the hilited style.
func drawPreedit(screen tcell.Screen, y int, s ime.Text, normal, hilited tcell.Style) {
	hl, ok := s.Highlight()
	x, unit := 0, 0
	for _, r := range s.Str {
		style := normal
		if ok && unit >= hl.Start && unit < hl.End {
			style = hilited
		}
		screen.SetContent(x, y, r, nil, style)
		x += cellWidth(r)
		unit += utf16.RuneLen(r)
	}
}

// drawText draws s at (x, y) and returns the column after it.
func drawText(screen tcell.Screen, x, y int, s string, style tcell.Style) int {
	for _, r := range s {
		screen.SetContent(x, y, r, nil, style)
		x += cellWidth(r)
	}
	return x
}

func cellWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

func rgb(c ime.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R()), int32(c.G()), int32(c.B()))
}
