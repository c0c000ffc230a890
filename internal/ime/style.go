package ime

import (
	"log/slog"
)

// LayoutType is the candidate list orientation.
type LayoutType int

const (
	LayoutVertical LayoutType = iota
	LayoutHorizontal
)

func (l LayoutType) String() string {
	if l == LayoutHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// Color is a 0x00BBGGRR value, red in the low byte.
type Color uint32

// RGB builds a Color from channels.
func RGB(r, g, b uint8) Color {
	return Color(r) | Color(g)<<8 | Color(b)<<16
}

func (c Color) R() uint8 { return uint8(c) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c >> 16) }

// Blend mixes two parts of fg with one part of bg per channel.
func Blend(fg, bg Color) Color {
	mix := func(f, b uint8) uint8 {
		return uint8((int(f)*2 + int(b)) / 3)
	}
	return RGB(mix(fg.R(), bg.R()), mix(fg.G(), bg.G()), mix(fg.B(), bg.B()))
}

// UIStyle holds the presentation parameters of the candidate panel.
type UIStyle struct {
	FontFace      string     `json:"font_face"`
	FontPoint     int        `json:"font_point"`
	InlinePreedit bool       `json:"inline_preedit"`
	LayoutType    LayoutType `json:"layout_type"`

	MinWidth         int `json:"min_width"`
	MinHeight        int `json:"min_height"`
	Border           int `json:"border"`
	MarginX          int `json:"margin_x"`
	MarginY          int `json:"margin_y"`
	Spacing          int `json:"spacing"`
	CandidateSpacing int `json:"candidate_spacing"`
	HiliteSpacing    int `json:"hilite_spacing"`
	HilitePadding    int `json:"hilite_padding"`
	RoundCorner      int `json:"round_corner"`

	TextColor                 Color `json:"text_color"`
	CandidateTextColor        Color `json:"candidate_text_color"`
	LabelTextColor            Color `json:"label_text_color"`
	CommentTextColor          Color `json:"comment_text_color"`
	BackColor                 Color `json:"back_color"`
	BorderColor               Color `json:"border_color"`
	HilitedTextColor          Color `json:"hilited_text_color"`
	HilitedBackColor          Color `json:"hilited_back_color"`
	HilitedCandidateTextColor Color `json:"hilited_candidate_text_color"`
	HilitedCandidateBackColor Color `json:"hilited_candidate_back_color"`
	HilitedLabelTextColor     Color `json:"hilited_label_text_color"`
	HilitedCommentTextColor   Color `json:"hilited_comment_text_color"`
}

// DefaultStyle returns the built-in style used before any config is read.
func DefaultStyle() UIStyle {
	s := UIStyle{
		FontPoint:        14,
		LayoutType:       LayoutVertical,
		MinWidth:         160,
		Border:           3,
		MarginX:          12,
		MarginY:          12,
		Spacing:          10,
		CandidateSpacing: 5,
		HiliteSpacing:    4,
		HilitePadding:    2,
		RoundCorner:      4,

		TextColor:                 0x000000,
		BackColor:                 0xffffff,
		BorderColor:               0x000000,
		HilitedTextColor:          0x000000,
		HilitedBackColor:          0xffffff,
		CandidateTextColor:        0x000000,
		HilitedCandidateTextColor: 0xffffff,
		HilitedCandidateBackColor: 0x000000,
	}
	s.LabelTextColor = Blend(s.CandidateTextColor, s.BackColor)
	s.HilitedLabelTextColor = Blend(s.HilitedCandidateTextColor, s.HilitedCandidateBackColor)
	s.CommentTextColor = s.LabelTextColor
	s.HilitedCommentTextColor = s.HilitedLabelTextColor
	return s
}

// ResolveStyle updates style from cfg. Keys that are absent leave the
// current value in place, except style/inline_preedit and the layout which
// are always assigned.
func ResolveStyle(cfg ConfigReader, style *UIStyle, logger *slog.Logger) {
	if style == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	if v, ok := cfg.GetString("style/font_face"); ok {
		style.FontFace = v
	}
	getInt(cfg, "style/font_point", &style.FontPoint)

	inline, _ := cfg.GetBool("style/inline_preedit")
	style.InlinePreedit = inline

	horizontal, _ := cfg.GetBool("style/horizontal")
	style.LayoutType = LayoutVertical
	if horizontal {
		style.LayoutType = LayoutHorizontal
	}
	if layout, ok := cfg.GetString("style/layout/type"); ok {
		switch layout {
		case "vertical":
			style.LayoutType = LayoutVertical
		case "horizontal":
			style.LayoutType = LayoutHorizontal
		default:
			logger.Warn("invalid style layout type", "type", layout)
		}
	}

	getInt(cfg, "style/layout/min_width", &style.MinWidth)
	getInt(cfg, "style/layout/min_height", &style.MinHeight)
	getInt(cfg, "style/layout/border", &style.Border)
	getInt(cfg, "style/layout/margin_x", &style.MarginX)
	getInt(cfg, "style/layout/margin_y", &style.MarginY)
	getInt(cfg, "style/layout/spacing", &style.Spacing)
	getInt(cfg, "style/layout/candidate_spacing", &style.CandidateSpacing)
	getInt(cfg, "style/layout/hilite_spacing", &style.HiliteSpacing)
	getInt(cfg, "style/layout/hilite_padding", &style.HilitePadding)
	getInt(cfg, "style/layout/round_corner", &style.RoundCorner)

	scheme, ok := cfg.GetString("style/color_scheme")
	if !ok {
		return
	}
	resolveColorScheme(cfg, "preset_color_schemes/"+scheme, style)
}

func resolveColorScheme(cfg ConfigReader, prefix string, style *UIStyle) {
	color := func(name string, dst *Color, fallback Color) {
		if v, ok := cfg.GetInt(prefix + "/" + name); ok {
			*dst = Color(uint32(v))
			return
		}
		*dst = fallback
	}

	getColor(cfg, prefix+"/text_color", &style.TextColor)
	color("candidate_text_color", &style.CandidateTextColor, style.TextColor)
	getColor(cfg, prefix+"/back_color", &style.BackColor)
	color("border_color", &style.BorderColor, style.TextColor)
	color("hilited_text_color", &style.HilitedTextColor, style.TextColor)
	color("hilited_back_color", &style.HilitedBackColor, style.BackColor)
	color("hilited_candidate_text_color", &style.HilitedCandidateTextColor, style.HilitedTextColor)
	color("hilited_candidate_back_color", &style.HilitedCandidateBackColor, style.HilitedBackColor)

	style.LabelTextColor = Blend(style.CandidateTextColor, style.BackColor)
	style.HilitedLabelTextColor = Blend(style.HilitedCandidateTextColor, style.HilitedCandidateBackColor)
	style.CommentTextColor = style.LabelTextColor
	style.HilitedCommentTextColor = style.HilitedLabelTextColor
	if getColor(cfg, prefix+"/comment_text_color", &style.CommentTextColor) {
		style.HilitedCommentTextColor = style.CommentTextColor
	}
	getColor(cfg, prefix+"/hilited_comment_text_color", &style.HilitedCommentTextColor)
}

func getInt(cfg ConfigReader, path string, dst *int) bool {
	v, ok := cfg.GetInt(path)
	if ok {
		*dst = v
	}
	return ok
}

func getColor(cfg ConfigReader, path string, dst *Color) bool {
	v, ok := cfg.GetInt(path)
	if ok {
		*dst = Color(uint32(v))
	}
	return ok
}
