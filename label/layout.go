package label

import (
	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"
)

// Glyph is a positioned glyph. X is the pen position of the glyph origin
// on the baseline, relative to the left edge of the line.
type Glyph struct {
	ID   font.GID
	X, Y float64
}

// Layout is a shaped single line of text.
type Layout struct {
	Glyphs []Glyph
	// Width is the advance of the whole line.
	Width float64
	// Ascent and Descent are the line extents above and below the
	// baseline, both positive.
	Ascent, Descent float64
	size            float64
}

// Height returns the line height.
func (l Layout) Height() float64 { return l.Ascent + l.Descent }

// Size returns the font size the line was shaped at.
func (l Layout) Size() float64 { return l.size }

// Shape lays text out on one line at size. Mixed direction text is split
// into bidi runs that are shaped separately.
func (f *Font) Shape(shaper *shaping.HarfbuzzShaper, text string, size float64) Layout {
	out := Layout{size: size}
	if ext, ok := f.face.FontHExtents(); ok {
		s := f.scale(size)
		out.Ascent = float64(ext.Ascender) * s
		out.Descent = -float64(ext.Descender) * s
	} else {
		out.Ascent, out.Descent = size*0.8, size*0.2
	}
	if text == "" {
		return out
	}

	runes := []rune(text)
	var x float64
	for _, r := range runs(text, len(runes)) {
		in := shaping.Input{
			Text:      runes,
			RunStart:  r.start,
			RunEnd:    r.end,
			Direction: r.dir,
			Face:      f.face,
			Size:      fixed.Int26_6(size * 64),
			Script:    script(runes[r.start:r.end]),
			Language:  language.NewLanguage("en"),
		}
		shaped := shaper.Shape(in)
		for _, g := range shaped.Glyphs {
			out.Glyphs = append(out.Glyphs, Glyph{
				ID: g.GlyphID,
				X:  x + fixedToFloat(g.XOffset),
				Y:  -fixedToFloat(g.YOffset),
			})
			x += fixedToFloat(g.XAdvance)
		}
	}
	out.Width = x
	return out
}

type run struct {
	start, end int
	dir        di.Direction
}

// runs splits text into directional runs in visual order.
func runs(text string, n int) []run {
	var p bidi.Paragraph
	if _, err := p.SetString(text, bidi.DefaultDirection(bidi.Neutral)); err != nil {
		return []run{{0, n, di.DirectionLTR}}
	}
	o, err := p.Order()
	if err != nil || o.NumRuns() == 0 {
		return []run{{0, n, di.DirectionLTR}}
	}
	out := make([]run, 0, o.NumRuns())
	for i := range o.NumRuns() {
		r := o.Run(i)
		start, end := r.Pos()
		dir := di.DirectionLTR
		if r.Direction() == bidi.RightToLeft {
			dir = di.DirectionRTL
		}
		out = append(out, run{start: start, end: min(end+1, n), dir: dir})
	}
	// A right-to-left paragraph lays its runs out from the right.
	if out[0].dir == di.DirectionRTL {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// script returns the script of the first letter.
func script(runes []rune) language.Script {
	for _, r := range runes {
		if s := language.LookupScript(r); s != language.Common && s != language.Inherited {
			return s
		}
	}
	return language.Latin
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
