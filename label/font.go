package label

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Font is a parsed font face. It is not safe for concurrent use.
type Font struct {
	name string
	face *font.Face
	upem float64
}

// ParseFont parses TrueType or OpenType data.
func ParseFont(name string, data []byte) (*Font, error) {
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("label: parse font %q: %w", name, err)
	}
	upem := float64(face.Upem())
	if upem == 0 {
		upem = 1000
	}
	return &Font{name: name, face: face, upem: upem}, nil
}

var defaultFont = sync.OnceValues(func() (*Font, error) {
	return ParseFont("goregular", goregular.TTF)
})

// DefaultFont returns Go Regular.
func DefaultFont() *Font {
	f, err := defaultFont()
	if err != nil {
		// The embedded font is known to parse.
		panic(err)
	}
	return f
}

// Name returns the name the font was parsed with.
func (f *Font) Name() string { return f.name }

// scale converts font units to pixels at size.
func (f *Font) scale(size float64) float64 { return size / f.upem }
