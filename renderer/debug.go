package renderer

import (
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/gogpu/ggraph"
	"github.com/gogpu/ggraph/render"
	"golang.org/x/image/draw"
)

// frameReport summarizes the last frame and logs it when Config.Debug is
// set.
func (r *Renderer) frameReport(target render.Target, elapsed time.Duration) string {
	n := len(r.eles.All)
	report := fmt.Sprintf("%d elements, %d rectangles, %d batches", n, r.debug.Instances(), len(r.debug.Batches))
	if !r.cfg.Debug {
		return report
	}

	log := ggraph.Logger()
	log.Debug("renderer: frame",
		slog.String("target", target.String()),
		slog.String("report", report),
		slog.Duration("elapsed", elapsed))

	var b strings.Builder
	b.WriteString(report)
	for _, info := range r.drawing.AtlasDebugInfo() {
		line := fmt.Sprintf("%s: %d keys, %d atlases", info.Type, info.KeyCount, info.AtlasCount)
		log.Debug("renderer: atlases", slog.String("type", info.Type),
			slog.Int("keys", info.KeyCount), slog.Int("atlases", info.AtlasCount))
		b.WriteString("\n  ")
		b.WriteString(line)
	}
	return b.String()
}

// DebugReport returns the summary of the last frame, such as
// "120 elements, 480 rectangles, 2 batches". With Config.Debug it also
// lists the key and page counts of each render type.
func (r *Renderer) DebugReport() string { return r.report }

// AtlasPage is a copy of one atlas page.
type AtlasPage struct {
	Type  string
	Index int
	Image *image.RGBA
}

// AtlasPages copies the pages of every render type, in registration
// order.
func (r *Renderer) AtlasPages() []AtlasPage {
	m := r.drawing.Atlases()
	var pages []AtlasPage
	for _, name := range m.RenderTypes() {
		for i, a := range m.Collection(name).Pages() {
			src := a.Page().Image()
			img := image.NewRGBA(src.Bounds())
			draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
			pages = append(pages, AtlasPage{Type: name, Index: i, Image: img})
		}
	}
	return pages
}

// ShownAtlases returns the pages copied after the last screen frame when
// Config.DebugShowAtlases is set.
func (r *Renderer) ShownAtlases() []AtlasPage { return r.shown }
