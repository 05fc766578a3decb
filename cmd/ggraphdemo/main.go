// Command ggraphdemo renders a synthetic graph offscreen and writes the
// frame and the atlas pages as PNG files.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/ggraph"
	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
	"github.com/gogpu/ggraph/internal/gpu"
	"github.com/gogpu/ggraph/label"
	"github.com/gogpu/ggraph/overlay"
	"github.com/gogpu/ggraph/renderer"
	"github.com/gogpu/gputypes"
	"github.com/lucasb-eyer/go-colorful"

	_ "github.com/gogpu/wgpu/hal/allbackends"
)

func main() {
	var (
		configPath = flag.String("config", "ggraph.toml", "TOML configuration file")
		nodes      = flag.Int("nodes", 64, "number of nodes")
		edges      = flag.Int("edges", 96, "number of edges")
		width      = flag.Int("width", 800, "image width")
		height     = flag.Int("height", 600, "image height")
		zoom       = flag.Float64("zoom", 1, "zoom level")
		output     = flag.String("output", "graph.png", "output file")
		atlases    = flag.String("atlases", "", "directory for atlas page images")
		backend    = flag.String("backend", "auto", "GPU backend: auto, vulkan, metal, dx12, gl, software")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	ggraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := ggraph.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		cfg.Debug = true
	}

	dev, err := openDevice(*backend)
	if err != nil {
		log.Fatalf("Failed to open GPU device: %v", err)
	}
	defer dev.Close()

	g := newDemoGraph(*nodes, *edges)
	r, err := renderer.New(dev, g, cfg, renderer.WithSize(*width, *height))
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer r.Close()

	r.SetElements(graph.SplitDragged(g.elements(), nil))
	view := g.center(*width, *height, *zoom)
	if err := r.Render(view); err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	log.Print(r.DebugReport())

	img, err := r.ReadScreen()
	if err != nil {
		log.Fatalf("Failed to read frame: %v", err)
	}
	if err := savePNG(*output, img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Frame saved to %s (%dx%d)\n", *output, *width, *height)

	if len(g.nodes) > 0 {
		c := g.nodes[0].center()
		hits, err := r.FindNearestElements(c.X, c.Y)
		if err != nil {
			log.Fatalf("Failed to pick: %v", err)
		}
		log.Printf("Nearest to %s: %s", g.nodes[0].id, ids(hits))
	}

	if *atlases != "" {
		if err := saveAtlases(r, *atlases); err != nil {
			log.Fatalf("Failed to save atlases: %v", err)
		}
	}
}

func openDevice(name string) (*gpu.Device, error) {
	variants := map[string]gputypes.Backend{
		"vulkan":   gputypes.BackendVulkan,
		"metal":    gputypes.BackendMetal,
		"dx12":     gputypes.BackendDX12,
		"gl":       gputypes.BackendGL,
		"software": gputypes.BackendEmpty,
	}
	if name == "auto" {
		return gpu.OpenDefaultDevice()
	}
	v, ok := variants[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	return gpu.OpenDevice(v)
}

func saveAtlases(r *renderer.Renderer, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, p := range r.AtlasPages() {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.png", p.Type, p.Index))
		if err := savePNG(path, p.Image); err != nil {
			return err
		}
	}
	return nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ids(eles []graph.Element) string {
	if len(eles) == 0 {
		return "nothing"
	}
	names := make([]string, len(eles))
	for i, e := range eles {
		names[i] = e.ID()
	}
	return strings.Join(names, ", ")
}

// Demo graph

const (
	nodeSize = 40.0
	spacing  = 90.0
)

var shapes = []string{"rectangle", "ellipse", "round-rectangle"}

type demoNode struct {
	id    string
	shape string
	color colorful.Color
	bb    geom.BBox
}

func (n *demoNode) ID() string    { return n.id }
func (n *demoNode) IsNode() bool  { return true }
func (n *demoNode) Visible() bool { return true }

func (n *demoNode) center() geom.Point {
	return geom.Pt(n.bb.X1+n.bb.W/2, n.bb.Y1+n.bb.H/2)
}

type demoEdge struct {
	id     string
	points []float64
	color  colorful.Color
	label  string
}

func (e *demoEdge) ID() string        { return e.id }
func (e *demoEdge) IsNode() bool      { return false }
func (e *demoEdge) Visible() bool     { return true }
func (e *demoEdge) Points() []float64 { return e.points }

func (e *demoEdge) LineStyle() graph.LineStyle {
	return graph.LineStyle{Color: e.color, Width: 2, Opacity: 1, LineOpacity: 0.8}
}

func (e *demoEdge) Arrow(end graph.ArrowEnd) graph.Arrow {
	if end == graph.Source {
		return graph.Arrow{Shape: graph.ArrowShapeNone}
	}
	p := e.points
	n := len(p)
	x, y := p[n-2], p[n-1]
	angle := math.Atan2(y-p[n-3], x-p[n-4])
	// Stop at the node border.
	x -= math.Cos(angle) * nodeSize / 2
	y -= math.Sin(angle) * nodeSize / 2
	return graph.Arrow{X: x, Y: y, Angle: angle - math.Pi/2, Shape: "triangle", Color: e.color, Scale: 1}
}

// demoGraph is a grid of nodes joined by random straight and curved edges.
type demoGraph struct {
	nodes []*demoNode
	edges []*demoEdge
}

func newDemoGraph(numNodes, numEdges int) *demoGraph {
	g := &demoGraph{}
	rng := rand.New(rand.NewPCG(1, 2))
	cols := max(1, int(math.Ceil(math.Sqrt(float64(numNodes)))))
	for i := range numNodes {
		x, y := float64(i%cols)*spacing, float64(i/cols)*spacing
		g.nodes = append(g.nodes, &demoNode{
			id:    fmt.Sprintf("n%d", i),
			shape: shapes[i%len(shapes)],
			color: colorful.Hsv(float64(i%6)*60, 0.6, 0.9),
			bb:    geom.Box(x, y, nodeSize, nodeSize),
		})
	}
	if numNodes < 2 {
		return g
	}
	for i := range numEdges {
		src := g.nodes[rng.IntN(numNodes)]
		dst := g.nodes[rng.IntN(numNodes)]
		if src == dst {
			continue
		}
		a, b := src.center(), dst.center()
		pts := []float64{a.X, a.Y, b.X, b.Y}
		if i%2 == 1 {
			// Bow the edge sideways by a fifth of its length.
			mx, my := (a.X+b.X)/2, (a.Y+b.Y)/2
			nx, ny := -(b.Y - a.Y), b.X-a.X
			pts = []float64{a.X, a.Y, mx + nx/5, my + ny/5, b.X, b.Y}
		}
		e := &demoEdge{id: fmt.Sprintf("e%d", i), points: pts, color: colorful.Hsv(210, 0.3, 0.5)}
		if i%5 == 0 {
			e.label = fmt.Sprintf("%s-%s", src.id, dst.id)
		}
		g.edges = append(g.edges, e)
	}
	return g
}

// elements returns edges below nodes.
func (g *demoGraph) elements() []graph.Element {
	eles := make([]graph.Element, 0, len(g.nodes)+len(g.edges))
	for _, e := range g.edges {
		eles = append(eles, e)
	}
	for _, n := range g.nodes {
		eles = append(eles, n)
	}
	return eles
}

// center returns a view centring the graph in a width x height frame.
func (g *demoGraph) center(width, height int, zoom float64) renderer.View {
	if len(g.nodes) == 0 {
		return renderer.View{Zoom: zoom}
	}
	var maxX, maxY float64
	for _, n := range g.nodes {
		maxX, maxY = max(maxX, n.bb.X2()), max(maxY, n.bb.Y2())
	}
	return renderer.View{
		Pan:  geom.Pt(float64(width)/2-maxX/2*zoom, float64(height)/2-maxY/2*zoom),
		Zoom: zoom,
	}
}

func (g *demoGraph) BodyKey(e graph.Element) string {
	n := e.(*demoNode)
	return n.shape + ":" + n.color.Hex()
}

func (g *demoGraph) BodyBox(e graph.Element) geom.BBox { return e.(*demoNode).bb }

func (g *demoGraph) DrawBody(ctx *canvas.Context, e graph.Element, bb geom.BBox) {
	n := e.(*demoNode)
	ctx.SetFillColor(n.color)
	switch n.shape {
	case "ellipse":
		ctx.FillEllipse(bb.X1+bb.W/2, bb.Y1+bb.H/2, bb.W/2, bb.H/2)
	case "round-rectangle":
		ctx.FillRoundRect(bb.X1, bb.Y1, bb.W, bb.H, bb.W/5)
	default:
		ctx.FillRect(bb.X1, bb.Y1, bb.W, bb.H)
	}
}

func (g *demoGraph) Label(e graph.Element) (label.Spec, bool) {
	switch e := e.(type) {
	case *demoNode:
		c := e.center()
		return label.Spec{Text: e.id, Size: 12, Color: color.Black, Pos: geom.Pt(c.X, e.bb.Y2()+10)}, true
	case *demoEdge:
		if e.label == "" {
			return label.Spec{}, false
		}
		p := e.points
		mid := geom.Pt((p[0]+p[len(p)-2])/2, (p[1]+p[len(p)-1])/2)
		angle := math.Atan2(p[len(p)-1]-p[1], p[len(p)-2]-p[0])
		if angle > math.Pi/2 || angle < -math.Pi/2 {
			angle += math.Pi
		}
		return label.Spec{Text: e.label, Size: 9, Color: color.Gray{Y: 80}, Pos: mid, Angle: angle}, true
	}
	return label.Spec{}, false
}

func (g *demoGraph) OverlayStyle(e graph.Element, kind overlay.Kind) overlay.Style {
	// The first node is shown as selected.
	if kind != overlay.Overlay || len(g.nodes) == 0 || e != graph.Element(g.nodes[0]) {
		return overlay.Style{}
	}
	return overlay.Style{Color: colorful.Hsv(220, 0.8, 0.9), Opacity: 0.25, Padding: 6}
}
