package renderer

import (
	"errors"
	"testing"

	"github.com/gogpu/ggraph"
	"github.com/gogpu/ggraph/graph"
	"github.com/gogpu/ggraph/internal/gpu"
	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/noop"
)

func TestNewOnDevice(t *testing.T) {
	dev, err := gpu.OpenDevice(gputypes.BackendEmpty)
	if err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	defer dev.Close()

	cfg := testConfig()
	cfg.TexPerBatch = 1000
	r, err := New(dev, &testHost{}, cfg, WithSize(64, 48))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	if got := r.Config().TexPerBatch; got != int(dev.Limits().MaxSampledTexturesPerShaderStage) {
		t.Errorf("TexPerBatch = %d, want the device maximum", got)
	}
	n, e := sampleGraph()
	r.SetElements(graph.SplitDragged([]graph.Element{n, e}, nil))
	if err := r.Render(View{Zoom: 1}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := r.ReadScreen()
	if err != nil {
		t.Fatalf("ReadScreen: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("screen = %v, want 64x48", img.Bounds())
	}
	if _, err := r.FindNearestElements(10, 10); err != nil {
		t.Errorf("FindNearestElements: %v", err)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := ggraph.DefaultConfig()
	cfg.TexRows = 0
	if _, err := New(nil, &testHost{}, cfg); !errors.Is(err, ggraph.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}
