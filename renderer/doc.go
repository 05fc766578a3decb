// Package renderer draws a graph with the GPU.
//
// A Renderer owns the atlas manager, the batching Drawing, the hal backend
// and the picking target. Each frame it walks the z-ordered elements and
// draws, per node, the underlay, body, label and overlay textures, and per
// edge, the line, both arrowheads and the label. Picking uses the same
// walk with every element's z-order index encoded as its color.
//
//	r, err := renderer.New(device, host, ggraph.DefaultConfig(), renderer.WithSize(800, 600))
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	r.SetElements(graph.SplitDragged(eles, nil))
//	if err := r.Render(renderer.View{Zoom: 1}); err != nil {
//		return err
//	}
//	hits, err := r.FindNearestElements(x, y)
package renderer
