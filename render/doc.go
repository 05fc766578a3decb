// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render turns element draw requests into batched GPU instances.
//
// A Drawing writes one Instance per textured quad, straight edge, curve
// segment or arrowhead into a fixed-capacity buffer and hands the populated
// prefix to a Backend whenever the buffer fills up, the current batch runs
// out of atlas texture slots, or a curved edge would not fit in what is
// left. Every flush is one instanced draw, so draw order follows call
// order across batches.
//
// The same batching serves two targets. Screen renders appearance with
// premultiplied alpha. Picking writes each element's index, encoded with
// EncodeIndex, so the pixels can be decoded back with DecodeIndex.
//
// # Usage
//
//	d, err := render.NewDrawing(backend, manager, render.Options{BatchSize: 2048})
//	if err != nil {
//		return err
//	}
//	d.StartFrame(panZoom, nil, render.Screen)
//	for i, e := range elements {
//		d.DrawTexture(e, i, "node-body")
//	}
//	if err := d.EndFrame(); err != nil {
//		return err
//	}
package render
