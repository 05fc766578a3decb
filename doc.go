// Package ggraph renders large node/edge graphs on the GPU.
//
// # Overview
//
// Per-element images (node bodies, labels, overlays) are packed into shared
// texture atlases and every element of a frame is drawn with a bounded
// number of instanced draw calls. A parallel offscreen picking pass encodes
// element identity into pixel color for hit testing.
//
// # Architecture
//
// The library is organized into:
//   - ggraph: logger and configuration shared by all sub-packages
//   - geom: affine matrices, points and bounding boxes
//   - canvas: RGBA pages and a 2D drawing context
//   - atlas: atlas pages, per-type collections with reference-counted GC,
//     and the cross-type batch manager
//   - render: instance buffers, batching and flush, curve subdivision
//   - picking: index readback, nearest-element and box queries
//   - overlay, label: built-in render types
//   - renderer: the per-frame driver tying everything to a GPU device
//
// # Coordinate System
//
// Model coordinates have the origin at top-left with Y increasing down.
// The pan/zoom matrix maps them to clip space.
//
// # Logging
//
// ggraph is silent by default. Call SetLogger to enable log output.
package ggraph

// Version is the current version of the library.
const Version = "0.1.0"
