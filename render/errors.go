// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "errors"

// Sentinel errors for drawing.
var (
	// ErrNilBackend is returned when a Drawing is created without a backend.
	ErrNilBackend = errors.New("render: nil backend")

	// ErrNilManager is returned when a Drawing is created without an atlas manager.
	ErrNilManager = errors.New("render: nil atlas manager")

	// ErrNotInFrame is returned by EndFrame without a matching StartFrame.
	ErrNotInFrame = errors.New("render: EndFrame without StartFrame")
)
