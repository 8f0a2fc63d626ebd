// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package geom holds the integer rectangle arithmetic shared by the view,
// output and cursor packages.
package geom

// Box is an axis-aligned integer rectangle, x/y relative to whatever
// coordinate space the holder documents (output-local, layout-usable-area
// relative, etc).
type Box struct {
	X, Y          int32
	Width, Height int32
}

// Edges mirrors wlroots' edge bitmask, used by resize grabs and layer-shell
// anchoring.
type Edges uint32

const (
	EdgeNone Edges = 0
	EdgeTop  Edges = 1 << iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

func (b Box) Right() int32  { return b.X + b.Width }
func (b Box) Bottom() int32 { return b.Y + b.Height }

func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Contains reports whether the point (x, y) lies within b.
func (b Box) Contains(x, y int32) bool {
	return x >= b.X && x < b.Right() && y >= b.Y && y < b.Bottom()
}

// Intersect returns the overlapping region of a and b. The result is empty
// (Width/Height <= 0) when the boxes don't overlap.
func (a Box) Intersect(b Box) Box {
	x0, y0 := max32(a.X, b.X), max32(a.Y, b.Y)
	x1, y1 := min32(a.Right(), b.Right()), min32(a.Bottom(), b.Bottom())
	return Box{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Inset shrinks b by removing margin on the given edges. Used to carve an
// exclusive zone reservation out of an output's usable area.
func (b Box) Inset(edge Edges, amount int32) Box {
	out := b
	switch {
	case edge&EdgeTop != 0:
		out.Y += amount
		out.Height -= amount
	case edge&EdgeBottom != 0:
		out.Height -= amount
	case edge&EdgeLeft != 0:
		out.X += amount
		out.Width -= amount
	case edge&EdgeRight != 0:
		out.Width -= amount
	}
	return out
}

// Centered returns a box of size (w, h) centered within b.
func (b Box) Centered(w, h int32) Box {
	return Box{
		X:      b.X + (b.Width-w)/2,
		Y:      b.Y + (b.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

// ClampPosition moves (x, y) so that a box of size (w, h) placed there stays
// within bound, leaving at least `margin` on every edge when bound is large
// enough to allow it.
func ClampPosition(x, y, w, h int32, bound Box, margin int32) (int32, int32) {
	minX, maxX := bound.X+margin, bound.Right()-w-margin
	if maxX < minX {
		maxX = minX
	}
	minY, maxY := bound.Y+margin, bound.Bottom()-h-margin
	if maxY < minY {
		maxY = minY
	}
	return clamp32(x, minX, maxX), clamp32(y, minY, maxY)
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Constraints bounds Width/Height for applyConstraints.
type Constraints struct {
	MinWidth, MinHeight int32
	MaxWidth, MaxHeight int32 // 0 means unbounded
}

// Apply clamps w, h into the constraint range, leaving 0 (unbounded) maxima
// alone.
func (c Constraints) Apply(w, h int32) (int32, int32) {
	if w < c.MinWidth {
		w = c.MinWidth
	}
	if c.MaxWidth > 0 && w > c.MaxWidth {
		w = c.MaxWidth
	}
	if h < c.MinHeight {
		h = c.MinHeight
	}
	if c.MaxHeight > 0 && h > c.MaxHeight {
		h = c.MaxHeight
	}
	return w, h
}
