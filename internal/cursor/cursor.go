// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package cursor implements the per-seat pointer mode state machine
// (passthrough/move/resize) and hit-testing, generalizing server.go's
// cursorMode/grabbedTopLevel/grabGeobox/grabX/grabY fields and its
// processCursorMove/processCursorResize/beginInteractive functions into a
// reusable, output-aware type (spec.md §4.7).
package cursor

import (
	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/output"
	"github.com/ifreund/river/internal/stack"
	"github.com/ifreund/river/internal/view"
	"github.com/sirupsen/logrus"
)

// ModeKind discriminates the Mode tagged sum (spec.md §4.7).
type ModeKind int

const (
	ModePassthrough ModeKind = iota
	ModeMove
	ModeResize
)

// Mode is the cursor's current interaction mode.
type Mode struct {
	Kind ModeKind
	View *view.View

	// XOffset/YOffset are resize-mode's grabbed-corner offset from the
	// cursor, preserved across resize motion by warping the cursor
	// (spec.md §4.7's "cursor is warped so the grabbed corner offset is
	// preserved").
	XOffset, YOffset int32
	Edges            geom.Edges

	// grabX/grabY (move mode only) mirror server.go's grabX/grabY: the
	// cursor's offset from the view's top-left at grab time.
	grabX, grabY int32
}

// HitResult is what hit-testing found at a point, in output-local
// coordinates.
type HitResult struct {
	View        *view.View
	Layer       *output.LayerSurface
	SurfaceX    int32
	SurfaceY    int32
	Allowed     bool // false if input is disallowed (e.g. input-inhibitor active for another client)
}

// Warper is the seam into the backend's cursor-warp primitive.
type Warper interface {
	WarpTo(x, y int32)
	SetXCursor(name string)
}

// PointerNotifier is the seam into the backend's seat pointer-focus calls,
// generalizing server.seat.NotifyPointerEnter/NotifyPointerMotion/
// ClearPointerFocus.
type PointerNotifier interface {
	NotifyPointerEnter(hit HitResult)
	NotifyPointerMotion(hit HitResult)
	ClearPointerFocus()
}

// Cursor is one seat's pointer state.
type Cursor struct {
	X, Y int32

	Mode         Mode
	PressedCount int

	// PointerModifier gates move/resize/close bindings (spec.md §4.7);
	// set from config.
	PointerModifier uint32
	modifierHeld    bool

	// BorderWidth is config.BorderWidth: move/resize clamping keeps this
	// many pixels of margin so the view plus its border stays inside the
	// output (spec.md §4.7, §8 scenario 5).
	BorderWidth int32

	Warp   Warper
	Notify PointerNotifier

	log *logrus.Entry
}

func New() *Cursor {
	return &Cursor{log: logrus.WithField("component", "cursor")}
}

// SetModifierHeld is driven by the seat's keyboard-modifier tracking.
func (c *Cursor) SetModifierHeld(held bool) { c.modifierHeld = held }

// HitTest walks layers and views in spec.md §4.7's stacking order: overlay
// (with popups), top, views (focused first, then current.tags iteration
// order), bottom, background. The first surface at (x, y) wins.
func HitTest(o *output.Output, focused *view.View, x, y int32) HitResult {
	if ls, sx, sy, ok := hitLayer(o, output.LayerOverlay, x, y); ok {
		return HitResult{Layer: ls, SurfaceX: sx, SurfaceY: sy, Allowed: true}
	}
	if ls, sx, sy, ok := hitLayer(o, output.LayerTop, x, y); ok {
		return HitResult{Layer: ls, SurfaceX: sx, SurfaceY: sy, Allowed: true}
	}

	if focused != nil && focused.Current.Box.Contains(x, y) {
		return HitResult{View: focused, SurfaceX: x - focused.Current.Box.X, SurfaceY: y - focused.Current.Box.Y, Allowed: true}
	}
	it := o.Views.Iterator(stack.Node[*view.View]{}, o.Current.Tags)
	for {
		n, ok := it.Next()
		if !ok {
			break
		}
		v := n.Value()
		if v == focused {
			continue
		}
		if v.Current.Box.Contains(x, y) {
			return HitResult{View: v, SurfaceX: x - v.Current.Box.X, SurfaceY: y - v.Current.Box.Y, Allowed: true}
		}
	}

	if ls, sx, sy, ok := hitLayer(o, output.LayerBottom, x, y); ok {
		return HitResult{Layer: ls, SurfaceX: sx, SurfaceY: sy, Allowed: true}
	}
	if ls, sx, sy, ok := hitLayer(o, output.LayerBackground, x, y); ok {
		return HitResult{Layer: ls, SurfaceX: sx, SurfaceY: sy, Allowed: true}
	}
	return HitResult{Allowed: true}
}

func hitLayer(o *output.Output, kind output.LayerKind, x, y int32) (*output.LayerSurface, int32, int32, bool) {
	layers := o.Layers[kind]
	for i := len(layers) - 1; i >= 0; i-- {
		ls := layers[i]
		if ls.HasPopup && ls.PopupBox.Contains(x, y) {
			return ls, x - ls.PopupBox.X, y - ls.PopupBox.Y, true
		}
		if ls.Box.Contains(x, y) {
			return ls, x - ls.Box.X, y - ls.Box.Y, true
		}
	}
	return nil, 0, 0, false
}

// Motion is driven on every pointer-motion event. In passthrough it hit-
// tests and forwards enter/motion; in move/resize it translates/resizes
// the grabbed view directly (spec.md §4.7).
func (c *Cursor) Motion(o *output.Output, focused *view.View, x, y int32) {
	c.X, c.Y = x, y
	switch c.Mode.Kind {
	case ModePassthrough:
		hit := HitTest(o, focused, x, y)
		if hit.View == nil && hit.Layer == nil || !hit.Allowed {
			if c.Warp != nil {
				c.Warp.SetXCursor("default")
			}
			if c.Notify != nil {
				c.Notify.ClearPointerFocus()
			}
			return
		}
		if c.Notify != nil {
			c.Notify.NotifyPointerEnter(hit)
			c.Notify.NotifyPointerMotion(hit)
		}
	case ModeMove:
		c.moveMotion(o)
	case ModeResize:
		c.resizeMotion(o)
	}
}

func (c *Cursor) moveMotion(o *output.Output) {
	v := c.Mode.View
	if v == nil {
		return
	}
	newX := c.X - c.Mode.grabX
	newY := c.Y - c.Mode.grabY
	newX, newY = geom.ClampPosition(newX, newY, v.Pending.Box.Width, v.Pending.Box.Height, o.Usable, c.BorderWidth)
	v.Pending.Box.X, v.Pending.Box.Y = newX, newY
	// Position-only change: update Current directly without a configure,
	// per spec.md §4.7 ("current is updated without a configure, size
	// unchanged").
	v.Current.Box.X, v.Current.Box.Y = newX, newY
	v.FloatBox = v.Pending.Box
}

func (c *Cursor) resizeMotion(o *output.Output) {
	v := c.Mode.View
	if v == nil {
		return
	}
	box := v.Pending.Box
	left, top := box.X, box.Y
	right, bottom := box.Right(), box.Bottom()

	if c.Mode.Edges&geom.EdgeTop != 0 {
		top = c.Y - c.Mode.YOffset
		if top >= bottom {
			top = bottom - 1
		}
	} else if c.Mode.Edges&geom.EdgeBottom != 0 {
		bottom = c.Y - c.Mode.YOffset
		if bottom <= top {
			bottom = top + 1
		}
	}
	if c.Mode.Edges&geom.EdgeLeft != 0 {
		left = c.X - c.Mode.XOffset
		if left >= right {
			left = right - 1
		}
	} else if c.Mode.Edges&geom.EdgeRight != 0 {
		right = c.X - c.Mode.XOffset
		if right <= left {
			right = left + 1
		}
	}

	v.Pending.Box = geom.Box{X: left, Y: top, Width: right - left, Height: bottom - top}
	v.ApplyConstraints()
	v.Pending.Box = clampToOutputEdges(v.Pending.Box, o.Usable, c.BorderWidth)
	v.FloatBox = v.Pending.Box

	if v.NeedsConfigure() {
		v.Configure()
	}
	if c.Warp != nil {
		wx, wy := c.X, c.Y
		if c.Mode.Edges&geom.EdgeLeft != 0 {
			wx = v.Pending.Box.X
		} else if c.Mode.Edges&geom.EdgeRight != 0 {
			wx = v.Pending.Box.Right()
		}
		if c.Mode.Edges&geom.EdgeTop != 0 {
			wy = v.Pending.Box.Y
		} else if c.Mode.Edges&geom.EdgeBottom != 0 {
			wy = v.Pending.Box.Bottom()
		}
		c.Warp.WarpTo(wx, wy)
	}
}

// clampToOutputEdges keeps b (plus margin pixels of border on every side)
// inside bound, shrinking b when its edge would otherwise push the
// border outside the output.
func clampToOutputEdges(b geom.Box, bound geom.Box, margin int32) geom.Box {
	minX, minY := bound.X+margin, bound.Y+margin
	maxX, maxY := bound.Right()-margin, bound.Bottom()-margin
	if b.X < minX {
		b.Width -= minX - b.X
		b.X = minX
	}
	if b.Y < minY {
		b.Height -= minY - b.Y
		b.Y = minY
	}
	if b.Right() > maxX {
		b.Width = maxX - b.X
	}
	if b.Bottom() > maxY {
		b.Height = maxY - b.Y
	}
	return b
}

// PressButton implements the button-press half of spec.md §4.7's
// transitions: on the first button pressed while the pointer modifier is
// held and the hit view is not fullscreen, enter move/resize (left/right)
// or request the view close (middle).
func (c *Cursor) PressButton(hit HitResult, button ButtonKind) {
	c.PressedCount++
	if c.PressedCount != 1 || !c.modifierHeld || hit.View == nil || hit.View.Current.Fullscreen {
		return
	}
	v := hit.View
	switch button {
	case ButtonLeft:
		c.BeginMove(v)
	case ButtonRight:
		c.BeginResize(v, resizeEdgesFor(v.Pending.Box, c.X, c.Y))
	case ButtonMiddle:
		v.Close()
	}
}

// BeginMove enters move mode for v, computing the grab offset from the
// cursor's current position. Used both by PressButton and by the backend's
// xdg_toplevel.move request handler.
func (c *Cursor) BeginMove(v *view.View) {
	v.Pending.Float = true
	c.Mode = Mode{
		Kind:  ModeMove,
		View:  v,
		grabX: c.X - v.Pending.Box.X,
		grabY: c.Y - v.Pending.Box.Y,
	}
}

// BeginResize enters resize mode for v against the given edges, used both
// by PressButton (edges inferred from the grabbed corner) and the
// backend's xdg_toplevel.resize request handler (edges supplied by the
// client).
func (c *Cursor) BeginResize(v *view.View, edges geom.Edges) {
	v.Pending.Float = true
	c.Mode = Mode{
		Kind:    ModeResize,
		View:    v,
		Edges:   edges,
		XOffset: c.X - v.Pending.Box.X,
		YOffset: c.Y - v.Pending.Box.Y,
	}
}

// resizeEdgesFor picks the nearest edges to (x, y) within box, matching
// server.go's beginInteractive corner-detection.
func resizeEdgesFor(box geom.Box, x, y int32) geom.Edges {
	var e geom.Edges
	midX := box.X + box.Width/2
	midY := box.Y + box.Height/2
	if x < midX {
		e |= geom.EdgeLeft
	} else {
		e |= geom.EdgeRight
	}
	if y < midY {
		e |= geom.EdgeTop
	} else {
		e |= geom.EdgeBottom
	}
	return e
}

// ReleaseButton implements spec.md §4.7's "pressed_count returning to 0":
// leave back to passthrough and re-run hit-testing at the current
// position.
func (c *Cursor) ReleaseButton(o *output.Output, focused *view.View) {
	if c.PressedCount > 0 {
		c.PressedCount--
	}
	if c.PressedCount == 0 && c.Mode.Kind != ModePassthrough {
		c.Mode = Mode{Kind: ModePassthrough}
		c.Motion(o, focused, c.X, c.Y)
	}
}

// ButtonKind identifies which pointer button an event concerns.
type ButtonKind int

const (
	ButtonLeft ButtonKind = iota
	ButtonRight
	ButtonMiddle
)
