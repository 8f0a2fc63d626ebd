// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cursor

import (
	"testing"

	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/output"
	"github.com/ifreund/river/internal/shellcap"
	"github.com/ifreund/river/internal/view"
)

type stubShell struct{}

func (s *stubShell) Configure(geom.Box) (uint32, bool) { return 1, true }
func (s *stubShell) Close()                            {}
func (s *stubShell) GetConstraints() geom.Constraints  { return geom.Constraints{} }
func (s *stubShell) SetActivated(bool)                 {}
func (s *stubShell) SetFullscreen(bool)                {}
func (s *stubShell) AppID() (shellcap.AppID, bool)     { return "", false }
func (s *stubShell) HasConfigureSerial() bool          { return true }

func newOutputWithView(box geom.Box) (*output.Output, *view.View) {
	o := output.New(geom.Box{Width: 1000, Height: 1000})
	v := view.New(&stubShell{}, o.ID, 1)
	v.Current.Box = box
	v.Pending.Box = box
	o.Views.Append(v)
	return o, v
}

func TestHitTestFindsViewUnderPoint(t *testing.T) {
	o, v := newOutputWithView(geom.Box{X: 100, Y: 100, Width: 200, Height: 200})
	hit := HitTest(o, nil, 150, 150)
	if hit.View != v {
		t.Fatal("expected to hit the view")
	}
	if hit.SurfaceX != 50 || hit.SurfaceY != 50 {
		t.Fatalf("expected surface-local coords (50,50), got (%d,%d)", hit.SurfaceX, hit.SurfaceY)
	}
}

func TestHitTestMissesOutsideView(t *testing.T) {
	o, _ := newOutputWithView(geom.Box{X: 100, Y: 100, Width: 200, Height: 200})
	hit := HitTest(o, nil, 5, 5)
	if hit.View != nil {
		t.Fatal("expected no hit")
	}
}

func TestPressButtonEntersMoveModeOnlyWithModifier(t *testing.T) {
	o, v := newOutputWithView(geom.Box{X: 100, Y: 100, Width: 200, Height: 200})
	c := New()
	c.X, c.Y = 150, 150
	hit := HitTest(o, nil, 150, 150)

	c.PressButton(hit, ButtonLeft)
	if c.Mode.Kind != ModePassthrough {
		t.Fatal("without the pointer modifier held, a press must not enter move mode")
	}

	c.PressedCount = 0
	c.SetModifierHeld(true)
	c.PressButton(hit, ButtonLeft)
	if c.Mode.Kind != ModeMove || c.Mode.View != v {
		t.Fatalf("expected move mode over %v, got %+v", v, c.Mode)
	}
	if !v.Pending.Float {
		t.Fatal("entering move mode should mark the view floating")
	}
}

func TestMoveMotionTranslatesViewClampedToOutput(t *testing.T) {
	o, v := newOutputWithView(geom.Box{X: 100, Y: 100, Width: 200, Height: 200})
	c := New()
	c.SetModifierHeld(true)
	c.X, c.Y = 150, 150
	c.PressButton(HitTest(o, nil, 150, 150), ButtonLeft)

	c.Motion(o, nil, 5000, 5000)
	if v.Pending.Box.X+v.Pending.Box.Width > o.Usable.Right() {
		t.Fatalf("view should be clamped inside the output, got box %+v", v.Pending.Box)
	}
}

func TestMoveMotionClampKeepsBorderInsideOutput(t *testing.T) {
	o, v := newOutputWithView(geom.Box{X: 100, Y: 100, Width: 400, Height: 600})
	c := New()
	c.BorderWidth = 2
	c.SetModifierHeld(true)
	c.X, c.Y = 150, 150
	c.PressButton(HitTest(o, nil, 150, 150), ButtonLeft)

	c.Motion(o, nil, 150, -5000)
	if v.Pending.Box.Y != 2 {
		t.Fatalf("expected y clamped to border width 2, got %+v", v.Pending.Box)
	}
}

func TestReleaseButtonReturnsToPassthrough(t *testing.T) {
	o, _ := newOutputWithView(geom.Box{X: 100, Y: 100, Width: 200, Height: 200})
	c := New()
	c.SetModifierHeld(true)
	c.X, c.Y = 150, 150
	c.PressButton(HitTest(o, nil, 150, 150), ButtonLeft)
	if c.Mode.Kind == ModePassthrough {
		t.Fatal("expected move mode before release")
	}

	c.ReleaseButton(o, nil)
	if c.Mode.Kind != ModePassthrough {
		t.Fatal("releasing the last button should return to passthrough")
	}
}

func TestPressButtonIgnoresFullscreenView(t *testing.T) {
	o, v := newOutputWithView(geom.Box{X: 0, Y: 0, Width: 1000, Height: 1000})
	v.Current.Fullscreen = true
	c := New()
	c.SetModifierHeld(true)
	c.X, c.Y = 500, 500
	hit := HitTest(o, nil, 500, 500)
	if hit.View != v {
		t.Fatal("setup error: expected to hit the fullscreen view")
	}
	c.PressButton(hit, ButtonLeft)
	if c.Mode.Kind != ModePassthrough {
		t.Fatal("a fullscreen view must not enter move mode")
	}
}
