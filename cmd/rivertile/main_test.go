// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"testing"

	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/layout"
)

func TestMasterStackSingleViewFillsUsable(t *testing.T) {
	usable := geom.Box{Width: 1000, Height: 800}
	boxes := masterStack(usable, 1, defaultTunables())
	if len(boxes) != 1 {
		t.Fatalf("expected 1 box, got %d", len(boxes))
	}
	if boxes[0] != usable {
		t.Errorf("single view should fill usable area, got %+v", boxes[0])
	}
}

func TestMasterStackZeroViewsReturnsNothing(t *testing.T) {
	if boxes := masterStack(geom.Box{Width: 1000, Height: 800}, 0, defaultTunables()); boxes != nil {
		t.Errorf("expected nil for zero views, got %v", boxes)
	}
}

func TestMasterStackSplitsMainAndStackColumns(t *testing.T) {
	usable := geom.Box{Width: 1000, Height: 800}
	tun := tunables{mainCount: 1, mainRatio: 128} // 128/256 = 0.5
	boxes := masterStack(usable, 3, tun)
	if len(boxes) != 3 {
		t.Fatalf("expected 3 boxes, got %d", len(boxes))
	}

	main := boxes[0]
	if main.Width != 500 {
		t.Errorf("main column width = %d, want 500", main.Width)
	}
	if main.Height != 800 {
		t.Errorf("sole main view should take full height, got %d", main.Height)
	}

	stack1, stack2 := boxes[1], boxes[2]
	if stack1.X != 500 || stack2.X != 500 {
		t.Errorf("stack column should start at x=500, got %d and %d", stack1.X, stack2.X)
	}
	if stack1.Width != 500 || stack2.Width != 500 {
		t.Errorf("stack column should take remaining width, got %d and %d", stack1.Width, stack2.Width)
	}
	if stack1.Height+stack2.Height != 800 {
		t.Errorf("stack rows should partition full height, got %d+%d", stack1.Height, stack2.Height)
	}
}

func TestMasterStackMainCountClampedToViewCount(t *testing.T) {
	usable := geom.Box{Width: 1000, Height: 800}
	tun := tunables{mainCount: 5, mainRatio: 153}
	boxes := masterStack(usable, 2, tun)
	if len(boxes) != 2 {
		t.Fatalf("expected 2 boxes, got %d", len(boxes))
	}
	for _, b := range boxes {
		if b.Width != usable.Width {
			t.Errorf("all views should be in the main column when mainCount >= n, got width %d", b.Width)
		}
	}
}

func TestMasterStackAppliesOuterGap(t *testing.T) {
	usable := geom.Box{X: 0, Y: 0, Width: 1000, Height: 800}
	tun := tunables{mainCount: 1, mainRatio: 153, outerGap: 10}
	boxes := masterStack(usable, 1, tun)
	want := geom.Box{X: 10, Y: 10, Width: 980, Height: 780}
	if boxes[0] != want {
		t.Errorf("masterStack(outerGap=10) = %+v, want %+v", boxes[0], want)
	}
}

func TestColumnOfSplitsEqualHeightRows(t *testing.T) {
	box := geom.Box{X: 0, Y: 0, Width: 200, Height: 300}
	rows := columnOf(box, 3, 0)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	var total int32
	for _, r := range rows {
		if r.Width != 200 {
			t.Errorf("row width = %d, want 200", r.Width)
		}
		total += r.Height
	}
	if total != 300 {
		t.Errorf("row heights should sum to box height, got %d", total)
	}
}

func TestColumnOfAppliesInnerGap(t *testing.T) {
	box := geom.Box{X: 0, Y: 0, Width: 200, Height: 300}
	rows := columnOf(box, 2, 10)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Y-rows[0].Bottom() != 10 {
		t.Errorf("gap between rows = %d, want 10", rows[1].Y-rows[0].Bottom())
	}
	if rows[1].Bottom() != box.Bottom() {
		t.Errorf("last row should reach box bottom, got %d want %d", rows[1].Bottom(), box.Bottom())
	}
}

func TestColumnOfZeroCountReturnsNil(t *testing.T) {
	if rows := columnOf(geom.Box{Width: 100, Height: 100}, 0, 0); rows != nil {
		t.Errorf("expected nil for zero count, got %v", rows)
	}
}

func TestApplyIntTunableSetAndMod(t *testing.T) {
	tun := defaultTunables()
	applyIntTunable(&tun, layout.Envelope{Type: layout.MsgSetIntValue, Name: "main_count", IntValue: 3})
	if tun.mainCount != 3 {
		t.Fatalf("after set, mainCount = %d, want 3", tun.mainCount)
	}
	applyIntTunable(&tun, layout.Envelope{Type: layout.MsgModIntValue, Name: "main_count", IntValue: -1})
	if tun.mainCount != 2 {
		t.Fatalf("after mod, mainCount = %d, want 2", tun.mainCount)
	}
}

func TestApplyIntTunableMainCountClampedNonNegative(t *testing.T) {
	tun := tunables{mainCount: 1}
	applyIntTunable(&tun, layout.Envelope{Type: layout.MsgModIntValue, Name: "main_count", IntValue: -5})
	if tun.mainCount != 0 {
		t.Errorf("mainCount = %d, want clamped to 0", tun.mainCount)
	}
}

func TestApplyIntTunableGaps(t *testing.T) {
	tun := defaultTunables()
	applyIntTunable(&tun, layout.Envelope{Type: layout.MsgSetIntValue, Name: "outer_gap", IntValue: 5})
	applyIntTunable(&tun, layout.Envelope{Type: layout.MsgSetIntValue, Name: "inner_gap", IntValue: 8})
	if tun.outerGap != 5 || tun.innerGap != 8 {
		t.Errorf("gaps = (%d, %d), want (5, 8)", tun.outerGap, tun.innerGap)
	}
	applyIntTunable(&tun, layout.Envelope{Type: layout.MsgModIntValue, Name: "outer_gap", IntValue: -100})
	if tun.outerGap != 0 {
		t.Errorf("outerGap = %d, want clamped to 0", tun.outerGap)
	}
}

func TestApplyFixedTunableClampedToRange(t *testing.T) {
	tun := defaultTunables()
	applyFixedTunable(&tun, layout.Envelope{Type: layout.MsgSetFixedValue, Name: "main_ratio", FixedValue: 500})
	if tun.mainRatio != 255 {
		t.Errorf("mainRatio = %d, want clamped to 255", tun.mainRatio)
	}
	applyFixedTunable(&tun, layout.Envelope{Type: layout.MsgSetFixedValue, Name: "main_ratio", FixedValue: -10})
	if tun.mainRatio != 1 {
		t.Errorf("mainRatio = %d, want clamped to 1", tun.mainRatio)
	}
}

func TestApplyFixedTunableIgnoresUnknownName(t *testing.T) {
	tun := defaultTunables()
	before := tun
	applyFixedTunable(&tun, layout.Envelope{Type: layout.MsgSetFixedValue, Name: "unknown", FixedValue: 10})
	if tun != before {
		t.Errorf("unknown tunable name should be a no-op, got %+v", tun)
	}
}
