// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package seat

import (
	"testing"

	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/shellcap"
	"github.com/ifreund/river/internal/stack"
	"github.com/ifreund/river/internal/view"
)

type stubShell struct{ activated bool }

func (s *stubShell) Configure(geom.Box) (uint32, bool)  { return 1, true }
func (s *stubShell) Close()                             {}
func (s *stubShell) GetConstraints() geom.Constraints   { return geom.Constraints{} }
func (s *stubShell) SetActivated(a bool)                { s.activated = a }
func (s *stubShell) SetFullscreen(bool)                 {}
func (s *stubShell) AppID() (shellcap.AppID, bool)      { return "", false }
func (s *stubShell) HasConfigureSerial() bool           { return true }

type recordingEnterer struct{ last Focus }

func (r *recordingEnterer) NotifyKeyboardEnter(f Focus) { r.last = f }

func TestSetFocusViewActivatesAndDeactivatesSymmetrically(t *testing.T) {
	s1, s2 := &stubShell{}, &stubShell{}
	v1 := view.New(s1, [16]byte{}, 1)
	v2 := view.New(s2, [16]byte{}, 1)

	ent := &recordingEnterer{}
	seat := New("default")
	seat.Enterer = ent

	seat.SetFocusView(v1, stack.Node[*view.View]{})
	if !s1.activated {
		t.Fatal("v1 should be activated")
	}
	if ent.last.Kind != FocusView || ent.last.View != v1 {
		t.Fatal("enterer should have observed v1")
	}

	seat.SetFocusView(v2, stack.Node[*view.View]{})
	if s1.activated {
		t.Fatal("v1 should have been deactivated when v2 took focus")
	}
	if !s2.activated {
		t.Fatal("v2 should be activated")
	}
}

func TestSetFocusViewSameViewIsNoop(t *testing.T) {
	sh := &stubShell{}
	v := view.New(sh, [16]byte{}, 1)
	seat := New("default")
	seat.SetFocusView(v, stack.Node[*view.View]{})
	sh.activated = false // tamper to detect a spurious re-activation
	seat.SetFocusView(v, stack.Node[*view.View]{})
	if sh.activated {
		t.Fatal("re-focusing the already-focused view should be a no-op")
	}
}

func TestInhibitClearsFocusAndEntersLockedMode(t *testing.T) {
	sh := &stubShell{}
	v := view.New(sh, [16]byte{}, 1)
	seat := New("default")
	seat.SetFocusView(v, stack.Node[*view.View]{})

	seat.Inhibit("locker")
	if seat.Mode() != LockedMode {
		t.Fatalf("expected locked mode, got %d", seat.Mode())
	}
	if seat.Focus().Kind != FocusNone {
		t.Fatal("focus should be cleared while inhibited")
	}
	if sh.activated {
		t.Fatal("previously focused view should be deactivated")
	}

	if ok := seat.SetMode(5); ok {
		t.Fatal("mode changes should be rejected while locked")
	}

	if !seat.Deinhibit("locker") {
		t.Fatal("deinhibit by the inhibiting client should succeed")
	}
	if seat.Mode() != DefaultMode {
		t.Fatalf("expected mode restored to default, got %d", seat.Mode())
	}
}

func TestDeinhibitByWrongClientIsRejected(t *testing.T) {
	seat := New("default")
	seat.Inhibit("locker")
	if seat.Deinhibit("someone-else") {
		t.Fatal("deinhibit from a non-inhibiting client must be rejected")
	}
	if seat.Mode() != LockedMode {
		t.Fatal("seat should remain locked")
	}
}

func TestBestCandidatePrefersHighestFocusCount(t *testing.T) {
	vs := stack.New[*view.View]()
	sh := &stubShell{}
	v1 := view.New(sh, [16]byte{}, 1)
	v2 := view.New(sh, [16]byte{}, 1)
	v1.Current.FocusCount = 2
	v2.Current.FocusCount = 5
	vs.Append(v1)
	vs.Append(v2)

	best := BestCandidate(vs, stack.AllTags)
	if best != v2 {
		t.Fatal("expected the view with the higher focus count")
	}
}

func TestBestCandidateRespectsTagFilter(t *testing.T) {
	vs := stack.New[*view.View]()
	sh := &stubShell{}
	v1 := view.New(sh, [16]byte{}, 1)
	v2 := view.New(sh, [16]byte{}, 2)
	v2.Current.FocusCount = 10
	vs.Append(v1)
	vs.Append(v2)

	best := BestCandidate(vs, 1)
	if best != v1 {
		t.Fatal("expected the only view matching the tag filter")
	}
}
