// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package control

import (
	"strings"
	"testing"

	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/output"
	"github.com/ifreund/river/internal/seat"
	"github.com/ifreund/river/internal/shellcap"
	"github.com/ifreund/river/internal/stack"
	"github.com/ifreund/river/internal/txn"
	"github.com/ifreund/river/internal/view"
)

type stubShell struct{ fullscreen bool }

func (s *stubShell) Configure(geom.Box) (uint32, bool) { return 1, true }
func (s *stubShell) Close()                            {}
func (s *stubShell) GetConstraints() geom.Constraints  { return geom.Constraints{} }
func (s *stubShell) SetActivated(bool)                 {}
func (s *stubShell) SetFullscreen(f bool)              { s.fullscreen = f }
func (s *stubShell) AppID() (shellcap.AppID, bool) { return "", false }
func (s *stubShell) HasConfigureSerial() bool      { return true }

func newFixture() (*txn.Root, *output.Output, *seat.Seat, *view.View) {
	r := txn.NewRoot()
	o := output.New(geom.Box{Width: 800, Height: 600})
	r.AddOutput(o)
	v := view.New(&stubShell{}, o.ID, 1)
	o.Views.Append(v)
	s := seat.New("default")
	s.SetFocusView(v, stack.Node[*view.View]{})
	return r, o, s, v
}

func TestSetFocusedTagsZeroIsRejected(t *testing.T) {
	r, o, s, _ := newFixture()
	_, err := Dispatch(r, s, Command{Verb: VerbSetFocusedTags, OutputID: o.ID, Tags: 0})
	if err == nil {
		t.Fatal("expected an error setting output tags to zero")
	}
}

func TestSetFocusedTagsAppliesAndArranges(t *testing.T) {
	r, o, s, _ := newFixture()
	if _, err := Dispatch(r, s, Command{Verb: VerbSetFocusedTags, OutputID: o.ID, Tags: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Pending.Tags != 4 {
		t.Fatalf("expected pending tags 4, got %d", o.Pending.Tags)
	}
}

func TestToggleViewTagsOnFocusedView(t *testing.T) {
	r, o, s, v := newFixture()
	if _, err := Dispatch(r, s, Command{Verb: VerbToggleViewTags, OutputID: o.ID, Tags: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Pending.Tags != 3 {
		t.Fatalf("expected tags 1^2=3, got %d", v.Pending.Tags)
	}
}

func TestCloseWithNoFocusedViewErrors(t *testing.T) {
	r, o, _, _ := newFixture()
	s := seat.New("default")
	if _, err := Dispatch(r, s, Command{Verb: VerbClose, OutputID: o.ID}); err == nil {
		t.Fatal("expected an error closing with no focused view")
	}
}

func TestToggleFullscreenTogglesShellState(t *testing.T) {
	r, o, s, v := newFixture()
	sh := v.Shell.(*stubShell)
	if _, err := Dispatch(r, s, Command{Verb: VerbToggleFullscreen, OutputID: o.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sh.fullscreen {
		t.Fatal("expected fullscreen to be toggled on")
	}
}

func TestSwapWithOnlyOneViewErrors(t *testing.T) {
	r, o, s, _ := newFixture()
	if _, err := Dispatch(r, s, Command{Verb: VerbSwap, OutputID: o.ID, Direction: 1}); err == nil {
		t.Fatal("expected an error swapping with no adjacent view")
	}
}

func TestFocusViewCyclesToNextView(t *testing.T) {
	r, o, s, v1 := newFixture()
	v2 := view.New(&stubShell{}, o.ID, 1)
	o.Views.Append(v2)

	if _, err := Dispatch(r, s, Command{Verb: VerbFocusView, OutputID: o.ID, Direction: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Focus()
	if got.Kind != seat.FocusView || got.View == v1 {
		t.Fatalf("expected focus to move off the original view, got %+v", got)
	}
	_ = v2
}

func TestListOutputsReportsKnownOutputs(t *testing.T) {
	r, o, s, _ := newFixture()
	reply, err := Dispatch(r, s, Command{Verb: VerbListOutputs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, `"outputs_found":1`) {
		t.Fatalf("expected reply to report one output found, got %s", reply)
	}
	if !strings.Contains(reply, idString(o.ID)) {
		t.Fatalf("expected reply to contain output id %s, got %s", idString(o.ID), reply)
	}
}
