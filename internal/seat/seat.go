// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package seat holds the per-seat focus state machine: the tagged-sum
// focus target, the mode stack used by the input-inhibitor's locked mode,
// and the attached input device list. It generalizes server.go's
// focusTopLevel/moveFrontTopLevel pair (which only ever focus a
// *wlroots.XDGTopLevel and talk straight to wlroots.Seat) into a seam the
// cursor and control packages can drive without a concrete view type.
package seat

import (
	"github.com/ifreund/river/internal/output"
	"github.com/ifreund/river/internal/stack"
	"github.com/ifreund/river/internal/view"
	"github.com/sirupsen/logrus"
)

// FocusKind discriminates a Focus tagged sum (spec.md §4.6).
type FocusKind int

const (
	FocusNone FocusKind = iota
	FocusView
	FocusLayer
)

// Focus is the seat's keyboard focus target: none, a view, or a layer
// surface. Exactly one of View/Layer is meaningful, selected by Kind.
type Focus struct {
	Kind  FocusKind
	View  *view.View
	Layer *output.LayerSurface
}

// LockedMode is the reserved mode id the seat is forced into while an
// input-inhibitor is active (spec.md §4.6).
const LockedMode = 1

// DefaultMode is the mode every new seat starts in.
const DefaultMode = 0

// KeyboardEnterer is the thin seam into the backend's keyboard-focus
// plumbing, generalizing server.go's direct
// server.seat.NotifyKeyboardEnter(surface, keyboard) call.
type KeyboardEnterer interface {
	NotifyKeyboardEnter(focus Focus)
}

// Seat is one logical input seat ("default", spec.md §4.8).
type Seat struct {
	Name string

	focus Focus

	mode     int
	prevMode int

	// InhibitingClient is the appid/identity of the client holding the
	// input-inhibitor exclusive gate, or "" if none.
	InhibitingClient string

	Enterer KeyboardEnterer

	Cursor  any // set by the cursor package to its own *cursor.Cursor; any avoids an import cycle
	Devices []string

	log *logrus.Entry
}

func New(name string) *Seat {
	return &Seat{
		Name: name,
		log:  logrus.WithField("seat", name),
	}
}

func (s *Seat) Focus() Focus { return s.focus }
func (s *Seat) Mode() int    { return s.mode }

// SetFocusView implements spec.md §4.6's focus(view): raise to top of its
// output's render order, deactivate the previous target symmetrically,
// activate and keyboard-enter the new one. Passing nil clears focus.
func (s *Seat) SetFocusView(v *view.View, node stack.Node[*view.View]) {
	if s.focus.Kind == FocusView && s.focus.View == v {
		return
	}
	s.deactivatePrevious()

	if v == nil {
		s.focus = Focus{Kind: FocusNone}
		return
	}

	if s.InhibitingClient != "" {
		if appID, ok := v.AppID(); !ok || string(appID) != s.InhibitingClient {
			s.log.Debugln("rejecting focus: input-inhibitor active for another client")
			return
		}
	}

	s.focus = Focus{Kind: FocusView, View: v}
	v.SetActivated(true)
	if s.Enterer != nil {
		s.Enterer.NotifyKeyboardEnter(s.focus)
	}
}

// SetFocusLayer focuses a layer-shell surface (panels/launchers requesting
// exclusive keyboard interactivity); it has no activated/border state.
func (s *Seat) SetFocusLayer(ls *output.LayerSurface) {
	if s.focus.Kind == FocusLayer && s.focus.Layer == ls {
		return
	}
	s.deactivatePrevious()
	s.focus = Focus{Kind: FocusLayer, Layer: ls}
	if s.Enterer != nil {
		s.Enterer.NotifyKeyboardEnter(s.focus)
	}
}

// ClearFocus is focus(null): deactivates whatever was focused and leaves
// the seat with no keyboard focus target.
func (s *Seat) ClearFocus() {
	s.deactivatePrevious()
	s.focus = Focus{Kind: FocusNone}
}

func (s *Seat) deactivatePrevious() {
	if s.focus.Kind == FocusView && s.focus.View != nil {
		s.focus.View.SetActivated(false)
	}
}

// Inhibit enters the input-inhibitor's exclusive gate for appID: current
// focus is cleared, the previous mode is saved and the seat is forced into
// LockedMode (spec.md §4.6).
func (s *Seat) Inhibit(appID string) {
	if s.InhibitingClient != "" {
		return
	}
	s.InhibitingClient = appID
	s.prevMode = s.mode
	s.mode = LockedMode
	s.ClearFocus()
}

// Deinhibit releases the input-inhibitor gate, restores the previous mode,
// and reports true if the caller should now re-run arrangeLayers + focus
// best-candidate resolution (spec.md §4.6).
func (s *Seat) Deinhibit(appID string) bool {
	if s.InhibitingClient != appID {
		return false
	}
	s.InhibitingClient = ""
	s.mode = s.prevMode
	return true
}

// BestCandidate picks the best view to focus after deinhibiting: the most
// recently focused view still visible under vs's current pending tags, or
// nil if none (spec.md §4.6's "focus(null)" fallback).
func BestCandidate(vs *stack.Stack[*view.View], tags uint32) *view.View {
	it := vs.Iterator(stack.Node[*view.View]{}, tags)
	var best *view.View
	for {
		n, ok := it.Next()
		if !ok {
			break
		}
		v := n.Value()
		if best == nil || v.Current.FocusCount > best.Current.FocusCount {
			best = v
		}
	}
	return best
}

// SetMode switches the seat's keybinding mode. Entering LockedMode directly
// is rejected; that transition is only reachable via Inhibit.
func (s *Seat) SetMode(mode int) bool {
	if mode == LockedMode {
		return false
	}
	s.mode = mode
	return true
}

// AttachDevice records a newly enumerated input device name (spec.md §4.8:
// virtual and physical devices are indistinguishable once attached).
func (s *Seat) AttachDevice(name string) {
	s.Devices = append(s.Devices, name)
}
