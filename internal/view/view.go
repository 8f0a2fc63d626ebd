// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package view holds per-window compositor state: the current/pending/
// inflight geometry snapshots, size constraints, serial tracking and the
// shell capability handle. It generalizes the fields the teacher keeps
// directly on *wlroots.XDGTopLevel plus server.go's ad hoc bookkeeping
// (topLevelList membership, grabGeobox, grabX/grabY) into one entity type
// shared by the transaction engine, cursor and seat packages.
package view

import (
	"github.com/google/uuid"
	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/shellcap"
	"github.com/sirupsen/logrus"
)

// NoSerial marks an outstanding configure that will never be acknowledged
// by a serial (Xwayland windows, spec.md §4.2's "sentinel").
const NoSerial uint32 = 0

// Snapshot is one of a View's three geometry/state records: current,
// pending or inflight. Value semantics: the transaction engine copies it
// wholesale at commit (design note §9).
type Snapshot struct {
	Box        geom.Box
	Tags       uint32
	Float      bool
	Fullscreen bool
	FocusCount int
}

// View is a managed client window.
type View struct {
	ID uuid.UUID

	Shell shellcap.Capabilities

	Current  Snapshot
	Pending  Snapshot
	Inflight Snapshot

	Constraints geom.Constraints
	FloatBox    geom.Box

	// PendingSerial is set iff a configure is outstanding and
	// unacknowledged (spec.md §3 invariant). HasPendingSerial
	// distinguishes "serial 0 is outstanding" from "nothing outstanding"
	// for shell kinds that use NoSerial as a real value.
	PendingSerial    uint32
	HasPendingSerial bool

	// OutputID is the id of the Output this view currently belongs to. A
	// View belongs to exactly one Output at a time (spec.md §3); switching
	// outputs is remove+insert, never mutated in place.
	OutputID uuid.UUID

	log *logrus.Entry
}

// New constructs a View with tags already set on every snapshot (a View's
// tag set must never be zero).
func New(shell shellcap.Capabilities, outputID uuid.UUID, tags uint32) *View {
	if tags == 0 {
		tags = 1
	}
	snap := Snapshot{Tags: tags}
	id := uuid.New()
	return &View{
		ID:          id,
		Shell:       shell,
		Current:     snap,
		Pending:     snap,
		Inflight:    snap,
		Constraints: shell.GetConstraints(),
		OutputID:    outputID,
		log:         logrus.WithField("view", id),
	}
}

// CurrentTags and PendingTags satisfy stack.Taggable.
func (v *View) CurrentTags() uint32 { return v.Current.Tags }
func (v *View) PendingTags() (uint32, bool) {
	return v.Pending.Tags, true
}

// SetPendingTags applies newTags to Pending.Tags, silently ignoring the
// request if it would zero the tag set (spec.md §4.6 focus rules).
func (v *View) SetPendingTags(newTags uint32) bool {
	if newTags == 0 {
		v.log.Debugln("ignoring attempt to zero view tags")
		return false
	}
	v.Pending.Tags = newTags
	return true
}

// ApplyConstraints clamps Pending.Box's width/height into [min, max].
func (v *View) ApplyConstraints() {
	w, h := v.Constraints.Apply(v.Pending.Box.Width, v.Pending.Box.Height)
	v.Pending.Box.Width, v.Pending.Box.Height = w, h
}

// NeedsConfigure reports whether Pending.Box differs from what the client
// currently believes (its Inflight box if a configure is outstanding, else
// its Current box).
func (v *View) NeedsConfigure() bool {
	believed := v.Current.Box
	if v.HasPendingSerial {
		believed = v.Inflight.Box
	}
	return believed != v.Pending.Box
}

// Configure instructs the client to take Pending.Box, recording the serial
// (or sentinel) it must later acknowledge. Returns immediately; the caller
// must still await NotifyConfigured.
func (v *View) Configure() {
	v.Inflight = v.Pending
	serial, ok := v.Shell.Configure(v.Pending.Box)
	if !ok {
		serial = NoSerial
	}
	v.PendingSerial = serial
	v.HasPendingSerial = true
	v.log.WithField("serial", serial).Debugln("configure")
}

// AcknowledgeSerial clears PendingSerial if serial matches the outstanding
// one. Returns false (a no-op, logged as a warning) for an unknown serial,
// per spec.md §4.2's "protocol-level mismatches ... ignored with a
// warning".
func (v *View) AcknowledgeSerial(serial uint32) bool {
	if !v.HasPendingSerial {
		return false
	}
	if v.Shell.HasConfigureSerial() && serial != v.PendingSerial {
		v.log.WithFields(logrus.Fields{"got": serial, "want": v.PendingSerial}).
			Warningln("acknowledged unknown serial")
		return false
	}
	v.HasPendingSerial = false
	return true
}

// ApplyPending copies the tags/float/fullscreen fields from Pending into
// Current. Geometry is committed separately by the transaction engine at
// commit time; ApplyPending only toggles what would change what the
// layout produces.
func (v *View) ApplyPending() {
	v.Current.Tags = v.Pending.Tags
	v.Current.Float = v.Pending.Float
	v.Current.Fullscreen = v.Pending.Fullscreen
}

// CommitSnapshot atomically copies Pending into Current in full (geometry
// included) and clears PendingSerial, the transaction engine's per-view
// half of spec.md §4.4's commit step.
func (v *View) CommitSnapshot() {
	v.Current = v.Pending
	v.HasPendingSerial = false
}

// CancelPendingSerial clears an outstanding configure without waiting for
// an acknowledgement — spec.md §4.4's "a view that closes mid-transaction
// has its pending_serial cleared and is treated as acknowledged".
func (v *View) CancelPendingSerial() {
	v.HasPendingSerial = false
}

// Close asks the client to close. The eventual unmap is observed later,
// asynchronously, by the caller's shell-surface unmap handler.
func (v *View) Close() {
	v.Shell.Close()
}

// SetActivated keeps FocusCount equal to the number of seats currently
// focusing v (spec.md §3's data-model invariant): it increments on
// activate and decrements on deactivate, rather than only ever growing.
func (v *View) SetActivated(activated bool) {
	v.Shell.SetActivated(activated)
	if activated {
		v.Current.FocusCount++
		v.Pending.FocusCount++
	} else {
		if v.Current.FocusCount > 0 {
			v.Current.FocusCount--
		}
		if v.Pending.FocusCount > 0 {
			v.Pending.FocusCount--
		}
	}
}

func (v *View) SetFullscreen(fullscreen bool) {
	v.Pending.Fullscreen = fullscreen
	v.Shell.SetFullscreen(fullscreen)
}

// AppID reports the client application id, when the shell kind exposes one.
func (v *View) AppID() (shellcap.AppID, bool) {
	return v.Shell.AppID()
}
