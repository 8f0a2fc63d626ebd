// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package txn implements the Root/transaction engine: the global
// arrangement coordinator that computes pending geometry across every
// output, issues configures, awaits acknowledgements with a deadline, and
// commits atomically (spec.md §4.4). It is the one part of this
// compositor with no direct analogue in the teacher's tinywl-style
// server.go (which applies each resize immediately); it generalizes the
// same SceneTree().Node().SetPosition()/TopLevelSetSize() calls server.go
// makes inline into a deadline-bounded, multi-view batch.
package txn

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/layout"
	"github.com/ifreund/river/internal/output"
	"github.com/ifreund/river/internal/stack"
	"github.com/ifreund/river/internal/view"
	"github.com/sirupsen/logrus"
)

// Phase is one of the transaction engine's states (spec.md §4.4).
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCollecting
	PhaseConfiguring
	PhaseAwaiting
	PhaseCommitting
)

// DefaultDeadline is the suggested commit_deadline from spec.md §4.4.
const DefaultDeadline = 200 * time.Millisecond

// AfterFunc abstracts time.AfterFunc so tests can drive the deadline
// deterministically instead of sleeping in wall-clock time.
type AfterFunc func(d time.Duration, f func()) Timer

// Timer is the subset of *time.Timer the engine needs.
type Timer interface {
	Stop() bool
}

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Root coordinates every output's arrangement and owns the transaction
// state machine and the layout-namespace registry.
type Root struct {
	mu sync.Mutex

	Outputs  map[uuid.UUID]*output.Output
	Registry *layout.Registry

	Deadline  time.Duration
	afterFunc AfterFunc

	phase       Phase
	outstanding int
	timer       Timer
	dirty       bool // an Arrange() arrived while a transaction was live

	// RepaintAll is called once per commit; the backend glue wires this to
	// whatever triggers a new scene-graph frame.
	RepaintAll func()

	log *logrus.Entry
}

func NewRoot() *Root {
	return &Root{
		Outputs:   make(map[uuid.UUID]*output.Output),
		Registry:  layout.NewRegistry(),
		Deadline:  DefaultDeadline,
		afterFunc: realAfterFunc,
		log:       logrus.WithField("component", "root"),
	}
}

func (r *Root) AddOutput(o *output.Output) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outputs[o.ID] = o
}

func (r *Root) RemoveOutput(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Outputs, id)
}

// Arrange recomputes layer exclusive zones and view geometry for every
// output, then requests a transaction (spec.md §4.4 "arrange()").
func (r *Root) Arrange() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arrangeLocked()
	r.requestTransactionLocked()
}

func (r *Root) arrangeLocked() {
	for _, o := range r.Outputs {
		o.ArrangeLayers()
		if err := o.ArrangeViews(); err != nil {
			r.log.WithField("output", o.ID).WithError(err).Warningln("arrangeViews failed")
		}
	}
}

// requestTransactionLocked is spec.md §5's supersession rule: "If
// arrangement A's transaction is in flight when arrangement B is
// requested, B is queued; exactly one fresh arrangement is computed when A
// settles, regardless of how many arrange() calls arrived during A."
func (r *Root) requestTransactionLocked() {
	if r.phase != PhaseIdle {
		r.dirty = true
		return
	}
	r.startTransactionLocked()
}

// startTransactionLocked is spec.md §4.4's startTransaction(): configure
// every view that needs it, and either commit immediately (nothing
// outstanding) or arm the deadline.
func (r *Root) startTransactionLocked() {
	r.phase = PhaseConfiguring
	r.outstanding = 0

	for _, o := range r.Outputs {
		it := o.Views.Iterator(stack.Node[*view.View]{}, stack.AllTags)
		for {
			n, ok := it.Next()
			if !ok {
				break
			}
			v := n.Value()
			v.ApplyConstraints()
			if v.NeedsConfigure() {
				v.Configure()
				if v.Shell.HasConfigureSerial() {
					r.outstanding++
				} else {
					// Shell kinds with no configure acknowledgement (e.g.
					// Xwayland) are treated as acknowledged immediately,
					// spec.md §4.2's sentinel path.
					v.AcknowledgeSerial(view.NoSerial)
				}
			}
		}
	}

	if r.outstanding == 0 {
		r.commitLocked()
		return
	}

	r.phase = PhaseAwaiting
	r.timer = r.afterFunc(r.Deadline, r.onDeadline)
}

func (r *Root) onDeadline() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseAwaiting {
		return
	}
	r.log.WithField("outstanding", r.outstanding).Warningln("transaction deadline fired with outstanding acks")
	r.commitLocked()
}

// NotifyConfigured is called when viewID acknowledges serial. If this
// drains the outstanding-ack counter to zero before the deadline, commit
// happens immediately (spec.md §4.4).
func (r *Root) NotifyConfigured(v *view.View, serial uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseAwaiting {
		return
	}
	if !v.AcknowledgeSerial(serial) {
		return
	}
	r.outstanding--
	if r.outstanding <= 0 {
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}
		r.commitLocked()
	}
}

// ViewClosing must be called when a view unmaps mid-transaction: its
// pending_serial is cleared and it is treated as acknowledged (spec.md
// §4.4).
func (r *Root) ViewClosing(v *view.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.HasPendingSerial {
		v.CancelPendingSerial()
		if r.phase == PhaseAwaiting || r.phase == PhaseConfiguring {
			r.outstanding--
			if r.outstanding <= 0 {
				if r.timer != nil {
					r.timer.Stop()
					r.timer = nil
				}
				r.commitLocked()
			}
		}
	}
}

// commitLocked performs the atomic commit: every participating view's
// pending snapshot becomes current, pending_serial is cleared, and a
// repaint is requested. If an Arrange() was requested while this
// transaction was live, a fresh arrangement now starts from the
// just-committed state.
func (r *Root) commitLocked() {
	r.phase = PhaseCommitting
	for _, o := range r.Outputs {
		it := o.Views.Iterator(stack.Node[*view.View]{}, stack.AllTags)
		for {
			n, ok := it.Next()
			if !ok {
				break
			}
			n.Value().CommitSnapshot()
		}
		o.Current = o.Pending
	}
	r.phase = PhaseIdle
	if r.RepaintAll != nil {
		r.RepaintAll()
	}
	r.log.Debugln("transaction committed")

	if r.dirty {
		r.dirty = false
		r.arrangeLocked()
		r.requestTransactionLocked()
	}
}

// HandleLayoutCommit applies a layout_v2 commit's geometries to the
// relevant output and, if they were applied, requests a transaction — the
// asynchronous half of arrangeViews() for tiled views (spec.md §4.3/§4.5).
func (r *Root) HandleLayoutCommit(outputID uuid.UUID, serial uint32, boxes []geom.Box) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.Outputs[outputID]
	if !ok {
		return
	}
	if o.ApplyLayoutCommit(serial, boxes) {
		r.requestTransactionLocked()
	}
}

// Phase reports the current transaction phase (for tests/introspection).
func (r *Root) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}
