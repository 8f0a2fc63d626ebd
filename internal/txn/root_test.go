// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package txn

import (
	"testing"
	"time"

	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/output"
	"github.com/ifreund/river/internal/shellcap"
	"github.com/ifreund/river/internal/stack"
	"github.com/ifreund/river/internal/view"
)

// fakeShell is a deterministic, test-only shellcap.Capabilities: Configure
// records the box and returns an incrementing serial, driven manually by
// the test instead of a real client process acknowledging asynchronously.
type fakeShell struct {
	serial      uint32
	constraints geom.Constraints
	lastBox     geom.Box
}

func (f *fakeShell) Configure(box geom.Box) (uint32, bool) {
	f.serial++
	f.lastBox = box
	return f.serial, true
}
func (f *fakeShell) Close()                           {}
func (f *fakeShell) GetConstraints() geom.Constraints { return f.constraints }
func (f *fakeShell) SetActivated(bool)                {}
func (f *fakeShell) SetFullscreen(bool)                {}
func (f *fakeShell) AppID() (shellcap.AppID, bool)     { return "", false }
func (f *fakeShell) HasConfigureSerial() bool          { return true }

// fakeTimer satisfies Timer; the test fires the deadline directly instead
// of sleeping in wall-clock time.
type fakeTimer struct{ stopped bool }

func (t *fakeTimer) Stop() bool { already := t.stopped; t.stopped = true; return !already }

func newTestRoot() (*Root, *output.Output) {
	r := NewRoot()
	r.afterFunc = func(d time.Duration, f func()) Timer {
		return &fakeTimer{}
	}
	out := output.New(geom.Box{Width: 800, Height: 600})
	out.Usable = out.Full
	r.AddOutput(out)
	return r, out
}

func TestAtomicResizeCommitsTogether(t *testing.T) {
	r, out := newTestRoot()

	s1 := &fakeShell{}
	v1 := view.New(s1, out.ID, 1)
	out.Views.Append(v1)

	s2 := &fakeShell{}
	v2 := view.New(s2, out.ID, 1)
	out.Views.Append(v2)

	v1.Pending.Box = geom.Box{X: 0, Y: 0, Width: 400, Height: 600}
	v2.Pending.Box = geom.Box{X: 400, Y: 0, Width: 400, Height: 600}

	r.mu.Lock()
	r.startTransactionLocked()
	r.mu.Unlock()

	if r.Phase() != PhaseAwaiting {
		t.Fatalf("expected awaiting phase, got %v", r.Phase())
	}

	r.NotifyConfigured(v1, s1.serial)
	if v1.HasPendingSerial {
		t.Fatal("v1 should have acknowledged")
	}
	if r.Phase() != PhaseAwaiting {
		t.Fatalf("transaction should still be awaiting v2, got %v", r.Phase())
	}
	if v1.Current.Box.Width == 400 {
		t.Fatal("current geometry must not change before the full transaction commits")
	}

	r.NotifyConfigured(v2, s2.serial)
	if r.Phase() != PhaseIdle {
		t.Fatalf("expected idle after both acks, got %v", r.Phase())
	}
	if v1.Current.Box.Width != 400 || v2.Current.Box.X != 400 {
		t.Fatalf("geometry not committed: v1=%+v v2=%+v", v1.Current.Box, v2.Current.Box)
	}
}

func TestDeadlineCommitsWithMissingAck(t *testing.T) {
	r, out := newTestRoot()

	s1 := &fakeShell{}
	v1 := view.New(s1, out.ID, 1)
	out.Views.Append(v1)
	s2 := &fakeShell{}
	v2 := view.New(s2, out.ID, 1)
	out.Views.Append(v2)

	v1.Pending.Box = geom.Box{Width: 400, Height: 600}
	v2.Pending.Box = geom.Box{X: 400, Width: 400, Height: 600}

	r.mu.Lock()
	r.startTransactionLocked()
	r.mu.Unlock()

	r.NotifyConfigured(v1, s1.serial)
	if r.Phase() != PhaseAwaiting {
		t.Fatalf("expected still awaiting v2, got %v", r.Phase())
	}

	r.onDeadline()

	if r.Phase() != PhaseIdle {
		t.Fatalf("expected idle after deadline, got %v", r.Phase())
	}
	if v2.HasPendingSerial {
		t.Fatal("v2's pending serial should be cleared at deadline")
	}
	if v2.Current.Box.Width != 400 {
		t.Fatalf("v2 should use its last configured (inflight) geometry, got %+v", v2.Current.Box)
	}
}

func TestSwapTwiceIsStackOrderIdentity(t *testing.T) {
	s := stack.New[*view.View]()
	sh := &fakeShell{}
	v1 := view.New(sh, [16]byte{}, 1)
	v2 := view.New(sh, [16]byte{}, 1)
	n1 := s.Append(v1)
	n2 := s.Append(v2)
	s.Swap(n1, n2)
	s.Swap(n1, n2)
	got := s.Iterator(stack.Node[*view.View]{}, stack.AllTags).Collect()
	if got[0] != v1 || got[1] != v2 {
		t.Fatalf("double swap should be identity, order was not restored")
	}
}
