// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package layout

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

// fakeConn is an io.ReadWriteCloser backed by an in-memory buffer, letting
// tests inspect exactly what bytes a Client wrote to the wire without a
// real process on the other end.
type fakeConn struct {
	buf bytes.Buffer
}

func (f *fakeConn) Read(p []byte) (int, error)  { return f.buf.Read(p) }
func (f *fakeConn) Write(p []byte) (int, error) { return f.buf.Write(p) }
func (f *fakeConn) Close() error                { return nil }

func (f *fakeConn) frames(t *testing.T) []Envelope {
	t.Helper()
	scan := bufio.NewScanner(bytes.NewReader(f.buf.Bytes()))
	var out []Envelope
	for scan.Scan() {
		var env Envelope
		if err := json.Unmarshal(scan.Bytes(), &env); err != nil {
			t.Fatalf("decoding frame %q: %v", scan.Text(), err)
		}
		out = append(out, env)
	}
	return out
}

func newTestClient() (*Client, *fakeConn) {
	fc := &fakeConn{}
	conn := NewConn(fc)
	c := NewClient(conn, "test-layout", uuid.New())
	return c, fc
}

func TestSetTunableEmitsSetIntValueFrame(t *testing.T) {
	c, fc := newTestClient()
	c.SetTunable("main_count", TunableValue{Kind: TunableInt, Int: 3})

	frames := fc.frames(t)
	if len(frames) != 1 {
		t.Fatalf("expected exactly one frame, got %d", len(frames))
	}
	if frames[0].Type != MsgSetIntValue || frames[0].Name != "main_count" || frames[0].IntValue != 3 {
		t.Fatalf("unexpected frame: %+v", frames[0])
	}
}

func TestSetTunableEmitsSetFixedValueFrame(t *testing.T) {
	c, fc := newTestClient()
	c.SetTunable("main_ratio", TunableValue{Kind: TunableFixed, Fixed: 0x80})

	frames := fc.frames(t)
	if len(frames) != 1 {
		t.Fatalf("expected exactly one frame, got %d", len(frames))
	}
	if frames[0].Type != MsgSetFixedValue || frames[0].FixedValue != 0x80 {
		t.Fatalf("unexpected frame: %+v", frames[0])
	}
}

func TestModTunableEmitsDeltaNotMergedValue(t *testing.T) {
	c, fc := newTestClient()
	c.SetTunable("main_count", TunableValue{Kind: TunableInt, Int: 3})
	c.ModTunable("main_count", TunableValue{Kind: TunableInt, Int: 2})

	v, ok := c.Tunable("main_count")
	if !ok || v.Int != 5 {
		t.Fatalf("expected local tunable merged to 5, got %+v (ok=%v)", v, ok)
	}

	frames := fc.frames(t)
	if len(frames) != 2 {
		t.Fatalf("expected two frames, got %d", len(frames))
	}
	mod := frames[1]
	if mod.Type != MsgModIntValue || mod.IntValue != 2 {
		t.Fatalf("expected mod frame to carry the delta (2), got %+v", mod)
	}
}

func TestModTunableStringAlwaysEmitsSet(t *testing.T) {
	c, fc := newTestClient()
	c.ModTunable("namespace_label", TunableValue{Kind: TunableString, String: "main"})

	v, ok := c.Tunable("namespace_label")
	if !ok || v.String != "main" {
		t.Fatalf("expected local tunable set to %q, got %+v (ok=%v)", "main", v, ok)
	}

	frames := fc.frames(t)
	if len(frames) != 1 || frames[0].Type != MsgSetStringValue || frames[0].StringValue != "main" {
		t.Fatalf("unexpected frame: %+v", frames)
	}
}
