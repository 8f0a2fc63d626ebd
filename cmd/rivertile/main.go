// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command rivertile is the trivial reference layout_v2 client: a
// master-stack tiler, speaking the newline-JSON protocol in
// internal/layout/protocol.go over stdin/stdout. It generalizes the split
// direction idea in tiler/btree.go (each split alternates vertical and
// horizontal) into a flat main-column/stack-column layout, since layout_v2
// hands the client a flat, unordered burst of views per demand rather than
// a tree of persistent per-app containers.
package main

import (
	"fmt"
	"os"

	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/layout"
	"github.com/sirupsen/logrus"
)

// tunables mirrors the compositor's river-control set-layout-value/
// mod-layout-value vocabulary for this layout: how many views sit in the
// main column, and what fraction of the usable width the main column
// takes up (24.8 fixed point, matching layout_v2's FixedValue).
type tunables struct {
	mainCount int32
	mainRatio int32 // 24.8 fixed point; 0 means "use default"
	outerGap  int32
	innerGap  int32
}

func defaultTunables() tunables {
	return tunables{mainCount: 1, mainRatio: 153, outerGap: 0, innerGap: 0} // 153/256 ≈ 0.6
}

func main() {
	logrus.SetOutput(os.Stderr)
	conn := layout.NewConn(stdio{os.Stdin, os.Stdout})
	t := defaultTunables()

	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			return
		}
		switch env.Type {
		case layout.MsgLayoutDemand:
			if err := handleDemand(conn, env, &t); err != nil {
				logrus.WithError(err).Warningln("rivertile: demand handling failed")
				return
			}
		case layout.MsgSetIntValue, layout.MsgModIntValue:
			applyIntTunable(&t, env)
		case layout.MsgSetFixedValue, layout.MsgModFixedValue:
			applyFixedTunable(&t, env)
		case layout.MsgError:
			logrus.WithField("msg", env.ErrorMsg).Errorln("rivertile: compositor reported a protocol error")
			return
		}
	}
}

// stdio adapts the separate stdin/stdout handles into the single
// io.ReadWriteCloser layout.Conn wants.
type stdio struct {
	in  *os.File
	out *os.File
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s stdio) Close() error                { return s.out.Close() }

func handleDemand(conn *layout.Conn, demand layout.Envelope, t *tunables) error {
	views := make([]layout.Envelope, 0, demand.ViewCount)
	for len(views) < demand.ViewCount {
		env, err := conn.ReadEnvelope()
		if err != nil {
			return err
		}
		if env.Type != layout.MsgAdvertiseView {
			continue
		}
		views = append(views, env)
	}
	if env, err := conn.ReadEnvelope(); err != nil {
		return err
	} else if env.Type != layout.MsgAdvertiseDone {
		return fmt.Errorf("expected advertise_done, got %s", env.Type)
	}

	boxes := masterStack(geom.Box{Width: int32(demand.UsableWidth), Height: int32(demand.UsableHeight)}, len(views), *t)
	for _, b := range boxes {
		if err := conn.WriteEnvelope(layout.Envelope{
			Type: layout.MsgPushViewDimensions, Serial: demand.Serial,
			X: b.X, Y: b.Y, W: uint32(b.Width), H: uint32(b.Height),
		}); err != nil {
			return err
		}
	}
	return conn.WriteEnvelope(layout.Envelope{Type: layout.MsgCommit, Serial: demand.Serial})
}

// masterStack splits usable into a main column holding up to mainCount
// views, stacked vertically within the column, and the remainder in a
// second, narrower stack column, also stacked vertically. With only one
// column's worth of views it falls back to a single full-width column.
func masterStack(usable geom.Box, n int, t tunables) []geom.Box {
	if n == 0 {
		return nil
	}
	usable = geom.Box{
		X: usable.X + t.outerGap, Y: usable.Y + t.outerGap,
		Width: usable.Width - 2*t.outerGap, Height: usable.Height - 2*t.outerGap,
	}
	mainCount := int(t.mainCount)
	if mainCount > n {
		mainCount = n
	}
	if mainCount < 0 {
		mainCount = 0
	}
	stackCount := n - mainCount

	ratio := t.mainRatio
	if ratio <= 0 || ratio >= 256 {
		ratio = 153
	}

	var mainWidth int32
	switch {
	case mainCount == 0:
		mainWidth = 0
	case stackCount == 0:
		mainWidth = usable.Width
	default:
		mainWidth = int32(int64(usable.Width) * int64(ratio) / 256)
	}

	boxes := make([]geom.Box, 0, n)
	boxes = append(boxes, columnOf(geom.Box{X: usable.X, Y: usable.Y, Width: mainWidth, Height: usable.Height}, mainCount, t.innerGap)...)
	if stackCount > 0 {
		stackBox := geom.Box{X: usable.X + mainWidth, Y: usable.Y, Width: usable.Width - mainWidth, Height: usable.Height}
		boxes = append(boxes, columnOf(stackBox, stackCount, t.innerGap)...)
	}
	return boxes
}

// columnOf splits box into count equal-height rows separated by gap.
func columnOf(box geom.Box, count int, gap int32) []geom.Box {
	if count <= 0 {
		return nil
	}
	out := make([]geom.Box, count)
	height := (box.Height - gap*int32(count-1)) / int32(count)
	y := box.Y
	for i := 0; i < count; i++ {
		h := height
		if i == count-1 {
			h = box.Bottom() - y
		}
		out[i] = geom.Box{X: box.X, Y: y, Width: box.Width, Height: h}
		y += h + gap
	}
	return out
}

func applyIntTunable(t *tunables, env layout.Envelope) {
	switch env.Name {
	case "main_count":
		if env.Type == layout.MsgModIntValue {
			t.mainCount += env.IntValue
		} else {
			t.mainCount = env.IntValue
		}
		if t.mainCount < 0 {
			t.mainCount = 0
		}
	case "outer_gap":
		applyDelta(&t.outerGap, env)
	case "inner_gap":
		applyDelta(&t.innerGap, env)
	}
}

func applyFixedTunable(t *tunables, env layout.Envelope) {
	if env.Name != "main_ratio" {
		return
	}
	if env.Type == layout.MsgModFixedValue {
		t.mainRatio += env.FixedValue
	} else {
		t.mainRatio = env.FixedValue
	}
	if t.mainRatio < 1 {
		t.mainRatio = 1
	}
	if t.mainRatio > 255 {
		t.mainRatio = 255
	}
}

func applyDelta(field *int32, env layout.Envelope) {
	if env.Type == layout.MsgModIntValue {
		*field += env.IntValue
	} else {
		*field = env.IntValue
	}
	if *field < 0 {
		*field = 0
	}
}
