// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package layout

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ifreund/river/internal/geom"
	"github.com/sirupsen/logrus"
)

// ViewDescriptor is one entry of an advertise_view burst: the tag set and
// (optional) app id of a tiled view awaiting a proposed geometry.
type ViewDescriptor struct {
	Tags     uint32
	AppID    string
	HasAppID bool
}

// Demand is a live layout_demand: issued until commit or supersession
// (spec.md §3).
type Demand struct {
	Serial      uint32
	ViewCount   int
	collected   []geom.Box
	hasPushed   []bool
	committed   bool
}

// TunableKind discriminates the tagged-sum TunableValue.
type TunableKind int

const (
	TunableInt TunableKind = iota
	TunableFixed
	TunableString
)

// TunableValue is the tagged sum {int, fixed-point (24.8), string} spec.md
// §3/§4.5 tunables are stored as.
type TunableValue struct {
	Kind   TunableKind
	Int    int32
	Fixed  int32 // 24.8 fixed point, matches wire FixedValue
	String string
}

// DemandHook is invoked whenever a tunable change should trigger a fresh
// layout_demand, i.e. the client object is currently bound and active.
// The output package supplies this so layout stays independent of output.
type DemandHook func()

// Client is one registered layout_v2 object: a namespace bound (or not yet
// bound) to an output, a wire connection, and the tunables the layout
// process interprets.
type Client struct {
	ID        uuid.UUID
	Namespace string
	OutputID  uuid.UUID
	Bound     bool

	conn     *Conn
	serial   uint32
	live     *Demand
	tunables map[string]TunableValue
	onChange DemandHook

	log *logrus.Entry
}

func NewClient(conn *Conn, namespace string, outputID uuid.UUID) *Client {
	id := uuid.New()
	return &Client{
		ID:        id,
		Namespace: namespace,
		OutputID:  outputID,
		conn:      conn,
		tunables:  make(map[string]TunableValue),
		log:       logrus.WithFields(logrus.Fields{"layout-client": id, "namespace": namespace}),
	}
}

// SetDemandHook installs the callback used when a tunable changes while
// this client is bound and active.
func (c *Client) SetDemandHook(hook DemandHook) { c.onChange = hook }

func (c *Client) nextSerial() uint32 {
	return atomic.AddUint32(&c.serial, 1)
}

// SendDemand issues a fresh layout_demand, implicitly superseding any
// previous live demand (spec.md §4.5 "Cancellation": no explicit cancel is
// sent, a newer demand just wins).
func (c *Client) SendDemand(usableW, usableH uint32, tags uint32, views []ViewDescriptor) (uint32, error) {
	serial := c.nextSerial()
	c.live = &Demand{
		Serial:    serial,
		ViewCount: len(views),
		collected: make([]geom.Box, len(views)),
		hasPushed: make([]bool, len(views)),
	}

	if err := c.conn.WriteEnvelope(Envelope{
		Type: MsgLayoutDemand, ViewCount: len(views),
		UsableWidth: usableW, UsableHeight: usableH, Tags: tags, Serial: serial,
	}); err != nil {
		return serial, err
	}
	for _, v := range views {
		if err := c.conn.WriteEnvelope(Envelope{
			Type: MsgAdvertiseView, ViewTags: v.Tags, AppID: v.AppID, HasAppID: v.HasAppID, Serial: serial,
		}); err != nil {
			return serial, err
		}
	}
	if err := c.conn.WriteEnvelope(Envelope{Type: MsgAdvertiseDone, Serial: serial}); err != nil {
		return serial, err
	}
	c.log.WithField("serial", serial).Debugln("layout_demand issued")
	return serial, nil
}

// IsLive reports whether serial is this client's current live demand,
// spec.md §4.5's "most recent wins" supersession rule.
func (c *Client) IsLive(serial uint32) bool {
	return c.live != nil && c.live.Serial == serial
}

// PushViewDimensions records one proposed geometry at index-of-arrival
// order. Silently ignored (no error, no state change) if serial is
// superseded, per spec.md §4.5.
func (c *Client) PushViewDimensions(env Envelope) {
	if !c.IsLive(env.Serial) {
		c.log.WithField("serial", env.Serial).Debugln("ignoring push_view_dimensions for superseded serial")
		return
	}
	d := c.live
	box := geom.Box{X: env.X, Y: env.Y, Width: int32(env.W), Height: int32(env.H)}
	for i, pushed := range d.hasPushed {
		if !pushed {
			d.collected[i] = box
			d.hasPushed[i] = true
			return
		}
	}
	// Client pushed more dimensions than advertised views; this is caught
	// at commit time by the count check, not here, so extras are just
	// dropped silently rather than growing the slice.
}

// Commit finalizes the live demand identified by serial. It returns the
// collected geometries in advertise order on success.
//
// Per spec.md §4.5 and the OPEN QUESTION in design note §9, a cardinality
// mismatch is a protocol error (count_mismatch), not a silent rejection; a
// second commit for the same serial is also a protocol error
// (already_committed). Both disconnect the client (spec.md §7).
func (c *Client) Commit(env Envelope) ([]geom.Box, error) {
	if !c.IsLive(env.Serial) {
		c.log.WithField("serial", env.Serial).Debugln("ignoring commit for superseded serial")
		return nil, errSuperseded
	}
	d := c.live
	if d.committed {
		c.conn.ProtocolError(ErrAlreadyCommitted, fmt.Sprintf("serial %d already committed", env.Serial))
		return nil, errProtocol
	}
	pushed := 0
	for _, ok := range d.hasPushed {
		if ok {
			pushed++
		}
	}
	if pushed != d.ViewCount {
		c.conn.ProtocolError(ErrCountMismatch, fmt.Sprintf("expected %d views, got %d", d.ViewCount, pushed))
		return nil, errProtocol
	}
	d.committed = true
	return d.collected, nil
}

// SetTunable installs a new value, emits the corresponding set_*_value
// frame to the bound layout client (spec.md §4.5), and fires the demand
// hook if bound. The wire message is the only channel the out-of-process
// client (cmd/rivertile) learns of the change over; without it the
// client's own tunable state never moves and set-layout-value would only
// re-trigger a demand that recomputes from stale values.
func (c *Client) SetTunable(name string, v TunableValue) {
	c.tunables[name] = v
	c.emitTunable(name, v, false)
	c.fireIfActive()
}

// ModTunable merges delta into the named tunable's current value
// (zero value if unset) — numeric kinds add, string replaces — emits the
// corresponding mod_*_value frame carrying delta itself (not the merged
// result: the wire contract has the remote client apply the delta to its
// own copy, mirroring cmd/rivertile's applyIntTunable/applyFixedTunable),
// and fires the demand hook if bound.
func (c *Client) ModTunable(name string, delta TunableValue) {
	cur := c.tunables[name]
	cur.Kind = delta.Kind
	switch delta.Kind {
	case TunableString:
		cur.String = delta.String
	case TunableFixed:
		cur.Fixed += delta.Fixed
	default:
		cur.Int += delta.Int
	}
	c.tunables[name] = cur
	c.emitTunable(name, delta, true)
	c.fireIfActive()
}

// emitTunable writes the set_*_value/mod_*_value frame for v. For
// TunableString there is no mod_string_value in the wire vocabulary
// (spec.md §4.5 only defines set_string_value), so mod is ignored for
// that kind and the value is sent as a Set.
func (c *Client) emitTunable(name string, v TunableValue, mod bool) {
	env := Envelope{Name: name, Serial: c.serial}
	switch v.Kind {
	case TunableString:
		env.Type = MsgSetStringValue
		env.StringValue = v.String
	case TunableFixed:
		env.FixedValue = v.Fixed
		env.Type = MsgSetFixedValue
		if mod {
			env.Type = MsgModFixedValue
		}
	default:
		env.IntValue = v.Int
		env.Type = MsgSetIntValue
		if mod {
			env.Type = MsgModIntValue
		}
	}
	if err := c.conn.WriteEnvelope(env); err != nil {
		c.log.WithError(err).Warningln("failed to emit tunable change")
	}
}

func (c *Client) Tunable(name string) (TunableValue, bool) {
	v, ok := c.tunables[name]
	return v, ok
}

func (c *Client) fireIfActive() {
	if c.Bound && c.onChange != nil {
		c.onChange()
	}
}

var (
	errSuperseded = fmt.Errorf("layout_v2: serial superseded")
	errProtocol   = fmt.Errorf("layout_v2: protocol error")
)
