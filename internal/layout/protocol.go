// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package layout implements the layout_v2 wire protocol (spec.md §4.5):
// the compositor's side of the handshake by which an external process is
// asked to place N views inside a rectangle. The transport is
// newline-delimited JSON over an io.ReadWriteCloser, the same
// bufio.Scanner-driven shape as the teacher's repl.Repl and the same
// tagged-message-struct approach as its common/ipc package (and
// 1broseidon-termtile's unix-socket internal/ipc server).
package layout

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrorCode is the layout_v2 protocol error vocabulary (spec.md §6).
type ErrorCode int

const (
	ErrCountMismatch  ErrorCode = 0
	ErrAlreadyCommitted ErrorCode = 1
	// ErrNamespaceInUse is compositor-internal (refusal at registration
	// time, not a post-hoc protocol error against a live object), kept
	// here for a single error-code namespace.
	ErrNamespaceInUse ErrorCode = -1
)

// MessageType discriminates the JSON envelope.
type MessageType string

const (
	MsgLayoutDemand       MessageType = "layout_demand"
	MsgAdvertiseView      MessageType = "advertise_view"
	MsgAdvertiseDone      MessageType = "advertise_done"
	MsgPushViewDimensions MessageType = "push_view_dimensions"
	MsgCommit             MessageType = "commit"
	MsgSetIntValue        MessageType = "set_int_value"
	MsgModIntValue        MessageType = "mod_int_value"
	MsgSetFixedValue      MessageType = "set_fixed_value"
	MsgModFixedValue      MessageType = "mod_fixed_value"
	MsgSetStringValue     MessageType = "set_string_value"
	MsgError              MessageType = "error"
)

// Envelope is the wire frame: a type tag plus whichever payload fields the
// type uses. Kept as one flat struct (rather than a Go interface behind a
// json.RawMessage split) since the vocabulary is small and fixed, matching
// the teacher's own small flat common/ipc request/response structs.
type Envelope struct {
	Type MessageType `json:"type"`

	// layout_demand (compositor -> client)
	ViewCount    int    `json:"view_count,omitempty"`
	UsableWidth  uint32 `json:"usable_width,omitempty"`
	UsableHeight uint32 `json:"usable_height,omitempty"`
	Tags         uint32 `json:"tags,omitempty"`
	Serial       uint32 `json:"serial,omitempty"`

	// advertise_view (compositor -> client)
	ViewTags uint32 `json:"view_tags,omitempty"`
	AppID    string `json:"app_id,omitempty"`
	HasAppID bool   `json:"has_app_id,omitempty"`

	// push_view_dimensions (client -> compositor)
	X int32  `json:"x,omitempty"`
	Y int32  `json:"y,omitempty"`
	W uint32 `json:"w,omitempty"`
	H uint32 `json:"h,omitempty"`

	// tunables (compositor -> client)
	Name        string `json:"name,omitempty"`
	IntValue    int32  `json:"int_value,omitempty"`
	FixedValue  int32  `json:"fixed_value,omitempty"` // 24.8 fixed point
	StringValue string `json:"string_value,omitempty"`

	// error (compositor -> client)
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
}

// Conn is one connection to a layout client process, framing Envelopes as
// newline-delimited JSON exactly as repl.Repl frames lines.
type Conn struct {
	rw     io.ReadWriteCloser
	scan   *bufio.Scanner
	writeM sync.Mutex
	log    *logrus.Entry
}

func NewConn(rw io.ReadWriteCloser) *Conn {
	return &Conn{
		rw:   rw,
		scan: bufio.NewScanner(rw),
		log:  logrus.WithField("component", "layout-conn"),
	}
}

// ReadEnvelope blocks for the next line-delimited frame.
func (c *Conn) ReadEnvelope() (Envelope, error) {
	if !c.scan.Scan() {
		if err := c.scan.Err(); err != nil {
			return Envelope{}, err
		}
		return Envelope{}, io.EOF
	}
	var env Envelope
	if err := json.Unmarshal(c.scan.Bytes(), &env); err != nil {
		return Envelope{}, fmt.Errorf("decode layout_v2 frame: %w", err)
	}
	return env, nil
}

// WriteEnvelope sends one frame. Safe for concurrent use.
func (c *Conn) WriteEnvelope(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.writeM.Lock()
	defer c.writeM.Unlock()
	_, err = c.rw.Write(append(data, '\n'))
	return err
}

// ProtocolError sends an error frame and closes the connection, the
// protocol-error half of spec.md §7's taxonomy ("client violated the wire
// contract — disconnect that client").
func (c *Conn) ProtocolError(code ErrorCode, msg string) {
	_ = c.WriteEnvelope(Envelope{Type: MsgError, ErrorCode: code, ErrorMsg: msg})
	c.log.WithFields(logrus.Fields{"code": code, "msg": msg}).Warningln("layout_v2 protocol error")
	c.Close()
}

func (c *Conn) Close() error { return c.rw.Close() }
