// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package shellcap defines the small capability set the View and
// transaction engine use to talk to a shell surface (xdg-shell or an
// Xwayland window) without caring which one it is. Design note §9 of the
// specification calls this "static polymorphism across shell kinds"; in Go
// it's just an interface with two implementations, mirroring the teacher's
// own direct use of wlroots.XDGTopLevel in server.go but behind a seam so
// the core never imports the backend package.
package shellcap

import "github.com/ifreund/river/internal/geom"

// AppID identifies the client application owning a surface, when known.
type AppID string

// Capabilities is implemented once per shell kind. All methods operate in
// output-local coordinates already resolved by the caller.
type Capabilities interface {
	// Configure asks the client to take box. Returns the serial the client
	// is expected to acknowledge, and ok=false when this shell kind has no
	// serial-based acknowledgement (Xwayland), in which case the caller
	// must use a sentinel.
	Configure(box geom.Box) (serial uint32, ok bool)
	Close()
	GetConstraints() geom.Constraints
	SetActivated(bool)
	SetFullscreen(bool)
	// AppID returns the client's application id, if the shell protocol
	// exposes one.
	AppID() (AppID, bool)
	// HasConfigureSerial reports whether Configure's serial return is
	// meaningful for this shell kind.
	HasConfigureSerial() bool
}

// LayerCapabilities is the reduced capability set for layer-shell surfaces
// (panels, bars): no float/fullscreen/activation state, just placement and
// teardown.
type LayerCapabilities interface {
	Configure(box geom.Box) (serial uint32, ok bool)
	Close()
}
