// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package x11 adapts an Xwayland-backed window to shellcap.Capabilities.
// The Xwayland bridge itself is out of scope for this compositor (spec.md
// §1); this package is exactly the "touch point" the spec says to note —
// an X11 window has no xdg-shell configure serial to await, so
// View.configure() falls back to the sentinel path spec.md §4.2 describes.
package x11

import (
	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/shellcap"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Window wraps an Xwayland client window reached through an xgb connection
// to the Xwayland server's WM selection.
type Window struct {
	Conn  *xgb.Conn
	Win   xproto.Window
	Class string

	// Border is the X11 border width Configure applies. River-managed
	// Xwayland windows are always reparented borderless (the compositor
	// draws its own border in output-local space the way it does for
	// xdg-shell views), so this is zero unless a caller has a reason to
	// preserve a window's existing X border.
	Border uint32
}

var _ shellcap.Capabilities = (*Window)(nil)

// Configure moves/resizes the X window via ConfigureWindow. Xwayland
// surfaces have no xdg-shell-style configure acknowledgement, so the
// serial return is always (0, false).
func (w *Window) Configure(box geom.Box) (uint32, bool) {
	_ = xproto.ConfigureWindowChecked(w.Conn, w.Win,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight|xproto.ConfigWindowBorderWidth,
		[]uint32{uint32(box.X), uint32(box.Y), uint32(box.Width), uint32(box.Height), w.Border},
	)
	return 0, false
}

func (w *Window) Close() {
	_ = xproto.DestroyWindowChecked(w.Conn, w.Win).Check()
}

// GetConstraints reports no constraints: WM_NORMAL_HINTS parsing belongs to
// the Xwayland bridge, out of scope here.
func (w *Window) GetConstraints() geom.Constraints {
	return geom.Constraints{MinWidth: 1, MinHeight: 1}
}

func (w *Window) SetActivated(activated bool) {
	// Out of scope: would set WM_STATE / send a _NET_ACTIVE_WINDOW client
	// message through the Xwayland bridge.
}

func (w *Window) SetFullscreen(fullscreen bool) {}

func (w *Window) AppID() (shellcap.AppID, bool) {
	if w.Class == "" {
		return "", false
	}
	return shellcap.AppID(w.Class), true
}

func (w *Window) HasConfigureSerial() bool { return false }
