// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package xdg adapts an xdg-shell toplevel (github.com/swaywm/go-wlroots)
// to shellcap.Capabilities. It is the direct generalization of the field
// accesses server.go's handleMapXDGToplevel/beginInteractive/
// processCursorResize already make against wlroots.XDGTopLevel.
package xdg

import (
	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/shellcap"
	"github.com/swaywm/go-wlroots/wlroots"
)

// Toplevel wraps a wlroots.XDGTopLevel so it satisfies shellcap.Capabilities.
type Toplevel struct {
	TopLevel wlroots.XDGTopLevel
}

var _ shellcap.Capabilities = (*Toplevel)(nil)

func (t *Toplevel) Configure(box geom.Box) (uint32, bool) {
	serial := t.TopLevel.Base().TopLevelSetSize(uint32(box.Width), uint32(box.Height))
	t.TopLevel.Base().SceneTree().Node().SetPosition(int(box.X), int(box.Y))
	return serial, true
}

func (t *Toplevel) Close() {
	t.TopLevel.SendClose()
}

func (t *Toplevel) GetConstraints() geom.Constraints {
	min, max := t.TopLevel.MinSize(), t.TopLevel.MaxSize()
	return geom.Constraints{
		MinWidth:  int32(min.Width),
		MinHeight: int32(min.Height),
		MaxWidth:  int32(max.Width),
		MaxHeight: int32(max.Height),
	}
}

func (t *Toplevel) SetActivated(activated bool) {
	t.TopLevel.SetActivated(activated)
}

func (t *Toplevel) SetFullscreen(fullscreen bool) {
	t.TopLevel.SetFullscreen(fullscreen)
}

func (t *Toplevel) AppID() (shellcap.AppID, bool) {
	id := t.TopLevel.AppID()
	if id == "" {
		return "", false
	}
	return shellcap.AppID(id), true
}

func (t *Toplevel) HasConfigureSerial() bool { return true }
