// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package input implements the InputManager: enumeration of input devices
// as the backend reports them, routed to the single logical "default"
// seat (spec.md §4.8). It generalizes server.go's handleNewInput/
// handleNewKeyboard/handleNewPointer trio, which talk directly to a single
// concrete wlroots.Seat, into a seam that drives seat.Seat and
// cursor.Cursor without depending on the backend.
package input

import (
	"github.com/ifreund/river/internal/seat"
	"github.com/sirupsen/logrus"
)

// DeviceKind mirrors the backend's input device taxonomy.
type DeviceKind int

const (
	DeviceKeyboard DeviceKind = iota
	DevicePointer
	DeviceVirtualKeyboard
	DeviceVirtualPointer
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceKeyboard:
		return "keyboard"
	case DevicePointer:
		return "pointer"
	case DeviceVirtualKeyboard:
		return "virtual-keyboard"
	case DeviceVirtualPointer:
		return "virtual-pointer"
	default:
		return "unknown"
	}
}

// Device is one enumerated input device. Virtual and physical devices
// carry no distinguishing field past this point (spec.md §4.8): once
// attached they are routed identically.
type Device struct {
	Name string
	Kind DeviceKind
}

// InhibitorGate is the seam into the layer-shell input-inhibitor protocol
// extension: the backend calls Inhibit/Deinhibit as clients request/
// release the exclusive grab.
type InhibitorGate interface {
	Inhibit(appID string)
	Deinhibit(appID string) bool
}

// Manager is the compositor's single InputManager, owning the one logical
// "default" seat.
type Manager struct {
	Seat *seat.Seat

	devices []Device

	log *logrus.Entry
}

func NewManager() *Manager {
	return &Manager{
		Seat: seat.New("default"),
		log:  logrus.WithField("component", "input-manager"),
	}
}

// AddDevice enumerates a newly discovered device (physical or virtual) and
// attaches it to the default seat.
func (m *Manager) AddDevice(name string, kind DeviceKind) Device {
	d := Device{Name: name, Kind: kind}
	m.devices = append(m.devices, d)
	m.Seat.AttachDevice(name)
	m.log.WithFields(logrus.Fields{"device": name, "kind": kind}).Infoln("input device attached")
	return d
}

// RemoveDevice drops a previously-enumerated device, e.g. on backend
// destroy notification.
func (m *Manager) RemoveDevice(name string) {
	for i, d := range m.devices {
		if d.Name == name {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			break
		}
	}
	for i, n := range m.Seat.Devices {
		if n == name {
			m.Seat.Devices = append(m.Seat.Devices[:i], m.Seat.Devices[i+1:]...)
			break
		}
	}
}

// Devices returns the currently enumerated devices.
func (m *Manager) Devices() []Device {
	out := make([]Device, len(m.devices))
	copy(out, m.devices)
	return out
}

// Inhibit/Deinhibit implement InhibitorGate by delegating straight to the
// seat (spec.md §4.8's "maintains the input-inhibitor gate").
func (m *Manager) Inhibit(appID string)        { m.Seat.Inhibit(appID) }
func (m *Manager) Deinhibit(appID string) bool { return m.Seat.Deinhibit(appID) }
