// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package backend wires wlroots callbacks into the core's Root/Output/
// View/Seat/Cursor state machine. It is a direct descendant of server.go:
// the same wlroots.Display/Backend/Renderer/Allocator/Scene/OutputLayout/
// Cursor/XCursorManager/Seat setup sequence, but handleNewOutput now
// creates an *output.Output instead of only appending to a slice,
// handleNewXDGSurface wraps the toplevel in shellcap/xdg.Toplevel and a
// *view.View instead of a bare *wlroots.XDGTopLevel, and the cursor/
// keybinding handlers delegate to internal/cursor and internal/control
// instead of server.go's inline cursorMode switch.
package backend

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ifreund/river/internal/config"
	"github.com/ifreund/river/internal/control"
	"github.com/ifreund/river/internal/cursor"
	"github.com/ifreund/river/internal/geom"
	"github.com/ifreund/river/internal/input"
	"github.com/ifreund/river/internal/output"
	"github.com/ifreund/river/internal/seat"
	"github.com/ifreund/river/internal/shellcap/xdg"
	"github.com/ifreund/river/internal/stack"
	"github.com/ifreund/river/internal/txn"
	"github.com/ifreund/river/internal/view"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
	"github.com/swaywm/go-wlroots/xkb"
)

// Server owns every wlroots handle and the core domain objects they drive.
type Server struct {
	display     wlroots.Display
	backend     wlroots.Backend
	renderer    wlroots.Renderer
	allocator   wlroots.Allocator
	scene       wlroots.Scene
	sceneLayout wlroots.SceneOutputLayout

	xdgShell wlroots.XDGShell

	wlrCursor wlroots.Cursor
	cursorMgr wlroots.XCursorManager

	wlrSeat      wlroots.Seat
	lastKeyboard wlroots.Keyboard

	outputLayout wlroots.OutputLayout
	outputs      map[uuid.UUID]wlroots.Output

	// viewSurfaces maps a domain View back to the wlroots surface it
	// wraps, so the seat/cursor glue can issue enter notifications
	// without the core packages ever importing wlroots.
	viewSurfaces map[*view.View]wlroots.Surface

	Root   *txn.Root
	Input  *input.Manager
	Cursor *cursor.Cursor
	Config *config.Config

	log *logrus.Entry
}

// NewServer performs the teacher's NewServer wiring, generalized to
// populate Root/Input/Cursor alongside the wlroots handles.
func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{
		outputs:      make(map[uuid.UUID]wlroots.Output),
		viewSurfaces: make(map[*view.View]wlroots.Surface),
		Root:         txn.NewRoot(),
		Input:        input.NewManager(),
		Cursor:       cursor.New(),
		Config:       cfg,
		log:          logrus.WithField("component", "backend"),
	}
	if cfg.CommitDeadlineMillis > 0 {
		s.Root.Deadline = time.Duration(cfg.CommitDeadlineMillis) * time.Millisecond
	}

	s.display = wlroots.NewDisplay()

	var err error
	s.backend, err = s.display.BackendAutocreate()
	if err != nil {
		return nil, fmt.Errorf("creating backend: %w", err)
	}
	s.renderer, err = s.backend.RendererAutoCreate()
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}
	s.renderer.InitDisplay(s.display)

	s.allocator, err = s.backend.AllocatorAutocreate(s.renderer)
	if err != nil {
		return nil, fmt.Errorf("creating allocator: %w", err)
	}

	s.display.CompositorCreate(5, s.renderer)
	s.display.SubCompositorCreate()
	s.display.DataDeviceManagerCreate()

	s.outputLayout = wlroots.NewOutputLayout()
	s.backend.OnNewOutput(s.handleNewOutput)

	s.scene = wlroots.NewScene()
	s.sceneLayout = s.scene.AttachOutputLayout(s.outputLayout)

	s.xdgShell = s.display.XDGShellCreate(3)
	s.xdgShell.OnNewSurface(s.handleNewXDGSurface)

	s.wlrCursor = wlroots.NewCursor()
	s.wlrCursor.AttachOutputLayout(s.outputLayout)
	s.cursorMgr = wlroots.NewXCursorManager(cfg.XCursorTheme, uint32(cfg.XCursorSize))
	s.Cursor.Warp = wlrWarper{s}
	s.Cursor.Notify = wlrPointerNotifier{s}
	s.Cursor.BorderWidth = cfg.BorderWidth
	s.Cursor.PointerModifier = pointerModifierBit(cfg.PointerModifier)

	s.wlrCursor.OnMotion(s.handleCursorMotion)
	s.wlrCursor.OnMotionAbsolute(s.handleCursorMotionAbsolute)
	s.wlrCursor.OnButton(s.handleCursorButton)
	s.wlrCursor.OnAxis(s.handleCursorAxis)
	s.wlrCursor.OnFrame(s.handleCursorFrame)
	s.cursorMgr.Load(1)

	s.backend.OnNewInput(s.handleNewInput)
	s.wlrSeat = s.display.SeatCreate("seat0")
	s.wlrSeat.OnSetCursorRequest(s.handleSetCursorRequest)

	s.Input.Seat.Enterer = wlrKeyboardEnterer{s}
	s.Root.RepaintAll = s.repaintAll

	return s, nil
}

// Start mirrors server.go's Start: socket, env var, backend start.
func (s *Server) Start() (string, error) {
	socket, err := s.display.AddSocketAuto()
	if err != nil {
		s.backend.Destroy()
		return "", err
	}
	if err := s.backend.Start(); err != nil {
		s.backend.Destroy()
		s.display.Destroy()
		return "", err
	}
	if err := os.Setenv("WAYLAND_DISPLAY", socket); err != nil {
		return "", err
	}
	for _, kv := range s.Config.Environ() {
		if i := indexByte(kv, '='); i >= 0 {
			_ = os.Setenv(kv[:i], kv[i+1:])
		}
	}
	return socket, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func (s *Server) Run() {
	s.display.Run()
}

func (s *Server) Stop() {
	s.display.Terminate()
}

// GetOutputs returns the wlroots output handles currently known to the
// backend, used by cmd/river's -tool outputs/modes actions (util-main.go's
// utilListOutputs/utilListOutputModes, generalized to read from the
// backend's own bookkeeping instead of a second ad hoc output list).
func (s *Server) GetOutputs() []wlroots.Output {
	outputs := make([]wlroots.Output, 0, len(s.outputs))
	for _, wo := range s.outputs {
		outputs = append(outputs, wo)
	}
	return outputs
}

func (s *Server) attachMode() stack.AttachMode {
	if s.Config.AttachMode == "bottom" {
		return stack.AttachBottom
	}
	return stack.AttachTop
}

func (s *Server) handleNewOutput(wo wlroots.Output) {
	s.log.WithField("name", wo.Name()).Debugln("new output")

	wo.InitRender(s.allocator, s.renderer)

	oState := wlroots.NewOutputState()
	oState.StateInit()
	oState.StateSetEnabled(true)
	var full geom.Box
	if mode, err := wo.PrefferedMode(); err == nil {
		oState.SetMode(mode)
		full.Width, full.Height = int32(mode.Width()), int32(mode.Height())
	}
	wo.CommitState(oState)
	oState.Finish()

	wo.OnFrame(func(frameOut wlroots.Output) { s.handleFrame(frameOut) })
	wo.OnRequestState(func(reqOut wlroots.Output, state wlroots.OutputState) { reqOut.CommitState(state) })
	wo.OnDestroy(func(destroyedOut wlroots.Output) { s.handleOutputDestroy(destroyedOut) })

	lOutput := s.outputLayout.AddOutputAuto(wo)
	sceneOutput := s.scene.NewOutput(wo)
	s.sceneLayout.AddOutput(lOutput, sceneOutput)

	o := output.New(full)
	s.outputs[o.ID] = wo
	s.Root.AddOutput(o)

	_ = wo.SetTitle(fmt.Sprintf("river - %s", wo.Name()))
}

func (s *Server) handleFrame(wo wlroots.Output) {
	sOut, err := s.scene.SceneOutput(wo)
	if err != nil {
		return
	}
	sOut.Commit()
	sOut.SendFrameDone(time.Now())
}

func (s *Server) handleOutputDestroy(wo wlroots.Output) {
	for id, cur := range s.outputs {
		if cur == wo {
			s.Root.RemoveOutput(id)
			delete(s.outputs, id)
			return
		}
	}
}

func (s *Server) repaintAll() {
	// A committed transaction changed current geometry; wlroots picks this
	// up on each output's next frame via the scene graph, so there is
	// nothing synchronous to do here beyond logging, mirroring server.go's
	// handleNewFrame which always re-renders from current scene state.
	s.log.Debugln("repaint requested")
}

func (s *Server) handleNewXDGSurface(xdgSurface wlroots.XDGSurface) {
	if xdgSurface.Role() == wlroots.XDGSurfaceRolePopup {
		parent := xdgSurface.Popup().Parent()
		if parent.Nil() {
			s.log.Fatalln("xdg popup parent is nil")
		}
		xdgSurface.SetData(parent.XDGSurface().SceneTree().NewXDGSurface(xdgSurface))
		return
	}
	if xdgSurface.Role() != wlroots.XDGSurfaceRoleTopLevel {
		return
	}

	xdgSurface.SetData(s.scene.Tree().NewXDGSurface(xdgSurface.TopLevel().Base()))
	xdgSurface.OnMap(s.handleMapXDGToplevel)
	xdgSurface.OnUnmap(s.handleUnmapXDGToplevel)
	xdgSurface.OnDestroy(func(wlroots.XDGSurface) {})
	xdgSurface.OnAckConfigure(s.handleAckConfigure)

	toplevel := xdgSurface.TopLevel()
	toplevel.OnRequestMove(func(client wlroots.SeatClient, serial uint32) {
		s.beginInteractiveMove(toplevel)
	})
	toplevel.OnRequestResize(func(client wlroots.SeatClient, serial uint32, edges wlroots.Edges) {
		s.beginInteractiveResize(toplevel, wlrEdgesToGeom(edges))
	})
}

// handleAckConfigure is the real ack_configure event (spec.md §4.4's fast
// path): a client acknowledging serial lets the transaction engine commit
// as soon as every view in the pending set has acked, instead of always
// riding the 200ms deadline out in txn.Root.Deadline.
func (s *Server) handleAckConfigure(acked wlroots.XDGSurface, serial uint32) {
	v, ok := acked.Data().(*view.View)
	if !ok {
		return
	}
	s.Root.NotifyConfigured(v, serial)
}

func (s *Server) firstOutput() *output.Output {
	for _, o := range s.Root.Outputs {
		return o
	}
	return nil
}

func (s *Server) handleMapXDGToplevel(xdgSurface wlroots.XDGSurface) {
	o := s.firstOutput()
	if o == nil {
		s.log.Warningln("view mapped with no outputs present, dropping")
		return
	}
	toplevel := xdgSurface.TopLevel()
	shell := &xdg.Toplevel{TopLevel: toplevel}
	v := view.New(shell, o.ID, o.Pending.Tags)
	xdgSurface.SetData(v)
	s.viewSurfaces[v] = xdgSurface.Surface()
	o.Views.Attach(v, s.attachMode())
	s.Input.Seat.SetFocusView(v, stack.Node[*view.View]{})
	s.Root.Arrange()
}

func (s *Server) handleUnmapXDGToplevel(xdgSurface wlroots.XDGSurface) {
	v, ok := xdgSurface.Data().(*view.View)
	if !ok {
		return
	}
	s.Root.ViewClosing(v)
	if o, ok := s.Root.Outputs[v.OutputID]; ok {
		removeViewFromOutput(o, v)
	}
	if s.Input.Seat.Focus().View == v {
		s.Input.Seat.ClearFocus()
	}
	delete(s.viewSurfaces, v)
	s.Root.Arrange()
}

func (s *Server) beginInteractiveMove(toplevel wlroots.XDGTopLevel) {
	v, ok := toplevel.Base().Data().(*view.View)
	if !ok || s.Input.Seat.Focus().View != v {
		return
	}
	s.Cursor.BeginMove(v)
}

func (s *Server) beginInteractiveResize(toplevel wlroots.XDGTopLevel, edges geom.Edges) {
	v, ok := toplevel.Base().Data().(*view.View)
	if !ok || s.Input.Seat.Focus().View != v {
		return
	}
	s.Cursor.BeginResize(v, edges)
}

func (s *Server) handleNewPointer(dev wlroots.InputDevice) {
	s.wlrCursor.AttachInputDevice(dev)
	s.Input.AddDevice(dev.Name(), input.DevicePointer)
}

func (s *Server) handleNewKeyboard(dev wlroots.InputDevice) {
	keyboard := dev.Keyboard()
	context := xkb.NewContext(xkb.KeySymFlagNoFlags)
	keymap := context.KeyMap()
	keyboard.SetKeymap(keymap)
	keymap.Destroy()
	context.Destroy()
	keyboard.SetRepeatInfo(uint32(s.Config.RepeatRate), int32(s.Config.RepeatDelay))

	keyboard.OnModifiers(func(kb wlroots.Keyboard) {
		s.wlrSeat.SetKeyboard(dev)
		s.wlrSeat.NotifyKeyboardModifiers(kb)
		s.Cursor.SetModifierHeld(uint32(kb.Modifiers())&s.Cursor.PointerModifier != 0)
	})
	keyboard.OnKey(s.handleKey)
	s.wlrSeat.SetKeyboard(dev)
	s.lastKeyboard = keyboard
	s.Input.AddDevice(dev.Name(), input.DeviceKeyboard)
	s.wlrSeat.SetCapabilities(wlroots.SeatCapabilityPointer | wlroots.SeatCapabilityKeyboard)
}

func (s *Server) handleNewInput(dev wlroots.InputDevice) {
	switch dev.Type() {
	case wlroots.InputDeviceTypePointer:
		s.handleNewPointer(dev)
	case wlroots.InputDeviceTypeKeyboard:
		s.handleNewKeyboard(dev)
	}
}

func (s *Server) handleKey(keyboard wlroots.Keyboard, t uint32, keyCode uint32, _ bool, state wlroots.KeyState) {
	syms := keyboard.XKBState().Syms(xkb.KeyCode(keyCode + 8))
	handled := false
	if keyboard.Modifiers()&wlroots.KeyboardModifierAlt != 0 && state == wlroots.KeyStatePressed {
		for _, sym := range syms {
			if cmd, ok := keyBinding(sym); ok {
				if _, err := control.Dispatch(s.Root, s.Input.Seat, cmd); err != nil {
					s.log.WithError(err).Warningln("keybinding dispatch failed")
				}
				handled = true
			}
		}
	}
	if !handled {
		s.wlrSeat.SetKeyboard(keyboard.Base())
		s.wlrSeat.NotifyKeyboardKey(t, keyCode, state)
	}
}

// keyBinding maps a handful of default Alt-bound keys to control commands,
// generalizing server.go's handleKeyBinding switch (Escape to quit, F1 to
// cycle focus) into the control vocabulary. Real keybinding configuration
// (spec.md's per-mode bindings) lives in the init file and is parsed by
// internal/control; these are the built-in fallbacks available even with
// no init file loaded.
func keyBinding(sym xkb.KeySym) (control.Command, bool) {
	switch sym {
	case xkb.KeySymF1:
		return control.Command{Verb: control.VerbFocusView, Direction: 1}, true
	case xkb.KeySymq:
		return control.Command{Verb: control.VerbClose}, true
	case xkb.KeySymF:
		return control.Command{Verb: control.VerbToggleFullscreen}, true
	default:
		return control.Command{}, false
	}
}

func (s *Server) handleCursorMotion(dev wlroots.InputDevice, t uint32, dx, dy float64) {
	s.wlrCursor.Move(dev, dx, dy)
	s.processCursorMotion()
}

func (s *Server) handleCursorMotionAbsolute(dev wlroots.InputDevice, t uint32, x, y float64) {
	s.wlrCursor.WarpAbsolute(dev, x, y)
	s.processCursorMotion()
}

func (s *Server) processCursorMotion() {
	o := s.firstOutput()
	if o == nil {
		return
	}
	x, y := int32(s.wlrCursor.X()), int32(s.wlrCursor.Y())
	s.Cursor.Motion(o, s.Input.Seat.Focus().View, x, y)
}

func (s *Server) handleCursorButton(dev wlroots.InputDevice, t uint32, button uint32, state wlroots.ButtonState) {
	s.wlrSeat.NotifyPointerButton(t, button, state)
	o := s.firstOutput()
	if o == nil {
		return
	}
	if state == wlroots.ButtonStateReleased {
		s.Cursor.ReleaseButton(o, s.Input.Seat.Focus().View)
		return
	}
	hit := cursor.HitTest(o, s.Input.Seat.Focus().View, int32(s.wlrCursor.X()), int32(s.wlrCursor.Y()))
	if hit.View != nil {
		s.Input.Seat.SetFocusView(hit.View, stack.Node[*view.View]{})
	}
	s.Cursor.PressButton(hit, wlrButtonKind(button))
}

func (s *Server) handleCursorAxis(dev wlroots.InputDevice, t uint32, source wlroots.AxisSource, orientation wlroots.AxisOrientation, delta float64, deltaDiscrete int32) {
	s.wlrSeat.NotifyPointerAxis(t, orientation, delta, deltaDiscrete, source)
}

func (s *Server) handleCursorFrame() {
	s.wlrSeat.NotifyPointerFrame()
}

func (s *Server) handleSetCursorRequest(client wlroots.SeatClient, surface wlroots.Surface, _ uint32, hotspotX, hotspotY int32) {
	if s.wlrSeat.PointerState().FocusedClient() == client {
		s.wlrCursor.SetSurface(surface, hotspotX, hotspotY)
	}
}

// pointerModifierBit maps config.PointerModifier's name (config.go's
// "logo"/"alt"/"ctrl"/"shift") onto the wlroots modifier bit Cursor
// compares keyboard state against, falling back to Logo (the upstream
// river default) for an unrecognized or empty name.
func pointerModifierBit(name string) uint32 {
	switch name {
	case "alt":
		return uint32(wlroots.KeyboardModifierAlt)
	case "ctrl", "control":
		return uint32(wlroots.KeyboardModifierCtrl)
	case "shift":
		return uint32(wlroots.KeyboardModifierShift)
	case "logo", "":
		return uint32(wlroots.KeyboardModifierLogo)
	default:
		return uint32(wlroots.KeyboardModifierLogo)
	}
}

func wlrButtonKind(button uint32) cursor.ButtonKind {
	switch button {
	case 0x110: // BTN_LEFT
		return cursor.ButtonLeft
	case 0x111: // BTN_RIGHT
		return cursor.ButtonRight
	default:
		return cursor.ButtonMiddle
	}
}

func wlrEdgesToGeom(e wlroots.Edges) geom.Edges {
	var out geom.Edges
	if e&wlroots.EdgeTop != 0 {
		out |= geom.EdgeTop
	}
	if e&wlroots.EdgeBottom != 0 {
		out |= geom.EdgeBottom
	}
	if e&wlroots.EdgeLeft != 0 {
		out |= geom.EdgeLeft
	}
	if e&wlroots.EdgeRight != 0 {
		out |= geom.EdgeRight
	}
	return out
}

func removeViewFromOutput(o *output.Output, target *view.View) {
	it := o.Views.Iterator(stack.Node[*view.View]{}, stack.AllTags)
	for {
		n, ok := it.Next()
		if !ok {
			return
		}
		if n.Value() == target {
			o.Views.Remove(n)
			return
		}
	}
}

// wlrWarper adapts cursor.Warper onto the wlroots cursor.
type wlrWarper struct{ s *Server }

func (w wlrWarper) WarpTo(x, y int32) {
	w.s.wlrCursor.WarpClosest(wlroots.InputDevice{}, float64(x), float64(y))
}
func (w wlrWarper) SetXCursor(name string) {
	w.s.wlrCursor.SetXCursor(w.s.cursorMgr, name)
}

// wlrPointerNotifier adapts cursor.PointerNotifier onto the wlroots seat,
// looking the view's wlroots surface up in Server.viewSurfaces so the
// cursor package never needs to know wlroots exists.
type wlrPointerNotifier struct{ s *Server }

func (n wlrPointerNotifier) NotifyPointerEnter(hit cursor.HitResult) {
	if hit.View == nil {
		return
	}
	surf, ok := n.s.viewSurfaces[hit.View]
	if !ok {
		return
	}
	n.s.wlrSeat.PointerNotifyEnter(surf, float64(hit.SurfaceX), float64(hit.SurfaceY))
}

func (n wlrPointerNotifier) NotifyPointerMotion(hit cursor.HitResult) {
	if hit.View == nil {
		return
	}
	if _, ok := n.s.viewSurfaces[hit.View]; !ok {
		return
	}
	n.s.wlrSeat.PointerNotifyMotion(uint32(time.Now().UnixMilli()), float64(hit.SurfaceX), float64(hit.SurfaceY))
}

func (n wlrPointerNotifier) ClearPointerFocus() {
	n.s.wlrSeat.ClearPointerFocus()
}

// wlrKeyboardEnterer adapts seat.KeyboardEnterer onto the wlroots seat.
type wlrKeyboardEnterer struct{ s *Server }

func (e wlrKeyboardEnterer) NotifyKeyboardEnter(f seat.Focus) {
	if f.Kind != seat.FocusView || f.View == nil {
		return
	}
	surf, ok := e.s.viewSurfaces[f.View]
	if !ok {
		return
	}
	e.s.wlrSeat.NotifyKeyboardEnter(surf, e.s.lastKeyboard)
}
