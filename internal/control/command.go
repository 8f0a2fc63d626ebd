// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package control defines the command vocabulary the compositor accepts
// from the control socket and dispatches each into the transaction engine.
// It generalizes the teacher's bare msgHandler(in string, *repl.Repl)
// (main.go, which just echoed its input) into real verbs acting on
// *txn.Root.
package control

import (
	"encoding/json"
	"fmt"

	"github.com/ifreund/river/common/ipc"
	"github.com/ifreund/river/internal/layout"
	"github.com/ifreund/river/internal/output"
	"github.com/ifreund/river/internal/seat"
	"github.com/ifreund/river/internal/stack"
	"github.com/ifreund/river/internal/txn"
	"github.com/ifreund/river/internal/view"
)

// Verb names one control command, spec.md §6's vocabulary.
type Verb string

const (
	VerbSetFocusedTags    Verb = "set-focused-tags"
	VerbSetViewTags       Verb = "set-view-tags"
	VerbToggleFocusedTags Verb = "toggle-focused-tags"
	VerbToggleViewTags    Verb = "toggle-view-tags"
	VerbSpawnTagmask      Verb = "spawn-tagmask"
	VerbClose             Verb = "close"
	VerbFocusView         Verb = "focus-view"
	VerbSwap              Verb = "swap"
	VerbZoom              Verb = "zoom"
	VerbToggleFloat       Verb = "toggle-float"
	VerbToggleFullscreen  Verb = "toggle-fullscreen"
	VerbDefaultLayout     Verb = "default-layout"
	VerbOutputLayout      Verb = "output-layout"
	VerbSetLayoutValue    Verb = "set-layout-value"
	VerbModLayoutValue    Verb = "mod-layout-value"
	VerbListOutputs       Verb = "list-outputs"
)

// Command is one parsed control request: a verb plus its (already
// type-checked) arguments.
type Command struct {
	Verb Verb

	OutputID uuid16 // zero value means "the seat's focused output"
	Tags     uint32

	// Direction selects next (+1) or previous (-1) for focus-view/swap/zoom
	// cyclic movement.
	Direction int

	Namespace string
	Tunable   string
	Kind      layout.TunableKind
	IntValue  int32
	StrValue  string
	// Relative selects mod-layout-value (delta applied to the current
	// value) over set-layout-value (replace outright).
	Relative bool
}

// uuid16 avoids importing google/uuid just for a type alias here; callers
// construct Command with output.Output.ID directly, which satisfies this
// shape since uuid.UUID is defined as [16]byte.
type uuid16 = [16]byte

// ConfigError is returned for out-of-range arguments, per spec.md §7: the
// command is rejected without mutating any state.
type ConfigError struct {
	Verb   Verb
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Verb, e.Detail)
}

// Dispatch performs cmd's mutation against root and, if it changed tag/
// float/fullscreen/layout state, requests a fresh arrangement (spec.md §6:
// "take effect in the next transaction"). The returned string is the
// command's reply payload: empty for ordinary mutating verbs (the socket
// replies "ok"), or a JSON body for query verbs like list-outputs.
func Dispatch(root *txn.Root, s *seat.Seat, cmd Command) (string, error) {
	if cmd.Verb == VerbListOutputs {
		return listOutputs(root)
	}

	o := targetOutput(root, s, cmd.OutputID)
	if o == nil {
		return "", &ConfigError{cmd.Verb, "no such output"}
	}

	switch cmd.Verb {
	case VerbSetFocusedTags:
		if !o.SetPendingTags(cmd.Tags) {
			return "", &ConfigError{cmd.Verb, "tags must not be zero"}
		}
		root.Arrange()

	case VerbToggleFocusedTags:
		if !o.SetPendingTags(o.Pending.Tags ^ cmd.Tags) {
			return "", &ConfigError{cmd.Verb, "toggle would zero output tags"}
		}
		root.Arrange()

	case VerbSetViewTags:
		v := focusedView(s)
		if v == nil {
			return "", &ConfigError{cmd.Verb, "no focused view"}
		}
		if !v.SetPendingTags(cmd.Tags) {
			return "", &ConfigError{cmd.Verb, "tags must not be zero"}
		}
		v.ApplyPending()
		root.Arrange()

	case VerbToggleViewTags:
		v := focusedView(s)
		if v == nil {
			return "", &ConfigError{cmd.Verb, "no focused view"}
		}
		if !v.SetPendingTags(v.Pending.Tags ^ cmd.Tags) {
			return "", &ConfigError{cmd.Verb, "toggle would zero view tags"}
		}
		v.ApplyPending()
		root.Arrange()

	case VerbSpawnTagmask:
		o.SpawnTagmask = cmd.Tags

	case VerbClose:
		v := focusedView(s)
		if v == nil {
			return "", &ConfigError{cmd.Verb, "no focused view"}
		}
		v.Close()

	case VerbFocusView:
		v := cycleView(o, focusedView(s), cmd.Direction)
		if v == nil {
			return "", &ConfigError{cmd.Verb, "no views to focus"}
		}
		s.SetFocusView(v, stack.Node[*view.View]{})

	case VerbSwap:
		if err := swapFocused(o, s, cmd.Direction); err != nil {
			return "", err
		}

	case VerbZoom:
		v := focusedView(s)
		if v == nil {
			return "", &ConfigError{cmd.Verb, "no focused view"}
		}
		zoomToTop(o, v)
		root.Arrange()

	case VerbToggleFloat:
		v := focusedView(s)
		if v == nil {
			return "", &ConfigError{cmd.Verb, "no focused view"}
		}
		v.Pending.Float = !v.Pending.Float
		v.ApplyPending()
		root.Arrange()

	case VerbToggleFullscreen:
		v := focusedView(s)
		if v == nil {
			return "", &ConfigError{cmd.Verb, "no focused view"}
		}
		v.SetFullscreen(!v.Pending.Fullscreen)
		v.ApplyPending()
		root.Arrange()

	case VerbDefaultLayout, VerbOutputLayout:
		if cmd.Namespace == "" {
			return "", &ConfigError{cmd.Verb, "namespace must not be empty"}
		}
		o.Pending.LayoutNamespace = cmd.Namespace
		if c, ok := root.Registry.Lookup(o.ID, cmd.Namespace); ok {
			o.BindLayout(c)
		}
		root.Arrange()

	case VerbSetLayoutValue:
		c := o.LayoutClient()
		if c == nil {
			return "", &ConfigError{cmd.Verb, "no bound layout client"}
		}
		c.SetTunable(cmd.Tunable, tunableValue(cmd))
		root.Arrange()

	case VerbModLayoutValue:
		c := o.LayoutClient()
		if c == nil {
			return "", &ConfigError{cmd.Verb, "no bound layout client"}
		}
		c.ModTunable(cmd.Tunable, tunableValue(cmd))
		root.Arrange()

	default:
		return "", &ConfigError{cmd.Verb, "unknown verb"}
	}
	return "", nil
}

// listOutputs answers the list-outputs verb using the teacher's own
// common/ipc.OutputResponse shape, generalized from a sway/hyprland-style
// IPC response to report this compositor's own output IDs. OutputModes is
// always left empty: mode data belongs to wlroots, not the domain Root, and
// is queried instead through cmd/river's -tool modes action.
func listOutputs(root *txn.Root) (string, error) {
	resp := ipc.OutputResponse{
		Outputs:      make([]string, 0, len(root.Outputs)),
		OutputModes:  map[string][]ipc.OutputMode{},
		OutputsFound: len(root.Outputs),
	}
	for id := range root.Outputs {
		resp.Outputs = append(resp.Outputs, idString(id))
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("marshalling output list: %w", err)
	}
	return string(data), nil
}

// tunableValue builds the layout.TunableValue a set/mod-layout-value
// command carries, routing Command.IntValue into Int or Fixed depending
// on Kind since the socket's parseLayoutValueCmd stores both int and
// fixed-point values in the same wire field.
func tunableValue(cmd Command) layout.TunableValue {
	v := layout.TunableValue{Kind: cmd.Kind, String: cmd.StrValue}
	if cmd.Kind == layout.TunableFixed {
		v.Fixed = cmd.IntValue
	} else {
		v.Int = cmd.IntValue
	}
	return v
}

func idString(id uuid16) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", id[0:4], id[4:6], id[6:8], id[8:10], id[10:16])
}

func targetOutput(root *txn.Root, s *seat.Seat, id uuid16) *output.Output {
	if o, ok := root.Outputs[id]; ok {
		return o
	}
	if v := focusedView(s); v != nil {
		if o, ok := root.Outputs[v.OutputID]; ok {
			return o
		}
	}
	for _, o := range root.Outputs {
		return o
	}
	return nil
}

func focusedView(s *seat.Seat) *view.View {
	f := s.Focus()
	if f.Kind == seat.FocusView {
		return f.View
	}
	return nil
}

// cycleView walks o's view stack to find the view adjacent to current in
// direction (+1 next, -1 previous), wrapping around.
func cycleView(o *output.Output, current *view.View, direction int) *view.View {
	all := o.Views.Iterator(stack.Node[*view.View]{}, o.Current.Tags).Collect()
	if len(all) == 0 {
		return nil
	}
	if current == nil {
		return all[0]
	}
	idx := -1
	for i, v := range all {
		if v == current {
			idx = i
			break
		}
	}
	if idx == -1 {
		return all[0]
	}
	next := (idx + direction + len(all)) % len(all)
	return all[next]
}

func swapFocused(o *output.Output, s *seat.Seat, direction int) error {
	v := focusedView(s)
	if v == nil {
		return &ConfigError{VerbSwap, "no focused view"}
	}
	other := cycleView(o, v, direction)
	if other == nil || other == v {
		return &ConfigError{VerbSwap, "no adjacent view to swap with"}
	}
	na, okA := findNode(o, v)
	nb, okB := findNode(o, other)
	if !okA || !okB {
		return &ConfigError{VerbSwap, "view not present in output's stack"}
	}
	o.Views.Swap(na, nb)
	return nil
}

func findNode(o *output.Output, target *view.View) (stack.Node[*view.View], bool) {
	it := o.Views.Iterator(stack.Node[*view.View]{}, stack.AllTags)
	for {
		n, ok := it.Next()
		if !ok {
			return stack.Node[*view.View]{}, false
		}
		if n.Value() == target {
			return n, true
		}
	}
}

// zoomToTop raises v to the front of o's stack, a cheap swap-to-front
// since stack.Stack exposes only pairwise Swap.
func zoomToTop(o *output.Output, v *view.View) {
	first := o.Views.First()
	if !first.Valid() || first.Value() == v {
		return
	}
	if n, ok := findNode(o, v); ok {
		o.Views.Swap(first, n)
	}
}
