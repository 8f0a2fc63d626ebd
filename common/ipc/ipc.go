// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ipc carries the wire shapes for the control socket's
// list-outputs query (internal/control's VerbListOutputs), adapted from
// a sway/hyprland-style output query into this compositor's own output
// identity (uuid-keyed, not name-keyed).
package ipc

type (
	// OutputRequest asks for the set of known outputs.
	OutputRequest struct {
		// IncludeModes requests each output's supported modes.
		IncludeModes bool `json:"include_modes"`
		// SpecifiesOutput targets one output instead of all of them.
		SpecifiesOutput bool `json:"specifies_output"`
		// TargetOutput names the output to target. Only read if SpecifiesOutput is set.
		TargetOutput string `json:"target_output"`
	}

	// OutputMode is a mode an output supports.
	OutputMode struct {
		Height      int `json:"height"`
		Width       int `json:"width"`
		RefreshRate int `json:"refresh_rate_mhz"`
	}

	// OutputResponse answers an OutputRequest.
	OutputResponse struct {
		// Outputs lists each known output's id.
		Outputs []string `json:"outputs"`
		// OutputModes maps output id to its supported modes. Always empty
		// when answered from the domain Root: mode data belongs to
		// wlroots, not the compositor core, and is queried instead
		// through cmd/river's -tool modes action.
		OutputModes map[string][]OutputMode `json:"output_modes"`
		OutputsFound int                    `json:"outputs_found"`
	}
)
