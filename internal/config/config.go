// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package config loads the on-disk TOML configuration and resolves the
// init-file search path. It generalizes the teacher's bare config.Config
// (a two-field stub selecting repl vs single-command vs no startup
// target) into the full set of tunables a river-style compositor exposes,
// read with the same pelletier/go-toml v1 API the teacher already
// required but never exercised.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

// Config holds every compositor tunable read from the init file.
type Config struct {
	// BorderWidth is the view border thickness in output-local pixels.
	BorderWidth int32 `toml:"border_width"`
	// BorderColorFocused/Unfocused are "#RRGGBB" strings.
	BorderColorFocused   string `toml:"border_color_focused"`
	BorderColorUnfocused string `toml:"border_color_unfocused"`

	// AttachMode is "top" or "bottom" (stack.AttachMode, spec.md §3).
	AttachMode string `toml:"attach_mode"`

	// PointerModifier names the modifier gating cursor move/resize/close
	// bindings (spec.md §4.7), e.g. "logo", "alt".
	PointerModifier string `toml:"pointer_modifier"`

	// RepeatRate/RepeatDelay configure the keyboard, mirroring server.go's
	// hardcoded keyboard.SetRepeatInfo(25, 600).
	RepeatRate  int32 `toml:"repeat_rate"`
	RepeatDelay int32 `toml:"repeat_delay"`

	// DefaultLayoutNamespace is bound to every output that doesn't request
	// one explicitly (spec.md §4.3).
	DefaultLayoutNamespace string `toml:"default_layout_namespace"`

	// CommitDeadlineMillis overrides txn.DefaultDeadline when nonzero.
	CommitDeadlineMillis int32 `toml:"commit_deadline_ms"`

	// XKB layout/variant/options/model, forwarded as XKB_DEFAULT_* env
	// vars the way the teacher forwards XCURSOR_* unconditionally.
	XKBLayout  string `toml:"xkb_layout"`
	XKBVariant string `toml:"xkb_variant"`
	XKBOptions string `toml:"xkb_options"`
	XKBModel   string `toml:"xkb_model"`

	XCursorTheme string `toml:"xcursor_theme"`
	XCursorSize  int32  `toml:"xcursor_size"`
}

// Default returns the configuration applied before any init file is read.
func Default() *Config {
	return &Config{
		BorderWidth:            2,
		BorderColorFocused:     "#4c7899",
		BorderColorUnfocused:   "#333333",
		AttachMode:             "top",
		PointerModifier:        "logo",
		RepeatRate:             25,
		RepeatDelay:            600,
		DefaultLayoutNamespace: "rivertile",
		CommitDeadlineMillis:   200,
		XCursorTheme:           "default",
		XCursorSize:            24,
	}
}

// Load reads and merges a TOML file on top of Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// FindInitFile resolves the init-file search path: $XDG_CONFIG_HOME/river/
// init, then $HOME/.config/river/init (xdg's own fallback), then
// /etc/river/init, mirroring spec.md's ambient-stack expansion of the
// teacher's "-config: path to the config file" flag into an XDG-aware
// search.
func FindInitFile() (string, error) {
	if p, err := xdg.SearchConfigFile(filepath.Join("river", "init")); err == nil {
		return p, nil
	}
	systemPath := filepath.Join("/etc", "river", "init")
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath, nil
	}
	return "", fmt.Errorf("no init file found in %v or %s", xdg.ConfigDirs, systemPath)
}

// Environ returns the XKB_DEFAULT_*/XCURSOR_* environment variables this
// config implies, to be applied to spawned client processes.
func (c *Config) Environ() []string {
	var env []string
	add := func(k, v string) {
		if v != "" {
			env = append(env, k+"="+v)
		}
	}
	add("XKB_DEFAULT_LAYOUT", c.XKBLayout)
	add("XKB_DEFAULT_VARIANT", c.XKBVariant)
	add("XKB_DEFAULT_OPTIONS", c.XKBOptions)
	add("XKB_DEFAULT_MODEL", c.XKBModel)
	add("XCURSOR_THEME", c.XCursorTheme)
	if c.XCursorSize > 0 {
		env = append(env, fmt.Sprintf("XCURSOR_SIZE=%d", c.XCursorSize))
	}
	return env
}

var log = logrus.WithField("component", "config")
