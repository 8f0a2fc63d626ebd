// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package control's socket.go carries forward the teacher's repl.go
// almost unchanged: a line-oriented command console, but now listening on
// $XDG_RUNTIME_DIR/river-control-<display>.sock instead of stdin/stdout,
// with one repl.Repl per accepted connection instead of a single process-
// wide one, and ParseLine replacing repl.go's ad hoc "run "/"inspect "
// prefix switch with the control vocabulary spec.md §6 requires.
package control

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/ifreund/river/internal/layout"
	"github.com/ifreund/river/repl"
	"github.com/ifreund/river/util/multiplexer"
	"github.com/ifreund/river/util/wrappers"
	"github.com/sirupsen/logrus"
)

// Socket listens on a Unix socket and feeds every accepted connection's
// line-oriented commands into a shared outbound channel, bridged through
// the teacher's ManyToOne so the single-threaded core remains the only
// reader (spec.md §5's single-writer invariant).
type Socket struct {
	listener *net.UnixListener
	plexer   multiplexer.ManyToOne[Envelope]
	log      *logrus.Entry
}

// Envelope pairs a parsed Command with the repl connection that should
// receive its textual response.
type Envelope struct {
	Cmd   Command
	Reply func(string)
}

// Listen binds path (typically
// $XDG_RUNTIME_DIR/river-control-<display>.sock) and returns a Socket
// ready to Serve. commands is the channel the compositor's single-
// threaded event loop drains once per iteration.
func Listen(path string, commands chan Envelope) (*Socket, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("resolving control socket address: %w", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on control socket: %w", err)
	}
	return &Socket{
		listener: ln,
		plexer:   multiplexer.NewManyToOne(commands),
		log:      logrus.WithField("component", "control-socket"),
	}, nil
}

// Serve accepts connections until the listener is closed, spawning one
// repl.Repl per connection (blocks; run it in a goroutine).
func (s *Socket) Serve() {
	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			s.log.WithError(err).Debugln("control socket accept loop exiting")
			return
		}
		go s.serveConn(conn)
	}
}

func (s *Socket) serveConn(conn *net.UnixConn) {
	defer conn.Close()
	r := repl.NewRepl(conn, wrappers.NewWriterWrapper(conn))
	err := r.Run(func(line string, rp *repl.Repl) (string, error) {
		cmd, err := ParseLine(line)
		if err != nil {
			return "error: " + err.Error(), nil
		}
		result := make(chan string, 1)
		if err := s.plexer.Send(Envelope{Cmd: cmd, Reply: func(msg string) { result <- msg }}); err != nil {
			return "error: control console is shutting down", nil
		}
		return <-result, nil
	})
	if err != nil {
		s.log.WithError(err).Debugln("control connection closed")
	}
}

func (s *Socket) Close() error {
	s.plexer.Close()
	return s.listener.Close()
}

// ParseLine parses one control-socket line into a Command, spec.md §6's
// vocabulary as space-separated verb + args, mirroring repl.go's
// strings.CutPrefix-based dispatch.
func ParseLine(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	verb := Verb(fields[0])
	args := fields[1:]

	switch verb {
	case VerbSetFocusedTags, VerbToggleFocusedTags, VerbSetViewTags, VerbToggleViewTags, VerbSpawnTagmask:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%s: expected a tag bitmask argument", verb)
		}
		tags, err := parseTags(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: verb, Tags: tags}, nil

	case VerbClose, VerbToggleFloat, VerbToggleFullscreen, VerbZoom, VerbListOutputs:
		return Command{Verb: verb}, nil

	case VerbFocusView, VerbSwap:
		dir := 1
		if len(args) == 1 {
			d, err := parseDirection(args[0])
			if err != nil {
				return Command{}, err
			}
			dir = d
		}
		return Command{Verb: verb, Direction: dir}, nil

	case VerbDefaultLayout, VerbOutputLayout:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%s: expected a namespace argument", verb)
		}
		return Command{Verb: verb, Namespace: args[0]}, nil

	case VerbSetLayoutValue, VerbModLayoutValue:
		if len(args) != 3 {
			return Command{}, fmt.Errorf("%s: expected <name> <kind> <value>", verb)
		}
		return parseLayoutValueCmd(verb, args)

	default:
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseTags(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid tag bitmask %q: %w", s, err)
	}
	return uint32(v), nil
}

func parseDirection(s string) (int, error) {
	switch s {
	case "next", "+1":
		return 1, nil
	case "previous", "-1":
		return -1, nil
	default:
		return 0, fmt.Errorf("invalid direction %q, want next/previous", s)
	}
}

func parseLayoutValueCmd(verb Verb, args []string) (Command, error) {
	name, kind, value := args[0], args[1], args[2]
	cmd := Command{Verb: verb, Tunable: name}
	switch kind {
	case "int":
		n, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			return Command{}, fmt.Errorf("invalid int value %q: %w", value, err)
		}
		cmd.Kind = layout.TunableInt
		cmd.IntValue = int32(n)
	case "fixed":
		n, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			return Command{}, fmt.Errorf("invalid fixed value %q: %w", value, err)
		}
		cmd.Kind = layout.TunableFixed
		cmd.IntValue = int32(n)
	case "string":
		cmd.Kind = layout.TunableString
		cmd.StrValue = value
	default:
		return Command{}, fmt.Errorf("invalid tunable kind %q, want int/fixed/string", kind)
	}
	return cmd, nil
}
