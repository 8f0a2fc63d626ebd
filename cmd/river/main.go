// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command river is the compositor entrypoint. It generalizes the teacher's
// three-file split (main.go's bare repl.Run(msgHandler), wl-main.go's
// wlMain, util-main.go's utilMain) into one binary that actually wires
// -config/-tool/-action into internal/config, internal/backend and
// internal/control, instead of leaving wl-main.go/util-main.go as unused
// dead code the way the teacher's main.go never called them.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ifreund/river/internal/backend"
	"github.com/ifreund/river/internal/config"
	"github.com/ifreund/river/internal/control"
	"github.com/k0kubun/pp"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
	"golang.org/x/sys/unix"
)

var (
	configFlag = flag.String("config", "", "Path to the init file. Defaults to the XDG search path.")
	toolFlag   = flag.Bool("tool", false, "Start as a tool instead of a compositor")
	helpFlag   = flag.Bool("help", false, "Show this help message")
	actionFlag = flag.String("action", "outputs", "Tool action: outputs, modes")
	outputFlag = flag.String("output", "", "Output to perform the tool action on")
)

func main() {
	flag.Parse()
	if *helpFlag {
		printHelp()
		return
	}
	cfg, err := loadConfig()
	if err != nil {
		fatal("loading config", err)
	}
	if logrus.GetLevel() >= logrus.DebugLevel {
		pp.Println(cfg)
	}

	if *toolFlag {
		toolMain(cfg)
		return
	}
	compositorMain(cfg)
}

func loadConfig() (*config.Config, error) {
	if *configFlag != "" {
		return config.Load(*configFlag)
	}
	path, err := config.FindInitFile()
	if err != nil {
		logrus.WithError(err).Debugln("no init file found, using built-in defaults")
		return config.Default(), nil
	}
	return config.Load(path)
}

func fatal(msg string, err error) {
	fmt.Printf("error %s: %s\n", msg, err)
	os.Exit(1)
}

func printHelp() {
	fmt.Println("---- river ----")
	fmt.Println("\t-config: path to the init file. Default: XDG search path")
	fmt.Println("\t-tool: start as a tool instead of a compositor")
	fmt.Println("\t-action: tool action (outputs, modes). Use with -tool")
	fmt.Println("\t-output: output to target. Required for -action modes")
}

// compositorMain mirrors wl-main.go's wlMain: wlroots log bridging, server
// construction, then the control socket and init-file process start before
// entering the Wayland event loop.
func compositorMain(cfg *config.Config) {
	wlroots.OnLog(wlroots.LogImportanceError, func(importance wlroots.LogImportance, msg string) {
		switch importance {
		case wlroots.LogImportanceDebug:
			logrus.Debugln(msg)
		case wlroots.LogImportanceInfo:
			logrus.Infoln(msg)
		case wlroots.LogImportanceError:
			logrus.Errorln(msg)
		case wlroots.LogImportanceSilent:
			return
		}
	})

	server, err := backend.NewServer(cfg)
	if err != nil {
		fatal("initializing server", err)
	}
	socketName, err := server.Start()
	if err != nil {
		fatal("starting server", err)
	}
	logrus.WithField("socket", socketName).Infoln("river started")

	commands := make(chan control.Envelope, 16)
	ctlPath := controlSocketPath(socketName)
	ctl, err := control.Listen(ctlPath, commands)
	if err != nil {
		fatal("starting control socket", err)
	}
	go ctl.Serve()
	go drainCommands(server, commands)
	defer ctl.Close()

	var initCmd *exec.Cmd
	if initCmd = startInitProcess(cfg, socketName); initCmd != nil {
		defer stopProcessGroup(initCmd)
	}

	server.Run()
}

// drainCommands applies each control command on the compositor's single
// goroutine, matching spec.md §5's single-writer invariant: Root/Seat are
// never touched from the socket's own goroutines.
func drainCommands(s *backend.Server, commands chan control.Envelope) {
	for env := range commands {
		reply, err := control.Dispatch(s.Root, s.Input.Seat, env.Cmd)
		if err != nil {
			env.Reply("error: " + err.Error())
			continue
		}
		if reply == "" {
			reply = "ok"
		}
		env.Reply(reply)
	}
}

func controlSocketPath(waylandSocket string) string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("river-control-%s.sock", waylandSocket))
}

// startInitProcess execs the init file in its own process group so a
// single SIGTERM to the group brings down every client it spawned,
// mirroring river upstream's startup contract (spec.md's ambient-stack
// expansion of the teacher's bare "-config" flag).
func startInitProcess(cfg *config.Config, waylandSocket string) *exec.Cmd {
	path, err := config.FindInitFile()
	if err != nil {
		logrus.Debugln("no init file to execute")
		return nil
	}
	cmd := exec.Command(path)
	cmd.Env = append(os.Environ(), "WAYLAND_DISPLAY="+waylandSocket)
	cmd.Env = append(cmd.Env, cfg.Environ()...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Warningln("failed to start init file")
		return nil
	}
	return cmd
}

func stopProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
}

// toolMain mirrors util-main.go's utilMain: spin up a server just to query
// backend state, without entering the event loop.
func toolMain(cfg *config.Config) {
	server, err := backend.NewServer(cfg)
	if err != nil {
		fatal("initializing server", err)
	}

	switch *actionFlag {
	case "outputs":
		listOutputs(server)
	case "modes":
		if *outputFlag == "" {
			fmt.Println("output has to be specified with -output")
			return
		}
		listOutputModes(server, *outputFlag)
	default:
		fmt.Printf("unknown action %q\n", *actionFlag)
	}
}

func listOutputs(server *backend.Server) {
	for i, o := range server.GetOutputs() {
		fmt.Printf("Output %v: %s\n", i, o.Name())
	}
}

func listOutputModes(server *backend.Server, name string) {
	outputs := server.GetOutputs()
	filtered := sliceutils.Filter(outputs, func(o wlroots.Output) bool {
		return o.Name() == name
	})
	if len(filtered) == 0 {
		fmt.Printf("output %s not found\n", name)
		return
	}
	for _, mode := range filtered[0].Modes() {
		suffix := ""
		if mode.Preferred() {
			suffix = " (preferred)"
		}
		fmt.Printf("\t- %dx%d@%d%s\n", mode.Width(), mode.Height(), mode.Refresh(), suffix)
	}
}

