package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/fetchbot/pkg/robot"
)

type Options struct {
	Config   string `short:"c" long:"config" default:"fetchbot.json" description:"Configuration file"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
	LogFile  string `long:"log-file" description:"Write logs to this file instead of stderr"`

	Run       RunCommand       `command:"run" description:"Drive the robot from the remote control, with a live dashboard"`
	Autopilot AutopilotCommand `command:"autopilot" alias:"auto" description:"Run one autopilot session and exit"`
	Simulate  SimulateCommand  `command:"simulate" alias:"sim" description:"Run one autopilot session against a scenario file"`
	Ports     PortsCommand     `command:"ports" description:"List serial ports and the servos answering on them"`
	Calibrate CalibrateCommand `command:"calibrate" description:"Record the travel range of the arm servo"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "fetchbot - table-top fetch-and-deposit robot controller"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file. A missing default file yields the
// defaults so simulate and ports work without one.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, fs.ErrNotExist) && opts.Config == robot.DefaultConfigFile {
		return robot.Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", opts.Config, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. When tui is set and no log file is
// given, logs are discarded so they do not tear the dashboard.
func newLogger(cfg *robot.Config, tui bool) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(opts.LogLevel))); err != nil {
		return nil, nil, err
	}

	path := opts.LogFile
	if path == "" && cfg != nil {
		path = cfg.Telemetry.LogFile
	}

	var w io.Writer = os.Stderr
	closer := func() {}
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, func() { f.Close() }
	case tui:
		w = io.Discard
	}

	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log, closer, nil
}
