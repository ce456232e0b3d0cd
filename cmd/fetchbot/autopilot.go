package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/fetchbot/pkg/autopilot"
	"github.com/gwillem/fetchbot/pkg/robot"
)

type AutopilotCommand struct {
	Dodge    string `long:"dodge" choice:"left" choice:"right" description:"Side to dodge obstacles towards (asks when omitted)"`
	MaxSteps int    `long:"max-steps" description:"Give up after this many steps"`
}

func (c *AutopilotCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	dodge, err := c.dodge(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rig, err := robot.OpenRig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open robot: %w", err)
	}
	defer rig.Close()

	runner := newRunner(rig, cfg, log, nil, c.MaxSteps)

	fmt.Println(headerStyle.Render("Autopilot"), dimStyle.Render("dodging "+dodge.String()+", ctrl+c to stop"))
	res, err := runner.Run(ctx, dodge)
	printResult(res)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// dodge returns the --dodge side, or asks for one.
func (c *AutopilotCommand) dodge(cfg *robot.Config) (robot.Side, error) {
	if c.Dodge != "" {
		return robot.ParseSide(c.Dodge)
	}

	choice := cfg.Autopilot.Dodge
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which way should it dodge obstacles?").
				Description("The robot turns this way first").
				Options(
					huh.NewOption("Left", robot.Left.String()),
					huh.NewOption("Right", robot.Right.String()),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return 0, err
	}
	return robot.ParseSide(choice)
}

// newRunner builds an autopilot runner from the config.
func newRunner(dev robot.Device, cfg *robot.Config, log *slog.Logger, obs autopilot.Observer, maxSteps int) *autopilot.Runner {
	var interval time.Duration
	if cfg.Autopilot.Hz > 0 {
		interval = time.Second / time.Duration(cfg.Autopilot.Hz)
	}
	return autopilot.NewRunner(dev, autopilot.Config{
		Threshold: cfg.Autopilot.ObstacleThreshold,
		Window:    cfg.Autopilot.FilterWindow,
		Interval:  interval,
		MaxSteps:  maxSteps,
		Logger:    log,
		Observer:  obs,
	})
}

func printResult(res autopilot.Result) {
	style := successStyle
	if res.Outcome != autopilot.Delivered {
		style = faultStyle
	}
	fmt.Println()
	fmt.Println(style.Render(res.Outcome.String()), dimStyle.Render(res.Session.String()))
	fmt.Printf("  dodge:    %s\n", res.Dodge)
	fmt.Printf("  state:    %s\n", res.Last)
	if res.Outcome != autopilot.Delivered {
		fmt.Printf("  stopped:  %s\n", res.Interrupted)
	}
	fmt.Printf("  steps:    %d\n", res.Steps)
	fmt.Printf("  duration: %s\n", res.Duration.Round(time.Millisecond))
	if res.Err != nil {
		fmt.Printf("  error:    %v\n", res.Err)
	}
}
