package main

import (
	"context"
	"fmt"

	"github.com/gwillem/fetchbot/pkg/robot"
	"github.com/gwillem/fetchbot/pkg/sim"
)

type SimulateCommand struct {
	Dodge    string `long:"dodge" choice:"left" choice:"right" description:"Override the scenario's dodge side"`
	MaxSteps int    `long:"max-steps" default:"1000" description:"Give up after this many steps"`
	Paced    bool   `long:"paced" description:"Wait between polling cycles as the robot would"`
	Args     struct {
		Scenario string `positional-arg-name:"scenario" required:"yes" description:"Scenario YAML file"`
	} `positional-args:"yes"`
}

func (c *SimulateCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !c.Paced {
		cfg.Autopilot.Hz = 0
	}
	log, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	sc, err := sim.LoadScenario(c.Args.Scenario)
	if err != nil {
		return err
	}

	side := c.Dodge
	if side == "" {
		side = sc.Dodge
	}
	if side == "" {
		side = cfg.Autopilot.Dodge
	}
	dodge, err := robot.ParseSide(side)
	if err != nil {
		return err
	}

	name := sc.Name
	if name == "" {
		name = c.Args.Scenario
	}
	fmt.Println(headerStyle.Render("Simulating "+name), dimStyle.Render("dodging "+dodge.String()))
	fmt.Println()

	dev := sim.FromScenario(sc)
	res, runErr := newRunner(dev, cfg, log, nil, c.MaxSteps).Run(context.Background(), dodge)

	fmt.Print(dimStyle.Render(dev.Transcript()))
	printResult(res)
	fmt.Printf("  samples:  %d\n", dev.Samples())
	fmt.Printf("  clock:    %s\n", dev.Clock())
	if !dev.Exhausted() {
		fmt.Println(dimStyle.Render("  scenario frames left unread"))
	}
	return runErr
}
