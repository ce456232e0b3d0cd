// Package sim provides a simulated robot.Device driven by scripted sensor
// frames. Waits advance a virtual clock and never sleep.
package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fault injects a device error while a frame is active.
type Fault string

const (
	NoFault     Fault = ""
	SensorFault Fault = "sensor"
	MotorFault  Fault = "motor"
)

// Frame is what the sensors report for one or more samples.
type Frame struct {
	Left     bool    `yaml:"left"`
	Right    bool    `yaml:"right"`
	Distance float64 `yaml:"distance"`
	// Repeat is how many samples the frame lasts; zero means one.
	Repeat int   `yaml:"repeat,omitempty"`
	Fault  Fault `yaml:"fault,omitempty"`
}

// Scenario is a scripted run loaded from YAML.
//
//	name: drop at the far edge
//	dodge: left
//	steps:
//	  - {left: true, right: true, distance: 40, repeat: 5}
//	  - {left: false, right: false, distance: 40}
type Scenario struct {
	Name  string  `yaml:"name"`
	Dodge string  `yaml:"dodge,omitempty"`
	Steps []Frame `yaml:"steps"`
}

// OnTable is a frame with both edge sensors pressed and nothing ahead.
func OnTable(repeat int) Frame {
	return Frame{Left: true, Right: true, Distance: 100, Repeat: repeat}
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	for i, st := range sc.Steps {
		if st.Repeat < 0 {
			return nil, fmt.Errorf("step %d: negative repeat", i)
		}
		switch st.Fault {
		case NoFault, SensorFault, MotorFault:
		default:
			return nil, fmt.Errorf("step %d: unknown fault %q", i, st.Fault)
		}
	}
	return &sc, nil
}

// frames expands repeats into one frame per sample.
func (sc *Scenario) frames() []Frame {
	var out []Frame
	for _, st := range sc.Steps {
		n := st.Repeat
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, st)
		}
	}
	return out
}
