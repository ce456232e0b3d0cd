package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/fetchbot/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// minimum travel for a usable arm range, in raw steps
const minArmSpan = 200

type CalibrateCommand struct {
	Port   string `long:"port" description:"Arm servo port (default arm.port from config)"`
	ID     int    `long:"id" default:"1" description:"Arm servo id"`
	Output string `short:"o" long:"output" description:"Write the calibration to this file instead of stdout"`
}

func (c *CalibrateCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	port := c.Port
	if port == "" {
		port = cfg.Arm.Port
	}
	if port == "" {
		return errors.New("no arm port: pass --port or set arm.port")
	}

	fmt.Println(headerStyle.Render("Arm Calibration"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	bus, servo, err := robot.OpenServo(ctx, port, c.ID)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to arm servo: %w", err)
	}
	defer bus.Close()

	pos, err := servo.Position(context.Background())
	if err != nil {
		return fmt.Errorf("read arm position: %w", err)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move the arm by hand to its fully raised AND fully lowered positions.")
	fmt.Println()

	p := tea.NewProgram(newCalibrationModel(servo, pos))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run calibration: %w", err)
	}
	cm := final.(calibrationModel)
	if cm.aborted {
		fmt.Println("Calibration aborted.")
		return nil
	}
	if cm.max-cm.min < minArmSpan {
		return fmt.Errorf("range %d is too small, move the arm further", cm.max-cm.min)
	}

	// the arm was last moved to one end; ask which one
	var raisedAtMax bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Is the arm raised at the highest position value?").
				Description(fmt.Sprintf("min %d, max %d", cm.min, cm.max)).
				Affirmative("Yes").
				Negative("No").
				Value(&raisedAtMax),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cal := robot.MotorCalibration{
		ID:       c.ID,
		RangeMin: cm.min,
		RangeMax: cm.max,
		Inverted: !raisedAtMax,
	}
	data, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if c.Output == "" {
		fmt.Println()
		os.Stdout.Write(data)
		return nil
	}
	if err := os.WriteFile(c.Output, data, 0o644); err != nil {
		return fmt.Errorf("write calibration: %w", err)
	}
	fmt.Println()
	fmt.Println(successStyle.Render("Arm calibrated."))
	fmt.Printf("Calibration saved to %s; set arm.calibration_file to use it.\n", c.Output)
	return nil
}

// calibrationModel tracks the arm servo's range while it is moved by hand.
type calibrationModel struct {
	servo   *feetech.Servo
	cur     int
	min     int
	max     int
	aborted bool
	done    bool
}

type tickMsg time.Time

func newCalibrationModel(servo *feetech.Servo, pos int) calibrationModel {
	return calibrationModel{servo: servo, cur: pos, min: pos, max: pos}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.done = true
			return m, tea.Quit
		case "q", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}

	case tickMsg:
		pos, err := m.servo.Position(context.Background())
		if err == nil {
			m.cur = pos
			m.min = min(m.min, pos)
			m.max = max(m.max, pos)
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.done || m.aborted {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	span := m.max - m.min
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Current", "Min", "Max", "Range").
		Row(fmt.Sprint(m.cur), fmt.Sprint(m.min), fmt.Sprint(m.max), fmt.Sprint(span)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableCurrentStyle
			case 3:
				if span >= minArmSpan {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done, q to abort"))

	return sb.String()
}
