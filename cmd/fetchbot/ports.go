package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/fetchbot/pkg/robot"
)

type PortsCommand struct {
	MaxID    int  `long:"max-id" default:"10" description:"Highest servo id to probe"`
	NoServos bool `long:"no-servos" description:"Skip the servo scan"`
	NoBoard  bool `long:"no-board" description:"Skip waiting for the controller board greeting"`
}

type portInfo struct {
	port   string
	board  bool
	servos []string
}

func (c *PortsCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("Scanning serial ports..."))
	fmt.Println()

	ports, err := robot.ListPorts()
	if err != nil {
		return err
	}

	var found []portInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		found = append(found, c.scan(port, cfg.Link.BaudRate))
	}

	if len(found) == 0 {
		fmt.Println("No serial ports found.")
		fmt.Println("Make sure the robot is connected and powered on.")
		return nil
	}

	fmt.Println(renderPorts(found, cfg))
	return nil
}

func (c *PortsCommand) scan(port string, baud int) portInfo {
	info := portInfo{port: port}

	if !c.NoServos {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := robot.ProbeServos(ctx, port, 1, c.MaxID)
		cancel()
		if err == nil {
			for _, s := range servos {
				info.servos = append(info.servos, fmt.Sprintf("%d (model %v)", s.ID, s.Model))
			}
		}
	}

	if !c.NoBoard && len(info.servos) == 0 {
		if link, err := robot.OpenLink(port, baud); err == nil {
			info.board = true
			link.Close()
		}
	}
	return info
}

func renderPorts(found []portInfo, cfg *robot.Config) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tablePortStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableFoundStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)

	rows := make([][]string, 0, len(found))
	for _, f := range found {
		role := dimStyle.Render("-")
		switch {
		case f.board:
			role = "controller board"
		case len(f.servos) > 0:
			role = "arm servo bus"
		}

		configured := ""
		switch f.port {
		case cfg.Link.Port:
			configured = "link.port"
		case cfg.Arm.Port:
			configured = "arm.port"
		}

		rows = append(rows, []string{f.port, role, strings.Join(f.servos, ", "), configured})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "Found", "Servos", "Config").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tablePortStyle
			case 1:
				if row >= 0 && row < len(found) && (found[row].board || len(found[row].servos) > 0) {
					return tableFoundStyle
				}
				return tableCellStyle
			default:
				return tableCellStyle
			}
		})

	return t.Render()
}
