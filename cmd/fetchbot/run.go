package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/fetchbot/pkg/autopilot"
	"github.com/gwillem/fetchbot/pkg/remote"
	"github.com/gwillem/fetchbot/pkg/robot"
	"github.com/gwillem/fetchbot/pkg/telemetry"
)

type RunCommand struct {
	Hz       int    `long:"hz" description:"Remote polling frequency (default from config)"`
	Source   string `long:"source" choice:"ir" choice:"ws" description:"Remote source (default from config)"`
	Listen   string `long:"listen" description:"Telemetry listen address, e.g. :8080"`
	Headless bool   `long:"headless" description:"Log to stderr instead of showing the dashboard"`
}

const (
	headerHeight = 3 // title, status line, blank line
	footerHeight = 7 // log box height
	maxLogs      = 5
	borderSize   = 2
	maxDistance  = 100
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	faultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// stack is everything "run" wires together.
type stack struct {
	ctx        context.Context
	cfg        *robot.Config
	log        *slog.Logger
	hub        *telemetry.Hub
	dispatcher *remote.Dispatcher
	server     *telemetry.Server
	mqtt       *telemetry.MQTTPublisher
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Hz > 0 {
		cfg.Remote.Hz = c.Hz
	}
	if c.Source != "" {
		cfg.Remote.Source = c.Source
	}
	if c.Listen != "" {
		cfg.Telemetry.Listen = c.Listen
	}
	if cfg.Remote.Source == "ws" && cfg.Telemetry.Listen == "" {
		return errors.New("remote.source ws needs telemetry.listen")
	}

	log, closeLog, err := newLogger(cfg, !c.Headless)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rig, err := robot.OpenRig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open robot: %w", err)
	}
	defer rig.Close()
	log.Info("robot connected", "link", cfg.Link.Port, "arm", cfg.Arm.Port)

	st, err := buildStack(ctx, cfg, rig, log)
	if err != nil {
		return err
	}
	if st.mqtt != nil {
		defer st.mqtt.Close()
	}

	if st.server != nil {
		go func() {
			if err := st.server.ListenAndServe(ctx, cfg.Telemetry.Listen); err != nil {
				log.Error("telemetry server", "err", err)
			}
		}()
	}

	done := make(chan error, 1)
	go func() { done <- st.dispatcher.Start(ctx) }()

	if c.Headless {
		err := <-done
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	p := tea.NewProgram(newDashboard(st), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		stop()
		<-done
		return fmt.Errorf("dashboard: %w", err)
	}
	stop()
	<-done
	return nil
}

// buildStack connects the dispatcher, the autopilot and telemetry for dev.
func buildStack(ctx context.Context, cfg *robot.Config, rig *robot.Rig, log *slog.Logger) (*stack, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	hub := telemetry.NewHub(telemetry.NewMetrics(reg))

	st := &stack{ctx: ctx, cfg: cfg, log: log, hub: hub}

	if cfg.Telemetry.MQTTBroker != "" {
		pub, err := telemetry.DialMQTT(cfg.Telemetry.MQTTBroker, cfg.Telemetry.MQTTClient, cfg.Telemetry.MQTTTopic, log)
		if err != nil {
			return nil, err
		}
		hub.AddSink(pub)
		st.mqtt = pub
	}

	pilot := newRunner(rig, cfg, log, hub, 0)

	var rx remote.Receiver = rig
	var ws *remote.WebsocketReceiver
	if cfg.Remote.Source == "ws" {
		ws = remote.NewWebsocketReceiver(log)
		rx = ws
	}
	st.dispatcher = remote.NewDispatcher(rig, rx, pilot, remote.Config{Hz: cfg.Remote.Hz, Logger: log})

	if cfg.Telemetry.Listen != "" {
		srvCfg := telemetry.ServerConfig{
			Hub:      hub,
			Gatherer: reg,
			Control:  st.dispatcher,
			Context:  ctx,
			Logger:   log,
		}
		if ws != nil {
			srvCfg.Remote = ws
		}
		st.server = telemetry.NewServer(srvCfg)
	}
	return st, nil
}

type dashboard struct {
	st       *stack
	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	last     *autopilot.Result
	quitting bool
}

type eventMsg telemetry.Event
type resultMsg autopilot.Result

func waitForEvent(hub *telemetry.Hub) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-hub.Events())
	}
}

func waitForResult(d *remote.Dispatcher) tea.Cmd {
	return func() tea.Msg {
		return resultMsg(<-d.Results())
	}
}

func newDashboard(st *stack) dashboard {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, maxDistance),
	)
	chart.SetStyles(runes.ThinLineStyle, lipgloss.NewStyle().Foreground(lipgloss.Color("51")))
	return dashboard{st: st, chart: &chart}
}

func (m *dashboard) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *dashboard) resizeChart() {
	w, h := 80, 20
	if m.width > 0 && m.height > 0 {
		w = max(m.width-borderSize-2, 40)
		h = max(m.height-headerHeight-footerHeight-borderSize, 8)
	}
	m.chart.Resize(w, h)
}

func (m dashboard) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.st.hub),
		waitForResult(m.st.dispatcher),
	)
}

func (m dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "a":
			dodge, _ := robot.ParseSide(m.st.cfg.Autopilot.Dodge)
			if err := m.st.dispatcher.StartAutopilot(m.st.ctx, dodge); err != nil {
				m.addLog(faultStyle.Render(err.Error()))
			}
		case "x":
			m.st.dispatcher.CancelAutopilot()
		}

	case eventMsg:
		ev := telemetry.Event(msg)
		switch ev.Kind {
		case telemetry.KindStarted:
			m.addLog(fmt.Sprintf("session %s started, dodge %s", shortID(ev.Session), ev.Dodge))
		case telemetry.KindStep:
			if ev.Sampled {
				m.chart.Push(min(ev.Distance, maxDistance))
				m.chart.Draw()
			}
			if ev.From != ev.To {
				m.addLog(fmt.Sprintf("#%d %s -> %s %s", ev.Step, ev.From, ev.To, strings.Join(ev.Commands, " ")))
			}
			if ev.Note != "" {
				m.addLog(fmt.Sprintf("#%d %s", ev.Step, ev.Note))
			}
		case telemetry.KindEnded:
			m.addLog(fmt.Sprintf("session %s %s after %d steps", shortID(ev.Session), ev.Outcome, ev.Steps))
		}
		return m, waitForEvent(m.st.hub)

	case resultMsg:
		res := autopilot.Result(msg)
		m.last = &res
		return m, waitForResult(m.st.dispatcher)
	}

	return m, nil
}

func (m dashboard) View() string {
	if m.quitting {
		return "Stopped.\n"
	}

	var sb strings.Builder
	status := m.st.hub.Status()

	sb.WriteString(titleStyle.Render("fetchbot"))
	sb.WriteString(fmt.Sprintf(" - %s remote at %d Hz", m.st.cfg.Remote.Source, m.st.dispatcher.Hz()))
	if m.st.cfg.Telemetry.Listen != "" {
		sb.WriteString(statusStyle.Render("  http " + m.st.cfg.Telemetry.Listen))
	}
	sb.WriteString("\n")

	mode := m.st.dispatcher.Mode().String()
	if status.Active {
		mode = activeStyle.Render(mode)
	}
	sb.WriteString(fmt.Sprintf("mode %s  state %s  edges %s  distance %.1f  sessions %d",
		mode, status.State, status.Edges, status.Distance, status.Sessions))
	if m.last != nil {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  last %s in %s", m.last.Outcome, m.last.Duration.Round(time.Millisecond))))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 40))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("'a' autopilot  'x' cancel  'q' quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
