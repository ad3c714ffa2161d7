package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hopboxdev/webgreeter/internal/daemon"
	"github.com/hopboxdev/webgreeter/internal/ui"
)

// StatusCmd shows the supervision state of the running greeter.
type StatusCmd struct {
	Watch bool `short:"w" help:"Keep refreshing until q is pressed."`
}

func (c *StatusCmd) Run(globals *CLI) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	client := daemon.NewClient(cfg.ControlSocket())

	if !c.Watch {
		st, err := client.Status()
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, ui.Warn("greeter is not running"))
			return err
		}
		fmt.Println(renderDashboard(st, ui.MaxWidth, time.Now()))
		return nil
	}

	p := tea.NewProgram(newDashModel(client))
	_, err = p.Run()
	return err
}

// dashModel is the Bubble Tea model for the live status view.
type dashModel struct {
	client   *daemon.Client
	status   *daemon.DaemonStatus
	err      error
	width    int
	quitting bool
}

func newDashModel(client *daemon.Client) dashModel {
	st, err := client.Status()
	return dashModel{client: client, status: st, err: err, width: ui.MaxWidth}
}

// Messages.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type refreshMsg struct {
	status *daemon.DaemonStatus
	err    error
}

func (m dashModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		st, err := m.client.Status()
		return refreshMsg{status: st, err: err}
	}
}

func (m dashModel) Init() tea.Cmd {
	return tickCmd()
}

func (m dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tickCmd())

	case refreshMsg:
		m.status, m.err = msg.status, msg.err
		return m, nil
	}

	return m, nil
}

func (m dashModel) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return ui.Warn(fmt.Sprintf("greeter unreachable: %v", m.err)) + "\n"
	}
	return renderDashboard(m.status, m.width, time.Now())
}
