package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hopboxdev/webgreeter/internal/daemon"
	"github.com/hopboxdev/webgreeter/internal/ui"
)

// renderDashboard renders the greeter status as bordered sections.
func renderDashboard(st *daemon.DaemonStatus, width int, now time.Time) string {
	if width > ui.MaxWidth {
		width = ui.MaxWidth
	}
	contentWidth := max(width-4, 40)

	sections := []string{
		renderGreeterSection(st, contentWidth, now),
		renderScreensaverSection(st, contentWidth),
	}
	if len(st.Bridges) > 0 {
		sections = append(sections, renderBridgesSection(st, contentWidth))
	}
	return strings.Join(sections, "\n")
}

// watchdogLabel describes the heartbeat state with a colored dot.
func watchdogLabel(st *daemon.DaemonStatus) string {
	wd := st.Supervisor.Watchdog
	switch {
	case wd.Exiting:
		return ui.Dot(ui.StateIdle) + " exiting"
	case wd.Armed && wd.PingedSinceArm:
		return ui.Dot(ui.StateHealthy) + " armed, pinged"
	case wd.Armed:
		return ui.Dot(ui.StateHealthy) + " armed"
	case st.Supervisor.Fallbacks > 0:
		return ui.Dot(ui.StateFault) + " idle (fell back)"
	default:
		return ui.Dot(ui.StateIdle) + " idle"
	}
}

func renderGreeterSection(st *daemon.DaemonStatus, width int, now time.Time) string {
	sup := st.Supervisor
	theme := sup.Theme
	if theme == "" {
		theme = "-"
	}
	lines := []string{
		ui.Row("PID", strconv.Itoa(st.PID), "UPTIME", formatDuration(now.Sub(st.StartedAt)), width),
		ui.Row("WATCHDOG", watchdogLabel(st), "", "", width),
		ui.Row("THEME", theme, "", "", width),
		ui.Row("FALLBACKS", strconv.Itoa(sup.Fallbacks), "LOCK HINTS", strconv.Itoa(sup.LockHints), width),
		ui.Row("UNKNOWN", strconv.Itoa(sup.Unknown), "BAD VALUES", strconv.Itoa(sup.DecodeErrors), width),
	}
	return ui.Section("Greeter", strings.Join(lines, "\n"), width)
}

func renderScreensaverSection(st *daemon.DaemonStatus, width int) string {
	p := st.Supervisor.Screensaver
	if p == nil {
		return ui.Section("Screensaver", "No lock hint received yet.", width)
	}
	lines := []string{
		ui.Header("%-16s %s", "SETTING", "BEFORE FIRST LOCK HINT"),
		fmt.Sprintf("%-16s %ds", "timeout", p.Timeout),
		fmt.Sprintf("%-16s %ds", "interval", p.Interval),
		fmt.Sprintf("%-16s %t", "prefer blanking", p.PreferBlanking),
		fmt.Sprintf("%-16s %t", "allow exposures", p.AllowExposures),
	}
	return ui.Section("Screensaver", strings.Join(lines, "\n"), width)
}

func renderBridgesSection(st *daemon.DaemonStatus, width int) string {
	var lines []string
	for _, b := range st.Bridges {
		dot := ui.Dot(ui.StateIdle)
		if strings.Contains(b, "running") {
			dot = ui.Dot(ui.StateHealthy)
		}
		lines = append(lines, dot+" "+b)
	}
	return ui.Section("Bridges", strings.Join(lines, "\n"), width)
}

// formatDuration formats a duration as a compact human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", h, m)
	}
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, h)
}
