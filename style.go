package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/rook-computer/kinetype/internal/settings"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(20)
	yesStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// progressBar redraws a single terminal line.
type progressBar struct {
	mu    sync.Mutex
	w     io.Writer
	width int
	last  int
	drawn bool
}

func newProgressBar(w io.Writer, width int) *progressBar {
	return &progressBar{w: w, width: width, last: -1}
}

func (p *progressBar) Update(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pct := int(math.Round(math.Max(0, math.Min(100, percent))))
	if pct == p.last {
		return
	}
	p.last = pct
	p.drawn = true
	fmt.Fprintf(p.w, "\r%s %3d%%", barStyle.Render(renderBar(pct, p.width)), pct)
}

func (p *progressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.w)
	}
}

func renderBar(percent, width int) string {
	filled := percent * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func renderThemes(presets []settings.Preset) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("themes") + "\n")
	for _, p := range presets {
		flags := []string{p.ColorMode}
		if p.Capabilities.Animated {
			flags = append(flags, yesStyle.Render("animated"))
		} else {
			flags = append(flags, "static")
		}
		if p.Capabilities.VariableWeight {
			flags = append(flags, "variable weight")
		}
		b.WriteString(labelStyle.Render(p.ID) + strings.Join(flags, dimStyle.Render(" · ")) + "\n")
	}
	return b.String()
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
