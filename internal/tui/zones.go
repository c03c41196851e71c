package tui

import (
	"context"
	"fmt"
	"strings"

	"racecalc/internal/analysis"
	"racecalc/internal/service"
	"racecalc/internal/timefmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ZonesModel is the training zones screen model
type ZonesModel struct {
	ctx      context.Context
	planner  *service.PlannerService
	data     *service.ZoneSet
	viewport viewport.Model
	loading  bool
	err      error
	ready    bool
}

// NewZonesModel creates a new zones model
func NewZonesModel(ctx context.Context, planner *service.PlannerService, width, height int) ZonesModel {
	m := ZonesModel{
		ctx:     ctx,
		planner: planner,
		loading: true,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6)
		m.ready = true
	}

	return m
}

// Init initializes the zones screen
func (m ZonesModel) Init() tea.Cmd {
	return m.loadZones
}

type zonesLoadedMsg struct {
	data *service.ZoneSet
	err  error
}

func (m ZonesModel) loadZones() tea.Msg {
	data, err := m.planner.Zones(m.ctx)
	return zonesLoadedMsg{data: data, err: err}
}

// Update handles messages
func (m ZonesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case zonesLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.data = msg.data
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.data != nil {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadZones
		}
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the zones screen
func (m ZonesModel) View() string {
	if m.loading {
		return "\n  Loading zones..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  j/k or arrows: scroll  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m ZonesModel) renderContent() string {
	p := m.data.Profile

	var sections []string
	sections = append(sections, "")
	sections = append(sections, cardTitleStyle.Render("Training Zones"))
	sections = append(sections, statusStyle.Render(fmt.Sprintf("  Profile source: %s", p.Source)))
	sections = append(sections, "")

	sections = append(sections, renderZoneTable(
		fmt.Sprintf("Swim (CSS %s)", timefmt.FormatPace(p.SwimCSSSeconds, analysis.SwimPaceUnit)),
		m.data.Swim, "record a swim_css test or set athlete.swim_css"))
	sections = append(sections, renderZoneTable(
		fmt.Sprintf("Bike (FTP %.0fW)", p.FTPWatts),
		m.data.Bike, "record an FTP test or import a FIT file"))
	sections = append(sections, renderZoneTable(
		fmt.Sprintf("Run (threshold %s)", timefmt.FormatPace(p.RunThresholdSeconds, analysis.RunPaceUnit)),
		m.data.Run, "record a run_threshold test or set athlete.run_threshold_pace"))
	sections = append(sections, renderZoneTable(
		fmt.Sprintf("Heart rate (max %.0f, resting %.0f)", p.MaxHR, p.RestingHR),
		m.data.HeartRate, "set athlete.max_hr and athlete.resting_hr"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderZoneTable(title string, zones []analysis.Zone, hint string) string {
	var lines []string

	heading := "── " + title + " "
	if w := lipgloss.Width(heading); w < 55 {
		heading += strings.Repeat("─", 55-w)
	}
	lines = append(lines, sectionStyle.Render(heading))

	if len(zones) == 0 {
		lines = append(lines, metricNoteStyle.Render("  Not available: "+hint))
		lines = append(lines, "")
		return strings.Join(lines, "\n")
	}

	header := fmt.Sprintf("  %-4s %-22s %-18s", "Zone", "Name", "Range")
	lines = append(lines, tableHeaderStyle.Render(header))
	for _, z := range zones {
		label := zoneStyle(z.Index).Render(fmt.Sprintf("Z%-3d", z.Index))
		lines = append(lines, fmt.Sprintf("  %s %-22s %-18s", label, z.Name, z.DisplayRange))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}
