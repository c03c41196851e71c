package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"racecalc/internal/analysis"
	"racecalc/internal/service"
	"racecalc/internal/store"
	"racecalc/internal/timefmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// BikeModel shows the most recent bike course prediction
type BikeModel struct {
	ctx      context.Context
	planner  *service.PlannerService
	units    Units
	pred     *analysis.BikePrediction
	viewport viewport.Model
	loading  bool
	empty    bool
	err      error
	ready    bool
}

// NewBikeModel creates a new bike prediction model
func NewBikeModel(ctx context.Context, planner *service.PlannerService, units Units) BikeModel {
	return BikeModel{
		ctx:     ctx,
		planner: planner,
		units:   units,
		loading: true,
	}
}

// Init initializes the bike screen
func (m BikeModel) Init() tea.Cmd {
	return m.loadPrediction
}

type bikeLoadedMsg struct {
	pred  *analysis.BikePrediction
	empty bool
	err   error
}

func (m BikeModel) loadPrediction() tea.Msg {
	pred, err := m.planner.LastBikePrediction(m.ctx)
	if errors.Is(err, store.ErrPredictionNotFound) {
		return bikeLoadedMsg{empty: true}
	}
	return bikeLoadedMsg{pred: pred, err: err}
}

// Update handles messages
func (m BikeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bikeLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.pred = msg.pred
		m.empty = msg.empty
		if m.ready && m.pred != nil {
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
		if m.pred != nil {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.loadPrediction
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the bike screen
func (m BikeModel) View() string {
	if m.loading {
		return "\n  Loading bike prediction..."
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}
	if m.empty {
		return "\n  No bike predictions yet. Run 'racecalc bike --distance 40' to create one."
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  j/k or arrows: scroll  r: refresh")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m BikeModel) renderContent() string {
	p := m.pred
	var sections []string

	sections = append(sections, "")
	sections = append(sections, cardTitleStyle.Render("Last Bike Prediction"))

	summary := []string{
		RenderMetric("Time", timefmt.FormatSeconds(p.TotalTimeSeconds), ""),
		RenderMetric("Distance", m.units.FormatDistance(p.TotalDistanceKm*metersPerKm), fmt.Sprintf("%d segments", len(p.Segments))),
		RenderMetric("Avg speed", m.units.FormatSpeed(p.AverageSpeedKmh), ""),
		RenderMetric("Power", fmt.Sprintf("%.0fW", p.TargetPowerWatts), fmt.Sprintf("%.0f%% FTP, zone %d", p.FTPPercentage, analysis.BikeIntensityZone(p.FTPPercentage))),
		RenderMetric("Climbing", fmt.Sprintf("%.0fm", p.ElevationGainM), ""),
	}
	sections = append(sections, cardStyle.Render(strings.Join(summary, "\n")))

	sections = append(sections, m.renderSegments())
	sections = append(sections, m.renderSpeedChart())
	sections = append(sections, renderFactors(p.Factors))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BikeModel) renderSegments() string {
	var lines []string
	lines = append(lines, "")
	header := fmt.Sprintf("  %-3s %9s %8s %10s %9s", "#", "Distance", "Grade", "Speed", "Time")
	lines = append(lines, tableHeaderStyle.Render(header))

	for i, s := range m.pred.Segments {
		row := fmt.Sprintf("  %-3d %9s %7.1f%% %10s %9s",
			i+1,
			m.units.FormatDistance(s.Segment.DistanceKm*metersPerKm),
			s.Segment.GradientPercent,
			m.units.FormatSpeed(s.SpeedKmh()),
			timefmt.FormatSeconds(s.TimeSeconds),
		)
		if !s.Converged {
			row += warningStyle.Render(" (approx)")
		}
		lines = append(lines, tableRowStyle.Render(row))
	}
	return strings.Join(lines, "\n")
}

func (m BikeModel) renderSpeedChart() string {
	if len(m.pred.Segments) < 2 {
		return ""
	}

	data := make([]float64, len(m.pred.Segments))
	for i, s := range m.pred.Segments {
		data[i] = m.units.SpeedValue(s.SpeedKmh())
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, cardTitleStyle.Render("Speed by segment ("+m.units.SpeedLabel()+")"))
	lines = append(lines, asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(50),
		asciigraph.Precision(1),
	))
	return strings.Join(lines, "\n")
}

func renderFactors(factors []string) string {
	var lines []string
	lines = append(lines, "")
	lines = append(lines, cardTitleStyle.Render("Factors"))
	if len(factors) == 0 {
		lines = append(lines, statusStyle.Render("  Nothing unusual about this course"))
	}
	for _, f := range factors {
		lines = append(lines, "  - "+f)
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}
