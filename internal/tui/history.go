package tui

import (
	"context"
	"encoding/json"
	"fmt"

	"racecalc/internal/analysis"
	"racecalc/internal/service"
	"racecalc/internal/store"
	"racecalc/internal/timefmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// historyFilters cycles with "f"; empty means every kind
var historyFilters = []string{"", store.PredictionBike, store.PredictionTriathlon}

// HistoryModel is the saved predictions list screen model
type HistoryModel struct {
	ctx         context.Context
	planner     *service.PlannerService
	predictions []store.Prediction
	filter      int
	cursor      int
	loading     bool
	err         error
}

// NewHistoryModel creates a new history model
func NewHistoryModel(ctx context.Context, planner *service.PlannerService) HistoryModel {
	return HistoryModel{
		ctx:     ctx,
		planner: planner,
		loading: true,
	}
}

// Init initializes the history screen
func (m HistoryModel) Init() tea.Cmd {
	return m.load
}

type historyLoadedMsg struct {
	predictions []store.Prediction
	err         error
}

func (m HistoryModel) load() tea.Msg {
	preds, err := m.planner.History(m.ctx, historyFilters[m.filter], service.DefaultHistoryLimit)
	return historyLoadedMsg{predictions: preds, err: err}
}

// Update handles messages
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.predictions = msg.predictions
		if m.cursor >= len(m.predictions) {
			m.cursor = 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.predictions)-1 {
				m.cursor++
			}
		case "f":
			m.filter = (m.filter + 1) % len(historyFilters)
			m.cursor = 0
			m.loading = true
			return m, m.load
		case "r":
			m.loading = true
			return m, m.load
		}
	}
	return m, nil
}

// View renders the history list
func (m HistoryModel) View() string {
	if m.loading {
		return "\n  Loading predictions..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	filter := "all"
	if f := historyFilters[m.filter]; f != "" {
		filter = f
	}

	var sections []string
	sections = append(sections, cardTitleStyle.Render(fmt.Sprintf("Predictions (%s, %d shown)", filter, len(m.predictions))))

	if len(m.predictions) == 0 {
		sections = append(sections, "  No predictions saved yet.")
		sections = append(sections, statusStyle.Render("  f: filter  r: refresh"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("  %-16s  %-10s  %-8s  %10s", "When", "Kind", "Race", "Total"))
	sections = append(sections, header)

	for i, p := range m.predictions {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		race := p.RaceType
		if race == "" {
			race = "-"
		}

		row := fmt.Sprintf("%s%-16s  %-10s  %-8s  %10s",
			cursor,
			humanize.Time(p.ComputedAt),
			p.Kind,
			race,
			timefmt.FormatSeconds(p.TotalSeconds),
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	sections = append(sections, m.renderSelected())
	sections = append(sections, statusStyle.Render("  j/k: move  f: filter  r: refresh"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderSelected breaks down a triathlon prediction by leg
func (m HistoryModel) renderSelected() string {
	p := m.predictions[m.cursor]
	if p.Kind != store.PredictionTriathlon {
		return ""
	}

	var tri analysis.TriathlonPrediction
	if err := json.Unmarshal(p.Summary, &tri); err != nil {
		return errorStyle.Render(fmt.Sprintf("  Unreadable prediction %s: %v", p.ID, err))
	}

	lines := []string{
		sectionStyle.Render(fmt.Sprintf("%s triathlon, %s", tri.RaceType, p.ComputedAt.Format("Jan 02 15:04"))),
		RenderMetric("Swim", timefmt.FormatSeconds(tri.Swim.TimeSeconds), fmt.Sprintf("%.0fm", tri.Distances.SwimMeters)),
		RenderMetric("T1", timefmt.FormatSeconds(tri.T1Seconds), ""),
		RenderMetric("Bike", timefmt.FormatSeconds(tri.Bike.TimeSeconds), fmt.Sprintf("%.1fkm, zone %d", tri.Distances.BikeKm, tri.BikeZone)),
		RenderMetric("T2", timefmt.FormatSeconds(tri.T2Seconds), ""),
		RenderMetric("Run", timefmt.FormatSeconds(tri.Run.TimeSeconds), fmt.Sprintf("%.1fkm", tri.Distances.RunKm)),
		RenderMetric("Total", timefmt.FormatSeconds(tri.TotalTimeSeconds), ""),
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
