package tui

import (
	"context"

	"racecalc/internal/config"
	"racecalc/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen identifiers
type Screen int

const (
	ScreenZones Screen = iota
	ScreenBike
	ScreenHistory
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	zones   ZonesModel
	bike    BikeModel
	history HistoryModel
	help    HelpModel
}

// NewApp creates a new App with all dependencies
func NewApp(ctx context.Context, planner *service.PlannerService, display config.DisplayConfig) *App {
	units := NewUnits(display)
	return &App{
		screen:  ScreenZones,
		zones:   NewZonesModel(ctx, planner, 0, 0),
		bike:    NewBikeModel(ctx, planner, units),
		history: NewHistoryModel(ctx, planner),
		help:    NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.zones.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			a.screen = ScreenZones
			return a, a.zones.Init()
		case "2":
			a.screen = ScreenBike
			return a, a.bike.Init()
		case "3":
			a.screen = ScreenHistory
			return a, a.history.Init()
		case "?":
			a.prevScreen = a.screen
			a.screen = ScreenHelp
			return a, nil
		case "esc":
			if a.screen == ScreenHelp {
				a.screen = a.prevScreen
				return a, nil
			}
		}

	case tea.WindowSizeMsg:
		// viewport screens track the size even while hidden
		var m tea.Model
		m, _ = a.zones.Update(msg)
		a.zones = m.(ZonesModel)
		m, _ = a.bike.Update(msg)
		a.bike = m.(BikeModel)
		return a, nil
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenZones:
		var m tea.Model
		m, cmd = a.zones.Update(msg)
		a.zones = m.(ZonesModel)
	case ScreenBike:
		var m tea.Model
		m, cmd = a.bike.Update(msg)
		a.bike = m.(BikeModel)
	case ScreenHistory:
		var m tea.Model
		m, cmd = a.history.Update(msg)
		a.history = m.(HistoryModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenZones:
		content = a.zones.View()
	case ScreenBike:
		content = a.bike.View()
	case ScreenHistory:
		content = a.history.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("racecalc: zones and race predictions")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Zones", ScreenZones},
		{"2", "Bike", ScreenBike},
		{"3", "History", ScreenHistory},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}
