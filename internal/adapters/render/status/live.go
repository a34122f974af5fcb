package status

import (
	"context"
	"time"

	"github.com/bnema/zonecharge/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultRefresh = time.Second

// DashboardMsg replaces the dashboard shown by a running LiveModel. Callers
// send it with tea.Program.Send from store and coordinator subscriptions.
type DashboardMsg Dashboard

type retryDoneMsg struct {
	err error
}

type refreshMsg time.Time

type LiveOptions struct {
	StaleAfter time.Duration
	Refresh    time.Duration
	// Retry is bound to the r key while the dashboard offers a retry.
	Retry func(context.Context) error
	Now   func() time.Time
}

// LiveModel is the interactive view behind `zc watch`.
type LiveModel struct {
	dashboard Dashboard
	opts      LiveOptions
	styles    styles
	spinner   spinner.Model
	retrying  bool
	retryErr  error
	quitting  bool
}

func NewLiveModel(initial Dashboard, opts LiveOptions) LiveModel {
	if opts.Refresh <= 0 {
		opts.Refresh = defaultRefresh
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return LiveModel{
		dashboard: initial,
		opts:      opts,
		styles:    newStyles(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
	}
}

func (m LiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh())
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DashboardMsg:
		m.dashboard = Dashboard(msg)
		if m.dashboard.Coordinator.State != application.StatePermissionDenied {
			m.retryErr = nil
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if m.retrying || !m.dashboard.RetryAvailable || m.opts.Retry == nil {
				return m, nil
			}
			m.retrying = true
			m.retryErr = nil
			retry := m.opts.Retry
			return m, func() tea.Msg {
				return retryDoneMsg{err: retry(context.Background())}
			}
		}
		return m, nil
	case retryDoneMsg:
		m.retrying = false
		m.retryErr = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case refreshMsg:
		return m, m.refresh()
	default:
		return m, nil
	}
}

func (m LiveModel) View() string {
	if m.quitting {
		return ""
	}

	body := renderView(m.dashboard, RenderOptions{Now: m.opts.Now(), StaleAfter: m.opts.StaleAfter}, m.styles)
	lines := []string{body}

	switch {
	case m.retrying:
		lines = append(lines, m.spinner.View()+" retrying location access...")
	case m.dashboard.Coordinator.State == application.StateAwaitingLocationPermission:
		lines = append(lines, m.spinner.View()+" waiting for a location fix...")
	}
	if m.retryErr != nil {
		lines = append(lines, m.styles.warning.Render("retry failed: "+m.retryErr.Error()))
	}
	lines = append(lines, m.styles.hint.Render("q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m LiveModel) Dashboard() Dashboard {
	return m.dashboard
}

func (m LiveModel) refresh() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}
