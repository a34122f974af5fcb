package status

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	elapsedAfter     = time.Second
	defaultSlowAfter = 5 * time.Second
)

type requestDoneMsg struct {
	err error
}

type RequestOptions struct {
	Label string
	// SlowAfter is when the view starts hinting that the billing service is
	// slow to answer.
	SlowAfter time.Duration
	Now       func() time.Time
}

func (o RequestOptions) withDefaults() RequestOptions {
	if o.SlowAfter <= 0 {
		o.SlowAfter = defaultSlowAfter
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// RequestModel draws a spinner with elapsed time until a single billing
// request returns.
type RequestModel struct {
	spinner spinner.Model
	opts    RequestOptions
	request tea.Cmd
	started time.Time
	elapsed time.Duration
	hint    lipgloss.Style
	err     error
	done    bool
}

func NewRequestModel(opts RequestOptions, request tea.Cmd) RequestModel {
	opts = opts.withDefaults()
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return RequestModel{
		spinner: s,
		opts:    opts,
		request: request,
		started: opts.Now(),
		hint:    lipgloss.NewStyle().Faint(true),
	}
}

func (m RequestModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.request)
}

func (m RequestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.elapsed = m.opts.Now().Sub(m.started)
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case requestDoneMsg:
		m.done = true
		m.err = msg.err
		m.elapsed = m.opts.Now().Sub(m.started)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m RequestModel) View() string {
	if m.done {
		return ""
	}

	line := fmt.Sprintf("%s %s", m.spinner.View(), m.opts.Label)
	if m.elapsed >= elapsedAfter {
		line += " " + m.hint.Render(m.elapsed.Truncate(time.Second).String())
	}
	if m.elapsed >= m.opts.SlowAfter {
		line += "\n" + m.hint.Render("  the billing service is slow to answer, ctrl+c to give up")
	}

	return line
}

// Elapsed is how long the request has been running, or took once done.
func (m RequestModel) Elapsed() time.Duration {
	return m.elapsed
}

func (m RequestModel) Err() error {
	return m.err
}

// RunRequest runs request while drawing a RequestModel on output. The request
// error is returned as is, with the time it took.
func RunRequest(ctx context.Context, output io.Writer, opts RequestOptions, request func(context.Context) error) (time.Duration, error) {
	requestCmd := func() tea.Msg {
		return requestDoneMsg{err: request(ctx)}
	}

	p := tea.NewProgram(
		NewRequestModel(opts, requestCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return 0, err
	}

	result, ok := finalModel.(RequestModel)
	if !ok {
		return 0, fmt.Errorf("unexpected final request model type %T", finalModel)
	}

	return result.Elapsed(), result.Err()
}
