package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/guidelinehq/guidectl/internal/job"
)

// Theme holds the color scheme for the interactive views.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Header  lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Header:  lipgloss.Color("#FFD700"), // gold
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Header).Bold(true)
}

// jobUpdateMsg carries a job snapshot from the runner goroutine.
type jobUpdateMsg job.Job

// jobDoneMsg carries the lifecycle outcome.
type jobDoneMsg struct {
	result *job.Result
	err    error
}

// progressModel is the bubbletea model for a running job.
type progressModel struct {
	updates  <-chan job.Job
	done     <-chan jobDoneMsg
	cancel   context.CancelFunc
	job      job.Job
	progress progress.Model
	theme    Theme
	outcome  *jobDoneMsg
	quitting bool
}

// newProgressModel creates a new progress model.
func newProgressModel(updates <-chan job.Job, done <-chan jobDoneMsg, cancel context.CancelFunc) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		updates:  updates,
		done:     done,
		cancel:   cancel,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start listening for updates).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForActivity(),
		m.progress.Init(),
	)
}

// waitForActivity blocks on the next runner update or the outcome,
// whichever comes first.
func (m progressModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		select {
		case j := <-m.updates:
			return jobUpdateMsg(j)
		case d := <-m.done:
			return d
		}
	}
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case jobUpdateMsg:
		m.job = job.Job(msg)
		return m, m.waitForActivity()

	case jobDoneMsg:
		m.outcome = &msg
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.outcome != nil || m.quitting {
		return m.finalView()
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.State))
	bar := m.progress.ViewAs(float64(m.job.ProgressPercent) / 100)

	message := m.job.ProgressMessage
	if message == "" {
		message = "Working..."
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %d%%\n%s\n%s\n", status, bar, m.job.ProgressPercent, message, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nCancelled.\n")
	}
	if m.outcome.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Job failed: %s\n", m.outcome.err))
	}
	return m.theme.completedStyle().Render("✓ Completed") + "\n"
}

// runJobWithProgress drives one job lifecycle behind the progress UI and
// returns its result. Cancelling the UI cancels the job context.
func runJobWithProgress(ctx context.Context, runner *job.Runner, start func(context.Context) (*job.Result, error)) (*job.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan job.Job, 16)
	runner.OnUpdate = func(j job.Job) {
		// Never block the lifecycle on a slow or closed UI
		select {
		case updates <- j:
		default:
		}
	}

	done := make(chan jobDoneMsg, 1)
	go func() {
		result, err := start(ctx)
		done <- jobDoneMsg{result: result, err: err}
	}()

	model := newProgressModel(updates, done, cancel)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.quitting {
			// Let the lifecycle goroutine observe the cancellation
			outcome := <-done
			if outcome.err != nil {
				return nil, context.Canceled
			}
			return outcome.result, nil
		}
		if m.outcome != nil {
			return m.outcome.result, m.outcome.err
		}
	}

	outcome := <-done
	return outcome.result, outcome.err
}
