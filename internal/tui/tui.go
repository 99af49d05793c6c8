// Package tui provides a Bubble Tea terminal user interface for tubefetch.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/tubefetch/internal/app"
	"github.com/handiism/tubefetch/internal/config"
	"github.com/handiism/tubefetch/internal/download"
	"github.com/handiism/tubefetch/internal/model"
	jobprogress "github.com/handiism/tubefetch/internal/progress"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	collectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const (
	maxLogEntries   = 10
	maxFailedShown  = 5
	eventBufferSize = 256
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateResolving
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// JobFactory builds the job for one run.
type JobFactory func(settings *config.Settings, onProgress func(download.ProgressEvent)) (*app.Job, error)

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	newJob    JobFactory
	logs      []LogEntry
	err       error

	ctx        context.Context
	cancel     context.CancelFunc
	cancelling bool

	job      *app.Job
	events   chan download.ProgressEvent
	snapshot jobprogress.Snapshot
	result   app.Result

	// Options
	parallel bool
	playlist bool
	verbose  bool

	width  int
	height int
}

// NewModel creates a new TUI model. newJob may be nil, in which case jobs
// run yt-dlp through app.NewJob with a discarding logger.
func NewModel(settings *config.Settings, newJob JobFactory) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if newJob == nil {
		newJob = DefaultJobFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
	}

	ti := textinput.New()
	ti.Placeholder = "https://www.youtube.com/watch?v=..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		newJob:    newJob,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		parallel:  settings.ParallelDownloads,
		playlist:  settings.CreatePlaylist,
	}
}

// DefaultJobFactory returns a JobFactory that runs yt-dlp.
func DefaultJobFactory(logger *slog.Logger) JobFactory {
	return func(settings *config.Settings, onProgress func(download.ProgressEvent)) (*app.Job, error) {
		return app.NewJob(settings, app.WithLogger(logger), app.WithProgress(onProgress))
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent for every engine progress event.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// JobDoneMsg is sent when the run returns.
	JobDoneMsg struct {
		Result app.Result
		Err    error
	}

	// TickMsg is for periodic phase polling.
	TickMsg struct{}

	// eventsClosedMsg ends the event pump.
	eventsClosedMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.running() && !m.cancelling {
				m.cancel()
				m.cancelling = true
				m.appendLog(LogEntry{Message: "Cancelling, waiting for running downloads...", Level: download.LevelWarning})
			}
			return m, nil

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				return m.start()
			}

		case "ctrl+p":
			if m.state == StateInput {
				m.parallel = !m.parallel
			}
			return m, nil

		case "ctrl+l":
			if m.state == StateInput {
				m.playlist = !m.playlist
			}
			return m, nil

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}
			return m, nil

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				return m, textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Snapshot != nil {
			m.snapshot = *msg.Event.Snapshot
			cmds = append(cmds, m.progress.SetPercent(m.snapshot.Fraction()))
		}
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.appendLog(LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
		}
		cmds = append(cmds, waitForEvent(m.events))

	case eventsClosedMsg:
		return m, nil

	case JobDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.state = StateComplete
			m.result = msg.Result
			m.snapshot = m.job.Engine.Progress()
			cmds = append(cmds, m.progress.SetPercent(m.snapshot.Fraction()))
		}

	case TickMsg:
		if m.running() && m.job != nil {
			if m.job.Engine.Phase() >= download.PhaseDispatching {
				m.state = StateDownloading
			}
			m.snapshot = m.job.Engine.Progress()
			cmds = append(cmds, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) running() bool {
	return m.state == StateResolving || m.state == StateDownloading
}

func (m *Model) appendLog(entry LogEntry) {
	m.logs = append(m.logs, entry)
	if len(m.logs) > maxLogEntries {
		m.logs = m.logs[len(m.logs)-maxLogEntries:]
	}
}

func (m *Model) reset() {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.job = nil
	m.events = nil
	m.snapshot = jobprogress.Snapshot{}
	m.result = app.Result{}
	m.cancelling = false
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.progress.SetPercent(0)
	m.textInput.SetValue("")
	m.textInput.Focus()
}

// start builds the job from the current options and launches it.
func (m Model) start() (tea.Model, tea.Cmd) {
	settings := *m.settings
	settings.ParallelDownloads = m.parallel
	settings.CreatePlaylist = m.playlist

	events := make(chan download.ProgressEvent, eventBufferSize)
	job, err := m.newJob(&settings, func(e download.ProgressEvent) {
		select {
		case events <- e:
		default:
			// UI is behind; the tick still refreshes the counters.
		}
	})
	if err != nil {
		m.state = StateError
		m.err = err
		return m, nil
	}

	m.job = job
	m.events = events
	m.state = StateResolving
	m.textInput.Blur()

	return m, tea.Batch(
		runJob(m.ctx, job, strings.TrimSpace(m.textInput.Value()), events),
		waitForEvent(events),
		m.tickProgress(),
		m.spinner.Tick,
	)
}

// runJob runs the job in the background and closes events when it returns.
func runJob(ctx context.Context, job *app.Job, url string, events chan download.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		res, err := job.Run(ctx, url)
		close(events)
		return JobDoneMsg{Result: res, Err: err}
	}
}

func waitForEvent(events <-chan download.ProgressEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return ProgressMsg{Event: e}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♪ tubefetch"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download audio from YouTube"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateResolving:
		b.WriteString(m.viewResolving())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter YouTube video or playlist URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Parallel downloads, up to %d (ctrl+p)\n", checkbox(m.parallel), m.settings.MaxParallelDownloads))
	b.WriteString(fmt.Sprintf("  %s Create %s playlist (ctrl+l)\n", checkbox(m.playlist), m.settings.PlaylistFormat))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+v)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Format: %s %s | Download path: %s",
		m.settings.AudioFormat, m.settings.AudioQuality, m.settings.DownloadsPath)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewResolving() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching info..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(m.progress.ViewAs(m.snapshot.Fraction()))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Items: %d/%d", m.snapshot.Completed, m.snapshot.Total)))
	if m.snapshot.Label != "" {
		b.WriteString(dimStyle.Render(" | last: " + m.snapshot.Label))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder
	report := m.result.Report
	if report == nil {
		return ""
	}

	heading := "Download Complete!"
	switch {
	case report.Cancelled:
		heading = "Download Cancelled"
	case len(report.Failed) > 0:
		heading = "Download Finished With Errors"
	}

	var body strings.Builder
	body.WriteString(heading + "\n\n")
	if report.Kind == model.TargetCollection {
		body.WriteString(collectionStyle.Render("Playlist: "+report.Title) + "\n")
	} else {
		body.WriteString(collectionStyle.Render(report.Title) + "\n")
	}
	body.WriteString(fmt.Sprintf("Downloaded: %d/%d\n", report.Successful, report.Total))
	body.WriteString(fmt.Sprintf("Failed: %d", len(report.Failed)))
	if m.result.PlaylistPath != "" {
		body.WriteString("\nPlaylist file: " + m.result.PlaylistPath)
	}
	b.WriteString(boxStyle.Render(body.String()))
	b.WriteString("\n")

	for i, f := range report.Failed {
		if i == maxFailedShown {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ... and %d more", len(report.Failed)-maxFailedShown)))
			b.WriteString("\n")
			break
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("  ✗ %s: %s", f.Item.Label(), f.Outcome.Message)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+p: parallel • ctrl+l: playlist • ctrl+v: verbose • esc: quit"
	case StateResolving, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings, logger *slog.Logger) error {
	p := tea.NewProgram(NewModel(settings, DefaultJobFactory(logger)), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
