package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/guiyumin/ytfetch/internal/downloader"
	"github.com/guiyumin/ytfetch/internal/extractor"
)

var (
	tuiInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	tuiDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	tuiWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	tuiErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	tuiBatchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	tuiFaintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type eventMsg downloader.Event

type jobDoneMsg struct{ err error }

type downloadModel struct {
	spinner  spinner.Model
	bar      progress.Model
	status   string
	current  *extractor.Progress
	cancel   context.CancelFunc
	canceled bool
	done     bool
}

func newDownloadModel(cancel context.CancelFunc) downloadModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return downloadModel{
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		status:  "Starting...",
		cancel:  cancel,
	}
}

func (m downloadModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.canceled = true
			m.status = "Canceling..."
			m.cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		w := msg.Width - 30
		if w > 60 {
			w = 60
		}
		if w > 10 {
			m.bar.Width = w
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		return m.handleEvent(downloader.Event(msg))

	case jobDoneMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m downloadModel) handleEvent(e downloader.Event) (tea.Model, tea.Cmd) {
	switch e.Kind {
	case downloader.EventProgress:
		if e.Progress != nil {
			p := *e.Progress
			m.current = &p
		}
	case downloader.EventStart, downloader.EventSelected, downloader.EventTranscode:
		m.current = nil
		m.status = firstLine(e.Message)
	}
	return m, nil
}

// printed reports whether an event gets a permanent line above the live view
func printed(e downloader.Event, verbose bool) bool {
	switch e.Kind {
	case downloader.EventProgress:
		return false
	case downloader.EventStart, downloader.EventSelected:
		return verbose
	}
	return e.Severity != downloader.Debug || verbose
}

func styleEvent(e downloader.Event) string {
	switch e.Severity {
	case downloader.Success:
		return tuiDoneStyle.Render("✓ " + e.Message)
	case downloader.Warning:
		return tuiWarnStyle.Render("! " + e.Message)
	case downloader.Failure:
		return tuiErrStyle.Render("✗ " + e.Message)
	case downloader.Debug:
		return tuiFaintStyle.Render(e.Message)
	}
	if e.Kind == downloader.EventBatch && e.Index > 0 {
		return "\n" + tuiBatchStyle.Render(e.Message)
	}
	return tuiInfoStyle.Render(e.Message)
}

func (m downloadModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s %s\n", m.spinner.View(), m.status)
	if p := m.current; p != nil {
		if pct := p.Percent(); pct >= 0 {
			fmt.Fprintf(&b, "  %s %s / %s\n", m.bar.ViewAs(pct/100),
				humanize.Bytes(uint64(p.Downloaded)), humanize.Bytes(uint64(p.Total)))
		} else {
			fmt.Fprintf(&b, "  %s downloaded\n", humanize.Bytes(uint64(p.Downloaded)))
		}
	}
	if !m.canceled {
		b.WriteString(tuiFaintStyle.Render("  ctrl+c to cancel") + "\n")
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// runWithTUI runs job in the background while a bubbletea program renders
// its events. Pressing ctrl+c cancels the job's context.
func runWithTUI(ctx context.Context, verbose bool, job func(ctx context.Context, sink downloader.Sink) error, opts ...tea.ProgramOption) error {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(newDownloadModel(cancel), opts...)
	sink := downloader.SinkFunc(func(e downloader.Event) {
		// Program.Println blocks forever once Run has returned; Send gives up
		// when the program stops and keeps lines ordered with the events.
		if printed(e, verbose) {
			p.Send(tea.Println(styleEvent(e))())
		}
		p.Send(eventMsg(e))
	})

	done := make(chan error, 1)
	go func() {
		err := job(jobCtx, sink)
		done <- err
		p.Send(jobDoneMsg{err: err})
	}()

	final, err := p.Run()
	cancel()
	jobErr := <-done
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := final.(downloadModel); ok && m.canceled {
		return context.Canceled
	}
	return jobErr
}
