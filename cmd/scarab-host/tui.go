package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/dragoncraft87/scarab-host/internal/coordinator"
	"github.com/dragoncraft87/scarab-host/internal/serialport"
	"github.com/dragoncraft87/scarab-host/internal/telemetry"
	"github.com/dragoncraft87/scarab-host/internal/upload"
)

const panelWidth = 56

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#2563EB")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(panelWidth)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)
)

// tickMsg drives the 1-second refresh, mirroring the teacher's
// updateResourceData tea.Tick pattern.
type tickMsg time.Time

// model is the read-only Bubble Tea view over the running host: it never
// mutates coordinator/session state, only renders it.
type model struct {
	coord    *coordinator.Coordinator
	sampler  *telemetry.Sampler
	session  func() *serialport.Session
	progress <-chan upload.Progress
	bar      progress.Model

	snapshot     telemetry.Snapshot
	lastProgress upload.Progress
}

func newModel(coord *coordinator.Coordinator, sampler *telemetry.Sampler, session func() *serialport.Session, progress_ <-chan upload.Progress) model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = panelWidth - 4
	return model{coord: coord, sampler: sampler, session: session, progress: progress_, bar: bar}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		m.snapshot = m.sampler.Sample()
		select {
		case p := <-m.progress:
			m.lastProgress = p
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

func (m model) View() string {
	title := headerStyle.Render("scarab-host")

	sess := m.session()
	linkLine := warnStyle.Render("searching for device...")
	if sess != nil {
		linkLine = okStyle.Render(ansi.Wordwrap(
			fmt.Sprintf("%s @ %d baud (%s)", sess.PortName, sess.Baud, stateLabel(sess.State())),
			panelWidth-4, " \t",
		))
	}
	linkPanel := panelStyle.Render(fmt.Sprintf("Link\n%s", linkLine))

	telPanel := panelStyle.Render(fmt.Sprintf(
		"Telemetry\nCPU %d%% %.1f°C  GPU %d%% %.1f°C\nRAM %.1f/%.1fGB  %s %dMbps",
		int(m.snapshot.CPULoad), m.snapshot.CPUTemp,
		int(m.snapshot.GPULoad), m.snapshot.GPUTemp,
		m.snapshot.RAMUsedGB, m.snapshot.RAMTotalGB,
		m.snapshot.NetKind, m.snapshot.NetLinkMbps,
	))

	uploadBody := "idle"
	if m.coord.UploadInProgress() && m.lastProgress.TotalBytes > 0 {
		uploadBody = fmt.Sprintf("%s (chunk %d/%d)\n%s",
			m.lastProgress.State, m.lastProgress.ChunksSent, m.lastProgress.TotalChunks,
			m.bar.ViewAs(m.lastProgress.Percent/100))
	}
	uploadPanel := panelStyle.Render(fmt.Sprintf("Upload\n%s", uploadBody))

	footer := footerStyle.Render("q to quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, linkPanel, telPanel, uploadPanel, footer)
}

func stateLabel(s serialport.State) string {
	switch s {
	case serialport.StateStreaming:
		return "streaming"
	case serialport.StatePaused:
		return "paused"
	case serialport.StateSyncing:
		return "syncing"
	case serialport.StateHandshaking:
		return "handshaking"
	default:
		return "connecting"
	}
}
