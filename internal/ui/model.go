package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/notetracker/internal/pitch"
)

// historySize is how many detected notes the UI lists
const historySize = 8

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFA500"))

	// Note colors
	noteColors = map[byte]string{
		'C': "#E8D6B0", // Beige
		'D': "#A020F0", // Purple
		'E': "#FFFF00", // Yellow
		'F': "#FFA500", // Orange
		'G': "#00FF00", // Green
		'A': "#FF0000", // Red
		'B': "#0000FF", // Blue
	}

	letters = "CDEFGAB"
)

// Tracker is the note detector driven by the UI
type Tracker interface {
	Tick(elapsed time.Duration)
	Snapshot() pitch.Note
	Subscribe(fn func(name string)) (unsubscribe func())
	Suspend() error
	Resume() error
}

// TickMsg represents a rendering tick
type TickMsg time.Time

// NoteDetectedMsg carries a note the tracker detected
type NoteDetectedMsg struct {
	Name string
	At   time.Time
}

// Model represents the UI state
type Model struct {
	tracker  Tracker
	interval time.Duration
	pending  *[]string

	note     pitch.Note
	history  []NoteDetectedMsg
	lastTick time.Time
	paused   bool
	err      error
	width    int
	height   int
}

// NewModel creates a UI that ticks tracker every interval
func NewModel(tracker Tracker, interval time.Duration) Model {
	pending := &[]string{}
	// Subscribers run inside Tick, which runs inside Update, so events are
	// queued here and turned into messages once Tick returns.
	tracker.Subscribe(func(name string) {
		*pending = append(*pending, name)
	})

	return Model{
		tracker:  tracker,
		interval: interval,
		pending:  pending,
		note:     pitch.Silent(),
	}
}

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p":
			m.setPaused(!m.paused)
		case "ctrl+z":
			m.setPaused(true)
			return m, tea.Suspend
		}

	case tea.ResumeMsg:
		m.setPaused(false)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		now := time.Time(msg)
		elapsed := m.interval
		if !m.lastTick.IsZero() {
			elapsed = now.Sub(m.lastTick)
		}
		m.lastTick = now

		if m.paused {
			return m, m.tick()
		}

		m.tracker.Tick(elapsed)
		m.note = m.tracker.Snapshot()

		cmds := []tea.Cmd{m.tick()}
		for _, name := range *m.pending {
			detected := NoteDetectedMsg{Name: name, At: now}
			cmds = append(cmds, func() tea.Msg { return detected })
		}
		*m.pending = (*m.pending)[:0]
		return m, tea.Batch(cmds...)

	case NoteDetectedMsg:
		m.history = append([]NoteDetectedMsg{msg}, m.history...)
		if len(m.history) > historySize {
			m.history = m.history[:historySize]
		}
	}

	return m, nil
}

func (m *Model) setPaused(paused bool) {
	if paused == m.paused {
		return
	}

	var err error
	if paused {
		err = m.tracker.Suspend()
		m.note = pitch.Silent()
	} else {
		err = m.tracker.Resume()
		// The first tick after resuming must not count the pause as dwell
		m.lastTick = time.Time{}
	}
	if err != nil {
		slog.Error("toggle capture", "paused", paused, "err", err)
		m.err = err
		return
	}
	m.err = nil
	m.paused = paused
}

// Paused reports whether capture is suspended
func (m Model) Paused() bool {
	return m.paused
}

// History returns the detected notes, newest first
func (m Model) History() []NoteDetectedMsg {
	return m.history
}

// noteStyle is the base style of the big note block
func noteStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(color)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333"))
}

// neighbour returns the natural note a sharp raises towards or a flat
// lowers towards
func neighbour(letter byte, accidental byte) byte {
	i := strings.IndexByte(letters, letter)
	if i < 0 {
		return 'C'
	}
	if accidental == 'b' {
		return letters[(i+len(letters)-1)%len(letters)]
	}
	return letters[(i+1)%len(letters)]
}

// renderNote draws a note name. Naturals get a single color block;
// accidentals are split between the two neighbouring naturals.
func renderNote(name string) string {
	letter := name[0]
	if len(name) < 2 || (name[1] != '#' && name[1] != 'b') {
		return noteStyle(noteColors[letter]).Padding(2, 4).MarginBottom(1).Render(name)
	}

	other := neighbour(letter, name[1])

	leftStyle := noteStyle(noteColors[letter]).
		BorderLeft(true).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(false).
		PaddingLeft(2).
		PaddingRight(1).
		PaddingTop(2).
		PaddingBottom(2)

	rightStyle := noteStyle(noteColors[other]).
		BorderLeft(false).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(true).
		PaddingLeft(1).
		PaddingRight(2).
		PaddingTop(2).
		PaddingBottom(2)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftStyle.Render(name[:1]), rightStyle.Render(name[1:]))
}

// View renders the UI
func (m Model) View() string {
	s := titleStyle.Render("NoteTracker")
	s += "\n"

	switch {
	case m.paused:
		s += pausedStyle.Render("Paused")
	case m.note.HasPitch():
		s += renderNote(m.note.Name)
		s += "\n"
		info := fmt.Sprintf("Frequency: %.2f Hz | Cents: %+.1f", m.note.Pitch, m.note.Accuracy)
		s += infoStyle.Render(info)
	default:
		s += infoStyle.Render("Listening for audio...")
	}

	if m.err != nil {
		s += "\n" + pausedStyle.Render("Error: "+m.err.Error())
	}

	if len(m.history) > 0 {
		names := make([]string, len(m.history))
		for i, d := range m.history {
			names[i] = d.Name
		}
		s += "\n\n" + infoStyle.Render("Detected: "+strings.Join(names, " "))
	}

	s += "\n\n"
	s += infoStyle.Render("p pause | ctrl+z suspend | q quit")

	return s
}
