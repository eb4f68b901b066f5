// Package ui is the terminal front-end: a live caption view over the
// session controller.
package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ab-esl-ai/caption-gateway/internal/audio"
	"github.com/ab-esl-ai/caption-gateway/internal/captions"
	"github.com/ab-esl-ai/caption-gateway/internal/session"
)

// maxSegments bounds the in-memory display history.
const maxSegments = 500

// Model is the root bubbletea model for the caption view.
type Model struct {
	controller *session.Controller

	// Stream state
	connState captions.ConnState
	capturing bool
	terminal  bool // reconnect budget exhausted, waiting on the user
	attempts  int

	// Transcript
	segments []captions.Segment
	partial  string

	// Audio level
	level audio.Level

	// UI state
	width  int
	height int
	scroll int
	live   bool // follow the newest segment

	notice    string
	noticeErr error
}

// New creates the initial model over a controller.
func New(controller *session.Controller) Model {
	return Model{
		controller: controller,
		connState:  captions.StateIdle,
		live:       true,
	}
}

// Init starts listening for controller events.
func (m Model) Init() tea.Cmd {
	return listenCmd(m.controller)
}

// listenCmd blocks for the next controller event.
func listenCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return ControllerEventMsg{Event: <-c.Events()}
	}
}

// startCmd begins a new session.
func startCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return StartResultMsg{Err: c.Start(context.Background())}
	}
}

// restartCmd is the explicit manual reconnect: teardown plus fresh start,
// which also resets the reconnect budget.
func restartCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return StartResultMsg{Err: c.Restart(context.Background())}
	}
}

// exportCmd writes the transcript to a timestamped CSV in the working
// directory.
func exportCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		path := fmt.Sprintf("captions-%s.csv", time.Now().Format("20060102-150405"))
		f, err := os.Create(path)
		if err != nil {
			return ExportResultMsg{Err: err}
		}
		defer f.Close()

		if err := c.ExportCSV(f); err != nil {
			os.Remove(path)
			return ExportResultMsg{Err: err}
		}
		return ExportResultMsg{Path: path}
	}
}

func clearNoticeCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ControllerEventMsg:
		m = m.applyEvent(msg.Event)
		return m, listenCmd(m.controller)

	case StartResultMsg:
		if msg.Err != nil {
			m.notice = msg.Err.Error()
			m.noticeErr = msg.Err
			m.capturing = false
			return m, clearNoticeCmd()
		}
		m.capturing = true
		m.terminal = false
		m.segments = nil
		m.partial = ""
		return m, nil

	case ExportResultMsg:
		if msg.Err != nil {
			m.notice = "export failed: " + msg.Err.Error()
			m.noticeErr = msg.Err
		} else {
			m.notice = "exported " + msg.Path
			m.noticeErr = nil
		}
		return m, clearNoticeCmd()

	case ClearNoticeMsg:
		m.notice = ""
		m.noticeErr = nil
		return m, nil
	}

	return m, nil
}

// applyEvent folds one controller event into the model.
func (m Model) applyEvent(e session.Event) Model {
	if e.Kind == session.EventLevel {
		m.level = e.Level
		return m
	}

	u := e.Conn
	switch u.Kind {
	case captions.UpdateState:
		m.connState = u.State
		m.attempts = m.controller.Attempts()
		if u.Terminal {
			m.terminal = true
			m.capturing = false
		}
		if u.Status != "" {
			m.notice = u.Status
		}

	case captions.UpdatePartial:
		m.partial = u.Partial

	case captions.UpdateSegment:
		if u.Segment != nil {
			m.partial = ""
			m.segments = append(m.segments, *u.Segment)
			if len(m.segments) > maxSegments {
				m.segments = m.segments[len(m.segments)-maxSegments:]
			}
		}

	case captions.UpdateStatus:
		m.notice = u.Status
	}

	return m
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit, keyQuitUpper, keyCtrlC:
		m.controller.Stop()
		return m, tea.Quit

	case keyToggle:
		if m.capturing {
			m.controller.Stop()
			m.capturing = false
			m.connState = captions.StateClosed
			return m, nil
		}
		return m, startCmd(m.controller)

	case keyReconnect:
		return m, restartCmd(m.controller)

	case keyExport:
		return m, exportCmd(m.controller)

	case keyUp:
		m.live = false
		if m.scroll > 0 {
			m.scroll--
		}
		return m, nil

	case keyDown:
		max := m.maxScroll()
		m.scroll++
		if m.scroll >= max {
			m.scroll = max
			m.live = true
		}
		return m, nil
	}

	return m, nil
}

// View renders the caption screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderTranscript())
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.width)))
	if m.notice != "" {
		if m.noticeErr != nil || m.terminal {
			sections = append(sections, errorStyle.Render(m.notice))
		} else {
			sections = append(sections, dimStyle.Render(m.notice))
		}
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	return titleStyle.Render("LIVE CAPTIONS")
}

func (m Model) renderStatusBar() string {
	var state string
	switch m.connState {
	case captions.StateOpen:
		state = liveDotStyle.Render("● LIVE")
	case captions.StateConnecting:
		state = connectingStyle.Render("◌ CONNECTING")
	case captions.StateClosing:
		state = connectingStyle.Render("◌ CLOSING")
	case captions.StateClosed:
		state = idleDotStyle.Render("○ CLOSED")
	default:
		state = idleDotStyle.Render("○ IDLE")
	}

	var meter string
	if m.capturing {
		meter = "  " + renderLevelMeter(m.level)
	}

	var reconnects string
	if m.attempts > 0 {
		reconnects = "  " + dimStyle.Render(fmt.Sprintf("reconnects %d", m.attempts))
	}

	return state + meter + reconnects
}

func renderLevelMeter(level audio.Level) string {
	const barLen = 8
	filled := int(level.RMS * 4 * barLen) // full bar well before clipping
	if filled > barLen {
		filled = barLen
	}

	var bar string
	for i := 0; i < barLen; i++ {
		switch {
		case i >= filled:
			bar += levelGrayStyle.Render("░")
		case float64(i)/barLen > 0.6:
			bar += levelYellowStyle.Render("█")
		default:
			bar += levelGreenStyle.Render("█")
		}
	}

	label := dimStyle.Render("MIC")
	if level.Active {
		label = levelGreenStyle.Render("MIC")
	}
	return label + " " + bar
}

// renderTranscript shows the committed segments plus the single live
// partial line at the bottom.
func (m Model) renderTranscript() string {
	height := m.transcriptHeight()

	var lines []string
	for _, seg := range m.segments {
		lines = append(lines, segmentStyle.Render(seg.Text))
		if seg.Simplified != "" && seg.Simplified != seg.Text {
			lines = append(lines, simplifiedStyle.Render("  → "+seg.Simplified))
		}
		if len(seg.Gloss) > 0 {
			var pairs []string
			for _, g := range seg.Gloss {
				pairs = append(pairs, g.En+"="+g.L1)
			}
			lines = append(lines, glossStyle.Render("  "+strings.Join(pairs, "  ")))
		}
	}

	if m.partial != "" {
		lines = append(lines, partialStyle.Render(m.partial+"…"))
	}

	start := m.scroll
	if m.live {
		start = len(lines) - height
	}
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > len(lines) {
		end = len(lines)
	}
	visible := lines[start:end]

	for len(visible) < height {
		visible = append(visible, "")
	}
	return strings.Join(visible, "\n")
}

func (m Model) transcriptHeight() int {
	// header, status, two dividers, footer, optional notice
	h := m.height - 5
	if m.notice != "" {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) maxScroll() int {
	lines := len(m.segments)
	if m.partial != "" {
		lines++
	}
	max := lines - m.transcriptHeight()
	if max < 0 {
		max = 0
	}
	return max
}

func (m Model) renderFooter() string {
	bind := func(key, desc string) string {
		return footerKeyStyle.Render(key) + footerDescStyle.Render(" "+desc)
	}

	toggle := "start"
	if m.capturing {
		toggle = "stop"
	}

	parts := []string{
		bind("space", toggle),
		bind("r", "reconnect"),
		bind("e", "export csv"),
		bind("q", "quit"),
	}
	return strings.Join(parts, footerDescStyle.Render("  ·  "))
}
