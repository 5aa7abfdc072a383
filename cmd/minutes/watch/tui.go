package watchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/minutes/api"
	"github.com/papercomputeco/minutes/pkg/broadcast"
	"github.com/papercomputeco/minutes/pkg/cliui"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

// maxTranscriptLines bounds the in-memory transcript pane.
const maxTranscriptLines = 2000

// actionTimeout bounds a pause, resume, or flush request.
const actionTimeout = 5 * time.Second

var (
	watchTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	watchSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	watchDividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	watchMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	watchErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// controller is the subset of apiclient.Client the TUI drives.
type controller interface {
	SetRunning(ctx context.Context, running bool) (*api.StateResponse, error)
	Flush(ctx context.Context) error
}

type watchKeyMap struct {
	Pause key.Binding
	Flush key.Binding
	Up    key.Binding
	Down  key.Binding
	Quit  key.Binding
}

func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Flush, k.Up, k.Down, k.Quit}
}

func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Pause, k.Flush}, {k.Up, k.Down, k.Quit}}
}

func defaultKeyMap() watchKeyMap {
	return watchKeyMap{
		Pause: key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		Flush: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "summarize now")),
		Up:    key.NewBinding(key.WithKeys("k", "up", "pgup"), key.WithHelp("k", "scroll up")),
		Down:  key.NewBinding(key.WithKeys("j", "down", "pgdown"), key.WithHelp("j", "scroll down")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// eventMsg carries one broadcast event read from the websocket.
type eventMsg broadcast.Event

// disconnectedMsg ends the event stream.
type disconnectedMsg struct {
	err error
}

// actionDoneMsg reports the result of a control request.
type actionDoneMsg struct {
	notice string
	err    error
}

type watchModel struct {
	ctx     context.Context
	client  controller
	events  <-chan bubbletea.Msg
	meeting string

	summary  *string
	rendered string
	running  bool
	model    string
	lines    []string
	maxText  int

	transcript viewport.Model
	width      int
	height     int

	notice       string
	err          error
	disconnected bool

	keys watchKeyMap
	help help.Model
}

func newWatchModel(ctx context.Context, client controller, events <-chan bubbletea.Msg, status *api.StatusResponse) watchModel {
	m := watchModel{
		ctx:        ctx,
		client:     client,
		events:     events,
		running:    true,
		transcript: viewport.New(80, 10),
		keys:       defaultKeyMap(),
		help:       help.New(),
	}

	if status != nil {
		m.meeting = status.Meeting
		m.running = status.Running
		m.model = status.Model
		m.summary = status.Summary
	}
	return m
}

func (m watchModel) Init() bubbletea.Cmd {
	return waitForEvent(m.events)
}

func (m watchModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case eventMsg:
		m.apply(broadcast.Event(msg))
		return m, waitForEvent(m.events)

	case disconnectedMsg:
		m.disconnected = true
		m.err = msg.err
		return m, nil

	case actionDoneMsg:
		m.notice = msg.notice
		m.err = msg.err
		return m, nil

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m watchModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, bubbletea.Quit
	case key.Matches(msg, m.keys.Pause):
		return m, setRunningCmd(m.ctx, m.client, !m.running)
	case key.Matches(msg, m.keys.Flush):
		return m, flushCmd(m.ctx, m.client)
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd bubbletea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}
	return m, nil
}

// apply folds ev into the model state.
func (m *watchModel) apply(ev broadcast.Event) {
	switch ev.Type {
	case broadcast.TypeSegment:
		if ev.Segment == nil {
			return
		}
		m.lines = append(m.lines, cliui.FormatFragment(*ev.Segment, m.maxText))
		if len(m.lines) > maxTranscriptLines {
			m.lines = m.lines[len(m.lines)-maxTranscriptLines:]
		}
		atBottom := m.transcript.AtBottom()
		m.transcript.SetContent(strings.Join(m.lines, "\n"))
		if atBottom {
			m.transcript.GotoBottom()
		}

	case broadcast.TypeSummary:
		m.summary = ev.Summary
		m.rendered = ""
		m.layout()

	case broadcast.TypeSummarizerState:
		if ev.Running != nil {
			m.running = *ev.Running
		}

	case broadcast.TypeModelChanged:
		if ev.Model != nil {
			m.model = *ev.Model
			m.notice = "model switched to " + *ev.Model
		}

	case broadcast.TypePromptChanged:
		m.notice = "prompt templates reloaded"
	}
}

// layout sizes the panes: the summary takes the top half, the transcript
// the remainder.
func (m *watchModel) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	if m.summary != nil && m.rendered == "" {
		rendered, err := cliui.RenderMarkdownWidth(*m.summary, max(m.width-4, 20))
		if err != nil {
			rendered = *m.summary
		}
		m.rendered = strings.TrimRight(rendered, "\n")
	}

	// header, two section titles, divider, notice, help
	chrome := 6
	summaryHeight := (m.height - chrome) / 2
	m.transcript.Width = m.width
	m.transcript.Height = max(m.height-chrome-summaryHeight, 3)
	m.transcript.SetContent(strings.Join(m.lines, "\n"))
	m.transcript.GotoBottom()
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(m.viewHeader())
	b.WriteString("\n")

	b.WriteString(watchSectionStyle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(m.viewSummary())
	b.WriteString("\n")

	b.WriteString(watchDividerStyle.Render(strings.Repeat("─", max(m.width, 20))))
	b.WriteString("\n")
	b.WriteString(watchSectionStyle.Render("Transcript"))
	b.WriteString(watchMutedStyle.Render(" (" + strconv.Itoa(len(m.lines)) + ")"))
	b.WriteString("\n")
	b.WriteString(m.transcript.View())
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(watchErrorStyle.Render(m.err.Error()))
	case m.disconnected:
		b.WriteString(watchErrorStyle.Render("disconnected from server"))
	case m.notice != "":
		b.WriteString(watchMutedStyle.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m watchModel) viewHeader() string {
	parts := []string{watchTitleStyle.Render("minutes")}
	if m.meeting != "" {
		parts = append(parts, cliui.NameStyle.Render(m.meeting))
	}
	parts = append(parts, cliui.StateLabel(m.running))
	if m.model != "" {
		parts = append(parts, cliui.ValueStyle.Render(m.model))
	}
	return strings.Join(parts, watchMutedStyle.Render(" · "))
}

func (m watchModel) viewSummary() string {
	if m.summary == nil {
		return watchMutedStyle.Render("No summary yet.")
	}

	text := m.rendered
	if text == "" {
		text = *m.summary
	}

	if m.height > 0 {
		limit := max((m.height-6)/2, 1)
		lines := strings.Split(text, "\n")
		if len(lines) > limit {
			lines = append(lines[:limit-1], watchMutedStyle.Render(fmt.Sprintf("… %d more lines", len(lines)-limit+1)))
		}
		text = strings.Join(lines, "\n")
	}
	return text
}

func waitForEvent(events <-chan bubbletea.Msg) bubbletea.Cmd {
	return func() bubbletea.Msg {
		msg, ok := <-events
		if !ok {
			return disconnectedMsg{}
		}
		return msg
	}
}

func setRunningCmd(ctx context.Context, client controller, running bool) bubbletea.Cmd {
	return func() bubbletea.Msg {
		ctx, cancel := context.WithTimeout(ctx, actionTimeout)
		defer cancel()

		state, err := client.SetRunning(ctx, running)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		notice := "summarizer resumed"
		if !state.Running {
			notice = "summarizer paused"
		}
		return actionDoneMsg{notice: notice}
	}
}

func flushCmd(ctx context.Context, client controller) bubbletea.Cmd {
	return func() bubbletea.Msg {
		ctx, cancel := context.WithTimeout(ctx, actionTimeout)
		defer cancel()

		if err := client.Flush(ctx); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{notice: "summary requested"}
	}
}

// pumpEvents reads broadcast envelopes from conn into out until the
// connection fails or ctx is done, then closes out.
func pumpEvents(ctx context.Context, conn *websocket.Conn, out chan<- bubbletea.Msg) {
	defer close(out)

	send := func(msg bubbletea.Msg) bool {
		select {
		case out <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			send(disconnectedMsg{err: err})
			return
		}

		var ev broadcast.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if !send(eventMsg(ev)) {
			return
		}
	}
}
