package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"incidentdesk/internal/query"
	"incidentdesk/internal/session"
)

var exampleQuestions = []string{
	"Give me details of incident INC8740564",
	"Show me all high priority incidents",
	"What's the status of recent disk issues?",
}

type healthChecker interface {
	Health(ctx context.Context) (query.Health, error)
}

type keyMap struct {
	Send         key.Binding
	NextIncident key.Binding
	PrevIncident key.Binding
	Toggle       key.Binding
	Example      key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	Top          key.Binding
	Bottom       key.Binding
	Quit         key.Binding
	ForceQuit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NextIncident: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next incident")),
		PrevIncident: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "previous incident")),
		Toggle:       key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "expand/collapse")),
		Example:      key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "example question")),
		PageUp:       key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "scroll up")),
		PageDown:     key.NewBinding(key.WithKeys("pgdown", "ctrl+f"), key.WithHelp("pgdn", "scroll down")),
		Top:          key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "top")),
		Bottom:       key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "bottom")),
		Quit:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit")),
		ForceQuit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "force quit")),
	}
}

func (k keyMap) hints() []key.Binding {
	return []key.Binding{k.Send, k.NextIncident, k.PrevIncident, k.Toggle, k.Example, k.PageUp, k.PageDown, k.Quit}
}

type model struct {
	cfg       appConfig
	ctrl      *session.Controller
	expansion *session.Expansion
	health    healthChecker
	keys      keyMap
	now       func() time.Time

	statusLine    string
	logs          []string
	backendStatus string
	lastHealth    time.Time
	selected      int
	exampleIndex  int
	showHelp      bool
	quitConfirm   bool

	width  int
	height int

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model

	theme uiTheme
}

type queryDoneMsg struct {
	completion session.Completion
}

type healthDoneMsg struct {
	health query.Health
	err    error
}

type tickMsg time.Time

func newModel(cfg appConfig, client query.Client) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 2000
	input.Placeholder = "Ask about incidents, e.g. \"Show me all high priority incidents\". /help for commands."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true
	timeline.MouseWheelDelta = 4

	m := model{
		cfg:           cfg,
		ctrl:          session.NewController(client, session.WithLogger(slog.Default())),
		expansion:     session.NewExpansion(),
		keys:          defaultKeyMap(),
		now:           time.Now,
		statusLine:    "ready",
		logs:          []string{},
		backendStatus: "unknown",
		selected:      -1,
		input:         input,
		timeline:      timeline,
		spinner:       sp,
		theme:         newTheme(),
	}
	if checker, ok := client.(healthChecker); ok {
		m.health = checker
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.health != nil && m.cfg.healthIntervalSeconds > 0 {
		cmds = append(cmds, m.healthCmd(), tickEvery(m.healthInterval()))
	}
	return tea.Batch(cmds...)
}

func (m model) healthInterval() time.Duration {
	return time.Duration(m.cfg.healthIntervalSeconds) * time.Second
}

func tickEvery(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = time.Duration(defaultHealthPeriod) * time.Second
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// queryCmd executes an accepted ticket off the event loop. The controller
// decides in Update whether the completion still counts.
func (m model) queryCmd(ticket session.Ticket) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return queryDoneMsg{completion: ctrl.Execute(context.Background(), ticket)}
	}
}

func (m model) healthCmd() tea.Cmd {
	checker := m.health
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		health, err := checker.Health(ctx)
		return healthDoneMsg{health: health, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case queryDoneMsg:
		if !m.ctrl.Apply(msg.completion) {
			m.appendLog(fmt.Sprintf("discarded stale answer (generation %d)", msg.completion.Generation))
			break
		}
		m.input.Focus()
		if errText, ok := m.ctrl.Store().Error(); ok {
			m.appendLog("error: " + errText)
			m.statusLine = "question failed"
		} else {
			m.statusLine = "answer received"
		}
		m.renderPanes()
		m.timeline.GotoBottom()
	case healthDoneMsg:
		m.lastHealth = m.now()
		switch {
		case msg.err != nil:
			m.backendStatus = "unreachable"
			m.appendLog("health check failed: " + compactSingleLine(msg.err.Error(), 160))
		case msg.health.Healthy():
			m.backendStatus = "healthy"
		default:
			m.backendStatus = nullCoalesce(msg.health.Status, "unknown")
		}
	case tickMsg:
		if m.health != nil && m.cfg.healthIntervalSeconds > 0 {
			cmds = append(cmds, m.healthCmd(), tickEvery(m.healthInterval()))
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderPanes()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.ctrl.Pending() {
			m.renderPanes()
		}
	case tea.MouseMsg:
		if m.quitConfirm {
			break
		}
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.quitConfirm {
			switch msg.String() {
			case "y", "Y", "enter":
				return m, tea.Quit
			case "n", "N", "esc":
				m.quitConfirm = false
				m.statusLine = "quit canceled"
				m.renderPanes()
			}
			return m, tea.Batch(cmds...)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.showHelp {
				m.showHelp = false
				m.renderPanes()
				return m, tea.Batch(cmds...)
			}
			m.beginQuitConfirm()
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Send):
			raw := strings.TrimSpace(m.input.Value())
			if strings.HasPrefix(raw, "/") {
				m.input.SetValue("")
				m.handleSlash(raw)
				return m, tea.Batch(cmds...)
			}
			ticket, err := m.ctrl.Submit(raw)
			if err != nil {
				if !errors.Is(err, session.ErrEmptyInput) {
					m.statusLine = err.Error()
				}
				return m, tea.Batch(cmds...)
			}
			m.input.SetValue("")
			m.showHelp = false
			m.statusLine = "asking..."
			m.renderPanes()
			m.timeline.GotoBottom()
			cmds = append(cmds, m.queryCmd(ticket))
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.NextIncident):
			m.moveSelection(1)
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.PrevIncident):
			m.moveSelection(-1)
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Toggle):
			keys := m.incidentKeys()
			if m.selected < 0 || m.selected >= len(keys) {
				m.statusLine = "no incident selected (ctrl+n to select)"
				return m, tea.Batch(cmds...)
			}
			m.toggle(keys[m.selected])
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Example):
			if m.ctrl.Pending() {
				return m, tea.Batch(cmds...)
			}
			m.input.SetValue(exampleQuestions[m.exampleIndex%len(exampleQuestions)])
			m.input.CursorEnd()
			m.exampleIndex = (m.exampleIndex + 1) % len(exampleQuestions)
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.PageUp):
			m.timeline.LineUp(8)
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.PageDown):
			m.timeline.LineDown(8)
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Top):
			m.timeline.GotoTop()
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Bottom):
			m.timeline.GotoBottom()
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) handleSlash(raw string) {
	parts := strings.Fields(strings.TrimSpace(raw))
	if len(parts) == 0 {
		return
	}
	cmd := strings.ToLower(parts[0])
	tail := parts[1:]
	switch cmd {
	case "/help":
		m.showHelp = !m.showHelp
		m.renderPanes()
	case "/quit", "/exit":
		m.beginQuitConfirm()
	case "/new":
		id := m.ctrl.Reset()
		m.expansion = session.NewExpansion()
		m.selected = -1
		m.input.Focus()
		m.statusLine = "new session " + shortID(id)
		m.appendLog(m.statusLine)
		m.renderPanes()
	case "/toggle":
		if len(tail) == 0 {
			m.statusLine = "usage: /toggle <incident number>"
			return
		}
		m.toggle(m.canonicalNumber(tail[0]))
	default:
		m.statusLine = "unknown command: " + cmd
	}
}

// incidentKeys lists the incident numbers of every rendered card in
// transcript order; a number repeats when several answers include it.
func (m *model) incidentKeys() []string {
	var keys []string
	for msg := range m.ctrl.Store().Messages() {
		for _, rec := range msg.Payload.Incidents() {
			keys = append(keys, rec.Number)
		}
	}
	return keys
}

func (m *model) canonicalNumber(raw string) string {
	for _, number := range m.incidentKeys() {
		if strings.EqualFold(number, raw) {
			return number
		}
	}
	return raw
}

func (m *model) moveSelection(delta int) {
	keys := m.incidentKeys()
	if len(keys) == 0 {
		m.selected = -1
		m.statusLine = "no incidents to select"
		return
	}
	if m.selected < 0 || m.selected >= len(keys) {
		if delta > 0 {
			m.selected = 0
		} else {
			m.selected = len(keys) - 1
		}
	} else {
		m.selected = (m.selected + delta + len(keys)) % len(keys)
	}
	m.statusLine = "selected " + keys[m.selected]
	m.renderPanes()
}

func (m *model) toggle(number string) {
	if strings.TrimSpace(number) == "" {
		return
	}
	if m.expansion.Toggle(number) {
		m.statusLine = "expanded " + number
	} else {
		m.statusLine = "collapsed " + number
	}
	m.renderPanes()
}

func (m *model) beginQuitConfirm() {
	m.quitConfirm = true
	m.statusLine = "quit incident console?"
}

func (m *model) appendLog(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	m.logs = append(m.logs, fmt.Sprintf("%s %s", m.now().Format(session.DefaultTimeFormat), compactSingleLine(trimmed, historyLineChars)))
	if len(m.logs) > logBufferSize {
		m.logs = m.logs[len(m.logs)-logBufferSize:]
	}
}
