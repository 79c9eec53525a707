package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"incidentdesk/internal/incident"
	"incidentdesk/internal/session"
)

type uiTheme struct {
	root        lipgloss.Style
	header      lipgloss.Style
	title       lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
	footer      lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	errorBanner lipgloss.Style
	inputPanel  lipgloss.Style
	helpText    lipgloss.Style
	user        lipgloss.Style
	assistant   lipgloss.Style
	card        lipgloss.Style
	cardActive  lipgloss.Style
	label       lipgloss.Style
	value       lipgloss.Style
	example     lipgloss.Style
	modalFrame  lipgloss.Style
	modalPick   lipgloss.Style
	tones       map[incident.Tone]lipgloss.Style
	pills       map[incident.Tone]lipgloss.Style
}

func newTheme() uiTheme {
	pink := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	bg := lipgloss.Color("#120924")
	panelBg := lipgloss.Color("#1b0f35")
	text := lipgloss.Color("#f3f3ff")
	muted := lipgloss.Color("#9ca3d8")
	ink := lipgloss.Color("#22062f")

	red := lipgloss.Color("#ff5c7a")
	amber := lipgloss.Color("#ffd166")
	green := lipgloss.Color("#05ffa1")

	return uiTheme{
		root: lipgloss.NewStyle().
			Background(bg).
			Foreground(text).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Foreground(pink).
			Bold(true),
		panel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(mint).
			Bold(true),
		footer: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(pink).Bold(true),
		errorBanner: lipgloss.NewStyle().
			Foreground(red).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(red).
			Padding(0, 1),
		inputPanel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mint).
			Padding(0, 1),
		helpText:  lipgloss.NewStyle().Foreground(muted),
		user:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(blue).Bold(true),
		card: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		cardActive: lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		label:   lipgloss.NewStyle().Foreground(muted),
		value:   lipgloss.NewStyle().Foreground(text),
		example: lipgloss.NewStyle().Foreground(blue),
		modalFrame: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(blue).
			Padding(1, 2),
		modalPick: lipgloss.NewStyle().
			Foreground(ink).
			Background(pink).
			Bold(true).
			Padding(0, 1),
		tones: map[incident.Tone]lipgloss.Style{
			incident.ToneDanger:    lipgloss.NewStyle().Foreground(red).Bold(true),
			incident.ToneCaution:   lipgloss.NewStyle().Foreground(amber).Bold(true),
			incident.ToneSafe:      lipgloss.NewStyle().Foreground(green).Bold(true),
			incident.ToneSuccess:   lipgloss.NewStyle().Foreground(green).Bold(true),
			incident.ToneAttention: lipgloss.NewStyle().Foreground(amber).Bold(true),
		},
		pills: map[incident.Tone]lipgloss.Style{
			incident.ToneSuccess:   lipgloss.NewStyle().Foreground(ink).Background(green).Padding(0, 1),
			incident.ToneAttention: lipgloss.NewStyle().Foreground(ink).Background(amber).Padding(0, 1),
		},
	}
}

func (t uiTheme) tone(tone incident.Tone) lipgloss.Style {
	if style, ok := t.tones[tone]; ok {
		return style
	}
	return t.value
}

func (t uiTheme) pill(tone incident.Tone) lipgloss.Style {
	if style, ok := t.pills[tone]; ok {
		return style
	}
	return t.value
}

func glyph(icon incident.Icon) string {
	switch icon {
	case incident.IconWarning:
		return "▲"
	case incident.IconLightning:
		return "ϟ"
	case incident.IconShield:
		return "◆"
	case incident.IconCheck:
		return "✔"
	case incident.IconAlert:
		return "●"
	default:
		return "•"
	}
}

func (m model) View() string {
	out := ""
	if m.quitConfirm {
		out = m.renderQuitModal()
	} else {
		header := m.renderHeader()
		content := m.renderContent()
		input := m.renderInput()
		footer := m.renderFooter()
		out = lipgloss.JoinVertical(lipgloss.Left, header, content, input, footer)
	}
	return m.theme.root.Render(out)
}

func (m *model) renderHeader() string {
	title := m.theme.title.Render(defaultTitle)
	tagline := m.theme.helpText.Render(defaultTagline)
	meta := fmt.Sprintf("session %s · backend %s", shortID(m.ctrl.SessionID()), m.backendStatus)
	if !m.lastHealth.IsZero() {
		meta += " @ " + m.lastHealth.Format(session.DefaultTimeFormat)
	}
	body := title + "  " + tagline + "\n" + m.theme.helpText.Render(meta)
	return m.theme.header.Width(maxInt(20, m.width-4)).Render(body)
}

func (m *model) renderContent() string {
	contentHeight := maxInt(8, m.height-12)
	contentWidth := maxInt(40, m.width-4)
	title := "Conversation"
	if m.showHelp {
		title = "Help"
	}
	return m.theme.panel.Width(contentWidth).Height(contentHeight).Render(
		m.theme.panelTitle.Render(title) + "\n" + m.timeline.View(),
	)
}

func (m *model) renderPanes() {
	prevYOffset := m.timeline.YOffset
	prevAtBottom := m.timeline.AtBottom()

	contentHeight := maxInt(8, m.height-12)
	contentWidth := maxInt(40, m.width-4)
	m.timeline.Width = maxInt(20, contentWidth-4)
	m.timeline.Height = maxInt(5, contentHeight-3)

	if m.showHelp {
		m.timeline.SetContent(m.renderHelp())
		m.timeline.GotoTop()
		return
	}
	m.timeline.SetContent(m.renderTimeline())
	if prevAtBottom {
		m.timeline.GotoBottom()
	} else {
		m.timeline.SetYOffset(prevYOffset)
	}
}

func (m *model) resize() {
	contentWidth := maxInt(40, m.width-4)
	m.input.Width = maxInt(20, contentWidth-6)
}

func (m *model) renderTimeline() string {
	store := m.ctrl.Store()
	if store.Len() == 0 && !m.ctrl.Pending() {
		return m.renderWelcome()
	}
	width := maxInt(24, m.timeline.Width-2)
	now := m.now()
	cardIndex := 0

	var b strings.Builder
	for msg := range store.Messages() {
		label, style := "You", m.theme.user
		if msg.Sender == session.SenderAssistant {
			label, style = "Incident Assistant", m.theme.assistant
		}
		b.WriteString(style.Render(label))
		b.WriteString(m.theme.helpText.Render(" · " + msg.Timestamp))
		b.WriteString("\n")
		b.WriteString(wrapText(msg.Text, width))
		b.WriteString("\n")
		for _, p := range incident.PresentAll(msg.Payload, now) {
			b.WriteString(m.renderIncidentCard(p, m.expansion.IsExpanded(p.Key), cardIndex == m.selected, width))
			b.WriteString("\n")
			cardIndex++
		}
		b.WriteString("\n")
	}
	if m.ctrl.Pending() {
		b.WriteString(m.theme.assistant.Render("Incident Assistant"))
		b.WriteString("\n")
		b.WriteString(m.spinner.View() + " " + m.theme.helpText.Render("looking up incidents..."))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *model) renderWelcome() string {
	var b strings.Builder
	b.WriteString(m.theme.panelTitle.Render("Welcome to the " + defaultTitle))
	b.WriteString("\n\n")
	b.WriteString(wrapText("Ask questions about incidents in plain language. Answers include incident cards you can expand for details.", maxInt(24, m.timeline.Width-2)))
	b.WriteString("\n\nTry asking:\n")
	for _, question := range exampleQuestions {
		b.WriteString("  " + m.theme.example.Render("› "+question) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.helpText.Render("Press " + m.keys.Example.Help().Key + " to fill the input with an example."))
	return b.String()
}

// renderIncidentCard draws one card: a collapsed summary row and, when
// expanded, the detail grid and footer.
func (m *model) renderIncidentCard(p incident.Presentation, expanded, selected bool, width int) string {
	chevron := "▸"
	if expanded {
		chevron = "▾"
	}
	priority := m.theme.tone(p.Priority.Tone).Render(glyph(p.Priority.Icon) + " " + p.Key)
	status := m.theme.pill(p.Status.Tone).Render(glyph(p.Status.Icon) + " " + p.Status.Text)
	lines := []string{
		chevron + " " + priority + "  " + status,
		m.theme.value.Render(compactSingleLine(p.Summary, maxInt(10, width-6))),
	}

	if expanded {
		rec := p.Record
		rows := [][2]string{
			{"Incident Number", rec.Number},
			{"State", glyph(p.Status.Icon) + " " + p.Status.Text},
			{"Priority", glyph(p.Priority.Icon) + " " + p.Priority.Text},
			{"Opened By", rec.OpenedBy.DisplayValue},
			{"Assigned To", rec.AssignedTo.DisplayValue},
			{"Assignment Group", rec.AssignmentGroup.DisplayValue},
		}
		if rec.Opened != "" {
			rows = append(rows, [2]string{"Opened", rec.Opened})
		}
		lines = append(lines, "")
		for _, row := range rows {
			lines = append(lines, m.theme.label.Render(padRight(row[0], 18))+m.theme.value.Render(nullCoalesce(row[1], "-")))
		}
		if rec.Description != "" {
			lines = append(lines, "", m.theme.label.Render("Description"), wrapText(rec.Description, maxInt(10, width-6)))
		}
		footer := "Last updated: " + p.LastUpdated.Format("Jan 2, 2006 15:04:05")
		if m.cfg.sourceLabel != "" {
			footer = "Source: " + m.cfg.sourceLabel + " · " + footer
		}
		lines = append(lines, "", m.theme.helpText.Render(footer))
	}

	style := m.theme.card
	if selected {
		style = m.theme.cardActive
	}
	return style.Width(maxInt(20, width-2)).Render(strings.Join(lines, "\n"))
}

func (m *model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.panelTitle.Render("Commands"))
	b.WriteString("\n")
	commands := [][2]string{
		{"/toggle <INC>", "expand or collapse every card for that incident"},
		{"/new", "start a fresh session"},
		{"/help", "show or hide this panel"},
		{"/quit", "leave the console"},
	}
	for _, c := range commands {
		b.WriteString(m.theme.settingKey(padRight(c[0], 16)) + c[1] + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.panelTitle.Render("Keys"))
	b.WriteString("\n")
	for _, binding := range m.keys.hints() {
		h := binding.Help()
		b.WriteString(m.theme.settingKey(padRight(h.Key, 16)) + h.Desc + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.panelTitle.Render("Recent activity"))
	b.WriteString("\n")
	if len(m.logs) == 0 {
		b.WriteString(m.theme.helpText.Render("nothing yet"))
	}
	for _, line := range m.logs {
		b.WriteString(m.theme.helpText.Render(line) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (t uiTheme) settingKey(text string) string {
	return t.status.Render(text)
}

func (m *model) renderInput() string {
	contentWidth := maxInt(40, m.width-4)
	var parts []string
	if errText, ok := m.ctrl.Store().Error(); ok {
		parts = append(parts, m.theme.errorBanner.Render("Error: "+errText))
	}
	inputView := m.input.View()
	if m.ctrl.Pending() {
		inputView = m.spinner.View() + " waiting for answer... " + inputView
	}
	parts = append(parts, inputView)
	return m.theme.inputPanel.Width(contentWidth).Render(strings.Join(parts, "\n"))
}

func (m *model) renderFooter() string {
	contentWidth := maxInt(40, m.width-4)
	statusStyle := m.theme.status
	lowered := strings.ToLower(m.statusLine)
	if strings.Contains(lowered, "failed") || strings.Contains(lowered, "error") {
		statusStyle = m.theme.errorStatus
	}
	line := statusStyle.Render(compactSingleLine(m.statusLine, historyLineChars))
	hints := make([]string, 0, len(m.keys.hints()))
	for _, binding := range m.keys.hints() {
		h := binding.Help()
		hints = append(hints, h.Key+" "+h.Desc)
	}
	return m.theme.footer.Width(contentWidth).Render(line + "\n" + m.theme.helpText.Render("Keys: "+strings.Join(hints, " · ")))
}

func (m *model) renderQuitModal() string {
	canvasWidth := maxInt(40, m.width-4)
	canvasHeight := maxInt(12, m.height-4)
	modalWidth := clampInt(int(float64(canvasWidth)*0.56), 42, 78)
	if modalWidth > canvasWidth-2 {
		modalWidth = canvasWidth - 2
	}
	if modalWidth < 32 {
		modalWidth = 32
	}

	title := m.theme.errorStatus.Render("LEAVE THE CONSOLE?")
	subtitle := m.theme.helpText.Render("The conversation is not saved and will be lost.")
	prompt := m.theme.modalPick.Render("[Y / Enter] Quit") + "    " + m.theme.helpText.Render("[N / Esc] Return")
	body := strings.Join([]string{title, subtitle, "", prompt}, "\n")
	panel := m.theme.modalFrame.Width(modalWidth).Render(body)
	return lipgloss.Place(
		canvasWidth,
		canvasHeight,
		lipgloss.Center,
		lipgloss.Center,
		panel,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("#120924")),
	)
}

func padRight(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(text) >= width {
		return text[:width]
	}
	return text + strings.Repeat(" ", width-len(text))
}
