// Package tui is the terminal chat front-end for the relay.
//
// The model is only touched from the bubbletea event loop; replies from the
// relay come back as messages, never by mutating the model from a goroutine.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PabloGalante/instructor-relay/internal/app/chat"
	"github.com/PabloGalante/instructor-relay/internal/domain"
)

const (
	inputHeight  = 3
	statusHeight = 1
)

type styles struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	body      lipgloss.Style
	status    lipgloss.Style
	help      lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		body:      lipgloss.NewStyle().PaddingLeft(2),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		help:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// answerMsg carries the relay's reply back into the event loop.
type answerMsg struct {
	answer *domain.Answer
	err    error
}

type Model struct {
	ctx       context.Context
	conv      *chat.Conversation
	asker     chat.Asker
	assistant string

	input   textarea.Model
	spin    spinner.Model
	view    viewport.Model
	styles  styles
	width   int
	nothing bool // the last answer was "display nothing"
}

func New(ctx context.Context, conv *chat.Conversation, asker chat.Asker, assistant string) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask " + assistant + " a question..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(inputHeight)
	// Enter submits; newlines are inserted by Update on alt+enter / ctrl+j
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:       ctx,
		conv:      conv,
		asker:     asker,
		assistant: assistant,
		input:     ta,
		spin:      sp,
		view:      viewport.New(80, 20),
		styles:    defaultStyles(),
		width:     80,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width)
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-inputHeight-statusHeight-2, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "alt+enter", "ctrl+j":
			m.input.InsertString("\n")
			return m, nil
		case "enter":
			return m.submit()
		}

	case answerMsg:
		if msg.err != nil {
			m.conv.Fail(msg.err)
		} else {
			m.conv.Resolve(msg.answer)
			m.nothing = msg.answer != nil && !msg.answer.Respond
		}
		m.input.Focus()
		m.refresh()
		return m, textarea.Blink

	case spinner.TickMsg:
		if m.conv.State() == chat.StateIdle {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q, err := m.conv.Begin(m.input.Value())
	if err != nil {
		// blank input or a question already in flight
		return m, nil
	}
	m.conv.Sent()
	m.nothing = false
	m.input.Reset()
	m.input.Blur()
	m.refresh()

	return m, tea.Batch(m.spin.Tick, ask(m.ctx, m.asker, q))
}

func ask(ctx context.Context, asker chat.Asker, q domain.Question) tea.Cmd {
	return func() tea.Msg {
		a, err := asker.Ask(ctx, q)
		return answerMsg{answer: a, err: err}
	}
}

// refresh re-renders the transcript and keeps the newest message in view.
func (m *Model) refresh() {
	var b strings.Builder
	for i, msg := range m.conv.Messages() {
		if i > 0 {
			b.WriteString("\n")
		}
		if msg.Role == domain.RoleUser {
			b.WriteString(m.styles.user.Render("You"))
		} else {
			b.WriteString(m.styles.assistant.Render(m.assistant))
		}
		b.WriteString("\n")
		b.WriteString(m.styles.body.Width(max(m.width-2, 10)).Render(msg.Text))
		b.WriteString("\n")
	}
	m.view.SetContent(b.String())
	m.view.GotoBottom()
}

func (m Model) status() string {
	switch {
	case m.conv.State() != chat.StateIdle:
		return m.spin.View() + m.styles.status.Render(" "+m.assistant+" is typing...")
	case m.nothing:
		return m.styles.status.Render(m.assistant + " had nothing to add.")
	default:
		return m.styles.help.Render("enter: send • alt+enter: newline • esc: quit")
	}
}

func (m Model) View() string {
	return m.view.View() + "\n" + m.status() + "\n" + m.input.View()
}
