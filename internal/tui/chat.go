// Package tui implements the interactive assistant chat.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"tasktalk/internal/assistant"
)

// Asker sends one message to the assistant.
type Asker interface {
	Ask(ctx context.Context, message string) (*assistant.Result, error)
}

// ReplyMsg carries the assistant's answer back to the Update loop.
type ReplyMsg struct {
	Result *assistant.Result
	Err    error
}

type line struct {
	text  string
	style int
}

const (
	lineUser = iota
	lineReply
	lineError
)

// ChatModel is a scrolling transcript with an input line.
type ChatModel struct {
	asker   Asker
	ctx     context.Context
	input   textinput.Model
	view    viewport.Model
	spinner spinner.Model

	lines    []line
	thinking bool
	width    int
	height   int
}

// NewChatModel creates a chat bound to asker. ctx bounds every request.
func NewChatModel(ctx context.Context, asker Asker) ChatModel {
	in := textinput.New()
	in.Placeholder = "add buy milk tomorrow, mark report done..."
	in.Prompt = "> "
	in.CharLimit = 2000
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = TitleStyle

	return ChatModel{
		asker:   asker,
		ctx:     ctx,
		input:   in,
		view:    viewport.New(80, 20),
		spinner: s,
	}
}

// Init implements tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.thinking {
				return m, nil
			}
			if text == "/quit" || text == "/exit" {
				return m, tea.Quit
			}
			m.input.Reset()
			m.lines = append(m.lines, line{text: text, style: lineUser})
			m.thinking = true
			m.refresh()
			return m, tea.Batch(m.ask(text), m.spinner.Tick)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}

	case ReplyMsg:
		m.thinking = false
		switch {
		case msg.Result != nil:
			style := lineReply
			if msg.Err != nil {
				style = lineError
			}
			m.lines = append(m.lines, line{text: msg.Result.Reply, style: style})
		case msg.Err != nil:
			m.lines = append(m.lines, line{text: "Error: " + msg.Err.Error(), style: lineError})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.thinking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m ChatModel) ask(text string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.asker.Ask(m.ctx, text)
		return ReplyMsg{Result: res, Err: err}
	}
}

// refresh re-renders the transcript and scrolls to the bottom.
func (m *ChatModel) refresh() {
	m.view.SetContent(m.Transcript())
	m.view.GotoBottom()
}

// Transcript renders every exchanged message.
func (m ChatModel) Transcript() string {
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		switch l.style {
		case lineUser:
			b.WriteString(UserStyle.Render("you: ") + l.text + "\n")
		case lineError:
			b.WriteString(ErrorStyle.Render(l.text) + "\n")
		default:
			b.WriteString(l.text + "\n")
		}
	}
	return b.String()
}

// View implements tea.Model.
func (m ChatModel) View() string {
	status := SubtleStyle.Render("enter to send, esc to quit")
	if m.thinking {
		status = m.spinner.View() + " thinking..."
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		TitleStyle.Render("tasktalk"),
		m.view.View(),
		m.input.View(),
		status,
	)
}

// Run starts the chat on the terminal's alternate screen.
func Run(ctx context.Context, asker Asker) error {
	p := tea.NewProgram(NewChatModel(ctx, asker), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
