package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"tasktalk/internal/assistant"
)

type fakeAsker struct {
	got []string
	res *assistant.Result
	err error
}

func (f *fakeAsker) Ask(_ context.Context, message string) (*assistant.Result, error) {
	f.got = append(f.got, message)
	return f.res, f.err
}

func typeText(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestChatSendsMessageAndShowsReply(t *testing.T) {
	asker := &fakeAsker{res: &assistant.Result{Reply: `1 change applied.`}}
	var m tea.Model = NewChatModel(context.Background(), asker)

	m = typeText(m, "add milk")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should start a request")
	}
	chat := m.(ChatModel)
	if !chat.thinking {
		t.Error("expected thinking state after enter")
	}
	if chat.input.Value() != "" {
		t.Errorf("input not cleared: %q", chat.input.Value())
	}

	// a second enter while waiting does nothing
	m = typeText(m, "again")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("enter while thinking should be ignored")
	}

	res, err := asker.Ask(context.Background(), "add milk")
	m, _ = m.Update(ReplyMsg{Result: res, Err: err})
	chat = m.(ChatModel)
	if chat.thinking {
		t.Error("still thinking after reply")
	}
	out := chat.Transcript()
	if !strings.Contains(out, "add milk") || !strings.Contains(out, "1 change applied.") {
		t.Errorf("transcript missing exchange:\n%s", out)
	}
}

func TestChatShowsErrors(t *testing.T) {
	var m tea.Model = NewChatModel(context.Background(), &fakeAsker{})

	m, _ = m.Update(ReplyMsg{Err: errors.New("connection refused")})
	if out := m.(ChatModel).Transcript(); !strings.Contains(out, "Error: connection refused") {
		t.Errorf("transcript = %q", out)
	}

	// translation failures still carry a reply
	m, _ = m.Update(ReplyMsg{
		Result: &assistant.Result{Reply: "Sorry, I couldn't work out what to change."},
		Err:    errors.New("bad gateway"),
	})
	if out := m.(ChatModel).Transcript(); !strings.Contains(out, "Sorry, I couldn't work out") {
		t.Errorf("transcript = %q", out)
	}
}

func TestChatIgnoresBlankInputAndQuits(t *testing.T) {
	var m tea.Model = NewChatModel(context.Background(), &fakeAsker{})
	m = typeText(m, "   ")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("blank input should not send")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc did not return tea.Quit")
	}
}
