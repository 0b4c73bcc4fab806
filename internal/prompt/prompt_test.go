package prompt

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNonInteractiveFailsEveryPrompt(t *testing.T) {
	var p Prompter = NonInteractive{}

	if _, err := p.Input("Database name", nil); !errors.Is(err, ErrInputRequired) {
		t.Errorf("Input err = %v", err)
	}
	if _, err := p.Password("Password"); !errors.Is(err, ErrInputRequired) {
		t.Errorf("Password err = %v", err)
	}
	if _, err := p.Select("Backup", []string{"a"}); !errors.Is(err, ErrInputRequired) {
		t.Errorf("Select err = %v", err)
	}
	_, err := p.Confirm("Destroy main?", false)
	if !errors.Is(err, ErrInputRequired) {
		t.Fatalf("Confirm err = %v", err)
	}
	if !strings.Contains(err.Error(), "--yes") {
		t.Errorf("confirm error should mention --yes: %v", err)
	}
}

func TestRequired(t *testing.T) {
	if Required("") == nil {
		t.Error("empty value accepted")
	}
	if err := Required("x"); err != nil {
		t.Errorf("Required(x) = %v", err)
	}
}

func TestInputModelValidatesOnEnter(t *testing.T) {
	m := newInputModel("Name", Required, false)

	next, cmd := m.Update(key("enter"))
	m = next.(inputModel)
	if m.done || cmd != nil {
		t.Fatal("empty answer should not finish the prompt")
	}
	if m.errMsg == "" {
		t.Error("validation message not shown")
	}
	if !strings.Contains(m.View(), "value is required") {
		t.Errorf("view missing error: %q", m.View())
	}

	m.input.SetValue("main")
	next, cmd = m.Update(key("enter"))
	m = next.(inputModel)
	if !m.done || cmd == nil {
		t.Fatal("valid answer should finish the prompt")
	}
	if m.input.Value() != "main" {
		t.Errorf("value = %q", m.input.Value())
	}
	if m.View() != "" {
		t.Error("finished prompt should render nothing")
	}
}

func TestInputModelAbort(t *testing.T) {
	m := newInputModel("Password", Required, true)
	next, _ := m.Update(key("esc"))
	if !next.(inputModel).aborted {
		t.Error("esc should abort")
	}
}

func TestSelectModelMovesCursor(t *testing.T) {
	m := selectModel{message: "Backup", options: []string{"a", "b", "c"}}

	for _, k := range []string{"up", "down", "j", "down", "down"} {
		next, _ := m.Update(key(k))
		m = next.(selectModel)
	}
	if m.cursor != 2 {
		t.Fatalf("cursor = %d, want clamped at 2", m.cursor)
	}
	next, _ := m.Update(key("k"))
	m = next.(selectModel)
	if m.cursor != 1 {
		t.Errorf("cursor after k = %d", m.cursor)
	}
	if !strings.Contains(m.View(), "> b") {
		t.Errorf("view does not mark selection: %q", m.View())
	}

	next, _ = m.Update(key("enter"))
	if !next.(selectModel).done {
		t.Error("enter should select")
	}
}

func TestConfirmModel(t *testing.T) {
	tests := []struct {
		name    string
		def     bool
		key     string
		want    bool
		aborted bool
	}{
		{"yes", false, "y", true, false},
		{"upper yes", false, "Y", true, false},
		{"no", true, "n", false, false},
		{"enter keeps default true", true, "enter", true, false},
		{"enter keeps default false", false, "enter", false, false},
		{"esc aborts", true, "esc", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _ := confirmModel{message: "Sure?", value: tt.def}.Update(key(tt.key))
			m := next.(confirmModel)
			if m.aborted != tt.aborted {
				t.Fatalf("aborted = %v", m.aborted)
			}
			if !tt.aborted && m.value != tt.want {
				t.Errorf("value = %v, want %v", m.value, tt.want)
			}
		})
	}
}

func TestConfirmModelIgnoresOtherKeys(t *testing.T) {
	next, cmd := confirmModel{message: "Sure?"}.Update(key("x"))
	m := next.(confirmModel)
	if m.done || m.aborted || cmd != nil {
		t.Errorf("unexpected state after x: %+v", m)
	}
	if !strings.Contains(m.View(), "y/N") {
		t.Errorf("view = %q", m.View())
	}
}
