//go:build !gui

package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/metcalfc/florida/internal/reader"
	"github.com/metcalfc/florida/internal/text"
)

func newTestModel(t *testing.T, s string) model {
	t.Helper()
	tokens := text.Tokenize(text.Normalize(s))
	eng := reader.New(tokens, nil, reader.Settings{WPM: 300, AutoPause: true}, reader.Options{})
	t.Cleanup(eng.Close)
	return newModel(eng, "Test", "#22d3ee")
}

func press(m model, k string) model {
	var msg tea.KeyMsg
	switch k {
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, _ := m.Update(msg)
	return next.(model)
}

func TestRateKeys(t *testing.T) {
	m := newTestModel(t, "one two three")

	tests := []struct {
		key  string
		want int
	}{
		{"up", 350},
		{"+", 400},
		{"=", 450},
		{"down", 400},
		{"-", 350},
	}
	for _, tt := range tests {
		m = press(m, tt.key)
		if got := m.eng.State().WPM; got != tt.want {
			t.Errorf("after %q WPM = %d, want %d", tt.key, got, tt.want)
		}
	}

	for i := 0; i < 30; i++ {
		m = press(m, "up")
	}
	if got := m.eng.State().WPM; got != reader.MaxWPM {
		t.Errorf("WPM = %d, want clamped %d", got, reader.MaxWPM)
	}
}

func TestJumpKeys(t *testing.T) {
	m := newTestModel(t, strings.Repeat("word ", 30))

	m = press(m, "l")
	m = press(m, "]")
	if got := m.eng.State().Index; got != 20 {
		t.Errorf("index = %d, want 20", got)
	}
	m = press(m, "h")
	if got := m.eng.State().Index; got != 10 {
		t.Errorf("index = %d, want 10", got)
	}
	m = press(m, "[")
	m = press(m, "[")
	if got := m.eng.State().Index; got != 0 {
		t.Errorf("index = %d, want 0", got)
	}
}

func TestSentenceKeysPauseOnce(t *testing.T) {
	m := newTestModel(t, "One two. Three four. Five six. Seven.")
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	m = press(m, " ")
	if !m.eng.Playing() {
		t.Fatal("space did not start playback")
	}
	m = press(m, "right")
	if m.eng.Playing() {
		t.Error("first arrow should pause")
	}
	if got := m.eng.State().Index; got != 2 {
		t.Errorf("index = %d, want 2", got)
	}

	m = press(m, " ")
	clock = clock.Add(100 * time.Millisecond)
	m = press(m, "right")
	if !m.eng.Playing() {
		t.Error("quick second arrow should keep playing")
	}

	clock = clock.Add(time.Second)
	m = press(m, "left")
	if m.eng.Playing() {
		t.Error("arrow after a pause should pause")
	}
}

func TestToggleKeys(t *testing.T) {
	m := newTestModel(t, "one two")

	m = press(m, "p")
	if m.eng.Settings().AutoPause {
		t.Error("p did not turn off auto-pause")
	}
	m = press(m, "m")
	if !m.eng.Settings().AudioEnabled {
		t.Error("m did not enable audio")
	}
	m = press(m, "?")
	if !m.help.ShowAll {
		t.Error("? did not expand help")
	}
}

func TestRestartKey(t *testing.T) {
	m := newTestModel(t, "a b c d e")
	m.eng.Jump(3)
	m = press(m, "r")
	if st := m.eng.State(); st.Index != 0 || st.Status != reader.Paused {
		t.Errorf("state after restart = %+v", st)
	}
}

func TestQuitPauses(t *testing.T) {
	m := newTestModel(t, "one two three")
	m = press(m, " ")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(model)
	if !m.quitting {
		t.Error("q did not set quitting")
	}
	if m.eng.Playing() {
		t.Error("q did not pause")
	}
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestView(t *testing.T) {
	m := newTestModel(t, "Reading quickly.")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(model)

	view := m.View()
	for _, want := range []string{"Test", "Word 1/2", "300 WPM", "PAUSED", "Re", "ding"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestViewEmpty(t *testing.T) {
	m := newTestModel(t, "")
	if got := m.View(); got != "No text to read." {
		t.Errorf("View() = %q", got)
	}
}

func TestAnchorWord(t *testing.T) {
	m := newTestModel(t, "x")
	m.width = 40

	tok := text.Token{Text: "hello", FocusIndex: 1}
	line := m.anchorWord(tok)
	pad := len(line) - len(strings.TrimLeft(line, " "))
	if pad != 19 {
		t.Errorf("padding = %d, want 19", pad)
	}

	m.width = 2
	line = m.anchorWord(text.Token{Text: "extraordinary", FocusIndex: 3})
	if strings.HasPrefix(line, " ") {
		t.Error("narrow terminal should not pad")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{1500 * time.Millisecond, "0:02"},
		{75 * time.Second, "1:15"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := formatRemaining(tt.d); got != tt.want {
			t.Errorf("formatRemaining(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestChangeMsgRearms(t *testing.T) {
	m := newTestModel(t, "a b")
	_, cmd := m.Update(changeMsg{})
	if cmd == nil {
		t.Error("change message did not re-arm the listener")
	}
	m.quitting = true
	if _, cmd := m.Update(changeMsg{}); cmd != nil {
		t.Error("listener re-armed after quit")
	}
}
