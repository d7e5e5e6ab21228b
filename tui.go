//go:build !gui

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/florida/internal/reader"
	"github.com/metcalfc/florida/internal/store"
	"github.com/metcalfc/florida/internal/text"
)

var (
	wordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// arrowPauseWindow is how long after one sentence jump another keeps
// playback running, so holding an arrow key scrubs without stopping.
const arrowPauseWindow = 500 * time.Millisecond

const (
	jumpWords = 10
	wpmStep   = 50
)

type keyMap struct {
	Toggle    key.Binding
	PrevSent  key.Binding
	NextSent  key.Binding
	Back      key.Binding
	Forward   key.Binding
	Faster    key.Binding
	Slower    key.Binding
	Restart   key.Binding
	AutoPause key.Binding
	Audio     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.PrevSent, k.NextSent, k.Faster, k.Slower, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Restart, k.Quit},
		{k.PrevSent, k.NextSent, k.Back, k.Forward},
		{k.Faster, k.Slower, k.AutoPause, k.Audio, k.Help},
	}
}

var keys = keyMap{
	Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	PrevSent:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev sentence")),
	NextSent:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next sentence")),
	Back:      key.NewBinding(key.WithKeys("h", "["), key.WithHelp("h/[", "back 10")),
	Forward:   key.NewBinding(key.WithKeys("l", "]"), key.WithHelp("l/]", "forward 10")),
	Faster:    key.NewBinding(key.WithKeys("up", "+", "="), key.WithHelp("↑/+", "faster")),
	Slower:    key.NewBinding(key.WithKeys("down", "-"), key.WithHelp("↓/-", "slower")),
	Restart:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
	AutoPause: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "punctuation pause")),
	Audio:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "audio cue")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:      key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type model struct {
	eng   *reader.Engine
	title string

	focusStyle lipgloss.Style
	help       help.Model
	progress   progress.Model

	lastArrowPress time.Time
	now            func() time.Time

	quitting bool
	width    int
	height   int
}

// changeMsg reports that the engine's state changed.
type changeMsg struct{}

func newModel(eng *reader.Engine, title, focusColor string) model {
	return model{
		eng:        eng,
		title:      title,
		focusStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(focusColor)),
		help:       help.New(),
		progress:   progress.New(progress.WithSolidFill(focusColor), progress.WithoutPercentage()),
		now:        time.Now,
		width:      80,
		height:     24,
	}
}

// waitForChange blocks until the engine signals a change.
func waitForChange(eng *reader.Engine) tea.Cmd {
	return func() tea.Msg {
		<-eng.Changes()
		return changeMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return waitForChange(m.eng)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(msg.Width-4, 10)
		return m, nil

	case changeMsg:
		if m.quitting {
			return m, nil
		}
		return m, waitForChange(m.eng)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	settings := m.eng.Settings()

	switch {
	case key.Matches(msg, keys.Toggle):
		m.eng.Toggle()

	case key.Matches(msg, keys.PrevSent):
		m.arrowPause()
		m.eng.PrevSentence()

	case key.Matches(msg, keys.NextSent):
		m.arrowPause()
		m.eng.NextSentence()

	case key.Matches(msg, keys.Back):
		m.eng.Jump(-jumpWords)

	case key.Matches(msg, keys.Forward):
		m.eng.Jump(jumpWords)

	case key.Matches(msg, keys.Faster):
		m.eng.ChangeRate(m.eng.State().WPM + wpmStep)

	case key.Matches(msg, keys.Slower):
		m.eng.ChangeRate(m.eng.State().WPM - wpmStep)

	case key.Matches(msg, keys.Restart):
		m.eng.Restart()

	case key.Matches(msg, keys.AutoPause):
		m.eng.SetAutoPause(!settings.AutoPause)

	case key.Matches(msg, keys.Audio):
		m.eng.SetAudio(!settings.AudioEnabled, "")

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, keys.Quit):
		m.eng.Pause()
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// arrowPause pauses on the first of a run of sentence jumps.
func (m *model) arrowPause() {
	now := m.now()
	if now.Sub(m.lastArrowPress) > arrowPauseWindow {
		m.eng.Pause()
	}
	m.lastArrowPress = now
}

func (m model) View() string {
	if m.quitting {
		if m.eng.AtEnd() {
			return completeStyle.Render("\n  Reading complete!\n")
		}
		return ""
	}

	if m.eng.Len() == 0 {
		return "No text to read."
	}

	header := titleStyle.Render(m.title) + "\n" + m.statusLine()
	footer := " " + m.progress.ViewAs(m.eng.Progress()/100) + "\n" + m.help.View(keys)

	// Reserve lines for the header and footer
	avail := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)
	vPad := avail / 2

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("\n", vPad))
	sb.WriteString(m.anchorWord(m.eng.CurrentWord()))
	sb.WriteString(strings.Repeat("\n", avail-vPad))
	sb.WriteString(footer)
	return sb.String()
}

func (m model) statusLine() string {
	st := m.eng.State()
	settings := m.eng.Settings()
	current, total := m.eng.Position()

	flags := ""
	if settings.AutoPause {
		flags += " | punct ×" + fmt.Sprintf("%.1f", settings.PunctuationMultiplier)
	}
	if settings.AudioEnabled {
		flags += " | ♪ " + settings.Cue
	}

	pause := ""
	switch {
	case st.Status == reader.Paused && m.eng.AtEnd():
		pause = completeStyle.Render(" [END]")
	case st.Status != reader.Playing:
		pause = pausedStyle.Render(" [PAUSED]")
	}

	return statusStyle.Render(fmt.Sprintf("Word %d/%d | %d WPM | %s left%s",
		current, total, st.WPM, formatRemaining(m.eng.Remaining()), flags)) + pause
}

// formatWord renders a token with its focus letter highlighted.
func (m model) formatWord(tok text.Token) string {
	before, focus, after := tok.Parts()
	return wordStyle.Render(before) + m.focusStyle.Render(focus) + wordStyle.Render(after)
}

// anchorWord pads the rendered word so its focus letter sits at the
// horizontal centre of the terminal.
func (m model) anchorWord(tok text.Token) string {
	before, _, _ := tok.Parts()
	pad := max(m.width/2-lipgloss.Width(before), 0)
	return strings.Repeat(" ", pad) + m.formatWord(tok)
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// runReader runs the terminal reader until the user quits. Logs go to
// the data directory while the screen is in use.
func runReader(a *app, eng *reader.Engine, doc store.Document) error {
	if f, err := logFile(a.cfg.DataDir); err == nil {
		defer f.Close()
		prev := a.logOut.Swap(f)
		defer a.logOut.Swap(prev)
	} else {
		a.logOut.Swap(io.Discard)
	}

	p := tea.NewProgram(newModel(eng, doc.Title, a.cfg.Appearance.FocusColor), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
