//go:build gui

package main

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/florida/internal/reader"
	"github.com/metcalfc/florida/internal/store"
	"github.com/metcalfc/florida/internal/text"
)

const (
	defaultFontSize = 72
	minFontSize     = 20
	maxFontSize     = 200
	jumpWords       = 10
	wpmStep         = 50
)

// arrowPauseWindow is how long after one sentence jump another keeps
// playback running.
const arrowPauseWindow = 500 * time.Millisecond

// parseHexColor parses #rrggbb, falling back to red.
func parseHexColor(s string) color.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 6 {
		if v, err := strconv.ParseUint(s, 16, 32); err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
		}
	}
	return color.RGBA{R: 255, A: 255}
}

func wordText(s string, c color.Color, size float32) *canvas.Text {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.TextStyle.Bold = true
	return t
}

// createWordDisplay lays out a token so its focus letter starts at the
// horizontal centre of the window.
func createWordDisplay(tok text.Token, focusColor color.Color, fontSize, windowWidth float32) *fyne.Container {
	before, focus, after := tok.Parts()
	parts := []*canvas.Text{
		wordText(before, color.White, fontSize),
		wordText(focus, focusColor, fontSize),
		wordText(after, color.White, fontSize),
	}

	mid := windowWidth / 2
	parts[0].Move(fyne.NewPos(max(mid-parts[0].MinSize().Width, 0), 0))
	parts[1].Move(fyne.NewPos(mid, 0))
	parts[2].Move(fyne.NewPos(mid+parts[1].MinSize().Width, 0))

	return container.New(&centerVerticalLayout{}, parts[0], parts[1], parts[2])
}

// centerVerticalLayout centres its objects vertically and keeps the X
// positions they were given.
type centerVerticalLayout struct{}

func (l *centerVerticalLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	return fyne.NewSize(0, maxHeight(objects))
}

func (l *centerVerticalLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	y := max((size.Height-maxHeight(objects))/2, 0)
	for _, o := range objects {
		o.Move(fyne.NewPos(o.Position().X, y))
		o.Resize(o.MinSize())
	}
}

func maxHeight(objects []fyne.CanvasObject) float32 {
	var h float32
	for _, o := range objects {
		h = max(h, o.MinSize().Height)
	}
	return h
}

// runReader shows the document in a window until it is closed.
func runReader(a *app, eng *reader.Engine, doc store.Document) error {
	focusColor := parseHexColor(a.cfg.Appearance.FocusColor)
	fontSize := float32(defaultFontSize)
	var lastArrowPress time.Time

	fa := fyneapp.New()
	w := fa.NewWindow("florida - " + doc.Title)

	statusLabel := widget.NewLabel("")
	statusLabel.Alignment = fyne.TextAlignCenter
	controlsLabel := widget.NewLabel("SPACE: play/pause  ↑/↓: speed  +/-: font  ←/→: sentence  H/L: ∓10 words  R: restart  P: punctuation pause  M: audio  F: fullscreen  Q: quit")
	controlsLabel.Alignment = fyne.TextAlignCenter
	progressBar := widget.NewProgressBar()
	progressBar.Max = 100

	wordContainer := container.NewStack()
	w.SetContent(container.NewBorder(
		statusLabel,
		container.NewVBox(progressBar, controlsLabel),
		nil, nil,
		wordContainer,
	))

	updateDisplay := func() {
		canvasWidth := w.Canvas().Size().Width
		if canvasWidth <= 0 {
			canvasWidth = 800
		}
		wordContainer.Objects = []fyne.CanvasObject{createWordDisplay(eng.CurrentWord(), focusColor, fontSize, canvasWidth)}
		wordContainer.Refresh()

		st := eng.State()
		pauseText := ""
		switch {
		case st.Status == reader.Paused && eng.AtEnd():
			pauseText = " [END]"
		case st.Status != reader.Playing:
			pauseText = " [PAUSED]"
		}
		current, total := eng.Position()
		statusLabel.SetText(fmt.Sprintf("Word %d/%d | %d WPM | Font: %.0f%s",
			current, total, st.WPM, fontSize, pauseText))
		progressBar.SetValue(eng.Progress())
	}

	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() {
		eng.Pause()
		closeOnce.Do(func() { close(done) })
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-eng.Changes():
				fyne.Do(updateDisplay)
			}
		}
	}()

	arrowPause := func() {
		now := time.Now()
		if now.Sub(lastArrowPress) > arrowPauseWindow {
			eng.Pause()
		}
		lastArrowPress = now
	}

	w.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeySpace:
			eng.Toggle()
		case fyne.KeyUp:
			eng.ChangeRate(eng.State().WPM + wpmStep)
		case fyne.KeyDown:
			eng.ChangeRate(eng.State().WPM - wpmStep)
		case fyne.KeyLeft:
			arrowPause()
			eng.PrevSentence()
		case fyne.KeyRight:
			arrowPause()
			eng.NextSentence()
		case fyne.KeyF:
			w.SetFullScreen(!w.FullScreen())
		case fyne.KeyQ:
			stop()
			fa.Quit()
		}
	})

	w.Canvas().SetOnTypedRune(func(r rune) {
		settings := eng.Settings()
		switch r {
		case 'h', 'H', '[':
			eng.Jump(-jumpWords)
		case 'l', 'L', ']':
			eng.Jump(jumpWords)
		case 'r', 'R':
			eng.Restart()
		case 'p', 'P':
			eng.SetAutoPause(!settings.AutoPause)
		case 'm', 'M':
			eng.SetAudio(!settings.AudioEnabled, "")
		case '+', '=':
			fontSize = min(fontSize+5, maxFontSize)
			updateDisplay()
		case '-':
			fontSize = max(fontSize-5, minFontSize)
			updateDisplay()
		}
	})

	w.SetOnClosed(stop)
	w.Resize(fyne.NewSize(800, 600))

	// Draw the first word once the window has a size
	go func() {
		time.Sleep(100 * time.Millisecond)
		fyne.Do(updateDisplay)
	}()

	w.ShowAndRun()
	return nil
}
