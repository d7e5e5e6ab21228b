// Package reader provides the RSVP (Rapid Serial Visual Presentation)
// playback engine.
//
// An Engine walks a session's display tokens on a drift-corrected timer,
// one outstanding tick at a time, and checkpoints the reading position to a
// ReadingStateStore while playing and whenever playback stops.
package reader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/metcalfc/florida/internal/store"
	"github.com/metcalfc/florida/internal/text"
)

// DefaultAutosave is how often a playing session checkpoints its position.
const DefaultAutosave = time.Second

// Punctuation multiplier limits.
const (
	MinPunctuationMultiplier     = 1.0
	MaxPunctuationMultiplier     = 3.0
	DefaultPunctuationMultiplier = 1.5
)

// Settings are the reading preferences a session starts with.
type Settings struct {
	WPM                   int
	AutoPause             bool
	PunctuationMultiplier float64
	AudioEnabled          bool
	Cue                   string
}

// ReadingStateStore persists checkpoints.
type ReadingStateStore interface {
	PutReadingState(ctx context.Context, st store.ReadingState) error
}

// CuePlayer plays a named audio cue. It must not block or panic.
type CuePlayer interface {
	Play(name string)
}

// Options wires an Engine to its collaborators. Zero values fall back to
// the system scheduler, no persistence, no audio and slog.Default.
type Options struct {
	DocumentID string
	Scheduler  Scheduler
	States     ReadingStateStore
	Cues       CuePlayer
	Logger     *slog.Logger
	Autosave   time.Duration
}

// Engine drives playback for one reading session. All methods are safe to
// call from any goroutine and never block on the timer.
type Engine struct {
	mu        sync.Mutex
	docID     string
	words     []text.Token
	sentences []int
	state     State
	settings  Settings
	closed    bool

	sched    Scheduler
	states   ReadingStateStore
	cues     CuePlayer
	log      *slog.Logger
	autosave time.Duration

	// gen invalidates every callback of a stopped run; tickGen only the
	// tick, so a jump can reschedule it without touching autosave.
	gen      uint64
	tickGen  uint64
	tick     Timer
	saver    Timer
	deadline time.Time

	saveMu   sync.Mutex
	seq      uint64
	savedSeq uint64

	changes chan struct{}
}

// New creates a paused session over the stored tokens of a document. The
// tokens are shaped with text.DisplayWords; resume, when present, restores
// the index and rate of a previous checkpoint.
func New(tokens []text.Token, resume *store.ReadingState, settings Settings, opts Options) *Engine {
	words := text.DisplayWords(tokens)

	settings.WPM = ClampWPM(orDefault(settings.WPM, DefaultWPM))
	settings.PunctuationMultiplier = ClampMultiplier(settings.PunctuationMultiplier)

	st := State{WPM: settings.WPM}
	if resume != nil {
		st = st.OnSeek(resume.Index, len(words))
		if resume.WPM > 0 {
			st = st.OnRateChange(resume.WPM)
		}
	}

	e := &Engine{
		docID:     opts.DocumentID,
		words:     words,
		sentences: findSentenceStarts(words),
		state:     st,
		settings:  settings,
		sched:     opts.Scheduler,
		states:    opts.States,
		cues:      opts.Cues,
		log:       opts.Logger,
		autosave:  opts.Autosave,
		changes:   make(chan struct{}, 1),
	}
	if e.sched == nil {
		e.sched = SystemScheduler()
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.autosave <= 0 {
		e.autosave = DefaultAutosave
	}
	return e
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// ClampMultiplier limits m to the punctuation multiplier range. Zero means
// the default.
func ClampMultiplier(m float64) float64 {
	switch {
	case m == 0:
		return DefaultPunctuationMultiplier
	case m < MinPunctuationMultiplier:
		return MinPunctuationMultiplier
	case m > MaxPunctuationMultiplier:
		return MaxPunctuationMultiplier
	}
	return m
}

// Changes delivers a signal after state changes. Signals coalesce, so a
// receiver should re-read the engine rather than count them.
func (e *Engine) Changes() <-chan struct{} {
	return e.changes
}

func (e *Engine) notify() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}

// Play starts or resumes playback.
func (e *Engine) Play() {
	e.mu.Lock()
	if e.closed || e.state.Status == Playing {
		e.mu.Unlock()
		return
	}
	e.state = e.state.OnPlay(len(e.words))
	if e.state.Status == Playing {
		e.startLocked()
		e.log.Debug("playback started", "doc", e.docID, "index", e.state.Index, "wpm", e.state.WPM)
	}
	e.mu.Unlock()
	e.notify()
}

// Pause stops playback and checkpoints the position before returning.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.state = e.state.OnPause()
	e.stopLocked()
	cp := e.snapshotLocked()
	e.mu.Unlock()

	e.save(cp)
	e.notify()
}

// Toggle pauses a playing session and plays otherwise.
func (e *Engine) Toggle() {
	if e.Playing() {
		e.Pause()
		return
	}
	e.Play()
}

// Jump moves delta tokens forward or back, clamped to the document.
func (e *Engine) Jump(delta int) {
	e.mu.Lock()
	e.state = e.state.OnJump(delta, len(e.words))
	e.rescheduleLocked()
	e.mu.Unlock()
	e.notify()
}

// Seek moves to an absolute token index, clamped to the document.
func (e *Engine) Seek(index int) {
	e.mu.Lock()
	e.state = e.state.OnSeek(index, len(e.words))
	e.rescheduleLocked()
	e.mu.Unlock()
	e.notify()
}

// PrevSentence moves to the start of the previous sentence.
func (e *Engine) PrevSentence() {
	e.mu.Lock()
	e.state = e.state.OnSeek(prevSentence(e.sentences, e.state.Index), len(e.words))
	e.rescheduleLocked()
	e.mu.Unlock()
	e.notify()
}

// NextSentence moves to the start of the next sentence.
func (e *Engine) NextSentence() {
	e.mu.Lock()
	e.state = e.state.OnSeek(nextSentence(e.sentences, e.state.Index, len(e.words)), len(e.words))
	e.rescheduleLocked()
	e.mu.Unlock()
	e.notify()
}

// Restart rewinds to the first token and stops playback.
func (e *Engine) Restart() {
	e.mu.Lock()
	e.state = e.state.OnRestart()
	e.stopLocked()
	e.mu.Unlock()
	e.notify()
}

// ChangeRate sets the reading rate, clamped to [MinWPM, MaxWPM]. The tick
// already in flight keeps its delay; the next one uses the new rate.
func (e *Engine) ChangeRate(wpm int) {
	e.mu.Lock()
	e.state = e.state.OnRateChange(wpm)
	e.settings.WPM = e.state.WPM
	e.mu.Unlock()
	e.notify()
}

// SetAutoPause toggles the longer pause on sentence punctuation.
func (e *Engine) SetAutoPause(on bool) {
	e.mu.Lock()
	e.settings.AutoPause = on
	e.mu.Unlock()
	e.notify()
}

// SetPunctuationMultiplier changes the punctuation pause factor.
func (e *Engine) SetPunctuationMultiplier(m float64) {
	e.mu.Lock()
	e.settings.PunctuationMultiplier = ClampMultiplier(m)
	e.mu.Unlock()
	e.notify()
}

// SetAudio enables or disables the per-word cue and selects its name.
func (e *Engine) SetAudio(enabled bool, cue string) {
	e.mu.Lock()
	e.settings.AudioEnabled = enabled
	if cue != "" {
		e.settings.Cue = cue
	}
	e.mu.Unlock()
	e.notify()
}

// Close stops playback for good and writes a final checkpoint. Further
// transport calls are ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.state = e.state.OnPause()
	e.stopLocked()
	e.closed = true
	cp := e.snapshotLocked()
	e.mu.Unlock()

	e.save(cp)
	e.notify()
}

// State returns a copy of the playback state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Settings returns the current reading preferences.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Playing reports whether the timer is running.
func (e *Engine) Playing() bool {
	return e.State().Status == Playing
}

// Len returns the number of display tokens.
func (e *Engine) Len() int {
	return len(e.words)
}

// CurrentWord returns the token at the current index, or an empty
// placeholder when there is none.
func (e *Engine) CurrentWord() text.Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Index >= 0 && e.state.Index < len(e.words) {
		return e.words[e.state.Index]
	}
	return text.Token{}
}

// Progress returns the percentage of the document already passed.
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.words) == 0 {
		return 0
	}
	return float64(e.state.Index) / float64(len(e.words)) * 100
}

// Position returns the 1-based current position and the token count.
func (e *Engine) Position() (current, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.words) == 0 {
		return 0, 0
	}
	return e.state.Index + 1, len(e.words)
}

// AtEnd reports whether the current token is the last one.
func (e *Engine) AtEnd() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Index >= len(e.words)-1
}

// Remaining estimates the reading time left from the current token at the
// current rate and settings.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total time.Duration
	for i := e.state.Index; i < len(e.words); i++ {
		total += e.intervalLocked(i)
	}
	return total
}

// Interval returns how long the token at index i is displayed.
func (e *Engine) Interval(i int) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.intervalLocked(i)
}

func (e *Engine) intervalLocked(i int) time.Duration {
	base := float64(time.Minute) / float64(e.state.WPM)
	if i < 0 || i >= len(e.words) {
		return time.Duration(base)
	}
	w := e.words[i]
	switch {
	case w.Flags.Punctuation && e.settings.AutoPause:
		return time.Duration(base * e.settings.PunctuationMultiplier)
	case w.Flags.ParagraphBreak:
		return time.Duration(base * 2)
	}
	return time.Duration(base)
}

// startLocked begins a new run: the first tick after the current word's
// interval and the autosave cadence.
func (e *Engine) startLocked() {
	e.stopLocked()
	e.gen++
	gen := e.gen
	e.scheduleTickLocked(e.intervalLocked(e.state.Index), e.sched.Now())
	e.saver = e.sched.AfterFunc(e.autosave, func() { e.onAutosave(gen) })
}

// stopLocked cancels the outstanding tick and autosave. Bumping gen makes
// any callback that already escaped cancellation a no-op.
func (e *Engine) stopLocked() {
	e.gen++
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
	if e.saver != nil {
		e.saver.Stop()
		e.saver = nil
	}
}

// rescheduleLocked restarts the tick for the word now showing after a
// jump while playing.
func (e *Engine) rescheduleLocked() {
	if e.state.Status != Playing {
		return
	}
	if e.tick != nil {
		e.tick.Stop()
	}
	e.scheduleTickLocked(e.intervalLocked(e.state.Index), e.sched.Now())
}

func (e *Engine) scheduleTickLocked(delay time.Duration, now time.Time) {
	e.tickGen++
	gen, tickGen := e.gen, e.tickGen
	e.deadline = now.Add(delay)
	e.tick = e.sched.AfterFunc(delay, func() { e.onTick(gen, tickGen) })
}

func (e *Engine) onTick(gen, tickGen uint64) {
	e.mu.Lock()
	if gen != e.gen || tickGen != e.tickGen || e.state.Status != Playing {
		e.mu.Unlock()
		return
	}

	now := e.sched.Now()
	drift := now.Sub(e.deadline)

	var advanced bool
	e.state, advanced = e.state.OnTick(len(e.words))
	if !advanced {
		e.stopLocked()
		cp := e.snapshotLocked()
		e.mu.Unlock()
		e.log.Debug("playback reached end", "doc", e.docID, "index", cp.Index)
		e.save(cp)
		e.notify()
		return
	}

	next := e.intervalLocked(e.state.Index)
	delay := next - drift
	if delay < 0 {
		// Too far behind to catch up: drop the backlog and show the next
		// word immediately.
		e.scheduleTickLocked(0, now)
	} else {
		e.tickGen++
		gen, tickGen := e.gen, e.tickGen
		e.deadline = e.deadline.Add(next)
		e.tick = e.sched.AfterFunc(delay, func() { e.onTick(gen, tickGen) })
	}

	cue := ""
	if e.settings.AudioEnabled && e.cues != nil {
		cue = e.settings.Cue
	}
	e.mu.Unlock()

	if cue != "" {
		e.cues.Play(cue)
	}
	e.notify()
}

func (e *Engine) onAutosave(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.state.Status != Playing {
		e.mu.Unlock()
		return
	}
	cp := e.snapshotLocked()
	e.saver = e.sched.AfterFunc(e.autosave, func() { e.onAutosave(gen) })
	e.mu.Unlock()

	e.save(cp)
}

type checkpoint struct {
	seq uint64
	store.ReadingState
}

func (e *Engine) snapshotLocked() checkpoint {
	e.seq++
	return checkpoint{
		seq: e.seq,
		ReadingState: store.ReadingState{
			DocumentID: e.docID,
			Index:      e.state.Index,
			WPM:        e.state.WPM,
			UpdatedAt:  e.sched.Now(),
		},
	}
}

// save writes a checkpoint unless a newer one has already been written.
// Failures are logged and never interrupt playback.
func (e *Engine) save(cp checkpoint) {
	if e.states == nil || e.docID == "" {
		return
	}
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if cp.seq <= e.savedSeq {
		return
	}
	e.savedSeq = cp.seq
	if err := e.states.PutReadingState(context.Background(), cp.ReadingState); err != nil {
		e.log.Warn("checkpoint failed", "doc", e.docID, "index", cp.Index, "err", err)
	}
}
