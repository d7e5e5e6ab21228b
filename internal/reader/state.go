package reader

// Rate limits in words per minute.
const (
	MinWPM     = 50
	MaxWPM     = 1000
	DefaultWPM = 300
)

// Status is the playback state of a session.
type Status int

const (
	Idle Status = iota
	Playing
	Paused
)

func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "idle"
}

// State is the observable playback state. Its methods are pure transition
// functions: each takes the token count n where bounds matter and returns
// the next state without side effects.
type State struct {
	Index  int
	Status Status
	WPM    int
}

// ClampWPM limits wpm to [MinWPM, MaxWPM].
func ClampWPM(wpm int) int {
	if wpm < MinWPM {
		return MinWPM
	}
	if wpm > MaxWPM {
		return MaxWPM
	}
	return wpm
}

func lastIndex(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if last := lastIndex(n); i > last {
		return last
	}
	return i
}

// OnPlay starts playback, rewinding to the first token when already at or
// past the last one. An empty document stays where it is.
func (s State) OnPlay(n int) State {
	if n == 0 {
		return s
	}
	if s.Index >= n-1 {
		s.Index = 0
	}
	s.Status = Playing
	return s
}

// OnPause stops playback at the current index.
func (s State) OnPause() State {
	if s.Status == Playing {
		s.Status = Paused
	}
	return s
}

// OnJump moves by delta tokens, clamped to the document. The play status
// is unchanged.
func (s State) OnJump(delta, n int) State {
	s.Index = clampIndex(s.Index+delta, n)
	return s
}

// OnSeek moves to an absolute index, clamped to the document.
func (s State) OnSeek(index, n int) State {
	s.Index = clampIndex(index, n)
	return s
}

// OnRestart rewinds to the first token and stops playback.
func (s State) OnRestart() State {
	s.Index = 0
	s.Status = Paused
	return s
}

// OnRateChange sets the reading rate, clamped to [MinWPM, MaxWPM].
func (s State) OnRateChange(wpm int) State {
	s.WPM = ClampWPM(wpm)
	return s
}

// OnTick advances one token while playing. At the last token it pauses
// instead and reports false; the index never leaves the document.
func (s State) OnTick(n int) (State, bool) {
	if s.Status != Playing {
		return s, false
	}
	if s.Index+1 > n-1 {
		s.Index = lastIndex(n)
		s.Status = Paused
		return s, false
	}
	s.Index++
	return s, true
}
