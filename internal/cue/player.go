package cue

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Nop plays nothing.
type Nop struct{}

func (Nop) Play(string) {}

// Bell rings the terminal bell for every cue.
type Bell struct {
	W io.Writer
}

func (b Bell) Play(string) {
	_, _ = io.WriteString(b.W, "\a")
}

// maxInFlight bounds concurrent player processes; cues beyond it are
// dropped.
const maxInFlight = 4

// players are tried in order by NewSystem.
var players = [][]string{
	{"paplay"},
	{"aplay", "-q"},
	{"afplay"},
}

// ErrNoPlayer is returned when no audio command is installed.
var ErrNoPlayer = errors.New("no audio player found (tried paplay, aplay, afplay)")

// System renders cues to WAV files once and plays them with an external
// audio command.
type System struct {
	command []string
	volume  float64
	log     *slog.Logger

	mu       sync.Mutex
	dir      string
	files    map[string]string
	closing  bool
	inFlight int
	wg       sync.WaitGroup
}

var errClosed = errors.New("player closed")

// NewSystem finds an installed audio command.
func NewSystem(volume float64, log *slog.Logger) (*System, error) {
	for _, p := range players {
		if path, err := exec.LookPath(p[0]); err == nil {
			return NewSystemWith(append([]string{path}, p[1:]...), volume, log)
		}
	}
	return nil, ErrNoPlayer
}

// NewSystemWith plays cues by running command with the WAV path appended.
func NewSystemWith(command []string, volume float64, log *slog.Logger) (*System, error) {
	if len(command) == 0 {
		return nil, ErrNoPlayer
	}
	if log == nil {
		log = slog.Default()
	}
	dir, err := os.MkdirTemp("", "florida-cues-*")
	if err != nil {
		return nil, fmt.Errorf("create cue dir: %w", err)
	}
	return &System{
		command: command,
		volume:  min(max(volume, 0), 1),
		log:     log,
		dir:     dir,
		files:   make(map[string]string),
	}, nil
}

// Play starts the audio command in the background. Failures are logged;
// after Close has begun it does nothing.
func (s *System) Play(name string) {
	path, err := s.file(name)
	if errors.Is(err, errClosed) {
		return
	}
	if err != nil {
		s.log.Warn("cue unavailable", "cue", name, "err", err)
		return
	}
	if !s.reserve() {
		return
	}

	cmd := exec.Command(s.command[0], append(s.command[1:], path)...)
	if err := cmd.Start(); err != nil {
		s.release()
		s.log.Warn("cue playback failed", "cue", name, "err", err)
		return
	}
	go func() {
		defer s.release()
		if err := cmd.Wait(); err != nil {
			s.log.Debug("cue player exited", "cue", name, "err", err)
		}
	}()
}

// reserve claims a playback slot. It fails once Close has begun or while
// maxInFlight players are running.
func (s *System) reserve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing || s.inFlight >= maxInFlight {
		return false
	}
	s.inFlight++
	s.wg.Add(1)
	return true
}

func (s *System) release() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	s.wg.Done()
}

// file returns the rendered WAV for name, rendering it on first use.
func (s *System) file(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing || s.dir == "" {
		return "", errClosed
	}
	if path, ok := s.files[name]; ok {
		return path, nil
	}

	samples, err := Render(name, s.volume)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name+".wav")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteWAV(f, samples); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	s.files[name] = path
	return path, nil
}

// Close stops new playback, waits for running players and removes the
// rendered files.
func (s *System) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir = ""
	return err
}

// New returns the player for the given preferences: Nop when disabled, a
// System player when an audio command is installed, otherwise the
// terminal bell on w. The returned close function releases resources.
func New(enabled bool, volume float64, w io.Writer, log *slog.Logger) (Player, func() error) {
	if !enabled {
		return Nop{}, func() error { return nil }
	}
	sys, err := NewSystem(volume, log)
	if err != nil {
		if log != nil {
			log.Info("falling back to terminal bell", "err", err)
		}
		return Bell{W: w}, func() error { return nil }
	}
	return sys, sys.Close
}
