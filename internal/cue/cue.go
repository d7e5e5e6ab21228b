// Package cue synthesizes and plays the short sounds that can accompany
// each word during playback.
package cue

import (
	"fmt"
	"math"
	"time"
)

// Default is the cue used when none or an unknown one is configured.
const Default = "beep"

// SampleRate of rendered cues.
const SampleRate = 44100

// Player plays a named cue. Play never blocks on audio output.
type Player interface {
	Play(name string)
}

type wave int

const (
	sine wave = iota
	triangle
	square
	sawtooth
)

// voice is one oscillator with exponential frequency and gain ramps.
type voice struct {
	wave             wave
	startHz, endHz   float64
	startGain        float64
	endGain          float64
	offset, duration time.Duration
}

var names = []string{"beep", "click", "pop", "zap", "powerUp", "buzz", "chime", "tick"}

var sounds = map[string][]voice{
	"beep":    {{wave: triangle, startHz: 440, endHz: 440, startGain: 0.05, endGain: 0.001, duration: 100 * time.Millisecond}},
	"click":   {{wave: sine, startHz: 800, endHz: 800, startGain: 0.1, endGain: 0.1, duration: 50 * time.Millisecond}},
	"pop":     {{wave: sine, startHz: 600, endHz: 200, startGain: 0.1, endGain: 0.001, duration: 100 * time.Millisecond}},
	"zap":     {{wave: sawtooth, startHz: 1500, endHz: 200, startGain: 0.08, endGain: 0.001, duration: 150 * time.Millisecond}},
	"powerUp": {{wave: triangle, startHz: 200, endHz: 1000, startGain: 0.08, endGain: 0.001, duration: 300 * time.Millisecond}},
	"buzz":    {{wave: sawtooth, startHz: 120, endHz: 120, startGain: 0.12, endGain: 0.001, duration: 250 * time.Millisecond}},
	"chime": {
		{wave: triangle, startHz: 523, endHz: 523, startGain: 0.06, endGain: 0.001, duration: 150 * time.Millisecond},
		{wave: triangle, startHz: 784, endHz: 784, startGain: 0.06, endGain: 0.001, offset: 50 * time.Millisecond, duration: 150 * time.Millisecond},
	},
	"tick": {{wave: square, startHz: 1200, endHz: 1200, startGain: 0.08, endGain: 0.001, duration: 20 * time.Millisecond}},
}

// peakGain is the loudest voice gain; it renders at full volume.
const peakGain = 0.12

// Names lists the available cues.
func Names() []string {
	return append([]string(nil), names...)
}

// Valid reports whether name is a known cue.
func Valid(name string) bool {
	_, ok := sounds[name]
	return ok
}

// Render synthesizes a cue as mono samples in [-1, 1] at SampleRate.
// Volume is clamped to [0, 1].
func Render(name string, volume float64) ([]float32, error) {
	voices, ok := sounds[name]
	if !ok {
		return nil, fmt.Errorf("unknown cue %q", name)
	}
	volume = min(max(volume, 0), 1)

	var length time.Duration
	for _, v := range voices {
		length = max(length, v.offset+v.duration)
	}
	out := make([]float32, frames(length))

	for _, v := range voices {
		start := frames(v.offset)
		n := frames(v.duration)
		phase := 0.0
		for i := 0; i < n && start+i < len(out); i++ {
			t := float64(i) / float64(n)
			freq := ramp(v.startHz, v.endHz, t)
			gain := ramp(v.startGain, v.endGain, t)
			out[start+i] += float32(oscillate(v.wave, phase) * gain / peakGain * volume)
			phase += freq / SampleRate
			phase -= math.Floor(phase)
		}
	}
	for i, s := range out {
		out[i] = min(max(s, -1), 1)
	}
	return out, nil
}

func frames(d time.Duration) int {
	return int(math.Round(d.Seconds() * SampleRate))
}

// ramp interpolates exponentially from a to b as t goes from 0 to 1.
func ramp(a, b, t float64) float64 {
	if a == b || a <= 0 || b <= 0 {
		return a
	}
	return a * math.Pow(b/a, t)
}

// oscillate evaluates a unit waveform at phase in [0, 1).
func oscillate(w wave, phase float64) float64 {
	switch w {
	case triangle:
		return 1 - 4*math.Abs(phase-0.5)
	case square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case sawtooth:
		return 2*phase - 1
	}
	return math.Sin(2 * math.Pi * phase)
}
