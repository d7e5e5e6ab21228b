package cue

import (
	"fmt"
	"io"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

const bitDepth = 16

// WriteWAV encodes mono samples as 16-bit PCM at SampleRate.
func WriteWAV(w io.WriteSeeker, samples []float32) error {
	enc := wav.NewEncoder(w, SampleRate, bitDepth, 1, 1) // 1 = PCM

	buf := &goaudio.Float32Buffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: SampleRate, NumChannels: 1},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("writing PCM: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}
	return nil
}
