// ABOUTME: Test tone generator for the event source
// ABOUTME: Generates an interleaved float32 sine wave
package server

import (
	"math"
	"sync"
)

// ToneSource generates a sine test tone, duplicated to every channel
type ToneSource struct {
	mu          sync.Mutex
	sampleIndex uint64
	frequency   float64
	amplitude   float64
	sampleRate  int
	channels    int
}

// NewToneSource creates a tone generator. A zero frequency means A4.
func NewToneSource(frequency float64, sampleRate, channels int) *ToneSource {
	if frequency <= 0 {
		frequency = 440.0
	}
	return &ToneSource{
		frequency:  frequency,
		amplitude:  0.5,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Read fills samples with whole frames and returns the number of samples
// written
func (s *ToneSource) Read(samples []float32) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(samples) / s.channels
	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		v := float32(math.Sin(2*math.Pi*s.frequency*t) * s.amplitude)
		for c := 0; c < s.channels; c++ {
			samples[i*s.channels+c] = v
		}
	}
	s.sampleIndex += uint64(frames)

	return frames * s.channels
}

func (s *ToneSource) SampleRate() int { return s.sampleRate }
func (s *ToneSource) Channels() int   { return s.channels }
