// ABOUTME: Planar audio buffer and its beep streamer
// ABOUTME: One buffer holds a single reconstructed chunk, one plane per channel
package graph

import (
	"errors"
	"fmt"
)

// Buffer is a planar block of float samples at a fixed sample rate
type Buffer struct {
	SampleRate int
	Planes     [][]float32
}

// NewBuffer allocates a zeroed buffer with the given geometry
func NewBuffer(channels, frames, sampleRate int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if frames <= 0 {
		return nil, fmt.Errorf("invalid frame count %d", frames)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	planes := make([][]float32, channels)
	for c := range planes {
		planes[c] = make([]float32, frames)
	}
	return &Buffer{SampleRate: sampleRate, Planes: planes}, nil
}

// Channels returns the number of planes
func (b *Buffer) Channels() int {
	return len(b.Planes)
}

// Frames returns the length of each plane
func (b *Buffer) Frames() int {
	if len(b.Planes) == 0 {
		return 0
	}
	return len(b.Planes[0])
}

func (b *Buffer) validate() error {
	if b == nil || len(b.Planes) == 0 {
		return errors.New("empty buffer")
	}
	n := len(b.Planes[0])
	if n == 0 {
		return errors.New("buffer has no frames")
	}
	for c, p := range b.Planes {
		if len(p) != n {
			return fmt.Errorf("plane %d has %d frames, want %d", c, len(p), n)
		}
	}
	return nil
}

// bufferSource streams a Buffer once. Mono is sent to both sides; only
// the first two planes of wider buffers are heard.
type bufferSource struct {
	buf *Buffer
	pos int
}

func (s *bufferSource) Stream(samples [][2]float64) (int, bool) {
	if s.buf == nil {
		return 0, false
	}

	left := s.buf.Planes[0]
	right := left
	if len(s.buf.Planes) > 1 {
		right = s.buf.Planes[1]
	}

	remaining := len(left) - s.pos
	if remaining <= 0 {
		return 0, false
	}

	n := min(len(samples), remaining)
	for i := 0; i < n; i++ {
		samples[i][0] = float64(left[s.pos+i])
		samples[i][1] = float64(right[s.pos+i])
	}
	s.pos += n
	return n, true
}

func (s *bufferSource) Err() error {
	return nil
}

// release drops the planes so the samples can be collected
func (s *bufferSource) release() {
	s.buf = nil
}
