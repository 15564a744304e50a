// ABOUTME: Analysis tap on the audio graph
// ABOUTME: Records a mono ring of the samples flowing to the output
package graph

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Tap is a pass-through streamer that copies a mono mix of everything
// flowing through it into a ring buffer for analysis.
type Tap struct {
	s    beep.Streamer
	mu   sync.Mutex
	buf  []float64
	pos  int
	size int
}

// NewTap wraps s with a ring buffer of size samples
func NewTap(s beep.Streamer, size int) *Tap {
	if size <= 0 {
		size = DefaultTapSize
	}
	return &Tap{
		s:    s,
		buf:  make([]float64, size),
		size: size,
	}
}

// Stream passes audio through while recording it
func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	t.mu.Lock()
	for i := range n {
		t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
	return n, ok
}

// Err returns the wrapped streamer's error
func (t *Tap) Err() error {
	return t.s.Err()
}

// Size returns the ring buffer capacity
func (t *Tap) Size() int {
	return t.size
}

// Samples returns the last n samples in chronological order
func (t *Tap) Samples(n int) []float64 {
	if n > t.size {
		n = t.size
	}
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := range n {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}
