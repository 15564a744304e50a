// ABOUTME: Tests for the analysis tap
// ABOUTME: Verifies mono mixing and chronological sample reads
package graph

import (
	"testing"
)

type constStreamer struct {
	left, right float64
}

func (c constStreamer) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		samples[i] = [2]float64{c.left, c.right}
	}
	return len(samples), true
}

func (c constStreamer) Err() error { return nil }

func TestTapRecordsMonoMix(t *testing.T) {
	tap := NewTap(constStreamer{left: 1, right: 0}, 4)

	buf := make([][2]float64, 3)
	n, ok := tap.Stream(buf)
	if n != 3 || !ok {
		t.Fatalf("expected 3 samples, got %d ok=%v", n, ok)
	}
	if buf[0][0] != 1 {
		t.Errorf("tap must pass audio through unchanged, got %v", buf[0])
	}

	got := tap.Samples(3)
	for i, v := range got {
		if v != 0.5 {
			t.Errorf("sample %d: expected 0.5, got %v", i, v)
		}
	}
}

func TestTapSamplesChronological(t *testing.T) {
	var values []float64
	src := &rampStreamer{}
	tap := NewTap(src, 4)

	buf := make([][2]float64, 6)
	tap.Stream(buf)

	values = tap.Samples(10)
	want := []float64{2, 3, 4, 5}
	if len(values) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(values))
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], values[i])
		}
	}
}

type rampStreamer struct{ next float64 }

func (r *rampStreamer) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		samples[i] = [2]float64{r.next, r.next}
		r.next++
	}
	return len(samples), true
}

func (r *rampStreamer) Err() error { return nil }
