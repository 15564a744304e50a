// ABOUTME: Tests for binary audio chunk frames
// ABOUTME: Verifies header parsing, sample decoding and malformed frame rejection
package protocol

import (
	"errors"
	"testing"
)

func TestChunkRoundTrip(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.25, -1}
	frame := EncodeChunk(123456, samples)

	if frame[0] != AudioChunkMessageType {
		t.Fatalf("expected type byte %d, got %d", AudioChunkMessageType, frame[0])
	}

	chunk, err := DecodeChunk(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk.Timestamp != 123456 {
		t.Errorf("expected timestamp 123456, got %d", chunk.Timestamp)
	}
	if len(chunk.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(chunk.Samples))
	}
	for i := range samples {
		if chunk.Samples[i] != samples[i] {
			t.Errorf("sample %d: expected %v, got %v", i, samples[i], chunk.Samples[i])
		}
	}
}

func TestDecodeChunkMalformed(t *testing.T) {
	good := EncodeChunk(1, []float32{1, 2})

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{AudioChunkMessageType, 0, 0}},
		{"wrong type", append([]byte{7}, good[1:]...)},
		{"unaligned payload", append(append([]byte{}, good...), 0xFF)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeChunk(tt.data); !errors.Is(err, ErrMalformedChunk) {
				t.Errorf("expected ErrMalformedChunk, got %v", err)
			}
		})
	}
}

func TestDecodeChunkEmptyPayload(t *testing.T) {
	chunk, err := DecodeChunk(EncodeChunk(0, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunk.Samples) != 0 {
		t.Errorf("expected no samples, got %d", len(chunk.Samples))
	}
}
