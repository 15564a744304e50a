// ABOUTME: Binary audio chunk frame encoding
// ABOUTME: Type byte, big-endian timestamp, little-endian float32 samples
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// AudioChunkMessageType is the leading byte of a binary audio frame
const AudioChunkMessageType = 4

const chunkHeaderSize = 9

// ErrMalformedChunk is returned for a binary frame that is not a valid audio chunk
var ErrMalformedChunk = errors.New("malformed audio chunk")

// Chunk is one delivery of interleaved float samples
type Chunk struct {
	Timestamp int64 // Microseconds, source clock
	Samples   []float32
}

// DecodeChunk parses a binary audio frame
func DecodeChunk(data []byte) (Chunk, error) {
	if len(data) < chunkHeaderSize {
		return Chunk{}, fmt.Errorf("%w: frame too short (%d bytes)", ErrMalformedChunk, len(data))
	}
	if data[0] != AudioChunkMessageType {
		return Chunk{}, fmt.Errorf("%w: unexpected message type %d", ErrMalformedChunk, data[0])
	}

	payload := data[chunkHeaderSize:]
	if len(payload)%4 != 0 {
		return Chunk{}, fmt.Errorf("%w: payload of %d bytes is not float32 aligned", ErrMalformedChunk, len(payload))
	}

	samples := make([]float32, len(payload)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	return Chunk{
		Timestamp: int64(binary.BigEndian.Uint64(data[1:9])),
		Samples:   samples,
	}, nil
}

// EncodeChunk builds a binary audio frame
func EncodeChunk(timestamp int64, samples []float32) []byte {
	frame := make([]byte, chunkHeaderSize+len(samples)*4)
	frame[0] = AudioChunkMessageType
	binary.BigEndian.PutUint64(frame[1:9], uint64(timestamp))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(frame[chunkHeaderSize+i*4:], math.Float32bits(s))
	}
	return frame
}
