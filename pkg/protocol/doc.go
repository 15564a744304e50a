// ABOUTME: Visualizer wire protocol package
// ABOUTME: Defines handshake messages, playback events and audio chunk frames
// Package protocol implements the wire format spoken between an event
// source and a visualizer receiver.
//
// Text frames carry either handshake messages (client/hello, server/hello)
// or flat playback event envelopes tagged by a "type" field. Binary frames
// carry interleaved float32 audio chunks.
//
// Example:
//
//	ev, err := protocol.DecodeEvent(frame)
//	if errors.Is(err, protocol.ErrUnknownEventType) {
//		// skip
//	}
package protocol
