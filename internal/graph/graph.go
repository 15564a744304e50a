// ABOUTME: Audio graph: mixer, pre-amp gain, analysis tap, playback gain, output
// ABOUTME: Owns the output device and gates scheduling on readiness
package graph

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/observe"
)

// Defaults
const (
	DefaultSampleRate   = 44100
	DefaultChannels     = 2
	DefaultPreAmpGain   = 2.5
	DefaultPlaybackGain = 1.0
	DefaultTapSize      = 2048
)

var (
	// ErrNotReady is returned when the graph has not started or has closed
	ErrNotReady = errors.New("audio graph not ready")
	// ErrClosed is returned by Start after Close
	ErrClosed = errors.New("audio graph closed")
)

// Config holds graph configuration
type Config struct {
	Backend      string
	SampleRate   int
	Channels     int
	PreAmpGain   float64
	PlaybackGain float64
	TapSize      int

	// Device overrides the backend device
	Device  Device
	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Manager owns the audio graph. Buffer sources feed a mixer, then:
// pre-amp gain -> tap -> playback gain -> device.
type Manager struct {
	config  Config
	log     *slog.Logger
	metrics *observe.Metrics

	// mu guards the beep nodes; the device pulls under it
	mu       sync.Mutex
	mixer    *beep.Mixer
	preAmp   *effects.Gain
	tap      *Tap
	playback *effects.Gain
	device   Device
	closed   bool

	gainMu       sync.RWMutex
	preAmpGain   float64
	playbackGain float64

	ready  atomic.Bool
	active atomic.Int64

	errMu sync.Mutex
	err   error
}

// New builds the graph. No device is opened until Start.
func New(config Config) *Manager {
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultSampleRate
	}
	if config.Channels <= 0 {
		config.Channels = DefaultChannels
	}
	if config.TapSize <= 0 {
		config.TapSize = DefaultTapSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observe.DefaultMetrics()
	}

	m := &Manager{
		config:  config,
		log:     config.Logger.With("component", "graph"),
		metrics: config.Metrics,
		mixer:   &beep.Mixer{},
	}
	m.preAmp = &effects.Gain{Streamer: m.mixer}
	m.tap = NewTap(m.preAmp, config.TapSize)
	m.playback = &effects.Gain{Streamer: m.tap}

	m.SetPreAmpGain(config.PreAmpGain)
	m.SetPlaybackGain(config.PlaybackGain)
	return m
}

// Start opens the output device. On failure the graph stays not ready
// and Err describes why.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.device != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	device := m.config.Device
	if device == nil {
		var err error
		device, err = NewDevice(m.config.Backend, m.config.Logger)
		if err != nil {
			m.setErr(err)
			return err
		}
	}

	if err := device.Open(m.config.SampleRate, m.config.Channels, &pcmReader{m: m}); err != nil {
		err = fmt.Errorf("failed to open audio output: %w", err)
		m.setErr(err)
		m.log.Error("audio graph unavailable", "error", err)
		return err
	}

	m.mu.Lock()
	m.device = device
	m.mu.Unlock()

	m.setErr(nil)
	m.ready.Store(true)
	m.log.Info("audio graph ready", "sample_rate", m.config.SampleRate, "channels", m.config.Channels)
	return nil
}

// Ready reports whether buffers can be scheduled
func (m *Manager) Ready() bool {
	return m.ready.Load()
}

// Err describes why the graph is not ready
func (m *Manager) Err() error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.err
}

func (m *Manager) setErr(err error) {
	m.errMu.Lock()
	m.err = err
	m.errMu.Unlock()
}

// SampleRate returns the graph's native sample rate
func (m *Manager) SampleRate() int {
	return m.config.SampleRate
}

// Channels returns the output channel count
func (m *Manager) Channels() int {
	return m.config.Channels
}

// SetPreAmpGain sets the pre-amplification multiplier. Negative values clamp to 0.
func (m *Manager) SetPreAmpGain(g float64) {
	g = clampGain(g)
	m.gainMu.Lock()
	m.preAmpGain = g
	m.gainMu.Unlock()

	m.mu.Lock()
	m.preAmp.Gain = g - 1
	m.mu.Unlock()
}

// PreAmpGain returns the pre-amplification multiplier
func (m *Manager) PreAmpGain() float64 {
	m.gainMu.RLock()
	defer m.gainMu.RUnlock()
	return m.preAmpGain
}

// SetPlaybackGain sets the output volume multiplier. Negative values clamp to 0.
func (m *Manager) SetPlaybackGain(g float64) {
	g = clampGain(g)
	m.gainMu.Lock()
	m.playbackGain = g
	m.gainMu.Unlock()

	m.mu.Lock()
	m.playback.Gain = g - 1
	m.mu.Unlock()
}

// PlaybackGain returns the output volume multiplier
func (m *Manager) PlaybackGain() float64 {
	m.gainMu.RLock()
	defer m.gainMu.RUnlock()
	return m.playbackGain
}

// clampGain maps a multiplier into the range effects.Gain can express
func clampGain(g float64) float64 {
	if g < 0 || math.IsNaN(g) {
		return 0
	}
	return g
}

// Tap returns the analysis tap
func (m *Manager) Tap() *Tap {
	return m.tap
}

// Active returns the number of scheduled buffers still playing
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// Schedule starts buf immediately. It is mixed with anything still
// playing and released when it finishes.
func (m *Manager) Schedule(buf *Buffer) error {
	if !m.ready.Load() {
		return ErrNotReady
	}
	if err := buf.validate(); err != nil {
		return fmt.Errorf("invalid buffer: %w", err)
	}
	if buf.SampleRate != m.config.SampleRate {
		return fmt.Errorf("buffer sample rate %d does not match graph rate %d", buf.SampleRate, m.config.SampleRate)
	}

	m.mu.Lock()
	if m.closed || m.device == nil {
		m.mu.Unlock()
		return ErrNotReady
	}
	device := m.device

	src := &bufferSource{buf: buf}
	m.active.Add(1)
	m.metrics.ActiveBuffers.Add(context.Background(), 1)

	// Runs inside mixer.Stream with mu held
	release := func() {
		src.release()
		m.active.Add(-1)
		m.metrics.ActiveBuffers.Add(context.Background(), -1)
	}
	m.mixer.Add(beep.Seq(src, beep.Callback(release)))
	m.mu.Unlock()

	if device.Suspended() {
		go m.resume(device)
	}
	return nil
}

func (m *Manager) resume(device Device) {
	if err := device.Resume(); err != nil {
		m.log.Warn("failed to resume audio output", "error", err)
		return
	}
	m.log.Info("audio output resumed")
}

// Suspend puts the output device into its suspended state. The next
// Schedule resumes it.
func (m *Manager) Suspend() error {
	m.mu.Lock()
	device := m.device
	m.mu.Unlock()

	if device == nil || !m.ready.Load() {
		return ErrNotReady
	}
	return device.Suspend()
}

// Close releases the device and drops scheduled buffers. Safe to call
// more than once.
func (m *Manager) Close() error {
	m.ready.Store(false)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	device := m.device
	m.device = nil
	m.mixer.Clear()
	m.mu.Unlock()

	if dropped := m.active.Swap(0); dropped > 0 {
		m.metrics.ActiveBuffers.Add(context.Background(), -dropped)
	}

	if device == nil {
		return nil
	}
	if err := device.Close(); err != nil {
		return fmt.Errorf("failed to close audio output: %w", err)
	}
	m.log.Info("audio graph closed")
	return nil
}

// render pulls frames through the graph. Missing frames are silence.
func (m *Manager) render(dst [][2]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		clear(dst)
		return
	}

	n, _ := m.playback.Stream(dst)
	clear(dst[n:])
}

// pcmReader exposes the graph output as interleaved float32LE frames
type pcmReader struct {
	m       *Manager
	scratch [][2]float64
}

func (r *pcmReader) Read(p []byte) (int, error) {
	channels := r.m.config.Channels
	frameBytes := 4 * channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	if cap(r.scratch) < frames {
		r.scratch = make([][2]float64, frames)
	}
	buf := r.scratch[:frames]
	r.m.render(buf)

	off := 0
	for _, frame := range buf {
		for c := 0; c < channels; c++ {
			var v float64
			switch {
			case channels == 1:
				v = (frame[0] + frame[1]) / 2
			case c < 2:
				v = frame[c]
			}
			binary.LittleEndian.PutUint32(p[off:], math.Float32bits(float32(v)))
			off += 4
		}
	}
	return off, nil
}
