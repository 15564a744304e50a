// ABOUTME: Output devices that pull rendered audio from the graph
// ABOUTME: oto is the default backend; malgo drives miniaudio directly
package graph

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"
)

// Backend names
const (
	BackendOto   = "oto"
	BackendMalgo = "malgo"
)

// Device is a host audio output. It pulls interleaved float32LE frames
// from the reader passed to Open on its own thread.
type Device interface {
	Open(sampleRate, channels int, src io.Reader) error
	Suspended() bool
	Suspend() error
	Resume() error
	Close() error
}

// NewDevice returns the device for a backend name
func NewDevice(backend string, log *slog.Logger) (Device, error) {
	switch backend {
	case BackendOto, "":
		return &otoDevice{log: log}, nil
	case BackendMalgo:
		return &malgoDevice{log: log}, nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}

// otoDevice plays through a single persistent oto player. oto allows one
// context per process, so the device cannot be reopened with a new format.
type otoDevice struct {
	log *slog.Logger

	mu        sync.Mutex
	ctx       *oto.Context
	player    *oto.Player
	suspended bool
}

func (o *otoDevice) Open(sampleRate, channels int, src io.Reader) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx != nil {
		return fmt.Errorf("oto device already open")
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.ctx = ctx
	o.player = ctx.NewPlayer(src)
	o.player.Play()

	o.log.Info("audio output initialized", "backend", BackendOto, "sample_rate", sampleRate, "channels", channels)
	return nil
}

func (o *otoDevice) Suspended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suspended
}

func (o *otoDevice) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx == nil {
		return fmt.Errorf("oto device not open")
	}
	if err := o.ctx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend oto context: %w", err)
	}
	o.suspended = true
	return nil
}

func (o *otoDevice) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx == nil {
		return fmt.Errorf("oto device not open")
	}
	if err := o.ctx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}
	o.suspended = false
	return nil
}

func (o *otoDevice) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var err error
	if o.player != nil {
		err = o.player.Close()
		o.player = nil
	}
	if o.ctx != nil {
		if serr := o.ctx.Suspend(); serr != nil {
			o.log.Warn("oto context suspend failed", "error", serr)
		}
		o.suspended = true
	}
	return err
}

// malgoDevice renders from the miniaudio data callback
type malgoDevice struct {
	log *slog.Logger

	mu        sync.Mutex
	malgoCtx  *malgo.AllocatedContext
	device    *malgo.Device
	src       io.Reader
	channels  int
	suspended bool
}

func (m *malgoDevice) Open(sampleRate, channels int, src io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("malgo device already open")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	m.src = src
	m.channels = channels

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			m.render(pOutput, frameCount)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.malgoCtx = ctx
	m.device = device

	m.log.Info("audio output initialized", "backend", BackendMalgo, "sample_rate", sampleRate, "channels", channels)
	return nil
}

// render fills the device buffer. The source never blocks.
func (m *malgoDevice) render(out []byte, frameCount uint32) {
	want := int(frameCount) * m.channels * 4
	if want > len(out) {
		want = len(out)
	}
	n, _ := m.src.Read(out[:want])
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}

func (m *malgoDevice) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

func (m *malgoDevice) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return fmt.Errorf("malgo device not open")
	}
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	m.suspended = true
	return nil
}

func (m *malgoDevice) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return fmt.Errorf("malgo device not open")
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.suspended = false
	return nil
}

func (m *malgoDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			m.log.Warn("device stop error", "error", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.log.Warn("malgo context uninit error", "error", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	m.suspended = true
	return nil
}
