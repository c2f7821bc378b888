package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/BrianVia/transcriptor/internal/audio"
)

// MalgoSource captures from the default input device via miniaudio.
// Buffers are delivered as 32-bit float PCM at the requested rate and
// channel count.
type MalgoSource struct {
	ctx    *malgo.AllocatedContext
	format audio.SourceFormat

	mu      sync.Mutex
	device  *malgo.Device
	running bool
}

// NewMalgoSource initializes the audio context. Call Close when done.
func NewMalgoSource(sampleRate, channels int) (*MalgoSource, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	return &MalgoSource{
		ctx: ctx,
		format: audio.SourceFormat{
			SampleRate: sampleRate,
			Channels:   channels,
			Encoding:   audio.EncodingF32,
		},
	}, nil
}

// Format reports the capture format requested from the device
func (s *MalgoSource) Format() audio.SourceFormat {
	return s.format
}

// Start opens the default capture device and begins delivering buffers to fn
func (s *MalgoSource) Start(fn SampleFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("capture source already started")
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = uint32(s.format.Channels)
	deviceCfg.SampleRate = uint32(s.format.SampleRate)

	// The callback closes over fn directly: Stop's Uninit joins the audio
	// thread, so no synchronization against the callback is needed here.
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pSample []byte, frameCount uint32) {
			// malgo reuses the callback buffer; copy the bytes out.
			data := make([]byte, len(pSample))
			copy(data, pSample)

			fn(audio.SampleBuffer{
				Data:      data,
				Frames:    int(frameCount),
				Format:    s.format,
				Timestamp: time.Now(),
			})
		},
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return fmt.Errorf("initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("starting capture device: %w", err)
	}

	s.device = device
	s.running = true

	return nil
}

// Stop tears down the capture device. Uninit joins the data callback, so no
// delivery is in flight once it returns.
func (s *MalgoSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.device.Uninit()
	s.device = nil
	s.running = false

	return nil
}

// Close releases the device and the audio context
func (s *MalgoSource) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}

	if s.ctx != nil {
		if err := s.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninitializing audio context: %w", err)
		}
		s.ctx.Free()
		s.ctx = nil
	}

	return nil
}
