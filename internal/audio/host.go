package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device identifies one audio input device by host index and display name.
// The name is what Bluetooth classification matches against.
type Device struct {
	Index int
	Name  string
}

// SystemDefault selects the platform's unspecified default input device.
// Used as the last rung of the capture start ladder.
var SystemDefault = Device{Index: -1}

// Stream is one open input stream. Read blocks until the next hardware
// buffer and returns a copy of its samples.
type Stream interface {
	Start() error
	Read() ([]float32, error)
	Stop() error
	Close() error
}

// Host abstracts the audio hardware layer so capture and device logic can be
// tested against fakes.
type Host interface {
	DefaultInputDevice() (Device, error)
	OpenInputStream(dev Device, sampleRate, channels, frameLen int) (Stream, error)
	// Refresh re-scans the device list. Needed after a Bluetooth device
	// changes profile, since the host caches device state at init.
	Refresh() error
	Close() error
}

type portaudioHost struct{}

// NewHost initializes the audio subsystem and returns the hardware-backed
// Host. Close must be called on shutdown.
func NewHost() (Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio subsystem init: %w", err)
	}
	return &portaudioHost{}, nil
}

func (h *portaudioHost) DefaultInputDevice() (Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("query default input device: %w", err)
	}
	devs, err := portaudio.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("enumerate devices: %w", err)
	}
	for i, d := range devs {
		if d == info {
			return Device{Index: i, Name: info.Name}, nil
		}
	}
	return Device{Index: -1, Name: info.Name}, nil
}

func (h *portaudioHost) OpenInputStream(dev Device, sampleRate, channels, frameLen int) (Stream, error) {
	buf := make([]float32, frameLen*channels)

	if dev.Index < 0 {
		s, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), frameLen, buf)
		if err != nil {
			return nil, err
		}
		return &portaudioStream{s: s, buf: buf}, nil
	}

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if dev.Index >= len(devs) {
		return nil, fmt.Errorf("device index %d out of range", dev.Index)
	}
	info := devs[dev.Index]
	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = channels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = frameLen
	s, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, err
	}
	return &portaudioStream{s: s, buf: buf}, nil
}

func (h *portaudioHost) Refresh() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("audio subsystem terminate: %w", err)
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio subsystem reinit: %w", err)
	}
	return nil
}

func (h *portaudioHost) Close() error {
	return portaudio.Terminate()
}

type portaudioStream struct {
	s   *portaudio.Stream
	buf []float32
}

func (p *portaudioStream) Start() error { return p.s.Start() }

func (p *portaudioStream) Read() ([]float32, error) {
	if err := p.s.Read(); err != nil {
		return nil, err
	}
	out := make([]float32, len(p.buf))
	copy(out, p.buf)
	return out, nil
}

func (p *portaudioStream) Stop() error  { return p.s.Stop() }
func (p *portaudioStream) Close() error { return p.s.Close() }
