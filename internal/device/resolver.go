// Package device decides which input device a session records from and works
// around Bluetooth microphones that stay in their output-only profile until
// an input stream has been opened on them once.
package device

import (
	"strings"
	"time"

	"github.com/dannyeldridge/voicehero/internal/audio"
	"github.com/dannyeldridge/voicehero/pkg/logger"
)

// bluetoothVocab are the tokens that mark a device name as Bluetooth-class.
// Matching is case-insensitive substring.
var bluetoothVocab = []string{
	"airpods", "bluetooth", "bt", "wireless",
	"beats", "bose", "sony", "jabra", "sennheiser",
}

const (
	// activationSettle holds the probe stream open long enough for the OS
	// to flip the Bluetooth radio into its bidirectional profile.
	activationSettle = 300 * time.Millisecond
	probeStopTimeout = 2 * time.Second
)

// IsBluetooth classifies a device name.
func IsBluetooth(name string) bool {
	n := strings.ToLower(name)
	for _, tok := range bluetoothVocab {
		if strings.Contains(n, tok) {
			return true
		}
	}
	return false
}

// Resolver tracks which Bluetooth device was last activated and primes new
// ones with a short probe recording.
type Resolver struct {
	host       audio.Host
	log        *logger.Logger
	sampleRate int

	activated string // name of the last Bluetooth-activated device, or ""
}

// NewResolver builds a resolver on a host.
func NewResolver(host audio.Host, sampleRate int, log *logger.Logger) *Resolver {
	return &Resolver{host: host, log: log, sampleRate: sampleRate}
}

// Activated returns the name of the currently activated Bluetooth device,
// or "" when none is.
func (r *Resolver) Activated() string { return r.activated }

// ResolveAndActivate returns the device a capture should start on. When the
// default device is Bluetooth-class and not the one already activated, it
// runs an activation probe first. Probe failure is logged and the device
// returned anyway; the capture start ladder handles a device that still is
// not usable. The host device list is refreshed only when a Bluetooth device
// was active before, since a refresh can disturb a stable wired device.
func (r *Resolver) ResolveAndActivate() (audio.Device, error) {
	if r.activated != "" {
		if err := r.host.Refresh(); err != nil {
			r.log.Warn("device list refresh failed", logger.Error(err))
		}
	}

	dev, err := r.host.DefaultInputDevice()
	if err != nil {
		return audio.Device{}, err
	}

	if !IsBluetooth(dev.Name) {
		return dev, nil
	}
	if dev.Name == r.activated {
		r.log.Debug("bluetooth device already activated", logger.String("device", dev.Name))
		return dev, nil
	}

	r.log.Info("activating bluetooth microphone", logger.String("device", dev.Name))
	if err := r.probe(dev); err != nil {
		r.log.Warn("bluetooth activation failed, recording may start muted",
			logger.String("device", dev.Name), logger.Error(err))
		return dev, nil
	}
	r.activated = dev.Name
	return dev, nil
}

func (r *Resolver) probe(dev audio.Device) error {
	stream, err := r.host.OpenInputStream(dev, r.sampleRate, 1, audio.FramesPerChunk)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return err
	}
	time.Sleep(activationSettle)

	if err := boundedCall(stream.Stop); err != nil {
		r.log.Warn("abandoning probe stream", logger.String("op", "stop"), logger.Error(err))
		return nil
	}
	if err := boundedCall(stream.Close); err != nil {
		r.log.Warn("abandoning probe stream", logger.String("op", "close"), logger.Error(err))
	}
	return nil
}

func boundedCall(fn func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(probeStopTimeout):
		return audio.ErrStreamHung
	}
}
