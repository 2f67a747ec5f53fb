package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dannyeldridge/voicehero/pkg/logger"
)

var (
	// ErrAlreadyRecording means Start was called while a capture is active.
	ErrAlreadyRecording = errors.New("capture already active")
	// ErrNoActiveRecording means Stop was called with no capture active.
	ErrNoActiveRecording = errors.New("no active capture")
	// ErrDeviceUnavailable means no input device could be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrStreamHung means a stream stop or close missed its deadline.
	ErrStreamHung = errors.New("audio stream did not stop in time")
)

const (
	// FramesPerChunk is the hardware buffer length in frames.
	FramesPerChunk = 1024
	// deviceSettleDelay gives the OS time to settle after a device change
	// before the default device is re-queried.
	deviceSettleDelay = 300 * time.Millisecond
	// streamStopTimeout bounds stop/close so a hung driver cannot block
	// the user; past it the handle is abandoned.
	streamStopTimeout = 2 * time.Second
)

// permissionHint is shown when every start fallback failed.
const permissionHint = "check that the microphone is connected and that this app has microphone permission (System Settings > Privacy & Security > Microphone)"

// Capture owns at most one input stream and buffers its chunks in arrival
// order until Stop. Chunk delivery happens on an internal reader goroutine;
// all buffer access is mutex-guarded.
type Capture struct {
	host       Host
	log        *logger.Logger
	sampleRate int
	channels   int

	mu     sync.Mutex
	active bool
	chunks [][]float32
	stream Stream
	quit   chan struct{}
	done   chan struct{}
}

// NewCapture builds a capture bound to a host. SampleRate and channels apply
// to every stream it opens.
func NewCapture(host Host, sampleRate, channels int, log *logger.Logger) *Capture {
	return &Capture{
		host:       host,
		log:        log,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Start opens and starts an input stream, preferring dev. The fallback
// ladder: the given device, then (after a settle delay) a re-queried
// default device, then the system default. When every rung fails the error
// wraps ErrDeviceUnavailable with remediation guidance.
func (c *Capture) Start(dev Device) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	c.mu.Unlock()

	stream, err := c.openAndStart(dev)
	if err != nil {
		c.log.Warn("capture start failed, retrying on re-queried default",
			logger.String("device", dev.Name), logger.Error(err))
		time.Sleep(deviceSettleDelay)
		if fallback, ferr := c.host.DefaultInputDevice(); ferr == nil {
			stream, err = c.openAndStart(fallback)
		}
	}
	if err != nil && dev.Index != SystemDefault.Index {
		c.log.Warn("capture start failed again, falling back to system default", logger.Error(err))
		stream, err = c.openAndStart(SystemDefault)
	}
	if err != nil {
		return fmt.Errorf("%w: %v (%s)", ErrDeviceUnavailable, err, permissionHint)
	}

	c.mu.Lock()
	if c.active {
		// Lost the race to a concurrent Start.
		c.mu.Unlock()
		c.teardown(stream)
		return ErrAlreadyRecording
	}
	c.active = true
	c.chunks = nil
	c.stream = stream
	c.quit = make(chan struct{})
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(stream, c.quit, c.done)
	return nil
}

func (c *Capture) openAndStart(dev Device) (Stream, error) {
	stream, err := c.host.OpenInputStream(dev, c.sampleRate, c.channels, FramesPerChunk)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, err
	}
	return stream, nil
}

func (c *Capture) readLoop(stream Stream, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		default:
		}
		chunk, err := stream.Read()
		if err != nil {
			select {
			case <-quit:
				return
			default:
			}
			c.log.Debug("stream read error", logger.Error(err))
			time.Sleep(10 * time.Millisecond)
			continue
		}
		c.mu.Lock()
		if c.active {
			c.chunks = append(c.chunks, chunk)
		}
		c.mu.Unlock()
	}
}

// Stop ends the capture and returns the buffered samples flattened to one
// channel. Zero delivered chunks yield an empty slice. A hung stream stop is
// logged and abandoned rather than surfaced; the samples already buffered
// are still returned.
func (c *Capture) Stop() ([]float32, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil, ErrNoActiveRecording
	}
	c.active = false
	stream := c.stream
	quit, done := c.quit, c.done
	c.stream = nil
	c.mu.Unlock()

	close(quit)
	c.teardown(stream)

	select {
	case <-done:
	case <-time.After(streamStopTimeout):
		c.log.Warn("capture reader did not exit in time")
	}

	c.mu.Lock()
	chunks := c.chunks
	c.chunks = nil
	c.mu.Unlock()

	return Flatten(chunks, c.channels), nil
}

// Active reports whether a capture is currently running.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Capture) teardown(stream Stream) {
	if err := runWithTimeout(streamStopTimeout, stream.Stop); err != nil {
		c.log.Warn("abandoning stream handle", logger.String("op", "stop"), logger.Error(err))
		return
	}
	if err := runWithTimeout(streamStopTimeout, stream.Close); err != nil {
		c.log.Warn("abandoning stream handle", logger.String("op", "close"), logger.Error(err))
	}
}

// runWithTimeout runs fn on its own goroutine and gives up after the
// deadline. A leaked goroutine on timeout is the accepted cost of never
// blocking the user on a wedged driver call.
func runWithTimeout(d time.Duration, fn func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(d):
		return ErrStreamHung
	}
}

// Flatten concatenates chunks of interleaved frames into a single mono
// buffer. Multi-channel input is laid out channel-major: all of channel 0,
// then all of channel 1, and so on.
func Flatten(chunks [][]float32, channels int) []float32 {
	total := 0
	for _, ch := range chunks {
		total += len(ch)
	}
	out := make([]float32, 0, total)
	if channels <= 1 {
		for _, ch := range chunks {
			out = append(out, ch...)
		}
		return out
	}
	for c := 0; c < channels; c++ {
		for _, ch := range chunks {
			for i := c; i < len(ch); i += channels {
				out = append(out, ch[i])
			}
		}
	}
	return out
}
