// Package session drives the push-to-talk state machine: combo engaged
// starts a capture, combo released stops it and runs transcription.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dannyeldridge/voicehero/internal/audio"
	"github.com/dannyeldridge/voicehero/internal/hotkey"
	"github.com/dannyeldridge/voicehero/internal/transcribe"
	"github.com/dannyeldridge/voicehero/pkg/logger"
)

// State is the session's position in the record/transcribe cycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	}
	return "unknown"
}

// Recorder is the capture surface the session drives.
type Recorder interface {
	Start(dev audio.Device) error
	Stop() ([]float32, error)
	Active() bool
}

// Resolver picks and primes the input device for a new capture.
type Resolver interface {
	ResolveAndActivate() (audio.Device, error)
}

// Transcriber turns a finished capture into text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (transcribe.Result, error)
}

// Sink receives session outcomes. NoAudio and NoSpeech are valid endings,
// reported distinctly from a transcript.
type Sink interface {
	Transcript(text string, elapsed time.Duration)
	NoAudio()
	NoSpeech(elapsed time.Duration)
}

// Config holds session parameters.
type Config struct {
	Combo      []string
	SampleRate int
	// OnCapture, when set, observes every non-empty capture before
	// transcription. Used for saved recordings and debug reporting.
	OnCapture func(samples []float32)
}

// Session owns the state machine. Edges arriving in the wrong state are
// dropped, never queued: a press while transcribing does not start a
// pending recording, and a duplicate release is a no-op. All transitions
// are mutex-guarded because edges arrive from the key listener's context.
type Session struct {
	cfg      Config
	resolver Resolver
	recorder Recorder
	engine   Transcriber
	sink     Sink
	log      *logger.Logger

	mu    sync.Mutex
	state State
}

// New builds a session in StateIdle.
func New(cfg Config, resolver Resolver, recorder Recorder, engine Transcriber, sink Sink, log *logger.Logger) *Session {
	return &Session{
		cfg:      cfg,
		resolver: resolver,
		recorder: recorder,
		engine:   engine,
		sink:     sink,
		log:      log,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ComboEngaged handles a press edge. Only StateIdle acts on it.
func (s *Session) ComboEngaged() {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		s.log.Debug("press edge ignored", logger.String("state", s.state.String()))
		return
	}
	s.state = StateRecording
	s.mu.Unlock()

	dev, err := s.resolver.ResolveAndActivate()
	if err == nil {
		err = s.recorder.Start(dev)
	}
	if err != nil {
		s.log.Error("could not start recording", logger.Error(err))
		s.toIdle()
		return
	}
	s.log.Info("recording", logger.String("device", dev.Name))
}

// ComboReleased handles a release edge. Only StateRecording acts on it. The
// state flips to StateTranscribing before any teardown work, so a fast
// re-press during teardown is ignored. Transcription runs synchronously on
// the caller's goroutine.
func (s *Session) ComboReleased() {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		s.log.Debug("release edge ignored", logger.String("state", s.state.String()))
		return
	}
	s.state = StateTranscribing
	s.mu.Unlock()
	defer s.toIdle()

	samples, err := s.recorder.Stop()
	if err != nil {
		s.log.Error("could not stop recording", logger.Error(err))
		return
	}
	if len(samples) == 0 {
		s.log.Info("no audio captured")
		s.sink.NoAudio()
		return
	}
	if s.cfg.OnCapture != nil {
		s.cfg.OnCapture(samples)
	}

	s.log.Info("transcribing",
		logger.Duration("clip", audio.Duration(len(samples), s.cfg.SampleRate)))
	res, err := s.engine.Transcribe(context.Background(), samples, s.cfg.SampleRate)
	if err != nil {
		s.log.Error("transcription failed", logger.Error(err))
		return
	}
	if res.Text == "" {
		s.sink.NoSpeech(res.Elapsed)
		return
	}
	s.sink.Transcript(res.Text, res.Elapsed)
}

func (s *Session) toIdle() {
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
}

// Close stops an active capture, ignoring errors, so no device handle is
// left open on shutdown.
func (s *Session) Close() {
	if s.recorder.Active() {
		_, _ = s.recorder.Stop()
	}
	s.toIdle()
}

// Run consumes raw key events until ctx is canceled or the stream closes.
// After a completed session, edges that queued up while transcribing are
// drained so they cannot start a ghost session.
func (s *Session) Run(ctx context.Context, events <-chan hotkey.Event) error {
	finished := false
	tracker, err := hotkey.NewTracker(s.cfg.Combo,
		s.ComboEngaged,
		func() {
			s.ComboReleased()
			finished = true
		})
	if err != nil {
		return err
	}
	s.log.Info("listening", logger.Any("hotkey", tracker.Combo()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			tracker.Handle(ev)
			if finished {
				finished = false
				if n := hotkey.Drain(events); n > 0 {
					s.log.Debug("dropped stale key events", logger.Int("count", n))
					tracker.Reset()
				}
			}
		}
	}
}
