package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dannyeldridge/voicehero/internal/audio"
	"github.com/dannyeldridge/voicehero/internal/hotkey"
	"github.com/dannyeldridge/voicehero/internal/transcribe"
	"github.com/dannyeldridge/voicehero/pkg/logger"
)

type fakeRecorder struct {
	mu       sync.Mutex
	active   bool
	samples  []float32
	startErr error
	starts   int
	stops    int
	lastDev  audio.Device
}

func (r *fakeRecorder) Start(dev audio.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	r.lastDev = dev
	if r.startErr != nil {
		return r.startErr
	}
	r.active = true
	return nil
}

func (r *fakeRecorder) Stop() ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	if !r.active {
		return nil, audio.ErrNoActiveRecording
	}
	r.active = false
	return r.samples, nil
}

func (r *fakeRecorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

type fakeResolver struct {
	dev audio.Device
	err error
}

func (f *fakeResolver) ResolveAndActivate() (audio.Device, error) { return f.dev, f.err }

type fakeEngine struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	got     []float32
	blockCh chan struct{}
}

func (e *fakeEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (transcribe.Result, error) {
	e.mu.Lock()
	e.calls++
	e.got = samples
	block := e.blockCh
	e.mu.Unlock()
	if block != nil {
		<-block
	}
	if e.err != nil {
		return transcribe.Result{}, e.err
	}
	return transcribe.Result{Text: e.text, Elapsed: 5 * time.Millisecond}, nil
}

type fakeSink struct {
	mu          sync.Mutex
	transcripts []string
	elapsed     []time.Duration
	noAudio     int
	noSpeech    int
}

func (s *fakeSink) Transcript(text string, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, text)
	s.elapsed = append(s.elapsed, elapsed)
}

func (s *fakeSink) NoAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noAudio++
}

func (s *fakeSink) NoSpeech(time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noSpeech++
}

func newTestSession(rec *fakeRecorder, eng *fakeEngine, sink *fakeSink) *Session {
	return New(
		Config{Combo: []string{"ctrl", "cmd"}, SampleRate: 16000},
		&fakeResolver{dev: audio.Device{Index: 0, Name: "Built-in Microphone"}},
		rec, eng, sink, logger.Nop(),
	)
}

func TestFullSessionDeliversTranscript(t *testing.T) {
	samples := make([]float32, 16000) // 2 chunks of 8000 at 16kHz = 1s
	for i := range samples {
		samples[i] = 0.1
	}
	rec := &fakeRecorder{samples: samples}
	eng := &fakeEngine{text: "hello world"}
	sink := &fakeSink{}
	s := newTestSession(rec, eng, sink)

	s.ComboEngaged()
	if s.State() != StateRecording {
		t.Fatalf("state = %v, want recording", s.State())
	}
	s.ComboReleased()
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want idle", s.State())
	}

	if len(eng.got) != 16000 {
		t.Fatalf("engine received %d samples, want 16000", len(eng.got))
	}
	if len(sink.transcripts) != 1 || sink.transcripts[0] != "hello world" {
		t.Fatalf("transcripts = %v", sink.transcripts)
	}
	if sink.elapsed[0] <= 0 {
		t.Fatal("elapsed must be positive")
	}
}

func TestReleaseWhileIdleIsNoOp(t *testing.T) {
	rec := &fakeRecorder{}
	eng := &fakeEngine{}
	sink := &fakeSink{}
	s := newTestSession(rec, eng, sink)

	s.ComboReleased()
	if rec.stops != 0 || eng.calls != 0 || sink.noAudio != 0 {
		t.Fatalf("release while idle had side effects: %+v", rec)
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %v", s.State())
	}
}

func TestPressWhileRecordingIsNoOp(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestSession(rec, &fakeEngine{}, &fakeSink{})

	s.ComboEngaged()
	s.ComboEngaged()
	if rec.starts != 1 {
		t.Fatalf("starts = %d, want 1", rec.starts)
	}
}

func TestPressWhileTranscribingIsDropped(t *testing.T) {
	rec := &fakeRecorder{samples: []float32{0.1, 0.2}}
	eng := &fakeEngine{text: "hi", blockCh: make(chan struct{})}
	sink := &fakeSink{}
	s := newTestSession(rec, eng, sink)

	s.ComboEngaged()
	released := make(chan struct{})
	go func() {
		s.ComboReleased()
		close(released)
	}()

	// Wait for the session to reach transcribing.
	deadline := time.After(2 * time.Second)
	for s.State() != StateTranscribing {
		select {
		case <-deadline:
			t.Fatal("never reached transcribing")
		case <-time.After(time.Millisecond):
		}
	}

	s.ComboEngaged() // must be dropped, not queued
	if rec.starts != 1 {
		t.Fatalf("starts = %d, want 1", rec.starts)
	}

	close(eng.blockCh)
	<-released
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want idle", s.State())
	}
	if len(sink.transcripts) != 1 {
		t.Fatalf("transcripts = %v", sink.transcripts)
	}
}

func TestEmptyCaptureSkipsEngine(t *testing.T) {
	rec := &fakeRecorder{samples: nil}
	eng := &fakeEngine{text: "should not run"}
	sink := &fakeSink{}
	s := newTestSession(rec, eng, sink)

	s.ComboEngaged()
	s.ComboReleased()

	if eng.calls != 0 {
		t.Fatal("engine invoked for empty capture")
	}
	if sink.noAudio != 1 {
		t.Fatalf("noAudio = %d, want 1", sink.noAudio)
	}
	if len(sink.transcripts) != 0 {
		t.Fatalf("unexpected transcript: %v", sink.transcripts)
	}
}

func TestNoSpeechReportedDistinctly(t *testing.T) {
	rec := &fakeRecorder{samples: []float32{0.0, 0.0}}
	eng := &fakeEngine{text: ""}
	sink := &fakeSink{}
	s := newTestSession(rec, eng, sink)

	s.ComboEngaged()
	s.ComboReleased()

	if sink.noSpeech != 1 || sink.noAudio != 0 || len(sink.transcripts) != 0 {
		t.Fatalf("sink = %+v", sink)
	}
}

func TestStartFailureReturnsToIdle(t *testing.T) {
	rec := &fakeRecorder{startErr: errors.New("no mic")}
	sink := &fakeSink{}
	s := newTestSession(rec, &fakeEngine{}, sink)

	s.ComboEngaged()
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want idle after failed start", s.State())
	}
	// The next press can try again.
	rec.startErr = nil
	s.ComboEngaged()
	if s.State() != StateRecording {
		t.Fatalf("state = %v, want recording on retry", s.State())
	}
}

func TestTranscriptionFailureReturnsToIdle(t *testing.T) {
	rec := &fakeRecorder{samples: []float32{0.1}}
	eng := &fakeEngine{err: errors.New("backend down")}
	sink := &fakeSink{}
	s := newTestSession(rec, eng, sink)

	s.ComboEngaged()
	s.ComboReleased()
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want idle", s.State())
	}
	if len(sink.transcripts) != 0 || sink.noSpeech != 0 {
		t.Fatalf("failed transcription must not reach the sink: %+v", sink)
	}
}

func TestOnCaptureObservesSamples(t *testing.T) {
	var observed []float32
	rec := &fakeRecorder{samples: []float32{0.3, 0.4}}
	s := New(
		Config{
			Combo:      []string{"alt"},
			SampleRate: 16000,
			OnCapture:  func(samples []float32) { observed = samples },
		},
		&fakeResolver{}, rec, &fakeEngine{text: "x"}, &fakeSink{}, logger.Nop(),
	)

	s.ComboEngaged()
	s.ComboReleased()
	if len(observed) != 2 {
		t.Fatalf("OnCapture saw %d samples, want 2", len(observed))
	}
}

func TestCloseStopsActiveCapture(t *testing.T) {
	rec := &fakeRecorder{samples: []float32{0.1}}
	s := newTestSession(rec, &fakeEngine{}, &fakeSink{})

	s.ComboEngaged()
	s.Close()
	if rec.Active() {
		t.Fatal("capture still active after Close")
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %v", s.State())
	}
}

func TestRunDrivesSessionFromRawEvents(t *testing.T) {
	rec := &fakeRecorder{samples: []float32{0.1, 0.2}}
	eng := &fakeEngine{text: "hello world test"}
	sink := &fakeSink{}
	s := newTestSession(rec, eng, sink)

	events := make(chan hotkey.Event, 16)
	events <- hotkey.Event{Key: "ctrl_l", Pressed: true}
	events <- hotkey.Event{Key: "cmd_l", Pressed: true}
	events <- hotkey.Event{Key: "cmd_l", Pressed: false}
	events <- hotkey.Event{Key: "ctrl_l", Pressed: false}
	close(events)

	if err := s.Run(context.Background(), events); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.transcripts) != 1 || sink.transcripts[0] != "hello world test" {
		t.Fatalf("transcripts = %v", sink.transcripts)
	}
	if rec.starts != 1 || rec.stops != 1 {
		t.Fatalf("starts=%d stops=%d, want 1/1", rec.starts, rec.stops)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := newTestSession(&fakeRecorder{}, &fakeEngine{}, &fakeSink{})
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan hotkey.Event)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, events) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestRunRejectsEmptyCombo(t *testing.T) {
	s := New(Config{Combo: nil}, &fakeResolver{}, &fakeRecorder{}, &fakeEngine{}, &fakeSink{}, logger.Nop())
	if err := s.Run(context.Background(), make(chan hotkey.Event)); err == nil {
		t.Fatal("expected error for empty combo")
	}
}
