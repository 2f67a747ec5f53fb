// Package transcribe turns captured samples into text through an opaque
// speech-to-text model.
package transcribe

import (
	"context"
	"strings"
	"time"

	"github.com/dannyeldridge/voicehero/pkg/logger"
)

// Segment is one timed span of transcribed text. The model has already
// split segments on detected silence.
type Segment struct {
	Text  string
	Start float64
	End   float64
}

// Model is the opaque speech-to-text backend. Load is one-time and
// heavyweight; Transcribe blocks, potentially for seconds.
type Model interface {
	Load(ctx context.Context) error
	Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) ([]Segment, error)
	Close() error
}

// Result is a finished transcription. An empty Text means no speech was
// detected, which is a valid outcome, not an error.
type Result struct {
	Text    string
	Elapsed time.Duration
}

// Engine normalizes audio, runs the model, and joins its segments.
type Engine struct {
	model    Model
	language string
	log      *logger.Logger
}

// NewEngine wraps a model.
func NewEngine(model Model, language string, log *logger.Logger) *Engine {
	return &Engine{model: model, language: language, log: log}
}

// Load initializes the model. Must succeed before any session runs.
func (e *Engine) Load(ctx context.Context) error {
	return e.model.Load(ctx)
}

// Close releases the model.
func (e *Engine) Close() error {
	return e.model.Close()
}

// Transcribe converts samples to text. Empty input short-circuits to an
// empty result without touching the model.
func (e *Engine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (Result, error) {
	start := time.Now()
	if len(samples) == 0 {
		return Result{Elapsed: time.Since(start)}, nil
	}

	samples = NormalizePeak(samples)

	segments, err := e.model.Transcribe(ctx, samples, sampleRate, e.language)
	if err != nil {
		return Result{}, err
	}
	text := JoinSegments(segments)
	elapsed := time.Since(start)
	e.log.Debug("transcription finished",
		logger.Int("segments", len(segments)),
		logger.Duration("elapsed", elapsed))
	return Result{Text: text, Elapsed: elapsed}, nil
}

// NormalizePeak rescales the buffer by its peak absolute amplitude when that
// peak exceeds 1.0, so every sample fits the model's expected range. Buffers
// already in range are returned unchanged. This is a rescale of the whole
// clip, not a clip of individual samples.
func NormalizePeak(samples []float32) []float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak <= 1.0 {
		return samples
	}
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s / peak
	}
	return out
}

// JoinSegments concatenates segment texts with single spaces and trims the
// result. All-whitespace segments contribute nothing.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
