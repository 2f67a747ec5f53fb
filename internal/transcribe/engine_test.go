package transcribe

import (
	"context"
	"errors"
	"testing"

	"github.com/dannyeldridge/voicehero/pkg/logger"
)

type fakeModel struct {
	segments []Segment
	err      error
	calls    int
	got      []float32
}

func (m *fakeModel) Load(ctx context.Context) error { return nil }
func (m *fakeModel) Close() error                   { return nil }

func (m *fakeModel) Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) ([]Segment, error) {
	m.calls++
	m.got = samples
	return m.segments, m.err
}

func TestNormalizePeakRescalesOutOfRange(t *testing.T) {
	in := []float32{2.0, -4.0, 1.0}
	out := NormalizePeak(in)
	want := []float32{0.5, -1.0, 0.25}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("NormalizePeak = %v, want %v", out, want)
		}
	}
	// Input untouched.
	if in[0] != 2.0 {
		t.Fatal("NormalizePeak mutated its input")
	}
}

func TestNormalizePeakLeavesInRangeAlone(t *testing.T) {
	in := []float32{0.5, -1.0, 0.25}
	out := NormalizePeak(in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("in-range buffer changed: %v", out)
		}
	}
}

func TestJoinSegments(t *testing.T) {
	got := JoinSegments([]Segment{
		{Text: " hello "},
		{Text: "world"},
		{Text: "  test"},
	})
	if got != "hello world test" {
		t.Fatalf("JoinSegments = %q, want %q", got, "hello world test")
	}
}

func TestJoinSegmentsSkipsWhitespaceOnly(t *testing.T) {
	if got := JoinSegments([]Segment{{Text: "  "}, {Text: ""}}); got != "" {
		t.Fatalf("JoinSegments = %q, want empty", got)
	}
	if got := JoinSegments(nil); got != "" {
		t.Fatalf("JoinSegments(nil) = %q, want empty", got)
	}
}

func TestEngineEmptyInputSkipsModel(t *testing.T) {
	m := &fakeModel{}
	e := NewEngine(m, "en", logger.Nop())

	res, err := e.Transcribe(context.Background(), nil, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Fatalf("Text = %q, want empty", res.Text)
	}
	if m.calls != 0 {
		t.Fatal("model invoked for empty input")
	}
}

func TestEngineNormalizesBeforeModel(t *testing.T) {
	m := &fakeModel{segments: []Segment{{Text: "hi"}}}
	e := NewEngine(m, "en", logger.Nop())

	res, err := e.Transcribe(context.Background(), []float32{2.0, -2.0}, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hi" {
		t.Fatalf("Text = %q", res.Text)
	}
	if res.Elapsed <= 0 {
		t.Fatal("Elapsed must be positive")
	}
	if m.got[0] != 1.0 || m.got[1] != -1.0 {
		t.Fatalf("model received unnormalized samples: %v", m.got)
	}
}

func TestEngineModelErrorPropagates(t *testing.T) {
	m := &fakeModel{err: errors.New("backend down")}
	e := NewEngine(m, "en", logger.Nop())
	if _, err := e.Transcribe(context.Background(), []float32{0.1}, 16000); err == nil {
		t.Fatal("expected model error")
	}
}
