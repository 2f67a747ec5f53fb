package sink

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dannyeldridge/voicehero/internal/config"
	"github.com/dannyeldridge/voicehero/pkg/logger"
)

type fakeDesktop struct {
	clipboard     string
	writes        []string
	pastes        int
	notifications []string
}

func newFakeSink(t *testing.T, opts Options) (*Sink, *fakeDesktop) {
	t.Helper()
	d := &fakeDesktop{clipboard: "original contents"}
	s := New(opts, logger.Nop())
	s.readClipboard = func() (string, error) { return d.clipboard, nil }
	s.writeClipboard = func(text string) error {
		d.clipboard = text
		d.writes = append(d.writes, text)
		return nil
	}
	s.pasteKeystroke = func() error { d.pastes++; return nil }
	s.notify = func(title, message string) { d.notifications = append(d.notifications, message) }
	return s, d
}

func TestTranscriptCopiesToClipboard(t *testing.T) {
	s, d := newFakeSink(t, Options{})
	s.Transcript("hello world", 500*time.Millisecond)

	if d.clipboard != "hello world" {
		t.Fatalf("clipboard = %q, want transcript", d.clipboard)
	}
	if d.pastes != 0 {
		t.Fatal("paste sent with auto-paste off")
	}
}

func TestTranscriptAutoPasteRestoresClipboard(t *testing.T) {
	s, d := newFakeSink(t, Options{AutoPaste: true})
	s.Transcript("hello world", 500*time.Millisecond)

	if d.pastes != 1 {
		t.Fatalf("pastes = %d, want 1", d.pastes)
	}
	// Transcript was written, then the original restored.
	if len(d.writes) != 2 || d.writes[0] != "hello world" {
		t.Fatalf("writes = %v", d.writes)
	}
	if d.clipboard != "original contents" {
		t.Fatalf("clipboard = %q, want original restored", d.clipboard)
	}
}

func TestTranscriptUpdatesStats(t *testing.T) {
	statsPath := filepath.Join(t.TempDir(), "stats.json")
	s, _ := newFakeSink(t, Options{StatsPath: statsPath})

	s.Transcript("one two three", time.Second)
	s.Transcript("four five", time.Second)

	if got := s.Stats(); got.TotalWords != 5 || got.TotalTranscriptions != 2 {
		t.Fatalf("stats = %+v", got)
	}
	// Persisted across a reload.
	if persisted := config.LoadStats(statsPath); persisted != s.Stats() {
		t.Fatalf("persisted = %+v, memory = %+v", persisted, s.Stats())
	}
}

func TestNotificationsGated(t *testing.T) {
	s, d := newFakeSink(t, Options{Notify: true})
	s.Transcript("hi", time.Second)
	s.NoAudio()
	s.NoSpeech(time.Second)
	if len(d.notifications) != 3 {
		t.Fatalf("notifications = %v", d.notifications)
	}

	s2, d2 := newFakeSink(t, Options{})
	s2.Transcript("hi", time.Second)
	s2.NoAudio()
	if len(d2.notifications) != 0 {
		t.Fatalf("notifications sent while disabled: %v", d2.notifications)
	}
}

func TestNoAudioDoesNotTouchStats(t *testing.T) {
	statsPath := filepath.Join(t.TempDir(), "stats.json")
	s, _ := newFakeSink(t, Options{StatsPath: statsPath})
	s.NoAudio()
	s.NoSpeech(time.Second)
	if got := s.Stats(); got.TotalWords != 0 || got.TotalTranscriptions != 0 {
		t.Fatalf("stats = %+v, want zeros", got)
	}
}
