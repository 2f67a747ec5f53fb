// Package sink delivers finished transcripts: clipboard, optional paste
// into the focused app, cumulative stats, and notifications.
package sink

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gen2brain/beeep"

	"github.com/dannyeldridge/voicehero/internal/config"
	"github.com/dannyeldridge/voicehero/pkg/logger"
)

// Options configure delivery.
type Options struct {
	AutoPaste bool
	Notify    bool
	StatsPath string
}

// Sink implements the session result surface. Stats are loaded once at
// construction and written back after every non-empty transcript,
// best-effort: a failed stats write never fails a session.
type Sink struct {
	opts  Options
	log   *logger.Logger
	stats config.Stats

	// Injected for tests.
	readClipboard  func() (string, error)
	writeClipboard func(string) error
	pasteKeystroke func() error
	notify         func(title, message string)
}

// New builds a sink and loads cumulative stats from opts.StatsPath.
func New(opts Options, log *logger.Logger) *Sink {
	s := &Sink{
		opts:           opts,
		log:            log,
		readClipboard:  clipboard.ReadAll,
		writeClipboard: clipboard.WriteAll,
		pasteKeystroke: sendPasteKeystroke,
		notify: func(title, message string) {
			_ = beeep.Notify(title, message, "")
		},
	}
	if opts.StatsPath != "" {
		s.stats = config.LoadStats(opts.StatsPath)
	}
	return s
}

// Stats returns the current cumulative stats.
func (s *Sink) Stats() config.Stats { return s.stats }

// Transcript delivers text. With auto-paste on, the original clipboard is
// restored after the paste; otherwise the transcript stays on the clipboard.
func (s *Sink) Transcript(text string, elapsed time.Duration) {
	if s.opts.AutoPaste {
		s.pasteWithRestore(text)
	} else if err := s.writeClipboard(text); err != nil {
		s.log.Warn("clipboard write failed", logger.Error(err))
	}

	words := config.CountWords(text)
	s.stats.TotalWords += words
	s.stats.TotalTranscriptions++
	if s.opts.StatsPath != "" {
		if err := config.SaveStats(s.opts.StatsPath, s.stats); err != nil {
			s.log.Warn("stats save failed", logger.Error(err))
		}
	}

	fmt.Printf("\n> %s\n", text)
	fmt.Printf("  %d words in %.1fs | lifetime: %d words, ~%.0f min of typing saved\n",
		words, elapsed.Seconds(), s.stats.TotalWords, config.MinutesSaved(s.stats.TotalWords))

	if s.opts.Notify {
		s.notify("VoiceHero", text)
	}
}

// NoAudio reports a session that captured nothing.
func (s *Sink) NoAudio() {
	fmt.Println("\n> (no audio captured)")
	if s.opts.Notify {
		s.notify("VoiceHero", "No audio captured")
	}
}

// NoSpeech reports a capture the model found silent.
func (s *Sink) NoSpeech(elapsed time.Duration) {
	fmt.Printf("\n> (no speech detected, %.1fs)\n", elapsed.Seconds())
	if s.opts.Notify {
		s.notify("VoiceHero", "No speech detected")
	}
}

func (s *Sink) pasteWithRestore(text string) {
	orig, readErr := s.readClipboard()
	if err := s.writeClipboard(text); err != nil {
		s.log.Warn("clipboard write failed", logger.Error(err))
		return
	}
	time.Sleep(80 * time.Millisecond)
	if err := s.pasteKeystroke(); err != nil {
		s.log.Warn("paste keystroke failed, transcript left on clipboard", logger.Error(err))
		return
	}
	time.Sleep(120 * time.Millisecond)
	if readErr == nil {
		if err := s.writeClipboard(orig); err != nil {
			s.log.Warn("clipboard restore failed", logger.Error(err))
		}
	}
}
