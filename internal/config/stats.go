package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Stats tracks cumulative dictation totals across process runs.
type Stats struct {
	TotalWords          int `json:"total_words"`
	TotalTranscriptions int `json:"total_transcriptions"`
}

// StatsPath returns the default stats file path.
func StatsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stats.json"), nil
}

// LoadStats reads stats from path. A missing or unreadable file yields zero
// stats; stats are best-effort and never block a session.
func LoadStats(path string) Stats {
	var s Stats
	b, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return Stats{}
	}
	return s
}

// SaveStats writes stats JSON to path.
func SaveStats(path string, s Stats) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}

// CountWords returns the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// MinutesSaved estimates the typing time avoided for a word count, assuming
// a 40 words-per-minute typing speed.
func MinutesSaved(words int) float64 {
	return float64(words) / 40.0
}
