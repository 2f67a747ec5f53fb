// Package media converts arbitrary audio files into the 16 kHz mono WAV the
// transcription path expects, via ffmpeg.
package media

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// supportedExts are the input formats file mode accepts. ffmpeg handles far
// more; this list is the sanity check before shelling out.
var supportedExts = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".mp4": true, ".flac": true,
	".ogg": true, ".oga": true, ".opus": true, ".aac": true, ".webm": true,
	".wma": true, ".aiff": true, ".aif": true,
}

// Supported reports whether the file extension is an accepted input format.
func Supported(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

// ToWAV converts inPath to a 16-bit PCM WAV at the given sample rate, mono,
// writing outPath. Requires ffmpeg on PATH.
func ToWAV(inPath, outPath string, sampleRate int) error {
	if !Supported(inPath) {
		return fmt.Errorf("unsupported audio format: %s", filepath.Ext(inPath))
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}

	args := []string{
		"-y", "-i", inPath,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		outPath,
	}
	cmd := exec.Command("ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %v\n%s", err, stderr.String())
	}
	return nil
}
