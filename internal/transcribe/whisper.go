package transcribe

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/dannyeldridge/voicehero/internal/audio"
	"github.com/dannyeldridge/voicehero/internal/jsonpath"
	"github.com/dannyeldridge/voicehero/pkg/logger"
)

// ErrModelLoad means the transcription backend could not be reached or
// initialized. Fatal to the process.
var ErrModelLoad = errors.New("transcription model unavailable")

// RetryExhaustedError reports that every upload attempt failed.
type RetryExhaustedError struct {
	Attempts     int
	LastResponse []byte
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("exceeded max retries (%d): %s", e.Attempts, formatResponse(e.LastResponse))
}

// WhisperOptions configure the whisper-server backend.
type WhisperOptions struct {
	Endpoint       string
	Token          string
	Model          string
	TextPath       string
	ExtraConfig    string
	MaxRetry       int
	RetryBaseDelay float64
}

// WhisperClient talks to an OpenAI-compatible transcription endpoint. It
// uploads WAV clips as multipart form data and asks for verbose JSON so
// segment timing survives; servers that only return plain {"text": ...}
// are handled through the jsonpath fallback.
type WhisperClient struct {
	opts       WhisperOptions
	httpClient *http.Client
	log        *logger.Logger
	extra      map[string]interface{}
}

// NewWhisperClient builds a client and parses ExtraConfig.
func NewWhisperClient(opts WhisperOptions, httpClient *http.Client, log *logger.Logger) (*WhisperClient, error) {
	c := &WhisperClient{opts: opts, httpClient: httpClient, log: log}
	if opts.ExtraConfig != "" {
		c.extra = make(map[string]interface{})
		if err := json.Unmarshal([]byte(opts.ExtraConfig), &c.extra); err != nil {
			return nil, fmt.Errorf("invalid extra-config JSON: %w", err)
		}
	}
	return c, nil
}

// Load checks that the endpoint answers at all. The server owns the actual
// model weights; an unreachable server is equivalent to a failed model load.
func (c *WhisperClient) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.opts.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrModelLoad, c.opts.Endpoint, err)
	}
	resp.Body.Close()
	// Any HTTP answer proves the server is up; most reject HEAD with 405.
	return nil
}

// Close releases idle connections.
func (c *WhisperClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Transcribe encodes samples as WAV and uploads them.
func (c *WhisperClient) Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) ([]Segment, error) {
	tmp, err := os.CreateTemp("", "voicehero_*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := audio.WriteWAV(path, samples, sampleRate); err != nil {
		return nil, err
	}
	segments, _, err := c.upload(ctx, path, language)
	return segments, err
}

func (c *WhisperClient) upload(ctx context.Context, path, language string) ([]Segment, float64, error) {
	delay := c.opts.RetryBaseDelay
	var lastResp []byte

	for try := 1; ; try++ {
		body, err := c.doUpload(ctx, path, language)
		if err == nil {
			return c.parseResponse(body)
		}
		lastResp = body
		c.log.Debug("upload attempt failed",
			logger.Int("attempt", try),
			logger.String("response", formatResponse(body)),
			logger.Error(err))

		if try >= c.opts.MaxRetry {
			return nil, 0, &RetryExhaustedError{Attempts: try, LastResponse: lastResp}
		}
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(time.Duration(delay * float64(time.Second))):
		}
		delay *= 2
	}
}

func (c *WhisperClient) doUpload(ctx context.Context, path, language string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio file: %w", err)
	}

	fields := map[string]interface{}{
		"response_format": "verbose_json",
	}
	if c.opts.Model != "" {
		fields["model"] = c.opts.Model
	}
	if language != "" {
		fields["language"] = language
	}
	for k, v := range c.extra {
		fields[k] = v
	}
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			_ = writer.WriteField(k, val)
		case bool, float64, int:
			_ = writer.WriteField(k, fmt.Sprintf("%v", val))
		default:
			if b, err := json.Marshal(val); err == nil {
				_ = writer.WriteField(k, string(b))
			} else {
				_ = writer.WriteField(k, fmt.Sprintf("%v", val))
			}
		}
	}
	_ = writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	req.Header.Set("User-Agent", "voicehero/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	c.log.Debug("upload request done",
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return respBody, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return respBody, nil
}

type verboseResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

func (c *WhisperClient) parseResponse(body []byte) ([]Segment, float64, error) {
	var vr verboseResponse
	if err := json.Unmarshal(body, &vr); err == nil && len(vr.Segments) > 0 {
		segments := make([]Segment, 0, len(vr.Segments))
		for _, s := range vr.Segments {
			segments = append(segments, Segment{Text: s.Text, Start: s.Start, End: s.End})
		}
		return segments, vr.Duration, nil
	}

	// Non-verbose servers answer with a bare text field.
	text := jsonpath.Extract(body, c.opts.TextPath)
	if text == "" {
		return nil, 0, nil
	}
	return []Segment{{Text: text}}, 0, nil
}

func formatResponse(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		s := string(b)
		if len(s) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", s[:maxText], len(b))
		}
		return s
	}

	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}
