// Package app wires the components into the binary's run modes.
package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/http2"

	"github.com/atotto/clipboard"

	"github.com/dannyeldridge/voicehero/internal/audio"
	"github.com/dannyeldridge/voicehero/internal/config"
	"github.com/dannyeldridge/voicehero/internal/device"
	"github.com/dannyeldridge/voicehero/internal/hotkey"
	"github.com/dannyeldridge/voicehero/internal/media"
	"github.com/dannyeldridge/voicehero/internal/session"
	"github.com/dannyeldridge/voicehero/internal/sink"
	"github.com/dannyeldridge/voicehero/internal/transcribe"
	"github.com/dannyeldridge/voicehero/pkg/logger"
)

// RunRecordMode runs the push-to-talk loop until SIGINT/SIGTERM.
func RunRecordMode(cfg config.Config, debug bool, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, err := audio.NewHost()
	if err != nil {
		return err
	}
	defer host.Close()

	model, err := transcribe.NewWhisperClient(whisperOptions(cfg), newHTTPClient(cfg), log.Named("whisper"))
	if err != nil {
		return err
	}
	engine := transcribe.NewEngine(model, cfg.Language, log.Named("engine"))
	log.Info("loading model", logger.String("model", cfg.Model))
	if err := engine.Load(ctx); err != nil {
		return err
	}
	defer engine.Close()

	if dev, derr := host.DefaultInputDevice(); derr == nil && device.IsBluetooth(dev.Name) {
		log.Info("bluetooth microphone detected; the first recording switches its audio profile",
			logger.String("device", dev.Name))
	}

	statsPath, err := config.StatsPath()
	if err != nil {
		return err
	}
	resultSink := sink.New(sink.Options{
		AutoPaste: cfg.AutoPaste,
		Notify:    cfg.Notification,
		StatsPath: statsPath,
	}, log.Named("sink"))

	onCapture, err := captureObserver(cfg, debug, log)
	if err != nil {
		return err
	}

	sess := session.New(
		session.Config{
			Combo:      cfg.Hotkey,
			SampleRate: cfg.SampleRate,
			OnCapture:  onCapture,
		},
		device.NewResolver(host, cfg.SampleRate, log.Named("device")),
		audio.NewCapture(host, cfg.SampleRate, cfg.Channels, log.Named("capture")),
		engine,
		resultSink,
		log.Named("session"),
	)

	listener := hotkey.NewListener()
	if err := listener.Start(); err != nil {
		return err
	}

	fmt.Printf("Hold %s to dictate. Ctrl+C to quit.\n", strings.Join(hotkey.NormalizeCombo(cfg.Hotkey), "+"))
	runErr := sess.Run(ctx, listener.Events())

	// Shutdown order: active capture first so the device handle is
	// released, then the key listener, then the model (deferred).
	sess.Close()
	listener.Stop()

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// RunFileMode transcribes an existing audio file. The file is decoded to
// samples and fed through the same engine path a live capture takes, so
// amplitude normalization applies there too. The transcript is printed,
// copied to the clipboard, and written to outputPath when one is given.
func RunFileMode(cfg config.Config, inputPath, outputPath string, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	model, err := transcribe.NewWhisperClient(whisperOptions(cfg), newHTTPClient(cfg), log.Named("whisper"))
	if err != nil {
		return err
	}
	engine := transcribe.NewEngine(model, cfg.Language, log.Named("engine"))
	if err := engine.Load(ctx); err != nil {
		return err
	}
	defer engine.Close()

	wavPath := inputPath
	if strings.ToLower(filepath.Ext(inputPath)) != ".wav" {
		tmp, err := os.CreateTemp("", "voicehero_convert_*.wav")
		if err != nil {
			return err
		}
		wavPath = tmp.Name()
		tmp.Close()
		defer os.Remove(wavPath)

		log.Info("converting", logger.String("input", inputPath))
		if err := media.ToWAV(inputPath, wavPath, cfg.SampleRate); err != nil {
			return err
		}
	}

	samples, rate, err := audio.ReadWAV(wavPath)
	if err != nil {
		return err
	}
	fmt.Printf("transcribing %.1fs of audio...\n", audio.Duration(len(samples), rate).Seconds())

	start := time.Now()
	res, err := engine.Transcribe(ctx, samples, rate)
	if err != nil {
		return err
	}
	if res.Text == "" {
		fmt.Println("(no speech detected)")
		return nil
	}

	fmt.Printf("%s\n", res.Text)
	fmt.Printf("(%d words in %.1fs)\n", config.CountWords(res.Text), time.Since(start).Seconds())
	if err := clipboard.WriteAll(res.Text); err != nil {
		log.Warn("clipboard write failed", logger.Error(err))
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(res.Text+"\n"), 0644); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
		fmt.Printf("saved to %s\n", outputPath)
	}
	return nil
}

// captureObserver builds the per-capture hook for saved recordings and debug
// reporting. Returns nil when neither is enabled.
func captureObserver(cfg config.Config, debug bool, log *logger.Logger) (func([]float32), error) {
	if !cfg.SaveRecordings && !debug {
		return nil, nil
	}
	var recDir string
	if cfg.SaveRecordings {
		var err error
		if recDir, err = config.RecordingsDir(); err != nil {
			return nil, err
		}
	}
	clog := log.Named("capture")
	return func(samples []float32) {
		if debug {
			clog.Debug("capture stats",
				logger.Int("samples", len(samples)),
				logger.Duration("clip", audio.Duration(len(samples), cfg.SampleRate)),
				logger.Float64("rms", rms(samples)))
		}
		if recDir != "" {
			path, err := audio.SaveRecording(recDir, samples, cfg.SampleRate)
			if err != nil {
				clog.Warn("could not save recording", logger.Error(err))
				return
			}
			clog.Debug("recording saved", logger.String("path", filepath.Base(path)))
		}
	}, nil
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func whisperOptions(cfg config.Config) transcribe.WhisperOptions {
	return transcribe.WhisperOptions{
		Endpoint:       cfg.APIEndpoint,
		Token:          cfg.Token,
		Model:          cfg.Model,
		TextPath:       cfg.TextPath,
		ExtraConfig:    cfg.ExtraConfig,
		MaxRetry:       cfg.MaxRetry,
		RetryBaseDelay: cfg.RetryBaseDelay,
	}
}

func newHTTPClient(cfg config.Config) *http.Client {
	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !cfg.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
	}
}
