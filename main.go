package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dannyeldridge/voicehero/internal/app"
	"github.com/dannyeldridge/voicehero/internal/config"
	"github.com/dannyeldridge/voicehero/pkg/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("voicehero", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "voicehero - push-to-talk dictation\n\n")
		fmt.Fprintf(fs.Output(), "Usage:\n  voicehero [flags]           hold the hotkey to dictate\n")
		fmt.Fprintf(fs.Output(), "  voicehero -file audio.mp3   transcribe an audio file\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fv := config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgPath := fv.ConfigPath
	if cfgPath == "" {
		var err error
		if cfgPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	if fv.ResetConfig {
		if err := config.Save(cfgPath, config.DefaultConfig()); err != nil {
			return err
		}
		fmt.Printf("config reset to defaults: %s\n", cfgPath)
		return nil
	}

	cfg, created, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("created default config: %s\n", cfgPath)
	}
	config.ApplyFlags(&cfg, fv)
	if err := config.Validate(&cfg); err != nil {
		return err
	}

	if fv.ShowConfig {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	log, err := newLogger(fv.Debug)
	if err != nil {
		return err
	}
	defer log.Sync()

	if fv.FilePath != "" {
		return app.RunFileMode(cfg, fv.FilePath, fv.OutputPath, log)
	}
	return app.RunRecordMode(cfg, fv.Debug, log)
}

func newLogger(debug bool) (*logger.Logger, error) {
	lc := logger.Config{Level: "info", Format: "console"}
	if debug {
		lc.Level = "debug"
		dir, err := config.RecordingsDir()
		if err != nil {
			return nil, err
		}
		lc.File = filepath.Join(dir, fmt.Sprintf("voicehero-%s.log", time.Now().Format("20060102-150405")))
	}
	return logger.New(lc)
}
