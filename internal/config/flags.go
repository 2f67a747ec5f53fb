package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// FlagValues holds parsed flags with explicit set tracking, so that only
// flags the user actually passed override the config file.
type FlagValues struct {
	Hotkey            string
	HotkeySet         bool
	Model             string
	ModelSet          bool
	AutoPaste         bool
	AutoPasteSet      bool
	Language          string
	LanguageSet       bool
	APIEndpoint       string
	APIEndpointSet    bool
	Token             string
	TokenSet          bool
	ExtraConfig       string
	ExtraConfigSet    bool
	TextPath          string
	TextPathSet       bool
	SampleRate        int
	SampleRateSet     bool
	Channels          int
	ChannelsSet       bool
	RequestTimeout    int
	RequestTimeoutSet bool
	MaxRetry          int
	MaxRetrySet       bool
	RetryBaseDelay    float64
	RetryBaseDelaySet bool
	EnableHTTP2       bool
	EnableHTTP2Set    bool
	VerifySSL         bool
	VerifySSLSet      bool
	Notification      bool
	NotificationSet   bool
	SaveRecordings    bool
	SaveRecordingsSet bool

	// Mode selection, not part of the config file.
	ConfigPath  string
	FilePath    string
	OutputPath  string
	ShowConfig  bool
	ResetConfig bool
	Debug       bool
}

type stringFlag struct {
	target *string
	set    *bool
}

func (s *stringFlag) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return *s.target
}

func (s *stringFlag) Set(v string) error {
	if s.target != nil {
		*s.target = v
	}
	if s.set != nil {
		*s.set = true
	}
	return nil
}

type intFlag struct {
	target *int
	set    *bool
}

func (i *intFlag) String() string {
	if i == nil || i.target == nil {
		return ""
	}
	return fmt.Sprintf("%d", *i.target)
}

func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if i.target != nil {
		*i.target = n
	}
	if i.set != nil {
		*i.set = true
	}
	return nil
}

type floatFlag struct {
	target *float64
	set    *bool
}

func (f *floatFlag) String() string {
	if f == nil || f.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *f.target)
}

func (f *floatFlag) Set(v string) error {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	if f.target != nil {
		*f.target = n
	}
	if f.set != nil {
		*f.set = true
	}
	return nil
}

type boolFlag struct {
	target *bool
	set    *bool
}

func (b *boolFlag) String() string {
	if b == nil || b.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *b.target)
}

func parseBoolExt(v string) (bool, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

func (b *boolFlag) Set(v string) error {
	n, err := parseBoolExt(v)
	if err != nil {
		return err
	}
	if b.target != nil {
		*b.target = n
	}
	if b.set != nil {
		*b.set = true
	}
	return nil
}

// BindFlags registers all flags and returns the populated FlagValues.
func BindFlags(fs *flag.FlagSet) *FlagValues {
	fv := &FlagValues{}

	fs.Var(&stringFlag{&fv.Hotkey, &fv.HotkeySet}, "hotkey", "push-to-talk key combo, comma separated (e.g. ctrl,cmd)")
	fs.Var(&stringFlag{&fv.Model, &fv.ModelSet}, "model", "model size (tiny, base, small, medium, large, large-v2, large-v3)")
	fs.Var(&boolFlag{&fv.AutoPaste, &fv.AutoPasteSet}, "auto-paste", "paste the transcript into the focused app (true/false)")
	fs.Var(&stringFlag{&fv.Language, &fv.LanguageSet}, "language", "language hint passed to the model")
	fs.Var(&stringFlag{&fv.APIEndpoint, &fv.APIEndpointSet}, "api-endpoint", "transcription API endpoint URL")
	fs.Var(&stringFlag{&fv.Token, &fv.TokenSet}, "token", "authorization token")
	fs.Var(&stringFlag{&fv.ExtraConfig, &fv.ExtraConfigSet}, "extra-config", "extra JSON fields to merge into the transcription request")
	fs.Var(&stringFlag{&fv.TextPath, &fv.TextPathSet}, "text-path", "JSON path to extract text from non-verbose responses")
	fs.Var(&intFlag{&fv.SampleRate, &fv.SampleRateSet}, "sample-rate", "capture sample rate (Hz)")
	fs.Var(&intFlag{&fv.Channels, &fv.ChannelsSet}, "channels", "capture channels (int)")
	fs.Var(&intFlag{&fv.RequestTimeout, &fv.RequestTimeoutSet}, "request-timeout", "request timeout seconds")
	fs.Var(&intFlag{&fv.MaxRetry, &fv.MaxRetrySet}, "max-retry", "max retry attempts")
	fs.Var(&floatFlag{&fv.RetryBaseDelay, &fv.RetryBaseDelaySet}, "retry-base-delay", "retry base delay seconds (float)")
	fs.Var(&boolFlag{&fv.EnableHTTP2, &fv.EnableHTTP2Set}, "enable-http2", "enable HTTP/2 (true/false)")
	fs.Var(&boolFlag{&fv.VerifySSL, &fv.VerifySSLSet}, "verify-ssl", "verify TLS certificates (true/false)")
	fs.Var(&boolFlag{&fv.Notification, &fv.NotificationSet}, "notification", "enable desktop notifications (true/false)")
	fs.Var(&boolFlag{&fv.SaveRecordings, &fv.SaveRecordingsSet}, "save-recordings", "keep a WAV copy of each capture (true/false)")

	fs.StringVar(&fv.ConfigPath, "config", "", "config file path (default ~/.voicehero/config.json)")
	fs.StringVar(&fv.FilePath, "file", "", "transcribe an audio file instead of recording")
	fs.StringVar(&fv.OutputPath, "output", "", "output txt path for -file mode")
	fs.BoolVar(&fv.ShowConfig, "show-config", false, "print the active configuration and exit")
	fs.BoolVar(&fv.ResetConfig, "reset-config", false, "rewrite the config file with defaults and exit")
	fs.BoolVar(&fv.Debug, "debug", false, "verbose logging plus a session log file")

	return fv
}

// ApplyFlags applies present flags to the config.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	if fv.HotkeySet {
		var keys []string
		for _, k := range strings.Split(fv.Hotkey, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		cfg.Hotkey = keys
	}
	if fv.ModelSet {
		cfg.Model = fv.Model
	}
	if fv.AutoPasteSet {
		cfg.AutoPaste = fv.AutoPaste
	}
	if fv.LanguageSet {
		cfg.Language = fv.Language
	}
	if fv.APIEndpointSet {
		cfg.APIEndpoint = fv.APIEndpoint
	}
	if fv.TokenSet {
		cfg.Token = fv.Token
	}
	if fv.ExtraConfigSet {
		cfg.ExtraConfig = fv.ExtraConfig
	}
	if fv.TextPathSet {
		cfg.TextPath = fv.TextPath
	}
	if fv.SampleRateSet {
		cfg.SampleRate = fv.SampleRate
	}
	if fv.ChannelsSet {
		cfg.Channels = fv.Channels
	}
	if fv.RequestTimeoutSet {
		cfg.RequestTimeout = fv.RequestTimeout
	}
	if fv.MaxRetrySet {
		cfg.MaxRetry = fv.MaxRetry
	}
	if fv.RetryBaseDelaySet {
		cfg.RetryBaseDelay = fv.RetryBaseDelay
	}
	if fv.EnableHTTP2Set {
		cfg.EnableHTTP2 = fv.EnableHTTP2
	}
	if fv.VerifySSLSet {
		cfg.VerifySSL = fv.VerifySSL
	}
	if fv.NotificationSet {
		cfg.Notification = fv.Notification
	}
	if fv.SaveRecordingsSet {
		cfg.SaveRecordings = fv.SaveRecordings
	}
}
