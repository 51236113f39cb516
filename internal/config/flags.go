package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// FlagValues holds parsed flags with explicit set tracking.
type FlagValues struct {
	APIEndpoint       string
	APIEndpointSet    bool
	Token             string
	TokenSet          bool
	Model             string
	ModelSet          bool
	Language          string
	LanguageSet       bool
	Prompt            string
	PromptSet         bool
	TextPath          string
	TextPathSet       bool
	Temperature       float64
	TemperatureSet    bool
	ResponseFormat    string
	ResponseFormatSet bool

	Channels      int
	ChannelsSet   bool
	SampleRate    int
	SampleRateSet bool
	BlockSize     int
	BlockSizeSet  bool
	QueueSize     int
	QueueSizeSet  bool

	MinDuration       float64
	MinDurationSet    bool
	RequestTimeout    int
	RequestTimeoutSet bool
	MaxRetry          int
	MaxRetrySet       bool
	EnableHTTP2       bool
	EnableHTTP2Set    bool
	VerifySSL         bool
	VerifySSLSet      bool

	Hotkeys       string
	HotkeysSet    bool
	CancelKeys    string
	CancelKeysSet bool

	AddTimestamp     bool
	AddTimestampSet  bool
	Notification     bool
	NotificationSet  bool
	DebugAudioDir    string
	DebugAudioDirSet bool
	RuntimePath      string
	RuntimePathSet   bool

	DashboardEnabled    bool
	DashboardEnabledSet bool
	DashboardAddress    string
	DashboardAddressSet bool
	LogLevel            string
	LogLevelSet         bool
	LogFormat           string
	LogFormatSet        bool

	OutputPath    string
	OutputPathSet bool
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

	fs.Var(&stringFlag{&fv.APIEndpoint, &fv.APIEndpointSet}, "api-endpoint", "API endpoint URL")
	fs.Var(&stringFlag{&fv.Token, &fv.TokenSet}, "token", "Authorization token")
	fs.Var(&stringFlag{&fv.Model, &fv.ModelSet}, "model", "model")
	fs.Var(&stringFlag{&fv.Language, &fv.LanguageSet}, "language", "language")
	fs.Var(&stringFlag{&fv.Prompt, &fv.PromptSet}, "prompt", "prompt")
	fs.Var(&stringFlag{&fv.TextPath, &fv.TextPathSet}, "text-path", "JSON path to extract text")
	fs.Var(&floatFlag{&fv.Temperature, &fv.TemperatureSet}, "temperature", "sampling temperature (0.0..1.0)")
	fs.Var(&stringFlag{&fv.ResponseFormat, &fv.ResponseFormatSet}, "response-format", "response format (text or json)")

	fs.Var(&intFlag{&fv.Channels, &fv.ChannelsSet}, "channels", "channels (int)")
	fs.Var(&intFlag{&fv.SampleRate, &fv.SampleRateSet}, "sample-rate", "sample rate (Hz)")
	fs.Var(&intFlag{&fv.BlockSize, &fv.BlockSizeSet}, "block-size", "capture block size (frames)")
	fs.Var(&intFlag{&fv.QueueSize, &fv.QueueSizeSet}, "queue-size", "capture queue size (blocks)")

	fs.Var(&floatFlag{&fv.MinDuration, &fv.MinDurationSet}, "min-duration", "minimum recording duration seconds (float)")
	fs.Var(&intFlag{&fv.RequestTimeout, &fv.RequestTimeoutSet}, "request-timeout", "request timeout seconds")
	fs.Var(&intFlag{&fv.MaxRetry, &fv.MaxRetrySet}, "max-retry", "max retry attempts")
	fs.Var(&boolFlag{&fv.EnableHTTP2, &fv.EnableHTTP2Set}, "enable-http2", "enable HTTP/2 (true/false)")
	fs.Var(&boolFlag{&fv.VerifySSL, &fv.VerifySSLSet}, "verify-ssl", "verify TLS certificates (true/false)")

	fs.Var(&stringFlag{&fv.Hotkeys, &fv.HotkeysSet}, "hotkeys", "hold-to-record combination, e.g. ctrl+alt")
	fs.Var(&stringFlag{&fv.CancelKeys, &fv.CancelKeysSet}, "cancel-keys", "cancel keys, e.g. esc")

	fs.Var(&boolFlag{&fv.AddTimestamp, &fv.AddTimestampSet}, "add-timestamp", "prefix pasted text with a timestamp (true/false)")
	fs.Var(&boolFlag{&fv.Notification, &fv.NotificationSet}, "notification", "enable notifications (true/false)")
	fs.Var(&stringFlag{&fv.DebugAudioDir, &fv.DebugAudioDirSet}, "debug-audio-dir", "directory to dump request audio for debugging")
	fs.Var(&stringFlag{&fv.RuntimePath, &fv.RuntimePathSet}, "runtime-config", "path to live runtime settings file")

	fs.Var(&boolFlag{&fv.DashboardEnabled, &fv.DashboardEnabledSet}, "dashboard", "enable settings dashboard server (true/false)")
	fs.Var(&stringFlag{&fv.DashboardAddress, &fv.DashboardAddressSet}, "dashboard-address", "dashboard listen address")
	fs.Var(&stringFlag{&fv.LogLevel, &fv.LogLevelSet}, "log-level", "log level (debug, info, warn, error)")
	fs.Var(&stringFlag{&fv.LogFormat, &fv.LogFormatSet}, "log-format", "log format (text or json)")

	fs.Var(&stringFlag{&fv.OutputPath, &fv.OutputPathSet}, "output", "output txt path for -file mode")

	return fv
}

// ApplyFlags applies present flags to the config.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	if fv.APIEndpointSet {
		cfg.APIEndpoint = fv.APIEndpoint
	}
	if fv.TokenSet {
		cfg.Token = fv.Token
	}
	if fv.ModelSet {
		cfg.Model = fv.Model
	}
	if fv.LanguageSet {
		cfg.Language = fv.Language
	}
	if fv.PromptSet {
		cfg.Prompt = fv.Prompt
	}
	if fv.TextPathSet {
		cfg.TextPath = fv.TextPath
	}
	if fv.TemperatureSet {
		cfg.Temperature = fv.Temperature
	}
	if fv.ResponseFormatSet {
		cfg.ResponseFormat = fv.ResponseFormat
	}

	if fv.ChannelsSet {
		cfg.Channels = fv.Channels
	}
	if fv.SampleRateSet {
		cfg.SampleRate = fv.SampleRate
	}
	if fv.BlockSizeSet {
		cfg.BlockSize = fv.BlockSize
	}
	if fv.QueueSizeSet {
		cfg.QueueSize = fv.QueueSize
	}

	if fv.MinDurationSet {
		cfg.MinDuration = fv.MinDuration
	}
	if fv.RequestTimeoutSet {
		cfg.RequestTimeout = fv.RequestTimeout
	}
	if fv.MaxRetrySet {
		cfg.MaxRetry = fv.MaxRetry
	}
	if fv.EnableHTTP2Set {
		cfg.EnableHTTP2 = fv.EnableHTTP2
	}
	if fv.VerifySSLSet {
		cfg.VerifySSL = fv.VerifySSL
	}

	if fv.HotkeysSet {
		cfg.Hotkeys = []Hotkey{{
			Name:    "cli",
			Keys:    splitKeys(fv.Hotkeys),
			Enabled: true,
		}}
	}
	if fv.CancelKeysSet {
		cfg.CancelKeys = splitKeys(fv.CancelKeys)
	}

	if fv.AddTimestampSet {
		cfg.AddTimestamp = fv.AddTimestamp
	}
	if fv.NotificationSet {
		cfg.Notification = fv.Notification
	}
	if fv.DebugAudioDirSet {
		cfg.DebugAudioDir = fv.DebugAudioDir
	}
	if fv.RuntimePathSet {
		cfg.RuntimeConfigPath = fv.RuntimePath
	}

	if fv.DashboardEnabledSet {
		cfg.Dashboard.Enabled = fv.DashboardEnabled
	}
	if fv.DashboardAddressSet {
		cfg.Dashboard.Address = fv.DashboardAddress
	}
	if fv.LogLevelSet {
		cfg.Logging.Level = fv.LogLevel
	}
	if fv.LogFormatSet {
		cfg.Logging.Format = fv.LogFormat
	}
}

func splitKeys(s string) []string {
	parts := strings.Split(s, "+")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// AnySet reports whether any flag was explicitly set by the user.
func (fv *FlagValues) AnySet() bool {
	return fv.APIEndpointSet ||
		fv.TokenSet ||
		fv.ModelSet ||
		fv.LanguageSet ||
		fv.PromptSet ||
		fv.TextPathSet ||
		fv.TemperatureSet ||
		fv.ResponseFormatSet ||
		fv.ChannelsSet ||
		fv.SampleRateSet ||
		fv.BlockSizeSet ||
		fv.QueueSizeSet ||
		fv.MinDurationSet ||
		fv.RequestTimeoutSet ||
		fv.MaxRetrySet ||
		fv.EnableHTTP2Set ||
		fv.VerifySSLSet ||
		fv.HotkeysSet ||
		fv.CancelKeysSet ||
		fv.AddTimestampSet ||
		fv.NotificationSet ||
		fv.DebugAudioDirSet ||
		fv.RuntimePathSet ||
		fv.DashboardEnabledSet ||
		fv.DashboardAddressSet ||
		fv.LogLevelSet ||
		fv.LogFormatSet ||
		fv.OutputPathSet
}
