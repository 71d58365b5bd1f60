package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Speech      SpeechConfig      `yaml:"speech"`
	Server      ServerConfig      `yaml:"server"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Pushover    PushoverConfig    `yaml:"pushover"`
	Log         LogConfig         `yaml:"log"`
}

type RecognitionConfig struct {
	Source     string `yaml:"source"`
	Language   string `yaml:"language"`
	FileDir    string `yaml:"file_dir"`
	LineDelay  string `yaml:"line_delay"`
	SampleRate int    `yaml:"sample_rate"`
	AuthToken  string `yaml:"auth_token"`
	// RateLimit is requests per minute per client on the relay; 0 disables it.
	RateLimit int  `yaml:"rate_limit"`
	AutoStart bool `yaml:"auto_start"`
}

type SpeechConfig struct {
	Engine string   `yaml:"engine"`
	Voice  string   `yaml:"voice"`
	Rate   *float64 `yaml:"rate"`
	Pitch  *float64 `yaml:"pitch"`
	Volume *float64 `yaml:"volume"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references in data, applies defaults and validates
// the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default is the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Recognition.Source == "" {
		c.Recognition.Source = "http"
	}
	if c.Recognition.Language == "" {
		c.Recognition.Language = "en-US"
	}
	if c.Recognition.FileDir == "" {
		c.Recognition.FileDir = "./transcripts"
	}
	if c.Recognition.LineDelay == "" {
		c.Recognition.LineDelay = "500ms"
	}
	if c.Recognition.SampleRate == 0 {
		c.Recognition.SampleRate = 16000
	}
	if c.Speech.Engine == "" {
		c.Speech.Engine = "log"
	}
	if c.Speech.Rate == nil {
		c.Speech.Rate = floatPtr(1.0)
	}
	if c.Speech.Pitch == nil {
		c.Speech.Pitch = floatPtr(1.0)
	}
	if c.Speech.Volume == nil {
		c.Speech.Volume = floatPtr(1.0)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "en"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Recognition.Source {
	case "http", "file", "microphone":
	default:
		errs = append(errs, fmt.Errorf("recognition.source: unknown source %q", c.Recognition.Source))
	}
	if _, err := c.LineDelay(); err != nil {
		errs = append(errs, fmt.Errorf("recognition.line_delay: %w", err))
	}
	if c.Recognition.Source == "microphone" && c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai.api_key: required to transcribe the microphone source"))
	}
	if c.Recognition.RateLimit < 0 {
		errs = append(errs, errors.New("recognition.rate_limit: must not be negative"))
	}

	switch c.Speech.Engine {
	case "log", "espeak", "say":
	default:
		errs = append(errs, fmt.Errorf("speech.engine: unknown engine %q", c.Speech.Engine))
	}
	if r := *c.Speech.Rate; r < 0.1 || r > 10 {
		errs = append(errs, fmt.Errorf("speech.rate: %v out of range [0.1, 10]", r))
	}
	if p := *c.Speech.Pitch; p < 0 || p > 2 {
		errs = append(errs, fmt.Errorf("speech.pitch: %v out of range [0, 2]", p))
	}
	if v := *c.Speech.Volume; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("speech.volume: %v out of range [0, 1]", v))
	}

	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		errs = append(errs, errors.New("pushover: token and user_key are required when enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) LineDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Recognition.LineDelay)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

func floatPtr(v float64) *float64 {
	return &v
}
