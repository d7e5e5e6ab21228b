// Package config loads florida's preferences from defaults, a YAML file,
// a .env file, FLORIDA_* environment variables and command-line flags, in
// increasing order of precedence. Values outside their range are clamped
// whenever preferences are loaded or saved.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/metcalfc/florida/internal/cue"
	"github.com/metcalfc/florida/internal/reader"
	"github.com/metcalfc/florida/internal/store"
)

// Config holds every user preference.
type Config struct {
	Reading    ReadingConfig    `mapstructure:"reading" yaml:"reading"`
	Audio      AudioConfig      `mapstructure:"audio" yaml:"audio"`
	Appearance AppearanceConfig `mapstructure:"appearance" yaml:"appearance"`
	DataDir    string           `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel   string           `mapstructure:"log_level" yaml:"log_level"`
}

// ReadingConfig controls playback pacing.
type ReadingConfig struct {
	WPM                   int     `mapstructure:"wpm" yaml:"wpm"`
	AutoPause             bool    `mapstructure:"auto_pause" yaml:"auto_pause"`
	PunctuationMultiplier float64 `mapstructure:"punctuation_multiplier" yaml:"punctuation_multiplier"`
}

// AudioConfig controls the per-word audio cue.
type AudioConfig struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	Cue     string  `mapstructure:"cue" yaml:"cue"`
	Volume  float64 `mapstructure:"volume" yaml:"volume"`
}

// AppearanceConfig controls how words are drawn.
type AppearanceConfig struct {
	FocusColor string `mapstructure:"focus_color" yaml:"focus_color"`
}

// DefaultConfig returns the built-in preferences.
func DefaultConfig() Config {
	return Config{
		Reading: ReadingConfig{
			WPM:                   reader.DefaultWPM,
			AutoPause:             true,
			PunctuationMultiplier: reader.DefaultPunctuationMultiplier,
		},
		Audio: AudioConfig{
			Enabled: false,
			Cue:     cue.Default,
			Volume:  0.5,
		},
		Appearance: AppearanceConfig{
			FocusColor: "#22d3ee",
		},
		DataDir:  store.DefaultDir(),
		LogLevel: "info",
	}
}

// DefaultPath returns the preferences file location.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "florida", "florida.yaml")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "florida", "florida.yaml")
	}
	return "florida.yaml"
}

// flagKeys maps command-line flags to preference keys.
var flagKeys = map[string]string{
	"wpm":       "reading.wpm",
	"data-dir":  "data_dir",
	"log-level": "log_level",
}

// RegisterFlags adds the global preference flags.
func RegisterFlags(flags *pflag.FlagSet, defaults Config) {
	flags.String("data-dir", defaults.DataDir, "Directory holding the library database and log")
	flags.String("log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
	flags.String("config", "", "Preferences file (default "+DefaultPath()+")")
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Flags are bound for the keys in flagKeys that they define.
	Flags *pflag.FlagSet
	// ConfigFile overrides DefaultPath. A missing file is not an error.
	ConfigFile string
	// EnvFile is a dotenv file loaded into the environment if it exists.
	EnvFile string
}

// Load resolves the preferences and clamps them.
func Load(opts LoadOptions) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetEnvPrefix("FLORIDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := opts.ConfigFile
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg.Clamped(), nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("reading.wpm", c.Reading.WPM)
	v.SetDefault("reading.auto_pause", c.Reading.AutoPause)
	v.SetDefault("reading.punctuation_multiplier", c.Reading.PunctuationMultiplier)
	v.SetDefault("audio.enabled", c.Audio.Enabled)
	v.SetDefault("audio.cue", c.Audio.Cue)
	v.SetDefault("audio.volume", c.Audio.Volume)
	v.SetDefault("appearance.focus_color", c.Appearance.FocusColor)
	v.SetDefault("data_dir", c.DataDir)
	v.SetDefault("log_level", c.LogLevel)
}

// Clamped returns c with every value inside its allowed range.
func (c Config) Clamped() Config {
	c.Reading.WPM = reader.ClampWPM(c.Reading.WPM)
	c.Reading.PunctuationMultiplier = reader.ClampMultiplier(c.Reading.PunctuationMultiplier)
	if !cue.Valid(c.Audio.Cue) {
		c.Audio.Cue = cue.Default
	}
	c.Audio.Volume = min(max(c.Audio.Volume, 0), 1)
	if c.Appearance.FocusColor == "" {
		c.Appearance.FocusColor = DefaultConfig().Appearance.FocusColor
	}
	if c.DataDir == "" {
		c.DataDir = store.DefaultDir()
	}
	return c
}

// Settings returns the reading preferences an engine starts with.
func (c Config) Settings() reader.Settings {
	return reader.Settings{
		WPM:                   c.Reading.WPM,
		AutoPause:             c.Reading.AutoPause,
		PunctuationMultiplier: c.Reading.PunctuationMultiplier,
		AudioEnabled:          c.Audio.Enabled,
		Cue:                   c.Audio.Cue,
	}
}

// Save writes c, clamped, to path as YAML.
func Save(path string, c Config) error {
	data, err := yaml.Marshal(c.Clamped())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ReadFile reads only the preferences stored at path on top of the
// defaults, ignoring the environment and flags.
func ReadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg.Clamped(), nil
}

// Keys lists the settable preference keys.
func Keys() []string {
	return []string{
		"reading.wpm",
		"reading.auto_pause",
		"reading.punctuation_multiplier",
		"audio.enabled",
		"audio.cue",
		"audio.volume",
		"appearance.focus_color",
		"data_dir",
		"log_level",
	}
}

// Set parses value into the preference named key.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "reading.wpm":
		c.Reading.WPM, err = strconv.Atoi(value)
	case "reading.auto_pause":
		c.Reading.AutoPause, err = strconv.ParseBool(value)
	case "reading.punctuation_multiplier":
		c.Reading.PunctuationMultiplier, err = strconv.ParseFloat(value, 64)
	case "audio.enabled":
		c.Audio.Enabled, err = strconv.ParseBool(value)
	case "audio.cue":
		if !cue.Valid(value) {
			return fmt.Errorf("unknown cue %q (choose from %s)", value, strings.Join(cue.Names(), ", "))
		}
		c.Audio.Cue = value
	case "audio.volume":
		c.Audio.Volume, err = strconv.ParseFloat(value, 64)
	case "appearance.focus_color":
		c.Appearance.FocusColor = value
	case "data_dir":
		c.DataDir = value
	case "log_level":
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// Get formats the preference named key.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "reading.wpm":
		return strconv.Itoa(c.Reading.WPM), nil
	case "reading.auto_pause":
		return strconv.FormatBool(c.Reading.AutoPause), nil
	case "reading.punctuation_multiplier":
		return strconv.FormatFloat(c.Reading.PunctuationMultiplier, 'g', -1, 64), nil
	case "audio.enabled":
		return strconv.FormatBool(c.Audio.Enabled), nil
	case "audio.cue":
		return c.Audio.Cue, nil
	case "audio.volume":
		return strconv.FormatFloat(c.Audio.Volume, 'g', -1, 64), nil
	case "appearance.focus_color":
		return c.Appearance.FocusColor, nil
	case "data_dir":
		return c.DataDir, nil
	case "log_level":
		return c.LogLevel, nil
	}
	return "", fmt.Errorf("unknown preference %q", key)
}
