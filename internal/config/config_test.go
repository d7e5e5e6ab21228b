package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, k := range []string{"FLORIDA_READING_WPM", "FLORIDA_AUDIO_CUE", "FLORIDA_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	if cfg != want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
	if cfg.DataDir != filepath.Join(dir, "data", "florida") {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "prefs.yaml")
	if err := os.WriteFile(path, []byte("reading:\n  wpm: 420\n  auto_pause: false\naudio:\n  cue: chime\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(LoadOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reading.WPM != 420 || cfg.Reading.AutoPause || cfg.Audio.Cue != "chime" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Reading.PunctuationMultiplier != 1.5 {
		t.Errorf("default not kept: %v", cfg.Reading.PunctuationMultiplier)
	}

	t.Setenv("FLORIDA_READING_WPM", "510")
	cfg, err = Load(LoadOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reading.WPM != 510 {
		t.Errorf("env WPM = %d, want 510", cfg.Reading.WPM)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("wpm", 0, "")
	if err := flags.Parse([]string{"--wpm", "640"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg, err = Load(LoadOptions{ConfigFile: path, Flags: flags})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reading.WPM != 640 {
		t.Errorf("flag WPM = %d, want 640", cfg.Reading.WPM)
	}
}

func TestLoadUnsetFlagKeepsFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "prefs.yaml")
	if err := os.WriteFile(path, []byte("reading:\n  wpm: 420\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("wpm", 0, "")

	cfg, err := Load(LoadOptions{ConfigFile: path, Flags: flags})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reading.WPM != 420 {
		t.Errorf("WPM = %d, want 420", cfg.Reading.WPM)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := isolate(t)
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("FLORIDA_AUDIO_CUE=zap\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(LoadOptions{EnvFile: env})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audio.Cue != "zap" {
		t.Errorf("cue = %q, want zap", cfg.Audio.Cue)
	}

	if _, err := Load(LoadOptions{EnvFile: filepath.Join(dir, "missing.env")}); err != nil {
		t.Errorf("missing env file: %v", err)
	}
}

func TestLoadClamps(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "prefs.yaml")
	content := "reading:\n  wpm: 5000\n  punctuation_multiplier: 0.2\naudio:\n  cue: kazoo\n  volume: 7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(LoadOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reading.WPM != 1000 {
		t.Errorf("WPM = %d, want 1000", cfg.Reading.WPM)
	}
	if cfg.Reading.PunctuationMultiplier != 1 {
		t.Errorf("multiplier = %v, want 1", cfg.Reading.PunctuationMultiplier)
	}
	if cfg.Audio.Cue != "beep" {
		t.Errorf("cue = %q, want beep", cfg.Audio.Cue)
	}
	if cfg.Audio.Volume != 1 {
		t.Errorf("volume = %v, want 1", cfg.Audio.Volume)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "prefs.yaml")
	if err := os.WriteFile(path, []byte("reading: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(LoadOptions{ConfigFile: path}); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestSaveAndReadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "florida.yaml")

	cfg := DefaultConfig()
	cfg.Reading.WPM = 20
	cfg.Audio.Enabled = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Reading.WPM != 50 {
		t.Errorf("saved WPM = %d, want clamped 50", got.Reading.WPM)
	}
	if !got.Audio.Enabled {
		t.Error("audio.enabled not saved")
	}

	missing, err := ReadFile(filepath.Join(dir, "none.yaml"))
	if err != nil {
		t.Fatalf("ReadFile missing: %v", err)
	}
	if missing != DefaultConfig() {
		t.Errorf("missing file = %+v, want defaults", missing)
	}
}

func TestSetGet(t *testing.T) {
	isolate(t)
	tests := []struct {
		key, value, want string
		wantErr          bool
	}{
		{key: "reading.wpm", value: "450", want: "450"},
		{key: "reading.wpm", value: "fast", wantErr: true},
		{key: "reading.auto_pause", value: "false", want: "false"},
		{key: "reading.punctuation_multiplier", value: "2.5", want: "2.5"},
		{key: "audio.enabled", value: "true", want: "true"},
		{key: "audio.cue", value: "powerUp", want: "powerUp"},
		{key: "audio.cue", value: "kazoo", wantErr: true},
		{key: "audio.volume", value: "0.25", want: "0.25"},
		{key: "appearance.focus_color", value: "#ff0000", want: "#ff0000"},
		{key: "log_level", value: "debug", want: "debug"},
		{key: "nope", value: "1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.Set(tt.key, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != tt.want {
				t.Errorf("Get(%s) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestKeysAreGettable(t *testing.T) {
	cfg := DefaultConfig()
	for _, k := range Keys() {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("Get(%s): %v", k, err)
		}
	}
}

func TestSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Cue = "tick"
	s := cfg.Settings()
	if s.WPM != 300 || !s.AutoPause || s.PunctuationMultiplier != 1.5 || !s.AudioEnabled || s.Cue != "tick" {
		t.Errorf("Settings() = %+v", s)
	}
}
