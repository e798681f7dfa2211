package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range apiKeyEnv {
		t.Setenv(name, "")
	}
}

func TestValidate(t *testing.T) {
	clearKeyEnv(t)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "stored key",
			cfg:     Config{APIKey: "AIza-test"},
			wantErr: false,
		},
		{
			name:    "missing key",
			cfg:     Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMentionsProfile(t *testing.T) {
	clearKeyEnv(t)

	err := (&Config{Profile: "work"}).Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "pulse --profile work set key"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should mention %q", err, want)
	}
}

func TestEffectiveAPIKey(t *testing.T) {
	clearKeyEnv(t)
	cfg := &Config{APIKey: "stored"}

	if got := cfg.EffectiveAPIKey(); got != "stored" {
		t.Errorf("EffectiveAPIKey() = %q, want stored", got)
	}
	if got := cfg.KeySource(); got != "config" {
		t.Errorf("KeySource() = %q, want config", got)
	}

	t.Setenv("GEMINI_API_KEY", "from-gemini-env")
	if got := cfg.EffectiveAPIKey(); got != "from-gemini-env" {
		t.Errorf("EffectiveAPIKey() = %q, want from-gemini-env", got)
	}

	t.Setenv("PULSE_API_KEY", "from-pulse-env")
	if got := cfg.EffectiveAPIKey(); got != "from-pulse-env" {
		t.Errorf("EffectiveAPIKey() = %q, want from-pulse-env", got)
	}
	if got := cfg.KeySource(); got != "$PULSE_API_KEY" {
		t.Errorf("KeySource() = %q, want $PULSE_API_KEY", got)
	}

	// An env override is never written back to disk.
	t.Setenv("HOME", t.TempDir())
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.APIKey != "stored" {
		t.Errorf("saved APIKey = %q, want stored", loaded.APIKey)
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if cfg.ModelName() != DefaultModel {
		t.Errorf("ModelName() = %q", cfg.ModelName())
	}
	if cfg.ReasoningModelName() != DefaultReasoningModel {
		t.Errorf("ReasoningModelName() = %q", cfg.ReasoningModelName())
	}
	if cfg.Endpoint() != DefaultBaseURL {
		t.Errorf("Endpoint() = %q", cfg.Endpoint())
	}
	if cfg.RPS() != DefaultRPS {
		t.Errorf("RPS() = %v", cfg.RPS())
	}

	cfg = &Config{BaseURL: "http://localhost:9999/", Model: "m", RequestsPerSecond: 5}
	if cfg.Endpoint() != "http://localhost:9999" {
		t.Errorf("Endpoint() should trim trailing slash, got %q", cfg.Endpoint())
	}
	if cfg.ModelName() != "m" || cfg.RPS() != 5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(*Config) bool
	}{
		{"key", "abc", false, func(c *Config) bool { return c.APIKey == "abc" }},
		{"model", "gemini-x", false, func(c *Config) bool { return c.Model == "gemini-x" }},
		{"reasoning-model", "gemini-y", false, func(c *Config) bool { return c.ReasoningModel == "gemini-y" }},
		{"base-url", "http://x", false, func(c *Config) bool { return c.BaseURL == "http://x" }},
		{"rps", "0.5", false, func(c *Config) bool { return c.RequestsPerSecond == 0.5 }},
		{"rps", "-1", true, nil},
		{"rps", "fast", true, nil},
		{"log-level", "debug", false, func(c *Config) bool { return c.LogLevel == "debug" }},
		{"log-file", "/tmp/p.log", false, func(c *Config) bool { return c.LogFile == "/tmp/p.log" }},
		{"bogus", "x", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := &Config{}
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Set(%q, %q) not applied: %+v", tt.key, tt.value, cfg)
			}
		})
	}
}

func TestSetFilter(t *testing.T) {
	cfg := &Config{}
	cfg.SetFilter("language", "en")
	if cfg.Filters["language"] != "en" {
		t.Fatalf("filter not stored: %v", cfg.Filters)
	}
	cfg.SetFilter("language", "")
	if _, ok := cfg.Filters["language"]; ok {
		t.Errorf("empty value should remove filter: %v", cfg.Filters)
	}
}

func TestEqual(t *testing.T) {
	a := &Config{Model: "m", Filters: map[string]string{"lang": "en"}}
	b := &Config{Model: "m", Filters: map[string]string{"lang": "en"}}
	if !a.Equal(b) {
		t.Error("identical configs should be equal")
	}
	b.Filters["lang"] = "fr"
	if a.Equal(b) {
		t.Error("differing filters should not be equal")
	}
	if a.Equal(nil) || !(*Config)(nil).Equal(nil) {
		t.Error("nil handling")
	}
}

func TestLoadSave(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	original := &Config{
		APIKey:            "AIza-secret",
		Model:             "gemini-2.5-flash",
		RequestsPerSecond: 1.5,
		Filters:           map[string]string{"language": "fr", "tone": "academic"},
	}

	if err := original.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(tmpDir, configDir, configFile)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	loaded, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.APIKey != original.APIKey {
		t.Errorf("APIKey = %q, want %q", loaded.APIKey, original.APIKey)
	}
	if loaded.RequestsPerSecond != 1.5 {
		t.Errorf("RequestsPerSecond = %v, want 1.5", loaded.RequestsPerSecond)
	}
	if loaded.Filters["tone"] != "academic" {
		t.Errorf("Filters = %v", loaded.Filters)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("nonexistent")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != "nonexistent" || cfg.APIKey != "" {
		t.Errorf("expected empty config for profile, got %+v", cfg)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	dir := filepath.Join(tmpDir, configDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFile), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(""); err == nil {
		t.Error("Load() should fail on corrupt JSON")
	}
}

func TestProfiles(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	for _, p := range []string{"", "work", "staging"} {
		if err := (&Config{Profile: p, APIKey: "k-" + p}).Save(); err != nil {
			t.Fatalf("Save(%q) error = %v", p, err)
		}
	}

	profiles, err := ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles() error = %v", err)
	}
	want := map[string]bool{"default": true, "work": true, "staging": true}
	if len(profiles) != len(want) {
		t.Fatalf("ListProfiles() = %v, want %d profiles", profiles, len(want))
	}
	for _, p := range profiles {
		if !want[p] {
			t.Errorf("unexpected profile %q", p)
		}
	}

	work, err := Load("work")
	if err != nil {
		t.Fatal(err)
	}
	if work.APIKey != "k-work" {
		t.Errorf("work APIKey = %q", work.APIKey)
	}
}

func TestProfileName(t *testing.T) {
	if ProfileName("") != "default" {
		t.Error(`ProfileName("") should be "default"`)
	}
	if ProfileName("x") != "x" {
		t.Error(`ProfileName("x") should be "x"`)
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"abc":            "abc...",
		"AIzaSyD-123456": "AIzaSy...",
	}
	for in, want := range tests {
		if got := MaskKey(in); got != want {
			t.Errorf("MaskKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	w, err := Watch("")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	if err := (&Config{APIKey: "rotated"}).Save(); err != nil {
		t.Fatal(err)
	}

	// A truncating write can surface as a parse error before the full
	// contents land, so keep reading until the new key shows up.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-w.Changes():
			if cfg.APIKey == "rotated" {
				return
			}
		case <-w.Errors():
		case <-timeout:
			t.Fatal("timed out waiting for config change")
		}
	}
}
