package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_CreatesTemplatesWithDefaults(t *testing.T) {
	dir := t.TempDir()
	for _, k := range []string{"KIS_APP_KEY", "KIS_APP_SECRET", "KIS_ACCOUNT_NO", "KIS_ENVIRONMENT", "KIS_READ_ONLY"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsPaperMode() {
		t.Errorf("environment = %q, want paper", cfg.Venue.Environment)
	}
	if cfg.Transport.Timeout != 30*time.Second || cfg.Transport.MaxRetries != 2 {
		t.Errorf("unexpected transport defaults %+v", cfg.Transport)
	}
	if cfg.Store.Path != ":memory:" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials.toml"))
	if err != nil {
		t.Fatalf("credentials template not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("credentials.toml mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Errorf("config template not created: %v", err)
	}

	if err := cfg.ValidateCredentials(); err == nil {
		t.Error("empty credentials should not validate")
	}
}

func TestLoad_ReadsFilesAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", `
[venue]
environment = "live"

[transport]
timeout = "5s"
max_retries = 0

[security]
read_only_mode = false
`)
	writeFile(t, dir, "credentials.toml", `
[kis]
app_key = "file-key"
app_secret = "file-secret"
account_no = "50123456-01"
`)
	t.Setenv("KIS_APP_KEY", "env-key")
	t.Setenv("KIS_APP_SECRET", "")
	t.Setenv("KIS_ACCOUNT_NO", "")
	t.Setenv("KIS_ENVIRONMENT", "")
	t.Setenv("KIS_READ_ONLY", "true")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsPaperMode() {
		t.Error("environment should be live")
	}
	if cfg.Transport.Timeout != 5*time.Second || cfg.Transport.MaxRetries != 0 {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if cfg.Credentials.AppKey != "env-key" || cfg.Credentials.AppSecret != "file-secret" {
		t.Errorf("credentials = %s/%s", cfg.Credentials.AppKey, cfg.Credentials.AppSecret)
	}
	if !cfg.Security.ReadOnlyMode {
		t.Error("KIS_READ_ONLY should enable read-only mode")
	}
	if err := cfg.ValidateCredentials(); err != nil {
		t.Errorf("ValidateCredentials: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"paper", Config{Venue: VenueConfig{Environment: "paper"}}, false},
		{"live uppercase", Config{Venue: VenueConfig{Environment: "LIVE"}}, false},
		{"unknown environment", Config{Venue: VenueConfig{Environment: "staging"}}, true},
		{"negative retries", Config{Venue: VenueConfig{Environment: "paper"}, Transport: TransportConfig{MaxRetries: -1}}, true},
		{"negative timeout", Config{Venue: VenueConfig{Environment: "paper"}, Transport: TransportConfig{Timeout: -time.Second}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
