package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HerbHall/palette/internal/theme"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Remote.BaseURL != "http://localhost:8080" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.PreferencesPath != "/api/v1/theme/preferences" {
		t.Errorf("Remote.PreferencesPath = %q", cfg.Remote.PreferencesPath)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("Remote.Timeout = %v, want 10s", cfg.Remote.Timeout)
	}
	if cfg.Entitlement.Retries != 2 || cfg.Entitlement.RetryInterval != 500*time.Millisecond {
		t.Errorf("Entitlement = %+v", cfg.Entitlement)
	}
	if cfg.Theme.ColorMode() != theme.Dark {
		t.Errorf("Theme.ColorMode() = %q, want dark", cfg.Theme.ColorMode())
	}
	if cfg.Auth.AccessTokenTTL != 24*time.Hour {
		t.Errorf("Auth.AccessTokenTTL = %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Server.Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty without a config file", cfg.Source)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "palette.yaml")
	yaml := []byte(`
theme:
  default_color_mode: light
remote:
  base_url: https://profile.example.com
  timeout: 3s
entitlement:
  retries: 4
server:
  port: 9000
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PALETTE_SERVER_PORT", "9191")
	t.Setenv("PALETTE_AUTH_TOKEN", "secret-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
	if cfg.Theme.ColorMode() != theme.Light {
		t.Errorf("Theme.ColorMode() = %q, want light", cfg.Theme.ColorMode())
	}
	if cfg.Remote.BaseURL != "https://profile.example.com" || cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if cfg.Remote.WatchPath != "/api/v1/ws/theme" {
		t.Errorf("Remote.WatchPath = %q, want default", cfg.Remote.WatchPath)
	}
	if cfg.Entitlement.Retries != 4 {
		t.Errorf("Entitlement.Retries = %d, want 4", cfg.Entitlement.Retries)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want env override 9191", cfg.Server.Port)
	}
	if cfg.Auth.Token != "secret-token" {
		t.Errorf("Auth.Token = %q", cfg.Auth.Token)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "color mode", yaml: "theme:\n  default_color_mode: sepia\n"},
		{name: "negative retries", yaml: "entitlement:\n  retries: -1\n"},
		{name: "port", yaml: "server:\n  port: 70000\n"},
		{name: "syntax", yaml: "theme: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "palette.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}
