package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Discord.CategoryName != "listings" {
		t.Errorf("CategoryName = %q, want %q", cfg.Discord.CategoryName, "listings")
	}
	if cfg.Storage.SaveFile != "listings.json" {
		t.Errorf("SaveFile = %q, want %q", cfg.Storage.SaveFile, "listings.json")
	}
	if !cfg.Storage.RerenderOnLoad {
		t.Error("RerenderOnLoad should default to true")
	}
	if cfg.Reminder.Time != "20:00" {
		t.Errorf("Reminder.Time = %q, want %q", cfg.Reminder.Time, "20:00")
	}
	if cfg.Enrichment.GetTimeout() != 30*time.Second {
		t.Errorf("enrichment timeout = %v, want 30s", cfg.Enrichment.GetTimeout())
	}
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Discord.CategoryName != "listings" {
		t.Errorf("CategoryName = %q, want default", cfg.Discord.CategoryName)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
discord:
  token: "abc"
  category_name: "wohnungen"
storage:
  save_file: "/var/lib/bot/listings.json"
  rerender_on_load: false
reminder:
  enabled: false
  time: "08:15"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Discord.Token != "abc" {
		t.Errorf("Token = %q, want %q", cfg.Discord.Token, "abc")
	}
	if cfg.Discord.CategoryName != "wohnungen" {
		t.Errorf("CategoryName = %q, want %q", cfg.Discord.CategoryName, "wohnungen")
	}
	if cfg.Storage.RerenderOnLoad {
		t.Error("RerenderOnLoad should be overridden to false")
	}
	if cfg.Reminder.Enabled || cfg.Reminder.Time != "08:15" {
		t.Errorf("Reminder = %+v, want disabled at 08:15", cfg.Reminder)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("discord: ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig should fail on invalid YAML")
	}
}
