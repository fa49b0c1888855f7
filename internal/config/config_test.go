package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver by default, got %q", cfg.Database.Driver)
	}
	if cfg.Database.SQLitePath != "data/campaign.db" {
		t.Errorf("expected data/campaign.db, got %q", cfg.Database.SQLitePath)
	}
	if cfg.Generator.MaxUniqueAttempts != 1000 {
		t.Errorf("expected 1000 unique attempts, got %d", cfg.Generator.MaxUniqueAttempts)
	}
	if cfg.Generator.MaxDepth != 32 {
		t.Errorf("expected max depth 32, got %d", cfg.Generator.MaxDepth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}
	if cfg.Paths.Settings != "data/settings.yaml" {
		t.Errorf("expected default settings path, got %q", cfg.Paths.Settings)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  postgres:
    host: db.example.com
    port: 5433
    user: dm
    database: greyhawk
    conn_max_lifetime: 10m
generator:
  campaign: Greyhawk
  seed: 42
  max_depth: 4
paths:
  settings: custom/settings.yaml
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != "postgres" || cfg.Database.Postgres.Host != "db.example.com" || cfg.Database.Postgres.Port != 5433 {
		t.Errorf("database section not loaded: %+v", cfg.Database)
	}
	if cfg.Database.Postgres.ConnMaxLifetime != 10*time.Minute {
		t.Errorf("expected 10m lifetime, got %v", cfg.Database.Postgres.ConnMaxLifetime)
	}
	// Keys missing from the file keep their defaults
	if cfg.Database.Postgres.SSLMode != "disable" || cfg.Database.Postgres.MaxOpenConns != 25 {
		t.Errorf("defaults lost: %+v", cfg.Database.Postgres)
	}
	if cfg.Generator.Campaign != "Greyhawk" || cfg.Generator.Seed != 42 || cfg.Generator.MaxDepth != 4 {
		t.Errorf("generator section not loaded: %+v", cfg.Generator)
	}
	if cfg.Generator.MaxUniqueAttempts != 1000 {
		t.Errorf("expected default unique attempts, got %d", cfg.Generator.MaxUniqueAttempts)
	}
	if cfg.Paths.Settings != "custom/settings.yaml" || cfg.Paths.Logging != "data/logging.yaml" {
		t.Errorf("paths section not loaded: %+v", cfg.Paths)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "database: [not, a, map")

	cfg, err := LoadConfig(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
	if cfg == nil || cfg.Database.Driver != "sqlite" {
		t.Error("expected defaults alongside parse error")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown driver", "database:\n  driver: mysql\n"},
		{"negative attempts", "generator:\n  max_unique_attempts: -1\n"},
		{"zero depth", "generator:\n  max_depth: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "generator:\n  seed: 42\n")

	t.Setenv("CAMPAIGN_DB_DRIVER", "postgres")
	t.Setenv("CAMPAIGN_PG_HOST", "pg.internal")
	t.Setenv("CAMPAIGN_PG_PORT", "6543")
	t.Setenv("CAMPAIGN_PG_CONN_MAX_LIFETIME", "30s")
	t.Setenv("CAMPAIGN_SEED", "7")
	t.Setenv("CAMPAIGN_MAX_UNIQUE_ATTEMPTS", "50")
	t.Setenv("CAMPAIGN_MAX_DEPTH", "3")
	t.Setenv("CAMPAIGN_SQLITE_PATH", "/tmp/other.db")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.Postgres.Host != "pg.internal" || cfg.Database.Postgres.Port != 6543 {
		t.Errorf("Postgres = %+v", cfg.Database.Postgres)
	}
	if cfg.Database.Postgres.ConnMaxLifetime != 30*time.Second {
		t.Errorf("ConnMaxLifetime = %v, want 30s", cfg.Database.Postgres.ConnMaxLifetime)
	}
	if cfg.Database.SQLitePath != "/tmp/other.db" {
		t.Errorf("SQLitePath = %q", cfg.Database.SQLitePath)
	}
	if cfg.Generator.Seed != 7 {
		t.Errorf("environment should override the file seed, got %d", cfg.Generator.Seed)
	}
	if cfg.Generator.MaxUniqueAttempts != 50 || cfg.Generator.MaxDepth != 3 {
		t.Errorf("Generator = %+v", cfg.Generator)
	}
}

func TestToDatabase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "Postgres"
	cfg.Database.Postgres.User = "dm"

	db := cfg.Database.ToDatabase()
	if db.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", db.Driver)
	}
	if db.Postgres.User != "dm" || db.Postgres.Port != 5432 || db.SQLitePath != "data/campaign.db" {
		t.Errorf("ToDatabase = %+v", db)
	}
}

func TestGeneratorOptions(t *testing.T) {
	opts := GeneratorConfig{MaxUniqueAttempts: 0, MaxDepth: 5}.Options()
	if opts.MaxUniqueAttempts != 0 || opts.MaxDepth != 5 {
		t.Errorf("Options = %+v", opts)
	}
	if opts.NameFilter != nil {
		t.Error("Options should leave the name filter unset")
	}
}

func TestSeedFromPhrase(t *testing.T) {
	a := SeedFromPhrase("the lich wakes")
	if a != SeedFromPhrase("the lich wakes") {
		t.Error("seed phrase hashing is not deterministic")
	}
	if a == SeedFromPhrase("the lich sleeps") {
		t.Error("different phrases produced the same seed")
	}
}

func TestResolveSeed(t *testing.T) {
	tests := []struct {
		name       string
		cfg        GeneratorConfig
		want       int64
		wantRandom bool
	}{
		{"explicit seed wins", GeneratorConfig{Seed: 9, SeedPhrase: "ignored"}, 9, false},
		{"phrase", GeneratorConfig{SeedPhrase: "dragon"}, SeedFromPhrase("dragon"), false},
		{"random", GeneratorConfig{}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, random, err := tt.cfg.ResolveSeed()
			if err != nil {
				t.Fatalf("ResolveSeed failed: %v", err)
			}
			if random != tt.wantRandom {
				t.Errorf("random = %v, want %v", random, tt.wantRandom)
			}
			if tt.wantRandom {
				if seed == 0 {
					t.Error("random seed should not be 0")
				}
				return
			}
			if seed != tt.want {
				t.Errorf("seed = %d, want %d", seed, tt.want)
			}
		})
	}
}
