// Package config loads the campaign generator's application settings.
package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/milocarbol/dndcampaign/internal/database"
	"github.com/milocarbol/dndcampaign/internal/generator"
)

// AppConfig holds the generator's application settings.
type AppConfig struct {
	Database  DatabaseConfig  `yaml:"database"`
	Generator GeneratorConfig `yaml:"generator"`
	Paths     PathsConfig     `yaml:"paths"`
}

// DatabaseConfig selects and configures the store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver     string         `yaml:"driver" env:"CAMPAIGN_DB_DRIVER"`
	SQLitePath string         `yaml:"sqlite_path" env:"CAMPAIGN_SQLITE_PATH"`
	Postgres   PostgresConfig `yaml:"postgres" envPrefix:"CAMPAIGN_PG_"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Database string `yaml:"database" env:"DATABASE"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`

	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// GeneratorConfig holds generation settings.
type GeneratorConfig struct {
	// Campaign is the campaign things are generated into. Empty means the
	// active campaign.
	Campaign string `yaml:"campaign" env:"CAMPAIGN_NAME"`

	// Seed fixes the random source. 0 means SeedPhrase or a random seed.
	Seed int64 `yaml:"seed" env:"CAMPAIGN_SEED"`

	// SeedPhrase is hashed into a seed when Seed is 0.
	SeedPhrase string `yaml:"seed_phrase" env:"CAMPAIGN_SEED_PHRASE"`

	// MaxUniqueAttempts caps redraws of must-be-unique values. 0 means unbounded.
	MaxUniqueAttempts int `yaml:"max_unique_attempts" env:"CAMPAIGN_MAX_UNIQUE_ATTEMPTS"`

	// MaxDepth caps containment nesting.
	MaxDepth int `yaml:"max_depth" env:"CAMPAIGN_MAX_DEPTH"`
}

// PathsConfig locates the data files.
type PathsConfig struct {
	Settings   string `yaml:"settings" env:"CAMPAIGN_SETTINGS"`
	NameFilter string `yaml:"name_filter" env:"CAMPAIGN_NAME_FILTER"`
	Logging    string `yaml:"logging" env:"CAMPAIGN_LOGGING"`
}

// DefaultConfig returns an AppConfig using a local SQLite database.
func DefaultConfig() *AppConfig {
	pg := database.DefaultPostgresConfig()
	opts := generator.DefaultOptions()
	return &AppConfig{
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "data/campaign.db",
			Postgres: PostgresConfig{
				Host:            pg.Host,
				Port:            pg.Port,
				Database:        pg.Database,
				SSLMode:         pg.SSLMode,
				MaxOpenConns:    pg.MaxOpenConns,
				MaxIdleConns:    pg.MaxIdleConns,
				ConnMaxLifetime: pg.ConnMaxLifetime,
			},
		},
		Generator: GeneratorConfig{
			MaxUniqueAttempts: opts.MaxUniqueAttempts,
			MaxDepth:          opts.MaxDepth,
		},
		Paths: PathsConfig{
			Settings:   "data/settings.yaml",
			NameFilter: "data/name_filter.yaml",
			Logging:    "data/logging.yaml",
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// variable overrides. A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return DefaultConfig(), fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return config, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if err := env.Parse(config); err != nil {
		return config, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate checks the settings.
func (c *AppConfig) Validate() error {
	if err := c.Database.ToDatabase().Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Generator.MaxUniqueAttempts < 0 {
		return fmt.Errorf("generator: max_unique_attempts must not be negative")
	}
	if c.Generator.MaxDepth < 1 {
		return fmt.Errorf("generator: max_depth must be at least 1")
	}
	return nil
}

// ToDatabase maps the section onto the database package's Config.
func (c DatabaseConfig) ToDatabase() database.Config {
	return database.Config{
		Driver:     strings.ToLower(c.Driver),
		SQLitePath: c.SQLitePath,
		Postgres: database.PostgresConfig{
			Host:            c.Postgres.Host,
			Port:            c.Postgres.Port,
			User:            c.Postgres.User,
			Password:        c.Postgres.Password,
			Database:        c.Postgres.Database,
			SSLMode:         c.Postgres.SSLMode,
			MaxOpenConns:    c.Postgres.MaxOpenConns,
			MaxIdleConns:    c.Postgres.MaxIdleConns,
			ConnMaxLifetime: c.Postgres.ConnMaxLifetime,
		},
	}
}

// Options returns the generator options, leaving the name filter unset.
func (g GeneratorConfig) Options() generator.Options {
	opts := generator.DefaultOptions()
	opts.MaxUniqueAttempts = g.MaxUniqueAttempts
	opts.MaxDepth = g.MaxDepth
	return opts
}

// ResolveSeed returns the configured seed, the seed derived from the seed
// phrase, or a fresh random seed, in that order. random reports the last case.
func (g GeneratorConfig) ResolveSeed() (seed int64, random bool, err error) {
	switch {
	case g.Seed != 0:
		return g.Seed, false, nil
	case g.SeedPhrase != "":
		return SeedFromPhrase(g.SeedPhrase), false, nil
	}
	seed, err = RandomSeed()
	return seed, true, err
}

// SeedFromPhrase hashes a phrase into a seed. The same phrase always gives
// the same seed.
func SeedFromPhrase(phrase string) int64 {
	sum := blake2b.Sum256([]byte(phrase))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// RandomSeed returns a non-zero seed from the operating system's entropy source.
func RandomSeed() (int64, error) {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("failed to read random seed: %w", err)
		}
		if seed := int64(binary.BigEndian.Uint64(buf[:])); seed != 0 {
			return seed, nil
		}
	}
}
