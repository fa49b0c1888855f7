// Package namefilter rejects generated names that contain banned words or
// match banned names.
package namefilter

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Config holds the name filter configuration
type Config struct {
	Enabled     bool     `yaml:"enabled"`
	BannedWords []string `yaml:"banned_words"`
	BannedNames []string `yaml:"banned_names"`
	// WholeWords matches banned words only as whole words of the name, so
	// "ass" bans "Ass Hollow" but not "Brassmere".
	WholeWords bool `yaml:"whole_words"`
}

// Result contains the outcome of checking a name
type Result struct {
	Allowed bool   // Whether the name is allowed
	Reason  string // Reason for rejection (if not allowed)
	Match   string // The banned entry that matched
}

// NameFilter checks names. It is safe for concurrent use.
type NameFilter struct {
	enabled     bool
	wholeWords  bool
	bannedWords []string // case-folded, partial or whole-word match
	bannedNames []string // case-folded, exact match
}

// New creates a new NameFilter from a Config
func New(cfg *Config) *NameFilter {
	if cfg == nil {
		return &NameFilter{enabled: false}
	}

	nf := &NameFilter{
		enabled:     cfg.Enabled,
		wholeWords:  cfg.WholeWords,
		bannedWords: make([]string, 0, len(cfg.BannedWords)),
		bannedNames: make([]string, 0, len(cfg.BannedNames)),
	}

	fold := cases.Fold()
	for _, word := range cfg.BannedWords {
		if w := strings.TrimSpace(word); w != "" {
			nf.bannedWords = append(nf.bannedWords, fold.String(w))
		}
	}
	for _, name := range cfg.BannedNames {
		if n := strings.TrimSpace(name); n != "" {
			nf.bannedNames = append(nf.bannedNames, fold.String(n))
		}
	}

	return nf
}

// LoadConfig loads name filter configuration from a YAML file. A missing
// file yields a disabled filter configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read name filter config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse name filter config: %w", err)
	}

	return &cfg, nil
}

// Check validates a name against the filter rules
func (nf *NameFilter) Check(name string) Result {
	if !nf.enabled {
		return Result{Allowed: true}
	}

	folded := cases.Fold().String(strings.TrimSpace(name))

	for _, banned := range nf.bannedNames {
		if folded == banned {
			return Result{Reason: "name is banned", Match: banned}
		}
	}

	var words []string
	if nf.wholeWords {
		words = strings.FieldsFunc(folded, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
	}
	for _, banned := range nf.bannedWords {
		if nf.containsWord(folded, words, banned) {
			return Result{Reason: "name contains a banned word", Match: banned}
		}
	}

	return Result{Allowed: true}
}

func (nf *NameFilter) containsWord(folded string, words []string, banned string) bool {
	if !nf.wholeWords || strings.ContainsFunc(banned, unicode.IsSpace) {
		return strings.Contains(folded, banned)
	}
	for _, w := range words {
		if w == banned {
			return true
		}
	}
	return false
}

// Allowed reports whether the name passes the filter.
func (nf *NameFilter) Allowed(name string) bool {
	return nf.Check(name).Allowed
}

// IsEnabled returns whether the filter is enabled
func (nf *NameFilter) IsEnabled() bool {
	return nf.enabled
}
