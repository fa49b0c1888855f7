// Package memstore keeps campaigns, generation settings and generated things
// in memory. It implements the same lookups as the database store and is used
// by tests and by throwaway CLI runs.
package memstore

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
)

// fold builds a case-insensitive lookup key from name parts.
func fold(parts ...string) string {
	c := cases.Fold()
	for i, p := range parts {
		parts[i] = c.String(p)
	}
	return strings.Join(parts, "\x00")
}

type category struct {
	catalog.Category
	options []string
}

type randomizerAttribute struct {
	catalog.RandomizerAttribute
	options    []string
	categories []int64
}

// Store is a mutex-guarded in-memory store. The zero value is not usable; call New.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	campaigns map[int64]campaign.Campaign

	attributes       map[int64]campaign.Attribute
	attributesByName map[string]int64

	randomizers       map[int64]*randomizerAttribute
	randomizersByName map[string]int64
	categories        map[int64]*category
	categoriesByName  map[string]int64

	presets []catalog.WeightPreset

	generators       map[int64]catalog.GeneratorObject
	generatorsByName map[string]int64
	contains         map[int64][]catalog.Contains
	mappings         map[int64][]catalog.FieldMapping

	things           map[int64]campaign.Thing
	attributeValues  map[int64]map[int64]string
	randomAttributes map[int64][]campaign.RandomAttribute
	children         map[int64][]int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		campaigns:         make(map[int64]campaign.Campaign),
		attributes:        make(map[int64]campaign.Attribute),
		attributesByName:  make(map[string]int64),
		randomizers:       make(map[int64]*randomizerAttribute),
		randomizersByName: make(map[string]int64),
		categories:        make(map[int64]*category),
		categoriesByName:  make(map[string]int64),
		generators:        make(map[int64]catalog.GeneratorObject),
		generatorsByName:  make(map[string]int64),
		contains:          make(map[int64][]catalog.Contains),
		mappings:          make(map[int64][]catalog.FieldMapping),
		things:            make(map[int64]campaign.Thing),
		attributeValues:   make(map[int64]map[int64]string),
		randomAttributes:  make(map[int64][]campaign.RandomAttribute),
		children:          make(map[int64][]int64),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ImportSettings loads generation settings into the store, attaching weight
// presets to the given campaign.
func (s *Store) ImportSettings(settings *catalog.Settings, campaignID int64) error {
	return catalog.Import(settings, campaignID, s)
}

// CreateCampaign adds a campaign. The first campaign created is active.
func (s *Store) CreateCampaign(name string) (*campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.campaigns {
		if c.Name == name {
			return nil, fmt.Errorf("campaign %q: %w", name, campaign.ErrDuplicateName)
		}
	}
	c := campaign.Campaign{ID: s.id(), Name: name, IsActive: len(s.campaigns) == 0}
	s.campaigns[c.ID] = c
	return &c, nil
}

// ActiveCampaign returns the campaign flagged active.
func (s *Store) ActiveCampaign() (*campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.campaigns {
		if c.IsActive {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("active campaign: %w", campaign.ErrNotFound)
}

// CampaignByName returns a campaign by exact name.
func (s *Store) CampaignByName(name string) (*campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.campaigns {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("campaign %q: %w", name, campaign.ErrNotFound)
}

// Close is a no-op so the store can stand in for the database.
func (s *Store) Close() error {
	return nil
}
