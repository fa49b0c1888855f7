// campaigngen generates campaign wiki things from generator templates.
//
// Usage:
//
//	go run ./cmd/campaigngen -kind Location -generator Village -count 3
//	go run ./cmd/campaigngen -kind NPC -attribute Name -category Elf -count 5
//	go run ./cmd/campaigngen -memory -seed-phrase "the lich wakes" -kind Location -generator Keep
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
	"github.com/milocarbol/dndcampaign/internal/config"
	"github.com/milocarbol/dndcampaign/internal/database"
	"github.com/milocarbol/dndcampaign/internal/generator"
	"github.com/milocarbol/dndcampaign/internal/logger"
	"github.com/milocarbol/dndcampaign/internal/memstore"
	"github.com/milocarbol/dndcampaign/internal/namefilter"
)

// defaultCampaign is created when no campaign exists yet.
const defaultCampaign = "My Campaign"

// store is what the CLI needs from either backend.
type store interface {
	generator.Store
	ImportSettings(settings *catalog.Settings, campaignID int64) error
	CreateCampaign(name string) (*campaign.Campaign, error)
	ActiveCampaign() (*campaign.Campaign, error)
	CampaignByName(name string) (*campaign.Campaign, error)
	GeneratorObject(kind, name string) (*catalog.GeneratorObject, error)
	GeneratorObjects(kind string) ([]catalog.GeneratorObject, error)
	AttributeValues(thingID int64) ([]campaign.AttributeValue, error)
	RandomAttributes(thingID int64) ([]campaign.RandomAttribute, error)
	Close() error
}

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "data/config.yaml", "Path to application config YAML file")
	loggingConfig := flag.String("logging", "", "Path to logging config YAML file (overrides config)")
	settingsFile := flag.String("settings", "", "Path to generation settings YAML file (overrides config)")
	nameFilterConfig := flag.String("namefilter", "", "Path to name filter config YAML file (overrides config)")
	dbFile := flag.String("db", "", "Path to SQLite database file (overrides config)")
	memory := flag.Bool("memory", false, "Use an in-memory store instead of the database")
	campaignName := flag.String("campaign", "", "Campaign to generate into (default: the active campaign)")
	kind := flag.String("kind", "", "Kind of thing (Location, Faction, NPC, Item, Note)")
	generatorName := flag.String("generator", "", "Generator template to run")
	attribute := flag.String("attribute", "", "Randomizer attribute to resolve instead of running a generator")
	category := flag.String("category", "", "Category of -attribute to draw from")
	seed := flag.Int64("seed", 0, "Random seed (default: seed phrase or random)")
	seedPhrase := flag.String("seed-phrase", "", "Phrase hashed into the random seed")
	count := flag.Int("count", 1, "Number of things or values to generate")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, *loggingConfig, *settingsFile, *nameFilterConfig, *dbFile, *campaignName, *seed, *seedPhrase)

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(cfg.Paths.Logging)
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	runSeed, random, err := cfg.Generator.ResolveSeed()
	if err != nil {
		log.Fatalf("Failed to choose seed: %v", err)
	}
	logger.Info("Generation seed selected", "seed", runSeed, "random", random)

	s, err := openStore(cfg, *memory)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	c, err := resolveCampaign(s, cfg.Generator.Campaign)
	if err != nil {
		log.Fatalf("Failed to resolve campaign: %v", err)
	}
	logger.Info("Using campaign", "campaign", c.Name, "id", c.ID)

	if err := ensureSettings(s, c, cfg.Paths.Settings); err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	opts := cfg.Generator.Options()
	nameCfg, err := namefilter.LoadConfig(cfg.Paths.NameFilter)
	if err != nil {
		logger.Warning("Failed to load name filter config, name filter disabled", "path", cfg.Paths.NameFilter, "error", err)
	} else if nf := namefilter.New(nameCfg); nf.IsEnabled() {
		opts.NameFilter = nf
		logger.Info("Name filter enabled", "banned_words", len(nameCfg.BannedWords), "banned_names", len(nameCfg.BannedNames))
	}

	gen := generator.New(s, rand.New(rand.NewSource(runSeed)), opts)

	switch {
	case *attribute != "":
		if *kind == "" {
			log.Fatal("-attribute requires -kind")
		}
		if err := resolveValues(os.Stdout, gen, c, *kind, *attribute, *category, *count); err != nil {
			log.Fatalf("Failed to resolve %s: %v", *attribute, err)
		}
	case *generatorName != "":
		if *kind == "" {
			log.Fatal("-generator requires -kind")
		}
		tmpl, err := s.GeneratorObject(*kind, *generatorName)
		if err != nil {
			log.Fatalf("Unknown generator: %v", err)
		}
		if err := generateThings(os.Stdout, s, gen, tmpl, c, *count); err != nil {
			log.Fatalf("Generation failed: %v", err)
		}
	default:
		if err := listGenerators(os.Stdout, s, *kind); err != nil {
			log.Fatalf("Failed to list generators: %v", err)
		}
	}

	stats := gen.Stats()
	logger.Info("Generation finished",
		"generated", stats.Generated,
		"duplicate_names", stats.DuplicateNames,
		"configuration_errors", stats.ConfigurationErrors,
		"unique_retries", stats.UniqueRetries,
		"skipped_children", stats.SkippedChildren)
}

// applyFlags overrides config values with the flags that were set.
func applyFlags(cfg *config.AppConfig, logging, settings, nameFilter, db, campaignName string, seed int64, seedPhrase string) {
	if logging != "" {
		cfg.Paths.Logging = logging
	}
	if settings != "" {
		cfg.Paths.Settings = settings
	}
	if nameFilter != "" {
		cfg.Paths.NameFilter = nameFilter
	}
	if db != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.SQLitePath = db
	}
	if campaignName != "" {
		cfg.Generator.Campaign = campaignName
	}
	if seed != 0 {
		cfg.Generator.Seed = seed
	}
	if seedPhrase != "" {
		// An explicit phrase wins over a seed from the config file.
		cfg.Generator.Seed = seed
		cfg.Generator.SeedPhrase = seedPhrase
	}
}

func openStore(cfg *config.AppConfig, memory bool) (store, error) {
	if memory {
		logger.Info("Using in-memory store")
		return memstore.New(), nil
	}
	dbCfg := cfg.Database.ToDatabase()
	db, err := database.OpenWithConfig(dbCfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Campaign database initialized", "driver", dbCfg.Driver)
	return db, nil
}

// resolveCampaign finds the named campaign, or the active one when name is
// empty, creating it if it does not exist yet.
func resolveCampaign(s store, name string) (*campaign.Campaign, error) {
	var c *campaign.Campaign
	var err error
	if name == "" {
		c, err = s.ActiveCampaign()
		if err == nil || !errors.Is(err, campaign.ErrNotFound) {
			return c, err
		}
		name = defaultCampaign
	}
	c, err = s.CampaignByName(name)
	if err == nil || !errors.Is(err, campaign.ErrNotFound) {
		return c, err
	}
	logger.Info("Creating campaign", "campaign", name)
	return s.CreateCampaign(name)
}

// ensureSettings imports the settings file unless the store already holds
// generator templates.
func ensureSettings(s store, c *campaign.Campaign, path string) error {
	existing, err := s.GeneratorObjects("")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Debug("Settings already imported", "generators", len(existing))
		return nil
	}
	settings, err := catalog.LoadSettings(path)
	if err != nil {
		return err
	}
	if err := s.ImportSettings(settings, c.ID); err != nil {
		return err
	}
	logger.Info("Settings imported", "path", path, "kinds", len(settings.Kinds), "generators", len(settings.Generators))
	return nil
}

func listGenerators(w io.Writer, s store, kind string) error {
	templates, err := s.GeneratorObjects(kind)
	if err != nil {
		return err
	}
	for _, g := range templates {
		fmt.Fprintln(w, g.String())
	}
	return nil
}
