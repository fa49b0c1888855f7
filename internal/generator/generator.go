// Package generator builds trees of things from generator templates.
package generator

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
	"github.com/milocarbol/dndcampaign/internal/logger"
	"github.com/milocarbol/dndcampaign/internal/namefilter"
	"github.com/milocarbol/dndcampaign/internal/randomizer"
	"github.com/milocarbol/dndcampaign/internal/vars"
)

const (
	DefaultMaxUniqueAttempts = 1000
	DefaultMaxDepth          = 32
)

// NameChecker rejects unwanted generated names.
type NameChecker interface {
	Check(name string) namefilter.Result
}

// Options tune generation limits.
type Options struct {
	// MaxUniqueAttempts caps draws for a value that must be unique. 0 means no cap.
	MaxUniqueAttempts int
	// MaxDepth caps containment nesting. 0 means DefaultMaxDepth.
	MaxDepth int
	// NameFilter, when set, rejects unique draws like a taken name.
	NameFilter NameChecker
}

// DefaultOptions returns the default limits.
func DefaultOptions() Options {
	return Options{MaxUniqueAttempts: DefaultMaxUniqueAttempts, MaxDepth: DefaultMaxDepth}
}

// Stats counts what a Generator has done since it was created.
type Stats struct {
	Generated           int
	DuplicateNames      int
	ConfigurationErrors int
	UniqueRetries       int
	SkippedChildren     int
}

// Generator creates things from templates. It is not safe for concurrent use.
type Generator struct {
	store Store
	rand  *randomizer.Randomizer
	opts  Options
	stats Stats
}

// New creates a Generator drawing from rng.
func New(store Store, rng *rand.Rand, opts Options) *Generator {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxUniqueAttempts < 0 {
		opts.MaxUniqueAttempts = 0
	}
	return &Generator{
		store: store,
		rand:  randomizer.New(store, rng),
		opts:  opts,
	}
}

// Randomizer returns the randomizer used for draws.
func (g *Generator) Randomizer() *randomizer.Randomizer {
	return g.rand
}

// Stats returns the counters.
func (g *Generator) Stats() Stats {
	return g.stats
}

// IsRecoverable reports whether err is an expected failed attempt (a taken
// name or settings that produced nothing usable) rather than broken setup
// data or a storage failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, campaign.ErrDuplicateName) || errors.Is(err, campaign.ErrConfiguration)
}

// run carries per-call state through the recursion.
type run struct {
	id       string
	campaign *campaign.Campaign
}

// Generate creates a thing from template in c, under parent when it is not
// nil, then generates the template's contained things beneath it.
//
// A failed attempt returns a nil thing and an error for which IsRecoverable
// is true. Contained things that fail that way are skipped.
func (g *Generator) Generate(template *catalog.GeneratorObject, c *campaign.Campaign, parent *campaign.Thing) (*campaign.Thing, error) {
	r := &run{id: uuid.NewString(), campaign: c}
	logger.Info("Starting generation", "run", r.id, "template", template.String(), "campaign", c.Name)

	thing, err := g.generate(r, template, parent, 0)
	if err != nil {
		logger.Warning("Generation failed", "run", r.id, "template", template.String(), "error", err)
		return nil, err
	}
	logger.Info("Finished generation", "run", r.id, "template", template.String(), "thing", thing.Name)
	return thing, nil
}

func (g *Generator) generate(r *run, template *catalog.GeneratorObject, parent *campaign.Thing, depth int) (*campaign.Thing, error) {
	logger.Debug("Generating", "run", r.id, "template", template.String(), "depth", depth)

	mappings, err := g.effectiveMappings(template)
	if err != nil {
		return nil, g.fail(err)
	}

	st, err := g.stage(r, template, mappings)
	if err != nil {
		return nil, g.fail(err)
	}

	var parentScope vars.Values
	if parent != nil {
		parentScope = vars.Thing{Thing: parent, Attributes: storedValues{g.store, parent.ID}}
	}

	thing := &campaign.Thing{CampaignID: r.campaign.ID, Kind: template.Kind}
	st.apply(thing, parentScope)

	if thing.Name == "" {
		return nil, g.fail(fmt.Errorf("%w: %s produced an empty name; are all variables populated?", campaign.ErrConfiguration, template))
	}
	if err := g.store.CreateThing(thing); err != nil {
		if errors.Is(err, campaign.ErrDuplicateName) {
			return nil, g.fail(fmt.Errorf("failed to save %s: %w", thing.Name, err))
		}
		return nil, fmt.Errorf("failed to save %s: %w", thing.Name, err)
	}
	g.stats.Generated++
	logger.Audit("Thing created", "run", r.id, "campaign", r.campaign.Name, "kind", thing.Kind, "name", thing.Name, "template", template.Name)

	if err := g.saveAttributes(r, template, thing, st, parentScope); err != nil {
		return nil, err
	}

	if err := g.generateChildren(r, template, thing, depth); err != nil {
		return nil, err
	}
	return thing, nil
}

// fail counts a recoverable error and passes every error through.
func (g *Generator) fail(err error) error {
	switch {
	case errors.Is(err, campaign.ErrDuplicateName):
		g.stats.DuplicateNames++
	case errors.Is(err, campaign.ErrConfiguration):
		g.stats.ConfigurationErrors++
	}
	return err
}

func (g *Generator) saveAttributes(r *run, template *catalog.GeneratorObject, thing *campaign.Thing, st *staged, parentScope vars.Values) error {
	for _, v := range st.values {
		value := vars.Expand(v.pair.Value, vars.Scope{Parent: parentScope})
		if err := g.store.SetAttributeValue(thing.ID, v.attribute.ID, value); err != nil {
			return fmt.Errorf("failed to set %s on %s: %w", v.attribute.Name, thing.Name, err)
		}
	}

	if err := g.recordNameSource(template, thing); err != nil {
		return err
	}

	for _, attr := range st.deferred {
		if _, err := g.rand.GenerateRandomAttributes(r.campaign.ID, thing, attr.Name, g.store); err != nil {
			return fmt.Errorf("failed to generate %s for %s: %w", attr.Name, thing.Name, err)
		}
	}
	return nil
}

// recordNameSource stores what the thing's name was drawn from so it can be
// re-rolled by RandomizeName.
func (g *Generator) recordNameSource(template *catalog.GeneratorObject, thing *campaign.Thing) error {
	attr, err := g.store.Attribute(thing.Kind, campaign.NameRandomizerAttribute)
	if errors.Is(err, campaign.ErrNotFound) {
		logger.Debug("Kind has no name randomizer attribute", "kind", thing.Kind)
		return nil
	}
	if err != nil {
		return err
	}

	source := template.Name
	if from := campaign.PolicyFor(thing.Kind).NameSource; from != "" {
		av, err := g.store.AttributeValue(thing.ID, from)
		if errors.Is(err, campaign.ErrNotFound) {
			logger.Debug("No name source value to record", "thing", thing.Name, "attribute", from)
			return nil
		}
		if err != nil {
			return err
		}
		source = av.Value
	}
	return g.store.SetAttributeValue(thing.ID, attr.ID, source)
}

func (g *Generator) generateChildren(r *run, template *catalog.GeneratorObject, thing *campaign.Thing, depth int) error {
	rows, err := g.store.Containment(template.ID)
	if err != nil {
		return err
	}
	policy := campaign.PolicyFor(thing.Kind)

	for _, row := range rows {
		childTemplate, err := g.store.GeneratorObjectByID(row.ContainedID)
		if err != nil {
			return fmt.Errorf("%s contains generator %d: %w", template, row.ContainedID, err)
		}

		for n := g.count(row); n > 0; n-- {
			if depth+1 > g.opts.MaxDepth {
				g.fail(fmt.Errorf("%w: nesting deeper than %d", campaign.ErrConfiguration, g.opts.MaxDepth))
				g.stats.SkippedChildren++
				logger.Warning("Not generating child: too deeply nested", "run", r.id, "parent", thing.Name, "template", childTemplate.String(), "max_depth", g.opts.MaxDepth)
				continue
			}

			child, err := g.generate(r, childTemplate, thing, depth+1)
			if err != nil {
				if !IsRecoverable(err) {
					return err
				}
				g.stats.SkippedChildren++
				logger.Info("Skipping child", "run", r.id, "parent", thing.Name, "template", childTemplate.String(), "reason", err)
				continue
			}

			logger.Info("Adding child", "run", r.id, "parent", thing.Name, "child", child.Name)
			if err := g.store.AddChild(thing.ID, child.ID); err != nil {
				return err
			}
			if err := g.aggregate(thing, policy); err != nil {
				return err
			}
			if err := g.recordContained(r, thing, childTemplate, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// count draws how many things a containment row yields.
func (g *Generator) count(row catalog.Contains) int {
	rng := g.rand.Rand()
	if row.PercentChanceForOne > 0 {
		if rng.Intn(100)+1 <= row.PercentChanceForOne {
			return 1
		}
		return 0
	}
	if row.MaxObjects <= row.MinObjects {
		return row.MinObjects
	}
	return row.MinObjects + rng.Intn(row.MaxObjects-row.MinObjects+1)
}

// aggregate pulls grandchildren up into direct children per the kind policy.
func (g *Generator) aggregate(thing *campaign.Thing, policy campaign.KindPolicy) error {
	for _, agg := range policy.Aggregate {
		vias, err := g.store.Children(thing.ID, agg.Via)
		if err != nil {
			return err
		}
		for _, via := range vias {
			members, err := g.store.Children(via.ID, agg.Kind)
			if err != nil {
				return err
			}
			for _, m := range members {
				if err := g.store.AddChild(thing.ID, m.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// recordContained writes the child's name into the container attribute of
// its parent and fills that placeholder in the parent's name.
func (g *Generator) recordContained(r *run, thing *campaign.Thing, childTemplate *catalog.GeneratorObject, child *campaign.Thing) error {
	name, err := g.containerAttribute(childTemplate)
	if err != nil || name == "" {
		return err
	}

	attr, err := g.store.Attribute(thing.Kind, name)
	if err != nil {
		return fmt.Errorf("container attribute of %s: %w", childTemplate, err)
	}
	logger.Info("Setting container attribute", "run", r.id, "thing", thing.Name, "attribute", attr.Name, "value", child.Name)
	if err := g.store.SetAttributeValue(thing.ID, attr.ID, child.Name); err != nil {
		return err
	}

	if !vars.Contains(thing.Name, name) {
		return nil
	}
	old := thing.Name
	thing.Name = vars.Replace(thing.Name, name, child.Name)
	if err := g.store.UpdateThing(thing); err != nil {
		thing.Name = old
		if errors.Is(err, campaign.ErrDuplicateName) {
			logger.Warning("Cannot rename thing: name taken", "run", r.id, "thing", old, "error", err)
			return nil
		}
		return err
	}
	logger.Info("Renamed thing", "run", r.id, "from", old, "to", thing.Name)
	return nil
}

// containerAttribute finds AttributeForContainer on the template or the
// nearest template it inherits from.
func (g *Generator) containerAttribute(template *catalog.GeneratorObject) (string, error) {
	chain, err := g.inheritanceChain(template)
	if err != nil {
		return "", err
	}
	for _, t := range chain {
		if t.AttributeForContainer != "" {
			return t.AttributeForContainer, nil
		}
	}
	return "", nil
}
