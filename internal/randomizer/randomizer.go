// Package randomizer resolves randomizer attributes and categories to text.
package randomizer

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
	"github.com/milocarbol/dndcampaign/internal/logger"
)

// Catalog is the read-only randomizer configuration. Name lookups are
// case-insensitive and return errors wrapping campaign.ErrNotFound when
// nothing matches.
type Catalog interface {
	RandomizerAttribute(kind, name string) (*catalog.RandomizerAttribute, error)
	// Categories returns the attribute's categories ordered by name.
	Categories(attributeID int64) ([]catalog.Category, error)
	Category(attributeID int64, name string) (*catalog.Category, error)
	CategoryOptions(categoryID int64) ([]string, error)
	AttributeOptions(attributeID int64) ([]string, error)
	// ActiveWeightPreset returns nil and no error when the campaign has no
	// active preset for the attribute.
	ActiveWeightPreset(campaignID int64, attributeName string) (*catalog.WeightPreset, error)
}

// RandomAttributeWriter stores deferred random attribute lines.
type RandomAttributeWriter interface {
	AddRandomAttribute(thingID int64, text string) (*campaign.RandomAttribute, error)
}

// Randomizer resolves values against a catalog using one random source.
type Randomizer struct {
	catalog Catalog
	rng     *rand.Rand
}

// New creates a Randomizer. The rng is not safe for concurrent use, so neither
// is the Randomizer.
func New(c Catalog, rng *rand.Rand) *Randomizer {
	return &Randomizer{catalog: c, rng: rng}
}

// Rand returns the random source.
func (r *Randomizer) Rand() *rand.Rand {
	return r.rng
}

func (r *Randomizer) attribute(kind, name string) (*catalog.RandomizerAttribute, error) {
	attr, err := r.catalog.RandomizerAttribute(kind, name)
	if err != nil {
		return nil, fmt.Errorf("invalid randomizer attribute %s for %s: %w", name, kind, err)
	}
	return attr, nil
}

// sibling returns the named category, or nil when it does not exist.
func (r *Randomizer) sibling(attributeID int64, name string) (*catalog.Category, error) {
	c, err := r.catalog.Category(attributeID, name)
	if errors.Is(err, campaign.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// ResolveInCategory draws a value from one category of an attribute,
// combining it with the category's _2 sibling and decorating it with a
// _synonym_first or _synonym_last sibling when those exist.
func (r *Randomizer) ResolveInCategory(kind, attribute, category string) (string, bool, error) {
	attr, err := r.attribute(kind, attribute)
	if err != nil {
		return "", false, err
	}

	base, err := r.catalog.Category(attr.ID, category)
	if err != nil {
		return "", false, fmt.Errorf("invalid randomizer attribute category for %s: %s: %w", attribute, category, err)
	}
	name := base.Name

	// The drawn category may be redirected; siblings are still found by the
	// requested category's name.
	source := base
	if len(base.UseValuesFrom) > 0 {
		from := base.UseValuesFrom[r.rng.Intn(len(base.UseValuesFrom))]
		source, err = r.catalog.Category(attr.ID, from)
		if err != nil {
			return "", false, fmt.Errorf("category %s.%s uses values from %s: %w", attribute, name, from, err)
		}
		logger.Debug("Using values from another category", "attribute", attr.Name, "category", name, "source", source.Name)
	}

	options, err := r.catalog.CategoryOptions(source.ID)
	if err != nil {
		return "", false, err
	}

	second, err := r.sibling(attr.ID, name+catalog.SuffixSecond)
	if err != nil {
		return "", false, err
	}
	var options2 []string
	if second != nil {
		if options2, err = r.catalog.CategoryOptions(second.ID); err != nil {
			return "", false, err
		}
	}

	result, _ := Choose(r.rng, options, nil)
	var selfCombined string
	if len(options2) > 0 {
		result2, _ := Choose(r.rng, options2, nil)
		switch {
		case result == "":
			result = result2
		case result2 == strings.ToLower(result2):
			result += result2
		default:
			result += " " + result2
		}
		if second.CanCombineWithSelf {
			a, _ := Choose(r.rng, options2, nil)
			b, _ := Choose(r.rng, options2, nil)
			selfCombined = a + " and " + b
		}
	}
	if result != "" && selfCombined != "" && coin(r.rng) {
		result = selfCombined
	}

	// A synonym alone is not a value.
	if result == "" {
		return "", false, nil
	}
	if result, err = r.decorate(attr.ID, name, result); err != nil {
		return "", false, err
	}
	return result, true, nil
}

// decorate prepends or appends a synonym drawn from the category's synonym siblings.
func (r *Randomizer) decorate(attributeID int64, name, result string) (string, error) {
	first, err := r.sibling(attributeID, name+catalog.SuffixSynonymFirst)
	if err != nil {
		return "", err
	}
	last, err := r.sibling(attributeID, name+catalog.SuffixSynonymLast)
	if err != nil {
		return "", err
	}

	useFirst := first != nil
	if first != nil && last != nil {
		useFirst = coin(r.rng)
	}

	switch {
	case useFirst:
		synonyms, err := r.catalog.CategoryOptions(first.ID)
		if err != nil {
			return "", err
		}
		if synonym, ok := Choose(r.rng, synonyms, nil); ok {
			result = synonym + " " + result
		}
	case last != nil:
		synonyms, err := r.catalog.CategoryOptions(last.ID)
		if err != nil {
			return "", err
		}
		if synonym, ok := Choose(r.rng, synonyms, nil); ok {
			result += " " + synonym
		}
	}
	return result, nil
}

// ResolveAttribute draws a value for a whole attribute. Concatenated
// attributes produce one block per category; flat attributes make one
// (possibly weighted) choice over their options.
func (r *Randomizer) ResolveAttribute(campaignID int64, kind, attribute string) (string, bool, error) {
	attr, err := r.attribute(kind, attribute)
	if err != nil {
		return "", false, err
	}

	if attr.ConcatenateResults {
		return r.concatenate(kind, attr)
	}

	options, err := r.catalog.AttributeOptions(attr.ID)
	if err != nil {
		return "", false, err
	}

	preset, err := r.catalog.ActiveWeightPreset(campaignID, attr.Name)
	if err != nil {
		return "", false, err
	}
	var weights map[string]int
	if preset != nil {
		logger.Debug("Applying weight preset", "attribute", attr.Name, "preset", preset.Name)
		weights = preset.WeightMap(options)
	}

	value, ok := Choose(r.rng, options, weights)
	return value, ok, nil
}

func (r *Randomizer) concatenate(kind string, attr *catalog.RandomizerAttribute) (string, bool, error) {
	categories, err := r.catalog.Categories(attr.ID)
	if err != nil {
		return "", false, err
	}

	var b strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&b, "%s:\n*-\n", c.Name)
		for i := between(r.rng, 1, c.MaxDraws()); i > 0; i-- {
			option, ok, err := r.ResolveInCategory(kind, attr.Name, c.Name)
			if err != nil {
				return "", false, err
			}
			if ok {
				fmt.Fprintf(&b, "- %s-\n", option)
			}
		}
		b.WriteString("-*\n")
	}

	if b.Len() == 0 {
		return "", false, nil
	}
	return b.String(), true, nil
}

// GenerateRandomAttributes attaches between 1 and the attribute's
// MaxOptionsToUse freshly drawn lines to the thing as random attributes.
func (r *Randomizer) GenerateRandomAttributes(campaignID int64, thing *campaign.Thing, attribute string, w RandomAttributeWriter) ([]campaign.RandomAttribute, error) {
	attr, err := r.attribute(thing.Kind, attribute)
	if err != nil {
		return nil, err
	}

	var added []campaign.RandomAttribute
	for i := between(r.rng, 1, attr.MaxDraws()); i > 0; i-- {
		option, ok, err := r.ResolveAttribute(campaignID, thing.Kind, attr.Name)
		if err != nil {
			return added, err
		}
		if !ok {
			continue
		}
		ra, err := w.AddRandomAttribute(thing.ID, option)
		if err != nil {
			return added, fmt.Errorf("failed to add random attribute to %s: %w", thing.Name, err)
		}
		added = append(added, *ra)
	}
	return added, nil
}
