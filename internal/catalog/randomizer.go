// Package catalog holds the static generation configuration: randomizer
// attributes with their categories and options, weight presets, and the
// generator templates that map them onto things.
package catalog

import "strings"

// Category name suffixes with special meaning during resolution.
const (
	SuffixSecond       = "_2"
	SuffixSynonymFirst = "_synonym_first"
	SuffixSynonymLast  = "_synonym_last"
)

// RandomizerAttribute is a randomizable attribute of a kind. Flat attributes
// draw from Options; concatenated attributes combine all of their categories.
type RandomizerAttribute struct {
	ID                 int64
	Kind               string
	Name               string
	ConcatenateResults bool
	CanRandomizeLater  bool
	MustBeUnique       bool
	MaxOptionsToUse    int
	// CategoryParameter names another randomizer attribute of the same kind whose
	// resolved value selects which category of this attribute to draw from.
	CategoryParameter string
}

// MaxDraws returns the upper bound of draws per resolution, at least 1.
func (a *RandomizerAttribute) MaxDraws() int {
	if a.MaxOptionsToUse < 1 {
		return 1
	}
	return a.MaxOptionsToUse
}

// Category is a named option list belonging to a randomizer attribute.
type Category struct {
	ID                 int64
	AttributeID        int64
	AttributeName      string
	Name               string
	Show               bool
	CanCombineWithSelf bool
	MaxOptionsToUse    int
	CanRandomizeLater  bool
	MustBeUnique       bool
	// UseValuesFrom names sibling categories to draw from instead of this one.
	UseValuesFrom []string
}

// MaxDraws returns the upper bound of draws per resolution, at least 1.
func (c *Category) MaxDraws() int {
	if c.MaxOptionsToUse < 1 {
		return 1
	}
	return c.MaxOptionsToUse
}

// Weight biases one option of a flat attribute.
type Weight struct {
	Name   string
	Weight int
}

// WeightPreset is a campaign's weighting of one flat attribute's options.
type WeightPreset struct {
	ID            int64
	CampaignID    int64
	Name          string
	AttributeName string
	IsActive      bool
	Weights       []Weight
}

// WeightFor returns the weight of an option (case-insensitive), 0 if unlisted.
func (p *WeightPreset) WeightFor(option string) int {
	for _, w := range p.Weights {
		if strings.EqualFold(w.Name, option) {
			return w.Weight
		}
	}
	return 0
}

// WeightMap returns the weight of each option keyed by the option itself.
func (p *WeightPreset) WeightMap(options []string) map[string]int {
	weights := make(map[string]int, len(options))
	for _, o := range options {
		weights[o] = p.WeightFor(o)
	}
	return weights
}
