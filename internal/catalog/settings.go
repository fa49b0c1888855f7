package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"gopkg.in/yaml.v3"
)

// AttributeDefinition is an attribute slot of a kind in the settings file.
type AttributeDefinition struct {
	Name             string             `yaml:"name"`
	DisplayInSummary bool               `yaml:"display_in_summary"`
	Editable         bool               `yaml:"editable"`
	IsThing          bool               `yaml:"is_thing"`
	ValueKind        campaign.ValueKind `yaml:"value_kind"`
}

// CategoryDefinition is a randomizer category in the settings file.
type CategoryDefinition struct {
	Name               string   `yaml:"name"`
	Show               bool     `yaml:"show"`
	CanCombineWithSelf bool     `yaml:"can_combine_with_self"`
	MaxOptionsToUse    int      `yaml:"max_options_to_use"`
	CanRandomizeLater  bool     `yaml:"can_randomize_later"`
	MustBeUnique       bool     `yaml:"must_be_unique"`
	UseValuesFrom      []string `yaml:"use_values_from"`
	Options            []string `yaml:"options"`
}

// RandomizerDefinition is a randomizer attribute in the settings file.
type RandomizerDefinition struct {
	Name               string               `yaml:"name"`
	ConcatenateResults bool                 `yaml:"concatenate_results"`
	CanRandomizeLater  bool                 `yaml:"can_randomize_later"`
	MustBeUnique       bool                 `yaml:"must_be_unique"`
	MaxOptionsToUse    int                  `yaml:"max_options_to_use"`
	CategoryParameter  string               `yaml:"category_parameter"`
	Options            []string             `yaml:"options"`
	Categories         []CategoryDefinition `yaml:"categories"`
}

// KindDefinition groups everything configured for one kind.
type KindDefinition struct {
	Name        string                 `yaml:"name"`
	Attributes  []AttributeDefinition  `yaml:"attributes"`
	Randomizers []RandomizerDefinition `yaml:"randomizers"`
}

// GeneratorDefinition is a generator template in the settings file. Contains
// and Mappings use the line formats of ParseContains and ParseMapping.
type GeneratorDefinition struct {
	Name                  string   `yaml:"name"`
	Kind                  string   `yaml:"kind"`
	InheritSettingsFrom   string   `yaml:"inherit_settings_from"`
	AttributeForContainer string   `yaml:"attribute_for_container"`
	Contains              []string `yaml:"contains"`
	Mappings              []string `yaml:"mappings"`
}

// WeightPresetDefinition is a weight preset in the settings file.
type WeightPresetDefinition struct {
	Name          string         `yaml:"name"`
	AttributeName string         `yaml:"attribute_name"`
	IsActive      bool           `yaml:"is_active"`
	Weights       map[string]int `yaml:"weights"`
}

// Settings is the whole generation configuration.
type Settings struct {
	Kinds         []KindDefinition         `yaml:"kinds"`
	Generators    []GeneratorDefinition    `yaml:"generators"`
	WeightPresets []WeightPresetDefinition `yaml:"weight_presets"`
}

// LoadSettings reads and validates a settings YAML file.
func LoadSettings(filename string) (*Settings, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings parses and validates settings YAML.
func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Kind returns the kind definition with the given name (case-insensitive).
func (s *Settings) Kind(name string) *KindDefinition {
	for i := range s.Kinds {
		if strings.EqualFold(s.Kinds[i].Name, name) {
			return &s.Kinds[i]
		}
	}
	return nil
}

// Randomizer returns the named randomizer definition of the kind.
func (k *KindDefinition) Randomizer(name string) *RandomizerDefinition {
	for i := range k.Randomizers {
		if strings.EqualFold(k.Randomizers[i].Name, name) {
			return &k.Randomizers[i]
		}
	}
	return nil
}

// Attribute returns the named attribute definition of the kind.
func (k *KindDefinition) Attribute(name string) *AttributeDefinition {
	for i := range k.Attributes {
		if strings.EqualFold(k.Attributes[i].Name, name) {
			return &k.Attributes[i]
		}
	}
	return nil
}

// Category returns the named category of the randomizer.
func (r *RandomizerDefinition) Category(name string) *CategoryDefinition {
	for i := range r.Categories {
		if strings.EqualFold(r.Categories[i].Name, name) {
			return &r.Categories[i]
		}
	}
	return nil
}

// Generator returns the generator definition of the kind with the given name.
func (s *Settings) Generator(kind, name string) *GeneratorDefinition {
	for i := range s.Generators {
		g := &s.Generators[i]
		if strings.EqualFold(g.Kind, kind) && strings.EqualFold(g.Name, name) {
			return g
		}
	}
	return nil
}

// Validate checks names and cross references. All problems are reported
// together; each wraps campaign.ErrConfiguration.
func (s *Settings) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{campaign.ErrConfiguration}, args...)...))
	}

	seenKinds := map[string]bool{}
	for _, k := range s.Kinds {
		if k.Name == "" {
			fail("kind with empty name")
			continue
		}
		if seenKinds[strings.ToLower(k.Name)] {
			fail("duplicate kind %q", k.Name)
		}
		seenKinds[strings.ToLower(k.Name)] = true

		seenAttrs := map[string]bool{}
		for _, a := range k.Attributes {
			key := strings.ToLower(a.Name)
			if a.Name == "" || seenAttrs[key] {
				fail("kind %s: empty or duplicate attribute %q", k.Name, a.Name)
			}
			seenAttrs[key] = true
			switch a.ValueKind {
			case "", campaign.ValueFreeText, campaign.ValueEnumerated:
			default:
				fail("kind %s: attribute %s has unknown value_kind %q", k.Name, a.Name, a.ValueKind)
			}
		}

		seenRandomizers := map[string]bool{}
		for _, r := range k.Randomizers {
			key := strings.ToLower(r.Name)
			if r.Name == "" || seenRandomizers[key] {
				fail("kind %s: empty or duplicate randomizer %q", k.Name, r.Name)
			}
			seenRandomizers[key] = true

			if r.CategoryParameter != "" {
				if k.Randomizer(r.CategoryParameter) == nil {
					fail("kind %s: randomizer %s has unknown category_parameter %q", k.Name, r.Name, r.CategoryParameter)
				} else if k.Attribute(r.CategoryParameter) == nil {
					fail("kind %s: category_parameter %s of randomizer %s has no attribute definition", k.Name, r.CategoryParameter, r.Name)
				}
				if param := k.Randomizer(r.CategoryParameter); param != nil {
					for _, option := range param.Options {
						if r.Category(option) == nil {
							fail("kind %s: randomizer %s has no category for %s value %q", k.Name, r.Name, r.CategoryParameter, option)
						}
					}
				}
			}

			seenCategories := map[string]bool{}
			for _, c := range r.Categories {
				ckey := strings.ToLower(c.Name)
				if c.Name == "" || seenCategories[ckey] {
					fail("kind %s: randomizer %s: empty or duplicate category %q", k.Name, r.Name, c.Name)
				}
				seenCategories[ckey] = true
				for _, from := range c.UseValuesFrom {
					if r.Category(from) == nil {
						fail("kind %s: category %s.%s uses values from unknown category %q", k.Name, r.Name, c.Name, from)
					}
				}
			}
		}
	}

	seenGenerators := map[string]bool{}
	for _, g := range s.Generators {
		kind := s.Kind(g.Kind)
		if kind == nil {
			fail("generator %s has unknown kind %q", g.Name, g.Kind)
			continue
		}
		if g.Name == "" {
			fail("generator of kind %s has empty name", g.Kind)
		}
		key := strings.ToLower(g.Kind + "." + g.Name)
		if seenGenerators[key] {
			fail("duplicate generator %s.%s", g.Kind, g.Name)
		}
		seenGenerators[key] = true
		if g.InheritSettingsFrom != "" && s.Generator(g.Kind, g.InheritSettingsFrom) == nil {
			fail("generator %s.%s inherits from unknown generator %q", g.Kind, g.Name, g.InheritSettingsFrom)
		}
		for _, line := range g.Contains {
			spec, err := ParseContains(line)
			if err != nil {
				errs = append(errs, fmt.Errorf("generator %s.%s: %w", g.Kind, g.Name, err))
				continue
			}
			child := s.Generator(spec.Kind, spec.Generator)
			if child == nil {
				fail("generator %s.%s contains unknown generator %s.%s", g.Kind, g.Name, spec.Kind, spec.Generator)
				continue
			}
			if attr := s.containerAttribute(*child); attr != "" && kind.Attribute(attr) == nil {
				fail("generator %s.%s contains %s.%s whose container attribute %q is not defined on kind %s", g.Kind, g.Name, spec.Kind, spec.Generator, attr, kind.Name)
			}
		}
		for _, line := range g.Mappings {
			spec, err := ParseMapping(line)
			if err != nil {
				errs = append(errs, fmt.Errorf("generator %s.%s: %w", g.Kind, g.Name, err))
				continue
			}
			r := kind.Randomizer(spec.Attribute)
			if r == nil {
				fail("generator %s.%s maps unknown randomizer %q", g.Kind, g.Name, spec.Attribute)
				continue
			}
			if spec.Category != "" && r.Category(spec.Category) == nil {
				fail("generator %s.%s maps unknown category %s.%s", g.Kind, g.Name, spec.Attribute, spec.Category)
			}
			// Without a field name the value is stored as an attribute value,
			// unless the randomizer only produces random attributes.
			deferred := spec.Category == "" && r.CanRandomizeLater
			if spec.FieldName == "" && !deferred && kind.Attribute(spec.Attribute) == nil {
				fail("generator %s.%s maps %s but kind %s has no attribute definition for it", g.Kind, g.Name, spec, kind.Name)
			}
		}
	}

	for _, g := range s.Generators {
		if cycle := s.inheritanceCycle(g); cycle != "" {
			fail("generator inheritance cycle: %s", cycle)
		}
	}

	for _, p := range s.WeightPresets {
		if p.Name == "" || p.AttributeName == "" {
			fail("weight preset needs a name and an attribute_name (got %q, %q)", p.Name, p.AttributeName)
		}
	}

	return errors.Join(errs...)
}

// containerAttribute returns the attribute_for_container of g or of the
// nearest generator it inherits from.
func (s *Settings) containerAttribute(g GeneratorDefinition) string {
	seen := map[string]bool{}
	for {
		if g.AttributeForContainer != "" {
			return g.AttributeForContainer
		}
		key := strings.ToLower(g.Name)
		if g.InheritSettingsFrom == "" || seen[key] {
			return ""
		}
		seen[key] = true
		parent := s.Generator(g.Kind, g.InheritSettingsFrom)
		if parent == nil {
			return ""
		}
		g = *parent
	}
}

// inheritanceCycle returns a description of the cycle starting at g, or "".
func (s *Settings) inheritanceCycle(g GeneratorDefinition) string {
	path := []string{g.Name}
	visited := map[string]bool{strings.ToLower(g.Name): true}
	for current := &g; current.InheritSettingsFrom != ""; {
		next := s.Generator(g.Kind, current.InheritSettingsFrom)
		if next == nil {
			return ""
		}
		path = append(path, next.Name)
		if visited[strings.ToLower(next.Name)] {
			return strings.Join(path, " -> ")
		}
		visited[strings.ToLower(next.Name)] = true
		current = next
	}
	return ""
}

// SortedWeights returns the preset's weights ordered by option name.
func (p WeightPresetDefinition) SortedWeights() []Weight {
	weights := make([]Weight, 0, len(p.Weights))
	for name, w := range p.Weights {
		weights = append(weights, Weight{Name: name, Weight: w})
	}
	sort.Slice(weights, func(i, j int) bool { return weights[i].Name < weights[j].Name })
	return weights
}
