package catalog

import (
	"fmt"
	"strings"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/logger"
)

// SettingsWriter is the storage side of Import. Create methods assign the ID of
// the record they are given.
type SettingsWriter interface {
	CreateAttribute(a *campaign.Attribute) error
	CreateRandomizerAttribute(a *RandomizerAttribute, options []string) error
	CreateCategory(c *Category, options []string) error
	CreateGeneratorObject(g *GeneratorObject) error
	SetGeneratorInheritance(generatorObjectID, inheritFromID int64) error
	CreateContains(c *Contains) error
	CreateFieldMapping(m *FieldMapping) error
	CreateWeightPreset(p *WeightPreset) error
}

// Import writes validated settings to w. Weight presets are attached to the
// given campaign. Records are created in two passes: definitions and
// templates first, then the references between templates.
func Import(s *Settings, campaignID int64, w SettingsWriter) error {
	if err := s.Validate(); err != nil {
		return err
	}

	randomizers := map[string]*RandomizerAttribute{}
	categories := map[string]*Category{}
	generators := map[string]*GeneratorObject{}
	key := func(parts ...string) string {
		return strings.ToLower(strings.Join(parts, "\x00"))
	}

	for _, k := range s.Kinds {
		for _, a := range k.Attributes {
			attr := &campaign.Attribute{
				Kind:             k.Name,
				Name:             a.Name,
				DisplayInSummary: a.DisplayInSummary,
				Editable:         a.Editable,
				IsThing:          a.IsThing,
				ValueKind:        a.ValueKind,
			}
			if attr.ValueKind == "" {
				attr.ValueKind = campaign.ValueFreeText
			}
			if err := w.CreateAttribute(attr); err != nil {
				return fmt.Errorf("failed to import attribute %s.%s: %w", k.Name, a.Name, err)
			}
		}

		for _, r := range k.Randomizers {
			attr := &RandomizerAttribute{
				Kind:               k.Name,
				Name:               r.Name,
				ConcatenateResults: r.ConcatenateResults,
				CanRandomizeLater:  r.CanRandomizeLater,
				MustBeUnique:       r.MustBeUnique,
				MaxOptionsToUse:    r.MaxOptionsToUse,
			}
			if r.CategoryParameter != "" {
				attr.CategoryParameter = k.Randomizer(r.CategoryParameter).Name
			}
			if err := w.CreateRandomizerAttribute(attr, r.Options); err != nil {
				return fmt.Errorf("failed to import randomizer %s.%s: %w", k.Name, r.Name, err)
			}
			randomizers[key(k.Name, r.Name)] = attr

			for _, c := range r.Categories {
				cat := &Category{
					AttributeID:        attr.ID,
					AttributeName:      attr.Name,
					Name:               c.Name,
					Show:               c.Show,
					CanCombineWithSelf: c.CanCombineWithSelf,
					MaxOptionsToUse:    c.MaxOptionsToUse,
					CanRandomizeLater:  c.CanRandomizeLater,
					MustBeUnique:       c.MustBeUnique,
				}
				for _, from := range c.UseValuesFrom {
					cat.UseValuesFrom = append(cat.UseValuesFrom, r.Category(from).Name)
				}
				if err := w.CreateCategory(cat, c.Options); err != nil {
					return fmt.Errorf("failed to import category %s.%s.%s: %w", k.Name, r.Name, c.Name, err)
				}
				categories[key(k.Name, r.Name, c.Name)] = cat
			}
		}
	}

	for _, g := range s.Generators {
		obj := &GeneratorObject{
			Kind:                  s.Kind(g.Kind).Name,
			Name:                  g.Name,
			AttributeForContainer: g.AttributeForContainer,
		}
		if err := w.CreateGeneratorObject(obj); err != nil {
			return fmt.Errorf("failed to import generator %s.%s: %w", g.Kind, g.Name, err)
		}
		generators[key(g.Kind, g.Name)] = obj
	}

	for _, g := range s.Generators {
		obj := generators[key(g.Kind, g.Name)]

		if g.InheritSettingsFrom != "" {
			from := generators[key(g.Kind, g.InheritSettingsFrom)]
			if err := w.SetGeneratorInheritance(obj.ID, from.ID); err != nil {
				return fmt.Errorf("failed to set inheritance of %s: %w", obj, err)
			}
			obj.InheritSettingsFrom = from.ID
		}

		for _, line := range g.Contains {
			spec, _ := ParseContains(line)
			contained := generators[key(spec.Kind, spec.Generator)]
			row := &Contains{
				GeneratorObjectID:   obj.ID,
				ContainedID:         contained.ID,
				PercentChanceForOne: spec.PercentChanceForOne,
				MinObjects:          spec.MinObjects,
				MaxObjects:          spec.MaxObjects,
			}
			if err := w.CreateContains(row); err != nil {
				return fmt.Errorf("failed to import contains %q of %s: %w", line, obj, err)
			}
			logger.Debug("Imported container", "generator", obj.String(), "contains", contained.String())
		}

		for _, line := range g.Mappings {
			spec, _ := ParseMapping(line)
			m := &FieldMapping{GeneratorObjectID: obj.ID, FieldName: spec.FieldName}
			if spec.Category != "" {
				m.Category = categories[key(obj.Kind, spec.Attribute, spec.Category)]
			} else {
				m.Attribute = randomizers[key(obj.Kind, spec.Attribute)]
			}
			if err := w.CreateFieldMapping(m); err != nil {
				return fmt.Errorf("failed to import mapping %q of %s: %w", line, obj, err)
			}
			logger.Debug("Imported mapping", "generator", obj.String(), "mapping", m.String())
		}
	}

	for _, p := range s.WeightPresets {
		preset := &WeightPreset{
			CampaignID:    campaignID,
			Name:          p.Name,
			AttributeName: p.AttributeName,
			IsActive:      p.IsActive,
			Weights:       p.SortedWeights(),
		}
		if err := w.CreateWeightPreset(preset); err != nil {
			return fmt.Errorf("failed to import weight preset %s: %w", p.Name, err)
		}
	}

	logger.Info("Imported settings",
		"kinds", len(s.Kinds),
		"randomizers", len(randomizers),
		"generators", len(generators),
		"weight_presets", len(s.WeightPresets))
	return nil
}
