package memstore

import (
	"fmt"
	"sort"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
)

// CreateAttribute adds an attribute definition.
func (s *Store) CreateAttribute(a *campaign.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fold(a.Kind, a.Name)
	if _, ok := s.attributesByName[key]; ok {
		return fmt.Errorf("attribute %s.%s: %w", a.Kind, a.Name, campaign.ErrDuplicateName)
	}
	a.ID = s.id()
	s.attributes[a.ID] = *a
	s.attributesByName[key] = a.ID
	return nil
}

// Attribute returns an attribute definition by kind and name (case-insensitive).
func (s *Store) Attribute(kind, name string) (*campaign.Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.attributesByName[fold(kind, name)]
	if !ok {
		return nil, fmt.Errorf("attribute %s.%s: %w", kind, name, campaign.ErrNotFound)
	}
	a := s.attributes[id]
	return &a, nil
}

// CreateRandomizerAttribute adds a randomizer attribute with its flat options.
func (s *Store) CreateRandomizerAttribute(a *catalog.RandomizerAttribute, options []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fold(a.Kind, a.Name)
	if _, ok := s.randomizersByName[key]; ok {
		return fmt.Errorf("randomizer %s.%s: %w", a.Kind, a.Name, campaign.ErrDuplicateName)
	}
	a.ID = s.id()
	s.randomizers[a.ID] = &randomizerAttribute{
		RandomizerAttribute: *a,
		options:             append([]string(nil), options...),
	}
	s.randomizersByName[key] = a.ID
	return nil
}

// CreateCategory adds a category with its options to an existing randomizer attribute.
func (s *Store) CreateCategory(c *catalog.Category, options []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attr, ok := s.randomizers[c.AttributeID]
	if !ok {
		return fmt.Errorf("randomizer %d: %w", c.AttributeID, campaign.ErrNotFound)
	}
	key := fold(fmt.Sprint(c.AttributeID), c.Name)
	if _, ok := s.categoriesByName[key]; ok {
		return fmt.Errorf("category %s.%s: %w", attr.Name, c.Name, campaign.ErrDuplicateName)
	}
	c.ID = s.id()
	c.AttributeName = attr.Name
	stored := &category{Category: *c, options: append([]string(nil), options...)}
	stored.UseValuesFrom = append([]string(nil), c.UseValuesFrom...)
	s.categories[c.ID] = stored
	s.categoriesByName[key] = c.ID
	attr.categories = append(attr.categories, c.ID)
	return nil
}

// RandomizerAttribute returns a randomizer attribute by kind and name (case-insensitive).
func (s *Store) RandomizerAttribute(kind, name string) (*catalog.RandomizerAttribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.randomizersByName[fold(kind, name)]
	if !ok {
		return nil, fmt.Errorf("randomizer %s.%s: %w", kind, name, campaign.ErrNotFound)
	}
	a := s.randomizers[id].RandomizerAttribute
	return &a, nil
}

// Categories returns the categories of a randomizer attribute ordered by name.
func (s *Store) Categories(attributeID int64) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attr, ok := s.randomizers[attributeID]
	if !ok {
		return nil, fmt.Errorf("randomizer %d: %w", attributeID, campaign.ErrNotFound)
	}
	out := make([]catalog.Category, 0, len(attr.categories))
	for _, id := range attr.categories {
		out = append(out, s.categories[id].Category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Category returns one category of a randomizer attribute (case-insensitive).
func (s *Store) Category(attributeID int64, name string) (*catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.categoriesByName[fold(fmt.Sprint(attributeID), name)]
	if !ok {
		return nil, fmt.Errorf("category %q of randomizer %d: %w", name, attributeID, campaign.ErrNotFound)
	}
	c := s.categories[id].Category
	return &c, nil
}

// CategoryOptions returns the options of a category.
func (s *Store) CategoryOptions(categoryID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[categoryID]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", categoryID, campaign.ErrNotFound)
	}
	return append([]string(nil), c.options...), nil
}

// AttributeOptions returns the flat options of a randomizer attribute.
func (s *Store) AttributeOptions(attributeID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.randomizers[attributeID]
	if !ok {
		return nil, fmt.Errorf("randomizer %d: %w", attributeID, campaign.ErrNotFound)
	}
	return append([]string(nil), a.options...), nil
}

// CreateWeightPreset adds a weight preset. Activating a preset deactivates the
// campaign's other presets for the same attribute.
func (s *Store) CreateWeightPreset(p *catalog.WeightPreset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IsActive {
		s.deactivatePresets(p.CampaignID, p.AttributeName)
	}
	p.ID = s.id()
	stored := *p
	stored.Weights = append([]catalog.Weight(nil), p.Weights...)
	s.presets = append(s.presets, stored)
	return nil
}

// ActivateWeightPreset makes the named preset the active one for its attribute.
func (s *Store) ActivateWeightPreset(campaignID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.presets {
		p := &s.presets[i]
		if p.CampaignID == campaignID && fold(p.Name) == fold(name) {
			s.deactivatePresets(campaignID, p.AttributeName)
			p.IsActive = true
			return nil
		}
	}
	return fmt.Errorf("weight preset %q: %w", name, campaign.ErrNotFound)
}

func (s *Store) deactivatePresets(campaignID int64, attributeName string) {
	for i := range s.presets {
		p := &s.presets[i]
		if p.CampaignID == campaignID && fold(p.AttributeName) == fold(attributeName) {
			p.IsActive = false
		}
	}
}

// ActiveWeightPreset returns the active preset of a campaign for an attribute,
// or nil when there is none.
func (s *Store) ActiveWeightPreset(campaignID int64, attributeName string) (*catalog.WeightPreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.presets {
		if p.CampaignID == campaignID && p.IsActive && fold(p.AttributeName) == fold(attributeName) {
			p.Weights = append([]catalog.Weight(nil), p.Weights...)
			return &p, nil
		}
	}
	return nil, nil
}

// CreateGeneratorObject adds a generator template.
func (s *Store) CreateGeneratorObject(g *catalog.GeneratorObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fold(g.Kind, g.Name)
	if _, ok := s.generatorsByName[key]; ok {
		return fmt.Errorf("generator %s: %w", g, campaign.ErrDuplicateName)
	}
	g.ID = s.id()
	s.generators[g.ID] = *g
	s.generatorsByName[key] = g.ID
	return nil
}

// SetGeneratorInheritance points a template at the template it inherits mappings from.
// An inheritFromID of 0 clears it.
func (s *Store) SetGeneratorInheritance(generatorObjectID, inheritFromID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.generators[generatorObjectID]
	if !ok {
		return fmt.Errorf("generator %d: %w", generatorObjectID, campaign.ErrNotFound)
	}
	if _, ok := s.generators[inheritFromID]; inheritFromID != 0 && !ok {
		return fmt.Errorf("generator %d: %w", inheritFromID, campaign.ErrNotFound)
	}
	g.InheritSettingsFrom = inheritFromID
	s.generators[generatorObjectID] = g
	return nil
}

// GeneratorObject returns a template by kind and name (case-insensitive).
func (s *Store) GeneratorObject(kind, name string) (*catalog.GeneratorObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.generatorsByName[fold(kind, name)]
	if !ok {
		return nil, fmt.Errorf("generator %s.%s: %w", kind, name, campaign.ErrNotFound)
	}
	g := s.generators[id]
	return &g, nil
}

// GeneratorObjectByID returns a template by ID.
func (s *Store) GeneratorObjectByID(id int64) (*catalog.GeneratorObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.generators[id]
	if !ok {
		return nil, fmt.Errorf("generator %d: %w", id, campaign.ErrNotFound)
	}
	return &g, nil
}

// GeneratorObjects returns the templates of a kind ordered by name. An empty
// kind returns all of them.
func (s *Store) GeneratorObjects(kind string) ([]catalog.GeneratorObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.GeneratorObject
	for _, g := range s.generators {
		if kind == "" || fold(g.Kind) == fold(kind) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// CreateContains adds a containment row.
func (s *Store) CreateContains(c *catalog.Contains) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.generators[c.GeneratorObjectID]; !ok {
		return fmt.Errorf("generator %d: %w", c.GeneratorObjectID, campaign.ErrNotFound)
	}
	if _, ok := s.generators[c.ContainedID]; !ok {
		return fmt.Errorf("generator %d: %w", c.ContainedID, campaign.ErrNotFound)
	}
	c.ID = s.id()
	s.contains[c.GeneratorObjectID] = append(s.contains[c.GeneratorObjectID], *c)
	return nil
}

// Containment returns the containment rows of a template in creation order.
func (s *Store) Containment(generatorObjectID int64) ([]catalog.Contains, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]catalog.Contains(nil), s.contains[generatorObjectID]...), nil
}

// CreateFieldMapping adds a field mapping.
func (s *Store) CreateFieldMapping(m *catalog.FieldMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.generators[m.GeneratorObjectID]; !ok {
		return fmt.Errorf("generator %d: %w", m.GeneratorObjectID, campaign.ErrNotFound)
	}
	m.ID = s.id()
	stored := catalog.FieldMapping{ID: m.ID, GeneratorObjectID: m.GeneratorObjectID, FieldName: m.FieldName}
	if m.Attribute != nil {
		stored.Attribute = &catalog.RandomizerAttribute{ID: m.Attribute.ID}
	}
	if m.Category != nil {
		stored.Category = &catalog.Category{ID: m.Category.ID}
	}
	s.mappings[m.GeneratorObjectID] = append(s.mappings[m.GeneratorObjectID], stored)
	return nil
}

// FieldMappings returns the mappings of a template in creation order with
// their randomizer attribute or category filled in.
func (s *Store) FieldMappings(generatorObjectID int64) ([]catalog.FieldMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.mappings[generatorObjectID]
	out := make([]catalog.FieldMapping, 0, len(rows))
	for _, row := range rows {
		m := catalog.FieldMapping{ID: row.ID, GeneratorObjectID: row.GeneratorObjectID, FieldName: row.FieldName}
		if row.Attribute != nil {
			a, ok := s.randomizers[row.Attribute.ID]
			if !ok {
				return nil, fmt.Errorf("mapping %d: randomizer %d: %w", row.ID, row.Attribute.ID, campaign.ErrNotFound)
			}
			attr := a.RandomizerAttribute
			m.Attribute = &attr
		}
		if row.Category != nil {
			c, ok := s.categories[row.Category.ID]
			if !ok {
				return nil, fmt.Errorf("mapping %d: category %d: %w", row.ID, row.Category.ID, campaign.ErrNotFound)
			}
			cat := c.Category
			m.Category = &cat
		}
		out = append(out, m)
	}
	return out, nil
}
