package memstore

import (
	"fmt"
	"sort"

	"github.com/milocarbol/dndcampaign/internal/campaign"
)

func (s *Store) nameTaken(campaignID int64, name string, except int64) bool {
	for _, t := range s.things {
		if t.CampaignID == campaignID && t.Name == name && t.ID != except {
			return true
		}
	}
	return false
}

// ThingNameExists reports whether a thing in the campaign has exactly this name.
func (s *Store) ThingNameExists(campaignID int64, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nameTaken(campaignID, name, 0), nil
}

// CreateThing saves a new thing and assigns its ID.
func (s *Store) CreateThing(t *campaign.Thing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[t.CampaignID]; !ok {
		return fmt.Errorf("campaign %d: %w", t.CampaignID, campaign.ErrNotFound)
	}
	if s.nameTaken(t.CampaignID, t.Name, 0) {
		return fmt.Errorf("%q: %w", t.Name, campaign.ErrDuplicateName)
	}
	t.ID = s.id()
	s.things[t.ID] = *t
	return nil
}

// UpdateThing saves the literal fields of an existing thing.
func (s *Store) UpdateThing(t *campaign.Thing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.things[t.ID]; !ok {
		return fmt.Errorf("thing %d: %w", t.ID, campaign.ErrNotFound)
	}
	if s.nameTaken(t.CampaignID, t.Name, t.ID) {
		return fmt.Errorf("%q: %w", t.Name, campaign.ErrDuplicateName)
	}
	s.things[t.ID] = *t
	return nil
}

// ThingByID returns a thing by ID.
func (s *Store) ThingByID(id int64) (*campaign.Thing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.things[id]
	if !ok {
		return nil, fmt.Errorf("thing %d: %w", id, campaign.ErrNotFound)
	}
	return &t, nil
}

// ThingByName returns the thing of a kind with exactly this name. An empty
// kind matches any kind.
func (s *Store) ThingByName(campaignID int64, kind, name string) (*campaign.Thing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.things {
		if t.CampaignID == campaignID && t.Name == name && (kind == "" || t.IsKind(kind)) {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("thing %q: %w", name, campaign.ErrNotFound)
}

// Things returns the things of a campaign ordered by ID.
func (s *Store) Things(campaignID int64) ([]campaign.Thing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []campaign.Thing
	for _, t := range s.things {
		if t.CampaignID == campaignID {
			out = append(out, t)
		}
	}
	sortByID(out)
	return out, nil
}

func sortByID(things []campaign.Thing) {
	sort.Slice(things, func(i, j int) bool { return things[i].ID < things[j].ID })
}

// SetAttributeValue creates or replaces the value of an attribute on a thing.
func (s *Store) SetAttributeValue(thingID, attributeID int64, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.things[thingID]; !ok {
		return fmt.Errorf("thing %d: %w", thingID, campaign.ErrNotFound)
	}
	if _, ok := s.attributes[attributeID]; !ok {
		return fmt.Errorf("attribute %d: %w", attributeID, campaign.ErrNotFound)
	}
	values, ok := s.attributeValues[thingID]
	if !ok {
		values = make(map[int64]string)
		s.attributeValues[thingID] = values
	}
	values[attributeID] = value
	return nil
}

// AttributeValue returns the value of the named attribute on a thing
// (case-insensitive name).
func (s *Store) AttributeValue(thingID int64, attributeName string) (*campaign.AttributeValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for attributeID, value := range s.attributeValues[thingID] {
		a := s.attributes[attributeID]
		if fold(a.Name) == fold(attributeName) {
			return &campaign.AttributeValue{ThingID: thingID, AttributeID: a.ID, AttributeName: a.Name, Value: value}, nil
		}
	}
	return nil, fmt.Errorf("attribute %q of thing %d: %w", attributeName, thingID, campaign.ErrNotFound)
}

// AttributeValues returns every attribute value of a thing ordered by attribute ID.
func (s *Store) AttributeValues(thingID int64) ([]campaign.AttributeValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]campaign.AttributeValue, 0, len(s.attributeValues[thingID]))
	for attributeID, value := range s.attributeValues[thingID] {
		a := s.attributes[attributeID]
		out = append(out, campaign.AttributeValue{ThingID: thingID, AttributeID: a.ID, AttributeName: a.Name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttributeID < out[j].AttributeID })
	return out, nil
}

// AddRandomAttribute attaches a generated line to a thing.
func (s *Store) AddRandomAttribute(thingID int64, text string) (*campaign.RandomAttribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.things[thingID]; !ok {
		return nil, fmt.Errorf("thing %d: %w", thingID, campaign.ErrNotFound)
	}
	ra := campaign.RandomAttribute{ID: s.id(), ThingID: thingID, Text: text}
	s.randomAttributes[thingID] = append(s.randomAttributes[thingID], ra)
	return &ra, nil
}

// RandomAttributes returns the generated lines of a thing in creation order.
func (s *Store) RandomAttributes(thingID int64) ([]campaign.RandomAttribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]campaign.RandomAttribute(nil), s.randomAttributes[thingID]...), nil
}

// AddChild links a child thing under a parent. Linking twice is a no-op.
func (s *Store) AddChild(parentID, childID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.things[parentID]; !ok {
		return fmt.Errorf("thing %d: %w", parentID, campaign.ErrNotFound)
	}
	if _, ok := s.things[childID]; !ok {
		return fmt.Errorf("thing %d: %w", childID, campaign.ErrNotFound)
	}
	for _, id := range s.children[parentID] {
		if id == childID {
			return nil
		}
	}
	s.children[parentID] = append(s.children[parentID], childID)
	return nil
}

// Children returns the children of a thing of the given kind ordered by ID.
// An empty kind returns all children.
func (s *Store) Children(thingID int64, kind string) ([]campaign.Thing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []campaign.Thing
	for _, id := range s.children[thingID] {
		if t := s.things[id]; kind == "" || t.IsKind(kind) {
			out = append(out, t)
		}
	}
	sortByID(out)
	return out, nil
}

// Parents returns the things that have thingID as a child, filtered by kind
// like Children.
func (s *Store) Parents(thingID int64, kind string) ([]campaign.Thing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []campaign.Thing
	for parentID, ids := range s.children {
		for _, id := range ids {
			if id != thingID {
				continue
			}
			if t := s.things[parentID]; kind == "" || t.IsKind(kind) {
				out = append(out, t)
			}
			break
		}
	}
	sortByID(out)
	return out, nil
}
