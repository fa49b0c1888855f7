package generator

import (
	"errors"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
	"github.com/milocarbol/dndcampaign/internal/logger"
	"github.com/milocarbol/dndcampaign/internal/randomizer"
)

// Store is everything generation reads and writes. Lookups by name of kinds,
// attributes and generators are case-insensitive and fail with errors wrapping
// campaign.ErrNotFound. Thing names are matched exactly.
type Store interface {
	randomizer.Catalog
	randomizer.RandomAttributeWriter

	GeneratorObjectByID(id int64) (*catalog.GeneratorObject, error)
	// FieldMappings returns a template's mappings in creation order with
	// Attribute or Category filled in.
	FieldMappings(generatorObjectID int64) ([]catalog.FieldMapping, error)
	Containment(generatorObjectID int64) ([]catalog.Contains, error)

	Attribute(kind, name string) (*campaign.Attribute, error)

	ThingNameExists(campaignID int64, name string) (bool, error)
	// CreateThing assigns the thing's ID. A taken name fails with
	// campaign.ErrDuplicateName.
	CreateThing(t *campaign.Thing) error
	UpdateThing(t *campaign.Thing) error
	ThingByName(campaignID int64, kind, name string) (*campaign.Thing, error)

	// SetAttributeValue creates or replaces a value.
	SetAttributeValue(thingID, attributeID int64, value string) error
	AttributeValue(thingID int64, attributeName string) (*campaign.AttributeValue, error)

	AddChild(parentID, childID int64) error
	// Children and Parents filter by kind; an empty kind matches all.
	Children(thingID int64, kind string) ([]campaign.Thing, error)
	Parents(thingID int64, kind string) ([]campaign.Thing, error)
}

// storedValues looks up a saved thing's attribute values for placeholders.
type storedValues struct {
	store   Store
	thingID int64
}

func (v storedValues) Lookup(name string) (string, bool) {
	av, err := v.store.AttributeValue(v.thingID, name)
	if err != nil {
		if !errors.Is(err, campaign.ErrNotFound) {
			logger.Warning("Failed to look up attribute value", "thing_id", v.thingID, "attribute", name, "error", err)
		}
		return "", false
	}
	return av.Value, true
}
