// Package campaign holds the campaign wiki entities the generator reads and writes.
package campaign

import "strings"

// Built-in kinds.
const (
	KindLocation = "Location"
	KindFaction  = "Faction"
	KindNPC      = "NPC"
	KindItem     = "Item"
	KindNote     = "Note"
)

// Literal field names addressable from generator mappings and ${...} placeholders.
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldBackground   = "background"
	FieldCurrentState = "current_state"
)

// Campaign scopes every generated thing.
type Campaign struct {
	ID       int64
	Name     string
	IsActive bool
}

// Thing is a wiki entity: a location, faction, NPC, item or note.
type Thing struct {
	ID           int64
	CampaignID   int64
	Kind         string
	Name         string
	Description  string
	Background   string
	CurrentState string
	IsBookmarked bool
}

// Field returns the literal field with the given name (case-insensitive).
func (t *Thing) Field(name string) (string, bool) {
	switch strings.ToLower(name) {
	case FieldName:
		return t.Name, true
	case FieldDescription:
		return t.Description, true
	case FieldBackground:
		return t.Background, true
	case FieldCurrentState:
		return t.CurrentState, true
	}
	return "", false
}

// SetField sets a literal field by name. It reports false for unknown fields.
func (t *Thing) SetField(name, value string) bool {
	switch strings.ToLower(name) {
	case FieldName:
		t.Name = value
	case FieldDescription:
		t.Description = value
	case FieldBackground:
		t.Background = value
	case FieldCurrentState:
		t.CurrentState = value
	default:
		return false
	}
	return true
}

// IsKind reports whether the thing is of the given kind (case-insensitive).
func (t *Thing) IsKind(kind string) bool {
	return strings.EqualFold(t.Kind, kind)
}

func (t *Thing) String() string {
	return t.Name
}
