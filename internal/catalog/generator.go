package catalog

import "fmt"

// GeneratorObject is a template for generating one thing of a kind.
type GeneratorObject struct {
	ID   int64
	Kind string
	Name string
	// InheritSettingsFrom is the ID of the template whose mappings fill in the
	// slots this one does not override. 0 means none.
	InheritSettingsFrom int64
	// AttributeForContainer names the attribute a container records this
	// template's generated thing under.
	AttributeForContainer string
}

func (g *GeneratorObject) String() string {
	return fmt.Sprintf("%s.%s", g.Kind, g.Name)
}

// Contains declares how many things of another template a template contains.
// A non-zero PercentChanceForOne yields zero or one; otherwise the count is
// uniform in [MinObjects, MaxObjects].
type Contains struct {
	ID                  int64
	GeneratorObjectID   int64
	ContainedID         int64
	PercentChanceForOne int
	MinObjects          int
	MaxObjects          int
}

// FieldMapping maps a literal field, a whole randomizer attribute, or one
// category onto a generated thing. At most one of Attribute and Category is set.
type FieldMapping struct {
	ID                int64
	GeneratorObjectID int64
	FieldName         string
	Attribute         *RandomizerAttribute
	Category          *Category
}

// Overrides reports whether m fills the same slot as other: same field name,
// same randomizer attribute, or categories of the same randomizer attribute.
func (m *FieldMapping) Overrides(other *FieldMapping) bool {
	if m.FieldName != "" && m.FieldName == other.FieldName {
		return true
	}
	if m.Attribute != nil && other.Attribute != nil && m.Attribute.ID == other.Attribute.ID {
		return true
	}
	if m.Category != nil && other.Category != nil && m.Category.AttributeID == other.Category.AttributeID {
		return true
	}
	return false
}

// Target returns the randomizer attribute name the mapping draws from.
func (m *FieldMapping) Target() string {
	switch {
	case m.Attribute != nil:
		return m.Attribute.Name
	case m.Category != nil:
		return m.Category.AttributeName
	}
	return ""
}

func (m *FieldMapping) String() string {
	prefix := ""
	if m.FieldName != "" {
		prefix = m.FieldName + ": "
	}
	switch {
	case m.Category != nil:
		return fmt.Sprintf("%s%s.%s", prefix, m.Category.AttributeName, m.Category.Name)
	case m.Attribute != nil:
		return prefix + m.Attribute.Name
	}
	return m.FieldName
}
