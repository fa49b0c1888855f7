package campaign

// ValueKind describes how an attribute's value is edited.
type ValueKind string

const (
	// ValueFreeText is typed by hand.
	ValueFreeText ValueKind = "free_text"
	// ValueEnumerated is chosen from the attribute's randomizer options.
	ValueEnumerated ValueKind = "enumerated"
)

// NameRandomizerAttribute records which randomizer category produced a thing's
// name so the name can be re-rolled later.
const NameRandomizerAttribute = "Name Randomizer"

// Attribute is a named slot defined per kind.
type Attribute struct {
	ID               int64
	Kind             string
	Name             string
	DisplayInSummary bool
	Editable         bool
	IsThing          bool // value names another thing
	ValueKind        ValueKind
}

// AttributeValue is the value of one attribute on one thing.
type AttributeValue struct {
	ThingID       int64
	AttributeID   int64
	AttributeName string
	Value         string
}

// RandomAttribute is a free-standing generated line attached to a thing
// (rumours, hooks). A thing may have any number of them.
type RandomAttribute struct {
	ID      int64
	ThingID int64
	Text    string
}
