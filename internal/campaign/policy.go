package campaign

import "strings"

// Aggregation pulls grandchildren of Kind, found under children of Via, up into
// direct children.
type Aggregation struct {
	Via  string
	Kind string
}

// KindPolicy holds the kind-specific behaviour of generation and renaming.
type KindPolicy struct {
	// NameSource is the attribute whose value records name provenance.
	// Empty means the generator template name is recorded.
	NameSource string

	// Aggregate lists grandchildren pulled up when a child is linked.
	Aggregate []Aggregation

	// MemberAttribute names a member child by name (a faction's Leader).
	MemberAttribute string
	// MemberKind is the kind of thing MemberAttribute names.
	MemberKind string
	// MemberDescriptor is the member's attribute that mentions this thing's name.
	MemberDescriptor string

	// NameParent is the kind of parent used for ${parent.x} when re-rolling names.
	NameParent string

	// RenameParents renames parents whose name contains this thing's old name.
	RenameParents bool
	// RenameChildren renames children whose name contains this thing's old name.
	RenameChildren bool
}

// Policies is the per-kind policy table.
var Policies = map[string]KindPolicy{
	KindLocation: {
		Aggregate:        []Aggregation{{Via: KindFaction, Kind: KindNPC}},
		MemberAttribute:  "Ruler",
		MemberKind:       KindNPC,
		MemberDescriptor: "Occupation",
		NameParent:       KindLocation,
		RenameChildren:   true,
	},
	KindFaction: {
		MemberAttribute:  "Leader",
		MemberKind:       KindNPC,
		MemberDescriptor: "Occupation",
		NameParent:       KindLocation,
	},
	KindNPC: {
		NameSource:    "Race",
		NameParent:    KindLocation,
		RenameParents: true,
	},
	KindItem: {NameParent: KindLocation},
	KindNote: {NameParent: KindLocation},
}

// PolicyFor returns the policy of a kind (case-insensitive). Unknown kinds get
// the zero policy.
func PolicyFor(kind string) KindPolicy {
	if p, ok := Policies[kind]; ok {
		return p
	}
	for k, p := range Policies {
		if strings.EqualFold(k, kind) {
			return p
		}
	}
	return KindPolicy{}
}
