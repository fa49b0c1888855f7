package vars

import (
	"reflect"
	"testing"

	"github.com/milocarbol/dndcampaign/internal/campaign"
)

func TestExpand(t *testing.T) {
	parent := Thing{
		Thing:      &campaign.Thing{Name: "Neverwinter", Description: "A city of skilled artisans"},
		Attributes: Attributes{{Name: "Ruler", Value: "Lord Neverember"}},
	}

	tests := []struct {
		name     string
		template string
		scope    Scope
		want     string
	}{
		{
			name:     "field and attribute",
			template: "${race} of ${location}",
			scope: Scope{
				Fields:     Fields{{Name: "race", Value: "Elf"}},
				Attributes: Attributes{{Name: "Location", Value: "Waterdeep"}},
			},
			want: "Elf of Waterdeep",
		},
		{
			name:     "parent literal field",
			template: "${parent.name} Watch",
			scope:    Scope{Parent: parent},
			want:     "Neverwinter Watch",
		},
		{
			name:     "parent attribute value",
			template: "Sworn to ${parent.ruler}",
			scope:    Scope{Parent: parent},
			want:     "Sworn to Lord Neverember",
		},
		{
			name:     "scope keyword is case-insensitive",
			template: "${Parent.name}",
			scope:    Scope{Parent: parent},
			want:     "Neverwinter",
		},
		{
			name:     "no parent leaves placeholder",
			template: "${parent.name} Watch",
			scope:    Scope{},
			want:     "${parent.name} Watch",
		},
		{
			name:     "unknown scope leaves placeholder",
			template: "${child.name}",
			scope:    Scope{Parent: parent},
			want:     "${child.name}",
		},
		{
			name:     "missing parent attribute leaves placeholder",
			template: "${parent.motto}",
			scope:    Scope{Parent: parent},
			want:     "${parent.motto}",
		},
		{
			name:     "unresolved name stays verbatim",
			template: "The ${adjective} Inn",
			scope:    Scope{Fields: Fields{{Name: "noun", Value: "Griffon"}}},
			want:     "The ${adjective} Inn",
		},
		{
			name:     "fields win over attributes",
			template: "${title}",
			scope: Scope{
				Fields:     Fields{{Name: "title", Value: "field"}},
				Attributes: Attributes{{Name: "title", Value: "attribute"}},
			},
			want: "field",
		},
		{
			name:     "repeated placeholder",
			template: "${name} son of ${name}",
			scope:    Scope{Fields: Fields{{Name: "name", Value: "Bruenor"}}},
			want:     "Bruenor son of Bruenor",
		},
		{
			name:     "no placeholders",
			template: "Oakhollow",
			scope:    Scope{},
			want:     "Oakhollow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.template, tt.scope); got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

// Staged fields match by exact name while attribute values ignore case.
func TestExpandNameMatching(t *testing.T) {
	scope := Scope{
		Fields:     Fields{{Name: "race", Value: "Elf"}},
		Attributes: Attributes{{Name: "Location", Value: "Waterdeep"}},
	}

	if got := Expand("${Race}", scope); got != "${Race}" {
		t.Errorf("Expand(${Race}) = %q, want field lookup to be case-sensitive", got)
	}
	if got := Expand("${LOCATION}", scope); got != "Waterdeep" {
		t.Errorf("Expand(${LOCATION}) = %q, want attribute lookup to ignore case", got)
	}
}

func TestExpandIdempotent(t *testing.T) {
	scope := Scope{Fields: Fields{{Name: "race", Value: "Dwarf"}}}
	once := Expand("${race} smith", scope)
	if twice := Expand(once, scope); twice != once {
		t.Errorf("second Expand changed %q to %q", once, twice)
	}
}

func TestExpandSeesInPlaceUpdates(t *testing.T) {
	first := &Pair{Name: "title", Value: "${race} Captain"}
	second := &Pair{Name: "name", Value: "${title} Vex"}
	fields := Fields{first, second}
	scope := Scope{Fields: fields, Attributes: Attributes{{Name: "Race", Value: "Tiefling"}}}

	first.Value = Expand(first.Value, scope)
	second.Value = Expand(second.Value, scope)

	if second.Value != "Tiefling Captain Vex" {
		t.Errorf("name = %q, want %q", second.Value, "Tiefling Captain Vex")
	}
}

func TestVariables(t *testing.T) {
	got := Variables("${first} and ${parent.name} and ${first}")
	want := []string{"first", "parent.name", "first"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Variables = %v, want %v", got, want)
	}
	if got := Variables("plain"); got != nil {
		t.Errorf("Variables(plain) = %v, want nil", got)
	}
}

func TestContainsAndReplace(t *testing.T) {
	name := "House of ${Leader}"
	if !Contains(name, "Leader") {
		t.Fatalf("Contains(%q, Leader) = false", name)
	}
	if Contains(name, "leader") {
		t.Errorf("Contains should match the exact placeholder name")
	}
	if got := Replace(name, "Leader", "Valen"); got != "House of Valen" {
		t.Errorf("Replace = %q, want %q", got, "House of Valen")
	}
}
