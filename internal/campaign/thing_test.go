package campaign

import "testing"

func TestThingField(t *testing.T) {
	thing := &Thing{Name: "Oakhollow", Description: "A quiet village", CurrentState: "Flooded"}

	tests := []struct {
		field string
		want  string
		ok    bool
	}{
		{"name", "Oakhollow", true},
		{"Name", "Oakhollow", true},
		{"description", "A quiet village", true},
		{"background", "", true},
		{"current_state", "Flooded", true},
		{"population", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := thing.Field(tt.field)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Field(%q) = %q, %v; want %q, %v", tt.field, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestThingSetField(t *testing.T) {
	thing := &Thing{}

	if !thing.SetField("NAME", "Millbrook") {
		t.Fatal("SetField(NAME) returned false")
	}
	if thing.Name != "Millbrook" {
		t.Errorf("Name = %q, want %q", thing.Name, "Millbrook")
	}
	if !thing.SetField("background", "Founded by millers") {
		t.Fatal("SetField(background) returned false")
	}
	if thing.Background != "Founded by millers" {
		t.Errorf("Background = %q", thing.Background)
	}
	if thing.SetField("ruler", "Bob") {
		t.Error("SetField(ruler) should report false for an unknown field")
	}
}

func TestPolicyFor(t *testing.T) {
	if got := PolicyFor("npc").NameSource; got != "Race" {
		t.Errorf("PolicyFor(npc).NameSource = %q, want Race", got)
	}
	loc := PolicyFor(KindLocation)
	if len(loc.Aggregate) != 1 || loc.Aggregate[0].Via != KindFaction || loc.Aggregate[0].Kind != KindNPC {
		t.Errorf("Location aggregation = %+v", loc.Aggregate)
	}
	if p := PolicyFor("Dragon"); p.NameSource != "" || len(p.Aggregate) != 0 {
		t.Errorf("unknown kind should get zero policy, got %+v", p)
	}
}

func TestPolicyMembers(t *testing.T) {
	for _, kind := range []string{KindLocation, KindFaction} {
		p := PolicyFor(kind)
		if p.MemberKind != KindNPC || p.MemberDescriptor != "Occupation" {
			t.Errorf("PolicyFor(%s) members = %q/%q", kind, p.MemberKind, p.MemberDescriptor)
		}
	}
	if !PolicyFor(KindNPC).RenameParents || PolicyFor(KindNPC).RenameChildren {
		t.Error("NPC renames should reach parents only")
	}
}
