package database

import (
	"math/rand"
	"testing"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/generator"
)

func TestTableNamesCoverSchema(t *testing.T) {
	names := TableNames()
	if len(names) != len(allTables) {
		t.Fatalf("TableNames has %d tables, want %d", len(names), len(allTables))
	}
	for i, name := range names {
		if want := allTables[len(allTables)-1-i]; name != want {
			t.Errorf("TableNames()[%d] = %q, want %q", i, name, want)
		}
	}
}

func tableCount(t *testing.T, db *Database, table string) int64 {
	t.Helper()
	var n int64
	if err := db.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestCopyTo(t *testing.T) {
	src := openTestDB(t)
	c := seed(t, src)
	gen := generator.New(src, rand.New(rand.NewSource(11)), generator.DefaultOptions())
	tmpl, err := src.GeneratorObject(campaign.KindLocation, "Village")
	if err != nil {
		t.Fatalf("GeneratorObject failed: %v", err)
	}
	if _, err := gen.Generate(tmpl, c, nil); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for name, dst := range getDualTestDatabases(t) {
		t.Run(name, func(t *testing.T) {
			dry, err := src.CopyTo(dst, true)
			if err != nil {
				t.Fatalf("dry run failed: %v", err)
			}
			for _, r := range dry {
				if r.Written != 0 {
					t.Errorf("dry run wrote %d rows to %s", r.Written, r.Table)
				}
				if got := tableCount(t, dst, r.Table); got != 0 {
					t.Errorf("dry run left %d rows in %s", got, r.Table)
				}
			}

			results, err := src.CopyTo(dst, false)
			if err != nil {
				t.Fatalf("CopyTo failed: %v", err)
			}
			for _, r := range results {
				want := tableCount(t, src, r.Table)
				if r.Read != want || r.Written != want {
					t.Errorf("%s: read %d written %d, want %d", r.Table, r.Read, r.Written, want)
				}
				if got := tableCount(t, dst, r.Table); got != want {
					t.Errorf("%s has %d rows after copy, want %d", r.Table, got, want)
				}
			}

			mayor, err := dst.GeneratorObject(campaign.KindNPC, "Mayor")
			if err != nil {
				t.Fatalf("GeneratorObject(Mayor) failed: %v", err)
			}
			person, err := dst.GeneratorObject(campaign.KindNPC, "Person")
			if err != nil {
				t.Fatalf("GeneratorObject(Person) failed: %v", err)
			}
			if mayor.InheritSettingsFrom != person.ID {
				t.Errorf("Mayor inherits from %d, want %d", mayor.InheritSettingsFrom, person.ID)
			}

			again, err := src.CopyTo(dst, false)
			if err != nil {
				t.Fatalf("second CopyTo failed: %v", err)
			}
			for _, r := range again {
				if r.Written != 0 {
					t.Errorf("second copy wrote %d rows to %s", r.Written, r.Table)
				}
			}

			// New ids must not collide with copied ones.
			thing := &campaign.Thing{CampaignID: c.ID, Kind: campaign.KindNote, Name: "Session 1"}
			if err := dst.CreateThing(thing); err != nil {
				t.Fatalf("CreateThing after copy failed: %v", err)
			}
		})
	}
}
