package database

import (
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
	"github.com/milocarbol/dndcampaign/internal/generator"
)

var _ generator.Store = (*Database)(nil)
var _ catalog.SettingsWriter = (*Database)(nil)

const dualSettingsYAML = `
kinds:
  - name: Location
    attributes:
      - name: Ruler
        is_thing: true
      - name: Name Randomizer
    randomizers:
      - name: Name
        categories:
          - name: Village
            must_be_unique: true
            options: [Hommlet, Nulb]
  - name: NPC
    attributes:
      - name: Race
        value_kind: enumerated
      - name: Occupation
      - name: Name Randomizer
    randomizers:
      - name: Race
        options: [Elf, Human, Dwarf]
      - name: Name
        category_parameter: Race
        must_be_unique: true
        categories:
          - name: Human
            options: [Burne, Rufus]
          - name: Elf
            use_values_from: [Human]
          - name: Dwarf
            options: [Jaroo]
      - name: Occupation
        options: ["Mayor of ${parent.name}"]
      - name: Rumours
        can_randomize_later: true
        max_options_to_use: 2
        options: [Owes the miller money]
generators:
  - name: Village
    kind: Location
    mappings: ["name: Name.Village"]
    contains: ["NPC.Mayor"]
  - name: Person
    kind: NPC
    mappings: ["name: Name"]
  - name: Mayor
    kind: NPC
    inherit_settings_from: Person
    attribute_for_container: Ruler
    mappings: ["Occupation", "Rumours"]
weight_presets:
  - name: Elvish
    attribute_name: Race
    is_active: true
    weights: {Elf: 3, Human: 1}
  - name: Stout
    attribute_name: Race
    weights: {Dwarf: 1}
`

// getDualTestDatabases returns both SQLite and PostgreSQL databases for testing.
// If PostgreSQL is not available, it returns only SQLite.
func getDualTestDatabases(t *testing.T) map[string]*Database {
	dbs := make(map[string]*Database)

	// Always include SQLite
	sqliteDB, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite database: %v", err)
	}
	dbs["sqlite"] = sqliteDB

	// Include PostgreSQL if available
	if pgConfig := getPostgresTestConfig(); pgConfig != nil {
		pgDB, err := OpenWithConfig(*pgConfig)
		if err != nil {
			t.Logf("PostgreSQL not available: %v", err)
		} else {
			clearTables(pgDB)
			dbs["postgres"] = pgDB
		}
	}

	t.Cleanup(func() {
		for name, db := range dbs {
			if name == "postgres" {
				clearTables(db)
			}
			db.Close()
		}
	})

	return dbs
}

func clearTables(db *Database) {
	for _, table := range allTables {
		db.db.Exec("DELETE FROM " + table)
	}
}

// seed creates the active campaign and imports the test settings.
func seed(t *testing.T, db *Database) *campaign.Campaign {
	t.Helper()
	c, err := db.CreateCampaign("Temple of Elemental Evil")
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}
	settings, err := catalog.ParseSettings([]byte(dualSettingsYAML))
	if err != nil {
		t.Fatalf("ParseSettings failed: %v", err)
	}
	if err := db.ImportSettings(settings, c.ID); err != nil {
		t.Fatalf("ImportSettings failed: %v", err)
	}
	return c
}

func TestDual_ImportedCatalogLookups(t *testing.T) {
	for name, db := range getDualTestDatabases(t) {
		t.Run(name, func(t *testing.T) {
			c := seed(t, db)

			attr, err := db.RandomizerAttribute("npc", "NAME")
			if err != nil {
				t.Fatalf("RandomizerAttribute failed: %v", err)
			}
			if attr.Kind != campaign.KindNPC || attr.Name != "Name" || attr.CategoryParameter != "Race" || !attr.MustBeUnique {
				t.Errorf("RandomizerAttribute = %+v", attr)
			}

			categories, err := db.Categories(attr.ID)
			if err != nil {
				t.Fatalf("Categories failed: %v", err)
			}
			var names []string
			for _, cat := range categories {
				names = append(names, cat.Name)
			}
			if len(names) != 3 || names[0] != "Dwarf" || names[1] != "Elf" || names[2] != "Human" {
				t.Errorf("Categories = %v, want ordered by name", names)
			}

			elf, err := db.Category(attr.ID, "elf")
			if err != nil {
				t.Fatalf("Category failed: %v", err)
			}
			if elf.AttributeName != "Name" || len(elf.UseValuesFrom) != 1 || elf.UseValuesFrom[0] != "Human" {
				t.Errorf("Category(elf) = %+v", elf)
			}
			human, _ := db.Category(attr.ID, "Human")
			options, err := db.CategoryOptions(human.ID)
			if err != nil {
				t.Fatalf("CategoryOptions failed: %v", err)
			}
			if len(options) != 2 || options[0] != "Burne" || options[1] != "Rufus" {
				t.Errorf("CategoryOptions = %v", options)
			}
			if _, err := db.Category(attr.ID, "Halfling"); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("Category(Halfling) error = %v, want ErrNotFound", err)
			}

			race, _ := db.RandomizerAttribute("NPC", "race")
			raceOptions, err := db.AttributeOptions(race.ID)
			if err != nil {
				t.Fatalf("AttributeOptions failed: %v", err)
			}
			if len(raceOptions) != 3 {
				t.Errorf("AttributeOptions = %v", raceOptions)
			}

			preset, err := db.ActiveWeightPreset(c.ID, "race")
			if err != nil {
				t.Fatalf("ActiveWeightPreset failed: %v", err)
			}
			if preset == nil || preset.Name != "Elvish" || preset.WeightFor("elf") != 3 || preset.WeightFor("Dwarf") != 0 {
				t.Errorf("ActiveWeightPreset = %+v", preset)
			}
			if none, err := db.ActiveWeightPreset(c.ID, "Occupation"); err != nil || none != nil {
				t.Errorf("ActiveWeightPreset(Occupation) = %+v, %v; want nil, nil", none, err)
			}

			if err := db.ActivateWeightPreset(c.ID, "stout"); err != nil {
				t.Fatalf("ActivateWeightPreset failed: %v", err)
			}
			preset, _ = db.ActiveWeightPreset(c.ID, "Race")
			if preset == nil || preset.Name != "Stout" {
				t.Errorf("active preset after activation = %+v, want Stout", preset)
			}
			if err := db.ActivateWeightPreset(c.ID, "Gnomish"); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("ActivateWeightPreset(Gnomish) error = %v, want ErrNotFound", err)
			}

			if _, err := db.Attribute("location", "ruler"); err != nil {
				t.Errorf("Attribute(location, ruler) failed: %v", err)
			}
			if _, err := db.Attribute("Location", "Mayor"); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("Attribute(Location, Mayor) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDual_ImportedGenerators(t *testing.T) {
	for name, db := range getDualTestDatabases(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, db)

			mayor, err := db.GeneratorObject("npc", "mayor")
			if err != nil {
				t.Fatalf("GeneratorObject failed: %v", err)
			}
			person, err := db.GeneratorObject("NPC", "Person")
			if err != nil {
				t.Fatalf("GeneratorObject failed: %v", err)
			}
			if mayor.InheritSettingsFrom != person.ID || mayor.AttributeForContainer != "Ruler" {
				t.Errorf("Mayor = %+v", mayor)
			}

			mappings, err := db.FieldMappings(mayor.ID)
			if err != nil {
				t.Fatalf("FieldMappings failed: %v", err)
			}
			if len(mappings) != 2 || mappings[0].Attribute == nil || mappings[0].Attribute.Name != "Occupation" {
				t.Fatalf("FieldMappings = %+v", mappings)
			}

			village, _ := db.GeneratorObject("Location", "Village")
			villageMappings, err := db.FieldMappings(village.ID)
			if err != nil {
				t.Fatalf("FieldMappings failed: %v", err)
			}
			if len(villageMappings) != 1 || villageMappings[0].FieldName != "name" ||
				villageMappings[0].Category == nil || villageMappings[0].Category.Name != "Village" {
				t.Errorf("Village mappings = %+v", villageMappings)
			}

			contains, err := db.Containment(village.ID)
			if err != nil {
				t.Fatalf("Containment failed: %v", err)
			}
			if len(contains) != 1 || contains[0].ContainedID != mayor.ID || contains[0].MinObjects != 1 || contains[0].MaxObjects != 1 {
				t.Errorf("Containment = %+v", contains)
			}

			all, err := db.GeneratorObjects("")
			if err != nil {
				t.Fatalf("GeneratorObjects failed: %v", err)
			}
			if len(all) != 3 || all[0].Name != "Village" || all[1].Name != "Mayor" || all[2].Name != "Person" {
				t.Errorf("GeneratorObjects = %v", all)
			}
			npcs, _ := db.GeneratorObjects("npc")
			if len(npcs) != 2 {
				t.Errorf("GeneratorObjects(npc) = %v", npcs)
			}

			if err := db.SetGeneratorInheritance(mayor.ID, 9999); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("SetGeneratorInheritance to unknown error = %v, want ErrNotFound", err)
			}
			if err := db.SetGeneratorInheritance(mayor.ID, 0); err != nil {
				t.Fatalf("SetGeneratorInheritance clear failed: %v", err)
			}
			mayor, _ = db.GeneratorObjectByID(mayor.ID)
			if mayor.InheritSettingsFrom != 0 {
				t.Errorf("InheritSettingsFrom = %d after clearing", mayor.InheritSettingsFrom)
			}
		})
	}
}

func TestDual_ThingNamesAreExactAndUnique(t *testing.T) {
	for name, db := range getDualTestDatabases(t) {
		t.Run(name, func(t *testing.T) {
			c := seed(t, db)

			burne := &campaign.Thing{CampaignID: c.ID, Kind: campaign.KindNPC, Name: "Burne"}
			if err := db.CreateThing(burne); err != nil {
				t.Fatalf("CreateThing failed: %v", err)
			}
			if burne.ID == 0 {
				t.Error("CreateThing did not assign an ID")
			}

			err := db.CreateThing(&campaign.Thing{CampaignID: c.ID, Kind: campaign.KindLocation, Name: "Burne"})
			if !errors.Is(err, campaign.ErrDuplicateName) {
				t.Errorf("duplicate CreateThing error = %v, want ErrDuplicateName", err)
			}

			if exists, _ := db.ThingNameExists(c.ID, "burne"); exists {
				t.Error("ThingNameExists should match names exactly")
			}
			if exists, _ := db.ThingNameExists(c.ID, "Burne"); !exists {
				t.Error("ThingNameExists(Burne) = false")
			}

			if _, err := db.ThingByName(c.ID, "npc", "Burne"); err != nil {
				t.Errorf("ThingByName with folded kind failed: %v", err)
			}
			if _, err := db.ThingByName(c.ID, campaign.KindLocation, "Burne"); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("ThingByName wrong kind error = %v, want ErrNotFound", err)
			}

			rufus := &campaign.Thing{CampaignID: c.ID, Kind: campaign.KindNPC, Name: "Rufus"}
			if err := db.CreateThing(rufus); err != nil {
				t.Fatalf("CreateThing failed: %v", err)
			}
			rufus.Name = "Burne"
			if err := db.UpdateThing(rufus); !errors.Is(err, campaign.ErrDuplicateName) {
				t.Errorf("UpdateThing to taken name error = %v, want ErrDuplicateName", err)
			}
			rufus.Name = "Rufus"
			rufus.Description = "Captain of the guard"
			rufus.IsBookmarked = true
			if err := db.UpdateThing(rufus); err != nil {
				t.Fatalf("UpdateThing failed: %v", err)
			}
			got, err := db.ThingByID(rufus.ID)
			if err != nil {
				t.Fatalf("ThingByID failed: %v", err)
			}
			if *got != *rufus {
				t.Errorf("ThingByID = %+v, want %+v", got, rufus)
			}
			if err := db.UpdateThing(&campaign.Thing{ID: 9999, CampaignID: c.ID, Name: "Ghost"}); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("UpdateThing unknown error = %v, want ErrNotFound", err)
			}

			things, err := db.Things(c.ID)
			if err != nil {
				t.Fatalf("Things failed: %v", err)
			}
			if len(things) != 2 || things[0].ID != burne.ID {
				t.Errorf("Things = %v", things)
			}
		})
	}
}

func TestDual_AttributeValuesUpsert(t *testing.T) {
	for name, db := range getDualTestDatabases(t) {
		t.Run(name, func(t *testing.T) {
			c := seed(t, db)

			npc := &campaign.Thing{CampaignID: c.ID, Kind: campaign.KindNPC, Name: "Jaroo"}
			if err := db.CreateThing(npc); err != nil {
				t.Fatalf("CreateThing failed: %v", err)
			}
			race, err := db.Attribute(campaign.KindNPC, "Race")
			if err != nil {
				t.Fatalf("Attribute failed: %v", err)
			}

			if err := db.SetAttributeValue(npc.ID, race.ID, "Human"); err != nil {
				t.Fatalf("SetAttributeValue failed: %v", err)
			}
			if err := db.SetAttributeValue(npc.ID, race.ID, "Elf"); err != nil {
				t.Fatalf("SetAttributeValue update failed: %v", err)
			}

			v, err := db.AttributeValue(npc.ID, "RACE")
			if err != nil {
				t.Fatalf("AttributeValue failed: %v", err)
			}
			if v.Value != "Elf" || v.AttributeName != "Race" {
				t.Errorf("AttributeValue = %+v", v)
			}
			values, err := db.AttributeValues(npc.ID)
			if err != nil {
				t.Fatalf("AttributeValues failed: %v", err)
			}
			if len(values) != 1 {
				t.Errorf("AttributeValues = %v, want one row after upsert", values)
			}

			if err := db.SetAttributeValue(9999, race.ID, "Elf"); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("SetAttributeValue unknown thing error = %v, want ErrNotFound", err)
			}
			if err := db.SetAttributeValue(npc.ID, 9999, "Elf"); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("SetAttributeValue unknown attribute error = %v, want ErrNotFound", err)
			}
			if _, err := db.AttributeValue(npc.ID, "Occupation"); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("AttributeValue unset error = %v, want ErrNotFound", err)
			}

			if _, err := db.AddRandomAttribute(npc.ID, "Hides in the moathouse"); err != nil {
				t.Fatalf("AddRandomAttribute failed: %v", err)
			}
			if _, err := db.AddRandomAttribute(npc.ID, "Fears the temple"); err != nil {
				t.Fatalf("AddRandomAttribute failed: %v", err)
			}
			lines, err := db.RandomAttributes(npc.ID)
			if err != nil {
				t.Fatalf("RandomAttributes failed: %v", err)
			}
			if len(lines) != 2 || lines[0].Text != "Hides in the moathouse" {
				t.Errorf("RandomAttributes = %v", lines)
			}
		})
	}
}

func TestDual_ChildrenAndParents(t *testing.T) {
	for name, db := range getDualTestDatabases(t) {
		t.Run(name, func(t *testing.T) {
			c := seed(t, db)

			village := &campaign.Thing{CampaignID: c.ID, Kind: campaign.KindLocation, Name: "Hommlet"}
			inn := &campaign.Thing{CampaignID: c.ID, Kind: campaign.KindLocation, Name: "Welcome Wench"}
			npc := &campaign.Thing{CampaignID: c.ID, Kind: campaign.KindNPC, Name: "Ostler"}
			for _, th := range []*campaign.Thing{village, inn, npc} {
				if err := db.CreateThing(th); err != nil {
					t.Fatalf("CreateThing failed: %v", err)
				}
			}
			for _, link := range [][2]int64{{village.ID, inn.ID}, {village.ID, npc.ID}, {inn.ID, npc.ID}, {village.ID, npc.ID}} {
				if err := db.AddChild(link[0], link[1]); err != nil {
					t.Fatalf("AddChild failed: %v", err)
				}
			}

			children, err := db.Children(village.ID, "")
			if err != nil {
				t.Fatalf("Children failed: %v", err)
			}
			if len(children) != 2 {
				t.Errorf("Children = %v, want 2 after duplicate link", children)
			}
			npcs, _ := db.Children(village.ID, "npc")
			if len(npcs) != 1 || npcs[0].ID != npc.ID {
				t.Errorf("Children(npc) = %v", npcs)
			}
			parents, err := db.Parents(npc.ID, campaign.KindLocation)
			if err != nil {
				t.Fatalf("Parents failed: %v", err)
			}
			if len(parents) != 2 || parents[0].ID != village.ID || parents[1].ID != inn.ID {
				t.Errorf("Parents = %v", parents)
			}
			if err := db.AddChild(village.ID, 9999); !errors.Is(err, campaign.ErrNotFound) {
				t.Errorf("AddChild unknown error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDual_GenerateVillageAndRenameMayor(t *testing.T) {
	for name, db := range getDualTestDatabases(t) {
		t.Run(name, func(t *testing.T) {
			c := seed(t, db)
			gen := generator.New(db, rand.New(rand.NewSource(7)), generator.DefaultOptions())

			tmpl, err := db.GeneratorObject(campaign.KindLocation, "Village")
			if err != nil {
				t.Fatalf("GeneratorObject failed: %v", err)
			}
			village, err := gen.Generate(tmpl, c, nil)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if village.Name != "Hommlet" && village.Name != "Nulb" {
				t.Errorf("village name = %q", village.Name)
			}

			children, err := db.Children(village.ID, campaign.KindNPC)
			if err != nil || len(children) != 1 {
				t.Fatalf("Children = %v, %v; want one mayor", children, err)
			}
			mayor := children[0]
			ruler, err := db.AttributeValue(village.ID, "Ruler")
			if err != nil {
				t.Fatalf("AttributeValue(Ruler) failed: %v", err)
			}
			if ruler.Value != mayor.Name {
				t.Errorf("Ruler = %q, want %q", ruler.Value, mayor.Name)
			}
			occupation, err := db.AttributeValue(mayor.ID, "Occupation")
			if err != nil {
				t.Fatalf("AttributeValue(Occupation) failed: %v", err)
			}
			if occupation.Value != "Mayor of "+village.Name {
				t.Errorf("Occupation = %q", occupation.Value)
			}
			if lines, _ := db.RandomAttributes(mayor.ID); len(lines) < 1 || len(lines) > 2 {
				t.Errorf("mayor has %d rumours, want 1 or 2", len(lines))
			}

			if err := gen.UpdateName(&mayor, "Elmo"); err != nil {
				t.Fatalf("UpdateName failed: %v", err)
			}
			ruler, _ = db.AttributeValue(village.ID, "Ruler")
			if ruler.Value != "Elmo" {
				t.Errorf("Ruler after rename = %q, want Elmo", ruler.Value)
			}
			if _, err := db.ThingByName(c.ID, campaign.KindNPC, "Elmo"); err != nil {
				t.Errorf("renamed mayor not found: %v", err)
			}
		})
	}
}
