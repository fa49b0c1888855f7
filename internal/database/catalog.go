package database

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (d *Database) insertInto(ex execer, query string, args ...any) (int64, error) {
	if d.dialect.SupportsLastInsertID() {
		result, err := ex.Exec(d.qb.Build(query), args...)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	}
	var id int64
	err := ex.QueryRow(d.qb.BuildWithReturning(query, "id"), args...).Scan(&id)
	return id, err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// CreateAttribute adds an attribute definition.
func (d *Database) CreateAttribute(a *campaign.Attribute) error {
	if a.ValueKind == "" {
		a.ValueKind = campaign.ValueFreeText
	}
	id, err := d.insert(
		`INSERT INTO attributes (kind, name, display_in_summary, editable, is_thing, value_kind)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Kind, a.Name, boolInt(a.DisplayInSummary), boolInt(a.Editable), boolInt(a.IsThing), string(a.ValueKind),
	)
	if err != nil {
		return d.wrap(fmt.Sprintf("attribute %s.%s", a.Kind, a.Name), err)
	}
	a.ID = id
	return nil
}

// Attribute returns an attribute definition by kind and name (case-insensitive).
func (d *Database) Attribute(kind, name string) (*campaign.Attribute, error) {
	var a campaign.Attribute
	var summary, editable, isThing int
	var valueKind string
	err := d.queryRow(
		`SELECT id, kind, name, display_in_summary, editable, is_thing, value_kind
		FROM attributes WHERE LOWER(kind) = LOWER(?) AND LOWER(name) = LOWER(?)`,
		kind, name,
	).Scan(&a.ID, &a.Kind, &a.Name, &summary, &editable, &isThing, &valueKind)
	if err != nil {
		return nil, d.wrap(fmt.Sprintf("attribute %s.%s", kind, name), err)
	}
	a.DisplayInSummary = summary != 0
	a.Editable = editable != 0
	a.IsThing = isThing != 0
	a.ValueKind = campaign.ValueKind(valueKind)
	return &a, nil
}

// CreateRandomizerAttribute adds a randomizer attribute with its flat options.
func (d *Database) CreateRandomizerAttribute(a *catalog.RandomizerAttribute, options []string) error {
	what := fmt.Sprintf("randomizer %s.%s", a.Kind, a.Name)

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := d.insertInto(tx,
		`INSERT INTO randomizer_attributes
		(kind, name, concatenate_results, can_randomize_later, must_be_unique, max_options_to_use, category_parameter)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Kind, a.Name, boolInt(a.ConcatenateResults), boolInt(a.CanRandomizeLater), boolInt(a.MustBeUnique),
		a.MaxOptionsToUse, a.CategoryParameter,
	)
	if err != nil {
		return d.wrap(what, err)
	}
	for _, option := range options {
		if _, err := tx.Exec(d.qb.Build("INSERT INTO randomizer_options (attribute_id, name) VALUES (?, ?)"), id, option); err != nil {
			return d.wrap(what, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", what, err)
	}
	a.ID = id
	return nil
}

const randomizerColumns = `id, kind, name, concatenate_results, can_randomize_later, must_be_unique,
	max_options_to_use, category_parameter`

func scanRandomizerAttribute(row scanner) (*catalog.RandomizerAttribute, error) {
	var a catalog.RandomizerAttribute
	var concatenate, later, unique int
	err := row.Scan(&a.ID, &a.Kind, &a.Name, &concatenate, &later, &unique, &a.MaxOptionsToUse, &a.CategoryParameter)
	if err != nil {
		return nil, err
	}
	a.ConcatenateResults = concatenate != 0
	a.CanRandomizeLater = later != 0
	a.MustBeUnique = unique != 0
	return &a, nil
}

// RandomizerAttribute returns a randomizer attribute by kind and name (case-insensitive).
func (d *Database) RandomizerAttribute(kind, name string) (*catalog.RandomizerAttribute, error) {
	a, err := scanRandomizerAttribute(d.queryRow(
		"SELECT "+randomizerColumns+" FROM randomizer_attributes WHERE LOWER(kind) = LOWER(?) AND LOWER(name) = LOWER(?)",
		kind, name,
	))
	if err != nil {
		return nil, d.wrap(fmt.Sprintf("randomizer %s.%s", kind, name), err)
	}
	return a, nil
}

func (d *Database) randomizerAttributeByID(id int64) (*catalog.RandomizerAttribute, error) {
	a, err := scanRandomizerAttribute(d.queryRow(
		"SELECT "+randomizerColumns+" FROM randomizer_attributes WHERE id = ?", id,
	))
	if err != nil {
		return nil, d.wrap(fmt.Sprintf("randomizer %d", id), err)
	}
	return a, nil
}

// CreateCategory adds a category with its options to an existing randomizer attribute.
func (d *Database) CreateCategory(c *catalog.Category, options []string) error {
	attr, err := d.randomizerAttributeByID(c.AttributeID)
	if err != nil {
		return err
	}
	what := fmt.Sprintf("category %s.%s", attr.Name, c.Name)

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := d.insertInto(tx,
		`INSERT INTO randomizer_categories
		(attribute_id, name, show, can_combine_with_self, max_options_to_use, can_randomize_later, must_be_unique)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.AttributeID, c.Name, boolInt(c.Show), boolInt(c.CanCombineWithSelf), c.MaxOptionsToUse,
		boolInt(c.CanRandomizeLater), boolInt(c.MustBeUnique),
	)
	if err != nil {
		return d.wrap(what, err)
	}
	for i, source := range c.UseValuesFrom {
		if _, err := tx.Exec(d.qb.Build(
			"INSERT INTO category_use_values_from (category_id, position, source_name) VALUES (?, ?, ?)"),
			id, i, source); err != nil {
			return d.wrap(what, err)
		}
	}
	for _, option := range options {
		if _, err := tx.Exec(d.qb.Build("INSERT INTO category_options (category_id, name) VALUES (?, ?)"), id, option); err != nil {
			return d.wrap(what, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", what, err)
	}
	c.ID = id
	c.AttributeName = attr.Name
	return nil
}

const categoryQuery = `SELECT c.id, c.attribute_id, a.name, c.name, c.show, c.can_combine_with_self,
	c.max_options_to_use, c.can_randomize_later, c.must_be_unique
	FROM randomizer_categories c JOIN randomizer_attributes a ON a.id = c.attribute_id`

func scanCategory(row scanner) (*catalog.Category, error) {
	var c catalog.Category
	var show, combine, later, unique int
	err := row.Scan(&c.ID, &c.AttributeID, &c.AttributeName, &c.Name, &show, &combine,
		&c.MaxOptionsToUse, &later, &unique)
	if err != nil {
		return nil, err
	}
	c.Show = show != 0
	c.CanCombineWithSelf = combine != 0
	c.CanRandomizeLater = later != 0
	c.MustBeUnique = unique != 0
	return &c, nil
}

func (d *Database) useValuesFrom(categoryID int64) ([]string, error) {
	return d.names("SELECT source_name FROM category_use_values_from WHERE category_id = ? ORDER BY position", categoryID)
}

// names runs a single-column query and collects the strings.
func (d *Database) names(query string, args ...any) ([]string, error) {
	rows, err := d.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (d *Database) category(what, query string, args ...any) (*catalog.Category, error) {
	c, err := scanCategory(d.queryRow(query, args...))
	if err != nil {
		return nil, d.wrap(what, err)
	}
	if c.UseValuesFrom, err = d.useValuesFrom(c.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return c, nil
}

// Categories returns the categories of a randomizer attribute ordered by name.
func (d *Database) Categories(attributeID int64) ([]catalog.Category, error) {
	if _, err := d.randomizerAttributeByID(attributeID); err != nil {
		return nil, err
	}

	rows, err := d.query(categoryQuery+" WHERE c.attribute_id = ?", attributeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	var out []catalog.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, *c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	for i := range out {
		if out[i].UseValuesFrom, err = d.useValuesFrom(out[i].ID); err != nil {
			return nil, fmt.Errorf("category %s: %w", out[i].Name, err)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Category returns one category of a randomizer attribute (case-insensitive).
func (d *Database) Category(attributeID int64, name string) (*catalog.Category, error) {
	return d.category(fmt.Sprintf("category %q of randomizer %d", name, attributeID),
		categoryQuery+" WHERE c.attribute_id = ? AND LOWER(c.name) = LOWER(?)", attributeID, name)
}

func (d *Database) categoryByID(id int64) (*catalog.Category, error) {
	return d.category(fmt.Sprintf("category %d", id), categoryQuery+" WHERE c.id = ?", id)
}

// CategoryOptions returns the options of a category.
func (d *Database) CategoryOptions(categoryID int64) ([]string, error) {
	var exists int
	if err := d.queryRow("SELECT 1 FROM randomizer_categories WHERE id = ?", categoryID).Scan(&exists); err != nil {
		return nil, d.wrap(fmt.Sprintf("category %d", categoryID), err)
	}
	options, err := d.names("SELECT name FROM category_options WHERE category_id = ? ORDER BY id", categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options of category %d: %w", categoryID, err)
	}
	return options, nil
}

// AttributeOptions returns the flat options of a randomizer attribute.
func (d *Database) AttributeOptions(attributeID int64) ([]string, error) {
	if _, err := d.randomizerAttributeByID(attributeID); err != nil {
		return nil, err
	}
	options, err := d.names("SELECT name FROM randomizer_options WHERE attribute_id = ? ORDER BY id", attributeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options of randomizer %d: %w", attributeID, err)
	}
	return options, nil
}

// CreateWeightPreset adds a weight preset. Activating a preset deactivates the
// campaign's other presets for the same attribute.
func (d *Database) CreateWeightPreset(p *catalog.WeightPreset) error {
	what := fmt.Sprintf("weight preset %q", p.Name)

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if p.IsActive {
		if err := d.deactivatePresets(tx, p.CampaignID, p.AttributeName); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
	}
	id, err := d.insertInto(tx,
		"INSERT INTO weight_presets (campaign_id, name, attribute_name, is_active) VALUES (?, ?, ?, ?)",
		p.CampaignID, p.Name, p.AttributeName, boolInt(p.IsActive),
	)
	if err != nil {
		return d.wrap(what, err)
	}
	for i, w := range p.Weights {
		if _, err := tx.Exec(d.qb.Build(
			"INSERT INTO weights (preset_id, position, name, weight) VALUES (?, ?, ?, ?)"),
			id, i, w.Name, w.Weight); err != nil {
			return d.wrap(what, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", what, err)
	}
	p.ID = id
	return nil
}

func (d *Database) deactivatePresets(tx *sql.Tx, campaignID int64, attributeName string) error {
	_, err := tx.Exec(d.qb.Build(
		"UPDATE weight_presets SET is_active = 0 WHERE campaign_id = ? AND LOWER(attribute_name) = LOWER(?)"),
		campaignID, attributeName)
	return err
}

// ActivateWeightPreset makes the named preset the active one for its attribute.
func (d *Database) ActivateWeightPreset(campaignID int64, name string) error {
	what := fmt.Sprintf("weight preset %q", name)

	var id int64
	var attributeName string
	err := d.queryRow(
		"SELECT id, attribute_name FROM weight_presets WHERE campaign_id = ? AND LOWER(name) = LOWER(?) ORDER BY id LIMIT 1",
		campaignID, name,
	).Scan(&id, &attributeName)
	if err != nil {
		return d.wrap(what, err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := d.deactivatePresets(tx, campaignID, attributeName); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if _, err := tx.Exec(d.qb.Build("UPDATE weight_presets SET is_active = 1 WHERE id = ?"), id); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return tx.Commit()
}

// ActiveWeightPreset returns the active preset of a campaign for an attribute,
// or nil when there is none.
func (d *Database) ActiveWeightPreset(campaignID int64, attributeName string) (*catalog.WeightPreset, error) {
	var p catalog.WeightPreset
	var active int
	err := d.queryRow(
		`SELECT id, campaign_id, name, attribute_name, is_active FROM weight_presets
		WHERE campaign_id = ? AND LOWER(attribute_name) = LOWER(?) AND is_active = 1
		ORDER BY id LIMIT 1`,
		campaignID, attributeName,
	).Scan(&p.ID, &p.CampaignID, &p.Name, &p.AttributeName, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query weight preset for %s: %w", attributeName, err)
	}
	p.IsActive = active != 0

	rows, err := d.query("SELECT name, weight FROM weights WHERE preset_id = ? ORDER BY position", p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weights of %q: %w", p.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var w catalog.Weight
		if err := rows.Scan(&w.Name, &w.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan weight: %w", err)
		}
		p.Weights = append(p.Weights, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weights: %w", err)
	}
	return &p, nil
}

// CreateGeneratorObject adds a generator template.
func (d *Database) CreateGeneratorObject(g *catalog.GeneratorObject) error {
	var inherit sql.NullInt64
	if g.InheritSettingsFrom != 0 {
		inherit = sql.NullInt64{Int64: g.InheritSettingsFrom, Valid: true}
	}
	id, err := d.insert(
		"INSERT INTO generator_objects (kind, name, inherit_settings_from, attribute_for_container) VALUES (?, ?, ?, ?)",
		g.Kind, g.Name, inherit, g.AttributeForContainer,
	)
	if err != nil {
		return d.wrap(fmt.Sprintf("generator %s", g), err)
	}
	g.ID = id
	return nil
}

// SetGeneratorInheritance points a template at the template it inherits mappings from.
// An inheritFromID of 0 clears it.
func (d *Database) SetGeneratorInheritance(generatorObjectID, inheritFromID int64) error {
	var inherit sql.NullInt64
	if inheritFromID != 0 {
		if _, err := d.GeneratorObjectByID(inheritFromID); err != nil {
			return err
		}
		inherit = sql.NullInt64{Int64: inheritFromID, Valid: true}
	}
	result, err := d.exec("UPDATE generator_objects SET inherit_settings_from = ? WHERE id = ?", inherit, generatorObjectID)
	if err != nil {
		return d.wrap(fmt.Sprintf("generator %d", generatorObjectID), err)
	}
	return d.mustAffect(fmt.Sprintf("generator %d", generatorObjectID), result)
}

const generatorColumns = "id, kind, name, inherit_settings_from, attribute_for_container"

func scanGeneratorObject(row scanner) (*catalog.GeneratorObject, error) {
	var g catalog.GeneratorObject
	var inherit sql.NullInt64
	if err := row.Scan(&g.ID, &g.Kind, &g.Name, &inherit, &g.AttributeForContainer); err != nil {
		return nil, err
	}
	if inherit.Valid {
		g.InheritSettingsFrom = inherit.Int64
	}
	return &g, nil
}

// GeneratorObject returns a template by kind and name (case-insensitive).
func (d *Database) GeneratorObject(kind, name string) (*catalog.GeneratorObject, error) {
	g, err := scanGeneratorObject(d.queryRow(
		"SELECT "+generatorColumns+" FROM generator_objects WHERE LOWER(kind) = LOWER(?) AND LOWER(name) = LOWER(?)",
		kind, name,
	))
	if err != nil {
		return nil, d.wrap(fmt.Sprintf("generator %s.%s", kind, name), err)
	}
	return g, nil
}

// GeneratorObjectByID returns a template by ID.
func (d *Database) GeneratorObjectByID(id int64) (*catalog.GeneratorObject, error) {
	g, err := scanGeneratorObject(d.queryRow("SELECT "+generatorColumns+" FROM generator_objects WHERE id = ?", id))
	if err != nil {
		return nil, d.wrap(fmt.Sprintf("generator %d", id), err)
	}
	return g, nil
}

// GeneratorObjects returns the templates of a kind ordered by name. An empty
// kind returns all of them.
func (d *Database) GeneratorObjects(kind string) ([]catalog.GeneratorObject, error) {
	query := "SELECT " + generatorColumns + " FROM generator_objects"
	var args []any
	if kind != "" {
		query += " WHERE LOWER(kind) = LOWER(?)"
		args = append(args, kind)
	}
	rows, err := d.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generators: %w", err)
	}
	defer rows.Close()

	var out []catalog.GeneratorObject
	for rows.Next() {
		g, err := scanGeneratorObject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generator: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generators: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// CreateContains adds a containment row.
func (d *Database) CreateContains(c *catalog.Contains) error {
	if _, err := d.GeneratorObjectByID(c.GeneratorObjectID); err != nil {
		return err
	}
	if _, err := d.GeneratorObjectByID(c.ContainedID); err != nil {
		return err
	}
	id, err := d.insert(
		`INSERT INTO generator_contains
		(generator_object_id, contained_id, percent_chance_for_one, min_objects, max_objects)
		VALUES (?, ?, ?, ?, ?)`,
		c.GeneratorObjectID, c.ContainedID, c.PercentChanceForOne, c.MinObjects, c.MaxObjects,
	)
	if err != nil {
		return d.wrap(fmt.Sprintf("contains row of generator %d", c.GeneratorObjectID), err)
	}
	c.ID = id
	return nil
}

// Containment returns the containment rows of a template in creation order.
func (d *Database) Containment(generatorObjectID int64) ([]catalog.Contains, error) {
	rows, err := d.query(
		`SELECT id, generator_object_id, contained_id, percent_chance_for_one, min_objects, max_objects
		FROM generator_contains WHERE generator_object_id = ? ORDER BY id`,
		generatorObjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query containment: %w", err)
	}
	defer rows.Close()

	var out []catalog.Contains
	for rows.Next() {
		var c catalog.Contains
		if err := rows.Scan(&c.ID, &c.GeneratorObjectID, &c.ContainedID, &c.PercentChanceForOne,
			&c.MinObjects, &c.MaxObjects); err != nil {
			return nil, fmt.Errorf("failed to scan contains row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateFieldMapping adds a field mapping.
func (d *Database) CreateFieldMapping(m *catalog.FieldMapping) error {
	if _, err := d.GeneratorObjectByID(m.GeneratorObjectID); err != nil {
		return err
	}
	var attributeID, categoryID sql.NullInt64
	if m.Attribute != nil {
		attributeID = sql.NullInt64{Int64: m.Attribute.ID, Valid: true}
	}
	if m.Category != nil {
		categoryID = sql.NullInt64{Int64: m.Category.ID, Valid: true}
	}
	id, err := d.insert(
		`INSERT INTO generator_mappings (generator_object_id, field_name, randomizer_attribute_id, category_id)
		VALUES (?, ?, ?, ?)`,
		m.GeneratorObjectID, m.FieldName, attributeID, categoryID,
	)
	if err != nil {
		return d.wrap(fmt.Sprintf("mapping of generator %d", m.GeneratorObjectID), err)
	}
	m.ID = id
	return nil
}

// FieldMappings returns the mappings of a template in creation order with
// their randomizer attribute or category filled in.
func (d *Database) FieldMappings(generatorObjectID int64) ([]catalog.FieldMapping, error) {
	type row struct {
		mapping     catalog.FieldMapping
		attributeID sql.NullInt64
		categoryID  sql.NullInt64
	}

	rows, err := d.query(
		`SELECT id, generator_object_id, field_name, randomizer_attribute_id, category_id
		FROM generator_mappings WHERE generator_object_id = ? ORDER BY id`,
		generatorObjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	var found []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.mapping.ID, &r.mapping.GeneratorObjectID, &r.mapping.FieldName,
			&r.attributeID, &r.categoryID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		found = append(found, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mappings: %w", err)
	}

	out := make([]catalog.FieldMapping, 0, len(found))
	for _, r := range found {
		m := r.mapping
		if r.attributeID.Valid {
			if m.Attribute, err = d.randomizerAttributeByID(r.attributeID.Int64); err != nil {
				return nil, fmt.Errorf("mapping %d: %w", m.ID, err)
			}
		}
		if r.categoryID.Valid {
			if m.Category, err = d.categoryByID(r.categoryID.Int64); err != nil {
				return nil, fmt.Errorf("mapping %d: %w", m.ID, err)
			}
		}
		out = append(out, m)
	}
	return out, nil
}
