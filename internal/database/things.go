package database

import (
	"fmt"

	"github.com/milocarbol/dndcampaign/internal/campaign"
)

const thingColumns = "id, campaign_id, kind, name, description, background, current_state, is_bookmarked"

func scanThing(row scanner) (*campaign.Thing, error) {
	var t campaign.Thing
	var bookmarked int
	err := row.Scan(&t.ID, &t.CampaignID, &t.Kind, &t.Name, &t.Description, &t.Background, &t.CurrentState, &bookmarked)
	if err != nil {
		return nil, err
	}
	t.IsBookmarked = bookmarked != 0
	return &t, nil
}

func (d *Database) things(query string, args ...any) ([]campaign.Thing, error) {
	rows, err := d.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query things: %w", err)
	}
	defer rows.Close()

	var out []campaign.Thing
	for rows.Next() {
		t, err := scanThing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thing: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate things: %w", err)
	}
	return out, nil
}

// ThingNameExists reports whether a thing in the campaign has exactly this name.
func (d *Database) ThingNameExists(campaignID int64, name string) (bool, error) {
	var count int
	err := d.queryRow("SELECT COUNT(*) FROM things WHERE campaign_id = ? AND name = ?", campaignID, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check name %q: %w", name, err)
	}
	return count > 0, nil
}

// CreateThing saves a new thing and assigns its ID.
func (d *Database) CreateThing(t *campaign.Thing) error {
	var exists int
	if err := d.queryRow("SELECT 1 FROM campaigns WHERE id = ?", t.CampaignID).Scan(&exists); err != nil {
		return d.wrap(fmt.Sprintf("campaign %d", t.CampaignID), err)
	}
	id, err := d.insert(
		`INSERT INTO things (campaign_id, kind, name, description, background, current_state, is_bookmarked)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.CampaignID, t.Kind, t.Name, t.Description, t.Background, t.CurrentState, boolInt(t.IsBookmarked),
	)
	if err != nil {
		return d.wrap(fmt.Sprintf("%q", t.Name), err)
	}
	t.ID = id
	return nil
}

// UpdateThing saves the literal fields of an existing thing.
func (d *Database) UpdateThing(t *campaign.Thing) error {
	result, err := d.exec(
		`UPDATE things SET kind = ?, name = ?, description = ?, background = ?, current_state = ?, is_bookmarked = ?
		WHERE id = ?`,
		t.Kind, t.Name, t.Description, t.Background, t.CurrentState, boolInt(t.IsBookmarked), t.ID,
	)
	if err != nil {
		return d.wrap(fmt.Sprintf("%q", t.Name), err)
	}
	return d.mustAffect(fmt.Sprintf("thing %d", t.ID), result)
}

// ThingByID returns a thing by ID.
func (d *Database) ThingByID(id int64) (*campaign.Thing, error) {
	t, err := scanThing(d.queryRow("SELECT "+thingColumns+" FROM things WHERE id = ?", id))
	if err != nil {
		return nil, d.wrap(fmt.Sprintf("thing %d", id), err)
	}
	return t, nil
}

// ThingByName returns the thing of a kind with exactly this name. An empty
// kind matches any kind.
func (d *Database) ThingByName(campaignID int64, kind, name string) (*campaign.Thing, error) {
	query := "SELECT " + thingColumns + " FROM things WHERE campaign_id = ? AND name = ?"
	args := []any{campaignID, name}
	if kind != "" {
		query += " AND LOWER(kind) = LOWER(?)"
		args = append(args, kind)
	}
	t, err := scanThing(d.queryRow(query, args...))
	if err != nil {
		return nil, d.wrap(fmt.Sprintf("thing %q", name), err)
	}
	return t, nil
}

// Things returns the things of a campaign ordered by ID.
func (d *Database) Things(campaignID int64) ([]campaign.Thing, error) {
	return d.things("SELECT "+thingColumns+" FROM things WHERE campaign_id = ? ORDER BY id", campaignID)
}

// SetAttributeValue creates or replaces the value of an attribute on a thing.
func (d *Database) SetAttributeValue(thingID, attributeID int64, value string) error {
	var exists int
	if err := d.queryRow("SELECT 1 FROM things WHERE id = ?", thingID).Scan(&exists); err != nil {
		return d.wrap(fmt.Sprintf("thing %d", thingID), err)
	}
	if err := d.queryRow("SELECT 1 FROM attributes WHERE id = ?", attributeID).Scan(&exists); err != nil {
		return d.wrap(fmt.Sprintf("attribute %d", attributeID), err)
	}
	_, err := d.exec(
		`INSERT INTO attribute_values (thing_id, attribute_id, value) VALUES (?, ?, ?)
		ON CONFLICT (thing_id, attribute_id) DO UPDATE SET value = excluded.value`,
		thingID, attributeID, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set attribute %d of thing %d: %w", attributeID, thingID, err)
	}
	return nil
}

// AttributeValue returns the value of the named attribute on a thing
// (case-insensitive name).
func (d *Database) AttributeValue(thingID int64, attributeName string) (*campaign.AttributeValue, error) {
	var v campaign.AttributeValue
	err := d.queryRow(
		`SELECT v.thing_id, v.attribute_id, a.name, v.value
		FROM attribute_values v JOIN attributes a ON a.id = v.attribute_id
		WHERE v.thing_id = ? AND LOWER(a.name) = LOWER(?)
		ORDER BY a.id LIMIT 1`,
		thingID, attributeName,
	).Scan(&v.ThingID, &v.AttributeID, &v.AttributeName, &v.Value)
	if err != nil {
		return nil, d.wrap(fmt.Sprintf("attribute %q of thing %d", attributeName, thingID), err)
	}
	return &v, nil
}

// AttributeValues returns every attribute value of a thing ordered by attribute ID.
func (d *Database) AttributeValues(thingID int64) ([]campaign.AttributeValue, error) {
	rows, err := d.query(
		`SELECT v.thing_id, v.attribute_id, a.name, v.value
		FROM attribute_values v JOIN attributes a ON a.id = v.attribute_id
		WHERE v.thing_id = ? ORDER BY v.attribute_id`,
		thingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query attribute values: %w", err)
	}
	defer rows.Close()

	var out []campaign.AttributeValue
	for rows.Next() {
		var v campaign.AttributeValue
		if err := rows.Scan(&v.ThingID, &v.AttributeID, &v.AttributeName, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AddRandomAttribute attaches a generated line to a thing.
func (d *Database) AddRandomAttribute(thingID int64, text string) (*campaign.RandomAttribute, error) {
	var exists int
	if err := d.queryRow("SELECT 1 FROM things WHERE id = ?", thingID).Scan(&exists); err != nil {
		return nil, d.wrap(fmt.Sprintf("thing %d", thingID), err)
	}
	id, err := d.insert("INSERT INTO random_attributes (thing_id, text) VALUES (?, ?)", thingID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to add random attribute to thing %d: %w", thingID, err)
	}
	return &campaign.RandomAttribute{ID: id, ThingID: thingID, Text: text}, nil
}

// RandomAttributes returns the generated lines of a thing in creation order.
func (d *Database) RandomAttributes(thingID int64) ([]campaign.RandomAttribute, error) {
	rows, err := d.query("SELECT id, thing_id, text FROM random_attributes WHERE thing_id = ? ORDER BY id", thingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query random attributes: %w", err)
	}
	defer rows.Close()

	var out []campaign.RandomAttribute
	for rows.Next() {
		var ra campaign.RandomAttribute
		if err := rows.Scan(&ra.ID, &ra.ThingID, &ra.Text); err != nil {
			return nil, fmt.Errorf("failed to scan random attribute: %w", err)
		}
		out = append(out, ra)
	}
	return out, rows.Err()
}

// AddChild links a child thing under a parent. Linking twice is a no-op.
func (d *Database) AddChild(parentID, childID int64) error {
	var exists int
	for _, id := range []int64{parentID, childID} {
		if err := d.queryRow("SELECT 1 FROM things WHERE id = ?", id).Scan(&exists); err != nil {
			return d.wrap(fmt.Sprintf("thing %d", id), err)
		}
	}
	_, err := d.exec(
		"INSERT INTO thing_children (parent_id, child_id) VALUES (?, ?) ON CONFLICT (parent_id, child_id) DO NOTHING",
		parentID, childID,
	)
	if err != nil {
		return fmt.Errorf("failed to link thing %d under %d: %w", childID, parentID, err)
	}
	return nil
}

// Children returns the children of a thing of the given kind ordered by ID.
// An empty kind returns all children.
func (d *Database) Children(thingID int64, kind string) ([]campaign.Thing, error) {
	return d.related("c.parent_id = ? AND t.id = c.child_id", thingID, kind)
}

// Parents returns the things that have thingID as a child, filtered by kind
// like Children.
func (d *Database) Parents(thingID int64, kind string) ([]campaign.Thing, error) {
	return d.related("c.child_id = ? AND t.id = c.parent_id", thingID, kind)
}

func (d *Database) related(join string, thingID int64, kind string) ([]campaign.Thing, error) {
	query := `SELECT t.id, t.campaign_id, t.kind, t.name, t.description, t.background, t.current_state, t.is_bookmarked
		FROM things t, thing_children c WHERE ` + join
	args := []any{thingID}
	if kind != "" {
		query += " AND LOWER(t.kind) = LOWER(?)"
		args = append(args, kind)
	}
	return d.things(query+" ORDER BY t.id", args...)
}
