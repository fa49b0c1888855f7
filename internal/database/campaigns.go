package database

import (
	"fmt"

	"github.com/milocarbol/dndcampaign/internal/campaign"
)

// CreateCampaign adds a campaign. The first campaign created is active.
func (d *Database) CreateCampaign(name string) (*campaign.Campaign, error) {
	var count int
	if err := d.queryRow("SELECT COUNT(*) FROM campaigns").Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count campaigns: %w", err)
	}

	c := &campaign.Campaign{Name: name, IsActive: count == 0}
	id, err := d.insert("INSERT INTO campaigns (name, is_active) VALUES (?, ?)", name, boolInt(c.IsActive))
	if err != nil {
		return nil, d.wrap(fmt.Sprintf("campaign %q", name), err)
	}
	c.ID = id
	return c, nil
}

// ActiveCampaign returns the campaign flagged active.
func (d *Database) ActiveCampaign() (*campaign.Campaign, error) {
	return d.scanCampaign("active campaign",
		"SELECT id, name, is_active FROM campaigns WHERE is_active = 1 ORDER BY id LIMIT 1")
}

// CampaignByName returns a campaign by exact name.
func (d *Database) CampaignByName(name string) (*campaign.Campaign, error) {
	return d.scanCampaign(fmt.Sprintf("campaign %q", name),
		"SELECT id, name, is_active FROM campaigns WHERE name = ?", name)
}

// SetActiveCampaign makes the named campaign the only active one.
func (d *Database) SetActiveCampaign(name string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(d.qb.Build("UPDATE campaigns SET is_active = CASE WHEN name = ? THEN 1 ELSE 0 END"), name); err != nil {
		return fmt.Errorf("failed to activate campaign: %w", err)
	}
	var active int
	if err := tx.QueryRow(d.qb.Build("SELECT COUNT(*) FROM campaigns WHERE is_active = 1")).Scan(&active); err != nil {
		return fmt.Errorf("failed to count active campaigns: %w", err)
	}
	if active == 0 {
		return fmt.Errorf("campaign %q: %w", name, campaign.ErrNotFound)
	}
	return tx.Commit()
}

func (d *Database) scanCampaign(what, query string, args ...any) (*campaign.Campaign, error) {
	var c campaign.Campaign
	var active int
	err := d.queryRow(query, args...).Scan(&c.ID, &c.Name, &active)
	if err != nil {
		return nil, d.wrap(what, err)
	}
	c.IsActive = active != 0
	return &c, nil
}
