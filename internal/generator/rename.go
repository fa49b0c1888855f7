package generator

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/logger"
	"github.com/milocarbol/dndcampaign/internal/vars"
)

// NameAttribute is the randomizer attribute names are re-rolled from. Its
// categories are the values recorded under campaign.NameRandomizerAttribute.
const NameAttribute = "Name"

// RandomizeName draws a new name for a generated thing from the category it
// was originally named from, then renames it with UpdateName.
func (g *Generator) RandomizeName(thing *campaign.Thing) (string, error) {
	source, err := g.store.AttributeValue(thing.ID, campaign.NameRandomizerAttribute)
	if errors.Is(err, campaign.ErrNotFound) {
		logger.Info("Cannot randomize name: no name randomizer set", "thing", thing.Name)
		return "", fmt.Errorf("%w: %s has no %s value", campaign.ErrConfiguration, thing.Name, campaign.NameRandomizerAttribute)
	}
	if err != nil {
		return "", err
	}

	scope := vars.Scope{Attributes: storedValues{g.store, thing.ID}}
	if kind := campaign.PolicyFor(thing.Kind).NameParent; kind != "" {
		parents, err := g.store.Parents(thing.ID, kind)
		if err != nil {
			return "", err
		}
		if len(parents) > 0 {
			p := parents[0]
			scope.Parent = vars.Thing{Thing: &p, Attributes: storedValues{g.store, p.ID}}
		}
	}

	var name string
	for attempt := 1; ; attempt++ {
		raw, _, err := g.rand.ResolveInCategory(thing.Kind, NameAttribute, source.Value)
		if err != nil {
			return "", err
		}
		name = vars.Expand(raw, scope)

		if name != "" {
			if name == thing.Name {
				break
			}
			taken, err := g.rejected(thing.CampaignID, name)
			if err != nil {
				return "", err
			}
			if !taken {
				break
			}
		}
		if max := g.opts.MaxUniqueAttempts; max > 0 && attempt >= max {
			return "", fmt.Errorf("%w: no free name for %s after %d attempts", campaign.ErrConfiguration, thing.Name, attempt)
		}
		g.stats.UniqueRetries++
		logger.Debug("Name in use, drawing again", "thing", thing.Name, "name", name, "attempt", attempt)
	}

	if err := g.UpdateName(thing, name); err != nil {
		return "", err
	}
	return name, nil
}

// UpdateName renames a thing, rewrites mentions of the old name in its text
// fields and carries the rename to related things:
//   - attributes of parents that name this thing as a member,
//   - the descriptor attribute of the member this thing names,
//   - parents or children whose own name contains the old name.
func (g *Generator) UpdateName(thing *campaign.Thing, newName string) error {
	return g.rename(thing, newName, true)
}

func (g *Generator) rename(thing *campaign.Thing, newName string, propagate bool) error {
	old := thing.Name
	updated := *thing
	updated.Name = newName
	updated.Description = ReplaceName(thing.Description, old, newName)
	updated.Background = ReplaceName(thing.Background, old, newName)
	updated.CurrentState = ReplaceName(thing.CurrentState, old, newName)
	if err := g.store.UpdateThing(&updated); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", old, newName, err)
	}
	*thing = updated
	logger.Audit("Thing renamed", "kind", thing.Kind, "from", old, "to", newName)

	if !propagate || old == newName {
		return nil
	}

	parents, err := g.store.Parents(thing.ID, "")
	if err != nil {
		return err
	}
	for i := range parents {
		p := &parents[i]
		if pp := campaign.PolicyFor(p.Kind); pp.MemberAttribute != "" && thing.IsKind(pp.MemberKind) {
			if err := g.replaceInAttribute(p, pp.MemberAttribute, old, newName); err != nil {
				return err
			}
		}
	}

	policy := campaign.PolicyFor(thing.Kind)
	if policy.MemberAttribute != "" && policy.MemberDescriptor != "" {
		if err := g.renameInMember(thing, policy, old, newName); err != nil {
			return err
		}
	}

	if policy.RenameParents {
		if err := g.renameMentions(parents, old, newName); err != nil {
			return err
		}
	}
	if policy.RenameChildren {
		children, err := g.store.Children(thing.ID, "")
		if err != nil {
			return err
		}
		if err := g.renameMentions(children, old, newName); err != nil {
			return err
		}
	}
	return nil
}

// renameInMember updates the descriptor of the member named by the thing's
// member attribute, e.g. the Occupation of a faction's Leader.
func (g *Generator) renameInMember(thing *campaign.Thing, policy campaign.KindPolicy, old, newName string) error {
	member, err := g.store.AttributeValue(thing.ID, policy.MemberAttribute)
	if errors.Is(err, campaign.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	npc, err := g.store.ThingByName(thing.CampaignID, policy.MemberKind, member.Value)
	if errors.Is(err, campaign.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return g.replaceInAttribute(npc, policy.MemberDescriptor, old, newName)
}

func (g *Generator) replaceInAttribute(thing *campaign.Thing, attribute, old, newName string) error {
	av, err := g.store.AttributeValue(thing.ID, attribute)
	if errors.Is(err, campaign.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	value := ReplaceName(av.Value, old, newName)
	if value == av.Value {
		return nil
	}
	if err := g.store.SetAttributeValue(thing.ID, av.AttributeID, value); err != nil {
		return err
	}
	logger.Info("Updated attribute", "thing", thing.Name, "attribute", av.AttributeName, "value", value)
	return nil
}

// renameMentions renames the things whose name contains old, ignoring case.
func (g *Generator) renameMentions(things []campaign.Thing, old, newName string) error {
	fold := cases.Fold()
	needle := fold.String(old)
	for i := range things {
		t := &things[i]
		if !strings.Contains(fold.String(t.Name), needle) {
			continue
		}
		from := t.Name
		if err := g.rename(t, ReplaceName(t.Name, old, newName), false); err != nil {
			return err
		}
		logger.Info("Updated name", "from", from, "to", t.Name)
	}
	return nil
}

// ReplaceName replaces oldName with newName in s. When the old name has
// several words, each old word is also replaced by the new word in the same
// position, so "Lord Vex" renamed to "Lady Mira" turns "Vex" into "Mira".
func ReplaceName(s, oldName, newName string) string {
	if oldName == "" {
		return s
	}
	out := strings.ReplaceAll(s, oldName, newName)
	if !strings.Contains(oldName, " ") {
		return out
	}
	oldWords := strings.Split(oldName, " ")
	newWords := strings.Split(newName, " ")
	for i, w := range oldWords {
		if i >= len(newWords) {
			break
		}
		if w == "" {
			continue
		}
		out = strings.ReplaceAll(out, w, newWords[i])
	}
	return out
}
