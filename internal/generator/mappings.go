package generator

import (
	"fmt"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
	"github.com/milocarbol/dndcampaign/internal/logger"
	"github.com/milocarbol/dndcampaign/internal/vars"
)

// inheritanceChain returns template followed by the templates it inherits
// from, nearest first.
func (g *Generator) inheritanceChain(template *catalog.GeneratorObject) ([]*catalog.GeneratorObject, error) {
	var chain []*catalog.GeneratorObject
	visited := make(map[int64]bool)
	for current := template; ; {
		if visited[current.ID] {
			return nil, fmt.Errorf("%w: %s inherits from itself", campaign.ErrConfiguration, current)
		}
		visited[current.ID] = true
		chain = append(chain, current)

		if current.InheritSettingsFrom == 0 {
			return chain, nil
		}
		next, err := g.store.GeneratorObjectByID(current.InheritSettingsFrom)
		if err != nil {
			return nil, fmt.Errorf("%s inherits from generator %d: %w", current, current.InheritSettingsFrom, err)
		}
		current = next
	}
}

// effectiveMappings collects mappings along the inheritance chain, dropping
// any mapping a nearer template already overrides.
func (g *Generator) effectiveMappings(template *catalog.GeneratorObject) ([]catalog.FieldMapping, error) {
	chain, err := g.inheritanceChain(template)
	if err != nil {
		return nil, err
	}

	var collected []catalog.FieldMapping
	for _, level := range chain {
		rows, err := g.store.FieldMappings(level.ID)
		if err != nil {
			return nil, err
		}
	nextRow:
		for _, row := range rows {
			for i := range collected {
				if collected[i].Overrides(&row) {
					logger.Debug("Mapping overridden", "template", template.String(), "from", level.Name, "mapping", row.String())
					continue nextRow
				}
			}
			logger.Debug("Using mapping", "template", template.String(), "from", level.Name, "mapping", row.String())
			collected = append(collected, row)
		}
	}
	return collected, nil
}

type stagedValue struct {
	attribute *campaign.Attribute
	pair      *vars.Pair
}

// staged holds the draws for one thing before it is saved.
type staged struct {
	fields     vars.Fields
	attributes vars.Attributes
	values     []stagedValue
	deferred   []*catalog.RandomizerAttribute
}

func (st *staged) addValue(attr *campaign.Attribute, value string) {
	p := &vars.Pair{Name: attr.Name, Value: value}
	st.values = append(st.values, stagedValue{attribute: attr, pair: p})
	st.attributes = append(st.attributes, p)
}

// apply expands the staged literal fields in mapping order and sets them on
// thing. Each expansion sees the fields already rewritten before it.
func (st *staged) apply(thing *campaign.Thing, parent vars.Values) {
	scope := vars.Scope{Fields: st.fields, Attributes: st.attributes, Parent: parent}
	for _, f := range st.fields {
		if f.Value == "" {
			continue
		}
		f.Value = vars.Expand(f.Value, scope)
		if !thing.SetField(f.Name, f.Value) {
			logger.Debug("Staged field is not a literal field", "field", f.Name, "value", f.Value)
		}
	}
}

// stage resolves every mapping.
func (g *Generator) stage(r *run, template *catalog.GeneratorObject, mappings []catalog.FieldMapping) (*staged, error) {
	st := &staged{}
	kind := template.Kind

	for i := range mappings {
		m := &mappings[i]

		var value string
		var err error
		switch {
		case m.Attribute != nil && m.Attribute.CategoryParameter != "":
			value, err = g.drawWithParameter(r, kind, m.Attribute, st)
		case m.Attribute != nil:
			value, err = g.draw(r, m.Attribute.Name, m.Attribute.MustBeUnique, func() (string, bool, error) {
				return g.rand.ResolveAttribute(r.campaign.ID, kind, m.Attribute.Name)
			})
		case m.Category != nil:
			value, err = g.draw(r, m.Category.AttributeName+"."+m.Category.Name, m.Category.MustBeUnique, func() (string, bool, error) {
				return g.rand.ResolveInCategory(kind, m.Category.AttributeName, m.Category.Name)
			})
		default:
			logger.Warning("Mapping has no randomizer", "template", template.String(), "mapping", m.String())
			continue
		}
		if err != nil {
			return nil, err
		}

		switch {
		case m.FieldName != "":
			st.fields = append(st.fields, &vars.Pair{Name: m.FieldName, Value: value})
		case m.Attribute != nil && m.Attribute.CanRandomizeLater:
			st.deferred = append(st.deferred, m.Attribute)
		default:
			attr, err := g.store.Attribute(kind, m.Target())
			if err != nil {
				return nil, fmt.Errorf("mapping %s of %s: %w", m, template, err)
			}
			if value != "" {
				st.addValue(attr, value)
			}
		}
	}
	return st, nil
}

// drawWithParameter resolves the attribute's category parameter, stages it as
// an attribute value, then draws from the category it names.
func (g *Generator) drawWithParameter(r *run, kind string, attr *catalog.RandomizerAttribute, st *staged) (string, error) {
	parameter, ok, err := g.rand.ResolveAttribute(r.campaign.ID, kind, attr.CategoryParameter)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: category parameter %s of %s resolved to nothing", campaign.ErrConfiguration, attr.CategoryParameter, attr.Name)
	}

	paramAttr, err := g.store.Attribute(kind, attr.CategoryParameter)
	if err != nil {
		return "", fmt.Errorf("category parameter of %s: %w", attr.Name, err)
	}
	st.addValue(paramAttr, parameter)

	return g.draw(r, attr.Name, attr.MustBeUnique, func() (string, bool, error) {
		return g.rand.ResolveInCategory(kind, attr.Name, parameter)
	})
}

// draw resolves a value, re-drawing while a unique value is taken by another
// thing in the campaign or rejected by the name filter.
func (g *Generator) draw(r *run, label string, unique bool, resolve func() (string, bool, error)) (string, error) {
	value, _, err := resolve()
	if err != nil || !unique {
		return value, err
	}

	for attempt := 1; ; attempt++ {
		rejected, err := g.rejected(r.campaign.ID, value)
		if err != nil {
			return "", err
		}
		if !rejected {
			return value, nil
		}
		if max := g.opts.MaxUniqueAttempts; max > 0 && attempt >= max {
			return "", fmt.Errorf("%w: no unique value for %s after %d attempts", campaign.ErrConfiguration, label, attempt)
		}
		g.stats.UniqueRetries++
		logger.Debug("Value in use, drawing again", "run", r.id, "randomizer", label, "value", value, "attempt", attempt)

		if value, _, err = resolve(); err != nil {
			return "", err
		}
	}
}

func (g *Generator) rejected(campaignID int64, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	taken, err := g.store.ThingNameExists(campaignID, value)
	if err != nil || taken {
		return taken, err
	}
	if g.opts.NameFilter != nil {
		if res := g.opts.NameFilter.Check(value); !res.Allowed {
			logger.Debug("Name filter rejected value", "value", value, "reason", res.Reason)
			return true, nil
		}
	}
	return false, nil
}
