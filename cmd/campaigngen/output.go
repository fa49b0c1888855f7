package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
	"github.com/milocarbol/dndcampaign/internal/generator"
	"github.com/milocarbol/dndcampaign/internal/logger"
)

// treeStore is the read side used to print generated things.
type treeStore interface {
	AttributeValues(thingID int64) ([]campaign.AttributeValue, error)
	RandomAttributes(thingID int64) ([]campaign.RandomAttribute, error)
	Children(thingID int64, kind string) ([]campaign.Thing, error)
}

// generateThings runs tmpl count times. Duplicate names and configuration
// errors skip that attempt; anything else stops the run.
func generateThings(w io.Writer, s treeStore, gen *generator.Generator, tmpl *catalog.GeneratorObject, c *campaign.Campaign, count int) error {
	made := 0
	for i := 0; i < count; i++ {
		thing, err := gen.Generate(tmpl, c, nil)
		if err != nil {
			if generator.IsRecoverable(err) {
				logger.Warning("Skipped generation", "generator", tmpl.String(), "attempt", i+1, "error", err)
				continue
			}
			return err
		}
		made++
		if err := printThing(w, s, thing, 0, map[int64]bool{}); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Generated %d %s in %s\n", made, label(tmpl.Kind, made), c.Name)
	return nil
}

// resolveValues draws count values for a randomizer attribute, from one
// category when category is set.
func resolveValues(w io.Writer, gen *generator.Generator, c *campaign.Campaign, kind, attribute, category string, count int) error {
	r := gen.Randomizer()
	made := 0
	for i := 0; i < count; i++ {
		var value string
		var ok bool
		var err error
		if category != "" {
			value, ok, err = r.ResolveInCategory(kind, attribute, category)
		} else {
			value, ok, err = r.ResolveAttribute(c.ID, kind, attribute)
		}
		if err != nil {
			return err
		}
		if !ok {
			logger.Debug("Nothing selectable", "kind", kind, "attribute", attribute, "category", category)
			continue
		}
		made++
		fmt.Fprintln(w, value)
	}
	fmt.Fprintf(w, "Resolved %d %s\n", made, label(attribute, made))
	return nil
}

// printThing writes thing and everything it contains as an indented tree.
func printThing(w io.Writer, s treeStore, thing *campaign.Thing, depth int, seen map[int64]bool) error {
	indent := strings.Repeat("  ", depth)
	if seen[thing.ID] {
		fmt.Fprintf(w, "%s%s %q (see above)\n", indent, thing.Kind, thing.Name)
		return nil
	}
	seen[thing.ID] = true

	fmt.Fprintf(w, "%s%s %q\n", indent, thing.Kind, thing.Name)
	for _, field := range []struct{ name, value string }{
		{"Description", thing.Description},
		{"Background", thing.Background},
		{"Current state", thing.CurrentState},
	} {
		if field.value != "" {
			fmt.Fprintf(w, "%s  %s: %s\n", indent, field.name, field.value)
		}
	}

	values, err := s.AttributeValues(thing.ID)
	if err != nil {
		return err
	}
	for _, v := range values {
		if v.Value != "" {
			fmt.Fprintf(w, "%s  %s: %s\n", indent, v.AttributeName, v.Value)
		}
	}

	randoms, err := s.RandomAttributes(thing.ID)
	if err != nil {
		return err
	}
	for _, ra := range randoms {
		fmt.Fprintf(w, "%s  * %s\n", indent, ra.Text)
	}

	children, err := s.Children(thing.ID, "")
	if err != nil {
		return err
	}
	for i := range children {
		if err := printThing(w, s, &children[i], depth+1, seen); err != nil {
			return err
		}
	}
	return nil
}

// label pluralizes noun for n.
func label(noun string, n int) string {
	if n == 1 {
		return noun
	}
	return inflection.Plural(noun)
}
