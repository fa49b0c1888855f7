// Package vars expands ${name} and ${parent.name} placeholders in generated text.
package vars

import (
	"regexp"
	"strings"

	"github.com/milocarbol/dndcampaign/internal/campaign"
)

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// ParentScope is the only scope keyword allowed in dotted placeholders.
const ParentScope = "parent"

// Values resolves placeholder names.
type Values interface {
	Lookup(name string) (string, bool)
}

// Pair is one named staged value. Pairs are shared by pointer so that a value
// rewritten in place is seen by later lookups.
type Pair struct {
	Name  string
	Value string
}

// Fields matches names exactly.
type Fields []*Pair

func (f Fields) Lookup(name string) (string, bool) {
	for _, p := range f {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Attributes matches names case-insensitively.
type Attributes []*Pair

func (a Attributes) Lookup(name string) (string, bool) {
	for _, p := range a {
		if strings.EqualFold(p.Name, name) {
			return p.Value, true
		}
	}
	return "", false
}

// Thing looks names up in a saved thing's literal fields, then in its attribute values.
type Thing struct {
	Thing      *campaign.Thing
	Attributes Values
}

func (t Thing) Lookup(name string) (string, bool) {
	if t.Thing != nil {
		if v, ok := t.Thing.Field(name); ok {
			return v, true
		}
	}
	if t.Attributes == nil {
		return "", false
	}
	return t.Attributes.Lookup(name)
}

// Scope is what a template is expanded against. Any member may be nil.
type Scope struct {
	Fields     Values
	Attributes Values
	Parent     Values
}

func (s Scope) lookup(name string) (string, bool) {
	if scope, key, dotted := strings.Cut(name, "."); dotted {
		if !strings.EqualFold(scope, ParentScope) || s.Parent == nil {
			return "", false
		}
		return s.Parent.Lookup(key)
	}
	if s.Fields != nil {
		if v, ok := s.Fields.Lookup(name); ok {
			return v, true
		}
	}
	if s.Attributes != nil {
		return s.Attributes.Lookup(name)
	}
	return "", false
}

// Expand replaces every placeholder that resolves in scope. Placeholders that
// do not resolve are left as they are.
func Expand(template string, scope Scope) string {
	if !strings.Contains(template, "${") {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := scope.lookup(m[2 : len(m)-1]); ok {
			return v
		}
		return m
	})
}

// Variables lists the placeholder names in template, in order of appearance.
func Variables(template string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		names = append(names, m[1])
	}
	return names
}

// Contains reports whether template still has a placeholder for name.
func Contains(template, name string) bool {
	for _, v := range Variables(template) {
		if v == name {
			return true
		}
	}
	return false
}

// Replace substitutes value for every ${name} placeholder in template.
func Replace(template, name, value string) string {
	return strings.ReplaceAll(template, "${"+name+"}", value)
}
