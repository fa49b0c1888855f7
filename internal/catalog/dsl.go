package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/milocarbol/dndcampaign/internal/campaign"
)

var (
	containsPattern = regexp.MustCompile(`^((\d+)((-(\d+))|%)? )?(([\w]+)\.(.+))$`)
	mappingPattern  = regexp.MustCompile(`^((\w+): )?([\w ]+)(\.(.+))?$`)
)

// ContainsSpec is a parsed containment line.
type ContainsSpec struct {
	Kind                string
	Generator           string
	PercentChanceForOne int
	MinObjects          int
	MaxObjects          int
}

// ParseContains parses a containment line:
//
//	NPC.Guard        exactly one
//	3 NPC.Guard      exactly three
//	2-4 NPC.Guard    two to four
//	25% NPC.Guard    zero or one, one with a 25% chance
func ParseContains(line string) (ContainsSpec, error) {
	line = strings.TrimSpace(line)
	m := containsPattern.FindStringSubmatch(line)
	if m == nil {
		return ContainsSpec{}, fmt.Errorf("%w: cannot parse contains line %q", campaign.ErrConfiguration, line)
	}

	spec := ContainsSpec{
		Kind:       m[7],
		Generator:  strings.TrimSpace(m[8]),
		MinObjects: 1,
		MaxObjects: 1,
	}

	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return ContainsSpec{}, fmt.Errorf("%w: bad count in %q: %v", campaign.ErrConfiguration, line, err)
		}
		switch {
		case m[3] == "%":
			if n > 100 {
				return ContainsSpec{}, fmt.Errorf("%w: chance above 100%% in %q", campaign.ErrConfiguration, line)
			}
			spec.PercentChanceForOne = n
			spec.MinObjects = 0
			spec.MaxObjects = 0
		case m[5] != "":
			max, err := strconv.Atoi(m[5])
			if err != nil {
				return ContainsSpec{}, fmt.Errorf("%w: bad count in %q: %v", campaign.ErrConfiguration, line, err)
			}
			if max < n {
				return ContainsSpec{}, fmt.Errorf("%w: range %d-%d is reversed in %q", campaign.ErrConfiguration, n, max, line)
			}
			spec.MinObjects = n
			spec.MaxObjects = max
		default:
			spec.MinObjects = n
			spec.MaxObjects = n
		}
	}

	return spec, nil
}

func (s ContainsSpec) String() string {
	target := s.Kind + "." + s.Generator
	switch {
	case s.PercentChanceForOne > 0:
		return fmt.Sprintf("%d%% %s", s.PercentChanceForOne, target)
	case s.MinObjects == s.MaxObjects && s.MinObjects == 1:
		return target
	case s.MinObjects == s.MaxObjects:
		return fmt.Sprintf("%d %s", s.MinObjects, target)
	}
	return fmt.Sprintf("%d-%d %s", s.MinObjects, s.MaxObjects, target)
}

// MappingSpec is a parsed mapping line.
type MappingSpec struct {
	FieldName string
	Attribute string
	Category  string
}

// ParseMapping parses a mapping line:
//
//	Attitude               attribute value from a whole randomizer
//	Name.Village           attribute value from one category
//	name: Name.Village     literal field from one category
func ParseMapping(line string) (MappingSpec, error) {
	line = strings.TrimSpace(line)
	m := mappingPattern.FindStringSubmatch(line)
	if m == nil {
		return MappingSpec{}, fmt.Errorf("%w: cannot parse mapping line %q", campaign.ErrConfiguration, line)
	}
	return MappingSpec{
		FieldName: m[2],
		Attribute: strings.TrimSpace(m[3]),
		Category:  strings.TrimSpace(m[5]),
	}, nil
}

func (s MappingSpec) String() string {
	out := s.Attribute
	if s.Category != "" {
		out += "." + s.Category
	}
	if s.FieldName != "" {
		out = s.FieldName + ": " + out
	}
	return out
}
