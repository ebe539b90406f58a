// Package persona maps agent names onto static personality groups.
package persona

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"clawdx/internal/models"
)

//go:embed roster.yaml
var defaultRoster []byte

type Group struct {
	Name        string         `yaml:"name" json:"name"`
	Title       string         `yaml:"title" json:"title"`
	Activity    string         `yaml:"activity" json:"activity,omitempty"`
	Description string         `yaml:"description" json:"description"`
	Interests   []string       `yaml:"interests" json:"interests"`
	Members     []string       `yaml:"members" json:"members"`
	Styles      map[string]int `yaml:"styles" json:"styles"`
	Movement    []string       `yaml:"movement" json:"movement"`
}

// StyleWeight is one entry of a group's response style distribution.
type StyleWeight struct {
	Style  string
	Weight int
}

// StyleWeights returns the group's styles in name order so that draws are
// reproducible for a given random sequence.
func (g *Group) StyleWeights() []StyleWeight {
	out := make([]StyleWeight, 0, len(g.Styles))
	for style, w := range g.Styles {
		out = append(out, StyleWeight{Style: style, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Style < out[j].Style })
	return out
}

type rosterFile struct {
	Version int     `yaml:"version"`
	Groups  []Group `yaml:"groups"`
}

// Catalog is immutable after construction.
type Catalog struct {
	version  int
	groups   []Group
	byMember map[string]int
}

// Default parses the roster compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultRoster)
}

func Parse(data []byte) (*Catalog, error) {
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(f.Groups) == 0 {
		return nil, errors.New("roster has no groups")
	}

	c := &Catalog{version: f.Version, groups: f.Groups, byMember: map[string]int{}}
	seenGroups := map[string]struct{}{}
	for i, g := range f.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("group %d has no name", i)
		}
		if _, ok := seenGroups[g.Name]; ok {
			return nil, fmt.Errorf("duplicate group %q", g.Name)
		}
		seenGroups[g.Name] = struct{}{}
		for style, w := range g.Styles {
			if w < 0 {
				return nil, fmt.Errorf("group %q: negative weight for style %q", g.Name, style)
			}
		}
		for _, m := range g.Members {
			key := strings.ToLower(strings.TrimSpace(m))
			if key == "" {
				return nil, fmt.Errorf("group %q: empty member name", g.Name)
			}
			if prev, ok := c.byMember[key]; ok {
				return nil, fmt.Errorf("member %q listed in both %q and %q", m, f.Groups[prev].Name, g.Name)
			}
			c.byMember[key] = i
		}
	}
	return c, nil
}

func (c *Catalog) Version() int { return c.version }

// GroupOf returns the group agentName belongs to. The lookup ignores case.
func (c *Catalog) GroupOf(agentName string) (*Group, bool) {
	i, ok := c.byMember[strings.ToLower(strings.TrimSpace(agentName))]
	if !ok {
		return nil, false
	}
	g := c.groups[i]
	return &g, true
}

// GroupName is GroupOf reduced to the name, "" when the agent has no group.
func (c *Catalog) GroupName(agentName string) string {
	if g, ok := c.GroupOf(agentName); ok {
		return g.Name
	}
	return ""
}

func (c *Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// ReferencedStyles lists every style name any group weights.
func (c *Catalog) ReferencedStyles() []string {
	set := map[string]struct{}{}
	for _, g := range c.groups {
		for s := range g.Styles {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Agents lists one seedable agent per roster member, carrying the group's
// interests and activity tier.
func (c *Catalog) Agents() []models.NewAgent {
	var out []models.NewAgent
	for _, g := range c.groups {
		for _, m := range g.Members {
			name := strings.ToLower(strings.TrimSpace(m))
			out = append(out, models.NewAgent{
				Name:          name,
				DisplayName:   displayName(name),
				Description:   g.Description,
				Interests:     append([]string(nil), g.Interests...),
				ActivityLevel: models.ParseActivityLevel(g.Activity),
				Autonomous:    true,
			})
		}
	}
	return out
}

func displayName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
