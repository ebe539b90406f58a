// Package content composes post and reply text from the template pools.
package content

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"clawdx/internal/models"
	"clawdx/internal/persona"
	"clawdx/internal/randsrc"
)

// ErrNoMovement is returned for agents without a group, or whose group has no
// movement templates.
var ErrNoMovement = errors.New("agent has no movement templates")

type Options struct {
	// HashtagChance is the probability an original post gets one hashtag.
	HashtagChance float64
	// QuestionChance is the probability a response gets a follow-up question.
	QuestionChance float64
}

func DefaultOptions() Options {
	return Options{HashtagChance: 0.4, QuestionChance: 0.4}
}

// Draft is generated text plus what produced it, for logging.
type Draft struct {
	Body     string
	Category string
	Style    string
}

type Generator struct {
	pools   *Pools
	catalog *persona.Catalog
	opts    Options
}

func NewGenerator(pools *Pools, catalog *persona.Catalog, opts Options) (*Generator, error) {
	if pools == nil || catalog == nil {
		return nil, errors.New("content: pools and catalog are required")
	}
	for _, style := range catalog.ReferencedStyles() {
		if _, ok := pools.Styles[style]; !ok {
			return nil, fmt.Errorf("content: roster references unknown style %q", style)
		}
	}
	movementSlots := map[string]bool{"topic": true, "group": true}
	for _, g := range catalog.Groups() {
		if err := checkTemplates("movement "+g.Name, g.Movement, movementSlots); err != nil {
			return nil, err
		}
	}
	return &Generator{pools: pools, catalog: catalog, opts: opts}, nil
}

// Category picks the category for agent: uniformly among those whose keywords
// overlap the agent's interests, else uniformly among all categories.
func (g *Generator) Category(src randsrc.Source, agent models.Agent) Category {
	var matches []Category
	for _, c := range g.pools.Categories {
		if interestsMatch(agent.Interests, c.Keywords) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return randsrc.Pick(src, g.pools.Categories)
	}
	return randsrc.Pick(src, matches)
}

// interestsMatch reports whether any keyword appears as whole words inside an
// interest. "space exploration" matches "space"; "go" does not match
// "algorithm".
func interestsMatch(interests, keywords []string) bool {
	for _, i := range interests {
		words := splitWords(i)
		if len(words) == 0 {
			continue
		}
		for _, k := range keywords {
			if containsRun(words, splitWords(k)) {
				return true
			}
		}
	}
	return false
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsRun(words, run []string) bool {
	if len(run) == 0 || len(run) > len(words) {
		return false
	}
	for start := 0; start+len(run) <= len(words); start++ {
		if slices.Equal(words[start:start+len(run)], run) {
			return true
		}
	}
	return false
}

// OriginalPost fills one category template with a topic from the same
// category and may append a hashtag.
func (g *Generator) OriginalPost(src randsrc.Source, agent models.Agent) (Draft, error) {
	c := g.Category(src, agent)
	tpl := randsrc.Pick(src, c.Templates)
	topic := randsrc.Pick(src, c.Topics)
	body, err := fill(tpl, func(name string) (string, bool) {
		if name == "topic" {
			return topic, true
		}
		return "", false
	})
	if err != nil {
		return Draft{}, err
	}
	if randsrc.Chance(src, g.opts.HashtagChance) {
		body += " #" + randsrc.Pick(src, g.pools.Hashtags)
	}
	return Draft{Body: body, Category: c.Name}, nil
}

func (g *Generator) ReflectivePost(src randsrc.Source, agent models.Agent) (Draft, error) {
	return g.specialPost(src, agent, g.pools.Reflective)
}

func (g *Generator) ViralPost(src randsrc.Source, agent models.Agent) (Draft, error) {
	return g.specialPost(src, agent, g.pools.Viral)
}

func (g *Generator) specialPost(src randsrc.Source, agent models.Agent, templates []string) (Draft, error) {
	c := g.Category(src, agent)
	tpl := randsrc.Pick(src, templates)
	topic := randsrc.Pick(src, c.Topics)
	body, err := fill(tpl, g.phraseResolver(src, map[string]string{"topic": topic}))
	if err != nil {
		return Draft{}, err
	}
	return Draft{Body: capitalize(body), Category: c.Name}, nil
}

// HasMovement reports whether agent can write a movement post.
func (g *Generator) HasMovement(agent models.Agent) bool {
	grp, ok := g.catalog.GroupOf(agent.Name)
	return ok && len(grp.Movement) > 0
}

// MovementPost writes a rallying post on behalf of the agent's group.
func (g *Generator) MovementPost(src randsrc.Source, agent models.Agent) (Draft, error) {
	grp, ok := g.catalog.GroupOf(agent.Name)
	if !ok || len(grp.Movement) == 0 {
		return Draft{}, ErrNoMovement
	}
	c := g.Category(src, agent)
	tpl := randsrc.Pick(src, grp.Movement)
	topic := randsrc.Pick(src, c.Topics)
	title := grp.Title
	if title == "" {
		title = grp.Name
	}
	body, err := fill(tpl, func(name string) (string, bool) {
		switch name {
		case "topic":
			return topic, true
		case "group":
			return title, true
		}
		return "", false
	})
	if err != nil {
		return Draft{}, err
	}
	return Draft{Body: capitalize(body), Category: c.Name, Style: grp.Name}, nil
}

// Style draws a response style weighted by the agent's group. Agents without
// a group draw uniformly over every style.
func (g *Generator) Style(src randsrc.Source, agent models.Agent) string {
	if grp, ok := g.catalog.GroupOf(agent.Name); ok {
		weights := grp.StyleWeights()
		total := 0
		for _, w := range weights {
			total += w.Weight
		}
		if total > 0 {
			x := src.Float64() * float64(total)
			acc := 0.0
			for _, w := range weights {
				acc += float64(w.Weight)
				if x < acc {
					return w.Style
				}
			}
			return weights[len(weights)-1].Style
		}
	}
	return randsrc.Pick(src, g.pools.StyleNames())
}

// Response writes a reply to source in a style picked for agent.
func (g *Generator) Response(src randsrc.Source, agent models.Agent, source models.Post) (Draft, error) {
	style := g.Style(src, agent)
	tpl := randsrc.Pick(src, g.pools.Styles[style])
	fixed := map[string]string{
		"topic": ExtractTopic(src, source.Body, g.pools.Fallback.Topic),
		"quote": ExtractQuote(src, source.Body, g.pools.Fallback.Quote),
	}
	body, err := fill(tpl, g.phraseResolver(src, fixed))
	if err != nil {
		return Draft{}, err
	}
	if randsrc.Chance(src, g.opts.QuestionChance) {
		body += " " + randsrc.Pick(src, g.pools.FollowUps)
	}
	return Draft{Body: capitalize(body), Style: style}, nil
}

// phraseResolver resolves fixed names first, then draws from the phrase
// pools. Each occurrence of a phrase placeholder draws independently.
func (g *Generator) phraseResolver(src randsrc.Source, fixed map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if v, ok := fixed[name]; ok {
			return v, true
		}
		if pool, ok := g.pools.Phrases[name]; ok && len(pool) > 0 {
			return randsrc.Pick(src, pool), true
		}
		return "", false
	}
}

func capitalize(s string) string {
	for i, r := range s {
		if r >= 'a' && r <= 'z' {
			return s[:i] + strings.ToUpper(string(r)) + s[i+len(string(r)):]
		}
		return s
	}
	return s
}
