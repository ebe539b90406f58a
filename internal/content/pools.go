package content

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed pools.yaml
var defaultPools []byte

type Category struct {
	Name      string   `yaml:"name"`
	Keywords  []string `yaml:"keywords"`
	Topics    []string `yaml:"topics"`
	Templates []string `yaml:"templates"`
}

type Fallback struct {
	Topic string `yaml:"topic"`
	Quote string `yaml:"quote"`
}

// Pools is the versioned template and phrase data. It is read-only once
// loaded; nothing in the engine mutates it.
type Pools struct {
	Version    int                 `yaml:"version"`
	Categories []Category          `yaml:"categories"`
	Hashtags   []string            `yaml:"hashtags"`
	Reflective []string            `yaml:"reflective"`
	Viral      []string            `yaml:"viral"`
	Styles     map[string][]string `yaml:"styles"`
	Phrases    map[string][]string `yaml:"phrases"`
	FollowUps  []string            `yaml:"follow_ups"`
	Fallback   Fallback            `yaml:"fallback"`
}

// DefaultPools parses the pools compiled into the binary.
func DefaultPools() (*Pools, error) {
	return ParsePools(defaultPools)
}

func ParsePools(data []byte) (*Pools, error) {
	var p Pools
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pools: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every pool is non-empty and that every template only
// uses placeholders its kind can resolve.
func (p *Pools) Validate() error {
	if len(p.Categories) == 0 {
		return errors.New("pools: no categories")
	}
	if p.Fallback.Topic == "" || p.Fallback.Quote == "" {
		return errors.New("pools: fallback topic and quote are required")
	}
	for _, key := range phraseKeys {
		if len(p.Phrases[key]) == 0 {
			return fmt.Errorf("pools: phrase pool %q is empty", key)
		}
	}
	if len(p.Styles) == 0 {
		return errors.New("pools: no response styles")
	}
	for _, list := range []struct {
		name string
		vals []string
	}{
		{"hashtags", p.Hashtags},
		{"reflective", p.Reflective},
		{"viral", p.Viral},
		{"follow_ups", p.FollowUps},
	} {
		if len(list.vals) == 0 {
			return fmt.Errorf("pools: %s is empty", list.name)
		}
	}

	literals := [][]string{p.Hashtags, p.FollowUps, {p.Fallback.Topic, p.Fallback.Quote}}
	for _, key := range phraseKeys {
		literals = append(literals, p.Phrases[key])
	}
	for _, c := range p.Categories {
		literals = append(literals, c.Topics)
	}
	for _, vals := range literals {
		for _, v := range vals {
			if HasPlaceholder(v) {
				return fmt.Errorf("pools: fill value %q contains a placeholder", v)
			}
		}
	}

	for _, c := range p.Categories {
		if len(c.Templates) == 0 || len(c.Topics) == 0 {
			return fmt.Errorf("pools: category %q needs templates and topics", c.Name)
		}
		if err := checkTemplates("category "+c.Name, c.Templates, originalSlots); err != nil {
			return err
		}
	}
	special := withPhrases(map[string]bool{"topic": true})
	if err := checkTemplates("reflective", p.Reflective, special); err != nil {
		return err
	}
	if err := checkTemplates("viral", p.Viral, special); err != nil {
		return err
	}
	response := withPhrases(map[string]bool{"topic": true, "quote": true})
	for _, name := range p.StyleNames() {
		if len(p.Styles[name]) == 0 {
			return fmt.Errorf("pools: style %q has no templates", name)
		}
		if err := checkTemplates("style "+name, p.Styles[name], response); err != nil {
			return err
		}
	}
	return nil
}

// StyleNames returns the response styles in name order.
func (p *Pools) StyleNames() []string {
	names := make([]string, 0, len(p.Styles))
	for name := range p.Styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var phraseKeys = []string{"perspective", "counter", "connective", "analogy", "implication", "reason"}

var originalSlots = map[string]bool{"topic": true}

func withPhrases(base map[string]bool) map[string]bool {
	for _, k := range phraseKeys {
		base[k] = true
	}
	return base
}

func checkTemplates(kind string, templates []string, allowed map[string]bool) error {
	for _, tpl := range templates {
		for _, name := range placeholderNames(tpl) {
			if !allowed[name] {
				return fmt.Errorf("pools: %s template %q uses unknown placeholder {%s}", kind, tpl, name)
			}
		}
	}
	return nil
}
