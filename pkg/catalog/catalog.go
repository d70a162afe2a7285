// pkg/catalog/catalog.go
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog. It panics if the embedded file is invalid,
// which can only happen on a broken build.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(defaultCatalog)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded catalog is invalid: %v", defaultErr))
	}
	return defaultCat
}

// Load reads a catalog file from disk. An empty path yields the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for gi := range cat.Groups {
		for qi := range cat.Groups[gi].Questions {
			q := &cat.Groups[gi].Questions[qi]
			for oi, o := range q.Options {
				q.Options[oi] = strings.ToLower(strings.TrimSpace(o))
			}
		}
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Catalog) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("catalog version is required")
	}
	seen := make(map[string]bool)
	for _, g := range c.Groups {
		if len(g.Questions) == 0 {
			return fmt.Errorf("catalog group %q has no questions", g.Name)
		}
		for _, q := range g.Questions {
			if q.Key == "" {
				return fmt.Errorf("catalog group %q has a question without key", g.Name)
			}
			if seen[q.Key] {
				return fmt.Errorf("duplicate question key %q", q.Key)
			}
			seen[q.Key] = true
			if len(q.Options) == 0 {
				return fmt.Errorf("question %q has no options", q.Key)
			}
		}
	}
	for _, name := range []string{GroupRequirements, GroupReadiness} {
		if c.Group(name) == nil {
			return fmt.Errorf("catalog is missing group %q", name)
		}
	}
	return nil
}

// Group returns the named group or nil.
func (c *Catalog) Group(name string) *Group {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			return &c.Groups[i]
		}
	}
	return nil
}

// Questions returns the questions of the named group, in catalog order.
func (c *Catalog) Questions(group string) []Question {
	g := c.Group(group)
	if g == nil {
		return nil
	}
	return g.Questions
}

// Lookup finds a question by key across all groups.
func (c *Catalog) Lookup(key string) (Question, bool) {
	for _, g := range c.Groups {
		for _, q := range g.Questions {
			if q.Key == key {
				return q, true
			}
		}
	}
	return Question{}, false
}

// All returns every question in catalog order.
func (c *Catalog) All() []Question {
	var out []Question
	for _, g := range c.Groups {
		out = append(out, g.Questions...)
	}
	return out
}
