// Package ritual holds the catalog of example rituals shipped with the
// binary.
package ritual

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML string

// Ritual is one example script.
type Ritual struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Code        string `yaml:"code"`
}

// Catalog is an ordered set of rituals.
type Catalog struct {
	rituals []Ritual
}

// Parse reads a YAML list of rituals.
func Parse(r io.Reader) (*Catalog, error) {
	var rituals []Ritual
	if err := yaml.NewDecoder(r).Decode(&rituals); err != nil {
		return nil, fmt.Errorf("failed to decode ritual catalog: %w", err)
	}

	seen := make(map[string]bool, len(rituals))
	for i, rt := range rituals {
		if rt.ID == "" {
			return nil, fmt.Errorf("ritual %d: missing id", i)
		}
		if seen[rt.ID] {
			return nil, fmt.Errorf("ritual %s: duplicate id", rt.ID)
		}
		if strings.TrimSpace(rt.Code) == "" {
			return nil, fmt.Errorf("ritual %s: empty code", rt.ID)
		}
		seen[rt.ID] = true
	}
	return &Catalog{rituals: rituals}, nil
}

// Builtin returns the embedded catalog.
func Builtin() (*Catalog, error) {
	return Parse(strings.NewReader(catalogYAML))
}

// All returns the rituals in catalog order.
func (c *Catalog) All() []Ritual {
	out := make([]Ritual, len(c.rituals))
	copy(out, c.rituals)
	return out
}

// Find looks a ritual up by id or, case-insensitively, by display name.
func (c *Catalog) Find(key string) (Ritual, bool) {
	for _, rt := range c.rituals {
		if rt.ID == key || strings.EqualFold(rt.Name, key) {
			return rt, true
		}
	}
	return Ritual{}, false
}

// IDs returns the sorted ritual ids.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.rituals))
	for i, rt := range c.rituals {
		ids[i] = rt.ID
	}
	sort.Strings(ids)
	return ids
}
