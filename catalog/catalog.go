// Package catalog provides the static registry of attack techniques used by
// the evaluation engine. Catalogs are built once from a structured source
// (typically a YAML file) and are immutable afterward.
package catalog

import (
	"fmt"
	"sort"

	"github.com/zero-day-ai/redcell/types"
)

// Catalog is an immutable registry of technique profiles keyed by ID.
type Catalog struct {
	byID  map[string]types.TechniqueProfile
	order []string
}

// New builds a catalog from the given profiles. Each profile is validated
// and duplicate IDs are rejected.
func New(profiles []types.TechniqueProfile) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]types.TechniqueProfile, len(profiles))}

	for i := range profiles {
		p := profiles[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: invalid technique at index %d: %w", i, err)
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate technique ID %q", p.ID)
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}

	sort.Strings(c.order)
	return c, nil
}

// Get returns the technique with the given ID.
func (c *Catalog) Get(id string) (types.TechniqueProfile, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Len returns the number of techniques in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Techniques returns all profiles in ascending ID order. The returned slice
// is a copy; the catalog itself is never exposed for mutation.
func (c *Catalog) Techniques() []types.TechniqueProfile {
	out := make([]types.TechniqueProfile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// BySource returns all profiles carrying the given source tag, in ascending
// ID order.
func (c *Catalog) BySource(tag types.SourceTag) []types.TechniqueProfile {
	var out []types.TechniqueProfile
	for _, id := range c.order {
		if p := c.byID[id]; p.Source == tag {
			out = append(out, p)
		}
	}
	return out
}

// ByTactic returns all profiles carrying the given tactic label, in
// ascending ID order.
func (c *Catalog) ByTactic(tactic string) []types.TechniqueProfile {
	var out []types.TechniqueProfile
	for _, id := range c.order {
		if p := c.byID[id]; p.HasTactic(tactic) {
			out = append(out, p)
		}
	}
	return out
}
