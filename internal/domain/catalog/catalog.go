package catalog

import (
	"strings"

	"github.com/qaplayground/playground-hub/internal/domain/shared"
)

// Scenario is a single playground exercise.
type Scenario struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Tier  Tier   `json:"difficulty" yaml:"tier"`
}

// Catalog is an ordered, read-only set of scenarios plus the XP table that
// prices them.
type Catalog struct {
	scenarios []Scenario
	index     map[string]int
	xp        XPTable
}

// New builds a catalog. Scenario ids must be unique and non-empty and every
// scenario tier must be priced by xp.
func New(scenarios []Scenario, xp XPTable) (*Catalog, error) {
	if err := xp.Validate(); err != nil {
		return nil, err
	}

	c := &Catalog{
		scenarios: make([]Scenario, 0, len(scenarios)),
		index:     make(map[string]int, len(scenarios)),
		xp:        xp.Clone(),
	}

	for _, s := range scenarios {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, shared.InvalidInput("catalog", "New", "scenario id is required")
		}
		if _, dup := c.index[s.ID]; dup {
			return nil, shared.WrapError("catalog", "New", shared.ErrInvalidInput,
				"duplicate scenario id "+s.ID, shared.ErrDuplicateScenario)
		}
		if _, ok := c.xp.XPFor(s.Tier); !ok {
			return nil, shared.InvalidInput("catalog", "New", "scenario "+s.ID+" has unpriced tier "+string(s.Tier))
		}
		if s.Title == "" {
			s.Title = s.ID
		}
		c.index[s.ID] = len(c.scenarios)
		c.scenarios = append(c.scenarios, s)
	}

	return c, nil
}

// Lookup returns the scenario with the given id.
func (c *Catalog) Lookup(id string) (Scenario, bool) {
	i, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return Scenario{}, false
	}
	return c.scenarios[i], true
}

// Scenarios returns the scenarios in catalog order.
func (c *Catalog) Scenarios() []Scenario {
	out := make([]Scenario, len(c.scenarios))
	copy(out, c.scenarios)
	return out
}

// Len returns the number of scenarios.
func (c *Catalog) Len() int {
	return len(c.scenarios)
}

// XPTable returns a copy of the award table.
func (c *Catalog) XPTable() XPTable {
	return c.xp.Clone()
}

// XPFor prices a scenario by its catalog tier.
func (c *Catalog) XPFor(id string) (int, bool) {
	s, ok := c.Lookup(id)
	if !ok {
		return 0, false
	}
	return c.xp.XPFor(s.Tier)
}

// TotalPossibleXP is the XP a user holds after completing every scenario.
func (c *Catalog) TotalPossibleXP() int {
	total := 0
	for _, s := range c.scenarios {
		xp, _ := c.xp.XPFor(s.Tier)
		total += xp
	}
	return total
}

// CountByTier returns how many scenarios each tier has.
func (c *Catalog) CountByTier() map[Tier]int {
	out := make(map[Tier]int)
	for _, s := range c.scenarios {
		out[s.Tier]++
	}
	return out
}

// ResolveTier reconciles a requested tier with the catalog. An empty request
// takes the catalog tier. A request that contradicts the catalog is rejected.
// Scenarios unknown to the catalog keep the requested tier.
func (c *Catalog) ResolveTier(scenarioID, requested string) (Tier, error) {
	requested = strings.TrimSpace(requested)
	s, known := c.Lookup(scenarioID)

	if requested == "" {
		if !known {
			return "", shared.InvalidInput("catalog", "ResolveTier", "difficulty is required for scenario "+scenarioID)
		}
		return s.Tier, nil
	}

	tier, err := ParseTier(requested)
	if err != nil {
		return "", err
	}
	if _, ok := c.xp.XPFor(tier); !ok {
		return "", shared.WrapError("catalog", "ResolveTier", shared.ErrInvalidInput,
			"tier "+string(tier)+" has no xp value", shared.ErrUnknownTier)
	}
	if known && s.Tier != tier {
		return "", shared.ErrTierMismatch
	}
	return tier, nil
}
