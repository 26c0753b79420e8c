// Package catalog loads the scenario catalog from YAML. The default catalog
// is embedded in the binary; a file given in configuration replaces it.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	domain "github.com/qaplayground/playground-hub/internal/domain/catalog"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

type fileScenario struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Tier  string `yaml:"tier"`
}

type file struct {
	XP        map[string]int `yaml:"xp"`
	Scenarios []fileScenario `yaml:"scenarios"`
}

// Parse decodes a YAML catalog. Unknown keys are rejected. A missing xp
// section means the default XP table.
func Parse(data []byte) (*domain.Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog: empty document")
		}
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	xp := domain.DefaultXPTable()
	if len(f.XP) > 0 {
		xp = make(domain.XPTable, len(f.XP))
		for name, value := range f.XP {
			tier, err := domain.ParseTier(name)
			if err != nil {
				return nil, fmt.Errorf("catalog: xp: %w", err)
			}
			xp[tier] = value
		}
	}

	scenarios := make([]domain.Scenario, 0, len(f.Scenarios))
	for i, s := range f.Scenarios {
		tier, err := domain.ParseTier(s.Tier)
		if err != nil {
			return nil, fmt.Errorf("catalog: scenario %d (%s): %w", i, s.ID, err)
		}
		scenarios = append(scenarios, domain.Scenario{ID: s.ID, Title: s.Title, Tier: tier})
	}

	c, err := domain.New(scenarios, xp)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return c, nil
}

// Default returns the embedded catalog.
func Default() (*domain.Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (*domain.Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}
