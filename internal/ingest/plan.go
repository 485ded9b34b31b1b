// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// Plan is the on-disk list of cells and categories an ingestion run
// sweeps. Operators keep it under version control and edit it to grow
// coverage without touching code.
type Plan struct {
	Cells      []types.Cell `yaml:"cells"`
	Categories []string     `yaml:"categories"`
}

const defaultRadiusMeters = 1500

// DefaultPlan covers the main dining neighborhoods of Recife.
func DefaultPlan() Plan {
	cell := func(name string, lat, lng float64) types.Cell {
		return types.Cell{
			Name:         name,
			Center:       types.GeoPoint{Lat: lat, Lng: lng},
			RadiusMeters: defaultRadiusMeters,
			City:         "Recife",
		}
	}
	return Plan{
		Cells: []types.Cell{
			cell("boa-viagem-norte", -8.1005, -34.8870),
			cell("boa-viagem-sul", -8.1320, -34.9010),
			cell("pina", -8.0880, -34.8830),
			cell("recife-antigo", -8.0630, -34.8710),
			cell("gracas", -8.0470, -34.9000),
			cell("espinheiro", -8.0410, -34.8920),
			cell("casa-forte", -8.0370, -34.9190),
			cell("madalena", -8.0540, -34.9090),
		},
		Categories: []string{"restaurant", "cafe", "bar", "bakery", "meal_takeaway"},
	}
}

// Validate reports the first structural problem in p.
func (p Plan) Validate() error {
	if len(p.Cells) == 0 {
		return fmt.Errorf("plan has no cells")
	}
	if len(p.Categories) == 0 {
		return fmt.Errorf("plan has no categories")
	}
	names := make(map[string]bool)
	for i, c := range p.Cells {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("cell %d: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("cell %q: duplicate name", c.Name)
		}
		names[c.Name] = true
		if c.RadiusMeters <= 0 || c.RadiusMeters > 50000 {
			return fmt.Errorf("cell %q: radius_meters must be between 1 and 50000", c.Name)
		}
		if c.Center.Lat < -90 || c.Center.Lat > 90 || c.Center.Lng < -180 || c.Center.Lng > 180 {
			return fmt.Errorf("cell %q: center out of range", c.Name)
		}
	}
	for i, cat := range p.Categories {
		if strings.TrimSpace(cat) == "" {
			return fmt.Errorf("category %d is empty", i)
		}
	}
	return nil
}

// LoadPlan reads and validates a plan file.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("reading plan file: %w", err)
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("parsing plan file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return p, nil
}

// WritePlan saves p as YAML.
func WritePlan(path string, p Plan) error {
	data, err := yaml.Marshal(&p)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
