// Package catalog loads the studio's stage tables from YAML.
// The default catalog is embedded; a studio may point config at its own file.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/example/kiln/internal/core/stage"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// File is the on-disk catalog shape.
type File struct {
	PieceTypes map[string]PieceType `yaml:"piece_types"`
}

// PieceType lists one piece type's stages.
type PieceType struct {
	Stages []Stage `yaml:"stages"`
}

// Stage is one stage row of a catalog file.
type Stage struct {
	Name         string  `yaml:"name"`
	Sequence     int     `yaml:"sequence"`
	HoursPerUnit float64 `yaml:"hours_per_unit"`
}

// Default returns the embedded studio catalog.
func Default() (*stage.Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file; an empty path selects the embedded default.
func Load(path string) (*stage.Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*stage.Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse stage catalog: %w", err)
	}
	if len(f.PieceTypes) == 0 {
		return nil, fmt.Errorf("stage catalog defines no piece types")
	}

	names := make([]string, 0, len(f.PieceTypes))
	for name := range f.PieceTypes {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]*stage.Table, 0, len(names))
	for _, name := range names {
		pt := f.PieceTypes[name]
		defs := make([]stage.Definition, len(pt.Stages))
		for i, s := range pt.Stages {
			defs[i] = stage.Definition{Name: s.Name, Sequence: s.Sequence, HoursPerUnit: s.HoursPerUnit}
		}
		table, err := stage.NewTable(name, defs)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return stage.NewCatalog(tables...)
}
