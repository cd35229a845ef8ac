// Package stage holds the per-piece-type production stage tables and the
// decomposer that expands an order line-item into stage work units.
package stage

import (
	"fmt"
	"math"
	"sort"
)

// Complete is the terminal stage name every table ends with.
const Complete = "complete"

// Definition is one production step of a piece type.
// Sequence is explicit data; precedence never depends on slice position.
type Definition struct {
	Name         string
	Sequence     int
	HoursPerUnit float64
}

// Table is the ordered stage sequence of one piece type.
type Table struct {
	PieceType string
	stages    []Definition
	byName    map[string]int
}

// NewTable validates defs and builds a table ordered by Sequence.
// Rules:
// - at least one work stage plus the terminal "complete" stage
// - names and sequences are unique
// - "complete" has the highest sequence
// - work stages have positive hours per unit
func NewTable(pieceType string, defs []Definition) (*Table, error) {
	if pieceType == "" {
		return nil, fmt.Errorf("stage table has no piece type")
	}

	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	byName := make(map[string]int, len(sorted))
	seenSeq := make(map[int]string, len(sorted))
	for i, d := range sorted {
		if d.Name == "" {
			return nil, fmt.Errorf("piece type %s: stage at sequence %d has no name", pieceType, d.Sequence)
		}
		if _, dup := byName[d.Name]; dup {
			return nil, fmt.Errorf("piece type %s: duplicate stage %q", pieceType, d.Name)
		}
		if other, dup := seenSeq[d.Sequence]; dup {
			return nil, fmt.Errorf("piece type %s: stages %q and %q share sequence %d", pieceType, other, d.Name, d.Sequence)
		}
		if d.Name != Complete && d.HoursPerUnit <= 0 {
			return nil, fmt.Errorf("piece type %s: stage %q must have positive hours per unit", pieceType, d.Name)
		}
		byName[d.Name] = i
		seenSeq[d.Sequence] = d.Name
	}

	if len(sorted) < 2 {
		return nil, fmt.Errorf("piece type %s: needs at least one work stage and %q", pieceType, Complete)
	}
	if sorted[len(sorted)-1].Name != Complete {
		return nil, fmt.Errorf("piece type %s: last stage must be %q", pieceType, Complete)
	}

	return &Table{PieceType: pieceType, stages: sorted, byName: byName}, nil
}

// Stages returns the table's definitions in sequence order.
func (t *Table) Stages() []Definition {
	out := make([]Definition, len(t.stages))
	copy(out, t.stages)
	return out
}

// Lookup returns the definition for a stage name.
func (t *Table) Lookup(name string) (Definition, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Definition{}, false
	}
	return t.stages[i], true
}

// First returns the first work stage, where new pieces start.
func (t *Table) First() Definition {
	return t.stages[0]
}

// Next returns the stage that follows name. The terminal stage has no next.
func (t *Table) Next(name string) (Definition, bool) {
	i, ok := t.byName[name]
	if !ok || i+1 >= len(t.stages) {
		return Definition{}, false
	}
	return t.stages[i+1], true
}

// Catalog maps piece types to their stage tables.
type Catalog struct {
	tables map[string]*Table
}

// NewCatalog builds a catalog; a piece type may appear only once.
func NewCatalog(tables ...*Table) (*Catalog, error) {
	c := &Catalog{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if _, dup := c.tables[t.PieceType]; dup {
			return nil, fmt.Errorf("duplicate stage table for piece type %s", t.PieceType)
		}
		c.tables[t.PieceType] = t
	}
	return c, nil
}

// Table returns the stage table for a piece type.
func (c *Catalog) Table(pieceType string) (*Table, error) {
	t, ok := c.tables[pieceType]
	if !ok {
		return nil, &UnknownPieceTypeError{PieceType: pieceType}
	}
	return t, nil
}

// PieceTypes lists the catalog's piece types in sorted order.
func (c *Catalog) PieceTypes() []string {
	out := make([]string, 0, len(c.tables))
	for k := range c.tables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RoundHours trims float noise so hour totals compare and serialize stably.
func RoundHours(h float64) float64 {
	return math.Round(h*1e6) / 1e6
}
