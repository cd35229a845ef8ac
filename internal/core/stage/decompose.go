package stage

import "fmt"

// Piece is the decomposer's view of an order line-item.
type Piece struct {
	ID                string
	OrderID           string
	PieceType         string
	Quantity          int
	CompletedQuantity int
	Stage             string
}

// WorkUnit is the not-yet-scheduled quantity of one piece at one stage.
type WorkUnit struct {
	PieceID      string
	OrderID      string
	PieceType    string
	Stage        string
	Sequence     int
	Quantity     int
	HoursPerUnit float64
	Hours        float64
}

// UnknownPieceTypeError means a piece type has no stage table.
// The piece is skipped for scheduling and reported.
type UnknownPieceTypeError struct {
	PieceID   string
	PieceType string
}

func (e *UnknownPieceTypeError) Error() string {
	if e.PieceID == "" {
		return fmt.Sprintf("unknown piece type %q", e.PieceType)
	}
	return fmt.Sprintf("piece %s: unknown piece type %q", e.PieceID, e.PieceType)
}

// UnknownStageError means a piece sits in a stage its table does not define.
type UnknownStageError struct {
	PieceID   string
	PieceType string
	Stage     string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("piece %s: stage %q is not defined for piece type %q", e.PieceID, e.Stage, e.PieceType)
}

// Decompose expands a piece into one work unit per remaining work stage,
// from its current stage through the last stage before "complete".
// CompletedQuantity counts the units that cleared the current stage, so the
// current stage carries Quantity - CompletedQuantity and every later stage
// carries the full Quantity. Hours = quantity * HoursPerUnit. A finished
// piece yields no units.
func (c *Catalog) Decompose(p Piece) ([]WorkUnit, error) {
	table, err := c.Table(p.PieceType)
	if err != nil {
		return nil, &UnknownPieceTypeError{PieceID: p.ID, PieceType: p.PieceType}
	}

	current := p.Stage
	if current == "" {
		current = table.First().Name
	}
	def, ok := table.Lookup(current)
	if !ok {
		return nil, &UnknownStageError{PieceID: p.ID, PieceType: p.PieceType, Stage: p.Stage}
	}
	if def.Name == Complete || p.Quantity <= 0 {
		return nil, nil
	}

	var units []WorkUnit
	for _, d := range table.stages {
		if d.Sequence < def.Sequence || d.Name == Complete {
			continue
		}
		q := p.Quantity
		if d.Sequence == def.Sequence {
			q -= p.CompletedQuantity
		}
		if q <= 0 {
			continue
		}
		units = append(units, WorkUnit{
			PieceID:      p.ID,
			OrderID:      p.OrderID,
			PieceType:    p.PieceType,
			Stage:        d.Name,
			Sequence:     d.Sequence,
			Quantity:     q,
			HoursPerUnit: d.HoursPerUnit,
			Hours:        RoundHours(float64(q) * d.HoursPerUnit),
		})
	}
	return units, nil
}
