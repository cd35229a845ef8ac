// Package schedule turns outstanding stage work units into dated, capacity-bounded tasks.
// Pack is a pure function: every input, including the horizon start, is passed in.
package schedule

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/example/kiln/internal/core/calendar"
	"github.com/example/kiln/internal/core/stage"
)

// DefaultLookaheadDays bounds how far past the horizon start a unit may be placed.
const DefaultLookaheadDays = 365

const epsilon = 1e-9

// Unit is a work unit tagged with its owning order's scheduling attributes.
type Unit struct {
	stage.WorkUnit
	DueDate        *time.Time
	TimelineDate   *time.Time
	OrderCreatedAt time.Time
}

// Deadline returns the unit's effective deadline: due date, else timeline date.
func (u Unit) Deadline() (time.Time, bool) {
	if u.DueDate != nil {
		return *u.DueDate, true
	}
	if u.TimelineDate != nil {
		return *u.TimelineDate, true
	}
	return time.Time{}, false
}

// Capacity supplies hours per date.
type Capacity interface {
	CapacityFor(date time.Time) float64
}

// Input is everything one packing run needs.
type Input struct {
	Units         []Unit
	Calendar      Capacity
	Start         time.Time
	LookaheadDays int
}

// Task is one placed slice of a work unit.
type Task struct {
	PieceID        string
	OrderID        string
	Stage          string
	Sequence       int
	Quantity       int
	EstimatedHours float64
	Date           time.Time
	Late           bool
}

// UnschedulableWorkUnitError reports a unit that could not be fully placed
// inside the lookahead window.
type UnschedulableWorkUnitError struct {
	PieceID string
	Stage   string
	Reason  string
}

func (e *UnschedulableWorkUnitError) Error() string {
	return fmt.Sprintf("piece %s stage %s cannot be scheduled: %s", e.PieceID, e.Stage, e.Reason)
}

// Result is the outcome of a packing run. Failures are per unit; the
// remaining units are still placed.
type Result struct {
	Tasks    []Task
	Failures []*UnschedulableWorkUnitError
}

// SortUnits orders units by scheduling priority:
// effective deadline ascending (none last), order creation time, stage sequence,
// then order ID and piece ID so equal keys still sort deterministically.
func SortUnits(units []Unit) {
	slices.SortStableFunc(units, func(a, b Unit) int {
		da, okA := a.Deadline()
		db, okB := b.Deadline()
		switch {
		case okA && !okB:
			return -1
		case !okA && okB:
			return 1
		case okA && okB:
			if c := da.Compare(db); c != 0 {
				return c
			}
		}
		if c := a.OrderCreatedAt.Compare(b.OrderCreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Sequence, b.Sequence); c != 0 {
			return c
		}
		if c := compareIDs(a.OrderID, b.OrderID); c != 0 {
			return c
		}
		return compareIDs(a.PieceID, b.PieceID)
	})
}

// compareIDs orders PREFIX-NNN identifiers by their numeric suffix, so
// ORD-999 sorts before ORD-1000. Anything else compares as plain strings.
func compareIDs(a, b string) int {
	pa, na, okA := splitID(a)
	pb, nb, okB := splitID(b)
	if okA && okB && pa == pb {
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
	}
	return cmp.Compare(a, b)
}

func splitID(id string) (string, int, bool) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:i], n, true
}

// ledger tracks hours committed per day offset from the horizon start.
type ledger struct {
	cal       Capacity
	start     time.Time
	committed []float64
}

func (l *ledger) date(day int) time.Time {
	return calendar.AddDays(l.start, day)
}

func (l *ledger) remaining(day int) float64 {
	used := 0.0
	if day < len(l.committed) {
		used = l.committed[day]
	}
	return l.cal.CapacityFor(l.date(day)) - used
}

func (l *ledger) commit(day int, hours float64) {
	for len(l.committed) <= day {
		l.committed = append(l.committed, 0)
	}
	l.committed[day] = stage.RoundHours(l.committed[day] + hours)
}

type slice struct {
	day   int
	hours float64
}

// Pack places every unit greedily, day by day, in priority order.
func Pack(in Input) Result {
	lookahead := in.LookaheadDays
	if lookahead <= 0 {
		lookahead = DefaultLookaheadDays
	}

	units := make([]Unit, len(in.Units))
	copy(units, in.Units)
	SortUnits(units)

	led := &ledger{cal: in.Calendar, start: calendar.Day(in.Start)}

	// earliest day offset each piece's next stage may start on
	nextStart := make(map[string]int)
	// pieces whose earlier stage failed, mapped to that stage
	blocked := make(map[string]string)

	var result Result
	for _, u := range units {
		if failedStage, ok := blocked[u.PieceID]; ok {
			result.Failures = append(result.Failures, &UnschedulableWorkUnitError{
				PieceID: u.PieceID,
				Stage:   u.Stage,
				Reason:  fmt.Sprintf("earlier stage %s could not be scheduled", failedStage),
			})
			continue
		}

		from := nextStart[u.PieceID]
		placed, ok := place(led, from, lookahead, u.Hours)
		if !ok {
			blocked[u.PieceID] = u.Stage
			result.Failures = append(result.Failures, &UnschedulableWorkUnitError{
				PieceID: u.PieceID,
				Stage:   u.Stage,
				Reason:  fmt.Sprintf("needs %.2fh but capacity runs out within %d days", u.Hours, lookahead),
			})
			continue
		}

		quantities := prorate(u, placed)
		for i, s := range placed {
			led.commit(s.day, s.hours)
			result.Tasks = append(result.Tasks, newTask(u, led.date(s.day), quantities[i], s.hours))
		}
		nextStart[u.PieceID] = placed[len(placed)-1].day + 1
	}
	return result
}

// place finds slots for hours starting at day offset from. Whole placement on
// the earliest day with enough room wins; otherwise the unit is split across
// consecutive days with any room left. Nothing is committed here.
func place(led *ledger, from, lookahead int, hours float64) ([]slice, bool) {
	for day := from; day < lookahead; day++ {
		if led.remaining(day) >= hours-epsilon {
			return []slice{{day: day, hours: hours}}, true
		}
	}

	var out []slice
	left := hours
	for day := from; day < lookahead && left > epsilon; day++ {
		room := led.remaining(day)
		if room <= epsilon {
			continue
		}
		// rounding may not push a slice past the day's room
		take := math.Min(room, stage.RoundHours(math.Min(room, left)))
		out = append(out, slice{day: day, hours: take})
		left = stage.RoundHours(left - take)
	}
	if left > epsilon {
		return nil, false
	}
	return out, true
}

// prorate converts slice hours to integer quantities. Every slice but the
// last gets floor(hours / hoursPerUnit); the last takes the remainder so the
// quantities add up to the unit's quantity exactly.
func prorate(u Unit, parts []slice) []int {
	out := make([]int, len(parts))
	assigned := 0
	for i := 0; i < len(parts)-1; i++ {
		q := int(math.Floor(parts[i].hours/u.HoursPerUnit + epsilon))
		if q > u.Quantity-assigned {
			q = u.Quantity - assigned
		}
		out[i] = q
		assigned += q
	}
	out[len(parts)-1] = u.Quantity - assigned
	return out
}

func newTask(u Unit, date time.Time, quantity int, hours float64) Task {
	return Task{
		PieceID:        u.PieceID,
		OrderID:        u.OrderID,
		Stage:          u.Stage,
		Sequence:       u.Sequence,
		Quantity:       quantity,
		EstimatedHours: hours,
		Date:           date,
		Late:           IsLate(date, u.DueDate),
	}
}

// IsLate reports whether a task dated date misses due. No due date is never late.
func IsLate(date time.Time, due *time.Time) bool {
	if due == nil {
		return false
	}
	return !calendar.Day(date).Before(calendar.Day(*due))
}
