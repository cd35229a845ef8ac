package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/example/kiln/internal/core/calendar"
	"github.com/example/kiln/internal/core/stage"
)

// flat is a calendar with the same hours every day.
type flat float64

func (f flat) CapacityFor(time.Time) float64 { return float64(f) }

func date(s string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}

func unit(pieceID, orderID, stageName string, seq, qty int, perUnit float64) Unit {
	return Unit{
		WorkUnit: stage.WorkUnit{
			PieceID:      pieceID,
			OrderID:      orderID,
			PieceType:    "x",
			Stage:        stageName,
			Sequence:     seq,
			Quantity:     qty,
			HoursPerUnit: perUnit,
			Hours:        stage.RoundHours(float64(qty) * perUnit),
		},
		OrderCreatedAt: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
	}
}

type wantTask struct {
	stage string
	date  string
	qty   int
	hours float64
	late  bool
}

func assertTasks(t *testing.T, got []Task, want []wantTask) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tasks, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		g := got[i]
		if g.Stage != w.stage || calendar.FormatDate(g.Date) != w.date || g.Quantity != w.qty || g.EstimatedHours != w.hours || g.Late != w.late {
			t.Errorf("task[%d] = {%s %s qty=%d hours=%v late=%v}, want {%s %s qty=%d hours=%v late=%v}",
				i, g.Stage, calendar.FormatDate(g.Date), g.Quantity, g.EstimatedHours, g.Late,
				w.stage, w.date, w.qty, w.hours, w.late)
		}
	}
}

func TestPack_ScenarioA_SplitsAcrossDaysWithPrecedence(t *testing.T) {
	build := unit("PIECE-001", "ORD-001", "build", 10, 10, 1)
	fire := unit("PIECE-001", "ORD-001", "fire", 20, 10, 0.5)
	build.DueDate = datePtr("2026-01-10")
	fire.DueDate = datePtr("2026-01-10")

	res := Pack(Input{
		Units:    []Unit{fire, build},
		Calendar: flat(4),
		Start:    date("2026-01-01"),
	})

	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failures)
	}
	assertTasks(t, res.Tasks, []wantTask{
		{"build", "2026-01-01", 4, 4, false},
		{"build", "2026-01-02", 4, 4, false},
		{"build", "2026-01-03", 2, 2, false},
		{"fire", "2026-01-04", 8, 4, false},
		{"fire", "2026-01-05", 2, 1, false},
	})
}

func TestPack_ScenarioB_EarlierOrderWinsTie(t *testing.T) {
	older := unit("PIECE-001", "ORD-002", "build", 10, 4, 1)
	newer := unit("PIECE-002", "ORD-001", "build", 10, 4, 1)
	older.DueDate = datePtr("2026-02-01")
	newer.DueDate = datePtr("2026-02-01")
	older.OrderCreatedAt = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	newer.OrderCreatedAt = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	res := Pack(Input{
		Units:    []Unit{newer, older},
		Calendar: flat(4),
		Start:    date("2026-01-05"),
	})

	if len(res.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(res.Tasks))
	}
	if res.Tasks[0].PieceID != "PIECE-001" || calendar.FormatDate(res.Tasks[0].Date) != "2026-01-05" {
		t.Errorf("older order should take 2026-01-05, got %s on %s", res.Tasks[0].PieceID, calendar.FormatDate(res.Tasks[0].Date))
	}
	if res.Tasks[1].PieceID != "PIECE-002" || calendar.FormatDate(res.Tasks[1].Date) != "2026-01-06" {
		t.Errorf("newer order should move to 2026-01-06, got %s on %s", res.Tasks[1].PieceID, calendar.FormatDate(res.Tasks[1].Date))
	}
}

func TestPack_ScenarioD_SundayOverride(t *testing.T) {
	// 2026-01-04 is a Sunday, normally 0h.
	u := unit("PIECE-001", "ORD-001", "glaze", 10, 3, 1)

	closed := Pack(Input{Units: []Unit{u}, Calendar: calendar.New(calendar.DefaultTemplate(), nil), Start: date("2026-01-04")})
	if got := calendar.FormatDate(closed.Tasks[0].Date); got != "2026-01-05" {
		t.Errorf("without override, task date = %s, want 2026-01-05", got)
	}

	open := Pack(Input{
		Units:    []Unit{u},
		Calendar: calendar.New(calendar.DefaultTemplate(), map[string]float64{"2026-01-04": 6}),
		Start:    date("2026-01-04"),
	})
	if got := calendar.FormatDate(open.Tasks[0].Date); got != "2026-01-04" {
		t.Errorf("with override, task date = %s, want 2026-01-04", got)
	}
}

func TestPack_PriorityOrder(t *testing.T) {
	noDeadline := unit("PIECE-003", "ORD-003", "build", 10, 4, 1)
	timeline := unit("PIECE-002", "ORD-002", "build", 10, 4, 1)
	timeline.TimelineDate = datePtr("2026-03-01")
	due := unit("PIECE-001", "ORD-001", "build", 10, 4, 1)
	due.DueDate = datePtr("2026-04-01")
	due.TimelineDate = datePtr("2026-02-01")

	res := Pack(Input{Units: []Unit{noDeadline, timeline, due}, Calendar: flat(4), Start: date("2026-01-05")})

	want := []string{"PIECE-002", "PIECE-001", "PIECE-003"}
	for i, id := range want {
		if res.Tasks[i].PieceID != id {
			t.Errorf("task[%d] piece = %s, want %s", i, res.Tasks[i].PieceID, id)
		}
	}
}

func TestPack_WholePlacementSkipsDaysTooSmall(t *testing.T) {
	first := unit("PIECE-001", "ORD-001", "build", 10, 3, 1)
	first.DueDate = datePtr("2026-01-10")
	second := unit("PIECE-002", "ORD-002", "build", 10, 2, 1)
	second.DueDate = datePtr("2026-01-11")
	third := unit("PIECE-003", "ORD-003", "build", 10, 1, 1)
	third.DueDate = datePtr("2026-01-12")

	res := Pack(Input{Units: []Unit{first, second, third}, Calendar: flat(4), Start: date("2026-01-05")})

	// first: 3h day 1; second: 2h does not fit the 1h left, goes to day 2 whole;
	// third: 1h fills day 1.
	assertTasks(t, res.Tasks, []wantTask{
		{"build", "2026-01-05", 3, 3, false},
		{"build", "2026-01-06", 2, 2, false},
		{"build", "2026-01-05", 1, 1, false},
	})
}

func TestPack_LateFlag(t *testing.T) {
	u := unit("PIECE-001", "ORD-001", "build", 10, 10, 1)
	u.DueDate = datePtr("2026-01-02")

	res := Pack(Input{Units: []Unit{u}, Calendar: flat(4), Start: date("2026-01-01")})

	assertTasks(t, res.Tasks, []wantTask{
		{"build", "2026-01-01", 4, 4, false},
		{"build", "2026-01-02", 4, 4, true},
		{"build", "2026-01-03", 2, 2, true},
	})
}

func TestPack_PastDueDateMakesEverythingLate(t *testing.T) {
	u := unit("PIECE-001", "ORD-001", "build", 10, 2, 1)
	u.DueDate = datePtr("2025-12-24")

	res := Pack(Input{Units: []Unit{u}, Calendar: flat(4), Start: date("2026-01-01")})

	if !res.Tasks[0].Late {
		t.Error("task after a past due date should be late")
	}
}

func TestPack_UnschedulableIsPartialFailure(t *testing.T) {
	closed := calendar.New(calendar.WeeklyTemplate{}, map[string]float64{"2026-01-05": 4})

	big := unit("PIECE-001", "ORD-001", "build", 10, 10, 1)
	big.DueDate = datePtr("2026-01-06")
	bigFire := unit("PIECE-001", "ORD-001", "fire", 20, 10, 0.5)
	bigFire.DueDate = datePtr("2026-01-06")
	small := unit("PIECE-002", "ORD-002", "build", 10, 3, 1)
	small.DueDate = datePtr("2026-02-01")

	res := Pack(Input{Units: []Unit{big, bigFire, small}, Calendar: closed, Start: date("2026-01-05"), LookaheadDays: 30})

	if len(res.Failures) != 2 {
		t.Fatalf("got %d failures, want 2: %v", len(res.Failures), res.Failures)
	}
	for _, f := range res.Failures {
		if f.PieceID != "PIECE-001" {
			t.Errorf("failure for %s, want PIECE-001", f.PieceID)
		}
		var target *UnschedulableWorkUnitError
		if !errors.As(error(f), &target) {
			t.Error("failure should be an UnschedulableWorkUnitError")
		}
	}

	// The failed unit's tentative slices must not consume capacity.
	assertTasks(t, res.Tasks, []wantTask{
		{"build", "2026-01-05", 3, 3, false},
	})
}

func TestPack_DoesNotMutateInput(t *testing.T) {
	a := unit("PIECE-002", "ORD-002", "build", 10, 1, 1)
	b := unit("PIECE-001", "ORD-001", "build", 10, 1, 1)
	b.DueDate = datePtr("2026-01-09")
	units := []Unit{a, b}

	Pack(Input{Units: units, Calendar: flat(4), Start: date("2026-01-05")})

	if units[0].PieceID != "PIECE-002" {
		t.Error("Pack reordered the caller's slice")
	}
}

func TestIsLate(t *testing.T) {
	tests := []struct {
		name string
		date string
		due  *time.Time
		want bool
	}{
		{"no due date", "2030-01-01", nil, false},
		{"before due", "2026-01-09", datePtr("2026-01-10"), false},
		{"on due", "2026-01-10", datePtr("2026-01-10"), true},
		{"after due", "2026-01-11", datePtr("2026-01-10"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLate(date(tt.date), tt.due); got != tt.want {
				t.Errorf("IsLate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortUnits_NumericIDTieBreak(t *testing.T) {
	units := []Unit{
		unit("PIECE-1000", "ORD-1000", "build", 10, 1, 1),
		unit("PIECE-999", "ORD-999", "build", 10, 1, 1),
		unit("PIECE-1001", "ORD-999", "build", 10, 1, 1),
	}

	SortUnits(units)

	want := []string{"PIECE-999", "PIECE-1001", "PIECE-1000"}
	for i, id := range want {
		if units[i].PieceID != id {
			t.Errorf("units[%d] = %s, want %s", i, units[i].PieceID, id)
		}
	}
}

func TestCompareIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"ORD-999", "ORD-1000", -1},
		{"ORD-010", "ORD-10", -1},
		{"ORD-002", "ORD-002", 0},
		{"ORD-5", "PIECE-1", -1},
		{"custom", "ORD-001", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := compareIDs(tt.a, tt.b); got != tt.want {
				t.Errorf("compareIDs(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPack_FractionalCapacityNeverOverfills(t *testing.T) {
	const capacity = 2.3333337
	u := unit("PIECE-001", "ORD-001", "build", 10, 7, 1)

	res := Pack(Input{Units: []Unit{u}, Calendar: flat(capacity), Start: date("2026-01-05")})

	perDay := make(map[string]float64)
	qty := 0
	for _, tk := range res.Tasks {
		perDay[calendar.FormatDate(tk.Date)] += tk.EstimatedHours
		qty += tk.Quantity
	}
	for d, h := range perDay {
		if h > capacity {
			t.Errorf("%s holds %.9fh, over the %.7fh capacity", d, h, capacity)
		}
	}
	if qty != 7 {
		t.Errorf("slice quantities sum to %d, want 7", qty)
	}
}
