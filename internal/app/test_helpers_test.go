package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/example/kiln/internal/core/stage"
	"github.com/example/kiln/internal/ports/secondary"
)

// Ensure mockStore implements the interface
var _ secondary.Store = (*mockStore)(nil)

// mockStore is an in-memory secondary.Store. RunInTx snapshots every map and
// restores it when fn fails, which is enough to observe rollback in tests.
type mockStore struct {
	orders       map[string]*secondary.OrderRecord
	pieces       map[string]*secondary.PieceRecord
	tasks        map[string]*secondary.TaskRecord
	availability map[string]*secondary.AvailabilityRecord
	runs         []*secondary.RunRecord
	activity     []*secondary.ActivityRecord
	lock         *mockLock

	// error injection
	createTaskErr      error
	createTaskFailAt   int // fail on the Nth task insert (1-based), 0 disables
	createTaskCount    int
	listOutstandingErr error
	updateProgressErr  error
	createRunErr       error
	createActivityErr  error
	txCount            int
}

func newMockStore() *mockStore {
	return &mockStore{
		orders:       make(map[string]*secondary.OrderRecord),
		pieces:       make(map[string]*secondary.PieceRecord),
		tasks:        make(map[string]*secondary.TaskRecord),
		availability: make(map[string]*secondary.AvailabilityRecord),
		lock:         &mockLock{},
	}
}

func (m *mockStore) Orders() secondary.OrderRepository { return mockOrders{m} }
func (m *mockStore) Pieces() secondary.PieceRepository { return mockPieces{m} }
func (m *mockStore) Tasks() secondary.TaskRepository { return mockTasks{m} }
func (m *mockStore) Availability() secondary.AvailabilityRepository { return mockAvailability{m} }
func (m *mockStore) Runs() secondary.RunRepository { return mockRuns{m} }
func (m *mockStore) Activity() secondary.ActivityRepository { return mockActivity{m} }
func (m *mockStore) Lock() secondary.RegenerationLock { return m.lock }

type storeSnapshot struct {
	orders       map[string]secondary.OrderRecord
	pieces       map[string]secondary.PieceRecord
	tasks        map[string]secondary.TaskRecord
	availability map[string]secondary.AvailabilityRecord
	activity     int
}

func (m *mockStore) snapshot() storeSnapshot {
	s := storeSnapshot{
		orders:       make(map[string]secondary.OrderRecord),
		pieces:       make(map[string]secondary.PieceRecord),
		tasks:        make(map[string]secondary.TaskRecord),
		availability: make(map[string]secondary.AvailabilityRecord),
		activity:     len(m.activity),
	}
	for k, v := range m.orders {
		s.orders[k] = *v
	}
	for k, v := range m.pieces {
		s.pieces[k] = *v
	}
	for k, v := range m.tasks {
		s.tasks[k] = *v
	}
	for k, v := range m.availability {
		s.availability[k] = *v
	}
	return s
}

func (m *mockStore) restore(s storeSnapshot) {
	m.orders = make(map[string]*secondary.OrderRecord)
	for k, v := range s.orders {
		m.orders[k] = &v
	}
	m.pieces = make(map[string]*secondary.PieceRecord)
	for k, v := range s.pieces {
		m.pieces[k] = &v
	}
	m.tasks = make(map[string]*secondary.TaskRecord)
	for k, v := range s.tasks {
		m.tasks[k] = &v
	}
	m.availability = make(map[string]*secondary.AvailabilityRecord)
	for k, v := range s.availability {
		m.availability[k] = &v
	}
	m.activity = m.activity[:s.activity]
}

func (m *mockStore) RunInTx(ctx context.Context, fn func(repos secondary.Repositories) error) error {
	m.txCount++
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// --- orders ---

type mockOrders struct{ m *mockStore }

func (r mockOrders) Create(ctx context.Context, o *secondary.OrderRecord) error {
	if _, ok := r.m.orders[o.ID]; ok {
		return fmt.Errorf("UNIQUE constraint failed: orders.id")
	}
	c := *o
	if c.Status == "" {
		c.Status = "pending"
	}
	if c.CreatedAt == "" {
		c.CreatedAt = "2025-12-01T00:00:00Z"
	}
	r.m.orders[o.ID] = &c
	return nil
}

func (r mockOrders) GetByID(ctx context.Context, id string) (*secondary.OrderRecord, error) {
	o, ok := r.m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found: %w", id, secondary.ErrNotFound)
	}
	c := *o
	return &c, nil
}

func (r mockOrders) List(ctx context.Context, f secondary.OrderFilters) ([]*secondary.OrderRecord, error) {
	var out []*secondary.OrderRecord
	for _, o := range r.m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		c := *o
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r mockOrders) set(id string, fn func(*secondary.OrderRecord)) error {
	o, ok := r.m.orders[id]
	if !ok {
		return fmt.Errorf("order %s not found: %w", id, secondary.ErrNotFound)
	}
	fn(o)
	return nil
}

func (r mockOrders) UpdateDueDate(ctx context.Context, id, d string) error {
	return r.set(id, func(o *secondary.OrderRecord) { o.DueDate = d })
}

func (r mockOrders) UpdateTimelineDate(ctx context.Context, id, d string) error {
	return r.set(id, func(o *secondary.OrderRecord) { o.TimelineDate = d })
}

func (r mockOrders) UpdateStatus(ctx context.Context, id, s string) error {
	return r.set(id, func(o *secondary.OrderRecord) { o.Status = s })
}

func (r mockOrders) GetNextID(ctx context.Context) (string, error) {
	return fmt.Sprintf("ORD-%03d", maxSuffix(keys(r.m.orders))+1), nil
}

// --- pieces ---

type mockPieces struct{ m *mockStore }

func (r mockPieces) Create(ctx context.Context, p *secondary.PieceRecord) error {
	if _, ok := r.m.orders[p.OrderID]; !ok {
		return fmt.Errorf("FOREIGN KEY constraint failed")
	}
	c := *p
	r.m.pieces[p.ID] = &c
	return nil
}

func (r mockPieces) GetByID(ctx context.Context, id string) (*secondary.PieceRecord, error) {
	p, ok := r.m.pieces[id]
	if !ok {
		return nil, fmt.Errorf("piece %s not found: %w", id, secondary.ErrNotFound)
	}
	c := *p
	return &c, nil
}

func (r mockPieces) ListByOrder(ctx context.Context, orderID string) ([]*secondary.PieceRecord, error) {
	var out []*secondary.PieceRecord
	for _, id := range sortedKeys(r.m.pieces) {
		if p := r.m.pieces[id]; p.OrderID == orderID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r mockPieces) ListOutstanding(ctx context.Context) ([]*secondary.OutstandingPieceRecord, error) {
	if r.m.listOutstandingErr != nil {
		return nil, r.m.listOutstandingErr
	}
	var out []*secondary.OutstandingPieceRecord
	for _, id := range sortedKeys(r.m.pieces) {
		p := r.m.pieces[id]
		o := r.m.orders[p.OrderID]
		if p.CompletedQuantity >= p.Quantity || o.Status == "cancelled" || o.Status == "completed" {
			continue
		}
		created, _ := time.Parse(time.RFC3339, o.CreatedAt)
		out = append(out, &secondary.OutstandingPieceRecord{
			Piece:             *p,
			OrderDueDate:      o.DueDate,
			OrderTimelineDate: o.TimelineDate,
			OrderCreatedAt:    created,
		})
	}
	return out, nil
}

func (r mockPieces) UpdateProgress(ctx context.Context, id, stageName string, completed int) error {
	if r.m.updateProgressErr != nil {
		return r.m.updateProgressErr
	}
	p, ok := r.m.pieces[id]
	if !ok {
		return fmt.Errorf("piece %s not found: %w", id, secondary.ErrNotFound)
	}
	if completed < 0 || completed > p.Quantity {
		return fmt.Errorf("CHECK constraint failed: completed_quantity")
	}
	p.Stage = stageName
	p.CompletedQuantity = completed
	return nil
}

func (r mockPieces) GetNextID(ctx context.Context) (string, error) {
	return fmt.Sprintf("PIECE-%03d", maxSuffix(keys(r.m.pieces))+1), nil
}

// --- tasks ---

type mockTasks struct{ m *mockStore }

func (r mockTasks) Create(ctx context.Context, t *secondary.TaskRecord) error {
	r.m.createTaskCount++
	if r.m.createTaskErr != nil && (r.m.createTaskFailAt == 0 || r.m.createTaskCount == r.m.createTaskFailAt) {
		return r.m.createTaskErr
	}
	p, ok := r.m.pieces[t.PieceID]
	if !ok {
		return fmt.Errorf("FOREIGN KEY constraint failed")
	}
	c := *t
	c.OrderID = p.OrderID
	if c.Status == "" {
		c.Status = "pending"
	}
	r.m.tasks[t.ID] = &c
	return nil
}

func (r mockTasks) GetByID(ctx context.Context, id string) (*secondary.TaskRecord, error) {
	t, ok := r.m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found: %w", id, secondary.ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (r mockTasks) List(ctx context.Context, f secondary.TaskFilters) ([]*secondary.TaskRecord, error) {
	var out []*secondary.TaskRecord
	for _, t := range r.m.tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.PieceID != "" && t.PieceID != f.PieceID {
			continue
		}
		if f.From != "" && t.Date < f.From {
			continue
		}
		if f.To != "" && t.Date > f.To {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.IsLate != b.IsLate {
			return a.IsLate
		}
		if a.EstimatedHours != b.EstimatedHours {
			return a.EstimatedHours > b.EstimatedHours
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r mockTasks) ListPendingIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for _, id := range sortedKeys(r.m.tasks) {
		if r.m.tasks[id].Status == "pending" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r mockTasks) DeletePending(ctx context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if t, ok := r.m.tasks[id]; ok && t.Status == "pending" {
			delete(r.m.tasks, id)
			n++
		}
	}
	return n, nil
}

func (r mockTasks) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	t, ok := r.m.tasks[id]
	if !ok || t.Status != "pending" {
		return false, nil
	}
	t.Status = "completed"
	t.CompletedAt = at.UTC().Format(time.RFC3339)
	return true, nil
}

func (r mockTasks) CountPending(ctx context.Context, pieceID, taskType, excludeID string) (int, error) {
	n := 0
	for id, t := range r.m.tasks {
		if id != excludeID && t.PieceID == pieceID && t.TaskType == taskType && t.Status == "pending" {
			n++
		}
	}
	return n, nil
}

func (r mockTasks) NextSequence(ctx context.Context) (int, error) {
	return maxSuffix(keys(r.m.tasks)) + 1, nil
}

// --- availability ---

type mockAvailability struct{ m *mockStore }

func (r mockAvailability) Upsert(ctx context.Context, a *secondary.AvailabilityRecord) error {
	c := *a
	r.m.availability[a.Date] = &c
	return nil
}

func (r mockAvailability) Delete(ctx context.Context, date string) error {
	if _, ok := r.m.availability[date]; !ok {
		return fmt.Errorf("availability for %s not found: %w", date, secondary.ErrNotFound)
	}
	delete(r.m.availability, date)
	return nil
}

func (r mockAvailability) Get(ctx context.Context, date string) (*secondary.AvailabilityRecord, error) {
	a, ok := r.m.availability[date]
	if !ok {
		return nil, fmt.Errorf("availability for %s not found: %w", date, secondary.ErrNotFound)
	}
	c := *a
	return &c, nil
}

func (r mockAvailability) ListRange(ctx context.Context, from, to string) ([]*secondary.AvailabilityRecord, error) {
	var out []*secondary.AvailabilityRecord
	for _, d := range sortedKeys(r.m.availability) {
		if (from == "" || d >= from) && (to == "" || d <= to) {
			c := *r.m.availability[d]
			out = append(out, &c)
		}
	}
	return out, nil
}

// --- runs ---

type mockRuns struct{ m *mockStore }

func (r mockRuns) Create(ctx context.Context, run *secondary.RunRecord) error {
	if r.m.createRunErr != nil {
		return r.m.createRunErr
	}
	c := *run
	r.m.runs = append(r.m.runs, &c)
	return nil
}

func (r mockRuns) ListRecent(ctx context.Context, limit int) ([]*secondary.RunRecord, error) {
	var out []*secondary.RunRecord
	for i := len(r.m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.m.runs[i])
	}
	return out, nil
}

// --- activity ---

type mockActivity struct{ m *mockStore }

func (r mockActivity) Create(ctx context.Context, e *secondary.ActivityRecord) error {
	if r.m.createActivityErr != nil {
		return r.m.createActivityErr
	}
	c := *e
	r.m.activity = append(r.m.activity, &c)
	return nil
}

func (r mockActivity) List(ctx context.Context, f secondary.ActivityFilters) ([]*secondary.ActivityRecord, error) {
	var out []*secondary.ActivityRecord
	for i := len(r.m.activity) - 1; i >= 0; i-- {
		e := r.m.activity[i]
		if f.EntityType != "" && e.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != "" && e.EntityID != f.EntityID {
			continue
		}
		if f.Actor != "" && e.Actor != f.Actor {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// activityFields returns "entity/field:old->new" for every logged entry, oldest first.
func (m *mockStore) activityFields() []string {
	out := make([]string, len(m.activity))
	for i, e := range m.activity {
		out[i] = fmt.Sprintf("%s/%s:%s->%s", e.EntityID, e.FieldName, e.OldValue, e.NewValue)
	}
	return out
}

// --- lock ---

// mockLock implements secondary.RegenerationLock.
type mockLock struct {
	held       *secondary.LockRecord
	acquireErr error
	acquired   int
	released   int
}

func (l *mockLock) Acquire(ctx context.Context, holder string, ttl time.Duration) (*secondary.LockRecord, error) {
	if l.acquireErr != nil {
		return nil, l.acquireErr
	}
	if l.held != nil {
		return l.held, secondary.ErrLockHeld
	}
	l.acquired++
	l.held = &secondary.LockRecord{
		Name:       "schedule",
		Token:      "token-" + strconv.Itoa(l.acquired),
		Holder:     holder,
		AcquiredAt: time.Now(),
	}
	return l.held, nil
}

func (l *mockLock) Release(ctx context.Context, token string) error {
	if l.held != nil && l.held.Token == token {
		l.held = nil
		l.released++
	}
	return nil
}

// --- helpers ---

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := keys(m)
	sort.Strings(out)
	return out
}

func maxSuffix(ids []string) int {
	highest := 0
	for _, id := range ids {
		if i := strings.LastIndexByte(id, '-'); i >= 0 {
			if n, err := strconv.Atoi(id[i+1:]); err == nil && n > highest {
				highest = n
			}
		}
	}
	return highest
}

// testCatalog is a two-stage "cup" (build 1h, fire 0.5h) plus a three-stage "bowl".
func testCatalog(t *testing.T) *stage.Catalog {
	t.Helper()
	cup, err := stage.NewTable("cup", []stage.Definition{
		{Name: "build", Sequence: 1, HoursPerUnit: 1},
		{Name: "fire", Sequence: 2, HoursPerUnit: 0.5},
		{Name: "complete", Sequence: 3},
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	bowl, err := stage.NewTable("bowl", []stage.Definition{
		{Name: "build", Sequence: 1, HoursPerUnit: 1},
		{Name: "trim", Sequence: 2, HoursPerUnit: 0.5},
		{Name: "fire", Sequence: 3, HoursPerUnit: 0.25},
		{Name: "complete", Sequence: 4},
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	c, err := stage.NewCatalog(cup, bowl)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 9, 0, 0, 0, time.UTC) }
}

var errBoom = errors.New("boom")
