package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/kiln/internal/core/calendar"
	"github.com/example/kiln/internal/core/schedule"
	"github.com/example/kiln/internal/core/stage"
	"github.com/example/kiln/internal/core/task"
	"github.com/example/kiln/internal/ctxutil"
	"github.com/example/kiln/internal/metrics"
	"github.com/example/kiln/internal/ports/primary"
	"github.com/example/kiln/internal/ports/secondary"
)

// Run results recorded in regeneration_runs.
const (
	RunSuccess  = "success"
	RunPartial  = "partial"
	RunFailed   = "failed"
	RunRejected = "rejected"
)

// ScheduleConfig holds the scheduling knobs read from config.
type ScheduleConfig struct {
	Template      calendar.WeeklyTemplate
	LookaheadDays int
	LockTTL       time.Duration
}

// ScheduleServiceImpl implements the ScheduleService interface.
type ScheduleServiceImpl struct {
	store   secondary.Store
	catalog *stage.Catalog
	cfg     ScheduleConfig
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduleService creates a new ScheduleService with injected dependencies.
func NewScheduleService(
	store secondary.Store,
	catalog *stage.Catalog,
	cfg ScheduleConfig,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) *ScheduleServiceImpl {
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = schedule.DefaultLookaheadDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleServiceImpl{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// rebuildOutcome collects what one transactional rebuild did.
type rebuildOutcome struct {
	created int
	deleted int
	skipped []primary.SkippedWork
}

// Regenerate discards every pending task and rebuilds the schedule from the
// current pieces, availability and stage catalog in one transaction.
func (s *ScheduleServiceImpl) Regenerate(ctx context.Context) (*primary.RegenerateResponse, error) {
	started := s.now()
	runID := uuid.NewString()
	holder := ctxutil.ActorFromContext(ctx)
	log := s.logger.With("run_id", runID, "actor", holder)

	held, err := s.store.Lock().Acquire(ctx, holder, s.cfg.LockTTL)
	if errors.Is(err, secondary.ErrLockHeld) {
		rejected := &primary.ConcurrentRegenerationError{}
		if held != nil {
			rejected.Holder = held.Holder
			rejected.Since = held.AcquiredAt
		}
		log.Warn("schedule regeneration rejected", "holder", rejected.Holder)
		s.finishRun(ctx, log, runID, holder, started, RunRejected, rebuildOutcome{}, rejected.Error())
		return nil, rejected
	}
	if err != nil {
		return nil, &primary.PersistenceError{Op: "acquire regeneration lock", Err: err}
	}
	defer func() {
		if err := s.store.Lock().Release(context.WithoutCancel(ctx), held.Token); err != nil {
			log.Error("failed to release regeneration lock", "error", err)
		}
	}()

	log.Info("schedule regeneration started")

	today := calendar.Day(started)
	var out rebuildOutcome
	err = s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		out = rebuildOutcome{}
		return s.rebuild(ctx, repos, today, &out)
	})
	if err != nil {
		log.Error("schedule regeneration failed", "error", err)
		s.finishRun(ctx, log, runID, holder, started, RunFailed, rebuildOutcome{}, err.Error())
		return nil, &primary.PersistenceError{Op: "regenerate schedule", Err: err}
	}

	result := RunSuccess
	if len(out.skipped) > 0 {
		result = RunPartial
	}
	message := fmt.Sprintf("Schedule regenerated: %d tasks created, %d pending tasks replaced", out.created, out.deleted)
	if len(out.skipped) > 0 {
		message += fmt.Sprintf(", %d skipped", len(out.skipped))
	}
	for _, sk := range out.skipped {
		log.Warn("work left unscheduled", "piece_id", sk.PieceID, "stage", sk.Stage, "reason", sk.Reason)
	}
	s.finishRun(ctx, log, runID, holder, started, result, out, message)

	return &primary.RegenerateResponse{
		RunID:        runID,
		TasksCreated: out.created,
		TasksDeleted: out.deleted,
		Skipped:      out.skipped,
		Message:      message,
	}, nil
}

// rebuild runs inside the regeneration transaction.
func (s *ScheduleServiceImpl) rebuild(ctx context.Context, repos secondary.Repositories, today time.Time, out *rebuildOutcome) error {
	pendingIDs, err := repos.Tasks().ListPendingIDs(ctx)
	if err != nil {
		return err
	}
	deleted, err := repos.Tasks().DeletePending(ctx, pendingIDs)
	if err != nil {
		return err
	}
	out.deleted = deleted

	outstanding, err := repos.Pieces().ListOutstanding(ctx)
	if err != nil {
		return err
	}

	horizonEnd := calendar.AddDays(today, s.cfg.LookaheadDays)
	overrides, err := repos.Availability().ListRange(ctx, calendar.FormatDate(today), calendar.FormatDate(horizonEnd))
	if err != nil {
		return err
	}
	hours := make(map[string]float64, len(overrides))
	for _, o := range overrides {
		hours[o.Date] = o.Hours
	}

	units, skipped := s.collectUnits(outstanding)
	out.skipped = skipped

	packed := schedule.Pack(schedule.Input{
		Units:         units,
		Calendar:      calendar.New(s.cfg.Template, hours),
		Start:         today,
		LookaheadDays: s.cfg.LookaheadDays,
	})
	for _, f := range packed.Failures {
		out.skipped = append(out.skipped, primary.SkippedWork{PieceID: f.PieceID, Stage: f.Stage, Reason: f.Reason})
	}

	seq, err := repos.Tasks().NextSequence(ctx)
	if err != nil {
		return err
	}
	for _, t := range packed.Tasks {
		record := &secondary.TaskRecord{
			ID:             fmt.Sprintf("TASK-%03d", seq),
			PieceID:        t.PieceID,
			TaskType:       t.Stage,
			Quantity:       t.Quantity,
			EstimatedHours: t.EstimatedHours,
			Date:           calendar.FormatDate(t.Date),
			Status:         task.StatusPending,
			IsLate:         t.Late,
		}
		if err := repos.Tasks().Create(ctx, record); err != nil {
			return err
		}
		seq++
	}
	out.created = len(packed.Tasks)
	return nil
}

// collectUnits decomposes outstanding pieces into scheduler units. Pieces the
// catalog cannot describe are skipped and reported, not fatal.
func (s *ScheduleServiceImpl) collectUnits(outstanding []*secondary.OutstandingPieceRecord) ([]schedule.Unit, []primary.SkippedWork) {
	var (
		units   []schedule.Unit
		skipped []primary.SkippedWork
	)
	for _, rec := range outstanding {
		p := rec.Piece
		due, err := optionalDate(rec.OrderDueDate)
		if err != nil {
			skipped = append(skipped, primary.SkippedWork{PieceID: p.ID, Reason: fmt.Sprintf("order due date: %v", err)})
			continue
		}
		timeline, err := optionalDate(rec.OrderTimelineDate)
		if err != nil {
			skipped = append(skipped, primary.SkippedWork{PieceID: p.ID, Reason: fmt.Sprintf("order timeline date: %v", err)})
			continue
		}

		work, err := s.catalog.Decompose(stage.Piece{
			ID:                p.ID,
			OrderID:           p.OrderID,
			PieceType:         p.PieceType,
			Quantity:          p.Quantity,
			CompletedQuantity: p.CompletedQuantity,
			Stage:             p.Stage,
		})
		if err != nil {
			skipped = append(skipped, primary.SkippedWork{PieceID: p.ID, Stage: p.Stage, Reason: err.Error()})
			continue
		}
		for _, w := range work {
			units = append(units, schedule.Unit{
				WorkUnit:       w,
				DueDate:        due,
				TimelineDate:   timeline,
				OrderCreatedAt: rec.OrderCreatedAt,
			})
		}
	}
	return units, skipped
}

// finishRun records the run and its metrics. A failure to record is logged
// only; it never changes the regeneration's outcome.
func (s *ScheduleServiceImpl) finishRun(ctx context.Context, log *slog.Logger, runID, holder string, started time.Time, result string, out rebuildOutcome, message string) {
	finished := s.now()
	elapsed := finished.Sub(started)
	s.metrics.ObserveRegeneration(result, elapsed, out.created, out.deleted, len(out.skipped))

	run := &secondary.RunRecord{
		ID:           runID,
		StartedAt:    started,
		FinishedAt:   finished,
		Result:       result,
		TasksCreated: out.created,
		TasksDeleted: out.deleted,
		Skipped:      len(out.skipped),
		Message:      message,
		TriggeredBy:  holder,
	}
	if err := s.store.Runs().Create(context.WithoutCancel(ctx), run); err != nil {
		log.Error("failed to record regeneration run", "error", err)
	}

	if result == RunSuccess || result == RunPartial {
		log.Info("schedule regeneration finished",
			"result", result,
			"tasks_created", out.created,
			"tasks_deleted", out.deleted,
			"skipped", len(out.skipped),
			"duration", elapsed,
		)
	}
}

// GetSchedule lists tasks in display order.
func (s *ScheduleServiceImpl) GetSchedule(ctx context.Context, filters primary.ScheduleFilters) ([]*primary.Task, error) {
	for _, d := range []string{filters.From, filters.To} {
		if d == "" {
			continue
		}
		if _, err := calendar.ParseDate(d); err != nil {
			return nil, err
		}
	}

	records, err := s.store.Tasks().List(ctx, secondary.TaskFilters{
		Status:  filters.Status,
		PieceID: filters.PieceID,
		From:    filters.From,
		To:      filters.To,
	})
	if err != nil {
		return nil, &primary.PersistenceError{Op: "read schedule", Err: err}
	}

	tasks := make([]*primary.Task, len(records))
	for i, r := range records {
		tasks[i] = recordToTask(r)
	}
	return tasks, nil
}

// ListRuns returns the most recent regeneration runs, newest first.
func (s *ScheduleServiceImpl) ListRuns(ctx context.Context, limit int) ([]*primary.Run, error) {
	records, err := s.store.Runs().ListRecent(ctx, limit)
	if err != nil {
		return nil, &primary.PersistenceError{Op: "list regeneration runs", Err: err}
	}

	runs := make([]*primary.Run, len(records))
	for i, r := range records {
		runs[i] = &primary.Run{
			ID:           r.ID,
			StartedAt:    r.StartedAt,
			FinishedAt:   r.FinishedAt,
			Result:       r.Result,
			TasksCreated: r.TasksCreated,
			TasksDeleted: r.TasksDeleted,
			Skipped:      r.Skipped,
			Message:      r.Message,
			TriggeredBy:  r.TriggeredBy,
		}
	}
	return runs, nil
}

// optionalDate parses an ISO date where empty means none.
func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Ensure ScheduleServiceImpl implements the interface
var _ primary.ScheduleService = (*ScheduleServiceImpl)(nil)
