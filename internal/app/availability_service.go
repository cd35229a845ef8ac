package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/example/kiln/internal/core/calendar"
	"github.com/example/kiln/internal/ports/primary"
	"github.com/example/kiln/internal/ports/secondary"
)

// maxAvailabilityRange caps the number of days ListAvailability returns.
const maxAvailabilityRange = 366

// AvailabilityServiceImpl implements the AvailabilityService interface.
type AvailabilityServiceImpl struct {
	store    secondary.Store
	template calendar.WeeklyTemplate
	logger   *slog.Logger
}

// NewAvailabilityService creates a new AvailabilityService with injected dependencies.
func NewAvailabilityService(store secondary.Store, template calendar.WeeklyTemplate, logger *slog.Logger) *AvailabilityServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvailabilityServiceImpl{store: store, template: template, logger: logger}
}

// SetAvailability creates or replaces the capacity override for a date.
func (s *AvailabilityServiceImpl) SetAvailability(ctx context.Context, req primary.SetAvailabilityRequest) (*primary.Availability, error) {
	d, err := calendar.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if req.Hours < 0 {
		return nil, fmt.Errorf("hours must not be negative, got %v", req.Hours)
	}

	err = s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		previous := formatHours(s.template.HoursFor(d))
		action := actionCreate
		existing, err := repos.Availability().Get(ctx, req.Date)
		switch {
		case err == nil:
			previous = formatHours(existing.Hours)
			action = actionUpdate
		case !errors.Is(err, secondary.ErrNotFound):
			return err
		}

		record := &secondary.AvailabilityRecord{Date: req.Date, Hours: req.Hours, Notes: req.Notes}
		if err := repos.Availability().Upsert(ctx, record); err != nil {
			return err
		}
		return logActivity(ctx, repos, activityChange{entityAvailability, req.Date, action, "hours", previous, formatHours(req.Hours)})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("availability override set", "date", req.Date, "hours", req.Hours)
	return &primary.Availability{Date: req.Date, Hours: req.Hours, Notes: req.Notes, Overridden: true}, nil
}

// ClearAvailability removes a date's override so the weekly template applies.
func (s *AvailabilityServiceImpl) ClearAvailability(ctx context.Context, date string) error {
	if _, err := calendar.ParseDate(date); err != nil {
		return err
	}
	err := s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		existing, err := repos.Availability().Get(ctx, date)
		if err != nil {
			return err
		}
		if err := repos.Availability().Delete(ctx, date); err != nil {
			return err
		}
		return logActivity(ctx, repos, activityChange{entityAvailability, date, actionDelete, "hours", formatHours(existing.Hours), ""})
	})
	if err != nil {
		return err
	}
	s.logger.Info("availability override cleared", "date", date)
	return nil
}

// ListAvailability lists the effective capacity for every date in [from, to].
func (s *AvailabilityServiceImpl) ListAvailability(ctx context.Context, from, to string) ([]*primary.Availability, error) {
	start, err := calendar.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := calendar.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("range end %s is before start %s", to, from)
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > maxAvailabilityRange {
		return nil, fmt.Errorf("range of %d days exceeds the %d day limit", days, maxAvailabilityRange)
	}

	records, err := s.store.Availability().ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]float64, len(records))
	notes := make(map[string]string, len(records))
	for _, r := range records {
		overrides[r.Date] = r.Hours
		notes[r.Date] = r.Notes
	}
	cal := calendar.New(s.template, overrides)

	var out []*primary.Availability
	for d := start; !d.After(end); d = calendar.AddDays(d, 1) {
		date := calendar.FormatDate(d)
		out = append(out, &primary.Availability{
			Date:       date,
			Hours:      cal.CapacityFor(d),
			Notes:      notes[date],
			Overridden: cal.IsOverridden(d),
		})
	}
	return out, nil
}

// CapacityFor returns the effective capacity of one date.
func (s *AvailabilityServiceImpl) CapacityFor(ctx context.Context, date string) (*primary.Availability, error) {
	d, err := calendar.ParseDate(date)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Availability().Get(ctx, date)
	if errors.Is(err, secondary.ErrNotFound) {
		return &primary.Availability{Date: date, Hours: s.template.HoursFor(d)}, nil
	}
	if err != nil {
		return nil, err
	}
	return &primary.Availability{Date: date, Hours: record.Hours, Notes: record.Notes, Overridden: true}, nil
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// Ensure AvailabilityServiceImpl implements the interface
var _ primary.AvailabilityService = (*AvailabilityServiceImpl)(nil)
