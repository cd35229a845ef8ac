// Package calendar supplies the studio's working-hour capacity per calendar date.
// It combines a fixed weekly template with date-specific availability overrides.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used for every persisted date.
const DateLayout = "2006-01-02"

// WeeklyTemplate holds default hours indexed by time.Weekday (Sunday = 0).
type WeeklyTemplate [7]float64

// DefaultTemplate returns the studio's stock week: Sunday off, 6h weekdays, 4h Saturday.
func DefaultTemplate() WeeklyTemplate {
	return WeeklyTemplate{
		time.Sunday:    0,
		time.Monday:    6,
		time.Tuesday:   6,
		time.Wednesday: 6,
		time.Thursday:  6,
		time.Friday:    6,
		time.Saturday:  4,
	}
}

// HoursFor returns the template hours for the weekday of date.
func (w WeeklyTemplate) HoursFor(date time.Time) float64 {
	return w[date.Weekday()]
}

// Calendar answers capacity questions for a scheduling run.
// Overrides are keyed by ISO date (see DateLayout).
type Calendar struct {
	Template  WeeklyTemplate
	Overrides map[string]float64
}

// New creates a Calendar from a template and a set of overrides.
// The overrides map is copied so later mutation by the caller has no effect.
func New(template WeeklyTemplate, overrides map[string]float64) *Calendar {
	copied := make(map[string]float64, len(overrides))
	for k, v := range overrides {
		copied[k] = v
	}
	return &Calendar{Template: template, Overrides: copied}
}

// CapacityFor returns the available working hours on date.
// An override wins over the weekly template; 0 is a valid "no work" answer.
func (c *Calendar) CapacityFor(date time.Time) float64 {
	if hours, ok := c.Overrides[FormatDate(date)]; ok {
		return hours
	}
	return c.Template.HoursFor(date)
}

// IsOverridden reports whether date carries an explicit availability record.
func (c *Calendar) IsOverridden(date time.Time) bool {
	_, ok := c.Overrides[FormatDate(date)]
	return ok
}

// Day truncates t to midnight UTC of its own calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses an ISO calendar date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// AddDays returns date shifted by n calendar days.
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}
