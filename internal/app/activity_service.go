package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/kiln/internal/ctxutil"
	"github.com/example/kiln/internal/ports/primary"
	"github.com/example/kiln/internal/ports/secondary"
)

// Activity log vocabulary.
const (
	entityOrder        = "order"
	entityPiece        = "piece"
	entityAvailability = "availability"

	actionCreate = "create"
	actionUpdate = "update"
	actionDelete = "delete"
)

const defaultActivityLimit = 50

// activityChange is one field transition to log.
type activityChange struct {
	entityType string
	entityID   string
	action     string
	field      string
	oldValue   string
	newValue   string
}

// logActivity appends changes to the activity log through repos, attributed to
// the actor carried by ctx. Updates whose old and new values match are skipped.
func logActivity(ctx context.Context, repos secondary.Repositories, changes ...activityChange) error {
	actor := ctxutil.ActorFromContext(ctx)
	now := time.Now().UTC()
	for _, c := range changes {
		if c.action == actionUpdate && c.oldValue == c.newValue {
			continue
		}
		err := repos.Activity().Create(ctx, &secondary.ActivityRecord{
			ID:         uuid.NewString(),
			Actor:      actor,
			EntityType: c.entityType,
			EntityID:   c.entityID,
			Action:     c.action,
			FieldName:  c.field,
			OldValue:   c.oldValue,
			NewValue:   c.newValue,
			CreatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("failed to log %s %s change: %w", c.entityType, c.entityID, err)
		}
	}
	return nil
}

// ActivityServiceImpl implements the ActivityService interface.
type ActivityServiceImpl struct {
	repo secondary.ActivityRepository
}

// NewActivityService creates a new ActivityService with injected dependencies.
func NewActivityService(repo secondary.ActivityRepository) *ActivityServiceImpl {
	return &ActivityServiceImpl{repo: repo}
}

// ListActivity retrieves activity entries matching the given filters, newest first.
func (s *ActivityServiceImpl) ListActivity(ctx context.Context, filters primary.ActivityFilters) ([]*primary.ActivityEntry, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	records, err := s.repo.List(ctx, secondary.ActivityFilters{
		EntityType: filters.EntityType,
		EntityID:   filters.EntityID,
		Actor:      filters.Actor,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	entries := make([]*primary.ActivityEntry, len(records))
	for i, r := range records {
		entries[i] = &primary.ActivityEntry{
			ID:         r.ID,
			Actor:      r.Actor,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     r.Action,
			FieldName:  r.FieldName,
			OldValue:   r.OldValue,
			NewValue:   r.NewValue,
			CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return entries, nil
}

// Ensure ActivityServiceImpl implements the interface
var _ primary.ActivityService = (*ActivityServiceImpl)(nil)
