package primary

import "context"

// ActivityService defines the primary port for the correction activity log.
type ActivityService interface {
	// ListActivity retrieves activity entries matching the given filters, newest first.
	ListActivity(ctx context.Context, filters ActivityFilters) ([]*ActivityEntry, error)
}

// ActivityEntry is one logged change at the port boundary.
type ActivityEntry struct {
	ID         string
	Actor      string
	EntityType string
	EntityID   string
	Action     string // 'create', 'update', 'delete'
	FieldName  string // For updates only
	OldValue   string
	NewValue   string
	CreatedAt  string
}

// ActivityFilters contains filter options for querying the activity log.
type ActivityFilters struct {
	EntityType string
	EntityID   string
	Actor      string
	Limit      int
}
