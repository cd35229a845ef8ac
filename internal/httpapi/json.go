package httpapi

import (
	"time"

	"github.com/example/kiln/internal/ports/primary"
)

type errorJSON struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type skippedJSON struct {
	PieceID string `json:"piece_id"`
	Stage   string `json:"stage,omitempty"`
	Reason  string `json:"reason"`
}

type regenerateJSON struct {
	Success      bool          `json:"success"`
	RunID        string        `json:"run_id"`
	TasksCreated int           `json:"tasks_created"`
	TasksDeleted int           `json:"tasks_deleted"`
	Skipped      []skippedJSON `json:"skipped"`
	Message      string        `json:"message"`
}

func toRegenerateJSON(r *primary.RegenerateResponse) regenerateJSON {
	out := regenerateJSON{
		Success:      true,
		RunID:        r.RunID,
		TasksCreated: r.TasksCreated,
		TasksDeleted: r.TasksDeleted,
		Skipped:      make([]skippedJSON, len(r.Skipped)),
		Message:      r.Message,
	}
	for i, sk := range r.Skipped {
		out.Skipped[i] = skippedJSON{PieceID: sk.PieceID, Stage: sk.Stage, Reason: sk.Reason}
	}
	return out
}

type taskJSON struct {
	ID             string  `json:"id"`
	PieceID        string  `json:"order_detail_id"`
	OrderID        string  `json:"order_id"`
	TaskType       string  `json:"task_type"`
	Quantity       int     `json:"quantity"`
	EstimatedHours float64 `json:"estimated_hours"`
	Date           string  `json:"date"`
	Status         string  `json:"status"`
	IsLate         bool    `json:"is_late"`
	CompletedAt    string  `json:"completed_at,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

func toTaskJSON(t *primary.Task) taskJSON {
	return taskJSON{
		ID:             t.ID,
		PieceID:        t.PieceID,
		OrderID:        t.OrderID,
		TaskType:       t.TaskType,
		Quantity:       t.Quantity,
		EstimatedHours: t.EstimatedHours,
		Date:           t.Date,
		Status:         t.Status,
		IsLate:         t.IsLate,
		CompletedAt:    t.CompletedAt,
		CreatedAt:      t.CreatedAt,
	}
}

type pieceJSON struct {
	ID                string `json:"id"`
	OrderID           string `json:"order_id"`
	PieceType         string `json:"piece_type"`
	Quantity          int    `json:"quantity"`
	CompletedQuantity int    `json:"completed_quantity"`
	Stage             string `json:"stage"`
	StageChangedAt    string `json:"stage_changed_at,omitempty"`
}

func toPieceJSON(p *primary.Piece) pieceJSON {
	return pieceJSON{
		ID:                p.ID,
		OrderID:           p.OrderID,
		PieceType:         p.PieceType,
		Quantity:          p.Quantity,
		CompletedQuantity: p.CompletedQuantity,
		Stage:             p.Stage,
		StageChangedAt:    p.StageChangedAt,
	}
}

type completeTaskJSON struct {
	Task          taskJSON  `json:"task"`
	Piece         pieceJSON `json:"piece"`
	StageAdvanced bool      `json:"stage_advanced"`
}

type orderJSON struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customer_name"`
	Status       string      `json:"status"`
	DueDate      string      `json:"due_date,omitempty"`
	TimelineDate string      `json:"timeline_date,omitempty"`
	CreatedAt    string      `json:"created_at"`
	Pieces       []pieceJSON `json:"pieces,omitempty"`
}

func toOrderJSON(o *primary.Order) orderJSON {
	out := orderJSON{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		Status:       o.Status,
		DueDate:      o.DueDate,
		TimelineDate: o.TimelineDate,
		CreatedAt:    o.CreatedAt,
	}
	for _, p := range o.Pieces {
		out.Pieces = append(out.Pieces, toPieceJSON(p))
	}
	return out
}

type availabilityJSON struct {
	Date       string  `json:"date"`
	Hours      float64 `json:"hours"`
	Notes      string  `json:"notes,omitempty"`
	Overridden bool    `json:"overridden"`
}

func toAvailabilityJSON(a *primary.Availability) availabilityJSON {
	return availabilityJSON{Date: a.Date, Hours: a.Hours, Notes: a.Notes, Overridden: a.Overridden}
}

type runJSON struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Result       string    `json:"result"`
	TasksCreated int       `json:"tasks_created"`
	TasksDeleted int       `json:"tasks_deleted"`
	Skipped      int       `json:"skipped"`
	Message      string    `json:"message,omitempty"`
	TriggeredBy  string    `json:"triggered_by"`
}

func toRunJSON(r *primary.Run) runJSON {
	return runJSON{
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

type activityJSON struct {
	ID         string `json:"id"`
	Actor      string `json:"actor"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Action     string `json:"action"`
	FieldName  string `json:"field_name,omitempty"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toActivityJSON(e *primary.ActivityEntry) activityJSON {
	return activityJSON{
		ID:         e.ID,
		Actor:      e.Actor,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		FieldName:  e.FieldName,
		OldValue:   e.OldValue,
		NewValue:   e.NewValue,
		CreatedAt:  e.CreatedAt,
	}
}
