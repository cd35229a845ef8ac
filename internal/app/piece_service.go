package app

import (
	"context"
	"log/slog"
	"strconv"

	coreorder "github.com/example/kiln/internal/core/order"
	"github.com/example/kiln/internal/core/stage"
	"github.com/example/kiln/internal/core/task"
	"github.com/example/kiln/internal/ports/primary"
	"github.com/example/kiln/internal/ports/secondary"
)

// PieceServiceImpl implements the PieceService interface.
type PieceServiceImpl struct {
	store   secondary.Store
	catalog *stage.Catalog
	logger  *slog.Logger
}

// NewPieceService creates a new PieceService with injected dependencies.
func NewPieceService(store secondary.Store, catalog *stage.Catalog, logger *slog.Logger) *PieceServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &PieceServiceImpl{store: store, catalog: catalog, logger: logger}
}

// GetPiece retrieves a piece by ID.
func (s *PieceServiceImpl) GetPiece(ctx context.Context, pieceID string) (*primary.Piece, error) {
	record, err := s.store.Pieces().GetByID(ctx, pieceID)
	if err != nil {
		return nil, err
	}
	return recordToPiece(record), nil
}

// UpdatePieceProgress applies a staff correction. Moving to a different stage
// without an explicit quantity starts that stage's counter at zero. A stage
// whose whole batch is done rolls forward to the next stage.
func (s *PieceServiceImpl) UpdatePieceProgress(ctx context.Context, req primary.UpdatePieceProgressRequest) (*primary.Piece, error) {
	var updated *secondary.PieceRecord
	err := s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		record, err := repos.Pieces().GetByID(ctx, req.PieceID)
		if err != nil {
			return err
		}

		newStage := record.Stage
		completed := record.CompletedQuantity
		if req.Stage != nil && *req.Stage != record.Stage {
			newStage = *req.Stage
			completed = 0
			if newStage == stage.Complete {
				completed = record.Quantity
			}
		}
		if req.CompletedQuantity != nil {
			completed = *req.CompletedQuantity
		}

		table, err := s.catalog.Table(record.PieceType)
		if err != nil {
			return err
		}
		_, known := table.Lookup(newStage)

		guard := task.CanCorrectPiece(task.CorrectPieceContext{
			PieceID:           record.ID,
			PieceExists:       true,
			Quantity:          record.Quantity,
			CompletedQuantity: completed,
			Stage:             newStage,
			StageKnown:        known,
		})
		if !guard.Allowed {
			return guard.Error()
		}

		newStage, completed = normalizeProgress(table, newStage, record.Quantity, completed)

		if err := repos.Pieces().UpdateProgress(ctx, record.ID, newStage, completed); err != nil {
			return err
		}
		err = logActivity(ctx, repos,
			activityChange{entityPiece, record.ID, actionUpdate, "stage", record.Stage, newStage},
			activityChange{entityPiece, record.ID, actionUpdate, "completed_quantity",
				strconv.Itoa(record.CompletedQuantity), strconv.Itoa(completed)},
		)
		if err != nil {
			return err
		}
		if err := syncOrderStatus(ctx, repos, record.OrderID, coreorder.EventPieceCorrected); err != nil {
			return err
		}

		updated, err = repos.Pieces().GetByID(ctx, record.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("piece progress corrected",
		"piece_id", updated.ID,
		"stage", updated.Stage,
		"completed_quantity", updated.CompletedQuantity,
	)
	return recordToPiece(updated), nil
}

// normalizeProgress keeps the per-stage counter meaningful: a full batch on a
// work stage moves to the next stage, and "complete" always carries the full quantity.
func normalizeProgress(table *stage.Table, current string, quantity, completed int) (string, int) {
	if current == stage.Complete {
		return current, quantity
	}
	if completed < quantity {
		return current, completed
	}
	next, ok := table.Next(current)
	if !ok {
		return current, completed
	}
	if next.Name == stage.Complete {
		return next.Name, quantity
	}
	return next.Name, 0
}

func recordToPiece(r *secondary.PieceRecord) *primary.Piece {
	return &primary.Piece{
		ID:                r.ID,
		OrderID:           r.OrderID,
		PieceType:         r.PieceType,
		Quantity:          r.Quantity,
		CompletedQuantity: r.CompletedQuantity,
		Stage:             r.Stage,
		StageChangedAt:    r.StageChangedAt,
		CreatedAt:         r.CreatedAt,
	}
}

// Ensure PieceServiceImpl implements the interface
var _ primary.PieceService = (*PieceServiceImpl)(nil)
