package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/kiln/internal/core/calendar"
	coreorder "github.com/example/kiln/internal/core/order"
	"github.com/example/kiln/internal/core/stage"
	"github.com/example/kiln/internal/ports/primary"
	"github.com/example/kiln/internal/ports/secondary"
)

// OrderServiceImpl implements the OrderService interface.
type OrderServiceImpl struct {
	store   secondary.Store
	catalog *stage.Catalog
	logger  *slog.Logger
}

// NewOrderService creates a new OrderService with injected dependencies.
func NewOrderService(store secondary.Store, catalog *stage.Catalog, logger *slog.Logger) *OrderServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderServiceImpl{store: store, catalog: catalog, logger: logger}
}

// CreateOrder creates a new pending order.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, req primary.CreateOrderRequest) (*primary.Order, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, fmt.Errorf("customer name is required")
	}
	if err := validateOptionalDate(req.DueDate); err != nil {
		return nil, err
	}
	if err := validateOptionalDate(req.TimelineDate); err != nil {
		return nil, err
	}

	var created *secondary.OrderRecord
	err := s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		nextID, err := repos.Orders().GetNextID(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate order ID: %w", err)
		}
		record := &secondary.OrderRecord{
			ID:           nextID,
			CustomerName: name,
			Status:       coreorder.StatusPending,
			DueDate:      req.DueDate,
			TimelineDate: req.TimelineDate,
		}
		if err := repos.Orders().Create(ctx, record); err != nil {
			return err
		}
		if err := logActivity(ctx, repos, activityChange{entityOrder, nextID, actionCreate, "", "", name}); err != nil {
			return err
		}
		created, err = repos.Orders().GetByID(ctx, nextID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created", "order_id", created.ID, "due_date", created.DueDate)
	return recordToOrder(created, nil), nil
}

// GetOrder retrieves an order with its pieces.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, orderID string) (*primary.Order, error) {
	record, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	pieces, err := s.store.Pieces().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return recordToOrder(record, pieces), nil
}

// ListOrders lists orders with optional filters.
func (s *OrderServiceImpl) ListOrders(ctx context.Context, filters primary.OrderFilters) ([]*primary.Order, error) {
	records, err := s.store.Orders().List(ctx, secondary.OrderFilters{Status: filters.Status})
	if err != nil {
		return nil, err
	}
	orders := make([]*primary.Order, len(records))
	for i, r := range records {
		orders[i] = recordToOrder(r, nil)
	}
	return orders, nil
}

// AddPiece adds a line-item to an order at its piece type's first stage.
func (s *OrderServiceImpl) AddPiece(ctx context.Context, req primary.AddPieceRequest) (*primary.Piece, error) {
	var created *secondary.PieceRecord
	err := s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		ord, err := repos.Orders().GetByID(ctx, req.OrderID)
		if err != nil {
			return err
		}

		table, tableErr := s.catalog.Table(req.PieceType)
		guardCtx := coreorder.AddPieceContext{
			OrderID:        req.OrderID,
			OrderExists:    true,
			OrderStatus:    ord.Status,
			PieceType:      req.PieceType,
			PieceTypeKnown: tableErr == nil,
			Quantity:       req.Quantity,
		}
		if result := coreorder.CanAddPiece(guardCtx); !result.Allowed {
			return result.Error()
		}

		nextID, err := repos.Pieces().GetNextID(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate piece ID: %w", err)
		}
		record := &secondary.PieceRecord{
			ID:        nextID,
			OrderID:   req.OrderID,
			PieceType: req.PieceType,
			Quantity:  req.Quantity,
			Stage:     table.First().Name,
		}
		if err := repos.Pieces().Create(ctx, record); err != nil {
			return err
		}
		err = logActivity(ctx, repos, activityChange{entityPiece, nextID, actionCreate, "", "",
			fmt.Sprintf("%s x%d on %s", req.PieceType, req.Quantity, req.OrderID)})
		if err != nil {
			return err
		}
		created, err = repos.Pieces().GetByID(ctx, nextID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("piece added", "order_id", created.OrderID, "piece_id", created.ID,
		"piece_type", created.PieceType, "quantity", created.Quantity)
	return recordToPiece(created), nil
}

// SetDueDate sets or clears an order's hard due date.
func (s *OrderServiceImpl) SetDueDate(ctx context.Context, orderID, dueDate string) error {
	if err := validateOptionalDate(dueDate); err != nil {
		return err
	}
	return s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		record, err := repos.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := repos.Orders().UpdateDueDate(ctx, orderID, dueDate); err != nil {
			return err
		}
		return logActivity(ctx, repos, activityChange{entityOrder, orderID, actionUpdate, "due_date", record.DueDate, dueDate})
	})
}

// SetTimelineDate sets or clears an order's soft timeline target.
func (s *OrderServiceImpl) SetTimelineDate(ctx context.Context, orderID, timelineDate string) error {
	if err := validateOptionalDate(timelineDate); err != nil {
		return err
	}
	return s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		record, err := repos.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := repos.Orders().UpdateTimelineDate(ctx, orderID, timelineDate); err != nil {
			return err
		}
		return logActivity(ctx, repos, activityChange{entityOrder, orderID, actionUpdate, "timeline_date", record.TimelineDate, timelineDate})
	})
}

// SetStatus changes an order's status.
func (s *OrderServiceImpl) SetStatus(ctx context.Context, orderID, status string) error {
	var from string
	err := s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		record, err := repos.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		from = record.Status

		guardCtx := coreorder.StatusChangeContext{
			OrderID:       orderID,
			CurrentStatus: record.Status,
			NewStatus:     status,
		}
		if result := coreorder.CanChangeStatus(guardCtx); !result.Allowed {
			return result.Error()
		}

		if err := repos.Orders().UpdateStatus(ctx, orderID, status); err != nil {
			return err
		}
		return logActivity(ctx, repos, activityChange{entityOrder, orderID, actionUpdate, "status", record.Status, status})
	})
	if err != nil {
		return err
	}
	s.logger.Info("order status changed", "order_id", orderID, "from", from, "to", status)
	return nil
}

func validateOptionalDate(s string) error {
	if s == "" {
		return nil
	}
	_, err := calendar.ParseDate(s)
	return err
}

func recordToOrder(r *secondary.OrderRecord, pieces []*secondary.PieceRecord) *primary.Order {
	o := &primary.Order{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		Status:       r.Status,
		DueDate:      r.DueDate,
		TimelineDate: r.TimelineDate,
		CreatedAt:    r.CreatedAt,
	}
	for _, p := range pieces {
		o.Pieces = append(o.Pieces, recordToPiece(p))
	}
	return o
}

// Ensure OrderServiceImpl implements the interface
var _ primary.OrderService = (*OrderServiceImpl)(nil)
