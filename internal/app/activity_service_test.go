package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/example/kiln/internal/ctxutil"
	"github.com/example/kiln/internal/ports/primary"
	"github.com/example/kiln/internal/ports/secondary"
)

func TestUpdatePieceProgress_LogsActivity(t *testing.T) {
	store := newMockStore()
	seedOrder(store, "ORD-001", "", "2025-12-01T00:00:00Z")
	seedPiece(store, "PIECE-001", "ORD-001", "bowl", 10)
	store.pieces["PIECE-001"].CompletedQuantity = 6
	svc := NewPieceService(store, testCatalog(t), discardLogger())

	ctx := ctxutil.WithActorID(context.Background(), "cli:mara")
	if _, err := svc.UpdatePieceProgress(ctx, primary.UpdatePieceProgressRequest{
		PieceID: "PIECE-001",
		Stage:   strPtr("trim"),
	}); err != nil {
		t.Fatalf("UpdatePieceProgress failed: %v", err)
	}

	want := []string{"PIECE-001/stage:build->trim", "PIECE-001/completed_quantity:6->0"}
	if got := store.activityFields(); !slices.Equal(got, want) {
		t.Fatalf("expected activity %v, got %v", want, got)
	}
	for _, e := range store.activity {
		if e.Actor != "cli:mara" || e.EntityType != "piece" || e.Action != "update" {
			t.Errorf("unexpected entry: %+v", e)
		}
	}
}

func TestUpdatePieceProgress_UnchangedFieldsNotLogged(t *testing.T) {
	store := newMockStore()
	seedOrder(store, "ORD-001", "", "2025-12-01T00:00:00Z")
	seedPiece(store, "PIECE-001", "ORD-001", "bowl", 10)
	svc := NewPieceService(store, testCatalog(t), discardLogger())

	if _, err := svc.UpdatePieceProgress(context.Background(), primary.UpdatePieceProgressRequest{
		PieceID:           "PIECE-001",
		CompletedQuantity: intPtr(4),
	}); err != nil {
		t.Fatalf("UpdatePieceProgress failed: %v", err)
	}

	want := []string{"PIECE-001/completed_quantity:0->4"}
	if got := store.activityFields(); !slices.Equal(got, want) {
		t.Fatalf("expected activity %v, got %v", want, got)
	}
	if store.activity[0].Actor != ctxutil.UnknownActor {
		t.Errorf("expected unknown actor, got %q", store.activity[0].Actor)
	}
}

func TestUpdatePieceProgress_ActivityFailureRollsBack(t *testing.T) {
	store := newMockStore()
	seedOrder(store, "ORD-001", "", "2025-12-01T00:00:00Z")
	seedPiece(store, "PIECE-001", "ORD-001", "bowl", 10)
	store.createActivityErr = errBoom
	svc := NewPieceService(store, testCatalog(t), discardLogger())

	_, err := svc.UpdatePieceProgress(context.Background(), primary.UpdatePieceProgressRequest{
		PieceID:           "PIECE-001",
		CompletedQuantity: intPtr(4),
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if p := store.pieces["PIECE-001"]; p.CompletedQuantity != 0 {
		t.Errorf("expected progress rolled back, got %d", p.CompletedQuantity)
	}
}

func TestAvailability_LogsActivity(t *testing.T) {
	store := newMockStore()
	svc := newTestAvailabilityService(store)
	ctx := context.Background()

	// 2026-01-05 is a Monday, 8 template hours.
	if _, err := svc.SetAvailability(ctx, primary.SetAvailabilityRequest{Date: "2026-01-05", Hours: 2.5}); err != nil {
		t.Fatalf("SetAvailability failed: %v", err)
	}
	if _, err := svc.SetAvailability(ctx, primary.SetAvailabilityRequest{Date: "2026-01-05", Hours: 4}); err != nil {
		t.Fatalf("SetAvailability failed: %v", err)
	}
	if err := svc.ClearAvailability(ctx, "2026-01-05"); err != nil {
		t.Fatalf("ClearAvailability failed: %v", err)
	}

	want := []string{"2026-01-05/hours:8->2.5", "2026-01-05/hours:2.5->4", "2026-01-05/hours:4->"}
	if got := store.activityFields(); !slices.Equal(got, want) {
		t.Fatalf("expected activity %v, got %v", want, got)
	}
	var actions []string
	for _, e := range store.activity {
		actions = append(actions, e.Action)
	}
	if !slices.Equal(actions, []string{"create", "update", "delete"}) {
		t.Errorf("unexpected actions %v", actions)
	}
}

func TestCreateOrder_LogsActivity(t *testing.T) {
	store := newMockStore()
	svc := newTestOrderService(t, store)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, primary.CreateOrderRequest{CustomerName: "Harbor Cafe"})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	p, err := svc.AddPiece(ctx, primary.AddPieceRequest{OrderID: o.ID, PieceType: "cup", Quantity: 6})
	if err != nil {
		t.Fatalf("AddPiece failed: %v", err)
	}

	want := []string{o.ID + "/:->Harbor Cafe", p.ID + "/:->cup x6 on " + o.ID}
	if got := store.activityFields(); !slices.Equal(got, want) {
		t.Fatalf("expected activity %v, got %v", want, got)
	}
	if store.activity[0].Action != "create" || store.activity[1].EntityType != "piece" {
		t.Errorf("unexpected entries: %+v, %+v", store.activity[0], store.activity[1])
	}
}

func TestListActivity(t *testing.T) {
	store := newMockStore()
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		store.activity = append(store.activity, &secondary.ActivityRecord{
			ID:         fmt.Sprintf("act-%02d", i),
			Actor:      "cli:mara",
			EntityType: "piece",
			EntityID:   "PIECE-001",
			Action:     "update",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	store.activity = append(store.activity, &secondary.ActivityRecord{
		ID: "last", Actor: "http:10.0.0.2", EntityType: "order", EntityID: "ORD-001",
		Action: "update", FieldName: "status", OldValue: "pending", NewValue: "cancelled",
		CreatedAt: base.Add(2 * time.Hour),
	})
	svc := NewActivityService(store.Activity())

	all, err := svc.ListActivity(context.Background(), primary.ActivityFilters{})
	if err != nil {
		t.Fatalf("ListActivity failed: %v", err)
	}
	if len(all) != defaultActivityLimit {
		t.Errorf("expected default limit %d, got %d", defaultActivityLimit, len(all))
	}
	first := all[0]
	if first.ID != "last" || first.OldValue != "pending" || first.NewValue != "cancelled" {
		t.Errorf("unexpected newest entry: %+v", first)
	}
	if first.CreatedAt != "2026-01-05T11:00:00Z" {
		t.Errorf("expected RFC3339 timestamp, got %s", first.CreatedAt)
	}

	orders, err := svc.ListActivity(context.Background(), primary.ActivityFilters{EntityType: "order", Limit: 5})
	if err != nil {
		t.Fatalf("ListActivity failed: %v", err)
	}
	if len(orders) != 1 || orders[0].EntityID != "ORD-001" {
		t.Errorf("expected the single order entry, got %d entries", len(orders))
	}
}
