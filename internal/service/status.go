package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablewise/restaurant-api/internal/audit"
	"github.com/tablewise/restaurant-api/internal/database"
)

var orderStatuses = []database.OrderStatus{
	database.OrderStatusPending,
	database.OrderStatusProcessing,
	database.OrderStatusCompleted,
	database.OrderStatusCancelled,
}

// allowedTransitions is keyed by current status. Terminal statuses map to an
// empty set, so even re-applying the same status is rejected.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPending:    orderStatuses,
	database.OrderStatusProcessing: orderStatuses,
	database.OrderStatusCompleted:  {},
	database.OrderStatusCancelled:  {},
}

// ParseOrderStatus accepts a status name in any letter case.
func ParseOrderStatus(s string) (database.OrderStatus, error) {
	for _, st := range orderStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// IsTerminal reports whether no transition may leave status.
func IsTerminal(status database.OrderStatus) bool {
	return len(allowedTransitions[status]) == 0
}

// ValidateStatusTransition checks if the transition from current to next is allowed.
func ValidateStatusTransition(current, next database.OrderStatus) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return badRequest("unknown current order status %s", current)
	}
	if len(allowed) == 0 {
		return badRequest("cannot change status of a %s order", strings.ToLower(string(current)))
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return badRequest("cannot transition from %s to %s", current, next)
}

// ChangeStatusRequest moves an order to Status. When ExpectedVersion is set
// the change only applies if the order still has that version.
type ChangeStatusRequest struct {
	OrderID         uuid.UUID
	Status          string
	ExpectedVersion *int32
	Actor           Actor
}

// ChangeStatus applies a status transition with a compare-and-swap on the
// order version. A concurrent writer that got there first yields ErrOrderModified.
func (s *OrderService) ChangeStatus(ctx context.Context, req ChangeStatusRequest) (database.Order, error) {
	next, err := ParseOrderStatus(req.Status)
	if err != nil {
		return database.Order{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if req.ExpectedVersion != nil && *req.ExpectedVersion != current.Version {
		return database.Order{}, ErrOrderModified
	}

	if err := ValidateStatusTransition(current.Status, next); err != nil {
		return database.Order{}, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:        current.ID,
		Status:    next,
		Version:   current.Version,
		UpdatedBy: req.Actor.stamp(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderModified
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.record(ctx, audit.Event{
		Action:   "status_changed",
		Entity:   "order",
		EntityID: updated.ID,
		Actor:    req.Actor.Username,
		Details: map[string]any{
			"from":    current.Status,
			"to":      updated.Status,
			"version": updated.Version,
		},
	})

	return updated, nil
}
