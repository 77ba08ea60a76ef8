package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/tablewise/restaurant-api/internal/audit"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/database"
)

// Item quantity bounds, inclusive.
const (
	MinItemQuantity = 1
	MaxItemQuantity = 100
)

// MaxOrderTotal is the largest total the orders.total NUMERIC(10, 2) column holds.
var MaxOrderTotal = decimal.RequireFromString("99999999.99")

// pgNumericOutOfRange is SQLSTATE numeric_value_out_of_range.
const pgNumericOutOfRange = "22003"

func isNumericOverflow(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgNumericOutOfRange
}

func totalTooLarge(total string) error {
	return badRequest("order total %s exceeds the maximum of %s", total, MaxOrderTotal.StringFixed(2))
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderWriter holds the DB methods needed to build and persist a new order.
type OrderWriter interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	LockDishShared(ctx context.Context, id uuid.UUID) (database.Dish, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	OrderWriter
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	SoftDeleteOrder(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	UpdateOrderItemQuantity(ctx context.Context, arg database.UpdateOrderItemQuantityParams) (database.OrderItem, error)
	SoftDeleteOrderItem(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
	SoftDeleteOrderItemsByOrder(ctx context.Context, arg database.SoftDeleteParams) (int64, error)
	CountActiveOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error)
	RecalculateOrderTotal(ctx context.Context, arg database.RecalculateOrderTotalParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	UserID uuid.UUID
	Notes  string
	Items  []CreateOrderItemRequest
	Actor  Actor
}

// CreateOrderItemRequest is a single item in the order.
type CreateOrderItemRequest struct {
	DishID   uuid.UUID
	Quantity int32
	Notes    string
}

// CreateOrderResult is the created order with its items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	minTotal decimal.Decimal
	audit    audit.Recorder
}

// NewOrderService creates a new OrderService. minTotal is the inclusive
// minimum order total.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, minTotal decimal.Decimal, rec audit.Recorder) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, minTotal: minTotal, audit: rec}
}

func (s *OrderService) record(ctx context.Context, ev audit.Event) {
	recordEvent(ctx, s.audit, ev)
}

// CreateOrder validates, snapshots prices and creates an order atomically.
// Callers without orders:create-for-others may only order for themselves.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.UserID != req.Actor.UserID && !req.Actor.Can(auth.CapOrdersCreateForOthers) {
		return nil, ErrNotOwnOrder
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	result, err := s.buildOrder(ctx, s.newStore(tx), req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.recordCreated(ctx, result, req.Actor, "api")
	return result, nil
}

func (s *OrderService) recordCreated(ctx context.Context, result *CreateOrderResult, actor Actor, source string) {
	s.record(ctx, audit.Event{
		Action:   "created",
		Entity:   "order",
		EntityID: result.Order.ID,
		Actor:    actor.Username,
		Details: map[string]any{
			"userId": result.Order.UserID,
			"total":  numericToDecimal(result.Order.Total).StringFixed(2),
			"items":  len(result.Items),
			"source": source,
		},
	})
}

// buildOrder runs the creation checks in order, first failure wins, then
// inserts the order and its items through store. The caller owns the
// transaction behind store.
func (s *OrderService) buildOrder(ctx context.Context, store OrderWriter, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Requesting user must be active ---
	if _, err := store.GetUserByID(ctx, req.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// --- Validate items + snapshot prices ---
	total := decimal.Zero
	params := make([]database.CreateOrderItemParams, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity < MinItemQuantity || item.Quantity > MaxItemQuantity {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}

		dish, err := store.LockDishShared(ctx, item.DishID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, notFound("items[%d]: dish %s not found", i, item.DishID)
			}
			return nil, fmt.Errorf("items[%d]: get dish: %w", i, err)
		}

		price := numericToDecimal(dish.Price)
		total = total.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))

		params = append(params, database.CreateOrderItemParams{
			DishID:    dish.ID,
			Quantity:  item.Quantity,
			Price:     decimalToNumeric(price),
			Notes:     NormalizeNotes(item.Notes),
			CreatedBy: req.Actor.stamp(),
		})
	}

	if total.LessThan(s.minTotal) {
		return nil, badRequest("order total %s is below the minimum of %s", total.StringFixed(2), s.minTotal.StringFixed(2))
	}
	if total.GreaterThan(MaxOrderTotal) {
		return nil, totalTooLarge(total.StringFixed(2))
	}

	// --- Insert order + items ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:    req.UserID,
		Status:    database.OrderStatusPending,
		Total:     decimalToNumeric(total),
		Notes:     NormalizeNotes(req.Notes),
		CreatedBy: req.Actor.stamp(),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(params))
	for _, p := range params {
		p.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// DeleteOrder soft-deletes an order and its items regardless of its status.
func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID, actor Actor) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	stamp := database.SoftDeleteParams{ID: id, DeletedBy: actor.stamp()}
	if _, err := store.SoftDeleteOrder(ctx, stamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("soft delete order: %w", err)
	}
	if _, err := store.SoftDeleteOrderItemsByOrder(ctx, stamp); err != nil {
		return fmt.Errorf("soft delete order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.record(ctx, audit.Event{Action: "deleted", Entity: "order", EntityID: id, Actor: actor.Username})
	return nil
}

// OrderItemChange is an edited item together with its re-totalled order.
type OrderItemChange struct {
	Item  database.OrderItem
	Order database.Order
}

// UpdateOrderItemQuantity changes the quantity of an item of a non-terminal
// order. The snapshot price is kept and the order total is recomputed.
func (s *OrderService) UpdateOrderItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int32, actor Actor) (*OrderItemChange, error) {
	if quantity < MinItemQuantity || quantity > MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if _, err := lockEditableOrder(ctx, store, itemID); err != nil {
		return nil, err
	}

	item, err := store.UpdateOrderItemQuantity(ctx, database.UpdateOrderItemQuantityParams{
		ID:        itemID,
		Quantity:  quantity,
		UpdatedBy: actor.stamp(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderItemMissing
		}
		return nil, fmt.Errorf("update order item: %w", err)
	}

	order, err := store.RecalculateOrderTotal(ctx, database.RecalculateOrderTotalParams{
		ID:        item.OrderID,
		UpdatedBy: actor.stamp(),
	})
	if err != nil {
		if isNumericOverflow(err) {
			return nil, totalTooLarge("after edit")
		}
		return nil, fmt.Errorf("recalculate order total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.record(ctx, audit.Event{
		Action:   "updated",
		Entity:   "order_item",
		EntityID: item.ID,
		Actor:    actor.Username,
		Details:  map[string]any{"orderId": order.ID, "quantity": item.Quantity},
	})
	return &OrderItemChange{Item: item, Order: order}, nil
}

// DeleteOrderItem soft-deletes an item of a non-terminal order and re-totals
// the order. The last remaining item cannot be removed.
func (s *OrderService) DeleteOrderItem(ctx context.Context, itemID uuid.UUID, actor Actor) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := lockEditableOrder(ctx, store, itemID)
	if err != nil {
		return database.Order{}, err
	}

	count, err := store.CountActiveOrderItems(ctx, order.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("count order items: %w", err)
	}
	if count <= 1 {
		return database.Order{}, badRequest("cannot remove the last item of an order, delete the order instead")
	}

	if _, err := store.SoftDeleteOrderItem(ctx, database.SoftDeleteParams{ID: itemID, DeletedBy: actor.stamp()}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderItemMissing
		}
		return database.Order{}, fmt.Errorf("soft delete order item: %w", err)
	}

	updated, err := store.RecalculateOrderTotal(ctx, database.RecalculateOrderTotalParams{
		ID:        order.ID,
		UpdatedBy: actor.stamp(),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("recalculate order total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.record(ctx, audit.Event{
		Action:   "deleted",
		Entity:   "order_item",
		EntityID: itemID,
		Actor:    actor.Username,
		Details:  map[string]any{"orderId": order.ID},
	})
	return updated, nil
}

// lockEditableOrder loads the item's order under a row lock and rejects
// terminal orders.
func lockEditableOrder(ctx context.Context, store OrderStore, itemID uuid.UUID) (database.Order, error) {
	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderItemMissing
		}
		return database.Order{}, fmt.Errorf("get order item: %w", err)
	}

	order, err := store.LockOrder(ctx, item.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("lock order: %w", err)
	}

	if IsTerminal(order.Status) {
		return database.Order{}, badRequest("cannot modify items of a %s order", order.Status)
	}
	return order, nil
}
