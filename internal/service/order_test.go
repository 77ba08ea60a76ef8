package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/enum"
)

// newTestService creates an OrderService with mocked dependencies and a
// minimum total of 100. store is returned by the NewOrderStore factory.
func newTestService(store *mockOrderStore) (*OrderService, *mockTx, *recorder) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	rec := &recorder{}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore, decimal.NewFromInt(100), rec), tx, rec
}

// defaultStore returns a mockOrderStore knowing one user and the given dishes.
// Individual tests override the functions they care about.
func defaultStore(userID uuid.UUID, dishes map[uuid.UUID]string) *mockOrderStore {
	return &mockOrderStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			if id == userID {
				return database.User{ID: userID, Username: "alice", RoleName: enum.RoleUser}, nil
			}
			return database.User{}, pgx.ErrNoRows
		},
		lockDishSharedFn: func(ctx context.Context, id uuid.UUID) (database.Dish, error) {
			price, ok := dishes[id]
			if !ok {
				return database.Dish{}, pgx.ErrNoRows
			}
			return database.Dish{ID: id, Name: "dish-" + price, Price: makeNumeric(price)}, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:        uuid.New(),
				UserID:    arg.UserID,
				Status:    arg.Status,
				Total:     arg.Total,
				Notes:     arg.Notes,
				Version:   1,
				CreatedBy: arg.CreatedBy,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:       uuid.New(),
				OrderID:  arg.OrderID,
				DishID:   arg.DishID,
				Quantity: arg.Quantity,
				Price:    arg.Price,
				Notes:    arg.Notes,
			}, nil
		},
	}
}

func selfActor(userID uuid.UUID, role string) Actor {
	return Actor{UserID: userID, Username: "alice", Role: role}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	userID := uuid.New()
	svc, tx, _ := newTestService(defaultStore(userID, nil))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Actor:  selfActor(userID, enum.RoleUser),
	})
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction should not be committed")
	}
}

func TestCreateOrder_UserNotFound(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()
	store := defaultStore(uuid.New(), map[uuid.UUID]string{dishID: "50.00"})
	svc, _, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items:  []CreateOrderItemRequest{{DishID: dishID, Quantity: 2}},
		Actor:  selfActor(userID, enum.RoleUser),
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got: %v", err)
	}
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("expected bad request kind, got: %v", err)
	}
}

func TestCreateOrder_UserCheckedBeforeItems(t *testing.T) {
	svc, _, _ := newTestService(defaultStore(uuid.New(), nil))
	userID := uuid.New()

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Actor:  selfActor(userID, enum.RoleUser),
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound first, got: %v", err)
	}
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()

	for _, qty := range []int32{0, -1, 101} {
		store := defaultStore(userID, map[uuid.UUID]string{dishID: "50.00"})
		store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			t.Fatal("CreateOrder should not be called")
			return database.Order{}, nil
		}
		svc, _, _ := newTestService(store)

		_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
			UserID: userID,
			Items:  []CreateOrderItemRequest{{DishID: dishID, Quantity: qty}},
			Actor:  selfActor(userID, enum.RoleUser),
		})
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("qty %d: expected ErrInvalidQuantity, got: %v", qty, err)
		}
		if !strings.Contains(err.Error(), "items[0]") {
			t.Errorf("qty %d: error should name the item index, got: %v", qty, err)
		}
	}
}

func TestCreateOrder_DishNotFound(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()
	store := defaultStore(userID, map[uuid.UUID]string{dishID: "50.00"})
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		t.Fatal("CreateOrder should not be called")
		return database.Order{}, nil
	}
	svc, tx, rec := newTestService(store)

	missing := uuid.New()
	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items: []CreateOrderItemRequest{
			{DishID: dishID, Quantity: 2},
			{DishID: missing, Quantity: 1},
		},
		Actor: selfActor(userID, enum.RoleUser),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
	if !strings.Contains(err.Error(), "items[1]") {
		t.Errorf("error should name the item index, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction should not be committed")
	}
	if len(rec.actions()) != 0 {
		t.Errorf("no audit event expected, got %v", rec.actions())
	}
}

func TestCreateOrder_BelowMinimum(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()
	store := defaultStore(userID, map[uuid.UUID]string{dishID: "10.00"})
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		t.Fatal("CreateOrder should not be called")
		return database.Order{}, nil
	}
	svc, _, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items:  []CreateOrderItemRequest{{DishID: dishID, Quantity: 3}},
		Actor:  selfActor(userID, enum.RoleUser),
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected bad request, got: %v", err)
	}
	if !strings.Contains(err.Error(), "30.00") || !strings.Contains(err.Error(), "100.00") {
		t.Errorf("message should mention total and minimum, got: %v", err)
	}
}

func TestCreateOrder_AboveMaximum(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()
	store := defaultStore(userID, map[uuid.UUID]string{dishID: "99999999.99"})
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		t.Fatal("CreateOrder should not be called")
		return database.Order{}, nil
	}
	svc, tx, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items:  []CreateOrderItemRequest{{DishID: dishID, Quantity: 2}},
		Actor:  selfActor(userID, enum.RoleUser),
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected bad request, got: %v", err)
	}
	if !strings.Contains(err.Error(), "199999999.98") || !strings.Contains(err.Error(), "99999999.99") {
		t.Errorf("message should mention total and maximum, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction should not be committed")
	}
}

func TestCreateOrder_TotalAtMaximum(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()
	svc, _, _ := newTestService(defaultStore(userID, map[uuid.UUID]string{dishID: "99999999.99"}))

	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items:  []CreateOrderItemRequest{{DishID: dishID, Quantity: 1}},
		Actor:  selfActor(userID, enum.RoleUser),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(result.Order.Total, "99999999.99") {
		t.Errorf("order total: got %v", numericToDecimal(result.Order.Total))
	}
}

func TestCreateOrder_DishesLockedBeforeInsert(t *testing.T) {
	userID := uuid.New()
	burger, fries := uuid.New(), uuid.New()
	store := defaultStore(userID, map[uuid.UUID]string{burger: "45.50", fries: "60.00"})

	var calls []string
	lockDish := store.lockDishSharedFn
	store.lockDishSharedFn = func(ctx context.Context, id uuid.UUID) (database.Dish, error) {
		calls = append(calls, "lock:"+id.String())
		return lockDish(ctx, id)
	}
	createOrder := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		calls = append(calls, "order")
		return createOrder(ctx, arg)
	}
	createItem := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		calls = append(calls, "item:"+arg.DishID.String())
		return createItem(ctx, arg)
	}
	svc, _, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items: []CreateOrderItemRequest{
			{DishID: burger, Quantity: 1},
			{DishID: fries, Quantity: 1},
		},
		Actor: selfActor(userID, enum.RoleUser),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"lock:" + burger.String(),
		"lock:" + fries.String(),
		"order",
		"item:" + burger.String(),
		"item:" + fries.String(),
	}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("call order:\n got %v\nwant %v", calls, want)
	}
}

func TestCreateOrder_ForbiddenForOthers(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()
	svc, _, _ := newTestService(defaultStore(userID, map[uuid.UUID]string{dishID: "50.00"}))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items:  []CreateOrderItemRequest{{DishID: dishID, Quantity: 2}},
		Actor:  Actor{UserID: uuid.New(), Username: "bob", Role: enum.RoleUser},
	})
	if !errors.Is(err, ErrNotOwnOrder) {
		t.Fatalf("expected ErrNotOwnOrder, got: %v", err)
	}
}

func TestCreateOrder_WaiterForCustomer(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()
	svc, tx, _ := newTestService(defaultStore(userID, map[uuid.UUID]string{dishID: "50.00"}))

	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items:  []CreateOrderItemRequest{{DishID: dishID, Quantity: 2}},
		Actor:  Actor{UserID: uuid.New(), Username: "wally", Role: enum.RoleWaiter},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.UserID != userID {
		t.Errorf("order user: got %s, want %s", result.Order.UserID, userID)
	}
	if result.Order.CreatedBy.String != "wally" {
		t.Errorf("created_by: got %q, want wally", result.Order.CreatedBy.String)
	}
	if !tx.committed {
		t.Error("transaction should be committed")
	}
}

// =====================
// Pricing tests
// =====================

func TestCreateOrder_TotalAtMinimum(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()
	store := defaultStore(userID, map[uuid.UUID]string{dishID: "50.00"})

	var captured database.CreateOrderParams
	next := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return next(ctx, arg)
	}
	var capturedItem database.CreateOrderItemParams
	nextItem := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		capturedItem = arg
		return nextItem(ctx, arg)
	}

	svc, tx, rec := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Notes:  "  table 4  ",
		Items:  []CreateOrderItemRequest{{DishID: dishID, Quantity: 2, Notes: "   "}},
		Actor:  selfActor(userID, enum.RoleUser),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 50 x 2 = 100, equal to the minimum
	if !numericEquals(captured.Total, "100.00") {
		t.Errorf("order total: got %v, want 100.00", numericToDecimal(captured.Total))
	}
	if captured.Status != database.OrderStatusPending {
		t.Errorf("status: got %s, want Pending", captured.Status)
	}
	if captured.Notes.String != "table 4" {
		t.Errorf("order notes: got %q, want trimmed", captured.Notes.String)
	}
	if !numericEquals(capturedItem.Price, "50.00") {
		t.Errorf("item price: got %v, want 50.00", numericToDecimal(capturedItem.Price))
	}
	if capturedItem.Notes.Valid {
		t.Errorf("blank item notes should be NULL, got %q", capturedItem.Notes.String)
	}
	if capturedItem.OrderID != result.Order.ID {
		t.Errorf("item order id: got %s, want %s", capturedItem.OrderID, result.Order.ID)
	}
	if !tx.committed {
		t.Error("transaction should be committed")
	}
	if got := rec.actions(); len(got) != 1 || got[0] != "order.created" {
		t.Errorf("audit events: got %v, want [order.created]", got)
	}
}

func TestCreateOrder_MultipleItems(t *testing.T) {
	userID := uuid.New()
	burger, fries := uuid.New(), uuid.New()
	store := defaultStore(userID, map[uuid.UUID]string{burger: "45.50", fries: "12.25"})

	svc, _, _ := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items: []CreateOrderItemRequest{
			{DishID: burger, Quantity: 2},
			{DishID: fries, Quantity: 3},
			{DishID: burger, Quantity: 1, Notes: "no onion"},
		},
		Actor: selfActor(userID, enum.RoleUser),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 45.50*2 + 12.25*3 + 45.50*1 = 91.00 + 36.75 + 45.50 = 173.25
	if !numericEquals(result.Order.Total, "173.25") {
		t.Errorf("order total: got %v, want 173.25", numericToDecimal(result.Order.Total))
	}
	if len(result.Items) != 3 {
		t.Fatalf("items: got %d, want 3", len(result.Items))
	}

	sum := decimal.Zero
	for _, it := range result.Items {
		sum = sum.Add(numericToDecimal(it.Price).Mul(decimal.NewFromInt32(it.Quantity)))
	}
	if !sum.Equal(numericToDecimal(result.Order.Total)) {
		t.Errorf("sum of items %v != order total %v", sum, numericToDecimal(result.Order.Total))
	}
}

func TestCreateOrder_ItemInsertFailureNotCommitted(t *testing.T) {
	userID := uuid.New()
	dishID := uuid.New()
	store := defaultStore(userID, map[uuid.UUID]string{dishID: "50.00"})
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		return database.OrderItem{}, errors.New("connection reset")
	}
	svc, tx, rec := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items:  []CreateOrderItemRequest{{DishID: dishID, Quantity: 2}},
		Actor:  selfActor(userID, enum.RoleUser),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := Message(err); ok {
		t.Errorf("storage failure should not be a client error: %v", err)
	}
	if tx.committed {
		t.Error("transaction should not be committed")
	}
	if len(rec.actions()) != 0 {
		t.Errorf("no audit event expected, got %v", rec.actions())
	}
}

func TestCreateOrder_BeginError(t *testing.T) {
	userID := uuid.New()
	pool := &mockTxBeginner{err: errors.New("pool closed")}
	store := defaultStore(userID, nil)
	svc := NewOrderService(pool, func(db database.DBTX) OrderStore { return store }, decimal.NewFromInt(100), nil)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: userID,
		Items:  []CreateOrderItemRequest{{DishID: uuid.New(), Quantity: 1}},
		Actor:  selfActor(userID, enum.RoleUser),
	})
	if err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("expected begin tx error, got: %v", err)
	}
}

// =====================
// Order item edits
// =====================

func itemStore(status database.OrderStatus, activeItems int64) (*mockOrderStore, uuid.UUID, uuid.UUID) {
	orderID := uuid.New()
	itemID := uuid.New()
	store := &mockOrderStore{
		getOrderItemFn: func(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
			if id != itemID {
				return database.OrderItem{}, pgx.ErrNoRows
			}
			return database.OrderItem{ID: itemID, OrderID: orderID, Quantity: 2, Price: makeNumeric("50.00")}, nil
		},
		lockOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: status, Total: makeNumeric("100.00"), Version: 1}, nil
		},
		updateOrderItemQuantityFn: func(ctx context.Context, arg database.UpdateOrderItemQuantityParams) (database.OrderItem, error) {
			return database.OrderItem{ID: arg.ID, OrderID: orderID, Quantity: arg.Quantity, Price: makeNumeric("50.00")}, nil
		},
		countActiveOrderItemsFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return activeItems, nil
		},
		softDeleteOrderItemFn: func(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error) {
			return arg.ID, nil
		},
		recalculateOrderTotalFn: func(ctx context.Context, arg database.RecalculateOrderTotalParams) (database.Order, error) {
			return database.Order{ID: arg.ID, Status: status, Total: makeNumeric("150.00"), Version: 2}, nil
		},
	}
	return store, orderID, itemID
}

func TestUpdateOrderItemQuantity_Recalculates(t *testing.T) {
	store, orderID, itemID := itemStore(database.OrderStatusPending, 2)
	var recalculated bool
	store.recalculateOrderTotalFn = func(ctx context.Context, arg database.RecalculateOrderTotalParams) (database.Order, error) {
		recalculated = true
		if arg.ID != orderID {
			t.Errorf("recalculate id: got %s, want %s", arg.ID, orderID)
		}
		return database.Order{ID: orderID, Total: makeNumeric("150.00")}, nil
	}
	svc, tx, _ := newTestService(store)

	change, err := svc.UpdateOrderItemQuantity(context.Background(), itemID, 3, Actor{Username: "admin", Role: enum.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !recalculated {
		t.Error("order total should be recalculated")
	}
	if change.Item.Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", change.Item.Quantity)
	}
	if !numericEquals(change.Item.Price, "50.00") {
		t.Errorf("snapshot price changed: %v", numericToDecimal(change.Item.Price))
	}
	if !numericEquals(change.Order.Total, "150.00") {
		t.Errorf("total: got %v, want 150.00", numericToDecimal(change.Order.Total))
	}
	if !tx.committed {
		t.Error("transaction should be committed")
	}
}

func TestUpdateOrderItemQuantity_TotalOverflow(t *testing.T) {
	store, _, itemID := itemStore(database.OrderStatusPending, 2)
	store.recalculateOrderTotalFn = func(ctx context.Context, arg database.RecalculateOrderTotalParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{Code: "22003", Message: "numeric field overflow"}
	}
	svc, tx, _ := newTestService(store)

	_, err := svc.UpdateOrderItemQuantity(context.Background(), itemID, 100, Actor{Role: enum.RoleAdmin})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected bad request, got: %v", err)
	}
	if !strings.Contains(err.Error(), MaxOrderTotal.StringFixed(2)) {
		t.Errorf("message should mention the maximum, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction should not be committed")
	}
}

func TestUpdateOrderItemQuantity_TerminalOrder(t *testing.T) {
	for _, status := range []database.OrderStatus{database.OrderStatusCompleted, database.OrderStatusCancelled} {
		store, _, itemID := itemStore(status, 2)
		store.updateOrderItemQuantityFn = func(ctx context.Context, arg database.UpdateOrderItemQuantityParams) (database.OrderItem, error) {
			t.Fatal("UpdateOrderItemQuantity should not be called")
			return database.OrderItem{}, nil
		}
		svc, _, _ := newTestService(store)

		_, err := svc.UpdateOrderItemQuantity(context.Background(), itemID, 3, Actor{Role: enum.RoleAdmin})
		if !errors.Is(err, ErrBadRequest) {
			t.Fatalf("%s: expected bad request, got: %v", status, err)
		}
	}
}

func TestUpdateOrderItemQuantity_OutOfRange(t *testing.T) {
	store, _, itemID := itemStore(database.OrderStatusPending, 2)
	svc, _, _ := newTestService(store)

	_, err := svc.UpdateOrderItemQuantity(context.Background(), itemID, 101, Actor{Role: enum.RoleAdmin})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestUpdateOrderItemQuantity_ItemMissing(t *testing.T) {
	store, _, _ := itemStore(database.OrderStatusPending, 2)
	svc, _, _ := newTestService(store)

	_, err := svc.UpdateOrderItemQuantity(context.Background(), uuid.New(), 1, Actor{Role: enum.RoleAdmin})
	if !errors.Is(err, ErrOrderItemMissing) {
		t.Fatalf("expected ErrOrderItemMissing, got: %v", err)
	}
}

func TestDeleteOrderItem_LastItemRefused(t *testing.T) {
	store, _, itemID := itemStore(database.OrderStatusProcessing, 1)
	store.softDeleteOrderItemFn = func(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error) {
		t.Fatal("SoftDeleteOrderItem should not be called")
		return uuid.Nil, nil
	}
	svc, _, _ := newTestService(store)

	_, err := svc.DeleteOrderItem(context.Background(), itemID, Actor{Role: enum.RoleAdmin})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected bad request, got: %v", err)
	}
}

func TestDeleteOrderItem_Success(t *testing.T) {
	store, orderID, itemID := itemStore(database.OrderStatusPending, 2)
	svc, tx, rec := newTestService(store)

	order, err := svc.DeleteOrderItem(context.Background(), itemID, Actor{Username: "admin", Role: enum.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != orderID {
		t.Errorf("order id: got %s, want %s", order.ID, orderID)
	}
	if !tx.committed {
		t.Error("transaction should be committed")
	}
	if got := rec.actions(); len(got) != 1 || got[0] != "order_item.deleted" {
		t.Errorf("audit events: got %v", got)
	}
}

func TestDeleteOrder_NotFound(t *testing.T) {
	store := &mockOrderStore{
		softDeleteOrderFn: func(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error) {
			return uuid.Nil, pgx.ErrNoRows
		},
	}
	svc, _, _ := newTestService(store)

	err := svc.DeleteOrder(context.Background(), uuid.New(), Actor{Role: enum.RoleAdmin})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestDeleteOrder_StampsActor(t *testing.T) {
	id := uuid.New()
	var captured database.SoftDeleteParams
	store := &mockOrderStore{
		softDeleteOrderFn: func(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error) {
			captured = arg
			return arg.ID, nil
		},
	}
	var itemsOf database.SoftDeleteParams
	store.softDeleteOrderItemsFn = func(ctx context.Context, arg database.SoftDeleteParams) (int64, error) {
		itemsOf = arg
		return 2, nil
	}
	svc, tx, _ := newTestService(store)

	if err := svc.DeleteOrder(context.Background(), id, Actor{Username: "admin", Role: enum.RoleAdmin}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.ID != id || captured.DeletedBy.String != "admin" {
		t.Errorf("soft delete params: got %+v", captured)
	}
	if itemsOf.ID != id || itemsOf.DeletedBy.String != "admin" {
		t.Errorf("items should be soft-deleted with the order, got %+v", itemsOf)
	}
	if !tx.committed {
		t.Error("transaction should be committed")
	}
}

func TestDeleteOrder_ItemFailureNotCommitted(t *testing.T) {
	store := &mockOrderStore{
		softDeleteOrderFn: func(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error) {
			return arg.ID, nil
		},
		softDeleteOrderItemsFn: func(ctx context.Context, arg database.SoftDeleteParams) (int64, error) {
			return 0, errors.New("connection reset")
		},
	}
	svc, tx, rec := newTestService(store)

	err := svc.DeleteOrder(context.Background(), uuid.New(), Actor{Username: "admin", Role: enum.RoleAdmin})
	if err == nil || !strings.Contains(err.Error(), "soft delete order items") {
		t.Fatalf("expected items error, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction should not be committed")
	}
	if len(rec.actions()) != 0 {
		t.Errorf("no audit event expected, got %v", rec.actions())
	}
}
