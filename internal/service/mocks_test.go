package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablewise/restaurant-api/internal/audit"
	"github.com/tablewise/restaurant-api/internal/database"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// recorder captures audit events.
type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Record(ctx context.Context, ev audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Key()
	}
	return out
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getUserByIDFn             func(ctx context.Context, id uuid.UUID) (database.User, error)
	lockDishSharedFn          func(ctx context.Context, id uuid.UUID) (database.Dish, error)
	createOrderFn             func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn         func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	getOrderFn                func(ctx context.Context, id uuid.UUID) (database.Order, error)
	lockOrderFn               func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateOrderStatusFn       func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	softDeleteOrderFn         func(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
	getOrderItemFn            func(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	updateOrderItemQuantityFn func(ctx context.Context, arg database.UpdateOrderItemQuantityParams) (database.OrderItem, error)
	softDeleteOrderItemFn     func(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
	softDeleteOrderItemsFn    func(ctx context.Context, arg database.SoftDeleteParams) (int64, error)
	countActiveOrderItemsFn   func(ctx context.Context, orderID uuid.UUID) (int64, error)
	recalculateOrderTotalFn   func(ctx context.Context, arg database.RecalculateOrderTotalParams) (database.Order, error)
}

func (m *mockOrderStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	return m.getUserByIDFn(ctx, id)
}
func (m *mockOrderStore) LockDishShared(ctx context.Context, id uuid.UUID) (database.Dish, error) {
	return m.lockDishSharedFn(ctx, id)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockOrderStore) LockOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.lockOrderFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) SoftDeleteOrder(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error) {
	return m.softDeleteOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	return m.getOrderItemFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderItemQuantity(ctx context.Context, arg database.UpdateOrderItemQuantityParams) (database.OrderItem, error) {
	return m.updateOrderItemQuantityFn(ctx, arg)
}
func (m *mockOrderStore) SoftDeleteOrderItem(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error) {
	return m.softDeleteOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) SoftDeleteOrderItemsByOrder(ctx context.Context, arg database.SoftDeleteParams) (int64, error) {
	return m.softDeleteOrderItemsFn(ctx, arg)
}
func (m *mockOrderStore) CountActiveOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return m.countActiveOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) RecalculateOrderTotal(ctx context.Context, arg database.RecalculateOrderTotalParams) (database.Order, error) {
	return m.recalculateOrderTotalFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}
