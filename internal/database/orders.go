package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `o.id, o.user_id, u.username, o.status, o.total, o.notes, o.version,
    o.created_at, o.created_by, o.updated_at, o.updated_by`

var orderSortColumns = map[string]string{
	"total":     "o.total",
	"createdat": "o.created_at",
	"orderdate": "o.created_at",
	"status":    "o.status",
	"username":  "u.username",
}

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Username,
		&i.Status,
		&i.Total,
		&i.Notes,
		&i.Version,
		&i.CreatedAt,
		&i.CreatedBy,
		&i.UpdatedAt,
		&i.UpdatedBy,
	)
	return i, err
}

type CreateOrderParams struct {
	UserID    uuid.UUID
	Status    OrderStatus
	Total     pgtype.Numeric
	Notes     pgtype.Text
	CreatedBy pgtype.Text
}

const createOrder = `WITH o AS (
    INSERT INTO orders (user_id, status, total, notes, created_by)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING *
)
SELECT ` + orderColumns + ` FROM o JOIN users u ON u.id = o.user_id`

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.Status,
		arg.Total,
		arg.Notes,
		arg.CreatedBy,
	))
}

const getOrder = `SELECT ` + orderColumns + `
FROM orders o JOIN users u ON u.id = o.user_id
WHERE o.id = $1 AND NOT o.is_deleted`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const lockOrder = getOrder + ` FOR UPDATE OF o`

func (q *Queries) LockOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, lockOrder, id))
}

type ListOrdersParams struct {
	ListParams
	UserID    pgtype.UUID
	Status    pgtype.Text
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	MinTotal  pgtype.Numeric
	MaxTotal  pgtype.Numeric
}

// EndDate is exclusive.
const orderFilter = `
FROM orders o JOIN users u ON u.id = o.user_id
WHERE NOT o.is_deleted
  AND ($1::uuid IS NULL OR o.user_id = $1)
  AND ($2::text IS NULL OR o.status = $2)
  AND ($3::timestamptz IS NULL OR o.created_at >= $3)
  AND ($4::timestamptz IS NULL OR o.created_at < $4)
  AND ($5::numeric IS NULL OR o.total >= $5)
  AND ($6::numeric IS NULL OR o.total <= $6)`

const countOrders = `SELECT COUNT(*)` + orderFilter

const listOrders = `SELECT ` + orderColumns + orderFilter

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, int64, error) {
	filters := []interface{}{
		arg.UserID,
		arg.Status,
		arg.StartDate,
		arg.EndDate,
		arg.MinTotal,
		arg.MaxTotal,
	}
	var total int64
	if err := q.db.QueryRow(ctx, countOrders, filters...).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := paged(listOrders, orderBy(orderSortColumns, arg.SortBy, "createdat", arg.Desc, "o.id"), 7)
	rows, err := q.db.Query(ctx, sql, append(filters, arg.Limit, arg.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanOrder)
	return items, total, err
}

// UpdateOrderStatusParams applies only while the row still has Version.
type UpdateOrderStatusParams struct {
	ID        uuid.UUID
	Status    OrderStatus
	Version   int32
	UpdatedBy pgtype.Text
}

const updateOrderStatus = `WITH o AS (
    UPDATE orders
    SET status = $2, version = version + 1, updated_at = now(), updated_by = $4
    WHERE id = $1 AND version = $3 AND NOT is_deleted
    RETURNING *
)
SELECT ` + orderColumns + ` FROM o JOIN users u ON u.id = o.user_id`

// UpdateOrderStatus returns pgx.ErrNoRows when the version no longer matches.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.Version, arg.UpdatedBy))
}

type RecalculateOrderTotalParams struct {
	ID        uuid.UUID
	UpdatedBy pgtype.Text
}

const recalculateOrderTotal = `WITH o AS (
    UPDATE orders
    SET total = COALESCE((
            SELECT SUM(oi.price * oi.quantity) FROM order_items oi
            WHERE oi.order_id = $1 AND NOT oi.is_deleted
        ), 0),
        version = version + 1,
        updated_at = now(),
        updated_by = $2
    WHERE id = $1 AND NOT is_deleted
    RETURNING *
)
SELECT ` + orderColumns + ` FROM o JOIN users u ON u.id = o.user_id`

// RecalculateOrderTotal recomputes total from the active item snapshots.
func (q *Queries) RecalculateOrderTotal(ctx context.Context, arg RecalculateOrderTotalParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, recalculateOrderTotal, arg.ID, arg.UpdatedBy))
}

const softDeleteOrder = `UPDATE orders
SET is_deleted = true, deleted_at = now(), deleted_by = $2, version = version + 1
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteOrder(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteOrder, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}
