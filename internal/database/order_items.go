package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `oi.id, oi.order_id, oi.dish_id, d.name, oi.quantity, oi.price, oi.notes,
    oi.created_at, oi.created_by, oi.updated_at, oi.updated_by`

var orderItemSortColumns = map[string]string{
	"dishname":  "d.name",
	"quantity":  "oi.quantity",
	"price":     "oi.price",
	"createdat": "oi.created_at",
}

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.DishID,
		&i.DishName,
		&i.Quantity,
		&i.Price,
		&i.Notes,
		&i.CreatedAt,
		&i.CreatedBy,
		&i.UpdatedAt,
		&i.UpdatedBy,
	)
	return i, err
}

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	DishID    uuid.UUID
	Quantity  int32
	Price     pgtype.Numeric
	Notes     pgtype.Text
	CreatedBy pgtype.Text
}

const createOrderItem = `WITH oi AS (
    INSERT INTO order_items (order_id, dish_id, quantity, price, notes, created_by)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING *
)
SELECT ` + orderItemColumns + ` FROM oi JOIN dishes d ON d.id = oi.dish_id`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.DishID,
		arg.Quantity,
		arg.Price,
		arg.Notes,
		arg.CreatedBy,
	))
}

const listOrderItemsByOrder = `SELECT ` + orderItemColumns + `
FROM order_items oi JOIN dishes d ON d.id = oi.dish_id
WHERE oi.order_id = $1 AND NOT oi.is_deleted
ORDER BY oi.created_at, oi.id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrderItem)
}

const orderItemFilter = `
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN dishes d ON d.id = oi.dish_id
WHERE NOT oi.is_deleted AND NOT o.is_deleted
  AND ($1::text = '' OR d.name ILIKE '%' || $1 || '%')`

const countOrderItems = `SELECT COUNT(*)` + orderItemFilter

const listOrderItems = `SELECT ` + orderItemColumns + orderItemFilter

func (q *Queries) ListOrderItems(ctx context.Context, arg ListParams) ([]OrderItem, int64, error) {
	var total int64
	if err := q.db.QueryRow(ctx, countOrderItems, arg.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := paged(listOrderItems, orderBy(orderItemSortColumns, arg.SortBy, "createdat", arg.Desc, "oi.id"), 2)
	rows, err := q.db.Query(ctx, sql, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanOrderItem)
	return items, total, err
}

const getOrderItem = `SELECT ` + orderItemColumns + `
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN dishes d ON d.id = oi.dish_id
WHERE oi.id = $1 AND NOT oi.is_deleted AND NOT o.is_deleted`

// GetOrderItem returns an active item belonging to an active order.
func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

type UpdateOrderItemQuantityParams struct {
	ID        uuid.UUID
	Quantity  int32
	UpdatedBy pgtype.Text
}

// Only quantity is writable; price stays the snapshot taken at creation.
const updateOrderItemQuantity = `WITH oi AS (
    UPDATE order_items
    SET quantity = $2, updated_at = now(), updated_by = $3
    WHERE id = $1 AND NOT is_deleted
    RETURNING *
)
SELECT ` + orderItemColumns + ` FROM oi JOIN dishes d ON d.id = oi.dish_id`

func (q *Queries) UpdateOrderItemQuantity(ctx context.Context, arg UpdateOrderItemQuantityParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItemQuantity, arg.ID, arg.Quantity, arg.UpdatedBy))
}

const softDeleteOrderItem = `UPDATE order_items
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteOrderItem(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteOrderItem, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}

const softDeleteOrderItemsByOrder = `UPDATE order_items
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE order_id = $1 AND NOT is_deleted`

// SoftDeleteOrderItemsByOrder soft-deletes every active item of the order
// given by arg.ID and reports how many rows changed.
func (q *Queries) SoftDeleteOrderItemsByOrder(ctx context.Context, arg SoftDeleteParams) (int64, error) {
	tag, err := q.db.Exec(ctx, softDeleteOrderItemsByOrder, arg.ID, arg.DeletedBy)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countActiveOrderItems = `SELECT COUNT(*) FROM order_items WHERE order_id = $1 AND NOT is_deleted`

func (q *Queries) CountActiveOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countActiveOrderItems, orderID).Scan(&count)
	return count, err
}
