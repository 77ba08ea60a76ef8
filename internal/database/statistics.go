package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// StatsRange bounds statistics by order creation time. End is exclusive and
// either bound may be NULL for an open range.
type StatsRange struct {
	Start pgtype.Timestamptz
	End   pgtype.Timestamptz
}

const orderRange = `($1::timestamptz IS NULL OR o.created_at >= $1)
  AND ($2::timestamptz IS NULL OR o.created_at < $2)`

type OrderSummaryRow struct {
	TotalRevenue pgtype.Numeric `json:"total_revenue"`
	TotalOrders  int64          `json:"total_orders"`
}

const getOrderSummary = `SELECT COALESCE(SUM(o.total), 0), COUNT(*)
FROM orders o
WHERE NOT o.is_deleted AND ` + orderRange

func (q *Queries) GetOrderSummary(ctx context.Context, arg StatsRange) (OrderSummaryRow, error) {
	var i OrderSummaryRow
	err := q.db.QueryRow(ctx, getOrderSummary, arg.Start, arg.End).Scan(&i.TotalRevenue, &i.TotalOrders)
	return i, err
}

type StatusCountRow struct {
	Status OrderStatus `json:"status"`
	Count  int64       `json:"count"`
}

const countOrdersByStatus = `SELECT o.status, COUNT(*)
FROM orders o
WHERE NOT o.is_deleted AND ` + orderRange + `
GROUP BY o.status
ORDER BY o.status`

func (q *Queries) CountOrdersByStatus(ctx context.Context, arg StatsRange) ([]StatusCountRow, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (StatusCountRow, error) {
		var i StatusCountRow
		err := row.Scan(&i.Status, &i.Count)
		return i, err
	})
}

// Postgres weeks start on Monday.
var revenuePeriods = map[string]string{
	"day":   "day",
	"week":  "week",
	"month": "month",
	"year":  "year",
}

type RevenueByPeriodParams struct {
	StatsRange
	Period string
}

type RevenueByPeriodRow struct {
	Bucket      time.Time      `json:"bucket"`
	Revenue     pgtype.Numeric `json:"revenue"`
	OrdersCount int64          `json:"orders_count"`
}

// GetRevenueByPeriod buckets order totals by UTC period. Unknown periods use day.
func (q *Queries) GetRevenueByPeriod(ctx context.Context, arg RevenueByPeriodParams) ([]RevenueByPeriodRow, error) {
	field, ok := revenuePeriods[arg.Period]
	if !ok {
		field = "day"
	}
	sql := `SELECT date_trunc('` + field + `', o.created_at AT TIME ZONE 'UTC') AS bucket,
    COALESCE(SUM(o.total), 0), COUNT(*)
FROM orders o
WHERE NOT o.is_deleted AND ` + orderRange + `
GROUP BY bucket
ORDER BY bucket`
	rows, err := q.db.Query(ctx, sql, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (RevenueByPeriodRow, error) {
		var i RevenueByPeriodRow
		err := row.Scan(&i.Bucket, &i.Revenue, &i.OrdersCount)
		return i, err
	})
}

type TopDishesParams struct {
	StatsRange
	Limit int32
}

type TopDishRow struct {
	DishID        uuid.UUID      `json:"dish_id"`
	DishName      string         `json:"dish_name"`
	CategoryID    uuid.UUID      `json:"category_id"`
	CategoryName  string         `json:"category_name"`
	TotalQuantity int64          `json:"total_quantity"`
	TotalRevenue  pgtype.Numeric `json:"total_revenue"`
	OrderCount    int64          `json:"order_count"`
}

const getTopDishes = `SELECT d.id, d.name, c.id, c.name,
    SUM(oi.quantity), SUM(oi.price * oi.quantity), COUNT(DISTINCT oi.order_id)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN dishes d ON d.id = oi.dish_id
JOIN categories c ON c.id = d.category_id
WHERE NOT oi.is_deleted AND NOT o.is_deleted AND ` + orderRange + `
GROUP BY d.id, d.name, c.id, c.name
ORDER BY SUM(oi.quantity) DESC, d.name
LIMIT $3`

func (q *Queries) GetTopDishes(ctx context.Context, arg TopDishesParams) ([]TopDishRow, error) {
	rows, err := q.db.Query(ctx, getTopDishes, arg.Start, arg.End, arg.Limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (TopDishRow, error) {
		var i TopDishRow
		err := row.Scan(
			&i.DishID,
			&i.DishName,
			&i.CategoryID,
			&i.CategoryName,
			&i.TotalQuantity,
			&i.TotalRevenue,
			&i.OrderCount,
		)
		return i, err
	})
}

type CategoryRevenueRow struct {
	CategoryID    uuid.UUID      `json:"category_id"`
	CategoryName  string         `json:"category_name"`
	TotalRevenue  pgtype.Numeric `json:"total_revenue"`
	TotalQuantity int64          `json:"total_quantity"`
}

const getRevenueByCategory = `SELECT c.id, c.name, SUM(oi.price * oi.quantity), SUM(oi.quantity)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN dishes d ON d.id = oi.dish_id
JOIN categories c ON c.id = d.category_id
WHERE NOT oi.is_deleted AND NOT o.is_deleted AND ` + orderRange + `
GROUP BY c.id, c.name
ORDER BY SUM(oi.price * oi.quantity) DESC, c.name`

func (q *Queries) GetRevenueByCategory(ctx context.Context, arg StatsRange) ([]CategoryRevenueRow, error) {
	rows, err := q.db.Query(ctx, getRevenueByCategory, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (CategoryRevenueRow, error) {
		var i CategoryRevenueRow
		err := row.Scan(&i.CategoryID, &i.CategoryName, &i.TotalRevenue, &i.TotalQuantity)
		return i, err
	})
}

const listRecentOrders = `SELECT ` + orderColumns + `
FROM orders o JOIN users u ON u.id = o.user_id
WHERE NOT o.is_deleted
ORDER BY o.created_at DESC, o.id
LIMIT $1`

func (q *Queries) ListRecentOrders(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listRecentOrders, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrder)
}
