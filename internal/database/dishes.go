package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const dishColumns = `d.id, d.name, d.description, d.price, d.category_id, c.name,
    d.created_at, d.created_by, d.updated_at, d.updated_by`

var dishSortColumns = map[string]string{
	"name":      "d.name",
	"price":     "d.price",
	"category":  "c.name",
	"createdat": "d.created_at",
}

func scanDish(row pgx.Row) (Dish, error) {
	var i Dish
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.CategoryID,
		&i.CategoryName,
		&i.CreatedAt,
		&i.CreatedBy,
		&i.UpdatedAt,
		&i.UpdatedBy,
	)
	return i, err
}

type ListDishesParams struct {
	ListParams
	CategoryID pgtype.UUID
	MinPrice   pgtype.Numeric
	MaxPrice   pgtype.Numeric
}

const dishFilter = `
FROM dishes d JOIN categories c ON c.id = d.category_id
WHERE NOT d.is_deleted
  AND ($1::text = '' OR d.name ILIKE '%' || $1 || '%')
  AND ($2::uuid IS NULL OR d.category_id = $2)
  AND ($3::numeric IS NULL OR d.price >= $3)
  AND ($4::numeric IS NULL OR d.price <= $4)`

const countDishes = `SELECT COUNT(*)` + dishFilter

const listDishes = `SELECT ` + dishColumns + dishFilter

func (q *Queries) ListDishes(ctx context.Context, arg ListDishesParams) ([]Dish, int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, countDishes,
		arg.Search,
		arg.CategoryID,
		arg.MinPrice,
		arg.MaxPrice,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	sql := paged(listDishes, orderBy(dishSortColumns, arg.SortBy, "name", arg.Desc, "d.id"), 5)
	rows, err := q.db.Query(ctx, sql,
		arg.Search,
		arg.CategoryID,
		arg.MinPrice,
		arg.MaxPrice,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanDish)
	return items, total, err
}

const getDish = `SELECT ` + dishColumns + `
FROM dishes d JOIN categories c ON c.id = d.category_id
WHERE d.id = $1 AND NOT d.is_deleted`

// GetDish returns an active dish. Soft-deleted dishes yield pgx.ErrNoRows.
func (q *Queries) GetDish(ctx context.Context, id uuid.UUID) (Dish, error) {
	return scanDish(q.db.QueryRow(ctx, getDish, id))
}

const lockDish = getDish + ` FOR UPDATE OF d`

func (q *Queries) LockDish(ctx context.Context, id uuid.UUID) (Dish, error) {
	return scanDish(q.db.QueryRow(ctx, lockDish, id))
}

const lockDishShared = getDish + ` FOR SHARE OF d`

// LockDishShared reads an active dish and holds a share lock on it until the
// transaction ends, so a concurrent DeleteDish waits for new order items.
func (q *Queries) LockDishShared(ctx context.Context, id uuid.UUID) (Dish, error) {
	return scanDish(q.db.QueryRow(ctx, lockDishShared, id))
}

const dishNameExists = `SELECT EXISTS (
    SELECT 1 FROM dishes WHERE name = $1 AND id <> $2 AND NOT is_deleted
)`

func (q *Queries) DishNameExists(ctx context.Context, arg NameExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, dishNameExists, arg.Name, arg.ExcludeID).Scan(&exists)
	return exists, err
}

type CreateDishParams struct {
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	CategoryID  uuid.UUID
	CreatedBy   pgtype.Text
}

// The category row is share-locked for the statement, so a concurrent
// DeleteCategory either sees the new dish or the insert finds no category.
const createDish = `WITH cat AS (
    SELECT id FROM categories WHERE id = $4 AND NOT is_deleted FOR SHARE
), d AS (
    INSERT INTO dishes (name, description, price, category_id, created_by)
    SELECT $1::varchar, $2::varchar, $3::numeric, cat.id, $5::varchar FROM cat
    RETURNING *
)
SELECT ` + dishColumns + ` FROM d JOIN categories c ON c.id = d.category_id`

// CreateDish inserts a dish under an active category. A missing or
// soft-deleted category yields pgx.ErrNoRows.
func (q *Queries) CreateDish(ctx context.Context, arg CreateDishParams) (Dish, error) {
	return scanDish(q.db.QueryRow(ctx, createDish,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.CategoryID,
		arg.CreatedBy,
	))
}

type UpdateDishParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	CategoryID  uuid.UUID
	UpdatedBy   pgtype.Text
}

const updateDish = `WITH cat AS (
    SELECT id FROM categories WHERE id = $5 AND NOT is_deleted FOR SHARE
), d AS (
    UPDATE dishes
    SET name = $2, description = $3, price = $4, category_id = cat.id,
        updated_at = now(), updated_by = $6
    FROM cat
    WHERE dishes.id = $1 AND NOT dishes.is_deleted
    RETURNING dishes.*
)
SELECT ` + dishColumns + ` FROM d JOIN categories c ON c.id = d.category_id`

// UpdateDish rewrites an active dish. pgx.ErrNoRows means either the dish or
// its new category is missing or soft-deleted.
func (q *Queries) UpdateDish(ctx context.Context, arg UpdateDishParams) (Dish, error) {
	return scanDish(q.db.QueryRow(ctx, updateDish,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.CategoryID,
		arg.UpdatedBy,
	))
}

const softDeleteDish = `UPDATE dishes
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteDish(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteDish, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}

const softDeleteDishIngredientLinks = `UPDATE dish_ingredients
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE dish_id = $1 AND NOT is_deleted`

const softDeleteDishMenuLinks = `UPDATE menu_dishes
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE dish_id = $1 AND NOT is_deleted`

// SoftDeleteDishLinks soft-deletes the dish_ingredients and menu_dishes rows
// that reference a dish. Call it inside the transaction that deletes the dish.
func (q *Queries) SoftDeleteDishLinks(ctx context.Context, arg SoftDeleteParams) (int64, error) {
	ingredientTag, err := q.db.Exec(ctx, softDeleteDishIngredientLinks, arg.ID, arg.DeletedBy)
	if err != nil {
		return 0, err
	}
	menuTag, err := q.db.Exec(ctx, softDeleteDishMenuLinks, arg.ID, arg.DeletedBy)
	if err != nil {
		return 0, err
	}
	return ingredientTag.RowsAffected() + menuTag.RowsAffected(), nil
}

const countOpenOrdersWithDish = `SELECT COUNT(DISTINCT o.id)
FROM order_items oi JOIN orders o ON o.id = oi.order_id
WHERE oi.dish_id = $1
  AND NOT oi.is_deleted
  AND NOT o.is_deleted
  AND o.status IN ('Pending', 'Processing')`

// CountOpenOrdersWithDish counts active Pending/Processing orders holding the dish.
func (q *Queries) CountOpenOrdersWithDish(ctx context.Context, dishID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOpenOrdersWithDish, dishID).Scan(&count)
	return count, err
}

const countActiveDishes = `SELECT COUNT(*) FROM dishes WHERE NOT is_deleted`

func (q *Queries) CountActiveDishes(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countActiveDishes).Scan(&count)
	return count, err
}
