package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const dishIngredientColumns = `di.id, di.dish_id, d.name, di.ingredient_id, i.name, di.quantity, di.notes,
    di.created_at, di.created_by, di.updated_at, di.updated_by`

const dishIngredientJoins = `
JOIN dishes d ON d.id = di.dish_id
JOIN ingredients i ON i.id = di.ingredient_id`

var dishIngredientSortColumns = map[string]string{
	"dishname":       "d.name",
	"ingredientname": "i.name",
	"quantity":       "di.quantity",
	"createdat":      "di.created_at",
}

func scanDishIngredient(row pgx.Row) (DishIngredient, error) {
	var i DishIngredient
	err := row.Scan(
		&i.ID,
		&i.DishID,
		&i.DishName,
		&i.IngredientID,
		&i.IngredientName,
		&i.Quantity,
		&i.Notes,
		&i.CreatedAt,
		&i.CreatedBy,
		&i.UpdatedAt,
		&i.UpdatedBy,
	)
	return i, err
}

type ListDishIngredientsParams struct {
	ListParams
	DishID       pgtype.UUID
	IngredientID pgtype.UUID
}

const dishIngredientFilter = `
FROM dish_ingredients di` + dishIngredientJoins + `
WHERE NOT di.is_deleted
  AND ($1::uuid IS NULL OR di.dish_id = $1)
  AND ($2::uuid IS NULL OR di.ingredient_id = $2)`

const countDishIngredients = `SELECT COUNT(*)` + dishIngredientFilter

const listDishIngredients = `SELECT ` + dishIngredientColumns + dishIngredientFilter

func (q *Queries) ListDishIngredients(ctx context.Context, arg ListDishIngredientsParams) ([]DishIngredient, int64, error) {
	var total int64
	if err := q.db.QueryRow(ctx, countDishIngredients, arg.DishID, arg.IngredientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := paged(listDishIngredients, orderBy(dishIngredientSortColumns, arg.SortBy, "dishname", arg.Desc, "di.id"), 3)
	rows, err := q.db.Query(ctx, sql, arg.DishID, arg.IngredientID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanDishIngredient)
	return items, total, err
}

const getDishIngredient = `SELECT ` + dishIngredientColumns + `
FROM dish_ingredients di` + dishIngredientJoins + `
WHERE di.id = $1 AND NOT di.is_deleted`

func (q *Queries) GetDishIngredient(ctx context.Context, id uuid.UUID) (DishIngredient, error) {
	return scanDishIngredient(q.db.QueryRow(ctx, getDishIngredient, id))
}

type DishIngredientExistsParams struct {
	DishID       uuid.UUID
	IngredientID uuid.UUID
	ExcludeID    uuid.UUID
}

const dishIngredientExists = `SELECT EXISTS (
    SELECT 1 FROM dish_ingredients
    WHERE dish_id = $1 AND ingredient_id = $2 AND id <> $3 AND NOT is_deleted
)`

func (q *Queries) DishIngredientExists(ctx context.Context, arg DishIngredientExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, dishIngredientExists, arg.DishID, arg.IngredientID, arg.ExcludeID).Scan(&exists)
	return exists, err
}

type CreateDishIngredientParams struct {
	DishID       uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Text
	Notes        pgtype.Text
	CreatedBy    pgtype.Text
}

// activePairShared selects the active dish $1 and ingredient $2 and holds a
// share lock on both, so DeleteDish and DeleteIngredient wait for the link.
const activePairShared = `pair AS (
    SELECT d.id AS dish_id, i.id AS ingredient_id
    FROM dishes d, ingredients i
    WHERE d.id = $1 AND NOT d.is_deleted AND i.id = $2 AND NOT i.is_deleted
    FOR SHARE OF d, i
)`

const createDishIngredient = `WITH ` + activePairShared + `, di AS (
    INSERT INTO dish_ingredients (dish_id, ingredient_id, quantity, notes, created_by)
    SELECT pair.dish_id, pair.ingredient_id, $3::varchar, $4::varchar, $5::varchar FROM pair
    RETURNING *
)
SELECT ` + dishIngredientColumns + ` FROM di` + dishIngredientJoins

// CreateDishIngredient links an active dish and ingredient. pgx.ErrNoRows
// means one of them is missing or soft-deleted.
func (q *Queries) CreateDishIngredient(ctx context.Context, arg CreateDishIngredientParams) (DishIngredient, error) {
	return scanDishIngredient(q.db.QueryRow(ctx, createDishIngredient,
		arg.DishID,
		arg.IngredientID,
		arg.Quantity,
		arg.Notes,
		arg.CreatedBy,
	))
}

type UpdateDishIngredientParams struct {
	ID           uuid.UUID
	DishID       uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Text
	Notes        pgtype.Text
	UpdatedBy    pgtype.Text
}

const updateDishIngredient = `WITH ` + activePairShared + `, di AS (
    UPDATE dish_ingredients
    SET dish_id = pair.dish_id, ingredient_id = pair.ingredient_id, quantity = $4, notes = $5,
        updated_at = now(), updated_by = $6
    FROM pair
    WHERE dish_ingredients.id = $3 AND NOT dish_ingredients.is_deleted
    RETURNING dish_ingredients.*
)
SELECT ` + dishIngredientColumns + ` FROM di` + dishIngredientJoins

// UpdateDishIngredient rewrites an active link. pgx.ErrNoRows means the link,
// its dish or its ingredient is missing or soft-deleted.
func (q *Queries) UpdateDishIngredient(ctx context.Context, arg UpdateDishIngredientParams) (DishIngredient, error) {
	return scanDishIngredient(q.db.QueryRow(ctx, updateDishIngredient,
		arg.DishID,
		arg.IngredientID,
		arg.ID,
		arg.Quantity,
		arg.Notes,
		arg.UpdatedBy,
	))
}

const softDeleteDishIngredient = `UPDATE dish_ingredients
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteDishIngredient(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteDishIngredient, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}
