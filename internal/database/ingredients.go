package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const ingredientColumns = `i.id, i.name, i.created_at, i.created_by, i.updated_at, i.updated_by`

var ingredientSortColumns = map[string]string{
	"name":      "i.name",
	"createdat": "i.created_at",
}

func scanIngredient(row pgx.Row) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.CreatedAt,
		&i.CreatedBy,
		&i.UpdatedAt,
		&i.UpdatedBy,
	)
	return i, err
}

const countIngredients = `SELECT COUNT(*) FROM ingredients i
WHERE NOT i.is_deleted AND ($1::text = '' OR i.name ILIKE '%' || $1 || '%')`

const listIngredients = `SELECT ` + ingredientColumns + ` FROM ingredients i
WHERE NOT i.is_deleted AND ($1::text = '' OR i.name ILIKE '%' || $1 || '%')`

func (q *Queries) ListIngredients(ctx context.Context, arg ListParams) ([]Ingredient, int64, error) {
	var total int64
	if err := q.db.QueryRow(ctx, countIngredients, arg.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := paged(listIngredients, orderBy(ingredientSortColumns, arg.SortBy, "name", arg.Desc, "i.id"), 2)
	rows, err := q.db.Query(ctx, sql, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanIngredient)
	return items, total, err
}

const getIngredient = `SELECT ` + ingredientColumns + ` FROM ingredients i WHERE i.id = $1 AND NOT i.is_deleted`

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredient, id))
}

const lockIngredient = getIngredient + ` FOR UPDATE`

func (q *Queries) LockIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, lockIngredient, id))
}

const ingredientNameExists = `SELECT EXISTS (
    SELECT 1 FROM ingredients WHERE name = $1 AND id <> $2 AND NOT is_deleted
)`

func (q *Queries) IngredientNameExists(ctx context.Context, arg NameExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, ingredientNameExists, arg.Name, arg.ExcludeID).Scan(&exists)
	return exists, err
}

type CreateIngredientParams struct {
	Name      string
	CreatedBy pgtype.Text
}

const createIngredient = `INSERT INTO ingredients AS i (name, created_by)
VALUES ($1, $2)
RETURNING ` + ingredientColumns

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, createIngredient, arg.Name, arg.CreatedBy))
}

type UpdateIngredientParams struct {
	ID        uuid.UUID
	Name      string
	UpdatedBy pgtype.Text
}

const updateIngredient = `UPDATE ingredients AS i
SET name = $2, updated_at = now(), updated_by = $3
WHERE i.id = $1 AND NOT i.is_deleted
RETURNING ` + ingredientColumns

func (q *Queries) UpdateIngredient(ctx context.Context, arg UpdateIngredientParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, updateIngredient, arg.ID, arg.Name, arg.UpdatedBy))
}

const softDeleteIngredient = `UPDATE ingredients
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteIngredient(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteIngredient, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}

const listActiveDishNamesByIngredient = `SELECT d.name
FROM dish_ingredients di JOIN dishes d ON d.id = di.dish_id
WHERE di.ingredient_id = $1 AND NOT di.is_deleted AND NOT d.is_deleted
ORDER BY d.name`

func (q *Queries) ListActiveDishNamesByIngredient(ctx context.Context, ingredientID uuid.UUID) ([]string, error) {
	rows, err := q.db.Query(ctx, listActiveDishNamesByIngredient, ingredientID)
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}
