package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuDishColumns = `md.id, md.menu_id, m.name, md.dish_id, d.name,
    md.created_at, md.created_by, md.updated_at, md.updated_by`

const menuDishJoins = `
JOIN menus m ON m.id = md.menu_id
JOIN dishes d ON d.id = md.dish_id`

var menuDishSortColumns = map[string]string{
	"menuname":  "m.name",
	"dishname":  "d.name",
	"createdat": "md.created_at",
}

func scanMenuDish(row pgx.Row) (MenuDish, error) {
	var i MenuDish
	err := row.Scan(
		&i.ID,
		&i.MenuID,
		&i.MenuName,
		&i.DishID,
		&i.DishName,
		&i.CreatedAt,
		&i.CreatedBy,
		&i.UpdatedAt,
		&i.UpdatedBy,
	)
	return i, err
}

type ListMenuDishesParams struct {
	ListParams
	MenuID pgtype.UUID
	DishID pgtype.UUID
}

const menuDishFilter = `
FROM menu_dishes md` + menuDishJoins + `
WHERE NOT md.is_deleted
  AND ($1::uuid IS NULL OR md.menu_id = $1)
  AND ($2::uuid IS NULL OR md.dish_id = $2)`

const countMenuDishes = `SELECT COUNT(*)` + menuDishFilter

const listMenuDishes = `SELECT ` + menuDishColumns + menuDishFilter

func (q *Queries) ListMenuDishes(ctx context.Context, arg ListMenuDishesParams) ([]MenuDish, int64, error) {
	var total int64
	if err := q.db.QueryRow(ctx, countMenuDishes, arg.MenuID, arg.DishID).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := paged(listMenuDishes, orderBy(menuDishSortColumns, arg.SortBy, "menuname", arg.Desc, "md.id"), 3)
	rows, err := q.db.Query(ctx, sql, arg.MenuID, arg.DishID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanMenuDish)
	return items, total, err
}

const getMenuDish = `SELECT ` + menuDishColumns + `
FROM menu_dishes md` + menuDishJoins + `
WHERE md.id = $1 AND NOT md.is_deleted`

func (q *Queries) GetMenuDish(ctx context.Context, id uuid.UUID) (MenuDish, error) {
	return scanMenuDish(q.db.QueryRow(ctx, getMenuDish, id))
}

type MenuDishExistsParams struct {
	MenuID    uuid.UUID
	DishID    uuid.UUID
	ExcludeID uuid.UUID
}

const menuDishExists = `SELECT EXISTS (
    SELECT 1 FROM menu_dishes
    WHERE menu_id = $1 AND dish_id = $2 AND id <> $3 AND NOT is_deleted
)`

func (q *Queries) MenuDishExists(ctx context.Context, arg MenuDishExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, menuDishExists, arg.MenuID, arg.DishID, arg.ExcludeID).Scan(&exists)
	return exists, err
}

type CreateMenuDishParams struct {
	MenuID    uuid.UUID
	DishID    uuid.UUID
	CreatedBy pgtype.Text
}

const createMenuDish = `WITH md AS (
    INSERT INTO menu_dishes (menu_id, dish_id, created_by)
    VALUES ($1, $2, $3)
    RETURNING *
)
SELECT ` + menuDishColumns + ` FROM md` + menuDishJoins

func (q *Queries) CreateMenuDish(ctx context.Context, arg CreateMenuDishParams) (MenuDish, error) {
	return scanMenuDish(q.db.QueryRow(ctx, createMenuDish, arg.MenuID, arg.DishID, arg.CreatedBy))
}

type UpdateMenuDishParams struct {
	ID        uuid.UUID
	MenuID    uuid.UUID
	DishID    uuid.UUID
	UpdatedBy pgtype.Text
}

const updateMenuDish = `WITH md AS (
    UPDATE menu_dishes
    SET menu_id = $2, dish_id = $3, updated_at = now(), updated_by = $4
    WHERE id = $1 AND NOT is_deleted
    RETURNING *
)
SELECT ` + menuDishColumns + ` FROM md` + menuDishJoins

func (q *Queries) UpdateMenuDish(ctx context.Context, arg UpdateMenuDishParams) (MenuDish, error) {
	return scanMenuDish(q.db.QueryRow(ctx, updateMenuDish, arg.ID, arg.MenuID, arg.DishID, arg.UpdatedBy))
}

const softDeleteMenuDish = `UPDATE menu_dishes
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteMenuDish(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteMenuDish, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}
