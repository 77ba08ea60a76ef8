package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuColumns = `m.id, m.name, m.description, m.created_at, m.created_by, m.updated_at, m.updated_by`

var menuSortColumns = map[string]string{
	"name":      "m.name",
	"createdat": "m.created_at",
}

func scanMenu(row pgx.Row) (Menu, error) {
	var i Menu
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.CreatedAt,
		&i.CreatedBy,
		&i.UpdatedAt,
		&i.UpdatedBy,
	)
	return i, err
}

const countMenus = `SELECT COUNT(*) FROM menus m
WHERE NOT m.is_deleted AND ($1::text = '' OR m.name ILIKE '%' || $1 || '%')`

const listMenus = `SELECT ` + menuColumns + ` FROM menus m
WHERE NOT m.is_deleted AND ($1::text = '' OR m.name ILIKE '%' || $1 || '%')`

func (q *Queries) ListMenus(ctx context.Context, arg ListParams) ([]Menu, int64, error) {
	var total int64
	if err := q.db.QueryRow(ctx, countMenus, arg.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := paged(listMenus, orderBy(menuSortColumns, arg.SortBy, "name", arg.Desc, "m.id"), 2)
	rows, err := q.db.Query(ctx, sql, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanMenu)
	return items, total, err
}

const getMenu = `SELECT ` + menuColumns + ` FROM menus m WHERE m.id = $1 AND NOT m.is_deleted`

func (q *Queries) GetMenu(ctx context.Context, id uuid.UUID) (Menu, error) {
	return scanMenu(q.db.QueryRow(ctx, getMenu, id))
}

const lockMenu = getMenu + ` FOR UPDATE`

func (q *Queries) LockMenu(ctx context.Context, id uuid.UUID) (Menu, error) {
	return scanMenu(q.db.QueryRow(ctx, lockMenu, id))
}

const menuNameExists = `SELECT EXISTS (
    SELECT 1 FROM menus WHERE name = $1 AND id <> $2 AND NOT is_deleted
)`

func (q *Queries) MenuNameExists(ctx context.Context, arg NameExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, menuNameExists, arg.Name, arg.ExcludeID).Scan(&exists)
	return exists, err
}

type CreateMenuParams struct {
	Name        string
	Description pgtype.Text
	CreatedBy   pgtype.Text
}

const createMenu = `INSERT INTO menus AS m (name, description, created_by)
VALUES ($1, $2, $3)
RETURNING ` + menuColumns

func (q *Queries) CreateMenu(ctx context.Context, arg CreateMenuParams) (Menu, error) {
	return scanMenu(q.db.QueryRow(ctx, createMenu, arg.Name, arg.Description, arg.CreatedBy))
}

type UpdateMenuParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	UpdatedBy   pgtype.Text
}

const updateMenu = `UPDATE menus AS m
SET name = $2, description = $3, updated_at = now(), updated_by = $4
WHERE m.id = $1 AND NOT m.is_deleted
RETURNING ` + menuColumns

func (q *Queries) UpdateMenu(ctx context.Context, arg UpdateMenuParams) (Menu, error) {
	return scanMenu(q.db.QueryRow(ctx, updateMenu, arg.ID, arg.Name, arg.Description, arg.UpdatedBy))
}

const softDeleteMenu = `UPDATE menus
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteMenu(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteMenu, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}

const countActiveMenuDishes = `SELECT COUNT(*)
FROM menu_dishes md JOIN dishes d ON d.id = md.dish_id
WHERE md.menu_id = $1 AND NOT md.is_deleted AND NOT d.is_deleted`

func (q *Queries) CountActiveMenuDishes(ctx context.Context, menuID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countActiveMenuDishes, menuID).Scan(&count)
	return count, err
}

const softDeleteMenuLinks = `UPDATE menu_dishes
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE menu_id = $1 AND NOT is_deleted`

// SoftDeleteMenuLinks soft-deletes every menu_dishes row of a menu.
func (q *Queries) SoftDeleteMenuLinks(ctx context.Context, arg SoftDeleteParams) (int64, error) {
	tag, err := q.db.Exec(ctx, softDeleteMenuLinks, arg.ID, arg.DeletedBy)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
