package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const categoryColumns = `c.id, c.name, c.description, c.created_at, c.created_by, c.updated_at, c.updated_by`

var categorySortColumns = map[string]string{
	"name":      "c.name",
	"createdat": "c.created_at",
}

func scanCategory(row pgx.Row) (Category, error) {
	var i Category
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

const countCategories = `SELECT COUNT(*) FROM categories c
WHERE NOT c.is_deleted AND ($1::text = '' OR c.name ILIKE '%' || $1 || '%')`

const listCategories = `SELECT ` + categoryColumns + ` FROM categories c
WHERE NOT c.is_deleted AND ($1::text = '' OR c.name ILIKE '%' || $1 || '%')`

func (q *Queries) ListCategories(ctx context.Context, arg ListParams) ([]Category, int64, error) {
	var total int64
	if err := q.db.QueryRow(ctx, countCategories, arg.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := paged(listCategories, orderBy(categorySortColumns, arg.SortBy, "name", arg.Desc, "c.id"), 2)
	rows, err := q.db.Query(ctx, sql, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanCategory)
	return items, total, err
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories c WHERE c.id = $1 AND NOT c.is_deleted`

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, getCategory, id))
}

const lockCategory = getCategory + ` FOR UPDATE`

func (q *Queries) LockCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, lockCategory, id))
}

const categoryNameExists = `SELECT EXISTS (
    SELECT 1 FROM categories WHERE name = $1 AND id <> $2 AND NOT is_deleted
)`

func (q *Queries) CategoryNameExists(ctx context.Context, arg NameExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, categoryNameExists, arg.Name, arg.ExcludeID).Scan(&exists)
	return exists, err
}

type CreateCategoryParams struct {
	Name        string
	Description pgtype.Text
	CreatedBy   pgtype.Text
}

const createCategory = `INSERT INTO categories AS c (name, description, created_by)
VALUES ($1, $2, $3)
RETURNING ` + categoryColumns

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, createCategory, arg.Name, arg.Description, arg.CreatedBy))
}

type UpdateCategoryParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	UpdatedBy   pgtype.Text
}

const updateCategory = `UPDATE categories AS c
SET name = $2, description = $3, updated_at = now(), updated_by = $4
WHERE c.id = $1 AND NOT c.is_deleted
RETURNING ` + categoryColumns

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, updateCategory, arg.ID, arg.Name, arg.Description, arg.UpdatedBy))
}

const softDeleteCategory = `UPDATE categories
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteCategory(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteCategory, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}

const listActiveDishNamesByCategory = `SELECT name FROM dishes
WHERE category_id = $1 AND NOT is_deleted
ORDER BY name`

func (q *Queries) ListActiveDishNamesByCategory(ctx context.Context, categoryID uuid.UUID) ([]string, error) {
	rows, err := q.db.Query(ctx, listActiveDishNamesByCategory, categoryID)
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}
