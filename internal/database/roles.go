package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const roleColumns = `r.id, r.name, r.description, r.created_at, r.created_by, r.updated_at, r.updated_by`

var roleSortColumns = map[string]string{
	"name":      "r.name",
	"createdat": "r.created_at",
}

func scanRole(row pgx.Row) (Role, error) {
	var i Role
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

const countRoles = `SELECT COUNT(*) FROM roles r
WHERE NOT r.is_deleted AND ($1::text = '' OR r.name ILIKE '%' || $1 || '%')`

const listRoles = `SELECT ` + roleColumns + ` FROM roles r
WHERE NOT r.is_deleted AND ($1::text = '' OR r.name ILIKE '%' || $1 || '%')`

func (q *Queries) ListRoles(ctx context.Context, arg ListParams) ([]Role, int64, error) {
	var total int64
	if err := q.db.QueryRow(ctx, countRoles, arg.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := paged(listRoles, orderBy(roleSortColumns, arg.SortBy, "name", arg.Desc, "r.id"), 2)
	rows, err := q.db.Query(ctx, sql, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanRole)
	return items, total, err
}

const getRole = `SELECT ` + roleColumns + ` FROM roles r WHERE r.id = $1 AND NOT r.is_deleted`

func (q *Queries) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	return scanRole(q.db.QueryRow(ctx, getRole, id))
}

const getRoleByName = `SELECT ` + roleColumns + ` FROM roles r WHERE r.name = $1 AND NOT r.is_deleted`

func (q *Queries) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return scanRole(q.db.QueryRow(ctx, getRoleByName, name))
}

const lockRole = `SELECT ` + roleColumns + ` FROM roles r WHERE r.id = $1 AND NOT r.is_deleted FOR UPDATE`

func (q *Queries) LockRole(ctx context.Context, id uuid.UUID) (Role, error) {
	return scanRole(q.db.QueryRow(ctx, lockRole, id))
}

const roleNameExists = `SELECT EXISTS (
    SELECT 1 FROM roles WHERE name = $1 AND id <> $2 AND NOT is_deleted
)`

func (q *Queries) RoleNameExists(ctx context.Context, arg NameExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, roleNameExists, arg.Name, arg.ExcludeID).Scan(&exists)
	return exists, err
}

type CreateRoleParams struct {
	Name        string
	Description pgtype.Text
	CreatedBy   pgtype.Text
}

const createRole = `INSERT INTO roles AS r (name, description, created_by)
VALUES ($1, $2, $3)
RETURNING ` + roleColumns

func (q *Queries) CreateRole(ctx context.Context, arg CreateRoleParams) (Role, error) {
	return scanRole(q.db.QueryRow(ctx, createRole, arg.Name, arg.Description, arg.CreatedBy))
}

type UpdateRoleParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	UpdatedBy   pgtype.Text
}

const updateRole = `UPDATE roles AS r
SET name = $2, description = $3, updated_at = now(), updated_by = $4
WHERE r.id = $1 AND NOT r.is_deleted
RETURNING ` + roleColumns

func (q *Queries) UpdateRole(ctx context.Context, arg UpdateRoleParams) (Role, error) {
	return scanRole(q.db.QueryRow(ctx, updateRole, arg.ID, arg.Name, arg.Description, arg.UpdatedBy))
}

const softDeleteRole = `UPDATE roles
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteRole(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteRole, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}

const countActiveUsersByRole = `SELECT COUNT(*) FROM users WHERE role_id = $1 AND NOT is_deleted`

func (q *Queries) CountActiveUsersByRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countActiveUsersByRole, roleID).Scan(&count)
	return count, err
}
