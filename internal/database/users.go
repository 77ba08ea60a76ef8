package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `u.id, u.username, u.password_hash, u.email, u.role_id, r.name,
    u.created_at, u.created_by, u.updated_at, u.updated_by`

var userSortColumns = map[string]string{
	"username":  "u.username",
	"rolename":  "r.name",
	"createdat": "u.created_at",
}

func scanUser(row pgx.Row) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.Email,
		&i.RoleID,
		&i.RoleName,
		&i.CreatedAt,
		&i.CreatedBy,
		&i.UpdatedAt,
		&i.UpdatedBy,
	)
	return i, err
}

const countUsers = `SELECT COUNT(*) FROM users u
WHERE NOT u.is_deleted AND ($1::text = '' OR u.username ILIKE '%' || $1 || '%')`

const listUsers = `SELECT ` + userColumns + `
FROM users u JOIN roles r ON r.id = u.role_id
WHERE NOT u.is_deleted AND ($1::text = '' OR u.username ILIKE '%' || $1 || '%')`

func (q *Queries) ListUsers(ctx context.Context, arg ListParams) ([]User, int64, error) {
	var total int64
	if err := q.db.QueryRow(ctx, countUsers, arg.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := paged(listUsers, orderBy(userSortColumns, arg.SortBy, "username", arg.Desc, "u.id"), 2)
	rows, err := q.db.Query(ctx, sql, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanUser)
	return items, total, err
}

const getUserByID = `SELECT ` + userColumns + `
FROM users u JOIN roles r ON r.id = u.role_id
WHERE u.id = $1 AND NOT u.is_deleted`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByUsername = `SELECT ` + userColumns + `
FROM users u JOIN roles r ON r.id = u.role_id
WHERE u.username = $1 AND NOT u.is_deleted`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByUsername, username))
}

const usernameExists = `SELECT EXISTS (
    SELECT 1 FROM users WHERE username = $1 AND id <> $2 AND NOT is_deleted
)`

func (q *Queries) UsernameExists(ctx context.Context, arg NameExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, usernameExists, arg.Name, arg.ExcludeID).Scan(&exists)
	return exists, err
}

type CreateUserParams struct {
	Username     string
	PasswordHash string
	Email        pgtype.Text
	RoleID       uuid.UUID
	CreatedBy    pgtype.Text
}

const createUser = `WITH u AS (
    INSERT INTO users (username, password_hash, email, role_id, created_by)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING *
)
SELECT ` + userColumns + ` FROM u JOIN roles r ON r.id = u.role_id`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.Username,
		arg.PasswordHash,
		arg.Email,
		arg.RoleID,
		arg.CreatedBy,
	))
}

// UpdateUserParams leaves the password untouched when PasswordHash is NULL.
type UpdateUserParams struct {
	ID           uuid.UUID
	Username     string
	Email        pgtype.Text
	RoleID       uuid.UUID
	PasswordHash pgtype.Text
	UpdatedBy    pgtype.Text
}

const updateUser = `WITH u AS (
    UPDATE users
    SET username = $2,
        email = $3,
        role_id = $4,
        password_hash = COALESCE($5, password_hash),
        updated_at = now(),
        updated_by = $6
    WHERE id = $1 AND NOT is_deleted
    RETURNING *
)
SELECT ` + userColumns + ` FROM u JOIN roles r ON r.id = u.role_id`

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser,
		arg.ID,
		arg.Username,
		arg.Email,
		arg.RoleID,
		arg.PasswordHash,
		arg.UpdatedBy,
	))
}

const softDeleteUser = `UPDATE users
SET is_deleted = true, deleted_at = now(), deleted_by = $2
WHERE id = $1 AND NOT is_deleted
RETURNING id`

func (q *Queries) SoftDeleteUser(ctx context.Context, arg SoftDeleteParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteUser, arg.ID, arg.DeletedBy).Scan(&id)
	return id, err
}

const countActiveUsers = `SELECT COUNT(*) FROM users WHERE NOT is_deleted`

func (q *Queries) CountActiveUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countActiveUsers).Scan(&count)
	return count, err
}
