package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const cartColumns = `id, user_id, version, created_at, updated_at`

func scanCart(row pgx.Row) (Cart, error) {
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const cartItemColumns = `id, cart_id, dish_id, quantity, notes, created_at, updated_at`

func scanCartItem(row pgx.Row) (CartItem, error) {
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.DishID,
		&i.Quantity,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

// The no-op DO UPDATE makes RETURNING yield the existing row and takes the
// row lock, so inside a transaction this both creates lazily and locks.
const ensureCart = `INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING ` + cartColumns

// EnsureCart returns the user's cart, creating it when missing.
func (q *Queries) EnsureCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, ensureCart, userID))
}

const lockCart = `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1 FOR UPDATE`

// LockCart returns the user's cart under a row lock, or pgx.ErrNoRows.
func (q *Queries) LockCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, lockCart, userID))
}

const touchCart = `UPDATE carts SET version = version + 1, updated_at = now()
WHERE id = $1
RETURNING ` + cartColumns

// TouchCart bumps the cart version after a mutation.
func (q *Queries) TouchCart(ctx context.Context, id uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, touchCart, id))
}

const listCartLines = `SELECT ci.id, ci.dish_id, d.name, d.price, d.is_deleted, ci.quantity, ci.notes, ci.created_at
FROM cart_items ci JOIN dishes d ON d.id = ci.dish_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at, ci.id`

// ListCartLines returns every line of a cart, including lines whose dish is
// soft-deleted. Callers decide visibility from DishDeleted.
func (q *Queries) ListCartLines(ctx context.Context, cartID uuid.UUID) ([]CartLine, error) {
	rows, err := q.db.Query(ctx, listCartLines, cartID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (CartLine, error) {
		var i CartLine
		err := row.Scan(
			&i.ID,
			&i.DishID,
			&i.DishName,
			&i.Price,
			&i.DishDeleted,
			&i.Quantity,
			&i.Notes,
			&i.CreatedAt,
		)
		return i, err
	})
}

type FindCartItemParams struct {
	CartID uuid.UUID
	DishID uuid.UUID
	Notes  pgtype.Text
}

const findCartItem = `SELECT ` + cartItemColumns + ` FROM cart_items
WHERE cart_id = $1 AND dish_id = $2 AND notes IS NOT DISTINCT FROM $3
ORDER BY created_at, id
LIMIT 1`

// FindCartItem matches a line on (dish, notes) with NULL-safe notes equality.
func (q *Queries) FindCartItem(ctx context.Context, arg FindCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, findCartItem, arg.CartID, arg.DishID, arg.Notes))
}

type GetCartItemParams struct {
	ID     uuid.UUID
	CartID uuid.UUID
}

const getCartItem = `SELECT ` + cartItemColumns + ` FROM cart_items WHERE id = $1 AND cart_id = $2`

func (q *Queries) GetCartItem(ctx context.Context, arg GetCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, getCartItem, arg.ID, arg.CartID))
}

type CreateCartItemParams struct {
	CartID   uuid.UUID
	DishID   uuid.UUID
	Quantity int32
	Notes    pgtype.Text
}

const createCartItem = `INSERT INTO cart_items (cart_id, dish_id, quantity, notes)
VALUES ($1, $2, $3, $4)
RETURNING ` + cartItemColumns

func (q *Queries) CreateCartItem(ctx context.Context, arg CreateCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, createCartItem, arg.CartID, arg.DishID, arg.Quantity, arg.Notes))
}

type UpdateCartItemParams struct {
	ID       uuid.UUID
	Quantity int32
	Notes    pgtype.Text
}

const updateCartItem = `UPDATE cart_items
SET quantity = $2, notes = $3, updated_at = now()
WHERE id = $1
RETURNING ` + cartItemColumns

func (q *Queries) UpdateCartItem(ctx context.Context, arg UpdateCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, updateCartItem, arg.ID, arg.Quantity, arg.Notes))
}

type DeleteCartItemParams struct {
	ID     uuid.UUID
	CartID uuid.UUID
}

const deleteCartItem = `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartItem, arg.ID, arg.CartID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const clearCartItems = `DELETE FROM cart_items WHERE cart_id = $1`

func (q *Queries) ClearCartItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, clearCartItems, cartID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
