package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablewise/restaurant-api/internal/database"
)

// CartStore defines the DB methods needed by the cart service, including the
// order writes used at checkout. Satisfied by *database.Queries.
type CartStore interface {
	OrderWriter
	EnsureCart(ctx context.Context, userID uuid.UUID) (database.Cart, error)
	LockCart(ctx context.Context, userID uuid.UUID) (database.Cart, error)
	TouchCart(ctx context.Context, id uuid.UUID) (database.Cart, error)
	ListCartLines(ctx context.Context, cartID uuid.UUID) ([]database.CartLine, error)
	FindCartItem(ctx context.Context, arg database.FindCartItemParams) (database.CartItem, error)
	GetCartItem(ctx context.Context, arg database.GetCartItemParams) (database.CartItem, error)
	CreateCartItem(ctx context.Context, arg database.CreateCartItemParams) (database.CartItem, error)
	UpdateCartItem(ctx context.Context, arg database.UpdateCartItemParams) (database.CartItem, error)
	DeleteCartItem(ctx context.Context, arg database.DeleteCartItemParams) (int64, error)
	ClearCartItems(ctx context.Context, cartID uuid.UUID) (int64, error)
}

// NewCartStore creates a CartStore from a DBTX (pool or tx).
type NewCartStore func(db database.DBTX) CartStore

// CartLineView is a visible cart line priced at the dish's current price.
type CartLineView struct {
	ID       uuid.UUID
	DishID   uuid.UUID
	DishName string
	Price    decimal.Decimal
	Quantity int32
	Notes    pgtype.Text
	Subtotal decimal.Decimal
}

// CartView is the cart as returned to its owner. Totals are recomputed from
// the visible lines on every read.
type CartView struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Version    int32
	Items      []CartLineView
	Total      decimal.Decimal
	TotalItems int32
	UpdatedAt  pgtype.Timestamptz
}

// CartService manages per-user carts. Every mutation runs in a transaction
// holding the cart row lock and bumps the cart version.
type CartService struct {
	pool     TxBeginner
	newStore NewCartStore
	orders   *OrderService
}

func NewCartService(pool TxBeginner, newStore NewCartStore, orders *OrderService) *CartService {
	return &CartService{pool: pool, newStore: newStore, orders: orders}
}

func (s *CartService) inTx(ctx context.Context, fn func(store CartStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	var view *CartView
	err := s.inTx(ctx, func(store CartStore) error {
		cart, err := store.EnsureCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("ensure cart: %w", err)
		}
		view, err = loadView(ctx, store, cart)
		return err
	})
	return view, err
}

// AddCartItemRequest adds Quantity of a dish with optional Notes.
type AddCartItemRequest struct {
	DishID   uuid.UUID
	Quantity int32
	Notes    string
}

// AddItem merges into an existing line with the same dish and notes, capping
// its quantity at MaxItemQuantity, or inserts a new line.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req AddCartItemRequest) (*CartView, error) {
	if req.Quantity < MinItemQuantity || req.Quantity > MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	var view *CartView
	err := s.inTx(ctx, func(store CartStore) error {
		cart, err := store.EnsureCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("ensure cart: %w", err)
		}

		if _, err := store.LockDishShared(ctx, req.DishID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return badRequest("dish %s not found or unavailable", req.DishID)
			}
			return fmt.Errorf("get dish: %w", err)
		}

		notes := NormalizeNotes(req.Notes)
		existing, err := store.FindCartItem(ctx, database.FindCartItemParams{
			CartID: cart.ID,
			DishID: req.DishID,
			Notes:  notes,
		})
		switch {
		case err == nil:
			_, err = store.UpdateCartItem(ctx, database.UpdateCartItemParams{
				ID:       existing.ID,
				Quantity: clampQuantity(existing.Quantity + req.Quantity),
				Notes:    notes,
			})
			if err != nil {
				return fmt.Errorf("update cart item: %w", err)
			}
		case errors.Is(err, pgx.ErrNoRows):
			_, err = store.CreateCartItem(ctx, database.CreateCartItemParams{
				CartID:   cart.ID,
				DishID:   req.DishID,
				Quantity: req.Quantity,
				Notes:    notes,
			})
			if err != nil {
				return fmt.Errorf("create cart item: %w", err)
			}
		default:
			return fmt.Errorf("find cart item: %w", err)
		}

		view, err = touchAndLoad(ctx, store, cart.ID)
		return err
	})
	return view, err
}

// UpdateCartItemRequest replaces the quantity and notes of a line.
type UpdateCartItemRequest struct {
	ItemID   uuid.UUID
	Quantity int32
	Notes    string
}

// UpdateItem edits a line of the caller's cart. When the new notes collide
// with another line of the same dish, the two lines are merged.
func (s *CartService) UpdateItem(ctx context.Context, userID uuid.UUID, req UpdateCartItemRequest) (*CartView, error) {
	if req.Quantity < MinItemQuantity || req.Quantity > MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	var view *CartView
	err := s.inTx(ctx, func(store CartStore) error {
		cart, err := lockCart(ctx, store, userID)
		if err != nil {
			return err
		}

		item, err := store.GetCartItem(ctx, database.GetCartItemParams{ID: req.ItemID, CartID: cart.ID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCartItemNotFound
			}
			return fmt.Errorf("get cart item: %w", err)
		}

		notes := NormalizeNotes(req.Notes)
		twin, err := store.FindCartItem(ctx, database.FindCartItemParams{
			CartID: cart.ID,
			DishID: item.DishID,
			Notes:  notes,
		})
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("find cart item: %w", err)
		}

		if err == nil && twin.ID != item.ID {
			if _, err := store.UpdateCartItem(ctx, database.UpdateCartItemParams{
				ID:       twin.ID,
				Quantity: clampQuantity(twin.Quantity + req.Quantity),
				Notes:    notes,
			}); err != nil {
				return fmt.Errorf("merge cart item: %w", err)
			}
			if _, err := store.DeleteCartItem(ctx, database.DeleteCartItemParams{ID: item.ID, CartID: cart.ID}); err != nil {
				return fmt.Errorf("delete merged cart item: %w", err)
			}
		} else {
			if _, err := store.UpdateCartItem(ctx, database.UpdateCartItemParams{
				ID:       item.ID,
				Quantity: req.Quantity,
				Notes:    notes,
			}); err != nil {
				return fmt.Errorf("update cart item: %w", err)
			}
		}

		view, err = touchAndLoad(ctx, store, cart.ID)
		return err
	})
	return view, err
}

// RemoveItem deletes a line of the caller's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error) {
	var view *CartView
	err := s.inTx(ctx, func(store CartStore) error {
		cart, err := lockCart(ctx, store, userID)
		if err != nil {
			return err
		}

		n, err := store.DeleteCartItem(ctx, database.DeleteCartItemParams{ID: itemID, CartID: cart.ID})
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}
		if n == 0 {
			return ErrCartItemNotFound
		}

		view, err = touchAndLoad(ctx, store, cart.ID)
		return err
	})
	return view, err
}

// ClearCart deletes every line and keeps the cart row. A user without a
// cart has nothing to clear.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return s.inTx(ctx, func(store CartStore) error {
		cart, err := store.LockCart(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("lock cart: %w", err)
		}
		if _, err := store.ClearCartItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		if _, err := store.TouchCart(ctx, cart.ID); err != nil {
			return fmt.Errorf("touch cart: %w", err)
		}
		return nil
	})
}

// Checkout turns the visible cart lines into an order for the caller and
// empties the cart, all in one transaction. The cart row lock makes a
// concurrent second checkout wait and then find the cart empty.
func (s *CartService) Checkout(ctx context.Context, notes string, actor Actor) (*CreateOrderResult, error) {
	var result *CreateOrderResult
	err := s.inTx(ctx, func(store CartStore) error {
		cart, err := store.EnsureCart(ctx, actor.UserID)
		if err != nil {
			return fmt.Errorf("ensure cart: %w", err)
		}

		lines, err := store.ListCartLines(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("list cart lines: %w", err)
		}

		req := CreateOrderRequest{UserID: actor.UserID, Notes: notes, Actor: actor}
		for _, l := range lines {
			if l.DishDeleted {
				continue
			}
			req.Items = append(req.Items, CreateOrderItemRequest{
				DishID:   l.DishID,
				Quantity: l.Quantity,
				Notes:    l.Notes.String,
			})
		}
		if len(req.Items) == 0 {
			return ErrCartEmpty
		}

		result, err = s.orders.buildOrder(ctx, store, req)
		if err != nil {
			return err
		}

		if _, err := store.ClearCartItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		if _, err := store.TouchCart(ctx, cart.ID); err != nil {
			return fmt.Errorf("touch cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.orders.recordCreated(ctx, result, actor, "cart")
	return result, nil
}

func lockCart(ctx context.Context, store CartStore, userID uuid.UUID) (database.Cart, error) {
	cart, err := store.LockCart(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Cart{}, ErrCartNotFound
		}
		return database.Cart{}, fmt.Errorf("lock cart: %w", err)
	}
	return cart, nil
}

func touchAndLoad(ctx context.Context, store CartStore, cartID uuid.UUID) (*CartView, error) {
	cart, err := store.TouchCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("touch cart: %w", err)
	}
	return loadView(ctx, store, cart)
}

func loadView(ctx context.Context, store CartStore, cart database.Cart) (*CartView, error) {
	lines, err := store.ListCartLines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return BuildCartView(cart, lines), nil
}

// BuildCartView hides lines whose dish was soft-deleted and totals the rest.
func BuildCartView(cart database.Cart, lines []database.CartLine) *CartView {
	view := &CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Version:   cart.Version,
		Items:     make([]CartLineView, 0, len(lines)),
		Total:     decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, l := range lines {
		if l.DishDeleted {
			continue
		}
		price := numericToDecimal(l.Price)
		subtotal := price.Mul(decimal.NewFromInt32(l.Quantity))
		view.Items = append(view.Items, CartLineView{
			ID:       l.ID,
			DishID:   l.DishID,
			DishName: l.DishName,
			Price:    price,
			Quantity: l.Quantity,
			Notes:    l.Notes,
			Subtotal: subtotal,
		})
		view.Total = view.Total.Add(subtotal)
		view.TotalItems += l.Quantity
	}
	return view
}

func clampQuantity(q int32) int32 {
	if q > MaxItemQuantity {
		return MaxItemQuantity
	}
	return q
}
