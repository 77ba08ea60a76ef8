package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablewise/restaurant-api/internal/audit"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/enum"
)

// maxBlockerSamples caps how many blocking names a refusal message lists.
const maxBlockerSamples = 5

// GuardStore defines the DB methods needed by deletion guards.
// Satisfied by *database.Queries (and its WithTx variant).
type GuardStore interface {
	LockCategory(ctx context.Context, id uuid.UUID) (database.Category, error)
	ListActiveDishNamesByCategory(ctx context.Context, categoryID uuid.UUID) ([]string, error)
	SoftDeleteCategory(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)

	LockDish(ctx context.Context, id uuid.UUID) (database.Dish, error)
	CountOpenOrdersWithDish(ctx context.Context, dishID uuid.UUID) (int64, error)
	SoftDeleteDish(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
	SoftDeleteDishLinks(ctx context.Context, arg database.SoftDeleteParams) (int64, error)

	LockIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	ListActiveDishNamesByIngredient(ctx context.Context, ingredientID uuid.UUID) ([]string, error)
	SoftDeleteIngredient(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)

	LockMenu(ctx context.Context, id uuid.UUID) (database.Menu, error)
	CountActiveMenuDishes(ctx context.Context, menuID uuid.UUID) (int64, error)
	SoftDeleteMenu(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
	SoftDeleteMenuLinks(ctx context.Context, arg database.SoftDeleteParams) (int64, error)

	LockRole(ctx context.Context, id uuid.UUID) (database.Role, error)
	CountActiveUsersByRole(ctx context.Context, roleID uuid.UUID) (int64, error)
	SoftDeleteRole(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
}

// NewGuardStore creates a GuardStore from a DBTX (pool or tx).
type NewGuardStore func(db database.DBTX) GuardStore

// Guard soft-deletes catalog entities and roles after checking nothing
// active still references them. Each delete locks the target row, runs its
// check and marks the row deleted inside one transaction.
type Guard struct {
	pool     TxBeginner
	newStore NewGuardStore
	audit    audit.Recorder
}

func NewGuard(pool TxBeginner, newStore NewGuardStore, rec audit.Recorder) *Guard {
	return &Guard{pool: pool, newStore: newStore, audit: rec}
}

func (g *Guard) inTx(ctx context.Context, fn func(store GuardStore) error) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(g.newStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (g *Guard) recordDeleted(ctx context.Context, entity string, id uuid.UUID, actor Actor, details map[string]any) {
	recordEvent(ctx, g.audit, audit.Event{
		Action:   "deleted",
		Entity:   entity,
		EntityID: id,
		Actor:    actor.Username,
		Details:  details,
	})
}

// DeleteCategory refuses while any active dish belongs to the category.
func (g *Guard) DeleteCategory(ctx context.Context, id uuid.UUID, actor Actor) error {
	err := g.inTx(ctx, func(store GuardStore) error {
		category, err := store.LockCategory(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("category not found")
			}
			return fmt.Errorf("lock category: %w", err)
		}

		dishes, err := store.ListActiveDishNamesByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("list category dishes: %w", err)
		}
		if len(dishes) > 0 {
			log.Printf("WARN: refused to delete category %s: %d active dishes", id, len(dishes))
			return badRequest("cannot delete category %q: %d active dish(es) still use it: %s",
				category.Name, len(dishes), sampleNames(dishes))
		}

		if _, err := store.SoftDeleteCategory(ctx, database.SoftDeleteParams{ID: id, DeletedBy: actor.stamp()}); err != nil {
			return fmt.Errorf("soft delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.recordDeleted(ctx, "category", id, actor, nil)
	return nil
}

// DeleteDish refuses while the dish sits in an active Pending or Processing
// order. On success its ingredient and menu links are soft-deleted too.
func (g *Guard) DeleteDish(ctx context.Context, id uuid.UUID, actor Actor) error {
	var links int64
	err := g.inTx(ctx, func(store GuardStore) error {
		dish, err := store.LockDish(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("dish not found")
			}
			return fmt.Errorf("lock dish: %w", err)
		}

		orders, err := store.CountOpenOrdersWithDish(ctx, id)
		if err != nil {
			return fmt.Errorf("count open orders: %w", err)
		}
		if orders > 0 {
			log.Printf("WARN: refused to delete dish %s: %d open orders", id, orders)
			return badRequest("cannot delete dish %q: it is part of %d active order(s) in %s or %s status",
				dish.Name, orders, enum.OrderStatusPending, enum.OrderStatusProcessing)
		}

		stamp := database.SoftDeleteParams{ID: id, DeletedBy: actor.stamp()}
		if _, err := store.SoftDeleteDish(ctx, stamp); err != nil {
			return fmt.Errorf("soft delete dish: %w", err)
		}
		links, err = store.SoftDeleteDishLinks(ctx, stamp)
		if err != nil {
			return fmt.Errorf("soft delete dish links: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.recordDeleted(ctx, "dish", id, actor, map[string]any{"linksRemoved": links})
	return nil
}

// DeleteIngredient refuses while any active dish lists the ingredient.
func (g *Guard) DeleteIngredient(ctx context.Context, id uuid.UUID, actor Actor) error {
	err := g.inTx(ctx, func(store GuardStore) error {
		ingredient, err := store.LockIngredient(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("ingredient not found")
			}
			return fmt.Errorf("lock ingredient: %w", err)
		}

		dishes, err := store.ListActiveDishNamesByIngredient(ctx, id)
		if err != nil {
			return fmt.Errorf("list ingredient dishes: %w", err)
		}
		if len(dishes) > 0 {
			log.Printf("WARN: refused to delete ingredient %s: %d active dishes", id, len(dishes))
			return badRequest("cannot delete ingredient %q: %d active dish(es) still use it: %s",
				ingredient.Name, len(dishes), sampleNames(dishes))
		}

		if _, err := store.SoftDeleteIngredient(ctx, database.SoftDeleteParams{ID: id, DeletedBy: actor.stamp()}); err != nil {
			return fmt.Errorf("soft delete ingredient: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.recordDeleted(ctx, "ingredient", id, actor, nil)
	return nil
}

// DeleteMenu is never blocked. The number of linked active dishes is logged
// and recorded with the audit event, and the links are soft-deleted.
func (g *Guard) DeleteMenu(ctx context.Context, id uuid.UUID, actor Actor) error {
	var linked int64
	err := g.inTx(ctx, func(store GuardStore) error {
		if _, err := store.LockMenu(ctx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("menu not found")
			}
			return fmt.Errorf("lock menu: %w", err)
		}

		var err error
		linked, err = store.CountActiveMenuDishes(ctx, id)
		if err != nil {
			return fmt.Errorf("count menu dishes: %w", err)
		}

		stamp := database.SoftDeleteParams{ID: id, DeletedBy: actor.stamp()}
		if _, err := store.SoftDeleteMenu(ctx, stamp); err != nil {
			return fmt.Errorf("soft delete menu: %w", err)
		}
		if _, err := store.SoftDeleteMenuLinks(ctx, stamp); err != nil {
			return fmt.Errorf("soft delete menu links: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("INFO: menu %s deleted by %s with %d linked active dishes", id, actor.Username, linked)
	g.recordDeleted(ctx, "menu", id, actor, map[string]any{"linkedDishes": linked})
	return nil
}

// DeleteRole refuses for built-in roles and for roles assigned to active users.
func (g *Guard) DeleteRole(ctx context.Context, id uuid.UUID, actor Actor) error {
	err := g.inTx(ctx, func(store GuardStore) error {
		role, err := store.LockRole(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("role not found")
			}
			return fmt.Errorf("lock role: %w", err)
		}

		switch role.Name {
		case enum.RoleAdmin, enum.RoleWaiter, enum.RoleUser:
			return badRequest("role %q is built in and cannot be deleted", role.Name)
		}

		users, err := store.CountActiveUsersByRole(ctx, id)
		if err != nil {
			return fmt.Errorf("count role users: %w", err)
		}
		if users > 0 {
			return badRequest("cannot delete role %q: %d active user(s) are assigned to it", role.Name, users)
		}

		if _, err := store.SoftDeleteRole(ctx, database.SoftDeleteParams{ID: id, DeletedBy: actor.stamp()}); err != nil {
			return fmt.Errorf("soft delete role: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.recordDeleted(ctx, "role", id, actor, nil)
	return nil
}

// sampleNames joins up to maxBlockerSamples names, noting how many were left out.
func sampleNames(names []string) string {
	if len(names) <= maxBlockerSamples {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(names[:maxBlockerSamples], ", "), len(names)-maxBlockerSamples)
}
