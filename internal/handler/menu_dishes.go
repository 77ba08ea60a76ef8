package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablewise/restaurant-api/internal/database"
)

// MenuDishStore defines the database methods needed by menu dish handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuDishStore interface {
	ListMenuDishes(ctx context.Context, arg database.ListMenuDishesParams) ([]database.MenuDish, int64, error)
	GetMenuDish(ctx context.Context, id uuid.UUID) (database.MenuDish, error)
	MenuDishExists(ctx context.Context, arg database.MenuDishExistsParams) (bool, error)
	GetMenu(ctx context.Context, id uuid.UUID) (database.Menu, error)
	GetDish(ctx context.Context, id uuid.UUID) (database.Dish, error)
	CreateMenuDish(ctx context.Context, arg database.CreateMenuDishParams) (database.MenuDish, error)
	UpdateMenuDish(ctx context.Context, arg database.UpdateMenuDishParams) (database.MenuDish, error)
	SoftDeleteMenuDish(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
}

// MenuDishHandler places dishes on menus.
type MenuDishHandler struct {
	store MenuDishStore
}

func NewMenuDishHandler(store MenuDishStore) *MenuDishHandler {
	return &MenuDishHandler{store: store}
}

func (h *MenuDishHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

func (h *MenuDishHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type menuDishRequest struct {
	MenuID string `json:"menuId"`
	DishID string `json:"dishId"`
}

type menuDishResponse struct {
	ID        uuid.UUID  `json:"id"`
	MenuID    uuid.UUID  `json:"menuId"`
	MenuName  string     `json:"menuName"`
	DishID    uuid.UUID  `json:"dishId"`
	DishName  string     `json:"dishName"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

func toMenuDishResponse(md database.MenuDish) menuDishResponse {
	resp := menuDishResponse{
		ID:        md.ID,
		MenuID:    md.MenuID,
		MenuName:  md.MenuName,
		DishID:    md.DishID,
		DishName:  md.DishName,
		CreatedAt: md.CreatedAt,
	}
	if md.UpdatedAt.Valid {
		resp.UpdatedAt = &md.UpdatedAt.Time
	}
	return resp
}

// List filters on menuId and dishId; sort keys menuname, dishname.
func (h *MenuDishHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageQuery(r)
	params := database.ListMenuDishesParams{ListParams: page.listParams()}

	var ok bool
	if params.MenuID, ok = queryUUID(w, r, "menuId"); !ok {
		return
	}
	if params.DishID, ok = queryUUID(w, r, "dishId"); !ok {
		return
	}

	links, total, err := h.store.ListMenuDishes(r.Context(), params)
	if err != nil {
		writeInternal(w, "list menu dishes", err)
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(links, toMenuDishResponse), total, page))
}

func (h *MenuDishHandler) Get(w http.ResponseWriter, r *http.Request) {
	linkID, ok := urlID(w, r, "id", "menu dish")
	if !ok {
		return
	}

	link, err := h.store.GetMenuDish(r.Context(), linkID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu dish not found")
			return
		}
		writeInternal(w, "get menu dish", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuDishResponse(link))
}

func (h *MenuDishHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuDishRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	menuID, dishID, ok := h.resolvePair(w, r, req, uuid.Nil)
	if !ok {
		return
	}

	link, err := h.store.CreateMenuDish(r.Context(), database.CreateMenuDishParams{
		MenuID:    menuID,
		DishID:    dishID,
		CreatedBy: stamp(r),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "dish is already on this menu")
			return
		}
		writeInternal(w, "create menu dish", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuDishResponse(link))
}

func (h *MenuDishHandler) Update(w http.ResponseWriter, r *http.Request) {
	linkID, ok := urlID(w, r, "id", "menu dish")
	if !ok {
		return
	}

	var req menuDishRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	menuID, dishID, ok := h.resolvePair(w, r, req, linkID)
	if !ok {
		return
	}

	link, err := h.store.UpdateMenuDish(r.Context(), database.UpdateMenuDishParams{
		ID:        linkID,
		MenuID:    menuID,
		DishID:    dishID,
		UpdatedBy: stamp(r),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu dish not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "dish is already on this menu")
			return
		}
		writeInternal(w, "update menu dish", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuDishResponse(link))
}

func (h *MenuDishHandler) Delete(w http.ResponseWriter, r *http.Request) {
	linkID, ok := urlID(w, r, "id", "menu dish")
	if !ok {
		return
	}

	_, err := h.store.SoftDeleteMenuDish(r.Context(), database.SoftDeleteParams{ID: linkID, DeletedBy: stamp(r)})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu dish not found")
			return
		}
		writeInternal(w, "delete menu dish", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MenuDishHandler) resolvePair(w http.ResponseWriter, r *http.Request, req menuDishRequest, exclude uuid.UUID) (uuid.UUID, uuid.UUID, bool) {
	menuID, err := uuid.Parse(req.MenuID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menuId")
		return uuid.Nil, uuid.Nil, false
	}
	dishID, err := uuid.Parse(req.DishID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dishId")
		return uuid.Nil, uuid.Nil, false
	}

	if _, err := h.store.GetMenu(r.Context(), menuID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "menu not found")
			return uuid.Nil, uuid.Nil, false
		}
		writeInternal(w, "get menu", err)
		return uuid.Nil, uuid.Nil, false
	}
	if _, err := h.store.GetDish(r.Context(), dishID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "dish not found")
			return uuid.Nil, uuid.Nil, false
		}
		writeInternal(w, "get dish", err)
		return uuid.Nil, uuid.Nil, false
	}

	exists, err := h.store.MenuDishExists(r.Context(), database.MenuDishExistsParams{
		MenuID:    menuID,
		DishID:    dishID,
		ExcludeID: exclude,
	})
	if err != nil {
		writeInternal(w, "check menu dish", err)
		return uuid.Nil, uuid.Nil, false
	}
	if exists {
		writeError(w, http.StatusBadRequest, "dish is already on this menu")
		return uuid.Nil, uuid.Nil, false
	}
	return menuID, dishID, true
}
