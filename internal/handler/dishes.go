package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/service"
)

// DishStore defines the database methods needed by dish handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DishStore interface {
	ListDishes(ctx context.Context, arg database.ListDishesParams) ([]database.Dish, int64, error)
	GetDish(ctx context.Context, id uuid.UUID) (database.Dish, error)
	DishNameExists(ctx context.Context, arg database.NameExistsParams) (bool, error)
	GetCategory(ctx context.Context, id uuid.UUID) (database.Category, error)
	CreateDish(ctx context.Context, arg database.CreateDishParams) (database.Dish, error)
	UpdateDish(ctx context.Context, arg database.UpdateDishParams) (database.Dish, error)
}

// DishDeleter is satisfied by *service.Guard.
type DishDeleter interface {
	DeleteDish(ctx context.Context, id uuid.UUID, actor service.Actor) error
}

// DishHandler handles dish CRUD endpoints.
type DishHandler struct {
	store   DishStore
	deleter DishDeleter
}

// NewDishHandler creates a new DishHandler.
func NewDishHandler(store DishStore, deleter DishDeleter) *DishHandler {
	return &DishHandler{store: store, deleter: deleter}
}

// RegisterReadRoutes registers the catalog read endpoints.
func (h *DishHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterWriteRoutes registers the endpoints guarded by catalog:write.
func (h *DishHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

// dishRequest accepts price as a JSON number or a numeric string.
type dishRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	CategoryID  string      `json:"categoryId"`
}

type dishResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  *string    `json:"description"`
	Price        string     `json:"price"`
	CategoryID   uuid.UUID  `json:"categoryId"`
	CategoryName string     `json:"categoryName"`
	CreatedAt    time.Time  `json:"createdAt"`
	CreatedBy    *string    `json:"createdBy"`
	UpdatedAt    *time.Time `json:"updatedAt"`
	UpdatedBy    *string    `json:"updatedBy"`
}

func toDishResponse(d database.Dish) dishResponse {
	resp := dishResponse{
		ID:           d.ID,
		Name:         d.Name,
		Description:  textPtr(d.Description),
		Price:        numericToString(d.Price),
		CategoryID:   d.CategoryID,
		CategoryName: d.CategoryName,
		CreatedAt:    d.CreatedAt,
		CreatedBy:    textPtr(d.CreatedBy),
		UpdatedBy:    textPtr(d.UpdatedBy),
	}
	if d.UpdatedAt.Valid {
		resp.UpdatedAt = &d.UpdatedAt.Time
	}
	return resp
}

// --- Handlers ---

// List returns a page of active dishes.
// Filters: categoryId, minPrice, maxPrice, search. Sort keys: name, price, category.
func (h *DishHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageQuery(r)
	params := database.ListDishesParams{ListParams: page.listParams()}
	q := r.URL.Query()

	if v := q.Get("categoryId"); v != "" {
		catID, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid categoryId")
			return
		}
		params.CategoryID = pgtype.UUID{Bytes: catID, Valid: true}
	}
	if v := q.Get("minPrice"); v != "" {
		n, err := parseMoney(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid minPrice: "+err.Error())
			return
		}
		params.MinPrice = n
	}
	if v := q.Get("maxPrice"); v != "" {
		n, err := parseMoney(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid maxPrice: "+err.Error())
			return
		}
		params.MaxPrice = n
	}

	dishes, total, err := h.store.ListDishes(r.Context(), params)
	if err != nil {
		writeInternal(w, "list dishes", err)
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(dishes, toDishResponse), total, page))
}

func (h *DishHandler) Get(w http.ResponseWriter, r *http.Request) {
	dishID, ok := urlID(w, r, "id", "dish")
	if !ok {
		return
	}

	dish, err := h.store.GetDish(r.Context(), dishID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish not found")
			return
		}
		writeInternal(w, "get dish", err)
		return
	}

	writeJSON(w, http.StatusOK, toDishResponse(dish))
}

func (h *DishHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dishRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := h.validate(w, r, req, uuid.Nil)
	if !ok {
		return
	}

	dish, err := h.store.CreateDish(r.Context(), database.CreateDishParams{
		Name:        in.name,
		Description: optionalText(req.Description),
		Price:       in.price,
		CategoryID:  in.categoryID,
		CreatedBy:   stamp(r),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "dish name already exists")
			return
		}
		if errors.Is(err, pgx.ErrNoRows) || isForeignKeyViolation(err) {
			writeError(w, http.StatusBadRequest, "category not found")
			return
		}
		writeInternal(w, "create dish", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDishResponse(dish))
}

func (h *DishHandler) Update(w http.ResponseWriter, r *http.Request) {
	dishID, ok := urlID(w, r, "id", "dish")
	if !ok {
		return
	}

	var req dishRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := h.validate(w, r, req, dishID)
	if !ok {
		return
	}

	dish, err := h.store.UpdateDish(r.Context(), database.UpdateDishParams{
		ID:          dishID,
		Name:        in.name,
		Description: optionalText(req.Description),
		Price:       in.price,
		CategoryID:  in.categoryID,
		UpdatedBy:   stamp(r),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.writeUpdateMiss(w, r, dishID)
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "dish name already exists")
			return
		}
		writeInternal(w, "update dish", err)
		return
	}

	writeJSON(w, http.StatusOK, toDishResponse(dish))
}

// writeUpdateMiss tells apart the two ways UpdateDish finds no row: the dish
// is gone, or its category was deleted after validate ran.
func (h *DishHandler) writeUpdateMiss(w http.ResponseWriter, r *http.Request, dishID uuid.UUID) {
	if _, err := h.store.GetDish(r.Context(), dishID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish not found")
			return
		}
		writeInternal(w, "get dish", err)
		return
	}
	writeError(w, http.StatusBadRequest, "category not found")
}

// Delete refuses while a Pending or Processing order contains the dish. On
// success the dish's ingredient and menu links are removed with it.
func (h *DishHandler) Delete(w http.ResponseWriter, r *http.Request) {
	dishID, ok := urlID(w, r, "id", "dish")
	if !ok {
		return
	}

	if err := h.deleter.DeleteDish(r.Context(), dishID, actorFrom(r)); err != nil {
		writeServiceError(w, "delete dish", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

type dishInput struct {
	name       string
	price      pgtype.Numeric
	categoryID uuid.UUID
}

// validate checks the body, that the category is active and that the name is
// free. It writes the error response itself.
func (h *DishHandler) validate(w http.ResponseWriter, r *http.Request, req dishRequest, exclude uuid.UUID) (dishInput, bool) {
	in := dishInput{name: strings.TrimSpace(req.Name)}
	if in.name == "" || req.Price == "" || req.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "name, price, and categoryId are required")
		return in, false
	}

	price, err := parseMoney(req.Price.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price: "+err.Error())
		return in, false
	}
	if d, _ := decimal.NewFromString(req.Price.String()); !d.IsPositive() {
		writeError(w, http.StatusBadRequest, "price must be greater than 0")
		return in, false
	}
	in.price = price

	in.categoryID, err = uuid.Parse(req.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid categoryId")
		return in, false
	}
	if _, err := h.store.GetCategory(r.Context(), in.categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "category not found")
			return in, false
		}
		writeInternal(w, "get category", err)
		return in, false
	}

	exists, err := h.store.DishNameExists(r.Context(), database.NameExistsParams{Name: in.name, ExcludeID: exclude})
	if err != nil {
		writeInternal(w, "check dish name", err)
		return in, false
	}
	if exists {
		writeError(w, http.StatusBadRequest, "dish name already exists")
		return in, false
	}
	return in, true
}
