package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablewise/restaurant-api/internal/database"
)

// DishIngredientStore defines the database methods needed by dish ingredient
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type DishIngredientStore interface {
	ListDishIngredients(ctx context.Context, arg database.ListDishIngredientsParams) ([]database.DishIngredient, int64, error)
	GetDishIngredient(ctx context.Context, id uuid.UUID) (database.DishIngredient, error)
	DishIngredientExists(ctx context.Context, arg database.DishIngredientExistsParams) (bool, error)
	GetDish(ctx context.Context, id uuid.UUID) (database.Dish, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	CreateDishIngredient(ctx context.Context, arg database.CreateDishIngredientParams) (database.DishIngredient, error)
	UpdateDishIngredient(ctx context.Context, arg database.UpdateDishIngredientParams) (database.DishIngredient, error)
	SoftDeleteDishIngredient(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
}

// DishIngredientHandler links ingredients to dishes.
type DishIngredientHandler struct {
	store DishIngredientStore
}

// NewDishIngredientHandler creates a new DishIngredientHandler.
func NewDishIngredientHandler(store DishIngredientStore) *DishIngredientHandler {
	return &DishIngredientHandler{store: store}
}

func (h *DishIngredientHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

func (h *DishIngredientHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type dishIngredientRequest struct {
	DishID       string `json:"dishId"`
	IngredientID string `json:"ingredientId"`
	Quantity     string `json:"quantity"`
	Notes        string `json:"notes"`
}

type dishIngredientResponse struct {
	ID             uuid.UUID  `json:"id"`
	DishID         uuid.UUID  `json:"dishId"`
	DishName       string     `json:"dishName"`
	IngredientID   uuid.UUID  `json:"ingredientId"`
	IngredientName string     `json:"ingredientName"`
	Quantity       *string    `json:"quantity"`
	Notes          *string    `json:"notes"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt"`
}

func toDishIngredientResponse(di database.DishIngredient) dishIngredientResponse {
	resp := dishIngredientResponse{
		ID:             di.ID,
		DishID:         di.DishID,
		DishName:       di.DishName,
		IngredientID:   di.IngredientID,
		IngredientName: di.IngredientName,
		Quantity:       textPtr(di.Quantity),
		Notes:          textPtr(di.Notes),
		CreatedAt:      di.CreatedAt,
	}
	if di.UpdatedAt.Valid {
		resp.UpdatedAt = &di.UpdatedAt.Time
	}
	return resp
}

// List filters on dishId and ingredientId; sort keys dishname, ingredientname, quantity.
func (h *DishIngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageQuery(r)
	params := database.ListDishIngredientsParams{ListParams: page.listParams()}

	var ok bool
	if params.DishID, ok = queryUUID(w, r, "dishId"); !ok {
		return
	}
	if params.IngredientID, ok = queryUUID(w, r, "ingredientId"); !ok {
		return
	}

	links, total, err := h.store.ListDishIngredients(r.Context(), params)
	if err != nil {
		writeInternal(w, "list dish ingredients", err)
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(links, toDishIngredientResponse), total, page))
}

func (h *DishIngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	linkID, ok := urlID(w, r, "id", "dish ingredient")
	if !ok {
		return
	}

	link, err := h.store.GetDishIngredient(r.Context(), linkID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish ingredient not found")
			return
		}
		writeInternal(w, "get dish ingredient", err)
		return
	}

	writeJSON(w, http.StatusOK, toDishIngredientResponse(link))
}

func (h *DishIngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dishIngredientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dishID, ingredientID, ok := h.resolvePair(w, r, req, uuid.Nil)
	if !ok {
		return
	}

	link, err := h.store.CreateDishIngredient(r.Context(), database.CreateDishIngredientParams{
		DishID:       dishID,
		IngredientID: ingredientID,
		Quantity:     optionalText(req.Quantity),
		Notes:        optionalText(req.Notes),
		CreatedBy:    stamp(r),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if h.checkEnds(w, r, dishID, ingredientID) {
				writeError(w, http.StatusBadRequest, "dish or ingredient not found")
			}
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "ingredient is already linked to this dish")
			return
		}
		writeInternal(w, "create dish ingredient", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDishIngredientResponse(link))
}

func (h *DishIngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	linkID, ok := urlID(w, r, "id", "dish ingredient")
	if !ok {
		return
	}

	var req dishIngredientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dishID, ingredientID, ok := h.resolvePair(w, r, req, linkID)
	if !ok {
		return
	}

	link, err := h.store.UpdateDishIngredient(r.Context(), database.UpdateDishIngredientParams{
		ID:           linkID,
		DishID:       dishID,
		IngredientID: ingredientID,
		Quantity:     optionalText(req.Quantity),
		Notes:        optionalText(req.Notes),
		UpdatedBy:    stamp(r),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if h.checkEnds(w, r, dishID, ingredientID) {
				writeError(w, http.StatusNotFound, "dish ingredient not found")
			}
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "ingredient is already linked to this dish")
			return
		}
		writeInternal(w, "update dish ingredient", err)
		return
	}

	writeJSON(w, http.StatusOK, toDishIngredientResponse(link))
}

func (h *DishIngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	linkID, ok := urlID(w, r, "id", "dish ingredient")
	if !ok {
		return
	}

	_, err := h.store.SoftDeleteDishIngredient(r.Context(), database.SoftDeleteParams{ID: linkID, DeletedBy: stamp(r)})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish ingredient not found")
			return
		}
		writeInternal(w, "delete dish ingredient", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolvePair checks both ends of the link are active and the pair is not
// already linked by another row.
func (h *DishIngredientHandler) resolvePair(w http.ResponseWriter, r *http.Request, req dishIngredientRequest, exclude uuid.UUID) (uuid.UUID, uuid.UUID, bool) {
	dishID, err := uuid.Parse(req.DishID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dishId")
		return uuid.Nil, uuid.Nil, false
	}
	ingredientID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ingredientId")
		return uuid.Nil, uuid.Nil, false
	}

	if !h.checkEnds(w, r, dishID, ingredientID) {
		return uuid.Nil, uuid.Nil, false
	}

	exists, err := h.store.DishIngredientExists(r.Context(), database.DishIngredientExistsParams{
		DishID:       dishID,
		IngredientID: ingredientID,
		ExcludeID:    exclude,
	})
	if err != nil {
		writeInternal(w, "check dish ingredient", err)
		return uuid.Nil, uuid.Nil, false
	}
	if exists {
		writeError(w, http.StatusBadRequest, "ingredient is already linked to this dish")
		return uuid.Nil, uuid.Nil, false
	}
	return dishID, ingredientID, true
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (pgtype.UUID, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return pgtype.UUID{}, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: id, Valid: true}, true
}

// checkEnds reports whether the dish and the ingredient are both active. When
// one is not, it writes the error response itself. The write queries repeat
// this check under a share lock, so a miss there is re-diagnosed here.
func (h *DishIngredientHandler) checkEnds(w http.ResponseWriter, r *http.Request, dishID, ingredientID uuid.UUID) bool {
	if _, err := h.store.GetDish(r.Context(), dishID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "dish not found")
			return false
		}
		writeInternal(w, "get dish", err)
		return false
	}
	if _, err := h.store.GetIngredient(r.Context(), ingredientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "ingredient not found")
			return false
		}
		writeInternal(w, "get ingredient", err)
		return false
	}
	return true
}
