package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/service"
)

// IngredientStore defines the database methods needed by ingredient handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type IngredientStore interface {
	ListIngredients(ctx context.Context, arg database.ListParams) ([]database.Ingredient, int64, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	IngredientNameExists(ctx context.Context, arg database.NameExistsParams) (bool, error)
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
	UpdateIngredient(ctx context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error)
}

// IngredientDeleter is satisfied by *service.Guard.
type IngredientDeleter interface {
	DeleteIngredient(ctx context.Context, id uuid.UUID, actor service.Actor) error
}

// IngredientHandler handles ingredient CRUD endpoints.
type IngredientHandler struct {
	store   IngredientStore
	deleter IngredientDeleter
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(store IngredientStore, deleter IngredientDeleter) *IngredientHandler {
	return &IngredientHandler{store: store, deleter: deleter}
}

// RegisterReadRoutes registers ingredient reads. Unlike the rest of the
// catalog these always require a token.
func (h *IngredientHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

func (h *IngredientHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type ingredientRequest struct {
	Name string `json:"name"`
}

type ingredientResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy *string    `json:"createdBy"`
	UpdatedAt *time.Time `json:"updatedAt"`
	UpdatedBy *string    `json:"updatedBy"`
}

func toIngredientResponse(in database.Ingredient) ingredientResponse {
	resp := ingredientResponse{
		ID:        in.ID,
		Name:      in.Name,
		CreatedAt: in.CreatedAt,
		CreatedBy: textPtr(in.CreatedBy),
		UpdatedBy: textPtr(in.UpdatedBy),
	}
	if in.UpdatedAt.Valid {
		resp.UpdatedAt = &in.UpdatedAt.Time
	}
	return resp
}

func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageQuery(r)

	ingredients, total, err := h.store.ListIngredients(r.Context(), page.listParams())
	if err != nil {
		writeInternal(w, "list ingredients", err)
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(ingredients, toIngredientResponse), total, page))
}

func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	ingredientID, ok := urlID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	ingredient, err := h.store.GetIngredient(r.Context(), ingredientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		writeInternal(w, "get ingredient", err)
		return
	}

	writeJSON(w, http.StatusOK, toIngredientResponse(ingredient))
}

func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !h.nameAvailable(w, r, req.Name, uuid.Nil) {
		return
	}

	ingredient, err := h.store.CreateIngredient(r.Context(), database.CreateIngredientParams{
		Name:      req.Name,
		CreatedBy: stamp(r),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "ingredient name already exists")
			return
		}
		writeInternal(w, "create ingredient", err)
		return
	}

	writeJSON(w, http.StatusCreated, toIngredientResponse(ingredient))
}

func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	ingredientID, ok := urlID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	var req ingredientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !h.nameAvailable(w, r, req.Name, ingredientID) {
		return
	}

	ingredient, err := h.store.UpdateIngredient(r.Context(), database.UpdateIngredientParams{
		ID:        ingredientID,
		Name:      req.Name,
		UpdatedBy: stamp(r),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ingredient not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "ingredient name already exists")
			return
		}
		writeInternal(w, "update ingredient", err)
		return
	}

	writeJSON(w, http.StatusOK, toIngredientResponse(ingredient))
}

// Delete refuses while any active dish still lists the ingredient.
func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ingredientID, ok := urlID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	if err := h.deleter.DeleteIngredient(r.Context(), ingredientID, actorFrom(r)); err != nil {
		writeServiceError(w, "delete ingredient", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *IngredientHandler) nameAvailable(w http.ResponseWriter, r *http.Request, name string, exclude uuid.UUID) bool {
	exists, err := h.store.IngredientNameExists(r.Context(), database.NameExistsParams{Name: name, ExcludeID: exclude})
	if err != nil {
		writeInternal(w, "check ingredient name", err)
		return false
	}
	if exists {
		writeError(w, http.StatusBadRequest, "ingredient name already exists")
		return false
	}
	return true
}
