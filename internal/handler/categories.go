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

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategories(ctx context.Context, arg database.ListParams) ([]database.Category, int64, error)
	GetCategory(ctx context.Context, id uuid.UUID) (database.Category, error)
	CategoryNameExists(ctx context.Context, arg database.NameExistsParams) (bool, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
}

// CategoryDeleter is satisfied by *service.Guard.
type CategoryDeleter interface {
	DeleteCategory(ctx context.Context, id uuid.UUID, actor service.Actor) error
}

// CategoryHandler handles category CRUD endpoints.
type CategoryHandler struct {
	store   CategoryStore
	deleter CategoryDeleter
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(store CategoryStore, deleter CategoryDeleter) *CategoryHandler {
	return &CategoryHandler{store: store, deleter: deleter}
}

// RegisterReadRoutes registers the catalog read endpoints.
func (h *CategoryHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterWriteRoutes registers the endpoints guarded by catalog:write.
func (h *CategoryHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type categoryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   *string    `json:"createdBy"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	UpdatedBy   *string    `json:"updatedBy"`
}

func toCategoryResponse(c database.Category) categoryResponse {
	resp := categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: textPtr(c.Description),
		CreatedAt:   c.CreatedAt,
		CreatedBy:   textPtr(c.CreatedBy),
		UpdatedBy:   textPtr(c.UpdatedBy),
	}
	if c.UpdatedAt.Valid {
		resp.UpdatedAt = &c.UpdatedAt.Time
	}
	return resp
}

// --- Handlers ---

// List returns a page of active categories. Sort keys: name, createdat.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageQuery(r)

	categories, total, err := h.store.ListCategories(r.Context(), page.listParams())
	if err != nil {
		writeInternal(w, "list categories", err)
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(categories, toCategoryResponse), total, page))
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	catID, ok := urlID(w, r, "id", "category")
	if !ok {
		return
	}

	category, err := h.store.GetCategory(r.Context(), catID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeInternal(w, "get category", err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
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

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		Name:        req.Name,
		Description: optionalText(req.Description),
		CreatedBy:   stamp(r),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "category name already exists")
			return
		}
		writeInternal(w, "create category", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	catID, ok := urlID(w, r, "id", "category")
	if !ok {
		return
	}

	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !h.nameAvailable(w, r, req.Name, catID) {
		return
	}

	category, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:          catID,
		Name:        req.Name,
		Description: optionalText(req.Description),
		UpdatedBy:   stamp(r),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "category name already exists")
			return
		}
		writeInternal(w, "update category", err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete soft-deletes a category that no active dish uses.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	catID, ok := urlID(w, r, "id", "category")
	if !ok {
		return
	}

	if err := h.deleter.DeleteCategory(r.Context(), catID, actorFrom(r)); err != nil {
		writeServiceError(w, "delete category", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoryHandler) nameAvailable(w http.ResponseWriter, r *http.Request, name string, exclude uuid.UUID) bool {
	exists, err := h.store.CategoryNameExists(r.Context(), database.NameExistsParams{Name: name, ExcludeID: exclude})
	if err != nil {
		writeInternal(w, "check category name", err)
		return false
	}
	if exists {
		writeError(w, http.StatusBadRequest, "category name already exists")
		return false
	}
	return true
}
