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

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenus(ctx context.Context, arg database.ListParams) ([]database.Menu, int64, error)
	GetMenu(ctx context.Context, id uuid.UUID) (database.Menu, error)
	MenuNameExists(ctx context.Context, arg database.NameExistsParams) (bool, error)
	CreateMenu(ctx context.Context, arg database.CreateMenuParams) (database.Menu, error)
	UpdateMenu(ctx context.Context, arg database.UpdateMenuParams) (database.Menu, error)
}

// MenuDeleter is satisfied by *service.Guard.
type MenuDeleter interface {
	DeleteMenu(ctx context.Context, id uuid.UUID, actor service.Actor) error
}

// MenuHandler handles menu CRUD endpoints.
type MenuHandler struct {
	store   MenuStore
	deleter MenuDeleter
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, deleter MenuDeleter) *MenuHandler {
	return &MenuHandler{store: store, deleter: deleter}
}

func (h *MenuHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

func (h *MenuHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type menuRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type menuResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   *string    `json:"createdBy"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	UpdatedBy   *string    `json:"updatedBy"`
}

func toMenuResponse(m database.Menu) menuResponse {
	resp := menuResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: textPtr(m.Description),
		CreatedAt:   m.CreatedAt,
		CreatedBy:   textPtr(m.CreatedBy),
		UpdatedBy:   textPtr(m.UpdatedBy),
	}
	if m.UpdatedAt.Valid {
		resp.UpdatedAt = &m.UpdatedAt.Time
	}
	return resp
}

// List supports search on name and sort keys name, createdat.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageQuery(r)

	menus, total, err := h.store.ListMenus(r.Context(), page.listParams())
	if err != nil {
		writeInternal(w, "list menus", err)
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(menus, toMenuResponse), total, page))
}

func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}

	menu, err := h.store.GetMenu(r.Context(), menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu not found")
			return
		}
		writeInternal(w, "get menu", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
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

	menu, err := h.store.CreateMenu(r.Context(), database.CreateMenuParams{
		Name:        req.Name,
		Description: optionalText(req.Description),
		CreatedBy:   stamp(r),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "menu name already exists")
			return
		}
		writeInternal(w, "create menu", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuResponse(menu))
}

func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}

	var req menuRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !h.nameAvailable(w, r, req.Name, menuID) {
		return
	}

	menu, err := h.store.UpdateMenu(r.Context(), database.UpdateMenuParams{
		ID:          menuID,
		Name:        req.Name,
		Description: optionalText(req.Description),
		UpdatedBy:   stamp(r),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "menu name already exists")
			return
		}
		writeInternal(w, "update menu", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

// Delete soft-deletes a menu and its dish links. Menus are never blocked.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}

	if err := h.deleter.DeleteMenu(r.Context(), menuID, actorFrom(r)); err != nil {
		writeServiceError(w, "delete menu", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MenuHandler) nameAvailable(w http.ResponseWriter, r *http.Request, name string, exclude uuid.UUID) bool {
	exists, err := h.store.MenuNameExists(r.Context(), database.NameExistsParams{Name: name, ExcludeID: exclude})
	if err != nil {
		writeInternal(w, "check menu name", err)
		return false
	}
	if exists {
		writeError(w, http.StatusBadRequest, "menu name already exists")
		return false
	}
	return true
}
