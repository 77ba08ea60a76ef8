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

// RoleStore defines the database methods needed by role handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type RoleStore interface {
	ListRoles(ctx context.Context, arg database.ListParams) ([]database.Role, int64, error)
	GetRole(ctx context.Context, id uuid.UUID) (database.Role, error)
	RoleNameExists(ctx context.Context, arg database.NameExistsParams) (bool, error)
	CreateRole(ctx context.Context, arg database.CreateRoleParams) (database.Role, error)
	UpdateRole(ctx context.Context, arg database.UpdateRoleParams) (database.Role, error)
}

// RoleDeleter is satisfied by *service.Guard.
type RoleDeleter interface {
	DeleteRole(ctx context.Context, id uuid.UUID, actor service.Actor) error
}

// RoleHandler handles role CRUD endpoints.
type RoleHandler struct {
	store   RoleStore
	deleter RoleDeleter
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(store RoleStore, deleter RoleDeleter) *RoleHandler {
	return &RoleHandler{store: store, deleter: deleter}
}

// RegisterRoutes registers role CRUD endpoints on the given Chi router.
func (h *RoleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type roleResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toRoleResponse(role database.Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: textPtr(role.Description),
		CreatedAt:   role.CreatedAt,
	}
}

// List returns a page of roles sorted by name.
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageQuery(r)

	roles, total, err := h.store.ListRoles(r.Context(), page.listParams())
	if err != nil {
		writeInternal(w, "list roles", err)
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(roles, toRoleResponse), total, page))
}

func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	roleID, ok := urlID(w, r, "id", "role")
	if !ok {
		return
	}

	role, err := h.store.GetRole(r.Context(), roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "role not found")
			return
		}
		writeInternal(w, "get role", err)
		return
	}

	writeJSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
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

	role, err := h.store.CreateRole(r.Context(), database.CreateRoleParams{
		Name:        req.Name,
		Description: optionalText(req.Description),
		CreatedBy:   stamp(r),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "role name already exists")
			return
		}
		writeInternal(w, "create role", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	roleID, ok := urlID(w, r, "id", "role")
	if !ok {
		return
	}

	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !h.nameAvailable(w, r, req.Name, roleID) {
		return
	}

	role, err := h.store.UpdateRole(r.Context(), database.UpdateRoleParams{
		ID:          roleID,
		Name:        req.Name,
		Description: optionalText(req.Description),
		UpdatedBy:   stamp(r),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "role not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "role name already exists")
			return
		}
		writeInternal(w, "update role", err)
		return
	}

	writeJSON(w, http.StatusOK, toRoleResponse(role))
}

// Delete refuses built-in roles and roles still assigned to active users.
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	roleID, ok := urlID(w, r, "id", "role")
	if !ok {
		return
	}

	if err := h.deleter.DeleteRole(r.Context(), roleID, actorFrom(r)); err != nil {
		writeServiceError(w, "delete role", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RoleHandler) nameAvailable(w http.ResponseWriter, r *http.Request, name string, exclude uuid.UUID) bool {
	exists, err := h.store.RoleNameExists(r.Context(), database.NameExistsParams{Name: name, ExcludeID: exclude})
	if err != nil {
		writeInternal(w, "check role name", err)
		return false
	}
	if exists {
		writeError(w, http.StatusBadRequest, "role name already exists")
		return false
	}
	return true
}
