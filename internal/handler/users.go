package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/database"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsers(ctx context.Context, arg database.ListParams) ([]database.User, int64, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	UsernameExists(ctx context.Context, arg database.NameExistsParams) (bool, error)
	GetRole(ctx context.Context, id uuid.UUID) (database.Role, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	SoftDeleteUser(ctx context.Context, arg database.SoftDeleteParams) (uuid.UUID, error)
}

// UserHandler handles user CRUD endpoints.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers user CRUD endpoints on the given Chi router.
// Expected to be mounted at /users behind the users:manage capability.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request types ---

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"roleId"`
}

// updateUserRequest leaves the password unchanged when Password is empty.
type updateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"roleId"`
}

// --- Handlers ---

// List returns a page of active users. Sort keys: username, rolename, createdat.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageQuery(r)

	users, total, err := h.store.ListUsers(r.Context(), page.listParams())
	if err != nil {
		writeInternal(w, "list users", err)
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(users, toUserResponse), total, page))
}

// Get returns a single active user.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id", "user")
	if !ok {
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternal(w, "get user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Create adds a user with any role.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.RoleID == "" {
		writeError(w, http.StatusBadRequest, "username, password, and roleId are required")
		return
	}
	if err := auth.CheckPasswordRequirements(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	roleID, ok := h.resolveRole(w, r, req.RoleID)
	if !ok {
		return
	}
	if !h.usernameAvailable(w, r, req.Username, uuid.Nil) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternal(w, "create user: hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        optionalText(req.Email),
		RoleID:       roleID,
		CreatedBy:    stamp(r),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "username already exists")
			return
		}
		writeInternal(w, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Update modifies an existing user. An empty password keeps the current one.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id", "user")
	if !ok {
		return
	}

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.RoleID == "" {
		writeError(w, http.StatusBadRequest, "username and roleId are required")
		return
	}

	passwordHash := pgtype.Text{}
	if req.Password != "" {
		if err := auth.CheckPasswordRequirements(req.Password); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeInternal(w, "update user: hash password", err)
			return
		}
		passwordHash = pgtype.Text{String: hash, Valid: true}
	}

	roleID, ok := h.resolveRole(w, r, req.RoleID)
	if !ok {
		return
	}
	if !h.usernameAvailable(w, r, req.Username, userID) {
		return
	}

	user, err := h.store.UpdateUser(r.Context(), database.UpdateUserParams{
		ID:           userID,
		Username:     req.Username,
		Email:        optionalText(req.Email),
		RoleID:       roleID,
		PasswordHash: passwordHash,
		UpdatedBy:    stamp(r),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "username already exists")
			return
		}
		writeInternal(w, "update user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Delete soft-deletes a user. Admins cannot delete their own account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id", "user")
	if !ok {
		return
	}

	if userID == actorFrom(r).UserID {
		writeError(w, http.StatusBadRequest, "you cannot delete your own account")
		return
	}

	_, err := h.store.SoftDeleteUser(r.Context(), database.SoftDeleteParams{ID: userID, DeletedBy: stamp(r)})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternal(w, "delete user", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *UserHandler) resolveRole(w http.ResponseWriter, r *http.Request, raw string) (uuid.UUID, bool) {
	roleID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid roleId")
		return uuid.Nil, false
	}
	if _, err := h.store.GetRole(r.Context(), roleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "role not found")
			return uuid.Nil, false
		}
		writeInternal(w, "get role", err)
		return uuid.Nil, false
	}
	return roleID, true
}

func (h *UserHandler) usernameAvailable(w http.ResponseWriter, r *http.Request, name string, exclude uuid.UUID) bool {
	exists, err := h.store.UsernameExists(r.Context(), database.NameExistsParams{Name: name, ExcludeID: exclude})
	if err != nil {
		writeInternal(w, "check username", err)
		return false
	}
	if exists {
		writeError(w, http.StatusBadRequest, "username already exists")
		return false
	}
	return true
}
