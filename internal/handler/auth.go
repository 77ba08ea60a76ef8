package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/enum"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByUsername(ctx context.Context, username string) (database.User, error)
	UsernameExists(ctx context.Context, arg database.NameExistsParams) (bool, error)
	GetRoleByName(ctx context.Context, name string) (database.Role, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
}

// AuthHandler handles registration and login.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthHandler creates a new AuthHandler. A non-positive ttl uses auth.DefaultTokenTTL.
func NewAuthHandler(store AuthStore, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
}

// --- Request / Response types ---

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     *string    `json:"email"`
	RoleID    uuid.UUID  `json:"roleId"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func toUserResponse(u database.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     textPtr(u.Email),
		RoleID:    u.RoleID,
		Role:      u.RoleName,
		CreatedAt: u.CreatedAt,
	}
	if u.UpdatedAt.Valid {
		resp.UpdatedAt = &u.UpdatedAt.Time
	}
	return resp
}

// --- Handlers ---

// Register creates an account with the User role. Staff accounts are created
// through the users endpoints.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}
	if err := auth.CheckPasswordRequirements(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exists, err := h.store.UsernameExists(r.Context(), database.NameExistsParams{Name: req.Username})
	if err != nil {
		writeInternal(w, "check username", err)
		return
	}
	if exists {
		writeError(w, http.StatusBadRequest, "username already exists")
		return
	}

	role, err := h.store.GetRoleByName(r.Context(), enum.RoleUser)
	if err != nil {
		writeInternal(w, "get default role", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternal(w, "hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        optionalText(req.Email),
		RoleID:       role.ID,
		CreatedBy:    optionalText(req.Username),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "username already exists")
			return
		}
		writeInternal(w, "create user", err)
		return
	}

	log.Printf("INFO: registered user %s", user.Username)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login exchanges username + password for an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternal(w, "get user", err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	ttl := h.tokenTTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	token, err := auth.GenerateToken(h.jwtSecret, ttl, user.ID, user.Username, user.RoleName)
	if err != nil {
		writeInternal(w, "generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(ttl).UTC(),
		User:      toUserResponse(user),
	})
}
