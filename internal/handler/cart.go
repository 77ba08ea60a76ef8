package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tablewise/restaurant-api/internal/service"
)

// CartServicer defines the service methods needed by cart handlers.
// Satisfied by *service.CartService; narrow interface for testability.
type CartServicer interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*service.CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, req service.AddCartItemRequest) (*service.CartView, error)
	UpdateItem(ctx context.Context, userID uuid.UUID, req service.UpdateCartItemRequest) (*service.CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*service.CartView, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
	Checkout(ctx context.Context, notes string, actor service.Actor) (*service.CreateOrderResult, error)
}

// CartHandler serves the caller's own cart.
type CartHandler struct {
	svc CartServicer
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(svc CartServicer) *CartHandler {
	return &CartHandler{svc: svc}
}

// RegisterRoutes registers cart endpoints. Expected to be mounted at /cart
// behind RequireAuth.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Put("/items/{id}", h.UpdateItem)
	r.Delete("/items/{id}", h.RemoveItem)
	r.Post("/checkout", h.Checkout)
}

// --- Request / Response types ---

type cartItemRequest struct {
	DishID   string `json:"dishId"`
	Quantity int32  `json:"quantity"`
	Notes    string `json:"notes"`
}

type checkoutRequest struct {
	Notes string `json:"notes"`
}

type cartResponse struct {
	ID         uuid.UUID          `json:"id"`
	UserID     uuid.UUID          `json:"userId"`
	Version    int32              `json:"version"`
	Items      []cartLineResponse `json:"items"`
	Total      string             `json:"total"`
	TotalItems int32              `json:"totalItems"`
	UpdatedAt  *time.Time         `json:"updatedAt"`
}

type cartLineResponse struct {
	ID       uuid.UUID `json:"id"`
	DishID   uuid.UUID `json:"dishId"`
	DishName string    `json:"dishName"`
	Price    string    `json:"price"`
	Quantity int32     `json:"quantity"`
	Notes    *string   `json:"notes"`
	Subtotal string    `json:"subtotal"`
}

func toCartResponse(v *service.CartView) cartResponse {
	resp := cartResponse{
		ID:         v.ID,
		UserID:     v.UserID,
		Version:    v.Version,
		Total:      v.Total.StringFixed(2),
		TotalItems: v.TotalItems,
		Items: mapSlice(v.Items, func(l service.CartLineView) cartLineResponse {
			return cartLineResponse{
				ID:       l.ID,
				DishID:   l.DishID,
				DishName: l.DishName,
				Price:    l.Price.StringFixed(2),
				Quantity: l.Quantity,
				Notes:    textPtr(l.Notes),
				Subtotal: l.Subtotal.StringFixed(2),
			}
		}),
	}
	if v.UpdatedAt.Valid {
		resp.UpdatedAt = &v.UpdatedAt.Time
	}
	return resp
}

// --- Handlers ---

// Get returns the caller's cart, creating an empty one on first use.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetCart(r.Context(), actorFrom(r).UserID)
	if err != nil {
		writeServiceError(w, "get cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

// AddItem adds to the line with the same dish and notes, or starts a new one.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dishID, err := uuid.Parse(req.DishID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dishId")
		return
	}

	view, err := h.svc.AddItem(r.Context(), actorFrom(r).UserID, service.AddCartItemRequest{
		DishID:   dishID,
		Quantity: req.Quantity,
		Notes:    req.Notes,
	})
	if err != nil {
		writeServiceError(w, "add cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

// UpdateItem sets a line's quantity and notes. The dish cannot be changed.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlID(w, r, "id", "cart item")
	if !ok {
		return
	}

	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.svc.UpdateItem(r.Context(), actorFrom(r).UserID, service.UpdateCartItemRequest{
		ItemID:   itemID,
		Quantity: req.Quantity,
		Notes:    req.Notes,
	})
	if err != nil {
		writeServiceError(w, "update cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlID(w, r, "id", "cart item")
	if !ok {
		return
	}

	view, err := h.svc.RemoveItem(r.Context(), actorFrom(r).UserID, itemID)
	if err != nil {
		writeServiceError(w, "remove cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCart(r.Context(), actorFrom(r).UserID); err != nil {
		writeServiceError(w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout places an order from the cart and empties it. The body is optional.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Checkout(r.Context(), req.Notes, actorFrom(r))
	if err != nil {
		writeServiceError(w, "checkout", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDetailResponse(result.Order, result.Items))
}
