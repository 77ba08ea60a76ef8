package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/middleware"
	"github.com/tablewise/restaurant-api/internal/service"
)

// OrderItemServicer is satisfied by *service.OrderService.
type OrderItemServicer interface {
	UpdateOrderItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int32, actor service.Actor) (*service.OrderItemChange, error)
	DeleteOrderItem(ctx context.Context, itemID uuid.UUID, actor service.Actor) (database.Order, error)
}

// OrderItemStore is satisfied by *database.Queries.
type OrderItemStore interface {
	ListOrderItems(ctx context.Context, arg database.ListParams) ([]database.OrderItem, int64, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
}

// OrderItemHandler exposes order lines across orders for staff.
type OrderItemHandler struct {
	svc   OrderItemServicer
	store OrderItemStore
}

func NewOrderItemHandler(svc OrderItemServicer, store OrderItemStore) *OrderItemHandler {
	return &OrderItemHandler{svc: svc, store: store}
}

// RegisterRoutes registers order item endpoints. Reads need orders:read-all,
// edits need orders:delete.
func (h *OrderItemHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Require(auth.CapOrdersReadAll))
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Require(auth.CapOrdersDelete))
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

type updateOrderItemRequest struct {
	Quantity int32 `json:"quantity"`
}

type orderItemChangeResponse struct {
	Item  orderItemResponse `json:"item"`
	Order orderResponse     `json:"order"`
}

// List sort keys: dishname, quantity, price, createdat.
func (h *OrderItemHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePageQuery(r)

	items, total, err := h.store.ListOrderItems(r.Context(), page.listParams())
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(items, toOrderItemResponse), total, page))
}

func (h *OrderItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlID(w, r, "id", "order item")
	if !ok {
		return
	}

	item, err := h.store.GetOrderItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order item not found")
			return
		}
		writeInternal(w, "get order item", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderItemResponse(item))
}

// Update changes the quantity only. The snapshot price is kept and the order
// total is recomputed.
func (h *OrderItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlID(w, r, "id", "order item")
	if !ok {
		return
	}

	var req updateOrderItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	change, err := h.svc.UpdateOrderItemQuantity(r.Context(), itemID, req.Quantity, actorFrom(r))
	if err != nil {
		writeServiceError(w, "update order item", err)
		return
	}

	writeJSON(w, http.StatusOK, orderItemChangeResponse{
		Item:  toOrderItemResponse(change.Item),
		Order: toOrderResponse(change.Order),
	})
}

// Delete removes a line and returns the order with its new total.
func (h *OrderItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlID(w, r, "id", "order item")
	if !ok {
		return
	}

	order, err := h.svc.DeleteOrderItem(r.Context(), itemID, actorFrom(r))
	if err != nil {
		writeServiceError(w, "delete order item", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}
