package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/middleware"
	"github.com/tablewise/restaurant-api/internal/receipt"
	"github.com/tablewise/restaurant-api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	ChangeStatus(ctx context.Context, req service.ChangeStatusRequest) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID, actor service.Actor) error
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, int64, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	qr    receipt.QRGenerator
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, qr receipt.QRGenerator) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, qr: qr}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders behind RequireAuth; staff routes carry
// their own capability checks.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/my", h.ListMine)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/items", h.ListItems)
	r.Get("/{id}/qr", h.QRCode)

	r.With(middleware.Require(auth.CapOrdersReadAll)).Get("/", h.List)
	r.With(middleware.Require(auth.CapOrdersUpdateStatus)).Patch("/{id}/status", h.UpdateStatus)
	r.With(middleware.Require(auth.CapOrdersDelete)).Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	UserID string                   `json:"userId"`
	Notes  string                   `json:"notes"`
	Items  []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	DishID   string `json:"dishId"`
	Quantity int32  `json:"quantity"`
	Notes    string `json:"notes"`
}

// updateStatusRequest carries the version the client last saw. When set, the
// change is refused with 409 if the order has moved on.
type updateStatusRequest struct {
	Status  string `json:"status"`
	Version *int32 `json:"version"`
}

type orderResponse struct {
	ID        uuid.UUID           `json:"id"`
	UserID    uuid.UUID           `json:"userId"`
	Username  string              `json:"username"`
	Status    string              `json:"status"`
	Total     string              `json:"total"`
	Notes     *string             `json:"notes"`
	Version   int32               `json:"version"`
	CreatedAt time.Time           `json:"createdAt"`
	CreatedBy *string             `json:"createdBy"`
	UpdatedAt *time.Time          `json:"updatedAt"`
	UpdatedBy *string             `json:"updatedBy"`
	Items     []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	DishID    uuid.UUID `json:"dishId"`
	DishName  string    `json:"dishName"`
	Quantity  int32     `json:"quantity"`
	Price     string    `json:"price"`
	Subtotal  string    `json:"subtotal"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Username:  o.Username,
		Status:    string(o.Status),
		Total:     numericToString(o.Total),
		Notes:     textPtr(o.Notes),
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		CreatedBy: textPtr(o.CreatedBy),
		UpdatedBy: textPtr(o.UpdatedBy),
	}
	if o.UpdatedAt.Valid {
		resp.UpdatedAt = &o.UpdatedAt.Time
	}
	return resp
}

func toOrderItemResponse(item database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:        item.ID,
		OrderID:   item.OrderID,
		DishID:    item.DishID,
		DishName:  item.DishName,
		Quantity:  item.Quantity,
		Price:     numericToString(item.Price),
		Subtotal:  lineSubtotal(item.Price, item.Quantity),
		Notes:     textPtr(item.Notes),
		CreatedAt: item.CreatedAt,
	}
}

func toOrderDetailResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := toOrderResponse(o)
	resp.Items = mapSlice(items, toOrderItemResponse)
	return resp
}

// --- Handlers ---

// Create places an order. Without userId the order is for the caller; staff
// may name another user.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	userID := actor.UserID
	if req.UserID != "" {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid userId")
			return
		}
		userID = parsed
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		dishID, err := uuid.Parse(item.DishID)
		if err != nil {
			writeError(w, http.StatusBadRequest, itemError(i, "invalid dishId"))
			return
		}
		items[i] = service.CreateOrderItemRequest{
			DishID:   dishID,
			Quantity: item.Quantity,
			Notes:    item.Notes,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID: userID,
		Notes:  req.Notes,
		Items:  items,
		Actor:  actor,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderDetailResponse(result.Order, result.Items))
}

// List returns a page of all orders.
// Filters: userId, status, startDate, endDate, minTotal, maxTotal.
// Sort keys: createdat (default, newest first), total, status, username.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params, page, ok := parseOrderFilters(w, r)
	if !ok {
		return
	}
	var userOK bool
	if params.UserID, userOK = queryUUID(w, r, "userId"); !userOK {
		return
	}
	h.writeOrderPage(w, r, params, page)
}

// ListMine returns the caller's own orders with the same filters as List.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	params, page, ok := parseOrderFilters(w, r)
	if !ok {
		return
	}
	params.UserID = pgtype.UUID{Bytes: actorFrom(r).UserID, Valid: true}
	h.writeOrderPage(w, r, params, page)
}

func (h *OrderHandler) writeOrderPage(w http.ResponseWriter, r *http.Request, params database.ListOrdersParams, page pageQuery) {
	orders, total, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternal(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, newPagedResponse(mapSlice(orders, toOrderResponse), total, page))
}

// Get returns an order with its items. Visible to the owner and to staff.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadVisibleOrder(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDetailResponse(order, items))
}

func (h *OrderHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadVisibleOrder(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		writeInternal(w, "list order items", err)
		return
	}

	writeJSON(w, http.StatusOK, mapSlice(items, toOrderItemResponse))
}

// QRCode returns a PNG QR code linking to the order in the web client.
func (h *OrderHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadVisibleOrder(w, r)
	if !ok {
		return
	}

	png, err := h.qr.Generate(order.ID)
	if err != nil {
		writeInternal(w, "generate order qr", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck
}

// UpdateStatus moves an order through Pending, Processing, Completed and
// Cancelled. Completed and Cancelled orders are final.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.svc.ChangeStatus(r.Context(), service.ChangeStatusRequest{
		OrderID:         orderID,
		Status:          req.Status,
		ExpectedVersion: req.Version,
		Actor:           actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Delete soft-deletes an order and its items regardless of status.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), orderID, actorFrom(r)); err != nil {
		writeServiceError(w, "delete order", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// loadVisibleOrder fetches the {id} order and checks the caller owns it or
// may read all orders.
func (h *OrderHandler) loadVisibleOrder(w http.ResponseWriter, r *http.Request) (database.Order, bool) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return database.Order{}, false
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return database.Order{}, false
		}
		writeInternal(w, "get order", err)
		return database.Order{}, false
	}

	actor := actorFrom(r)
	if order.UserID != actor.UserID && !actor.Can(auth.CapOrdersReadAll) {
		writeError(w, http.StatusForbidden, "you can only view your own orders")
		return database.Order{}, false
	}
	return order, true
}

func parseOrderFilters(w http.ResponseWriter, r *http.Request) (database.ListOrdersParams, pageQuery, bool) {
	page := parsePageQuery(r)
	if page.SortBy == "" {
		page.SortBy = "createdat"
		if r.URL.Query().Get("order") == "" {
			page.Desc = true
		}
	}
	params := database.ListOrdersParams{ListParams: page.listParams()}
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		status, err := service.ParseOrderStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status")
			return params, page, false
		}
		params.Status = pgtype.Text{String: string(status), Valid: true}
	}

	rng, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return params, page, false
	}
	params.StartDate, params.EndDate = rng.Start, rng.End

	if v := q.Get("minTotal"); v != "" {
		if params.MinTotal, err = parseMoney(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid minTotal: "+err.Error())
			return params, page, false
		}
	}
	if v := q.Get("maxTotal"); v != "" {
		if params.MaxTotal, err = parseMoney(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid maxTotal: "+err.Error())
			return params, page, false
		}
	}
	return params, page, true
}

func itemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}
