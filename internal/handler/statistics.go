package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablewise/restaurant-api/internal/cache"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/enum"
)

// StatisticsStore defines the database methods needed by statistics handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StatisticsStore interface {
	GetOrderSummary(ctx context.Context, arg database.StatsRange) (database.OrderSummaryRow, error)
	CountOrdersByStatus(ctx context.Context, arg database.StatsRange) ([]database.StatusCountRow, error)
	GetRevenueByPeriod(ctx context.Context, arg database.RevenueByPeriodParams) ([]database.RevenueByPeriodRow, error)
	GetTopDishes(ctx context.Context, arg database.TopDishesParams) ([]database.TopDishRow, error)
	GetRevenueByCategory(ctx context.Context, arg database.StatsRange) ([]database.CategoryRevenueRow, error)
	CountActiveUsers(ctx context.Context) (int64, error)
	CountActiveDishes(ctx context.Context) (int64, error)
	ListRecentOrders(ctx context.Context, limit int32) ([]database.Order, error)
}

const (
	defaultRevenueWindow = 30 * 24 * time.Hour
	defaultStatsLimit    = 10
	maxStatsLimit        = 100
)

// StatisticsHandler serves the admin dashboard. Aggregates are cached for
// ttl; recent orders are always read live.
type StatisticsHandler struct {
	store StatisticsStore
	cache cache.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewStatisticsHandler creates a new StatisticsHandler. Pass cache.Nop{} to
// disable caching.
func NewStatisticsHandler(store StatisticsStore, c cache.Store, ttl time.Duration) *StatisticsHandler {
	return &StatisticsHandler{store: store, cache: c, ttl: ttl, now: time.Now}
}

// RegisterRoutes registers statistics endpoints.
// Expected to be mounted at /statistics behind statistics:read.
func (h *StatisticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/overview", h.Overview)
	r.Get("/revenue-by-date", h.RevenueByDate)
	r.Get("/top-dishes", h.TopDishes)
	r.Get("/revenue-by-category", h.RevenueByCategory)
	r.Get("/recent-orders", h.RecentOrders)
}

// --- Response types ---

type overviewResponse struct {
	TotalRevenue      string           `json:"totalRevenue"`
	TotalOrders       int64            `json:"totalOrders"`
	AverageOrderValue string           `json:"averageOrderValue"`
	TotalUsers        int64            `json:"totalUsers"`
	TotalDishes       int64            `json:"totalDishes"`
	OrdersByStatus    map[string]int64 `json:"ordersByStatus"`
}

type revenuePointResponse struct {
	Date        string `json:"date"`
	Revenue     string `json:"revenue"`
	OrdersCount int64  `json:"ordersCount"`
}

type topDishResponse struct {
	DishID        uuid.UUID `json:"dishId"`
	DishName      string    `json:"dishName"`
	CategoryID    uuid.UUID `json:"categoryId"`
	CategoryName  string    `json:"categoryName"`
	TotalQuantity int64     `json:"totalQuantity"`
	TotalRevenue  string    `json:"totalRevenue"`
	OrderCount    int64     `json:"orderCount"`
}

type categoryRevenueResponse struct {
	CategoryID    uuid.UUID `json:"categoryId"`
	CategoryName  string    `json:"categoryName"`
	TotalRevenue  string    `json:"totalRevenue"`
	TotalQuantity int64     `json:"totalQuantity"`
}

// --- Handlers ---

// Overview returns revenue, order counts and catalog sizes. startDate and
// endDate bound the order figures; without them all orders count.
func (h *StatisticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := cache.Remember(r.Context(), h.cache, "overview:"+rangeKey(rng), h.ttl,
		func(ctx context.Context) (overviewResponse, error) {
			return h.loadOverview(ctx, rng)
		})
	if err != nil {
		writeInternal(w, "statistics overview", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *StatisticsHandler) loadOverview(ctx context.Context, rng database.StatsRange) (overviewResponse, error) {
	summary, err := h.store.GetOrderSummary(ctx, rng)
	if err != nil {
		return overviewResponse{}, fmt.Errorf("order summary: %w", err)
	}
	counts, err := h.store.CountOrdersByStatus(ctx, rng)
	if err != nil {
		return overviewResponse{}, fmt.Errorf("orders by status: %w", err)
	}
	users, err := h.store.CountActiveUsers(ctx)
	if err != nil {
		return overviewResponse{}, fmt.Errorf("count users: %w", err)
	}
	dishes, err := h.store.CountActiveDishes(ctx)
	if err != nil {
		return overviewResponse{}, fmt.Errorf("count dishes: %w", err)
	}

	byStatus := map[string]int64{
		enum.OrderStatusPending:    0,
		enum.OrderStatusProcessing: 0,
		enum.OrderStatusCompleted:  0,
		enum.OrderStatusCancelled:  0,
	}
	for _, c := range counts {
		byStatus[string(c.Status)] = c.Count
	}

	revenue := numericToDecimal(summary.TotalRevenue)
	average := "0.00"
	if summary.TotalOrders > 0 {
		average = revenue.DivRound(decimal.NewFromInt(summary.TotalOrders), 2).StringFixed(2)
	}

	return overviewResponse{
		TotalRevenue:      revenue.StringFixed(2),
		TotalOrders:       summary.TotalOrders,
		AverageOrderValue: average,
		TotalUsers:        users,
		TotalDishes:       dishes,
		OrdersByStatus:    byStatus,
	}, nil
}

// RevenueByDate buckets revenue by period=day|week|month|year (default day).
// Weeks start on Monday. Without a range the last 30 days are used.
func (h *StatisticsHandler) RevenueByDate(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = enum.PeriodDay
	}
	switch period {
	case enum.PeriodDay, enum.PeriodWeek, enum.PeriodMonth, enum.PeriodYear:
	default:
		writeError(w, http.StatusBadRequest, "period must be one of day, week, month, year")
		return
	}

	rng, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !rng.Start.Valid && !rng.End.Valid {
		now := h.now().UTC()
		rng.Start.Time, rng.Start.Valid = now.Add(-defaultRevenueWindow).Truncate(24*time.Hour), true
	}

	key := "revenue:" + period + ":" + rangeKey(rng)
	resp, err := cache.Remember(r.Context(), h.cache, key, h.ttl,
		func(ctx context.Context) ([]revenuePointResponse, error) {
			rows, err := h.store.GetRevenueByPeriod(ctx, database.RevenueByPeriodParams{StatsRange: rng, Period: period})
			if err != nil {
				return nil, err
			}
			return mapSlice(rows, func(row database.RevenueByPeriodRow) revenuePointResponse {
				return revenuePointResponse{
					Date:        row.Bucket.Format(time.DateOnly),
					Revenue:     numericToString(row.Revenue),
					OrdersCount: row.OrdersCount,
				}
			}), nil
		})
	if err != nil {
		writeInternal(w, "revenue by date", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// TopDishes ranks dishes by quantity sold. top defaults to 10.
func (h *StatisticsHandler) TopDishes(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, "top")
	if !ok {
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := "top-dishes:" + strconv.Itoa(int(limit)) + ":" + rangeKey(rng)
	resp, err := cache.Remember(r.Context(), h.cache, key, h.ttl,
		func(ctx context.Context) ([]topDishResponse, error) {
			rows, err := h.store.GetTopDishes(ctx, database.TopDishesParams{StatsRange: rng, Limit: limit})
			if err != nil {
				return nil, err
			}
			return mapSlice(rows, func(row database.TopDishRow) topDishResponse {
				return topDishResponse{
					DishID:        row.DishID,
					DishName:      row.DishName,
					CategoryID:    row.CategoryID,
					CategoryName:  row.CategoryName,
					TotalQuantity: row.TotalQuantity,
					TotalRevenue:  numericToString(row.TotalRevenue),
					OrderCount:    row.OrderCount,
				}
			}), nil
		})
	if err != nil {
		writeInternal(w, "top dishes", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *StatisticsHandler) RevenueByCategory(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := cache.Remember(r.Context(), h.cache, "revenue-by-category:"+rangeKey(rng), h.ttl,
		func(ctx context.Context) ([]categoryRevenueResponse, error) {
			rows, err := h.store.GetRevenueByCategory(ctx, rng)
			if err != nil {
				return nil, err
			}
			return mapSlice(rows, func(row database.CategoryRevenueRow) categoryRevenueResponse {
				return categoryRevenueResponse{
					CategoryID:    row.CategoryID,
					CategoryName:  row.CategoryName,
					TotalRevenue:  numericToString(row.TotalRevenue),
					TotalQuantity: row.TotalQuantity,
				}
			}), nil
		})
	if err != nil {
		writeInternal(w, "revenue by category", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// RecentOrders returns the newest orders. count defaults to 10.
func (h *StatisticsHandler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, "count")
	if !ok {
		return
	}

	orders, err := h.store.ListRecentOrders(r.Context(), limit)
	if err != nil {
		writeInternal(w, "recent orders", err)
		return
	}

	writeJSON(w, http.StatusOK, mapSlice(orders, toOrderResponse))
}

// --- Helpers ---

func limitParam(w http.ResponseWriter, r *http.Request, name string) (int32, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return defaultStatsLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxStatsLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be between 1 and %d", name, maxStatsLimit))
		return 0, false
	}
	return int32(n), true
}

func rangeKey(rng database.StatsRange) string {
	key := func(t time.Time, valid bool) string {
		if !valid {
			return "-"
		}
		return strconv.FormatInt(t.Unix(), 10)
	}
	return key(rng.Start.Time, rng.Start.Valid) + ":" + key(rng.End.Time, rng.End.Valid)
}
