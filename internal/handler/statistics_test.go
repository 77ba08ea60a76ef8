package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/cache"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/handler"
	"github.com/tablewise/restaurant-api/internal/middleware"
)

// --- Mock store ---

type mockStatsStore struct {
	t            *testing.T
	summaryCalls int
	lastRange    database.StatsRange
	lastPeriod   string
	lastLimit    int32
	failSummary  bool
}

func (m *mockStatsStore) GetOrderSummary(_ context.Context, arg database.StatsRange) (database.OrderSummaryRow, error) {
	m.summaryCalls++
	m.lastRange = arg
	if m.failSummary {
		return database.OrderSummaryRow{}, errors.New("connection reset")
	}
	return database.OrderSummaryRow{TotalRevenue: money(m.t, "1000.00"), TotalOrders: 3}, nil
}

func (m *mockStatsStore) CountOrdersByStatus(context.Context, database.StatsRange) ([]database.StatusCountRow, error) {
	return []database.StatusCountRow{
		{Status: database.OrderStatusCompleted, Count: 2},
		{Status: database.OrderStatusPending, Count: 1},
	}, nil
}

func (m *mockStatsStore) GetRevenueByPeriod(_ context.Context, arg database.RevenueByPeriodParams) ([]database.RevenueByPeriodRow, error) {
	m.lastRange = arg.StatsRange
	m.lastPeriod = arg.Period
	return []database.RevenueByPeriodRow{
		{Bucket: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Revenue: money(m.t, "250.00"), OrdersCount: 2},
	}, nil
}

func (m *mockStatsStore) GetTopDishes(_ context.Context, arg database.TopDishesParams) ([]database.TopDishRow, error) {
	m.lastLimit = arg.Limit
	return []database.TopDishRow{
		{DishID: uuid.New(), DishName: "Pho", CategoryName: "Soups", TotalQuantity: 9, TotalRevenue: money(m.t, "108.00"), OrderCount: 4},
	}, nil
}

func (m *mockStatsStore) GetRevenueByCategory(context.Context, database.StatsRange) ([]database.CategoryRevenueRow, error) {
	return []database.CategoryRevenueRow{
		{CategoryID: uuid.New(), CategoryName: "Soups", TotalRevenue: money(m.t, "108.00"), TotalQuantity: 9},
	}, nil
}

func (m *mockStatsStore) CountActiveUsers(context.Context) (int64, error)  { return 12, nil }
func (m *mockStatsStore) CountActiveDishes(context.Context) (int64, error) { return 30, nil }

func (m *mockStatsStore) ListRecentOrders(_ context.Context, limit int32) ([]database.Order, error) {
	m.lastLimit = limit
	return []database.Order{{ID: uuid.New(), Status: database.OrderStatusPending, Total: money(m.t, "120.00")}}, nil
}

// --- Helpers ---

func setupStatsRouter(store *mockStatsStore, c cache.Store) *chi.Mux {
	h := handler.NewStatisticsHandler(store, c, time.Minute)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.With(middleware.Require(auth.CapStatisticsRead)).Route("/statistics", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestStatisticsOverview(t *testing.T) {
	store := &mockStatsStore{t: t}
	router := setupStatsRouter(store, cache.Nop{})

	rr := doAuthRequest(t, router, http.MethodGet, "/statistics/overview", nil, adminClaims())
	assertStatus(t, rr, http.StatusOK)

	resp := decodeMap(t, rr)
	if resp["totalRevenue"] != "1000.00" || resp["totalOrders"] != float64(3) {
		t.Errorf("summary: got %v", resp)
	}
	if resp["averageOrderValue"] != "333.33" {
		t.Errorf("average: got %v, want 333.33", resp["averageOrderValue"])
	}
	if resp["totalUsers"] != float64(12) || resp["totalDishes"] != float64(30) {
		t.Errorf("counts: got users=%v dishes=%v", resp["totalUsers"], resp["totalDishes"])
	}
	byStatus := resp["ordersByStatus"].(map[string]interface{})
	if byStatus["Completed"] != float64(2) || byStatus["Cancelled"] != float64(0) {
		t.Errorf("ordersByStatus: got %v", byStatus)
	}
	if store.lastRange.Start.Valid || store.lastRange.End.Valid {
		t.Error("overview without dates should be unbounded")
	}
}

func TestStatisticsOverview_AdminOnly(t *testing.T) {
	router := setupStatsRouter(&mockStatsStore{t: t}, cache.Nop{})

	rr := doAuthRequest(t, router, http.MethodGet, "/statistics/overview", nil, waiterClaims())
	assertStatus(t, rr, http.StatusForbidden)
}

func TestStatisticsOverview_CachedInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &mockStatsStore{t: t}
	router := setupStatsRouter(store, cache.NewRedisStore(client, "test:stats:"))

	for i := 0; i < 3; i++ {
		rr := doAuthRequest(t, router, http.MethodGet, "/statistics/overview?startDate=2026-03-01", nil, adminClaims())
		assertStatus(t, rr, http.StatusOK)
	}
	if store.summaryCalls != 1 {
		t.Errorf("summary queries: got %d, want 1", store.summaryCalls)
	}

	rr := doAuthRequest(t, router, http.MethodGet, "/statistics/overview?startDate=2026-03-02", nil, adminClaims())
	assertStatus(t, rr, http.StatusOK)
	if store.summaryCalls != 2 {
		t.Errorf("a different range must miss the cache, got %d queries", store.summaryCalls)
	}
}

func TestStatisticsOverview_StoreError(t *testing.T) {
	router := setupStatsRouter(&mockStatsStore{t: t, failSummary: true}, cache.Nop{})

	rr := doAuthRequest(t, router, http.MethodGet, "/statistics/overview", nil, adminClaims())
	assertStatus(t, rr, http.StatusInternalServerError)
}

func TestRevenueByDate_DefaultsToLast30Days(t *testing.T) {
	store := &mockStatsStore{t: t}
	router := setupStatsRouter(store, cache.Nop{})

	rr := doAuthRequest(t, router, http.MethodGet, "/statistics/revenue-by-date", nil, adminClaims())
	assertStatus(t, rr, http.StatusOK)

	if store.lastPeriod != "day" {
		t.Errorf("period: got %q, want day", store.lastPeriod)
	}
	if !store.lastRange.Start.Valid {
		t.Fatal("start should default to 30 days ago")
	}
	age := time.Since(store.lastRange.Start.Time)
	if age < 30*24*time.Hour || age > 31*24*time.Hour {
		t.Errorf("start: got %s ago, want about 30 days", age)
	}

	points := decodeList(t, rr)
	if len(points) != 1 || points[0]["date"] != "2026-03-02" || points[0]["revenue"] != "250.00" {
		t.Errorf("points: got %v", points)
	}
}

func TestRevenueByDate_Period(t *testing.T) {
	store := &mockStatsStore{t: t}
	router := setupStatsRouter(store, cache.Nop{})

	rr := doAuthRequest(t, router, http.MethodGet, "/statistics/revenue-by-date?period=week&startDate=2026-01-01&endDate=2026-03-31", nil, adminClaims())
	assertStatus(t, rr, http.StatusOK)
	if store.lastPeriod != "week" {
		t.Errorf("period: got %q, want week", store.lastPeriod)
	}

	rr = doAuthRequest(t, router, http.MethodGet, "/statistics/revenue-by-date?period=decade", nil, adminClaims())
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestTopDishes_Limit(t *testing.T) {
	store := &mockStatsStore{t: t}
	router := setupStatsRouter(store, cache.Nop{})

	rr := doAuthRequest(t, router, http.MethodGet, "/statistics/top-dishes", nil, adminClaims())
	assertStatus(t, rr, http.StatusOK)
	if store.lastLimit != 10 {
		t.Errorf("default top: got %d, want 10", store.lastLimit)
	}
	rows := decodeList(t, rr)
	if rows[0]["dishName"] != "Pho" || rows[0]["totalQuantity"] != float64(9) {
		t.Errorf("rows: got %v", rows)
	}

	rr = doAuthRequest(t, router, http.MethodGet, "/statistics/top-dishes?top=5", nil, adminClaims())
	assertStatus(t, rr, http.StatusOK)
	if store.lastLimit != 5 {
		t.Errorf("top: got %d, want 5", store.lastLimit)
	}

	for _, bad := range []string{"0", "101", "many"} {
		rr = doAuthRequest(t, router, http.MethodGet, "/statistics/top-dishes?top="+bad, nil, adminClaims())
		if rr.Code != http.StatusBadRequest {
			t.Errorf("top=%s: status got %d, want 400", bad, rr.Code)
		}
	}
}

func TestRevenueByCategory(t *testing.T) {
	router := setupStatsRouter(&mockStatsStore{t: t}, cache.Nop{})

	rr := doAuthRequest(t, router, http.MethodGet, "/statistics/revenue-by-category", nil, adminClaims())
	assertStatus(t, rr, http.StatusOK)

	rows := decodeList(t, rr)
	if len(rows) != 1 || rows[0]["categoryName"] != "Soups" || rows[0]["totalRevenue"] != "108.00" {
		t.Errorf("rows: got %v", rows)
	}
}

func TestRecentOrders(t *testing.T) {
	store := &mockStatsStore{t: t}
	router := setupStatsRouter(store, cache.Nop{})

	rr := doAuthRequest(t, router, http.MethodGet, "/statistics/recent-orders?count=3", nil, adminClaims())
	assertStatus(t, rr, http.StatusOK)

	if store.lastLimit != 3 {
		t.Errorf("count: got %d, want 3", store.lastLimit)
	}
	if rows := decodeList(t, rr); len(rows) != 1 || rows[0]["total"] != "120.00" {
		t.Errorf("rows: got %v", rows)
	}
}
