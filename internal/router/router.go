package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tablewise/restaurant-api/internal/audit"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/cache"
	"github.com/tablewise/restaurant-api/internal/config"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/handler"
	mw "github.com/tablewise/restaurant-api/internal/middleware"
	"github.com/tablewise/restaurant-api/internal/receipt"
	"github.com/tablewise/restaurant-api/internal/service"
)

// Deps are the runtime collaborators the router wires into handlers.
type Deps struct {
	Pool    *pgxpool.Pool
	Queries *database.Queries
	Cache   cache.Store
	Audit   audit.Recorder
}

// New creates a Chi router with all application routes wired up.
// Every /api request is parsed for a token; routes then demand
// authentication or a capability as needed.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	queries := deps.Queries
	rec := deps.Audit
	if rec == nil {
		rec = audit.Nop{}
	}
	statsCache := deps.Cache
	if statsCache == nil {
		statsCache = cache.Nop{}
	}

	orderService := service.NewOrderService(deps.Pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, cfg.MinOrderTotal, rec)
	cartService := service.NewCartService(deps.Pool, func(db database.DBTX) service.CartStore {
		return database.New(db)
	}, orderService)
	guard := service.NewGuard(deps.Pool, func(db database.DBTX) service.GuardStore {
		return database.New(db)
	}, rec)

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.OptionalAuthenticate(cfg.JWTSecret))

		handler.NewAuthHandler(queries, cfg.JWTSecret, cfg.JWTTTL).RegisterRoutes(r)

		// Catalog
		catalog(r, "/categories", handler.NewCategoryHandler(queries, guard), cfg.PublicCatalog)
		catalog(r, "/dishes", handler.NewDishHandler(queries, guard), cfg.PublicCatalog)
		catalog(r, "/menus", handler.NewMenuHandler(queries, guard), cfg.PublicCatalog)
		catalog(r, "/menu-dishes", handler.NewMenuDishHandler(queries), cfg.PublicCatalog)
		catalog(r, "/dish-ingredients", handler.NewDishIngredientHandler(queries), cfg.PublicCatalog)
		catalog(r, "/ingredients", handler.NewIngredientHandler(queries, guard), false)

		// Authenticated customer and staff routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)

			r.Route("/cart", handler.NewCartHandler(cartService).RegisterRoutes)

			qr := receipt.NewLinkQRGenerator(cfg.WebBaseURL)
			r.Route("/orders", handler.NewOrderHandler(orderService, queries, qr).RegisterRoutes)
			r.Route("/order-items", handler.NewOrderItemHandler(orderService, queries).RegisterRoutes)
		})

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(auth.CapUsersManage))
			r.Route("/users", handler.NewUserHandler(queries).RegisterRoutes)
			r.Route("/roles", handler.NewRoleHandler(queries, guard).RegisterRoutes)
		})
		r.With(mw.Require(auth.CapStatisticsRead)).Route("/statistics",
			handler.NewStatisticsHandler(queries, statsCache, cfg.StatsCacheTTL).RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}

type catalogRoutes interface {
	RegisterReadRoutes(r chi.Router)
	RegisterWriteRoutes(r chi.Router)
}

// catalog mounts an entity's reads, public or authenticated, next to its
// writes which always need catalog:write.
func catalog(r chi.Router, path string, h catalogRoutes, public bool) {
	r.Route(path, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if !public {
				r.Use(mw.RequireAuth)
			}
			h.RegisterReadRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Require(auth.CapCatalogWrite))
			h.RegisterWriteRoutes(r)
		})
	})
}
