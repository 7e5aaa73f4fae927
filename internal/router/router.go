package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tiendapos/internal/config"
	"tiendapos/internal/handler"
	"tiendapos/internal/middleware"
	"tiendapos/internal/repository"
	"tiendapos/internal/service"
	"tiendapos/internal/worker"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimit, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	salesRepo := repository.NewSalesRepository(db)
	cashRepo := repository.NewCashRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	catalogSvc := service.NewCatalogService(productRepo, rdb)
	checkoutSvc := service.NewCheckoutService(productRepo, salesRepo, dispatcher)
	salesSvc := service.NewSalesService(salesRepo)
	cashSvc := service.NewCashService(cashRepo, salesRepo, dispatcher)
	adminSvc := service.NewAdminService(adminRepo, cfg.ResetConfirmToken)

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(catalogSvc)
	checkoutH := handler.NewCheckoutHandler(checkoutSvc)
	salesH := handler.NewSalesHandler(salesSvc)
	cashH := handler.NewCashHandler(cashSvc)
	adminH := handler.NewAdminHandler(adminSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	// Price check — read-only, served from cache when possible
	r.GET("/v1/price/:key", productsH.GetPrice)

	v1 := r.Group("/v1")
	{
		// Catalog
		v1.GET("/products", productsH.Search)
		v1.POST("/products", productsH.Create)
		v1.POST("/products/upsert", productsH.UpsertMany)
		v1.GET("/products/duplicates", productsH.FindDuplicates)
		v1.POST("/products/duplicates/delete", productsH.DeleteDuplicates)
		v1.DELETE("/products/:key", productsH.Delete)
		v1.PUT("/products/:key/info", productsH.SetInfo)
		v1.PUT("/products/:key/category", productsH.SetCategory)
		v1.PUT("/products/:key/price", productsH.SetPrice)
		v1.PUT("/products/:key/stock", productsH.SetStock)
		v1.PATCH("/products/:key/stock", productsH.AdjustStock)
		v1.POST("/products/:key/restock", productsH.Restock)
		v1.GET("/products/:key/stock-moves", productsH.ListStockMoves)
		v1.PUT("/products/:key/image", productsH.SetImage)
		v1.GET("/products/:key/image", productsH.GetImage)
		v1.DELETE("/products/:key/image", productsH.ClearImage)
		v1.GET("/categories", productsH.ListCategories)

		// Checkout + sales ledger
		v1.POST("/checkout", checkoutH.Checkout)
		v1.GET("/sales", salesH.List)
		v1.GET("/sales/summary", salesH.Summary)
		v1.GET("/sales/by-day", salesH.ByDay)
		v1.GET("/sales/top-products", salesH.TopProducts)
		v1.GET("/sales/:id", salesH.Get)

		// Cash day
		v1.GET("/cash/panel", cashH.Panel)
		v1.PUT("/cash/opening", cashH.SetOpening)
		v1.POST("/cash/opening/suggested", cashH.UseSuggestedOpening)
		v1.POST("/cash/withdrawals", cashH.AddWithdrawal)
		v1.DELETE("/cash/moves/:id", cashH.DeleteMove)
		v1.POST("/cash/close", cashH.Close)
		v1.GET("/cash/closes", cashH.ListCloses)

		// Admin — tightly rate limited, still requires the confirm token
		v1.POST("/admin/reset", middleware.RateLimiter(5, time.Minute), adminH.ResetDatabase)
	}

	return r
}
