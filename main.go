package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/junaidrashid-git/cart-api/cache"
	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	"github.com/junaidrashid-git/cart-api/routes"
	cartService "github.com/junaidrashid-git/cart-api/services/cart"
	"github.com/junaidrashid-git/cart-api/services/catalog"
	checkoutService "github.com/junaidrashid-git/cart-api/services/checkout"
	"github.com/junaidrashid-git/cart-api/services/deals"
	"github.com/junaidrashid-git/cart-api/services/pricing"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting cart api")

	// Init DB
	db := initDatabase(logger)

	// Auto-migrate all tables
	if err := db.AutoMigrate(
		&models.Brand{},
		&models.Category{},
		&models.Product{},
		&models.Subproduct{},
		&models.Cart{},
		&models.CartItem{},
		&models.Deal{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	// One active cart per owner, enforced at the database level. Gorm tags
	// cannot express partial indexes, so these run as raw statements.
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_one_active_per_user
			ON carts (user_id) WHERE status = 'active' AND user_id IS NOT NULL AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_one_active_per_session
			ON carts (session_id) WHERE status = 'active' AND session_id IS NOT NULL AND deleted_at IS NULL`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Fatal("create cart uniqueness index failed", zap.Error(err))
		}
	}

	// Wire the engine
	store := repository.NewGormStore(db)
	pricingCache := cache.NewPricingCache(os.Getenv("REDIS_ADDR"), os.Getenv("REDIS_PASSWORD"), time.Minute, logger)
	evaluator := deals.NewEvaluator(store, logger)
	catalogReader := catalog.NewReader(store)
	cartSvc := cartService.NewService(store, pricingCache, logger)
	aggregator := pricing.NewAggregator(store, evaluator, pricingCache, logger)
	orchestrator := checkoutService.NewOrchestrator(store, aggregator, pricingCache, logger)

	// Gin setup
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY", "X-Session-Id"},
		ExposeHeaders:    []string{"Content-Length", "X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Setup routes
	routes.SetupRoutes(r, routes.Deps{
		DB:       db,
		Store:    store,
		Catalog:  catalogReader,
		Cart:     cartSvc,
		Pricing:  aggregator,
		Checkout: orchestrator,
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("server listening", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

// initDatabase sets up the GORM DB connection
func initDatabase(logger *zap.Logger) *gorm.DB {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
		if err != nil {
			logger.Fatal("db connection failed", zap.Error(err))
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	return db
}
