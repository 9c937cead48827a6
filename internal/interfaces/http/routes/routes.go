// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/cart-backend/internal/config"
	"github.com/your-org/cart-backend/internal/domain/cart"
	"github.com/your-org/cart-backend/internal/domain/product"
	"github.com/your-org/cart-backend/internal/domain/user"
	"github.com/your-org/cart-backend/internal/infrastructure/database/postgres"
	redislock "github.com/your-org/cart-backend/internal/infrastructure/database/redis"
	"github.com/your-org/cart-backend/internal/interfaces/http/handlers"
	"github.com/your-org/cart-backend/internal/interfaces/http/middleware"
	"github.com/your-org/cart-backend/internal/pkg/events"
	"github.com/your-org/cart-backend/internal/pkg/pdf"
)

// Services holds the domain services shared by all handlers
type Services struct {
	Users    *user.Service
	Products *product.Service
	Carts    *cart.Service
	Quotes   handlers.QuoteRenderer
}

// NewServices wires the domain services. The cart lock is held in Redis when a
// client is given so that several API instances serialize on the same key.
func NewServices(db *gorm.DB, redisClient *redis.Client, publisher events.Publisher, cfg *config.Config, logger *logrus.Logger) *Services {
	products := product.NewService(db, cfg, publisher, logger)

	var locker cart.Locker
	if redisClient != nil {
		locker = redislock.NewLocker(redisClient, cfg.Cart.LockTTL, cfg.Cart.LockRetryInterval, logger)
	} else {
		locker = cart.NewLocalLocker()
	}

	carts := cart.NewService(
		postgres.NewCartRepository(db),
		products,
		locker,
		cart.NewConfig(cfg),
		publisher,
		logger,
	)

	var quotes handlers.QuoteRenderer
	if cfg.PDF.Enabled {
		quotes = pdf.NewService(cfg)
	}

	return &Services{
		Users:    user.NewService(db, cfg, logger),
		Products: products,
		Carts:    carts,
		Quotes:   quotes,
	}
}

// SetupRoutes mounts every API route on rg
func SetupRoutes(rg *gin.RouterGroup, services *Services, cfg *config.Config, logger *logrus.Logger) {
	SetupUserRoutes(rg, services, logger)
	SetupProductRoutes(rg, services)
	SetupCartRoutes(rg, services, cfg, logger)
}

// SetupUserRoutes sets up registration and login
func SetupUserRoutes(rg *gin.RouterGroup, services *Services, logger *logrus.Logger) {
	authHandler := handlers.NewAuthHandler(services.Users, logger)

	users := rg.Group("/users")
	{
		users.POST("/register", authHandler.Register)
		users.POST("/login", authHandler.Login)
	}
}

// SetupProductRoutes sets up product related routes
func SetupProductRoutes(rg *gin.RouterGroup, services *Services) {
	productHandler := handlers.NewProductHandler(services.Products)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.POST("", productHandler.CreateProduct)
		products.PUT("/:id", productHandler.UpdateProduct)
		products.DELETE("/:id", productHandler.DeleteProduct)
	}
}

// SetupCartRoutes sets up cart routes. All of them require authentication.
func SetupCartRoutes(rg *gin.RouterGroup, services *Services, cfg *config.Config, logger *logrus.Logger) {
	cartHandler := handlers.NewCartHandler(services.Carts, services.Quotes, logger)

	carts := rg.Group("/cart")
	carts.Use(middleware.AuthMiddleware(cfg))
	{
		carts.POST("", cartHandler.CreateCart)
		carts.GET("", cartHandler.GetCart)
		carts.DELETE("", cartHandler.EmptyCart)

		carts.POST("/product", cartHandler.AddItem)
		carts.DELETE("/product", cartHandler.RemoveItem)
		carts.PUT("/product", cartHandler.UpdateItem)

		carts.GET("/summary", cartHandler.GetSummary)
		carts.POST("/discount", cartHandler.ApplyDiscount)
		carts.POST("/save", cartHandler.SaveCart)
		carts.GET("/retrieve", cartHandler.RestoreCart)

		carts.GET("/quote", cartHandler.GetQuote)
		carts.GET("/quote.pdf", cartHandler.GetQuotePDF)
	}
}
