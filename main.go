package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/lifeofadot/ebookstore_backend/config"
	"github.com/lifeofadot/ebookstore_backend/controllers"
	"github.com/lifeofadot/ebookstore_backend/middleware"
	"github.com/lifeofadot/ebookstore_backend/repositories"
	"github.com/lifeofadot/ebookstore_backend/routes"
	"github.com/lifeofadot/ebookstore_backend/services"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis
	config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Payment configuration is loaded once and injected
	paymentCfg := config.LoadPaymentConfig()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		AllowedDomains: []string{"https://api.razorpay.com"},
		AllowInlineJS:  true,
	}))

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Ebookstore Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	e.Use(httpsRedirect())

	// Initialize repositories
	transactionRepo := repositories.NewTransactionRepository(client)
	affiliateRepo := repositories.NewAffiliateRepository(client)

	// Initialize services
	razorpayService := services.NewRazorpayService(paymentCfg)
	paymentService := services.NewPaymentService(paymentCfg, transactionRepo, affiliateRepo, razorpayService)

	// Initialize controllers
	paymentController := controllers.NewPaymentController(client, paymentCfg, paymentService)
	ebookController := controllers.NewEbookController(client)
	affiliateController := controllers.NewAffiliateController(affiliateRepo)

	// Register routes
	routes.RegisterPaymentRoutes(e, paymentController)
	routes.RegisterEbookRoutes(e, ebookController)
	routes.RegisterAffiliateRoutes(e, affiliateController)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(301, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
