package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lifeofadot/ebookstore_backend/controllers"
	"github.com/lifeofadot/ebookstore_backend/middleware"
)

// RegisterPaymentRoutes sets up the order creation and verification routes
func RegisterPaymentRoutes(e *echo.Echo, paymentController *controllers.PaymentController) {
	payments := e.Group("/api/payments")
	payments.Use(middleware.JWTMiddleware())

	payments.GET("/key", paymentController.GetKey)
	payments.POST("/create-order", paymentController.CreateOrder)
	payments.POST("/verify", paymentController.VerifyPayment)
	payments.POST("/:orderId/fail", paymentController.MarkFailed)
}
