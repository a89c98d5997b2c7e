package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lifeofadot/ebookstore_backend/controllers"
	"github.com/lifeofadot/ebookstore_backend/middleware"
)

// RegisterEbookRoutes sets up the catalog and upcoming-release routes
func RegisterEbookRoutes(e *echo.Echo, ebookController *controllers.EbookController) {
	// Release signups are open to anonymous visitors
	e.POST("/api/ebooks/:id/register", ebookController.RegisterUpcoming)

	ebooks := e.Group("/api/ebooks")
	ebooks.Use(middleware.JWTMiddleware())

	ebooks.GET("", ebookController.GetEbooks)

	admin := ebooks.Group("")
	admin.Use(middleware.RequireUserType("admin"))
	admin.POST("", ebookController.CreateEbook)
	admin.GET("/:id/registrations", ebookController.GetUpcomingRegistrations)
}
