package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lifeofadot/ebookstore_backend/controllers"
	"github.com/lifeofadot/ebookstore_backend/middleware"
)

// RegisterAffiliateRoutes sets up the admin affiliate management routes
func RegisterAffiliateRoutes(e *echo.Echo, affiliateController *controllers.AffiliateController) {
	affiliates := e.Group("/api/affiliates")
	affiliates.Use(middleware.JWTMiddleware())
	affiliates.Use(middleware.RequireUserType("admin"))

	affiliates.POST("", affiliateController.CreateAffiliate)
	affiliates.GET("/:id/stats", affiliateController.GetAffiliateStats)
}
