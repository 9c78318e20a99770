package routes

import (
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/controllers"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/middleware"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/common/auth"
	"github.com/gin-gonic/gin"
)

type RouteOptions struct {
	GuestCookieTTL time.Duration
	SecureCookies  bool
}

func RegisterCartRoutes(r *gin.Engine, controller *controllers.CartController, validator *auth.TokenValidator, opts RouteOptions) {
	r.GET("/health", controller.Health)

	// Guests and signed-in users share the cart routes; the session decides
	// which cart a request operates on.
	api := r.Group("/cart")
	api.Use(middleware.GuestIdentity(opts.GuestCookieTTL, opts.SecureCookies), middleware.OptionalAuth(validator))
	{
		api.GET("", controller.GetCart)
		api.POST("/items", controller.AddItem)
		api.PATCH("/items/:product_id", controller.UpdateItem)
		api.DELETE("/items/:product_id", controller.RemoveItem)
		api.DELETE("", controller.ClearCart)
		api.POST("/merge", middleware.RequireAuth(), controller.MergeCart)
	}
}
