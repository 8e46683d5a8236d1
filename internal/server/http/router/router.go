package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/dukasync/storesync/internal/server/http/handlers"
	"github.com/dukasync/storesync/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.StorefrontFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	catalogHandler := handlers.NewCatalogHandler(facade)
	checkoutHandler := handlers.NewCheckoutHandler(facade)
	adminHandler := handlers.NewAdminHandler(facade, facade)
	healthHandler := handlers.NewHealthHandler(facade)

	api := engine.Group("/api")
	api.GET("/health", healthHandler.Health)
	api.GET("/products", catalogHandler.List)

	checkout := api.Group("/checkout")
	checkout.POST("", checkoutHandler.Start)
	checkout.GET("/:id", checkoutHandler.Status)
	checkout.POST("/:id/codes", checkoutHandler.SubmitCode)
	checkout.POST("/:id/commit", checkoutHandler.Commit)
	checkout.DELETE("/:id", checkoutHandler.Abandon)

	admin := api.Group("/admin")
	admin.POST("/login", adminHandler.Login)

	adminAuth := admin.Group("")
	adminAuth.Use(middleware.AuthRequired(facade))
	adminAuth.POST("/products", adminHandler.UpsertProduct)
	adminAuth.PUT("/products/:key", adminHandler.UpsertProduct)
	adminAuth.DELETE("/products/:key", adminHandler.DeleteProduct)
	adminAuth.GET("/orders", adminHandler.Orders)
	adminAuth.GET("/orders/:id", adminHandler.Order)
	adminAuth.PATCH("/orders/:id/delivery-status", adminHandler.UpdateDeliveryStatus)

	return engine
}
