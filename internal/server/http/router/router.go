package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/metrics"
	"github.com/polkiloo/orderboard/internal/server/http/handlers"
	"github.com/polkiloo/orderboard/internal/server/http/middleware"
)

const alertStreamPath = "/api/alerts/stream"

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.BoardFacade, logger *slog.Logger) *gin.Engine {
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.Metrics())
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{alertStreamPath})))

	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	authHandler := handlers.NewAuthHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)
	paymentHandler := handlers.NewPaymentHandler(facade)
	alertHandler := handlers.NewAlertHandler(facade)

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.AuthRequired(facade))
	secured.POST("/staff", middleware.RequireRole(model.RoleOwner, model.RoleManager), authHandler.CreateStaff)

	orders := secured.Group("/orders")
	orders.GET("", orderHandler.List)
	orders.POST("", orderHandler.Create)
	orders.GET("/:id", orderHandler.Get)
	orders.POST("/:id/items", orderHandler.AddItems)
	orders.PATCH("/:id/items/:itemId", orderHandler.UpdateItem)
	orders.POST("/:id/serve", orderHandler.Serve)
	orders.POST("/:id/payments", paymentHandler.Pay)
	orders.POST("/:id/payments/upi", paymentHandler.CreateUPIIntent)
	orders.POST("/:id/complete", orderHandler.Complete)
	orders.DELETE("/:id", middleware.RequireRole(model.RoleOwner, model.RoleManager), orderHandler.Delete)

	alerts := secured.Group("/alerts")
	alerts.GET("", alertHandler.List)
	alerts.GET("/stream", alertHandler.Stream)
	alerts.POST("/open", alertHandler.Open)
	alerts.POST("/:id/ack", alertHandler.Ack)

	return engine
}
