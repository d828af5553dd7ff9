package api

import (
	"github.com/gin-gonic/gin"

	"vehiclefinder/internal/api/handlers"
	"vehiclefinder/internal/api/middleware"
	"vehiclefinder/internal/metrics"
)

type Router struct {
	nearestHandler *handlers.NearestHandler
	vehicleHandler *handlers.VehicleHandler
	indexHandler   *handlers.IndexHandler
	adminToken     string
}

func NewRouter(
	nearestHandler *handlers.NearestHandler,
	vehicleHandler *handlers.VehicleHandler,
	indexHandler *handlers.IndexHandler,
	adminToken string,
) *Router {
	return &Router{
		nearestHandler: nearestHandler,
		vehicleHandler: vehicleHandler,
		indexHandler:   indexHandler,
		adminToken:     adminToken,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.RequestLogger())

	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Query endpoints
	engine.GET("/nearest", r.nearestHandler.Nearest)
	engine.POST("/nearest/batch", r.nearestHandler.Batch)
	engine.GET("/vehicles/:id", r.vehicleHandler.GetVehicle)
	engine.GET("/index/stats", r.indexHandler.Stats)

	// Admin endpoints
	admin := engine.Group("/index")
	admin.Use(middleware.RequireAdminToken(r.adminToken))
	{
		admin.POST("/reload", r.indexHandler.Reload)
	}
}
