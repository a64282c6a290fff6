package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"hail/internal/handler"
	"hail/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	CaptainHandler *handler.CaptainHandler
	RiderHandler   *handler.RiderHandler
	SessionHandler *handler.SessionHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Websocket sessions for ride event delivery.
	ws := router.Group("/ws")
	{
		ws.GET("/riders/:id", deps.SessionHandler.Attach)
		ws.GET("/captains/:id", deps.SessionHandler.Attach)
	}

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Rider routes.
		riders := v1.Group("/riders")
		{
			riders.POST("/register", deps.RiderHandler.Register)
			riders.GET("", deps.RiderHandler.GetAll)
		}

		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/fare", deps.RideHandler.GetFare)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/confirm", deps.RideHandler.ConfirmRide)
			rides.POST("/:id/start", deps.RideHandler.StartRide)
			rides.POST("/:id/end", deps.RideHandler.EndRide)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
		}

		// Captain routes.
		captains := v1.Group("/captains")
		{
			captains.POST("/register", deps.CaptainHandler.Register)
			captains.GET("", deps.CaptainHandler.GetAll)
			captains.POST("/:id/location", deps.CaptainHandler.UpdateLocation)
			captains.POST("/:id/offline", deps.CaptainHandler.GoOffline)
			captains.GET("/:id/offers", deps.CaptainHandler.Offers)
		}
	}

	return router
}
