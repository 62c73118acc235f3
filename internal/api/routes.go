package api

import (
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardledger/mtg-tracker/internal/api/handlers"
	"github.com/cardledger/mtg-tracker/internal/config"
	"github.com/cardledger/mtg-tracker/internal/metrics"
)

func SetupRouter(provider *handlers.DataProvider, cfg config.ServerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metricsMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	stateHandler := handlers.NewStateHandler(provider)
	collectionHandler := handlers.NewCollectionHandler(provider)
	reportsHandler := handlers.NewReportsHandler(provider)

	api := router.Group("/api")
	{
		state := api.Group("/state")
		{
			state.GET("", stateHandler.GetState)
			state.GET("/latest", stateHandler.GetLatestPrices)
			state.GET("/meta", stateHandler.GetRunMeta)
		}

		collection := api.Group("/collection")
		{
			collection.GET("/value", collectionHandler.GetValuation)
			collection.GET("/movers", collectionHandler.GetMovers)
		}

		reports := api.Group("/reports")
		{
			reports.GET("", reportsHandler.ListReports)
			reports.GET("/:name", reportsHandler.GetReport)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
