package handler

import (
	"net/http"

	"ticket-booking/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouteRegistrar interface {
	RegisterRoutes(r *gin.Engine)
}

// NewRouter builds the engine with /ping, /metrics and every registrar's routes.
func NewRouter(registrars ...RouteRegistrar) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.GinMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	for _, r := range registrars {
		r.RegisterRoutes(router)
	}
	return router
}
