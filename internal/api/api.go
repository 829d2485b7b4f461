package api

import (
	"net/http"

	conversionHandler "cpa-server/internal/conversions/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type API struct {
	router            *gin.RouterGroup
	conversionHandler *conversionHandler.Handler
}

func New(router *gin.RouterGroup, conversionHandler *conversionHandler.Handler) API {
	return API{
		router:            router,
		conversionHandler: conversionHandler,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	a.Metrics()
	a.conversionHandler.RegisterRoutes(a.router)
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}

func (a *API) Metrics() {
	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
