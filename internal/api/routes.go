package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.POST("/analyze", handler.AnalyzeMarket)
		api.GET("/transactions/stats", handler.GetTransactionStats)
		api.GET("/areas/:postal_code", handler.GetAreaStats)
		api.POST("/cache/clear", handler.ClearCache)
		api.GET("/geocode", handler.Geocode)
	}
}
