package routes

import (
	"github.com/gin-gonic/gin"

	"stockpulse/controllers"
)

// SetupRoutes registers the read API.
func SetupRoutes(router *gin.Engine, stockController *controllers.StockController) {
	api := router.Group("/api")
	{
		api.GET("/symbols", stockController.GetSymbols)
		api.GET("/stocks/:symbol/prices", stockController.GetStockPrices)
	}
}
