package routes

import (
	"net/http"
	"time"

	"vlmax-platform/internal/config"

	"github.com/gin-gonic/gin"
)

// SetupStaticRoutes serves the generated artifacts and the health check.
func SetupStaticRoutes(router *gin.Engine, cfg *config.Config) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	router.Static("/results", cfg.ResultsDir)
	router.Static("/preprocess_results", cfg.PreprocessDir)
}
