package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const SessionIDHeader = "X-Session-ID"

// CORSMiddlewareWithOrigins allows the configured origins; "*" opens the API
// to every origin.
func CORSMiddlewareWithOrigins(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Requested-With", RequestIDHeader, SessionIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader, SessionIDHeader},
		MaxAge:        12 * time.Hour,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			config.AllowAllOrigins = true
			return cors.New(config)
		}
	}

	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	return cors.New(config)
}
