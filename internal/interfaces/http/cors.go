package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsMiddleware allows the configured origins, or every origin when none are set.
// Identity travels in headers, never cookies, so credentials stay off.
func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization",
		"X-Actor-ID", "X-Actor-Name", "X-Actor-Groups",
	}
	config.ExposeHeaders = []string{"Content-Disposition"}
	config.AllowCredentials = false
	config.MaxAge = 12 * time.Hour

	return cors.New(config)
}
