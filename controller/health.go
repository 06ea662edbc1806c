package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eventgallery/gallery/models"
)

// HealthCheck reports that the process is serving requests. It does not
// touch the object store.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   "Server is running and logging is active",
	})
}
