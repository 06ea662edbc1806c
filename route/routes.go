package route

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/eventgallery/gallery/controller"
	mw "github.com/eventgallery/gallery/middlewares"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Photos  *controller.PhotoController
	Uploads *controller.UploadController
	// Limiter, when set, applies to the upload endpoints only.
	Limiter *mw.RateLimiter
}

// UploadCORS is the CORS contract of the upload endpoints.
func UploadCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              controller.UploadAllowMethods,
		AllowHeaders:              controller.UploadAllowHeaders,
		OptionsResponseStatusCode: http.StatusOK,
	})
}

func Register(router *gin.Engine, h Handlers) {
	router.GET("/health", controller.HealthCheck)
	router.GET("/photos", h.Photos.ListPhotos)

	upload := router.Group("/")
	upload.Use(UploadCORS())
	upload.OPTIONS("/upload", controller.Preflight)
	upload.OPTIONS("/presigned-url", controller.Preflight)

	limited := upload.Group("/")
	if h.Limiter != nil {
		limited.Use(h.Limiter.Middleware())
	}
	limited.POST("/upload", h.Uploads.Upload)
	limited.POST("/presigned-url", h.Uploads.PresignedURL)
}
