package controller

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eventgallery/gallery/services"
	"github.com/eventgallery/gallery/utils"
)

type PhotoController struct {
	gallery        *services.GalleryService
	defaultMaxKeys int
}

func NewPhotoController(gallery *services.GalleryService, defaultMaxKeys int) *PhotoController {
	return &PhotoController{gallery: gallery, defaultMaxKeys: defaultMaxKeys}
}

// ListPhotos handles GET /photos?prefix=&maxKeys=.
func (pc *PhotoController) ListPhotos(c *gin.Context) {
	maxKeys := pc.defaultMaxKeys
	if raw := c.Query("maxKeys"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.WriteError(c, fmt.Errorf("%w: maxKeys must be an integer, got %q", utils.ErrInvalidQuery, raw), "Failed to list photos")
			return
		}
		maxKeys = n
	}

	page, err := pc.gallery.ListPage(c.Request.Context(), c.Query("prefix"), maxKeys)
	if err != nil {
		utils.WriteError(c, err, "Failed to list photos")
		return
	}
	c.JSON(http.StatusOK, page)
}
