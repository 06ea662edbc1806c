package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventgallery/gallery/models"
	"github.com/eventgallery/gallery/services"
	"github.com/eventgallery/gallery/utils"
)

// multipartOverhead leaves room for form fields and part headers on top of
// the file itself when capping the request body.
const multipartOverhead = 1 << 20

type UploadController struct {
	uploads  *services.UploadService
	maxBytes int64
}

func NewUploadController(uploads *services.UploadService, maxBytes int64) *UploadController {
	return &UploadController{uploads: uploads, maxBytes: maxBytes}
}

// Upload handles POST /upload (multipart/form-data: file, userName).
func (uc *UploadController) Upload(c *gin.Context) {
	const summary = "Failed to upload file"
	if err := uc.uploads.Ready(); err != nil {
		utils.WriteError(c, err, summary)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, uc.maxBytes+multipartOverhead)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(c, fmt.Errorf("%w: request body exceeds %d bytes", utils.ErrFileTooLarge, tooLarge.Limit), summary)
			return
		}
		utils.WriteError(c, fmt.Errorf("%w (file)", utils.ErrMissingFields), summary)
		return
	}

	src, err := file.Open()
	if err != nil {
		utils.WriteError(c, fmt.Errorf("open uploaded file: %w", err), summary)
		return
	}
	defer src.Close()

	obj, err := uc.uploads.Upload(c.Request.Context(), services.UploadRequest{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		SizeBytes:   file.Size,
		UserName:    c.PostForm("userName"),
	}, src)
	if err != nil {
		utils.WriteError(c, err, summary)
		return
	}
	c.JSON(http.StatusOK, models.NewUploadResponse(obj))
}

// PresignedURL handles POST /presigned-url.
func (uc *UploadController) PresignedURL(c *gin.Context) {
	const summary = "Failed to generate presigned URL"
	if err := uc.uploads.Ready(); err != nil {
		utils.WriteError(c, err, summary)
		return
	}

	var body models.PresignedURLRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.WriteError(c, fmt.Errorf("%w: malformed JSON body: %v", utils.ErrValidation, err), summary)
		return
	}

	presigned, err := uc.uploads.Presign(c.Request.Context(), services.UploadRequest{
		FileName:    body.FileName,
		ContentType: body.FileType,
		SizeBytes:   body.FileSize,
		UserName:    body.UserName,
	})
	if err != nil {
		utils.WriteError(c, err, summary)
		return
	}
	c.JSON(http.StatusOK, presigned)
}

// CORS contract of the upload endpoints, shared with the cors middleware.
var (
	UploadAllowMethods = []string{http.MethodPost, http.MethodOptions}
	UploadAllowHeaders = []string{"Content-Type"}
)

// Preflight answers OPTIONS on the upload endpoints for clients that send no
// Origin header; CORS requests are answered by the cors middleware first.
// Header values use the same comma-joined form the middleware writes.
func Preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", strings.Join(UploadAllowMethods, ","))
	c.Header("Access-Control-Allow-Headers", strings.Join(UploadAllowHeaders, ","))
	c.Status(http.StatusOK)
}
