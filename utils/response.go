package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// WriteError aborts the request with {error, message}. summary is the
// short, endpoint-specific description used for store failures.
func WriteError(c *gin.Context, err error, summary string) {
	status := StatusFor(err)
	body := ErrorBody{Error: summary, Message: err.Error()}
	switch {
	case errors.Is(err, ErrConfiguration):
		body.Error = "Server configuration error"
	case errors.Is(err, ErrValidation):
		body.Error = validationSummary(err)
	}
	c.AbortWithStatusJSON(status, body)
}

func validationSummary(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "Missing required fields"
	case errors.Is(err, ErrInvalidFileType):
		return "Invalid file type"
	case errors.Is(err, ErrFileTooLarge):
		return "File too large"
	case errors.Is(err, ErrInvalidQuery):
		return "Invalid query parameter"
	}
	return "Validation failed"
}
