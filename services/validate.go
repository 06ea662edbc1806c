package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/eventgallery/gallery/utils"
)

// UploadRequest is the validated input to both ingest paths.
type UploadRequest struct {
	FileName    string `json:"fileName" validate:"required"`
	ContentType string `json:"fileType" validate:"required,mediatype"`
	SizeBytes   int64  `json:"fileSize" validate:"required,gt=0"`
	UserName    string `json:"userName"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("mediatype", func(fl validator.FieldLevel) bool {
		ct := strings.ToLower(fl.Field().String())
		return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
	})
	return v
}

// validateUpload checks required fields, then media type, then size.
func validateUpload(v *validator.Validate, req UploadRequest, maxBytes int64) error {
	if err := v.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		var missing []string
		for _, fe := range fieldErrs {
			if fe.Tag() != "mediatype" {
				missing = append(missing, fe.Field())
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w (%s)", utils.ErrMissingFields, strings.Join(missing, ", "))
		}
		return fmt.Errorf("%w: got %q", utils.ErrInvalidFileType, req.ContentType)
	}
	if req.SizeBytes > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", utils.ErrFileTooLarge, req.SizeBytes, maxBytes)
	}
	return nil
}
