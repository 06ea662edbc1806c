package models

import "time"

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	FileName string `json:"fileName"`
}

func NewUploadResponse(m *MediaObject) UploadResponse {
	return UploadResponse{
		ID:       m.ID(),
		Name:     m.OriginalName,
		URL:      m.PublicURL,
		Size:     m.SizeBytes,
		Type:     m.ContentType,
		FileName: m.Key,
	}
}

// PresignedURLRequest is the JSON body of POST /presigned-url.
type PresignedURLRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	UserName string `json:"userName"`
}

// UploadMetadata is attached to every object as user metadata.
type UploadMetadata struct {
	OriginalName string `json:"originalName"`
	UserName     string `json:"userName"`
	UploadedAt   string `json:"uploadedAt"`
}

// Map returns the metadata as store user-metadata entries.
func (m UploadMetadata) Map() map[string]string {
	return map[string]string{
		"originalName": m.OriginalName,
		"uploadedAt":   m.UploadedAt,
		"userName":     m.UserName,
	}
}

// PresignedUpload is returned by POST /presigned-url. The client must PUT the
// bytes to PresignedURL with the same Content-Type and x-amz-meta-* headers.
type PresignedUpload struct {
	PresignedURL string         `json:"presignedUrl"`
	FileName     string         `json:"fileName"`
	PublicURL    string         `json:"publicUrl"`
	Metadata     UploadMetadata `json:"metadata"`
}

// Photo is one gallery entry.
type Photo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	Size       int64      `json:"size"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	Key        string     `json:"key"`
}

// PhotoPage is returned by GET /photos.
type PhotoPage struct {
	Photos  []Photo `json:"photos"`
	Count   int     `json:"count"`
	HasMore bool    `json:"hasMore"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}
