package models

import (
	"path"
	"strings"
	"time"
)

// MediaObject represents one stored file. Identity is Key; it is never
// mutated after the put that created it.
type MediaObject struct {
	Key          string    `json:"key"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	SizeBytes    int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
	OwnerName    string    `json:"ownerName"`
	PublicURL    string    `json:"url"`
}

// DisplayName is the last path segment of the key.
func (m *MediaObject) DisplayName() string {
	return DisplayName(m.Key)
}

// ID is the display name without its extension. It is for display only and
// is not unique across keys with colliding stems.
func (m *MediaObject) ID() string {
	return DisplayID(m.Key)
}

// DisplayName returns the last "/"-separated segment of key.
func DisplayName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// DisplayID returns DisplayName(key) with its final extension removed.
func DisplayID(key string) string {
	name := DisplayName(key)
	return strings.TrimSuffix(name, path.Ext(name))
}
