// Package storage defines the object store gateway used by the gallery.
// Implementations exist for any S3-compatible API (Cloudflare R2, AWS S3)
// through aws-sdk-go-v2, for MinIO through minio-go, and in process memory.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventgallery/gallery/config"
)

// ObjectInfo contains what a listing reveals about a stored object.
// LastModified is the zero time when the store did not report one.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Listing is one prefix-scoped page. Truncated reports that more objects
// exist beyond the requested cap; no continuation token is exposed.
type Listing struct {
	Objects   []ObjectInfo
	Truncated bool
}

// PutOptions describes a single object write.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
	// IfAbsent turns the write into a conditional create. A write that finds
	// the key already present fails with utils.ErrKeyExists.
	IfAbsent bool
}

// Gateway is the interface for the three store operations the gallery needs.
// Every call is a network call that may fail; failures are returned as
// *utils.StoreError and are never retried here.
type Gateway interface {
	// List returns at most maxKeys objects whose keys start with prefix, in key order.
	List(ctx context.Context, prefix string, maxKeys int) (*Listing, error)
	// Put writes body under key. Without IfAbsent an existing key is overwritten.
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) error
	// PresignPut returns a time-limited URL for uploading key directly to the store.
	PresignPut(ctx context.Context, key string, opts PutOptions, ttl time.Duration) (string, error)
	// Bucket returns the bucket name, for logging.
	Bucket() string
}

// New builds the gateway selected by cfg.Store.Driver. When required
// configuration is missing it returns a gateway that fails every call with the
// configuration error, so the process can still start and report it.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (Gateway, error) {
	if err := cfg.Validate(); err != nil {
		logger.Errorw("object store not configured", "error", err)
		return NewUnconfigured(err), nil
	}

	switch cfg.Store.Driver {
	case config.DriverS3, "":
		return NewS3Gateway(ctx, cfg.Store, logger)
	case config.DriverMinio:
		return NewMinioGateway(cfg.Store, logger)
	case config.DriverMemory:
		logger.Warnw("using in-memory object store; uploads are lost on restart", "bucket", cfg.Store.Bucket)
		return NewMemoryGateway(cfg.Store.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
}

// PublicURL returns the browser-accessible URL for key under base. Each key
// segment is escaped; the "/" separators are kept.
func PublicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

// metadataHeaders returns user metadata as x-amz-meta-* headers.
func metadataHeaders(md map[string]string) map[string]string {
	h := make(map[string]string, len(md))
	for k, v := range md {
		h["x-amz-meta-"+strings.ToLower(k)] = v
	}
	return h
}
