package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/eventgallery/gallery/config"
	"github.com/eventgallery/gallery/utils"
)

// MinioGateway implements Gateway with minio-go. It works with MinIO for
// local development and with any S3-compatible provider in production.
type MinioGateway struct {
	client *minio.Client
	bucket string
	logger *zap.SugaredLogger
}

func NewMinioGateway(sc config.StoreConfig, logger *zap.SugaredLogger) (*MinioGateway, error) {
	host, secure, err := splitEndpoint(sc.Endpoint)
	if err != nil {
		return nil, err
	}
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(sc.AccessKeyID, sc.SecretAccessKey, ""),
		Secure: secure,
		Region: sc.Region,
	}
	if sc.UsePathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	if sc.Timeout > 0 {
		transport, err := minio.DefaultTransport(secure)
		if err != nil {
			return nil, fmt.Errorf("create minio transport: %w", err)
		}
		transport.ResponseHeaderTimeout = sc.Timeout
		opts.Transport = transport
	}
	client, err := minio.New(host, opts)
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioGateway{client: client, bucket: sc.Bucket, logger: logger}, nil
}

// splitEndpoint accepts either a URL ("https://host:port") or a bare host.
func splitEndpoint(endpoint string) (host string, secure bool, err error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse store endpoint: %w", err)
	}
	return u.Host, u.Scheme == "https", nil
}

func (g *MinioGateway) Bucket() string { return g.bucket }

// List stops reading after maxKeys objects; one more object marks the page truncated.
func (g *MinioGateway) List(ctx context.Context, prefix string, maxKeys int) (*Listing, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listing := &Listing{Objects: make([]ObjectInfo, 0)}
	objectCh := g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   maxKeys,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, g.wrap("list", prefix, object.Err)
		}
		if len(listing.Objects) == maxKeys {
			listing.Truncated = true
			break
		}
		listing.Objects = append(listing.Objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return listing, nil
}

// Put uploads the object. IfAbsent is approximated with a stat before the
// write; the window between the two calls is not protected.
func (g *MinioGateway) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) error {
	if opts.IfAbsent {
		_, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
		if err == nil {
			return fmt.Errorf("%w: %s", utils.ErrKeyExists, key)
		}
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			return g.wrap("stat", key, err)
		}
	}

	_, err := g.client.PutObject(ctx, g.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return g.wrap("put", key, err)
	}
	return nil
}

func (g *MinioGateway) PresignPut(ctx context.Context, key string, opts PutOptions, ttl time.Duration) (string, error) {
	headers := make(http.Header)
	headers.Set("Content-Type", opts.ContentType)
	for k, v := range metadataHeaders(opts.Metadata) {
		headers.Set(k, v)
	}
	u, err := g.client.PresignHeader(ctx, http.MethodPut, g.bucket, key, ttl, nil, headers)
	if err != nil {
		return "", g.wrap("presign-put", key, err)
	}
	return u.String(), nil
}

func (g *MinioGateway) wrap(op, key string, err error) error {
	g.logger.Errorw("storage operation failed", "operation", op, "bucket", g.bucket, "key", key,
		"code", minio.ToErrorResponse(err).Code, "error", err)
	return &utils.StoreError{Op: op, Key: key, Err: err}
}
