package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/eventgallery/gallery/config"
	"github.com/eventgallery/gallery/utils"
)

// S3Gateway implements Gateway against any S3-compatible endpoint.
// Cloudflare R2 is reached with region "auto" and the account endpoint.
type S3Gateway struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	bucket    string
	logger    *zap.SugaredLogger
}

func NewS3Gateway(ctx context.Context, sc config.StoreConfig, logger *zap.SugaredLogger) (*S3Gateway, error) {
	httpClient := awshttp.NewBuildableClient()
	if sc.Timeout > 0 {
		httpClient = httpClient.WithTimeout(sc.Timeout)
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx,
		awscfg.WithRegion(sc.Region),
		awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, "")),
		awscfg.WithHTTPClient(httpClient),
		// R2 rejects some of the newer default checksum headers on pre-signed PUTs.
		awscfg.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		awscfg.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(sc.Endpoint)
		o.UsePathStyle = sc.UsePathStyle
	})
	return &S3Gateway{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
		bucket:    sc.Bucket,
		logger:    logger,
	}, nil
}

func (g *S3Gateway) Bucket() string { return g.bucket }

func (g *S3Gateway) List(ctx context.Context, prefix string, maxKeys int) (*Listing, error) {
	out, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(g.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(maxKeys)),
	})
	if err != nil {
		return nil, g.wrap("list", prefix, err)
	}

	listing := &Listing{
		Objects:   make([]ObjectInfo, 0, len(out.Contents)),
		Truncated: aws.ToBool(out.IsTruncated),
	}
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		listing.Objects = append(listing.Objects, ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}
	return listing, nil
}

// Put writes the object. Conditional creates go through a single PutObject
// with If-None-Match; plain writes use the managed uploader, which switches to
// multipart for large bodies.
func (g *S3Gateway) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(opts.ContentType),
		Metadata:    opts.Metadata,
	}

	var err error
	if opts.IfAbsent {
		input.IfNoneMatch = aws.String("*")
		if size >= 0 {
			input.ContentLength = aws.Int64(size)
		}
		_, err = g.client.PutObject(ctx, input)
	} else {
		_, err = g.uploader.Upload(ctx, input)
	}
	if err != nil {
		return g.wrap("put", key, err)
	}
	return nil
}

func (g *S3Gateway) PresignPut(ctx context.Context, key string, opts PutOptions, ttl time.Duration) (string, error) {
	req, err := g.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(opts.ContentType),
		Metadata:    opts.Metadata,
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", g.wrap("presign-put", key, err)
	}
	return req.URL, nil
}

func (g *S3Gateway) wrap(op, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return fmt.Errorf("%w: %s", utils.ErrKeyExists, key)
		}
		g.logger.Errorw("R2 operation failed", "operation", op, "bucket", g.bucket, "key", key,
			"code", apiErr.ErrorCode(), "error", apiErr.ErrorMessage())
	} else {
		g.logger.Errorw("R2 operation failed", "operation", op, "bucket", g.bucket, "key", key, "error", err)
	}
	return &utils.StoreError{Op: op, Key: key, Err: err}
}
