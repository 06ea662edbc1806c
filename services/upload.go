package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventgallery/gallery/config"
	"github.com/eventgallery/gallery/models"
	"github.com/eventgallery/gallery/storage"
	"github.com/eventgallery/gallery/utils"
)

// UploadService coordinates both ingest paths: server-mediated puts and
// client-direct uploads through pre-signed URLs. It holds no mutable state;
// concurrent requests share only the store.
type UploadService struct {
	cfg      *config.Config
	store    storage.Gateway
	namer    *Namer
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.SugaredLogger
}

func NewUploadService(cfg *config.Config, store storage.Gateway, logger *zap.SugaredLogger) *UploadService {
	return &UploadService{
		cfg:      cfg,
		store:    store,
		namer:    NewNamer(store, cfg.MediaPrefix, logger),
		validate: newValidator(),
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source for upload timestamps and fallback names.
func (s *UploadService) SetClock(now func() time.Time) {
	s.now = now
	s.namer.now = now
}

// Ready reports the configuration error, if any, that fails every upload.
func (s *UploadService) Ready() error {
	return s.cfg.Validate()
}

// Validate applies the shared ingest contract without touching the store.
func (s *UploadService) Validate(req UploadRequest) error {
	return validateUpload(s.validate, req, s.cfg.MaxUploadBytes)
}

// ingest is a validated request with its resolved name and metadata.
type ingest struct {
	name       ObjectName
	metadata   models.UploadMetadata
	uploadedAt time.Time
}

func (s *UploadService) prepare(ctx context.Context, req UploadRequest) (*ingest, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	name, err := s.namer.Resolve(ctx, req.FileName, req.UserName)
	if err != nil {
		return nil, err
	}
	owner := req.UserName
	if owner == "" {
		owner = anonymousUser
	}
	uploadedAt := s.now().UTC()
	return &ingest{
		name: name,
		metadata: models.UploadMetadata{
			OriginalName: req.FileName,
			UserName:     owner,
			UploadedAt:   uploadedAt.Format(time.RFC3339Nano),
		},
		uploadedAt: uploadedAt,
	}, nil
}

// Upload stores body under a freshly resolved key and returns the object once
// it is fully written. The store calls are not cancelled with ctx.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest, body io.ReadSeeker) (*models.MediaObject, error) {
	ctx = context.WithoutCancel(ctx)

	in, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	opts := storage.PutOptions{
		ContentType: req.ContentType,
		Metadata:    in.metadata.Map(),
		IfAbsent:    s.cfg.NamingConflictCheck,
	}
	key := in.name.Key()
	err = s.store.Put(ctx, key, body, req.SizeBytes, opts)
	if errors.Is(err, utils.ErrKeyExists) {
		retry := in.name.WithSuffix(shortID()).Key()
		s.logger.Warnw("naming conflict detected, retrying under suffixed key",
			"key", key, "retry_key", retry, "user_name", in.metadata.UserName)
		if _, serr := body.Seek(0, io.SeekStart); serr != nil {
			return nil, &utils.StoreError{Op: "put", Key: key, Err: fmt.Errorf("rewind body: %w", serr)}
		}
		key = retry
		err = s.store.Put(ctx, key, body, req.SizeBytes, opts)
		if errors.Is(err, utils.ErrKeyExists) {
			return nil, &utils.StoreError{Op: "put", Key: key, Err: err}
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Infow("file uploaded", "key", key, "size", req.SizeBytes, "content_type", req.ContentType,
		"user_name", in.metadata.UserName, "original_name", req.FileName)
	return &models.MediaObject{
		Key:          key,
		OriginalName: req.FileName,
		ContentType:  req.ContentType,
		SizeBytes:    req.SizeBytes,
		UploadedAt:   in.uploadedAt,
		OwnerName:    in.metadata.UserName,
		PublicURL:    storage.PublicURL(s.cfg.Store.PublicURL, key),
	}, nil
}

// Presign resolves a key and returns a URL the client uploads to directly.
// Completion is never observed here; the object shows up in listings only
// after the client's PUT succeeds.
func (s *UploadService) Presign(ctx context.Context, req UploadRequest) (*models.PresignedUpload, error) {
	ctx = context.WithoutCancel(ctx)

	in, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	key := in.name.Key()
	url, err := s.store.PresignPut(ctx, key, storage.PutOptions{
		ContentType: req.ContentType,
		Metadata:    in.metadata.Map(),
	}, s.cfg.PresignTTL)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("generated presigned upload URL", "key", key, "size", req.SizeBytes,
		"content_type", req.ContentType, "user_name", in.metadata.UserName, "expires_in", s.cfg.PresignTTL.String())
	return &models.PresignedUpload{
		PresignedURL: url,
		FileName:     key,
		PublicURL:    storage.PublicURL(s.cfg.Store.PublicURL, key),
		Metadata:     in.metadata,
	}, nil
}

func shortID() string {
	return uuid.NewString()[:8]
}
