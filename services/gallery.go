package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/eventgallery/gallery/config"
	"github.com/eventgallery/gallery/models"
	"github.com/eventgallery/gallery/storage"
)

// GalleryService lists stored media for the infinite-scroll gallery.
//
// Pages are cut by prefix and maxKeys only. There is no cursor and no
// snapshot: objects written between two calls can shift what a repeated call
// returns, so consumers may see duplicates or miss entries.
type GalleryService struct {
	cfg    *config.Config
	store  storage.Gateway
	logger *zap.SugaredLogger
}

func NewGalleryService(cfg *config.Config, store storage.Gateway, logger *zap.SugaredLogger) *GalleryService {
	return &GalleryService{cfg: cfg, store: store, logger: logger}
}

// ListPage returns up to maxKeys objects under prefix, newest first. An empty
// prefix means the configured media prefix; maxKeys is clamped to [1, 1000].
func (g *GalleryService) ListPage(ctx context.Context, prefix string, maxKeys int) (*models.PhotoPage, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = g.cfg.MediaPrefix
	}
	maxKeys = min(max(maxKeys, 1), config.MaxListKeys)

	listing, err := g.store.List(ctx, prefix, maxKeys)
	if err != nil {
		return nil, err
	}

	objects := make([]storage.ObjectInfo, 0, len(listing.Objects))
	for _, obj := range listing.Objects {
		// Some stores keep a zero-byte folder marker named exactly like the prefix.
		if obj.Key == "" || obj.Key == prefix {
			continue
		}
		objects = append(objects, obj)
	}
	SortNewestFirst(objects)

	photos := make([]models.Photo, 0, len(objects))
	for _, obj := range objects {
		p := models.Photo{
			ID:   models.DisplayID(obj.Key),
			Name: models.DisplayName(obj.Key),
			URL:  storage.PublicURL(g.cfg.Store.PublicURL, obj.Key),
			Size: obj.Size,
			Key:  obj.Key,
		}
		if !obj.LastModified.IsZero() {
			t := obj.LastModified
			p.UploadedAt = &t
		}
		photos = append(photos, p)
	}

	return &models.PhotoPage{
		Photos:  photos,
		Count:   len(photos),
		HasMore: listing.Truncated,
	}, nil
}

// SortNewestFirst orders objects with a timestamp by LastModified descending.
// Objects without one keep their slots, and ties keep input order.
func SortNewestFirst(objects []storage.ObjectInfo) {
	var slots []int
	var dated []storage.ObjectInfo
	for i, obj := range objects {
		if !obj.LastModified.IsZero() {
			slots = append(slots, i)
			dated = append(dated, obj)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].LastModified.After(dated[j].LastModified)
	})
	for n, i := range slots {
		objects[i] = dated[n]
	}
}
