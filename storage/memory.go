package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eventgallery/gallery/utils"
)

// MemoryObject is one object held by MemoryGateway.
type MemoryObject struct {
	ObjectInfo
	ContentType string
	Metadata    map[string]string
	Body        []byte
}

// MemoryGateway is an in-process Gateway with S3 listing semantics. It backs
// STORE_DRIVER=memory and the tests.
type MemoryGateway struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]MemoryObject
	calls   int

	// Now stamps LastModified on writes.
	Now func() time.Time
	// ListErr, PutErr and PresignErr, when set, fail the matching call.
	ListErr    error
	PutErr     error
	PresignErr error
}

func NewMemoryGateway(bucket string) *MemoryGateway {
	return &MemoryGateway{
		bucket:  bucket,
		objects: make(map[string]MemoryObject),
		Now:     time.Now,
	}
}

func (m *MemoryGateway) Bucket() string { return m.bucket }

// Calls returns how many store operations were attempted.
func (m *MemoryGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Seed stores an object directly, bypassing Put and the call counter.
func (m *MemoryGateway) Seed(info ObjectInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[info.Key] = MemoryObject{ObjectInfo: info}
}

// Object returns the stored object under key.
func (m *MemoryGateway) Object(key string) (MemoryObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

func (m *MemoryGateway) List(_ context.Context, prefix string, maxKeys int) (*Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.ListErr != nil {
		return nil, &utils.StoreError{Op: "list", Key: prefix, Err: m.ListErr}
	}

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	listing := &Listing{Objects: make([]ObjectInfo, 0)}
	if len(keys) > maxKeys {
		keys = keys[:maxKeys]
		listing.Truncated = true
	}
	for _, k := range keys {
		listing.Objects = append(listing.Objects, m.objects[k].ObjectInfo)
	}
	return listing, nil
}

func (m *MemoryGateway) Put(_ context.Context, key string, body io.Reader, _ int64, opts PutOptions) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return &utils.StoreError{Op: "put", Key: key, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.PutErr != nil {
		return &utils.StoreError{Op: "put", Key: key, Err: m.PutErr}
	}
	if _, exists := m.objects[key]; exists && opts.IfAbsent {
		return fmt.Errorf("%w: %s", utils.ErrKeyExists, key)
	}

	md := make(map[string]string, len(opts.Metadata))
	for k, v := range opts.Metadata {
		md[k] = v
	}
	m.objects[key] = MemoryObject{
		ObjectInfo:  ObjectInfo{Key: key, Size: int64(len(data)), LastModified: m.Now()},
		ContentType: opts.ContentType,
		Metadata:    md,
		Body:        data,
	}
	return nil
}

// PresignPut returns a memory:// URL; nothing is written until a Put.
func (m *MemoryGateway) PresignPut(_ context.Context, key string, opts PutOptions, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.PresignErr != nil {
		return "", &utils.StoreError{Op: "presign-put", Key: key, Err: m.PresignErr}
	}
	q := url.Values{}
	q.Set("X-Amz-Expires", fmt.Sprint(int(ttl.Seconds())))
	q.Set("content-type", opts.ContentType)
	u := url.URL{Scheme: "memory", Host: m.bucket, Path: "/" + key, RawQuery: q.Encode()}
	return u.String(), nil
}
