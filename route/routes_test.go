package route

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventgallery/gallery/config"
	"github.com/eventgallery/gallery/controller"
	mw "github.com/eventgallery/gallery/middlewares"
	"github.com/eventgallery/gallery/models"
	"github.com/eventgallery/gallery/services"
	"github.com/eventgallery/gallery/storage"
	"github.com/eventgallery/gallery/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:   "8080",
		AppEnv: "test",
		Store: config.StoreConfig{
			Driver:          config.DriverMemory,
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			Endpoint:        "https://account.r2.cloudflarestorage.com",
			Bucket:          "gallery",
			PublicURL:       "https://media.example.com",
		},
		MediaPrefix:         "engagement-photos/",
		MaxUploadBytes:      1 << 20,
		PresignTTL:          time.Hour,
		ListDefaultMaxKeys:  50,
		NamingConflictCheck: true,
	}
}

func newRouter(cfg *config.Config, store storage.Gateway, limiter *mw.RateLimiter) *gin.Engine {
	log := zap.NewNop().Sugar()
	router := gin.New()
	Register(router, Handlers{
		Photos:  controller.NewPhotoController(services.NewGalleryService(cfg, store, log), cfg.ListDefaultMaxKeys),
		Uploads: controller.NewUploadController(services.NewUploadService(cfg, store, log), cfg.MaxUploadBytes),
		Limiter: limiter,
	})
	return router
}

func multipartUpload(t *testing.T, fileName, contentType string, content []byte, userName string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if fileName != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if userName != "" {
		if err := w.WriteField("userName", userName); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	store := storage.NewMemoryGateway("gallery")
	rec := serve(newRouter(testConfig(), store, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[models.HealthStatus](t, rec)
	if body.Status != "healthy" || body.Timestamp == "" {
		t.Fatalf("body = %+v", body)
	}
	if store.Calls() != 0 {
		t.Fatal("health check must not touch the store")
	}
}

func TestListPhotos(t *testing.T) {
	store := storage.NewMemoryGateway("gallery")
	for i, k := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		store.Seed(storage.ObjectInfo{
			Key:          "engagement-photos/" + k,
			Size:         10,
			LastModified: time.Date(2026, 5, 1, i, 0, 0, 0, time.UTC),
		})
	}
	router := newRouter(testConfig(), store, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/photos?maxKeys=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	page := decode[models.PhotoPage](t, rec)
	if page.Count != 2 || !page.HasMore {
		t.Fatalf("page = %+v", page)
	}
	if page.Photos[0].Key != "engagement-photos/b.jpg" {
		t.Fatalf("first photo = %q, want the newer of the listed page", page.Photos[0].Key)
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/photos", nil))
	page = decode[models.PhotoPage](t, rec)
	if page.Count != 3 || page.HasMore {
		t.Fatalf("default page = %+v", page)
	}
}

func TestListPhotosRejectsBadMaxKeys(t *testing.T) {
	rec := serve(newRouter(testConfig(), storage.NewMemoryGateway("gallery"), nil),
		httptest.NewRequest(http.MethodGet, "/photos?maxKeys=ten", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode[utils.ErrorBody](t, rec); body.Error != "Invalid query parameter" {
		t.Fatalf("body = %+v", body)
	}
}

func TestMissingConfiguration(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Endpoint = ""
	store := storage.NewMemoryGateway("gallery")
	router := newRouter(cfg, store, nil)

	presign := httptest.NewRequest(http.MethodPost, "/presigned-url",
		strings.NewReader(`{"fileName":"a.jpg","fileType":"image/jpeg","fileSize":10}`))
	presign.Header.Set("Content-Type", "application/json")

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/photos", nil),
		multipartUpload(t, "a.jpg", "image/jpeg", []byte("jpeg"), ""),
		presign,
	} {
		rec := serve(router, req)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s: status = %d", req.Method, req.URL.Path, rec.Code)
		}
		body := decode[utils.ErrorBody](t, rec)
		if body.Error != "Server configuration error" || !strings.Contains(body.Message, config.EnvEndpoint) {
			t.Fatalf("%s %s: body = %+v", req.Method, req.URL.Path, body)
		}
	}
	if store.Calls() != 0 {
		t.Fatalf("store called %d times", store.Calls())
	}
}

func TestUpload(t *testing.T) {
	store := storage.NewMemoryGateway("gallery")
	router := newRouter(testConfig(), store, nil)

	req := multipartUpload(t, "IMG 1.jpg", "image/jpeg", []byte("not really a jpeg"), "Jane Doe")
	req.Header.Set("Origin", "https://guests.example.com")
	rec := serve(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
	resp := decode[models.UploadResponse](t, rec)
	if resp.FileName != "engagement-photos/JaneDoe_IMG 1.jpg" ||
		resp.ID != "JaneDoe_IMG 1" ||
		resp.Name != "IMG 1.jpg" ||
		resp.Type != "image/jpeg" ||
		resp.Size != int64(len("not really a jpeg")) ||
		resp.URL != "https://media.example.com/engagement-photos/JaneDoe_IMG%201.jpg" {
		t.Fatalf("response = %+v", resp)
	}
	if _, ok := store.Object(resp.FileName); !ok {
		t.Fatal("object not stored")
	}
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		summary string
	}{
		{"non-media type", func(t *testing.T) *http.Request {
			return multipartUpload(t, "notes.txt", "text/plain", []byte("hello"), "")
		}, "Invalid file type"},
		{"no file part", func(t *testing.T) *http.Request {
			return multipartUpload(t, "", "", nil, "Jane")
		}, "Missing required fields"},
		{"over the size limit", func(t *testing.T) *http.Request {
			return multipartUpload(t, "big.mp4", "video/mp4", make([]byte, 1<<20+1), "")
		}, "File too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryGateway("gallery")
			rec := serve(newRouter(testConfig(), store, nil), tt.req(t))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
			}
			if body := decode[utils.ErrorBody](t, rec); body.Error != tt.summary {
				t.Fatalf("error = %q, want %q", body.Error, tt.summary)
			}
			if store.Calls() != 0 {
				t.Fatalf("store called %d times", store.Calls())
			}
		})
	}
}

func TestPresignedURL(t *testing.T) {
	store := storage.NewMemoryGateway("gallery")
	router := newRouter(testConfig(), store, nil)

	req := httptest.NewRequest(http.MethodPost, "/presigned-url",
		strings.NewReader(`{"fileName":"clip.mov","fileType":"video/quicktime","fileSize":2048,"userName":"Ali"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	resp := decode[models.PresignedUpload](t, rec)
	if resp.FileName != "engagement-photos/Ali_clip.mov" ||
		resp.PublicURL != "https://media.example.com/engagement-photos/Ali_clip.mov" ||
		!strings.HasPrefix(resp.PresignedURL, "memory://gallery/engagement-photos/Ali_clip.mov?") ||
		resp.Metadata.UserName != "Ali" || resp.Metadata.OriginalName != "clip.mov" {
		t.Fatalf("response = %+v", resp)
	}
	if _, ok := store.Object(resp.FileName); ok {
		t.Fatal("presign must not create the object")
	}
}

func TestPresignedURLRejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		summary string
	}{
		{"malformed JSON", `{"fileName":`, "Validation failed"},
		{"missing fields", `{"fileType":"image/png"}`, "Missing required fields"},
		{"non-media type", `{"fileName":"a.pdf","fileType":"application/pdf","fileSize":10}`, "Invalid file type"},
		{"over the size limit", `{"fileName":"a.mp4","fileType":"video/mp4","fileSize":1048577}`, "File too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/presigned-url", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := serve(newRouter(testConfig(), storage.NewMemoryGateway("gallery"), nil), req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
			}
			if body := decode[utils.ErrorBody](t, rec); body.Error != tt.summary {
				t.Fatalf("error = %q, want %q", body.Error, tt.summary)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	router := newRouter(testConfig(), storage.NewMemoryGateway("gallery"), nil)
	for _, path := range []string{"/upload", "/presigned-url"} {
		for _, origin := range []string{"", "https://guests.example.com"} {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			if origin != "" {
				req.Header.Set("Origin", origin)
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				req.Header.Set("Access-Control-Request-Headers", "Content-Type")
			}
			rec := serve(router, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("OPTIONS %s (origin %q): status = %d", path, origin, rec.Code)
			}
			for header, want := range map[string]string{
				"Access-Control-Allow-Origin":  "*",
				"Access-Control-Allow-Methods": "POST,OPTIONS",
				"Access-Control-Allow-Headers": "Content-Type",
			} {
				if got := rec.Header().Get(header); got != want {
					t.Errorf("OPTIONS %s (origin %q): %s = %q, want %q", path, origin, header, got, want)
				}
			}
		}
	}
}

func TestUploadRateLimit(t *testing.T) {
	router := newRouter(testConfig(), storage.NewMemoryGateway("gallery"), mw.NewRateLimiter(1, time.Minute))

	presign := func() int {
		req := httptest.NewRequest(http.MethodPost, "/presigned-url",
			strings.NewReader(`{"fileName":"a.jpg","fileType":"image/jpeg","fileSize":10}`))
		req.Header.Set("Content-Type", "application/json")
		return serve(router, req).Code
	}
	if code := presign(); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := presign(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d, want 429", code)
	}
	if code := serve(router, httptest.NewRequest(http.MethodGet, "/photos", nil)).Code; code != http.StatusOK {
		t.Fatalf("gallery must not be rate limited, got %d", code)
	}
}
