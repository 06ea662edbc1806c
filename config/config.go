// Package config loads the gallery configuration once at process start.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/eventgallery/gallery/utils"
)

const (
	EnvAccessKeyID     = "CLOUDFLARE_R2_ACCESS_KEY_ID"
	EnvSecretAccessKey = "CLOUDFLARE_R2_SECRET_ACCESS_KEY"
	EnvEndpoint        = "CLOUDFLARE_R2_ENDPOINT"
	EnvBucketName      = "CLOUDFLARE_R2_BUCKET_NAME"
	EnvPublicURL       = "CLOUDFLARE_R2_PUBLIC_URL"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverS3     = "s3"
	DriverMinio  = "minio"
	DriverMemory = "memory"
)

// MaxListKeys is the largest page any listing may request.
const MaxListKeys = 1000

// StoreConfig holds the object store credentials and endpoint.
type StoreConfig struct {
	Driver          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	Region          string
	UsePathStyle    bool
	Timeout         time.Duration
	// PublicURL is the browser-facing base under which object keys are readable.
	PublicURL string
}

// Config holds all runtime configuration for the service.
type Config struct {
	Port   string
	AppEnv string

	Store StoreConfig

	MediaPrefix         string
	MaxUploadBytes      int64
	PresignTTL          time.Duration
	ListDefaultMaxKeys  int
	NamingConflictCheck bool
	UploadRateLimit     int

	// DotEnvLoaded reports whether a .env file was read.
	DotEnvLoaded bool
}

// Load reads configuration from a .env file (if present) and environment
// variables. Missing required keys are not an error here; call Validate.
// Optional values that are set but cannot be parsed are returned as errors.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("MEDIA_PREFIX", "engagement-photos/")
	v.SetDefault("MAX_UPLOAD_BYTES", 40<<20)
	v.SetDefault("PRESIGN_TTL", time.Hour)
	v.SetDefault("LIST_DEFAULT_MAX_KEYS", 50)
	v.SetDefault("STORE_DRIVER", DriverS3)
	v.SetDefault("STORE_REGION", "auto")
	v.SetDefault("STORE_USE_PATH_STYLE", false)
	v.SetDefault("STORE_TIMEOUT", 60*time.Second)
	v.SetDefault("NAMING_CONFLICT_CHECK", true)
	v.SetDefault("UPLOAD_RATE_LIMIT", 0)

	p := &parser{v: v}
	cfg := &Config{
		Port:   v.GetString("PORT"),
		AppEnv: v.GetString("APP_ENV"),
		Store: StoreConfig{
			Driver:          strings.ToLower(v.GetString("STORE_DRIVER")),
			AccessKeyID:     strings.TrimSpace(v.GetString(EnvAccessKeyID)),
			SecretAccessKey: strings.TrimSpace(v.GetString(EnvSecretAccessKey)),
			Endpoint:        strings.TrimSpace(v.GetString(EnvEndpoint)),
			Bucket:          strings.TrimSpace(v.GetString(EnvBucketName)),
			Region:          v.GetString("STORE_REGION"),
			UsePathStyle:    p.getBool("STORE_USE_PATH_STYLE"),
			Timeout:         p.getDuration("STORE_TIMEOUT"),
			PublicURL:       strings.TrimRight(strings.TrimSpace(v.GetString(EnvPublicURL)), "/"),
		},
		MediaPrefix:         NormalizePrefix(v.GetString("MEDIA_PREFIX")),
		MaxUploadBytes:      p.getInt64("MAX_UPLOAD_BYTES"),
		PresignTTL:          p.getDuration("PRESIGN_TTL"),
		ListDefaultMaxKeys:  p.getInt("LIST_DEFAULT_MAX_KEYS"),
		NamingConflictCheck: p.getBool("NAMING_CONFLICT_CHECK"),
		UploadRateLimit:     p.getInt("UPLOAD_RATE_LIMIT"),
		DotEnvLoaded:        envErr == nil,
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 40 << 20
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = time.Hour
	}
	if cfg.ListDefaultMaxKeys <= 0 || cfg.ListDefaultMaxKeys > MaxListKeys {
		cfg.ListDefaultMaxKeys = 50
	}
	return cfg, nil
}

// NormalizePrefix trims surrounding spaces and leading slashes and makes a
// non-empty prefix end in exactly one "/", so keys and folder markers built
// from it always sit under a folder.
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// parser converts typed values and collects every failure, keyed by name.
type parser struct {
	v    *viper.Viper
	errs []error
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, p.v.GetString(key), err))
}

func (p *parser) getDuration(key string) time.Duration {
	d, err := cast.ToDurationE(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
	}
	return d
}

func (p *parser) getInt(key string) int {
	n, err := cast.ToIntE(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
	}
	return n
}

func (p *parser) getInt64(key string) int64 {
	n, err := cast.ToInt64E(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
	}
	return n
}

func (p *parser) getBool(key string) bool {
	b, err := cast.ToBoolE(p.v.Get(key))
	if err != nil {
		p.fail(key, err)
	}
	return b
}

// IsDevelopment reports whether verbose logging and gin debug mode apply.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MissingKeys returns the required keys that are empty, in a fixed order.
func (c *Config) MissingKeys() []string {
	required := []struct {
		key   string
		value string
	}{
		{EnvAccessKeyID, c.Store.AccessKeyID},
		{EnvSecretAccessKey, c.Store.SecretAccessKey},
		{EnvEndpoint, c.Store.Endpoint},
		{EnvBucketName, c.Store.Bucket},
		{EnvPublicURL, c.Store.PublicURL},
	}
	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.key)
		}
	}
	return missing
}

// Validate returns a *utils.ConfigError naming every missing required key.
func (c *Config) Validate() error {
	if missing := c.MissingKeys(); len(missing) > 0 {
		return &utils.ConfigError{Missing: missing}
	}
	return nil
}
