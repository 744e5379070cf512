package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

const (
	DefaultListen    = "127.0.0.1:8080"
	DefaultLogLevel  = "info"
	DefaultDataDir   = "data"
	DefaultRegion    = "us-east-1"
	DefaultBucket    = "health-records"
	DefaultUploadTTL = 15 * time.Minute
	DefaultReadTTL   = time.Hour

	BackendS3    = "s3"
	BackendLocal = "local"

	envPrefix = "HEALTHTRACK_"
)

// StorageConfig selects and configures the object store holding attachments.
type StorageConfig struct {
	Backend         string `toml:"backend"`
	Endpoint        string `toml:"endpoint"`
	Region          string `toml:"region"`
	Bucket          string `toml:"bucket"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Secure          bool   `toml:"secure"`

	// PublicBaseURL is the prefix of the file URLs persisted on events. When
	// empty it is derived from the backend.
	PublicBaseURL string `toml:"public_base_url"`

	// LocalSecret signs URLs of the local backend.
	LocalSecret string `toml:"local_secret"`
}

type AuthConfig struct {
	// Users holds "id:password" pairs accepted with HTTP Basic auth.
	Users []string `toml:"users"`

	// TrustedHeader names a header set by an authenticating proxy.
	TrustedHeader string `toml:"trusted_header"`
}

type AttachmentConfig struct {
	UploadTTL time.Duration `toml:"upload_ttl"`
	ReadTTL   time.Duration `toml:"read_ttl"`
}

// Config defines runtime configuration for healthtrack.
type Config struct {
	Listen      string           `toml:"listen"`
	LogLevel    string           `toml:"log_level"`
	DataDir     string           `toml:"data_dir"`
	Storage     StorageConfig    `toml:"storage"`
	Auth        AuthConfig       `toml:"auth"`
	Attachments AttachmentConfig `toml:"attachments"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		Listen:   DefaultListen,
		LogLevel: DefaultLogLevel,
		DataDir:  DefaultDataDir,
		Storage: StorageConfig{
			Backend: BackendLocal,
			Region:  DefaultRegion,
			Bucket:  DefaultBucket,
		},
		Attachments: AttachmentConfig{
			UploadTTL: DefaultUploadTTL,
			ReadTTL:   DefaultReadTTL,
		},
	}
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

// Load reads the TOML file at path, if any, and applies HEALTHTRACK_*
// environment overrides. A path that was asked for explicitly must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		loaded, err := loadFileIfExists(path, &cfg)
		if err != nil {
			return nil, err
		}
		if !loaded {
			return nil, fmt.Errorf("config file %s not found", path)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.normalize()

	return &cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"LISTEN":                    &c.Listen,
		"LOG_LEVEL":                 &c.LogLevel,
		"DATA_DIR":                  &c.DataDir,
		"STORAGE_BACKEND":           &c.Storage.Backend,
		"STORAGE_ENDPOINT":          &c.Storage.Endpoint,
		"STORAGE_REGION":            &c.Storage.Region,
		"STORAGE_BUCKET":            &c.Storage.Bucket,
		"STORAGE_ACCESS_KEY_ID":     &c.Storage.AccessKeyID,
		"STORAGE_SECRET_ACCESS_KEY": &c.Storage.SecretAccessKey,
		"STORAGE_PUBLIC_BASE_URL":   &c.Storage.PublicBaseURL,
		"STORAGE_LOCAL_SECRET":      &c.Storage.LocalSecret,
		"AUTH_TRUSTED_HEADER":       &c.Auth.TrustedHeader,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup(envPrefix + "STORAGE_SECURE"); ok {
		secure, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sSTORAGE_SECURE: %w", envPrefix, err)
		}
		c.Storage.Secure = secure
	}

	if v, ok := lookup(envPrefix + "AUTH_USERS"); ok {
		c.Auth.Users = splitCSV(v)
	}

	durations := map[string]*time.Duration{
		"UPLOAD_TTL": &c.Attachments.UploadTTL,
		"READ_TTL":   &c.Attachments.ReadTTL,
	}
	for name, dst := range durations {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}
	return nil
}

func (c *Config) normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Region == "" {
		c.Storage.Region = DefaultRegion
	}
	if c.Attachments.UploadTTL <= 0 {
		c.Attachments.UploadTTL = DefaultUploadTTL
	}
	if c.Attachments.ReadTTL <= 0 {
		c.Attachments.ReadTTL = DefaultReadTTL
	}
	c.Storage.PublicBaseURL = strings.TrimSuffix(c.Storage.PublicBaseURL, "/")
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendS3:
		if c.Storage.Endpoint == "" {
			return fmt.Errorf("storage.endpoint is required for the s3 backend")
		}
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	case BackendLocal:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for the local backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (allowed: %s, %s)", c.Storage.Backend, BackendS3, BackendLocal)
	}

	if c.Storage.PublicBaseURL != "" {
		u, err := url.Parse(c.Storage.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("storage.public_base_url %q must be an absolute URL", c.Storage.PublicBaseURL)
		}
	}

	for _, entry := range c.Auth.Users {
		if id, pw, ok := strings.Cut(entry, ":"); !ok || id == "" || pw == "" {
			return fmt.Errorf("auth.users entry %q must be id:password", entry)
		}
	}
	if len(c.Auth.Users) == 0 && c.Auth.TrustedHeader == "" {
		return fmt.Errorf("no authentication configured: set auth.users or auth.trusted_header")
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (log.Level, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// DatabasePath is the SQLite file under DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "healthtrack.db")
}

// ObjectsDir is the root of the local object store under DataDir.
func (c *Config) ObjectsDir() string {
	return filepath.Join(c.DataDir, "store")
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
