package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaultValidatesWithUsers(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate())

	cfg.Auth.Users = []string{"alice:s3cret"}
	require.NoError(t, cfg.Validate())
	require.Equal(t, BackendLocal, cfg.Storage.Backend)
	require.Equal(t, 15*time.Minute, cfg.Attachments.UploadTTL)
	require.Equal(t, time.Hour, cfg.Attachments.ReadTTL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthtrack.toml")
	content := `
listen = "0.0.0.0:9000"
log_level = "debug"

[storage]
backend = "s3"
endpoint = "minio:9000"
bucket = "records"
access_key_id = "minioadmin"
secret_access_key = "minioadmin"
public_base_url = "https://files.example.com/records/"

[auth]
users = ["alice:s3cret"]

[attachments]
upload_ttl = "5m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "0.0.0.0:9000", cfg.Listen)
	require.Equal(t, BackendS3, cfg.Storage.Backend)
	require.Equal(t, "minio:9000", cfg.Storage.Endpoint)
	require.Equal(t, DefaultRegion, cfg.Storage.Region)
	require.Equal(t, "https://files.example.com/records", cfg.Storage.PublicBaseURL)
	require.Equal(t, 5*time.Minute, cfg.Attachments.UploadTTL)
	require.Equal(t, DefaultReadTTL, cfg.Attachments.ReadTTL)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, log.DebugLevel, level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("listen = "), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(fakeEnv(map[string]string{
		"HEALTHTRACK_STORAGE_BACKEND": "S3",
		"HEALTHTRACK_STORAGE_SECURE":  "true",
		"HEALTHTRACK_AUTH_USERS":      "alice:a, bob:b",
		"HEALTHTRACK_READ_TTL":        "30m",
	}))
	require.NoError(t, err)
	cfg.normalize()

	require.Equal(t, BackendS3, cfg.Storage.Backend)
	require.True(t, cfg.Storage.Secure)
	require.Equal(t, []string{"alice:a", "bob:b"}, cfg.Auth.Users)
	require.Equal(t, 30*time.Minute, cfg.Attachments.ReadTTL)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	for _, vars := range []map[string]string{
		{"HEALTHTRACK_STORAGE_SECURE": "maybe"},
		{"HEALTHTRACK_UPLOAD_TTL": "soon"},
	} {
		cfg := Default()
		require.Error(t, cfg.applyEnv(fakeEnv(vars)))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no listen", mutate: func(c *Config) { c.Listen = "" }},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "chatty" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "ftp" }},
		{name: "s3 without endpoint", mutate: func(c *Config) { c.Storage.Backend = BackendS3 }},
		{name: "relative public url", mutate: func(c *Config) { c.Storage.PublicBaseURL = "/files" }},
		{name: "bad user entry", mutate: func(c *Config) { c.Auth.Users = []string{"alice"} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.Users = []string{"alice:s3cret"}
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
