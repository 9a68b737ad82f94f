package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "test")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GIN_MODE", "release")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	t.Run("duration", func(t *testing.T) {
		t.Setenv("JWT_TTL", "forever")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_TTL")
	})

	t.Run("driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		_, err := Load()
		assert.ErrorContains(t, err, "STORE_DRIVER")
	})

	t.Run("upload size", func(t *testing.T) {
		t.Setenv("MAX_UPLOAD_BYTES", "-5")
		_, err := Load()
		assert.ErrorContains(t, err, "MAX_UPLOAD_BYTES")
	})
}

func TestLoadRequiresSecretInRelease(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GIN_MODE", "release")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}
