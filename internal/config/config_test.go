package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("IAM_APIKEY", "key")
	for _, k := range []string{"HOST", "PORT", "MODEL_ID", "STREAM_CHUNK_SIZE", "STREAM_CHUNK_DELAY", "BACKEND_TIMEOUT", "TOKEN_CACHE"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, DefaultModelID, cfg.ModelID)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultChunkDelay, cfg.ChunkDelay)
	assert.Equal(t, DefaultBackendTO, cfg.BackendTimeout)
	assert.Equal(t, "memory", cfg.TokenCache)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "8081")
	t.Setenv("STREAM_CHUNK_SIZE", "5")
	t.Setenv("STREAM_CHUNK_DELAY", "0s")
	t.Setenv("BACKEND_TIMEOUT", "90s")
	t.Setenv("TOKEN_CACHE", "none")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8081", cfg.Addr())
	assert.Equal(t, 5, cfg.ChunkSize)
	assert.Zero(t, cfg.ChunkDelay)
	assert.Equal(t, 90*time.Second, cfg.BackendTimeout)
	assert.Equal(t, "none", cfg.TokenCache)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero chunk size", "STREAM_CHUNK_SIZE", "0"},
		{"non numeric chunk size", "STREAM_CHUNK_SIZE", "twenty"},
		{"bad duration", "BACKEND_TIMEOUT", "soon"},
		{"unknown token cache", "TOKEN_CACHE", "memcached"},
		{"bad bool", "SOFT_START", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	t.Setenv("IAM_APIKEY", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingAPIKey)
	assert.False(t, cfg.HasAPIKey())

	cfg.SoftStart = true
	assert.NoError(t, cfg.RequireAPIKey())
}

// unsetenv removes key for the duration of the test so a .env file can set it.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("IAM_APIKEY=from-dotenv\nENV=dev\nLOG_LEVEL=debug\nPORT=6000\n"), 0o600))
	t.Chdir(dir)

	for _, k := range []string{"IAM_APIKEY", "ENV", "LOG_LEVEL", "PORT"} {
		unsetenv(t, k)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.APIKey)
	assert.Equal(t, "6000", cfg.Port)
	opts := cfg.LoggingOptions()
	assert.Equal(t, "dev", opts.Env)
	assert.Equal(t, "debug", opts.Level)
}

func TestLoadWithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	unsetenv(t, "LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.LoggingOptions().Level)
}
