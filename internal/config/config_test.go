package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MemoryDefaults(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "debug", cfg.GinMode)
	assert.Equal(t, BackendMemory, cfg.RemoteBackend)
	assert.Equal(t, 2*time.Second, cfg.RTDBPollInterval)
	assert.Equal(t, "storefront.orders", cfg.OrderEventsQueue)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.MailEnabled())
}

func TestLoadConfig_FirestoreNeedsProject(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "firestore")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := LoadConfig()
	assert.EqualError(t, err, "FIREBASE_PROJECT_ID is required")
}

func TestLoadConfig_RTDBNeedsDatabaseURL(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "rtdb")
	t.Setenv("FIREBASE_PROJECT_ID", "shop")
	t.Setenv("FIREBASE_DATABASE_URL", "")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("FIREBASE_DATABASE_URL", "https://shop.firebaseio.com")
	t.Setenv("RTDB_POLL_INTERVAL", "500ms")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.RTDBPollInterval)
	assert.True(t, cfg.UsesFirebase())
}

func TestLoadConfig_UnknownBackend(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "mongo")

	_, err := LoadConfig()
	assert.EqualError(t, err, "unknown REMOTE_BACKEND 'mongo'")
}

func TestLoadConfig_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(file, []byte("REMOTE_BACKEND: redis\nREDIS_ADDRESS: cache:6380\nPORT: \"9090\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("PORT", "7070")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.RemoteBackend)
	assert.Equal(t, "cache:6380", cfg.RedisAddress)
	assert.Equal(t, "7070", cfg.Port)
}
