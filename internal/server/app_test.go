package server

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/server/config"
	"github.com/dmitrijs2005/guestkeeper/internal/server/keys"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.DatabaseDSN = "sqlite://" + filepath.Join(dir, "guest.db")
	c.KeyDir = filepath.Join(dir, "keys")
	c.LogLevel = "error"
	return c
}

func TestNewApp_GeneratesKeyAndStops(t *testing.T) {
	c := testConfig(t)

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(c.KeyDir, keys.PrivateKeyFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(c.KeyDir, keys.PublicKeyFile))
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}

func TestNewApp_CorruptKeyIsFatal(t *testing.T) {
	c := testConfig(t)
	require.NoError(t, os.MkdirAll(c.KeyDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(c.KeyDir, keys.PrivateKeyFile), []byte("not a key"), 0o600))

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "key manager error")
}

func TestNewApp_Errors(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDSN = "mysql://nope"
	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "db init error")

	c = testConfig(t)
	c.KeyStorage = "floppy"
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "unknown key storage")
}

func TestNewApp_GinModeFollowsLogLevel(t *testing.T) {
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	for level, want := range map[string]string{"debug": gin.DebugMode, "info": gin.ReleaseMode, "error": gin.ReleaseMode} {
		c := testConfig(t)
		c.LogLevel = level
		c.DatabaseDSN = "mysql://nope"
		_, err := NewApp(context.Background(), c)
		require.Error(t, err)
		assert.Equal(t, want, gin.Mode(), level)
	}
}

func TestNewKeyStorage(t *testing.T) {
	ctx := context.Background()

	s, err := newKeyStorage(ctx, &config.Config{KeyStorage: config.KeyStorageFile, KeyDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &keys.FileStorage{}, s)

	s, err = newKeyStorage(ctx, &config.Config{
		KeyStorage: config.KeyStorageS3, S3Region: "us-east-1", S3Bucket: "b",
		S3RootUser: "minio", S3RootPassword: "minio123", S3BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.IsType(t, &keys.S3Storage{}, s)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}
