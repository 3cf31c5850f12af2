package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadreport/internal/config"
	applog "roadreport/internal/log"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = SetupLogger(&config.Config{LogLevel: "nonsense"})
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "8090")
	t.Setenv("DATA_BACKEND", "memory")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8090", cfg.Port)

	t.Setenv("DATA_BACKEND", "paper")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "invalid data backend")
}

func TestShutdownOnSignal(t *testing.T) {
	sig := make(chan os.Signal, 1)
	cleaned := make(chan struct{})

	ctx, done := shutdownOn(sig, quietLogger(), time.Second, func(ctx context.Context) {
		assert.NoError(t, ctx.Err())
		close(cleaned)
	})

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before signal")
	default:
	}

	sig <- syscall.SIGTERM

	finished := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, done)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	_, ok := <-cleaned
	assert.False(t, ok, "cleanup ran")
}
