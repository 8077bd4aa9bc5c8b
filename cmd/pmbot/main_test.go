package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"pm-bot/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "seed", "scan"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	dev := &config.Config{App: config.AppConfig{Name: "pm-bot", Environment: "development"}}
	prod := &config.Config{App: config.AppConfig{Name: "pm-bot", Environment: "production"}}

	log, err := newLogger(dev, false)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = newLogger(prod, false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = newLogger(prod, true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestSeedAndScanCommands(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(t.TempDir(), "pm.db"))
	t.Setenv("TZ", "UTC")
	t.Setenv("REDIS_ADDR", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)

	rootCmd.SetArgs([]string{"seed"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Seeded demo project #1")

	out.Reset()
	rootCmd.SetArgs([]string{"scan"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "overdue=0 due_soon=0 marked=0\n", out.String())
}
