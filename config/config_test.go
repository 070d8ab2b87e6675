package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/config"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		config.EnvDatabaseDSN,
		config.EnvDBDriver,
		config.EnvHTTPAddr,
		config.EnvLogLevel,
		config.EnvLogFormat,
		config.EnvMaxListDepth,
		config.EnvTimezone,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func Test_Load_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, config.DriverPGX, cfg.DBDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, config.LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, 0, cfg.MaxListDepth)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.NotEmpty(t, cfg.DatabaseDSN)
}

func Test_Load_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvDatabaseDSN, "postgres://u:p@db:5432/lists")
	t.Setenv(config.EnvDBDriver, "SQLX")
	t.Setenv(config.EnvHTTPAddr, "127.0.0.1:9000")
	t.Setenv(config.EnvLogLevel, "debug")
	t.Setenv(config.EnvLogFormat, "text")
	t.Setenv(config.EnvMaxListDepth, "12")
	t.Setenv(config.EnvTimezone, "Africa/Nairobi")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/lists", cfg.DatabaseDSN)
	assert.Equal(t, config.DriverSQLX, cfg.DBDriver)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, config.LogFormatText, cfg.LogFormat)
	assert.Equal(t, 12, cfg.MaxListDepth)
	assert.Equal(t, "Africa/Nairobi", cfg.Location.String())
}

func Test_Load_FromEnvFile_DoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, strings.Join([]string{
		config.EnvDBDriver + "=sql",
		config.EnvHTTPAddr + "=:7000",
	}, "\n"))
	t.Setenv(config.EnvHTTPAddr, ":6000")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, config.DriverSQL, cfg.DBDriver)
	assert.Equal(t, ":6000", cfg.HTTPAddr)
}

func Test_Load_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{name: "driver", key: config.EnvDBDriver, value: "mysql", wantErr: config.ErrInvalidDBDriver},
		{name: "log_level", key: config.EnvLogLevel, value: "loud", wantErr: config.ErrInvalidLogLevel},
		{name: "log_format", key: config.EnvLogFormat, value: "xml", wantErr: config.ErrInvalidLogFormat},
		{name: "max_depth_not_a_number", key: config.EnvMaxListDepth, value: "deep", wantErr: config.ErrInvalidMaxListDepth},
		{name: "max_depth_negative", key: config.EnvMaxListDepth, value: "-1", wantErr: config.ErrInvalidMaxListDepth},
		{name: "timezone", key: config.EnvTimezone, value: "Mars/Olympus", wantErr: config.ErrInvalidTimezone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func Test_Load_MissingExplicitEnvFile_Fails(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.ErrorIs(t, err, config.ErrLoadingEnvFileFailed)
}

func Test_NewLogger_RespectsLevel(t *testing.T) {
	var sb strings.Builder
	cfg := config.Config{LogLevel: slog.LevelWarn, LogFormat: config.LogFormatText}

	logger := cfg.NewLogger(&sb)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, sb.String(), "hidden")
	assert.Contains(t, sb.String(), "msg=shown")
}

func Test_PostgresPGXPoolConfig(t *testing.T) {
	poolConfig, err := config.PostgresPGXPoolConfig("postgres://u:p@localhost:5432/lists?sslmode=disable")

	require.NoError(t, err)
	assert.Equal(t, int32(50), poolConfig.MaxConns)
	assert.Equal(t, "lists", poolConfig.ConnConfig.Database)

	_, err = config.PostgresPGXPoolConfig("://not a dsn")
	assert.Error(t, err)
}

func Test_OpenEngine_UnknownDriver(t *testing.T) {
	_, _, err := config.OpenEngine(context.Background(), "oracle", "dsn")

	assert.ErrorIs(t, err, config.ErrInvalidDBDriver)
}
