package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("CODESARGE_DATABASE_URL", "sqlite://codesarge.db")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "CodeSarge API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 60, cfg.PassingScore)
	require.Equal(t, 10*time.Minute, cfg.ExamCacheTTL)
	require.Equal(t, int64(512*1024), cfg.ImportMaxSizeBytes)
	require.Equal(t, time.Minute, cfg.RunRateWindow)
	require.True(t, cfg.AutoMigrate)
	require.Equal(t, "codesarge:events", cfg.EventsChannel)
	require.Equal(t, "*", cfg.CORSAllowOrigins)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("CODESARGE_DATABASE_URL", "postgres://localhost/codesarge")
	t.Setenv("CODESARGE_APP_PORT", ":9090")
	t.Setenv("CODESARGE_GRADING_PASSING_SCORE", "75")
	t.Setenv("CODESARGE_EXAM_CACHE_TTL", "30s")
	t.Setenv("CODESARGE_RUN_RATE_LIMIT", "3")
	t.Setenv("CODESARGE_CORS_ALLOW_ORIGINS", "https://exams.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 75, cfg.PassingScore)
	require.Equal(t, 30*time.Second, cfg.ExamCacheTTL)
	require.Equal(t, 3, cfg.RunRateLimit)
	require.Equal(t, "https://exams.example.com", cfg.CORSAllowOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("CODESARGE_DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("CODESARGE_DATABASE_URL", "sqlite://codesarge.db")
	t.Setenv("CODESARGE_GRADING_PASSING_SCORE", "140")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("CODESARGE_GRADING_PASSING_SCORE", "60")
	t.Setenv("CODESARGE_EXAM_CACHE_TTL", "soon")
	_, err = Load()
	require.Error(t, err)
}
