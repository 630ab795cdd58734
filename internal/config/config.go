package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	LogLevel           string
	DatabaseURL        string
	AutoMigrate        bool
	RedisURL           string
	NATSURL            string
	EventsChannel      string
	ExamCacheTTL       time.Duration
	PassingScore       int
	ImportMaxSizeBytes int64
	RunRateLimit       int
	RunRateWindow      time.Duration
	CORSAllowOrigins   string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODESARGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeSarge API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("events.channel", "codesarge:events")
	v.SetDefault("exam.cache_ttl", "10m")
	v.SetDefault("grading.passing_score", 60)
	v.SetDefault("import.max_size_kb", 512)
	v.SetDefault("run.rate_limit", 20)
	v.SetDefault("run.rate_window", "1m")
	v.SetDefault("cors.allow_origins", "*")

	cacheTTL, err := parseDuration(v.GetString("exam.cache_ttl"), 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid exam cache ttl: %w", err)
	}

	runWindow, err := parseDuration(v.GetString("run.rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid run rate window: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		LogLevel:           strings.ToLower(v.GetString("log.level")),
		DatabaseURL:        v.GetString("database.url"),
		AutoMigrate:        v.GetBool("database.auto_migrate"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		EventsChannel:      v.GetString("events.channel"),
		ExamCacheTTL:       cacheTTL,
		PassingScore:       v.GetInt("grading.passing_score"),
		ImportMaxSizeBytes: int64(v.GetInt("import.max_size_kb")) * 1024,
		RunRateLimit:       v.GetInt("run.rate_limit"),
		RunRateWindow:      runWindow,
		CORSAllowOrigins:   v.GetString("cors.allow_origins"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.PassingScore < 0 || cfg.PassingScore > 100 {
		return Config{}, fmt.Errorf("passing score must be between 0 and 100, got %d", cfg.PassingScore)
	}

	if cfg.ImportMaxSizeBytes <= 0 {
		cfg.ImportMaxSizeBytes = 512 * 1024
	}

	if cfg.RunRateLimit <= 0 {
		cfg.RunRateLimit = 20
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
