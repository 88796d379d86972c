package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Store     StoreConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds the generation pipeline settings. RunTTL sets
// how long a run is retained for async polling. MaxSelectedCourses,
// ValidationFixedMax and UploadMaxSizeBytes are loaded but not read by
// the pipeline, which uses its own built-in selection cap (7) and
// validator ceiling (2m).
type SchedulerConfig struct {
	RunTTL             time.Duration
	MaxSelectedCourses int
	ValidationFixedMax time.Duration
	UploadMaxSizeBytes int64
}

// StoreConfig holds settings for the per-run in-memory SQL store backing
// the SQL-predicate filter mode. QueryTimeout is loaded but not applied
// by the store.
type StoreConfig struct {
	QueryTimeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		RunTTL:             parseDuration(v.GetString("SCHEDULER_RUN_TTL"), 30*time.Minute),
		MaxSelectedCourses: v.GetInt("SCHEDULER_MAX_SELECTED_COURSES"),
		ValidationFixedMax: parseDuration(v.GetString("SCHEDULER_VALIDATION_FIXED_MAX"), 2*time.Minute),
		UploadMaxSizeBytes: v.GetInt64("SCHEDULER_UPLOAD_MAX_SIZE_BYTES"),
	}

	cfg.Store = StoreConfig{
		QueryTimeout: parseDuration(v.GetString("STORE_QUERY_TIMEOUT"), 5*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_RUN_TTL", "30m")
	v.SetDefault("SCHEDULER_MAX_SELECTED_COURSES", 7)
	v.SetDefault("SCHEDULER_VALIDATION_FIXED_MAX", "2m")
	v.SetDefault("SCHEDULER_UPLOAD_MAX_SIZE_BYTES", 5*1024*1024)

	v.SetDefault("STORE_QUERY_TIMEOUT", "5s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
