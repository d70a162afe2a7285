// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment profiles.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// Load reads .env, configs/config.yaml and configs/config.<APP_ENVIRONMENT>.yaml, then
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = EnvDevelopment
	}

	v := newViper(env)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // the profile file is optional

	return finish(v, env)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = EnvDevelopment
	}

	v := newViper(env)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v, env)
}

func newViper(env string) *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, env)
	return v
}

func finish(v *viper.Viper, env string) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key with viper so environment variables such as
// STORAGE_BACKEND or NOTIFICATIONS_ENABLED override them.
func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("app.name", "hosting-assessment")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", env)

	v.SetDefault("catalog.path", "")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.file.data_dir", "assessment_data")
	v.SetDefault("storage.sqlite.path", "assessments.db")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.key_prefix", "assessment:")

	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.elasticsearch.enabled", false)
	v.SetDefault("database.elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("database.elasticsearch.index", "assessments")

	v.SetDefault("notifications.enabled", env == EnvProduction)
	v.SetDefault("notifications.from_email", "")
	v.SetDefault("notifications.reviewer_email", "")
	v.SetDefault("notifications.review_base_url", "http://localhost:8080")
	v.SetDefault("notifications.aws_region", "us-east-1")
	v.SetDefault("notifications.sns_topic_arn", "")
	v.SetDefault("notifications.max_retries", 3)
	v.SetDefault("notifications.timeout", 10000)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.address", ":8080")
	v.SetDefault("api.body_limit", 1<<20)
	v.SetDefault("api.read_timeout", 10000)
	v.SetDefault("api.write_timeout", 10000)

	v.SetDefault("camunda.enabled", false)
	v.SetDefault("camunda.broker_address", "localhost:26500")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", ":9090")

	switch env {
	case EnvProduction:
		v.SetDefault("logging.level", "info")
		v.SetDefault("logging.format", "json")
	case EnvTesting:
		v.SetDefault("storage.backend", BackendMemory)
		v.SetDefault("logging.level", "warn")
		v.SetDefault("logging.format", "console")
	default:
		v.SetDefault("logging.level", "debug")
		v.SetDefault("logging.format", "console")
	}
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values. Unset variables expand
// to the empty string so required-field validation still fires.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the environment variable names used by earlier
// deployments of the assessment tool.
func overrideEmptyConfig(cfg *Config) {
	override := func(target *string, names ...string) {
		for _, name := range names {
			if val := os.Getenv(name); val != "" {
				*target = val
				return
			}
		}
	}

	if cfg.Notifications.ReviewerEmail == "" {
		override(&cfg.Notifications.ReviewerEmail, "EOTSS_EMAIL", "REVIEWER_EMAIL")
	}
	if cfg.Notifications.FromEmail == "" {
		override(&cfg.Notifications.FromEmail, "MAIL_DEFAULT_SENDER")
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		cfg.Storage.File.DataDir = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = strings.ToLower(val)
	}
	if cfg.Database.Postgres.User == "" {
		override(&cfg.Database.Postgres.User, "DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		override(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	}
}

// applyDefaults fills values that cannot be expressed as viper defaults.
func applyDefaults(cfg *Config) {
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Camunda.MaxRetries == 0 {
		cfg.Camunda.MaxRetries = 5
	}
	if cfg.Camunda.RetryDelay == 0 {
		cfg.Camunda.RetryDelay = 2000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.PoolSize == 0 {
		cfg.Database.Redis.PoolSize = 10
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	if cfg.Workers == nil {
		cfg.Workers = map[string]WorkerConfig{}
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig checks only what the selected backends need.
func validateConfig(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if cfg.Storage.File.DataDir == "" {
			return fmt.Errorf("storage.file.data_dir is required for the file backend")
		}
	case BackendSQLite:
		if cfg.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	case BackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", cfg.Storage.Backend)
	}

	if cfg.Cache.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when cache is enabled")
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when search is enabled")
	}
	if cfg.Notifications.Enabled {
		if cfg.Notifications.FromEmail == "" {
			return fmt.Errorf("notifications.from_email is required when notifications are enabled")
		}
		if cfg.Notifications.ReviewerEmail == "" {
			return fmt.Errorf("notifications.reviewer_email is required when notifications are enabled")
		}
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
