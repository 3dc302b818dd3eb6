package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "messagedb-agent.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV. A .env
// file in the working directory is loaded into the environment first when
// present.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path. The YAML file
// is optional; a missing file is not an error.
func LoadFrom(yamlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg. Returns nil when
// the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg. Only non-empty values
// override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.MessageDB.Host, "DB_HOST")
	setInt(&cfg.MessageDB.Port, "DB_PORT")
	setString(&cfg.MessageDB.Database, "DB_NAME")
	setString(&cfg.MessageDB.User, "DB_USER")
	setString(&cfg.MessageDB.Password, "DB_PASSWORD")
	setInt32(&cfg.MessageDB.MaxConns, "DB_MAX_CONNS")
	setInt32(&cfg.MessageDB.MinConns, "DB_MIN_CONNS")

	setString(&cfg.LLM.Project, "LLM_PROJECT")
	setString(&cfg.LLM.Location, "LLM_LOCATION")
	setString(&cfg.LLM.ModelName, "MODEL_NAME")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setInt(&cfg.LLM.MaxRetries, "LLM_MAX_RETRIES")

	setInt(&cfg.Processing.MaxIterations, "MAX_ITERATIONS")
	setBool(&cfg.Processing.AutoApproveTools, "AUTO_APPROVE_TOOLS")
	setDuration(&cfg.Processing.ApprovalTimeout, "APPROVAL_TIMEOUT")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setBool(&cfg.Logging.Async, "LOG_ASYNC")

	setBool(&cfg.Tracing.Enabled, "ENABLE_TRACING")
	setString(&cfg.Tracing.Endpoint, "OTLP_ENDPOINT")
	setString(&cfg.Tracing.Service, "OTEL_SERVICE_NAME")

	setString(&cfg.HTTP.Port, "HTTP_PORT")
	setString(&cfg.HTTP.CORSOrigin, "CORS_ORIGIN")

	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.Enabled, "NATS_ENABLED")

	setInt(&cfg.Breaker.MaxFailures, "BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "BREAKER_TIMEOUT")
}

func validate(cfg *Config) error {
	if cfg.MessageDB.Host == "" {
		return errors.New("message db host is required")
	}
	if cfg.MessageDB.Port <= 0 || cfg.MessageDB.Port > 65535 {
		return fmt.Errorf("message db port must be 1-65535, got %d", cfg.MessageDB.Port)
	}
	if cfg.MessageDB.Database == "" {
		return errors.New("message db database is required")
	}
	if cfg.MessageDB.User == "" {
		return errors.New("message db user is required")
	}
	if cfg.LLM.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.Processing.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be > 0, got %d", cfg.Processing.MaxIterations)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", cfg.Logging.Format)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
