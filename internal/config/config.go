// Package config provides hierarchical configuration loading.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"fmt"
	"time"
)

// Config holds all runtime configuration for the agent.
type Config struct {
	MessageDB  MessageDB  `yaml:"message_db"`
	LLM        LLM        `yaml:"llm"`
	Processing Processing `yaml:"processing"`
	Logging    Logging    `yaml:"logging"`
	Tracing    Tracing    `yaml:"tracing"`
	HTTP       HTTP       `yaml:"http"`
	NATS       NATS       `yaml:"nats"`
	Breaker    Breaker    `yaml:"breaker"`
}

// MessageDB holds the Message DB (Postgres) connection configuration.
type MessageDB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// LLM holds provider selection and credentials for the model adapter.
type LLM struct {
	Project    string `yaml:"project"`  // provider project (managed platforms)
	Location   string `yaml:"location"` // provider region
	ModelName  string `yaml:"model_name"`
	BaseURL    string `yaml:"base_url"` // chat-completions compatible endpoint
	APIKey     string `yaml:"api_key"`
	MaxRetries int    `yaml:"max_retries"`
}

// Processing holds engine loop configuration.
type Processing struct {
	MaxIterations    int           `yaml:"max_iterations"`
	AutoApproveTools bool          `yaml:"auto_approve_tools"`
	ApprovalTimeout  time.Duration `yaml:"approval_timeout"`
	ApprovalPoll     time.Duration `yaml:"approval_poll"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Async  bool   `yaml:"async"`
}

// Tracing holds the OpenTelemetry toggle and exporter target.
type Tracing struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // OTLP gRPC endpoint
	Service  string `yaml:"service"`
}

// HTTP holds the serve-mode listener configuration.
type HTTP struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// NATS holds the optional event broadcast configuration.
type NATS struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Breaker holds circuit breaker configuration for LLM HTTP calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Defaults returns a Config with sensible values for local development.
func Defaults() Config {
	return Config{
		MessageDB: MessageDB{
			Host:     "localhost",
			Port:     5432,
			Database: "message_store",
			User:     "message_store",
			MaxConns: 10,
			MinConns: 2,
		},
		LLM: LLM{
			Location:   "us-central1",
			ModelName:  "claude-sonnet-4-5",
			MaxRetries: 2,
		},
		Processing: Processing{
			MaxIterations:    100,
			AutoApproveTools: true,
			ApprovalTimeout:  5 * time.Minute,
			ApprovalPoll:     500 * time.Millisecond,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Tracing: Tracing{
			Endpoint: "localhost:4317",
			Service:  "messagedb-agent",
		},
		HTTP: HTTP{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
	}
}

// DSN renders the keyword/value connection string pgx and goose consume.
func (m MessageDB) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		m.Host, m.Port, m.Database, m.User, m.Password)
}
