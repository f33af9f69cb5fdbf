package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Remux     RemuxConfig     `yaml:"remux"`
	Worker    WorkerConfig    `yaml:"worker"`
	Queue     QueueConfig     `yaml:"queue"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
}

// WorkspaceConfig holds temporary-file workspace configuration.
type WorkspaceConfig struct {
	BaseDir string `yaml:"base_dir" envconfig:"WORKSPACE_DIR"`
}

// FetchConfig holds remote fetch configuration.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout" envconfig:"FETCH_TIMEOUT"`
	UserAgent string        `yaml:"user_agent" envconfig:"FETCH_USER_AGENT"`
}

// RemuxConfig holds external transcoding tool configuration.
type RemuxConfig struct {
	// ToolPath is the absolute path to the remux executable.
	// Empty means resolve "ffmpeg" from PATH at request time.
	ToolPath     string `yaml:"tool_path" envconfig:"REMUX_TOOL_PATH"`
	TargetFormat string `yaml:"target_format" envconfig:"REMUX_TARGET_FORMAT"`
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"WORKER_MAX_RETRIES"`
}

// QueueConfig holds job queue configuration.
type QueueConfig struct {
	// DBPath is the SQLite database file for job persistence.
	// Empty selects the in-memory queue.
	DBPath string `yaml:"db_path" envconfig:"QUEUE_DB_PATH"`
}

// defaultConfig seeds every defaulted field. Defaults are applied in code
// rather than envconfig struct tags so YAML values survive the env pass:
// precedence is defaults < file < environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         9614,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Workspace: WorkspaceConfig{
			BaseDir: "/data/remuxd/tmp",
		},
		Fetch: FetchConfig{
			Timeout:   10 * time.Minute,
			UserAgent: "remuxd/1.0",
		},
		Remux: RemuxConfig{
			TargetFormat: "webm",
		},
		Worker: WorkerConfig{
			Count:        2,
			PollInterval: 2 * time.Second,
			MaxRetries:   0,
		},
	}
}

// Load reads configuration from file and environment variables.
// Environment variables override file values, which override defaults.
func Load(configPath string) (*Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables. Fields without a set env var
	// are left untouched.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Workspace.BaseDir == "" {
		return fmt.Errorf("WORKSPACE_DIR is required")
	}
	if c.Remux.TargetFormat == "" {
		return fmt.Errorf("REMUX_TARGET_FORMAT is required")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
