package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"llmpoold/internal/common/fsutil"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr" validate:"required"`
	Strategy   string `json:"strategy" yaml:"strategy" toml:"strategy" validate:"oneof=thread process"`
	WorkersDir string `json:"workers_dir" yaml:"workers_dir" toml:"workers_dir"`

	MaxQueueDepth  int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth" validate:"gte=0"`
	MaxWaitMS      int `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms" validate:"gte=0"`
	StartTimeoutMS int `json:"start_timeout_ms" yaml:"start_timeout_ms" toml:"start_timeout_ms" validate:"gte=0"`
	StopTimeoutMS  int `json:"stop_timeout_ms" yaml:"stop_timeout_ms" toml:"stop_timeout_ms" validate:"gte=0"`
	// GenerateTimeoutMS bounds POST /workers/{id}/generate; 0 disables it.
	GenerateTimeoutMS int `json:"generate_timeout_ms" yaml:"generate_timeout_ms" toml:"generate_timeout_ms" validate:"gte=0"`

	// Process strategy: worker binary and arguments (default: this binary, "worker").
	WorkerCommand string   `json:"worker_command" yaml:"worker_command" toml:"worker_command"`
	WorkerArgs    []string `json:"worker_args" yaml:"worker_args" toml:"worker_args"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" validate:"omitempty,oneof=json console"`

	NATSURL     string `json:"nats_url" yaml:"nats_url" toml:"nats_url" validate:"omitempty,url"`
	NATSSubject string `json:"nats_subject" yaml:"nats_subject" toml:"nats_subject"`

	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	TraceStdout bool     `json:"trace_stdout" yaml:"trace_stdout" toml:"trace_stdout"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultAddr        = ":8080"
	DefaultStrategy    = "thread"
	DefaultNATSSubject = "llmpool.events"
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if err := fsutil.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = DefaultAddr
	}
	if strings.TrimSpace(c.Strategy) == "" {
		c.Strategy = DefaultStrategy
	}
	c.Strategy = strings.ToLower(c.Strategy)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.NATSSubject == "" {
		c.NATSSubject = DefaultNATSSubject
	}
}

var validate = validator.New()

// Validate checks field constraints. Call after ApplyDefaults.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
