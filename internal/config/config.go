// Package config loads the toolflow configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/toolflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the file read when no --config flag is given.
const DefaultPath = "toolflow.yaml"

// Config is the whole configuration file.
type Config struct {
	Provider    string        `yaml:"provider" json:"provider"`
	Model       string        `yaml:"model" json:"model"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	LogLevel    string        `yaml:"log_level" json:"log_level"`
	MetricsAddr string        `yaml:"metrics_addr" json:"metrics_addr"`
	Servers     []Server      `yaml:"servers" json:"servers"`
	Answer      AnswerConfig  `yaml:"answer" json:"answer"`
	Retry       RetryConfig   `yaml:"retry" json:"retry"`
	Timeouts    TimeoutConfig `yaml:"timeouts" json:"timeouts"`
}

// Server describes one tool server process. In the file it is either a plain
// command line string or a mapping.
type Server struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
}

// UnmarshalYAML accepts both "python3 server.py" and {command: python3, args: [server.py]}.
func (s *Server) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		spec, err := domain.ParseLaunchSpec(node.Value)
		if err != nil {
			return err
		}
		*s = Server{Command: spec.Command, Args: spec.Args}
		return nil
	}
	type plain Server
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Server(p)
	return nil
}

// LaunchSpec converts the entry into a launch spec. Env entries are sorted by key.
func (s Server) LaunchSpec() domain.LaunchSpec {
	spec := domain.LaunchSpec{Command: s.Command, Args: s.Args}
	if len(spec.Args) == 0 {
		// A single string may still carry arguments.
		if parsed, err := domain.ParseLaunchSpec(s.Command); err == nil {
			spec = parsed
		}
	}
	keys := make([]string, 0, len(s.Environment))
	for k := range s.Environment {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		spec.Env = append(spec.Env, k+"="+s.Environment[k])
	}
	return spec
}

// AnswerConfig selects where answers are written.
type AnswerConfig struct {
	File    string      `yaml:"file" json:"file"`
	Console bool        `yaml:"console" json:"console"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig enables the Redis sink when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	History  int           `yaml:"history" json:"history"`
}

// RetryConfig controls the model-facing stages.
type RetryConfig struct {
	Attempts int           `yaml:"attempts" json:"attempts"`
	Wait     time.Duration `yaml:"wait" json:"wait"`
}

// TimeoutConfig bounds the tool server sessions.
type TimeoutConfig struct {
	Handshake time.Duration `yaml:"handshake" json:"handshake"`
	Request   time.Duration `yaml:"request" json:"request"`
	Shutdown  time.Duration `yaml:"shutdown" json:"shutdown"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Provider: "gemini",
		LogLevel: "info",
		Answer: AnswerConfig{
			File:    "answer.md",
			Console: true,
		},
		Retry: RetryConfig{
			Attempts: 3,
			Wait:     time.Second,
		},
		Timeouts: TimeoutConfig{
			Handshake: 30 * time.Second,
			Request:   60 * time.Second,
			Shutdown:  2 * time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults only when
// path is the default one; an explicitly requested file must exist.
// JSON files are accepted too, being valid YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Validate checks values that cannot be fixed by defaults.
func (c Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case "gemini", "claude", "openai":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	for i, s := range c.Servers {
		if strings.TrimSpace(s.Command) == "" {
			return fmt.Errorf("server %d has no command", i)
		}
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	return nil
}

// LaunchSpecs returns the launch spec of every configured server, in order.
func (c Config) LaunchSpecs() []domain.LaunchSpec {
	specs := make([]domain.LaunchSpec, 0, len(c.Servers))
	for _, s := range c.Servers {
		specs = append(specs, s.LaunchSpec())
	}
	return specs
}
