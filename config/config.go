// Package config loads the application configuration for the parley
// daemon from a YAML file, with ${VAR} environment expansion so API keys
// never need to live in the file itself.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Contract  ContractConfig  `yaml:"contract"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Runner    RunnerConfig    `yaml:"runner"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// EngineConfig selects and tunes the reasoning engine.
type EngineConfig struct {
	// Provider is "openai" or "anthropic".
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	APIKey      string  `yaml:"api_key"`
}

// ContractConfig points at the behavior contract file.
type ContractConfig struct {
	File string `yaml:"file"`
}

// KnowledgeConfig configures the FAQ document store.
type KnowledgeConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// RunnerConfig tunes the orchestration loop.
type RunnerConfig struct {
	IterationBudget int      `yaml:"iteration_budget"`
	EngineTimeout   Duration `yaml:"engine_timeout"`
	ToolTimeout     Duration `yaml:"tool_timeout"`
}

// SessionConfig tunes the in-memory session store.
type SessionConfig struct {
	// TTL of zero disables expiry.
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
}

// Default returns a configuration with sensible development defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Engine: EngineConfig{
			Provider:    "openai",
			Temperature: 0.1,
			MaxTokens:   600,
		},
		Contract:  ContractConfig{File: "contract.yaml"},
		Knowledge: KnowledgeConfig{Dir: "faq", Watch: true},
		Runner: RunnerConfig{
			IterationBudget: 5,
			EngineTimeout:   Duration(30 * time.Second),
			ToolTimeout:     Duration(15 * time.Second),
		},
		Session: SessionConfig{
			TTL:           Duration(30 * time.Minute),
			SweepInterval: Duration(time.Minute),
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML config file, expands ${VAR} references from the
// environment and applies defaults for anything left unset.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Engine.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown engine provider %q", c.Engine.Provider)
	}
	if c.Runner.IterationBudget < 1 {
		return fmt.Errorf("config: iteration_budget must be at least 1, got %d", c.Runner.IterationBudget)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server addr must not be empty")
	}
	return nil
}
