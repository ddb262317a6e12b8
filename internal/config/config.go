package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jant/site/internal/core"
)

const (
	DefaultFile      = "site.yaml"
	DefaultOutDir    = "dist"
	DefaultScriptExt = ".js"
	DefaultPort      = 9019

	EnvClientOutDir = "SITE_CLIENT_OUT_DIR"
	EnvOutDir       = "SITE_OUT_DIR"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config mirrors the site build configuration file.
type Config struct {
	OutDir       string                        `yaml:"outDir"`
	ScriptExt    string                        `yaml:"scriptExt"`
	Order        []string                      `yaml:"order"`
	Environments map[string]*EnvironmentConfig `yaml:"environments"`
	Server       ServerConfig                  `yaml:"server"`
	Logging      LoggingConfig                 `yaml:"logging"`
}

type EnvironmentConfig struct {
	Consumer core.Consumer `yaml:"consumer"`
	Build    BuildConfig   `yaml:"build"`
}

type BuildConfig struct {
	OutDir   string   `yaml:"outDir"`
	Manifest bool     `yaml:"manifest"`
	Input    []string `yaml:"input"`
}

type ServerConfig struct {
	Port int  `yaml:"port"`
	Host bool `yaml:"host"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path, falling back to defaults when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// Overrides go first so derived environment directories follow them.
	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutDir == "" {
		c.OutDir = DefaultOutDir
	}
	if c.ScriptExt == "" {
		c.ScriptExt = DefaultScriptExt
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Environments == nil {
		c.Environments = make(map[string]*EnvironmentConfig)
	}

	client, ok := c.Environments[core.ClientEnvironment]
	if !ok || client == nil {
		client = &EnvironmentConfig{}
		c.Environments[core.ClientEnvironment] = client
	}
	if client.Consumer == "" {
		client.Consumer = core.ConsumerClient
	}

	for name, env := range c.Environments {
		if env == nil {
			env = &EnvironmentConfig{}
			c.Environments[name] = env
		}
		if env.Consumer == "" {
			env.Consumer = core.ConsumerServer
		}
		// Unset output directories live under the output root so the
		// post-write sweep finds them.
		if env.Build.OutDir == "" {
			env.Build.OutDir = c.OutDir + "/" + name
		}
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvOutDir); v != "" {
		c.OutDir = v
	}
	if v := os.Getenv(EnvClientOutDir); v != "" {
		if c.Environments == nil {
			c.Environments = make(map[string]*EnvironmentConfig)
		}
		client := c.Environments[core.ClientEnvironment]
		if client == nil {
			client = &EnvironmentConfig{}
			c.Environments[core.ClientEnvironment] = client
		}
		client.Build.OutDir = v
	}
}

func (c *Config) Validate() error {
	client := c.Environments[core.ClientEnvironment]
	if client == nil || client.Consumer != core.ConsumerClient {
		return fmt.Errorf("%w: environment %q must have consumer %q", ErrInvalidConfig, core.ClientEnvironment, core.ConsumerClient)
	}

	for name, env := range c.Environments {
		if env.Consumer != core.ConsumerClient && env.Consumer != core.ConsumerServer {
			return fmt.Errorf("%w: environment %q has unknown consumer %q", ErrInvalidConfig, name, env.Consumer)
		}
	}

	seen := make(map[string]bool)
	for _, name := range c.Order {
		if _, ok := c.Environments[name]; !ok {
			return fmt.Errorf("%w: order references unknown environment %q", ErrInvalidConfig, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: environment %q listed twice in order", ErrInvalidConfig, name)
		}
		seen[name] = true
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	if c.ScriptExt[0] != '.' {
		return fmt.Errorf("%w: scriptExt %q must start with a dot", ErrInvalidConfig, c.ScriptExt)
	}

	return nil
}

// BuildOrder returns the configured order, or server environments by name
// followed by the client environment.
func (c *Config) BuildOrder() []string {
	if len(c.Order) > 0 {
		return append([]string(nil), c.Order...)
	}

	var order []string
	for name := range c.Environments {
		if name != core.ClientEnvironment {
			order = append(order, name)
		}
	}
	sort.Strings(order)
	return append(order, core.ClientEnvironment)
}
