package main

import (
	"fmt"

	"github.com/kbukum/execkit/config"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/process"
)

const serviceName = "execrun"

// CLIConfig is the full execrun configuration. It is read from config.yml,
// EXECRUN_* environment variables and command-line flags.
type CLIConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Exec    ExecConfig                 `yaml:"exec" mapstructure:"exec"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// ExecConfig holds the runner defaults. Env entries are KEY=VALUE pairs so
// variable names keep their case; they are applied on top of EnvFile.
type ExecConfig struct {
	process.Config `yaml:",inline" mapstructure:",squash"`

	Env     []string `yaml:"env" mapstructure:"env"`
	EnvFile string   `yaml:"env_file" mapstructure:"env_file"`
}

// config keys bound to flags
var flagKeys = map[string]string{
	"exec.dir":              "dir",
	"exec.env":              "env",
	"exec.env_file":         "env-file",
	"exec.stream_output":    "stream",
	"exec.ignore_exit_code": "no-check",
	"logging.level":         "log-level",
	"logging.format":        "log-format",
}

func defaultCLIConfig() CLIConfig {
	return CLIConfig{
		ServiceConfig: config.ServiceConfig{Name: serviceName},
		Tracing:       observability.DefaultTracerConfig(serviceName),
		Metrics:       observability.DefaultMeterConfig(serviceName),
	}
}

// ApplyDefaults fills unset values and propagates the service identity into
// the telemetry sections.
func (c *CLIConfig) ApplyDefaults(version string) {
	c.ServiceConfig.ApplyDefaults()
	if c.Version == "" {
		c.Version = version
	}
	for _, id := range []struct{ name, version, env *string }{
		{&c.Tracing.ServiceName, &c.Tracing.ServiceVersion, &c.Tracing.Environment},
		{&c.Metrics.ServiceName, &c.Metrics.ServiceVersion, &c.Metrics.Environment},
	} {
		if *id.name == "" {
			*id.name = c.Name
		}
		if *id.version == "" || *id.version == "dev" {
			*id.version = c.Version
		}
		if *id.env == "" || *id.env == "development" {
			*id.env = c.Environment
		}
	}
}

// Validate checks the service section.
func (c *CLIConfig) Validate() error {
	return c.ServiceConfig.Validate()
}

// RunnerConfig resolves the env file and pairs into the runner's overlay.
// With neither set the overlay stays nil and children inherit the
// environment unchanged.
func (c *CLIConfig) RunnerConfig() (process.Config, error) {
	cfg := c.Exec.Config
	if c.Exec.EnvFile == "" && len(c.Exec.Env) == 0 {
		return cfg, nil
	}

	env := map[string]string{}
	if c.Exec.EnvFile != "" {
		fileEnv, err := config.ReadEnvFile(c.Exec.EnvFile)
		if err != nil {
			return cfg, err
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	pairs, err := config.ParseEnvPairs(c.Exec.Env)
	if err != nil {
		return cfg, fmt.Errorf("exec.env: %w", err)
	}
	for k, v := range pairs {
		env[k] = v
	}
	cfg.Env = env
	return cfg, nil
}
