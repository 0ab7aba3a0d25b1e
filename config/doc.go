// Package config loads execkit configuration with viper.
//
// Values are layered, highest precedence first: command-line flags that were
// set, environment variables carrying the service prefix, the YAML config
// file, flag defaults. Prefixed entries of a .env file rank between the
// environment and the YAML file; the file is parsed, never exported, so child
// processes do not inherit its variables.
//
// # Usage
//
//	var cfg MyConfig
//	err := config.LoadConfig("execrun", &cfg,
//	    config.WithFlags(fs, map[string]string{"exec.stream_output": "stream"}))
//
// Environment variables use the upper-cased service name as prefix with
// underscore-separated paths (e.g., EXECRUN_LOGGING_LEVEL).
package config
