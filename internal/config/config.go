// Package config loads dsq settings from defaults, a YAML file, DSQ_
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/datasync/internal/datasync"
	"github.com/roach88/datasync/internal/transport"
)

// EnvPrefix prefixes environment overrides: DSQ_TABLES_PREFIX → tables_prefix.
const EnvPrefix = "DSQ_"

// Defaults.
const (
	DefaultTimeout = 30 * time.Second
	DefaultFormat  = "text"
)

// ConfigFileNames are searched in the working directory when no file is given.
var ConfigFileNames = []string{"dsq.yaml", "dsq.yml"}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json"}

// Config holds resolved settings.
type Config struct {
	Endpoint     string            `koanf:"endpoint"`
	TablesPrefix string            `koanf:"tables_prefix"`
	APIVersion   string            `koanf:"api_version"`
	Timeout      time.Duration     `koanf:"timeout"`
	Headers      map[string]string `koanf:"headers"`

	// Journal is the SQLite page journal path; empty disables journaling.
	Journal string `koanf:"journal"`

	Verbose bool   `koanf:"verbose"`
	Format  string `koanf:"format"`

	// File is the config file that was read, empty if none.
	File string `koanf:"-"`
}

// Load resolves configuration. Precedence, highest first: flags that were
// explicitly set, environment, config file, defaults. An explicit cfgFile
// must exist; otherwise ConfigFileNames are tried in the working directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"tables_prefix": datasync.DefaultTablesPrefix,
		"api_version":   transport.DefaultAPIVersion,
		"timeout":       DefaultTimeout,
		"verbose":       false,
		"format":        DefaultFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// Validate checks settings that do not depend on the command being run.
// The endpoint is validated when a client is created from it.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Formats, c.Format) {
		errs = append(errs, fmt.Errorf("format %q: must be one of %s", c.Format, strings.Join(Formats, ", ")))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout %s: must be positive", c.Timeout))
	}
	if strings.TrimSpace(c.APIVersion) == "" {
		errs = append(errs, errors.New("api_version: must not be empty"))
	}
	for name := range c.Headers {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("headers: empty header name"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// TransportOptions converts the HTTP settings into transport options.
func (c *Config) TransportOptions() []transport.Option {
	opts := []transport.Option{
		transport.WithAPIVersion(c.APIVersion),
		transport.WithTimeout(c.Timeout),
	}
	for _, name := range slices.Sorted(maps.Keys(c.Headers)) {
		opts = append(opts, transport.WithHeader(name, c.Headers[name]))
	}
	return opts
}
