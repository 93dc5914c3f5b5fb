// Package config loads prestotype settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ethanyzhang/prestotype/prestoauth/kerberos"
	"github.com/ethanyzhang/prestotype/prestoauth/oauth2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const (
	DefaultFile     = "prestotype.yaml"
	DefaultOutput   = OutputTable
	DefaultLogLevel = "info"
	DefaultTimeout  = 2 * time.Minute
	EnvPrefix       = "PRESTOTYPE_"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputText  = "text"
)

var outputs = []string{OutputTable, OutputJSON, OutputText}

// Config is the full set of settings.
type Config struct {
	DSN      string        `koanf:"dsn"`
	Output   string        `koanf:"output"`
	LogLevel string        `koanf:"log_level"`
	Timeout  time.Duration `koanf:"timeout"`
	// Variables names the identifiers parsed as type variables, e.g. T, K.
	Variables []string `koanf:"variables"`
	Auth      Auth     `koanf:"auth"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

type Auth struct {
	OAuth2   oauth2.Config   `koanf:"oauth2"`
	Kerberos kerberos.Config `koanf:"kerberos"`
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

func (c *Config) validate() error {
	var errs []error
	if !slices.Contains(outputs, c.Output) {
		errs = append(errs, fmt.Errorf("output %q is not one of %s", c.Output, strings.Join(outputs, ", ")))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("negative timeout %s", c.Timeout))
	}
	if c.Auth.OAuth2.Enabled() && c.Auth.Kerberos.Enabled() {
		errs = append(errs, errors.New("auth.oauth2 and auth.kerberos are exclusive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load reads the configuration. path names the YAML file; when empty,
// DefaultFile in the working directory is read if it exists. Only flags the
// user set override other sources; dashes in flag names become underscores,
// so --log-level sets log_level.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"output":    DefaultOutput,
		"log_level": DefaultLogLevel,
		"timeout":   DefaultTimeout.String(),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	used := path
	if used == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			used = DefaultFile
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", used, err)
		}
	}

	// PRESTOTYPE_AUTH__KERBEROS__KEYTAB -> auth.kerberos.keytab
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	// The environment gives variables as one comma-separated string.
	cfg.Variables = splitList(strings.Join(cfg.Variables, ","))
	cfg.File = used

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
