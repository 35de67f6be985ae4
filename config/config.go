// Package config loads seekr-server configuration.
//
// Values are resolved in this order, later sources winning:
//
//  1. built-in defaults (Default)
//  2. a YAML file named by --config or SEEKR_CONFIG
//  3. SEEKR_* environment variables
//  4. command-line flags
//
// A field is only overridden by a source that actually sets it: an unset
// environment variable or a flag left at its default keeps the value from
// the earlier source.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/acksell/seekr/kvstore"
	"github.com/acksell/seekr/logging"
)

// EnvConfigFile names the environment variable holding the config file path.
const EnvConfigFile = "SEEKR_CONFIG"

// Config is the seekr-server configuration.
type Config struct {
	// Log is the minimum log level: trace, debug, info, warn or error.
	Log string `yaml:"log"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	// Host is the interface to listen on.
	Host string `yaml:"host"`

	// Port is the TCP port to listen on.
	Port int `yaml:"port"`

	// Storage configures the key-value store.
	Storage StorageConfig `yaml:"storage"`

	// RequestTimeout bounds the time spent handling one request.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout bounds the time in-flight requests get to finish on
	// shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// ShowVersion is set by --version. It is never read from a file.
	ShowVersion bool `yaml:"-"`
}

// StorageConfig configures the key-value store.
type StorageConfig struct {
	// Backend is badger, bolt or memory.
	Backend string `yaml:"backend"`

	// Path is the badger directory or the bolt file.
	Path string `yaml:"path"`

	// InMemory runs badger without touching Path.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites makes every write durable before it is acknowledged.
	SyncWrites bool `yaml:"sync_writes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:       "info",
		LogFormat: "text",
		Host:      "localhost",
		Port:      5000,
		Storage: StorageConfig{
			Backend:    string(kvstore.BackendBadger),
			Path:       "seekr.db",
			SyncWrites: true,
		},
		RequestTimeout:  10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StoreOptions translates the storage section into kvstore options.
func (c *Config) StoreOptions(logger *slog.Logger) kvstore.Options {
	return kvstore.Options{
		Backend:    kvstore.Backend(c.Storage.Backend),
		Path:       c.Storage.Path,
		InMemory:   c.Storage.InMemory,
		SyncWrites: c.Storage.SyncWrites,
		Logger:     logger,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log); err != nil {
		return err
	}
	if !slices.Contains(logging.Formats, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("unknown log format %q (want one of %s)", c.LogFormat, strings.Join(logging.Formats, ", "))
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}

	backend := kvstore.Backend(c.Storage.Backend)
	if !slices.Contains(kvstore.Backends, backend) {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	durable := backend == kvstore.BackendBolt || (backend == kvstore.BackendBadger && !c.Storage.InMemory)
	if durable && c.Storage.Path == "" {
		return fmt.Errorf("storage backend %s needs a path", backend)
	}
	return nil
}

// LoadFile merges the YAML file at path into c. Keys absent from the file
// keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides c with every SEEKR_* variable lookup reports as set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, s := range settings {
		value, ok := lookup(s.env)
		if !ok {
			continue
		}
		if err := s.set(c, value); err != nil {
			return fmt.Errorf("%s: %w", s.env, err)
		}
	}
	return nil
}

// Load resolves the configuration from args (without the program name)
// and the environment, then validates it. If args ask for help, Load
// prints usage and returns pflag.ErrHelp.
func Load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	fs := NewFlagSet("seekr-server")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	path, _ := fs.GetString("config")
	if !fs.Changed("config") {
		path, _ = lookup(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, fs); err != nil {
		return nil, err
	}

	if cfg.ShowVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewFlagSet returns the flags understood by Load. Flag defaults mirror
// Default so --help shows them.
func NewFlagSet(name string) *pflag.FlagSet {
	d := Default()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.String("config", "", "path to a YAML config file (env "+EnvConfigFile+")")
	fs.String("log", d.Log, "log level: trace, debug, info, warn, error")
	fs.String("log-format", d.LogFormat, "log format: text, json")
	fs.String("host", d.Host, "interface to listen on")
	fs.Int("port", d.Port, "port to listen on")
	fs.String("backend", d.Storage.Backend, "storage backend: badger, bolt, memory")
	fs.String("db", d.Storage.Path, "database directory (badger) or file (bolt)")
	fs.Bool("in-memory", d.Storage.InMemory, "run badger in memory; nothing is persisted")
	fs.Bool("sync-writes", d.Storage.SyncWrites, "sync every write to disk before acknowledging it")
	fs.Duration("request-timeout", d.RequestTimeout, "maximum time to handle one request")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "time in-flight requests get to finish on shutdown")
	fs.Bool("version", false, "print version information and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "%s - cluster registry server\n\nUSAGE\n    %s [flags]\n\nFLAGS\n", name, name)
		fmt.Fprint(fs.Output(), fs.FlagUsages())
		fmt.Fprint(fs.Output(), "\nENVIRONMENT\n")
		for _, s := range settings {
			fmt.Fprintf(fs.Output(), "    %-24s --%s\n", s.env, s.flag)
		}
		fmt.Fprintf(fs.Output(), "    %-24s --config\n", EnvConfigFile)
	}
	return fs
}

// applyFlags copies every flag set on the command line into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var errs []error
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "version" {
			cfg.ShowVersion = true
			return
		}
		for _, s := range settings {
			if s.flag != f.Name {
				continue
			}
			if err := s.set(cfg, f.Value.String()); err != nil {
				errs = append(errs, fmt.Errorf("--%s: %w", f.Name, err))
			}
		}
	})
	return errors.Join(errs...)
}

// setting binds one Config field to its environment variable and flag.
type setting struct {
	env  string
	flag string
	set  func(c *Config, value string) error
}

var settings = []setting{
	{"SEEKR_LOG", "log", func(c *Config, v string) error { c.Log = v; return nil }},
	{"SEEKR_LOG_FORMAT", "log-format", func(c *Config, v string) error { c.LogFormat = v; return nil }},
	{"SEEKR_HOST", "host", func(c *Config, v string) error { c.Host = v; return nil }},
	{"SEEKR_PORT", "port", func(c *Config, v string) error { return parseInt(v, &c.Port) }},
	{"SEEKR_BACKEND", "backend", func(c *Config, v string) error { c.Storage.Backend = v; return nil }},
	{"SEEKR_DB", "db", func(c *Config, v string) error { c.Storage.Path = v; return nil }},
	{"SEEKR_IN_MEMORY", "in-memory", func(c *Config, v string) error { return parseBool(v, &c.Storage.InMemory) }},
	{"SEEKR_SYNC_WRITES", "sync-writes", func(c *Config, v string) error { return parseBool(v, &c.Storage.SyncWrites) }},
	{"SEEKR_REQUEST_TIMEOUT", "request-timeout", func(c *Config, v string) error { return parseDuration(v, &c.RequestTimeout) }},
	{"SEEKR_SHUTDOWN_TIMEOUT", "shutdown-timeout", func(c *Config, v string) error { return parseDuration(v, &c.ShutdownTimeout) }},
}

func parseInt(s string, dst *int) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid integer %q", s)
	}
	*dst = n
	return nil
}

func parseBool(s string, dst *bool) error {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid boolean %q", s)
	}
	*dst = b
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*dst = d
	return nil
}
