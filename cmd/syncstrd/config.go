package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ledzpl/syncstr/pkg/syncstr"
)

// config holds the daemon settings. Values come from an optional YAML file;
// flags set on the command line take precedence.
type config struct {
	Addr           string `yaml:"addr"`
	HostKey        string `yaml:"host_key"`
	AuthorizedKeys string `yaml:"authorized_keys"`
	MetricsAddr    string `yaml:"metrics_addr"`
	LogLevel       string `yaml:"log_level"`
	Encoding       string `yaml:"encoding"`
	Growth         string `yaml:"growth"`
	MemoryLimit    int64  `yaml:"memory_limit"`
}

func defaultConfig() config {
	return config{
		Addr:     ":2222",
		HostKey:  "configs/ssh_host_ed25519",
		LogLevel: "info",
		Encoding: "windows-1252",
		Growth:   syncstr.GrowMinimal.String(),
	}
}

func (c *config) registerFlags(fs *flag.FlagSet) *string {
	fs.StringVar(&c.Addr, "addr", c.Addr, "TCP address for the SSH shell")
	fs.StringVar(&c.HostKey, "host-key", c.HostKey, "Path to the SSH host private key (auto-generated if missing)")
	fs.StringVar(&c.AuthorizedKeys, "authorized-keys", c.AuthorizedKeys, "Restrict logins to the keys in this authorized_keys file")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Serve Prometheus metrics on this address (disabled if empty)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&c.Encoding, "encoding", c.Encoding, "Code page used to encode wide input into registers")
	fs.StringVar(&c.Growth, "growth", c.Growth, "Register growth policy: minimal or geometric")
	fs.Int64Var(&c.MemoryLimit, "memory-limit", c.MemoryLimit, "Cap on bytes held by all registers (0 for unlimited)")
	return fs.String("config", "", "Optional YAML config file")
}

// loadConfig parses args. When -config names a file, its values replace the
// defaults and any explicitly set flag is then applied on top.
func loadConfig(fs *flag.FlagSet, args []string) (config, error) {
	cfg := defaultConfig()
	path := cfg.registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if *path == "" {
		return cfg, cfg.validate()
	}

	fileCfg := defaultConfig()
	data, err := os.ReadFile(*path)
	if err != nil {
		return config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return config{}, fmt.Errorf("parse config %q: %w", *path, err)
	}

	// Re-apply flags the user set explicitly.
	overrides := flag.NewFlagSet("overrides", flag.ContinueOnError)
	fileCfg.registerFlags(overrides)
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || setErr != nil {
			return
		}
		setErr = overrides.Set(f.Name, f.Value.String())
	})
	if setErr != nil {
		return config{}, setErr
	}
	return fileCfg, fileCfg.validate()
}

func (c config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	switch c.Growth {
	case syncstr.GrowMinimal.String(), syncstr.GrowGeometric.String():
	default:
		return fmt.Errorf("config: unknown growth policy %q", c.Growth)
	}
	if c.MemoryLimit < 0 {
		return fmt.Errorf("config: memory_limit must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// bufferOptions translates the config into register construction options.
func (c config) bufferOptions() ([]syncstr.Option, error) {
	enc, err := syncstr.CodePageByName(c.Encoding)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	opts := []syncstr.Option{
		syncstr.WithEncoder(enc),
		syncstr.WithGrowth(syncstr.ParseGrowth(c.Growth)),
	}
	if c.MemoryLimit > 0 {
		al := syncstr.NewLimitedAllocator(syncstr.NewPooledAllocator(), int(c.MemoryLimit))
		opts = append(opts, syncstr.WithAllocator(al))
	}
	return opts, nil
}
