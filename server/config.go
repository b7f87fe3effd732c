package server

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"golang.org/x/exp/slices"
)

const (
	DefaultConfigPath  = "motion.yml"
	DefaultBindAddress = "0.0.0.0:25565"
)

var (
	ErrNoDownstreams       = errors.New("no downstreams configured")
	ErrDuplicateDownstream = errors.New("duplicate downstream name")
	ErrMultipleDefaults    = errors.New("more than one default downstream")
	ErrUnknownConfigFormat = errors.New("unknown config format")
)

// Downstream is a backend server players can be sent to.
type Downstream struct {
	Address string `yaml:"address" toml:"address"`
	Name    string `yaml:"name" toml:"name"`
	Default bool   `yaml:"default" toml:"default"`
}

type Config struct {
	BindAddress string       `yaml:"bind_address" toml:"bind_address"`
	Downstreams []Downstream `yaml:"downstreams" toml:"downstreams"`
	// accepted connections per second, 0 means unlimited
	ConnectionRateLimit float64       `yaml:"connection_rate_limit" toml:"connection_rate_limit"`
	DialTimeout         time.Duration `yaml:"dial_timeout" toml:"dial_timeout"`
	ResolveCacheTTL     time.Duration `yaml:"resolve_cache_ttl" toml:"resolve_cache_ttl"`
	ProbeDownstreams    bool          `yaml:"probe_downstreams" toml:"probe_downstreams"`
}

// DefaultConfig is what gets written when no config file exists yet.
func DefaultConfig() *Config {
	return &Config{
		BindAddress: DefaultBindAddress,
		Downstreams: []Downstream{
			{Address: "127.0.0.1:25566", Name: "lobby", Default: true},
		},
		DialTimeout:     5 * time.Second,
		ResolveCacheTTL: 60 * time.Second,
	}
}

type configFormat int

const (
	formatYAML configFormat = iota
	formatTOML
)

func formatOf(path string) (configFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownConfigFormat, path)
}

// LoadConfig reads the config at path. A missing file is created with the
// defaults, which are then used. The returned config has been validated.
func LoadConfig(path string) (config *Config, created bool, err error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, false, err
	}
	config = DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if data, err = config.marshal(format); err != nil {
			return nil, false, err
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, false, fmt.Errorf("create %s: %w", path, err)
		}
		return config, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	// an explicit downstream list replaces the sample one
	config.Downstreams = nil
	switch format {
	case formatYAML:
		err = yaml.Unmarshal(data, config)
	case formatTOML:
		_, err = toml.Decode(string(data), config)
	}
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	return config, false, nil
}

func (c *Config) marshal(format configFormat) ([]byte, error) {
	if format == formatTOML {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(c)
}

func (c *Config) applyDefaults() {
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ResolveCacheTTL <= 0 {
		c.ResolveCacheTTL = 60 * time.Second
	}
}

// Validate checks addresses and the downstream list.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.BindAddress); err != nil {
		return fmt.Errorf("bind_address: %w", err)
	}
	if c.ConnectionRateLimit < 0 {
		return fmt.Errorf("connection_rate_limit must not be negative: %v", c.ConnectionRateLimit)
	}
	if len(c.Downstreams) == 0 {
		return ErrNoDownstreams
	}
	defaults := 0
	for i, d := range c.Downstreams {
		if _, _, err := net.SplitHostPort(d.Address); err != nil {
			return fmt.Errorf("downstream %q: %w", d.Name, err)
		}
		if slices.IndexFunc(c.Downstreams[:i], func(o Downstream) bool { return o.Name == d.Name }) >= 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateDownstream, d.Name)
		}
		if d.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return ErrMultipleDefaults
	}
	return nil
}
