//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/weaviate/seqalloc/usecases/sequence"
)

// DefaultConfigFile is the default file when no config file is provided
const DefaultConfigFile string = "./seqalloc.conf.yaml"

// DefaultBindAddress is the address the allocation server listens on
const DefaultBindAddress string = ":7311"

// DefaultPersistenceDataPath is the default location for data directory when no location is provided
const DefaultPersistenceDataPath string = "./data"

const DefaultClientRequestTimeout = 5 * time.Second

const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const (
	// DefaultSpaceMin is the first sequence handed out in a fresh default space
	DefaultSpaceMin uint64 = 0x200000400
	// DefaultNormalWidth is the width of server-to-server grants
	DefaultNormalWidth uint64 = 0x20000
	// DefaultSuperWidth is the width of client grants
	DefaultSuperWidth = DefaultNormalWidth * DefaultNormalWidth
)

// Config outline of the config file
type Config struct {
	Bind        string                 `json:"bind" yaml:"bind"`
	Persistence Persistence            `json:"persistence" yaml:"persistence"`
	Spaces      []sequence.SpaceConfig `json:"spaces" yaml:"spaces"`
	Client      Client                 `json:"client" yaml:"client"`
	Logging     Logging                `json:"logging" yaml:"logging"`
	Monitoring  Monitoring             `json:"monitoring" yaml:"monitoring"`
}

// Validate the configuration. Defaults must have been applied before.
func (c *Config) Validate() error {
	if c.Bind == "" {
		return fmt.Errorf("bind must be set")
	}
	if err := c.Persistence.Validate(); err != nil {
		return err
	}
	if len(c.Spaces) == 0 {
		return fmt.Errorf("at least one space must be configured")
	}
	seen := make(map[string]struct{}, len(c.Spaces))
	for _, s := range c.Spaces {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("spaces: %w", err)
		}
		if _, ok := seen[s.Name]; ok {
			return fmt.Errorf("spaces: %q configured twice", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	if err := c.Client.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// ApplyDefaults fills every unset option with its default.
func (c *Config) ApplyDefaults() {
	if c.Bind == "" {
		c.Bind = DefaultBindAddress
	}
	if c.Persistence.Backend == "" {
		c.Persistence.Backend = BackendBolt
	}
	if c.Persistence.DataPath == "" {
		c.Persistence.DataPath = DefaultPersistenceDataPath
	}
	if len(c.Spaces) == 0 {
		c.Spaces = []sequence.SpaceConfig{DefaultSpace()}
	}
	if c.Client.RequestTimeout == 0 {
		c.Client.RequestTimeout = DefaultClientRequestTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = logrus.InfoLevel.String()
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// DefaultSpace is served when no space is configured.
func DefaultSpace() sequence.SpaceConfig {
	return sequence.SpaceConfig{
		Name:        "meta",
		Min:         DefaultSpaceMin,
		NormalWidth: DefaultNormalWidth,
		SuperWidth:  DefaultSuperWidth,
	}
}

type Persistence struct {
	// Backend is one of bolt, sqlite or memory
	Backend  string `json:"backend" yaml:"backend"`
	DataPath string `json:"dataPath" yaml:"dataPath"`
}

func (p Persistence) Validate() error {
	switch p.Backend {
	case BackendBolt, BackendSQLite:
		if p.DataPath == "" {
			return fmt.Errorf("persistence.dataPath must be set")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("persistence.backend must be one of %q, %q or %q, got %q",
			BackendBolt, BackendSQLite, BackendMemory, p.Backend)
	}
	return nil
}

// Client configures the allocation client of cmd/seqd --target=alloc.
type Client struct {
	ServerURL string `json:"server_url" yaml:"server_url"`
	// Width of requested super ranges, zero for the server default
	Width          uint64        `json:"width" yaml:"width"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
	Name           string        `json:"name" yaml:"name"`
}

func (c Client) Validate() error {
	if c.RequestTimeout < 0 {
		return fmt.Errorf("client.request_timeout must not be negative")
	}
	return nil
}

type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func (l Logging) Validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch l.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", l.Format)
	}
}

// Logger builds the process logger described by l.
func (l Logging) Logger() *logrus.Logger {
	logger := logrus.New()
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(l.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

type Monitoring struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Flags are the command line options that override the config file and
// environment.
type Flags struct {
	ConfigFile string `long:"config-file" description:"path to config file (default: ./seqalloc.conf.yaml)"`
	Bind       string `long:"bind" description:"address the allocation server listens on"`
	Backend    string `long:"backend" description:"persistence backend: bolt, sqlite or memory"`
	DataPath   string `long:"data-path" description:"directory of the persistence backend"`
	ServerURL  string `long:"server-url" description:"allocation server used by the client"`
	LogLevel   string `long:"log-level" description:"log level"`
}

// SeqallocConfig holds the loaded configuration of the process.
type SeqallocConfig struct {
	Config Config
}

// LoadConfig from config locations. The load order for configuration values if the following
// 1. Config file
// 2. Environment variables
// 3. Command line flags
// If a config option is specified multiple times in different locations, the latest one will be used in this order.
func (f *SeqallocConfig) LoadConfig(flags *Flags, logger logrus.FieldLogger) error {
	if flags == nil {
		flags = &Flags{}
	}
	configFileName := flags.ConfigFile
	explicit := configFileName != ""
	if !explicit {
		configFileName = DefaultConfigFile
	}

	file, err := os.ReadFile(configFileName)
	if err != nil && explicit {
		return configErr(fmt.Errorf("read config file: %w", err))
	}

	if len(file) > 0 {
		logger.WithField("action", "config_load").WithField("config_file_path", configFileName).
			Info("loading config file")
		config, err := f.parseConfigFile(file, configFileName)
		if err != nil {
			return configErr(err)
		}
		f.Config = config
	}

	if err := FromEnv(&f.Config); err != nil {
		return configErr(err)
	}

	f.fromFlags(flags)
	f.Config.ApplyDefaults()

	if err := f.Config.Validate(); err != nil {
		return configErr(err)
	}
	return nil
}

func (f *SeqallocConfig) parseConfigFile(file []byte, name string) (Config, error) {
	var config Config

	m := regexp.MustCompile(`.*\.(\w+)$`).FindStringSubmatch(name)
	if len(m) < 2 {
		return config, fmt.Errorf("config file does not have a file ending, got '%s'", name)
	}

	switch m[1] {
	case "json":
		err := json.Unmarshal(file, &config)
		if err != nil {
			return config, fmt.Errorf("error unmarshalling the json config file: %w", err)
		}
	case "yaml", "yml":
		err := yaml.Unmarshal(file, &config)
		if err != nil {
			return config, fmt.Errorf("error unmarshalling the yaml config file: %w", err)
		}
	default:
		return config, fmt.Errorf("unsupported config file extension '%s', use .yaml or .json", m[1])
	}

	return config, nil
}

// fromFlags parses values from flags given as parameter and overrides values in the config
func (f *SeqallocConfig) fromFlags(flags *Flags) {
	if flags.Bind != "" {
		f.Config.Bind = flags.Bind
	}
	if flags.Backend != "" {
		f.Config.Persistence.Backend = flags.Backend
	}
	if flags.DataPath != "" {
		f.Config.Persistence.DataPath = flags.DataPath
	}
	if flags.ServerURL != "" {
		f.Config.Client.ServerURL = flags.ServerURL
	}
	if flags.LogLevel != "" {
		f.Config.Logging.Level = flags.LogLevel
	}
}

func configErr(err error) error {
	return fmt.Errorf("invalid config: %w", err)
}
