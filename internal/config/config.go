// Package config provides Viper-based configuration loading for the simulation server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Dead actor policies.
const (
	DeadPolicyDestroy = "destroy"
	DeadPolicyCorpse  = "corpse"
)

// Chaos modes.
const (
	ChaosInert    = "inert"
	ChaosScripted = "scripted"
	ChaosLua      = "lua"
)

// Storage backends.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// GameConfig holds the simulation settings for a single game.
type GameConfig struct {
	// Name identifies the game; it names the runtime directory and save rows.
	Name string `mapstructure:"name"`
	// BlueprintPath is the world blueprint JSON file.
	BlueprintPath string `mapstructure:"blueprint_path"`
	// Version is the blueprint version tag this build accepts.
	Version string `mapstructure:"version"`
	// RuntimeDir is the parent directory of per-game runtime output.
	RuntimeDir string `mapstructure:"runtime_dir"`
	// RoundRobinSize is how many actors per stage may plan in one tick.
	RoundRobinSize int `mapstructure:"round_robin_size"`
	// MaxRounds stops the tick loop after this many rounds; 0 means unbounded.
	MaxRounds int `mapstructure:"max_rounds"`
	// TickInterval is the pause between ticks when running as a service.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// DeadPolicy is "destroy" or "corpse".
	DeadPolicy string `mapstructure:"dead_policy"`
	// SaveEveryRounds writes a save every N rounds; 0 saves only on exit.
	SaveEveryRounds int `mapstructure:"save_every_rounds"`
	// ArchiveOnExit zips the runtime directory when the game stops.
	ArchiveOnExit bool `mapstructure:"archive_on_exit"`
}

// AgentConfig holds LLM endpoint settings shared by every agent.
type AgentConfig struct {
	// RequestTimeout bounds a single planning request; expiry yields an empty response.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// ProbeTimeout bounds a single connection probe.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	// AnthropicAPIKey is used by agents whose URL has the anthropic:// scheme.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	// MaxTokens caps the response length for Anthropic-backed agents.
	MaxTokens int64 `mapstructure:"max_tokens"`
}

// ChaosConfig selects the chaos-engineering hook implementation.
type ChaosConfig struct {
	// Mode is "inert", "scripted", or "lua".
	Mode string `mapstructure:"mode"`
	// ScriptPath is the YAML script (scripted) or Lua file (lua).
	ScriptPath string `mapstructure:"script_path"`
	// InstructionLimit bounds each Lua hook invocation.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// StorageConfig selects where save archives are indexed.
type StorageConfig struct {
	// Backend is "file" or "postgres".
	Backend string `mapstructure:"backend"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Game     GameConfig     `mapstructure:"game"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Chaos    ChaosConfig    `mapstructure:"chaos"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAgent(c.Agent); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateChaos(c.Chaos); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Backend == StoragePostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.Name == "" {
		errs = append(errs, "game.name must not be empty")
	}
	if g.BlueprintPath == "" {
		errs = append(errs, "game.blueprint_path must not be empty")
	}
	if g.Version == "" {
		errs = append(errs, "game.version must not be empty")
	}
	if g.RoundRobinSize < 1 {
		errs = append(errs, fmt.Sprintf("game.round_robin_size must be >= 1, got %d", g.RoundRobinSize))
	}
	if g.MaxRounds < 0 {
		errs = append(errs, fmt.Sprintf("game.max_rounds must be >= 0, got %d", g.MaxRounds))
	}
	if g.TickInterval < 0 {
		errs = append(errs, "game.tick_interval must not be negative")
	}
	if g.DeadPolicy != DeadPolicyDestroy && g.DeadPolicy != DeadPolicyCorpse {
		errs = append(errs, fmt.Sprintf("game.dead_policy must be one of [destroy, corpse], got %q", g.DeadPolicy))
	}
	if g.SaveEveryRounds < 0 {
		errs = append(errs, fmt.Sprintf("game.save_every_rounds must be >= 0, got %d", g.SaveEveryRounds))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAgent(a AgentConfig) error {
	var errs []string
	if a.RequestTimeout < 0 {
		errs = append(errs, "agent.request_timeout must not be negative")
	}
	if a.ProbeTimeout < 0 {
		errs = append(errs, "agent.probe_timeout must not be negative")
	}
	if a.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("agent.max_tokens must be >= 1, got %d", a.MaxTokens))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateChaos(c ChaosConfig) error {
	validModes := map[string]bool{ChaosInert: true, ChaosScripted: true, ChaosLua: true}
	if !validModes[c.Mode] {
		return fmt.Errorf("chaos.mode must be one of [inert, scripted, lua], got %q", c.Mode)
	}
	if c.Mode != ChaosInert && c.ScriptPath == "" {
		return fmt.Errorf("chaos.script_path must not be empty in %s mode", c.Mode)
	}
	if c.InstructionLimit < 0 {
		return errors.New("chaos.instruction_limit must not be negative")
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	if s.Backend != StorageFile && s.Backend != StoragePostgres {
		return fmt.Errorf("storage.backend must be one of [file, postgres], got %q", s.Backend)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with AGENTRPG_ prefix
	v.SetEnvPrefix("AGENTRPG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("game.name", "agentrpg")
	v.SetDefault("game.version", "0.0.1")
	v.SetDefault("game.runtime_dir", "runtime")
	v.SetDefault("game.round_robin_size", 1)
	v.SetDefault("game.max_rounds", 0)
	v.SetDefault("game.tick_interval", "0s")
	v.SetDefault("game.dead_policy", DeadPolicyDestroy)
	v.SetDefault("game.save_every_rounds", 0)
	v.SetDefault("game.archive_on_exit", true)

	v.SetDefault("agent.request_timeout", "60s")
	v.SetDefault("agent.probe_timeout", "10s")
	v.SetDefault("agent.max_tokens", 1024)

	v.SetDefault("chaos.mode", ChaosInert)
	v.SetDefault("chaos.instruction_limit", 100000)

	v.SetDefault("storage.backend", StorageFile)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "agentrpg")
	v.SetDefault("database.password", "agentrpg")
	v.SetDefault("database.name", "agentrpg")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
