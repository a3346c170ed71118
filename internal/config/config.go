// Package config resolves translator settings from defaults, a YAML or TOML
// file, environment variables and command-line flags, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/petasbytes/go-translator/internal/provider"
	"github.com/petasbytes/go-translator/internal/storage"
	"github.com/petasbytes/go-translator/internal/windowing"
)

type Config struct {
	Backend string `yaml:"backend" toml:"backend"`

	LocalRoot string `yaml:"local_root" toml:"local_root"`

	RemoteHost       string        `yaml:"remote_host" toml:"remote_host"`
	RemotePort       int           `yaml:"remote_port" toml:"remote_port"`
	RemoteUser       string        `yaml:"remote_user" toml:"remote_user"`
	RemoteRoot       string        `yaml:"remote_root" toml:"remote_root"`
	RemoteTransport  string        `yaml:"remote_transport" toml:"remote_transport"`
	RemoteKey        string        `yaml:"remote_key" toml:"remote_key"`
	RemoteKnownHosts string        `yaml:"remote_known_hosts" toml:"remote_known_hosts"`
	RemoteInsecure   bool          `yaml:"remote_insecure" toml:"remote_insecure"`
	RemoteTimeout    time.Duration `yaml:"remote_timeout" toml:"remote_timeout"`

	GCSBucket      string `yaml:"gcs_bucket" toml:"gcs_bucket"`
	GCSPrefix      string `yaml:"gcs_prefix" toml:"gcs_prefix"`
	GCSCredentials string `yaml:"gcs_credentials" toml:"gcs_credentials"`

	RedisURL    string `yaml:"redis_url" toml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix" toml:"redis_prefix"`

	PromptFile      string `yaml:"prompt_file" toml:"prompt_file"`
	Model           string `yaml:"model" toml:"model"`
	MaxTokens       int    `yaml:"max_tokens" toml:"max_tokens"`
	HistoryWindow   int    `yaml:"history_window" toml:"history_window"`
	HistoryBudget   int    `yaml:"history_budget" toml:"history_budget"`
	TranscribeModel string `yaml:"transcribe_model" toml:"transcribe_model"`

	AnthropicAPIKey string `yaml:"anthropic_api_key" toml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key" toml:"openai_api_key"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LocalRoot:        "data",
		RemotePort:       22,
		RemoteUser:       "root",
		RemoteRoot:       "/opt/spanish-translator/data",
		RemoteTransport:  storage.TransportExec,
		RemoteKnownHosts: "~/.ssh/known_hosts",
		RemoteTimeout:    storage.DefaultRemoteTimeout,
		RedisPrefix:      storage.DefaultRedisPrefix,
		PromptFile:       "prompts/system_prompt.md",
		Model:            string(provider.DefaultModel),
		MaxTokens:        provider.DefaultMaxTokens,
		HistoryWindow:    windowing.DefaultMaxMessages,
		TranscribeModel:  string(provider.DefaultTranscriptionModel),
	}
}

// envVars maps environment variables onto config fields.
var envVars = []struct {
	name string
	set  func(c *Config, v string)
}{
	{"TRANSLATOR_BACKEND", func(c *Config, v string) { c.Backend = v }},
	{"LOCAL_ROOT", func(c *Config, v string) { c.LocalRoot = v }},
	{"HETZNER_HOST", func(c *Config, v string) { c.RemoteHost = v }},
	{"HETZNER_USER", func(c *Config, v string) { c.RemoteUser = v }},
	{"HETZNER_DATA_DIR", func(c *Config, v string) { c.RemoteRoot = v }},
	{"GCS_BUCKET", func(c *Config, v string) { c.GCSBucket = v }},
	{"REDIS_URL", func(c *Config, v string) { c.RedisURL = v }},
	{"TRANSLATOR_PROMPT_FILE", func(c *Config, v string) { c.PromptFile = v }},
	{"ANTHROPIC_API_KEY", func(c *Config, v string) { c.AnthropicAPIKey = v }},
	{"OPENAI_API_KEY", func(c *Config, v string) { c.OpenAIAPIKey = v }},
}

// BindFlags registers one flag per setting, bound to c.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringVar(&c.Backend, "backend", d.Backend, "Storage backend: local, remote, gcs or redis (inferred when empty)")
	fs.StringVar(&c.LocalRoot, "local-root", d.LocalRoot, "Directory holding user records for the local backend")
	fs.StringVar(&c.RemoteHost, "remote-host", d.RemoteHost, "Host for the remote backend")
	fs.IntVar(&c.RemotePort, "remote-port", d.RemotePort, "SSH port for the remote backend")
	fs.StringVar(&c.RemoteUser, "remote-user", d.RemoteUser, "SSH user for the remote backend")
	fs.StringVar(&c.RemoteRoot, "remote-root", d.RemoteRoot, "Directory on the remote host holding user records")
	fs.StringVar(&c.RemoteTransport, "remote-transport", d.RemoteTransport, "Remote transport: exec (system ssh) or native")
	fs.StringVar(&c.RemoteKey, "remote-key", d.RemoteKey, "Private key file for the remote backend")
	fs.StringVar(&c.RemoteKnownHosts, "remote-known-hosts", d.RemoteKnownHosts, "known_hosts file used to verify the remote host")
	fs.BoolVar(&c.RemoteInsecure, "remote-insecure", d.RemoteInsecure, "Skip remote host key verification")
	fs.DurationVar(&c.RemoteTimeout, "remote-timeout", d.RemoteTimeout, "Timeout for each remote command")
	fs.StringVar(&c.GCSBucket, "gcs-bucket", d.GCSBucket, "Bucket for the gcs backend")
	fs.StringVar(&c.GCSPrefix, "gcs-prefix", d.GCSPrefix, "Object prefix for the gcs backend")
	fs.StringVar(&c.GCSCredentials, "gcs-credentials", d.GCSCredentials, "Service account credentials file for the gcs backend")
	fs.StringVar(&c.RedisURL, "redis-url", d.RedisURL, "Redis URL for the redis backend")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", d.RedisPrefix, "Key prefix for the redis backend")
	fs.StringVar(&c.PromptFile, "prompt-file", d.PromptFile, "System prompt file")
	fs.StringVar(&c.Model, "model", d.Model, "Anthropic model used for translation")
	fs.IntVar(&c.MaxTokens, "max-tokens", d.MaxTokens, "Maximum tokens in a translation")
	fs.IntVar(&c.HistoryWindow, "history-window", d.HistoryWindow, "Prior messages sent with each request")
	fs.IntVar(&c.HistoryBudget, "history-budget", d.HistoryBudget, "Estimated cost budget for prior messages (0 = unlimited)")
	fs.StringVar(&c.TranscribeModel, "transcribe-model", d.TranscribeModel, "OpenAI transcription model")
}

// Resolve rebuilds c from defaults, the file at path (may be empty), the
// environment and finally every flag explicitly set on fs, then validates it.
func (c *Config) Resolve(fs *pflag.FlagSet, path string, getenv func(string) string) error {
	set := map[string]string{}
	if fs != nil {
		fs.Visit(func(f *pflag.Flag) { set[f.Name] = f.Value.String() })
	}

	*c = Default()
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return err
		}
	}
	c.ApplyEnv(getenv)
	for name, v := range set {
		if err := fs.Set(name, v); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	if err := c.expandHome(); err != nil {
		return err
	}
	return c.Validate()
}

// LoadFile decodes a .yaml, .yml or .toml file over c. Unknown keys are errors.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode YAML config %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return fmt.Errorf("decode TOML config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("decode TOML config %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return fmt.Errorf("config %s: unsupported extension (want .yaml, .yml or .toml)", path)
	}
	return nil
}

// ApplyEnv overrides fields from non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, e := range envVars {
		if v := getenv(e.name); v != "" {
			e.set(c, v)
		}
	}
}

// Validate selects the backend when unset and checks that its settings are complete.
func (c *Config) Validate() error {
	if c.Backend == "" {
		if c.RemoteHost != "" {
			c.Backend = storage.KindRemote
		} else {
			c.Backend = storage.KindLocal
		}
	}

	switch c.Backend {
	case storage.KindLocal:
		if c.LocalRoot == "" {
			return errors.New("local backend requires local_root")
		}
	case storage.KindRemote:
		if c.RemoteHost == "" {
			return errors.New("remote backend requires remote_host")
		}
		if c.RemoteRoot == "" {
			return errors.New("remote backend requires remote_root")
		}
		switch c.RemoteTransport {
		case "", storage.TransportExec, storage.TransportNative:
		default:
			return fmt.Errorf("unknown remote_transport %q", c.RemoteTransport)
		}
		if c.RemoteTimeout <= 0 {
			return errors.New("remote_timeout must be positive")
		}
	case storage.KindGCS:
		if c.GCSBucket == "" {
			return errors.New("gcs backend requires gcs_bucket")
		}
	case storage.KindRedis:
		if c.RedisURL == "" {
			return errors.New("redis backend requires redis_url")
		}
	default:
		return fmt.Errorf("unknown backend %q (want local, remote, gcs or redis)", c.Backend)
	}

	if c.MaxTokens <= 0 {
		return errors.New("max_tokens must be positive")
	}
	if c.HistoryWindow < 0 {
		return errors.New("history_window must not be negative")
	}
	return nil
}

// StorageOptions returns the settings of the selected backend only.
func (c *Config) StorageOptions() storage.Options {
	o := storage.Options{Kind: c.Backend}
	switch c.Backend {
	case storage.KindLocal:
		o.LocalRoot = c.LocalRoot
	case storage.KindRemote:
		o.RemoteHost = c.RemoteHost
		o.RemotePort = c.RemotePort
		o.RemoteUser = c.RemoteUser
		o.RemoteRoot = c.RemoteRoot
		o.RemoteTransport = c.RemoteTransport
		o.RemoteKey = c.RemoteKey
		o.RemoteKnownHosts = c.RemoteKnownHosts
		o.RemoteInsecure = c.RemoteInsecure
		o.RemoteTimeout = c.RemoteTimeout
	case storage.KindGCS:
		o.GCSBucket = c.GCSBucket
		o.GCSPrefix = c.GCSPrefix
		o.GCSCredentials = c.GCSCredentials
	case storage.KindRedis:
		o.RedisURL = c.RedisURL
		o.RedisPrefix = c.RedisPrefix
	}
	return o
}

func (c *Config) expandHome() error {
	for _, p := range []*string{&c.LocalRoot, &c.RemoteKey, &c.RemoteKnownHosts, &c.GCSCredentials, &c.PromptFile} {
		if *p != "~" && !strings.HasPrefix(*p, "~/") {
			continue
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("expand %s: %w", *p, err)
		}
		*p = filepath.Join(home, strings.TrimPrefix(*p, "~"))
	}
	return nil
}
