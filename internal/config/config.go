// Package config loads the TOML configuration of the wirefunc CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/reoring/wirefunc"
)

// Transport names.
const (
	TransportHTTP  = "http"
	TransportKafka = "kafka"
)

// Config is the resolved CLI configuration.
type Config struct {
	Schema Schema
	Log    Log
	Parse  Parse
	Client Client
	Kafka  Kafka
	Zipkin Zipkin
	Server Server
}

type Schema struct {
	File string
}

type Log struct {
	Level string
}

// Parse mirrors wirefunc.ParseOpt.
type Parse struct {
	Strict   bool
	MaxDepth int
	MaxBytes int64
}

// Opt converts p into parse options.
func (p Parse) Opt() wirefunc.ParseOpt {
	opt := wirefunc.ParseOpt{MaxDepth: p.MaxDepth, MaxBytes: p.MaxBytes}
	if p.Strict {
		opt.Strictness.OnDuplicateKey = wirefunc.Error
	}
	return opt
}

type Client struct {
	Transport string
	BaseURL   string
	Timeout   time.Duration
	Headers   map[string]string
}

type Kafka struct {
	Brokers      []string
	RequestTopic string
	ReplyTopic   string
	Timeout      time.Duration
}

// Server configures the stub server of the serve command.
type Server struct {
	Listen string
	Stubs  string
}

type Zipkin struct {
	Enabled     bool
	ReporterURL string
	ServiceName string
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:   Log{Level: "info"},
		Parse: Parse{Strict: true, MaxDepth: 64, MaxBytes: 4 << 20},
		Client: Client{
			Transport: TransportHTTP,
			BaseURL:   "http://127.0.0.1:8080",
			Timeout:   30 * time.Second,
		},
		Kafka: Kafka{
			Brokers:      []string{"127.0.0.1:9092"},
			RequestTopic: "wirefunc.requests",
			ReplyTopic:   "wirefunc.replies",
			Timeout:      30 * time.Second,
		},
		Zipkin: Zipkin{
			ReporterURL: "http://127.0.0.1:9411/api/v2/spans",
			ServiceName: "wirefunc",
		},
		Server: Server{Listen: ":8080"},
	}
}

type fileConfig struct {
	Schema struct {
		File string `toml:"file"`
	} `toml:"schema"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
	Parse struct {
		Strict   bool  `toml:"strict"`
		MaxDepth int   `toml:"max_depth"`
		MaxBytes int64 `toml:"max_bytes"`
	} `toml:"parse"`
	Client struct {
		Transport string            `toml:"transport"`
		BaseURL   string            `toml:"base_url"`
		Timeout   string            `toml:"timeout"`
		Headers   map[string]string `toml:"headers"`
	} `toml:"client"`
	Kafka struct {
		Brokers      []string `toml:"brokers"`
		RequestTopic string   `toml:"request_topic"`
		ReplyTopic   string   `toml:"reply_topic"`
		Timeout      string   `toml:"timeout"`
	} `toml:"kafka"`
	Zipkin struct {
		Enabled     bool   `toml:"enabled"`
		ReporterURL string `toml:"reporter_url"`
		ServiceName string `toml:"service_name"`
	} `toml:"zipkin"`
	Server struct {
		Listen string `toml:"listen"`
		Stubs  string `toml:"stubs"`
	} `toml:"server"`
}

// Load reads the TOML file at path over Default and validates the result.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return resolve(raw, meta)
}

// Decode is Load over TOML text.
func Decode(text string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(text, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return resolve(raw, meta)
}

func resolve(raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: unknown keys: %s", strings.Join(keys, ", "))
	}

	cfg := Default()
	if meta.IsDefined("schema", "file") {
		cfg.Schema.File = strings.TrimSpace(raw.Schema.File)
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("parse", "strict") {
		cfg.Parse.Strict = raw.Parse.Strict
	}
	if meta.IsDefined("parse", "max_depth") {
		cfg.Parse.MaxDepth = raw.Parse.MaxDepth
	}
	if meta.IsDefined("parse", "max_bytes") {
		cfg.Parse.MaxBytes = raw.Parse.MaxBytes
	}
	if meta.IsDefined("client", "transport") {
		cfg.Client.Transport = strings.ToLower(strings.TrimSpace(raw.Client.Transport))
	}
	if meta.IsDefined("client", "base_url") {
		cfg.Client.BaseURL = strings.TrimSpace(raw.Client.BaseURL)
	}
	if meta.IsDefined("client", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Client.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse client.timeout: %w", err)
		}
		cfg.Client.Timeout = d
	}
	if meta.IsDefined("client", "headers") {
		cfg.Client.Headers = raw.Client.Headers
	}
	if meta.IsDefined("kafka", "brokers") {
		cfg.Kafka.Brokers = normalize(raw.Kafka.Brokers)
	}
	if meta.IsDefined("kafka", "request_topic") {
		cfg.Kafka.RequestTopic = strings.TrimSpace(raw.Kafka.RequestTopic)
	}
	if meta.IsDefined("kafka", "reply_topic") {
		cfg.Kafka.ReplyTopic = strings.TrimSpace(raw.Kafka.ReplyTopic)
	}
	if meta.IsDefined("kafka", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Kafka.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse kafka.timeout: %w", err)
		}
		cfg.Kafka.Timeout = d
	}
	if meta.IsDefined("zipkin", "enabled") {
		cfg.Zipkin.Enabled = raw.Zipkin.Enabled
	}
	if meta.IsDefined("zipkin", "reporter_url") {
		cfg.Zipkin.ReporterURL = strings.TrimSpace(raw.Zipkin.ReporterURL)
	}
	if meta.IsDefined("zipkin", "service_name") {
		cfg.Zipkin.ServiceName = strings.TrimSpace(raw.Zipkin.ServiceName)
	}
	if meta.IsDefined("server", "listen") {
		cfg.Server.Listen = strings.TrimSpace(raw.Server.Listen)
	}
	if meta.IsDefined("server", "stubs") {
		cfg.Server.Stubs = strings.TrimSpace(raw.Server.Stubs)
	}
	return cfg, cfg.Validate()
}

// Validate checks the fields the selected transport depends on.
func (c Config) Validate() error {
	var errs []error
	switch c.Client.Transport {
	case TransportHTTP:
		if u, err := url.Parse(c.Client.BaseURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("client.base_url %q is not an absolute url", c.Client.BaseURL))
		}
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers must not be empty"))
		}
		if c.Kafka.RequestTopic == "" || c.Kafka.ReplyTopic == "" {
			errs = append(errs, errors.New("kafka.request_topic and kafka.reply_topic are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("client.transport %q: want %q or %q", c.Client.Transport, TransportHTTP, TransportKafka))
	}
	if c.Client.Timeout < 0 || c.Kafka.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Parse.MaxDepth < 0 || c.Parse.MaxBytes < 0 {
		errs = append(errs, errors.New("parse limits must not be negative"))
	}
	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	}
	if c.Zipkin.Enabled && c.Zipkin.ReporterURL == "" {
		errs = append(errs, errors.New("zipkin.reporter_url is required when zipkin is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
