package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/lazyblog/internal/errors"
)

const (
	// FileName is the base name of the configuration file.
	FileName = "lazyblog"

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "LAZYBLOG_"

	DefaultAddr = ":8080"
)

// Duration is a time.Duration that reads and writes as "1m30s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the complete server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string `json:"addr" yaml:"addr" env:"ADDR"`

	ShutdownTimeout Duration `json:"shutdownTimeout" yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel" yaml:"logLevel" env:"LOG_LEVEL"`

	// LogFormat is text or json.
	LogFormat string `json:"logFormat" yaml:"logFormat" env:"LOG_FORMAT"`

	// Stream enables streamed document responses.
	Stream bool `json:"stream" yaml:"stream" env:"STREAM"`

	// Pretty indents rendered HTML.
	Pretty bool `json:"pretty" yaml:"pretty" env:"PRETTY"`

	Posts   PostsConfig   `json:"posts" yaml:"posts" envPrefix:"POSTS_"`
	Cache   CacheConfig   `json:"cache" yaml:"cache" envPrefix:"CACHE_"`
	Bundles BundlesConfig `json:"bundles" yaml:"bundles" envPrefix:"BUNDLES_"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" envPrefix:"METRICS_"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing" envPrefix:"TRACING_"`

	path string
}

// PostsConfig selects the posts store.
type PostsConfig struct {
	// Source is http, sqlite or memory.
	Source string `json:"source" yaml:"source" env:"SOURCE"`

	// BaseURL is the JSONPlaceholder-compatible API used by the http source.
	BaseURL string `json:"baseURL" yaml:"baseURL" env:"BASE_URL"`

	SQLitePath string `json:"sqlitePath" yaml:"sqlitePath" env:"SQLITE_PATH"`

	// Seed fills an empty SQLite store with sample posts.
	Seed bool `json:"seed" yaml:"seed" env:"SEED"`

	// Timeout bounds each request of the http source.
	Timeout Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
}

// CacheConfig configures the Redis loader cache. An empty RedisURL
// disables caching.
type CacheConfig struct {
	RedisURL string   `json:"redisURL" yaml:"redisURL" env:"REDIS_URL"`
	TTL      Duration `json:"ttl" yaml:"ttl" env:"TTL"`
	Prefix   string   `json:"prefix" yaml:"prefix" env:"PREFIX"`
}

// BundlesConfig selects where page bundles are fetched from.
type BundlesConfig struct {
	// Source is embed, dir or s3.
	Source string `json:"source" yaml:"source" env:"SOURCE"`

	Dir string `json:"dir" yaml:"dir" env:"DIR"`

	// Delay is added to every bundle fetch.
	Delay Duration `json:"delay" yaml:"delay" env:"DELAY"`

	S3 S3Config `json:"s3" yaml:"s3" envPrefix:"S3_"`
}

// S3Config locates bundles in an S3-compatible bucket.
type S3Config struct {
	Bucket    string `json:"bucket" yaml:"bucket" env:"BUCKET"`
	Prefix    string `json:"prefix" yaml:"prefix" env:"PREFIX"`
	Region    string `json:"region" yaml:"region" env:"REGION"`
	Endpoint  string `json:"endpoint" yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `json:"accessKey" yaml:"accessKey" env:"ACCESS_KEY"`
	SecretKey string `json:"-" yaml:"-" env:"SECRET_KEY"`
	PathStyle bool   `json:"pathStyle" yaml:"pathStyle" env:"PATH_STYLE"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	Path    string `json:"path" yaml:"path" env:"PATH"`
}

// TracingConfig configures the OTLP/HTTP span exporter.
type TracingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" env:"ENABLED"`

	// Endpoint is host:port of the collector. Empty uses the exporter's
	// default and the OTEL_EXPORTER_OTLP_* variables.
	Endpoint    string  `json:"endpoint" yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool    `json:"insecure" yaml:"insecure" env:"INSECURE"`
	ServiceName string  `json:"serviceName" yaml:"serviceName" env:"SERVICE_NAME"`
	SampleRatio float64 `json:"sampleRatio" yaml:"sampleRatio" env:"SAMPLE_RATIO"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:            DefaultAddr,
		ShutdownTimeout: Duration(15 * time.Second),
		LogLevel:        "info",
		LogFormat:       "text",
		Stream:          true,
		Posts: PostsConfig{
			Source:     "http",
			BaseURL:    "https://jsonplaceholder.typicode.com",
			SQLitePath: "lazyblog.db",
			Seed:       true,
			Timeout:    Duration(10 * time.Second),
		},
		Cache: CacheConfig{
			TTL:    Duration(time.Minute),
			Prefix: "lazyblog:",
		},
		Bundles: BundlesConfig{
			Source: "embed",
			Dir:    "bundles",
			S3:     S3Config{Region: "us-east-1"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			ServiceName: "lazyblog",
			SampleRatio: 1,
		},
	}
}

// LoadOptions controls Load.
type LoadOptions struct {
	// File is the configuration file. Empty searches Dir for lazyblog.json,
	// lazyblog.yaml and lazyblog.yml; a missing file is not an error then.
	File string

	// Dir is searched when File is empty. Defaults to ".".
	Dir string

	// EnvFile is a dotenv file. Defaults to Dir/.env; a missing file is
	// ignored.
	EnvFile string

	// Environ replaces the process environment, as KEY=VALUE pairs.
	Environ []string
}

// Load builds the configuration from defaults, the configuration file, the
// dotenv file and the environment, then validates it.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.Dir == "" {
		opts.Dir = "."
	}

	path, required := opts.File, opts.File != ""
	if path == "" {
		path = findFile(opts.Dir)
	}
	if path != "" {
		// A searched file may vanish between the lookup and the read.
		if err := cfg.readFile(path); err != nil && (required || !stderrors.Is(err, fs.ErrNotExist)) {
			return nil, err
		}
	}

	environ, err := environment(opts)
	if err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return nil, errors.New("E124").
			WithDetail(err.Error()).
			WithSuggestion("Check the LAZYBLOG_* variables in your environment and .env file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the configuration was read from, if any.
func (c *Config) Path() string {
	return c.path
}

func findFile(dir string) string {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		p := filepath.Join(dir, FileName+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.New("E120").
				WithDetail("No configuration file at " + path).
				Wrap(err)
		}
		return errors.New("E120").Wrap(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(c)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(c)
	}
	if err != nil {
		return errors.New("E120").
			WithDetailf("Failed to parse %s: %v", filepath.Base(path), err).
			WithSuggestion("Check the file syntax and key names")
	}

	c.path = path
	return nil
}

func environment(opts LoadOptions) (map[string]string, error) {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	out := make(map[string]string, len(environ))

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = filepath.Join(opts.Dir, ".env")
	}
	dotenv, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		for k, v := range dotenv {
			out[k] = v
		}
	case stderrors.Is(err, fs.ErrNotExist) && opts.EnvFile == "":
	default:
		return nil, errors.New("E120").
			WithDetailf("Failed to read %s: %v", envFile, err)
	}

	// The real environment wins over .env.
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, port, err := net.SplitHostPort(c.Addr); err != nil || port == "" {
		return errors.New("E122").
			WithDetailf("%q is not host:port", c.Addr).
			WithSuggestion(`Use a value like ":8080" or "127.0.0.1:8080"`)
	}
	if c.ShutdownTimeout < 0 {
		return invalid("shutdownTimeout", "must not be negative")
	}
	if err := oneOf("logLevel", c.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if err := oneOf("logFormat", c.LogFormat, "text", "json"); err != nil {
		return err
	}

	if err := oneOf("posts.source", c.Posts.Source, "http", "sqlite", "memory"); err != nil {
		return err
	}
	switch c.Posts.Source {
	case "http":
		if c.Posts.BaseURL == "" {
			return missing("posts.baseURL", "the http posts source")
		}
	case "sqlite":
		if c.Posts.SQLitePath == "" {
			return missing("posts.sqlitePath", "the sqlite posts source")
		}
	}
	if c.Cache.RedisURL != "" && c.Cache.TTL <= 0 {
		return invalid("cache.ttl", "must be positive when caching is enabled")
	}

	if err := oneOf("bundles.source", c.Bundles.Source, "embed", "dir", "s3"); err != nil {
		return err
	}
	switch c.Bundles.Source {
	case "dir":
		if c.Bundles.Dir == "" {
			return missing("bundles.dir", "the dir bundle source")
		}
	case "s3":
		if c.Bundles.S3.Bucket == "" {
			return missing("bundles.s3.bucket", "the s3 bundle source")
		}
	}
	if c.Bundles.Delay < 0 {
		return invalid("bundles.delay", "must not be negative")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path", fmt.Sprintf("%q must start with /", c.Metrics.Path))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return invalid("tracing.sampleRatio", "must be between 0 and 1")
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.New("E123").
		WithDetailf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

func invalid(key, reason string) error {
	return errors.New("E123").WithDetailf("%s %s", key, reason)
}

func missing(key, what string) error {
	return errors.New("E121").
		WithDetailf("%s is required by %s", key, what).
		WithSuggestion("Set it in lazyblog.json or with LAZYBLOG_" + envName(key))
}

func envName(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '.':
			b.WriteByte('_')
		case r >= 'A' && r <= 'Z' && i > 0 && key[i-1] >= 'a' && key[i-1] <= 'z':
			b.WriteByte('_')
			b.WriteRune(r)
		default:
			b.WriteString(strings.ToUpper(string(r)))
		}
	}
	return b.String()
}
