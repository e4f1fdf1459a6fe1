package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/vango-dev/cfsui/internal/errors"
	"github.com/vango-dev/cfsui/pkg/nav"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "cfsui.yaml"

	// EnvPrefix prefixes environment overrides. Nested keys are separated by
	// a double underscore: CFSUI_SERVER__ADDR sets server.addr.
	EnvPrefix = "CFSUI_"

	// DefaultAddr is the default API server listen address.
	DefaultAddr = "localhost:8080"

	// DefaultRoot is the path the UI is mounted under.
	DefaultRoot = "/ui"

	// DefaultAPIRoot is the path the JSON API is mounted under.
	DefaultAPIRoot = "/api"
)

// Config is the complete cfsui configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server" json:"server"`
	Auth    AuthConfig    `koanf:"auth" json:"auth"`
	Store   StoreConfig   `koanf:"store" json:"store"`
	Client  ClientConfig  `koanf:"client" json:"client"`
	Dev     DevConfig     `koanf:"dev" json:"dev"`
	Log     LogConfig     `koanf:"log" json:"log"`
	Metrics MetricsConfig `koanf:"metrics" json:"metrics"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains API server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `koanf:"addr" json:"addr"`

	// Root is the path the UI shell is served under.
	Root string `koanf:"root" json:"root"`

	// APIRoot is the path the JSON API is served under.
	APIRoot string `koanf:"api_root" json:"api_root"`

	// Assets is an optional directory served at /assets/ instead of the
	// embedded assets.
	Assets string `koanf:"assets" json:"assets,omitempty"`

	ReadTimeout    time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout" json:"write_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout" json:"request_timeout"`

	// CORSOrigins lists origins allowed to call the API. Empty disables CORS.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins,omitempty"`

	// ReadOnly disables the upload endpoints.
	ReadOnly bool `koanf:"read_only" json:"read_only,omitempty"`

	// MaxUpload bounds the size of an uploaded blob in bytes.
	MaxUpload int64 `koanf:"max_upload" json:"max_upload"`
}

// AuthConfig enables HTTP basic auth on the API and UI when Username is set.
type AuthConfig struct {
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"-"`
	Realm    string `koanf:"realm" json:"realm,omitempty"`
}

// Enabled reports whether basic auth is configured.
func (a AuthConfig) Enabled() bool {
	return a.Username != ""
}

// StoreConfig selects and configures the cabinet backend.
type StoreConfig struct {
	// Backend is "fs" or "s3".
	Backend string `koanf:"backend" json:"backend"`

	// Dir is the cabinet root for the fs backend.
	Dir string `koanf:"dir" json:"dir,omitempty"`

	// CacheSize bounds the number of decoded bucket manifests kept in memory.
	CacheSize int `koanf:"cache_size" json:"cache_size"`

	S3 S3Config `koanf:"s3" json:"s3"`
}

// S3Config configures the S3 backend.
type S3Config struct {
	Bucket    string `koanf:"bucket" json:"bucket,omitempty"`
	Prefix    string `koanf:"prefix" json:"prefix,omitempty"`
	Region    string `koanf:"region" json:"region,omitempty"`
	Endpoint  string `koanf:"endpoint" json:"endpoint,omitempty"`
	AccessKey string `koanf:"access_key" json:"-"`
	SecretKey string `koanf:"secret_key" json:"-"`
	PathStyle bool   `koanf:"path_style" json:"path_style,omitempty"`
}

// ClientConfig configures the navigation runtime used by `cfsui browse`.
type ClientConfig struct {
	// APIURL is the base URL of the API server.
	APIURL string `koanf:"api_url" json:"api_url"`

	// Retries is the number of retries for failed fetches.
	Retries int `koanf:"retries" json:"retries"`

	// Timeout bounds a single fetch.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// Policy is the stale response policy: "latest" or "last-response".
	Policy string `koanf:"policy" json:"policy"`
}

// DevConfig contains development reload settings.
type DevConfig struct {
	// Reload enables the websocket reload endpoint.
	Reload bool `koanf:"reload" json:"reload"`

	// Watch contains paths to watch for changes.
	Watch []string `koanf:"watch" json:"watch,omitempty"`

	// Ignore contains doublestar patterns to ignore during watch.
	Ignore []string `koanf:"ignore" json:"ignore,omitempty"`

	// Interval is the polling interval.
	Interval time.Duration `koanf:"interval" json:"interval"`
}

// LogConfig configures slog output.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level" json:"level"`

	// Format is "text" or "json".
	Format string `koanf:"format" json:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled" json:"enabled"`
	Namespace string `koanf:"namespace" json:"namespace"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           DefaultAddr,
			Root:           DefaultRoot,
			APIRoot:        DefaultAPIRoot,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			RequestTimeout: 20 * time.Second,
			MaxUpload:      64 << 20,
		},
		Auth: AuthConfig{Realm: "cfsui"},
		Store: StoreConfig{
			Backend:   "fs",
			Dir:       "cabinet",
			CacheSize: 64,
		},
		Client: ClientConfig{
			APIURL:  "http://" + DefaultAddr + DefaultAPIRoot,
			Retries: 3,
			Timeout: 10 * time.Second,
			Policy:  nav.LatestNavigationWins.String(),
		},
		Dev: DevConfig{
			Watch:    []string{"internal/ui/templates", "internal/ui/assets"},
			Ignore:   []string{"**/.*", "**/*~"},
			Interval: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "cfsui",
		},
	}
}

// Load reads cfsui.yaml from dir, if present, then overlays CFSUI_
// environment variables.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from path on top of the defaults. A missing
// file is not an error; environment overrides still apply.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := New()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.New("E202").
				Wrap(err).
				WithLocation(path, 0, 0, "").
				WithSuggestion("Check that " + filepath.Base(path) + " is valid YAML")
		}
		cfg.configPath = path
	} else if !os.IsNotExist(err) {
		return nil, errors.New("E202").Wrap(err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.New("E202").Wrap(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.New("E201").Wrap(err)
	}
	return cfg, nil
}

// envKey maps CFSUI_STORE__S3__BUCKET to store.s3.bucket.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

var validBackends = map[string]bool{"fs": true, "s3": true}

var validLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New("E201").WithDetail(fmt.Sprintf(format, args...))
	}

	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	for name, p := range map[string]string{"server.root": c.Server.Root, "server.api_root": c.Server.APIRoot} {
		if !strings.HasPrefix(p, "/") || (len(p) > 1 && strings.HasSuffix(p, "/")) {
			return invalid("%s must start with '/' and not end with one, got %q", name, p)
		}
	}
	if c.Server.Root == c.Server.APIRoot {
		return invalid("server.root and server.api_root must differ")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.RequestTimeout < 0 {
		return invalid("server timeouts must be non-negative")
	}
	if c.Server.MaxUpload <= 0 {
		return invalid("server.max_upload must be positive")
	}
	if c.Auth.Enabled() && c.Auth.Password == "" {
		return invalid("auth.password is required when auth.username is set")
	}

	if !validBackends[c.Store.Backend] {
		return invalid("invalid store.backend %q: must be one of fs, s3", c.Store.Backend)
	}
	if c.Store.Backend == "fs" && c.Store.Dir == "" {
		return invalid("store.dir is required for the fs backend")
	}
	if c.Store.Backend == "s3" && c.Store.S3.Bucket == "" {
		return invalid("store.s3.bucket is required for the s3 backend")
	}
	if c.Store.CacheSize < 0 {
		return invalid("store.cache_size must be non-negative")
	}

	if c.Client.Retries < 0 {
		return invalid("client.retries must be non-negative")
	}
	if _, err := nav.ParsePolicy(c.Client.Policy); err != nil {
		return invalid("invalid client.policy %q: must be latest or last-response", c.Client.Policy)
	}

	if _, ok := validLevels[strings.ToLower(c.Log.Level)]; !ok {
		return invalid("invalid log.level %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("invalid log.format %q: must be text or json", c.Log.Format)
	}
	if c.Dev.Interval <= 0 {
		return invalid("dev.interval must be positive")
	}
	return nil
}

// Logger builds the slog logger described by c.Log.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: validLevels[strings.ToLower(c.Log.Level)]}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NavPolicy returns the parsed stale response policy.
func (c *Config) NavPolicy() nav.Policy {
	p, err := nav.ParsePolicy(c.Client.Policy)
	if err != nil {
		return nav.LatestNavigationWins
	}
	return p
}
