package config

import (
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/luciancaetano/wsnegotiate"
	"github.com/luciancaetano/wsnegotiate/internal/negotiate"
)

const (
	envPrefix       = "WSNEGOTIATE"
	defaultFileName = "application.yaml"
	dotEnvFile      = ".env"
	dotEnvDepth     = 5
)

var ErrInvalidConfig = errors.New("invalid configuration")

type (
	Config struct {
		Logger    Logger    `yaml:"logger" mapstructure:"logger"`
		Server    Server    `yaml:"server" mapstructure:"server"`
		Handshake Handshake `yaml:"handshake" mapstructure:"handshake"`
		RateLimit RateLimit `yaml:"rateLimit" mapstructure:"rateLimit"`
	}
	Server struct {
		Addr              string        `yaml:"addr" mapstructure:"addr"`
		ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout" mapstructure:"readHeaderTimeout"`
		Development       bool          `yaml:"development" mapstructure:"development"`
	}
	Handshake struct {
		Path         string            `yaml:"path" mapstructure:"path"`
		StaticBody   string            `yaml:"staticBody" mapstructure:"staticBody"`
		StaticPaths  []string          `yaml:"staticPaths" mapstructure:"staticPaths"`
		Subprotocols negotiate.Options `yaml:"subprotocols" mapstructure:"subprotocols"`
		Origins      negotiate.Options `yaml:"origins" mapstructure:"origins"`
		Strict       bool              `yaml:"strict" mapstructure:"strict"`
		Echo         bool              `yaml:"echo" mapstructure:"echo"`
	}
	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requestsPerSecond" mapstructure:"requestsPerSecond"`
		Burst             int     `yaml:"burst" mapstructure:"burst"`
		Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	}
	Logger struct {
		Encoder string `yaml:"encoder" mapstructure:"encoder"`
		Level   string `yaml:"level" mapstructure:"level"`
	}
)

// New returns a viper instance with every default registered, ready for
// flags to be bound before Load reads the file.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.readHeaderTimeout", 10*time.Second)
	v.SetDefault("server.development", false)
	v.SetDefault("handshake.path", wsnegotiate.DefaultPath)
	v.SetDefault("handshake.staticPaths", []string{wsnegotiate.DefaultStaticPath})
	v.SetDefault("handshake.staticBody", wsnegotiate.DefaultStaticBody)
	v.SetDefault("handshake.strict", false)
	v.SetDefault("handshake.echo", false)
	v.SetDefault("handshake.subprotocols", []map[string]any{
		{"value": "chat", "priority": 1},
		{"value": "superchat", "priority": 2},
	})
	v.SetDefault("handshake.origins", []map[string]any{
		{"value": negotiate.Wildcard, "priority": 0},
	})
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerSecond", 20) //nolint:mnd // Default.
	v.SetDefault("rateLimit.burst", 40)             //nolint:mnd // Default.
	v.SetDefault("logger.encoder", "console")
	v.SetDefault("logger.level", "info")

	return v
}

// Load reads path, or application.yaml from the working directory when path
// is empty; a missing default file is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(New(), path)
}

// LoadWith is Load on a caller-prepared viper instance.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	loadDotEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %q", path)
		}
	} else {
		v.SetConfigFile(defaultFileName)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "failed to read %v", defaultFileName)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad panics when Load fails.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Server.Addr == "" {
		result = multierror.Append(result, errors.New("server.addr is required"))
	}
	if !strings.HasPrefix(c.Handshake.Path, "/") {
		result = multierror.Append(result, errors.Errorf("handshake.path %q must start with /", c.Handshake.Path))
	}
	for _, p := range c.Handshake.StaticPaths {
		if p == c.Handshake.Path {
			result = multierror.Append(result, errors.Errorf("handshake.staticPaths must not contain %q", p))
		}
	}
	if err := c.Handshake.Subprotocols.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "handshake.subprotocols"))
	}
	if err := c.Handshake.Origins.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "handshake.origins"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		result = multierror.Append(result, errors.New("rateLimit.requestsPerSecond and rateLimit.burst must be positive"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(multierror.Append(ErrInvalidConfig, err), "config validation failed")
	}

	return nil
}

func loadDotEnv() {
	path := dotEnvFile
	for range dotEnvDepth {
		if err := godotenv.Load(path); err == nil {
			return
		}
		path = "../" + path
	}
}
