package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Offices   OfficesConfig   `yaml:"offices" mapstructure:"offices"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Insights  InsightsConfig  `yaml:"insights" mapstructure:"insights"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnalysisConfig bounds the radius accepted from callers and tunes the
// coverage computation.
type AnalysisConfig struct {
	DefaultRadiusKM float64 `yaml:"default_radius_km" mapstructure:"default_radius_km"`
	MinRadiusKM     float64 `yaml:"min_radius_km" mapstructure:"min_radius_km"`
	MaxRadiusKM     float64 `yaml:"max_radius_km" mapstructure:"max_radius_km"`
	// ParallelThreshold is the suppliers x offices product above which
	// coverage is computed concurrently.
	ParallelThreshold int `yaml:"parallel_threshold" mapstructure:"parallel_threshold"`
	Workers           int `yaml:"workers" mapstructure:"workers"`
}

// OfficesConfig limits office management.
type OfficesConfig struct {
	MaxPerUser int `yaml:"max_per_user" mapstructure:"max_per_user"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key                     string  `yaml:"key" mapstructure:"key"`
	Model                   string  `yaml:"model" mapstructure:"model"`
	RecommendationMaxTokens int64   `yaml:"recommendation_max_tokens" mapstructure:"recommendation_max_tokens"`
	SWOTMaxTokens           int64   `yaml:"swot_max_tokens" mapstructure:"swot_max_tokens"`
	RateLimitRPS            float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// RedisConfig configures the optional insight cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// InsightsConfig configures AI insight generation.
type InsightsConfig struct {
	CacheTTLHours     int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	SweepIntervalSecs int `yaml:"sweep_interval_secs" mapstructure:"sweep_interval_secs"`
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}

	a := c.Analysis
	if a.MinRadiusKM <= 0 || a.MaxRadiusKM < a.MinRadiusKM {
		return eris.Errorf("config: invalid radius window [%v, %v]", a.MinRadiusKM, a.MaxRadiusKM)
	}
	if a.DefaultRadiusKM < a.MinRadiusKM || a.DefaultRadiusKM > a.MaxRadiusKM {
		return eris.Errorf("config: default radius %v outside [%v, %v]", a.DefaultRadiusKM, a.MinRadiusKM, a.MaxRadiusKM)
	}
	if c.Offices.MaxPerUser <= 0 {
		return eris.Errorf("config: offices.max_per_user must be positive, got %d", c.Offices.MaxPerUser)
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COVERAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "coverage.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("analysis.default_radius_km", 50.0)
	v.SetDefault("analysis.min_radius_km", 10.0)
	v.SetDefault("analysis.max_radius_km", 500.0)
	v.SetDefault("analysis.parallel_threshold", 200000)
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("offices.max_per_user", 6)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.recommendation_max_tokens", 1000)
	v.SetDefault("anthropic.swot_max_tokens", 1200)
	v.SetDefault("anthropic.rate_limit_rps", 1.0)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("insights.cache_ttl_hours", 24)
	v.SetDefault("insights.sweep_interval_secs", 3600)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
