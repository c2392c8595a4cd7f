package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/compass-hr/pricing-engine/internal/cache"
	"github.com/compass-hr/pricing-engine/internal/confidence"
	"github.com/compass-hr/pricing-engine/internal/location"
	"github.com/compass-hr/pricing-engine/internal/matcher"
	"github.com/compass-hr/pricing-engine/internal/pricing"
	"github.com/compass-hr/pricing-engine/internal/source"
	"github.com/compass-hr/pricing-engine/internal/store"
	"github.com/compass-hr/pricing-engine/internal/weight"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig       `yaml:"store" mapstructure:"store"`
	Server     ServerConfig      `yaml:"server" mapstructure:"server"`
	Log        LogConfig         `yaml:"log" mapstructure:"log"`
	Engine     pricing.Config    `yaml:"engine" mapstructure:"engine"`
	Matcher    matcher.Config    `yaml:"matcher" mapstructure:"matcher"`
	Weights    weight.Config     `yaml:"weights" mapstructure:"weights"`
	Confidence confidence.Config `yaml:"confidence" mapstructure:"confidence"`
	Cache      cache.Config      `yaml:"cache" mapstructure:"cache"`
	Location   location.Config   `yaml:"location" mapstructure:"location"`
	Sources    []source.Config   `yaml:"sources" mapstructure:"sources"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the pricing API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PRICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "pricing.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("engine.currency", "USD")
	v.SetDefault("engine.period", "annual")
	v.SetDefault("engine.fanout_concurrency", 8)
	v.SetDefault("matcher.top_k", 5)
	v.SetDefault("matcher.similarity_floor", 0.30)
	v.SetDefault("matcher.high_floor", 0.75)
	v.SetDefault("matcher.medium_floor", 0.45)
	v.SetDefault("weights.size_cap", 200)
	v.SetDefault("weights.recency_floor", 0.10)
	v.SetDefault("weights.recency_span_days", 365)
	v.SetDefault("confidence.job_match_points", 20)
	v.SetDefault("confidence.data_points_points", 35)
	v.SetDefault("confidence.sample_size_points", 45)
	v.SetDefault("confidence.source_saturation", 4)
	v.SetDefault("confidence.sample_saturation", 1000)
	v.SetDefault("confidence.high_threshold", 75)
	v.SetDefault("confidence.medium_threshold", 50)
	v.SetDefault("cache.default_ttl_hours", 24)
	v.SetDefault("cache.retain_versions", 5)
	v.SetDefault("location.reference_location", "national")
	v.SetDefault("sources", defaultSources())

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

	return &cfg, nil
}

// Validate checks the settings a given run mode depends on. Mode is the
// command being run: "serve" needs a listenable port, "cli" does not.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" && c.Store.Driver != "" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if c.Matcher.SimilarityFloor < 0 || c.Matcher.SimilarityFloor > 1 {
		problems = append(problems, "matcher.similarity_floor must be between 0 and 1")
	}
	if c.Matcher.MediumFloor > c.Matcher.HighFloor {
		problems = append(problems, "matcher.medium_floor must not exceed matcher.high_floor")
	}
	if c.Confidence.MediumThreshold > c.Confidence.HighThreshold {
		problems = append(problems, "confidence.medium_threshold must not exceed confidence.high_threshold")
	}
	if c.Cache.RetainVersions < 1 {
		problems = append(problems, "cache.retain_versions must be >= 1")
	}
	if len(c.Sources) == 0 {
		problems = append(problems, "at least one benchmark source must be configured")
	}
	for _, s := range c.Sources {
		if s.Name == "" {
			problems = append(problems, "sources entries need a name")
			break
		}
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	case "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// defaultSources lists the stock benchmark sources served from the
// pre-loaded benchmark tables.
func defaultSources() []map[string]any {
	return []map[string]any{
		{"name": "survey_library", "survey_label": "Standardized Survey Library", "freshness_days": 90, "timeout_secs": 10},
		{"name": "gov_framework", "survey_label": "Government Skills Framework", "freshness_days": 180, "timeout_secs": 10},
		{"name": "internal_hr", "survey_label": "Internal HR Records", "freshness_days": 30, "timeout_secs": 10},
		{"name": "applicant_data", "survey_label": "External Applicant Data", "freshness_days": 14, "timeout_secs": 10},
	}
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
