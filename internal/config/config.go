// Package config loads application settings via viper and the source/scoring
// definitions from a YAML sources file.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// FetchConfig holds the global fetch limits shared by all strategies.
type FetchConfig struct {
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries        int    `yaml:"retries" mapstructure:"retries"`
	Concurrency    int    `yaml:"concurrency" mapstructure:"concurrency"`
	DelayMillis    int    `yaml:"delay_millis" mapstructure:"delay_millis"`
	LimitPerSource int    `yaml:"limit_per_source" mapstructure:"limit_per_source"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-request timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// Delay returns the minimum inter-request delay as a duration.
func (f FetchConfig) Delay() time.Duration {
	return time.Duration(f.DelayMillis) * time.Millisecond
}

// ScoringConfig holds run-wide scoring settings: global keyword groups and
// the batch normalization bounds.
type ScoringConfig struct {
	GlobalKeywords []NamedKeywordGroup `yaml:"global_keywords" mapstructure:"global_keywords"`
	Normalization  Normalization       `yaml:"normalization" mapstructure:"normalization"`
}

// NamedKeywordGroup is a keyword group evaluated for every source. Groups
// are declared as a list so evaluation order stays deterministic.
type NamedKeywordGroup struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
	Bonus    float64  `yaml:"bonus" mapstructure:"bonus"`
}

// Normalization configures the batch-level min-max rescale.
type Normalization struct {
	Enabled  bool    `yaml:"enabled" mapstructure:"enabled"`
	MinScore float64 `yaml:"min_score" mapstructure:"min_score"`
	MaxScore float64 `yaml:"max_score" mapstructure:"max_score"`
}

// SourcesConfig points at the source definition files. UserFile, when set,
// is merged over File by source id.
type SourcesConfig struct {
	File     string `yaml:"file" mapstructure:"file"`
	UserFile string `yaml:"user_file" mapstructure:"user_file"`
}

// OutputConfig configures report and history locations.
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	HistoryFile string `yaml:"history_file" mapstructure:"history_file"`
}

// StoreConfig configures the optional run archive.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and the DIGEST_* environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("fetch.timeout_secs", 20)
	v.SetDefault("fetch.retries", 2)
	v.SetDefault("fetch.concurrency", 3)
	v.SetDefault("fetch.delay_millis", 500)
	v.SetDefault("fetch.limit_per_source", 50)
	v.SetDefault("fetch.user_agent", "digest-cli/1.0")
	v.SetDefault("scoring.normalization.enabled", true)
	v.SetDefault("scoring.normalization.min_score", 0)
	v.SetDefault("scoring.normalization.max_score", 100)
	v.SetDefault("sources.file", "sources.yaml")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.history_file", "history.jsonl")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
