package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"openccp/internal/model"
	"openccp/internal/scoring"
)

// Config is the application's configuration model.
// It captures storage, serving, recompute scheduling and scoring policy.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Recompute   RecomputeConfig   `yaml:"recompute"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Keywords    KeywordsConfig    `yaml:"keywords"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metricsAddr"` // empty serves /metrics on Addr only
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

type RecomputeConfig struct {
	// Workers score accounts of one camp in parallel.
	Workers int `yaml:"workers"`
	// ReadTimeout bounds each keyword/tweet read from the store.
	ReadTimeout time.Duration `yaml:"readTimeout"`
	// RunTimeout bounds a whole camp run. 0 disables it.
	RunTimeout time.Duration `yaml:"runTimeout"`
	// Schedule is a cron spec for recomputing every camp, e.g. "@every 30m". Empty disables it.
	Schedule string `yaml:"schedule"`
	// Asynchronous trigger throttling and queue depth.
	TriggerRPS   float64 `yaml:"triggerRPS"`
	TriggerBurst int     `yaml:"triggerBurst"`
	QueueSize    int     `yaml:"queueSize"`
}

type ScoringConfig struct {
	BioMultiplier        float64 `yaml:"bioMultiplier"`
	TweetMultiplier      float64 `yaml:"tweetMultiplier"`
	MaxMatchesPerKeyword int     `yaml:"maxMatchesPerKeyword"` // 0 = uncapped
	SentimentThreshold   float64 `yaml:"sentimentThreshold"`
}

type KeywordsConfig struct {
	MinWeight float64 `yaml:"minWeight"`
	MaxWeight float64 `yaml:"maxWeight"`
}

type LeaderboardConfig struct {
	DefaultLimit   int `yaml:"defaultLimit"`
	TopTweetsLimit int `yaml:"topTweetsLimit"`
	ExcerptChars   int `yaml:"excerptChars"`
}

// envOverrides are read from the environment (and .env) with the OPENCCP_ prefix.
type envOverrides struct {
	DBPath            string        `envconfig:"DB_PATH"`
	HTTPAddr          string        `envconfig:"HTTP_ADDR"`
	MetricsAddr       string        `envconfig:"METRICS_ADDR"`
	LogLevel          string        `envconfig:"LOG_LEVEL"`
	LogFormat         string        `envconfig:"LOG_FORMAT"`
	RecomputeSchedule string        `envconfig:"RECOMPUTE_SCHEDULE"`
	RecomputeWorkers  int           `envconfig:"RECOMPUTE_WORKERS"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT"`
}

// Default returns a sensible default configuration.
func Default() Config {
	p := scoring.DefaultPolicy()
	return Config{
		Storage: StorageConfig{DBPath: "./openccp.db"},
		Server:  ServerConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info", Format: "json"},
		Recompute: RecomputeConfig{
			Workers:      4,
			ReadTimeout:  10 * time.Second,
			RunTimeout:   10 * time.Minute,
			Schedule:     "@every 1h",
			TriggerRPS:   1,
			TriggerBurst: 5,
			QueueSize:    64,
		},
		Scoring: ScoringConfig{
			BioMultiplier:      p.BioMultiplier,
			TweetMultiplier:    p.TweetMultiplier,
			SentimentThreshold: p.SentimentThreshold,
		},
		Keywords:    KeywordsConfig{MinWeight: model.DefaultMinWeight, MaxWeight: model.DefaultMaxWeight},
		Leaderboard: LeaderboardConfig{DefaultLimit: 20, TopTweetsLimit: 10, ExcerptChars: 280},
	}
}

// Policy converts the scoring section to a calculator policy.
func (c Config) Policy() scoring.Policy {
	return scoring.Policy{
		BioMultiplier:        c.Scoring.BioMultiplier,
		TweetMultiplier:      c.Scoring.TweetMultiplier,
		MaxMatchesPerKeyword: c.Scoring.MaxMatchesPerKeyword,
		SentimentThreshold:   c.Scoring.SentimentThreshold,
	}
}

// WeightBounds returns the accepted keyword weight range.
func (c Config) WeightBounds() model.WeightBounds {
	return model.WeightBounds{Min: c.Keywords.MinWeight, Max: c.Keywords.MaxWeight}
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Storage.DBPath == "" {
		return errors.New("storage.dbPath must be set")
	}
	if c.Recompute.Workers <= 0 {
		return errors.New("recompute.workers must be > 0")
	}
	if c.Recompute.ReadTimeout < 0 || c.Recompute.RunTimeout < 0 {
		return errors.New("recompute timeouts must be >= 0")
	}
	if c.Recompute.QueueSize <= 0 {
		return errors.New("recompute.queueSize must be > 0")
	}
	if c.Recompute.TriggerRPS < 0 || c.Recompute.TriggerBurst < 0 {
		return errors.New("recompute trigger rate must be >= 0")
	}
	if c.Keywords.MinWeight <= 0 || c.Keywords.MaxWeight < c.Keywords.MinWeight {
		return errors.New("keywords weight bounds must satisfy 0 < minWeight <= maxWeight")
	}
	if c.Scoring.BioMultiplier < 0 || c.Scoring.TweetMultiplier < 0 {
		return errors.New("scoring multipliers must be >= 0")
	}
	if c.Scoring.MaxMatchesPerKeyword < 0 {
		return errors.New("scoring.maxMatchesPerKeyword must be >= 0")
	}
	if c.Scoring.SentimentThreshold < 0 || c.Scoring.SentimentThreshold > 1 {
		return errors.New("scoring.sentimentThreshold must be within [0, 1]")
	}
	return nil
}

// ResolveEnv loads .env if present and applies OPENCCP_* environment overrides.
func (c *Config) ResolveEnv() error {
	_ = godotenv.Load()
	var env envOverrides
	if err := envconfig.Process("openccp", &env); err != nil {
		return err
	}
	if env.DBPath != "" {
		c.Storage.DBPath = env.DBPath
	}
	if env.HTTPAddr != "" {
		c.Server.Addr = env.HTTPAddr
	}
	if env.MetricsAddr != "" {
		c.Server.MetricsAddr = env.MetricsAddr
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Log.Format = env.LogFormat
	}
	if env.RecomputeSchedule != "" {
		c.Recompute.Schedule = env.RecomputeSchedule
	}
	if env.RecomputeWorkers > 0 {
		c.Recompute.Workers = env.RecomputeWorkers
	}
	if env.ReadTimeout > 0 {
		c.Recompute.ReadTimeout = env.ReadTimeout
	}
	return nil
}

// Load reads YAML config from path on top of the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, err
	}
	if err := cfg.ResolveEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
