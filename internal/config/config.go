package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model. It is built once at
// startup and passed explicitly into the engine; nothing reads it from
// ambient globals, so tests can substitute alternate weight sets.
type Config struct {
	Storage   StorageConfig `yaml:"storage"`
	Cache     CacheConfig   `yaml:"cache"`
	Metrics   MetricsConfig `yaml:"metrics"`
	Following FeedConfig    `yaml:"following"`
	ForYou    FeedConfig    `yaml:"forYou"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type CacheConfig struct {
	// Redis address, e.g. "localhost:6379". Empty means in-process cache.
	RedisAddr string `yaml:"redisAddr"`
	RedisPass string `yaml:"redisPass"`
	// TTLSeconds applies to non-empty responses, EmptyTTLSeconds to empty
	// ones so a legitimately empty feed does not hammer the store.
	TTLSeconds      int `yaml:"ttlSeconds"`
	EmptyTTLSeconds int `yaml:"emptyTtlSeconds"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // ":9090" to expose /metrics, empty to disable
}

// FeedConfig carries every tunable of one feed variant. All scoring
// constants live here, not in the scorer.
type FeedConfig struct {
	CandidateLimit    int `yaml:"candidateLimit"`
	PerSourceLimit    int `yaml:"perSourceLimit"`
	WindowDays        int `yaml:"windowDays"`
	RecentWindowHours int `yaml:"recentWindowHours"`

	Weights WeightsConfig `yaml:"weights"`
	Boosts  BoostsConfig  `yaml:"boosts"`

	HalfLifeHours        float64 `yaml:"halfLifeHours"`
	VelocityFactor       float64 `yaml:"velocityFactor"`
	ReputationFloor      float64 `yaml:"reputationFloor"`
	ReputationCap        float64 `yaml:"reputationCap"`
	SpamPenaltyPerReport float64 `yaml:"spamPenaltyPerReport"`
	JitterStddev         float64 `yaml:"jitterStddev"`

	DiversityAuthorLimit int     `yaml:"diversityAuthorLimit"`
	OverfetchFactor      float64 `yaml:"overfetchFactor"`

	// Following feed only: cap on prepended thread parents.
	ThreadParentLimit int `yaml:"threadParentLimit"`
	// For-You feed only: how many historical hashtags feed topical affinity.
	TopAffinityHashtags int `yaml:"topAffinityHashtags"`
}

// WeightsConfig weights the base engagement sum.
type WeightsConfig struct {
	Like    float64 `yaml:"like"`
	Retweet float64 `yaml:"retweet"`
	Reply   float64 `yaml:"reply"`
	Quote   float64 `yaml:"quote"`
}

// BoostsConfig holds the multiplicative boosts; each is >= 1.
type BoostsConfig struct {
	RetweetedByFollowed  float64 `yaml:"retweetedByFollowed"`
	QuotedByFollowed     float64 `yaml:"quotedByFollowed"`
	LikedByFollowed      float64 `yaml:"likedByFollowed"`
	BookmarkedByFollowed float64 `yaml:"bookmarkedByFollowed"`
	DirectFollow         float64 `yaml:"directFollow"`
	TwoHop               float64 `yaml:"twoHop"`
	Topic                float64 `yaml:"topic"`
	Verified             float64 `yaml:"verified"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{DBPath: "./feedrank.db"},
		Cache:   CacheConfig{RedisAddr: "", TTLSeconds: 60, EmptyTTLSeconds: 15},
		Metrics: MetricsConfig{Addr: ""},
		Following: FeedConfig{
			CandidateLimit:    500,
			PerSourceLimit:    200,
			WindowDays:        7,
			RecentWindowHours: 48,
			Weights:           WeightsConfig{Like: 1.0, Retweet: 2.0, Reply: 1.5, Quote: 1.5},
			Boosts: BoostsConfig{
				RetweetedByFollowed: 1.1,
				QuotedByFollowed:    1.1,
				DirectFollow:        1.0,
				Topic:               1.0,
				Verified:            1.05,
			},
			HalfLifeHours:        6,
			VelocityFactor:       0.35,
			ReputationFloor:      0.2,
			ReputationCap:        3.0,
			SpamPenaltyPerReport: 0.5,
			JitterStddev:         0.02,
			DiversityAuthorLimit: 3,
			OverfetchFactor:      3.0,
			ThreadParentLimit:    10,
		},
		ForYou: FeedConfig{
			CandidateLimit:    800,
			PerSourceLimit:    150,
			WindowDays:        3,
			RecentWindowHours: 24,
			Weights:           WeightsConfig{Like: 1.0, Retweet: 2.0, Reply: 1.5, Quote: 1.5},
			Boosts: BoostsConfig{
				RetweetedByFollowed:  1.15,
				QuotedByFollowed:     1.15,
				LikedByFollowed:      1.2,
				BookmarkedByFollowed: 1.25,
				DirectFollow:         1.3,
				TwoHop:               1.1,
				Topic:                1.2,
				Verified:             1.05,
			},
			HalfLifeHours:        12,
			VelocityFactor:       0.5,
			ReputationFloor:      0.35,
			ReputationCap:        3.0,
			SpamPenaltyPerReport: 0.75,
			JitterStddev:         0.03,
			DiversityAuthorLimit: 2,
			OverfetchFactor:      3.0,
			TopAffinityHashtags:  10,
		},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = os.Getenv("FEEDRANK_REDIS_ADDR")
	}
	if c.Cache.RedisPass == "" {
		c.Cache.RedisPass = os.Getenv("FEEDRANK_REDIS_PASS")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
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
