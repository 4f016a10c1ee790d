package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "NEWSLENS_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	logFormatEnv       = "LOG_FORMAT"
	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	analysisURLEnv     = "ANALYSIS_ENDPOINT"
	analysisAPIKeyEnv  = "ANALYSIS_API_KEY"
	llmEndpointEnv     = "LLM_ENDPOINT"
	llmAPIKeyEnv       = "LLM_API_KEY"
	llmModelEnv        = "LLM_MODEL"
	llmEmbedModelEnv   = "LLM_EMBEDDING_MODEL"
	diversityEnv       = "DIVERSITY_ENABLED"
	serverAddrEnv      = "SERVER_ADDR"
	enrichConcurrency  = "ENRICH_CONCURRENCY"
	rankingWindowEnv   = "RANKING_WINDOW_HOURS"
	defaultSQLitePath  = "newslens.db"
	defaultLLMEndpoint = "https://api.openai.com/v1"
)

// Config holds settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	LLM        LLMConfig        `yaml:"llm"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Topics     TopicsConfig     `yaml:"topics"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Server     ServerConfig     `yaml:"server"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DatabaseConfig describes the SQL store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `yaml:"dsn" validate:"required"`
}

// AnalysisConfig points at the item analysis service. Provider "llm" uses
// the chat model instead of a dedicated endpoint.
type AnalysisConfig struct {
	Provider string        `yaml:"provider" validate:"oneof=ml llm"`
	Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LLMConfig defines how to contact the OpenAI-compatible API used for
// embeddings and topic disambiguation.
type LLMConfig struct {
	Endpoint       string        `yaml:"endpoint" validate:"omitempty,url"`
	APIKey         string        `yaml:"apiKey"`
	Model          string        `yaml:"model"`
	EmbeddingModel string        `yaml:"embeddingModel"`
	SystemPrompt   string        `yaml:"systemPrompt"`
	Timeout        time.Duration `yaml:"timeout"`
}

// ResilienceConfig is the retry and circuit-breaker policy of every external client.
type ResilienceConfig struct {
	MaxRetries      int           `yaml:"maxRetries"`
	Backoff         time.Duration `yaml:"backoff"`
	MaxBackoff      time.Duration `yaml:"maxBackoff"`
	BreakerFailures uint32        `yaml:"breakerFailures"`
	BreakerCooldown time.Duration `yaml:"breakerCooldown"`
	RatePerSecond   float64       `yaml:"ratePerSecond"`
	Burst           int           `yaml:"burst"`
}

// TopicsConfig tunes the topic canonicalizer.
type TopicsConfig struct {
	SimilarityThreshold float64       `yaml:"similarityThreshold"`
	VocabularyCap       int           `yaml:"vocabularyCap"`
	Disambiguation      bool          `yaml:"disambiguation"`
	SynonymConfidence   float64       `yaml:"synonymConfidence"`
	IndexTTL            time.Duration `yaml:"indexTTL"`
	ResolveTimeout      time.Duration `yaml:"resolveTimeout"`
}

// EnrichmentConfig sizes the enrichment worker pool and its schedule.
type EnrichmentConfig struct {
	Concurrency int           `yaml:"concurrency"`
	BatchLimit  int           `yaml:"batchLimit"`
	WindowHours int           `yaml:"windowHours"`
	Interval    time.Duration `yaml:"interval"`
	RunOnStart  bool          `yaml:"runOnStart"`
}

// RankingConfig holds scoring weights and candidate limits.
type RankingConfig struct {
	WindowHours     int             `yaml:"windowHours"`
	CandidateLimit  int             `yaml:"candidateLimit"`
	DefaultLimit    int             `yaml:"defaultLimit"`
	MaxLimit        int             `yaml:"maxLimit"`
	RequireEnriched bool            `yaml:"requireEnriched"`
	Weights         WeightsConfig   `yaml:"weights"`
	Diversity       DiversityConfig `yaml:"diversity"`
}

// WeightsConfig are the coefficients of the final score.
type WeightsConfig struct {
	Profile  float64 `yaml:"profile"`
	Quality  float64 `yaml:"quality"`
	Feedback float64 `yaml:"feedback"`
	Base     float64 `yaml:"base"`
}

// DiversityConfig controls topic quotas in the digest.
type DiversityConfig struct {
	Enabled        bool    `yaml:"enabled"`
	TopK           int     `yaml:"topK"`
	MinAssignScore float64 `yaml:"minAssignScore"`
	MinPerTopic    int     `yaml:"minPerTopic"`
	MaxShare       float64 `yaml:"maxShare"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimitRequests per RateLimitWindow per client IP; 0 disables limiting.
	RateLimitRequests int           `yaml:"rateLimitRequests"`
	RateLimitWindow   time.Duration `yaml:"rateLimitWindow"`
}

// Load reads YAML configuration from path (or NEWSLENS_CONFIG when path is
// empty) over the defaults, applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.Format, logFormatEnv)
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Analysis.Endpoint, analysisURLEnv)
	setString(&c.Analysis.APIKey, analysisAPIKeyEnv)
	setString(&c.LLM.Endpoint, llmEndpointEnv)
	setString(&c.LLM.APIKey, llmAPIKeyEnv)
	setString(&c.LLM.Model, llmModelEnv)
	setString(&c.LLM.EmbeddingModel, llmEmbedModelEnv)
	setString(&c.Server.Addr, serverAddrEnv)

	if v := os.Getenv(diversityEnv); v != "" {
		c.Ranking.Diversity.Enabled = v != "0" && !strings.EqualFold(v, "false")
	}
	if n, ok := envInt(enrichConcurrency); ok {
		c.Enrichment.Concurrency = n
	}
	if n, ok := envInt(rankingWindowEnv); ok {
		c.Ranking.WindowHours = n
	}
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	def := defaultConfig()

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Database.Driver == "postgresql" {
		c.Database.Driver = "postgres"
	}
	if c.Analysis.Provider == "" {
		c.Analysis.Provider = def.Analysis.Provider
	}

	positiveDuration(&c.Analysis.Timeout, def.Analysis.Timeout)
	positiveDuration(&c.LLM.Timeout, def.LLM.Timeout)
	positiveDuration(&c.Resilience.Backoff, def.Resilience.Backoff)
	positiveDuration(&c.Resilience.MaxBackoff, def.Resilience.MaxBackoff)
	positiveDuration(&c.Resilience.BreakerCooldown, def.Resilience.BreakerCooldown)
	positiveDuration(&c.Topics.IndexTTL, def.Topics.IndexTTL)
	positiveDuration(&c.Topics.ResolveTimeout, def.Topics.ResolveTimeout)
	positiveDuration(&c.Enrichment.Interval, def.Enrichment.Interval)
	positiveDuration(&c.Server.ReadTimeout, def.Server.ReadTimeout)
	positiveDuration(&c.Server.WriteTimeout, def.Server.WriteTimeout)
	positiveDuration(&c.Server.ShutdownTimeout, def.Server.ShutdownTimeout)

	if c.Resilience.MaxRetries < 0 {
		c.Resilience.MaxRetries = def.Resilience.MaxRetries
	}
	if c.Resilience.BreakerFailures == 0 {
		c.Resilience.BreakerFailures = def.Resilience.BreakerFailures
	}
	if c.Resilience.RatePerSecond < 0 {
		c.Resilience.RatePerSecond = 0
	}
	if c.Server.RateLimitRequests < 0 {
		c.Server.RateLimitRequests = 0
	}
	positiveDuration(&c.Server.RateLimitWindow, def.Server.RateLimitWindow)

	unitInterval(&c.Topics.SimilarityThreshold, def.Topics.SimilarityThreshold)
	unitInterval(&c.Topics.SynonymConfidence, def.Topics.SynonymConfidence)
	positiveInt(&c.Topics.VocabularyCap, def.Topics.VocabularyCap)

	positiveInt(&c.Enrichment.Concurrency, def.Enrichment.Concurrency)
	positiveInt(&c.Enrichment.BatchLimit, def.Enrichment.BatchLimit)
	positiveInt(&c.Enrichment.WindowHours, def.Enrichment.WindowHours)

	positiveInt(&c.Ranking.WindowHours, def.Ranking.WindowHours)
	positiveInt(&c.Ranking.CandidateLimit, def.Ranking.CandidateLimit)
	positiveInt(&c.Ranking.DefaultLimit, def.Ranking.DefaultLimit)
	positiveInt(&c.Ranking.MaxLimit, def.Ranking.MaxLimit)
	c.Ranking.MaxLimit = max(c.Ranking.MaxLimit, c.Ranking.DefaultLimit)

	w := &c.Ranking.Weights
	if w.Profile < 0 || w.Quality < 0 || w.Feedback < 0 || w.Base < 0 ||
		w.Profile+w.Quality+w.Feedback+w.Base == 0 {
		*w = def.Ranking.Weights
	}

	d := &c.Ranking.Diversity
	positiveInt(&d.TopK, def.Ranking.Diversity.TopK)
	unitInterval(&d.MinAssignScore, def.Ranking.Diversity.MinAssignScore)
	if d.MinPerTopic < 0 {
		d.MinPerTopic = def.Ranking.Diversity.MinPerTopic
	}
	if d.MaxShare <= 0 || d.MaxShare > 1 {
		d.MaxShare = def.Ranking.Diversity.MaxShare
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = def.Server.Addr
	}
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "file:" + defaultSQLitePath + "?_foreign_keys=on&_busy_timeout=5000"},
		Analysis: AnalysisConfig{Provider: "ml", Timeout: 30 * time.Second},
		LLM: LLMConfig{
			Endpoint:       defaultLLMEndpoint,
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Timeout:        30 * time.Second,
		},
		Resilience: ResilienceConfig{
			MaxRetries:      2,
			Backoff:         time.Second,
			MaxBackoff:      10 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
			RatePerSecond:   20,
			Burst:           12,
		},
		Topics: TopicsConfig{
			SimilarityThreshold: 0.82,
			VocabularyCap:       5000,
			Disambiguation:      true,
			SynonymConfidence:   0.6,
			IndexTTL:            5 * time.Minute,
			ResolveTimeout:      time.Minute,
		},
		Enrichment: EnrichmentConfig{
			Concurrency: 12,
			BatchLimit:  150,
			WindowHours: 48,
			Interval:    15 * time.Minute,
			RunOnStart:  true,
		},
		Ranking: RankingConfig{
			WindowHours:    24,
			CandidateLimit: 800,
			DefaultLimit:   10,
			MaxLimit:       100,
			Weights:        WeightsConfig{Profile: 0.8, Quality: 0.6, Feedback: 0.2, Base: 0.05},
			Diversity: DiversityConfig{
				Enabled:        true,
				TopK:           4,
				MinAssignScore: 0.05,
				MinPerTopic:    1,
				MaxShare:       0.5,
			},
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,

			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
		},
	}
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func envInt(env string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func positiveDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

func positiveInt(n *int, def int) {
	if *n <= 0 {
		*n = def
	}
}

func unitInterval(x *float64, def float64) {
	if *x <= 0 || *x > 1 {
		*x = def
	}
}
