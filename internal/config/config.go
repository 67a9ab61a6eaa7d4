// Package config provides configuration types and loading for leadscout.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Providers, Source, Enrichment, Pipeline,
// Cluster, Safety, Scheduler.
type Config struct {
	Paths      PathsConfig      `json:"paths"`
	Model      ModelConfig      `json:"model"`
	Providers  ProvidersConfig  `json:"providers"`
	Source     SourceConfig     `json:"source"`
	Enrichment EnrichmentConfig `json:"enrichment"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	Cluster    ClusterConfig    `json:"cluster"`
	Safety     SafetyConfig     `json:"safety"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model settings shared by qualifier and drafter.
type ModelConfig struct {
	Name           string  `json:"name" envconfig:"MODEL"`
	DraftModel     string  `json:"draftModel" envconfig:"DRAFT_MODEL"`
	EmbeddingModel string  `json:"embeddingModel" envconfig:"EMBEDDING_MODEL"`
	MaxTokens      int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature    float64 `json:"temperature" envconfig:"TEMPERATURE"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	OpenAI ProviderConfig `json:"openai"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Source – chat-activity ingestion
// ---------------------------------------------------------------------------

// SourceConfig configures how raw chat activity reaches the pipeline.
// Exactly one of the Kafka settings or BridgeURL is used, selected by Kind.
type SourceConfig struct {
	Kind          string `json:"kind" envconfig:"KIND"` // "kafka" or "bridge"
	KafkaBrokers  string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	ActivityTopic string `json:"activityTopic" envconfig:"ACTIVITY_TOPIC"`
	ConsumerGroup string `json:"consumerGroup" envconfig:"CONSUMER_GROUP"`
	BridgeURL     string `json:"bridgeUrl" envconfig:"BRIDGE_URL"`
}

// ---------------------------------------------------------------------------
// Enrichment – best-practice snippet search
// ---------------------------------------------------------------------------

// EnrichmentConfig contains web search settings for generation context.
type EnrichmentConfig struct {
	APIKey     string        `json:"apiKey" envconfig:"API_KEY"`
	APIBase    string        `json:"apiBase,omitempty" envconfig:"API_BASE"`
	MaxResults int           `json:"maxResults"`
	Timeout    time.Duration `json:"timeout"`
}

// ---------------------------------------------------------------------------
// Pipeline – extraction and qualification behaviour
// ---------------------------------------------------------------------------

// PipelineConfig groups candidate extraction and qualifier call settings.
type PipelineConfig struct {
	FreshnessWindow time.Duration `json:"freshnessWindow" envconfig:"FRESHNESS_WINDOW"`
	ActivityFloor   int           `json:"activityFloor" envconfig:"ACTIVITY_FLOOR"`
	RetryAttempts   int           `json:"retryAttempts" envconfig:"RETRY_ATTEMPTS"`
	RetryBaseDelay  time.Duration `json:"retryBaseDelay"`
	CallTimeout     time.Duration `json:"callTimeout" envconfig:"CALL_TIMEOUT"`
	WeeklyFreeQuota int           `json:"weeklyFreeQuota" envconfig:"WEEKLY_FREE_QUOTA"`
}

// ---------------------------------------------------------------------------
// Cluster – pain grouping policy
// ---------------------------------------------------------------------------

// ClusterConfig contains pain clustering policy parameters. Threshold and
// trend windows are deliberately configuration, not constants, so they can
// be tuned per deployment.
type ClusterConfig struct {
	Mode                string        `json:"mode" envconfig:"MODE"` // "lexical" or "embedding"
	SimilarityThreshold float64       `json:"similarityThreshold" envconfig:"SIMILARITY_THRESHOLD"`
	TrendWindow         time.Duration `json:"trendWindow"`
	TrendMinSamples     int           `json:"trendMinSamples"`
	TrendMargin         float64       `json:"trendMargin"`
}

// ---------------------------------------------------------------------------
// Safety – outbound call throttling per mode
// ---------------------------------------------------------------------------

// SafetyConfig holds the per-mode pacing parameters the runner resolves a
// safety mode against.
type SafetyConfig struct {
	FastConcurrency      int           `json:"fastConcurrency" envconfig:"FAST_CONCURRENCY"`
	NormalDelay          time.Duration `json:"normalDelay" envconfig:"NORMAL_DELAY"`
	CarefulDelay         time.Duration `json:"carefulDelay" envconfig:"CAREFUL_DELAY"`
	CarefulMaxCandidates int           `json:"carefulMaxCandidates" envconfig:"CAREFUL_MAX_CANDIDATES"`
}

// ---------------------------------------------------------------------------
// Scheduler – daily program runs
// ---------------------------------------------------------------------------

// SchedulerConfig contains settings for the daily run scheduler.
type SchedulerConfig struct {
	Enabled      bool          `json:"enabled" envconfig:"ENABLED"`
	TickInterval time.Duration `json:"tickInterval" envconfig:"TICK_INTERVAL"`
	MaxConcRuns  int           `json:"maxConcRuns" envconfig:"MAX_CONC_RUNS"`
	LockPath     string        `json:"lockPath"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "~/.leadscout",
		},
		Model: ModelConfig{
			Name:           "gpt-4o",
			DraftModel:     "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
			MaxTokens:      4096,
			Temperature:    0.5,
		},
		Source: SourceConfig{
			Kind:          "kafka",
			ActivityTopic: "chat-activity",
			ConsumerGroup: "leadscout",
		},
		Enrichment: EnrichmentConfig{
			MaxResults: 5,
			Timeout:    15 * time.Second,
		},
		Pipeline: PipelineConfig{
			FreshnessWindow: 10 * 24 * time.Hour,
			ActivityFloor:   1,
			RetryAttempts:   3,
			RetryBaseDelay:  2 * time.Second,
			CallTimeout:     60 * time.Second,
			WeeklyFreeQuota: 50,
		},
		Cluster: ClusterConfig{
			Mode:                "lexical",
			SimilarityThreshold: 0.35,
			TrendWindow:         7 * 24 * time.Hour,
			TrendMinSamples:     3,
			TrendMargin:         0.5,
		},
		Safety: SafetyConfig{
			FastConcurrency:      3,
			NormalDelay:          2 * time.Second,
			CarefulDelay:         5 * time.Second,
			CarefulMaxCandidates: 25,
		},
		Scheduler: SchedulerConfig{
			Enabled:      false,
			TickInterval: 60 * time.Second,
			MaxConcRuns:  2,
		},
	}
}
