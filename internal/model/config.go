package model

import (
	"fmt"
	"time"
)

// Config is the complete application configuration. Flags, environment
// variables (SCHOLIA_*), and ~/.scholia/config.yaml all mutate a copy of
// DefaultConfig; construction fails fast on invalid values.
type Config struct {
	Composer  ComposerConfig  `json:"composer" yaml:"composer" mapstructure:"composer"`
	Extractor ExtractorConfig `json:"extractor" yaml:"extractor" mapstructure:"extractor"`
	Validator ValidatorConfig `json:"validator" yaml:"validator" mapstructure:"validator"`
	Tracker   TrackerConfig   `json:"tracker" yaml:"tracker" mapstructure:"tracker"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	Corpus    CorpusConfig    `json:"corpus" yaml:"corpus" mapstructure:"corpus"`
	Output    OutputConfig    `json:"output" yaml:"output" mapstructure:"output"`

	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// ComposerConfig bounds and tunes context composition.
type ComposerConfig struct {
	MaxTokens          int      `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Strategy           Strategy `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	TokenMultiplier    float64  `json:"token_multiplier" yaml:"token_multiplier" mapstructure:"token_multiplier"`
	Encoder            string   `json:"encoder" yaml:"encoder" mapstructure:"encoder"` // "estimate" or a tiktoken encoding name
	OverlapThreshold   float64  `json:"overlap_threshold" yaml:"overlap_threshold" mapstructure:"overlap_threshold"`
	CoherenceThreshold float64  `json:"coherence_threshold" yaml:"coherence_threshold" mapstructure:"coherence_threshold"`
	MinPassageTokens   int      `json:"min_passage_tokens" yaml:"min_passage_tokens" mapstructure:"min_passage_tokens"`
	CitationStyle      string   `json:"citation_style" yaml:"citation_style" mapstructure:"citation_style"` // classical, modern, footnote
	MaxCitations       int      `json:"max_citations" yaml:"max_citations" mapstructure:"max_citations"`
}

// ExtractorConfig tunes citation extraction from generated text.
type ExtractorConfig struct {
	MinConfidence       float64 `json:"min_confidence" yaml:"min_confidence" mapstructure:"min_confidence"`
	MaxCitations        int     `json:"max_citations" yaml:"max_citations" mapstructure:"max_citations"`
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// RuleConfig toggles and weights one validation rule.
type RuleConfig struct {
	Enabled  bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Weight   float64 `json:"weight" yaml:"weight" mapstructure:"weight"`
	Required bool    `json:"required" yaml:"required" mapstructure:"required"`
}

// ValidatorConfig tunes citation validation and its batch behavior.
type ValidatorConfig struct {
	Rules               map[string]RuleConfig `json:"rules" yaml:"rules" mapstructure:"rules"`
	AccuracyThreshold   float64               `json:"accuracy_threshold" yaml:"accuracy_threshold" mapstructure:"accuracy_threshold"`
	StrictAttribution   bool                  `json:"strict_attribution" yaml:"strict_attribution" mapstructure:"strict_attribution"`
	MaxWorkers          int                   `json:"max_workers" yaml:"max_workers" mapstructure:"max_workers"`
	Timeout             time.Duration         `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	TimeoutSet          bool                  `json:"-" yaml:"-" mapstructure:"-"` // Distinguishes an explicit zero timeout from "use default"
	SuggestionThreshold float64               `json:"suggestion_threshold" yaml:"suggestion_threshold" mapstructure:"suggestion_threshold"`
}

// BatchTimeout returns the effective batch deadline. A zero value with
// TimeoutSet=false falls back to the default; an explicit zero is honored
// as an already-expired deadline.
func (v ValidatorConfig) BatchTimeout() time.Duration {
	if v.Timeout == 0 && !v.TimeoutSet {
		return 30 * time.Second
	}
	return v.Timeout
}

// TrackerConfig tunes provenance tracking and network construction.
type TrackerConfig struct {
	MaxEventsPerCitation int     `json:"max_events_per_citation" yaml:"max_events_per_citation" mapstructure:"max_events_per_citation"`
	Policy               string  `json:"policy" yaml:"policy" mapstructure:"policy"` // "similarity" or "none"
	AutoDetect           bool    `json:"auto_detect" yaml:"auto_detect" mapstructure:"auto_detect"`
	AutoDetectThreshold  float64 `json:"auto_detect_threshold" yaml:"auto_detect_threshold" mapstructure:"auto_detect_threshold"`
}

// CacheConfig tunes the composition cache and the corpus document cache.
type CacheConfig struct {
	Enabled    bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	TTL        time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
	MaxEntries int           `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`
	Dir        string        `json:"dir" yaml:"dir" mapstructure:"dir"` // Disk tier for fetched corpus documents
}

// LLMConfig configures the text-generator collaborator. An empty provider
// disables generation.
type LLMConfig struct {
	Provider          string  `json:"provider" yaml:"provider" mapstructure:"provider"`
	Model             string  `json:"model" yaml:"model" mapstructure:"model"`
	APIKey            string  `json:"-" yaml:"-" mapstructure:"api_key"`
	BaseURL           string  `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	Timeout           int     `json:"timeout" yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst" mapstructure:"burst"`

	HTTPProxy  string `json:"-" yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `json:"-" yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `json:"-" yaml:"no_proxy" mapstructure:"no_proxy"`
}

// RetrievalConfig configures the ranked-passage source.
type RetrievalConfig struct {
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	TopK    int           `json:"top_k" yaml:"top_k" mapstructure:"top_k"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// CorpusConfig configures source-document loading.
type CorpusConfig struct {
	Dir               string        `json:"dir,omitempty" yaml:"dir" mapstructure:"dir"`
	UserAgent         string        `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
	FetchTimeout      time.Duration `json:"fetch_timeout" yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	MaxBodyBytes      int64         `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `json:"burst" yaml:"burst" mapstructure:"burst"`
	LoadConcurrency   int           `json:"load_concurrency" yaml:"load_concurrency" mapstructure:"load_concurrency"`
	ChunkWords        int           `json:"chunk_words" yaml:"chunk_words" mapstructure:"chunk_words"`

	HTTPProxy  string `json:"-" yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `json:"-" yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `json:"-" yaml:"no_proxy" mapstructure:"no_proxy"`
}

// OutputConfig tunes report rendering.
type OutputConfig struct {
	Verbose       bool `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `json:"include_footer" yaml:"include_footer" mapstructure:"include_footer"`
}

// ConcurrencyConfig bounds batch-level parallelism.
type ConcurrencyConfig struct {
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Composer: ComposerConfig{
			MaxTokens:          4000,
			Strategy:           StrategyStitching,
			TokenMultiplier:    1.3,
			Encoder:            "estimate",
			OverlapThreshold:   0.8,
			CoherenceThreshold: 0.3,
			MinPassageTokens:   50,
			CitationStyle:      "classical",
			MaxCitations:       20,
		},
		Extractor: ExtractorConfig{
			MinConfidence:       0.5,
			MaxCitations:        30,
			SimilarityThreshold: 0.6,
		},
		Validator: ValidatorConfig{
			Rules: map[string]RuleConfig{
				RuleTextualAccuracy:     {Enabled: true, Weight: 0.35, Required: true},
				RuleSourceAttribution:   {Enabled: true, Weight: 0.30, Required: false},
				RuleContextualRelevance: {Enabled: true, Weight: 0.20, Required: false},
				RuleScholarlyFormat:     {Enabled: true, Weight: 0.15, Required: false},
			},
			AccuracyThreshold:   0.65,
			StrictAttribution:   false,
			MaxWorkers:          8,
			Timeout:             30 * time.Second,
			TimeoutSet:          true,
			SuggestionThreshold: 0.7,
		},
		Tracker: TrackerConfig{
			MaxEventsPerCitation: 100,
			Policy:               "similarity",
			AutoDetect:           true,
			AutoDetectThreshold:  0.6,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        time.Hour,
			MaxEntries: 100,
			Dir:        "",
		},
		LLM: LLMConfig{
			Provider:          "",
			Model:             "",
			Timeout:           30,
			MaxTokens:         1500,
			Temperature:       0.3,
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Retrieval: RetrievalConfig{
			TopK:    12,
			Timeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			UserAgent:         "Scholia/0.1 (+https://github.com/scholiast/scholia)",
			FetchTimeout:      20 * time.Second,
			MaxBodyBytes:      4_000_000,
			RequestsPerSecond: 1,
			Burst:             2,
			LoadConcurrency:   4,
			ChunkWords:        120,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}

// Validate fails fast on invalid budgets, thresholds, and styles. The
// composer section has its own method so the composer constructor can
// check it without the rest of the application config.
func (c ComposerConfig) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("composer: max_tokens must be positive, got %d", c.MaxTokens)
	}
	if !c.Strategy.Valid() {
		return fmt.Errorf("composer: unknown strategy %q", c.Strategy)
	}
	if c.TokenMultiplier <= 0 {
		return fmt.Errorf("composer: token_multiplier must be positive, got %.2f", c.TokenMultiplier)
	}
	if err := checkUnit("composer.overlap_threshold", c.OverlapThreshold); err != nil {
		return err
	}
	if err := checkUnit("composer.coherence_threshold", c.CoherenceThreshold); err != nil {
		return err
	}
	switch c.CitationStyle {
	case "classical", "modern", "footnote":
	default:
		return fmt.Errorf("composer: unknown citation_style %q", c.CitationStyle)
	}
	if c.MaxCitations < 0 {
		return fmt.Errorf("composer: max_citations must not be negative, got %d", c.MaxCitations)
	}
	return nil
}

// Validate fails fast on invalid budgets, thresholds, and weights.
func (c *Config) Validate() error {
	if err := c.Composer.Validate(); err != nil {
		return err
	}

	if err := checkUnit("extractor.min_confidence", c.Extractor.MinConfidence); err != nil {
		return err
	}
	if err := checkUnit("extractor.similarity_threshold", c.Extractor.SimilarityThreshold); err != nil {
		return err
	}
	if c.Extractor.MaxCitations <= 0 {
		return fmt.Errorf("extractor: max_citations must be positive, got %d", c.Extractor.MaxCitations)
	}

	if len(c.Validator.Rules) == 0 {
		return fmt.Errorf("validator: no rules configured")
	}
	totalWeight := 0.0
	for name, rule := range c.Validator.Rules {
		if rule.Weight < 0 {
			return fmt.Errorf("validator: rule %s has negative weight %.2f", name, rule.Weight)
		}
		if rule.Enabled {
			totalWeight += rule.Weight
		}
	}
	if totalWeight <= 0 {
		return fmt.Errorf("validator: enabled rule weights sum to zero")
	}
	if err := checkUnit("validator.accuracy_threshold", c.Validator.AccuracyThreshold); err != nil {
		return err
	}
	if c.Validator.MaxWorkers <= 0 {
		return fmt.Errorf("validator: max_workers must be positive, got %d", c.Validator.MaxWorkers)
	}
	if c.Validator.Timeout < 0 {
		return fmt.Errorf("validator: timeout must not be negative, got %v", c.Validator.Timeout)
	}

	if c.Tracker.MaxEventsPerCitation <= 0 {
		return fmt.Errorf("tracker: max_events_per_citation must be positive, got %d", c.Tracker.MaxEventsPerCitation)
	}
	switch c.Tracker.Policy {
	case "similarity", "none":
	default:
		return fmt.Errorf("tracker: unknown policy %q", c.Tracker.Policy)
	}
	if err := checkUnit("tracker.auto_detect_threshold", c.Tracker.AutoDetectThreshold); err != nil {
		return err
	}

	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache: max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache: ttl must be positive, got %v", c.Cache.TTL)
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval: top_k must be positive, got %d", c.Retrieval.TopK)
	}

	return nil
}

func checkUnit(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be within [0,1], got %.2f", name, v)
	}
	return nil
}
