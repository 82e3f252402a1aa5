// Package pipeline wires the stages together: retrieve passages for a
// query, compose a bounded context, generate an answer, extract the
// citations the answer makes, validate them against the context, and
// record provenance. One Pipeline serves many queries; the tracker
// accumulates citations and relationships across them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/scholiast/scholia/internal/cache"
	"github.com/scholiast/scholia/internal/compose"
	"github.com/scholiast/scholia/internal/extract"
	"github.com/scholiast/scholia/internal/llm"
	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/retrieval"
	"github.com/scholiast/scholia/internal/tokens"
	"github.com/scholiast/scholia/internal/track"
	"github.com/scholiast/scholia/internal/validate"
)

// Pipeline orchestrates one query through every stage.
type Pipeline struct {
	retriever retrieval.Retriever
	composer  *compose.Composer
	generator *llm.Generator
	extractor *extract.Extractor
	validator *validate.Validator
	tracker   *track.Tracker
	renderer  *Renderer
	config    *model.Config
}

// NewPipeline creates a pipeline from the configuration and a passage
// source. Configuration errors fail fast. An LLM provider that cannot
// be initialized only disables generation; the pipeline still composes
// context and validates externally supplied answers.
func NewPipeline(cfg *model.Config, retriever retrieval.Retriever) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if retriever == nil {
		return nil, fmt.Errorf("pipeline requires a retriever")
	}

	counter, err := tokens.New(cfg.Composer.Encoder, cfg.Composer.TokenMultiplier)
	if err != nil {
		return nil, fmt.Errorf("create token counter: %w", err)
	}

	var store cache.Cache
	if cfg.Cache.Enabled {
		store = cache.NewBoundedCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}

	composer, err := compose.New(cfg.Composer, counter, store)
	if err != nil {
		return nil, fmt.Errorf("create composer: %w", err)
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		fmt.Printf("Warning: Failed to initialize LLM provider: %v\n", err)
		provider = nil
	}

	return &Pipeline{
		retriever: retriever,
		composer:  composer,
		generator: llm.NewGenerator(provider, cfg.LLM),
		extractor: extract.NewExtractor(cfg.Extractor),
		validator: validate.NewValidator(cfg.Validator),
		tracker:   track.NewTracker(cfg.Tracker),
		renderer:  NewRenderer(cfg.Output.IncludeFooter),
		config:    cfg,
	}, nil
}

// Tracker exposes the provenance store for history and impact queries.
func (p *Pipeline) Tracker() *track.Tracker {
	return p.tracker
}

// Generating reports whether an LLM provider is configured.
func (p *Pipeline) Generating() bool {
	return p.generator.Enabled()
}

// ProcessQuery runs the full pipeline for one query, generating the
// answer with the configured provider.
func (p *Pipeline) ProcessQuery(ctx context.Context, query string) (*model.Report, error) {
	return p.Process(ctx, query, "")
}

// Process runs the pipeline for one query. When answerText is empty
// the configured provider generates the answer; a non-empty answerText
// is taken as an externally produced answer and only extracted,
// validated, and tracked.
func (p *Pipeline) Process(ctx context.Context, query, answerText string) (*model.Report, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	// 1. Retrieve ranked passages
	passages, err := p.retriever.Retrieve(ctx, query, p.config.Retrieval.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	retrieval.Finalize(passages)

	// 2. Compose the bounded context
	contextResult, err := p.composer.Compose(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("compose context: %w", err)
	}

	// 3. Obtain the answer
	var answer *model.GeneratedAnswer
	if answerText == "" {
		answer, err = p.generator.Answer(ctx, query, contextResult)
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		answerText = answer.Text
	} else {
		answer = &model.GeneratedAnswer{Provider: "external", Text: answerText}
	}

	// 4. Extract citations from the answer
	extraction := p.extractor.Extract(ctx, answerText, contextResult)
	for i := range extraction.Citations {
		cit := extraction.Citations[i]
		if _, err := p.tracker.TrackEvent(cit, model.EventExtracted, model.SourceExtraction, nil); err != nil {
			return nil, fmt.Errorf("track extraction: %w", err)
		}
	}

	// 5. Validate against the composed context and adopt the verdicts
	validation := p.validator.ValidateBatch(ctx, extraction.Citations, contextResult)
	for i := range extraction.Citations {
		cit := &extraction.Citations[i]
		res := validation.Results[i]

		previous := *cit
		cit.Confidence = res.Confidence
		changes := track.DiffFields(previous, *cit)
		if _, err := p.tracker.TrackEvent(*cit, model.EventValidated, model.SourceValidation, changes); err != nil {
			return nil, fmt.Errorf("track validation: %w", err)
		}
		if res.IsValid {
			if _, err := p.tracker.TrackEvent(*cit, model.EventReferenced, model.SourceGeneration, nil); err != nil {
				return nil, fmt.Errorf("track reference: %w", err)
			}
		}
	}

	// 6. Detect relationships across everything tracked so far. Running
	// over the whole store lets citations from earlier queries in a
	// batch link up with this one; existing edges are not re-created.
	detected, err := p.tracker.DetectRelationships(p.tracker.Citations())
	if err != nil {
		return nil, fmt.Errorf("detect relationships: %w", err)
	}
	for i := range extraction.Citations {
		cit := &extraction.Citations[i]
		cit.Relationships = p.tracker.Relationships(cit.ID)
	}
	byID := make(map[string]model.Citation)
	for _, cit := range p.tracker.Citations() {
		byID[cit.ID] = cit
	}
	for _, rel := range detected {
		src, ok := byID[rel.SourceID]
		if !ok {
			continue
		}
		change := []model.FieldChange{{
			Field:   "relationships",
			Current: fmt.Sprintf("%s %s", rel.Kind, rel.TargetID),
		}}
		if _, err := p.tracker.TrackEvent(src, model.EventLinked, model.SourceTracking, change); err != nil {
			return nil, fmt.Errorf("track relationship: %w", err)
		}
	}

	// 7. Snapshot the citation network
	network := p.tracker.BuildNetwork()

	// 8. Assemble the report
	return &model.Report{
		Query:       query,
		ProcessedAt: time.Now().UTC(),
		Strategy:    contextResult.Strategy,
		Context:     model.SummarizeContext(contextResult),
		Answer:      answer,
		Citations:   extraction.Citations,
		Extraction:  model.SummarizeExtraction(extraction),
		Validation:  validation,
		Network:     network,
		Attribution: compose.RenderAttribution(contextResult.Citations),
	}, nil
}

// RenderReport writes the report to the requested destinations and
// prints a summary to stdout.
func (p *Pipeline) RenderReport(report *model.Report, jsonPath, mdPath string) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("write JSON report: %w", err)
		}
		fmt.Printf("✓ Wrote JSON report: %s\n", jsonPath)
	}
	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("write Markdown report: %w", err)
		}
		fmt.Printf("✓ Wrote Markdown report: %s\n", mdPath)
	}
	p.renderer.RenderSummary(report, p.config.Output.Verbose)
	return nil
}
