package validate

import (
	"context"
	"sync"
	"time"

	"github.com/scholiast/scholia/internal/model"
)

// ValidateBatch validates citations concurrently, preserving input
// order. The whole batch shares one deadline: citations not processed
// before it expires are reported invalid with a timeout issue rather
// than dropped.
func (v *Validator) ValidateBatch(ctx context.Context, citations []model.Citation, source *model.ContextResult) *model.BatchValidationResult {
	start := time.Now()
	batch := &model.BatchValidationResult{
		Results:    make([]model.ValidationResult, len(citations)),
		TotalCount: len(citations),
	}
	if len(citations) == 0 {
		batch.AllValid = true
		return batch
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.BatchTimeout())
	defer cancel()

	workers := v.cfg.MaxWorkers
	if workers <= 0 {
		workers = 8
	}
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, cit := range citations {
		wg.Add(1)
		go func(idx int, c model.Citation) {
			defer wg.Done()

			// An already-expired deadline must time out every
			// citation, so check before racing the semaphore.
			if ctx.Err() != nil {
				batch.Results[idx] = timedOutResult(c.ID)
				return
			}

			select {
			case <-ctx.Done():
				batch.Results[idx] = timedOutResult(c.ID)
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			batch.Results[idx] = v.ValidateCitation(&c, source)
		}(i, cit)
	}
	wg.Wait()

	summarize(batch)
	batch.Elapsed = time.Since(start).Seconds()
	return batch
}

func timedOutResult(citationID string) model.ValidationResult {
	return model.ValidationResult{
		CitationID:  citationID,
		IsValid:     false,
		Issues:      []string{"validation timed out"},
		ValidatedAt: time.Now().UTC(),
	}
}

// summarize fills the aggregate scores from the individual results.
func summarize(batch *model.BatchValidationResult) {
	if len(batch.Results) == 0 {
		return
	}

	var confSum, accSum, ctxSum float64
	accurate := 0
	covered := 0
	for _, r := range batch.Results {
		if r.IsValid {
			batch.ValidCount++
		}
		confSum += r.Confidence
		accSum += r.SourceAccuracy
		ctxSum += r.ContextRelevance
		if r.IsValid && r.Confidence >= 0.8 {
			accurate++
		}
		if r.SourceAccuracy >= 0.7 {
			covered++
		}
	}

	n := float64(len(batch.Results))
	batch.AllValid = batch.ValidCount == len(batch.Results)
	batch.MeanConfidence = confSum / n
	batch.AccuracyScore = float64(accurate) / n
	batch.CoverageScore = float64(covered) / n
	batch.QualityScore = (batch.MeanConfidence + accSum/n + ctxSum/n) / 3
}
