package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/scholiast/scholia/internal/model"
)

// QueryRunner is implemented by anything that can answer one query end
// to end, typically the citation pipeline.
type QueryRunner interface {
	ProcessQuery(ctx context.Context, query string) (*model.Report, error)
}

// QueryJob represents one query to run
type QueryJob struct {
	Query  string
	Runner QueryRunner
}

// Execute runs the query
func (j *QueryJob) Execute(ctx context.Context) Result {
	report, err := j.Runner.ProcessQuery(ctx, j.Query)
	if err != nil {
		return &QueryResult{
			Query: j.Query,
			Error: err,
		}
	}
	return &QueryResult{
		Query:  j.Query,
		Report: report,
	}
}

// QueryResult represents the result of a query job
type QueryResult struct {
	Query  string
	Report *model.Report
	Error  error
}

// GetError returns the error from the query result
func (r *QueryResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple queries concurrently
type BatchProcessor struct {
	runner      QueryRunner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner QueryRunner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessQueries runs multiple queries concurrently
func (b *BatchProcessor) ProcessQueries(ctx context.Context, queries []string) []*QueryResult {
	if len(queries) == 0 {
		return []*QueryResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, query := range queries {
		pool.Submit(&QueryJob{
			Query:  query,
			Runner: b.runner,
		})
	}

	results := pool.Wait()

	queryResults := make([]*QueryResult, len(results))
	for i, result := range results {
		queryResults[i] = result.(*QueryResult)
	}

	return queryResults
}

// ProcessFile reads queries from a file and runs them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*QueryResult, error) {
	queries, err := ReadQueriesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}

	return b.ProcessQueries(ctx, queries), nil
}

// ReadQueriesFromFile reads queries from a file (one per line)
func ReadQueriesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var queries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate repeated queries
		if !seen[line] {
			seen[line] = true
			queries = append(queries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return queries, nil
}
