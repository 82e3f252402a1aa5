package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/retrieval"
	"github.com/scholiast/scholia/internal/validate"
)

var (
	verdictOut      string
	validateTimeout time.Duration
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <citations.json>",
	Short: "Validate a citations file against source passages",
	Long: `Validate checks previously extracted citations against the passages
they claim to cite, without running the full pipeline:
- Quoted text must be found in a source passage
- References must name a source present in the passage set
- Verdicts, confidences, and issues are reported per citation

The citations file holds a JSON array of citations. --passages supplies
the source passages to check against.

Example:
  scholia validate citations.json --passages passages.json
  scholia validate citations.json --passages passages.json --strict-attribution --json verdicts.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&passagesFile, "passages", "", "source passages JSON file (required)")
	validateCmd.Flags().StringVar(&verdictOut, "json", "", "write the batch verdict as JSON")
	validateCmd.Flags().DurationVar(&validateTimeout, "timeout", 30*time.Second, "validation timeout")
	validateCmd.Flags().BoolVar(&strictAttribution, "strict-attribution", false, "fail citations that do not name their source")
	_ = validateCmd.MarkFlagRequired("passages")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	citations, err := readCitations(args[0])
	if err != nil {
		return err
	}

	retriever, err := retrieval.NewFileRetriever(passagesFile)
	if err != nil {
		return fmt.Errorf("load passages: %w", err)
	}
	passages, err := retriever.Retrieve(ctx, "", 0)
	if err != nil {
		return fmt.Errorf("load passages: %w", err)
	}
	retrieval.Finalize(passages)

	// The validator reads passages through a context result; a single
	// synthetic group is enough for standalone checking.
	source := &model.ContextResult{
		Groups: []model.PassageGroup{{Passages: passages}},
	}

	cfg := model.DefaultConfig()
	cfg.Validator.StrictAttribution = strictAttribution

	v := validate.NewValidator(cfg.Validator)
	batch := v.ValidateBatch(ctx, citations, source)

	for i, res := range batch.Results {
		mark := "✗"
		if res.IsValid {
			mark = "✓"
		}
		fmt.Printf("%s %d. %s (confidence %.2f)\n", mark, i+1, describeCitation(citations[i]), res.Confidence)
		for _, issue := range res.Issues {
			fmt.Printf("    issue: %s\n", issue)
		}
		for _, suggestion := range res.Suggestions {
			fmt.Printf("    suggestion: %s\n", suggestion)
		}
	}
	fmt.Println()
	fmt.Printf("Valid: %d/%d   Mean confidence: %.2f   Quality: %.2f\n",
		batch.ValidCount, batch.TotalCount, batch.MeanConfidence, batch.QualityScore)

	if verdictOut != "" {
		data, err := json.MarshalIndent(batch, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal verdict: %w", err)
		}
		if err := os.WriteFile(verdictOut, data, 0o644); err != nil {
			return fmt.Errorf("write verdict: %w", err)
		}
		fmt.Printf("✓ Wrote verdict: %s\n", verdictOut)
	}

	if !batch.AllValid {
		return fmt.Errorf("%d of %d citations failed validation", batch.TotalCount-batch.ValidCount, batch.TotalCount)
	}
	return nil
}

// readCitations loads a JSON array of citations, assigning identifiers
// to entries that lack them.
func readCitations(path string) ([]model.Citation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read citations file: %w", err)
	}
	var citations []model.Citation
	if err := json.Unmarshal(data, &citations); err != nil {
		return nil, fmt.Errorf("parse citations file: %w", err)
	}
	if len(citations) == 0 {
		return nil, fmt.Errorf("citations file %s holds no citations", path)
	}
	for i := range citations {
		if citations[i].ID == "" {
			citations[i].ID = fmt.Sprintf("citation-%d", i+1)
		}
	}
	return citations, nil
}

func describeCitation(c model.Citation) string {
	switch {
	case c.SourceAuthor != "" && c.SourceReference != "":
		return c.SourceAuthor + ", " + c.SourceReference
	case c.SourceAuthor != "" && c.SourceTitle != "":
		return c.SourceAuthor + ", " + c.SourceTitle
	case c.SourceAuthor != "":
		return c.SourceAuthor
	case c.SourceReference != "":
		return c.SourceReference
	}
	text := c.Text
	if len(text) > 50 {
		text = text[:50] + "..."
	}
	return fmt.Sprintf("%q", text)
}
